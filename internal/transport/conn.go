package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"

	"stockroom/internal/metrics"
	"stockroom/internal/protocol"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleConnection owns one client connection: it loops reading one request,
// dispatching it and writing exactly one response, strictly in order. The
// socket is always closed on exit, whichever path gets there.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger := s.logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	)

	metrics.ConnectionsTotal.Inc()
	metrics.OpenConnections.Inc()
	defer metrics.OpenConnections.Dec()

	logger.Info("Client connected")

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req protocol.Envelope
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				// Normal end of stream from the peer.
				logger.Info("Client disconnected")
			} else {
				// No resynchronization attempt on a broken stream.
				logger.Warn("Failed to decode request, closing connection", zap.Error(err))
			}
			return
		}

		resp := s.dispatcher.Handle(context.Background(), req)

		// Only tags from the closed set become label values; anything the
		// client invents is counted under a single bucket so it cannot grow
		// metric cardinality.
		opLabel := req.Op
		if !s.dispatcher.Supports(req.Op) {
			opLabel = "unknown"
		}
		metrics.RequestsTotal.WithLabelValues(opLabel, string(resp.Status)).Inc()

		if err := encoder.Encode(resp); err != nil {
			logger.Warn("Failed to write response, closing connection", zap.Error(err))
			return
		}
	}
}
