// Package transport implements the TCP request/response surface of the
// inventory server: the listener, the per-connection handler loop and the
// operation dispatcher.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts client connections and serves each one on its own goroutine,
// all sharing a single Dispatcher.
type Server struct {
	addr       string
	dispatcher *Dispatcher
	logger     *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// NewServer creates a Server that will listen on addr
func NewServer(addr string, dispatcher *Dispatcher, logger *zap.Logger) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Listen binds the server's port. Split from Serve so callers (and tests) can
// learn the bound address before accepting.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	return nil
}

// Addr returns the bound listener address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed by Shutdown. Each
// accepted connection is handed to its own goroutine.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.logger.Info("Server listening", zap.String("addr", s.listener.Addr().String()))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown stops accepting new connections and waits for running connection
// handlers to drain. Handlers are not forcibly interrupted; a client that
// never disconnects holds its handler until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Warn("Failed to close listener", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("All connections drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
