package transport

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/metrics"
	"stockroom/internal/protocol"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startTestServer binds a loopback listener on an ephemeral port and serves
// until the test ends.
func startTestServer(t *testing.T) (string, *memProductRepo) {
	t.Helper()

	dispatcher, products := newTestDispatcher()
	srv := NewServer("127.0.0.1:0", dispatcher, zap.NewNop())
	require.NoError(t, srv.Listen())

	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if err := srv.Serve(); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, srv.Shutdown(ctx))
		<-serveDone
	})

	return srv.Addr().String(), products
}

type testClient struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func dialTestServer(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testClient{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
}

func (c *testClient) roundTrip(t *testing.T, op string, payload any) protocol.Envelope {
	t.Helper()

	req, err := protocol.NewRequest(op, payload)
	require.NoError(t, err)
	require.NoError(t, c.enc.Encode(req))

	var resp protocol.Envelope
	require.NoError(t, c.dec.Decode(&resp))
	return resp
}

func TestServer_RoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)
	client := dialTestServer(t, addr)

	product := domain.Product{Name: "Flour", Price: decimal.NewFromFloat(3.10), Unit: "kg", Quantity: 40}
	resp := client.roundTrip(t, protocol.OpCreateProduct, product)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	resp = client.roundTrip(t, protocol.OpListProducts, nil)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(resp.Payload, &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Flour", products[0].Name)
	assert.Equal(t, domain.GlobalMinStock, products[0].MinStock)
	assert.Equal(t, domain.GlobalMaxStock, products[0].MaxStock)
}

func TestServer_ConnectionSurvivesUnsupportedOperation(t *testing.T) {
	addr, _ := startTestServer(t)
	client := dialTestServer(t, addr)

	resp := client.roundTrip(t, "rotate-shelves", nil)
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, "rotate-shelves", resp.Op)

	// The same connection keeps serving after an unsupported tag.
	resp = client.roundTrip(t, protocol.OpListProducts, nil)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)
}

func TestServer_UnsupportedTagsShareOneMetricLabel(t *testing.T) {
	addr, _ := startTestServer(t)
	client := dialTestServer(t, addr)

	unknown := metrics.RequestsTotal.WithLabelValues("unknown", string(protocol.StatusError))
	before := testutil.ToFloat64(unknown)

	// Client-invented tags must not become distinct label values.
	for _, op := range []string{"rotate-shelves", "defragment-warehouse", "paint-the-floor"} {
		resp := client.roundTrip(t, op, nil)
		require.Equal(t, protocol.StatusError, resp.Status)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(unknown)-before)

	for _, op := range []string{"rotate-shelves", "defragment-warehouse", "paint-the-floor"} {
		assert.Zero(t, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(op, string(protocol.StatusError))))
	}
}

func TestServer_ClosesOnMalformedFrame(t *testing.T) {
	addr, _ := startTestServer(t)
	client := dialTestServer(t, addr)

	_, err := client.conn.Write([]byte("this is not json\n"))
	require.NoError(t, err)

	require.NoError(t, client.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = client.conn.Read(make([]byte, 1))
	assert.Error(t, err, "expected the server to close the connection")
}

func TestServer_ServesConnectionsConcurrently(t *testing.T) {
	addr, products := startTestServer(t)

	seeded := &domain.Product{Name: "Rice", Price: decimal.NewFromInt(2), Quantity: 100}
	require.NoError(t, products.Create(context.Background(), seeded))

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			client := dialTestServer(t, addr)
			for j := 0; j < 25; j++ {
				resp := client.roundTrip(t, protocol.OpStockMovement, MovementRequest{
					ProductID: seeded.ID,
					Quantity:  1,
					Kind:      domain.MovementDecrease,
				})
				if resp.Status == protocol.StatusError {
					t.Errorf("unexpected error envelope: %s", resp.Payload)
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	stored, err := products.FindByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
}

func TestServer_ShutdownStopsAccepting(t *testing.T) {
	dispatcher, _ := newTestDispatcher()
	srv := NewServer("127.0.0.1:0", dispatcher, zap.NewNop())
	require.NoError(t, srv.Listen())

	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve() }()

	addr := srv.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-serveDone)

	_, err := net.Dial("tcp", addr)
	assert.Error(t, err)
}
