// Package metrics exposes the server's prometheus collectors, served by the
// admin HTTP endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenConnections is the number of client connections currently being served
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockroom",
		Name:      "open_connections",
		Help:      "Number of client connections currently open.",
	})

	// ConnectionsTotal counts accepted client connections
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stockroom",
		Name:      "connections_total",
		Help:      "Total number of accepted client connections.",
	})

	// RequestsTotal counts dispatched requests by operation tag and response status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockroom",
		Name:      "requests_total",
		Help:      "Total number of dispatched requests by operation and status.",
	}, []string{"op", "status"})
)
