// Package server hosts the admin HTTP sidecar: health and prometheus metrics.
// The inventory protocol itself is served over TCP by internal/transport.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Admin struct {
	*http.Server
	logger *zap.Logger
	db     *sql.DB
}

// NewAdmin creates the admin HTTP server
func NewAdmin(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Admin {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := database.Health(db)

		w.Header().Set("Content-Type", "application/json")
		if health["status"] != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(health)
	})

	router.Handle("/metrics", promhttp.Handler())

	return &Admin{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Admin.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		logger: logger,
		db:     db,
	}
}

// Close releases the admin server's resources, including the shared database
// handle
func (a *Admin) Close() error {
	a.logger.Info("Closing admin server resources")

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	a.logger.Sync()
	return nil
}
