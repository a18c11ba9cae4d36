package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/logger"
	"stockroom/internal/repository"
	"stockroom/internal/server"
	"stockroom/internal/service"
	"stockroom/internal/transport"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func gracefulShutdown(tcpServer *transport.Server, adminServer *server.Admin, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Connection handlers get 30 seconds to drain; they are never interrupted
	// mid request/response cycle.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := tcpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown with open connections", zap.Error(err))
	}

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin server forced to shutdown", zap.Error(err))
	}

	if err := adminServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting inventory server",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("admin_port", cfg.Admin.Port),
	)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)

	// Services
	stockService := service.NewStockService(productRepo, movementRepo, log)

	// One dispatcher shared by every connection
	dispatcher := transport.NewDispatcher(productRepo, categoryRepo, stockService, log)

	tcpServer := transport.NewServer(fmt.Sprintf(":%s", cfg.Server.Port), dispatcher, log)
	adminServer := server.NewAdmin(cfg, log, db)

	done := make(chan bool, 1)
	go gracefulShutdown(tcpServer, adminServer, log, done)

	go func() {
		log.Info("Admin server listening", zap.String("addr", adminServer.Addr))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Admin server error", zap.Error(err))
		}
	}()

	if err := tcpServer.Serve(); err != nil {
		log.Fatal("TCP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
