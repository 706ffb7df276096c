package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/repository"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/router"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/service"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/audit"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/auth"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/config"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/database"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/middleware"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/uploads"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"storage_type", cfg.Storage.Type,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Perform health check
	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	// Initialize attachment storage
	storage, err := uploads.NewStorageFromConfig(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize attachment storage: %v", err)
	}
	uploadService := uploads.NewUploadService(storage)

	// Wire the approval workflow
	repo := repository.NewApprovalRepository(db)
	selector := service.NewRouteSelector(repo)
	auditLogger := audit.NewLogger(audit.NewGormStore(db))
	approvalService := service.NewApprovalService(repo, selector, auditLogger)

	// Verify the route configuration covers every amount without overlap
	// before accepting requests.
	if err := selector.ValidatePartition(context.Background()); err != nil {
		log.Fatalf("approval route validation failed: %v", err)
	}
	slog.Info("approval route configuration validated")

	// Authentication
	authService := auth.NewAuthService(db)
	tokenExtractor := auth.NewTokenExtractor()
	protect := auth.RequireAuth(authService, tokenExtractor)

	// Set up HTTP routes
	mux := http.NewServeMux()
	approvalRouter := router.NewApprovalRouter(approvalService, selector, auditLogger, uploadService)
	approvalRouter.RegisterRoutes(mux, protect)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(db); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Wrap handler with CORS middleware
	handler := middleware.CORS(cfg.CORS)(mux)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	// Create a context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown of HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
