// VisionGuard Dashboard - status and query client for the detection backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/visionguard/dashboard/internal/api"
	"github.com/visionguard/dashboard/internal/backend"
	"github.com/visionguard/dashboard/internal/config"
	"github.com/visionguard/dashboard/internal/hub"
	"github.com/visionguard/dashboard/internal/middleware"
	"github.com/visionguard/dashboard/internal/poller"
	"github.com/visionguard/dashboard/internal/session"
	"github.com/visionguard/dashboard/internal/store"
	"github.com/visionguard/dashboard/web"
)

// defaultReplayLimit bounds how many archived entries are reloaded when the
// history log itself is unbounded.
const defaultReplayLimit = 50

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting dashboard", "port", cfg.Port, "backend", cfg.BackendURL, "dev", cfg.IsDevelopment())

	// Optional history archive.
	var archive session.Archive
	var repo store.Repository
	if cfg.History.DBPath != "" {
		repo, err = store.NewSQLite(cfg.History.DBPath)
		if err != nil {
			slog.Error("Failed to initialize history database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := repo.Ping(context.Background()); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		archive = repo
		slog.Info("History archive connected", "path", cfg.History.DBPath)
	}

	// Initialize session.
	httpClient, err := backend.NewHTTPClient(nil)
	if err != nil {
		slog.Error("Failed to configure backend client", "error", err)
		os.Exit(1)
	}
	client := backend.NewClient(cfg.BackendURL, httpClient)
	events := hub.New()
	sess := session.New(client, session.Options{
		Renderer:     events,
		Archive:      archive,
		ImageBaseURL: cfg.BackendURL,
		HistoryLimit: cfg.History.Limit,
		Logger:       logger,
	})

	if repo != nil {
		limit := cfg.History.Limit
		if limit == 0 {
			limit = defaultReplayLimit
		}
		entries, err := repo.RecentEntries(context.Background(), limit)
		if err != nil {
			slog.Error("Failed to load history", "error", err)
			os.Exit(1)
		}
		sess.LoadHistory(entries)
		slog.Info("History restored", "entries", len(entries))
	}

	// Initialize handlers.
	apiHandler := api.NewHandler(sess)
	wsHandler := hub.NewWebSocketHandler(events, sess, cfg.CORSOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws", wsHandler.ServeHTTP)

	// Serve embedded page.
	r.Handle("/*", web.Handler())

	// Note: WebSocket connections are long-lived (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start status poller.
	statusPoller := poller.Start(ctx, cfg.PollInterval, sess.PollStatus)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	statusPoller.Wait()

	slog.Info("Server stopped successfully")
}
