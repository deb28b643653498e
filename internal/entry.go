// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/gregdefoy/zettl/internal/auth"
	"github.com/gregdefoy/zettl/internal/llm"
	"github.com/gregdefoy/zettl/internal/mcpserver"
	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/nutrition"
	"github.com/gregdefoy/zettl/internal/store"
	"github.com/gregdefoy/zettl/internal/web"
)

// Run starts the web server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_api_url", cfg.Data.APIURL),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var authClient *auth.Client
	if cfg.Auth.URL != "" {
		authClient = auth.NewClient(cfg.Auth.URL)
	}

	// Resolve the data backend token: explicit config wins, otherwise the
	// stored API key is exchanged through the token service.
	token := cfg.Data.Token
	if token == "" && authClient != nil {
		if key, err := auth.LoadAPIKey(); err == nil {
			if t, err := authClient.Token(ctx, key); err == nil {
				token = t
			} else {
				logger.Warn("API key exchange failed, continuing without a backend token",
					slog.String("error", err.Error()))
			}
		}
	}

	st := store.New(store.NewClient(cfg.Data.APIURL, token))
	svc := notes.NewService(st)
	tracker := nutrition.NewTracker(st)

	var helper *llm.Helper
	if cfg.LLM.APIKey != "" {
		helper = llm.NewHelper(llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL), svc)
	} else {
		logger.Warn("no model API key configured, model-backed commands are disabled")
	}

	var verifier *auth.Verifier
	if cfg.Auth.AuthEnabled() {
		var err error
		if cfg.Auth.JWTSecret != "" {
			verifier = auth.NewVerifier([]byte(cfg.Auth.JWTSecret))
		} else {
			os.Setenv(auth.EnvJWTSecretFile, cfg.Auth.JWTSecretFile)
			verifier, err = auth.VerifierFromEnv()
			if err != nil {
				return fmt.Errorf("init JWT verifier: %w", err)
			}
		}
	}

	// SSE broker.
	broker := web.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := web.NewRouter(web.Deps{
		Service:     svc,
		Helper:      helper,
		Tracker:     tracker,
		Auth:        authClient,
		Verifier:    verifier,
		Broker:      broker,
		Logger:      logger,
		RequireAuth: cfg.Auth.AuthEnabled(),
	})

	mcpSrv := mcpserver.New(svc)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Status and health check endpoints (unauthenticated).
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"zettl","status":"ok"}`))
	})
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api. The SSE stream is registered inside the
	// router so it sits behind the same auth as the rest of the API.
	r.Mount("/api", apiRouter)

	// MCP over HTTP, guarded the same way as the API.
	r.Mount("/mcp", mcpserver.HTTPHandler(mcpSrv, verifier, authClient, cfg.Auth.AuthEnabled()))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
