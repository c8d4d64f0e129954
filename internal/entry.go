// Package internal provides the application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/rolodex/internal/api"
	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/directory"
	"github.com/starford/rolodex/internal/mcpserver"
	"github.com/starford/rolodex/internal/menu"
	"github.com/starford/rolodex/internal/models"
	"github.com/starford/rolodex/internal/seed"
	"github.com/starford/rolodex/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version: "dev",
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger returns a structured JSON logger writing to w.
func (a *application) logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// newService builds the directory and loads the seed file, if any. A seed
// file that does not fit is reported and the directory starts empty.
func (a *application) newService(ctx context.Context, logger *slog.Logger, onChange contactservice.ChangeFunc) (*contactservice.Service, error) {
	cfg := a.config.Directory
	dir, err := directory.New(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("init directory: %w", err)
	}
	svc := contactservice.NewService(dir, onChange)

	if cfg.SeedFile == "" {
		return svc, nil
	}
	contacts, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	if err := svc.AddAll(ctx, contacts); err != nil {
		if !errors.Is(err, apperr.ErrInsufficientSpace) {
			return nil, fmt.Errorf("apply seed: %w", err)
		}
		logger.Warn("seed file does not fit, starting empty",
			slog.String("seed_file", cfg.SeedFile),
			slog.Int("contacts", len(contacts)),
			slog.Int("capacity", cfg.Capacity))
		return svc, nil
	}
	logger.Info("Seed loaded",
		slog.String("seed_file", cfg.SeedFile),
		slog.Int("contacts", len(contacts)))
	return svc, nil
}

// RunMenu runs the interactive address book on the configured streams.
// Logs go to stderr so they never interleave with the menu.
func RunMenu(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger(app.stderr)

	svc, err := app.newService(ctx, logger, nil)
	if err != nil {
		return err
	}

	logger.Debug("Menu starting", slog.Int("capacity", svc.Capacity()))
	return menu.New(svc, app.stdin, app.stdout, logger).Run(ctx)
}

// ServeMCP exposes the directory as MCP tools over the configured streams.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger(app.stderr)

	svc, err := app.newService(ctx, logger, nil)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.Int("capacity", svc.Capacity()))
	srv := mcpserver.New(svc, app.version)
	return srv.Listen(ctx, app.stdin, app.stdout, logger)
}

// Serve starts the HTTP API with its SSE stream and, when configured, the
// seed file watcher. It returns after a shutdown signal or ctx cancellation.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger(app.stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Int("capacity", cfg.Directory.Capacity),
		slog.String("seed_file", cfg.Directory.SeedFile),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := app.newService(ctx, logger, broker.PublishChange)
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Directory.WatchSeed {
		g.Go(func() error {
			return seed.Watch(gCtx, cfg.Directory.SeedFile, logger, func(contacts []models.Contact) {
				if err := svc.Reseed(gCtx, contacts); err != nil {
					logger.Warn("reseed rejected", slog.String("error", err.Error()))
					broker.Publish(sse.Event{Type: sse.EventSeedRejected, Data: map[string]int{
						"contacts": len(contacts),
						"capacity": svc.Capacity(),
					}})
					return
				}
				logger.Info("Directory reseeded", slog.Int("contacts", len(contacts)))
			})
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		// Closing the broker ends open SSE streams so Shutdown can drain.
		broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the seed watcher stops with the server.
var errShutdown = errors.New("shutdown")
