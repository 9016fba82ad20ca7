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

	"github.com/starford/slipbox/internal/api"
	"github.com/starford/slipbox/internal/mcpserver"
	"github.com/starford/slipbox/internal/note"
	"github.com/starford/slipbox/internal/noteservice"
	"github.com/starford/slipbox/internal/repository"
	"github.com/starford/slipbox/internal/search"
	"github.com/starford/slipbox/internal/sse"
	"github.com/starford/slipbox/internal/storage"
	"github.com/starford/slipbox/internal/watch"
)

var (
	errConfigRequired = errors.New("config is required")
	// errShutdown cancels the group so the watcher stops with the server.
	errShutdown = errors.New("shutdown")
)

// Backend is an opened repository together with the pieces it was built from.
type Backend struct {
	Store   *storage.FS
	Repo    *repository.Repository
	Service *noteservice.Service
}

// Close releases the search index.
func (b *Backend) Close() error {
	return b.Repo.Close()
}

// OpenBackend creates the repository root if needed, opens the configured
// search index and loads every note.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	rc := cfg.Repository
	if err := os.MkdirAll(rc.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}

	store, err := storage.NewFS(rc.Root, rc.Extensions...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	idx, err := search.Open(search.Options{Backend: cfg.Search.Backend, SQLitePath: cfg.SQLite.Path})
	if err != nil {
		return nil, fmt.Errorf("init search index: %w", err)
	}

	repo, err := repository.Open(ctx, store, idx, repository.Options{
		NotesDir:        rc.NotesDir,
		Strict:          rc.Strict,
		IncrementalSave: rc.IncrementalSave,
		SearchLimit:     rc.SearchLimit,
	}, logger)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Backend{Store: store, Repo: repo, Service: noteservice.NewService(repo)}, nil
}

// NewHandler builds the HTTP handler: health checks plus the API under /api.
func NewHandler(cfg *Config, b *Backend, broker *sse.Broker) http.Handler {
	apiRouter := api.NewRouter(api.RouterConfig{
		Service:     b.Service,
		Store:       b.Store,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
		Notifier:    broker,
	})

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
		_, _ = fmt.Fprintf(w, `{"status":"ok","notes":%d}`, b.Repo.Len())
	})

	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP server and, when enabled, the file watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stdout)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", cfg.Repository.Root),
		slog.String("search_backend", cfg.Search.Backend),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger.Info("Repository loaded",
		slog.Int("notes", backend.Repo.Len()),
		slog.Int("skipped", len(backend.Repo.Skipped())))

	broker := sse.NewBroker(sse.Options{})
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHandler(cfg, backend, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, backend.Store.Root(), backend.Repo, watch.Options{
				Accepts:  backend.Store.Accepts,
				Debounce: cfg.Watch.Debounce,
				Logger:   logger,
				OnReload: func(kind, rel string) {
					broker.PublishNoteEvent(kind, note.IDFromRel(rel))
				},
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger.Info("MCP server starting", slog.String("root", cfg.Repository.Root))

	if cfg.Watch.Enabled {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := watch.Watch(watchCtx, backend.Store.Root(), backend.Repo, watch.Options{
				Accepts:  backend.Store.Accepts,
				Debounce: cfg.Watch.Debounce,
				Logger:   logger,
			}); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	return mcpserver.New(backend.Service, backend.Store).ServeStdio()
}
