// Package internal provides the main application initialization and runtime logic.
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

	"github.com/starford/lintel/internal/api"
	"github.com/starford/lintel/internal/clock"
	"github.com/starford/lintel/internal/mcpserver"
	"github.com/starford/lintel/internal/sse"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("site_root", cfg.Site.Root),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := newStack(cfg, logger, cfg.Site.Watch)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	siteRouter := api.NewRouter(st.site, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Mount("/", siteRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload fragments from disk and tell connected pages.
	if st.watcher != nil {
		g.Go(func() error {
			if err := st.watcher.Run(gCtx, st.cache, broker.PublishLayoutEvent); err != nil {
				logger.Warn("fragment watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Live clock for connected pages.
	g.Go(func() error {
		u := cfg.Layout.Clock()
		t := clock.Every(gCtx, cfg.Layout.ClockInterval, func(now time.Time) {
			broker.PublishClock(u.Read(now))
		})
		<-t.Done()
		return nil
	})

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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the errgroup so that the clock and watcher goroutines
// stop with the server.
var errShutdown = errors.New("shutdown")

// Render decorates the page behind urlPath and writes it to w.
func Render(ctx context.Context, urlPath string, w io.Writer, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}
	st, err := newStack(cfg, logger, false)
	if err != nil {
		return err
	}

	page, err := st.site.Render(ctx, urlPath)
	if err != nil {
		return fmt.Errorf("render %s: %w", urlPath, err)
	}
	if _, err := w.Write(page.HTML); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	logger.Info("Page rendered",
		slog.String("path", urlPath),
		slog.String("file", page.File),
		slog.Bool("layout_ok", page.LayoutErr == nil))
	return nil
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}
	st, err := newStack(cfg, logger, cfg.Site.Watch)
	if err != nil {
		return err
	}

	if st.watcher != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := st.watcher.Run(wctx, st.cache, nil); err != nil {
				logger.Warn("fragment watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(st.site).ServeStdio()
}
