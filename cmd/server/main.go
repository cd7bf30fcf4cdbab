package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/itomlabs/spadev/internal/config"
	"github.com/itomlabs/spadev/internal/router"
	"github.com/itomlabs/spadev/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	if err := config.LoadDotenv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Server root ---
	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return fmt.Errorf("opening server root: %w", err)
	}
	defer root.Close()

	resolver := router.New(root.FS(), cfg.Index, cfg.Redirects)
	if err := (router.IndexChecker{Resolver: resolver}).Check(ctx); err != nil {
		logger.Warn("index document unavailable, fallback requests fail until it is built",
			"index", cfg.IndexPath(), "error", err)
	}

	// --- HTTP Server ---
	srv := server.New(server.Options{
		Addr:       cfg.Addr(),
		HealthPath: cfg.HealthPath,
	}, logger, resolver)

	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	logger.Info("serving SPA",
		"url", cfg.URL(),
		"root", cfg.Root,
		"index", cfg.IndexPath(),
		"redirects", len(cfg.Redirects),
	)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
