package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/itomlabs/spadev/internal/router"
)

// Options configures the transport around a router.Resolver.
type Options struct {
	Addr string
	// HealthPath mounts the health report when non-empty.
	HealthPath string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger, resolver *router.Resolver) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           newHandler(opts, logger, resolver),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func newHandler(opts Options, logger *slog.Logger, resolver *router.Resolver) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	addRoutes(r, logger, resolver, opts.HealthPath)

	return r
}

// Run listens on the configured address and serves until Shutdown. Each
// accepted connection is served on its own goroutine by net/http.
func (s *Server) Run(_ context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Listen binds the configured address without serving on it yet.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	return ln, nil
}

// Serve serves on an already bound listener.
func (s *Server) Serve(ln net.Listener) error {
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
