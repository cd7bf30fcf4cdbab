package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/itomlabs/spadev/internal/handler/health"
	"github.com/itomlabs/spadev/internal/router"
)

func addRoutes(r chi.Router, logger *slog.Logger, resolver *router.Resolver, healthPath string) {
	if healthPath != "" {
		r.Method("GET", healthPath, health.NewHandler(logger, map[string]health.Checker{
			"index": router.IndexChecker{Resolver: resolver},
		}))
	}

	r.Get("/*", handleSPA(logger, resolver))
}
