package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/itomlabs/spadev/internal/router"
)

const indexContentType = "text/html; charset=utf-8"

// handleSPA resolves each request and writes exactly one response for the
// resulting target.
func handleSPA(logger *slog.Logger, resolver *router.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := requestTarget(r)
		log := logger.With("request_id", middleware.GetReqID(r.Context()))

		if router.HasDotDot(target) {
			log.Warn("request target has parent segments, serving below root only", "target", target)
		}

		t := resolver.Resolve(target)
		log.Debug("resolved request", "target", target, "kind", t.Kind.String(), "name", t.Name)

		switch t.Kind {
		case router.KindRedirect:
			w.Header().Set("Location", t.Location)
			w.WriteHeader(http.StatusFound)
		case router.KindDirectoryIndex, router.KindStaticFile:
			serveFile(w, r, log, resolver, t.Name)
		default:
			serveIndex(w, r, log, resolver)
		}
	}
}

func serveFile(w http.ResponseWriter, r *http.Request, log *slog.Logger, resolver *router.Resolver, name string) {
	data, err := resolver.ReadFile(name)
	if err != nil {
		log.Error("reading static file", "name", name, "error", err)
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "404 page not found", http.StatusNotFound)
			return
		}
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	write(w, r, router.ContentType(name), data)
}

func serveIndex(w http.ResponseWriter, r *http.Request, log *slog.Logger, resolver *router.Resolver) {
	data, err := resolver.ReadIndex()
	if err != nil {
		log.Error("reading index document", "name", resolver.Index(), "error", err)
		http.Error(w, fmt.Sprintf("Error serving index: %v", err), http.StatusInternalServerError)
		return
	}
	write(w, r, indexContentType, data)
}

func write(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(data)
}
