package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/itomlabs/spadev/internal/router"
)

const shell = "<html>SHELL</html>"

// newTestRoot lays out a server root the way a built SPA checkout looks.
func newTestRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"dist/index.html":          shell,
		"dist/assets/app.js":       "console.log(1)",
		"dist/assets/app.css":      "body{}",
		"assets/logo.svg":          "<svg/>",
		"assets/app.css":           "/* pre-build */",
		"index.html":               "<html>STALE</html>",
		"present":                  "old page",
		"docs/index.html":          "<html>DOCS</html>",
		"data/blob.unknownext":     "\x00\x01",
		"some/real/file.json":      `{"ok":true}`,
		"dist/investigation/.keep": "",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestResolver(t *testing.T, dir string) *router.Resolver {
	t.Helper()
	root, err := os.OpenRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { root.Close() })
	return router.New(root.FS(), "dist/index.html", map[string]string{
		"/present": "/investigation/ITOM-4412",
	})
}

func newTestHandler(t *testing.T, dir string, opts Options) http.Handler {
	t.Helper()
	return newHandler(opts, slog.New(slog.NewTextHandler(io.Discard, nil)), newTestResolver(t, dir))
}

func TestHandleSPA(t *testing.T) {
	dir := newTestRoot(t)
	h := newTestHandler(t, dir, Options{})

	tests := []struct {
		name         string
		target       string
		wantStatus   int
		wantBody     string
		wantType     string
		wantLocation string
	}{
		{"root", "/", http.StatusOK, shell, indexContentType, ""},
		{"index.html ignores stale file", "/index.html", http.StatusOK, shell, indexContentType, ""},
		{"legacy redirect", "/present", http.StatusFound, "", "", "/investigation/ITOM-4412"},
		{"built asset", "/assets/app.js", http.StatusOK, "console.log(1)", "application/javascript", ""},
		{"pre-build asset wins", "/assets/app.css", http.StatusOK, "/* pre-build */", "text/css", ""},
		{"root asset", "/assets/logo.svg", http.StatusOK, "<svg/>", "image/svg+xml", ""},
		{"directory index", "/docs/", http.StatusOK, "<html>DOCS</html>", "text/html", ""},
		{"directory index no slash", "/docs", http.StatusOK, "<html>DOCS</html>", "text/html", ""},
		{"direct file", "/some/real/file.json", http.StatusOK, `{"ok":true}`, "application/json", ""},
		{"unknown extension", "/data/blob.unknownext", http.StatusOK, "\x00\x01", "application/octet-stream", ""},
		{"spa route", "/some/spa/route", http.StatusOK, shell, indexContentType, ""},
		{"spa route with query", "/app?x=1#y", http.StatusOK, shell, indexContentType, ""},
		{"directory without index", "/dist/investigation", http.StatusOK, shell, indexContentType, ""},
		{"traversal stays below root", "/../../../../etc/hostname", http.StatusOK, shell, indexContentType, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" {
				if got := rec.Header().Get("Location"); got != tt.wantLocation {
					t.Errorf("Location = %q, want %q", got, tt.wantLocation)
				}
				return
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(tt.wantBody)) {
				t.Errorf("Content-Length = %q, want %d", got, len(tt.wantBody))
			}
		})
	}
}

func TestHandleSPAIndexIsReadFresh(t *testing.T) {
	dir := newTestRoot(t)
	h := newTestHandler(t, dir, Options{})

	if err := os.WriteFile(filepath.Join(dir, "dist", "index.html"), []byte("<html>EDITED</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if got := rec.Body.String(); got != "<html>EDITED</html>" {
		t.Errorf("body = %q, want edited index", got)
	}
}

func TestHandleSPAMissingIndex(t *testing.T) {
	dir := newTestRoot(t)
	h := newTestHandler(t, dir, Options{})

	if err := os.Remove(filepath.Join(dir, "dist", "index.html")); err != nil {
		t.Fatal(err)
	}

	for _, target := range []string{"/", "/some/route"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want %d", target, rec.Code, http.StatusInternalServerError)
		}
		if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
			t.Errorf("%s: Content-Type = %q", target, got)
		}
	}

	// Static files keep working without the shell.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("asset status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleSPAHead(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/assets/app.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD body = %q, want empty", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Length"); got != "14" {
		t.Errorf("Content-Length = %q, want 14", got)
	}
}

func TestHandleSPAOtherMethods(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/some/route", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServeFileReadErrors(t *testing.T) {
	dir := newTestRoot(t)
	resolver := newTestResolver(t, dir)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		file       string
		wantStatus int
		wantBody   string
	}{
		{"vanished file", "gone.js", http.StatusNotFound, "404 page not found\n"},
		{"directory read", "docs", http.StatusInternalServerError, "500 Internal Server Error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/"+tt.file, nil)
			serveFile(rec, req, log, resolver, tt.file)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
				t.Errorf("Content-Type = %q", got)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestHandleSPAWarnsOnParentSegments(t *testing.T) {
	tests := []struct {
		target   string
		wantWarn int
	}{
		{"/../x", 1},
		{"/assets/%2e%2e/dist/index.html", 1},
		{"/some/route", 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			h := newHandler(Options{}, logger, newTestResolver(t, newTestRoot(t)))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			warns := 0
			dec := json.NewDecoder(&buf)
			for dec.More() {
				var entry struct {
					Level  string
					Target string
				}
				if err := dec.Decode(&entry); err != nil {
					t.Fatalf("decoding log record: %v", err)
				}
				if entry.Level != "WARN" {
					continue
				}
				warns++
				if entry.Target != tt.target {
					t.Errorf("warn target = %q, want %q", entry.Target, tt.target)
				}
			}
			if warns != tt.wantWarn {
				t.Errorf("got %d WARN records, want %d:\n%s", warns, tt.wantWarn, buf.String())
			}
		})
	}
}
