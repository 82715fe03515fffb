package router

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_PathValue(t *testing.T) {
	r := New()

	var got string
	r.Get("/api/invoices/{id}/pdf", func(w http.ResponseWriter, req *http.Request) {
		got = req.PathValue("id")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/abc/pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/invoices/abc/pdf", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "before"+name)
				next.ServeHTTP(w, r)
				order = append(order, "after"+name)
			})
		}
	}

	r := New(trace("1"))
	r.Post("/test", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, trace("2"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, []string{"before1", "before2", "handler", "after2", "after1"}, order)
}

func TestRouter_GroupDoesNotLeak(t *testing.T) {
	var groupCalls int
	counting := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			groupCalls++
			next.ServeHTTP(w, r)
		})
	}

	r := New()
	api := r.Group(counting)
	api.Get("/api/clients", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, 1, groupCalls)
}

func TestRouter_Static(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logos", "a.png"), []byte("png"), 0o644))

	r := New()
	r.Static("/uploads/", dir)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/logos/a.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(AccessLog(logger))
	r.Delete("/api/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/clients/1", nil))

	assert.Contains(t, buf.String(), "status=409")
	assert.Contains(t, buf.String(), "path=/api/clients/1")
}

func TestRouter_GlobalRunsForUnmatchedRoutes(t *testing.T) {
	preflight := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	r := New(preflight)
	r.Post("/api/invoices", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/invoices", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_StaticNoListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logos"), 0o755))

	r := New()
	r.Static("/uploads", dir)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/logos/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
