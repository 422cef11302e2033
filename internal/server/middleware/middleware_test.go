package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
)

type request struct {
	route  string
	status int
}

type httpRecorder struct {
	metrics.NoopRecorder
	requests []request
}

func (h *httpRecorder) ObserveHTTPRequest(route string, status int, _ time.Duration) {
	h.requests = append(h.requests, request{route, status})
}

func newRouter(rec metrics.Recorder) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Chain(slog.Default(), derrors.NewHTTPErrorAdapter(slog.Default()), rec))
	r.Get("/api/docs/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	return r
}

func TestChain_RecordsRoutePattern(t *testing.T) {
	rec := &httpRecorder{}
	w := httptest.NewRecorder()
	newRouter(rec).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/docs/guide/a", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	require.Len(t, rec.requests, 1)
	assert.Equal(t, request{"/api/docs/*", http.StatusTeapot}, rec.requests[0])
}

func TestChain_RecoversPanic(t *testing.T) {
	rec := &httpRecorder{}
	w := httptest.NewRecorder()
	newRouter(rec).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	require.Len(t, rec.requests, 1)
	assert.Equal(t, http.StatusInternalServerError, rec.requests[0].status)
}

func TestChain_NilRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/docs/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
