package v1

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "supplyhub/internal/core/context"
	"supplyhub/internal/infrastructure/http/v1/middleware"
	"supplyhub/internal/infrastructure/storage/postgres"
	"supplyhub/pkg/logger"
)

type stubDB struct{ err error }

func (s stubDB) Check(context.Context) error { return s.err }
func (s stubDB) Stats() postgres.PoolStats  { return postgres.PoolStats{MaxConns: 10} }

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*appctx.UserContext, error) {
	return nil, errors.New("rejected")
}

func newTestRouter(t *testing.T, db stubDB) http.Handler {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	r, err := NewRouter(RouterConfig{
		AppName:      "supplyhub",
		Version:      "test",
		Logger:       log,
		Database:     db,
		JWTValidator: rejectAll{},
		RateLimit:    &middleware.RateLimitConfig{Rate: "100-M"},
	})
	require.NoError(t, err)
	return r
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, stubDB{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/info", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	down := newTestRouter(t, stubDB{err: errors.New("dial tcp")})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "dial tcp")
}

func TestRouter_RequiresAuth(t *testing.T) {
	r := newTestRouter(t, stubDB{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/supply-orders"},
		{http.MethodPost, "/api/v1/supply-returns"},
		{http.MethodGet, "/api/v1/supply-payments/0190a1b2-0000-7000-8000-000000000001"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	}
}

func TestRouter_InvalidRate(t *testing.T) {
	_, err := NewRouter(RouterConfig{
		Logger:    logger.Default(),
		Database:  stubDB{},
		RateLimit: &middleware.RateLimitConfig{Rate: "fast"},
	})
	assert.Error(t, err)
}
