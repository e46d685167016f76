package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-signup/internal/identity"
	"github.com/ovaphlow/pitchfork/service-signup/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/repo"
	"github.com/ovaphlow/pitchfork/service-signup/internal/session"
)

type stubProvider struct{}

func (stubProvider) CreateIdentity(context.Context, string, string) (identity.Ref, error) {
	return "ref-1", nil
}

func (stubProvider) Authenticate(context.Context, string, string) (*session.Session, error) {
	return nil, identity.ErrInvalidCredentials
}

type stubStore struct{ inserted int }

func (*stubStore) FindByName(context.Context, string) ([]entity.Institution, error) { return nil, nil }

func (s *stubStore) Insert(context.Context, repo.Collection, *entity.Profile) (int64, error) {
	s.inserted++
	return int64(s.inserted), nil
}

func (*stubStore) Record(context.Context, *entity.OrphanIdentity) error { return nil }

func (*stubStore) List(context.Context, int) ([]entity.OrphanIdentity, error) { return nil, nil }

func newTestRouter(t *testing.T) (http.Handler, *stubStore) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store := &stubStore{}
	reg := prometheus.NewRegistry()
	svc := registration.NewService(registration.Config{}, stubProvider{}, store, store, store, metrics.New(reg), logger)
	return RegisterRoutes(logger, Routes{
		Registration: registration.NewHandler(svc, store, logger),
		Identity:     identity.NewHandler(stubProvider{}, logger),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}), store
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, BasePath+"/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, BasePath+"/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRegisterRoute(t *testing.T) {
	h, store := newTestRouter(t)
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@x.com","password":"Abcdef1!","role":"learner","institution_name":"Analytic Engines"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, BasePath+"/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, store.inserted)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRegisterRouteRejectsGet(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, BasePath+"/register", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLoginRoute(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, BasePath+"/login",
		strings.NewReader(`{"email":"ada@x.com","password":"Abcdef1!"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	h, _ := newTestRouter(t)
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@x.com","password":"Abcdef1!","role":"learner","institution_name":"Nowhere"}`
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, BasePath+"/register", strings.NewReader(body)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `signup_registrations_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "signup_institution_fallbacks_total 1")
}

func TestOrphansRequiresAdminKey(t *testing.T) {
	h, _ := newTestRouter(t)
	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{name: "no header", status: http.StatusUnauthorized},
		{name: "wrong key", auth: "Bearer nope", status: http.StatusUnauthorized},
		{name: "not bearer", auth: "Basic admin-key", status: http.StatusUnauthorized},
		{name: "admin key", auth: "Bearer admin-key", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, BasePath+"/orphans", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `[]`, rec.Body.String())
			} else {
				assert.NotContains(t, rec.Body.String(), "@")
			}
		})
	}
}

func TestAdminKeyMiddlewareWithoutKeyDeniesAll(t *testing.T) {
	called := false
	h := AdminKeyMiddleware("")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}
