package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/qr"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkora/pkg/config"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"golang.org/x/crypto/bcrypt"
)

const testOrigin = "https://linkora.test"

type testEnv struct {
	handler    http.Handler
	workspaces *services.Workspaces
	auth       *services.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := sqlite.NewSQLiteRepository("file:" + filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		AppEnv:      "local",
		BaseURL:     testOrigin,
		JWTSecret:   "test-secret",
		FrontendURL: testOrigin + "/",
		CORSOrigins: []string{testOrigin},
	}
	logger := observability.NewNop()
	workspaces := services.NewWorkspaces(repo, "", logger, services.WithOrigin(testOrigin))
	auth := services.NewAuthService(repo, services.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		BcryptCost: bcrypt.MinCost,
	}, logger)
	auth.OnSessionChange(workspaces.HandleSessionChange)

	return &testEnv{
		handler:    NewRouter(cfg, workspaces, auth, qr.NewRenderer(), logger),
		workspaces: workspaces,
		auth:       auth,
	}
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers an account and returns its session token
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	t.Fatal("signup did not set a session cookie")
	return ""
}

func (e *testEnv) upgrade(t *testing.T, email string, tier domain.Tier) {
	t.Helper()
	_, err := e.auth.SetSubscription(context.Background(), email, tier, domain.StatusActive)
	require.NoError(t, err)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(observability.RequestIDHeader))
}

func TestCatalogs(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/themes", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	themes := decode[[]domain.ThemePreset](t, rr)
	assert.Len(t, themes, len(domain.ThemePresets()))

	rr = env.do(t, http.MethodGet, "/api/v1/plans", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	plans := decode[[]domain.SubscriptionPlan](t, rr)
	require.Len(t, plans, 3)
	assert.Equal(t, domain.TierFree, plans[0].ID)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodOptions, "/api/v1/state", nil,
		withHeader("Origin", testOrigin),
		withHeader("Access-Control-Request-Method", http.MethodPatch),
	)
	assert.Equal(t, testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	rr = env.do(t, http.MethodOptions, "/api/v1/state", nil,
		withHeader("Origin", "https://evil.test"),
		withHeader("Access-Control-Request-Method", http.MethodPatch),
	)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
