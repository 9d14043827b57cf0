// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/auth/memory"
	"github.com/kanri/kanri/internal/httpapi"
	"github.com/kanri/kanri/internal/logging"
	"github.com/kanri/kanri/internal/observability"
	"github.com/kanri/kanri/internal/project"
	projectmemory "github.com/kanri/kanri/internal/project/memory"
	"github.com/kanri/kanri/internal/tokens"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	handler  http.Handler
	users    auth.UserRepository
	store    *memory.UserRepository
	projects *projectmemory.Repository
	issuer   *tokens.Issuer
	metrics  *observability.Metrics
	logs     *bytes.Buffer
	deps     httpapi.Deps
}

// failingWrites rejects every write while reads still succeed.
type failingWrites struct {
	*memory.UserRepository
}

func (failingWrites) Update(context.Context, *auth.User) error {
	return context.DeadlineExceeded
}

func (failingWrites) SetRefreshJTI(context.Context, ulid.ULID, *string, time.Time) error {
	return context.DeadlineExceeded
}

func (failingWrites) SwapRefreshJTI(context.Context, ulid.ULID, string, string, time.Time) (bool, error) {
	return false, context.DeadlineExceeded
}

func newHarness(t *testing.T, mutate ...func(*httpapi.Deps, *harness)) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewUserRepository(),
		projects: projectmemory.NewRepository(),
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
		logs:     &bytes.Buffer{},
	}
	h.users = h.store
	logger := logging.Setup("kanri", "test", "json", slog.LevelDebug, h.logs)

	issuer, err := tokens.NewIssuer(testSecret, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	h.issuer = issuer

	deps := httpapi.Deps{
		Tokens:       issuer,
		Metrics:      h.metrics,
		Logger:       logger,
		CORS:         httpapi.CORSOptions{AllowedOrigins: []string{"https://*.example.com"}},
		CookieSecure: true,
	}
	for _, m := range mutate {
		m(&deps, h)
	}

	deps.Users = h.users
	deps.Auth, err = auth.NewAuthServiceWithLogger(h.users, auth.NewBcryptHasher(4), logger)
	require.NoError(t, err)
	deps.Sessions, err = auth.NewSessionManagerWithGenerator(h.users, auth.NewTokenID, logger)
	require.NoError(t, err)
	deps.Projects, err = project.NewService(h.projects, logger)
	require.NoError(t, err)

	h.deps = deps
	h.handler, err = httpapi.NewHandler(deps)
	require.NoError(t, err)
	return h
}

func (h *harness) seedUser(t *testing.T, email, password string, activated bool) *auth.User {
	t.Helper()
	digest, err := auth.NewBcryptHasher(4).Hash(password)
	require.NoError(t, err)
	user, err := auth.NewUser("Ann", email, digest)
	require.NoError(t, err)
	user.Activated = activated
	require.NoError(t, h.store.Create(context.Background(), user))
	return user
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func loginRequest(email, password string) *http.Request {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth_token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCookie(req *http.Request, c *http.Cookie) *http.Request {
	if c != nil {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

// login performs a successful login and returns the decoded body and the
// refresh cookie.
func (h *harness) login(t *testing.T, email, password string) (map[string]any, *http.Cookie) {
	t.Helper()
	rec := h.do(loginRequest(email, password))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody(t, rec), refreshCookie(t, rec)
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpapi.RefreshCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", httpapi.RefreshCookie)
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func bearerRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func genericUnauthorized(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid email or password"}`, strings.TrimSpace(rec.Body.String()))
}
