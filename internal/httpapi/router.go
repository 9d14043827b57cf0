// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/observability"
	"github.com/kanri/kanri/internal/project"
	"github.com/kanri/kanri/internal/tokens"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Deps are the collaborators of the API handlers. Metrics may be nil.
type Deps struct {
	Auth     *auth.Service
	Sessions *auth.SessionManager
	Users    auth.UserRepository
	Tokens   *tokens.Issuer
	Projects *project.Service
	Metrics  *observability.Metrics
	Logger   *slog.Logger
	CORS     CORSOptions

	// CookieSecure marks the refresh cookie Secure. Disable only for
	// plain-HTTP development.
	CookieSecure bool
}

func (d Deps) validate() error {
	switch {
	case d.Auth == nil:
		return oops.Code("HTTP_CONFIG_INVALID").Errorf("auth service is required")
	case d.Sessions == nil:
		return oops.Code("HTTP_CONFIG_INVALID").Errorf("session manager is required")
	case d.Users == nil:
		return oops.Code("HTTP_CONFIG_INVALID").Errorf("users repository is required")
	case d.Tokens == nil:
		return oops.Code("HTTP_CONFIG_INVALID").Errorf("token issuer is required")
	case d.Projects == nil:
		return oops.Code("HTTP_CONFIG_INVALID").Errorf("project service is required")
	}
	return nil
}

type api struct {
	Deps
}

// NewHandler builds the API handler with all middleware applied.
func NewHandler(deps Deps) (http.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cors, err := newCORSPolicy(deps.CORS)
	if err != nil {
		return nil, err
	}

	a := &api{Deps: deps}
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, instrument(pattern, a.Metrics, a.Logger, h))
	}

	handle("POST /api/v1/auth_token", http.HandlerFunc(a.createToken))
	handle("POST /api/v1/auth_token/refresh", http.HandlerFunc(a.refreshToken))
	handle("DELETE /api/v1/auth_token", http.HandlerFunc(a.destroyToken))
	handle("GET /api/v1/projects", bearer(a.Tokens, a.Logger, http.HandlerFunc(a.listProjects)))
	handle("GET /api/v1/tasks", bearer(a.Tokens, a.Logger, http.HandlerFunc(a.listTasks)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return requestID(cors.middleware(mux)), nil
}
