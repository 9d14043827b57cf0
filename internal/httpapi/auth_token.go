// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/observability"
	"github.com/kanri/kanri/internal/tokens"
	"github.com/kanri/kanri/pkg/errutil"
)

// RefreshCookie is the name of the cookie carrying the refresh token.
const RefreshCookie = "refresh_token"

const refreshCookiePath = "/api/v1/auth_token"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) createToken(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	user, err := a.Auth.Authenticate(r.Context(), req.Email, req.Password)
	a.Metrics.RecordLogin(err == nil)
	if err != nil {
		writeError(w, r, a.Logger, err)
		return
	}

	jti, err := a.Sessions.Issue(r.Context(), user)
	if err != nil {
		writeError(w, r, a.Logger, err)
		return
	}
	a.Metrics.RecordSession(observability.SessionIssued)
	a.respondWithTokens(w, r, user, jti)
}

// refreshToken rotates the session named by the refresh cookie. Every way
// the cookie can be wrong yields the same 401 as a failed login.
func (a *api) refreshToken(w http.ResponseWriter, r *http.Request) {
	user, claimsJTI, err := a.sessionFromCookie(r)
	if err != nil {
		a.rejectSession(w, r, err)
		return
	}

	jti, err := a.Sessions.Rotate(r.Context(), user, claimsJTI)
	if err != nil {
		a.rejectSession(w, r, err)
		return
	}
	a.Metrics.RecordSession(observability.SessionRotated)
	a.respondWithTokens(w, r, user, jti)
}

// destroyToken revokes the session named by the refresh cookie and clears
// the cookie. It answers 204 whether or not there was a session.
func (a *api) destroyToken(w http.ResponseWriter, r *http.Request) {
	user, _, err := a.sessionFromCookie(r)
	switch {
	case err == nil:
		if err := a.Sessions.Revoke(r.Context(), user); err != nil {
			writeError(w, r, a.Logger, err)
			return
		}
		a.Metrics.RecordSession(observability.SessionRevoked)
	case !isClientError(err):
		writeError(w, r, a.Logger, err)
		return
	}

	http.SetCookie(w, a.refreshCookie("", time.Unix(0, 0), -1))
	w.WriteHeader(http.StatusNoContent)
}

// sessionFromCookie decodes the refresh cookie and loads its user. Every
// failure caused by the client is a session or token error.
func (a *api) sessionFromCookie(r *http.Request) (*auth.User, string, error) {
	cookie, err := r.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		return nil, "", sessionInvalid("missing refresh cookie", err)
	}
	claims, err := a.Tokens.ParseRefresh(cookie.Value)
	if err != nil {
		return nil, "", sessionInvalid("bad refresh token", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, "", sessionInvalid("bad refresh token subject", err)
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, "", sessionInvalid("user not found", err)
	}
	if err != nil {
		return nil, "", oops.Code(auth.CodePersistenceFailed).
			With("operation", "load session user").
			Wrap(err)
	}
	if !user.Activated {
		return nil, "", sessionInvalid("user not activated", nil)
	}
	return user, claims.ID, nil
}

func sessionInvalid(reason string, cause error) error {
	b := oops.Code(auth.CodeSessionInvalid).With("reason", reason)
	if cause != nil {
		return b.Wrap(cause)
	}
	return b.Errorf("invalid session")
}

// isClientError reports whether err came from a bad or stale cookie rather
// than a server fault. A wrapped token error keeps its own code.
func isClientError(err error) bool {
	switch errutil.Code(err) {
	case auth.CodeSessionInvalid, tokens.CodeTokenInvalid:
		return true
	}
	return false
}

func (a *api) rejectSession(w http.ResponseWriter, r *http.Request, err error) {
	if isClientError(err) {
		a.Metrics.RecordSession(observability.SessionRejected)
	}
	writeError(w, r, a.Logger, err)
}

// respondWithTokens signs both tokens for jti, sets the refresh cookie and
// writes the serialized user.
func (a *api) respondWithTokens(w http.ResponseWriter, r *http.Request, user *auth.User, jti string) {
	access, accessExp, err := a.Tokens.IssueAccess(user.ID)
	if err != nil {
		writeError(w, r, a.Logger, err)
		return
	}
	refresh, refreshExp, err := a.Tokens.IssueRefresh(user.ID, jti)
	if err != nil {
		writeError(w, r, a.Logger, err)
		return
	}

	http.SetCookie(w, a.refreshCookie(refresh, refreshExp, int(time.Until(refreshExp).Seconds())))
	writeJSON(w, http.StatusOK, auth.Serialize(user, map[string]any{
		"access_token":             access,
		"access_token_expires_at":  accessExp.UTC(),
		"refresh_token_expires_at": refreshExp.UTC(),
	}))
}

func (a *api) refreshCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
