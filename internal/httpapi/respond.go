// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/tokens"
	"github.com/kanri/kanri/pkg/errutil"
)

// Client-facing error messages.
const (
	msgInvalidCredentials = "invalid email or password"
	msgUnauthorized       = "unauthorized"
	msgEmailTaken         = "email has already been taken"
	msgBadRequest         = "invalid request body"
	msgInternal           = "internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

type validationBody struct {
	Errors []auth.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps a coded error to its HTTP response. Anything without a
// client-facing mapping is logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch errutil.Code(err) {
	case auth.CodeValidationFailed:
		if verr, ok := auth.AsValidationError(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, validationBody{Errors: verr.Fields})
			return
		}
	case auth.CodeInvalidCredentials, auth.CodeSessionInvalid, tokens.CodeTokenInvalid:
		logger.InfoContext(r.Context(), "request rejected", "code", errutil.Code(err))
		writeMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	case auth.CodeEmailTaken:
		writeMessage(w, http.StatusConflict, msgEmailTaken)
		return
	}

	errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}
