// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package httpapi

import (
	"net/http"

	"github.com/samber/oops"
)

func (a *api) listProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, a.Logger, oops.Errorf("listing projects without an authenticated user"))
		return
	}
	projects, err := a.Projects.ListProjects(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (a *api) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, a.Logger, oops.Errorf("listing tasks without an authenticated user"))
		return
	}
	tasks, err := a.Projects.ListTasks(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}
