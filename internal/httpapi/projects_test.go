// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package httpapi_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanri/kanri/internal/project"
)

func TestListProjectsAndTasks(t *testing.T) {
	h := newHarness(t)
	ann := h.seedUser(t, "ann@example.com", "secret12", true)
	other := ulid.Make()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	gone := start

	own := project.Project{ID: ulid.Make(), Name: "Own", UserID: ann.ID, StartedAt: start}
	shared := project.Project{ID: ulid.Make(), Name: "Shared", UserID: other, StartedAt: start.Add(time.Hour)}
	private := project.Project{ID: ulid.Make(), Name: "Private", UserID: other, StartedAt: start}
	deleted := project.Project{ID: ulid.Make(), Name: "Deleted", UserID: ann.ID, StartedAt: start, DeletedAt: &gone}
	for _, p := range []project.Project{own, shared, private, deleted} {
		h.projects.AddProject(p)
	}
	h.projects.AddMember(project.Member{ProjectID: shared.ID, UserID: ann.ID})
	h.projects.AddTask(project.Task{ID: ulid.Make(), Name: "Visible", ProjectID: own.ID, UserID: ann.ID, StartedAt: start})
	h.projects.AddTask(project.Task{ID: ulid.Make(), Name: "Hidden", ProjectID: private.ID, UserID: other, StartedAt: start})

	body, _ := h.login(t, "ann@example.com", "secret12")
	access := body["access_token"].(string)

	t.Run("projects", func(t *testing.T) {
		rec := h.do(bearerRequest(http.MethodGet, "/api/v1/projects", access))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got []project.Project
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Own", got[0].Name)
		assert.Equal(t, "Shared", got[1].Name)
	})

	t.Run("tasks", func(t *testing.T) {
		rec := h.do(bearerRequest(http.MethodGet, "/api/v1/tasks", access))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got []project.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "Visible", got[0].Name)
	})

	t.Run("empty listing is an empty array", func(t *testing.T) {
		h.seedUser(t, "bob@example.com", "secret12", true)
		bobBody, _ := h.login(t, "bob@example.com", "secret12")

		rec := h.do(bearerRequest(http.MethodGet, "/api/v1/projects", bobBody["access_token"].(string)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestBearerAuthentication(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "ann@example.com", "secret12", true)
	_, cookie := h.login(t, "ann@example.com", "secret12")

	tests := map[string]string{
		"missing":           "",
		"garbage":           "not.a.jwt",
		"refresh as access": cookie.Value,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/api/v1/projects", "/api/v1/tasks"} {
				rec := h.do(bearerRequest(http.MethodGet, path, token))
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}

	t.Run("wrong scheme", func(t *testing.T) {
		req := bearerRequest(http.MethodGet, "/api/v1/projects", "")
		req.Header.Set("Authorization", "Basic YW5uOnNlY3JldA==")
		assert.Equal(t, http.StatusUnauthorized, h.do(req).Code)
	})
}
