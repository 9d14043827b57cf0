// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package memory provides an in-process project.Repository.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/kanri/kanri/internal/project"
)

// Repository implements project.Repository in memory.
type Repository struct {
	mu       sync.RWMutex
	projects map[ulid.ULID]project.Project
	tasks    map[ulid.ULID]project.Task
	members  []project.Member
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		projects: make(map[ulid.ULID]project.Project),
		tasks:    make(map[ulid.ULID]project.Task),
	}
}

// AddProject stores p.
func (r *Repository) AddProject(p project.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
}

// AddTask stores t.
func (r *Repository) AddTask(t project.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
}

// AddMember stores m.
func (r *Repository) AddMember(m project.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, m)
}

// ListProjectsForUser returns the live projects visible to userID.
func (r *Repository) ListProjectsForUser(_ context.Context, userID ulid.ULID) ([]project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []project.Project
	for _, p := range r.projects {
		if r.visible(p, userID) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b project.Project) int {
		return cmp.Or(a.StartedAt.Compare(b.StartedAt), a.ID.Compare(b.ID))
	})
	return out, nil
}

// ListTasksForUser returns the live tasks of projects visible to userID.
func (r *Repository) ListTasksForUser(_ context.Context, userID ulid.ULID) ([]project.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []project.Task
	for _, t := range r.tasks {
		if t.DeletedAt != nil {
			continue
		}
		p, ok := r.projects[t.ProjectID]
		if ok && r.visible(p, userID) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b project.Task) int {
		return cmp.Or(a.StartedAt.Compare(b.StartedAt), a.ID.Compare(b.ID))
	})
	return out, nil
}

// visible reports whether userID may see p. Callers must hold r.mu.
func (r *Repository) visible(p project.Project, userID ulid.ULID) bool {
	if p.DeletedAt != nil {
		return false
	}
	if p.UserID == userID {
		return true
	}
	for _, m := range r.members {
		if m.ProjectID == p.ID && m.UserID == userID && m.DeletedAt == nil {
			return true
		}
	}
	return false
}

// Compile-time interface check.
var _ project.Repository = (*Repository)(nil)
