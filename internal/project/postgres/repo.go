// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package postgres implements project.Repository on PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/kanri/kanri/internal/project"
	"github.com/kanri/kanri/internal/store"
)

// visibleProjects restricts p to live projects $1 owns or is a live member of.
const visibleProjects = `
	p.deleted_at IS NULL
	AND (
		p.user_id = $1
		OR EXISTS (
			SELECT 1 FROM project_members m
			WHERE m.project_id = p.id AND m.user_id = $1 AND m.deleted_at IS NULL
		)
	)`

// Repository implements project.Repository using PostgreSQL.
type Repository struct {
	pool store.Pool
}

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProjectsForUser returns the live projects visible to userID.
func (r *Repository) ListProjectsForUser(ctx context.Context, userID ulid.ULID) ([]project.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.user_id, p.budget, p.owner, p.status,
		       p.started_at, p.completed_at, p.created_at, p.updated_at
		FROM projects p
		WHERE `+visibleProjects+`
		ORDER BY p.started_at, p.id
	`, userID.String())
	if err != nil {
		return nil, oops.With("operation", "query projects").Wrap(err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate projects").Wrap(err)
	}
	return projects, nil
}

// ListTasksForUser returns the live tasks of projects visible to userID.
func (r *Repository) ListTasksForUser(ctx context.Context, userID ulid.ULID) ([]project.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.user_id, t.project_id, t.in_charge, t.status,
		       t.created_by, t.started_at, t.completed_at, t.created_at, t.updated_at
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.deleted_at IS NULL AND `+visibleProjects+`
		ORDER BY t.started_at, t.id
	`, userID.String())
	if err != nil {
		return nil, oops.With("operation", "query tasks").Wrap(err)
	}
	defer rows.Close()

	var tasks []project.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate tasks").Wrap(err)
	}
	return tasks, nil
}

func scanProject(rows pgx.Rows) (project.Project, error) {
	var (
		p                      project.Project
		idStr, userIDStr       string
		status                 int
		startedAt, completedAt time.Time
		createdAt, updatedAt   time.Time
	)
	if err := rows.Scan(&idStr, &p.Name, &userIDStr, &p.Budget, &p.Owner, &status,
		&startedAt, &completedAt, &createdAt, &updatedAt); err != nil {
		return project.Project{}, oops.With("operation", "scan project").Wrap(err)
	}

	var err error
	if p.ID, err = parseID("project id", idStr); err != nil {
		return project.Project{}, err
	}
	if p.UserID, err = parseID("project user id", userIDStr); err != nil {
		return project.Project{}, err
	}
	p.Status = project.Status(status)
	p.StartedAt, p.CompletedAt = startedAt, completedAt
	p.CreatedAt, p.UpdatedAt = createdAt, updatedAt
	return p, nil
}

func scanTask(rows pgx.Rows) (project.Task, error) {
	var (
		t                              project.Task
		idStr, userIDStr, projectIDStr string
		status                         int
		startedAt, completedAt         time.Time
		createdAt, updatedAt           time.Time
	)
	if err := rows.Scan(&idStr, &t.Name, &userIDStr, &projectIDStr, &t.InCharge, &status,
		&t.CreatedBy, &startedAt, &completedAt, &createdAt, &updatedAt); err != nil {
		return project.Task{}, oops.With("operation", "scan task").Wrap(err)
	}

	var err error
	if t.ID, err = parseID("task id", idStr); err != nil {
		return project.Task{}, err
	}
	if t.UserID, err = parseID("task user id", userIDStr); err != nil {
		return project.Task{}, err
	}
	if t.ProjectID, err = parseID("task project id", projectIDStr); err != nil {
		return project.Task{}, err
	}
	t.Status = project.Status(status)
	t.StartedAt, t.CompletedAt = startedAt, completedAt
	t.CreatedAt, t.UpdatedAt = createdAt, updatedAt
	return t, nil
}

func parseID(field, s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.With("operation", "parse "+field).With("value", s).Wrap(err)
	}
	return id, nil
}

// Compile-time interface check.
var _ project.Repository = (*Repository)(nil)
