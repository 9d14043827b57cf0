// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package project lists the projects and tasks visible to a user.
//
// A user sees a project when they own it or hold a live membership in it.
// Soft-deleted projects, tasks and memberships are never visible.
package project

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the progress of a project or task.
type Status int

// Status values as stored in the database.
const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusCompleted
)

// String returns the status name used in logs.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Project is a budgeted unit of work owned by a user.
type Project struct {
	ID          ulid.ULID  `json:"id"`
	Name        string     `json:"name"`
	UserID      ulid.ULID  `json:"user_id"`
	Budget      int        `json:"budget"`
	Owner       string     `json:"owner"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Task belongs to a project.
type Task struct {
	ID          ulid.ULID  `json:"id"`
	Name        string     `json:"name"`
	UserID      ulid.ULID  `json:"user_id"`
	ProjectID   ulid.ULID  `json:"project_id"`
	InCharge    string     `json:"in_charge"`
	Status      Status     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Member grants a user access to a project they do not own.
type Member struct {
	ProjectID ulid.ULID
	UserID    ulid.ULID
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository reads projects and tasks.
type Repository interface {
	// ListProjectsForUser returns the live projects userID owns or is a
	// live member of, ordered by start time.
	ListProjectsForUser(ctx context.Context, userID ulid.ULID) ([]Project, error)

	// ListTasksForUser returns the live tasks of the projects
	// ListProjectsForUser would return, ordered by start time.
	ListTasksForUser(ctx context.Context, userID ulid.ULID) ([]Task, error)
}
