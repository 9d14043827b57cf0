// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package project

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CodeListFailed marks a storage failure while listing.
const CodeListFailed = "PERSISTENCE_FAILED"

// Service answers the project and task listings.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a Service. A nil logger means slog.Default().
func NewService(repo Repository, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("PROJECT_SERVICE_INVALID").Errorf("project repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}, nil
}

// ListProjects returns the projects visible to userID. The result is never nil.
func (s *Service) ListProjects(ctx context.Context, userID ulid.ULID) ([]Project, error) {
	projects, err := s.repo.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, oops.Code(CodeListFailed).
			With("operation", "list projects").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if projects == nil {
		projects = []Project{}
	}
	s.logger.DebugContext(ctx, "projects listed", "user_id", userID.String(), "count", len(projects))
	return projects, nil
}

// ListTasks returns the tasks visible to userID. The result is never nil.
func (s *Service) ListTasks(ctx context.Context, userID ulid.ULID) ([]Task, error) {
	tasks, err := s.repo.ListTasksForUser(ctx, userID)
	if err != nil {
		return nil, oops.Code(CodeListFailed).
			With("operation", "list tasks").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	s.logger.DebugContext(ctx, "tasks listed", "user_id", userID.String(), "count", len(tasks))
	return tasks, nil
}
