package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
	projectDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/project"
	"github.com/frahmantamala/timetrack/internal/core/events"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *projectDatamodel.Project) error
	GetByID(ctx context.Context, id int64) (*projectDatamodel.Project, error)
	List(ctx context.Context) ([]*projectDatamodel.Project, error)
	Nodes(ctx context.Context) ([]Node, error)
}

// EventPublisher delivers post-commit notifications; the event bus satisfies it.
type EventPublisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	publisher EventPublisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateProjectDTO) (*Project, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	if dto.ParentID != nil {
		if _, err := s.Get(ctx, *dto.ParentID); err != nil {
			return nil, err
		}
	}

	p := NewProject(dto.Identifier, dto.Name, dto.ParentID)
	row := ToDataModel(p)
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, internal.NewConflictError(fmt.Sprintf("project %q already exists", dto.Identifier), internal.ErrCodeProjectExists).WithCause(err)
		}
		s.logger.Error("failed to create project", "identifier", dto.Identifier, "error", err)
		return nil, internal.NewInternalError("failed to create project", err)
	}

	s.logger.Info("project created", "project_id", row.ID, "identifier", row.Identifier, "parent_id", row.ParentID)

	// managers above the new project need ChildLeadership in it
	if s.publisher != nil && row.ParentID != nil {
		if err := s.publisher.PublishSync(ctx, events.NewProjectCreatedEvent(row.ID, row.ParentID)); err != nil {
			s.logger.Error("project creation follow-up failed", "project_id", row.ID, "error", err)
		}
	}
	return FromDataModel(row), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Project, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError(fmt.Sprintf("project %d not found", id), internal.ErrCodeProjectNotFound).WithCause(err)
		}
		return nil, internal.NewInternalError("failed to load project", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list projects", err)
	}
	out := make([]*Project, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

// Tree loads the whole project forest.
func (s *Service) Tree(ctx context.Context) (*Tree, error) {
	nodes, err := s.repo.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load project tree: %w", err)
	}
	return NewTree(nodes), nil
}

// Descendants returns every project below id, breadth-first.
func (s *Service) Descendants(ctx context.Context, id int64) ([]*Project, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load project tree", err)
	}

	ids := tree.Descendants(id)
	out := make([]*Project, 0, len(ids))
	for _, did := range ids {
		p, err := s.Get(ctx, did)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
