package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
	"github.com/frahmantamala/timetrack/internal/core/events"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*Member, error)
	ListByProject(ctx context.Context, projectID int64) ([]*Member, error)
	FindOrCreate(ctx context.Context, projectID, userID int64) (*Member, bool, error)
	AddRole(ctx context.Context, memberID, roleID int64) (bool, error)
	RemoveRole(ctx context.Context, memberID, roleID int64) (bool, error)
	Delete(ctx context.Context, memberID int64) error
	RoleExists(ctx context.Context, roleID int64) (bool, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	ProjectExists(ctx context.Context, projectID int64) (bool, error)
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

func (s *Service) Get(ctx context.Context, id int64) (*Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return m, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]*Member, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list memberships", err)
	}
	return members, nil
}

// Upsert finds or creates the membership of a user in a project and adds the
// requested roles. Roles already held are left untouched.
func (s *Service) Upsert(ctx context.Context, actor *auth.Actor, projectID int64, dto UpsertMembershipDTO) (*Member, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, dto.UserID); err != nil {
		return nil, err
	}
	for _, roleID := range dto.RoleIDs {
		if err := s.requireRole(ctx, roleID); err != nil {
			return nil, err
		}
	}

	m, created, err := s.repo.FindOrCreate(ctx, projectID, dto.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to save membership", err)
	}

	var added []int64
	for _, roleID := range dto.RoleIDs {
		ok, err := s.repo.AddRole(ctx, m.ID, roleID)
		if err != nil {
			return nil, internal.NewInternalError("failed to add role", err)
		}
		if ok {
			added = append(added, roleID)
		}
	}

	s.logger.Info("membership saved",
		"member_id", m.ID,
		"project_id", projectID,
		"user_id", dto.UserID,
		"created", created,
		"roles_added", added)

	switch {
	case created:
		s.publish(ctx, m, events.MembershipCreated, 0)
	case len(added) > 0:
		s.publish(ctx, m, events.MembershipRoleAdded, added[0])
	}

	return s.Get(ctx, m.ID)
}

func (s *Service) AddRole(ctx context.Context, actor *auth.Actor, memberID, roleID int64) (*Member, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}
	m, err := s.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, roleID); err != nil {
		return nil, err
	}

	added, err := s.repo.AddRole(ctx, memberID, roleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to add role", err)
	}
	if added {
		s.logger.Info("role added to membership", "member_id", memberID, "role_id", roleID)
		s.publish(ctx, m, events.MembershipRoleAdded, roleID)
	}

	return s.Get(ctx, memberID)
}

func (s *Service) RemoveRole(ctx context.Context, actor *auth.Actor, memberID, roleID int64) (*Member, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}
	m, err := s.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.RemoveRole(ctx, memberID, roleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to remove role", err)
	}
	if removed {
		s.logger.Info("role removed from membership", "member_id", memberID, "role_id", roleID)
		s.publish(ctx, m, events.MembershipRoleRemoved, roleID)
	}

	return s.Get(ctx, memberID)
}

func (s *Service) Destroy(ctx context.Context, actor *auth.Actor, memberID int64) error {
	if !actor.IsAdmin() {
		return internal.ErrAdminRequired
	}
	m, err := s.Get(ctx, memberID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, memberID); err != nil {
		return s.mapError(err, memberID)
	}

	s.logger.Info("membership destroyed", "member_id", memberID, "project_id", m.ProjectID, "user_id", m.UserID)
	s.publish(ctx, m, events.MembershipDestroyed, 0)
	return nil
}

// publish runs after the write has been committed. Subscriber failures never undo it.
func (s *Service) publish(ctx context.Context, m *Member, change events.MembershipChange, roleID int64) {
	if s.publisher == nil {
		return
	}
	event := events.NewMembershipChangedEvent(m.ID, m.ProjectID, m.UserID, change, roleID)
	if err := s.publisher.PublishSync(ctx, event); err != nil {
		s.logger.Error("membership change follow-up failed",
			"member_id", m.ID,
			"change", change,
			"error", err)
	}
}

func (s *Service) requireProject(ctx context.Context, projectID int64) error {
	ok, err := s.repo.ProjectExists(ctx, projectID)
	if err != nil {
		return internal.NewInternalError("failed to load project", err)
	}
	if !ok {
		return internal.NewNotFoundError(fmt.Sprintf("project %d not found", projectID), internal.ErrCodeProjectNotFound)
	}
	return nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return internal.NewInternalError("failed to load user", err)
	}
	if !ok {
		return internal.NewNotFoundError(fmt.Sprintf("user %d not found", userID), internal.ErrCodeUserNotFound).WithCause(ErrUserNotFound)
	}
	return nil
}

func (s *Service) requireRole(ctx context.Context, roleID int64) error {
	ok, err := s.repo.RoleExists(ctx, roleID)
	if err != nil {
		return internal.NewInternalError("failed to load role", err)
	}
	if !ok {
		return internal.NewNotFoundError(fmt.Sprintf("role %d not found", roleID), internal.ErrCodeRoleNotFound).WithCause(ErrRoleNotFound)
	}
	return nil
}

func (s *Service) mapError(err error, memberID int64) error {
	if errors.Is(err, ErrNotFound) {
		return internal.NewNotFoundError(fmt.Sprintf("membership %d not found", memberID), internal.ErrCodeMembershipNotFound).WithCause(err)
	}
	return internal.NewInternalError("membership lookup failed", err)
}
