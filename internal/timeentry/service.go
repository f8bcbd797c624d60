package timeentry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
	"github.com/frahmantamala/timetrack/internal/core/policy"
)

type RepositoryAPI interface {
	Create(ctx context.Context, e *TimeEntry) error
	Update(ctx context.Context, e *TimeEntry) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*TimeEntry, error)
	List(ctx context.Context, q Query) ([]*TimeEntry, int64, error)
}

// ApprovalPolicy decides who may touch the Approved custom field.
type ApprovalPolicy interface {
	AuthorizeTimeEntryWrite(ctx context.Context, actor *auth.Actor, action policy.Action, entry *TimeEntry, changes Changes) (policy.Decision, error)
	ValidateChange(ctx context.Context, actor *auth.Actor, action policy.Action, stored, proposed *TimeEntry) error
}

type PeriodPolicy interface {
	ValidateNotInClosedPeriod(ctx context.Context, entry *TimeEntry) error
}

type VisibilityScope interface {
	ScopeTimeEntries(ctx context.Context, q Query, actor *auth.Actor, projectID *int64) (Query, error)
	CanView(ctx context.Context, actor *auth.Actor, entry *TimeEntry) error
	CanList(ctx context.Context, actor *auth.Actor, projectID *int64) error
}

type Service struct {
	repo            RepositoryAPI
	checker         auth.PermissionChecker
	approval        ApprovalPolicy
	period          PeriodPolicy
	visibility      VisibilityScope
	approvedFieldID int64
	logger          *slog.Logger
	now             func() time.Time
}

func NewService(repo RepositoryAPI, checker auth.PermissionChecker, approval ApprovalPolicy, period PeriodPolicy, visibility VisibilityScope, approvedFieldID int64, logger *slog.Logger) *Service {
	return &Service{
		repo:            repo,
		checker:         checker,
		approval:        approval,
		period:          period,
		visibility:      visibility,
		approvedFieldID: approvedFieldID,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateTimeEntryDTO) (*TimeEntry, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	entry, appErr := dto.ToEntry(actor.ID, s.now())
	if appErr != nil {
		return nil, appErr
	}

	if err := s.requirePermission(ctx, actor, auth.PermLogTime, entry.ProjectID); err != nil {
		return nil, err
	}
	if err := s.approval.ValidateChange(ctx, actor, policy.ActionCreate, nil, entry); err != nil {
		return nil, err
	}
	if err := s.period.ValidateNotInClosedPeriod(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, internal.NewInternalError("failed to create time entry", err)
	}

	s.logger.Info("time entry created",
		"time_entry_id", entry.ID,
		"project_id", entry.ProjectID,
		"user_id", entry.UserID,
		"author_id", entry.AuthorID,
		"hours", entry.Hours)

	return s.load(ctx, entry.ID)
}

func (s *Service) Update(ctx context.Context, actor *auth.Actor, id int64, dto UpdateTimeEntryDTO) (*TimeEntry, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	stored, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	proposed, appErr := dto.Apply(stored)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.approval.ValidateChange(ctx, actor, policy.ActionUpdate, stored, proposed); err != nil {
		return nil, err
	}
	if proposed.ProjectID != stored.ProjectID {
		if err := s.requirePermission(ctx, actor, auth.PermLogTime, proposed.ProjectID); err != nil {
			return nil, err
		}
	}
	// an entry inside the closed period can be neither edited nor moved out of it
	if err := s.period.ValidateNotInClosedPeriod(ctx, stored); err != nil {
		return nil, err
	}
	if err := s.period.ValidateNotInClosedPeriod(ctx, proposed); err != nil {
		return nil, err
	}

	if Diff(stored, proposed).IsEmpty() {
		return stored, nil
	}

	proposed.UpdatedOn = s.now()
	if err := s.repo.Update(ctx, proposed); err != nil {
		return nil, s.mapError(err, id)
	}

	s.logger.Info("time entry updated",
		"time_entry_id", id,
		"actor_id", actor.ID,
		"changed_fields", Diff(stored, proposed).Fields)

	return s.load(ctx, id)
}

func (s *Service) Destroy(ctx context.Context, actor *auth.Actor, id int64) error {
	stored, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.approval.ValidateChange(ctx, actor, policy.ActionDestroy, stored, nil); err != nil {
		return err
	}
	if err := s.period.ValidateNotInClosedPeriod(ctx, stored); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapError(err, id)
	}

	s.logger.Info("time entry destroyed", "time_entry_id", id, "actor_id", actor.ID, "user_id", stored.UserID)
	return nil
}

// Get returns the entry when the actor may see it.
func (s *Service) Get(ctx context.Context, actor *auth.Actor, id int64) (*TimeEntry, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visibility.CanView(ctx, actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Actor, dto ListTimeEntriesDTO) (*TimeEntriesResponse, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	from, appErr := validation.ParseDate("from", dto.From)
	if appErr != nil {
		return nil, appErr
	}
	to, appErr := validation.ParseDate("to", dto.To)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.visibility.CanList(ctx, actor, dto.ProjectID); err != nil {
		return nil, err
	}

	q := Query{
		ProjectID:       dto.ProjectID,
		UserID:          dto.UserID,
		From:            from,
		To:              to,
		Approved:        dto.Approved,
		ApprovedFieldID: s.approvedFieldID,
		Limit:           dto.Limit,
		Offset:          dto.Offset,
	}.Normalize()

	q, err := s.visibility.ScopeTimeEntries(ctx, q, actor, dto.ProjectID)
	if err != nil {
		return nil, internal.NewInternalError("failed to scope time entries", err)
	}

	entries, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, internal.NewInternalError("failed to list time entries", err)
	}
	return &TimeEntriesResponse{
		TimeEntries: entries,
		Total:       total,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}, nil
}

func (s *Service) load(ctx context.Context, id int64) (*TimeEntry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return e, nil
}

func (s *Service) requirePermission(ctx context.Context, actor *auth.Actor, perm auth.Permission, projectID int64) error {
	ok, err := s.checker.Allowed(ctx, actor, perm, projectID)
	if err != nil {
		return internal.NewInternalError("failed to check permissions", err)
	}
	if !ok {
		s.logger.Warn("time entry write denied",
			"actor_id", actor.ID,
			"project_id", projectID,
			"permission", perm,
			"reason", policy.ReasonMissingPermission)
		return policy.Deny(policy.ReasonMissingPermission).Err()
	}
	return nil
}

func (s *Service) mapError(err error, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return internal.NewNotFoundError(fmt.Sprintf("time entry %d not found", id), internal.ErrCodeTimeEntryNotFound).WithCause(err)
	}
	return internal.NewInternalError("time entry lookup failed", err)
}
