package visibility

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/policy"
	"github.com/frahmantamala/timetrack/internal/metrics"
	"github.com/frahmantamala/timetrack/internal/timeentry"
)

const policyName = "visibility"

// Scope narrows time entry reads to what an actor may see. Holders of
// view_time_entries on a project see every entry there; everyone else sees only
// entries they own.
type Scope struct {
	checker auth.PermissionChecker
	logger  *slog.Logger
}

func NewScope(checker auth.PermissionChecker, logger *slog.Logger) *Scope {
	return &Scope{checker: checker, logger: logger}
}

func (s *Scope) ScopeTimeEntries(ctx context.Context, q timeentry.Query, actor *auth.Actor, projectID *int64) (timeentry.Query, error) {
	if actor.IsAdmin() {
		return q, nil
	}

	if projectID != nil {
		all, err := s.checker.Allowed(ctx, actor, auth.PermViewTimeEntries, *projectID)
		if err != nil {
			return q, err
		}
		if all {
			return q, nil
		}
	}

	own := actor.ID
	q.VisibleToUserID = &own
	return q, nil
}

func (s *Scope) CanView(ctx context.Context, actor *auth.Actor, entry *timeentry.TimeEntry) error {
	if actor.IsAdmin() || entry.IsOwnedBy(actor.ID) {
		return nil
	}

	all, err := s.checker.Allowed(ctx, actor, auth.PermViewTimeEntries, entry.ProjectID)
	if err != nil {
		return internal.NewInternalError("failed to check visibility", err)
	}
	if all {
		return nil
	}

	return s.deny(actor, policy.ReasonTimeEntryNotVisible, entry.ProjectID, entry.ID)
}

// CanList allows the index to actors holding either view permission on the
// project. Cross-project listing is always allowed and scoped to own rows.
func (s *Scope) CanList(ctx context.Context, actor *auth.Actor, projectID *int64) error {
	if actor.IsAdmin() || projectID == nil {
		return nil
	}

	ok, err := auth.AnyAllowed(ctx, s.checker, actor, *projectID, auth.PermViewTimeEntries, auth.PermViewOwnTimeEntries)
	if err != nil {
		return internal.NewInternalError("failed to check visibility", err)
	}
	if ok {
		return nil
	}

	return s.deny(actor, policy.ReasonMissingPermission, *projectID, 0)
}

func (s *Scope) deny(actor *auth.Actor, reason policy.ReasonCode, projectID, entryID int64) error {
	metrics.RecordDecision(policyName, false, string(reason))
	s.logger.Warn("time entry read denied",
		"actor_id", actor.ID,
		"project_id", projectID,
		"time_entry_id", entryID,
		"reason", reason)
	return policy.Deny(reason).Err()
}
