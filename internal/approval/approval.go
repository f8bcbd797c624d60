package approval

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/policy"
	"github.com/frahmantamala/timetrack/internal/metrics"
	"github.com/frahmantamala/timetrack/internal/timeentry"
)

const policyName = "approval"

type Options struct {
	ApprovedFieldID int64
	// LockApprovedEntries stops owners from editing or deleting approved entries.
	LockApprovedEntries bool
}

// Policy guards the Approved custom field of time entries. The same decision
// function backs the handler guard and the service-level validation.
type Policy struct {
	checker auth.PermissionChecker
	opts    Options
	logger  *slog.Logger
}

func NewPolicy(checker auth.PermissionChecker, opts Options, logger *slog.Logger) *Policy {
	if opts.ApprovedFieldID <= 0 {
		opts.ApprovedFieldID = internal.DefaultApprovedCustomFieldID
	}
	return &Policy{
		checker: checker,
		opts:    opts,
		logger:  logger,
	}
}

// AuthorizeTimeEntryWrite decides whether actor may perform action on entry. For
// updates and destroys entry is the stored state; for creates it is the entry
// about to be inserted. changes lists what the write modifies.
func (p *Policy) AuthorizeTimeEntryWrite(ctx context.Context, actor *auth.Actor, action policy.Action, entry *timeentry.TimeEntry, changes timeentry.Changes) (policy.Decision, error) {
	if actor.IsAdmin() {
		return policy.Allow(), nil
	}

	canApprove, err := p.checker.Allowed(ctx, actor, auth.PermApproveTimeEntries, entry.ProjectID)
	if err != nil {
		return policy.Decision{}, internal.NewInternalError("failed to check approval permission", err)
	}

	d := p.decide(actor, action, entry, changes, canApprove)
	if !d.Allowed {
		p.logger.Warn("time entry write denied",
			"actor_id", actor.ID,
			"actor_login", actor.Login,
			"time_entry_id", entry.ID,
			"owner_id", entry.UserID,
			"project_id", entry.ProjectID,
			"action", action,
			"reason", d.Reason)
	}
	metrics.RecordDecision(policyName, d.Allowed, string(d.Reason))
	return d, nil
}

// ValidateChange derives the changes from two entity states and applies the same
// rules as AuthorizeTimeEntryWrite. stored is nil on create, proposed is nil on
// destroy.
func (p *Policy) ValidateChange(ctx context.Context, actor *auth.Actor, action policy.Action, stored, proposed *timeentry.TimeEntry) error {
	entry := stored
	if entry == nil {
		entry = proposed
	}
	var changes timeentry.Changes
	if action != policy.ActionDestroy {
		changes = timeentry.Diff(stored, proposed)
	}

	d, err := p.AuthorizeTimeEntryWrite(ctx, actor, action, entry, changes)
	if err != nil {
		return err
	}
	return d.Err()
}

func (p *Policy) decide(actor *auth.Actor, action policy.Action, entry *timeentry.TimeEntry, changes timeentry.Changes, canApprove bool) policy.Decision {
	owner := entry.IsOwnedBy(actor.ID)

	switch action {
	case policy.ActionCreate:
		if owner {
			return policy.Allow()
		}
		if IsTruthy(entry.CustomValue(p.opts.ApprovedFieldID)) && !canApprove {
			return policy.Deny(policy.ReasonApprovalFieldDenied)
		}
		return policy.Allow()

	case policy.ActionDestroy:
		if !owner {
			return policy.Deny(policy.ReasonDeleteOthersEntries)
		}
		if p.locked(entry) {
			return policy.Deny(policy.ReasonApprovedEntryLocked)
		}
		return policy.Allow()
	}

	approvedChanged := p.approvedChanged(changes)
	otherChanged := p.otherChanged(changes)

	switch {
	case !owner && canApprove && approvedChanged && !otherChanged:
		return policy.Allow()
	case !owner && canApprove && otherChanged:
		return policy.Deny(policy.ReasonNonAuthorScope)
	case owner && approvedChanged:
		return policy.Deny(policy.ReasonAuthorSelfApproval)
	case !canApprove && approvedChanged:
		return policy.Deny(policy.ReasonApprovalFieldDenied)
	case owner && p.locked(entry) && !changes.IsEmpty():
		return policy.Deny(policy.ReasonApprovedEntryLocked)
	}
	return policy.Allow()
}

func (p *Policy) locked(entry *timeentry.TimeEntry) bool {
	return p.opts.LockApprovedEntries && IsTruthy(entry.CustomValue(p.opts.ApprovedFieldID))
}

// approvedChanged compares truthiness, so "1" -> "yes" is not a change.
func (p *Policy) approvedChanged(changes timeentry.Changes) bool {
	ch, ok := changes.CustomValues[p.opts.ApprovedFieldID]
	return ok && IsTruthy(ch.From) != IsTruthy(ch.To)
}

func (p *Policy) otherChanged(changes timeentry.Changes) bool {
	if len(changes.Fields) > 0 {
		return true
	}
	for id := range changes.CustomValues {
		if id != p.opts.ApprovedFieldID {
			return true
		}
	}
	return false
}

// IsTruthy reports whether an Approved value means approved.
func IsTruthy(value string) bool {
	return timeentry.IsTruthy(value)
}
