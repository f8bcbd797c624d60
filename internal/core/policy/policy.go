package policy

import (
	"errors"

	"github.com/frahmantamala/timetrack/internal"
)

type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDestroy Action = "destroy"
)

type ReasonCode string

const (
	ReasonNonAuthorScope      ReasonCode = "insufficient_permissions_for_non_author"
	ReasonAuthorSelfApproval  ReasonCode = "author_cannot_approve_own_entries"
	ReasonApprovalFieldDenied ReasonCode = "insufficient_permissions_for_approval_field"
	ReasonDeleteOthersEntries ReasonCode = "cannot_delete_others_entries"
	ReasonApprovedEntryLocked ReasonCode = "approved_entry_locked"
	ReasonClosedPeriod        ReasonCode = "closed_period"
	ReasonTimeEntryNotVisible ReasonCode = "time_entry_not_visible"
	ReasonMissingPermission   ReasonCode = "missing_permission"
)

var defaultMessages = map[ReasonCode]string{
	ReasonNonAuthorScope:      "You may only change the approval field of another user's time entry",
	ReasonAuthorSelfApproval:  "The author cannot change the approval field of their own time entries",
	ReasonApprovalFieldDenied: "You are not allowed to change the approval field",
	ReasonDeleteOthersEntries: "Only the owner of a time entry may delete it",
	ReasonApprovedEntryLocked: "The entry has already been approved and can no longer be changed or deleted",
	ReasonClosedPeriod:        "The entry date falls within the closed period",
	ReasonTimeEntryNotVisible: "You are not allowed to view this time entry",
	ReasonMissingPermission:   "You do not have the permission required for this action",
}

// ErrPermissionDenied is the cause attached to every policy denial.
var ErrPermissionDenied = errors.New("permission denied")

func Message(reason ReasonCode) string {
	if msg, ok := defaultMessages[reason]; ok {
		return msg
	}
	return string(reason)
}

// Decision is the outcome of an authorization policy.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  ReasonCode `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason ReasonCode) Decision {
	return Decision{Reason: reason, Message: Message(reason)}
}

// Err converts a denial into the AppError returned to callers; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return internal.NewPolicyDeniedError(string(d.Reason), d.Message).WithCause(ErrPermissionDenied)
}

// ReasonOf extracts the reason code from an error produced by a policy.
func ReasonOf(err error) ReasonCode {
	if appErr, ok := internal.IsAppError(err); ok {
		return ReasonCode(appErr.Reason())
	}
	return ""
}
