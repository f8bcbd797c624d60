package timeentry

import "time"

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Query selects time entries. VisibleToUserID is set by the visibility scope and
// restricts rows to the ones owned by that user.
type Query struct {
	ProjectID       *int64
	UserID          *int64
	VisibleToUserID *int64
	From            *time.Time
	To              *time.Time
	Approved        *bool
	ApprovedFieldID int64
	Limit           int
	Offset          int
}

func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
