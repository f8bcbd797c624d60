package events

const EventTypeMembershipChanged = "membership.changed"

type MembershipChange string

const (
	MembershipCreated     MembershipChange = "created"
	MembershipRoleAdded   MembershipChange = "role_added"
	MembershipRoleRemoved MembershipChange = "role_removed"
	MembershipDestroyed   MembershipChange = "destroyed"
)

// MembershipChangedEvent is published after a membership write has been committed.
type MembershipChangedEvent struct {
	BaseEvent
	MemberID  int64            `json:"member_id"`
	ProjectID int64            `json:"project_id"`
	UserID    int64            `json:"user_id"`
	Change    MembershipChange `json:"change"`
	RoleID    int64            `json:"role_id,omitempty"`
}

func NewMembershipChangedEvent(memberID, projectID, userID int64, change MembershipChange, roleID int64) *MembershipChangedEvent {
	return &MembershipChangedEvent{
		BaseEvent: NewBaseEvent(EventTypeMembershipChanged, map[string]interface{}{
			"member_id":  memberID,
			"project_id": projectID,
			"user_id":    userID,
			"change":     string(change),
			"role_id":    roleID,
		}),
		MemberID:  memberID,
		ProjectID: projectID,
		UserID:    userID,
		Change:    change,
		RoleID:    roleID,
	}
}

// Removal reports whether the change can only shrink the manager set of the project.
func (e *MembershipChangedEvent) Removal() bool {
	return e.Change == MembershipDestroyed || e.Change == MembershipRoleRemoved
}
