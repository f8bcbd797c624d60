package membership

import (
	"errors"
	"sort"

	memberDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/membership"
)

var (
	ErrNotFound     = errors.New("membership not found")
	ErrRoleNotFound = errors.New("role not found")
	ErrUserNotFound = errors.New("user not found")
)

// Member is a (project, user) pair and the roles the user holds in that project.
type Member struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	UserID    int64   `json:"user_id"`
	UserName  string  `json:"user_name,omitempty"`
	RoleIDs   []int64 `json:"role_ids"`
}

func (m *Member) HasRole(roleID int64) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// GrantResult describes the writes performed by an idempotent role grant.
type GrantResult struct {
	MemberID      int64
	MemberCreated bool
	RoleAdded     bool
}

func (g GrantResult) Changed() bool {
	return g.MemberCreated || g.RoleAdded
}

// Writes counts the rows inserted by the grant.
func (g GrantResult) Writes() int {
	n := 0
	if g.MemberCreated {
		n++
	}
	if g.RoleAdded {
		n++
	}
	return n
}

func FromDataModel(row *memberDatamodel.Member) *Member {
	m := &Member{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		UserID:    row.UserID,
		RoleIDs:   make([]int64, 0, len(row.Roles)),
	}
	for _, r := range row.Roles {
		m.RoleIDs = append(m.RoleIDs, r.RoleID)
	}
	sort.Slice(m.RoleIDs, func(i, j int) bool { return m.RoleIDs[i] < m.RoleIDs[j] })
	return m
}
