package hierarchy

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/frahmantamala/timetrack/internal/membership"
	"github.com/frahmantamala/timetrack/internal/project"
)

var (
	ErrRoleNotFound    = errors.New("role reference row missing")
	ErrProjectNotFound = errors.New("project missing")
)

type MembershipStore interface {
	GetByID(ctx context.Context, id int64) (*membership.Member, error)
	Grant(ctx context.Context, projectID, userID, roleID int64) (membership.GrantResult, error)
	ListByRole(ctx context.Context, roleID int64) ([]*membership.Member, error)
	RoleExists(ctx context.Context, roleID int64) (bool, error)
}

type ProjectStore interface {
	Tree(ctx context.Context) (*project.Tree, error)
}

// DescriptionStore recomputes the cached manager-name projection of a project and
// persists it only when it differs.
type DescriptionStore interface {
	RecomputeDescription(ctx context.Context, projectID int64) (string, bool, error)
}

// SyncResult reports what one synchronization pass changed.
type SyncResult struct {
	MemberID            int64    `json:"member_id"`
	ParentGranted       bool     `json:"parent_granted"`
	DescendantsGranted  []int64  `json:"descendants_granted"`
	DescriptionsUpdated []int64  `json:"descriptions_updated"`
	Skipped             []string `json:"skipped,omitempty"`
	Writes              int      `json:"writes"`
}

// BuildDescription renders manager display names as the project description:
// blanks dropped, duplicates removed, sorted, joined with ", ".
func BuildDescription(names []string) string {
	seen := make(map[string]struct{}, len(names))
	uniq := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ", ")
}
