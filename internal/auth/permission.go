package auth

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	PermLogTime            Permission = "log_time"
	PermViewTimeEntries    Permission = "view_time_entries"
	PermViewOwnTimeEntries Permission = "view_own_time_entries"
	PermApproveTimeEntries Permission = "approve_time_entries"
)

// Role ids are fixed reference rows seeded by the initial migration.
const (
	RoleEmployee        int64 = 3
	RoleManager         int64 = 4
	RoleChildLeadership int64 = 5
)

var roleNames = map[int64]string{
	RoleEmployee:        "employee",
	RoleManager:         "manager",
	RoleChildLeadership: "child_leadership",
}

func RoleName(roleID int64) string {
	if name, ok := roleNames[roleID]; ok {
		return name
	}
	return strconv.FormatInt(roleID, 10)
}

func RoleIDByName(name string) (int64, bool) {
	for id, n := range roleNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

func KnownPermission(p Permission) bool {
	switch p {
	case PermLogTime, PermViewTimeEntries, PermViewOwnTimeEntries, PermApproveTimeEntries:
		return true
	}
	return false
}

const matrixModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

// DefaultGrants is the role → permission matrix used when no override is configured.
func DefaultGrants() map[int64][]Permission {
	return map[int64][]Permission{
		RoleEmployee:        {PermLogTime, PermViewOwnTimeEntries},
		RoleManager:         {PermLogTime, PermViewTimeEntries, PermApproveTimeEntries},
		RoleChildLeadership: {PermViewTimeEntries, PermApproveTimeEntries},
	}
}

// GrantsFromConfig overlays the configured permissions (keyed by role name) on the defaults.
func GrantsFromConfig(overrides map[string][]string) (map[int64][]Permission, error) {
	grants := DefaultGrants()
	for roleName, perms := range overrides {
		roleID, ok := RoleIDByName(roleName)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", roleName)
		}
		list := make([]Permission, 0, len(perms))
		for _, p := range perms {
			perm := Permission(p)
			if !KnownPermission(perm) {
				return nil, fmt.Errorf("role %s: unknown permission %q", roleName, p)
			}
			list = append(list, perm)
		}
		grants[roleID] = list
	}
	return grants, nil
}

// PermissionMatrix answers "does role R grant permission P" through a casbin enforcer.
type PermissionMatrix struct {
	enforcer *casbin.Enforcer
	grants   map[int64][]Permission
	mu       sync.RWMutex
}

func NewPermissionMatrix(grants map[int64][]Permission) (*PermissionMatrix, error) {
	m, err := model.NewModelFromString(matrixModel)
	if err != nil {
		return nil, fmt.Errorf("permission matrix: invalid model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("permission matrix: failed to initialize enforcer: %w", err)
	}

	copied := make(map[int64][]Permission, len(grants))
	for roleID, perms := range grants {
		for _, p := range perms {
			if _, err := enf.AddPolicy(roleSubject(roleID), string(p)); err != nil {
				return nil, fmt.Errorf("permission matrix: add policy %s/%s: %w", RoleName(roleID), p, err)
			}
		}
		copied[roleID] = append([]Permission(nil), perms...)
	}

	return &PermissionMatrix{enforcer: enf, grants: copied}, nil
}

func (m *PermissionMatrix) RoleAllows(roleID int64, perm Permission) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ok, err := m.enforcer.Enforce(roleSubject(roleID), string(perm))
	if err != nil {
		return false, fmt.Errorf("permission matrix: enforce failed: %w", err)
	}
	return ok, nil
}

// Permissions lists what the role grants, sorted.
func (m *PermissionMatrix) Permissions(roleID int64) []Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]Permission(nil), m.grants[roleID]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func roleSubject(roleID int64) string {
	return "role:" + strconv.FormatInt(roleID, 10)
}
