package auth

import (
	"context"
	"fmt"
)

// PermissionChecker answers whether an actor holds a permission on a project.
type PermissionChecker interface {
	Allowed(ctx context.Context, actor *Actor, permission Permission, projectID int64) (bool, error)
}

// RoleLookup returns the role ids a user holds through their membership in a project.
type RoleLookup interface {
	RoleIDsFor(ctx context.Context, projectID, userID int64) ([]int64, error)
}

type RolePermissionChecker struct {
	roles  RoleLookup
	matrix *PermissionMatrix
}

func NewPermissionChecker(roles RoleLookup, matrix *PermissionMatrix) *RolePermissionChecker {
	return &RolePermissionChecker{roles: roles, matrix: matrix}
}

// Allowed is true for administrators, and otherwise when any role the actor holds in
// the project grants the permission.
func (c *RolePermissionChecker) Allowed(ctx context.Context, actor *Actor, permission Permission, projectID int64) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Admin {
		return true, nil
	}
	if projectID == 0 {
		return false, nil
	}

	roleIDs, err := c.roles.RoleIDsFor(ctx, projectID, actor.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load roles for user %d in project %d: %w", actor.ID, projectID, err)
	}

	for _, roleID := range roleIDs {
		ok, err := c.matrix.RoleAllows(roleID, permission)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AnyAllowed reports whether the actor holds at least one of the permissions.
func AnyAllowed(ctx context.Context, checker PermissionChecker, actor *Actor, projectID int64, perms ...Permission) (bool, error) {
	for _, p := range perms {
		ok, err := checker.Allowed(ctx, actor, p, projectID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
