package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/membership"
	"github.com/frahmantamala/timetrack/internal/metrics"
	"github.com/frahmantamala/timetrack/internal/project"
)

type Options struct {
	// SkipRootParent leaves root projects out of Employee propagation.
	SkipRootParent bool
}

// Synchronizer keeps the derived Employee and ChildLeadership memberships of
// managers consistent with the project tree.
type Synchronizer struct {
	members      MembershipStore
	projects     ProjectStore
	descriptions DescriptionStore
	locks        *keyedMutex
	opts         Options
	logger       *slog.Logger
}

func NewSynchronizer(members MembershipStore, projects ProjectStore, descriptions DescriptionStore, opts Options, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		members:      members,
		projects:     projects,
		descriptions: descriptions,
		locks:        newKeyedMutex(),
		opts:         opts,
		logger:       logger,
	}
}

// SyncHierarchyForManager grants Employee in the parent project and ChildLeadership
// in every descendant project to a member holding Manager. Nothing is ever
// retracted. Branches whose project or role reference row is missing are skipped;
// other branch failures are collected into the returned error after every branch
// has been attempted.
func (s *Synchronizer) SyncHierarchyForManager(ctx context.Context, member *membership.Member) (*SyncResult, error) {
	result := &SyncResult{
		MemberID:            member.ID,
		DescendantsGranted:  []int64{},
		DescriptionsUpdated: []int64{},
	}
	if !member.HasRole(auth.RoleManager) {
		return result, nil
	}

	tree, err := s.projects.Tree(ctx)
	if err != nil {
		metrics.RecordSync("load_tree", "error")
		return result, fmt.Errorf("load project tree: %w", err)
	}

	if !tree.Contains(member.ProjectID) {
		s.skip(ctx, result, "sync", fmt.Errorf("%w: project %d", ErrProjectNotFound, member.ProjectID))
		return result, nil
	}

	roles := map[int64]bool{}
	var errs []error

	if parentID, ok := tree.Parent(member.ProjectID); ok {
		switch {
		case s.opts.SkipRootParent && tree.IsRoot(parentID):
			result.Skipped = append(result.Skipped, fmt.Sprintf("parent %d is a root project", parentID))
			metrics.RecordSync("grant_parent", "skipped")
		default:
			granted, err := s.grant(ctx, result, roles, parentID, member.UserID, auth.RoleEmployee, "grant_parent")
			if err != nil {
				errs = append(errs, err)
			}
			result.ParentGranted = granted
		}
	}

	for _, descendantID := range tree.Descendants(member.ProjectID) {
		granted, err := s.grant(ctx, result, roles, descendantID, member.UserID, auth.RoleChildLeadership, "grant_descendant")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if granted {
			result.DescendantsGranted = append(result.DescendantsGranted, descendantID)
		}
	}

	s.logger.Info("hierarchy synchronized",
		"member_id", member.ID,
		"project_id", member.ProjectID,
		"user_id", member.UserID,
		"parent_granted", result.ParentGranted,
		"descendants_granted", len(result.DescendantsGranted),
		"skipped", len(result.Skipped),
		"writes", result.Writes)

	return result, errors.Join(errs...)
}

// SyncNewProject extends the ChildLeadership of every manager above a freshly
// created project into it. Results are returned per synchronized manager.
func (s *Synchronizer) SyncNewProject(ctx context.Context, projectID int64) ([]*SyncResult, error) {
	tree, err := s.projects.Tree(ctx)
	if err != nil {
		metrics.RecordSync("load_tree", "error")
		return nil, fmt.Errorf("load project tree: %w", err)
	}
	ancestors := make(map[int64]bool)
	for _, id := range tree.Ancestors(projectID) {
		ancestors[id] = true
	}
	if len(ancestors) == 0 {
		return nil, nil
	}

	managers, err := s.members.ListByRole(ctx, auth.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}

	var (
		results []*SyncResult
		errs    []error
	)
	for _, m := range managers {
		if !ancestors[m.ProjectID] {
			continue
		}
		res, err := s.SyncHierarchyForManager(ctx, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("member %d: %w", m.ID, err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// RefreshDescription recomputes one project's description under the per-project lock.
func (s *Synchronizer) RefreshDescription(ctx context.Context, projectID int64) (bool, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	desc, changed, err := s.descriptions.RecomputeDescription(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			metrics.RecordSync("description", "skipped")
			s.logger.Warn("description refresh skipped: project not found", "project_id", projectID)
			return false, nil
		}
		metrics.RecordSync("description", "error")
		return false, fmt.Errorf("recompute description of project %d: %w", projectID, err)
	}

	if changed {
		metrics.RecordSync("description", "updated")
		s.logger.Debug("project description updated", "project_id", projectID, "description", desc)
	} else {
		metrics.RecordSync("description", "unchanged")
	}
	return changed, nil
}

// grant ensures one (project, user, role) triple and refreshes the project
// description when the membership changed. A false return with nil error means
// nothing was written or the branch was skipped.
func (s *Synchronizer) grant(ctx context.Context, result *SyncResult, roles map[int64]bool, projectID, userID, roleID int64, op string) (bool, error) {
	present, checked := roles[roleID]
	if !checked {
		ok, err := s.members.RoleExists(ctx, roleID)
		if err != nil {
			metrics.RecordSync(op, "error")
			return false, fmt.Errorf("check role %s: %w", auth.RoleName(roleID), err)
		}
		roles[roleID] = ok
		present = ok
	}
	if !present {
		s.skip(ctx, result, op, fmt.Errorf("%w: %s", ErrRoleNotFound, auth.RoleName(roleID)))
		return false, nil
	}

	res, err := s.members.Grant(ctx, projectID, userID, roleID)
	if err != nil {
		metrics.RecordSync(op, "error")
		s.logger.Error("hierarchy grant failed",
			"project_id", projectID,
			"user_id", userID,
			"role", auth.RoleName(roleID),
			"error", err)
		return false, fmt.Errorf("grant %s in project %d: %w", auth.RoleName(roleID), projectID, err)
	}
	if !res.Changed() {
		metrics.RecordSync(op, "noop")
		return false, nil
	}

	result.Writes += res.Writes()
	metrics.RecordSync(op, "granted")

	updated, err := s.RefreshDescription(ctx, projectID)
	if err != nil {
		s.logger.Error("description refresh failed", "project_id", projectID, "error", err)
		return true, err
	}
	if updated {
		result.Writes++
		result.DescriptionsUpdated = append(result.DescriptionsUpdated, projectID)
	}
	return true, nil
}

func (s *Synchronizer) skip(ctx context.Context, result *SyncResult, op string, reason error) {
	result.Skipped = append(result.Skipped, reason.Error())
	metrics.RecordSync(op, "skipped")
	s.logger.WarnContext(ctx, "hierarchy branch skipped", "operation", op, "member_id", result.MemberID, "reason", reason)
}
