package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/timetrack/internal/auth"
	memberDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/membership"
	projectDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/project"
	userDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/user"
	"github.com/frahmantamala/timetrack/internal/membership"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) GetByID(ctx context.Context, id int64) (*membership.Member, error) {
	var row memberDatamodel.Member
	err := r.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, membership.ErrNotFound
		}
		return nil, err
	}
	return r.withNames(ctx, membership.FromDataModel(&row))
}

func (r *MembershipRepository) FindByProjectAndUser(ctx context.Context, projectID, userID int64) (*membership.Member, error) {
	var row memberDatamodel.Member
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, membership.ErrNotFound
		}
		return nil, err
	}
	return r.withNames(ctx, membership.FromDataModel(&row))
}

func (r *MembershipRepository) ListByProject(ctx context.Context, projectID int64) ([]*membership.Member, error) {
	var rows []*memberDatamodel.Member
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(ctx, rows)
}

// ListByRole returns every membership holding the role, across all projects.
func (r *MembershipRepository) ListByRole(ctx context.Context, roleID int64) ([]*membership.Member, error) {
	var rows []*memberDatamodel.Member
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("id IN (?)", r.db.Model(&memberDatamodel.MemberRole{}).Select("member_id").Where("role_id = ?", roleID)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(ctx, rows)
}

// FindOrCreate returns the membership of the user in the project, inserting it when absent.
func (r *MembershipRepository) FindOrCreate(ctx context.Context, projectID, userID int64) (*membership.Member, bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		_, created, err = findOrCreate(tx, projectID, userID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	m, err := r.FindByProjectAndUser(ctx, projectID, userID)
	if err != nil {
		return nil, false, err
	}
	return m, created, nil
}

// AddRole attaches the role to the membership; re-adding a held role writes nothing.
func (r *MembershipRepository) AddRole(ctx context.Context, memberID, roleID int64) (bool, error) {
	return addRole(r.db.WithContext(ctx), memberID, roleID)
}

// Grant ensures Membership(project, user) exists and holds the role, in one transaction.
func (r *MembershipRepository) Grant(ctx context.Context, projectID, userID, roleID int64) (membership.GrantResult, error) {
	var result membership.GrantResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberID, created, err := findOrCreate(tx, projectID, userID)
		if err != nil {
			return err
		}
		added, err := addRole(tx, memberID, roleID)
		if err != nil {
			return err
		}
		result = membership.GrantResult{MemberID: memberID, MemberCreated: created, RoleAdded: added}
		return nil
	})
	return result, err
}

func (r *MembershipRepository) RemoveRole(ctx context.Context, memberID, roleID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("member_id = ? AND role_id = ?", memberID, roleID).
		Delete(&memberDatamodel.MemberRole{})
	if res.Error != nil {
		return false, fmt.Errorf("remove role %d from member %d: %w", roleID, memberID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *MembershipRepository) Delete(ctx context.Context, memberID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", memberID).Delete(&memberDatamodel.MemberRole{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", memberID).Delete(&memberDatamodel.Member{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return membership.ErrNotFound
		}
		return nil
	})
}

// RoleIDsFor implements auth.RoleLookup.
func (r *MembershipRepository) RoleIDsFor(ctx context.Context, projectID, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("member_roles").
		Joins("JOIN members ON members.id = member_roles.member_id").
		Where("members.project_id = ? AND members.user_id = ?", projectID, userID).
		Order("member_roles.role_id ASC").
		Pluck("member_roles.role_id", &ids).Error
	return ids, err
}

func (r *MembershipRepository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&memberDatamodel.Role{}).Where("id = ?", roleID))
}

func (r *MembershipRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", userID))
}

func (r *MembershipRepository) ProjectExists(ctx context.Context, projectID int64) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&projectDatamodel.Project{}).Where("id = ?", projectID))
}

func findOrCreate(tx *gorm.DB, projectID, userID int64) (int64, bool, error) {
	row := memberDatamodel.Member{ProjectID: projectID, UserID: userID}
	res := tx.Omit("Roles").Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return 0, false, fmt.Errorf("create membership: %w", res.Error)
	}
	if res.RowsAffected == 1 && row.ID != 0 {
		return row.ID, true, nil
	}

	var existing memberDatamodel.Member
	if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&existing).Error; err != nil {
		return 0, false, fmt.Errorf("load membership: %w", err)
	}
	return existing.ID, false, nil
}

func addRole(tx *gorm.DB, memberID, roleID int64) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&memberDatamodel.MemberRole{MemberID: memberID, RoleID: roleID})
	if res.Error != nil {
		return false, fmt.Errorf("add role %d to member %d: %w", roleID, memberID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func exists(q *gorm.DB) (bool, error) {
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MembershipRepository) toDomain(ctx context.Context, rows []*memberDatamodel.Member) ([]*membership.Member, error) {
	out := make([]*membership.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, membership.FromDataModel(row))
	}
	if err := r.attachNames(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MembershipRepository) withNames(ctx context.Context, m *membership.Member) (*membership.Member, error) {
	if err := r.attachNames(ctx, []*membership.Member{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MembershipRepository) attachNames(ctx context.Context, members []*membership.Member) error {
	if len(members) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}

	var users []userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return fmt.Errorf("load member names: %w", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = auth.DisplayName(u.Firstname, u.Lastname, u.Login)
	}
	for _, m := range members {
		m.UserName = names[m.UserID]
	}
	return nil
}
