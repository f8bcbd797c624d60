package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/user"
	"github.com/frahmantamala/timetrack/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).First(&row, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("login = ?", login).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	row := user.ToDataModel(u)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return user.ErrLoginTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	*u = *user.FromDataModel(row)
	return nil
}

type projectRoleRow struct {
	ProjectID  int64
	Identifier string
	RoleName   string
}

func (r *UserRepository) ProjectRoles(ctx context.Context, userID int64) ([]user.ProjectRoles, error) {
	var rows []projectRoleRow
	err := r.db.WithContext(ctx).
		Table("members").
		Select("members.project_id, projects.identifier, roles.name AS role_name").
		Joins("JOIN projects ON projects.id = members.project_id").
		Joins("JOIN member_roles ON member_roles.member_id = members.id").
		Joins("JOIN roles ON roles.id = member_roles.role_id").
		Where("members.user_id = ?", userID).
		Order("members.project_id ASC, roles.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project roles: %w", err)
	}

	out := make([]user.ProjectRoles, 0)
	for _, row := range rows {
		if n := len(out); n > 0 && out[n-1].ProjectID == row.ProjectID {
			out[n-1].Roles = append(out[n-1].Roles, row.RoleName)
			continue
		}
		out = append(out, user.ProjectRoles{
			ProjectID:  row.ProjectID,
			Identifier: row.Identifier,
			Roles:      []string{row.RoleName},
		})
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
