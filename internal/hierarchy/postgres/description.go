package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/timetrack/internal/auth"
	projectDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/project"
	userDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/user"
	"github.com/frahmantamala/timetrack/internal/hierarchy"
	"github.com/frahmantamala/timetrack/internal/project"
)

// DescriptionRepository persists the manager-name projection stored in
// projects.description.
type DescriptionRepository struct {
	db *gorm.DB
}

func NewDescriptionRepository(db *gorm.DB) *DescriptionRepository {
	return &DescriptionRepository{db: db}
}

func (r *DescriptionRepository) RecomputeDescription(ctx context.Context, projectID int64) (string, bool, error) {
	var (
		desc    string
		changed bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var row projectDatamodel.Project
		if err := q.Where("id = ?", projectID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return project.ErrNotFound
			}
			return err
		}

		var managers []userDatamodel.User
		err := tx.Model(&userDatamodel.User{}).
			Select("DISTINCT users.id, users.login, users.firstname, users.lastname").
			Joins("JOIN members ON members.user_id = users.id").
			Joins("JOIN member_roles ON member_roles.member_id = members.id").
			Where("members.project_id = ? AND member_roles.role_id = ?", projectID, auth.RoleManager).
			Find(&managers).Error
		if err != nil {
			return err
		}

		names := make([]string, 0, len(managers))
		for _, u := range managers {
			names = append(names, auth.DisplayName(u.Firstname, u.Lastname, u.Login))
		}
		desc = hierarchy.BuildDescription(names)
		if desc == row.Description {
			return nil
		}

		changed = true
		return tx.Model(&projectDatamodel.Project{}).
			Where("id = ?", projectID).
			Update("description", desc).Error
	})
	if err != nil {
		return "", false, err
	}
	return desc, changed, nil
}
