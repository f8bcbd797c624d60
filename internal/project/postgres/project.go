package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	projectDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/project"
	"github.com/frahmantamala/timetrack/internal/project"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *projectDatamodel.Project) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return project.ErrExists
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*projectDatamodel.Project, error) {
	var row projectDatamodel.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]*projectDatamodel.Project, error) {
	var rows []*projectDatamodel.Project
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *ProjectRepository) Nodes(ctx context.Context) ([]project.Node, error) {
	var rows []struct {
		ID       int64
		ParentID *int64
	}
	err := r.db.WithContext(ctx).
		Model(&projectDatamodel.Project{}).
		Select("id", "parent_id").
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	nodes := make([]project.Node, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, project.Node{ID: row.ID, ParentID: row.ParentID})
	}
	return nodes, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
