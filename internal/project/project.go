package project

import (
	"errors"
	"time"

	projectDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/project"
)

var (
	ErrNotFound = errors.New("project not found")
	ErrExists   = errors.New("project identifier already taken")
)

type Project struct {
	ID          int64     `json:"id"`
	Identifier  string    `json:"identifier"`
	Name        string    `json:"name"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Project) IsRoot() bool {
	return p.ParentID == nil
}

func NewProject(identifier, name string, parentID *int64) *Project {
	now := time.Now()
	return &Project{
		Identifier: identifier,
		Name:       name,
		ParentID:   parentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func ToDataModel(p *Project) *projectDatamodel.Project {
	return &projectDatamodel.Project{
		ID:          p.ID,
		Identifier:  p.Identifier,
		Name:        p.Name,
		ParentID:    p.ParentID,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(p *projectDatamodel.Project) *Project {
	return &Project{
		ID:          p.ID,
		Identifier:  p.Identifier,
		Name:        p.Name,
		ParentID:    p.ParentID,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
