package project

import "time"

type Project struct {
	ID          int64     `gorm:"primaryKey"`
	Identifier  string    `gorm:"column:identifier;uniqueIndex;not null"`
	Name        string    `gorm:"column:name;not null"`
	ParentID    *int64    `gorm:"column:parent_id;index"`
	Description string    `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Project) TableName() string {
	return "projects"
}
