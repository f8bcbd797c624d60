package user

import "time"

const (
	StatusActive = 1
	StatusLocked = 3
)

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Login        string    `gorm:"column:login;uniqueIndex;not null"`
	Firstname    string    `gorm:"column:firstname;not null;default:''"`
	Lastname     string    `gorm:"column:lastname;not null;default:''"`
	Admin        bool      `gorm:"column:admin;not null;default:false"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Status       int       `gorm:"column:status;not null;default:1"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
