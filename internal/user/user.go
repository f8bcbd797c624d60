package user

import (
	"errors"
	"time"

	"github.com/frahmantamala/timetrack/internal/auth"
	userDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/user"
)

// User represents the internal user model
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	Admin        bool      `json:"admin"`
	PasswordHash string    `json:"-"` // Never expose password hash
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Name() string {
	return auth.DisplayName(u.Firstname, u.Lastname, u.Login)
}

// ProjectRoles lists the roles a user holds on one project.
type ProjectRoles struct {
	ProjectID  int64    `json:"project_id"`
	Identifier string   `json:"identifier"`
	Roles      []string `json:"roles"`
}

// Profile is what /users/me returns.
type Profile struct {
	*User
	Name     string         `json:"name"`
	Projects []ProjectRoles `json:"projects"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrLoginTaken = errors.New("login already taken")
)

func ToDataModel(u *User) *userDatamodel.User {
	status := userDatamodel.StatusActive
	if u.Locked {
		status = userDatamodel.StatusLocked
	}
	return &userDatamodel.User{
		ID:           u.ID,
		Login:        u.Login,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		Admin:        u.Admin,
		PasswordHash: u.PasswordHash,
		Status:       status,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Login:        u.Login,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		Admin:        u.Admin,
		PasswordHash: u.PasswordHash,
		Locked:       u.Status == userDatamodel.StatusLocked,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
