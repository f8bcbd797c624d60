package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/timetrack/internal/auth"
	userDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentialsByLogin(ctx context.Context, login string) (*auth.Credentials, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("login = ?", login).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return &auth.Credentials{
		UserID:       row.ID,
		Login:        row.Login,
		PasswordHash: row.PasswordHash,
		Active:       row.Status == userDatamodel.StatusActive,
	}, nil
}

func (r *Repository) GetActorByID(ctx context.Context, userID int64) (*auth.Actor, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).First(&row, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if row.Status != userDatamodel.StatusActive {
		return nil, auth.ErrUserInactive
	}

	return &auth.Actor{
		ID:    row.ID,
		Login: row.Login,
		Name:  auth.DisplayName(row.Firstname, row.Lastname, row.Login),
		Admin: row.Admin,
	}, nil
}
