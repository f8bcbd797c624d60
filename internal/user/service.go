package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	Create(ctx context.Context, u *User) error
	ProjectRoles(ctx context.Context, userID int64) ([]ProjectRoles, error)
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// GetProfile returns the user together with the roles held per project.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError(fmt.Sprintf("user %d not found", userID), internal.ErrCodeUserNotFound).WithCause(err)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	projects, err := s.repo.ProjectRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user project roles: %w", err)
	}

	return &Profile{User: u, Name: u.Name(), Projects: projects}, nil
}

// Create registers a new account. Only administrators may do this.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateUserDTO) (*User, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}

	u, err := s.create(ctx, dto)
	if err != nil {
		if errors.Is(err, ErrLoginTaken) {
			return nil, internal.NewConflictError(fmt.Sprintf("login %q is already taken", dto.Login), internal.ErrCodeUserExists).WithCause(err)
		}
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "login", u.Login, "admin", u.Admin, "created_by", actor.ID)
	return u, nil
}

// Ensure returns the account with the given login, creating it when missing.
func (s *Service) Ensure(ctx context.Context, dto CreateUserDTO) (*User, bool, error) {
	existing, err := s.repo.GetByLogin(ctx, dto.Login)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	u, err := s.create(ctx, dto)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *Service) create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Login:        dto.Login,
		Firstname:    dto.Firstname,
		Lastname:     dto.Lastname,
		Admin:        dto.Admin,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
