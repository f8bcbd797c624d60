package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Actor is the authenticated principal every core decision is made for.
type Actor struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Admin
}

// DisplayName joins first and last name, falling back to the login.
func DisplayName(firstname, lastname, login string) string {
	name := strings.TrimSpace(strings.TrimSpace(firstname) + " " + strings.TrimSpace(lastname))
	if name == "" {
		return login
	}
	return name
}

type Credentials struct {
	UserID       int64
	Login        string
	PasswordHash string
	Active       bool
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID    string `json:"user_id"`
	Login     string `json:"login"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	LoadActor(ctx context.Context, userID int64) (*Actor, error)
}

type RepositoryAPI interface {
	GetCredentialsByLogin(ctx context.Context, login string) (*Credentials, error)
	GetActorByID(ctx context.Context, userID int64) (*Actor, error)
}

type TokenGenerator interface {
	GenerateAccessToken(userID string, login string) (string, error)
	GenerateRefreshToken(userID string, login string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserInactive       = errors.New("user is inactive")
	ErrUserNotFound       = errors.New("user not found")
)
