// Package cuentas defines the single identity contract the app depends on.
// The provider is swappable without touching call sites.
package cuentas

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("cuentas: invalid credentials")
	ErrSessionExpired     = errors.New("cuentas: session expired")
	ErrUserExists         = errors.New("cuentas: user already exists")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type Credentials struct {
	Email    string
	Password string
}

// Provider is the one identity contract: sign-up, login, logout and
// session-check against whichever hosted vendor backs it.
type Provider interface {
	SignUp(ctx context.Context, creds Credentials, name string) (User, error)
	Login(ctx context.Context, creds Credentials) (Session, error)
	Logout(ctx context.Context, accessToken string) error
	// Session resolves an access token to its user, or fails with
	// ErrSessionExpired / ErrInvalidCredentials.
	Session(ctx context.Context, accessToken string) (User, error)
}
