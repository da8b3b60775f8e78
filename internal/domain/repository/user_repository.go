package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/scopeguard/internal/domain/entity"
)

var (
	// ErrDuplicateEmail is returned by Insert when the email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when a user or scope does not exist.
	ErrNotFound = errors.New("not found")
)

// CredentialStore persists users and their scope grants.
// Implementations enforce email uniqueness atomically on Insert.
type CredentialStore interface {
	// Insert stores u and grants every existing scope in defaultScopes in one
	// atomic unit. It sets u.ID and u.CreatedAt.
	Insert(ctx context.Context, u *entity.User, defaultScopes []string) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ScopesForUser(ctx context.Context, userID string) ([]string, error)

	EnsureScope(ctx context.Context, s entity.Scope) error
	GrantScopes(ctx context.Context, userID string, names ...string) error
	// SetActive flips the activation flag and returns the updated user, or
	// ErrNotFound for an unknown id.
	SetActive(ctx context.Context, userID string, active bool) (*entity.User, error)
}
