package application

import (
	"context"
	"errors"

	"github.com/oksasatya/scopeguard/internal/domain/apperror"
	"github.com/oksasatya/scopeguard/internal/domain/entity"
)

// SeedAdmin ensures the well-known scopes exist and that email holds an
// active account granted all of them. An existing account keeps its password.
// Safe to run repeatedly.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, fullName string) (*entity.UserProfile, error) {
	all := entity.DefaultScopes()
	names := make([]string, 0, len(all))
	for _, sc := range all {
		if err := s.Store.EnsureScope(ctx, sc); err != nil {
			return nil, err
		}
		names = append(names, sc.Name)
	}

	profile, err := s.Register(ctx, RegisterInput{FullName: fullName, Email: email, Password: password})
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrDuplicateUser):
		u, ferr := s.Store.FindByEmail(ctx, NormalizeEmail(email))
		if ferr != nil {
			return nil, ferr
		}
		profile = u.Profile()
	default:
		return nil, err
	}

	if !profile.IsActive {
		if _, err := s.Store.SetActive(ctx, profile.ID, true); err != nil {
			return nil, err
		}
		profile.IsActive = true
	}
	if err := s.Store.GrantScopes(ctx, profile.ID, names...); err != nil {
		return nil, err
	}
	scopes, err := s.Store.ScopesForUser(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	profile.Scopes = scopes
	return profile, nil
}
