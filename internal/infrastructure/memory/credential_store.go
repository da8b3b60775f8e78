// Package memory holds an in-process CredentialStore. It backs tests and
// STORE_DRIVER=memory; data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/oksasatya/scopeguard/internal/domain/entity"
	"github.com/oksasatya/scopeguard/internal/domain/repository"
)

type CredentialStore struct {
	mu      sync.RWMutex
	byEmail map[string]*entity.User
	byID    map[string]*entity.User
	grants  map[string]entity.ScopeSet // user id -> scopes
	scopes  map[string]entity.Scope
	now     func() time.Time
}

// NewCredentialStore returns an empty store that knows the given scopes.
func NewCredentialStore(scopes ...entity.Scope) *CredentialStore {
	s := &CredentialStore{
		byEmail: make(map[string]*entity.User),
		byID:    make(map[string]*entity.User),
		grants:  make(map[string]entity.ScopeSet),
		scopes:  make(map[string]entity.Scope),
		now:     time.Now,
	}
	for _, sc := range scopes {
		s.scopes[sc.Name] = sc
	}
	return s
}

// Insert is insert-if-absent under the store lock, the in-memory counterpart
// of a UNIQUE constraint.
func (s *CredentialStore) Insert(ctx context.Context, u *entity.User, defaultScopes []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return repository.ErrDuplicateEmail
	}

	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	granted := entity.NewScopeSet()
	for _, name := range defaultScopes {
		if _, ok := s.scopes[name]; ok {
			granted[name] = struct{}{}
		}
	}
	u.Scopes = granted.Names()

	stored := *u
	stored.Scopes = nil
	s.byEmail[u.Email] = &stored
	s.byID[u.ID] = &stored
	s.grants[u.ID] = granted
	return nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *CredentialStore) ScopesForUser(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.grants[userID].Names(), nil
}

func (s *CredentialStore) EnsureScope(ctx context.Context, sc entity.Scope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes[sc.Name] = sc
	return nil
}

func (s *CredentialStore) GrantScopes(ctx context.Context, userID string, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if _, ok := s.scopes[name]; !ok {
			return errors.Wrapf(repository.ErrNotFound, "scope %q", name)
		}
	}
	set, ok := s.grants[userID]
	if !ok {
		return errors.Wrapf(repository.ErrNotFound, "user %q", userID)
	}
	for _, name := range names {
		set[name] = struct{}{}
	}
	return nil
}

func (s *CredentialStore) SetActive(ctx context.Context, userID string, active bool) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, errors.Wrapf(repository.ErrNotFound, "user %q", userID)
	}
	u.IsActive = active
	cp := *u
	return &cp, nil
}

var _ repository.CredentialStore = (*CredentialStore)(nil)
