package helpers

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

var ErrEmptyPassword = errors.New("password must not be empty")

// PasswordHasher hashes and verifies passwords with bcrypt.
//
// bcrypt is CPU bound and deliberately slow, so at most `workers` hashes run at
// once; callers beyond that wait on ctx instead of piling onto the scheduler.
type PasswordHasher struct {
	cost  int
	slots *semaphore.Weighted
	dummy []byte
}

// NewPasswordHasher returns a hasher. A cost outside bcrypt's range falls
// back to bcrypt.DefaultCost; workers <= 0 means runtime.NumCPU().
func NewPasswordHasher(cost, workers int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	h := &PasswordHasher{cost: cost, slots: semaphore.NewWeighted(int64(workers))}
	// Compared against when the user does not exist so both login failure
	// paths pay for one bcrypt comparison at the same cost.
	h.dummy, _ = bcrypt.GenerateFromPassword([]byte("scopeguard-dummy-password"), cost)
	return h
}

// Hash returns a salted bcrypt hash of plain.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether plain matches hash. A malformed hash is a mismatch.
func (h *PasswordHasher) Compare(ctx context.Context, hash, plain string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil, nil
}

// CompareDummy burns one comparison against a throwaway hash.
func (h *PasswordHasher) CompareDummy(ctx context.Context, plain string) error {
	_, err := h.Compare(ctx, string(h.dummy), plain)
	return err
}

// Cost returns the bcrypt cost in use.
func (h *PasswordHasher) Cost() int { return h.cost }
