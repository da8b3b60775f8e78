package helpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "securePassword123!"},
		{name: "unicode password", password: "pässwörd-ключ"},
		{name: "empty password", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(ctx, tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyPassword)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)

			ok, err := h.Compare(ctx, hash, tt.password)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Compare(ctx, hash, tt.password+"x")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHasher_SaltedPerCall(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	a, err := h.Hash(context.Background(), "pw123")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "pw123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_MalformedHashIsMismatch(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	ok, err := h.Compare(context.Background(), "not-a-hash", "pw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99, 1).Cost())
}

func TestPasswordHasher_CompareDummy(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	assert.NoError(t, h.CompareDummy(context.Background(), "anything"))
}

func TestPasswordHasher_WaitsForSlot(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	require.NoError(t, h.slots.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Hash(ctx, "pw123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.slots.Release(1)
	_, err = h.Hash(context.Background(), "pw123")
	assert.NoError(t, err)
}

func TestPasswordHasher_Concurrent(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(context.Background(), "pw123")
			assert.NoError(t, err)
			ok, err := h.Compare(context.Background(), hash, "pw123")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
