package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin_Idempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.SeedAdmin(ctx, "Admin@Example.com", "password123", "Administrator")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", first.Email)
	assert.Equal(t, []string{"admin", "read", "write"}, first.Scopes)

	second, err := svc.SeedAdmin(ctx, "admin@example.com", "ignored-on-rerun", "Administrator")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.Authenticate(ctx, "admin@example.com", "password123")
	assert.NoError(t, err, "existing password is kept")
}

func TestSeedAdmin_TokenCarriesAllScopes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SeedAdmin(ctx, "admin@example.com", "password123", "Administrator")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	claims, err := svc.VerifyToken(res.AccessToken)
	require.NoError(t, err)
	assert.NoError(t, svc.RequireScopes(claims, "read", "write", "admin"))
}

func TestSeedAdmin_ActiveWhenActivationRequired(t *testing.T) {
	svc, _ := newService(t, WithActivationRequired(true))
	ctx := context.Background()

	p, err := svc.SeedAdmin(ctx, "admin@example.com", "password123", "Administrator")
	require.NoError(t, err)
	assert.True(t, p.IsActive)

	_, err = svc.Login(ctx, "admin@example.com", "password123")
	assert.NoError(t, err)
}
