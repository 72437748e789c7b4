package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
)

func TestMemoryRepositoryRoundtrip(t *testing.T) {
	repo := NewMemoryProfileRepository()
	ctx := context.Background()

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := profile.New("user-1", true)
	p.AddTrustedLocation("home")
	require.NoError(t, repo.Save(ctx, p))

	got, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsTrustedLocation("home"))

	// Stored state is isolated from later mutation of either copy.
	p.AddTrustedLocation("work")
	got.AddTrustedLocation("gym")
	fresh, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, fresh.TrustedLocations, 1)
}

func TestMemoryRepositoryDelete(t *testing.T) {
	repo := NewMemoryProfileRepository()
	ctx := context.Background()

	existed, err := repo.Delete(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, repo.Save(ctx, profile.New("user-1", false)))

	existed, err = repo.Delete(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, existed)

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
