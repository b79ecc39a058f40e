package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenRepositoryGetOrCreateRace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTokenRepository()

	const workers = 16
	uuids := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			tok, _, err := repo.GetOrCreate(ctx, 1, 1, fmt.Sprintf("candidate-%02d", i))
			if err == nil {
				uuids[i] = tok.UUID
			}
		}(i)
	}
	wg.Wait()

	// Exactly one candidate won; every caller saw the same token.
	winner := uuids[0]
	require.NotEmpty(t, winner)
	for _, uuid := range uuids {
		assert.Equal(t, winner, uuid)
	}

	tok, err := repo.GetByUUID(ctx, winner)
	require.NoError(t, err)
	assert.Zero(t, tok.UseCount)
}

func TestMemoryTokenRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTokenRepository()

	tok, created, err := repo.GetOrCreate(ctx, 1, 2, "abc123")
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, repo.IncrementUse(ctx, tok.ID))
	again, err := repo.GetByUUID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, again.UseCount)

	require.NoError(t, repo.Delete(ctx, tok.ID))
	_, err = repo.GetByUUID(ctx, "abc123")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.ErrorIs(t, repo.IncrementUse(ctx, tok.ID), ErrTokenNotFound)
}
