package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientAlwaysMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())
	require.NoError(t, repo.Set(ctx, "dashboard:rt", map[string]int{"total": 1}, time.Minute))

	var out map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:rt", &out), appErrors.ErrCacheMiss)
	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))
	require.NoError(t, repo.Close())
}
