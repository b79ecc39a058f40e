package cache

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// unreachableClient returns a client whose every command fails, standing
// in for a Redis outage.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestGroupCacheDegradesWithoutRedis(t *testing.T) {
	ctx := context.Background()

	inner := repository.NewMemoryGroupRepository()
	reviewer := models.User{ID: 1, Login: "reviewer", Email: "rev@example.com"}
	inner.AddMember(models.GroupAppReviewers, reviewer)

	c := NewGroupCache(inner, unreachableClient(),
		WithGroupCacheRegisterer(prometheus.NewRegistry()),
		WithGroupCacheLogger(log.New(io.Discard, "", 0)),
	)

	member, err := c.IsMember(ctx, models.GroupAppReviewers, reviewer.ID)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = c.IsMember(ctx, models.GroupAppReviewers, 99)
	require.NoError(t, err)
	assert.False(t, member)

	members, err := c.MembersOf(ctx, models.GroupAppReviewers)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, reviewer.Login, members[0].Login)
}
