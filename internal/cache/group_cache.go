package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// GroupCache layers a Redis cache over group membership lookups. Role
// checks run on every permission decision and inbound reply, while group
// membership changes rarely; a short TTL keeps revocations timely.
// Redis being down degrades to the inner repository, never to an error.
type GroupCache struct {
	inner   repository.GroupRepository
	client  redis.Cmdable
	ttl     time.Duration
	prefix  string
	logger  *log.Logger
	metrics *groupCacheMetrics
}

type groupCacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

func newGroupCacheMetrics(reg prometheus.Registerer) *groupCacheMetrics {
	factory := promauto.With(reg)
	return &groupCacheMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "commdesk_group_cache_hits_total",
			Help: "Total number of group membership cache hits",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "commdesk_group_cache_misses_total",
			Help: "Total number of group membership cache misses",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "commdesk_group_cache_errors_total",
			Help: "Total number of group membership cache errors",
		}),
	}
}

// GroupCacheOption customizes GroupCache.
type GroupCacheOption func(*GroupCache)

// NewGroupCache creates a new membership cache over the inner repository.
func NewGroupCache(inner repository.GroupRepository, client redis.Cmdable, opts ...GroupCacheOption) *GroupCache {
	c := &GroupCache{
		inner:  inner,
		client: client,
		ttl:    5 * time.Minute,
		prefix: "commdesk:groups",
		logger: log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.metrics == nil {
		c.metrics = newGroupCacheMetrics(prometheus.DefaultRegisterer)
	}
	return c
}

// WithGroupCacheTTL overrides how long membership answers stay cached.
func WithGroupCacheTTL(ttl time.Duration) GroupCacheOption {
	return func(c *GroupCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithGroupCacheLogger overrides the logger used for diagnostics.
func WithGroupCacheLogger(logger *log.Logger) GroupCacheOption {
	return func(c *GroupCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGroupCacheRegisterer overrides where cache metrics register,
// primarily for tests.
func WithGroupCacheRegisterer(reg prometheus.Registerer) GroupCacheOption {
	return func(c *GroupCache) {
		if reg != nil {
			c.metrics = newGroupCacheMetrics(reg)
		}
	}
}

// IsMember answers the membership question from cache when possible.
func (c *GroupCache) IsMember(ctx context.Context, groupName string, userID uint) (bool, error) {
	key := fmt.Sprintf("%s:member:%s:%d", c.prefix, groupName, userID)

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		c.metrics.hits.Inc()
		return cached == "1", nil
	} else if err != redis.Nil {
		c.metrics.errors.Inc()
		c.logger.Printf("group cache get %s: %v", key, err)
	} else {
		c.metrics.misses.Inc()
	}

	member, err := c.inner.IsMember(ctx, groupName, userID)
	if err != nil {
		return false, err
	}

	value := "0"
	if member {
		value = "1"
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.metrics.errors.Inc()
		c.logger.Printf("group cache set %s: %v", key, err)
	}
	return member, nil
}

// MembersOf lists the group's members, from cache when possible.
func (c *GroupCache) MembersOf(ctx context.Context, groupName string) ([]models.User, error) {
	key := fmt.Sprintf("%s:members:%s", c.prefix, groupName)

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var users []models.User
		if err := json.Unmarshal([]byte(cached), &users); err == nil {
			c.metrics.hits.Inc()
			return users, nil
		}
		c.metrics.errors.Inc()
		c.logger.Printf("group cache decode %s: %v", key, err)
	} else if err != redis.Nil {
		c.metrics.errors.Inc()
		c.logger.Printf("group cache get %s: %v", key, err)
	} else {
		c.metrics.misses.Inc()
	}

	users, err := c.inner.MembersOf(ctx, groupName)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(users); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.metrics.errors.Inc()
			c.logger.Printf("group cache set %s: %v", key, err)
		}
	}
	return users, nil
}

// Invalidate drops the cached answers for one group.
func (c *GroupCache) Invalidate(ctx context.Context, groupName string) error {
	pattern := fmt.Sprintf("%s:member:%s:*", c.prefix, groupName)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("group cache scan %s: %w", pattern, err)
	}
	keys = append(keys, fmt.Sprintf("%s:members:%s", c.prefix, groupName))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("group cache invalidate %s: %w", groupName, err)
	}
	return nil
}

// NewRedisClient connects a Redis client from configuration.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
