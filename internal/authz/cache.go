package authz

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// GrantCache wraps a GrantStore with a Redis-backed cache of per-principal
// grant lists. Point lookups are answered from the cached list, so a gate
// pass costs at most one store round trip per principal. The cache entry is
// dropped after ReplaceGrants commits; a concurrent reader sees either the
// old complete set or the new complete set.
type GrantCache struct {
	store  GrantStore
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewGrantCache constructs a GrantCache. A nil client disables caching and
// delegates straight to the store.
func NewGrantCache(store GrantStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *GrantCache {
	return &GrantCache{store: store, client: client, ttl: ttl, logger: logger}
}

// ListGrants returns the cached grant list, loading it once per key even
// under concurrent misses.
func (c *GrantCache) ListGrants(ctx context.Context, principalID string) ([]string, error) {
	if c.client == nil {
		return c.store.ListGrants(ctx, principalID)
	}

	key := c.key(principalID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var routes []string
		if err := json.Unmarshal(raw, &routes); err == nil {
			return routes, nil
		}
		// Unreadable entry: fall through and repopulate.
	} else if !errors.Is(err, redis.Nil) && c.logger != nil {
		c.logger.WarnContext(ctx, "grant cache read", slog.Any("error", err))
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		routes, err := c.store.ListGrants(ctx, principalID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(routes); err == nil {
			if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil && c.logger != nil {
				c.logger.WarnContext(ctx, "grant cache write", slog.Any("error", err))
			}
		}
		return routes, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

// HasGrant answers the exact-match check from the cached list.
func (c *GrantCache) HasGrant(ctx context.Context, principalID, route string) (bool, error) {
	routes, err := c.ListGrants(ctx, principalID)
	if err != nil {
		return false, err
	}
	return slices.Contains(routes, route), nil
}

// HasAnyGrant reports whether the principal holds at least one grant.
func (c *GrantCache) HasAnyGrant(ctx context.Context, principalID string) (bool, error) {
	routes, err := c.ListGrants(ctx, principalID)
	if err != nil {
		return false, err
	}
	return len(routes) > 0, nil
}

// ReplaceGrants delegates to the store and invalidates the cache entry
// after the transaction commits.
func (c *GrantCache) ReplaceGrants(ctx context.Context, principalID string, routes []string) error {
	if err := c.store.ReplaceGrants(ctx, principalID, routes); err != nil {
		return err
	}
	c.Invalidate(ctx, principalID)
	return nil
}

// Invalidate drops the cached grant list for a principal.
func (c *GrantCache) Invalidate(ctx context.Context, principalID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(principalID)).Err(); err != nil && !errors.Is(err, redis.Nil) && c.logger != nil {
		c.logger.WarnContext(ctx, "grant cache invalidate", slog.Any("error", err))
	}
}

func (c *GrantCache) key(principalID string) string {
	return "grants:" + principalID
}

var _ GrantStore = (*GrantCache)(nil)
