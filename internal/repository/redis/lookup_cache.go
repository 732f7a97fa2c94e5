package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadagent/mailfinder/internal/domain"
)

const keyPrefix = "mailfinder:lookup:"

// LookupCache implements repository.LookupCache using Redis.
type LookupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLookupCache creates a new Redis-backed lookup cache.
func NewLookupCache(client *redis.Client, ttl time.Duration) *LookupCache {
	return &LookupCache{
		client: client,
		ttl:    ttl,
	}
}

// Key returns the cache key for a person at a domain. Names and domain are
// trimmed and lower-cased so equivalent requests share an entry.
func Key(firstName, lastName, mailDomain string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return keyPrefix + norm(firstName) + "|" + norm(lastName) + "|" + norm(mailDomain)
}

// Get returns the cached lookup, or nil on a miss.
func (c *LookupCache) Get(ctx context.Context, firstName, lastName, mailDomain string) (*domain.Lookup, error) {
	data, err := c.client.Get(ctx, Key(firstName, lastName, mailDomain)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get lookup: %w", err)
	}

	var l domain.Lookup
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("unmarshal lookup: %w", err)
	}
	return &l, nil
}

// Save caches a lookup with the configured TTL.
func (c *LookupCache) Save(ctx context.Context, l *domain.Lookup) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal lookup: %w", err)
	}

	if err := c.client.Set(ctx, Key(l.FirstName, l.LastName, l.Domain), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set lookup: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (c *LookupCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
