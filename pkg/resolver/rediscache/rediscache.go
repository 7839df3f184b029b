// Package rediscache provides a shared, multi-process implementation
// of resolver.Cache backed by redis/go-redis/v9, for deployments that
// run more than one federation entity process behind the same
// superior and want to avoid duplicate fetches. See SPEC_FULL.md
// §3.10; purely a performance optimization, never a source of trust:
// cached bytes are re-verified on every read by the resolver itself.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/SUNET/go-federation/pkg/resolver"
)

// Cache adapts a *redis.Client to resolver.Cache.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logrus.Entry
}

// New constructs a Cache. keyPrefix namespaces keys in a shared Redis
// instance, e.g. "go-federation:resolver:". logger may be nil.
func New(client *redis.Client, keyPrefix string, logger *logrus.Entry) *Cache {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Cache{client: client, keyPrefix: keyPrefix, logger: logger}
}

var _ resolver.Cache = (*Cache)(nil)

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// A cache read failure degrades to a cache miss; the
			// resolver falls back to a live fetch rather than failing
			// the whole resolution over a Redis hiccup.
			c.logger.WithError(err).WithField("key", key).Warn("rediscache: get failed")
		}
		return nil, false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("rediscache: set failed")
	}
}
