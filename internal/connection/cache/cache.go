// Package cache provides a Redis read-through layer over the connection
// graph queries that feed suggestion ranking. Cache failures degrade to
// the underlying store, never to an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "linkup/pkg/domain"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkup_graph_cache_hits_total",
		Help: "Connection graph cache hits by query",
	}, []string{"query"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkup_graph_cache_misses_total",
		Help: "Connection graph cache misses by query",
	}, []string{"query"})
)

const (
	peersKeyPrefix  = "graph:peers:"
	mutualKeyPrefix = "graph:mutual:"
	linkedKeyPrefix = "graph:linked:"

	defaultTTL = 5 * time.Minute
)

// GraphSource is the slice of the connection store the cache fronts.
type GraphSource interface {
	AcceptedPeerIDs(ctx context.Context, userID id.UserID) ([]id.UserID, error)
	MutualCount(ctx context.Context, a, b id.UserID) (int, error)
	AreConnected(ctx context.Context, a, b id.UserID) (bool, error)
}

// GraphCache is a read-through cache over GraphSource. A nil client makes
// every method a passthrough, so callers never branch on whether Redis is
// configured.
type GraphCache struct {
	source GraphSource
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a GraphCache.
type Option func(*GraphCache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *GraphCache) { c.ttl = ttl }
}

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *GraphCache) { c.logger = logger }
}

// New wraps source with a Redis cache. client may be nil.
func New(source GraphSource, client *redis.Client, opts ...Option) *GraphCache {
	c := &GraphCache{
		source: source,
		client: client,
		ttl:    defaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// pairField is direction-independent so both argument orders share an entry.
func pairField(a, b id.UserID) string {
	as, bs := a.String(), b.String()
	if strings.Compare(as, bs) > 0 {
		as, bs = bs, as
	}
	return as + "|" + bs
}

func (c *GraphCache) AcceptedPeerIDs(ctx context.Context, userID id.UserID) ([]id.UserID, error) {
	if c.client == nil {
		return c.source.AcceptedPeerIDs(ctx, userID)
	}

	key := peersKeyPrefix + userID.String()
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var peers []id.UserID
		if err := json.Unmarshal([]byte(raw), &peers); err == nil {
			cacheHits.WithLabelValues("peers").Inc()
			return peers, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("graph cache read failed", "key", key, "error", err)
	}
	cacheMisses.WithLabelValues("peers").Inc()

	peers, err := c.source.AcceptedPeerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, peers)
	return peers, nil
}

func (c *GraphCache) MutualCount(ctx context.Context, a, b id.UserID) (int, error) {
	if c.client == nil {
		return c.source.MutualCount(ctx, a, b)
	}

	key := mutualKeyPrefix + pairField(a, b)
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var count int
		if err := json.Unmarshal([]byte(raw), &count); err == nil {
			cacheHits.WithLabelValues("mutual").Inc()
			return count, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("graph cache read failed", "key", key, "error", err)
	}
	cacheMisses.WithLabelValues("mutual").Inc()

	count, err := c.source.MutualCount(ctx, a, b)
	if err != nil {
		return 0, err
	}
	c.set(ctx, key, count)
	return count, nil
}

func (c *GraphCache) AreConnected(ctx context.Context, a, b id.UserID) (bool, error) {
	if c.client == nil {
		return c.source.AreConnected(ctx, a, b)
	}

	key := linkedKeyPrefix + pairField(a, b)
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var connected bool
		if err := json.Unmarshal([]byte(raw), &connected); err == nil {
			cacheHits.WithLabelValues("linked").Inc()
			return connected, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("graph cache read failed", "key", key, "error", err)
	}
	cacheMisses.WithLabelValues("linked").Inc()

	connected, err := c.source.AreConnected(ctx, a, b)
	if err != nil {
		return false, err
	}
	c.set(ctx, key, connected)
	return connected, nil
}

// InvalidateUsers drops the peer sets of the given users and every pair
// entry touching them. Called after any transition that changes the
// accepted graph.
func (c *GraphCache) InvalidateUsers(ctx context.Context, users ...id.UserID) {
	if c.client == nil || len(users) == 0 {
		return
	}

	keys := make([]string, 0, len(users))
	for _, user := range users {
		keys = append(keys, peersKeyPrefix+user.String())
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("graph cache invalidation failed", "error", err)
	}

	// Pair entries are keyed by both participants, so a SCAN per user is
	// needed to catch entries against third parties.
	for _, user := range users {
		c.invalidateMatching(ctx, mutualKeyPrefix+"*"+user.String()+"*")
		c.invalidateMatching(ctx, linkedKeyPrefix+"*"+user.String()+"*")
	}
}

func (c *GraphCache) invalidateMatching(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("graph cache scan failed", "pattern", pattern, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("graph cache invalidation failed", "error", err)
	}
}

func (c *GraphCache) set(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("graph cache write failed", "key", key, "error", err)
	}
}
