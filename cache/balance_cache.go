package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"betledger/models"
)

// ConnectRedis opens and pings a redis client
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// BalanceCache is a redis-backed read cache for balance lookups. Mutations
// invalidate rather than update, so a stale entry can only survive for the
// TTL after a miss-free read. Cache failures are logged and treated as
// misses; the ledger is always the source of truth.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBalanceCache creates a balance cache with the given entry TTL
func NewBalanceCache(rdb *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{rdb: rdb, ttl: ttl}
}

func balanceKey(userID int64) string {
	return fmt.Sprintf("balance:user:%d", userID)
}

// Get returns the cached balances for a user, or ok=false on a miss
func (c *BalanceCache) Get(ctx context.Context, userID int64) ([]*models.Balance, bool) {
	b, err := c.rdb.Get(ctx, balanceKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Balance cache read failed")
		return nil, false
	}

	var balances []*models.Balance
	if err := json.Unmarshal(b, &balances); err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Balance cache entry corrupt")
		return nil, false
	}
	return balances, true
}

// Set stores the balances for a user
func (c *BalanceCache) Set(ctx context.Context, userID int64, balances []*models.Balance) {
	b, err := json.Marshal(balances)
	if err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Failed to marshal balances for cache")
		return
	}
	if err := c.rdb.Set(ctx, balanceKey(userID), b, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Balance cache write failed")
	}
}

// Invalidate drops the cached balances for a user
func (c *BalanceCache) Invalidate(ctx context.Context, userID int64) {
	if err := c.rdb.Del(ctx, balanceKey(userID)).Err(); err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Balance cache invalidation failed")
	}
}

// NoopBalanceCache satisfies the cache interface when no redis is configured
type NoopBalanceCache struct{}

// NewNoopBalanceCache creates a cache that never hits
func NewNoopBalanceCache() *NoopBalanceCache {
	return &NoopBalanceCache{}
}

func (NoopBalanceCache) Get(ctx context.Context, userID int64) ([]*models.Balance, bool) {
	return nil, false
}

func (NoopBalanceCache) Set(ctx context.Context, userID int64, balances []*models.Balance) {}

func (NoopBalanceCache) Invalidate(ctx context.Context, userID int64) {}
