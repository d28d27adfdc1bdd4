package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

const (
	revokedPrefix = "session:revoked:"
	eventPrefix   = "guard:"
	topPrefix     = "products:top:"
	topTTL        = 5 * time.Minute
)

// Revocations stores revoked session ids until the token would have expired.
type Revocations struct {
	rdb *redis.Client
}

func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb}
}

func (r *Revocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EventGuard claims keys with SET NX so only one holder proceeds.
type EventGuard struct {
	rdb *redis.Client
}

func NewEventGuard(rdb *redis.Client) *EventGuard {
	return &EventGuard{rdb: rdb}
}

func (g *EventGuard) FirstSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return g.rdb.SetNX(ctx, eventPrefix+eventID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	return helpers.RedisDel(ctx, g.rdb, eventPrefix+eventID)
}

// TopProducts caches the top-rated list per limit. Errors only cost a cache miss.
type TopProducts struct {
	rdb    *redis.Client
	logger *logrus.Logger
	limits []int
}

func NewTopProducts(rdb *redis.Client, logger *logrus.Logger) *TopProducts {
	return &TopProducts{rdb: rdb, logger: logger, limits: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}}
}

func topKey(limit int) string { return topPrefix + strconv.Itoa(limit) }

func (c *TopProducts) GetTop(ctx context.Context, limit int) ([]*entity.Product, bool) {
	var out []*entity.Product
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, topKey(limit), &out)
	if err != nil {
		helpers.LogError(c.logger, "top products cache read failed", err, nil)
		return nil, false
	}
	return out, ok
}

func (c *TopProducts) SetTop(ctx context.Context, limit int, products []*entity.Product) {
	if err := helpers.RedisSetJSON(ctx, c.rdb, topKey(limit), products, topTTL); err != nil {
		helpers.LogError(c.logger, "top products cache write failed", err, nil)
	}
}

func (c *TopProducts) Invalidate(ctx context.Context) {
	keys := make([]string, 0, len(c.limits))
	for _, l := range c.limits {
		keys = append(keys, topKey(l))
	}
	if err := helpers.RedisDel(ctx, c.rdb, keys...); err != nil {
		helpers.LogError(c.logger, "top products cache invalidate failed", err, nil)
	}
}
