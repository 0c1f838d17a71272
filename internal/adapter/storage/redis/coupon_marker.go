package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultCouponMarkerTTL bounds how long a consumed-coupon marker is cached.
const DefaultCouponMarkerTTL = 30 * 24 * time.Hour

// CouponMarker implements ports.CouponMarker using Redis keys.
// A missing marker proves nothing; the database stays authoritative.
type CouponMarker struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewCouponMarker creates a new Redis-backed consumed-coupon marker.
func NewCouponMarker(client *goredis.Client, ttl time.Duration) *CouponMarker {
	if ttl <= 0 {
		ttl = DefaultCouponMarkerTTL
	}
	return &CouponMarker{
		client: client,
		prefix: "coupon:used:",
		ttl:    ttl,
	}
}

// MarkUsed records that code has been consumed.
func (m *CouponMarker) MarkUsed(ctx context.Context, code string) error {
	if err := m.client.Set(ctx, m.prefix+code, 1, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis coupon mark: %w", err)
	}
	return nil
}

// IsUsed reports whether a consumed marker exists for code.
func (m *CouponMarker) IsUsed(ctx context.Context, code string) (bool, error) {
	n, err := m.client.Exists(ctx, m.prefix+code).Result()
	if err != nil {
		return false, fmt.Errorf("redis coupon check: %w", err)
	}
	return n > 0, nil
}
