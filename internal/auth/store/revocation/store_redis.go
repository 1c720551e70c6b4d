package revocation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "issuehub:trl:jti:"

// RedisTRL is a Redis-backed token revocation list shared by every
// instance of the service.
type RedisTRL struct {
	client   redis.UniversalClient
	observer prometheus.Observer
}

type RedisTRLOption func(*RedisTRL)

// WithLatencyObserver records IsRevoked latency in milliseconds.
func WithLatencyObserver(o prometheus.Observer) RedisTRLOption {
	return func(t *RedisTRL) {
		t.observer = o
	}
}

func NewRedisTRL(client redis.UniversalClient, opts ...RedisTRLOption) *RedisTRL {
	trl := &RedisTRL{client: client}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func key(jti string) string { return revokedTokenKeyPrefix + jti }

// RevokeToken marks jti revoked until ttl elapses; Redis expires the key.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validate(jti, ttl); err != nil {
		return err
	}
	return t.client.SetEx(ctx, key(jti), time.Now().Add(ttl).UTC().Format(time.RFC3339), ttl).Err()
}

// IsRevoked reports whether jti is on the list.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if t.observer != nil {
		defer func(start time.Time) {
			t.observer.Observe(float64(time.Since(start)) / float64(time.Millisecond))
		}(time.Now())
	}
	n, err := t.client.Exists(ctx, key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
