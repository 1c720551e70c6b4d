package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidRevocation is returned for an empty jti or non-positive ttl.
var ErrInvalidRevocation = errors.New("invalid revocation")

// Clock returns the current time.
type Clock func() time.Time

// InMemoryTRL keeps revoked token IDs in process. Expired entries are
// pruned lazily on write.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

type InMemoryTRLOption func(*InMemoryTRL)

func WithClock(clock Clock) InMemoryTRLOption {
	return func(t *InMemoryTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryTRLOption) *InMemoryTRL {
	trl := &InMemoryTRL{revoked: make(map[string]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if err := validate(jti, ttl); err != nil {
		return err
	}
	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	exp, ok := t.revoked[jti]
	t.mu.RUnlock()
	return ok && t.clock().Before(exp), nil
}

func validate(jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("jti is required: %w", ErrInvalidRevocation)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", ErrInvalidRevocation)
	}
	return nil
}
