package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kursadbilgin/integration-hub/internal/reconciler"
)

const (
	defaultLeaseKey = "lease:reconciler"
	defaultLeaseTTL = 30 * time.Second
)

// releaseScript deletes the lease key only while this process still holds
// it, so an expired lease taken over by another replica is never removed.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ reconciler.PassLease = (*Lease)(nil)

// Lease is a distributed single-holder lease backed by Redis. It keeps
// concurrent replicas from running reconciliation passes at the same time.
type Lease struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
	holder string
	script *goredis.Script
}

func NewLease(client *goredis.Client, key string, ttl time.Duration) (*Lease, error) {
	return newLease(client, key, ttl, uuid.NewString())
}

func newLease(client *goredis.Client, key string, ttl time.Duration, holder string) (*Lease, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(key) == "" {
		key = defaultLeaseKey
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	if strings.TrimSpace(holder) == "" {
		return nil, fmt.Errorf("holder id is required")
	}

	return &Lease{
		client: client,
		key:    key,
		ttl:    ttl,
		holder: holder,
		script: releaseScript,
	}, nil
}

func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	if l == nil || l.client == nil {
		return false, fmt.Errorf("lease is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	acquired, err := l.client.SetNX(ctx, l.key, l.holder, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %q: %w", l.key, err)
	}

	return acquired, nil
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.client == nil || l.script == nil {
		return fmt.Errorf("lease is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := l.script.Run(ctx, l.client, []string{l.key}, l.holder).Int(); err != nil {
		return fmt.Errorf("failed to release lease %q: %w", l.key, err)
	}

	return nil
}
