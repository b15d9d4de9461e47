package health

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Pinger is the reachability check exposed by the ERP client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe is the default Checker backed by the real dependencies.
type Probe struct {
	R       *redis.Client
	Backend Pinger
}

// PingRedis probes Redis within the timeout.
func (p Probe) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.R == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.R.Ping(ctx).Err()
}

// PingBackend probes the ERP backend within the timeout.
func (p Probe) PingBackend(ctx context.Context, timeout time.Duration) error {
	if p.Backend == nil {
		return errors.New("backend not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Backend.Ping(ctx)
}
