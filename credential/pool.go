package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Pool errors.
var (
	// ErrPoolSaturated is returned when no verification slot is available.
	// Callers must fail closed: the attempt is rejected, not queued forever.
	ErrPoolSaturated = errors.New("credential: verification pool saturated")
)

// PoolConfig configures the verification pool.
type PoolConfig struct {
	// MaxConcurrent is the maximum number of in-flight hash verifications
	// (default: 8). Bounds the CPU spent on slow hashing so a burst of login
	// attempts cannot stall unrelated request processing.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// MaxWait is how long a request waits for a slot before being rejected
	// (default: 1s). 0 rejects immediately when the pool is full.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields. Negative
// MaxConcurrent is treated like zero; the semaphore needs a real capacity.
func (c *PoolConfig) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.MaxWait == 0 {
		c.MaxWait = time.Second
	}
}

// Validate checks the configuration.
func (c *PoolConfig) Validate() error {
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("verify_pool.max_concurrent must be positive (got: %d)", c.MaxConcurrent)
	}
	if c.MaxWait < 0 {
		return fmt.Errorf("verify_pool.max_wait must be non-negative (got: %v)", c.MaxWait)
	}
	return nil
}

// Pool bounds concurrent password-hash verification with a semaphore.
// Hashing is CPU-intensive by design; the pool isolates that cost from the
// connection-handling goroutines.
type Pool struct {
	sem     chan struct{}
	maxWait time.Duration
}

// NewPool creates a verification pool.
func NewPool(cfg PoolConfig) *Pool {
	cfg.ApplyDefaults()
	return &Pool{
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		maxWait: cfg.MaxWait,
	}
}

// Verify runs store.Verify under the pool's concurrency bound. It returns
// ErrPoolSaturated when no slot frees up within the configured wait, or the
// context error if the request is aborted while waiting. Once a slot is
// acquired the verification runs to completion; an aborted request never
// leaves a half-finished comparison behind.
func (p *Pool) Verify(ctx context.Context, store *Store, username, password string) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	return store.Verify(username, password)
}

// Available returns the number of free verification slots.
func (p *Pool) Available() int {
	return cap(p.sem) - len(p.sem)
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	default:
	}

	if p.maxWait <= 0 {
		return ErrPoolSaturated
	}

	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()

	select {
	case p.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrPoolSaturated
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() {
	<-p.sem
}
