// Package bruteforce throttles credential-guessing by counting failed
// authentication attempts per client key in fixed time windows.
//
// Counters live in a sharded map so unrelated clients never contend on the
// same lock, and entries expire lazily at read/write time; the optional
// background sweep only reclaims memory. A successful authentication does
// not clear in-window failures — counters are monotonic per window, so an
// attacker cannot probe for valid usernames to reset their budget.
package bruteforce

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// Guard tracks failed attempts and answers whether a key is blocked.
type Guard struct {
	shards      []*shard
	maxFailures int
	window      time.Duration
	keyMode     KeyMode
	sweepEvery  time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*windowState
}

type windowState struct {
	start    time.Time
	failures int
}

// New creates a Guard from configuration.
func New(cfg Config) (*Guard, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]*windowState)}
	}
	return &Guard{
		shards:      shards,
		maxFailures: cfg.MaxFailures,
		window:      cfg.Window,
		keyMode:     cfg.KeyMode,
		sweepEvery:  cfg.SweepInterval,
		now:         time.Now,
	}, nil
}

// Key builds the client key for the configured mode.
func (g *Guard) Key(clientIP, username string) string {
	switch g.keyMode {
	case KeyIP:
		return clientIP
	case KeyUser:
		return username
	default:
		return clientIP + "\x00" + username
	}
}

// RecordFailure counts one failed attempt for the key. The increment is
// atomic under the shard lock: it either lands completely or, if the
// request died before reaching this point, not at all.
func (g *Guard) RecordFailure(key string) {
	if key == "" {
		return
	}
	now := g.now()

	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ws, ok := sh.entries[key]
	if !ok || now.Sub(ws.start) >= g.window {
		ws = &windowState{start: now}
		sh.entries[key] = ws
	}
	ws.failures++
}

// Check reports whether the key is currently blocked, and if so for how
// long. Expired windows are treated as absent without waiting for a sweep.
// A guard in an unusable state fails closed: callers treat errors from
// construction as "always blocked", never as "protection off".
func (g *Guard) Check(key string) (blocked bool, retryAfter time.Duration) {
	if g == nil || len(g.shards) == 0 {
		// Fail closed.
		return true, 0
	}
	if key == "" {
		return true, 0
	}
	now := g.now()

	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ws, ok := sh.entries[key]
	if !ok {
		return false, 0
	}
	if now.Sub(ws.start) >= g.window {
		delete(sh.entries, key)
		return false, 0
	}
	if ws.failures >= g.maxFailures {
		return true, ws.start.Add(g.window).Sub(now)
	}
	return false, 0
}

// Failures returns the current in-window failure count for a key.
func (g *Guard) Failures(key string) int {
	now := g.now()

	sh := g.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ws, ok := sh.entries[key]
	if !ok || now.Sub(ws.start) >= g.window {
		return 0
	}
	return ws.failures
}

// Sweep removes fully expired entries from all shards. Each shard is
// locked independently; the sweep never blocks the whole guard at once.
func (g *Guard) Sweep() {
	now := g.now()
	for _, sh := range g.shards {
		sh.mu.Lock()
		for key, ws := range sh.entries {
			if now.Sub(ws.start) >= g.window {
				delete(sh.entries, key)
			}
		}
		sh.mu.Unlock()
	}
}

// StartSweeper runs periodic sweeps until the context is cancelled.
func (g *Guard) StartSweeper(ctx context.Context) {
	if g.sweepEvery <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Sweep()
			}
		}
	}()
}

func (g *Guard) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return g.shards[h.Sum32()%uint32(len(g.shards))]
}
