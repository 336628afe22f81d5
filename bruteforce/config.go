package bruteforce

import (
	"fmt"
	"time"
)

// KeyMode selects what identifies a client for lockout accounting.
type KeyMode string

const (
	// KeyIP keys on the source address only.
	KeyIP KeyMode = "ip"

	// KeyUser keys on the attempted username only.
	KeyUser KeyMode = "user"

	// KeyIPUser keys on the combination (default). Mitigates both
	// distributed credential stuffing and lockout denial-of-service
	// against clients behind a shared address.
	KeyIPUser KeyMode = "ip_user"
)

// Config configures the brute-force guard.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// MaxFailures is the number of failures inside a window before the key
	// is blocked (default: 5).
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`

	// Window is the accounting window; blocked keys stay blocked until it
	// elapses (default: 1m).
	Window time.Duration `yaml:"window" mapstructure:"window"`

	// KeyMode selects the client identity (default: ip_user).
	KeyMode KeyMode `yaml:"key_mode" mapstructure:"key_mode"`

	// Shards is the counter map shard count (default: 16). More shards,
	// less lock contention between unrelated clients.
	Shards int `yaml:"shards" mapstructure:"shards"`

	// SweepInterval is how often the background sweeper reclaims expired
	// entries (default: 5m). Zero disables the sweeper; expiry is lazy at
	// read/write time either way, the sweep is memory hygiene only.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.Window == 0 {
		c.Window = time.Minute
	}
	if c.KeyMode == "" {
		c.KeyMode = KeyIPUser
	}
	if c.Shards == 0 {
		c.Shards = 16
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 5 * time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxFailures < 1 {
		return fmt.Errorf("ratelimit.max_failures must be at least 1 (got: %d)", c.MaxFailures)
	}
	if c.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive (got: %v)", c.Window)
	}
	if c.Shards < 1 {
		return fmt.Errorf("ratelimit.shards must be at least 1 (got: %d)", c.Shards)
	}
	switch c.KeyMode {
	case KeyIP, KeyUser, KeyIPUser:
	default:
		return fmt.Errorf("ratelimit.key_mode must be ip, user, or ip_user (got: %s)", c.KeyMode)
	}
	return nil
}
