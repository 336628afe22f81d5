package session

import (
	"fmt"
	"time"
)

// minSecretLen is the minimum signing key length in bytes. HMAC-SHA256
// keys shorter than the hash size weaken the MAC.
const minSecretLen = 32

// Config configures the session token codec.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Secret is the server-held signing key. Required, at least 32 bytes.
	Secret string `yaml:"secret" mapstructure:"secret" validate:"required"`

	// TTL bounds token lifetime (default: 2h).
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Issuer is an optional issuer claim, verified when set.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = 2 * time.Hour
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Secret) < minSecretLen {
		return fmt.Errorf("session.secret must be at least %d bytes (got: %d)", minSecretLen, len(c.Secret))
	}
	if c.TTL < 0 {
		return fmt.Errorf("session.ttl must be non-negative (got: %v)", c.TTL)
	}
	return nil
}
