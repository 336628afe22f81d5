package gate

import (
	"fmt"

	"github.com/kbukum/authgate/bruteforce"
	"github.com/kbukum/authgate/credential"
	"github.com/kbukum/authgate/login"
	"github.com/kbukum/authgate/rules"
	"github.com/kbukum/authgate/session"
)

// Config composes the per-component configuration of the gate.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Realm appears in the Basic auth challenge (default: "Restricted").
	Realm string `yaml:"realm" mapstructure:"realm"`

	// Rules is the per-path rule list, matched longest-prefix-wins.
	Rules []rules.Rule `yaml:"rules" mapstructure:"rules"`

	// DefaultRule applies to paths no rule matches. Zero means
	// deny-by-default (form_session, admitting nobody).
	DefaultRule rules.Rule `yaml:"default_rule" mapstructure:"default_rule"`

	// Credentials configures the credential store.
	Credentials credential.Config `yaml:"credentials" mapstructure:"credentials"`

	// Session configures the token codec.
	Session session.Config `yaml:"session" mapstructure:"session"`

	// RateLimit configures the brute-force guard.
	RateLimit bruteforce.Config `yaml:"ratelimit" mapstructure:"ratelimit"`

	// Login configures the form flow.
	Login login.Config `yaml:"login" mapstructure:"login"`

	// VerifyPool bounds concurrent password verification.
	VerifyPool credential.PoolConfig `yaml:"verify_pool" mapstructure:"verify_pool"`
}

// ApplyDefaults cascades defaults into every section.
func (c *Config) ApplyDefaults() {
	if c.Realm == "" {
		c.Realm = "Restricted"
	}
	c.Credentials.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Login.ApplyDefaults()
	c.VerifyPool.ApplyDefaults()
}

// Validate cascades validation; the first failing section wins.
func (c *Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Login.Validate(); err != nil {
		return err
	}
	if err := c.VerifyPool.Validate(); err != nil {
		return err
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("gate.rules must not be empty")
	}
	return nil
}
