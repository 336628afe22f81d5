package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/authgate/gate"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/server"
)

// Config is the root application configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	Server  server.Config `yaml:"server" mapstructure:"server"`
	Gate    gate.Config   `yaml:"gate" mapstructure:"gate"`
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "authgate"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Gate.ApplyDefaults()
}

// Validate validates the configuration: the environment name, struct tags
// on the rule and credential lists, then each section's own checks.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Gate.Validate(); err != nil {
		return fmt.Errorf("config.gate: %w", err)
	}
	return nil
}
