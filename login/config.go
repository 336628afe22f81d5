package login

import (
	"fmt"
	"strings"
)

// Config configures the form-based login flow.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Path serves the login form (GET) and accepts submissions (POST).
	// Default: "/login".
	Path string `yaml:"path" mapstructure:"path"`

	// LogoutPath clears the session cookie. Default: "/logout".
	LogoutPath string `yaml:"logout_path" mapstructure:"logout_path"`

	// CookieName names the session cookie. Default: "session".
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`

	// CookiePath scopes the session cookie. Default: "/".
	CookiePath string `yaml:"cookie_path" mapstructure:"cookie_path"`

	// RedirectParam carries the originally requested path through the
	// login round trip. Default: "to".
	RedirectParam string `yaml:"redirect_param" mapstructure:"redirect_param"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "/login"
	}
	if c.LogoutPath == "" {
		c.LogoutPath = "/logout"
	}
	if c.CookieName == "" {
		c.CookieName = "session"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.RedirectParam == "" {
		c.RedirectParam = "to"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	for name, p := range map[string]string{
		"login.path":        c.Path,
		"login.logout_path": c.LogoutPath,
		"login.cookie_path": c.CookiePath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must be an absolute path (got: %s)", name, p)
		}
	}
	if c.Path == c.LogoutPath {
		return fmt.Errorf("login.path and login.logout_path must differ (both: %s)", c.Path)
	}
	if strings.ContainsAny(c.CookieName, " ;,=") {
		return fmt.Errorf("login.cookie_name contains invalid characters (got: %s)", c.CookieName)
	}
	return nil
}
