// Package config loads the application configuration from a YAML file and
// the environment.
//
// Viper reads the YAML base, a .env file (via godotenv) fills the process
// environment, and environment variables override file values using
// underscore-separated paths (e.g. AUTHGATE_SESSION_SECRET overrides
// gate.session.secret under the AUTHGATE_ prefix).
package config
