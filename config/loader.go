package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is stripped from environment variables before they are mapped
// onto configuration keys: AUTHGATE_GATE_SESSION_SECRET sets
// gate.session.secret.
const envPrefix = "AUTHGATE_"

// FileSystem abstracts file operations for the loader (useful in tests).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem against the actual filesystem.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// configSearchPaths lists where the YAML file is looked for when no
// explicit path is given, in order.
var configSearchPaths = []string{
	"./authgate.yml",
	"./authgate.yaml",
	"./config/authgate.yml",
	"/etc/authgate/authgate.yml",
}

// envSearchPaths lists where the .env file is looked for.
var envSearchPaths = []string{
	".env.authgate",
	".env",
}

// LoaderConfig holds loader dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit YAML config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads the configuration: YAML base first, then the .env file into
// the process environment, then AUTHGATE_* variables on top. Defaults are
// applied and the result validated before it is returned.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}
	if lc.ConfigFile == "" {
		lc.ConfigFile = firstExisting(lc.FileSystem, configSearchPaths)
	}
	if lc.EnvFile == "" {
		lc.EnvFile = firstExisting(lc.FileSystem, envSearchPaths)
	}

	v := viper.New()

	if lc.ConfigFile != "" && lc.FileSystem.Exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", lc.ConfigFile, err)
		}
	}

	// .env goes into the process environment first so the override pass
	// below sees it.
	if lc.EnvFile != "" && lc.FileSystem.Exists(lc.EnvFile) {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", lc.EnvFile, err)
		}
	}
	bindEnvOverrides(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnvOverrides maps every AUTHGATE_* environment variable onto a
// configuration key. Underscores become dots, so nesting needs no special
// declaration per key; AUTHGATE_GATE_SESSION_SECRET lands on
// gate.session.secret. Because section and field names may themselves
// contain underscores (verify_pool, max_failures), every combination of
// split points is bound.
func bindEnvOverrides(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(pair[0], envPrefix))
		for _, variant := range keyVariants(key) {
			v.Set(variant, pair[1])
		}
	}
}

// keyVariants expands an underscore key into every nested form it could
// name: each underscore independently becomes a dot or stays literal, so
// "gate_verify_pool_max_concurrent" yields "gate.verify_pool.max_concurrent"
// alongside the fully-dotted form. Variants that name nothing real are
// harmless; Unmarshal ignores unknown keys.
func keyVariants(key string) []string {
	parts := strings.Split(key, "_")
	if len(parts) <= 1 {
		return []string{key}
	}
	seps := len(parts) - 1
	variants := make([]string, 0, 1<<seps)
	for mask := 0; mask < 1<<seps; mask++ {
		var b strings.Builder
		b.WriteString(parts[0])
		for i, p := range parts[1:] {
			if mask&(1<<i) != 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('_')
			}
			b.WriteString(p)
		}
		variants = append(variants, b.String())
	}
	return variants
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}
