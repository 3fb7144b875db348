// Package config loads engine settings from defaults, an optional config
// file and GOMDX_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "GOMDX_"

// Config holds engine settings.
type Config struct {
	// MaxConstraints bounds the predicate entries of one aggregation.
	MaxConstraints int `mapstructure:"max_constraints"`
	// MaxDepth limits nested calculated member expansion.
	MaxDepth int `mapstructure:"max_depth"`
	// EvalTimeout bounds one evaluation. Zero disables the timeout.
	EvalTimeout time.Duration `mapstructure:"eval_timeout"`
	// ResolveCacheSize is the capacity of the compiled expression cache.
	ResolveCacheSize int `mapstructure:"resolve_cache_size"`
	// Workers is the size of the grid evaluation pool.
	Workers int           `mapstructure:"workers"`
	Log     LogConfig     `mapstructure:"log"`
	Dialect DialectConfig `mapstructure:"dialect"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // DEBUG, INFO, WARN, ERROR
	Format string `mapstructure:"format"` // json, text
}

// DialectConfig describes the backing store.
type DialectConfig struct {
	UnlimitedValueList bool `mapstructure:"unlimited_value_list"`
}

// SupportsUnlimitedValueList implements olap.Dialect.
func (d DialectConfig) SupportsUnlimitedValueList() bool { return d.UnlimitedValueList }

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxConstraints:   1000,
		MaxDepth:         1000,
		EvalTimeout:      30 * time.Second,
		ResolveCacheSize: 512,
		Workers:          8,
		Log:              LogConfig{Level: "INFO", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("max_constraints", d.MaxConstraints)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("eval_timeout", d.EvalTimeout)
	v.SetDefault("resolve_cache_size", d.ResolveCacheSize)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("dialect.unlimited_value_list", d.Dialect.UnlimitedValueList)
}

// Load reads settings. file may be empty; a missing file is not an error.
// Environment variables override the file: GOMDX_MAX_CONSTRAINTS sets
// max_constraints and GOMDX_LOG__LEVEL sets log.level.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to read config %s: %w", file, err)
			}
		}
	}

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		v.Set(envKey(strings.TrimPrefix(key, EnvPrefix)), value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps an environment suffix to a config key. A double underscore
// separates sections; a single one is part of the key name.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MaxConstraints < 0:
		return fmt.Errorf("max_constraints must not be negative, got %d", c.MaxConstraints)
	case c.MaxDepth < 0:
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	case c.EvalTimeout < 0:
		return fmt.Errorf("eval_timeout must not be negative, got %s", c.EvalTimeout)
	case c.ResolveCacheSize < 1:
		return fmt.Errorf("resolve_cache_size must be positive, got %d", c.ResolveCacheSize)
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}
