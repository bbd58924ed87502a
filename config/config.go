// Package config loads the application configuration tree: logging, the
// Redis turn-log backend, persona definition sources and pipeline settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/logging"
)

// Config is the application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Personas PersonasConfig `mapstructure:"personas"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | text
}

// RedisConfig configures the durable turn-log backend. An empty Addr disables
// the durable tier; every session then runs on the in-process summarizer.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PersonasConfig points at the persona definition sources.
type PersonasConfig struct {
	InstructionDir string `mapstructure:"instruction_dir"` // one <name>.md per persona
	File           string `mapstructure:"file"`            // personas + model_inputs tree
}

// PipelineConfig holds turn delivery settings.
type PipelineConfig struct {
	ModelTimeout    string `mapstructure:"model_timeout"`    // e.g. "5m"
	DefaultProvider string `mapstructure:"default_provider"` // used when a persona declares none
}

// Load reads the application configuration file with environment overrides
// (dots become underscores, e.g. REDIS_ADDR).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %v: %w", err, core.ErrConfigurationMissing)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadPersonaTree reads the persona definition tree (the "personas" and
// "model_inputs" sections) into its own viper instance for the resolver.
func LoadPersonaTree(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read persona tree: %v: %w", err, core.ErrConfigurationMissing)
	}
	return v, nil
}

// NewLogger builds the configured TurnLogger.
func (c *Config) NewLogger() *logging.TurnLogger {
	level := logging.LogLevelInfo
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	return logging.NewSlogLogger(level, c.Log.Format, false)
}

// NewRedisClient builds a client for the configured turn-log backend, or nil
// when no address is configured.
func (c *Config) NewRedisClient() redis.UniversalClient {
	if c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// ModelTimeout parses the configured timeout, zero when unset or invalid.
func (c *Config) ModelTimeout() time.Duration {
	if c.Pipeline.ModelTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Pipeline.ModelTimeout)
	if err != nil {
		return 0
	}
	return d
}
