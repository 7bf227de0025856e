// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Selection policy names accepted in dispatch.policy.
const (
	PolicyLeastLoaded = "least_loaded"
	PolicyFixed       = "fixed"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Workers  []WorkerSpec   `mapstructure:"workers"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores, which is the development default.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DispatchConfig selects the worker selection policy.
type DispatchConfig struct {
	Policy string `mapstructure:"policy"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// WorkerSpec identifies one configured capture worker.
type WorkerSpec struct {
	Nickname  string `mapstructure:"nickname"`
	Root      string `mapstructure:"root"`
	AuthToken string `mapstructure:"auth_token"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("dispatch.policy", PolicyLeastLoaded)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values. An empty worker set is a startup error,
// not something to discover on the first dispatch.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker must be configured")
	}
	for i, w := range c.Workers {
		if w.Nickname == "" {
			return fmt.Errorf("workers[%d].nickname must be set", i)
		}
		if w.Root == "" {
			return fmt.Errorf("workers[%d].root must be set", i)
		}
	}
	switch c.Dispatch.Policy {
	case PolicyLeastLoaded, PolicyFixed:
	default:
		return fmt.Errorf("dispatch.policy must be %q or %q", PolicyLeastLoaded, PolicyFixed)
	}
	return nil
}
