// FILE: internal/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "REVERSI"

type Config struct {
	APIHost             string   `mapstructure:"API_HOST"`
	APIPort             int      `mapstructure:"API_PORT"`
	Dev                 bool     `mapstructure:"DEV"`
	StoragePath         string   `mapstructure:"STORAGE_PATH"` // Empty disables persistence
	RedisURL            string   `mapstructure:"REDIS_URL"`    // Empty uses the in-process replay cache
	ScorerPath          string   `mapstructure:"SCORER_PATH"`  // Empty uses the built-in scorer
	ScorerArgs          []string `mapstructure:"SCORER_ARGS"`
	EngineBudgetMS      int      `mapstructure:"ENGINE_BUDGET_MS"`
	EngineLoadTimeoutMS int      `mapstructure:"ENGINE_LOAD_TIMEOUT_MS"`
	MaxGames            int      `mapstructure:"MAX_GAMES"`
	ReplayCacheSize     int      `mapstructure:"REPLAY_CACHE_SIZE"`
}

var defaults = map[string]any{
	"API_HOST":               "localhost",
	"API_PORT":               8080,
	"DEV":                    false,
	"STORAGE_PATH":           "",
	"REDIS_URL":              "",
	"SCORER_PATH":            "",
	"SCORER_ARGS":            []string{},
	"ENGINE_BUDGET_MS":       1000,
	"ENGINE_LOAD_TIMEOUT_MS": 5000,
	"MAX_GAMES":              1000,
	"REPLAY_CACHE_SIZE":      10000,
}

// Setup reads an optional config file, then REVERSI_* environment overrides
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("invalid API_PORT: %d", c.APIPort)
	}
	if c.EngineBudgetMS < 100 || c.EngineBudgetMS > 10000 {
		return fmt.Errorf("ENGINE_BUDGET_MS must be within 100..10000, got %d", c.EngineBudgetMS)
	}
	if c.EngineLoadTimeoutMS < 1 {
		return fmt.Errorf("invalid ENGINE_LOAD_TIMEOUT_MS: %d", c.EngineLoadTimeoutMS)
	}
	if c.MaxGames < 1 {
		return fmt.Errorf("invalid MAX_GAMES: %d", c.MaxGames)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func (c *Config) EngineBudget() time.Duration {
	return time.Duration(c.EngineBudgetMS) * time.Millisecond
}

func (c *Config) EngineLoadTimeout() time.Duration {
	return time.Duration(c.EngineLoadTimeoutMS) * time.Millisecond
}
