// Package config resolves runtime settings from the environment.
//
// Values come from TIMEBANK_* variables, optionally seeded from a .env file
// in the working directory. Variables already set in the environment win
// over the file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/daviddao/timebank/pkg/bank"
	"github.com/daviddao/timebank/pkg/store"
	"github.com/daviddao/timebank/pkg/task"
)

// Config aggregates the settings of the tb CLI.
type Config struct {
	DB      string `env:"TIMEBANK_DB" envDefault:".timebank/timebank.db"`
	Backend string `env:"TIMEBANK_BACKEND" envDefault:"sqlite"`
	// History is the number of past snapshots kept; negative disables it.
	History int `env:"TIMEBANK_HISTORY" envDefault:"20"`

	Logger LoggerConfig

	RewardPolicy string        `env:"TIMEBANK_REWARD_POLICY" envDefault:"flat"`
	Overdraft    string        `env:"TIMEBANK_OVERDRAFT" envDefault:"auto_stop"`
	InterestRate float64       `env:"TIMEBANK_INTEREST_RATE" envDefault:"0.001"`
	Tick         time.Duration `env:"TIMEBANK_TICK" envDefault:"1s"`
}

// LoggerConfig selects the log level and encoder.
type LoggerConfig struct {
	Level    string `env:"TIMEBANK_LOG_LEVEL" envDefault:"warn"`
	Encoding string `env:"TIMEBANK_LOG_ENCODING" envDefault:"console"`
}

// Load reads configuration from the environment (optionally .env) and
// validates it.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv fills target from environment variables using its env tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.Backend {
	case store.BackendSQLite, store.BackendBolt:
	default:
		return fmt.Errorf("TIMEBANK_BACKEND: unknown backend %q", c.Backend)
	}
	if c.DB == "" {
		return fmt.Errorf("TIMEBANK_DB: empty path")
	}
	if _, err := task.PolicyByName(c.RewardPolicy); err != nil {
		return fmt.Errorf("TIMEBANK_REWARD_POLICY: %w", err)
	}
	if _, err := bank.ParseOverdraft(c.Overdraft); err != nil {
		return fmt.Errorf("TIMEBANK_OVERDRAFT: %w", err)
	}
	if c.InterestRate < 0 {
		return fmt.Errorf("TIMEBANK_INTEREST_RATE: negative rate %v", c.InterestRate)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("TIMEBANK_TICK: interval must be positive, got %s", c.Tick)
	}
	switch c.Logger.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("TIMEBANK_LOG_ENCODING: unknown encoding %q", c.Logger.Encoding)
	}
	return nil
}
