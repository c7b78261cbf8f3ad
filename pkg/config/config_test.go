package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB != ".timebank/timebank.db" || cfg.Backend != "sqlite" {
		t.Fatalf("storage defaults = %q %q", cfg.DB, cfg.Backend)
	}
	if cfg.History != 20 || cfg.Tick != time.Second {
		t.Fatalf("history=%d tick=%s", cfg.History, cfg.Tick)
	}
	if cfg.InterestRate != 0.001 || cfg.RewardPolicy != "flat" || cfg.Overdraft != "auto_stop" {
		t.Fatalf("engine defaults = %+v", cfg)
	}
	if cfg.Logger.Level != "warn" || cfg.Logger.Encoding != "console" {
		t.Fatalf("logger defaults = %+v", cfg.Logger)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TIMEBANK_BACKEND", "bolt")
	t.Setenv("TIMEBANK_OVERDRAFT", "penalty")
	t.Setenv("TIMEBANK_INTEREST_RATE", "0.3")
	t.Setenv("TIMEBANK_TICK", "250ms")
	t.Setenv("TIMEBANK_LOG_ENCODING", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "bolt" || cfg.Overdraft != "penalty" || cfg.InterestRate != 0.3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Tick != 250*time.Millisecond || cfg.Logger.Encoding != "json" {
		t.Fatalf("tick=%s encoding=%s", cfg.Tick, cfg.Logger.Encoding)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, ".env", "TIMEBANK_REWARD_POLICY=early_bonus\nTIMEBANK_HISTORY=5\n")
	t.Setenv("TIMEBANK_HISTORY", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RewardPolicy != "early_bonus" {
		t.Fatalf("policy from .env = %q", cfg.RewardPolicy)
	}
	if cfg.History != 7 {
		t.Fatalf("environment should win over .env, history = %d", cfg.History)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("TIMEBANK_HISTORY", "lots")

	var cfg Config
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DB:           "x.db",
			Backend:      "sqlite",
			RewardPolicy: "flat",
			Overdraft:    "auto_stop",
			InterestRate: 0.001,
			Tick:         time.Second,
			Logger:       LoggerConfig{Level: "warn", Encoding: "console"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero rate", func(c *Config) { c.InterestRate = 0 }, ""},
		{"backend", func(c *Config) { c.Backend = "postgres" }, "TIMEBANK_BACKEND"},
		{"empty db", func(c *Config) { c.DB = "" }, "TIMEBANK_DB"},
		{"policy", func(c *Config) { c.RewardPolicy = "double" }, "TIMEBANK_REWARD_POLICY"},
		{"overdraft", func(c *Config) { c.Overdraft = "credit" }, "TIMEBANK_OVERDRAFT"},
		{"negative rate", func(c *Config) { c.InterestRate = -0.1 }, "TIMEBANK_INTEREST_RATE"},
		{"zero tick", func(c *Config) { c.Tick = 0 }, "TIMEBANK_TICK"},
		{"encoding", func(c *Config) { c.Logger.Encoding = "xml" }, "TIMEBANK_LOG_ENCODING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func writeFile(t *testing.T, name, body string) {
	t.Helper()
	if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
