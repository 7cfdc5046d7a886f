package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slotsrv.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLOTSRV_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Jackpot.Floor != 10000 || cfg.JackpotRate().String() != "0.02" {
		t.Errorf("Unexpected jackpot defaults %+v", cfg.Jackpot)
	}
	if cfg.Legacy.Paytable.ThreeDiamonds != 90 {
		t.Errorf("Expected ThreeDiamonds 90, got %d", cfg.Legacy.Paytable.ThreeDiamonds)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
server:
  port: "9090"
  read_timeout: 5s
jackpot:
  floor: 500
  contribution_rate: "0.05"
legacy:
  paytable:
    three_of_kind: 6
    three_sevens: 50
    three_diamonds: 100
    mixed_bars: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Expected default write timeout kept, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Jackpot.Floor != 500 || cfg.Jackpot.ContributionRate != "0.05" {
		t.Errorf("Unexpected jackpot config %+v", cfg.Jackpot)
	}
	if cfg.Jackpot.Store != "memory" {
		t.Errorf("Expected default store memory, got %s", cfg.Jackpot.Store)
	}
	if cfg.Legacy.Paytable.ThreeDiamonds != 100 {
		t.Errorf("Expected ThreeDiamonds 100, got %d", cfg.Legacy.Paytable.ThreeDiamonds)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "server:\n  port: \"9090\"\n")
	t.Setenv("SLOTSRV_PORT", "7070")
	t.Setenv("SLOTSRV_JACKPOT_FLOOR", "2500")
	t.Setenv("SLOTSRV_AUTH_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Expected env port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Jackpot.Floor != 2500 {
		t.Errorf("Expected env floor 2500, got %d", cfg.Jackpot.Floor)
	}
	if !cfg.Auth.Enabled {
		t.Error("Expected auth enabled from env")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"RateTooHigh", func(c *Config) { c.Jackpot.ContributionRate = "1" }},
		{"RateZero", func(c *Config) { c.Jackpot.ContributionRate = "0" }},
		{"RateGarbage", func(c *Config) { c.Jackpot.ContributionRate = "two percent" }},
		{"NegativeFloor", func(c *Config) { c.Jackpot.Floor = -1 }},
		{"UnknownStore", func(c *Config) { c.Jackpot.Store = "etcd" }},
		{"PostgresStoreWithoutDB", func(c *Config) { c.Jackpot.Store = "postgres" }},
		{"UnknownSource", func(c *Config) { c.Machines.Source = "s3" }},
		{"FileSourceWithoutPath", func(c *Config) { c.Machines.File = "" }},
		{"PostgresSourceWithoutDB", func(c *Config) { c.Machines.Source = "postgres" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
