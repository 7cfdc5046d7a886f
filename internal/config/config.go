// Package config provides configuration management for the slot server
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alexbotov/slotsrv/internal/game"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the slot server
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Jackpot    JackpotConfig    `yaml:"jackpot"`
	Machines   MachinesConfig   `yaml:"machines"`
	Legacy     LegacyConfig     `yaml:"legacy"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// LargeWin is the win amount from which spins are audited.
	LargeWin int64 `yaml:"large_win"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
	Dir   string `yaml:"dir"`
	File  bool   `yaml:"file"`
}

// JackpotConfig holds progressive jackpot settings
type JackpotConfig struct {
	ID               string `yaml:"id"`
	Floor            int64  `yaml:"floor"`
	ContributionRate string `yaml:"contribution_rate"`
	// Store is one of memory, postgres or redis.
	Store string `yaml:"store"`
}

// MachinesConfig selects where universal machine definitions come from
type MachinesConfig struct {
	// Source is postgres or file.
	Source string `yaml:"source"`
	File   string `yaml:"file"`
}

// LegacyConfig holds the legacy machine multipliers
type LegacyConfig struct {
	Paytable game.LegacyPaytable `yaml:"paytable"`
}

// SimulationConfig holds RTP simulation defaults
type SimulationConfig struct {
	Spins   int    `yaml:"spins"`
	Seed    uint64 `yaml:"seed"`
	Batches int    `yaml:"batches"`
	Workers int    `yaml:"workers"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			LargeWin:     10000,
		},
		Database: DatabaseConfig{
			Enabled: false,
			Driver:  "postgres",
			DSN:     "host=localhost dbname=slotsrv sslmode=disable",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "slotsrv:jackpot:",
		},
		Auth: AuthConfig{
			Enabled:   false,
			JWTSecret: "slotsrv-dev-secret-change-in-production",
		},
		Log: LogConfig{
			Level: "info",
			Mode:  "dev",
			Dir:   "logs",
		},
		Jackpot: JackpotConfig{
			ID:               "main",
			Floor:            10000,
			ContributionRate: "0.02",
			Store:            "memory",
		},
		Machines: MachinesConfig{
			Source: "file",
			File:   "configs/machines.yaml",
		},
		Legacy: LegacyConfig{
			Paytable: game.DefaultLegacyPaytable(),
		},
		Simulation: SimulationConfig{
			Spins:   1000000,
			Seed:    1,
			Batches: 32,
			Workers: 4,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// SLOTSRV_* environment overrides, in that order. An empty path falls back
// to SLOTSRV_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SLOTSRV_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SLOTSRV_PORT", c.Server.Port)
	c.Database.Enabled = getEnvBool("SLOTSRV_DB_ENABLED", c.Database.Enabled)
	c.Database.Driver = getEnv("SLOTSRV_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("SLOTSRV_DB_DSN", c.Database.DSN)
	c.Redis.Addr = getEnv("SLOTSRV_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("SLOTSRV_REDIS_PASSWORD", c.Redis.Password)
	c.Auth.Enabled = getEnvBool("SLOTSRV_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.JWTSecret = getEnv("SLOTSRV_JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("SLOTSRV_LOG_LEVEL", c.Log.Level)
	c.Log.Mode = getEnv("SLOTSRV_LOG_MODE", c.Log.Mode)
	c.Jackpot.Floor = getEnvInt64("SLOTSRV_JACKPOT_FLOOR", c.Jackpot.Floor)
	c.Jackpot.ContributionRate = getEnv("SLOTSRV_JACKPOT_RATE", c.Jackpot.ContributionRate)
	c.Jackpot.Store = getEnv("SLOTSRV_JACKPOT_STORE", c.Jackpot.Store)
	c.Machines.Source = getEnv("SLOTSRV_MACHINES_SOURCE", c.Machines.Source)
	c.Machines.File = getEnv("SLOTSRV_MACHINES_FILE", c.Machines.File)
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	rate, err := decimal.NewFromString(c.Jackpot.ContributionRate)
	if err != nil {
		return fmt.Errorf("jackpot contribution rate %q: %w", c.Jackpot.ContributionRate, err)
	}
	if !rate.IsPositive() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("jackpot contribution rate %s outside (0, 1)", rate)
	}
	if c.Jackpot.Floor < 0 {
		return errors.New("jackpot floor must not be negative")
	}
	switch c.Jackpot.Store {
	case "memory", "redis":
	case "postgres":
		if !c.Database.Enabled {
			return errors.New("jackpot store postgres needs the database enabled")
		}
	default:
		return fmt.Errorf("unknown jackpot store %q", c.Jackpot.Store)
	}
	switch c.Machines.Source {
	case "file":
		if c.Machines.File == "" {
			return errors.New("machines file source needs a path")
		}
	case "postgres":
		if !c.Database.Enabled {
			return errors.New("machines source postgres needs the database enabled")
		}
	default:
		return fmt.Errorf("unknown machines source %q", c.Machines.Source)
	}
	return nil
}

// JackpotRate returns the parsed contribution rate
func (c *Config) JackpotRate() decimal.Decimal {
	return decimal.RequireFromString(c.Jackpot.ContributionRate)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
