package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Auth   AuthConfig   `yaml:"auth"`
	Ledger LedgerConfig `yaml:"ledger"`
	MCP    MCPConfig    `yaml:"mcp"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the slog handler. An empty Path logs to stdout;
// otherwise the file is rotated by size.
type LogConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

// LedgerConfig tunes the ledger guard and the pending-vote reconciler.
type LedgerConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	Retries           int           `yaml:"retries"`
	Backoff           time.Duration `yaml:"backoff"`
	FailureThreshold  uint32        `yaml:"failure_threshold"`
	OpenTimeout       time.Duration `yaml:"open_timeout"`
	LeaseTTL          time.Duration `yaml:"lease_ttl"`
	ReconcileSchedule string        `yaml:"reconcile_schedule"`
}

type MCPConfig struct {
	Enabled        bool          `yaml:"enabled"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		DB: DBConfig{
			Path: "tally.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Ledger: LedgerConfig{
			Timeout:           5 * time.Second,
			Retries:           2,
			Backoff:           100 * time.Millisecond,
			FailureThreshold:  5,
			OpenTimeout:       10 * time.Second,
			LeaseTTL:          2 * time.Minute,
			ReconcileSchedule: "@every 30s",
		},
		MCP: MCPConfig{
			Enabled:        true,
			SessionTimeout: 30 * time.Minute,
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// and environment variables, in that order of increasing precedence.
func Load() (Config, error) {
	envFile := os.Getenv("TALLY_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("TALLY_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (TALLY_JWT_SECRET) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return errors.New("auth.admin_email and auth.admin_password must be set together")
	}
	if c.Ledger.Retries < 0 {
		return fmt.Errorf("invalid ledger retries %d", c.Ledger.Retries)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString("TALLY_SERVER_HOST", &cfg.Server.Host)
	setString("TALLY_DB_PATH", &cfg.DB.Path)
	setString("TALLY_LOG_LEVEL", &cfg.Log.Level)
	setString("TALLY_LOG_PATH", &cfg.Log.Path)
	setString("TALLY_JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("TALLY_ADMIN_EMAIL", &cfg.Auth.AdminEmail)
	setString("TALLY_ADMIN_PASSWORD", &cfg.Auth.AdminPassword)
	setString("TALLY_RECONCILE_SCHEDULE", &cfg.Ledger.ReconcileSchedule)

	if v := os.Getenv("TALLY_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TALLY_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TALLY_MCP_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TALLY_MCP_ENABLED: %w", err)
		}
		cfg.MCP.Enabled = enabled
	}

	durations := map[string]*time.Duration{
		"TALLY_TOKEN_TTL":      &cfg.Auth.TokenTTL,
		"TALLY_LEDGER_TIMEOUT": &cfg.Ledger.Timeout,
		"TALLY_LEASE_TTL":      &cfg.Ledger.LeaseTTL,
	}
	for name, dst := range durations {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
	}

	return nil
}

func setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
