// Package config loads runtime settings.
//
// LAYERS, lowest priority first:
//  1. Default()                 built-in values
//  2. YAML file (--config)      optional
//  3. Environment variables     TRAILDIARY_DB_PATH, TRAILDIARY_PREFS_PATH,
//     PORT, JWT_SECRET, TRAILDIARY_TOKEN_TTL, TRAILDIARY_BCRYPT_COST, LOG_LEVEL
//  4. Command-line flags        applied by cmd/traildiary after Load
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath     string        `yaml:"db_path"`
	PrefsPath  string        `yaml:"prefs_path"`
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
	LogLevel   string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		DBPath:    "data/traildiary.db",
		PrefsPath: "data/prefs.yaml",
		Port:      8080,
		TokenTTL:  24 * time.Hour,
		LogLevel:  "info",
	}
}

// Load returns the defaults overlaid with the file at path (skipped when
// path is empty) and then the environment. It does not validate; callers
// apply their flags first and then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config: %s does not exist", path)
			}
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TRAILDIARY_DB_PATH"); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup("TRAILDIARY_PREFS_PATH"); ok && v != "" {
		c.PrefsPath = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		c.Port = port
	}
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		c.JWTSecret = v
	}
	if v, ok := lookup("TRAILDIARY_TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid TRAILDIARY_TOKEN_TTL %q", v)
		}
		c.TokenTTL = d
	}
	if v, ok := lookup("TRAILDIARY_BCRYPT_COST"); ok && v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid TRAILDIARY_BCRYPT_COST %q", v)
		}
		c.BcryptCost = cost
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks what every command needs. The JWT secret is only
// required to serve, so it is checked by ValidateServe.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: db_path is required")
	}
	if c.TokenTTL < 0 {
		return errors.New("config: token_ttl must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: jwt_secret must be at least 16 characters (JWT_SECRET=$(openssl rand -hex 32))")
	}
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}
