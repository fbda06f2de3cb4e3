package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
	Mode string `yaml:"mode"` // gin mode: debug, release or test.
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // PostgreSQL DSN or SQLite path.
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret           string `yaml:"secret"`
	UserExpiryHours  int    `yaml:"user_expiry_hours"`
	AdminExpiryHours int    `yaml:"admin_expiry_hours"`
}

// UserExpiry returns the user token lifetime.
func (c JWTConfig) UserExpiry() time.Duration {
	hours := c.UserExpiryHours
	if hours <= 0 {
		hours = 72
	}
	return time.Duration(hours) * time.Hour
}

// AdminExpiry returns the admin token lifetime.
func (c JWTConfig) AdminExpiry() time.Duration {
	hours := c.AdminExpiryHours
	if hours <= 0 {
		hours = 12
	}
	return time.Duration(hours) * time.Hour
}

// RedisConfig holds the guest cart store settings. An empty Addr disables the
// server-side guest cart.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmailConfig holds verification mail settings. An empty API key selects the
// no-op sender.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // When set, logs rotate via lumberjack.
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// BootstrapConfig seeds the first super admin when the admins table is empty.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ResolveConfigPath picks the config file path from the argument or environment.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("STOREFRONT_CONFIG")); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads the YAML config file and applies environment overrides. A missing
// file is not an error; defaults and environment values apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, errRead := os.ReadFile(path)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("config: jwt secret is required")
	}

	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_REDIS_PASSWORD")); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_REDIS_DB")); v != "" {
		if parsed, errParse := strconv.Atoi(v); errParse == nil {
			cfg.Redis.DB = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")); v != "" {
		cfg.Email.SendGridAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}

// applyDefaults fills unset values with sensible defaults.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.Server.Mode) == "" {
		cfg.Server.Mode = "release"
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = "file:data/storefront.db"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 5
	}
	if strings.TrimSpace(cfg.Email.FromAddress) == "" {
		cfg.Email.FromAddress = "noreply@jjgames.example"
	}
	if strings.TrimSpace(cfg.Email.FromName) == "" {
		cfg.Email.FromName = "JJ Games"
	}
}
