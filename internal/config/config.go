// Package config loads application configuration from environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Posting  PostingConfig  `mapstructure:"posting"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// JWTConfig holds token verification configuration.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// AlertsConfig holds alert sweep thresholds in days.
type AlertsConfig struct {
	ExpiryEmitDays   int `mapstructure:"expiry_emit_days"`
	ExpiryHighDays   int `mapstructure:"expiry_high_days"`
	ExpiryMediumDays int `mapstructure:"expiry_medium_days"`
	StockHighDays    int `mapstructure:"stock_high_days"`
	StockMediumDays  int `mapstructure:"stock_medium_days"`
	UsageWindowDays  int `mapstructure:"usage_window_days"`
}

// WorkerConfig holds the background sweep worker configuration.
type WorkerConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PostingConfig holds accounting period configuration. Postings dated
// on or before ClosedBefore are rejected.
type PostingConfig struct {
	ClosedBefore time.Time `mapstructure:"closed_before"`
}

// Load reads configuration from LOTLINE_* environment variables and an
// optional config.yaml, applying development defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LOTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lotline")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadWithValidation loads configuration and fails fast when production
// is missing required values.
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.Server.Environment == "production" {
		if cfg.Database.URL == "" && cfg.Database.Host == "localhost" {
			return nil, errors.New("LOTLINE_DATABASE_URL must be set in production")
		}
		if cfg.JWT.Secret == "" || cfg.JWT.Secret == "dev-secret-change-in-production" {
			return nil, errors.New("LOTLINE_JWT_SECRET must be set to a secure value in production")
		}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "lotline")
	v.SetDefault("database.password", "devpassword")
	v.SetDefault("database.database", "lotline")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.secret", "dev-secret-change-in-production")
	v.SetDefault("jwt.issuer", "lotline")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("alerts.expiry_emit_days", 14)
	v.SetDefault("alerts.expiry_high_days", 3)
	v.SetDefault("alerts.expiry_medium_days", 7)
	v.SetDefault("alerts.stock_high_days", 3)
	v.SetDefault("alerts.stock_medium_days", 7)
	v.SetDefault("alerts.usage_window_days", 30)

	v.SetDefault("worker.sweep_interval", time.Hour)
}
