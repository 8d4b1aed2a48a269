// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package config loads Harborlight configuration. Sources apply in order
// of increasing precedence: built-in defaults, an optional YAML file,
// HARBORLIGHT_* environment variables, then command-line flags.
package config

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Mail transports and access code stores.
const (
	MailTransportLog  = "log"
	MailTransportHTTP = "http"

	CodeStoreDatabase = "database"
	CodeStoreRedis    = "redis"
)

// Secret is a string that never appears in logs or JSON output.
type Secret string

const redacted = "[REDACTED]"

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Value returns the plaintext.
func (s Secret) Value() string {
	return string(s)
}

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Site     SiteConfig     `koanf:"site"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Redis    RedisConfig    `koanf:"redis"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Production reports whether internal error detail must be hidden.
func (s ServerConfig) Production() bool {
	return s.Environment == EnvProduction
}

// SiteConfig describes the public website that emails link to.
type SiteConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             Secret        `koanf:"url" validate:"required"`
	MaxConns        int32         `koanf:"max_conns" validate:"gte=0"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gte=0"`
	ConnectAttempts uint64        `koanf:"connect_attempts" validate:"gte=1"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// AuthConfig configures session tokens and access code storage.
type AuthConfig struct {
	JWTSecret  Secret        `koanf:"jwt_secret" validate:"required,min=32"`
	SessionTTL time.Duration `koanf:"session_ttl" validate:"gt=0"`
	CodeStore  string        `koanf:"code_store" validate:"oneof=database redis"`
}

// RedisConfig configures the Redis access code store.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  Secret `koanf:"password"`
	DB        int    `koanf:"db" validate:"gte=0"`
	KeyPrefix string `koanf:"key_prefix"`
}

// MailConfig configures transactional email.
type MailConfig struct {
	Transport       string        `koanf:"transport" validate:"oneof=log http"`
	Endpoint        string        `koanf:"endpoint" validate:"omitempty,url"`
	APIKey          Secret        `koanf:"api_key"`
	From            string        `koanf:"from" validate:"required"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxAttempts     uint64        `koanf:"max_attempts" validate:"gte=1"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout" validate:"gt=0"` // per background reset or code delivery
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			Environment:     EnvDevelopment,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Site: SiteConfig{BaseURL: "http://localhost:3000"},
		Database: DatabaseConfig{
			MaxConns:        10,
			ConnectTimeout:  5 * time.Second,
			ConnectAttempts: 5,
		},
		Auth: AuthConfig{
			SessionTTL: 7 * 24 * time.Hour,
			CodeStore:  CodeStoreDatabase,
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		Mail: MailConfig{
			Transport:   MailTransportLog,
			From:        "Harborlight <noreply@localhost>",
			Timeout:         10 * time.Second,
			MaxAttempts:     3,
			DeliveryTimeout: 45 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9090"},
	}
}
