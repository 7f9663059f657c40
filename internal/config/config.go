// Package config provides configuration loading and validation for the Farlance server.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/farlance/internal/schemas"
)

//go:embed config.schema.json
var configSchema []byte

// Config represents the server configuration. Values come from an optional
// JSON file and are then overridden by environment variables.
type Config struct {
	Port        int    `json:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	AppURL      string `json:"app_url,omitempty"` // Public origin used to build deep links
	LogLevel    string `json:"log_level,omitempty"`
	LogFormat   string `json:"log_format,omitempty"` // json or text

	Database DatabaseConfig `json:"database"`
	Identity APIConfig      `json:"identity"`
	Notify   NotifyConfig   `json:"notify"`
	Session  SessionConfig  `json:"session"`
}

// DatabaseConfig controls how the server connects at startup.
type DatabaseConfig struct {
	ConnectAttempts uint     `json:"connect_attempts,omitempty"`
	ConnectDelay    Duration `json:"connect_delay,omitempty"`
}

// APIConfig describes an outbound JSON API.
type APIConfig struct {
	BaseURL string   `json:"base_url,omitempty"`
	APIKey  string   `json:"api_key,omitempty"`
	Timeout Duration `json:"timeout,omitempty"`
}

// NotifyConfig describes the push-delivery API and fan-out behavior.
type NotifyConfig struct {
	APIConfig
	Concurrency int `json:"concurrency,omitempty"` // Parallel deliveries per fan-out; 1 is sequential
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieName   string `json:"cookie_name,omitempty"`
	CookieSecure bool   `json:"cookie_secure,omitempty"`
}

// Duration is a time.Duration that unmarshals from a Go duration string.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Port:      8080,
		AppURL:    "http://localhost:3000",
		LogLevel:  "info",
		LogFormat: "json",
		Database: DatabaseConfig{
			ConnectAttempts: 5,
			ConnectDelay:    Duration(time.Second),
		},
		Identity: APIConfig{
			BaseURL: "https://api.neynar.com",
			Timeout: Duration(10 * time.Second),
		},
		Notify: NotifyConfig{
			APIConfig: APIConfig{
				BaseURL: "https://api.neynar.com",
				Timeout: Duration(10 * time.Second),
			},
			Concurrency: 1,
		},
		Session: SessionConfig{
			CookieName:   "farlance_session",
			CookieSecure: true,
		},
	}
}

// LoadConfig loads configuration from a JSON file, validating it against the
// embedded schema. Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := schemas.Validate(filepath.Base(path), configSchema, data); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: defaults, then the optional file
// at path, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *fileCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.AppURL, "APP_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Identity.BaseURL, "IDENTITY_API_URL")
	setString(&c.Identity.APIKey, "IDENTITY_API_KEY")
	setString(&c.Notify.BaseURL, "NOTIFY_API_URL")
	setString(&c.Notify.APIKey, "NOTIFY_API_KEY")
	setString(&c.Session.CookieName, "SESSION_COOKIE_NAME")

	if err := setInt(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Notify.Concurrency, "NOTIFY_CONCURRENCY"); err != nil {
		return err
	}
	if err := setDuration(&c.Notify.Timeout, "NOTIFY_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Identity.Timeout, "IDENTITY_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Database.ConnectDelay, "DB_CONNECT_DELAY"); err != nil {
		return err
	}
	if v := os.Getenv("DB_CONNECT_ATTEMPTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_CONNECT_ATTEMPTS: %v", err)
		}
		c.Database.ConnectAttempts = uint(n)
	}
	if v := os.Getenv("SESSION_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_COOKIE_SECURE: %v", err)
		}
		c.Session.CookieSecure = b
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port out of range: %d", c.Port)
	}
	if _, err := url.ParseRequestURI(c.AppURL); err != nil {
		return fmt.Errorf("config error: invalid app_url %q: %w", c.AppURL, err)
	}
	if c.Notify.Concurrency < 1 {
		return fmt.Errorf("config error: notify concurrency must be at least 1, got %d", c.Notify.Concurrency)
	}
	if c.Database.ConnectAttempts < 1 {
		return fmt.Errorf("config error: database connect_attempts must be at least 1")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("config error: session cookie name cannot be empty")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", key, err)
	}
	*dst = Duration(d)
	return nil
}
