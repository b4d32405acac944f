// Package config loads and validates application configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Chat          ChatConfig          `yaml:"chat"`
	Store         StoreConfig         `yaml:"store"`
	Alerts        AlertsConfig        `yaml:"alerts"`
	Reminders     RemindersConfig     `yaml:"reminders"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ChatConfig describes the chat platform connection. The bot token and
// webhook secret are read from the environment, never from the file.
type ChatConfig struct {
	APIBaseURL       string        `yaml:"api_base_url"`
	BotTokenEnv      string        `yaml:"bot_token_env"`
	WebhookSecretEnv string        `yaml:"webhook_secret_env"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// StoreConfig describes work-order and reminder persistence.
type StoreConfig struct {
	Driver          string        `yaml:"driver"` // memory | postgres
	DSNEnv          string        `yaml:"dsn_env"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AlertsConfig describes the deadline monitor and its dedup store.
type AlertsConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	DedupDriver   string        `yaml:"dedup_driver"` // memory | redis
	RedisAddrEnv  string        `yaml:"redis_addr_env"`
	RedisDB       int           `yaml:"redis_db"`
}

// RemindersConfig describes the reminder scheduler.
type RemindersConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// Grace is how far in the past a new reminder's fire time may lie
	// before it is rejected, absorbing clock and delivery skew.
	Grace time.Duration `yaml:"grace"`
}

// ObservabilityConfig describes logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Chat: ChatConfig{
			APIBaseURL:       "https://api.telegram.org",
			BotTokenEnv:      "WORKDESK_BOT_TOKEN",
			WebhookSecretEnv: "WORKDESK_WEBHOOK_SECRET",
			RequestTimeout:   10 * time.Second,
		},
		Store: StoreConfig{
			Driver:          "memory",
			DSNEnv:          "WORKDESK_STORE_DSN",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Alerts: AlertsConfig{
			SweepInterval: 1 * time.Hour,
			DedupDriver:   "memory",
			RedisAddrEnv:  "WORKDESK_REDIS_ADDR",
		},
		Reminders: RemindersConfig{
			PollInterval: 30 * time.Second,
			Grace:        5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Chat.APIBaseURL == "" {
		errs = append(errs, "chat.api_base_url is required")
	}
	if c.Chat.BotTokenEnv == "" {
		errs = append(errs, "chat.bot_token_env is required")
	}
	switch c.Store.Driver {
	case "memory", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	switch c.Alerts.DedupDriver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("alerts.dedup_driver %q is not supported", c.Alerts.DedupDriver))
	}
	if c.Alerts.SweepInterval <= 0 {
		errs = append(errs, "alerts.sweep_interval must be positive")
	}
	if c.Reminders.PollInterval <= 0 {
		errs = append(errs, "reminders.poll_interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads WORKDESK_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKDESK_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WORKDESK_CHAT_API_BASE_URL"); v != "" {
		cfg.Chat.APIBaseURL = v
	}
	if v := os.Getenv("WORKDESK_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("WORKDESK_ALERTS_DEDUP_DRIVER"); v != "" {
		cfg.Alerts.DedupDriver = v
	}
	if v := os.Getenv("WORKDESK_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
