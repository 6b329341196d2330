// Package config loads application configuration from ledgerdesk.yaml,
// environment variables (LEDGERDESK_*), and defaults, in that order of
// increasing precedence for env over file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the full application configuration.
type Config struct {
	// DataDir holds the local store and logs. Defaults to
	// ~/.ledgerdesk.
	DataDir string `mapstructure:"data_dir"`

	// LocalStore selects the key-value backend: sqlite, file, or
	// memory.
	LocalStore string `mapstructure:"local_store"`

	Remote    RemoteConfig   `mapstructure:"remote"`
	Server    ServerConfig   `mapstructure:"server"`
	Reminders ReminderConfig `mapstructure:"reminders"`
	AMQP      AMQPConfig     `mapstructure:"amqp"`
	Pricing   PricingConfig  `mapstructure:"pricing"`
	Log       LogConfig      `mapstructure:"log"`
}

// RemoteConfig points at the hosted document store. Leave URL empty to
// run local-only.
type RemoteConfig struct {
	URL          string        `mapstructure:"url"`
	AuthToken    string        `mapstructure:"auth_token"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

// ServerConfig configures the UI gateway.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ReminderConfig configures the event reminder scheduler.
type ReminderConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Location     string        `mapstructure:"location"`
}

// AMQPConfig configures reminder fan-out over a message broker. Leave
// URL empty to log reminders locally instead.
type AMQPConfig struct {
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	Queue      string `mapstructure:"queue"`
	RoutingKey string `mapstructure:"routing_key"`
}

// PricingConfig configures the price suggestion client.
type PricingConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Currency string `mapstructure:"currency"`
	Region   string `mapstructure:"region"`
}

// LogConfig configures rotating file logging. An empty File disables
// it and logs go to stderr only.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration. configFile may be empty, in which case
// ledgerdesk.yaml is searched in the working directory and DataDir.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	defaultDataDir := filepath.Join(home, ".ledgerdesk")

	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("local_store", "sqlite")
	v.SetDefault("remote.sync_interval", time.Minute)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.poll_interval", time.Minute)
	v.SetDefault("reminders.location", "Local")
	v.SetDefault("amqp.exchange", "ledgerdesk")
	v.SetDefault("amqp.queue", "reminders")
	v.SetDefault("amqp.routing_key", "reminder.fired")
	v.SetDefault("pricing.currency", "EUR")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ledgerdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultDataDir)
	}

	v.SetEnvPrefix("LEDGERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys with no default are invisible to Unmarshal unless bound;
	// AutomaticEnv alone does not enumerate env-only keys.
	for _, key := range []string{
		"remote.url",
		"remote.auth_token",
		"amqp.url",
		"pricing.api_key",
		"pricing.region",
		"log.file",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine, defaults and env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LocalStore {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("invalid local_store %q (want sqlite, file, or memory)", c.LocalStore)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Reminders.PollInterval <= 0 {
		return fmt.Errorf("reminders poll_interval must be positive")
	}
	return nil
}

// LogWriter returns the destination for application logs: a rotating
// file when configured, stderr otherwise.
func (c *Config) LogWriter() io.Writer {
	if c.Log.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		Compress:   true,
	}
}

// NewLogger returns a logger with the given bracketed prefix writing
// to the configured destination.
func (c *Config) NewLogger(prefix string) *log.Logger {
	return log.New(c.LogWriter(), "["+prefix+"] ", log.LstdFlags)
}

// TimeLocation resolves the configured reminder time zone.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Reminders.Location == "" || c.Reminders.Location == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Reminders.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid reminders location %q: %w", c.Reminders.Location, err)
	}
	return loc, nil
}
