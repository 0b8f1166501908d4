package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/eris/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`
	Discord DiscordConfig `mapstructure:"discord" yaml:"discord"`
	Queue   QueueConfig   `mapstructure:"queue" yaml:"queue"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DiscordConfig struct {
	// PublicKey is the application's hex encoded Ed25519 key used to verify
	// interaction webhooks.
	PublicKey      string        `mapstructure:"public_key" yaml:"public_key"`
	BotToken       string        `mapstructure:"bot_token" yaml:"-"`
	ApplicationID  string        `mapstructure:"application_id" yaml:"application_id"`
	CommandsFile   string        `mapstructure:"commands_file" yaml:"commands_file"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

type QueueConfig struct {
	// CallTimeout bounds the handling of a single client action.
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	// OutboxSize is the capacity of the queue feeding the batcher.
	OutboxSize int `mapstructure:"outbox_size" yaml:"outbox_size"`
}

type BatchConfig struct {
	MaxSize int           `mapstructure:"max_size" yaml:"max_size"`
	MaxWait time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
}

type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

type RetryConfig struct {
	// MaxAttempts of zero retries forever.
	MaxAttempts     uint          `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

var defaults = map[string]any{
	"server.port":             "8080",
	"server.shutdown_timeout": "30s",
	"logging.level":           "info",
	"logging.format":          "text",
	"logging.output":          "stdout",
	"logging.file":            "eris.log",
	"logging.max_size_mb":     100,
	"logging.max_backups":     3,
	"logging.max_age_days":    28,
	"discord.public_key":      "",
	"discord.bot_token":       "",
	"discord.application_id":  "",
	"discord.commands_file":   "commands.yml",
	"discord.request_timeout": "10s",
	"queue.call_timeout":      "30s",
	"queue.outbox_size":       256,
	"batch.max_size":          20,
	"batch.max_wait":          "2s",
	"cache.ttl":               "10m",
	"cache.cleanup_interval":  "5m",
	"retry.max_attempts":      5,
	"retry.initial_interval":  "200ms",
	"retry.max_interval":      "10s",
	"metrics.enabled":         true,
}

// LoadConfig reads configuration from an optional eris.yaml and the
// environment, sets sensible defaults, and validates required fields.
// Environment variables use the key path with "_" as separator, e.g.
// DISCORD_PUBLIC_KEY or BATCH_MAX_WAIT.
func LoadConfig() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("eris")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/eris")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Discord.PublicKey == "" {
		errs = append(errs, errors.New("DISCORD_PUBLIC_KEY must be set"))
	} else if key, err := hex.DecodeString(c.Discord.PublicKey); err != nil || len(key) != 32 {
		errs = append(errs, errors.New("DISCORD_PUBLIC_KEY must be 32 hex encoded bytes"))
	}
	if c.Discord.BotToken == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN must be set"))
	}
	if _, err := strconv.ParseUint(c.Discord.ApplicationID, 10, 64); err != nil {
		errs = append(errs, errors.New("DISCORD_APPLICATION_ID must be a numeric id"))
	}
	if c.Batch.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("batch.max_size must be at least 1, got %d", c.Batch.MaxSize))
	}
	if c.Batch.MaxWait <= 0 {
		errs = append(errs, errors.New("batch.max_wait must be positive"))
	}
	if c.Queue.CallTimeout < 0 {
		errs = append(errs, errors.New("queue.call_timeout must not be negative"))
	}
	if c.Queue.OutboxSize < 1 {
		errs = append(errs, errors.New("queue.outbox_size must be at least 1"))
	}
	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		errs = append(errs, errors.New("retry.max_interval must not be shorter than retry.initial_interval"))
	}

	return errors.Join(errs...)
}
