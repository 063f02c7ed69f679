// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Domains   DomainsConfig   `mapstructure:"domains"`
	Content   ContentConfig   `mapstructure:"content"`
	Consumer  ConsumerConfig  `mapstructure:"consumer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	PageSize       int `mapstructure:"page_size"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// StorageConfig selects and configures the blob sink backend.
type StorageConfig struct {
	// Backend is one of "memory", "local", "gcs".
	Backend     string `mapstructure:"backend"`
	LocalDir    string `mapstructure:"local_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds the queue transport parameters. An empty project ID
// selects the in-process queue.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	TopicName    string `mapstructure:"topic_name"`
	Subscription string `mapstructure:"subscription"`
}

// GeneratorConfig governs pipeline behavior.
type GeneratorConfig struct {
	ArticlesPerCategory int `mapstructure:"articles_per_category"`
}

// DomainsConfig controls the verification stage.
type DomainsConfig struct {
	Workers        int     `mapstructure:"workers"`
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
	APILayerKey    string  `mapstructure:"apilayer_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// ContentConfig selects the article source.
type ContentConfig struct {
	NewsAPIKey string `mapstructure:"newsapi_key"`
	Language   string `mapstructure:"language"`
}

// ConsumerConfig controls claim/retry behavior and the stale-job sweep.
type ConsumerConfig struct {
	Workers           int `mapstructure:"workers"`
	MaxAttempts       int `mapstructure:"max_attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
	StaleAfterMinutes int `mapstructure:"stale_after_minutes"`
	SweepMinutes      int `mapstructure:"sweep_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("server.page_size", 20)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.prefix", "sites")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("generator.articles_per_category", 4)
	v.SetDefault("domains.workers", 4)
	v.SetDefault("domains.rps", 2.0)
	v.SetDefault("domains.burst", 2)
	v.SetDefault("domains.timeout_seconds", 15)
	v.SetDefault("content.language", "es")
	v.SetDefault("consumer.workers", 2)
	v.SetDefault("consumer.max_attempts", 5)
	v.SetDefault("consumer.retry_delay_seconds", 30)
	v.SetDefault("consumer.stale_after_minutes", 15)
	v.SetDefault("consumer.sweep_minutes", 5)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Storage.Backend {
	case "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	if c.PubSub.ProjectID != "" {
		if c.PubSub.TopicName == "" || c.PubSub.Subscription == "" {
			return fmt.Errorf("pubsub.topic_name and pubsub.subscription must be set with a project id")
		}
	}
	if c.Domains.Workers <= 0 {
		return fmt.Errorf("domains.workers must be > 0")
	}
	if c.Domains.RPS <= 0 {
		return fmt.Errorf("domains.rps must be > 0")
	}
	if c.Consumer.Workers <= 0 {
		return fmt.Errorf("consumer.workers must be > 0")
	}
	if c.Consumer.MaxAttempts <= 0 {
		return fmt.Errorf("consumer.max_attempts must be > 0")
	}
	return nil
}

// RequestTimeout converts the server timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// RetryDelay converts the consumer redelivery hint into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Consumer.RetryDelaySeconds) * time.Second
}

// StaleAfter converts the stuck-job threshold into a duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.Consumer.StaleAfterMinutes) * time.Minute
}

// SweepInterval converts the sweep cadence into a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Consumer.SweepMinutes) * time.Minute
}
