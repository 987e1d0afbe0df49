package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults are registered for every key, including required ones, so
	// AutomaticEnv can resolve env-only values during Unmarshal. Required
	// keys default to the empty string and are caught by validation.
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TOME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A config file is optional; env vars may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.submit_rate_per_second", 10)
	v.SetDefault("server.submit_burst", 20)

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)

	v.SetDefault("scheduler.max_concurrent_tasks", 4)
	v.SetDefault("scheduler.max_queue_size", 1000)
	v.SetDefault("scheduler.default_timeout_seconds", 300)
	v.SetDefault("scheduler.cleanup_interval_seconds", 60)
	v.SetDefault("scheduler.retention_seconds", 3600)
	v.SetDefault("scheduler.default_max_retries", 3)
	v.SetDefault("scheduler.stop_grace_seconds", 30)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.result_ttl_seconds", 3600)

	v.SetDefault("maintenance.cron_spec", "@hourly")
	v.SetDefault("maintenance.prune_after_hours", 72)
}
