package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables read by Load,
// e.g. TASKBOSS_SERVER_PORT maps to the "server.port" key.
const envPrefix = "TASKBOSS"

// configKeys lists every known configuration key so that AutomaticEnv can
// resolve nested keys that have no default and appear in no config file.
var configKeys = []string{
	"server.port",
	"server.log_level",
	"database.url",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"auth.operator_id",
	"auth.operator_password_hash",
	"llm.gemini_api_key",
	"llm.model_name",
	"llm.call_timeout_seconds",
	"llm.max_retries",
	"llm.retry_delay_seconds",
	"notifier.bot_token",
	"notifier.chat_id",
	"notifier.general_topic_id",
	"notifier.poll_timeout_seconds",
	"scheduler.interval_minutes",
	"scheduler.worker_count",
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values. Returns a populated Config struct or an
// error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file; a missing file is not an error.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for every setting that has a sensible one.
// Secrets and connection strings deliberately have no default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("llm.model_name", "gemini-2.5-flash")
	v.SetDefault("llm.call_timeout_seconds", 20)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("notifier.poll_timeout_seconds", 30)
	v.SetDefault("scheduler.interval_minutes", 60)
	v.SetDefault("scheduler.worker_count", 4)
}
