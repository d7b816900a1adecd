package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Alijeyrad/hairai_backend/pkg/constants"
)

var GlobalConf *Config

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	setDefaults(v)

	// Allow env vars to override config values.
	// e.g. HAIRAI_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional in container deployments.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if os.Getenv(constants.EnvPrefix+"_DATABASE_HOST") == "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}

// setDefaults registers every key AutomaticEnv should see, even when the
// file omits it, plus the values the analysis pipeline relies on.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.body_limit_mb", 12)
	v.SetDefault("server.rate_limit.max", 60)
	v.SetDefault("server.rate_limit.window_seconds", 60)
	v.SetDefault("server.upload_rate_limit.max", 20)
	v.SetDefault("server.upload_rate_limit.window_seconds", 60)

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("queue.url", "")
	v.SetDefault("queue.name", "analysis_jobs")
	v.SetDefault("queue.prefetch_count", 10)
	v.SetDefault("queue.heartbeat_seconds", 60)
	v.SetDefault("queue.reconnect_max_tries", 5)
	v.SetDefault("queue.reconnect_initial_ms", 500)
	v.SetDefault("queue.reconnect_max_elapsed_seconds", 10)

	v.SetDefault("storage.driver", "s3")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")

	v.SetDefault("observability.service_name", constants.AppName)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
