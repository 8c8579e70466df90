package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the broker.
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BrokerConfig contains network-level settings for the TCP listener. This is
// the Config{port, idle_timeout} value the core Run entry point consumes.
type BrokerConfig struct {
	Port        uint16        `mapstructure:"port"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// MetricsConfig controls the Prometheus/diagnostics HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from environment variables and an optional config file.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("broker.port", 9000)
	v.SetDefault("broker.idle_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetConfigName("broker")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("BROKER")
	v.AutomaticEnv()

	// Attempt to read config file (optional)
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Broker.Port == 0 {
		cfg.Broker.Port = 9000
	}
	if cfg.Broker.IdleTimeout <= 0 {
		cfg.Broker.IdleTimeout = 10 * time.Second
	}

	return cfg, nil
}
