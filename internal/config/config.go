package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Matching MatchingConfig `mapstructure:"matching"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	AccessSecret string        `mapstructure:"access_secret"`
	CallSecret   string        `mapstructure:"call_secret"`
	MediaAPIKey  string        `mapstructure:"media_api_key"`
	CallTTL      time.Duration `mapstructure:"call_ttl"`
}

type MatchingConfig struct {
	// HeartbeatRPS bounds one client's poll frequency.
	HeartbeatRPS   float64 `mapstructure:"heartbeat_rps"`
	HeartbeatBurst int     `mapstructure:"heartbeat_burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdown_grace", 5*time.Second)
	viper.SetDefault("auth.call_ttl", time.Hour)
	viper.SetDefault("matching.heartbeat_rps", 2.0)
	viper.SetDefault("matching.heartbeat_burst", 5)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
