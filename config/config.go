// Package config loads the demo server configuration from file,
// environment variables and defaults. The library itself takes explicit
// option structs; only the bundled server uses this loader.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ProviderConfig holds the credentials of one OAuth provider. A provider
// with an empty client id is not registered.
type ProviderConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// ServerConfig holds all configuration for the demo server.
type ServerConfig struct {
	HTTPPort           string `mapstructure:"HTTP_PORT"`
	BaseURL            string `mapstructure:"BASE_URL"`
	DefaultRedirectURL string `mapstructure:"DEFAULT_REDIRECT_URL"`

	// Storage selects the adapter: "memory", "mongodb" or "redis".
	Storage     string `mapstructure:"STORAGE"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	SessionStrategy  string `mapstructure:"SESSION_STRATEGY"`
	SessionMaxAgeMin int    `mapstructure:"SESSION_MAX_AGE_MIN"`
	JWTSecretKey     string `mapstructure:"JWT_SECRET_KEY"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	Google  ProviderConfig `mapstructure:"GOOGLE"`
	GitHub  ProviderConfig `mapstructure:"GITHUB"`
	Discord ProviderConfig `mapstructure:"DISCORD"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/authcore/")
	v.AddConfigPath("$HOME/.authcore")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080/auth")
	v.SetDefault("STORAGE", "memory")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "authcore_dev")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("SESSION_STRATEGY", "database")
	v.SetDefault("SESSION_MAX_AGE_MIN", 43200) // 30 days
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
