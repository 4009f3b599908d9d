// Package config loads the connection settings of the WaniKani client from
// environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. WANIKANI_API_TOKEN.
const EnvPrefix = "WANIKANI_API"

// Config holds all client configuration.
type Config struct {
	Store StoreConfig `mapstructure:"store" validate:"required"`
	API   APIConfig   `mapstructure:"api" validate:"required"`
	Log   LogConfig   `mapstructure:"log" validate:"required"`
}

// StoreConfig selects the document store. See cache.Open for URI schemes.
type StoreConfig struct {
	URI string `mapstructure:"uri" validate:"required"`
}

// APIConfig contains the WaniKani API settings.
type APIConfig struct {
	Token     string        `mapstructure:"token" validate:"required"`
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Revision  string        `mapstructure:"revision" validate:"required"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn warning error"`
	Pretty bool   `mapstructure:"pretty"`
}

var defaults = map[string]any{
	"store.uri":      cache.DefaultURI,
	"api.token":      "",
	"api.base_url":   client.DefaultBaseURL,
	"api.revision":   client.DefaultRevision,
	"api.user_agent": client.DefaultUserAgent,
	"api.timeout":    30 * time.Second,
	"log.level":      "info",
	"log.pretty":     false,
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load("")
}

// LoadFile reads the configuration from a YAML file. Environment variables
// take precedence over file values.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is empty")
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ClientConfig returns the API client settings.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.API.Token)
	cfg.BaseURL = c.API.BaseURL
	cfg.Revision = c.API.Revision
	cfg.UserAgent = c.API.UserAgent
	cfg.Timeout = c.API.Timeout
	return cfg
}

// LoggingConfig returns the logger settings. Output is left to the caller.
func (c *Config) LoggingConfig() logging.Config {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}
