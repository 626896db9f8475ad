package config

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jinzhu/configor"

	"github.com/cnosuke/multi-get/headers"
)

// Config - Application configuration
type Config struct {
	Fetch struct {
		Timeout   int    `yaml:"timeout" default:"30" env:"FETCH_TIMEOUT"` // Timeout in seconds, 0 leaves requests unbounded
		UserAgent string `yaml:"user_agent" default:"multi-get/1.0" env:"FETCH_USER_AGENT"`
	} `yaml:"fetch"`

	Server struct {
		Host         string `yaml:"host" default:"" env:"HOST"`
		Port         int    `yaml:"port" default:"3001" env:"PORT"`
		MaxBodyBytes int64  `yaml:"max_body_bytes" default:"1048576" env:"SERVER_MAX_BODY_BYTES"`
		CORSOrigin   string `yaml:"cors_origin" default:"*" env:"SERVER_CORS_ORIGIN"`
	} `yaml:"server"`

	Headers headers.Defaults `yaml:"headers"`

	Log struct {
		Debug bool   `yaml:"debug" default:"false" env:"LOG_DEBUG"`
		Path  string `yaml:"path" default:"" env:"LOG_PATH"`
	} `yaml:"log"`
}

// LoadConfig - Load configuration file. An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	files := []string{}
	if path != "" {
		files = append(files, path)
	}
	err := configor.New(&configor.Config{
		Debug:      false,
		Verbose:    false,
		Silent:     true,
		AutoReload: false,
	}).Load(cfg, files...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Fetch.Timeout < 0 {
		return errors.New("fetch timeout cannot be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server max body bytes must be positive")
	}
	return nil
}

// Addr - Listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
