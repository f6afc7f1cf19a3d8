// Package config loads client configuration from defaults, an optional
// .env file and SCHOOL_-prefixed environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is everything needed to stand up a client.
type Config struct {
	// BaseURL is the backend origin, including any path prefix such as /api.
	BaseURL string `mapstructure:"base_url"`
	// TokenFile is where the token pair persists between runs.
	TokenFile string `mapstructure:"token_file"`
	// CatalogFile optionally overrides the built-in endpoint catalog.
	CatalogFile string `mapstructure:"catalog_file"`

	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`

	// TelemetryEndpoint enables OTLP trace export when non-empty.
	TelemetryEndpoint string `mapstructure:"telemetry_endpoint"`
	TelemetryInsecure bool   `mapstructure:"telemetry_insecure"`
}

const envPrefix = "SCHOOL"

// Load builds the configuration. A .env in the working directory is read
// when present; real environment variables win over it.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("config: load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetDefault("base_url", "http://localhost:8000/api")
	v.SetDefault("token_file", defaultTokenFile())
	v.SetDefault("catalog_file", "")
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("upload_timeout", 2*time.Minute)
	v.SetDefault("telemetry_endpoint", "")
	v.SetDefault("telemetry_insecure", false)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) check() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("config: base_url is required")
	}
	if c.ReadTimeout <= 0 || c.UploadTimeout <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}
	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".school-tokens.json"
	}
	return filepath.Join(dir, "schoolsdk", "tokens.json")
}
