package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/indieinfra/ingest/logging"
)

const EnvPrefix = "INGEST"

const (
	MiB = int64(1 << 20)

	DefaultMaxFileSize = 10 * MiB
)

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("abspath", ValidateAbsPath)
	validate.RegisterValidation("pathpattern", ValidatePathPattern)
	validate.RegisterValidation("identifier", ValidateIdentifier)

	if err := validate.Struct(c); err != nil {
		return err
	}

	return nil
}

// Addr returns the listen address of the HTTP surface.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "dev")

	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.limits.max_payload_size", 64*MiB)
	v.SetDefault("server.limits.max_multipart_mem", 32*MiB)

	v.SetDefault("upload.max_file_size", DefaultMaxFileSize)

	v.SetDefault("compression.max_dimension", 1920)
	v.SetDefault("compression.quality", 0.8)
	v.SetDefault("compression.max_bytes", 512*1024)
	v.SetDefault("compression.thumbnails", false)
	v.SetDefault("compression.thumbnail_dimension", 200)
	v.SetDefault("compression.thumbnail_quality", 0.7)
	v.SetDefault("compression.thumbnail_max_bytes", 52428)
	v.SetDefault("compression.measure_dimensions", true)
	v.SetDefault("compression.max_pixels", 50_000_000)

	v.SetDefault("media.strategy", "noop")
	v.SetDefault("report.strategy", "noop")

	v.SetDefault("session_ttl", time.Hour)
}

// LoadConfig reads file (YAML) on top of the built-in defaults, applies
// INGEST_* environment overrides and validates the result. An empty file
// name loads defaults and environment only.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.Default.Debug("configuration loaded", "file", file, "media", cfg.Media.Strategy, "report", cfg.Report.Strategy)
	return &cfg, nil
}
