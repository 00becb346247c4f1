// Package config loads the TOML configuration and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"pdf_minimizer/pdf"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath = "pdfminimize.toml"

	// DefaultMaxFileSize is the default upload limit (50MB)
	DefaultMaxFileSize = 50 * 1024 * 1024

	DefaultPort    = "8080"
	DefaultTempDir = "./temp"

	DefaultReadTimeoutSeconds     = 60
	DefaultWriteTimeoutSeconds    = 300
	DefaultIdleTimeoutSeconds     = 60
	DefaultShutdownTimeoutSeconds = 10
)

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Reduce ReduceConfig `toml:"reduce"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the web form settings. Port, MaxFileSize and TempDir
// may be overridden by PORT, MAX_FILE_SIZE and TEMP_DIR.
type ServerConfig struct {
	Port                   string `toml:"port"`
	MaxFileSize            int64  `toml:"max_file_size"`
	TempDir                string `toml:"temp_dir"`
	ReadTimeoutSeconds     int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `toml:"write_timeout_seconds"`
	IdleTimeoutSeconds     int    `toml:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// ReduceConfig holds the reduction parameters.
//
//	[reduce]
//	target_size = 1048576
//	[[reduce.passes]]
//	scale = 2
//	quality = 15
type ReduceConfig struct {
	TargetSize   int64      `toml:"target_size"`
	OutputPrefix string     `toml:"output_prefix"`
	FailFast     bool       `toml:"fail_fast"`
	Passes       []pdf.Pass `toml:"passes"`
}

// Options converts the reduce section into pipeline options.
func (r ReduceConfig) Options() pdf.Options {
	opts := pdf.DefaultOptions()
	if r.TargetSize != 0 {
		opts.TargetSize = r.TargetSize
	}
	if r.OutputPrefix != "" {
		opts.OutputPrefix = r.OutputPrefix
	}
	if len(r.Passes) > 0 {
		opts.Passes = append([]pdf.Pass(nil), r.Passes...)
	}
	opts.FailFast = r.FailFast
	return opts
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:                   DefaultPort,
			MaxFileSize:            DefaultMaxFileSize,
			TempDir:                DefaultTempDir,
			ReadTimeoutSeconds:     DefaultReadTimeoutSeconds,
			WriteTimeoutSeconds:    DefaultWriteTimeoutSeconds,
			IdleTimeoutSeconds:     DefaultIdleTimeoutSeconds,
			ShutdownTimeoutSeconds: DefaultShutdownTimeoutSeconds,
		},
		Reduce: ReduceConfig{
			TargetSize:   pdf.DefaultTargetSize,
			OutputPrefix: pdf.DefaultOutputPrefix,
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.MaxFileSize = getEnvInt64("MAX_FILE_SIZE", cfg.Server.MaxFileSize)
	cfg.Server.TempDir = getEnv("TEMP_DIR", cfg.Server.TempDir)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values a TOML file could have broken.
func (c Config) Validate() error {
	if c.Server.MaxFileSize <= 0 {
		return fmt.Errorf("server.max_file_size must be positive, got %d", c.Server.MaxFileSize)
	}
	if c.Reduce.TargetSize <= 0 {
		return fmt.Errorf("reduce.target_size must be positive, got %d", c.Reduce.TargetSize)
	}
	if err := c.Reduce.Options().Validate(); err != nil {
		return fmt.Errorf("reduce: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
