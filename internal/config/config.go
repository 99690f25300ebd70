// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package config loads service settings from pdfexport.yaml and PDFEXPORT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
)

// EnvPrefix is prepended to every environment override, e.g. PDFEXPORT_SERVER_ADDR.
const EnvPrefix = "PDFEXPORT"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Source  SourceConfig  `mapstructure:"source"`
	Convert ConvertConfig `mapstructure:"convert"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
}

// SourceConfig configures document resolution.
type SourceConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes"`
	AllowLocal   bool          `mapstructure:"allow_local"`
	LocalRoot    string        `mapstructure:"local_root"`
}

// ConvertConfig configures the conversion engine.
type ConvertConfig struct {
	Workers      int  `mapstructure:"workers"`
	Layout       bool `mapstructure:"layout"`
	SanitizeHTML bool `mapstructure:"sanitize_html"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so that environment
// overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(pdfexport.DefaultMaxSourceBytes))

	v.SetDefault("source.fetch_timeout", pdfexport.DefaultFetchTimeout)
	v.SetDefault("source.max_bytes", int64(pdfexport.DefaultMaxSourceBytes))
	v.SetDefault("source.allow_local", true)
	v.SetDefault("source.local_root", "")

	v.SetDefault("convert.workers", 0)
	v.SetDefault("convert.layout", true)
	v.SetDefault("convert.sanitize_html", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration into v and decodes it. An explicit path must
// exist; without one, pdfexport.yaml is looked up in the working directory
// and ~/.config/pdfexport, and its absence is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pdfexport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pdfexport"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
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

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Source.FetchTimeout <= 0 {
		return fmt.Errorf("source.fetch_timeout must be positive, got %s", c.Source.FetchTimeout)
	}
	if c.Source.MaxBytes <= 0 {
		return fmt.Errorf("source.max_bytes must be positive, got %d", c.Source.MaxBytes)
	}
	if c.Convert.Workers < 0 || c.Convert.Workers > 64 {
		return fmt.Errorf("convert.workers must be between 0 and 64, got %d", c.Convert.Workers)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ExporterOptions maps the configuration onto exporter options.
func (c *Config) ExporterOptions(logger logrus.FieldLogger) []pdfexport.Option {
	return []pdfexport.Option{
		pdfexport.WithLogger(logger),
		pdfexport.WithLayout(c.Convert.Layout),
		pdfexport.WithWorkers(c.Convert.Workers),
		pdfexport.WithSanitizeHTML(c.Convert.SanitizeHTML),
		pdfexport.WithFetchTimeout(c.Source.FetchTimeout),
		pdfexport.WithMaxSourceBytes(c.Source.MaxBytes),
		pdfexport.WithLocalPaths(c.Source.AllowLocal),
		pdfexport.WithLocalRoot(c.Source.LocalRoot),
	}
}

// NewLogger builds a logrus logger writing to out.
func NewLogger(c LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
