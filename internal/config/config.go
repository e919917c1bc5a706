// Package config loads the transcoder configuration from YAML with
// command-line overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
)

// Config is the top-level configuration.
type Config struct {
	// ListenAddress is the TCP address of the HTTP server.
	ListenAddress string `yaml:"listen_address"`

	// PublicBaseURL is the externally visible address of the server, used
	// as the prefix of rewritten identifiers (with "proxy/" appended).
	// Empty means it is derived from each request.
	PublicBaseURL string `yaml:"public_base_url"`

	// DefaultFormat names the codec used for "*/*" and unknown overrides.
	DefaultFormat string `yaml:"default_format"`

	// DefaultContext is the URL of the context applied when a document
	// is compacted or expanded without one. It must be a built-in context.
	DefaultContext string `yaml:"default_context"`

	// PassthroughTypes lists media types that the proxy returns unmodified.
	PassthroughTypes []string `yaml:"passthrough_types"`

	Codecs CodecsConfig `yaml:"codecs"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// CodecsConfig selects the codecs to register.
type CodecsConfig struct {
	// Enabled is a glob over codec names, e.g. "*" or "n*". Empty enables
	// every codec.
	Enabled string `yaml:"enabled"`
}

// FetchConfig bounds remote fetches of the proxy.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Gzip bool `yaml:"gzip"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddress:    ":8080",
		DefaultFormat:    "jsonld",
		DefaultContext:   jsonld.RESTOAContextURL,
		PassthroughTypes: []string{"text/html"},
		Fetch: FetchConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Gzip: true},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapFatal(err, "config", "Load", "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.WrapFatal(fmt.Errorf("%w: %v", errs.ErrInvalidConfig, err), "config", "Load", "parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...interface{}) error {
	return errs.WrapFatal(fmt.Errorf("%w: "+format, append([]interface{}{errs.ErrInvalidConfig}, args...)...),
		"config", "Validate", "check configuration")
}

// Validate checks the configuration and normalizes PublicBaseURL to end
// with a slash.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return invalid("listen_address is required")
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("public_base_url %q must be an absolute http(s) URL", c.PublicBaseURL)
		}
		if !strings.HasSuffix(c.PublicBaseURL, "/") {
			c.PublicBaseURL += "/"
		}
	}
	if c.DefaultFormat == "" {
		return invalid("default_format is required")
	}
	if c.DefaultContext == "" {
		return invalid("default_context is required")
	}
	if _, err := path.Match(c.Codecs.Enabled, ""); err != nil {
		return invalid("codecs.enabled %q: %v", c.Codecs.Enabled, err)
	}
	if c.Fetch.Timeout <= 0 {
		return invalid("fetch.timeout must be positive")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return invalid("fetch.max_body_bytes must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	return nil
}

// NewLogger builds the logger described by the log section.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Flags are the command-line settings that override the file.
type Flags struct {
	ConfigPath    string
	ListenAddress string
	PublicBaseURL string
	LogLevel      string
}

// AddFlags registers the flags on fs.
func (f *Flags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to YAML configuration file")
	fs.StringVar(&f.ListenAddress, "listen", "", "listen address (overrides listen_address)")
	fs.StringVar(&f.PublicBaseURL, "public-base-url", "", "externally visible base URL (overrides public_base_url)")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}

// Load reads the configuration file named by the flags and applies the
// flag overrides.
func (f *Flags) Load() (*Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		loaded, err := Load(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.ListenAddress != "" {
		cfg.ListenAddress = f.ListenAddress
	}
	if f.PublicBaseURL != "" {
		cfg.PublicBaseURL = f.PublicBaseURL
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
