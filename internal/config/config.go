// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

// Package config loads server configuration from a YAML file with
// command-line flag overrides.
package config

import (
	"encoding/hex"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the server configuration. Precedence, lowest first:
// flag defaults, the YAML config file, explicitly set flags.
type Config struct {
	// ListenAddr is the HTTP listen address of the game server.
	ListenAddr string `koanf:"listen_addr"`

	// MetricsAddr is the observability listen address. Empty disables
	// the observability server.
	MetricsAddr string `koanf:"metrics_addr"`

	// DataPath is the SQLite database file.
	DataPath string `koanf:"data_path"`

	// RootCredsPath is the root bootstrap credentials file.
	RootCredsPath string `koanf:"root_creds_path"`

	// CookieKey is the hex-encoded 32-byte key sealing the login
	// token cookie.
	CookieKey string `koanf:"cookie_key"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level"`
}

// Load builds a Config from the optional YAML file at path and the
// given flag set. Flag names use dashes; the matching koanf keys use
// underscores.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}), nil)
	if err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Errorf("listen_addr is required")
	}
	if c.DataPath == "" {
		return oops.Errorf("data_path is required")
	}
	if c.RootCredsPath == "" {
		return oops.Errorf("root_creds_path is required")
	}
	if _, err := c.SealKey(); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return oops.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// SealKey decodes the cookie key.
func (c *Config) SealKey() ([]byte, error) {
	key, err := hex.DecodeString(c.CookieKey)
	if err != nil {
		return nil, oops.Code("CONFIG_COOKIE_KEY").Wrap(err)
	}
	if len(key) != 32 {
		return nil, oops.Code("CONFIG_COOKIE_KEY").
			With("bytes", len(key)).
			Errorf("cookie_key must decode to 32 bytes")
	}
	return key, nil
}
