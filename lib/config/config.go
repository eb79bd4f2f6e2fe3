// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Discovery selects how fleet hosts are found.
type Discovery string

const (
	// DiscoveryCLI queries the local tailscaled through the tailscale
	// binary.
	DiscoveryCLI Discovery = "cli"
	// DiscoveryAPI queries the Tailscale admin API.
	DiscoveryAPI Discovery = "api"
)

// Config is the nixfleet configuration.
type Config struct {
	// Username is the SSH user for every host.
	Username string `yaml:"username"`

	// HostPrefix marks fleet members among tailnet machines.
	HostPrefix string `yaml:"host_prefix"`

	// ConnectTimeoutSeconds bounds TCP connect and SSH handshake.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`

	// IOTimeoutSeconds bounds each read or write on an established
	// connection. Long rebuilds keep streaming output, so this is a
	// per-operation deadline, not a command deadline.
	IOTimeoutSeconds int `yaml:"io_timeout_seconds"`

	// LogDir is where run transcripts are archived. Empty disables
	// archiving.
	LogDir string `yaml:"log_dir"`

	// Discovery selects the host discovery backend.
	Discovery Discovery `yaml:"discovery"`
}

// Default returns the built-in configuration. The config file is
// optional; these values run the tool unmodified.
func Default() *Config {
	return &Config{
		Username:              "root",
		HostPrefix:            "nix",
		ConnectTimeoutSeconds: 60,
		IOTimeoutSeconds:      300,
		Discovery:             DiscoveryCLI,
	}
}

// Load loads configuration from NIXFLEET_CONFIG if set, otherwise
// from the default location. A missing file at the default location
// yields the defaults.
func Load() (*Config, error) {
	if path := os.Getenv("NIXFLEET_CONFIG"); path != "" {
		return LoadFile(path)
	}

	path, err := defaultPath()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		// An empty file keeps the defaults.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// defaultPath returns ~/.config/nixfleet/config.yaml, honoring
// XDG_CONFIG_HOME.
func defaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "nixfleet", "config.yaml"), nil
}

// Expand expands ${VAR} references in string fields from the
// environment. Callers run it after applying flag overrides so flags
// get the same treatment as file values.
func (c *Config) Expand() {
	c.Username = os.Expand(c.Username, os.Getenv)
	c.HostPrefix = os.Expand(c.HostPrefix, os.Getenv)
	c.LogDir = os.Expand(c.LogDir, os.Getenv)
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Username == "" {
		errs = append(errs, fmt.Errorf("username is required"))
	}
	if c.HostPrefix == "" {
		errs = append(errs, fmt.Errorf("host_prefix is required"))
	}
	if c.ConnectTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout_seconds must be positive, got %d", c.ConnectTimeoutSeconds))
	}
	if c.IOTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("io_timeout_seconds must be positive, got %d", c.IOTimeoutSeconds))
	}
	if c.Discovery != DiscoveryCLI && c.Discovery != DiscoveryAPI {
		errs = append(errs, fmt.Errorf("discovery must be %q or %q, got %q", DiscoveryCLI, DiscoveryAPI, c.Discovery))
	}

	return errors.Join(errs...)
}

// ConnectTimeout returns the connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// IOTimeout returns the per-operation I/O timeout as a duration.
func (c *Config) IOTimeout() time.Duration {
	return time.Duration(c.IOTimeoutSeconds) * time.Second
}
