// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for nixfleet.
//
// Configuration is an optional file resolved in order: the
// NIXFLEET_CONFIG environment variable (via [Load]), a --config flag
// (via [LoadFile]), then ~/.config/nixfleet/config.yaml. A missing
// file at the default location is not an error and yields [Default];
// a missing file the operator named explicitly is.
//
// Decoding is strict: unknown keys are rejected so a typo surfaces as
// an error instead of silently reverting a setting to its default.
//
// Variable expansion via [Config.Expand] runs after flag overrides so
// ${HOME} and similar references work the same whether a value came
// from the file or a flag. The file never carries credentials;
// Tailscale admin API keys come from the environment (see
// lib/tailnet).
//
// Key exports:
//
//   - [Config] -- username, host prefix, timeouts, log dir, discovery
//   - [Default] -- the built-in values, sufficient to run the tool
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other nixfleet packages.
package config
