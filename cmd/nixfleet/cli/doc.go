// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the nixfleet CLI.
//
// The central type is [Command], which represents a named subcommand
// with optional nested [Command.Subcommands], a [pflag.FlagSet]
// factory, and a Run function. Commands are assembled into a tree in
// cmd/nixfleet/commands and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, context propagation, and
// structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3). This is
// implemented in suggest.go.
//
// Errors returned by commands are plain Go errors. Two refinements
// are available:
//
//   - [ToolError] carries an [ErrorCategory] so callers and scripts
//     can distinguish bad input from missing resources and transient
//     failures without parsing message text. Constructors like
//     [Validation] and [Transient] wrap a formatted error.
//
//   - [ExitError] signals a non-zero exit code for commands that have
//     already written their own output, so main does not print a
//     redundant error line.
//
// [NewCommandLogger] builds the slog logger commands report through:
// human-readable text when stderr is a terminal, JSON when piped.
package cli
