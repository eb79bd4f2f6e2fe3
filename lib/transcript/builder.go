// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript assembles and archives per-host update
// transcripts. A [Builder] accumulates the command output shown to
// the operator after a run; an [Archive] persists one file per host
// under a run directory, zstd-compressed and durably synced.
package transcript

import "strings"

// Builder accumulates a host's update transcript. The zero value is
// ready to use. Not safe for concurrent use; each host's pipeline
// owns its own Builder.
type Builder struct {
	buf strings.Builder
}

// Header appends a stage banner line, e.g. "=== Running before-command ===".
func (b *Builder) Header(stage string) {
	b.buf.WriteString("=== Running ")
	b.buf.WriteString(stage)
	b.buf.WriteString(" ===\n")
}

// Section records one executed command and its combined output.
func (b *Builder) Section(command, output string) {
	b.buf.WriteString("$ ")
	b.buf.WriteString(command)
	b.buf.WriteString("\n")
	b.buf.WriteString(output)
	b.buf.WriteString("\n")
}

// Line appends one line of text, typically a failure reason.
func (b *Builder) Line(text string) {
	b.buf.WriteString(text)
	b.buf.WriteString("\n")
}

// Len returns the number of bytes accumulated so far.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// String returns the transcript assembled so far.
func (b *Builder) String() string {
	return b.buf.String()
}
