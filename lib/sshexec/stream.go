// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// LineFunc receives each logical line a StreamParser completes, with
// the classification detail computed for it. detail is "" when the
// parser has no classifier or the classifier found no marker; line is
// already whitespace-trimmed and never empty.
type LineFunc func(line, detail string)

// StreamParser reassembles the byte stream of one remote command into
// logical lines. It implements io.Writer so it can sit directly behind
// an SSH session's output; the executor serializes stdout and stderr
// into it through one lock.
//
// Reassembly rules:
//
//   - A line completes at '\n'. A single trailing '\r' is stripped
//     first, so CRLF and LF terminated output behave identically.
//   - A '\r' anywhere else is a terminal-style overwrite: content
//     before it is discarded, only text after the last '\r' reaches
//     the emitted line. The result is independent of how the stream
//     was chunked; a '\r' as the final buffered byte stays pending
//     until the next byte decides between overwrite and CRLF.
//   - When the command runs under a pseudo-terminal, each completed
//     line is passed through an ANSI escape strip before trimming.
//   - Lines that are empty after stripping and trimming produce no
//     callback. They remain visible in the transcript.
//   - Close flushes any non-empty residue as a final line.
//
// The callback sees lines in stream order. Everything written,
// including overwritten and blank content, accumulates unmodified in
// Transcript.
type StreamParser struct {
	stripANSI bool
	classify  func(string) string
	onLine    LineFunc

	raw     strings.Builder
	pending []byte
}

// NewStreamParser returns a parser delivering lines to onLine.
// stripANSI should match whether the command was given a
// pseudo-terminal. classify computes the per-line detail and may be
// nil.
func NewStreamParser(stripANSI bool, classify func(string) string, onLine LineFunc) *StreamParser {
	return &StreamParser{
		stripANSI: stripANSI,
		classify:  classify,
		onLine:    onLine,
	}
}

// Write feeds raw command output into the parser. It never fails; the
// signature exists to satisfy io.Writer.
func (p *StreamParser) Write(data []byte) (int, error) {
	p.raw.Write(data)
	p.pending = append(p.pending, data...)

	for {
		if nl := bytes.IndexByte(p.pending, '\n'); nl >= 0 {
			segment := p.pending[:nl]
			p.pending = p.pending[nl+1:]
			p.deliver(finishLine(segment))
			continue
		}

		// No newline buffered yet. Apply the overwrite rule eagerly
		// so the pending buffer cannot grow without bound under a
		// spinner that redraws one line forever. A '\r' as the last
		// byte is kept; the next write disambiguates it.
		if cr := bytes.IndexByte(p.pending, '\r'); cr >= 0 && cr+1 < len(p.pending) {
			p.pending = p.pending[cr+1:]
			continue
		}
		return len(data), nil
	}
}

// Close flushes residual content as a final line. The parser must not
// be written to afterwards.
func (p *StreamParser) Close() {
	segment := p.pending
	p.pending = nil
	p.deliver(finishLine(segment))
}

// Transcript returns every byte written so far, unmodified.
func (p *StreamParser) Transcript() string {
	return p.raw.String()
}

// finishLine normalizes one '\n'-delimited segment: a single trailing
// '\r' is CRLF framing and comes off first, then any remaining '\r'
// marks an in-place overwrite and everything before the last one is
// dropped.
func finishLine(segment []byte) string {
	if n := len(segment); n > 0 && segment[n-1] == '\r' {
		segment = segment[:n-1]
	}
	if cr := bytes.LastIndexByte(segment, '\r'); cr >= 0 {
		segment = segment[cr+1:]
	}
	return string(segment)
}

func (p *StreamParser) deliver(line string) {
	if p.stripANSI {
		line = ansi.Strip(line)
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || p.onLine == nil {
		return
	}
	detail := ""
	if p.classify != nil {
		detail = p.classify(trimmed)
	}
	p.onLine(trimmed, detail)
}
