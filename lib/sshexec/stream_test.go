// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/nixfleet-dev/nixfleet/lib/progress"
)

// collectLines runs input through a parser in one write and returns
// the emitted lines.
func collectLines(t *testing.T, stripANSI bool, input string) []string {
	t.Helper()
	var lines []string
	parser := NewStreamParser(stripANSI, nil, func(line, _ string) {
		lines = append(lines, line)
	})
	if _, err := parser.Write([]byte(input)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	parser.Close()
	return lines
}

func TestStreamParserBasicLines(t *testing.T) {
	t.Parallel()

	got := collectLines(t, false, "first\nsecond\r\nthird")
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestStreamParserSuppressesBlankLines(t *testing.T) {
	t.Parallel()

	got := collectLines(t, false, "one\n\n   \n\t\r\ntwo\n")
	want := []string{"one", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestStreamParserTrimsEmittedLines(t *testing.T) {
	t.Parallel()

	got := collectLines(t, false, "  padded line \t\n")
	want := []string{"padded line"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestStreamParserCarriageReturnOverwrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "overwrite keeps text after last cr",
			input: "progress 10%\rprogress 99%\rdone\n",
			want:  []string{"done"},
		},
		{
			name:  "crlf is framing not overwrite",
			input: "kept\r\nnext\n",
			want:  []string{"kept", "next"},
		},
		{
			name:  "trailing cr at stream end",
			input: "spinner\r",
			want:  []string{"spinner"},
		},
		{
			name:  "overwrite within residual flush",
			input: "old text\rnew",
			want:  []string{"new"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := collectLines(t, false, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestStreamParserChunkBoundaryIndependence feeds the same byte
// stream through every two-split and a byte-at-a-time split and
// expects identical lines each way.
func TestStreamParserChunkBoundaryIndependence(t *testing.T) {
	t.Parallel()

	streams := []string{
		"alpha\nbeta\r\ngamma\n",
		"overwritten\rfinal line\nrest\n",
		"a\rb\rc\nd\r\ne\n",
		"no terminator at all",
		"trailing cr\r",
		"double\r\rsurvivor\n",
	}

	for _, stream := range streams {
		reference := collectLines(t, false, stream)

		for split := 0; split <= len(stream); split++ {
			var lines []string
			parser := NewStreamParser(false, nil, func(line, _ string) {
				lines = append(lines, line)
			})
			parser.Write([]byte(stream[:split]))
			parser.Write([]byte(stream[split:]))
			parser.Close()
			if !reflect.DeepEqual(lines, reference) {
				t.Errorf("stream %q split at %d: lines = %q, want %q", stream, split, lines, reference)
			}
		}

		var lines []string
		parser := NewStreamParser(false, nil, func(line, _ string) {
			lines = append(lines, line)
		})
		for i := 0; i < len(stream); i++ {
			parser.Write([]byte{stream[i]})
		}
		parser.Close()
		if !reflect.DeepEqual(lines, reference) {
			t.Errorf("stream %q byte-at-a-time: lines = %q, want %q", stream, lines, reference)
		}
	}
}

func TestStreamParserStripsANSIWhenPTY(t *testing.T) {
	t.Parallel()

	input := "\x1b[1;32mbuilding\x1b[0m 3 derivations\n"

	got := collectLines(t, true, input)
	want := []string{"building 3 derivations"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pty lines = %q, want %q", got, want)
	}

	// Without a PTY the escapes pass through untouched.
	got = collectLines(t, false, input)
	if len(got) != 1 || !strings.Contains(got[0], "\x1b[1;32m") {
		t.Errorf("non-pty lines = %q, want escapes preserved", got)
	}
}

func TestStreamParserStripsANSIAcrossChunkSplitEscape(t *testing.T) {
	t.Parallel()

	// The escape sequence is split across writes; stripping happens at
	// line completion, so the split must not leak fragments.
	var lines []string
	parser := NewStreamParser(true, nil, func(line, _ string) {
		lines = append(lines, line)
	})

	parser.Write([]byte("\x1b[3"))
	parser.Write([]byte("1mred\x1b[0m\n"))
	parser.Close()

	want := []string{"red"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestStreamParserTranscriptKeepsEverything(t *testing.T) {
	t.Parallel()

	input := "\x1b[32mok\x1b[0m\n\noverwritten\rkept\n"
	parser := NewStreamParser(true, nil, nil)
	parser.Write([]byte(input))
	parser.Close()

	if parser.Transcript() != input {
		t.Errorf("Transcript() = %q, want %q", parser.Transcript(), input)
	}
}

func TestStreamParserResidualFlush(t *testing.T) {
	t.Parallel()

	var lines []string
	parser := NewStreamParser(false, nil, func(line, _ string) {
		lines = append(lines, line)
	})
	parser.Write([]byte("complete\nresidue without newline"))

	if want := []string{"complete"}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines before Close = %q, want %q", lines, want)
	}

	parser.Close()
	want := []string{"complete", "residue without newline"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines after Close = %q, want %q", lines, want)
	}
}

func TestStreamParserClassifierDetail(t *testing.T) {
	t.Parallel()

	type emitted struct {
		line   string
		detail string
	}
	var events []emitted
	parser := NewStreamParser(true, progress.RebuildDetail, func(line, detail string) {
		events = append(events, emitted{line: line, detail: detail})
	})

	parser.Write([]byte("downloading 'pkg-a'\nwarning: dirty tree\nbuilding 3 derivations\n"))
	parser.Close()

	want := []emitted{
		{line: "downloading 'pkg-a'", detail: "dl: pkg-a"},
		{line: "warning: dirty tree", detail: ""},
		{line: "building 3 derivations", detail: "building 3 drv"},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %+v, want %+v", events, want)
	}
}

func TestStreamParserLongSpinnerDoesNotAccumulate(t *testing.T) {
	t.Parallel()

	parser := NewStreamParser(false, nil, nil)
	for i := 0; i < 10000; i++ {
		parser.Write([]byte(fmt.Sprintf("\rspin %d", i)))
	}
	if len(parser.pending) > 64 {
		t.Errorf("pending buffer grew to %d bytes under spinner input", len(parser.pending))
	}
}
