// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestToolErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      *ToolError
		category ErrorCategory
	}{
		{"validation", Validation("bad flag"), CategoryValidation},
		{"not_found", NotFound("no such host"), CategoryNotFound},
		{"transient", Transient("API unreachable"), CategoryTransient},
		{"internal", Internal("bug"), CategoryInternal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.err.Category != test.category {
				t.Errorf("Category = %q, want %q", test.err.Category, test.category)
			}
		})
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	inner := errors.New("socket closed")
	wrapped := &ToolError{Category: CategoryTransient, Err: fmt.Errorf("connect: %w", inner)}

	if !errors.Is(wrapped, inner) {
		t.Error("errors.Is does not reach the inner error through ToolError")
	}

	var toolErr *ToolError
	outer := fmt.Errorf("update: %w", wrapped)
	if !errors.As(outer, &toolErr) {
		t.Fatal("errors.As does not find the ToolError in a wrapped chain")
	}
	if toolErr.Category != CategoryTransient {
		t.Errorf("Category = %q, want %q", toolErr.Category, CategoryTransient)
	}
}

func TestToolErrorMessageExcludesCategory(t *testing.T) {
	err := NotFound("host %q not found", "nixweb")
	if got, want := err.Error(), `host "nixweb" not found`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 3}
	if err.ExitCode() != 3 {
		t.Errorf("ExitCode() = %d, want 3", err.ExitCode())
	}

	var coder interface{ ExitCode() int }
	if !errors.As(error(err), &coder) {
		t.Fatal("ExitError does not satisfy the ExitCode interface via errors.As")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		value   string
		want    slog.Level
		wantErr bool
	}{
		{value: "debug", want: slog.LevelDebug},
		{value: "info", want: slog.LevelInfo},
		{value: "warn", want: slog.LevelWarn},
		{value: "error", want: slog.LevelError},
		{value: "verbose", wantErr: true},
		{value: "", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseLogLevel(test.value)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseLogLevel(%q) succeeded, want error", test.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error: %v", test.value, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", test.value, got, test.want)
		}
	}
}
