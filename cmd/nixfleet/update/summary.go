// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/nixfleet-dev/nixfleet/lib/fleet"
	"github.com/nixfleet-dev/nixfleet/lib/transcript"
)

// printSummary writes the per-host outcome lines in hostname order,
// with each failed host's transcript indented underneath. Colors
// degrade automatically when w is not a terminal. Reports whether any
// host failed.
func printSummary(w io.Writer, results []fleet.Result) bool {
	output := termenv.NewOutput(w)

	ordered := slices.Clone(results)
	slices.SortFunc(ordered, func(a, b fleet.Result) int {
		return strings.Compare(a.Host, b.Host)
	})

	failed := false
	for _, result := range ordered {
		if result.Success {
			line := output.String("✅ " + result.Host + ": Update successful").
				Foreground(output.Color("2"))
			fmt.Fprintln(w, line)
			continue
		}

		failed = true
		line := output.String("❌ " + result.Host + ": Update failed").
			Foreground(output.Color("1"))
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, "Output:")
		for _, transcriptLine := range strings.Split(strings.TrimRight(result.Output, "\n"), "\n") {
			fmt.Fprintln(w, "  "+transcriptLine)
		}
	}
	return failed
}

// archiveTranscripts stores every host's transcript under a fresh
// run directory. Archiving problems are logged and never change the
// outcome of the update itself.
func archiveTranscripts(dir string, results []fleet.Result, logger *slog.Logger) {
	archive, err := transcript.NewArchive(dir, transcript.RunID(time.Now()))
	if err != nil {
		logger.Error("create transcript archive", "error", err)
		return
	}
	for _, result := range results {
		if err := archive.Write(result.Host, result.Output); err != nil {
			logger.Error("archive transcript", "host", result.Host, "error", err)
		}
	}
	if err := archive.Sync(); err != nil {
		logger.Error("sync transcript archive", "error", err)
	}
	logger.Info("transcripts archived", "dir", archive.Dir())
}
