// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

// zstdEncoder is reused across calls to avoid repeated initialization
// overhead. EncodeAll on an encoder constructed with a nil writer is
// safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("transcript: zstd encoder initialization failed: " + err.Error())
	}
}

// RunID names a run's archive directory after its start time.
func RunID(now time.Time) string {
	return now.UTC().Format("20060102-150405")
}

// Archive writes per-host transcripts into one run directory.
type Archive struct {
	dir string
}

// NewArchive creates <root>/<runID> and returns an Archive writing
// into it.
func NewArchive(root, runID string) (*Archive, error) {
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Dir returns the run's archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Write stores one host's transcript as <hostname>.log.zst. The file
// is written to a temporary name, synced, and renamed into place so
// readers never see a partial archive.
func (a *Archive) Write(hostname, transcript string) error {
	// Host names come from the tailnet; keep file names inside the
	// run directory regardless.
	name := strings.ReplaceAll(hostname, string(os.PathSeparator), "_")
	path := filepath.Join(a.dir, name+".log.zst")
	temporaryPath := path + ".tmp"

	compressed := zstdEncoder.EncodeAll([]byte(transcript), nil)

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary archive file: %w", err)
	}

	// Write, sync, close, then rename. If any step fails, remove the
	// temporary file and report the first error.
	if _, err := file.Write(compressed); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary archive file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary archive file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary archive file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming archive file into place: %w", err)
	}
	return nil
}

// Sync makes the archived files durable by fsyncing the run
// directory. Called once after every host's transcript is written;
// until then a crash may lose renames to directory metadata.
func (a *Archive) Sync() error {
	dir, err := os.Open(a.dir)
	if err != nil {
		return fmt.Errorf("opening archive directory: %w", err)
	}
	defer dir.Close()

	if err := unix.Fsync(int(dir.Fd())); err != nil {
		return fmt.Errorf("syncing archive directory: %w", err)
	}
	return nil
}
