// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nixfleet-dev/nixfleet/lib/progress"
	"github.com/nixfleet-dev/nixfleet/lib/sshexec"
)

// eventBuffer sizes the progress channel. Pipelines drop events once
// it fills instead of blocking on the consumer.
const eventBuffer = 256

// Coordinator runs the update pipeline across many hosts at once.
type Coordinator struct {
	Connector sshexec.Connector
	Options   Options
	Logger    *slog.Logger
}

// Run updates every token concurrently and blocks until all hosts
// have finished and the tracker has absorbed every delivered event.
// Results arrive in completion order; callers wanting host order must
// sort.
func (c *Coordinator) Run(ctx context.Context, tokens []string, tracker *progress.Tracker) []Result {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	events := make(chan progress.Event, eventBuffer)
	go tracker.Run(events)

	emit := func(event progress.Event) {
		select {
		case events <- event:
		default:
			// Progress is telemetry. A full channel loses lines, it
			// never stalls an update.
		}
	}

	resultCh := make(chan Result)
	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resultCh <- c.updateHost(ctx, token, emit, logger)
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(tokens))
	for result := range resultCh {
		logger.Info("host update finished", "host", result.Host, "success", result.Success)
		results = append(results, result)
	}

	close(events)
	<-tracker.Done()
	return results
}

// updateHost runs one pipeline, converting a panic into a failed
// result so a bug on one host cannot abort the rest of the fleet.
func (c *Coordinator) updateHost(ctx context.Context, token string, emit func(progress.Event), logger *slog.Logger) (result Result) {
	host := HostKey(token)
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("Task error: %v", r)
			logger.Error("host update panicked", "host", host, "panic", r)
			emit(progress.Event{Host: host, Phase: progress.Failed(reason)})
			result = Result{Host: host, Output: reason}
		}
	}()
	pipeline := &Pipeline{Token: token, Options: c.Options, Connector: c.Connector, Emit: emit}
	return pipeline.Run(ctx)
}
