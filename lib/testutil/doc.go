// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for nixfleet packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. Channel
// operations in tests must never hang a test run; these helpers turn a
// stuck channel into a test failure with a descriptive message.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no nixfleet-internal dependencies.
package testutil
