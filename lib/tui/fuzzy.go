// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// The algo package scores nothing until its character-class and bonus
// tables are initialized; fzf itself calls this once at startup with
// the configured scheme.
func init() {
	algo.Init("default")
}

// FuzzyResult is one text's match against a filter pattern.
type FuzzyResult struct {
	// Score ranks match quality. Zero means no match.
	Score int

	// Positions are the rune indices of matched characters in the
	// text, for highlighting. Empty when there is no match.
	Positions []int
}

// FuzzyMatch scores text against pattern using fzf's V2 algorithm.
// Matching is case-insensitive; the pattern is lowercased here and
// the algorithm folds the text. An empty pattern scores zero.
//
// The slab amortizes the algorithm's scratch allocations across
// calls within one render pass; nil allocates per call, which is
// fine for one-off matches.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}

	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}

	match := FuzzyResult{Score: result.Score}
	if positions != nil {
		match.Positions = *positions
	}
	return match
}

// NewSlab returns scratch space for FuzzyMatch sized the way fzf
// itself sizes it for interactive filtering.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}
