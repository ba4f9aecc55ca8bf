// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching one candidate.
type FuzzyResult struct {
	// Score is positive for a match and zero otherwise. Higher is
	// better.
	Score int

	// Positions are the rune indices of matched characters in
	// ascending order, for highlighting.
	Positions []int
}

// Matched reports whether the candidate matched the pattern.
func (result FuzzyResult) Matched() bool {
	return result.Score > 0
}

var initScheme sync.Once

// NewSlab allocates scratch space for [FuzzyMatch]. Reusing one slab
// across a filter pass avoids an allocation per candidate. A slab must
// not be shared between goroutines.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// FuzzyMatch scores text against pattern with fzf's V2 algorithm,
// using the path scoring scheme so matches after "/" rank higher.
// Matching is case-insensitive. An empty pattern scores zero. slab may
// be nil.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	initScheme.Do(func() { algo.Init("path") })

	// fzf expects a lowercase pattern when matching case-insensitively
	// and folds the input itself.
	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}

	var sorted []int
	if positions != nil {
		sorted = slices.Clone(*positions)
		slices.Sort(sorted)
	}
	return FuzzyResult{Score: result.Score, Positions: sorted}
}

// HighlightMatches renders text with the runes at positions styled by
// highlight and the rest by normal.
func HighlightMatches(text string, positions []int, normal, highlight func(string) string) string {
	if len(positions) == 0 {
		return normal(text)
	}
	var builder strings.Builder
	runes := []rune(text)
	next := 0
	start := 0
	for start < len(runes) {
		matched := next < len(positions) && positions[next] == start
		end := start
		for end < len(runes) {
			isMatch := next < len(positions) && positions[next] == end
			if isMatch != matched {
				break
			}
			if isMatch {
				next++
			}
			end++
		}
		segment := string(runes[start:end])
		if matched {
			builder.WriteString(highlight(segment))
		} else {
			builder.WriteString(normal(segment))
		}
		start = end
	}
	return builder.String()
}
