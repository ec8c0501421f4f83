package episodic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/patternindex"
)

// extractPatterns produces up to three Patterns from a single episode —
// file-access, query, and solution-path — per spec.md §4.6, using
// patternindex.Tokenize for the shared keyword pipeline.
func extractPatterns(e Episode) []Pattern {
	markers := patternindex.Tokenize(e.TaskDescription)
	successRate := float32(0)
	if e.Outcome == OutcomeSuccess {
		successRate = 1.0
	}

	var patterns []Pattern
	if len(e.FilesTouched) > 0 {
		patterns = append(patterns, Pattern{
			ID:             ids.NewPatternID(),
			Kind:           PatternFileAccess,
			Name:           "File Access Pattern",
			Description:    fmt.Sprintf("Files typically accessed for: %s", e.TaskDescription),
			TypicalActions: append([]string(nil), e.FilesTouched...),
			Frequency:      1,
			SuccessRate:    successRate,
			ContextMarkers: markers,
		})
	}
	if len(e.QueriesMade) > 0 {
		patterns = append(patterns, Pattern{
			ID:             ids.NewPatternID(),
			Kind:           PatternQuery,
			Name:           "Query Pattern",
			Description:    fmt.Sprintf("Common queries for: %s", e.TaskDescription),
			TypicalActions: append([]string(nil), e.QueriesMade...),
			Frequency:      1,
			SuccessRate:    successRate,
			ContextMarkers: markers,
		})
	}
	if e.SolutionSummary != "" {
		patterns = append(patterns, Pattern{
			ID:             ids.NewPatternID(),
			Kind:           PatternSolutionPath,
			Name:           "Solution Path Pattern",
			Description:    fmt.Sprintf("Solution approach for: %s", e.TaskDescription),
			TypicalActions: []string{e.SolutionSummary},
			Frequency:      1,
			SuccessRate:    successRate,
			ContextMarkers: markers,
		})
	}
	return patterns
}

// ExtractPatterns groups the patterns extracted from episodes by their kind
// and joined context-marker key and consolidates each group, per spec.md §4.6.
func ExtractPatterns(episodes []Episode) []Pattern {
	groups := make(map[string][]Pattern)
	var order []string
	for _, e := range episodes {
		for _, p := range extractPatterns(e) {
			key := string(p.Kind) + ":" + strings.Join(p.ContextMarkers, "_")
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], p)
		}
	}

	out := make([]Pattern, 0, len(groups))
	for _, key := range order {
		out = append(out, consolidatePatternGroup(groups[key]))
	}
	return out
}

// consolidatePatternGroup merges a group of patterns sharing the same
// kind and context-marker key: frequency becomes the group size, success_rate is
// averaged, and typical_actions is deduplicated via set union.
func consolidatePatternGroup(group []Pattern) Pattern {
	consolidated := group[0]
	consolidated.Frequency = uint32(len(group))

	var totalSuccess float32
	actions := make(map[string]struct{})
	for _, p := range group {
		totalSuccess += p.SuccessRate
		for _, a := range p.TypicalActions {
			actions[a] = struct{}{}
		}
	}
	consolidated.SuccessRate = totalSuccess / float32(len(group))

	merged := make([]string, 0, len(actions))
	for a := range actions {
		merged = append(merged, a)
	}
	sort.Strings(merged)
	consolidated.TypicalActions = merged

	return consolidated
}
