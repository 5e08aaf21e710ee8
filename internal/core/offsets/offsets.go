// Package offsets translates content diffs into per-suggestion offset
// deltas, deciding for each suggestion whether it is unaffected, shifted,
// or invalidated by an edit.
package offsets

import (
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/internal/core/textdiff"
)

// Delta records the offset adjustment computed for one suggestion. It is
// derived per recalculation call and never persisted.
type Delta struct {
	SuggestionID   string `json:"suggestion_id"`
	OldStartOffset int    `json:"old_start_offset"`
	OldEndOffset   int    `json:"old_end_offset"`
	NewStartOffset int    `json:"new_start_offset"`
	NewEndOffset   int    `json:"new_end_offset"`
	// IsValid is false when the suggestion's range overlaps a changed
	// region; the suggestion must be dropped, not repaired.
	IsValid bool `json:"is_valid"`
	// RequiresUpdate is true when the offsets actually moved.
	RequiresUpdate bool `json:"requires_update"`
}

// Calculate produces one Delta per suggestion. A suggestion overlapping any
// diff's old-range is marked invalid; otherwise its offsets shift by the
// cumulative length delta of all diffs that end at or before its start.
// Diffs are position-sorted before accumulation so ordering is
// deterministic. Never fails: invalidity is a field, not an error.
func Calculate(diffs []textdiff.Diff, suggestions []suggestion.Suggestion) []Delta {
	sorted := textdiff.SortByPosition(diffs)

	deltas := make([]Delta, 0, len(suggestions))
	for _, s := range suggestions {
		deltas = append(deltas, calculateOne(sorted, s))
	}
	return deltas
}

func calculateOne(sorted []textdiff.Diff, s suggestion.Suggestion) Delta {
	d := Delta{
		SuggestionID:   s.ID,
		OldStartOffset: s.StartOffset,
		OldEndOffset:   s.EndOffset,
		NewStartOffset: s.StartOffset,
		NewEndOffset:   s.EndOffset,
		IsValid:        true,
	}

	for _, diff := range sorted {
		if s.Overlaps(diff.StartOffset, diff.EndOffset) {
			d.IsValid = false
			return d
		}
	}

	shift := 0
	for _, diff := range sorted {
		if diff.EndOffset <= s.StartOffset {
			shift += diff.Delta()
		}
	}

	d.NewStartOffset += shift
	d.NewEndOffset += shift
	d.RequiresUpdate = shift != 0
	return d
}
