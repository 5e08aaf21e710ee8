// Package suggestion defines the domain types for positional editing
// suggestions anchored to character ranges in a document.
package suggestion

import "time"

// Priority indicates how strongly a suggestion should be surfaced.
type Priority string

// Supported priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Type categorizes the analysis that produced a suggestion.
type Type string

// Supported suggestion types.
const (
	TypeLLM      Type = "llm"
	TypeBrand    Type = "brand"
	TypeFact     Type = "fact"
	TypeGrammar  Type = "grammar"
	TypeSpelling Type = "spelling"
)

// Suggestion is a server-assigned edit suggestion anchored to a half-open
// [StartOffset, EndOffset) range in the current document content.
type Suggestion struct {
	ID            string    `json:"id"`
	ContentID     string    `json:"content_id"`
	StartOffset   int       `json:"start_offset"`
	EndOffset     int       `json:"end_offset"`
	TextToReplace string    `json:"text_to_replace"`
	ReplaceWith   string    `json:"replace_with"`
	Reason        string    `json:"reason"`
	Priority      Priority  `json:"priority"`
	Type          Type      `json:"type"`
	ContextBefore string    `json:"context_before,omitempty"`
	ContextAfter  string    `json:"context_after,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValidAgainst reports whether the suggestion's anchor still holds for the
// given content: offsets in range and the anchored text unchanged. A
// suggestion failing this check is stale and must not be rendered.
func (s Suggestion) ValidAgainst(content string) bool {
	if s.StartOffset < 0 || s.StartOffset >= s.EndOffset || s.EndOffset > len(content) {
		return false
	}
	return content[s.StartOffset:s.EndOffset] == s.TextToReplace
}

// Overlaps reports whether the suggestion's range intersects [start, end).
func (s Suggestion) Overlaps(start, end int) bool {
	return !(s.EndOffset <= start || s.StartOffset >= end)
}

// ChangedRange is a contiguous region of the new content that differs from
// the previous version, used to drive re-analysis requests.
type ChangedRange struct {
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

// RecalculationResult is the outcome of recalculating a suggestion set
// against an edited document.
type RecalculationResult struct {
	// UpdatedSuggestions are survivors with corrected offsets. Every entry
	// is valid against the new content.
	UpdatedSuggestions []Suggestion `json:"updated_suggestions"`
	// InvalidatedSuggestions are ids of suggestions whose anchor text was
	// destroyed by the edit.
	InvalidatedSuggestions []string `json:"invalidated_suggestions"`
	// NewSuggestions were fetched for the changed regions, deduplicated by
	// id against survivors. Empty when new-suggestion requests are disabled
	// or the remote call failed.
	NewSuggestions []Suggestion `json:"new_suggestions"`
	// ChangedRanges are the merged regions that drove re-analysis.
	ChangedRanges []ChangedRange `json:"changed_ranges"`
}

// IDs returns the ids of the given suggestions in order.
func IDs(suggestions []Suggestion) []string {
	ids := make([]string, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.ID
	}
	return ids
}
