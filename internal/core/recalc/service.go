// Package recalc recalculates suggestion positions after a document edit:
// diff, per-suggestion offset deltas (memoized), invalidation, and optional
// re-analysis requests for the changed text.
package recalc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftpilot/redline/internal/core/offsets"
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/internal/core/textdiff"
)

// AnalysisRequester fetches fresh suggestions for changed regions of a
// document. Implementations are remote and best-effort.
type AnalysisRequester interface {
	RequestSuggestions(ctx context.Context, postID, text string, ranges []suggestion.ChangedRange) ([]suggestion.Suggestion, error)
}

// Options toggles the individual recalculation steps and tunes the changed
// range filter used for re-analysis requests.
type Options struct {
	EnablePositionUpdates       bool
	EnableInvalidation          bool
	EnableNewSuggestionRequests bool

	// MinChangedRangeLength filters out trivial edits so they do not
	// trigger re-analysis.
	MinChangedRangeLength int
	// MaxChangedRangeLength caps the changed text size sent for
	// re-analysis.
	MaxChangedRangeLength int
}

// DefaultOptions enables every step with the default changed-range bounds.
func DefaultOptions() Options {
	return Options{
		EnablePositionUpdates:       true,
		EnableInvalidation:          true,
		EnableNewSuggestionRequests: true,
		MinChangedRangeLength:       3,
		MaxChangedRangeLength:       2000,
	}
}

// Service orchestrates one document's suggestion recalculation. It owns the
// delta cache; construct one Service per open document.
type Service struct {
	differ    *textdiff.Calculator
	cache     *Cache
	requester AnalysisRequester
	opts      Options
	log       zerolog.Logger
}

// NewService creates a recalculation service. requester may be nil, in
// which case new-suggestion requests are skipped.
func NewService(differ *textdiff.Calculator, cache *Cache, requester AnalysisRequester, opts Options, log zerolog.Logger) *Service {
	if differ == nil {
		differ = textdiff.NewCalculator()
	}
	if cache == nil {
		cache = NewCache(DefaultCacheCapacity, DefaultCacheTTL)
	}
	return &Service{
		differ:    differ,
		cache:     cache,
		requester: requester,
		opts:      opts,
		log:       log,
	}
}

// Cache exposes the service's delta cache, mainly for metrics.
func (s *Service) Cache() *Cache {
	return s.cache
}

// PerformRecalculation recomputes the suggestion set for the edit from
// oldContent to newContent. Survivors are shifted, suggestions overlapping
// the edit are dropped, and fresh suggestions are requested for the changed
// text when it falls within the configured bounds. Remote failures degrade
// to a result without new suggestions; they never fail the recalculation.
func (s *Service) PerformRecalculation(ctx context.Context, oldContent, newContent string, current []suggestion.Suggestion, postID string) (suggestion.RecalculationResult, error) {
	started := time.Now()
	result := suggestion.RecalculationResult{
		UpdatedSuggestions:     []suggestion.Suggestion{},
		InvalidatedSuggestions: []string{},
		NewSuggestions:         []suggestion.Suggestion{},
		ChangedRanges:          []suggestion.ChangedRange{},
	}

	diffs := s.differ.Diff(oldContent, newContent)
	if len(diffs) == 0 {
		// No edit: every suggestion carries over untouched.
		result.UpdatedSuggestions = append(result.UpdatedSuggestions, current...)
		return result, nil
	}

	deltas, cached := s.cache.Get(oldContent, current, diffs)
	if !cached {
		deltas = offsets.Calculate(diffs, current)
		s.cache.Set(oldContent, current, diffs, deltas)
	}

	byID := make(map[string]suggestion.Suggestion, len(current))
	for _, sg := range current {
		byID[sg.ID] = sg
	}

	survivors := make([]suggestion.Suggestion, 0, len(current))
	for _, d := range deltas {
		sg, ok := byID[d.SuggestionID]
		if !ok {
			continue
		}

		if !d.IsValid {
			if s.opts.EnableInvalidation {
				result.InvalidatedSuggestions = append(result.InvalidatedSuggestions, d.SuggestionID)
				continue
			}
			// Invalidation disabled: carried forward as-is; the final
			// anchor check below still guards against wrong positions.
			survivors = append(survivors, sg)
			continue
		}

		if s.opts.EnablePositionUpdates && d.RequiresUpdate {
			sg.StartOffset = d.NewStartOffset
			sg.EndOffset = d.NewEndOffset
		}
		survivors = append(survivors, sg)
	}

	result.ChangedRanges = changedRanges(diffs, s.opts.MinChangedRangeLength)

	// A position update can move a suggestion into a changed region, so
	// the overlap rule is applied once more against the new ranges.
	for _, sg := range survivors {
		if s.overlapsChanged(sg, result.ChangedRanges) {
			if s.opts.EnableInvalidation {
				result.InvalidatedSuggestions = append(result.InvalidatedSuggestions, sg.ID)
				continue
			}
		}
		// Anchor check: never emit a suggestion whose text no longer
		// matches the new content. Prefer dropping over a wrong position.
		if !sg.ValidAgainst(newContent) {
			result.InvalidatedSuggestions = append(result.InvalidatedSuggestions, sg.ID)
			continue
		}
		result.UpdatedSuggestions = append(result.UpdatedSuggestions, sg)
	}

	result.NewSuggestions = s.requestNewSuggestions(ctx, postID, newContent, result)

	s.log.Debug().
		Ctx(ctx).
		Int("survivors", len(result.UpdatedSuggestions)).
		Int("invalidated", len(result.InvalidatedSuggestions)).
		Int("new", len(result.NewSuggestions)).
		Dur("elapsed", time.Since(started)).
		Msg("recalculation complete")

	return result, nil
}

func (s *Service) overlapsChanged(sg suggestion.Suggestion, ranges []suggestion.ChangedRange) bool {
	for _, r := range ranges {
		if sg.Overlaps(r.StartOffset, r.EndOffset) {
			return true
		}
	}
	return false
}

// requestNewSuggestions asks the analysis service for suggestions covering
// the changed text. Best-effort: failures are logged and swallowed.
func (s *Service) requestNewSuggestions(ctx context.Context, postID, newContent string, result suggestion.RecalculationResult) []suggestion.Suggestion {
	if !s.opts.EnableNewSuggestionRequests || s.requester == nil || len(result.ChangedRanges) == 0 {
		return []suggestion.Suggestion{}
	}

	total := 0
	for _, r := range result.ChangedRanges {
		total += len(r.Text)
	}
	if total < s.opts.MinChangedRangeLength || total > s.opts.MaxChangedRangeLength {
		return []suggestion.Suggestion{}
	}

	fetched, err := s.requester.RequestSuggestions(ctx, postID, newContent, result.ChangedRanges)
	if err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("new-suggestion request failed")
		return []suggestion.Suggestion{}
	}

	seen := make(map[string]struct{}, len(result.UpdatedSuggestions))
	for _, sg := range result.UpdatedSuggestions {
		seen[sg.ID] = struct{}{}
	}

	merged := make([]suggestion.Suggestion, 0, len(fetched))
	for _, sg := range fetched {
		if _, dup := seen[sg.ID]; dup {
			continue
		}
		seen[sg.ID] = struct{}{}
		merged = append(merged, sg)
	}
	return merged
}

// changedRanges maps each diff's replacement span into new-content
// coordinates, merging overlaps and dropping ranges shorter than minLen.
func changedRanges(diffs []textdiff.Diff, minLen int) []suggestion.ChangedRange {
	sorted := textdiff.SortByPosition(diffs)

	ranges := make([]suggestion.ChangedRange, 0, len(sorted))
	shift := 0
	for _, d := range sorted {
		start := d.StartOffset + shift
		r := suggestion.ChangedRange{
			StartOffset: start,
			EndOffset:   start + len(d.NewText),
			Text:        d.NewText,
		}
		shift += d.Delta()

		if len(r.Text) < minLen {
			continue
		}

		if n := len(ranges); n > 0 && r.StartOffset <= ranges[n-1].EndOffset {
			// Merge adjacent or overlapping regions.
			if r.EndOffset > ranges[n-1].EndOffset {
				ranges[n-1].EndOffset = r.EndOffset
				ranges[n-1].Text += r.Text
			}
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges
}
