package recalc_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/redline/internal/core/recalc"
	"github.com/draftpilot/redline/internal/core/suggestion"
)

type stubRequester struct {
	suggestions []suggestion.Suggestion
	err         error
	calls       int
	lastRanges  []suggestion.ChangedRange
}

func (r *stubRequester) RequestSuggestions(_ context.Context, _ string, _ string, ranges []suggestion.ChangedRange) ([]suggestion.Suggestion, error) {
	r.calls++
	r.lastRanges = ranges
	return r.suggestions, r.err
}

func newTestService(requester recalc.AnalysisRequester, opts recalc.Options) *recalc.Service {
	return recalc.NewService(nil, nil, requester, opts, zerolog.Nop())
}

func TestService_AppliedSuggestionLeavesCleanResult(t *testing.T) {
	// The writer accepted the "Teh" fix; the remaining suggestion list is
	// empty and the recalculation has nothing to update or invalidate.
	svc := newTestService(nil, recalc.DefaultOptions())

	result, err := svc.PerformRecalculation(context.Background(), "Teh cat sat.", "The cat sat.", nil, "post-1")
	require.NoError(t, err)

	assert.Empty(t, result.UpdatedSuggestions)
	assert.Empty(t, result.InvalidatedSuggestions)
}

func TestService_ShiftsSuggestionAfterEarlyInsert(t *testing.T) {
	oldContent := "I like cats. I like dogs."
	newContent := "I really like cats. I like dogs."

	start := strings.Index(oldContent, "dogs")
	sugs := []suggestion.Suggestion{{
		ID:            "a",
		StartOffset:   start,
		EndOffset:     start + 4,
		TextToReplace: "dogs",
		ReplaceWith:   "birds",
	}}

	svc := newTestService(nil, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, sugs, "post-1")
	require.NoError(t, err)

	require.Len(t, result.UpdatedSuggestions, 1)
	got := result.UpdatedSuggestions[0]
	assert.Equal(t, "dogs", newContent[got.StartOffset:got.EndOffset])
	assert.Empty(t, result.InvalidatedSuggestions)
}

func TestService_InvalidatesSuggestionWhenAnchorDestroyed(t *testing.T) {
	oldContent := "I like cats. I like dogs."
	newContent := "I like cats. I like birds."

	start := strings.Index(oldContent, "dogs")
	sugs := []suggestion.Suggestion{{
		ID:            "a",
		StartOffset:   start,
		EndOffset:     start + 4,
		TextToReplace: "dogs",
	}}

	svc := newTestService(nil, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, sugs, "post-1")
	require.NoError(t, err)

	assert.Empty(t, result.UpdatedSuggestions)
	assert.Equal(t, []string{"a"}, result.InvalidatedSuggestions)
}

func TestService_NoEditShortCircuits(t *testing.T) {
	sugs := []suggestion.Suggestion{{ID: "a", StartOffset: 0, EndOffset: 3, TextToReplace: "Teh"}}

	svc := newTestService(nil, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), "Teh cat sat.", "Teh cat sat.", sugs, "post-1")
	require.NoError(t, err)

	assert.Equal(t, sugs, result.UpdatedSuggestions)
	assert.Equal(t, 0, svc.Cache().Metrics().Size, "identical content must not create a cache entry")
}

func TestService_ResultGuarantee(t *testing.T) {
	// Every survivor's anchored text must equal its TextToReplace against
	// the new content, whatever the suggestion set looked like.
	oldContent := "one two three four five"
	newContent := "one 2 three four five"

	sugs := []suggestion.Suggestion{
		{ID: "before", StartOffset: 0, EndOffset: 3, TextToReplace: "one"},
		{ID: "inside", StartOffset: 4, EndOffset: 7, TextToReplace: "two"},
		{ID: "after", StartOffset: 14, EndOffset: 18, TextToReplace: "four"},
		{ID: "stale", StartOffset: 8, EndOffset: 13, TextToReplace: "WRONG"},
	}

	svc := newTestService(nil, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, sugs, "post-1")
	require.NoError(t, err)

	for _, sg := range result.UpdatedSuggestions {
		assert.Equal(t, sg.TextToReplace, newContent[sg.StartOffset:sg.EndOffset], "suggestion %s", sg.ID)
	}
	assert.Contains(t, result.InvalidatedSuggestions, "inside")
	assert.Contains(t, result.InvalidatedSuggestions, "stale")
}

func TestService_CacheTransparency(t *testing.T) {
	oldContent := "I like cats. I like dogs."
	newContent := "I really like cats. I like dogs."
	start := strings.Index(oldContent, "dogs")
	sugs := []suggestion.Suggestion{{ID: "a", StartOffset: start, EndOffset: start + 4, TextToReplace: "dogs"}}

	svc := newTestService(nil, recalc.DefaultOptions())

	first, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, sugs, "post-1")
	require.NoError(t, err)

	second, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, sugs, "post-1")
	require.NoError(t, err)

	assert.Equal(t, first, second, "cache hit and miss paths must produce identical results")
	assert.Equal(t, int64(1), svc.Cache().Metrics().Hits)
}

func TestService_RequestsNewSuggestionsForChangedText(t *testing.T) {
	oldContent := "I like cats."
	newContent := "I really like cats."

	req := &stubRequester{suggestions: []suggestion.Suggestion{
		{ID: "fresh", StartOffset: 2, EndOffset: 8, TextToReplace: "really"},
	}}

	svc := newTestService(req, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, nil, "post-1")
	require.NoError(t, err)

	assert.Equal(t, 1, req.calls)
	require.Len(t, result.NewSuggestions, 1)
	assert.Equal(t, "fresh", result.NewSuggestions[0].ID)
	require.Len(t, result.ChangedRanges, 1)
	assert.Equal(t, "really ", result.ChangedRanges[0].Text)
}

func TestService_NewSuggestionsDeduplicatedAgainstSurvivors(t *testing.T) {
	oldContent := "aaa bbb ccc ddd"
	newContent := "aaa XYZQW ccc ddd"

	survivor := suggestion.Suggestion{ID: "keep", StartOffset: 0, EndOffset: 3, TextToReplace: "aaa"}
	req := &stubRequester{suggestions: []suggestion.Suggestion{
		{ID: "keep", StartOffset: 0, EndOffset: 3, TextToReplace: "aaa"},
		{ID: "fresh", StartOffset: 4, EndOffset: 9, TextToReplace: "XYZQW"},
	}}

	svc := newTestService(req, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, []suggestion.Suggestion{survivor}, "post-1")
	require.NoError(t, err)

	require.Len(t, result.NewSuggestions, 1)
	assert.Equal(t, "fresh", result.NewSuggestions[0].ID)
}

func TestService_RemoteFailureIsSwallowed(t *testing.T) {
	req := &stubRequester{err: errors.New("analysis service down")}

	svc := newTestService(req, recalc.DefaultOptions())
	result, err := svc.PerformRecalculation(context.Background(), "I like cats.", "I really like cats.", nil, "post-1")
	require.NoError(t, err, "remote failure must not fail the recalculation")

	assert.Equal(t, 1, req.calls)
	assert.Empty(t, result.NewSuggestions)
}

func TestService_TrivialEditSkipsReanalysis(t *testing.T) {
	req := &stubRequester{}
	opts := recalc.DefaultOptions()
	opts.MinChangedRangeLength = 5

	svc := newTestService(req, opts)
	_, err := svc.PerformRecalculation(context.Background(), "cat", "cats", nil, "post-1")
	require.NoError(t, err)

	assert.Equal(t, 0, req.calls, "sub-threshold edits must not trigger re-analysis")
}

func TestService_OversizedChangeSkipsReanalysis(t *testing.T) {
	req := &stubRequester{}
	opts := recalc.DefaultOptions()
	opts.MaxChangedRangeLength = 10

	svc := newTestService(req, opts)
	_, err := svc.PerformRecalculation(context.Background(), "short", strings.Repeat("long text ", 10), nil, "post-1")
	require.NoError(t, err)

	assert.Equal(t, 0, req.calls)
}

func TestService_DisabledStepsAreSkipped(t *testing.T) {
	oldContent := "I like cats. I like dogs."
	newContent := "I really like cats. I like dogs."
	start := strings.Index(oldContent, "dogs")
	sugs := []suggestion.Suggestion{{ID: "a", StartOffset: start, EndOffset: start + 4, TextToReplace: "dogs"}}

	opts := recalc.DefaultOptions()
	opts.EnablePositionUpdates = false

	svc := newTestService(nil, opts)
	result, err := svc.PerformRecalculation(context.Background(), oldContent, newContent, sugs, "post-1")
	require.NoError(t, err)

	// Without position updates the stale offsets fail the anchor check and
	// the suggestion drops rather than rendering at a wrong position.
	assert.Empty(t, result.UpdatedSuggestions)
	assert.Equal(t, []string{"a"}, result.InvalidatedSuggestions)
}
