package active_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/redline/internal/core/active"
	"github.com/draftpilot/redline/internal/core/suggestion"
)

func sugs(ids ...string) []suggestion.Suggestion {
	out := make([]suggestion.Suggestion, len(ids))
	for i, id := range ids {
		out[i] = suggestion.Suggestion{ID: id}
	}
	return out
}

func newManager(t *testing.T, ids ...string) *active.Manager {
	t.Helper()
	return active.NewManager(sugs(ids...), 10*time.Millisecond, zerolog.Nop())
}

func TestManager_SeedActivatesFirst(t *testing.T) {
	m := newManager(t, "a", "b", "c")

	state := m.State()
	assert.Equal(t, "a", state.ActiveSuggestionID)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, []string{"a", "b", "c"}, state.AvailableSuggestions)
	assert.Empty(t, state.ResolvedSuggestions)
}

func TestManager_EmptySet(t *testing.T) {
	m := newManager(t)

	state := m.State()
	assert.Empty(t, state.ActiveSuggestionID)
	assert.Equal(t, -1, state.CurrentIndex)

	assert.False(t, m.NavigateNext())
	assert.False(t, m.NavigatePrevious())
	assert.False(t, m.NavigateToIndex(0))
}

func TestManager_NavigationBounds(t *testing.T) {
	m := newManager(t, "a", "b")

	require.True(t, m.NavigateNext())
	assert.Equal(t, "b", m.State().ActiveSuggestionID)

	assert.False(t, m.NavigateNext(), "no wraparound past the last index")
	assert.Equal(t, "b", m.State().ActiveSuggestionID, "failed navigation leaves state unchanged")

	require.True(t, m.NavigatePrevious())
	assert.Equal(t, "a", m.State().ActiveSuggestionID)

	assert.False(t, m.NavigatePrevious(), "no wraparound before index 0")
	assert.Equal(t, "a", m.State().ActiveSuggestionID)
}

func TestManager_NavigateToIndex(t *testing.T) {
	m := newManager(t, "a", "b", "c")

	require.True(t, m.NavigateToIndex(2))
	assert.Equal(t, "c", m.State().ActiveSuggestionID)

	assert.False(t, m.NavigateToIndex(3))
	assert.False(t, m.NavigateToIndex(-1))
}

func TestManager_ResolveConsistency(t *testing.T) {
	m := newManager(t, "a", "b", "c")

	all := m.Resolve("b", false)
	assert.False(t, all)

	state := m.State()
	assert.NotContains(t, state.AvailableSuggestions, "b")
	assert.Contains(t, state.ResolvedSuggestions, "b")

	// A later resync never reintroduces a resolved suggestion.
	m.Resync(sugs("a", "b", "c"))
	assert.NotContains(t, m.State().AvailableSuggestions, "b")

	// Reset does.
	m.Reset(sugs("a", "b", "c"))
	assert.Contains(t, m.State().AvailableSuggestions, "b")
	assert.Empty(t, m.State().ResolvedSuggestions)
}

func TestManager_ResolveAllSignals(t *testing.T) {
	m := newManager(t, "a", "b")

	assert.False(t, m.Resolve("a", true))
	assert.True(t, m.Resolve("b", true))
	assert.Empty(t, m.State().ActiveSuggestionID)
}

func TestManager_AutoAdvanceSelectsSameIndex(t *testing.T) {
	m := newManager(t, "a", "b", "c")

	m.Resolve("a", true)

	require.Eventually(t, func() bool {
		return m.State().ActiveSuggestionID == "b"
	}, time.Second, time.Millisecond, "auto-advance should pick the suggestion now at the same index")
}

func TestManager_AutoAdvanceFromLastStepsBack(t *testing.T) {
	m := newManager(t, "a", "b", "c")
	require.True(t, m.NavigateToIndex(2))

	m.Resolve("c", true)

	require.Eventually(t, func() bool {
		return m.State().ActiveSuggestionID == "b"
	}, time.Second, time.Millisecond)
}

func TestManager_ManualNavigationSupersedesAutoAdvance(t *testing.T) {
	m := active.NewManager(sugs("a", "b", "c"), 50*time.Millisecond, zerolog.Nop())

	m.Resolve("a", true)
	require.True(t, m.NavigateToIndex(1)) // "c" after removal of "a"

	// The pending auto-advance must not fire late and override the choice.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "c", m.State().ActiveSuggestionID)
}

func TestManager_ResolveInactiveKeepsActive(t *testing.T) {
	m := newManager(t, "a", "b", "c")

	m.Resolve("c", true)
	assert.Equal(t, "a", m.State().ActiveSuggestionID)

	// No auto-advance was armed for an inactive resolution.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, "a", m.State().ActiveSuggestionID)
}

func TestManager_ResyncKeepsActiveWhenStillPresent(t *testing.T) {
	m := newManager(t, "a", "b", "c")
	require.True(t, m.NavigateToIndex(1))

	m.Resync(sugs("b", "c"))

	state := m.State()
	assert.Equal(t, "b", state.ActiveSuggestionID)
	assert.Equal(t, 0, state.CurrentIndex, "index recomputed against the new list")
}

func TestManager_ResyncActivatesFirstWhenActiveGone(t *testing.T) {
	m := newManager(t, "a", "b")

	m.Resync(sugs("x", "y"))
	assert.Equal(t, "x", m.State().ActiveSuggestionID)

	m.Resync(nil)
	assert.Empty(t, m.State().ActiveSuggestionID)
}

func TestManager_ActiveSuggestion(t *testing.T) {
	m := active.NewManager([]suggestion.Suggestion{
		{ID: "a", TextToReplace: "Teh", ReplaceWith: "The"},
	}, 10*time.Millisecond, zerolog.Nop())

	got, ok := m.ActiveSuggestion()
	require.True(t, ok)
	assert.Equal(t, "The", got.ReplaceWith)

	m.Resolve("a", true)
	_, ok = m.ActiveSuggestion()
	assert.False(t, ok)
}
