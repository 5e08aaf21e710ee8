package recalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/redline/internal/core/offsets"
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/internal/core/textdiff"
)

func testInputs() (string, []suggestion.Suggestion, []textdiff.Diff) {
	content := "I like cats. I like dogs."
	sugs := []suggestion.Suggestion{{ID: "s1", StartOffset: 20, EndOffset: 24, TextToReplace: "dogs"}}
	diffs := []textdiff.Diff{{Op: textdiff.OpInsert, StartOffset: 2, EndOffset: 2, NewText: "really "}}
	return content, sugs, diffs
}

func TestCache_GetSetRoundTrip(t *testing.T) {
	c := NewCache(10, time.Minute)
	content, sugs, diffs := testInputs()

	_, ok := c.Get(content, sugs, diffs)
	assert.False(t, ok)

	deltas := offsets.Calculate(diffs, sugs)
	c.Set(content, sugs, diffs, deltas)

	got, ok := c.Get(content, sugs, diffs)
	require.True(t, ok)
	assert.Equal(t, deltas, got)

	m := c.Metrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, 1, m.Size)
	assert.InDelta(t, 50.0, m.HitRate(), 0.01)
}

func TestCache_ReturnsCopy(t *testing.T) {
	c := NewCache(10, time.Minute)
	content, sugs, diffs := testInputs()

	deltas := offsets.Calculate(diffs, sugs)
	c.Set(content, sugs, diffs, deltas)

	got, ok := c.Get(content, sugs, diffs)
	require.True(t, ok)
	got[0].NewStartOffset = -999

	again, ok := c.Get(content, sugs, diffs)
	require.True(t, ok)
	assert.NotEqual(t, -999, again[0].NewStartOffset, "mutating a returned slice must not corrupt the cache")
}

func TestCache_KeySensitivity(t *testing.T) {
	c := NewCache(10, time.Minute)
	content, sugs, diffs := testInputs()
	c.Set(content, sugs, diffs, []offsets.Delta{{SuggestionID: "s1"}})

	t.Run("different content misses", func(t *testing.T) {
		_, ok := c.Get(content+"!", sugs, diffs)
		assert.False(t, ok)
	})

	t.Run("different suggestion set misses", func(t *testing.T) {
		other := append([]suggestion.Suggestion{{ID: "s2"}}, sugs...)
		_, ok := c.Get(content, other, diffs)
		assert.False(t, ok)
	})

	t.Run("different diff misses", func(t *testing.T) {
		other := []textdiff.Diff{{Op: textdiff.OpDelete, StartOffset: 0, EndOffset: 2, OldText: "I "}}
		_, ok := c.Get(content, sugs, other)
		assert.False(t, ok)
	})

	t.Run("suggestion order is irrelevant", func(t *testing.T) {
		a := []suggestion.Suggestion{{ID: "x"}, {ID: "y"}}
		b := []suggestion.Suggestion{{ID: "y"}, {ID: "x"}}
		c.Set(content, a, diffs, []offsets.Delta{})
		_, ok := c.Get(content, b, diffs)
		assert.True(t, ok)
	})
}

func TestCache_TTLExpiry(t *testing.T) {
	c := NewCache(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	content, sugs, diffs := testInputs()
	c.Set(content, sugs, diffs, []offsets.Delta{{SuggestionID: "s1"}})

	now = now.Add(2 * time.Minute)
	_, ok := c.Get(content, sugs, diffs)
	assert.False(t, ok, "expired entry must be a miss")

	m := c.Metrics()
	assert.Equal(t, int64(1), m.Evictions, "expired entry is evicted eagerly")
	assert.Equal(t, 0, m.Size)
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2, time.Minute)
	_, sugs, diffs := testInputs()

	c.Set("one", sugs, diffs, []offsets.Delta{})
	c.Set("two", sugs, diffs, []offsets.Delta{})

	// Touch "one" so "two" becomes least recently used.
	_, ok := c.Get("one", sugs, diffs)
	require.True(t, ok)

	c.Set("three", sugs, diffs, []offsets.Delta{})

	_, ok = c.Get("two", sugs, diffs)
	assert.False(t, ok, "LRU entry should have been evicted")
	_, ok = c.Get("one", sugs, diffs)
	assert.True(t, ok)
	_, ok = c.Get("three", sugs, diffs)
	assert.True(t, ok)

	assert.Equal(t, int64(1), c.Metrics().Evictions)
	assert.Equal(t, 2, c.Metrics().Size)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(10, time.Minute)
	content, sugs, diffs := testInputs()
	c.Set(content, sugs, diffs, []offsets.Delta{})

	c.Clear()

	_, ok := c.Get(content, sugs, diffs)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Metrics().Size)
}
