// Package active tracks which suggestion the writer is currently focused
// on: navigation over the unresolved set, resolution bookkeeping, and
// resync when the underlying suggestion list changes.
package active

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftpilot/redline/internal/core/suggestion"
)

// DefaultAdvanceDelay is how long resolution feedback stays on screen
// before auto-advance selects the next suggestion.
const DefaultAdvanceDelay = 300 * time.Millisecond

// State is a read-only snapshot of the manager. The rendering layer reads
// it and issues intents; it never mutates manager internals directly.
type State struct {
	ActiveSuggestionID   string
	CurrentIndex         int
	AvailableSuggestions []string
	ResolvedSuggestions  []string
}

// Manager owns the active-suggestion cursor for one document session.
// Navigation and resolution are synchronous; the only asynchrony is the
// cosmetic auto-advance delay, which any explicit navigation supersedes.
type Manager struct {
	mu sync.Mutex

	available []suggestion.Suggestion
	resolved  map[string]struct{}
	// resolvedOrder preserves resolution order for State snapshots.
	resolvedOrder []string

	activeID string

	advanceDelay time.Duration
	pending      *time.Timer
	log          zerolog.Logger
}

// NewManager creates a manager seeded with the given suggestions. A
// non-positive advanceDelay selects DefaultAdvanceDelay.
func NewManager(suggestions []suggestion.Suggestion, advanceDelay time.Duration, log zerolog.Logger) *Manager {
	if advanceDelay <= 0 {
		advanceDelay = DefaultAdvanceDelay
	}
	m := &Manager{
		resolved:     make(map[string]struct{}),
		advanceDelay: advanceDelay,
		log:          log,
	}
	m.Resync(suggestions)
	return m
}

// Resync rebuilds the available list from the given suggestions, excluding
// everything already resolved. The active suggestion is kept when still
// present; otherwise the first available suggestion (if any) activates.
func (m *Manager) Resync(suggestions []suggestion.Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.available = m.available[:0]
	for _, s := range suggestions {
		if _, done := m.resolved[s.ID]; done {
			continue
		}
		m.available = append(m.available, s)
	}

	if m.activeID != "" && m.indexOf(m.activeID) >= 0 {
		return
	}

	if len(m.available) > 0 {
		m.activeID = m.available[0].ID
	} else {
		m.activeID = ""
	}
}

// NavigateNext moves to the next suggestion. Returns false without state
// change when already at the last index (no wraparound).
func (m *Manager) NavigateNext() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navigateTo(m.indexOf(m.activeID) + 1)
}

// NavigatePrevious moves to the previous suggestion. Returns false without
// state change when already at index 0.
func (m *Manager) NavigatePrevious() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(m.activeID)
	if idx < 0 {
		return false
	}
	return m.navigateTo(idx - 1)
}

// NavigateToIndex jumps to the given index in the available list. Returns
// false for out-of-bounds indexes.
func (m *Manager) NavigateToIndex(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navigateTo(i)
}

// navigateTo moves the cursor, cancelling any pending auto-advance so a
// late timer cannot override the manual choice. Caller holds m.mu.
func (m *Manager) navigateTo(i int) bool {
	if i < 0 || i >= len(m.available) {
		return false
	}
	m.cancelPendingLocked()
	m.activeID = m.available[i].ID
	return true
}

// Resolve moves id from available to resolved. When id was active and
// autoAdvance is set, a replacement is selected after the advance delay:
// the suggestion now occupying the same index, or the previous one when
// the resolved suggestion was last. Returns true when the whole set is now
// resolved.
func (m *Manager) Resolve(id string, autoAdvance bool) (allResolved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return len(m.available) == 0
	}

	wasActive := m.activeID == id
	m.resolved[id] = struct{}{}
	m.resolvedOrder = append(m.resolvedOrder, id)
	m.available = append(m.available[:idx], m.available[idx+1:]...)

	if len(m.available) == 0 {
		m.cancelPendingLocked()
		m.activeID = ""
		m.log.Debug().Str("id", id).Msg("all suggestions resolved")
		return true
	}

	if !wasActive {
		return false
	}

	if !autoAdvance {
		m.activeID = ""
		return false
	}

	next := idx
	if next >= len(m.available) {
		next = len(m.available) - 1
	}
	nextID := m.available[next].ID

	m.cancelPendingLocked()
	m.pending = time.AfterFunc(m.advanceDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.pending == nil {
			// Superseded by an explicit navigation.
			return
		}
		m.pending = nil
		if m.indexOf(nextID) >= 0 {
			m.activeID = nextID
		}
	})
	return false
}

// Reset clears the resolved set and rebuilds the available list from the
// full input, used when a post session restarts.
func (m *Manager) Reset(suggestions []suggestion.Suggestion) {
	m.mu.Lock()
	m.cancelPendingLocked()
	m.resolved = make(map[string]struct{})
	m.resolvedOrder = nil
	m.activeID = ""
	m.mu.Unlock()

	m.Resync(suggestions)
}

// ActiveSuggestion returns the currently active suggestion, if any.
func (m *Manager) ActiveSuggestion() (suggestion.Suggestion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(m.activeID)
	if idx < 0 {
		return suggestion.Suggestion{}, false
	}
	return m.available[idx], true
}

// State returns a snapshot of the manager.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State{
		ActiveSuggestionID:   m.activeID,
		CurrentIndex:         m.indexOf(m.activeID),
		AvailableSuggestions: suggestion.IDs(m.available),
		ResolvedSuggestions:  append([]string(nil), m.resolvedOrder...),
	}
}

// indexOf returns the position of id in the available list, or -1.
// Caller holds m.mu.
func (m *Manager) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range m.available {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// cancelPendingLocked stops a pending auto-advance timer. Caller holds m.mu.
func (m *Manager) cancelPendingLocked() {
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
