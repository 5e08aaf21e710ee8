// Package redline wires the suggestion-recalculation engine together: one
// EditorSession per open document owns the diff calculator, delta cache,
// recalculation service, active-suggestion cursor, and transition manager.
package redline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftpilot/redline/internal/core/active"
	"github.com/draftpilot/redline/internal/core/eventbus"
	"github.com/draftpilot/redline/internal/core/mode"
	"github.com/draftpilot/redline/internal/core/offsets"
	"github.com/draftpilot/redline/internal/core/recalc"
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/internal/core/textdiff"
	"github.com/draftpilot/redline/internal/core/transition"
	"github.com/draftpilot/redline/internal/remote"
)

// SessionOptions configures a new editor session.
type SessionOptions struct {
	PostID  string
	Content string

	Recalc     recalc.Options
	Transition transition.Config
	// AdvanceDelay is the active-manager auto-advance delay; zero selects
	// the default.
	AdvanceDelay time.Duration
}

// EditorSession is the per-document mutation boundary. External callers
// issue intents and read snapshots; they never touch internal state.
type EditorSession struct {
	postID     string
	client     remote.Client
	subscriber remote.Subscriber
	bus        *eventbus.Bus
	log        zerolog.Logger

	recalc      *recalc.Service
	active      *active.Manager
	transitions *transition.Manager

	mu                  sync.Mutex
	mode                mode.Mode
	content             string
	contentAtLastReview string
	suggestions         []suggestion.Suggestion
	unsubscribeReview   func()
}

// NewEditorSession constructs a session with its own cache and manager
// instances. client and subscriber may be nil for offline use.
func NewEditorSession(opts SessionOptions, client remote.Client, subscriber remote.Subscriber, bus *eventbus.Bus, log zerolog.Logger) *EditorSession {
	if bus == nil {
		bus = eventbus.New()
	}
	log = log.With().Str("post_id", opts.PostID).Logger()

	var requester recalc.AnalysisRequester
	if client != nil {
		requester = client
	}

	svc := recalc.NewService(
		textdiff.NewCalculator(),
		recalc.NewCache(recalc.DefaultCacheCapacity, recalc.DefaultCacheTTL),
		requester,
		opts.Recalc,
		log.With().Str("cmp", "recalc").Logger(),
	)

	return &EditorSession{
		postID:              opts.PostID,
		client:              client,
		subscriber:          subscriber,
		bus:                 bus,
		log:                 log,
		recalc:              svc,
		active:              active.NewManager(nil, opts.AdvanceDelay, log.With().Str("cmp", "active").Logger()),
		transitions:         transition.NewManager(svc, bus, opts.Transition, log.With().Str("cmp", "transition").Logger()),
		mode:                mode.Edit,
		content:             opts.Content,
		contentAtLastReview: opts.Content,
	}
}

// Bus returns the session's event bus for the rendering layer to subscribe
// to.
func (s *EditorSession) Bus() *eventbus.Bus {
	return s.bus
}

// Mode returns the current editor mode.
func (s *EditorSession) Mode() mode.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Content returns the current document content.
func (s *EditorSession) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Suggestions returns a copy of the current suggestion set.
func (s *EditorSession) Suggestions() []suggestion.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]suggestion.Suggestion(nil), s.suggestions...)
}

// ActiveState returns the active-suggestion snapshot.
func (s *EditorSession) ActiveState() active.State {
	return s.active.State()
}

// Navigate exposes the active-suggestion cursor.
func (s *EditorSession) Navigate() *active.Manager {
	return s.active
}

// UpdateContent records a local edit while in edit mode.
func (s *EditorSession) UpdateContent(content string) {
	s.mu.Lock()
	s.content = content
	s.mu.Unlock()
}

// LoadSuggestions fetches the server's suggestion set and seeds the
// session with it.
func (s *EditorSession) LoadSuggestions(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	resp, err := s.client.FetchSuggestions(ctx, s.postID)
	if err != nil {
		return fmt.Errorf("load suggestions: %w", err)
	}

	s.setSuggestions(resp.Suggestions)
	return nil
}

// EnterReview switches Edit->Review, recalculating positions when the
// content moved since the last review. The switch itself succeeds even
// when recalculation degrades.
func (s *EditorSession) EnterReview(ctx context.Context) transition.Result {
	s.mu.Lock()
	req := transition.Request{
		PostID:              s.postID,
		From:                s.mode,
		To:                  mode.Review,
		Content:             s.content,
		ContentAtLastReview: s.contentAtLastReview,
		Suggestions:         append([]suggestion.Suggestion(nil), s.suggestions...),
	}
	s.mu.Unlock()

	result := s.transitions.Transition(ctx, req)
	if !result.Success {
		return result
	}

	s.mu.Lock()
	s.mode = mode.Review
	if result.Refreshed {
		s.contentAtLastReview = s.content
	}
	s.mu.Unlock()

	s.setSuggestions(result.UpdatedSuggestions)
	return result
}

// EnterEdit switches Review->Edit. No recalculation happens.
func (s *EditorSession) EnterEdit(ctx context.Context) transition.Result {
	s.mu.Lock()
	req := transition.Request{
		PostID:      s.postID,
		From:        s.mode,
		To:          mode.Edit,
		Content:     s.content,
		Suggestions: append([]suggestion.Suggestion(nil), s.suggestions...),
	}
	s.mu.Unlock()

	result := s.transitions.Transition(ctx, req)
	if result.Success {
		s.mu.Lock()
		s.mode = mode.Edit
		s.mu.Unlock()
	}
	return result
}

// AcceptSuggestion applies the active replacement to the content, shifts
// the remaining suggestions, and resolves the suggestion. The server-side
// delete is best-effort.
func (s *EditorSession) AcceptSuggestion(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, sg := range s.suggestions {
		if sg.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("accept suggestion: %q not found", id)
	}

	sg := s.suggestions[idx]
	if !sg.ValidAgainst(s.content) {
		s.mu.Unlock()
		s.discard(ctx, id)
		return fmt.Errorf("accept suggestion: %q is stale", id)
	}

	edit := textdiff.Diff{
		Op:          textdiff.OpReplace,
		StartOffset: sg.StartOffset,
		EndOffset:   sg.EndOffset,
		OldText:     sg.TextToReplace,
		NewText:     sg.ReplaceWith,
	}
	s.content = textdiff.Apply(s.content, []textdiff.Diff{edit})
	s.contentAtLastReview = s.content

	// Shift the remaining suggestions past the applied edit in place.
	remaining := make([]suggestion.Suggestion, 0, len(s.suggestions)-1)
	others := append(s.suggestions[:idx:idx], s.suggestions[idx+1:]...)
	for i, d := range offsets.Calculate([]textdiff.Diff{edit}, others) {
		if !d.IsValid {
			continue
		}
		moved := others[i]
		moved.StartOffset = d.NewStartOffset
		moved.EndOffset = d.NewEndOffset
		if moved.ValidAgainst(s.content) {
			remaining = append(remaining, moved)
		}
	}
	s.suggestions = remaining
	s.mu.Unlock()

	s.discard(ctx, id)
	s.active.Resolve(id, true)
	s.publishSuggestions()

	s.log.Info().Str("id", id).Int("remaining", len(remaining)).Msg("suggestion accepted")
	return nil
}

// RejectSuggestion resolves a suggestion without touching the content.
func (s *EditorSession) RejectSuggestion(ctx context.Context, id string) {
	s.mu.Lock()
	kept := s.suggestions[:0]
	for _, sg := range s.suggestions {
		if sg.ID != id {
			kept = append(kept, sg)
		}
	}
	s.suggestions = kept
	s.mu.Unlock()

	s.discard(ctx, id)
	s.active.Resolve(id, true)
	s.publishSuggestions()
}

// StartReview asks the backend for a fresh analysis run and subscribes to
// its completion. When the run finishes, the session refetches the
// suggestion set and resyncs the cursor.
func (s *EditorSession) StartReview(ctx context.Context) (remote.ReviewHandle, error) {
	if s.client == nil || s.subscriber == nil {
		return remote.ReviewHandle{}, fmt.Errorf("start review: no remote client configured")
	}

	handle, err := s.client.StartReview(ctx, s.postID)
	if err != nil {
		return remote.ReviewHandle{}, fmt.Errorf("start review: %w", err)
	}

	unsubscribe := s.subscriber.Subscribe(ctx, handle, func(msg remote.ReviewMessage) {
		s.handleReviewMessage(ctx, msg)
	}, func(err error) {
		s.log.Warn().Err(err).Str("review_id", handle.ReviewID).Msg("review subscription error")
	})

	s.mu.Lock()
	if s.unsubscribeReview != nil {
		s.unsubscribeReview()
	}
	s.unsubscribeReview = unsubscribe
	s.mu.Unlock()

	return handle, nil
}

// Close releases the session's subscription, if any.
func (s *EditorSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribeReview != nil {
		s.unsubscribeReview()
		s.unsubscribeReview = nil
	}
}

func (s *EditorSession) handleReviewMessage(ctx context.Context, msg remote.ReviewMessage) {
	switch msg.Type {
	case remote.MessageReviewComplete:
		if err := s.LoadSuggestions(ctx); err != nil {
			s.log.Warn().Err(err).Msg("refetch after review failed")
			s.bus.PublishNotification(eventbus.NotificationPayload{
				Level:   eventbus.LevelWarning,
				Message: "review finished but suggestions could not be refreshed",
			})
			return
		}
		s.bus.PublishReviewCompleted(eventbus.ReviewCompletedPayload{PostID: s.postID, ReviewID: msg.ReviewID})
	case remote.MessageReviewError:
		s.bus.PublishReviewFailed(eventbus.ReviewFailedPayload{
			PostID:   s.postID,
			ReviewID: msg.ReviewID,
			Reason:   msg.Error,
		})
	}
}

// discard deletes a suggestion server-side, logging failures only.
func (s *EditorSession) discard(ctx context.Context, id string) {
	if s.client == nil {
		return
	}
	if err := s.client.DeleteSuggestion(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("server-side suggestion delete failed")
	}
}

func (s *EditorSession) setSuggestions(sugs []suggestion.Suggestion) {
	s.mu.Lock()
	s.suggestions = append([]suggestion.Suggestion(nil), sugs...)
	s.mu.Unlock()

	s.active.Resync(sugs)
	s.publishSuggestions()
}

func (s *EditorSession) publishSuggestions() {
	s.mu.Lock()
	sugs := append([]suggestion.Suggestion(nil), s.suggestions...)
	s.mu.Unlock()

	s.bus.PublishSuggestionsChanged(eventbus.SuggestionsChangedPayload{
		PostID:      s.postID,
		Suggestions: sugs,
	})
}
