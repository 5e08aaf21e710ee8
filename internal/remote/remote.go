// Package remote defines the engine's view of the external analysis
// backend: fetching and deleting suggestions, starting asynchronous review
// runs, and subscribing to their completion. Implementations are abstract;
// the HTTP client in this package is one of them.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/draftpilot/redline/internal/core/suggestion"
)

// Sentinel errors for remote operations.
var (
	// ErrUnavailable marks transport-level failures. Callers degrade to
	// existing suggestions instead of failing.
	ErrUnavailable = errors.New("analysis service unavailable")
	// ErrUnauthorized marks auth failures.
	ErrUnauthorized = errors.New("analysis service rejected credentials")
)

// TokenSource supplies an opaque auth token for remote calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token, used by the CLI
// and tests.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// SuggestionsResponse is the payload returned when fetching a post's
// suggestion set.
type SuggestionsResponse struct {
	Suggestions []suggestion.Suggestion `json:"suggestions"`
	Summary     string                  `json:"summary,omitempty"`
}

// ReviewHandle identifies a started asynchronous review run and where to
// listen for its completion.
type ReviewHandle struct {
	ReviewID  string    `json:"review_id"`
	Token     string    `json:"token"`
	Endpoint  string    `json:"endpoint"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MessageType tags a ReviewMessage.
type MessageType string

// Review message types.
const (
	MessageReviewComplete MessageType = "review_complete"
	MessageReviewError    MessageType = "review_error"
)

// ReviewMessage is delivered when an asynchronous review run finishes or
// fails.
type ReviewMessage struct {
	Type     MessageType `json:"type"`
	ReviewID string      `json:"review_id"`
	PostID   string      `json:"post_id"`
	Error    string      `json:"error,omitempty"`
}

// Client is the remote suggestion backend.
type Client interface {
	// FetchSuggestions returns the server's current suggestion set for a post.
	FetchSuggestions(ctx context.Context, postID string) (SuggestionsResponse, error)

	// DeleteSuggestion removes a suggestion server-side. Best-effort:
	// callers log failures and continue.
	DeleteSuggestion(ctx context.Context, id string) error

	// RequestSuggestions asks for fresh suggestions covering the changed
	// ranges of the given content.
	RequestSuggestions(ctx context.Context, postID, text string, ranges []suggestion.ChangedRange) ([]suggestion.Suggestion, error)

	// StartReview kicks off a full asynchronous analysis run.
	StartReview(ctx context.Context, postID string) (ReviewHandle, error)
}

// Subscriber delivers review lifecycle messages for a started run.
type Subscriber interface {
	// Subscribe listens for messages on the handle until unsubscribed or
	// the context ends. onMessage and onError are invoked from the
	// subscription's own goroutine.
	Subscribe(ctx context.Context, handle ReviewHandle, onMessage func(ReviewMessage), onError func(error)) (unsubscribe func())
}
