package eventbus

import (
	"github.com/draftpilot/redline/internal/core/mode"
	"github.com/draftpilot/redline/internal/core/suggestion"
)

// Level grades user-facing notifications.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// TransitionProgressPayload is emitted as a mode transition moves through
// its phases. Progress runs 0-100.
type TransitionProgressPayload struct {
	PostID      string
	FromMode    mode.Mode
	ToMode      mode.Mode
	Phase       mode.Phase
	Message     string
	Progress    int
	Cancellable bool
}

// NotificationPayload is emitted for user-facing messages, including the
// soft-degradation flags a failed recalculation produces.
type NotificationPayload struct {
	Level   Level
	Message string
}

// SuggestionsChangedPayload is emitted when the current suggestion set for
// a post changes.
type SuggestionsChangedPayload struct {
	PostID      string
	Suggestions []suggestion.Suggestion
}

// ReviewCompletedPayload is emitted when an asynchronous analysis run
// finishes.
type ReviewCompletedPayload struct {
	PostID   string
	ReviewID string
}

// ReviewFailedPayload is emitted when an asynchronous analysis run fails.
type ReviewFailedPayload struct {
	PostID   string
	ReviewID string
	Reason   string
}
