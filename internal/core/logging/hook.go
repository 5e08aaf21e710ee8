package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts post_id and suggestion_id from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if postID := GetPostID(ctx); postID != "" {
		e.Str("post_id", postID)
	}

	if suggestionID := GetSuggestionID(ctx); suggestionID != "" {
		e.Str("suggestion_id", suggestionID)
	}
}
