package logging

import "context"

type contextKey string

const (
	postIDKey       contextKey = "post_id"
	suggestionIDKey contextKey = "suggestion_id"
)

// WithPostID adds a post ID to the context.
func WithPostID(ctx context.Context, postID string) context.Context {
	return context.WithValue(ctx, postIDKey, postID)
}

// WithSuggestionID adds a suggestion ID to the context.
func WithSuggestionID(ctx context.Context, suggestionID string) context.Context {
	return context.WithValue(ctx, suggestionIDKey, suggestionID)
}

// GetPostID retrieves the post ID from the context.
// Returns empty string if not present.
func GetPostID(ctx context.Context) string {
	if id, ok := ctx.Value(postIDKey).(string); ok {
		return id
	}
	return ""
}

// GetSuggestionID retrieves the suggestion ID from the context.
// Returns empty string if not present.
func GetSuggestionID(ctx context.Context) string {
	if id, ok := ctx.Value(suggestionIDKey).(string); ok {
		return id
	}
	return ""
}
