package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/redline/internal/core/suggestion"
)

func TestRecalcInput_Validate(t *testing.T) {
	valid := suggestion.Suggestion{
		ID: "s1", StartOffset: 0, EndOffset: 4, TextToReplace: "good", ReplaceWith: "great",
	}

	tests := []struct {
		name    string
		input   RecalcInput
		wantErr string
	}{
		{
			name:    "missing old content",
			input:   RecalcInput{NewContent: "b"},
			wantErr: "old_content",
		},
		{
			name:    "missing new content",
			input:   RecalcInput{OldContent: "a"},
			wantErr: "new_content",
		},
		{
			name: "missing suggestion id",
			input: RecalcInput{
				OldContent: "a", NewContent: "b",
				Suggestions: []suggestion.Suggestion{{StartOffset: 0, EndOffset: 1}},
			},
			wantErr: "id is required",
		},
		{
			name: "duplicate suggestion id",
			input: RecalcInput{
				OldContent: "a", NewContent: "b",
				Suggestions: []suggestion.Suggestion{valid, valid},
			},
			wantErr: "duplicate",
		},
		{
			name: "inverted range",
			input: RecalcInput{
				OldContent: "a", NewContent: "b",
				Suggestions: []suggestion.Suggestion{
					{ID: "s1", StartOffset: 5, EndOffset: 2},
				},
			},
			wantErr: "invalid range",
		},
		{
			name: "negative start",
			input: RecalcInput{
				OldContent: "a", NewContent: "b",
				Suggestions: []suggestion.Suggestion{
					{ID: "s1", StartOffset: -1, EndOffset: 2},
				},
			},
			wantErr: "invalid range",
		},
		{
			name: "valid with files",
			input: RecalcInput{
				OldFile: "old.md", NewFile: "new.md",
				Suggestions: []suggestion.Suggestion{valid},
			},
			wantErr: "",
		},
		{
			name: "valid with inline content and no suggestions",
			input: RecalcInput{
				OldContent: "a", NewContent: "b",
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err, "expected error containing %q, got nil", tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantErr, "expected error containing %q, got %q", tt.wantErr, err.Error())
		})
	}
}
