package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/draftpilot/redline/internal/core/logging"
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/pkg/iojson"
)

type RecalcCmd struct {
	flags *Flags
	fr    *iojson.FileReader[RecalcInput]
}

func NewRecalcCmd(flags *Flags) *RecalcCmd {
	return &RecalcCmd{
		flags: flags,
		fr:    &iojson.FileReader[RecalcInput]{},
	}
}

func (cmd *RecalcCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "recalc",
		Usage: "Recalculate suggestion positions after an edit",
		UsageText: `redline recalc [options]

Read from stdin:
  echo '{"old_file":"a.md","new_file":"b.md","suggestions":[...]}' | redline recalc

Read from file:
  redline recalc -f input.json`,
		Description: `Recalculates a suggestion set against an edited document and prints the
result as JSON: surviving suggestions with corrected offsets, the ids of
suggestions whose anchor text the edit destroyed, and the changed ranges.

Content may be given inline or as file paths; inline content wins when
both are set.

Input JSON schema:
  {
    "post_id": "optional-id",
    "old_content": "...", "new_content": "...",
    "old_file": "path",   "new_file": "path",
    "suggestions": [
      {"id": "s1", "start_offset": 0, "end_offset": 4, "text_to_replace": "...", "replace_with": "..."}
    ]
  }`,
		Flags: []cli.Flag{
			cmd.fr.Flag(),
		},
		Action: cmd.run,
	})

	return app
}

// RecalcInput is the JSON input schema for a single recalculation.
type RecalcInput struct {
	PostID      string                  `json:"post_id,omitempty"`
	OldContent  string                  `json:"old_content,omitempty"`
	NewContent  string                  `json:"new_content,omitempty"`
	OldFile     string                  `json:"old_file,omitempty"`
	NewFile     string                  `json:"new_file,omitempty"`
	Suggestions []suggestion.Suggestion `json:"suggestions"`
}

// Validate checks the input for errors using criterio.
func (in RecalcInput) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if in.OldContent == "" && in.OldFile == "" {
		errs = errs.Append("old_content", fmt.Errorf("one of old_content or old_file is required"))
	}
	if in.NewContent == "" && in.NewFile == "" {
		errs = errs.Append("new_content", fmt.Errorf("one of new_content or new_file is required"))
	}

	seen := make(map[string]bool)
	for i, s := range in.Suggestions {
		field := fmt.Sprintf("suggestions[%d]", i)

		if s.ID == "" {
			errs = errs.Append(field+".id", fmt.Errorf("id is required"))
			continue
		}
		if seen[s.ID] {
			errs = errs.Append(field+".id", fmt.Errorf("duplicate id %q", s.ID))
			continue
		}
		seen[s.ID] = true

		if s.StartOffset < 0 || s.EndOffset <= s.StartOffset {
			errs = errs.Append(field+".end_offset", fmt.Errorf("invalid range [%d, %d)", s.StartOffset, s.EndOffset))
		}
	}

	return errs.ToError()
}

func (in RecalcInput) contents() (oldContent, newContent string, err error) {
	oldContent = in.OldContent
	if oldContent == "" {
		bits, err := os.ReadFile(in.OldFile)
		if err != nil {
			return "", "", fmt.Errorf("read old file: %w", err)
		}
		oldContent = string(bits)
	}

	newContent = in.NewContent
	if newContent == "" {
		bits, err := os.ReadFile(in.NewFile)
		if err != nil {
			return "", "", fmt.Errorf("read new file: %w", err)
		}
		newContent = string(bits)
	}

	return oldContent, newContent, nil
}

func (cmd *RecalcCmd) run(ctx context.Context, c *cli.Command) error {
	input, err := cmd.fr.Read()
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("read input: %s", err), nil)
	}

	if err := input.Validate(); err != nil {
		return iojson.WriteError(fmt.Sprintf("invalid input: %s", err), nil)
	}

	oldContent, newContent, err := input.contents()
	if err != nil {
		return iojson.WriteError(err.Error(), nil)
	}

	svc := newEngine(cmd.flags.Config, logging.Component("recalc"))

	if input.PostID != "" {
		ctx = logging.WithPostID(ctx, input.PostID)
	}

	result, err := svc.PerformRecalculation(ctx, oldContent, newContent, input.Suggestions, input.PostID)
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("recalculate: %s", err), nil)
	}

	return iojson.Write(result)
}
