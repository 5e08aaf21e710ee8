package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/draftpilot/redline/internal/core/textdiff"
	"github.com/draftpilot/redline/pkg/iojson"
)

type DiffCmd struct {
	flags *Flags

	lineThreshold int
}

func NewDiffCmd(flags *Flags) *DiffCmd {
	return &DiffCmd{flags: flags}
}

func (cmd *DiffCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "diff",
		Usage:     "Compute the changed region between two document versions",
		UsageText: "redline diff OLD_FILE NEW_FILE",
		Description: `Reads two versions of a document and prints the content diff as JSON.

The diff is the single contiguous region left after trimming the common
prefix and suffix, classified as insert, delete, or replace. Identical
inputs produce an empty diff list.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "line-threshold",
				Usage:       "document size in bytes at which diffing switches to line mode",
				Value:       textdiff.DefaultLineModeThreshold,
				Destination: &cmd.lineThreshold,
			},
		},
		Action: cmd.run,
	})

	return app
}

// DiffOutput is the JSON output schema.
type DiffOutput struct {
	OldBytes int             `json:"old_bytes"`
	NewBytes int             `json:"new_bytes"`
	Diffs    []textdiff.Diff `json:"diffs"`
}

func (cmd *DiffCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected OLD_FILE and NEW_FILE arguments, got %d", c.Args().Len())
	}

	oldBytes, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("read old file: %s", err), nil)
	}
	newBytes, err := os.ReadFile(c.Args().Get(1))
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("read new file: %s", err), nil)
	}

	calc := textdiff.NewCalculator()
	calc.LineModeThreshold = cmd.lineThreshold

	diffs := calc.Diff(string(oldBytes), string(newBytes))

	return iojson.Write(DiffOutput{
		OldBytes: len(oldBytes),
		NewBytes: len(newBytes),
		Diffs:    diffs,
	})
}
