package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"

	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/pkg/iojson"
	"github.com/draftpilot/redline/pkg/logutils"
	"github.com/draftpilot/redline/pkg/randid"
)

type BatchCmd struct {
	flags *Flags

	oldDir         string
	newDir         string
	pattern        string
	suggestionsDir string
}

func NewBatchCmd(flags *Flags) *BatchCmd {
	return &BatchCmd{flags: flags}
}

func (cmd *BatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "batch",
		Usage: "Recalculate suggestions across many document pairs",
		UsageText: `redline batch --old-dir drafts/v1 --new-dir drafts/v2 [options]

Recalculate all markdown documents:
  redline batch --old-dir v1 --new-dir v2 --glob '**/*.md' --suggestions-dir reviews`,
		Description: `Selects documents under --old-dir with a doublestar glob, pairs each with
the file at the same relative path under --new-dir, and recalculates the
suggestions for that document.

Suggestions are read from --suggestions-dir at <relative-path>.json as a
JSON array; documents without a suggestions file are diffed with an empty
set. A new document missing from --new-dir fails that entry.

Processing stops after 3 failures. Pairs not attempted are marked as
skipped.

Output is JSON with a batch ID, log file path, and per-document results.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "old-dir",
				Usage:       "directory holding the previous document versions",
				Required:    true,
				Destination: &cmd.oldDir,
			},
			&cli.StringFlag{
				Name:        "new-dir",
				Usage:       "directory holding the edited document versions",
				Required:    true,
				Destination: &cmd.newDir,
			},
			&cli.StringFlag{
				Name:        "glob",
				Aliases:     []string{"g"},
				Usage:       "doublestar pattern selecting documents under --old-dir",
				Value:       "**/*.md",
				Destination: &cmd.pattern,
			},
			&cli.StringFlag{
				Name:        "suggestions-dir",
				Usage:       "directory holding per-document suggestion JSON files",
				Destination: &cmd.suggestionsDir,
			},
		},
		Action: cmd.run,
	})

	return app
}

const (
	StatusRecalculated = "recalculated" // StatusRecalculated indicates the document was processed.
	StatusUnchanged    = "unchanged"    // StatusUnchanged indicates old and new content were identical.
	StatusFailed       = "failed"       // StatusFailed indicates the document could not be processed.
	StatusSkipped      = "skipped"      // StatusSkipped indicates the document was not attempted due to failure threshold.
	maxFailures        = 3              // maxFailures is the number of failures before stopping batch processing.
)

// BatchResult is the output for a single document pair.
type BatchResult struct {
	Path        string `json:"path"`
	Status      string `json:"status"`
	Updated     int    `json:"updated,omitempty"`
	Invalidated int    `json:"invalidated,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchOutput is the JSON output schema.
type BatchOutput struct {
	BatchID string        `json:"batch_id"`
	LogFile string        `json:"log_file"`
	Results []BatchResult `json:"results"`
}

func (cmd *BatchCmd) run(ctx context.Context, c *cli.Command) error {
	batchID := randid.Generate(6)
	logFile := filepath.Join(defaultLogDir(), "batch-"+batchID+".log")

	logger, closer, err := logutils.New(cmd.flags.LogLevel, logFile)
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("setup logger: %s", err), nil)
	}
	defer closer()

	logger.Info().Str("batch_id", batchID).Str("glob", cmd.pattern).Msg("starting batch recalculation")

	paths, err := doublestar.Glob(os.DirFS(cmd.oldDir), cmd.pattern)
	if err != nil {
		return iojson.WriteError(fmt.Sprintf("bad glob %q: %s", cmd.pattern, err), nil)
	}
	if len(paths) == 0 {
		return iojson.WriteError(fmt.Sprintf("no documents match %q under %s", cmd.pattern, cmd.oldDir), nil)
	}

	svc := newEngine(cmd.flags.Config, logger.With().Str("cmp", "batch").Logger())

	output := BatchOutput{
		BatchID: batchID,
		LogFile: logFile,
		Results: make([]BatchResult, 0, len(paths)),
	}

	failures := 0
	for i, path := range paths {
		if failures >= maxFailures {
			logger.Warn().Str("path", path).Msg("skipping document due to failure threshold")
			for j := i; j < len(paths); j++ {
				output.Results = append(output.Results, BatchResult{
					Path:   paths[j],
					Status: StatusSkipped,
				})
			}
			break
		}

		result := cmd.recalcOne(ctx, svc, path)
		output.Results = append(output.Results, result)

		if result.Status == StatusFailed {
			failures++
			logger.Error().Str("path", path).Str("error", result.Error).Msg("recalculation failed")
		} else {
			logger.Info().
				Str("path", path).
				Str("status", result.Status).
				Int("updated", result.Updated).
				Int("invalidated", result.Invalidated).
				Msg("document processed")
		}
	}

	logger.Info().
		Int("total", len(paths)).
		Int("failed", countByStatus(output.Results, StatusFailed)).
		Int("skipped", countByStatus(output.Results, StatusSkipped)).
		Msg("batch recalculation complete")

	return iojson.Write(output)
}

func (cmd *BatchCmd) recalcOne(ctx context.Context, svc recalcService, path string) BatchResult {
	oldBytes, err := os.ReadFile(filepath.Join(cmd.oldDir, path))
	if err != nil {
		return BatchResult{Path: path, Status: StatusFailed, Error: fmt.Errorf("read old version: %w", err).Error()}
	}

	newBytes, err := os.ReadFile(filepath.Join(cmd.newDir, path))
	if err != nil {
		return BatchResult{Path: path, Status: StatusFailed, Error: fmt.Errorf("read new version: %w", err).Error()}
	}

	if string(oldBytes) == string(newBytes) {
		return BatchResult{Path: path, Status: StatusUnchanged}
	}

	suggestions, err := cmd.loadSuggestions(path)
	if err != nil {
		return BatchResult{Path: path, Status: StatusFailed, Error: err.Error()}
	}

	result, err := svc.PerformRecalculation(ctx, string(oldBytes), string(newBytes), suggestions, path)
	if err != nil {
		return BatchResult{Path: path, Status: StatusFailed, Error: err.Error()}
	}

	return BatchResult{
		Path:        path,
		Status:      StatusRecalculated,
		Updated:     len(result.UpdatedSuggestions),
		Invalidated: len(result.InvalidatedSuggestions),
	}
}

func (cmd *BatchCmd) loadSuggestions(path string) ([]suggestion.Suggestion, error) {
	if cmd.suggestionsDir == "" {
		return nil, nil
	}

	bits, err := os.ReadFile(filepath.Join(cmd.suggestionsDir, path+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read suggestions: %w", err)
	}

	var suggestions []suggestion.Suggestion
	if err := json.Unmarshal(bits, &suggestions); err != nil {
		return nil, fmt.Errorf("parse suggestions for %s: %w", path, err)
	}
	return suggestions, nil
}

// recalcService is the slice of the engine the batch command needs;
// narrowed for testability.
type recalcService interface {
	PerformRecalculation(ctx context.Context, oldContent, newContent string, current []suggestion.Suggestion, postID string) (suggestion.RecalculationResult, error)
}

func countByStatus(results []BatchResult, status string) int {
	count := 0
	for _, r := range results {
		if r.Status == status {
			count++
		}
	}
	return count
}

// defaultLogDir returns the directory for batch logs using the system's
// state directory.
func defaultLogDir() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "redline")
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "redline")
	}
	return filepath.Join(home, ".local", "state", "redline")
}
