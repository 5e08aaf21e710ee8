package commands

import (
	"github.com/rs/zerolog"

	"github.com/draftpilot/redline/internal/core/config"
	"github.com/draftpilot/redline/internal/core/recalc"
	"github.com/draftpilot/redline/internal/core/textdiff"
)

// newEngine builds a recalculation service from the engine config. CLI
// invocations run offline, so new-suggestion requests are disabled and no
// analysis requester is wired.
func newEngine(cfg *config.Config, log zerolog.Logger) *recalc.Service {
	calc := textdiff.NewCalculator()
	calc.LineModeThreshold = cfg.Engine.LineModeThreshold

	opts := recalc.Options{
		EnablePositionUpdates:       cfg.Engine.EnablePositionUpdates,
		EnableInvalidation:          cfg.Engine.EnableInvalidation,
		EnableNewSuggestionRequests: false,
		MinChangedRangeLength:       cfg.Engine.MinChangedRangeLength,
		MaxChangedRangeLength:       cfg.Engine.MaxChangedRangeLength,
	}

	cache := recalc.NewCache(cfg.Engine.CacheCapacity, cfg.Engine.CacheTTL)
	return recalc.NewService(calc, cache, nil, opts, log)
}
