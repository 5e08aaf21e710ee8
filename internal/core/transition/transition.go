// Package transition sequences the user-visible Edit/Review mode switches:
// it drives recalculation, reports phase progress, debounces rapid toggles,
// caches successful outcomes, and guarantees the switch itself never fails
// because recalculation did.
package transition

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftpilot/redline/internal/core/eventbus"
	"github.com/draftpilot/redline/internal/core/mode"
	"github.com/draftpilot/redline/internal/core/suggestion"
	"github.com/draftpilot/redline/internal/remote"
)

// Sentinel errors for transition control flow.
var (
	// ErrTransitionInFlight rejects a request while another transition is
	// active; the caller may retry once the active one completes.
	ErrTransitionInFlight = errors.New("transition already in progress")
	// ErrSuperseded reports that a debounced request was replaced by a
	// newer one before it executed.
	ErrSuperseded = errors.New("transition request superseded")
)

// Recalculator recomputes a suggestion set for an edit. Satisfied by
// recalc.Service.
type Recalculator interface {
	PerformRecalculation(ctx context.Context, oldContent, newContent string, current []suggestion.Suggestion, postID string) (suggestion.RecalculationResult, error)
}

// Request describes one requested mode transition.
type Request struct {
	PostID  string
	From    mode.Mode
	To      mode.Mode
	Content string
	// ContentAtLastReview is the content the current suggestion offsets
	// refer to. Equal to Content means no recalculation is needed.
	ContentAtLastReview string
	Suggestions         []suggestion.Suggestion
}

// Result is the outcome of a transition. The mode switch succeeds even
// when recalculation degrades; only fatal control-flow errors (conflict,
// cancellation) produce Success=false.
type Result struct {
	Success            bool
	UpdatedSuggestions []suggestion.Suggestion
	// Refreshed is true when the suggestions were actually recalculated
	// rather than carried over.
	Refreshed bool
	// Degraded is true when recalculation failed and the existing
	// suggestions were kept. Offline further marks network-like causes.
	Degraded bool
	Offline  bool
	Message  string

	Err                error
	Retryable          bool
	RequiresUserAction bool
}

// Config tunes the manager. Zero values select the documented defaults.
type Config struct {
	DebounceWindow time.Duration // default 250ms
	CosmeticDelay  time.Duration // Review->Edit pause, default 150ms
	CacheCapacity  int           // default 10
	CacheTTL       time.Duration // default 5m
	RetryAttempts  int           // recalculation attempts, default 3
	RetryBaseDelay time.Duration // default 100ms
	RetryMaxDelay  time.Duration // default 2s
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 250 * time.Millisecond
	}
	if c.CosmeticDelay <= 0 {
		c.CosmeticDelay = 150 * time.Millisecond
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 10
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 2 * time.Second
	}
	return c
}

// Manager sequences transitions for one document session. At most one
// transition runs at a time.
type Manager struct {
	recalc Recalculator
	bus    *eventbus.Bus
	cfg    Config
	log    zerolog.Logger

	mu       sync.Mutex
	inFlight bool
	cache    *resultCache

	debounceMu sync.Mutex
	pendingReq *Request
	pendingFn  func(Result)
	timer      *time.Timer
}

// NewManager creates a transition manager.
func NewManager(recalc Recalculator, bus *eventbus.Bus, cfg Config, log zerolog.Logger) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		recalc: recalc,
		bus:    bus,
		cfg:    cfg,
		log:    log,
		cache:  newResultCache(cfg.CacheCapacity, cfg.CacheTTL),
	}
}

// Request debounces a transition: rapid repeated calls within the debounce
// window collapse so only the last one executes. Superseded requests get a
// Result carrying ErrSuperseded. done is invoked from the timer goroutine.
func (m *Manager) Request(ctx context.Context, req Request, done func(Result)) {
	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()

	if m.pendingFn != nil {
		m.pendingFn(Result{Err: ErrSuperseded})
	}
	m.pendingReq = &req
	m.pendingFn = done

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.cfg.DebounceWindow, func() {
		m.debounceMu.Lock()
		pending := m.pendingReq
		fn := m.pendingFn
		m.pendingReq = nil
		m.pendingFn = nil
		m.debounceMu.Unlock()

		if pending == nil {
			return
		}
		result := m.Transition(ctx, *pending)
		if fn != nil {
			fn(result)
		}
	})
}

// Transition executes a mode switch synchronously. Returns a failed Result
// when another transition is in flight or the context is cancelled; every
// other path succeeds, possibly degraded.
func (m *Manager) Transition(ctx context.Context, req Request) Result {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		m.log.Debug().Msg("transition rejected: one in flight")
		return Result{Err: ErrTransitionInFlight, Retryable: true, RequiresUserAction: false}
	}
	m.inFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	m.progress(req, mode.PhaseStarting, "starting transition", 10, true)

	if err := ctx.Err(); err != nil {
		return m.fatal(req, err)
	}

	if req.From == mode.Review && req.To == mode.Edit {
		return m.toEdit(ctx, req)
	}
	return m.toReview(ctx, req)
}

// toEdit performs Review->Edit: no recalculation, a short cosmetic pause.
func (m *Manager) toEdit(ctx context.Context, req Request) Result {
	select {
	case <-ctx.Done():
		return m.fatal(req, ctx.Err())
	case <-time.After(m.cfg.CosmeticDelay):
	}

	m.progress(req, mode.PhaseCompleting, "entering edit mode", 100, false)
	return Result{Success: true, UpdatedSuggestions: req.Suggestions}
}

// toReview performs Edit->Review, recalculating when the content moved
// since the last review.
func (m *Manager) toReview(ctx context.Context, req Request) Result {
	if req.Content == req.ContentAtLastReview {
		m.progress(req, mode.PhaseCompleting, "content unchanged", 100, false)
		return Result{Success: true, UpdatedSuggestions: req.Suggestions}
	}

	key := m.cache.key(req)
	if cached, ok := m.cache.get(key); ok {
		m.progress(req, mode.PhaseCompleting, "reusing recent recalculation", 100, false)
		return cached
	}

	m.progress(req, mode.PhaseRecalculating, "recalculating suggestion positions", 40, true)

	var recalculated suggestion.RecalculationResult
	err := RetryWithBackoff(ctx, m.cfg.RetryAttempts, m.cfg.RetryBaseDelay, m.cfg.RetryMaxDelay, isRetryable, func(ctx context.Context) error {
		var innerErr error
		recalculated, innerErr = m.recalc.PerformRecalculation(ctx, req.ContentAtLastReview, req.Content, req.Suggestions, req.PostID)
		return innerErr
	})

	if ctx.Err() != nil {
		return m.fatal(req, ctx.Err())
	}

	if err != nil {
		return m.degraded(req, err)
	}

	m.progress(req, mode.PhaseUpdating, "applying updated suggestions", 75, false)

	merged := make([]suggestion.Suggestion, 0, len(recalculated.UpdatedSuggestions)+len(recalculated.NewSuggestions))
	merged = append(merged, recalculated.UpdatedSuggestions...)
	merged = append(merged, recalculated.NewSuggestions...)

	result := Result{Success: true, UpdatedSuggestions: merged, Refreshed: true}
	m.cache.set(key, result)

	m.progress(req, mode.PhaseCompleting, "review ready", 100, false)
	return result
}

// degraded keeps the mode switch successful while flagging that the
// suggestion set could not be refreshed.
func (m *Manager) degraded(req Request, err error) Result {
	result := Result{
		Success:            true,
		UpdatedSuggestions: req.Suggestions,
		Degraded:           true,
	}

	if isNetworkError(err) {
		result.Offline = true
		result.Message = "offline, using existing suggestions"
	} else {
		result.Message = "suggestion update failed, existing suggestions usable"
	}

	m.log.Warn().Err(err).Bool("offline", result.Offline).Msg("recalculation degraded")
	if m.bus != nil {
		m.bus.PublishNotification(eventbus.NotificationPayload{Level: eventbus.LevelWarning, Message: result.Message})
	}
	m.progress(req, mode.PhaseCompleting, result.Message, 100, false)
	return result
}

// fatal fails the transition outright: cancellation and control-flow
// conflicts, never recalculation problems.
func (m *Manager) fatal(req Request, err error) Result {
	m.progress(req, mode.PhaseError, err.Error(), 100, false)
	return Result{
		Err:                err,
		Retryable:          !errors.Is(err, context.Canceled),
		RequiresUserAction: true,
	}
}

func (m *Manager) progress(req Request, phase mode.Phase, message string, pct int, cancellable bool) {
	if m.bus == nil {
		return
	}
	m.bus.PublishTransitionProgress(eventbus.TransitionProgressPayload{
		PostID:      req.PostID,
		FromMode:    req.From,
		ToMode:      req.To,
		Phase:       phase,
		Message:     message,
		Progress:    pct,
		Cancellable: cancellable,
	})
}

// isNetworkError classifies failures that should degrade to "offline".
func isNetworkError(err error) bool {
	if errors.Is(err, remote.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isRetryable marks errors worth another recalculation attempt. Auth
// failures and cancellations are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, remote.ErrUnauthorized) {
		return false
	}
	return isNetworkError(err)
}
