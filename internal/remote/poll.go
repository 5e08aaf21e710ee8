package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PollSubscriber listens for review messages by long-polling the endpoint
// in the review handle.
type PollSubscriber struct {
	client *http.Client
	log    zerolog.Logger

	// retryDelay is how long to wait after a failed poll before trying
	// again.
	retryDelay time.Duration
}

// NewPollSubscriber creates a subscriber. httpClient may be nil; the
// default has no overall timeout since polls are expected to hang.
func NewPollSubscriber(httpClient *http.Client, log zerolog.Logger) *PollSubscriber {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PollSubscriber{
		client:     httpClient,
		log:        log,
		retryDelay: 2 * time.Second,
	}
}

// Subscribe implements Subscriber. The subscription stops at the handle's
// expiry, on unsubscribe, on context end, or after a terminal message.
func (s *PollSubscriber) Subscribe(ctx context.Context, handle ReviewHandle, onMessage func(ReviewMessage), onError func(error)) (unsubscribe func()) {
	subCtx, cancel := context.WithCancel(ctx)
	if !handle.ExpiresAt.IsZero() {
		deadlined, deadlineCancel := context.WithDeadline(subCtx, handle.ExpiresAt)
		subCtx = deadlined
		inner := cancel
		cancel = func() {
			deadlineCancel()
			inner()
		}
	}

	go s.run(subCtx, handle, onMessage, onError)
	return cancel
}

func (s *PollSubscriber) run(ctx context.Context, handle ReviewHandle, onMessage func(ReviewMessage), onError func(error)) {
	for {
		msg, err := s.poll(ctx, handle)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.log.Debug().Err(err).Str("review_id", handle.ReviewID).Msg("poll failed")
			onError(err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
			continue
		case msg == nil:
			// Empty poll: nothing queued yet, back off briefly.
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
		default:
			onMessage(*msg)
			if msg.Type == MessageReviewComplete || msg.Type == MessageReviewError {
				return
			}
		}
	}
}

// poll performs one long-poll request. A 204 means no message yet.
func (s *PollSubscriber) poll(ctx context.Context, handle ReviewHandle) (*ReviewMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+handle.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(ErrUnavailable, errors.New(resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var msg ReviewMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
