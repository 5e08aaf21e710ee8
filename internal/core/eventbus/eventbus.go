// Package eventbus provides a typed publish/subscribe channel for
// cross-component notifications within a document session. Dispatch is
// synchronous and in order; every Subscribe returns an explicit
// unsubscribe handle so cancellation semantics stay testable.
package eventbus

import "sync"

// topic holds the subscribers for one event type.
type topic[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func (t *topic[T]) subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subs == nil {
		t.subs = make(map[int]func(T))
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = fn

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *topic[T]) publish(payload T) {
	t.mu.Lock()
	fns := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// Bus is the session-scoped event bus. Construct one per editor session.
type Bus struct {
	transitionProgress topic[TransitionProgressPayload]
	notification       topic[NotificationPayload]
	suggestionsChanged topic[SuggestionsChangedPayload]
	reviewCompleted    topic[ReviewCompletedPayload]
	reviewFailed       topic[ReviewFailedPayload]
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// PublishTransitionProgress emits a transition progress update.
func (b *Bus) PublishTransitionProgress(p TransitionProgressPayload) {
	b.transitionProgress.publish(p)
}

// SubscribeTransitionProgress registers a progress listener.
func (b *Bus) SubscribeTransitionProgress(fn func(TransitionProgressPayload)) (unsubscribe func()) {
	return b.transitionProgress.subscribe(fn)
}

// PublishNotification emits a user-facing notification.
func (b *Bus) PublishNotification(p NotificationPayload) {
	b.notification.publish(p)
}

// SubscribeNotification registers a notification listener.
func (b *Bus) SubscribeNotification(fn func(NotificationPayload)) (unsubscribe func()) {
	return b.notification.subscribe(fn)
}

// PublishSuggestionsChanged emits a suggestion-set change.
func (b *Bus) PublishSuggestionsChanged(p SuggestionsChangedPayload) {
	b.suggestionsChanged.publish(p)
}

// SubscribeSuggestionsChanged registers a suggestion-set listener.
func (b *Bus) SubscribeSuggestionsChanged(fn func(SuggestionsChangedPayload)) (unsubscribe func()) {
	return b.suggestionsChanged.subscribe(fn)
}

// PublishReviewCompleted emits a finished analysis run.
func (b *Bus) PublishReviewCompleted(p ReviewCompletedPayload) {
	b.reviewCompleted.publish(p)
}

// SubscribeReviewCompleted registers a review-completion listener.
func (b *Bus) SubscribeReviewCompleted(fn func(ReviewCompletedPayload)) (unsubscribe func()) {
	return b.reviewCompleted.subscribe(fn)
}

// PublishReviewFailed emits a failed analysis run.
func (b *Bus) PublishReviewFailed(p ReviewFailedPayload) {
	b.reviewFailed.publish(p)
}

// SubscribeReviewFailed registers a review-failure listener.
func (b *Bus) SubscribeReviewFailed(fn func(ReviewFailedPayload)) (unsubscribe func()) {
	return b.reviewFailed.subscribe(fn)
}
