// Package watch delivers live role-scoped report views. Every store
// event triggers a re-query of each subscriber's full matching set,
// mirroring the document store's subscription contract: subscribers
// always receive the complete current view, never deltas.
package watch

import (
	"context"
	"sync"

	"reliefline/pkg/types"

	"github.com/sirupsen/logrus"
)

// ViewSource resolves the current role-scoped view for an identity.
type ViewSource interface {
	ViewFor(ctx context.Context, identity types.Identity) ([]*types.ReportView, error)
}

// EventSource blocks delivering store change payloads until the
// context is done.
type EventSource interface {
	Listen(ctx context.Context, handler func(payload string)) error
}

type subscriber struct {
	identity types.Identity
	ch       chan []*types.ReportView
}

// push delivers the latest snapshot without blocking. With a buffer of
// one, a slow consumer drops the stale snapshot and keeps the newest.
func (s *subscriber) push(view []*types.ReportView) {
	for {
		select {
		case s.ch <- view:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

type Hub struct {
	logger *logrus.Logger
	source ViewSource

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub(logger *logrus.Logger, source ViewSource) *Hub {
	return &Hub{
		logger: logger,
		source: source,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Run consumes store events until the context is done.
func (h *Hub) Run(ctx context.Context, events EventSource) error {
	return events.Listen(ctx, func(string) {
		h.Broadcast(ctx)
	})
}

// Subscribe registers a live view for the identity and pushes the
// initial full snapshot. The returned cancel func detaches the
// subscriber; the channel is never closed, readers stop on their own
// context.
func (h *Hub) Subscribe(ctx context.Context, identity types.Identity) (<-chan []*types.ReportView, func()) {

	sub := &subscriber{
		identity: identity,
		ch:       make(chan []*types.ReportView, 1),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	view, err := h.source.ViewFor(ctx, identity)
	if err != nil {
		h.logger.WithError(err).WithField("username", identity.Username).
			Warn("initial subscription snapshot failed")
	} else {
		sub.push(view)
	}

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
	}

	return sub.ch, cancel
}

// Broadcast recomputes and delivers every subscriber's view. A failed
// re-query skips that subscriber for this round; the next event
// retries.
func (h *Hub) Broadcast(ctx context.Context) {

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		view, err := h.source.ViewFor(ctx, sub.identity)
		if err != nil {
			h.logger.WithError(err).WithField("username", sub.identity.Username).
				Warn("subscription refresh failed")
			continue
		}
		sub.push(view)
	}
}

// SubscriberCount reports active subscriptions, for instrumentation.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
