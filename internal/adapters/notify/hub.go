// Package notify fans round-completion events out to connected clients.
//
// Delivery is fire-and-forget: the scoring pipeline calls the hub and moves
// on, and slow subscribers lose events rather than blocking a round's
// completion.
package notify

import (
	"context"
	"sync"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
	"github.com/koderAP/trust-gambit-sub000/pkg/metrics"
)

// Notifier is the sink the scoring pipeline publishes round completions to.
type Notifier interface {
	RoundEnded(ctx context.Context, ev model.RoundEnded)
}

// Subscriber receives round-completion events.
type Subscriber chan model.RoundEnded

// Hub is an in-process Notifier with channel-based fan-out.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}

	buffer int
	logger logger.Logger
}

// NewHub creates a Hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[Subscriber]struct{}),
		buffer:      64,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("notify")
	}
	return h
}

// Subscribe registers a new subscriber channel. The buffer keeps a slow
// reader from blocking RoundEnded.
func (h *Hub) Subscribe() Subscriber {
	ch := make(Subscriber, h.buffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	metrics.UpdateNotifySubscribers(n)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub)
	}
	n := len(h.subscribers)
	h.mu.Unlock()
	metrics.UpdateNotifySubscribers(n)
}

// RoundEnded delivers ev to every subscriber without blocking; full buffers
// drop the event for that subscriber.
func (h *Hub) RoundEnded(ctx context.Context, ev model.RoundEnded) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- ev:
		default:
			metrics.RecordNotifyDropped()
			h.logger.Warn(ctx, "dropping notification for slow subscriber",
				logger.String("roundID", ev.RoundID))
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
