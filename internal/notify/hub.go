package notify

import (
	"context"
	"sync"

	"github.com/yukikurage/taskhub-api/internal/metrics"
)

const subscriberBuffer = 16

type subscriber struct {
	topics map[string]struct{}
	ch     chan Event
}

// Hub fans events out to the subscribers connected to this process.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber for the given topics. The returned channel
// is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, topics ...string) <-chan Event {
	sub := &subscriber{
		topics: make(map[string]struct{}, len(topics)),
		ch:     make(chan Event, subscriberBuffer),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// Deliver hands evt to every local subscriber of its topic. Slow subscribers
// miss the event rather than block the sender.
func (h *Hub) Deliver(_ context.Context, evt Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if _, ok := sub.topics[evt.Topic]; !ok {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			metrics.NotificationsDropped.WithLabelValues("slow_subscriber").Inc()
		}
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
