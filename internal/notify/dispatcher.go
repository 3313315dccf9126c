package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/logger"
	"github.com/yukikurage/taskhub-api/internal/metrics"
)

const deliverTimeout = 5 * time.Second

// Publisher sends notifications. Delivery is at-most-once and never blocks the
// caller.
type Publisher interface {
	Publish(userID uint64, t EventType, payload any)
	PublishToTenantAdmins(tenantID uint64, t EventType, payload any)
}

// Sink is the transport a Dispatcher delivers to.
type Sink interface {
	Deliver(ctx context.Context, evt Event) error
}

// Dispatcher queues events and delivers them to a Sink on a background
// goroutine. A full queue drops the event.
type Dispatcher struct {
	sink  Sink
	queue chan Event
	log   *slog.Logger

	once sync.Once
	done chan struct{}
}

func NewDispatcher(sink Sink, queueSize int, log *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = constants.DefaultNotifyQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		sink:  sink,
		queue: make(chan Event, queueSize),
		log:   log,
		done:  make(chan struct{}),
	}
}

func (d *Dispatcher) Publish(userID uint64, t EventType, payload any) {
	d.enqueue(Event{Type: t, Topic: UserTopic(userID), Payload: payload, Timestamp: time.Now().UTC()})
}

func (d *Dispatcher) PublishToTenantAdmins(tenantID uint64, t EventType, payload any) {
	d.enqueue(Event{Type: t, Topic: TenantAdminsTopic(tenantID), Payload: payload, Timestamp: time.Now().UTC()})
}

func (d *Dispatcher) enqueue(evt Event) {
	select {
	case d.queue <- evt:
	default:
		metrics.NotificationsDropped.WithLabelValues("queue_full").Inc()
		d.log.Warn("notification queue full, dropping event", "type", evt.Type, "topic", evt.Topic)
	}
}

// Run delivers queued events until ctx ends. Events still queued at that point
// are dropped.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.once.Do(func() { close(d.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-d.queue:
			dctx, cancel := context.WithTimeout(ctx, deliverTimeout)
			if err := d.sink.Deliver(dctx, evt); err != nil {
				metrics.NotificationsDropped.WithLabelValues("delivery_failed").Inc()
				d.log.Warn("notification delivery failed", logger.Error(err), "type", evt.Type, "topic", evt.Topic)
			}
			cancel()
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(uint64, EventType, any)               {}
func (Discard) PublishToTenantAdmins(uint64, EventType, any) {}
