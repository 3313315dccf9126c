package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/logger"
	"github.com/yukikurage/taskhub-api/internal/metrics"
	"github.com/yukikurage/taskhub-api/internal/models"
)

// ErrQueueFull is logged when too many writes are already in flight.
var ErrQueueFull = errors.New("audit queue is full")

const defaultMaxInFlight = 128

// Store persists audit rows.
type Store interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Recorder appends entries to the trail without holding up the caller.
// Persistence failures are logged and counted, never returned.
type Recorder struct {
	store   Store
	timeout time.Duration
	log     *slog.Logger
	slots   chan struct{}
	wg      sync.WaitGroup
}

type Option func(*Recorder)

// WithTimeout bounds each write.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxInFlight bounds the number of concurrent writes.
func WithMaxInFlight(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.slots = make(chan struct{}, n)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		timeout: constants.DefaultAuditWriteTimeout,
		log:     slog.Default(),
		slots:   make(chan struct{}, defaultMaxInFlight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record schedules e for persistence and returns immediately. The write
// outlives ctx cancellation but not the recorder's timeout.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	row := &models.AuditLog{
		TenantID:     e.TenantID,
		UserID:       e.UserID,
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Before:       Snapshot(e.Before),
		After:        Snapshot(e.After),
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Metadata:     e.Metadata,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case r.slots <- struct{}{}:
	default:
		r.fail(row, ErrQueueFull)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.store.Create(wctx, row); err != nil {
			r.fail(row, err)
		}
	}()
}

func (r *Recorder) fail(row *models.AuditLog, err error) {
	metrics.AuditWriteFailures.Inc()
	r.log.Error("AuditWriteFailure",
		logger.Error(err),
		"action", row.Action,
		"resource_type", row.ResourceType,
		"resource_id", row.ResourceID,
	)
}

// Wait blocks until every scheduled write has finished. It is used on
// shutdown and in tests.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
