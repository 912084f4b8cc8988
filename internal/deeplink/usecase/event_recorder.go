package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/metrics"
)

// AsyncEventRecorder persists audit events off the request path. Events are
// queued on a bounded channel and written by a single worker using a context
// detached from the request, so a cancelled request still gets its audit
// trail. A full queue or a failed write drops the event with a warning.
type AsyncEventRecorder struct {
	repo         AuditEventRepository
	logger       *slog.Logger
	metrics      metrics.BusinessMetrics
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan *domain.AuditEvent
	done   chan struct{}
}

// NewAsyncEventRecorder starts the writer goroutine. Call Close to drain the
// queue and stop it.
func NewAsyncEventRecorder(
	repo AuditEventRepository,
	logger *slog.Logger,
	m metrics.BusinessMetrics,
	bufferSize int,
	writeTimeout time.Duration,
) *AsyncEventRecorder {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	r := &AsyncEventRecorder{
		repo:         repo,
		logger:       logger,
		metrics:      m,
		writeTimeout: writeTimeout,
		queue:        make(chan *domain.AuditEvent, bufferSize),
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues event without blocking.
func (r *AsyncEventRecorder) Record(ctx context.Context, event *domain.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.Must(uuid.NewV7())
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(ctx, event, "closed", nil)
		return
	}

	select {
	case r.queue <- event:
	default:
		r.drop(ctx, event, "queue_full", nil)
	}
}

// Close stops accepting events and waits until queued events are written or
// ctx is done.
func (r *AsyncEventRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncEventRecorder) run() {
	defer close(r.done)

	for event := range r.queue {
		r.write(event)
	}
}

func (r *AsyncEventRecorder) write(event *domain.AuditEvent) {
	ctx := context.Background()
	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()
	}

	if err := r.repo.Create(ctx, event); err != nil {
		r.drop(ctx, event, "write_failed", err)
		return
	}
	r.metrics.RecordTokenEvent(ctx, string(event.Flow), string(event.Kind))
}

func (r *AsyncEventRecorder) drop(ctx context.Context, event *domain.AuditEvent, reason string, err error) {
	attrs := []any{
		slog.String("reason", reason),
		slog.String("token_id", event.TokenID.String()),
		slog.String("kind", string(event.Kind)),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	r.logger.Warn("audit event dropped", attrs...)
	r.metrics.RecordAuditDropped(ctx, reason)
}
