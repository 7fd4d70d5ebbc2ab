// Package audit provides the append-only sink for authorization
// decisions. Records flow in from the gate and the gatekeeper; the sink
// buffers them and appends in the background so a slow or failing store
// can never block or abort a request.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one authorization decision as appended to the trail.
type Record struct {
	ID       uuid.UUID
	Actor    string
	Resource string
	Action   string
	Granted  bool
	Reason   string
	Context  map[string]any
	At       time.Time
}

// Recorder accepts audit records. Implementations must tolerate
// concurrent callers and must never surface a failure to them.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// Store appends records to durable storage.
type Store interface {
	Append(ctx context.Context, rec Record) error
}

// Sink buffers records on a channel and appends them from a single
// background worker. A full buffer drops the record with a warning
// rather than blocking the request path.
type Sink struct {
	store  Store
	logger *slog.Logger
	ch     chan Record

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewSink starts the background worker. buffer bounds how many records
// may be in flight before drops begin.
func NewSink(store Store, logger *slog.Logger, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &Sink{
		store:  store,
		logger: logger,
		ch:     make(chan Record, buffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues one record, filling in the ID and timestamp when
// unset. It never blocks and never returns an error.
func (s *Sink) Record(_ context.Context, rec Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.ch <- rec:
	default:
		if s.logger != nil {
			s.logger.Warn("audit buffer full, record dropped",
				slog.String("actor", rec.Actor),
				slog.String("resource", rec.Resource))
		}
	}
	s.mu.Unlock()
}

// Close stops accepting records and waits for the buffer to drain or
// the context to expire.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for rec := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.store.Append(ctx, rec)
		cancel()
		if err != nil && s.logger != nil {
			s.logger.Warn("audit append failed",
				slog.Any("error", err),
				slog.String("actor", rec.Actor),
				slog.String("resource", rec.Resource))
		}
	}
}

// NopRecorder discards every record.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Record) {}
