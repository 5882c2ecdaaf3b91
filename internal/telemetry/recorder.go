package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/sports-gateway/internal/messaging"
	"go.uber.org/zap"
)

// DefaultQueueSize is the number of events buffered before new ones are dropped.
const DefaultQueueSize = 1024

// Recorder accepts events without blocking and publishes them from a single worker.
// When the queue is full new events are dropped.
type Recorder struct {
	publish messaging.Publish[RequestEvent]
	logger  *zap.Logger
	onDrop  func()

	mu      sync.RWMutex
	queue   chan *RequestEvent
	closed  bool
	started bool
	done    chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithDropHook registers a callback invoked for every dropped event.
func WithDropHook(fn func()) RecorderOption {
	return func(r *Recorder) {
		r.onDrop = fn
	}
}

// NewRecorder creates a new recorder with a queue of size events.
func NewRecorder(
	publish messaging.Publish[RequestEvent],
	size int,
	logger *zap.Logger,
	opts ...RecorderOption,
) *Recorder {
	if size <= 0 {
		size = DefaultQueueSize
	}

	r := &Recorder{
		publish: publish,
		logger:  logger,
		onDrop:  func() {},
		queue:   make(chan *RequestEvent, size),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record enqueues event and reports whether it was accepted.
func (r *Recorder) Record(event *RequestEvent) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}

	select {
	case r.queue <- event:
		return true
	default:
		r.onDrop()
		r.logger.Warn("telemetry queue full, dropping event",
			zap.String("endpoint", event.Endpoint),
		)

		return false
	}
}

// Start launches the publishing worker.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("telemetry: recorder is shut down")
	}

	if r.started {
		return nil
	}

	r.started = true

	go r.drain(context.WithoutCancel(ctx))

	return nil
}

func (r *Recorder) drain(ctx context.Context) {
	defer close(r.done)

	for event := range r.queue {
		if err := r.publish(ctx, event); err != nil {
			r.logger.Warn("failed to publish request event",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// Shutdown stops accepting events and waits until queued ones are published.
func (r *Recorder) Shutdown() error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()

		return nil
	}

	r.closed = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()

	if started {
		<-r.done
	}

	return nil
}
