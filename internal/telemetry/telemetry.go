// Package telemetry buffers clickstream events from HTTP handlers and
// persists them asynchronously so logging never blocks a trading request.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tradesim/internal/domain"
	"tradesim/internal/store"
	"tradesim/internal/util"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 50 * time.Millisecond
)

// Recorder accepts events on a bounded channel and writes them to the event
// store from a single background worker. When the buffer is full the event
// is dropped and counted rather than stalling the caller.
type Recorder struct {
	store store.EventStore
	log   *slog.Logger

	events chan *domain.Event
	done   chan struct{}

	mu      sync.Mutex
	dropped int64
	closed  bool
}

// NewRecorder starts a Recorder with the given buffer size and returns it.
// Call Close to drain and stop the worker.
func NewRecorder(eventStore store.EventStore, bufferSize int, log *slog.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	r := &Recorder{
		store:  eventStore,
		log:    log,
		events: make(chan *domain.Event, bufferSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues one event for persistence. It never blocks: if the buffer
// is full the event is dropped and the drop is logged.
func (r *Recorder) Record(ev *domain.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	select {
	case r.events <- ev:
		r.mu.Unlock()
	default:
		r.dropped++
		n := r.dropped
		r.mu.Unlock()
		r.log.Warn("event buffer full, dropping event",
			"session", ev.SessionID, "type", ev.Type, "dropped_total", n)
	}
}

// Dropped reports how many events have been discarded due to a full buffer.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting events, drains what is already buffered, and waits
// for the worker to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.events)
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)

	for ev := range r.events {
		err := util.Retry(context.Background(), writeAttempts, writeBaseDelay, func() error {
			return r.store.AppendEvent(context.Background(), ev)
		})
		if err != nil {
			r.log.Error("persisting event failed",
				"session", ev.SessionID, "type", ev.Type, "error", err)
		}
	}
}
