package authkit

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncSink decouples audit emission from the hot path: events are queued to
// a buffered channel and delivered to the wrapped sink by a single worker
// goroutine. With dropIfFull set, a full buffer drops the event and counts
// it instead of blocking the caller.
type AsyncSink struct {
	sink       AuditSink
	ch         chan AuditEvent
	done       chan struct{}
	wg         sync.WaitGroup
	dropIfFull bool
	dropped    atomic.Uint64
	closed     atomic.Bool
	closeOnce  sync.Once
}

// NewAsyncSink wraps sink with a buffered asynchronous delivery worker.
// Close must be called to flush and stop the worker.
func NewAsyncSink(sink AuditSink, buffer int, dropIfFull bool) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	s := &AsyncSink{
		sink:       sink,
		ch:         make(chan AuditEvent, buffer),
		done:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.ch:
			s.sink.Emit(context.Background(), event)
		case <-s.done:
			// Drain whatever was queued before the close.
			for {
				select {
				case event := <-s.ch:
					s.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues the event for asynchronous delivery. After Close it is a no-op.
func (s *AsyncSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if s.dropIfFull {
		select {
		case s.ch <- event:
		case <-s.done:
		default:
			s.dropped.Add(1)
		}
		return
	}

	select {
	case s.ch <- event:
	case <-ctx.Done():
	case <-s.done:
	}
}

// Close stops the worker after flushing queued events. Safe to call twice.
func (s *AsyncSink) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the buffer was full.
func (s *AsyncSink) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// AuditDropped exposes the drop counter of an [AsyncSink] audit sink for
// metrics export. It reports zero for synchronous sinks.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	if s, ok := e.audit.(*AsyncSink); ok {
		return s.Dropped()
	}
	return 0
}
