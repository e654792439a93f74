package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const eventQueueCapacity = 64

type eventQueueItem struct {
	name     string
	run      func()
	queuedAt time.Time
}

// eventLoop runs every orchestrator state transition on one goroutine, in
// the order the transitions were queued.
type eventLoop struct {
	queue   chan eventQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		queue:   make(chan eventQueueItem, eventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (l *eventLoop) start(ctx context.Context) (started bool) {
	if l.isClosed() {
		return false
	}

	l.startOnce.Do(func() {
		started = true
		l.started.Store(true)
		go func() {
			defer close(l.done)

			for {
				select {
				case <-l.closeCh:
					return
				case item := <-l.queue:
					if l.isClosed() {
						return
					}
					l.process(ctx, item)
				}
			}
		}()
	})

	return started
}

func (l *eventLoop) end() {
	l.endOnce.Do(func() { close(l.closeCh) })
}

func (l *eventLoop) waitUntilEnded() {
	if l.started.Load() {
		<-l.done
	}
}

func (l *eventLoop) isStarted() bool { return l.started.Load() }

func (l *eventLoop) isClosed() bool {
	select {
	case <-l.closeCh:
		return true
	default:
		return false
	}
}

// enqueue schedules run on the loop. It never blocks: when the queue is full
// the item is handed over from a separate goroutine, which only happens under
// bursts the capacity did not anticipate.
func (l *eventLoop) enqueue(name string, run func()) bool {
	if l.isClosed() {
		return false
	}

	item := eventQueueItem{name: name, run: run, queuedAt: time.Now()}
	select {
	case l.queue <- item:
		return true
	default:
	}

	logger.Warn("event queue full, deferring event", "event", name)
	go func() {
		select {
		case <-l.closeCh:
		case l.queue <- item:
		}
	}()
	return true
}

// call runs fn on the loop and waits for it to finish. It must not be used
// from the loop itself.
func (l *eventLoop) call(name string, fn func()) bool {
	if !l.isStarted() {
		return false
	}

	done := make(chan struct{})
	if !l.enqueue(name, func() {
		defer close(done)
		fn()
	}) {
		return false
	}

	select {
	case <-done:
		return true
	case <-l.done:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

func (l *eventLoop) process(ctx context.Context, item eventQueueItem) {
	_, span := tracer.Start(ctx, "process "+item.name)
	defer span.End()

	queuedTime := time.Since(item.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("orchestrator.queued_time", queuedTime)))
	span.SetAttributes(
		attribute.Float64("orchestrator.queued_time", queuedTime),
		attribute.Int("orchestrator.queued_events", len(l.queue)),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("%s handler panicked: %v", item.name, recovered)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("event handler panicked", "event", item.name, "error", err)
		}
	}()

	item.run()
}
