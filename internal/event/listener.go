package event

import (
	"context"
	"log/slog"
	"sync"
)

// Handler consumes one event. Handlers run sequentially on the listener
// goroutine; a slow handler delays the others but never the engine.
type Handler func(ctx context.Context, e Event) error

// Listener fans events out to registered handlers. Emit never blocks the
// producer: when the queue is full the event is dropped with a warning,
// telemetry being strictly less important than navigation progress.
type Listener struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []Handler

	queue chan Event
}

func NewListener(logger *slog.Logger) *Listener {
	return &Listener{
		logger: logger,
		queue:  make(chan Event, 256),
	}
}

// Register adds a handler. Registration is expected before Listen starts,
// but is safe at any time.
func (l *Listener) Register(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, h)
}

// Emit enqueues an event for dispatch.
func (l *Listener) Emit(e Event) {
	select {
	case l.queue <- e:
	default:
		l.logger.Warn("Event queue full, dropping event", slog.String("message", e.Message()))
	}
}

// Listen dispatches queued events until ctx is cancelled.
func (l *Listener) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-l.queue:
			l.dispatch(ctx, e)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, e Event) {
	l.mu.RLock()
	handlers := make([]Handler, len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			l.logger.Error("Event handler failed", slog.String("message", e.Message()), slog.Any("error", err))
		}
	}
}
