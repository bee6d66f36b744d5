package routekit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a navigation event
type EventType string

const (
	// EventNavigationStart fires when a transition starts running
	EventNavigationStart EventType = "navigation-start"
	// EventNavigationEnd fires when a transition commits
	EventNavigationEnd EventType = "navigation-end"
	// EventNavigationCancel fires on refusal, on redirect of the original
	// attempt and on caller cancellation
	EventNavigationCancel EventType = "navigation-cancel"
	// EventNavigationError fires on hook, activation or resolution failure
	EventNavigationError EventType = "navigation-error"
)

// Event is delivered to subscribers
type Event struct {
	Type         EventType
	TransitionID uint64
	Instruction  Instruction
	Redirect     Instruction // target when a cancel was caused by a redirect
	Err          error       // set for EventNavigationError
	Time         time.Time
}

// EventHandler receives events synchronously
type EventHandler func(Event)

type subscription struct {
	id      string
	handler EventHandler
	types   []EventType
}

func (s *subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, want := range s.types {
		if want == t {
			return true
		}
	}
	return false
}

// emitter delivers events to subscribers in subscription order
type emitter struct {
	mu     sync.RWMutex
	subs   []*subscription
	logger *slog.Logger
}

func newEmitter(logger *slog.Logger) *emitter {
	return &emitter{logger: logger}
}

func (e *emitter) subscribe(handler EventHandler, types ...EventType) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		types:   append([]EventType(nil), types...),
	}
	e.subs = append(e.subs, sub)
	return sub.id
}

func (e *emitter) unsubscribe(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (e *emitter) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	e.mu.RLock()
	subs := make([]*subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, sub := range subs {
		if !sub.wants(ev.Type) {
			continue
		}
		e.deliver(sub, ev)
	}
}

func (e *emitter) deliver(sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked",
				slog.String("subscription", sub.id),
				slog.String("event", string(ev.Type)),
				slog.Any("panic", r))
		}
	}()
	sub.handler(ev)
}
