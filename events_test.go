package routekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_Order(t *testing.T) {
	e := newEmitter(quietLogger())

	var got []string
	e.subscribe(func(ev Event) { got = append(got, "first:"+string(ev.Type)) })
	e.subscribe(func(ev Event) { got = append(got, "second:"+string(ev.Type)) })

	e.emit(Event{Type: EventNavigationStart})
	assert.Equal(t, []string{"first:navigation-start", "second:navigation-start"}, got)
}

func TestEmitter_Filter(t *testing.T) {
	e := newEmitter(quietLogger())

	var got []EventType
	e.subscribe(func(ev Event) { got = append(got, ev.Type) }, EventNavigationCancel, EventNavigationError)

	e.emit(Event{Type: EventNavigationStart})
	e.emit(Event{Type: EventNavigationCancel})
	e.emit(Event{Type: EventNavigationEnd})
	e.emit(Event{Type: EventNavigationError})

	assert.Equal(t, []EventType{EventNavigationCancel, EventNavigationError}, got)
}

func TestEmitter_PanickingHandler(t *testing.T) {
	e := newEmitter(quietLogger())

	delivered := false
	e.subscribe(func(Event) { panic("bad handler") })
	e.subscribe(func(Event) { delivered = true })

	assert.NotPanics(t, func() { e.emit(Event{Type: EventNavigationEnd}) })
	assert.True(t, delivered)
}

func TestEmitter_Unsubscribe(t *testing.T) {
	e := newEmitter(quietLogger())

	calls := 0
	id := e.subscribe(func(Event) { calls++ })
	assert.NotEmpty(t, id)

	e.emit(Event{Type: EventNavigationStart})
	assert.True(t, e.unsubscribe(id))
	assert.False(t, e.unsubscribe(id))
	e.emit(Event{Type: EventNavigationStart})

	assert.Equal(t, 1, calls)
}

func TestEmitter_UnsubscribeDuringEmit(t *testing.T) {
	e := newEmitter(quietLogger())

	var second string
	calls := 0
	e.subscribe(func(Event) { e.unsubscribe(second) })
	second = e.subscribe(func(Event) { calls++ })

	// the snapshot taken at emit time still holds the second handler
	e.emit(Event{Type: EventNavigationStart})
	e.emit(Event{Type: EventNavigationStart})
	assert.Equal(t, 1, calls)
}

func TestEmitter_Time(t *testing.T) {
	e := newEmitter(quietLogger())

	var got Event
	e.subscribe(func(ev Event) { got = ev })

	e.emit(Event{Type: EventNavigationStart})
	assert.False(t, got.Time.IsZero())

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e.emit(Event{Type: EventNavigationStart, Time: fixed})
	assert.Equal(t, fixed, got.Time)
}
