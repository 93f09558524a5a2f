package asprof

import (
	"fmt"
	"strings"
)

// EventType is a sampling event understood by the native engine.
type EventType struct {
	ID   int
	Name string
}

// Events supported by the engine.
var (
	EventCPU    = EventType{ID: 0, Name: "cpu"}
	EventAlloc  = EventType{ID: 1, Name: "alloc"}
	EventLock   = EventType{ID: 2, Name: "lock"}
	EventWall   = EventType{ID: 3, Name: "wall"}
	EventITimer = EventType{ID: 4, Name: "itimer"}
)

var eventsByName = map[string]EventType{
	EventCPU.Name:    EventCPU,
	EventAlloc.Name:  EventAlloc,
	EventLock.Name:   EventLock,
	EventWall.Name:   EventWall,
	EventITimer.Name: EventITimer,
}

// ParseEventType looks up an event by name, case-insensitively.
func ParseEventType(name string) (EventType, error) {
	ev, ok := eventsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return EventType{}, fmt.Errorf("unknown event type %q", name)
	}
	return ev, nil
}

func (e EventType) String() string {
	return e.Name
}

// Counter selects what a collapsed dump counts per stack.
type Counter string

const (
	// CounterSamples counts samples per stack.
	CounterSamples Counter = "samples"
	// CounterTotal sums the event value (e.g. bytes, nanoseconds) per stack.
	CounterTotal Counter = "total"
)
