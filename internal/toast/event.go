package toast

import (
	"fmt"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// EventType identifies a change in the center.
type EventType int

const (
	EventMounted EventType = iota
	EventInserted
	EventVisible
	EventPaused
	EventResumed
	EventClosing
	EventDestroyed
	EventRepositioned
	EventUnmounted
)

var eventNames = map[EventType]string{
	EventMounted:      "mounted",
	EventInserted:     "inserted",
	EventVisible:      "visible",
	EventPaused:       "paused",
	EventResumed:      "resumed",
	EventClosing:      "closing",
	EventDestroyed:    "destroyed",
	EventRepositioned: "repositioned",
	EventUnmounted:    "unmounted",
}

// String returns the string representation of EventType.
func (e EventType) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EventType) UnmarshalText(text []byte) error {
	for typ, name := range eventNames {
		if name == string(text) {
			*e = typ
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", text)
}

// Event describes one change. Toast is a snapshot taken when the event was
// emitted; it is nil for container events.
type Event struct {
	Type  EventType    `json:"type"`
	Toast *model.Toast `json:"toast,omitempty"`
	At    time.Time    `json:"at"`
}

// Listener observes center events. Listeners run on the center's goroutine
// and must not block.
type Listener func(Event)
