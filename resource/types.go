package resource

import (
	"github.com/google/uuid"

	"github.com/wippyai/ownership/ptr"
)

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
	EventTransferred // moved out of the table with Take
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow-returned"
	case EventTransferred:
		return "transferred"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Table   uuid.UUID
	Address ptr.Address
	Handle  Handle
	Strong  uint32 // strong count after the operation
	Borrows uint32 // outstanding borrows on the handle after the operation
	Type    EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer. Function values are not
// comparable; remove one with the function returned by Subscribe.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}
