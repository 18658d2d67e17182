package bus

import "time"

// Event kinds published by the journal core. Subscribers filter by prefix,
// e.g. "entry." or "mirror.".
const (
	EntryAdded          = "entry.added"
	EntryUpdated        = "entry.updated"
	EntryDeleted        = "entry.deleted"
	MirrorApplied       = "mirror.applied"
	MirrorFailed        = "mirror.failed"
	ConnectivityChanged = "connectivity.changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event of the given kind with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
