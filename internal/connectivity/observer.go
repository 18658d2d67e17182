package connectivity

import (
	"sync"
	"time"

	"github.com/matheus3301/moodtrack/internal/bus"
)

// State is the last known network reachability.
type State string

const (
	Unknown State = "UNKNOWN"
	Online  State = "ONLINE"
	Offline State = "OFFLINE"
)

// Observer holds the process-wide online flag. It is written by a Monitor
// and read by coordinators before they dispatch mirror work.
type Observer struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewObserver creates an observer in the Unknown state.
func NewObserver(b *bus.Bus) *Observer {
	return &Observer{
		current: Unknown,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (o *Observer) Current() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Since returns when the current state was entered.
func (o *Observer) Since() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.since
}

// IsOnline reports whether the last probe reached the network.
// Unknown counts as offline.
func (o *Observer) IsOnline() bool {
	return o.Current() == Online
}

// Set records the reachability observed by a probe. A change of state is
// published as a connectivity.changed event.
func (o *Observer) Set(online bool) {
	to := Offline
	if online {
		to = Online
	}

	o.mu.Lock()
	from := o.current
	if from == to {
		o.mu.Unlock()
		return
	}
	o.current = to
	o.since = time.Now()
	o.mu.Unlock()

	o.bus.Emit(bus.ConnectivityChanged, Change{From: from, To: to})
}

// Change is the payload for connectivity.changed events.
type Change struct {
	From State
	To   State
}
