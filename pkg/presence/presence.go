// Package presence tracks whether the image target is currently visible and
// notifies a listener on found/lost transitions.
package presence

// State is the presence of the tracked target.
type State int

const (
	// Lost means the target is not visible. This is the initial state.
	Lost State = iota

	// Found means the target is visible and the anchor pose is live.
	Found
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Lost:
		return "lost"
	case Found:
		return "found"
	default:
		return "unknown"
	}
}

// Signal is a tracker event.
type Signal int

const (
	// SignalFound is emitted by the tracker when the target comes into view.
	SignalFound Signal = iota + 1

	// SignalLost is emitted by the tracker when the target leaves the view.
	SignalLost
)

// String returns a human-readable signal name.
func (s Signal) String() string {
	switch s {
	case SignalFound:
		return "found"
	case SignalLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Listener receives presence transitions.
type Listener interface {
	OnFound()
	OnLost()
}

// Stats counts what the machine has seen.
type Stats struct {
	Transitions uint64 `json:"transitions"`
	Duplicates  uint64 `json:"duplicates"`
	Gated       uint64 `json:"gated"`
}

// Machine is the LOST/FOUND state machine.
//
// Found transitions only reach the listener once the gate is open (the
// session has been started by a user gesture). Lost transitions always do.
// Machine is not safe for concurrent use; the owning session serializes calls.
type Machine struct {
	state    State
	gateOpen bool
	listener Listener
	stats    Stats
}

// NewMachine creates a machine in the Lost state with the gate closed.
func NewMachine(listener Listener) *Machine {
	return &Machine{listener: listener}
}

// Handle applies a tracker signal. It returns true if the state changed.
// Duplicate signals are tolerated and ignored.
func (m *Machine) Handle(sig Signal) bool {
	var next State
	switch sig {
	case SignalFound:
		next = Found
	case SignalLost:
		next = Lost
	default:
		return false
	}

	if next == m.state {
		m.stats.Duplicates++
		return false
	}

	m.state = next
	m.stats.Transitions++

	if m.listener == nil {
		return true
	}

	switch next {
	case Found:
		if !m.gateOpen {
			m.stats.Gated++
			return true
		}
		m.listener.OnFound()
	case Lost:
		m.listener.OnLost()
	}
	return true
}

// Open opens the started gate. If the target is already in view the listener
// is activated immediately, since no further found signal will arrive.
// Opening an open gate does nothing.
func (m *Machine) Open() {
	if m.gateOpen {
		return
	}
	m.gateOpen = true
	if m.state == Found && m.listener != nil {
		m.listener.OnFound()
	}
}

// IsOpen reports whether the started gate is open.
func (m *Machine) IsOpen() bool {
	return m.gateOpen
}

// State returns the current presence state.
func (m *Machine) State() State {
	return m.state
}

// Stats returns transition counters.
func (m *Machine) Stats() Stats {
	return m.stats
}
