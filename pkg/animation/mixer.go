// Package animation provides a time-based clip mixer.
//
// The mixer is the authoritative clock for a session: clip time only moves
// when Update is called from the frame loop, and loop boundaries are reported
// so audio can be resynchronized against them.
package animation

import "time"

// ActionState is a snapshot of one action.
type ActionState struct {
	Name     string        `json:"name"`
	Time     time.Duration `json:"time"`
	Duration time.Duration `json:"duration"`
	Paused   bool          `json:"paused"`
	Loops    uint64        `json:"loops"`
}

// Action plays a single clip.
type Action struct {
	name     string
	duration time.Duration
	time     time.Duration
	paused   bool
	loops    uint64
}

// Name returns the clip name.
func (a *Action) Name() string {
	return a.name
}

// Duration returns the clip length.
func (a *Action) Duration() time.Duration {
	return a.duration
}

// Time returns the playhead position within the clip.
func (a *Action) Time() time.Duration {
	return a.time
}

// Paused reports whether the action is paused.
func (a *Action) Paused() bool {
	return a.paused
}

// SetPaused pauses or resumes the action. The playhead is kept.
func (a *Action) SetPaused(paused bool) {
	a.paused = paused
}

// Loops returns how many times the clip has wrapped.
func (a *Action) Loops() uint64 {
	return a.loops
}

// State returns a snapshot of the action.
func (a *Action) State() ActionState {
	return ActionState{
		Name:     a.name,
		Time:     a.time,
		Duration: a.duration,
		Paused:   a.paused,
		Loops:    a.loops,
	}
}

// LoopFunc is called when an action wraps past the end of its clip.
type LoopFunc func(a *Action)

// Mixer advances a set of looping actions.
// Mixer is not safe for concurrent use; the owning session serializes calls.
type Mixer struct {
	actions []*Action
	onLoop  []LoopFunc
}

// NewMixer creates an empty mixer.
func NewMixer() *Mixer {
	return &Mixer{}
}

// ClipAction creates an action for a clip. The action is playing but paused,
// so nothing moves until presence unpauses it.
func (m *Mixer) ClipAction(name string, duration time.Duration) *Action {
	a := &Action{
		name:     name,
		duration: duration,
		paused:   true,
	}
	m.actions = append(m.actions, a)
	return a
}

// Actions returns every action in creation order.
func (m *Mixer) Actions() []*Action {
	return m.actions
}

// OnLoop registers a loop listener.
func (m *Mixer) OnLoop(fn LoopFunc) {
	m.onLoop = append(m.onLoop, fn)
}

// Update advances every unpaused action by dt. An action that wraps more than
// once in a single update reports one loop event.
func (m *Mixer) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}

	for _, a := range m.actions {
		if a.paused || a.duration <= 0 {
			continue
		}

		a.time += dt
		if a.time < a.duration {
			continue
		}

		a.loops += uint64(a.time / a.duration)
		a.time %= a.duration
		for _, fn := range m.onLoop {
			fn(a)
		}
	}
}

// States returns snapshots of every action.
func (m *Mixer) States() []ActionState {
	states := make([]ActionState, len(m.actions))
	for i, a := range m.actions {
		states[i] = a.State()
	}
	return states
}
