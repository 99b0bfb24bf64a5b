// Package shift implements the work shift aggregate as a pure
// decide/fold state machine over journal events.
package shift

// Status is the lifecycle position of a worker-day shift.
type Status string

const (
	// StatusNotStarted is the zero state before any event exists.
	StatusNotStarted Status = "not_started"
	// StatusWorking means the worker is on shift and not on a break.
	StatusWorking Status = "working"
	// StatusOnBreak means the worker is on shift but paused.
	StatusOnBreak Status = "on_break"
	// StatusFinished means the shift has ended; no further transitions.
	StatusFinished Status = "finished"
)

// State is the transient aggregate state rebuilt from a stream's events.
//
// State is never persisted; only events are durable. Replaying the same
// event sequence always yields the same State.
type State struct {
	// Started reports whether the stream has any events at all.
	Started bool
	// StreamID is the worker-day stream identity.
	StreamID string
	// WorkerID is the worker the shift belongs to.
	WorkerID uint32
	// Status is the current state machine position.
	Status Status
}

// CurrentStatus returns the status, treating the zero State as NotStarted.
func (s State) CurrentStatus() Status {
	if s.Status == "" {
		return StatusNotStarted
	}
	return s.Status
}
