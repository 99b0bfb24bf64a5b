// Package event defines the immutable journal events for worker shifts.
package event

import (
	"strings"
	"time"
)

// Type identifies the type of a work shift event.
type Type string

// Shift lifecycle events.
const (
	// TypeShiftStarted records the start of a worker-day shift.
	TypeShiftStarted Type = "shift.started"
	// TypeBreakStarted records the start of a break within a shift.
	TypeBreakStarted Type = "break.started"
	// TypeBreakEnded records the end of a break, resuming work.
	TypeBreakEnded Type = "break.ended"
	// TypeShiftEnded records the end of a worker-day shift.
	TypeShiftEnded Type = "shift.ended"
)

// Types lists every known event type, in lifecycle order.
//
// Fold sites are tested against this list so a new event type fails their
// tests until every fold handles it.
func Types() []Type {
	return []Type{TypeShiftStarted, TypeBreakStarted, TypeBreakEnded, TypeShiftEnded}
}

// Event represents an immutable fact in a worker-day stream.
//
// Events are the only persisted truth; aggregate and projection state are
// derived by folding them in order.
type Event struct {
	// StreamID is the worker-day stream this event belongs to,
	// formatted "{workerID}_{shiftDate}".
	StreamID string
	// WorkerID is the worker the shift belongs to.
	WorkerID uint32
	// Seq is the event sequence number within the stream (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// GlobalSeq is the journal-wide append order across all streams.
	// Assigned by storage on append; used for cross-stream replay.
	GlobalSeq uint64
	// Type identifies the kind of event.
	Type Type
	// Timestamp is the UTC instant the transition happened at.
	Timestamp time.Time
	// RequestID correlates the event with the transport request that
	// produced it (empty for imported or replayed histories).
	RequestID string
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}
