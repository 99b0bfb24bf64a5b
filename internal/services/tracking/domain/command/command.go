// Package command defines the command and decision value types for the
// tracking write path.
package command

import "time"

// Type identifies the type of a tracking command.
type Type string

// Shift lifecycle commands.
const (
	// TypeStartShift opens a new worker-day stream.
	TypeStartShift Type = "shift.start"
	// TypeEndShift closes an open shift.
	TypeEndShift Type = "shift.end"
	// TypeStartBreak pauses work within an open shift.
	TypeStartBreak Type = "break.start"
	// TypeStopBreak resumes work after a break.
	TypeStopBreak Type = "break.stop"
)

// Command carries one requested state transition for a worker-day stream.
type Command struct {
	// Type identifies the requested transition.
	Type Type
	// StreamID is the worker-day stream the command targets.
	StreamID string
	// WorkerID is the worker clocking the transition.
	WorkerID uint32
	// Timestamp is the UTC instant the transition happened at.
	Timestamp time.Time
	// RequestID correlates the command with transport-level requests.
	RequestID string
}
