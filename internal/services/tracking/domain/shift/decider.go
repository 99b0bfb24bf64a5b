package shift

import (
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/command"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/event"
)

const (
	rejectionCodeShiftAlreadyStarted = "SHIFT_ALREADY_STARTED"
	rejectionCodeShiftNotWorking     = "SHIFT_NOT_WORKING"
	rejectionCodeShiftNotOnBreak     = "SHIFT_NOT_ON_BREAK"
)

// Decide returns the decision for a shift command against current state.
//
// Each accepted command emits exactly one event; a rejected command emits
// nothing and leaves state untouched. Decide never mutates its inputs.
func Decide(state State, cmd command.Command) command.Decision {
	switch cmd.Type {
	case command.TypeStartShift:
		if state.CurrentStatus() != StatusNotStarted {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeShiftAlreadyStarted,
				Message: "shift already started",
			})
		}
		return command.Accept(newEvent(event.TypeShiftStarted, cmd.StreamID, cmd.WorkerID, cmd))

	case command.TypeStartBreak:
		if state.CurrentStatus() != StatusWorking {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeShiftNotWorking,
				Message: "cannot start break: not currently working (shift finished or already on a break)",
			})
		}
		return command.Accept(newEvent(event.TypeBreakStarted, state.StreamID, state.WorkerID, cmd))

	case command.TypeStopBreak:
		if state.CurrentStatus() != StatusOnBreak {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeShiftNotOnBreak,
				Message: "cannot stop break: not currently on a break",
			})
		}
		return command.Accept(newEvent(event.TypeBreakEnded, state.StreamID, state.WorkerID, cmd))

	case command.TypeEndShift:
		if state.CurrentStatus() != StatusWorking {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeShiftNotWorking,
				Message: "cannot end shift: not currently on a shift",
			})
		}
		return command.Accept(newEvent(event.TypeShiftEnded, state.StreamID, state.WorkerID, cmd))
	}

	return command.Decision{}
}

func newEvent(eventType event.Type, streamID string, workerID uint32, cmd command.Command) event.Event {
	return event.Event{
		StreamID:  streamID,
		WorkerID:  workerID,
		Type:      eventType,
		Timestamp: cmd.Timestamp.UTC(),
		RequestID: cmd.RequestID,
	}
}
