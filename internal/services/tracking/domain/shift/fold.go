package shift

import (
	"fmt"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/event"
)

// Fold applies an event to shift state.
//
// An unrecognized event type is a schema mismatch, not a recoverable
// condition: the fold aborts instead of silently continuing.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeShiftStarted:
		state.Started = true
		state.StreamID = evt.StreamID
		state.WorkerID = evt.WorkerID
		state.Status = StatusWorking
	case event.TypeBreakStarted:
		state.Status = StatusOnBreak
	case event.TypeBreakEnded:
		state.Status = StatusWorking
	case event.TypeShiftEnded:
		state.Status = StatusFinished
	default:
		return state, apperrors.New(apperrors.CodeEventUnknownKind,
			fmt.Sprintf("unknown event type %q in stream %s", evt.Type, evt.StreamID))
	}
	return state, nil
}

// Replay folds an ordered event sequence into state from scratch.
//
// Replay raises no new events; the state after replay equals the state
// after the equivalent command sequence.
func Replay(events []event.Event) (State, error) {
	var state State
	for _, evt := range events {
		next, err := Fold(state, evt)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}
