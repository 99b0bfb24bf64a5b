// Package tracking hosts the application services for worker shift
// tracking: the command write path, monthly statistics queries, and
// projection rebuild coordination.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/command"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shift"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shiftcal"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/projection"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// ShiftResult reports the outcome of an accepted shift command.
type ShiftResult struct {
	StreamID  string
	WorkerID  uint32
	Status    shift.Status
	Seq       uint64
	Timestamp time.Time
}

// ShiftService executes shift lifecycle commands against worker-day
// event streams.
//
// Each command derives its stream from the worker and the shift date of
// its timestamp, replays that stream, asks the decider, and appends the
// emitted events with optimistic concurrency. Accepted events are applied
// to the monthly projection inline; apply failures are logged and left
// for the next rebuild since the journal is already committed.
type ShiftService struct {
	events  storage.EventStore
	applier *projection.Monthly
	cal     shiftcal.Calendar
	log     logx.Logger
	now     func() time.Time
}

// NewShiftService builds the shift command service.
func NewShiftService(events storage.EventStore, applier *projection.Monthly, cal shiftcal.Calendar, log logx.Logger) *ShiftService {
	return &ShiftService{
		events:  events,
		applier: applier,
		cal:     cal,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// StartShift opens the worker-day shift for the worker.
func (s *ShiftService) StartShift(ctx context.Context, workerID uint32, at time.Time, requestID string) (ShiftResult, error) {
	return s.execute(ctx, command.TypeStartShift, workerID, at, requestID)
}

// EndShift closes the worker-day shift for the worker.
func (s *ShiftService) EndShift(ctx context.Context, workerID uint32, at time.Time, requestID string) (ShiftResult, error) {
	return s.execute(ctx, command.TypeEndShift, workerID, at, requestID)
}

// StartBreak pauses work within an open shift.
func (s *ShiftService) StartBreak(ctx context.Context, workerID uint32, at time.Time, requestID string) (ShiftResult, error) {
	return s.execute(ctx, command.TypeStartBreak, workerID, at, requestID)
}

// StopBreak resumes work after a break.
func (s *ShiftService) StopBreak(ctx context.Context, workerID uint32, at time.Time, requestID string) (ShiftResult, error) {
	return s.execute(ctx, command.TypeStopBreak, workerID, at, requestID)
}

func (s *ShiftService) execute(ctx context.Context, cmdType command.Type, workerID uint32, at time.Time, requestID string) (ShiftResult, error) {
	if workerID == 0 {
		return ShiftResult{}, apperrors.New(apperrors.CodeShiftInvalidTransition, "worker id is required")
	}
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	streamID := s.cal.StreamKey(workerID, at)
	history, err := s.events.ListStreamEvents(ctx, streamID, 0, 0)
	if err != nil {
		return ShiftResult{}, fmt.Errorf("load stream %s: %w", streamID, err)
	}

	state, err := shift.Replay(history)
	if err != nil {
		return ShiftResult{}, fmt.Errorf("replay stream %s: %w", streamID, err)
	}

	cmd := command.Command{
		Type:      cmdType,
		StreamID:  streamID,
		WorkerID:  workerID,
		Timestamp: at,
		RequestID: requestID,
	}
	decision := shift.Decide(state, cmd)
	if len(decision.Rejections) > 0 {
		return ShiftResult{}, rejectionError(cmdType, state, decision.Rejections[0])
	}
	if len(decision.Events) == 0 {
		return ShiftResult{}, apperrors.New(apperrors.CodeUnknown, "command produced no decision")
	}

	var head uint64
	if len(history) > 0 {
		head = history[len(history)-1].Seq
	}
	appended, err := s.events.AppendEvents(ctx, streamID, head, decision.Events)
	if err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return ShiftResult{}, err
		}
		return ShiftResult{}, fmt.Errorf("append to stream %s: %w", streamID, err)
	}

	next, err := shift.Fold(state, appended[len(appended)-1])
	if err != nil {
		return ShiftResult{}, fmt.Errorf("fold appended event: %w", err)
	}

	if applyErr := s.applier.Apply(ctx, appended); applyErr != nil {
		// Journal is committed; the projection catches up on rebuild.
		s.log.Error(ctx, "shift.projection_apply_failed",
			slog.String("stream_id", streamID),
			slog.String("error", applyErr.Error()),
		)
	}

	last := appended[len(appended)-1]
	s.log.Info(ctx, "shift.command_accepted",
		slog.String("stream_id", streamID),
		slog.String("command", string(cmdType)),
		slog.Uint64("seq", last.Seq),
	)
	return ShiftResult{
		StreamID:  streamID,
		WorkerID:  workerID,
		Status:    next.CurrentStatus(),
		Seq:       last.Seq,
		Timestamp: last.Timestamp,
	}, nil
}

// rejectionError maps a domain rejection onto the transport error taxonomy.
// Commands against a day with no shift report not-found, a duplicate start
// reports a conflict, and everything else is an invalid transition.
func rejectionError(cmdType command.Type, state shift.State, rejection command.Rejection) error {
	if cmdType != command.TypeStartShift && state.CurrentStatus() == shift.StatusNotStarted {
		return apperrors.New(apperrors.CodeShiftNotFound, "no shift found for this worker and day")
	}
	if cmdType == command.TypeStartShift {
		return apperrors.New(apperrors.CodeShiftAlreadyStarted, rejection.Message)
	}
	return apperrors.New(apperrors.CodeShiftInvalidTransition, rejection.Message)
}
