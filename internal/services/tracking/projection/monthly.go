// Package projection derives the worker monthly-hours read model from the
// shift event journal.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/event"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shiftcal"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// Monthly folds shift events into per-worker monthly minute totals.
//
// Work time accrues between an opening event (shift started, break ended)
// and the next closing event (break started, shift ended). The open interval
// is tracked as a marker on the month row so apply stays single-pass.
type Monthly struct {
	stats storage.StatsStore
	cal   shiftcal.Calendar
	log   logx.Logger
}

// NewMonthly builds the monthly-hours applier.
func NewMonthly(stats storage.StatsStore, cal shiftcal.Calendar, log logx.Logger) *Monthly {
	return &Monthly{stats: stats, cal: cal, log: log}
}

// Apply folds events into the read model in order and advances the
// watermark past the last event. Events at or below the watermark are
// skipped so inline apply and rebuild never double-count.
func (m *Monthly) Apply(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	watermark, err := m.stats.GetProjectionWatermark(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load projection watermark: %w", err)
	}

	applied := watermark.AppliedGlobalSeq
	for _, evt := range events {
		if evt.GlobalSeq <= applied {
			continue
		}
		if err := m.applyOne(ctx, evt); err != nil {
			return err
		}
		applied = evt.GlobalSeq
	}

	if applied == watermark.AppliedGlobalSeq {
		return nil
	}
	if err := m.stats.SaveProjectionWatermark(ctx, storage.ProjectionWatermark{
		AppliedGlobalSeq: applied,
		UpdatedAt:        time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("save projection watermark: %w", err)
	}
	return nil
}

func (m *Monthly) applyOne(ctx context.Context, evt event.Event) error {
	year, month := m.cal.ShiftMonth(evt.Timestamp)
	key := shiftcal.MonthKey(evt.WorkerID, year, int(month))

	row, err := m.stats.GetMonthlyStats(ctx, evt.WorkerID, year, int(month))
	if errors.Is(err, storage.ErrNotFound) {
		row = storage.WorkerMonthlyStats{
			Key:      key,
			WorkerID: evt.WorkerID,
			Year:     year,
			Month:    int(month),
		}
	} else if err != nil {
		return fmt.Errorf("load monthly stats %s: %w", key, err)
	}

	switch evt.Type {
	case event.TypeShiftStarted, event.TypeBreakEnded:
		ts := evt.Timestamp
		row.LastWorkStartedAt = &ts
	case event.TypeBreakStarted, event.TypeShiftEnded:
		if row.LastWorkStartedAt == nil {
			// No open work interval to close. A replayed journal can
			// legitimately hit this when the opening event predates the
			// stream's retention window, so log and move on.
			m.log.Warn(ctx, "projection.apply.no_open_interval",
				slog.String("stream_id", evt.StreamID),
				slog.String("event_type", string(evt.Type)),
				slog.Uint64("global_seq", evt.GlobalSeq),
			)
			break
		}
		elapsed := evt.Timestamp.Sub(*row.LastWorkStartedAt)
		if elapsed > 0 {
			row.TotalMinutesWorked += int64(elapsed / time.Minute)
		}
		row.LastWorkStartedAt = nil
	default:
		return apperrors.New(apperrors.CodeEventUnknownKind,
			fmt.Sprintf("unknown event type %q at global seq %d", evt.Type, evt.GlobalSeq))
	}

	row.UpdatedAt = time.Now().UTC()
	if err := m.stats.PutMonthlyStats(ctx, row); err != nil {
		return fmt.Errorf("store monthly stats %s: %w", key, err)
	}
	return nil
}
