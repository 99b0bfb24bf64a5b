// Package storage declares the persistence contracts for the shift
// tracking service: the append-only event journal and the derived
// monthly statistics read model.
package storage

import (
	"context"
	"time"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/event"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrVersionConflict indicates an append raced another writer on the same
// stream: the expected sequence no longer matches the journal head. The
// caller should re-read the stream and retry the command.
var ErrVersionConflict = apperrors.New(apperrors.CodeEventVersionConflict, "event stream version conflict")

// WorkerMonthlyStats is one row of the monthly-hours read model. Key is
// "{workerID}-{year}-{month}" with an unpadded month.
type WorkerMonthlyStats struct {
	Key                string
	WorkerID           uint32
	Year               int
	Month              int
	TotalMinutesWorked int64
	// LastWorkStartedAt marks an open work interval. Nil means the worker
	// is not currently accruing time in this month.
	LastWorkStartedAt *time.Time
	UpdatedAt         time.Time
}

// ProjectionWatermark records how far the inline projection apply has
// advanced through the journal. Rebuilds reset it to zero before replaying.
type ProjectionWatermark struct {
	AppliedGlobalSeq uint64
	UpdatedAt        time.Time
}

// EventCursor points just past an event in the causal (timestamp, then
// global seq) order. The zero cursor starts from the beginning of the journal.
type EventCursor struct {
	Timestamp time.Time
	GlobalSeq uint64
}

// After returns the cursor positioned just past evt.
func After(evt event.Event) EventCursor {
	return EventCursor{Timestamp: evt.Timestamp, GlobalSeq: evt.GlobalSeq}
}

// EventStore owns the append-only journal of shift events.
type EventStore interface {
	// AppendEvents atomically appends events to a stream. expectedSeq is the
	// sequence of the last event the caller observed (0 for a new stream);
	// the append fails with ErrVersionConflict when the journal head moved.
	// Returned events carry their assigned Seq and GlobalSeq.
	AppendEvents(ctx context.Context, streamID string, expectedSeq uint64, events []event.Event) ([]event.Event, error)
	// ListStreamEvents returns up to limit events of one stream with
	// seq > afterSeq, ordered by seq. limit <= 0 means no limit.
	ListStreamEvents(ctx context.Context, streamID string, afterSeq uint64, limit int) ([]event.Event, error)
	// ListAllEvents returns up to limit events across all streams past the
	// cursor, ordered by timestamp then global seq. This is the causal
	// order used by full projection rebuilds.
	ListAllEvents(ctx context.Context, after EventCursor, limit int) ([]event.Event, error)
	// LatestStreamSeq returns the sequence of the newest event in a stream,
	// or 0 when the stream does not exist yet.
	LatestStreamSeq(ctx context.Context, streamID string) (uint64, error)
}

// StatsStore owns the worker monthly statistics read model and its watermark.
type StatsStore interface {
	// PutMonthlyStats upserts one monthly statistics row by key.
	PutMonthlyStats(ctx context.Context, stats WorkerMonthlyStats) error
	// GetMonthlyStats returns the row for one worker and month.
	// Returns ErrNotFound when the worker has no recorded time that month.
	GetMonthlyStats(ctx context.Context, workerID uint32, year, month int) (WorkerMonthlyStats, error)
	// ListMonthlyStats returns all rows for a month ordered by worker id.
	ListMonthlyStats(ctx context.Context, year, month int) ([]WorkerMonthlyStats, error)
	// TruncateMonthlyStats deletes every statistics row and resets the
	// watermark. Used as the first step of a rebuild.
	TruncateMonthlyStats(ctx context.Context) error
	// GetProjectionWatermark returns the current watermark.
	// Returns ErrNotFound before the first apply.
	GetProjectionWatermark(ctx context.Context) (ProjectionWatermark, error)
	// SaveProjectionWatermark upserts the watermark.
	SaveProjectionWatermark(ctx context.Context, wm ProjectionWatermark) error
}

// Store bundles the journal and read-model contracts implemented by one
// backing database.
type Store interface {
	EventStore
	StatsStore
	Close() error
}
