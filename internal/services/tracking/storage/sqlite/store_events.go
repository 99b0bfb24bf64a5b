package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/event"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// AppendEvents atomically appends events to a stream with optimistic
// concurrency. The (stream_id, seq) unique constraint backstops the
// expected-sequence check against writers racing between read and insert;
// constraint and lock errors from a racing writer are reported as
// storage.ErrVersionConflict so callers reload the stream and retry.
func (s *Store) AppendEvents(ctx context.Context, streamID string, expectedSeq uint64, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	streamID = strings.TrimSpace(streamID)
	if streamID == "" {
		return nil, fmt.Errorf("stream id is required")
	}
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var head uint64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE stream_id = ?`,
		streamID,
	)
	if err := row.Scan(&head); err != nil {
		if isSQLiteBusyError(err) {
			return nil, storage.ErrVersionConflict
		}
		return nil, fmt.Errorf("read stream head: %w", err)
	}
	if head != expectedSeq {
		return nil, storage.ErrVersionConflict
	}

	appended := make([]event.Event, 0, len(events))
	for i, evt := range events {
		evt.StreamID = streamID
		evt.Seq = expectedSeq + uint64(i) + 1
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		if !evt.Type.IsValid() {
			return nil, fmt.Errorf("event %d has no type", i)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (stream_id, seq, worker_id, type, timestamp, request_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			evt.StreamID,
			int64(evt.Seq),
			int64(evt.WorkerID),
			string(evt.Type),
			toMillis(evt.Timestamp),
			evt.RequestID,
		)
		if err != nil {
			if isConstraintError(err) || isSQLiteBusyError(err) {
				return nil, storage.ErrVersionConflict
			}
			return nil, fmt.Errorf("insert event: %w", err)
		}
		globalSeq, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("read global seq: %w", err)
		}
		evt.GlobalSeq = uint64(globalSeq)
		appended = append(appended, evt)
	}

	if err := tx.Commit(); err != nil {
		if isConstraintError(err) || isSQLiteBusyError(err) {
			return nil, storage.ErrVersionConflict
		}
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return appended, nil
}

// ListStreamEvents returns events of one stream with seq > afterSeq, ordered
// by seq. limit <= 0 returns all matching events.
func (s *Store) ListStreamEvents(ctx context.Context, streamID string, afterSeq uint64, limit int) ([]event.Event, error) {
	streamID = strings.TrimSpace(streamID)
	if streamID == "" {
		return nil, fmt.Errorf("stream id is required")
	}

	query := `SELECT stream_id, seq, global_seq, worker_id, type, timestamp, request_id
		 FROM events WHERE stream_id = ? AND seq > ? ORDER BY seq`
	args := []any{streamID, int64(afterSeq)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stream events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListAllEvents returns events across all streams past the cursor, ordered
// by timestamp then global seq. This is the causal order a full rebuild
// replays in.
func (s *Store) ListAllEvents(ctx context.Context, after storage.EventCursor, limit int) ([]event.Event, error) {
	afterMillis := int64(0)
	if !after.Timestamp.IsZero() {
		afterMillis = toMillis(after.Timestamp)
	}
	query := `SELECT stream_id, seq, global_seq, worker_id, type, timestamp, request_id
		 FROM events
		 WHERE timestamp > ? OR (timestamp = ? AND global_seq > ?)
		 ORDER BY timestamp, global_seq`
	args := []any{afterMillis, afterMillis, int64(after.GlobalSeq)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestStreamSeq returns the newest sequence in a stream, 0 when empty.
func (s *Store) LatestStreamSeq(ctx context.Context, streamID string) (uint64, error) {
	streamID = strings.TrimSpace(streamID)
	if streamID == "" {
		return 0, fmt.Errorf("stream id is required")
	}
	var head uint64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE stream_id = ?`,
		streamID,
	)
	if err := row.Scan(&head); err != nil {
		return 0, fmt.Errorf("read stream head: %w", err)
	}
	return head, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_BUSY_SNAPSHOT || code == sqlite3.SQLITE_LOCKED
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows rowScanner) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var evt event.Event
		var seq, globalSeq, workerID, timestampMillis int64
		var kind string
		if err := rows.Scan(&evt.StreamID, &seq, &globalSeq, &workerID, &kind, &timestampMillis, &evt.RequestID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.GlobalSeq = uint64(globalSeq)
		evt.WorkerID = uint32(workerID)
		evt.Type = event.Type(kind)
		evt.Timestamp = fromMillis(timestampMillis)
		events = append(events, evt)
	}
	return events, rows.Err()
}
