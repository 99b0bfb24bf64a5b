package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// PutMonthlyStats upserts one monthly statistics row by key.
func (s *Store) PutMonthlyStats(ctx context.Context, stats storage.WorkerMonthlyStats) error {
	stats.Key = strings.TrimSpace(stats.Key)
	if stats.Key == "" {
		return fmt.Errorf("stats key is required")
	}
	if stats.UpdatedAt.IsZero() {
		stats.UpdatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO worker_monthly_stats (key, worker_id, year, month, total_minutes_worked, last_work_started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		     total_minutes_worked = excluded.total_minutes_worked,
		     last_work_started_at = excluded.last_work_started_at,
		     updated_at = excluded.updated_at`,
		stats.Key,
		int64(stats.WorkerID),
		stats.Year,
		stats.Month,
		stats.TotalMinutesWorked,
		toNullMillis(stats.LastWorkStartedAt),
		toMillis(stats.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put monthly stats: %w", err)
	}
	return nil
}

// GetMonthlyStats returns the row for one worker and month.
// Returns storage.ErrNotFound when no time is recorded for that month.
func (s *Store) GetMonthlyStats(ctx context.Context, workerID uint32, year, month int) (storage.WorkerMonthlyStats, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT key, worker_id, year, month, total_minutes_worked, last_work_started_at, updated_at
		 FROM worker_monthly_stats WHERE worker_id = ? AND year = ? AND month = ?`,
		int64(workerID), year, month,
	)
	stats, err := scanMonthlyStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.WorkerMonthlyStats{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.WorkerMonthlyStats{}, fmt.Errorf("get monthly stats: %w", err)
	}
	return stats, nil
}

// ListMonthlyStats returns all rows for a month ordered by worker id.
func (s *Store) ListMonthlyStats(ctx context.Context, year, month int) ([]storage.WorkerMonthlyStats, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT key, worker_id, year, month, total_minutes_worked, last_work_started_at, updated_at
		 FROM worker_monthly_stats WHERE year = ? AND month = ? ORDER BY worker_id`,
		year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("list monthly stats: %w", err)
	}
	defer rows.Close()

	var all []storage.WorkerMonthlyStats
	for rows.Next() {
		stats, err := scanMonthlyStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monthly stats: %w", err)
		}
		all = append(all, stats)
	}
	return all, rows.Err()
}

// TruncateMonthlyStats deletes every statistics row and resets the watermark.
func (s *Store) TruncateMonthlyStats(ctx context.Context) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM worker_monthly_stats`); err != nil {
		return fmt.Errorf("truncate monthly stats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projection_watermark`); err != nil {
		return fmt.Errorf("reset projection watermark: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit truncate: %w", err)
	}
	return nil
}

// GetProjectionWatermark returns the current watermark.
// Returns storage.ErrNotFound before the first apply.
func (s *Store) GetProjectionWatermark(ctx context.Context) (storage.ProjectionWatermark, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT applied_global_seq, updated_at FROM projection_watermark WHERE id = 1`,
	)
	var wm storage.ProjectionWatermark
	var updatedAtMillis int64
	err := row.Scan(&wm.AppliedGlobalSeq, &updatedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProjectionWatermark{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProjectionWatermark{}, fmt.Errorf("get projection watermark: %w", err)
	}
	wm.UpdatedAt = fromMillis(updatedAtMillis)
	return wm, nil
}

// SaveProjectionWatermark upserts the watermark.
func (s *Store) SaveProjectionWatermark(ctx context.Context, wm storage.ProjectionWatermark) error {
	if wm.UpdatedAt.IsZero() {
		wm.UpdatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projection_watermark (id, applied_global_seq, updated_at)
		 VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     applied_global_seq = excluded.applied_global_seq,
		     updated_at = excluded.updated_at`,
		int64(wm.AppliedGlobalSeq),
		toMillis(wm.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save projection watermark: %w", err)
	}
	return nil
}

type singleRowScanner interface {
	Scan(dest ...any) error
}

func scanMonthlyStats(row singleRowScanner) (storage.WorkerMonthlyStats, error) {
	var stats storage.WorkerMonthlyStats
	var workerID, updatedAtMillis int64
	var lastStarted sql.NullInt64
	if err := row.Scan(&stats.Key, &workerID, &stats.Year, &stats.Month, &stats.TotalMinutesWorked, &lastStarted, &updatedAtMillis); err != nil {
		return storage.WorkerMonthlyStats{}, err
	}
	stats.WorkerID = uint32(workerID)
	stats.LastWorkStartedAt = fromNullMillis(lastStarted)
	stats.UpdatedAt = fromMillis(updatedAtMillis)
	return stats, nil
}
