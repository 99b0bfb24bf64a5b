package tracking

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// Inclusive bounds for plausible statistics periods.
const (
	minStatsYear = 1900
	maxStatsYear = 2100
)

// StatsService answers monthly worked-minutes queries from the read model.
type StatsService struct {
	stats storage.StatsStore
}

// NewStatsService builds the statistics query service.
func NewStatsService(stats storage.StatsStore) *StatsService {
	return &StatsService{stats: stats}
}

// WorkerMonth returns the recorded minutes for one worker in one month.
func (s *StatsService) WorkerMonth(ctx context.Context, workerID uint32, year, month int) (storage.WorkerMonthlyStats, error) {
	if err := validatePeriod(year, month); err != nil {
		return storage.WorkerMonthlyStats{}, err
	}
	row, err := s.stats.GetMonthlyStats(ctx, workerID, year, month)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.WorkerMonthlyStats{}, apperrors.New(apperrors.CodeStatsNotFound,
			fmt.Sprintf("no recorded time for worker %d in %d-%d", workerID, year, month))
	}
	if err != nil {
		return storage.WorkerMonthlyStats{}, fmt.Errorf("load monthly stats: %w", err)
	}
	return row, nil
}

// Month returns the recorded minutes of every worker active in one month,
// ordered by worker id. An empty month yields an empty list, not an error.
func (s *StatsService) Month(ctx context.Context, year, month int) ([]storage.WorkerMonthlyStats, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	rows, err := s.stats.ListMonthlyStats(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list monthly stats: %w", err)
	}
	return rows, nil
}

func validatePeriod(year, month int) error {
	if year < minStatsYear || year > maxStatsYear {
		return apperrors.New(apperrors.CodeStatsInvalidYear,
			fmt.Sprintf("year must be between %d and %d", minStatsYear, maxStatsYear))
	}
	if month < 1 || month > 12 {
		return apperrors.New(apperrors.CodeStatsInvalidMonth, "month must be between 1 and 12")
	}
	return nil
}
