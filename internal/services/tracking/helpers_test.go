package tracking

import (
	"path/filepath"
	"testing"

	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shiftcal"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/projection"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage/sqlite"
)

type testServices struct {
	store   *sqlite.Store
	cal     shiftcal.Calendar
	monthly *projection.Monthly
	shifts  *ShiftService
	stats   *StatsService
	rebuild *RebuildService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracking.sqlite")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	cal, err := shiftcal.Default()
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	log := logx.Noop()
	monthly := projection.NewMonthly(store, cal, log)
	return &testServices{
		store:   store,
		cal:     cal,
		monthly: monthly,
		shifts:  NewShiftService(store, monthly, cal, log),
		stats:   NewStatsService(store),
		rebuild: NewRebuildService(store, monthly, log),
	}
}
