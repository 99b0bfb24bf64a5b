package projection

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/event"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shiftcal"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage/sqlite"
)

func testSetup(t *testing.T) (*sqlite.Store, *Monthly) {
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
	return store, NewMonthly(store, cal, logx.Noop())
}

func appendShiftDay(t *testing.T, store *sqlite.Store, cal shiftcal.Calendar, workerID uint32, instants map[event.Type]time.Time, order []event.Type) []event.Event {
	t.Helper()
	streamID := cal.StreamKey(workerID, instants[order[0]])
	batch := make([]event.Event, 0, len(order))
	for _, kind := range order {
		batch = append(batch, event.Event{
			WorkerID:  workerID,
			Type:      kind,
			Timestamp: instants[kind],
		})
	}
	appended, err := store.AppendEvents(context.Background(), streamID, 0, batch)
	if err != nil {
		t.Fatalf("append shift day: %v", err)
	}
	return appended
}

func TestApplyFullShiftWithBreak(t *testing.T) {
	store, monthly := testSetup(t)
	cal, _ := shiftcal.Default()
	ctx := context.Background()

	// 08:00-16:00 UTC with a 30 minute break is 450 worked minutes.
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	appended := appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
		event.TypeShiftStarted: day.Add(8 * time.Hour),
		event.TypeBreakStarted: day.Add(12 * time.Hour),
		event.TypeBreakEnded:   day.Add(12*time.Hour + 30*time.Minute),
		event.TypeShiftEnded:   day.Add(16 * time.Hour),
	}, []event.Type{event.TypeShiftStarted, event.TypeBreakStarted, event.TypeBreakEnded, event.TypeShiftEnded})

	if err := monthly.Apply(ctx, appended); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stats, err := store.GetMonthlyStats(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("get monthly stats: %v", err)
	}
	if stats.TotalMinutesWorked != 450 {
		t.Fatalf("total minutes = %d, want 450", stats.TotalMinutesWorked)
	}
	if stats.LastWorkStartedAt != nil {
		t.Fatalf("expected closed interval, marker = %v", stats.LastWorkStartedAt)
	}
	if stats.Key != "42-2025-9" {
		t.Fatalf("key = %s, want 42-2025-9", stats.Key)
	}
}

func TestApplyOpenShiftKeepsMarker(t *testing.T) {
	store, monthly := testSetup(t)
	cal, _ := shiftcal.Default()
	ctx := context.Background()

	start := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	appended := appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
		event.TypeShiftStarted: start,
	}, []event.Type{event.TypeShiftStarted})

	if err := monthly.Apply(ctx, appended); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stats, err := store.GetMonthlyStats(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("get monthly stats: %v", err)
	}
	if stats.TotalMinutesWorked != 0 {
		t.Fatalf("total minutes = %d, want 0", stats.TotalMinutesWorked)
	}
	if stats.LastWorkStartedAt == nil || !stats.LastWorkStartedAt.Equal(start) {
		t.Fatalf("marker = %v, want %v", stats.LastWorkStartedAt, start)
	}
}

func TestApplyTruncatesPartialMinutes(t *testing.T) {
	store, monthly := testSetup(t)
	cal, _ := shiftcal.Default()
	ctx := context.Background()

	// 90 seconds of work truncates to 1 whole minute.
	start := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	appended := appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
		event.TypeShiftStarted: start,
		event.TypeShiftEnded:   start.Add(90 * time.Second),
	}, []event.Type{event.TypeShiftStarted, event.TypeShiftEnded})

	if err := monthly.Apply(ctx, appended); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stats, err := store.GetMonthlyStats(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("get monthly stats: %v", err)
	}
	if stats.TotalMinutesWorked != 1 {
		t.Fatalf("total minutes = %d, want 1", stats.TotalMinutesWorked)
	}
}

func TestApplyIsIdempotentAcrossRetries(t *testing.T) {
	store, monthly := testSetup(t)
	cal, _ := shiftcal.Default()
	ctx := context.Background()

	start := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	appended := appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
		event.TypeShiftStarted: start,
		event.TypeShiftEnded:   start.Add(2 * time.Hour),
	}, []event.Type{event.TypeShiftStarted, event.TypeShiftEnded})

	if err := monthly.Apply(ctx, appended); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	// Re-delivering the same batch must not double-count.
	if err := monthly.Apply(ctx, appended); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	stats, err := store.GetMonthlyStats(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("get monthly stats: %v", err)
	}
	if stats.TotalMinutesWorked != 120 {
		t.Fatalf("total minutes = %d, want 120", stats.TotalMinutesWorked)
	}
}

func TestApplyCloseWithoutOpenIsNoop(t *testing.T) {
	store, monthly := testSetup(t)
	ctx := context.Background()

	// A close with no prior open interval leaves the totals untouched.
	evt := event.Event{
		StreamID:  "42_2025-09-01",
		WorkerID:  42,
		Seq:       1,
		GlobalSeq: 1,
		Type:      event.TypeShiftEnded,
		Timestamp: time.Date(2025, 9, 1, 16, 0, 0, 0, time.UTC),
	}
	if err := monthly.Apply(ctx, []event.Event{evt}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stats, err := store.GetMonthlyStats(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("get monthly stats: %v", err)
	}
	if stats.TotalMinutesWorked != 0 {
		t.Fatalf("total minutes = %d, want 0", stats.TotalMinutesWorked)
	}
	if stats.LastWorkStartedAt != nil {
		t.Fatalf("marker = %v, want nil", stats.LastWorkStartedAt)
	}
}

func TestApplyAttributesEarlyMorningToPreviousMonth(t *testing.T) {
	store, monthly := testSetup(t)
	cal, _ := shiftcal.Default()
	ctx := context.Background()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// A shift ending 01:30 local on October 1st still counts for September.
	start := time.Date(2025, 9, 30, 22, 0, 0, 0, berlin).UTC()
	end := time.Date(2025, 10, 1, 1, 30, 0, 0, berlin).UTC()
	appended := appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
		event.TypeShiftStarted: start,
		event.TypeShiftEnded:   end,
	}, []event.Type{event.TypeShiftStarted, event.TypeShiftEnded})

	if err := monthly.Apply(ctx, appended); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stats, err := store.GetMonthlyStats(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("get september stats: %v", err)
	}
	if stats.TotalMinutesWorked != 210 {
		t.Fatalf("total minutes = %d, want 210", stats.TotalMinutesWorked)
	}

	if _, err := store.GetMonthlyStats(ctx, 42, 2025, 10); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no october row, got %v", err)
	}
}

func TestRebuildConvergesWithInlineApply(t *testing.T) {
	store, monthly := testSetup(t)
	cal, _ := shiftcal.Default()
	ctx := context.Background()

	day1 := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)

	batches := [][]event.Event{
		appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
			event.TypeShiftStarted: day1.Add(8 * time.Hour),
			event.TypeBreakStarted: day1.Add(12 * time.Hour),
			event.TypeBreakEnded:   day1.Add(12*time.Hour + 30*time.Minute),
			event.TypeShiftEnded:   day1.Add(16 * time.Hour),
		}, []event.Type{event.TypeShiftStarted, event.TypeBreakStarted, event.TypeBreakEnded, event.TypeShiftEnded}),
		appendShiftDay(t, store, cal, 42, map[event.Type]time.Time{
			event.TypeShiftStarted: day2.Add(9 * time.Hour),
			event.TypeShiftEnded:   day2.Add(17 * time.Hour),
		}, []event.Type{event.TypeShiftStarted, event.TypeShiftEnded}),
		appendShiftDay(t, store, cal, 7, map[event.Type]time.Time{
			event.TypeShiftStarted: day1.Add(10 * time.Hour),
			event.TypeShiftEnded:   day1.Add(14 * time.Hour),
		}, []event.Type{event.TypeShiftStarted, event.TypeShiftEnded}),
	}
	for _, batch := range batches {
		if err := monthly.Apply(ctx, batch); err != nil {
			t.Fatalf("inline apply: %v", err)
		}
	}

	inline, err := store.ListMonthlyStats(ctx, 2025, 9)
	if err != nil {
		t.Fatalf("list inline stats: %v", err)
	}

	if err := monthly.Rebuild(ctx, store); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	rebuilt, err := store.ListMonthlyStats(ctx, 2025, 9)
	if err != nil {
		t.Fatalf("list rebuilt stats: %v", err)
	}

	if len(rebuilt) != len(inline) {
		t.Fatalf("rebuilt %d rows, inline had %d", len(rebuilt), len(inline))
	}
	for i := range rebuilt {
		if rebuilt[i].Key != inline[i].Key {
			t.Fatalf("row %d key = %s, want %s", i, rebuilt[i].Key, inline[i].Key)
		}
		if rebuilt[i].TotalMinutesWorked != inline[i].TotalMinutesWorked {
			t.Fatalf("row %s minutes = %d, want %d", rebuilt[i].Key, rebuilt[i].TotalMinutesWorked, inline[i].TotalMinutesWorked)
		}
	}

	// Rebuild leaves the watermark at the journal head so inline apply
	// resumes without double-counting.
	wm, err := store.GetProjectionWatermark(ctx)
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	var maxGlobal uint64
	for _, batch := range batches {
		for _, evt := range batch {
			if evt.GlobalSeq > maxGlobal {
				maxGlobal = evt.GlobalSeq
			}
		}
	}
	if wm.AppliedGlobalSeq != maxGlobal {
		t.Fatalf("watermark = %d, want %d", wm.AppliedGlobalSeq, maxGlobal)
	}
}
