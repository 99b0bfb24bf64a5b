package tracking

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shift"
)

func TestStartShiftOpensStream(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	result, err := svc.shifts.StartShift(ctx, 42, at, "req-1")
	if err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if result.StreamID != "42_2025-09-01" {
		t.Fatalf("stream id = %s, want 42_2025-09-01", result.StreamID)
	}
	if result.Status != shift.StatusWorking {
		t.Fatalf("status = %s, want %s", result.Status, shift.StatusWorking)
	}
	if result.Seq != 1 {
		t.Fatalf("seq = %d, want 1", result.Seq)
	}
}

func TestStartShiftTwiceConflicts(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	if _, err := svc.shifts.StartShift(ctx, 42, at, ""); err != nil {
		t.Fatalf("first start: %v", err)
	}
	_, err := svc.shifts.StartShift(ctx, 42, at.Add(time.Hour), "")
	if apperrors.CodeOf(err) != apperrors.CodeShiftAlreadyStarted {
		t.Fatalf("expected %s, got %v", apperrors.CodeShiftAlreadyStarted, err)
	}
}

func TestEndShiftWithoutStartNotFound(t *testing.T) {
	svc := newTestServices(t)
	_, err := svc.shifts.EndShift(context.Background(), 42, time.Date(2025, 9, 1, 16, 0, 0, 0, time.UTC), "")
	if apperrors.CodeOf(err) != apperrors.CodeShiftNotFound {
		t.Fatalf("expected %s, got %v", apperrors.CodeShiftNotFound, err)
	}
}

func TestStopBreakWhileWorkingIsInvalidTransition(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	if _, err := svc.shifts.StartShift(ctx, 42, at, ""); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	_, err := svc.shifts.StopBreak(ctx, 42, at.Add(time.Hour), "")
	if apperrors.CodeOf(err) != apperrors.CodeShiftInvalidTransition {
		t.Fatalf("expected %s, got %v", apperrors.CodeShiftInvalidTransition, err)
	}
}

func TestEndShiftWhileOnBreakIsInvalidTransition(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	if _, err := svc.shifts.StartShift(ctx, 42, at, ""); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.shifts.StartBreak(ctx, 42, at.Add(time.Hour), ""); err != nil {
		t.Fatalf("start break: %v", err)
	}
	_, err := svc.shifts.EndShift(ctx, 42, at.Add(2*time.Hour), "")
	if apperrors.CodeOf(err) != apperrors.CodeShiftInvalidTransition {
		t.Fatalf("expected %s, got %v", apperrors.CodeShiftInvalidTransition, err)
	}
}

func TestFullDayAccruesWorkedMinutes(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		run func(context.Context, uint32, time.Time, string) (ShiftResult, error)
		at  time.Time
	}{
		{svc.shifts.StartShift, day.Add(8 * time.Hour)},
		{svc.shifts.StartBreak, day.Add(12 * time.Hour)},
		{svc.shifts.StopBreak, day.Add(12*time.Hour + 30*time.Minute)},
		{svc.shifts.EndShift, day.Add(16 * time.Hour)},
	}
	for i, step := range steps {
		if _, err := step.run(ctx, 42, step.at, ""); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	stats, err := svc.stats.WorkerMonth(ctx, 42, 2025, 9)
	if err != nil {
		t.Fatalf("worker month: %v", err)
	}
	if stats.TotalMinutesWorked != 450 {
		t.Fatalf("total minutes = %d, want 450", stats.TotalMinutesWorked)
	}
}

func TestEarlyMorningCommandRoutesToPreviousDayStream(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2025, 9, 1, 22, 0, 0, 0, berlin)
	end := time.Date(2025, 9, 2, 1, 30, 0, 0, berlin)

	started, err := svc.shifts.StartShift(ctx, 42, start.UTC(), "")
	if err != nil {
		t.Fatalf("start shift: %v", err)
	}
	ended, err := svc.shifts.EndShift(ctx, 42, end.UTC(), "")
	if err != nil {
		t.Fatalf("end shift: %v", err)
	}
	if started.StreamID != ended.StreamID {
		t.Fatalf("streams diverged: %s vs %s", started.StreamID, ended.StreamID)
	}
	if ended.Status != shift.StatusFinished {
		t.Fatalf("status = %s, want %s", ended.Status, shift.StatusFinished)
	}
}

func TestShiftsOnDifferentDaysAreIndependent(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	day1 := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)

	first, err := svc.shifts.StartShift(ctx, 42, day1, "")
	if err != nil {
		t.Fatalf("start day 1: %v", err)
	}
	second, err := svc.shifts.StartShift(ctx, 42, day2, "")
	if err != nil {
		t.Fatalf("start day 2: %v", err)
	}
	if first.StreamID == second.StreamID {
		t.Fatalf("both days mapped to stream %s", first.StreamID)
	}
}

func TestCommandWithZeroWorkerIDRejected(t *testing.T) {
	svc := newTestServices(t)
	_, err := svc.shifts.StartShift(context.Background(), 0, time.Now(), "")
	if err == nil {
		t.Fatal("expected error for worker id 0")
	}
	if apperrors.CodeOf(err) != apperrors.CodeShiftInvalidTransition {
		t.Fatalf("unexpected code: %v", err)
	}
}

func TestCommandDefaultsTimestampToNow(t *testing.T) {
	svc := newTestServices(t)
	fixed := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	svc.shifts.now = func() time.Time { return fixed }

	result, err := svc.shifts.StartShift(context.Background(), 42, time.Time{}, "")
	if err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if !result.Timestamp.Equal(fixed) {
		t.Fatalf("timestamp = %v, want %v", result.Timestamp, fixed)
	}
	if result.StreamID != "42_2025-09-01" {
		t.Fatalf("stream id = %s", result.StreamID)
	}
}

func TestRejectedCommandAppendsNothing(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	if _, err := svc.shifts.StartBreak(ctx, 42, at, ""); err == nil {
		t.Fatal("expected rejection")
	}

	head, err := svc.store.LatestStreamSeq(ctx, svc.cal.StreamKey(42, at))
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if head != 0 {
		t.Fatalf("stream head = %d, want 0", head)
	}
}
