package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// rebuildPageSize bounds memory per replay page.
const rebuildPageSize = 500

// Rebuild discards the monthly-hours read model and replays the full
// journal in causal order. The result converges with inline apply because
// both fold the same events through the same applier.
func (m *Monthly) Rebuild(ctx context.Context, events storage.EventStore) error {
	m.log.Info(ctx, "projection.rebuild.start")

	if err := m.stats.TruncateMonthlyStats(ctx); err != nil {
		return fmt.Errorf("truncate read model: %w", err)
	}

	// Replay order is timestamp-then-global-seq, so global sequence numbers
	// arrive out of order here. The watermark skip in Apply would drop
	// events, so rebuild folds directly and records the high-water mark at
	// the end.
	var cursor storage.EventCursor
	var replayed int
	var maxGlobalSeq uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := events.ListAllEvents(ctx, cursor, rebuildPageSize)
		if err != nil {
			return fmt.Errorf("list events for rebuild: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, evt := range page {
			if err := m.applyOne(ctx, evt); err != nil {
				return fmt.Errorf("apply rebuild event: %w", err)
			}
			if evt.GlobalSeq > maxGlobalSeq {
				maxGlobalSeq = evt.GlobalSeq
			}
		}
		replayed += len(page)
		cursor = storage.After(page[len(page)-1])
	}

	if err := m.stats.SaveProjectionWatermark(ctx, storage.ProjectionWatermark{
		AppliedGlobalSeq: maxGlobalSeq,
		UpdatedAt:        time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("save projection watermark: %w", err)
	}

	m.log.Info(ctx, "projection.rebuild.done", slog.Int("events_replayed", replayed))
	return nil
}
