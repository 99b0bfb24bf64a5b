package tracking

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/projection"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// RebuildService coordinates full projection rebuilds. At most one rebuild
// runs at a time; overlapping requests are coalesced into the running one.
type RebuildService struct {
	events  storage.EventStore
	monthly *projection.Monthly
	log     logx.Logger
	running atomic.Bool

	// afterRun is invoked when a background rebuild finishes. Tests use it
	// to synchronize on completion.
	afterRun func(err error)
}

// NewRebuildService builds the rebuild coordinator.
func NewRebuildService(events storage.EventStore, monthly *projection.Monthly, log logx.Logger) *RebuildService {
	return &RebuildService{events: events, monthly: monthly, log: log}
}

// Start launches a projection rebuild in the background. The returned
// boolean reports whether this call started a new rebuild; false means one
// is already in flight and the request was coalesced.
//
// The rebuild runs detached from the caller's context so an HTTP client
// disconnect cannot abandon a half-truncated read model.
func (s *RebuildService) Start(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info(ctx, "projection.rebuild.coalesced")
		return false
	}

	go func() {
		var err error
		defer func() {
			// Clear the flag before signalling completion so a waiter can
			// start the next rebuild immediately.
			s.running.Store(false)
			if s.afterRun != nil {
				s.afterRun(err)
			}
		}()
		err = s.monthly.Rebuild(context.Background(), s.events)
		if err != nil {
			s.log.Error(context.Background(), "projection.rebuild.failed",
				slog.String("error", err.Error()),
			)
		}
	}()
	return true
}

// Running reports whether a rebuild is currently in flight.
func (s *RebuildService) Running() bool {
	return s.running.Load()
}
