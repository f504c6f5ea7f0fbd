// Package handhistory buffers completed hands per table and hands them
// off to the persistence adapter, keeping a bounded recent-hands ring
// so the admin surface can serve very recent lookups without a store
// round trip. Grounded on the donor's internal/server/hand_history
// manager/monitor pair: this package keeps its "disable after repeated
// flush failures" circuit breaker but drops the file-batching machinery,
// since each hand here is already one discrete persistence.Store.SaveHand
// call rather than a line appended to a buffered file.
package handhistory

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/pokertable/internal/persistence"
	"github.com/lox/pokertable/internal/table"
)

const (
	defaultRingSize        = 50
	maxConsecutiveFailures = 3
)

// Recorder is the single entry point the session layer calls when a
// table finishes a hand. One Recorder is shared across every table.
type Recorder struct {
	store  persistence.Store
	logger *log.Logger

	mu       sync.Mutex
	rings    map[string]*ring
	failures map[string]int
	disabled map[string]bool
}

func NewRecorder(store persistence.Store, logger *log.Logger) *Recorder {
	return &Recorder{
		store:    store,
		logger:   logger.WithPrefix("handhistory"),
		rings:    make(map[string]*ring),
		failures: make(map[string]int),
		disabled: make(map[string]bool),
	}
}

// Record builds the archive row for ev and saves it. The save runs in
// its own goroutine so a slow or down database never blocks the
// table's event-emission path; failures are logged and, after three
// consecutive misses for one table, persistence for that table is
// disabled until the process restarts (the in-memory ring keeps
// serving recent-hand lookups regardless).
func (r *Recorder) Record(tableID string, ev table.HandComplete) {
	rec := persistence.NewHandRecord(tableID, ev)

	r.mu.Lock()
	rg, ok := r.rings[tableID]
	if !ok {
		rg = newRing(defaultRingSize)
		r.rings[tableID] = rg
	}
	rg.add(rec)
	skip := r.disabled[tableID]
	r.mu.Unlock()

	if skip {
		return
	}

	go func() {
		err := r.store.SaveHand(context.Background(), rec)
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.logger.Error("save hand", "table_id", tableID, "hand_id", rec.ID, "error", err)
			r.failures[tableID]++
			if r.failures[tableID] >= maxConsecutiveFailures {
				r.disabled[tableID] = true
				r.logger.Error("persistence disabled for table after repeated failures", "table_id", tableID)
			}
			return
		}
		r.failures[tableID] = 0
	}()
}

// RecentByIdentity returns identity's hands still held in any table's
// in-memory ring. Hands are newest first within each table's ring; the
// tables are visited in no fixed order, so the result is not ordered
// across tables. It does not query the Store.
func (r *Recorder) RecentByIdentity(identity []byte, limit int) []persistence.HandRecord {
	r.mu.Lock()
	rings := make([]*ring, 0, len(r.rings))
	for _, rg := range r.rings {
		rings = append(rings, rg)
	}
	r.mu.Unlock()

	var out []persistence.HandRecord
	for _, rg := range rings {
		out = append(out, rg.recentByIdentity(identity, 0)...)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ListHandsByIdentity serves the first page from the in-memory ring and
// only falls through to the Store when the ring didn't have enough.
func (r *Recorder) ListHandsByIdentity(ctx context.Context, identity []byte, limit, offset int) ([]persistence.HandRecord, error) {
	if offset == 0 {
		recent := r.RecentByIdentity(identity, limit)
		if limit > 0 && len(recent) >= limit {
			return recent, nil
		}
	}
	return r.store.ListHandsByIdentity(ctx, identity, limit, offset)
}
