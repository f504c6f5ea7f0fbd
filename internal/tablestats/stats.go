// Package tablestats tracks the small set of runtime counters the admin
// surface reports per table: hands completed, hands per second since
// the tracker first recorded an event for the table, and forced-timeout
// actions. It replaces the
// donor's much larger bot-performance analytics package (BB/hand,
// VPIP/PFR, per-position EV), which has no reader in a real-money
// multiplayer table server — see DESIGN.md.
package tablestats

import (
	"sync"
	"time"
)

// Snapshot is a read-only copy of one table's counters.
type Snapshot struct {
	HandsCompleted int
	Timeouts       int
	HandsPerSecond float64
	CreatedAt      time.Time
	LastHandAt     time.Time
}

type counters struct {
	handsCompleted int
	timeouts       int
	createdAt      time.Time
	lastHandAt     time.Time
}

// Tracker holds the per-table counters for every table the process has
// created. One Tracker is shared across the whole Manager.
type Tracker struct {
	mu     sync.Mutex
	tables map[string]*counters
}

func NewTracker() *Tracker {
	return &Tracker{tables: make(map[string]*counters)}
}

func (t *Tracker) entry(tableID string) *counters {
	c, ok := t.tables[tableID]
	if !ok {
		c = &counters{createdAt: time.Now()}
		t.tables[tableID] = c
	}
	return c
}

// RecordHandComplete increments tableID's completed-hand count.
func (t *Tracker) RecordHandComplete(tableID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.entry(tableID)
	c.handsCompleted++
	c.lastHandAt = time.Now()
}

// RecordTimeout increments tableID's forced-action count.
func (t *Tracker) RecordTimeout(tableID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(tableID).timeouts++
}

// Snapshot returns tableID's current counters, or the zero Snapshot if
// the table is unknown.
func (t *Tracker) Snapshot(tableID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.tables[tableID]
	if !ok {
		return Snapshot{}
	}
	return snapshotFrom(c)
}

// All returns every known table's snapshot, keyed by table id.
func (t *Tracker) All() map[string]Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Snapshot, len(t.tables))
	for id, c := range t.tables {
		out[id] = snapshotFrom(c)
	}
	return out
}

// Remove drops tableID's counters.
func (t *Tracker) Remove(tableID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tables, tableID)
}

func snapshotFrom(c *counters) Snapshot {
	elapsed := time.Since(c.createdAt).Seconds()
	var hps float64
	if elapsed > 0 {
		hps = float64(c.handsCompleted) / elapsed
	}
	return Snapshot{
		HandsCompleted: c.handsCompleted,
		Timeouts:       c.timeouts,
		HandsPerSecond: hps,
		CreatedAt:      c.createdAt,
		LastHandAt:     c.lastHandAt,
	}
}
