package session

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lox/pokertable/internal/engineerror"
	"github.com/lox/pokertable/internal/gameid"
	"github.com/lox/pokertable/internal/handhistory"
	"github.com/lox/pokertable/internal/table"
	"github.com/lox/pokertable/internal/tablestats"
)

// Manager is the multi-table registry. It owns table creation and
// teardown; it does not own per-table mutation, which table.Table
// serialises itself. Its errgroup backs Supervise/Wait, but no table
// registers a goroutine there, so a table's scheduled callbacks do not
// run under Supervise's panic recovery.
type Manager struct {
	logger   *log.Logger
	clock    quartz.Clock
	tblCfg   table.Config
	lookup   func(string) *Connection
	recorder *handhistory.Recorder
	stats    *tablestats.Tracker

	group singleflight.Group

	mu     sync.RWMutex
	tables map[string]*TableSession

	eg *errgroup.Group
}

// NewManager constructs an empty table registry. lookup is threaded
// through to every TableSession it creates, to resolve an identity key
// to its current live Connection for broadcast. recorder and stats may
// be nil, in which case hand archival and runtime counters are simply
// not wired (used by tests that only need the table state machine).
func NewManager(logger *log.Logger, clock quartz.Clock, tblCfg table.Config, lookup func(string) *Connection, recorder *handhistory.Recorder, stats *tablestats.Tracker) *Manager {
	eg := &errgroup.Group{}
	return &Manager{
		logger:   logger.WithPrefix("manager"),
		clock:    clock,
		tblCfg:   tblCfg,
		lookup:   lookup,
		recorder: recorder,
		stats:    stats,
		tables:   make(map[string]*TableSession),
		eg:       eg,
	}
}

func (m *Manager) newTableSession(id string) *TableSession {
	ts := NewTableSession(id, m.tblCfg, m.clock, m.logger, m.lookup)
	if m.recorder != nil {
		ts.SetHandCompleteHook(func(ev table.HandComplete) { m.recorder.Record(id, ev) })
	}
	if m.stats != nil {
		ts.SetTimeoutHook(func() { m.stats.RecordTimeout(id) })
		ts.SetHandCompleteHook(chainHandComplete(ts.onHandComplete, func(table.HandComplete) { m.stats.RecordHandComplete(id) }))
	}
	return ts
}

// chainHandComplete composes two hand-complete hooks so registering the
// tablestats hook doesn't clobber a recorder hook set moments earlier.
func chainHandComplete(first func(table.HandComplete), second func(table.HandComplete)) func(table.HandComplete) {
	return func(ev table.HandComplete) {
		if first != nil {
			first(ev)
		}
		second(ev)
	}
}

// CreateTable allocates a new table with a fresh id.
func (m *Manager) CreateTable() *TableSession {
	id := gameid.Generate()
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.newTableSession(id)
	m.tables[id] = ts
	return ts
}

// GetTable returns an existing table, or (nil, false).
func (m *Manager) GetTable(id string) (*TableSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.tables[id]
	return ts, ok
}

// GetOrCreateTable returns the table for id, creating it on first use.
// singleflight collapses concurrent first-touches of the same id (two
// join-table messages racing in before either has created the table)
// into a single creation.
func (m *Manager) GetOrCreateTable(id string) (*TableSession, error) {
	if id == "" {
		return nil, engineerror.New(engineerror.InvalidArgument, "table id required")
	}
	if ts, ok := m.GetTable(id); ok {
		return ts, nil
	}
	v, err, _ := m.group.Do(id, func() (interface{}, error) {
		if ts, ok := m.GetTable(id); ok {
			return ts, nil
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		ts := m.newTableSession(id)
		m.tables[id] = ts
		return ts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TableSession), nil
}

// ListTables returns a snapshot of every known table's id.
func (m *Manager) ListTables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tables))
	for id := range m.tables {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll shuts every table down. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.tables {
		ts.Close()
	}
}

// Supervise registers fn (typically a per-table background loop) with
// the shared errgroup so its failure is observed centrally instead of
// silently leaking a goroutine.
func (m *Manager) Supervise(fn func() error) {
	m.eg.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("recovered panic in supervised table goroutine", "panic", r)
			}
		}()
		return fn()
	})
}

// Wait blocks until every supervised goroutine returns.
func (m *Manager) Wait() error { return m.eg.Wait() }
