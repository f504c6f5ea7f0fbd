package session

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/handhistory"
	"github.com/lox/pokertable/internal/persistence"
	"github.com/lox/pokertable/internal/table"
	"github.com/lox/pokertable/internal/tablestats"
)

func TestManagerWiresHandCompleteHooks(t *testing.T) {
	clock := quartz.NewMock(t)
	logger := log.New(io.Discard)
	store := persistence.NewMemoryStore()
	rec := handhistory.NewRecorder(store, logger)
	stats := tablestats.NewTracker()

	mgr := NewManager(logger, clock, table.DefaultConfig(), func(string) *Connection { return nil }, rec, stats)
	ts := mgr.CreateTable()
	require.NotNil(t, ts)

	ev := table.HandComplete{
		HandNumber: 1,
		Participants: []table.ParticipantResult{
			{Seat: 0, Identity: []byte("alice"), Handle: "alice", WonAmount: 10},
		},
	}
	ts.onHandComplete(ev)

	snap := stats.Snapshot(ts.ID)
	assert.Equal(t, 1, snap.HandsCompleted)

	require.Eventually(t, func() bool {
		return len(rec.RecentByIdentity([]byte("alice"), 0)) == 1
	}, time.Second, time.Millisecond)
}

func TestManagerCreateTableWithoutHooksIsSafe(t *testing.T) {
	clock := quartz.NewMock(t)
	logger := log.New(io.Discard)

	mgr := NewManager(logger, clock, table.DefaultConfig(), func(string) *Connection { return nil }, nil, nil)
	ts := mgr.CreateTable()
	require.NotNil(t, ts)
	assert.Nil(t, ts.onHandComplete)
	assert.Nil(t, ts.onTimeout)
}
