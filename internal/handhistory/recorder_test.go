package handhistory

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/persistence"
	"github.com/lox/pokertable/internal/table"
)

// failingStore always fails SaveHand and counts attempts, to exercise
// the consecutive-failure circuit breaker without a real database.
type failingStore struct {
	*persistence.MemoryStore
	mu       sync.Mutex
	attempts int
}

func (f *failingStore) SaveHand(ctx context.Context, hand persistence.HandRecord) error {
	f.mu.Lock()
	f.attempts++
	f.mu.Unlock()
	return errors.New("connection refused")
}

func (f *failingStore) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestRecorderSavesAndRingServesRecent(t *testing.T) {
	store := persistence.NewMemoryStore()
	rec := NewRecorder(store, log.New(io.Discard))

	ev := table.HandComplete{
		HandNumber: 1,
		Participants: []table.ParticipantResult{
			{Seat: 0, Identity: []byte("alice"), Handle: "alice", WonAmount: 50},
		},
	}
	rec.Record("t1", ev)

	waitFor(t, func() bool {
		hands := rec.RecentByIdentity([]byte("alice"), 0)
		return len(hands) == 1
	})
}

func TestRecorderDisablesAfterRepeatedFailures(t *testing.T) {
	store := &failingStore{MemoryStore: persistence.NewMemoryStore()}
	rec := NewRecorder(store, log.New(io.Discard))

	ev := table.HandComplete{HandNumber: 1}
	for i := 0; i < maxConsecutiveFailures; i++ {
		rec.Record("t1", ev)
		waitFor(t, func() bool { return store.Attempts() == i+1 })
	}

	rec.mu.Lock()
	disabled := rec.disabled["t1"]
	rec.mu.Unlock()
	require.True(t, disabled)

	// A further Record call should skip the store entirely.
	rec.Record("t1", ev)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, maxConsecutiveFailures, store.Attempts())
}
