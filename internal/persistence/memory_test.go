package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveAndGetHand(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	hand := HandRecord{
		ID:      "hand1",
		TableID: "t1",
		Community: []string{"As", "Kd", "2c"},
		PotTotal: 300,
		Participants: []ParticipantRecord{
			{Seat: 0, Identity: []byte("alice"), Handle: "alice", StartingStack: 1000, EndingStack: 1300, TotalCommitted: 100, WonAmount: 400},
			{Seat: 1, Identity: []byte("bob"), Handle: "bob", StartingStack: 1000, EndingStack: 800, TotalCommitted: 200, WonAmount: -200, Folded: true},
		},
	}
	require.NoError(t, s.SaveHand(ctx, hand))

	got, err := s.GetHand(ctx, "hand1")
	require.NoError(t, err)
	assert.Equal(t, hand.PotTotal, got.PotTotal)
	assert.Len(t, got.Participants, 2)

	_, err = s.GetHand(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListHandsByIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveHand(ctx, HandRecord{
			ID: string(rune('a' + i)),
			Participants: []ParticipantRecord{
				{Seat: 0, Identity: []byte("alice")},
			},
		}))
	}

	hands, err := s.ListHandsByIdentity(ctx, []byte("alice"), 2, 0)
	require.NoError(t, err)
	assert.Len(t, hands, 2)
	// Newest first.
	assert.Equal(t, "c", hands[0].ID)
}

func TestMemoryStorePlayerUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetPlayer(ctx, []byte("carol"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertPlayerStack(ctx, []byte("carol"), "carol", 2000))
	require.NoError(t, s.UpsertPlayerStack(ctx, []byte("carol"), "carol", 1800))

	p, err := s.GetPlayer(ctx, []byte("carol"))
	require.NoError(t, err)
	assert.Equal(t, 1800, p.Stack)
	assert.Equal(t, 2, p.HandCount)
}

func TestMemoryStoreBans(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	banned, err := s.IsBanned(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, s.Ban(ctx, "1.2.3.4", "abusive chat"))
	banned, err = s.IsBanned(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, banned)

	require.NoError(t, s.Unban(ctx, "1.2.3.4"))
	banned, err = s.IsBanned(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, banned)
}
