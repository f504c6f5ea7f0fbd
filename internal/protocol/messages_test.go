package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	env, err := NewEnvelope(TypeAuth, AuthData{Handle: "Alice", Token: "tok"})
	require.NoError(t, err)
	env.RequestID = "req-1"

	raw, err := MarshalJSON(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, UnmarshalJSON(raw, &decoded))
	assert.Equal(t, TypeAuth, decoded.Type)
	assert.Equal(t, "req-1", decoded.RequestID)

	var data AuthData
	require.NoError(t, UnmarshalJSON(decoded.Data, &data))
	assert.Equal(t, "Alice", data.Handle)
	assert.Equal(t, "tok", data.Token)
}

func TestEnvelopeBinaryRoundTrip(t *testing.T) {
	env, err := NewEnvelope(TypeAction, ActionData{TableID: "t1", Action: "raise", Total: 300})
	require.NoError(t, err)

	raw, err := MarshalBinary(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, UnmarshalBinary(raw, &decoded))
	assert.Equal(t, TypeAction, decoded.Type)

	var data ActionData
	require.NoError(t, UnmarshalJSON(decoded.Data, &data))
	assert.Equal(t, "t1", data.TableID)
	assert.Equal(t, "raise", data.Action)
	assert.Equal(t, 300, data.Total)
}

func TestGameStateDataRoundTrip(t *testing.T) {
	gs := GameStateData{
		TableID:      "t1",
		HandNumber:   3,
		Phase:        "flop",
		Community:    []string{"As", "Kd", "2c"},
		Pot:          300,
		DealerSeat:   0,
		CurrentActor: 1,
		Seats: []SeatView{
			{Seat: 0, Handle: "Alice", Stack: 1700, HoleCards: []string{"Ah", "Ad"}},
			{Seat: 1, Handle: "Bob", Stack: 1900},
		},
	}
	env, err := NewEnvelope(TypeGameState, gs)
	require.NoError(t, err)

	var decoded GameStateData
	require.NoError(t, UnmarshalJSON(env.Data, &decoded))
	assert.Equal(t, gs.HandNumber, decoded.HandNumber)
	assert.Len(t, decoded.Seats, 2)
	assert.Equal(t, []string{"Ah", "Ad"}, decoded.Seats[0].HoleCards)
	assert.Empty(t, decoded.Seats[1].HoleCards)
}
