package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/auth"
	"github.com/lox/pokertable/internal/protocol"
	"github.com/lox/pokertable/internal/table"
)

// TestServeWebsocketBinaryRoundTrips drives a real websocket connection
// against ServeWebsocketBinary and checks that an Envelope sent as a
// binary msgpack frame is decoded, and that the coordinator's reply
// comes back the same way.
func TestServeWebsocketBinaryRoundTrips(t *testing.T) {
	clock := quartz.NewMock(t)
	coord := NewCoordinator(log.New(io.Discard), clock, DefaultConfig(), table.DefaultConfig(), auth.NewNoopValidator(), nil, nil, nil)

	srv := httptest.NewServer(http.HandlerFunc(coord.ServeWebsocketBinary))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	env, err := protocol.NewEnvelope(protocol.TypeAuth, protocol.AuthData{Token: "anything"})
	require.NoError(t, err)
	data, err := protocol.MarshalBinary(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))

	msgType, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)

	var replyEnv protocol.Envelope
	require.NoError(t, protocol.UnmarshalBinary(reply, &replyEnv))
	assert.Equal(t, protocol.TypeAuthResponse, replyEnv.Type)
}
