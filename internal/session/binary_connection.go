package session

import (
	"github.com/gorilla/websocket"

	"github.com/lox/pokertable/internal/protocol"
)

// binaryConn adapts a *websocket.Conn to wsConn using msgpack framing
// instead of gorilla's built-in JSON helpers, for the alternate
// binary-framed port bots connect to instead of the browser-facing
// JSON one. Only Envelope ever crosses ReadJSON/WriteJSON here; every
// other payload already travels pre-encoded inside its Data field.
type binaryConn struct {
	*websocket.Conn
}

func (b binaryConn) ReadJSON(v interface{}) error {
	_, data, err := b.Conn.ReadMessage()
	if err != nil {
		return err
	}
	env, ok := v.(*protocol.Envelope)
	if !ok {
		return protocol.UnmarshalJSON(data, v)
	}
	return protocol.UnmarshalBinary(data, env)
}

func (b binaryConn) WriteJSON(v interface{}) error {
	env, ok := v.(*protocol.Envelope)
	if !ok {
		data, err := protocol.MarshalJSON(v)
		if err != nil {
			return err
		}
		return b.Conn.WriteMessage(websocket.BinaryMessage, data)
	}
	data, err := protocol.MarshalBinary(env)
	if err != nil {
		return err
	}
	return b.Conn.WriteMessage(websocket.BinaryMessage, data)
}
