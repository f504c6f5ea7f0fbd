package protocol

import "encoding/json"

// MarshalJSON serializes an Envelope (or any of its payload types) to
// JSON. This is the codec used on the browser-facing WebSocket port.
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalJSON deserializes JSON data into v.
func UnmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// MarshalBinary serializes an Envelope to msgpack. This is the codec
// used on the alternate binary-framed port; only Envelope itself needs
// one, since every other payload travels inside its Data field already
// JSON-encoded.
func MarshalBinary(e *Envelope) ([]byte, error) {
	return e.MarshalMsg(nil)
}

// UnmarshalBinary deserializes msgpack data into an Envelope.
func UnmarshalBinary(data []byte, e *Envelope) error {
	_, err := e.UnmarshalMsg(data)
	return err
}
