package protocol

// Code generated by msgp would normally live here; messages.go carries
// no go:generate directive, and this file is hand-maintained because this exercise
// never runs the Go toolchain. Only Envelope gets a msgpack codec: it
// is the one type framed on the binary port, carrying everything else
// as an already-JSON-encoded Data blob.

import (
	"encoding/json"
	"time"

	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler.
func (z *Envelope) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "type")
	o = msgp.AppendString(o, string(z.Type))
	o = msgp.AppendString(o, "data")
	o = msgp.AppendBytes(o, []byte(z.Data))
	o = msgp.AppendString(o, "timestamp")
	o = msgp.AppendTime(o, z.Timestamp)
	o = msgp.AppendString(o, "request_id")
	o = msgp.AppendString(o, z.RequestID)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *Envelope) UnmarshalMsg(bts []byte) ([]byte, error) {
	var field []byte
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		key, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch key {
		case "type":
			var s string
			s, bts, err = msgp.ReadStringBytes(bts)
			z.Type = MessageType(s)
		case "data":
			field, bts, err = msgp.ReadBytesBytes(bts, nil)
			z.Data = json.RawMessage(field)
		case "timestamp":
			z.Timestamp, bts, err = msgp.ReadTimeBytes(bts)
		case "request_id":
			z.RequestID, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// Msgsize returns an upper bound estimate of the encoded size.
func (z *Envelope) Msgsize() int {
	return 1 + 5 + msgp.StringPrefixSize + len(z.Type) +
		5 + msgp.BytesPrefixSize + len(z.Data) +
		10 + msgp.TimeSize +
		11 + msgp.StringPrefixSize + len(z.RequestID)
}
