package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec frames envelopes for one connection
type Codec interface {
	Name() string
	// Binary reports whether frames go out as websocket binary messages
	Binary() bool
	Encode(event string, data interface{}) ([]byte, error)
	Decode(frame []byte) (ClientMessage, error)
}

// ForName returns the codec registered under name, defaulting to JSON
func ForName(name string) Codec {
	if name == "msgpack" {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// JSONCodec is the default text codec
type JSONCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(event string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Event: event, Data: payload})
}

func (JSONCodec) Decode(frame []byte) (ClientMessage, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodePayload(env.Event, env.Data, json.Unmarshal)
}

// MsgpackCodec is the compact binary codec. It reuses the json struct tags so
// both codecs produce the same field names.
type MsgpackCodec struct{}

type msgpackEnvelope struct {
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data,omitempty"`
}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(event string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(map[string]interface{}{"event": event, "data": data}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(frame []byte) (ClientMessage, error) {
	var env msgpackEnvelope
	if err := unmarshalMsgpack(frame, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodePayload(env.Event, env.Data, unmarshalMsgpack)
}

func unmarshalMsgpack(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// decodePayload dispatches on the event name
func decodePayload(event string, data []byte, unmarshal func([]byte, interface{}) error) (ClientMessage, error) {
	msg := ClientMessage{Event: event}
	if len(data) == 0 {
		return msg, fmt.Errorf("%w: %s without data", ErrMalformed, event)
	}

	switch event {
	case EventNewPlayer:
		var np NewPlayer
		if err := unmarshal(data, &np); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		msg.NewPlayer = &np
	case EventPlayerAction:
		var pa PlayerAction
		if err := unmarshal(data, &pa); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		msg.Action = &pa
	default:
		return msg, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return msg, nil
}
