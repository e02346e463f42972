package wamp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Serializer encodes WAMP messages for the wire.
type Serializer interface {
	// Subprotocol is the WebSocket subprotocol negotiated for this serializer.
	Subprotocol() string

	// FrameType is the WebSocket frame type (text or binary).
	FrameType() int

	Marshal(msg []any) ([]byte, error)
	Unmarshal(data []byte) ([]any, error)
}

// JSON is the "wamp.2.json" serializer.
var JSON Serializer = jsonSerializer{}

// Msgpack is the "wamp.2.msgpack" serializer.
var Msgpack Serializer = msgpackSerializer{}

// SerializerByName returns the serializer for "json" or "msgpack".
func SerializerByName(name string) (Serializer, error) {
	switch name {
	case "", "json", JSON.Subprotocol():
		return JSON, nil
	case "msgpack", Msgpack.Subprotocol():
		return Msgpack, nil
	}
	return nil, fmt.Errorf("wamp: unknown serializer %q", name)
}

type jsonSerializer struct{}

func (jsonSerializer) Subprotocol() string { return "wamp.2.json" }

func (jsonSerializer) FrameType() int { return websocket.TextMessage }

func (jsonSerializer) Marshal(msg []any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonSerializer) Unmarshal(data []byte) ([]any, error) {
	var msg []any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("wamp: decode json message: %w", err)
	}
	return msg, nil
}

type msgpackSerializer struct{}

func (msgpackSerializer) Subprotocol() string { return "wamp.2.msgpack" }

func (msgpackSerializer) FrameType() int { return websocket.BinaryMessage }

func (msgpackSerializer) Marshal(msg []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackSerializer) Unmarshal(data []byte) ([]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var msg []any
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("wamp: decode msgpack message: %w", err)
	}
	return msg, nil
}
