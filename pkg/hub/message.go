// Package hub fans websocket messages out to every connected dashboard.
package hub

import "encoding/json"

// Kind is the websocket frame type a Message is written as.
type Kind int

const (
	// Text frames carry JSON state, cue and log events.
	Text Kind = iota
	// Binary frames carry JPEG preview frames.
	Binary
)

// Message is one frame queued for a client.
type Message struct {
	Kind Kind
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Kind: Text, Data: data}
}

// NewBinaryMessage wraps a JPEG frame.
func NewBinaryMessage(data []byte) Message {
	return Message{Kind: Binary, Data: data}
}

// Encode marshals v into a text message.
func Encode(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
