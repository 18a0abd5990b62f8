// Package hub fans session status out to dashboard subscribers over
// websockets using a channel-based broadcast loop.
package hub

import "encoding/json"

// Message is one broadcast payload, already JSON encoded.
type Message struct {
	Topic string
	Data  []byte
}

// envelope is the JSON body subscribers receive.
type envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// NewJSONMessage encodes v under topic.
func NewJSONMessage(topic string, v any) (Message, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	data, err := json.Marshal(envelope{Topic: topic, Data: raw})
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Data: data}, nil
}
