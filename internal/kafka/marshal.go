package kafka

import (
	"encoding/json"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/events"
	"github.com/segmentio/kafka-go"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func DecodeEnvelope(b []byte) (events.Envelope, error) {
	var env events.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, errs.Wrap(err, "decode envelope")
	}
	return env, nil
}

// UnwrapPayload decodes an envelope payload into its concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, errs.Wrap(err, "decode payload")
	}
	return t, nil
}

// EventHeaders are attached to every message so consumers can route without
// decoding the body.
func EventHeaders(eventType string) []kafka.Header {
	return []kafka.Header{
		{Key: events.HeaderEventType, Value: []byte(eventType)},
		{Key: events.HeaderEventVersion, Value: []byte("1")},
	}
}
