package messages

import (
	"encoding/json"
	"fmt"
)

// Envelope represents a signaling message exchanged between a client and the relay. Type is the
// kind of the message, Fields holds every other top-level JSON member verbatim.
type Envelope struct {
	Type   Kind
	Fields map[string]json.RawMessage
}

// Field returns the raw value of a field, if present
func (e Envelope) Field(name string) (json.RawMessage, bool) {
	raw, ok := e.Fields[name]
	return raw, ok
}

// StringField returns the value of a field, if it is present and is a JSON string
func (e Envelope) StringField(name string) (string, bool) {
	raw, ok := e.Fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// WithType returns a copy of the envelope with its type replaced and all the other fields kept
func WithType(e Envelope, kind Kind) Envelope {
	fields := make(map[string]json.RawMessage, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return Envelope{Type: kind, Fields: fields}
}

// New creates an envelope of given kind. Values are marshalled to JSON, so they must be
// serializable.
func New(kind Kind, values map[string]any) (Envelope, error) {
	fields := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		if k == typeField {
			return Envelope{}, fmt.Errorf("field name %q is reserved", typeField)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal field %s: %w", k, err)
		}
		fields[k] = raw
	}
	return Envelope{Type: kind, Fields: fields}, nil
}

func mustNew(kind Kind, values map[string]any) Envelope {
	e, err := New(kind, values)
	if err != nil {
		panic(err)
	}
	return e
}
