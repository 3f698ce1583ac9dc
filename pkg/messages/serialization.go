package messages

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingType is returned when a decoded object has no string `type` member
var ErrMissingType = errors.New("message has no string type field")

// MarshalJSON implements json.Marshaler, flattening the fields next to `type`
func (e Envelope) MarshalJSON() ([]byte, error) {
	flat := make(map[string]json.RawMessage, len(e.Fields)+1)
	for k, v := range e.Fields {
		flat[k] = v
	}
	typeRaw, marshalErr := json.Marshal(string(e.Type))
	if marshalErr != nil {
		return nil, marshalErr
	}
	flat[typeField] = typeRaw
	return json.Marshal(flat)
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	if flat == nil {
		return errors.New("message is not a JSON object")
	}
	typeRaw, ok := flat[typeField]
	if !ok || string(typeRaw) == "null" {
		return ErrMissingType
	}
	var kind string
	if err := json.Unmarshal(typeRaw, &kind); err != nil {
		return ErrMissingType
	}
	delete(flat, typeField)
	e.Type = Kind(kind)
	e.Fields = flat
	return nil
}

// SerializeBytes serializes the envelope for transit over the wire
func SerializeBytes(e Envelope) []byte {
	b, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		panic(marshalErr)
	}
	return b
}

// Serialize serializes the envelope for debugging or for text-based wire protocols
func Serialize(e Envelope) string {
	return string(SerializeBytes(e))
}

// DeserializeBytes decodes an envelope received from the wire
func DeserializeBytes(b []byte) (Envelope, error) {
	theEnvelope := Envelope{}
	if unmarshalErr := json.Unmarshal(b, &theEnvelope); unmarshalErr != nil {
		return Envelope{}, fmt.Errorf("malformed message: %w", unmarshalErr)
	}
	return theEnvelope, nil
}

// DeserializeString decodes an envelope from a string
func DeserializeString(s string) (Envelope, error) {
	return DeserializeBytes([]byte(s))
}
