package execution

import (
	"bytes"
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Metadata is the execution record minus its executionData field. It keeps the
// record's field order and the raw JSON of every value.
type Metadata struct {
	keys   []string
	values map[string]json.RawMessage
}

func newMetadata() *Metadata {
	return &Metadata{values: make(map[string]json.RawMessage)}
}

// set stores a field and reports false when the key was already present.
func (m *Metadata) set(key string, raw json.RawMessage) bool {
	if _, exists := m.values[key]; exists {
		return false
	}

	m.keys = append(m.keys, key)
	m.values[key] = raw

	return true
}

// Keys returns the field names in record order.
func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Metadata) Len() int {
	return len(m.keys)
}

// Raw returns the JSON of a field as it appeared in the record.
func (m *Metadata) Raw(key string) (json.RawMessage, bool) {
	raw, ok := m.values[key]

	return raw, ok
}

// Get decodes a field into a generic Go value.
func (m *Metadata) Get(key string) (any, bool) {
	raw, ok := m.values[key]
	if !ok {
		return nil, false
	}

	var value any
	if err := sonic.Unmarshal(raw, &value); err != nil {
		return nil, false
	}

	return value, true
}

// Map decodes every field. Field order is lost.
func (m *Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.keys))

	for _, key := range m.keys {
		if value, ok := m.Get(key); ok {
			out[key] = value
		}
	}

	return out
}

// MarshalJSON writes the fields in record order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := sonic.Marshal(key)
		if err != nil {
			return nil, err
		}

		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(m.values[key])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
