package sensitivity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValuesMap is a string → float64 mapping that remembers key insertion
// order. JSON objects decode in document order and encode in the same order.
type ValuesMap struct {
	keys   []string
	values map[string]float64
}

// NewValuesMap builds a ValuesMap from parallel key and value slices.
func NewValuesMap(keys []string, values []float64) (ValuesMap, error) {
	if len(keys) != len(values) {
		return ValuesMap{}, fmt.Errorf("values map: %d keys for %d values", len(keys), len(values))
	}
	var m ValuesMap
	for i, k := range keys {
		m.Set(k, values[i])
	}
	return m, nil
}

// Set stores v under k. A new key is appended to the key order; an existing
// key keeps its position.
func (m *ValuesMap) Set(k string, v float64) {
	if m.values == nil {
		m.values = make(map[string]float64)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value stored under k.
func (m ValuesMap) Get(k string) (float64, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Len returns the number of keys.
func (m ValuesMap) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m ValuesMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Project returns the values for ids, in ids order. If a key is absent the
// first missing id is returned with ok=false.
func (m ValuesMap) Project(ids []string) (values []float64, missing string, ok bool) {
	values = make([]float64, len(ids))
	for i, id := range ids {
		v, found := m.values[id]
		if !found {
			return nil, id, false
		}
		values[i] = v
	}
	return values, "", true
}

// MarshalJSON encodes the map as a JSON object in key insertion order.
func (m ValuesMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := writeObject(&buf, m.keys, func(i int) (interface{}, error) {
		return m.values[m.keys[i]], nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping document key order. Values
// may be JSON numbers or strings holding a number, since execution services
// commonly echo parameters back as text.
func (m *ValuesMap) UnmarshalJSON(data []byte) error {
	*m = ValuesMap{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return readObject(data, func(key string, raw json.RawMessage) error {
		v, err := parseNumber(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m.Set(key, v)
		return nil
	})
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// writeObject writes a JSON object whose members are produced by value, in
// keys order.
func writeObject(buf *bytes.Buffer, keys []string, value func(i int) (interface{}, error)) error {
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v, err := value(i)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return nil
}

// readObject walks the members of a JSON object in document order.
func readObject(data []byte, member func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := member(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
