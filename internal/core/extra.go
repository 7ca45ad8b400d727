package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExtraData is the ordered key/value extension map of a lead. Keys keep
// their first insertion position; setting an existing key replaces its value
// in place. The zero value is an empty map ready to use.
type ExtraData struct {
	keys   []string
	values map[string]string
}

// Set stores v under key.
func (e *ExtraData) Set(key, v string) {
	if e.values == nil {
		e.values = make(map[string]string)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = v
}

// Get returns the value under key. A miss returns ("", false).
func (e ExtraData) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Delete removes key, keeping the order of the remaining keys.
func (e *ExtraData) Delete(key string) {
	if _, ok := e.values[key]; !ok {
		return
	}
	delete(e.values, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (e ExtraData) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Len returns the number of entries.
func (e ExtraData) Len() int { return len(e.keys) }

// MarshalJSON writes a JSON object whose members follow insertion order.
func (e ExtraData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving member order. String values
// are taken as-is, null becomes "" and any other value is kept as its
// compact JSON text.
func (e *ExtraData) UnmarshalJSON(data []byte) error {
	*e = ExtraData{}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("extra data: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("extra data: expected key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		e.Set(key, rawToString(raw))
	}

	_, err = dec.Token()
	return err
}

func rawToString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, string(raw) == "null":
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// String returns the JSON text stored in the database.
func (e ExtraData) String() string {
	b, _ := e.MarshalJSON()
	return string(b)
}

// ParseExtraData decodes the stored JSON text. Empty text yields an empty map.
func ParseExtraData(s string) (ExtraData, error) {
	var e ExtraData
	if err := e.UnmarshalJSON([]byte(s)); err != nil {
		return ExtraData{}, fmt.Errorf("parse extra data: %w", err)
	}
	return e, nil
}
