package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Document is an ordered JSON object property bag.
// Keys keep the order they had in the source JSON (new keys are appended),
// and values are kept as raw JSON so fields unknown to dmcp survive a read-modify-write.
// Typed accessors for the well known manifest keys are declared in manifest.go.
type Document struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{values: map[string]json.RawMessage{}}
}

// ParseDocument decodes a JSON object into a Document.
func ParseDocument(data []byte) (*Document, error) {
	d := NewDocument()
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return d, nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
// Duplicate keys keep their first position and their last value.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("invalid JSON document: expected an object")
	}

	keys := make([]string, 0)
	values := map[string]json.RawMessage{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid JSON document: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid JSON document: expected a key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("invalid JSON document: value for '%s': %w", key, err)
		}

		if _, exists := values[key]; !exists {
			keys = append(keys, key)
		}
		values[key] = raw
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON document: unexpected data after object")
	}

	d.keys = keys
	d.values = values

	return nil
}

// MarshalJSON implements json.Marshaler, writing keys in order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(d.values[k])
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Marshal returns the document as indented JSON followed by a newline, which is the on-disk format.
func (d *Document) Marshal() ([]byte, error) {
	compact, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')

	return out.Bytes(), nil
}

// Keys returns the document keys in order.
func (d *Document) Keys() []string {
	return slices.Clone(d.keys)
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.keys)
}

// Has reports whether the key is present (even when its value is null).
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the raw JSON value for key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Decode unmarshals the value of key into v.
// It returns false (and leaves v untouched) when the key is absent or null.
func (d *Document) Decode(key string, v any) (bool, error) {
	raw, ok := d.values[key]
	if !ok || isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("field '%s': %w", key, err)
	}
	return true, nil
}

// String returns the value of key when it is a JSON string, otherwise an empty string.
func (d *Document) String(key string) string {
	var s string
	if ok, err := d.Decode(key, &s); !ok || err != nil {
		return ""
	}
	return s
}

// Set encodes v and stores it under key, appending the key when it is new.
func (d *Document) Set(key string, v any) error {
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("field '%s': %w", key, err)
	}
	d.SetRaw(key, raw)
	return nil
}

// SetRaw stores an already encoded JSON value under key, appending the key when it is new.
func (d *Document) SetRaw(key string, raw json.RawMessage) {
	if d.values == nil {
		d.values = map[string]json.RawMessage{}
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = slices.Clone(raw)
}

// Delete removes key, reporting whether it was present.
func (d *Document) Delete(key string) bool {
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
	return true
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{
		keys:   slices.Clone(d.keys),
		values: make(map[string]json.RawMessage, len(d.values)),
	}
	for k, v := range d.values {
		c.values[k] = slices.Clone(v)
	}
	return c
}

// encode marshals v without HTML escaping, so values such as URLs round-trip byte for byte.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
