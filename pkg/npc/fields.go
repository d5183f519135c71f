package npc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Fields is an ordered set of JSON object members kept as raw, compacted JSON.
// It holds the open-ended part of every record in a definition so members the
// model does not know about survive an import/export cycle in their original order.
type Fields struct {
	keys []string
	raw  map[string]json.RawMessage
}

// Len returns the number of members.
func (f Fields) Len() int {
	return len(f.keys)
}

// Keys returns the member names in insertion order.
func (f Fields) Keys() []string {
	return slices.Clone(f.keys)
}

// Has reports whether the member exists.
func (f Fields) Has(key string) bool {
	_, ok := f.raw[key]
	return ok
}

// Raw returns the member's JSON text.
func (f Fields) Raw(key string) (json.RawMessage, bool) {
	v, ok := f.raw[key]
	return v, ok
}

// Get decodes the member into target. It returns false if the member is absent.
func (f Fields) Get(key string, target any) (bool, error) {
	v, ok := f.raw[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(v, target); err != nil {
		return true, fmt.Errorf("%s: %w", key, err)
	}
	return true, nil
}

// String returns the member as a string, or "" if it is absent or not a string.
func (f Fields) String(key string) string {
	var s string
	if ok, err := f.Get(key, &s); !ok || err != nil {
		return ""
	}
	return s
}

// SetRaw stores JSON text under key. New keys are appended; existing keys keep
// their position. The text is stored in canonical form so equal values compare
// equal.
func (f *Fields) SetRaw(key string, value json.RawMessage) error {
	c, err := canonical(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if f.raw == nil {
		f.raw = make(map[string]json.RawMessage)
	}
	if _, ok := f.raw[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.raw[key] = c
	return nil
}

// canonical compacts JSON text and escapes <, >, & and U+2028/U+2029 the way
// json.Marshal does, so a stored value is byte-identical to its exported form.
func canonical(data []byte) (json.RawMessage, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	json.HTMLEscape(&out, compact.Bytes())
	return json.RawMessage(out.Bytes()), nil
}

// Set marshals value and stores it under key.
func (f *Fields) Set(key string, value any) error {
	raw, err := toRaw(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return f.SetRaw(key, raw)
}

// Delete removes a member. Deleting an absent member is a no-op.
func (f *Fields) Delete(key string) {
	if _, ok := f.raw[key]; !ok {
		return
	}
	delete(f.raw, key)
	f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == key })
	if len(f.keys) == 0 {
		f.keys = nil
		f.raw = nil
	}
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	if len(f.keys) == 0 {
		return Fields{}
	}
	out := Fields{
		keys: slices.Clone(f.keys),
		raw:  make(map[string]json.RawMessage, len(f.raw)),
	}
	for k, v := range f.raw {
		out.raw[k] = slices.Clone(v)
	}
	return out
}

// Decode unmarshals all members, as one object, into target.
func (f Fields) Decode(target any) error {
	data, err := f.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (f Fields) MarshalJSON() ([]byte, error) {
	return writeObject(nil, f)
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	parsed, err := readObject(data, nil)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// member is one known member of a record, written before the record's extra fields.
type member struct {
	key   string
	value any
	omit  bool
}

// writeObject encodes the known members in order, followed by any extra members
// whose names do not collide with a known one.
func writeObject(members []member, extra Fields) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	known := make(map[string]bool, len(members))
	n := 0
	write := func(key string, raw []byte) error {
		name, err := json.Marshal(key)
		if err != nil {
			return err
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(raw)
		n++
		return nil
	}

	for _, m := range members {
		known[m.key] = true
		if m.omit {
			continue
		}
		raw, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.key, err)
		}
		if err := write(m.key, raw); err != nil {
			return nil, err
		}
	}
	for _, k := range extra.keys {
		if known[k] {
			continue
		}
		if err := write(k, extra.raw[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// readObject decodes a JSON object. Members named in targets are unmarshalled
// into their target pointers; every other member is returned as extra fields.
// Members keep the order of their first occurrence; a repeated key takes the
// last value, as encoding/json does. A JSON null yields empty fields.
func readObject(data []byte, targets map[string]any) (Fields, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return Fields{}, nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Fields{}, fmt.Errorf("expected JSON object, got %.20q", trimmed)
	}

	keys, values, err := scanObject(trimmed)
	if err != nil {
		return Fields{}, err
	}

	var extra Fields
	for _, k := range keys {
		raw := values[k]
		if target, ok := targets[k]; ok {
			if err := json.Unmarshal(raw, target); err != nil {
				return Fields{}, fmt.Errorf("%s: %w", k, err)
			}
			continue
		}
		if err := extra.SetRaw(k, raw); err != nil {
			return Fields{}, err
		}
	}
	return extra, nil
}

// scanObject walks the top level of a JSON object with the decoder's token
// stream, which yields member names already unescaped.
func scanObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return nil, nil, err
	} else if tok != json.Delim('{') {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected member name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New("unexpected data after JSON object")
	}
	return keys, values, nil
}

// toRaw converts a Go value into JSON text. A json.RawMessage is passed through
// after a validity check.
func toRaw(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON value %q", string(v))
		}
		return v, nil
	default:
		return json.Marshal(value)
	}
}
