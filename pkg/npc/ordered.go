package npc

import (
	"encoding/json"
	"slices"
)

// Map is a string-keyed map that remembers insertion order. Keys are unique.
type Map[V any] struct {
	keys   []string
	values map[string]V
}

func (m Map[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in display order.
func (m Map[V]) Keys() []string {
	return slices.Clone(m.keys)
}

func (m Map[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m Map[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key; a new key goes to the end.
func (m *Map[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key. It reports whether the key was present.
func (m *Map[V]) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return true
}

// Rename moves the entry at oldKey to newKey, keeping its position.
// It refuses to overwrite an existing newKey and reports whether it renamed.
func (m *Map[V]) Rename(oldKey, newKey string) bool {
	v, ok := m.values[oldKey]
	if !ok || oldKey == newKey {
		return false
	}
	if _, taken := m.values[newKey]; taken {
		return false
	}
	i := slices.Index(m.keys, oldKey)
	m.keys[i] = newKey
	delete(m.values, oldKey)
	m.values[newKey] = v
	return true
}

// All iterates entries in order.
func (m Map[V]) All(yield func(string, V) bool) {
	for _, k := range m.keys {
		if !yield(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a copy with each value passed through clone.
func (m Map[V]) Clone(clone func(V) V) Map[V] {
	out := Map[V]{
		keys:   make([]string, 0, len(m.keys)),
		values: make(map[string]V, len(m.keys)),
	}
	for _, k := range m.keys {
		out.keys = append(out.keys, k)
		out.values[k] = clone(m.values[k])
	}
	return out
}

// normalize makes an empty map non-nil so an exported document always carries
// its collections and a parsed one compares equal to the original.
func (m *Map[V]) normalize() {
	if m.keys == nil {
		m.keys = []string{}
	}
	if m.values == nil {
		m.values = make(map[string]V)
	}
}

func (m Map[V]) MarshalJSON() ([]byte, error) {
	members := make([]member, 0, len(m.keys))
	for _, k := range m.keys {
		members = append(members, member{key: k, value: m.values[k]})
	}
	return writeObject(members, Fields{})
}

func (m *Map[V]) UnmarshalJSON(data []byte) error {
	raw, err := readObject(data, nil)
	if err != nil {
		return err
	}
	out := Map[V]{}
	out.normalize()
	for _, k := range raw.keys {
		var v V
		if err := json.Unmarshal(raw.raw[k], &v); err != nil {
			return err
		}
		out.Set(k, v)
	}
	*m = out
	return nil
}
