package npc

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Ref is a value that is either a literal JSON value or a reference the game
// engine resolves from another system, written as {"Compute": "<name>"}.
type Ref struct {
	Compute string          // non-empty for a Compute reference
	Literal json.RawMessage // canonical literal JSON; nil means null
}

// Compute returns a reference to an engine-resolved field.
func Compute(name string) Ref {
	return Ref{Compute: name}
}

// Literal wraps a Go value as a literal reference value.
func Literal(v any) (Ref, error) {
	raw, err := toRaw(v)
	if err != nil {
		return Ref{}, err
	}
	var r Ref
	if err := r.UnmarshalJSON(raw); err != nil {
		return Ref{}, err
	}
	return r, nil
}

// MustLiteral is Literal for values known to marshal, such as strings and numbers.
func MustLiteral(v any) Ref {
	r, err := Literal(v)
	if err != nil {
		panic(err)
	}
	return r
}

// IsCompute reports whether the value is a Compute reference.
func (r Ref) IsCompute() bool {
	return r.Compute != ""
}

// IsNull reports whether the value is JSON null.
func (r Ref) IsNull() bool {
	return r.Compute == "" && (r.Literal == nil || bytes.Equal(r.Literal, []byte("null")))
}

// Text returns the literal as a string when it is a JSON string.
func (r Ref) Text() (string, bool) {
	if r.IsCompute() || r.Literal == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.Literal, &s); err != nil {
		return "", false
	}
	return s, true
}

// Decode unmarshals the literal into target.
func (r Ref) Decode(target any) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// Clone returns a deep copy.
func (r Ref) Clone() Ref {
	return Ref{Compute: r.Compute, Literal: slices.Clone(r.Literal)}
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsCompute() {
		return json.Marshal(struct {
			Compute string `json:"Compute"`
		}{r.Compute})
	}
	if r.Literal == nil {
		return []byte("null"), nil
	}
	return r.Literal, nil
}

// UnmarshalJSON accepts any JSON value. An object whose only member is a string
// "Compute" becomes a reference; anything else is kept as a literal.
func (r *Ref) UnmarshalJSON(data []byte) error {
	compact, err := canonical(data)
	if err != nil {
		return err
	}
	if bytes.Equal(compact, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if compact[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(compact, &obj); err != nil {
			return err
		}
		if raw, ok := obj["Compute"]; ok && len(obj) == 1 {
			var name string
			if err := json.Unmarshal(raw, &name); err == nil && name != "" {
				*r = Ref{Compute: name}
				return nil
			}
		}
	}
	*r = Ref{Literal: json.RawMessage(compact)}
	return nil
}
