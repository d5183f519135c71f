package edit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// Parameter members UpdateParameter can replace.
const (
	ParameterValue       = "Value"
	ParameterDescription = "Description"
)

// NewParameterDescription is the description a freshly added parameter carries.
const NewParameterDescription = "New parameter description"

const newParameterPrefix = "NewParameter_"

// SetField replaces a top-level member by its wire name. The value must decode
// into the member's type; otherwise the result wraps npc.ErrInvalidValue and
// the returned definition is an unchanged copy.
func SetField(d *npc.Definition, name string, value any) (*npc.Definition, error) {
	if strings.TrimSpace(name) == "" {
		return d.Clone(), fmt.Errorf("%w: field name is empty", npc.ErrInvalidValue)
	}
	var out npc.Definition
	if err := setMember(d, name, value, &out); err != nil {
		return d.Clone(), err
	}
	return &out, nil
}

// AddParameter appends NewParameter_<n>, where n starts at the parameter count
// plus one and is bumped until the key is free.
func AddParameter(d *npc.Definition) *npc.Definition {
	out := d.Clone()
	out.Parameters.Set(NextParameterKey(out), npc.Parameter{
		Value:       npc.MustLiteral(""),
		Description: NewParameterDescription,
	})
	return out
}

// NextParameterKey returns the key AddParameter would insert.
func NextParameterKey(d *npc.Definition) string {
	for n := d.Parameters.Len() + 1; ; n++ {
		key := newParameterPrefix + strconv.Itoa(n)
		if !d.Parameters.Has(key) {
			return key
		}
	}
}

func RemoveParameter(d *npc.Definition, key string) *npc.Definition {
	out := d.Clone()
	out.Parameters.Delete(key)
	return out
}

// RenameParameter moves a parameter to newKey, keeping its display position.
// Blank or unchanged names are ignored, and a rename onto an existing key is
// dropped so nothing is overwritten.
func RenameParameter(d *npc.Definition, oldKey, newKey string) *npc.Definition {
	out := d.Clone()
	if strings.TrimSpace(newKey) == "" || oldKey == newKey {
		return out
	}
	out.Parameters.Rename(oldKey, newKey)
	return out
}

// UpdateParameter replaces the Value or Description of an existing parameter.
// Absent keys are ignored.
func UpdateParameter(d *npc.Definition, key, field string, value any) (*npc.Definition, error) {
	out := d.Clone()
	p, ok := out.Parameters.Get(key)
	if !ok {
		return out, nil
	}
	switch field {
	case ParameterValue:
		raw, err := rawValue(value)
		if err != nil {
			return d.Clone(), err
		}
		if err := p.Value.UnmarshalJSON(raw); err != nil {
			return d.Clone(), fmt.Errorf("%w: %v", npc.ErrInvalidValue, err)
		}
	case ParameterDescription:
		if err := decodeValue(value, &p.Description); err != nil {
			return d.Clone(), err
		}
	default:
		return out, fmt.Errorf("%w: parameter has no field %q", npc.ErrInvalidValue, field)
	}
	out.Parameters.Set(key, p)
	return out, nil
}
