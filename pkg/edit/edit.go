// Package edit implements the operations an editor applies to an NPC
// definition. Every operation takes the current definition and returns an
// updated copy; the input is never modified.
//
// Remove operations on a non-empty sequence always remove exactly one element:
// an index past the end removes the last element and a negative index removes
// the first. Update operations addressing an element that does not exist
// return an unchanged copy.
package edit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// ErrUnknownOperation is returned by Command.Apply for an op it does not know.
var ErrUnknownOperation = errors.New("unknown operation")

// clampRemove maps a requested removal index onto [0, n). It returns false
// when there is nothing to remove.
func clampRemove(i, n int) (int, bool) {
	if n == 0 {
		return 0, false
	}
	if i < 0 {
		return 0, true
	}
	if i >= n {
		return n - 1, true
	}
	return i, true
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// decodeValue converts an operation's value into target. A json.RawMessage is
// decoded as JSON; any other value is marshalled first.
func decodeValue(value any, target any) error {
	raw, err := rawValue(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", npc.ErrInvalidValue, err)
	}
	return nil
}

func rawValue(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: malformed JSON", npc.ErrInvalidValue)
		}
		return raw, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", npc.ErrInvalidValue, err)
	}
	return raw, nil
}

// setMember replaces one wire member of record and decodes the result into
// out. Known members must still decode into their Go types, so a value of the
// wrong shape fails with ErrInvalidValue.
func setMember(record any, key string, value any, out any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var fields npc.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	raw, err := rawValue(value)
	if err != nil {
		return err
	}
	if err := fields.SetRaw(key, raw); err != nil {
		return fmt.Errorf("%w: %v", npc.ErrInvalidValue, err)
	}
	data, err = json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", npc.ErrInvalidValue, key, err)
	}
	return nil
}

// setActionMember sets one member of an action. Setting Type retags the action
// and keeps every other member.
func setActionMember(a npc.Action, field string, value any) (npc.Action, error) {
	if field == "" {
		return a, fmt.Errorf("%w: action member name is empty", npc.ErrInvalidValue)
	}
	out := a.Clone()
	if field == "Type" {
		var t npc.ActionType
		if err := decodeValue(value, &t); err != nil {
			return a, err
		}
		out.Type = t
		return out, nil
	}
	raw, err := rawValue(value)
	if err != nil {
		return a, err
	}
	if err := out.Fields.SetRaw(field, raw); err != nil {
		return a, fmt.Errorf("%w: %v", npc.ErrInvalidValue, err)
	}
	return out, nil
}
