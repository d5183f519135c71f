package edit

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// Helpers that turn text typed into an editor widget into member values.

// ParseStateList splits comma-separated state names, trimming each and
// dropping empties. Order is kept.
func ParseStateList(text string) []string {
	return cleanStates(strings.Split(text, ","))
}

func cleanStates(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// ParseParameterValue reads a parameter value typed as JSON, such as
// {"Compute": "MaxHealth"} or 100. Text that is not JSON is kept as a string;
// the returned value is then usable and the error wraps npc.ErrInvalidValue so
// callers can tell the user.
func ParseParameterValue(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}
	raw, err := json.Marshal(text)
	if err != nil {
		return nil, err
	}
	return raw, fmt.Errorf("%w: %q is not JSON, stored as text", npc.ErrInvalidValue, text)
}

// ParseDelay reads a Timeout delay typed as "2" or "1, 3". Entries that are
// not numbers are dropped. A single number becomes a scalar delay and
// anything else a list.
func ParseDelay(text string) json.RawMessage {
	values := []float64{}
	for _, part := range strings.Split(text, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	var raw []byte
	if len(values) == 1 {
		raw, _ = json.Marshal(values[0])
	} else {
		raw, _ = json.Marshal(values)
	}
	return raw
}

// ParseSlot reads an inventory slot. Leading digits are accepted, so "3a" is 3.
func ParseSlot(text string) (int, error) {
	trimmed := strings.TrimSpace(text)
	end := 0
	for end < len(trimmed) && (trimmed[end] >= '0' && trimmed[end] <= '9' || end == 0 && (trimmed[0] == '-' || trimmed[0] == '+')) {
		end++
	}
	slot, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: slot %q is not an integer", npc.ErrInvalidValue, text)
	}
	return slot, nil
}

// ParseNumber reads a float such as a sensor range or knockback scale.
func ParseNumber(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", npc.ErrInvalidValue, text)
	}
	return v, nil
}

// CoerceMember converts widget text for a named action, sensor or instruction
// member into its JSON value.
func CoerceMember(field, text string) (json.RawMessage, error) {
	switch field {
	case "Delay":
		return ParseDelay(text), nil
	case "Slot":
		slot, err := ParseSlot(text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(slot)
	case "Range", "KnockbackScale", InstructionSensorRange:
		v, err := ParseNumber(text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	case "Continue", "ActionsBlocking", "UseTarget":
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not true or false", npc.ErrInvalidValue, text)
		}
		return json.Marshal(b)
	}
	return json.Marshal(text)
}
