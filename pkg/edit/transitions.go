package edit

import (
	"fmt"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// Transition fields UpdateStateTransition accepts.
const (
	TransitionFromStates = "fromStates"
	TransitionToStates   = "toStates"
	TransitionActions    = "actions"
)

// NewStateTransition is the transition AddStateTransition appends.
func NewStateTransition() npc.StateTransition {
	return npc.StateTransition{
		States:  []npc.StatePair{{From: []string{"Idle"}, To: []string{"NewState"}}},
		Actions: []npc.Action{npc.DefaultAnimation()},
	}
}

func AddStateTransition(d *npc.Definition) *npc.Definition {
	out := d.Clone()
	out.StateTransitions = append(out.StateTransitions, NewStateTransition())
	return out
}

// RemoveStateTransition deletes one transition; later transitions shift down.
func RemoveStateTransition(d *npc.Definition, i int) *npc.Definition {
	out := d.Clone()
	if i, ok := clampRemove(i, len(out.StateTransitions)); ok {
		out.StateTransitions = removeAt(out.StateTransitions, i)
	}
	return out
}

// UpdateStateTransition sets a transition's from states, to states or action
// list. State lists accept comma-separated text or a list of names. The
// transition keeps exactly one States entry afterwards.
func UpdateStateTransition(d *npc.Definition, i int, field string, value any) (*npc.Definition, error) {
	out := d.Clone()
	if !inRange(i, len(out.StateTransitions)) {
		return out, nil
	}
	t := &out.StateTransitions[i]

	var pair npc.StatePair
	if len(t.States) > 0 {
		pair = t.States[0]
	}
	pair.From = nonNilStates(pair.From)
	pair.To = nonNilStates(pair.To)

	switch field {
	case TransitionFromStates:
		states, err := stateList(value)
		if err != nil {
			return d.Clone(), err
		}
		pair.From = states
	case TransitionToStates:
		states, err := stateList(value)
		if err != nil {
			return d.Clone(), err
		}
		pair.To = states
	case TransitionActions:
		var actions []npc.Action
		if err := decodeValue(value, &actions); err != nil {
			return d.Clone(), err
		}
		if actions == nil {
			actions = []npc.Action{}
		}
		t.Actions = actions
		return out, nil
	default:
		return d.Clone(), fmt.Errorf("%w: transition has no field %q", npc.ErrInvalidValue, field)
	}
	t.States = []npc.StatePair{pair}
	return out, nil
}

func nonNilStates(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// stateList accepts either comma-separated text or a JSON list of names.
func stateList(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return ParseStateList(v), nil
	case []string:
		return cleanStates(v), nil
	}
	var text string
	if err := decodeValue(value, &text); err == nil {
		return ParseStateList(text), nil
	}
	var list []string
	if err := decodeValue(value, &list); err != nil {
		return nil, err
	}
	return cleanStates(list), nil
}

func AddActionToTransition(d *npc.Definition, i int) *npc.Definition {
	out := d.Clone()
	if !inRange(i, len(out.StateTransitions)) {
		return out
	}
	t := &out.StateTransitions[i]
	t.Actions = append(t.Actions, npc.DefaultAnimation())
	return out
}

func RemoveActionFromTransition(d *npc.Definition, i, j int) *npc.Definition {
	out := d.Clone()
	if !inRange(i, len(out.StateTransitions)) {
		return out
	}
	t := &out.StateTransitions[i]
	if j, ok := clampRemove(j, len(t.Actions)); ok {
		t.Actions = removeAt(t.Actions, j)
	}
	return out
}

// UpdateTransitionAction sets one member of a transition's action. Setting
// Type retags the action without dropping its other members.
func UpdateTransitionAction(d *npc.Definition, i, j int, field string, value any) (*npc.Definition, error) {
	out := d.Clone()
	if !inRange(i, len(out.StateTransitions)) || !inRange(j, len(out.StateTransitions[i].Actions)) {
		return out, nil
	}
	a, err := setActionMember(out.StateTransitions[i].Actions[j], field, value)
	if err != nil {
		return d.Clone(), err
	}
	out.StateTransitions[i].Actions[j] = a
	return out, nil
}
