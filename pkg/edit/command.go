package edit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// Operation names accepted in Command.Op.
const (
	OpSetField                    = "setField"
	OpAddParameter                = "addParameter"
	OpRemoveParameter             = "removeParameter"
	OpRenameParameter             = "renameParameter"
	OpUpdateParameter             = "updateParameter"
	OpAddStateTransition          = "addStateTransition"
	OpRemoveStateTransition       = "removeStateTransition"
	OpUpdateStateTransition       = "updateStateTransition"
	OpAddActionToTransition       = "addActionToTransition"
	OpRemoveActionFromTransition  = "removeActionFromTransition"
	OpUpdateTransitionAction      = "updateTransitionAction"
	OpAddInstruction              = "addInstruction"
	OpRemoveInstruction           = "removeInstruction"
	OpUpdateInstruction           = "updateInstruction"
	OpAddActionToInstruction      = "addActionToInstruction"
	OpRemoveActionFromInstruction = "removeActionFromInstruction"
	OpUpdateInstructionAction     = "updateInstructionAction"
)

// Operations lists every operation name in the order editors present them.
var Operations = []string{
	OpSetField,
	OpAddParameter, OpRemoveParameter, OpRenameParameter, OpUpdateParameter,
	OpAddStateTransition, OpRemoveStateTransition, OpUpdateStateTransition,
	OpAddActionToTransition, OpRemoveActionFromTransition, OpUpdateTransitionAction,
	OpAddInstruction, OpRemoveInstruction, OpUpdateInstruction,
	OpAddActionToInstruction, OpRemoveActionFromInstruction, OpUpdateInstructionAction,
}

// Command is a serialized edit operation, as sent by API clients and built by
// the console.
//
// Value carries a JSON value. Text carries raw widget input instead and is
// coerced for the addressed field: comma-separated state lists, delays such
// as "1, 3", integer slots, numeric ranges, and parameter values that fall
// back to a plain string when they are not JSON.
//
// Instruction operations address an instruction by Path when it is set and
// by Index otherwise. For addInstruction, Path names the parent.
type Command struct {
	Op          string          `json:"op"`
	Key         string          `json:"key,omitempty"`
	NewKey      string          `json:"new_key,omitempty"`
	Field       string          `json:"field,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Text        *string         `json:"text,omitempty"`
	Index       int             `json:"index,omitempty"`
	ActionIndex int             `json:"action_index,omitempty"`
	Path        []int           `json:"path,omitempty"`
}

// Apply runs the command against d and returns the updated copy.
func (c Command) Apply(d *npc.Definition) (*npc.Definition, error) {
	switch c.Op {
	case OpSetField:
		v, err := c.value(c.Field)
		if err != nil {
			return d.Clone(), err
		}
		return SetField(d, c.Field, v)
	case OpAddParameter:
		return AddParameter(d), nil
	case OpRemoveParameter:
		return RemoveParameter(d, c.Key), nil
	case OpRenameParameter:
		return RenameParameter(d, c.Key, c.NewKey), nil
	case OpUpdateParameter:
		v, err := c.parameterValue()
		if err != nil {
			return d.Clone(), err
		}
		return UpdateParameter(d, c.Key, c.Field, v)

	case OpAddStateTransition:
		return AddStateTransition(d), nil
	case OpRemoveStateTransition:
		return RemoveStateTransition(d, c.Index), nil
	case OpUpdateStateTransition:
		var v any = c.Value
		if c.Text != nil {
			v = *c.Text
		}
		return UpdateStateTransition(d, c.Index, c.Field, v)
	case OpAddActionToTransition:
		return AddActionToTransition(d, c.Index), nil
	case OpRemoveActionFromTransition:
		return RemoveActionFromTransition(d, c.Index, c.ActionIndex), nil
	case OpUpdateTransitionAction:
		v, err := c.value(c.Field)
		if err != nil {
			return d.Clone(), err
		}
		return UpdateTransitionAction(d, c.Index, c.ActionIndex, c.Field, v)

	case OpAddInstruction:
		return AddInstructionAt(d, c.Path), nil
	case OpRemoveInstruction:
		return RemoveInstructionAt(d, c.path()), nil
	case OpUpdateInstruction:
		var v any = c.Value
		if c.Text != nil {
			switch c.Field {
			case InstructionSensorType, InstructionSensorState, InstructionSensorRange:
				v = *c.Text
			default:
				raw, err := c.value(c.Field)
				if err != nil {
					return d.Clone(), err
				}
				v = raw
			}
		}
		return UpdateInstructionAt(d, c.path(), c.Field, v)
	case OpAddActionToInstruction:
		return AddActionToInstructionAt(d, c.path()), nil
	case OpRemoveActionFromInstruction:
		return RemoveActionFromInstructionAt(d, c.path(), c.ActionIndex), nil
	case OpUpdateInstructionAction:
		v, err := c.value(c.Field)
		if err != nil {
			return d.Clone(), err
		}
		return UpdateInstructionActionAt(d, c.path(), c.ActionIndex, c.Field, v)
	}
	return d.Clone(), fmt.Errorf("%w: %q", ErrUnknownOperation, c.Op)
}

func (c Command) path() []int {
	if len(c.Path) > 0 {
		return c.Path
	}
	return []int{c.Index}
}

// value returns the command's JSON value, coercing Text for field when set.
func (c Command) value(field string) (json.RawMessage, error) {
	if c.Text != nil {
		return CoerceMember(field, *c.Text)
	}
	if len(c.Value) == 0 {
		return json.RawMessage("null"), nil
	}
	return c.Value, nil
}

// parameterValue keeps text that is not JSON as a string rather than failing.
func (c Command) parameterValue() (json.RawMessage, error) {
	if c.Text == nil {
		return c.value(c.Field)
	}
	if c.Field == ParameterDescription {
		return json.Marshal(*c.Text)
	}
	raw, err := ParseParameterValue(*c.Text)
	if err != nil && !errors.Is(err, npc.ErrInvalidValue) {
		return nil, err
	}
	return raw, nil
}
