package edit

import (
	"fmt"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// Instruction fields UpdateInstruction handles specially. Any other field is
// taken as the wire name of an instruction member, such as Continue.
const (
	InstructionSensorType  = "sensorType"
	InstructionSensorState = "sensorState"
	InstructionSensorRange = "sensorRange"
)

// NewInstruction is the instruction AddInstruction appends: a State sensor on
// Idle with no nested instructions yet.
func NewInstruction() npc.Instruction {
	sensor, _ := npc.NewSensor(npc.SensorState, npc.StateChange{State: "Idle"})
	return npc.Instruction{Sensor: &sensor, Instructions: []npc.Instruction{}}
}

// Instructions are addressed by path: the index in the top-level list, then
// the index in that instruction's nested list, and so on. The index forms of
// the operations below are paths of length one.

// locate returns the list holding the instruction at path and its index there.
func locate(root *[]npc.Instruction, path []int) (*[]npc.Instruction, int, bool) {
	if len(path) == 0 {
		return nil, 0, false
	}
	list := root
	for depth, i := range path {
		if !inRange(i, len(*list)) {
			return nil, 0, false
		}
		if depth == len(path)-1 {
			return list, i, true
		}
		list = &(*list)[i].Instructions
	}
	return nil, 0, false
}

// at returns the instruction at path.
func at(d *npc.Definition, path []int) (*npc.Instruction, bool) {
	list, i, ok := locate(&d.Instructions, path)
	if !ok {
		return nil, false
	}
	return &(*list)[i], true
}

func AddInstruction(d *npc.Definition) *npc.Definition {
	return AddInstructionAt(d, nil)
}

// AddInstructionAt appends a new instruction under the instruction at parent.
// An empty parent appends to the top-level list.
func AddInstructionAt(d *npc.Definition, parent []int) *npc.Definition {
	out := d.Clone()
	if len(parent) == 0 {
		out.Instructions = append(out.Instructions, NewInstruction())
		return out
	}
	in, ok := at(out, parent)
	if !ok {
		return out
	}
	in.Instructions = append(in.Instructions, NewInstruction())
	return out
}

func RemoveInstruction(d *npc.Definition, i int) *npc.Definition {
	return RemoveInstructionAt(d, []int{i})
}

// RemoveInstructionAt deletes the instruction at path together with its
// nested instructions. The last index is clamped like any other removal; the
// indexes before it must exist.
func RemoveInstructionAt(d *npc.Definition, path []int) *npc.Definition {
	out := d.Clone()
	if len(path) == 0 {
		return out
	}
	list := &out.Instructions
	if len(path) > 1 {
		parent, ok := at(out, path[:len(path)-1])
		if !ok {
			return out
		}
		list = &parent.Instructions
	}
	if i, ok := clampRemove(path[len(path)-1], len(*list)); ok {
		*list = removeAt(*list, i)
	}
	return out
}

func UpdateInstruction(d *npc.Definition, i int, field string, value any) (*npc.Definition, error) {
	return UpdateInstructionAt(d, []int{i}, field, value)
}

// UpdateInstructionAt sets the sensor type, sensor state, sensor range or any
// member of the instruction at path. Sensor updates merge into the existing
// sensor, creating one if the instruction has none.
func UpdateInstructionAt(d *npc.Definition, path []int, field string, value any) (*npc.Definition, error) {
	out := d.Clone()
	in, ok := at(out, path)
	if !ok {
		return out, nil
	}

	switch field {
	case InstructionSensorType, InstructionSensorState, InstructionSensorRange:
		sensor := npc.Sensor{}
		if in.Sensor != nil {
			sensor = *in.Sensor
		}
		if err := setSensorMember(&sensor, field, value); err != nil {
			return d.Clone(), err
		}
		in.Sensor = &sensor
	case "":
		return d.Clone(), fmt.Errorf("%w: instruction member name is empty", npc.ErrInvalidValue)
	default:
		var updated npc.Instruction
		if err := setMember(in, field, value, &updated); err != nil {
			return d.Clone(), err
		}
		*in = updated
	}
	return out, nil
}

func setSensorMember(s *npc.Sensor, field string, value any) error {
	switch field {
	case InstructionSensorType:
		var t npc.SensorType
		if err := decodeValue(value, &t); err != nil {
			return err
		}
		s.Type = t
	case InstructionSensorState:
		var state string
		if err := decodeValue(value, &state); err != nil {
			return err
		}
		return s.Fields.Set("State", state)
	case InstructionSensorRange:
		r, err := rangeValue(value)
		if err != nil {
			return err
		}
		return s.Fields.Set("Range", r)
	}
	return nil
}

// rangeValue accepts a number or numeric text.
func rangeValue(value any) (float64, error) {
	if text, ok := value.(string); ok {
		return ParseNumber(text)
	}
	var r float64
	if err := decodeValue(value, &r); err == nil {
		return r, nil
	}
	var text string
	if err := decodeValue(value, &text); err != nil {
		return 0, err
	}
	return ParseNumber(text)
}

func AddActionToInstruction(d *npc.Definition, i int) *npc.Definition {
	return AddActionToInstructionAt(d, []int{i})
}

// AddActionToInstructionAt appends a State action on Idle.
func AddActionToInstructionAt(d *npc.Definition, path []int) *npc.Definition {
	out := d.Clone()
	in, ok := at(out, path)
	if !ok {
		return out
	}
	in.Actions = append(in.Actions, npc.IdleState())
	return out
}

func RemoveActionFromInstruction(d *npc.Definition, i, j int) *npc.Definition {
	return RemoveActionFromInstructionAt(d, []int{i}, j)
}

func RemoveActionFromInstructionAt(d *npc.Definition, path []int, j int) *npc.Definition {
	out := d.Clone()
	in, ok := at(out, path)
	if !ok {
		return out
	}
	if j, ok := clampRemove(j, len(in.Actions)); ok {
		in.Actions = removeAt(in.Actions, j)
	}
	return out
}

func UpdateInstructionAction(d *npc.Definition, i, j int, field string, value any) (*npc.Definition, error) {
	return UpdateInstructionActionAt(d, []int{i}, j, field, value)
}

func UpdateInstructionActionAt(d *npc.Definition, path []int, j int, field string, value any) (*npc.Definition, error) {
	out := d.Clone()
	in, ok := at(out, path)
	if !ok || !inRange(j, len(in.Actions)) {
		return out, nil
	}
	a, err := setActionMember(in.Actions[j], field, value)
	if err != nil {
		return d.Clone(), err
	}
	in.Actions[j] = a
	return out, nil
}
