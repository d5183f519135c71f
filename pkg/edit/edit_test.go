package edit

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

func emptyDefinition(t *testing.T) *npc.Definition {
	t.Helper()
	d, err := npc.Parse([]byte(`{"Type":"Simple"}`))
	require.NoError(t, err)
	return d
}

func roundTrip(t *testing.T, d *npc.Definition) {
	t.Helper()
	out, err := npc.Export(d)
	require.NoError(t, err)
	parsed, err := npc.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestRoundTrip_EscapedContent(t *testing.T) {
	tests := []struct {
		name string
		edit func(d *npc.Definition) (*npc.Definition, error)
		key  string
	}{
		{
			name: "html in parameter key",
			edit: func(d *npc.Definition) (*npc.Definition, error) {
				return RenameParameter(d, "MaxHealth", "Health<Max>"), nil
			},
			key: "Health<Max>",
		},
		{
			name: "control character in parameter key",
			edit: func(d *npc.Definition) (*npc.Definition, error) {
				return RenameParameter(d, "MaxHealth", "Tab\tKey"), nil
			},
			key: "Tab\tKey",
		},
		{
			name: "raw json value with html",
			edit: func(d *npc.Definition) (*npc.Definition, error) {
				return UpdateParameter(d, "EatItem", ParameterValue, json.RawMessage(`"Food<Beef>&Raw"`))
			},
			key: "EatItem",
		},
		{
			name: "description with line separator",
			edit: func(d *npc.Definition) (*npc.Definition, error) {
				return UpdateParameter(d, "EatItem", ParameterDescription, "a\u2028b & <c>")
			},
			key: "EatItem",
		},
		{
			name: "state names with html",
			edit: func(d *npc.Definition) (*npc.Definition, error) {
				d = AddStateTransition(d)
				return UpdateStateTransition(d, len(d.StateTransitions)-1, TransitionFromStates, "A<B>, C&D")
			},
		},
		{
			name: "sensor state with html",
			edit: func(d *npc.Definition) (*npc.Definition, error) {
				d = AddInstruction(d)
				return UpdateInstruction(d, len(d.Instructions)-1, InstructionSensorState, "Wait<1>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.edit(npc.Default())
			require.NoError(t, err)
			if tt.key != "" {
				assert.True(t, d.Parameters.Has(tt.key))
			}
			roundTrip(t, d)
		})
	}
}

func TestOperationsDoNotModifyInput(t *testing.T) {
	d := npc.Default()
	before, err := npc.Export(d)
	require.NoError(t, err)

	AddParameter(d)
	RemoveParameter(d, "Appearance")
	RenameParameter(d, "Appearance", "Model")
	_, _ = UpdateParameter(d, "MaxHealth", ParameterValue, 250)
	_, _ = SetField(d, "StartState", "Sleep")
	AddStateTransition(d)
	RemoveStateTransition(d, 0)
	_, _ = UpdateStateTransition(d, 0, TransitionFromStates, "Wander")
	AddActionToTransition(d, 0)
	RemoveActionFromTransition(d, 0, 0)
	_, _ = UpdateTransitionAction(d, 0, 0, "Animation", "Roar")
	AddInstruction(d)
	AddInstructionAt(d, []int{0, 0})
	RemoveInstructionAt(d, []int{0, 0})
	_, _ = UpdateInstruction(d, 0, InstructionSensorType, "Mob")
	AddActionToInstructionAt(d, []int{0, 0})
	RemoveActionFromInstructionAt(d, []int{0, 0}, 0)
	_, _ = UpdateInstructionActionAt(d, []int{0, 0}, 0, "Slot", 4)

	after, err := npc.Export(d)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestAddParameter(t *testing.T) {
	d := emptyDefinition(t)
	for range 5 {
		d = AddParameter(d)
	}
	assert.Equal(t, []string{
		"NewParameter_1", "NewParameter_2", "NewParameter_3", "NewParameter_4", "NewParameter_5",
	}, d.Parameters.Keys())

	p, ok := d.Parameters.Get("NewParameter_3")
	require.True(t, ok)
	text, ok := p.Value.Text()
	assert.True(t, ok)
	assert.Equal(t, "", text)
	assert.Equal(t, NewParameterDescription, p.Description)
	roundTrip(t, d)
}

func TestAddParameter_SkipsTakenKeys(t *testing.T) {
	d := emptyDefinition(t)
	d = AddParameter(d)
	d = RenameParameter(d, "NewParameter_1", "NewParameter_2")
	// count+1 is 2, which is taken
	d = AddParameter(d)
	assert.Equal(t, []string{"NewParameter_2", "NewParameter_3"}, d.Parameters.Keys())
}

func TestRenameParameter(t *testing.T) {
	d := npc.Default()

	tests := []struct {
		name   string
		oldKey string
		newKey string
	}{
		{"blank", "EatItem", "  "},
		{"same", "EatItem", "EatItem"},
		{"missing", "Nope", "Other"},
		{"occupied", "EatItem", "ViewRange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenameParameter(d, tt.oldKey, tt.newKey)
			assert.Equal(t, d, out)
		})
	}

	t.Run("keeps position and value", func(t *testing.T) {
		out := RenameParameter(d, "EatItem", "Food")
		keys := out.Parameters.Keys()
		assert.Equal(t, "Food", keys[3])
		assert.False(t, out.Parameters.Has("EatItem"))

		before, _ := d.Parameters.Get("EatItem")
		after, _ := out.Parameters.Get("Food")
		assert.Equal(t, before, after)
	})
}

func TestUpdateParameter(t *testing.T) {
	d := npc.Default()

	out, err := UpdateParameter(d, "MaxHealth", ParameterValue, json.RawMessage(`{"Compute":"MaxHealth"}`))
	require.NoError(t, err)
	p, _ := out.Parameters.Get("MaxHealth")
	assert.True(t, p.Value.IsCompute())

	out, err = UpdateParameter(out, "MaxHealth", ParameterDescription, "Health pool")
	require.NoError(t, err)
	p, _ = out.Parameters.Get("MaxHealth")
	assert.Equal(t, "Health pool", p.Description)

	same, err := UpdateParameter(out, "Missing", ParameterValue, 1)
	require.NoError(t, err)
	assert.Equal(t, out, same)

	_, err = UpdateParameter(out, "MaxHealth", ParameterDescription, 7)
	assert.ErrorIs(t, err, npc.ErrInvalidValue)

	_, err = UpdateParameter(out, "MaxHealth", "Label", "x")
	assert.ErrorIs(t, err, npc.ErrInvalidValue)
	roundTrip(t, out)
}

func TestSetField(t *testing.T) {
	d := npc.Default()

	out, err := SetField(d, "KnockbackScale", 1.25)
	require.NoError(t, err)
	assert.Equal(t, 1.25, out.Knockback())

	out, err = SetField(out, "Type", "Variant")
	require.NoError(t, err)
	assert.Equal(t, npc.KindVariant, out.Kind)
	assert.Empty(t, out.Reference)

	out, err = SetField(out, "AttitudeGroup", "Predators")
	require.NoError(t, err)
	assert.Equal(t, "Predators", out.Extra.String("AttitudeGroup"))

	out, err = SetField(out, "Debug", nil)
	require.NoError(t, err)
	raw, ok := out.Extra.Raw("Debug")
	require.True(t, ok)
	assert.Equal(t, "null", string(raw))

	bad, err := SetField(out, "KnockbackScale", "very")
	assert.ErrorIs(t, err, npc.ErrInvalidValue)
	assert.Equal(t, out, bad)

	_, err = SetField(out, "Parameters", []int{1})
	assert.ErrorIs(t, err, npc.ErrInvalidValue)
	roundTrip(t, out)
}

func TestVariantWithoutReference(t *testing.T) {
	d, err := SetField(npc.Default(), "Type", "Variant")
	require.NoError(t, err)

	out, err := npc.Export(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Type": "Variant"`)

	issues := npc.Validate(d)
	require.Len(t, issues, 1)
	assert.Equal(t, "/Reference", issues[0].Path)
	assert.Equal(t, npc.SeverityError, issues[0].Severity)
}

func TestStateTransitions(t *testing.T) {
	d := emptyDefinition(t)
	d = AddStateTransition(d)
	d = AddStateTransition(d)
	require.Len(t, d.StateTransitions, 2)

	tr := d.StateTransitions[0]
	assert.Equal(t, []string{"Idle"}, tr.States[0].From)
	assert.Equal(t, []string{"NewState"}, tr.States[0].To)
	require.Len(t, tr.Actions, 1)
	var anim npc.PlayAnimation
	require.NoError(t, tr.Actions[0].As(&anim))
	assert.Equal(t, npc.PlayAnimation{Slot: "Status", Animation: "Default"}, anim)

	d, err := UpdateStateTransition(d, 1, TransitionFromStates, " Idle, Wander ,, Sleep ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Idle", "Wander", "Sleep"}, d.StateTransitions[1].States[0].From)
	assert.Equal(t, []string{"NewState"}, d.StateTransitions[1].States[0].To)

	d, err = UpdateStateTransition(d, 1, TransitionToStates, json.RawMessage(`["Alert"," "]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alert"}, d.StateTransitions[1].States[0].To)

	d, err = UpdateStateTransition(d, 1, TransitionActions, json.RawMessage(`[{"Type":"Remove"}]`))
	require.NoError(t, err)
	require.Len(t, d.StateTransitions[1].Actions, 1)
	assert.Equal(t, npc.ActionRemove, d.StateTransitions[1].Actions[0].Type)

	same, err := UpdateStateTransition(d, 9, TransitionToStates, "X")
	require.NoError(t, err)
	assert.Equal(t, d, same)

	_, err = UpdateStateTransition(d, 0, "weight", 3)
	assert.ErrorIs(t, err, npc.ErrInvalidValue)
	roundTrip(t, d)
}

func TestUpdateStateTransition_CollapsesToOneStatesEntry(t *testing.T) {
	d, err := npc.Parse([]byte(`{"Type":"Simple","StateTransitions":[{"States":[{"From":["A"],"To":["B"],"Note":"x"},{"From":["C"],"To":["D"]}],"Actions":[]}]}`))
	require.NoError(t, err)

	d, err = UpdateStateTransition(d, 0, TransitionToStates, "E")
	require.NoError(t, err)
	require.Len(t, d.StateTransitions[0].States, 1)
	pair := d.StateTransitions[0].States[0]
	assert.Equal(t, []string{"A"}, pair.From)
	assert.Equal(t, []string{"E"}, pair.To)
	assert.Equal(t, "x", pair.Extra.String("Note"))
}

func TestRemoveStateTransition_Clamped(t *testing.T) {
	base := emptyDefinition(t)
	for range 4 {
		base = AddStateTransition(base)
	}
	for i := range base.StateTransitions {
		base, _ = UpdateStateTransition(base, i, TransitionToStates, fmt.Sprintf("S%d", i))
	}

	tests := []struct {
		name string
		i, j int
	}{
		{"in range", 1, 2},
		{"second past new end", 0, 3},
		{"both at end", 3, 3},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RemoveStateTransition(base, tt.i)
			assert.Len(t, d.StateTransitions, 3)
			d = RemoveStateTransition(d, tt.j)
			assert.Len(t, d.StateTransitions, 2)
		})
	}

	t.Run("shifts later entries down", func(t *testing.T) {
		d := RemoveStateTransition(base, 1)
		assert.Equal(t, []string{"S0", "S2", "S3"}, []string{
			d.StateTransitions[0].States[0].To[0],
			d.StateTransitions[1].States[0].To[0],
			d.StateTransitions[2].States[0].To[0],
		})
	})

	t.Run("clamped at zero", func(t *testing.T) {
		d := base
		for range 6 {
			d = RemoveStateTransition(d, 5)
		}
		assert.Empty(t, d.StateTransitions)
		assert.NotNil(t, d.StateTransitions)
	})
}

func TestTransitionActions(t *testing.T) {
	d := AddStateTransition(emptyDefinition(t))
	d = AddActionToTransition(d, 0)
	d = AddActionToTransition(d, 7) // no such transition
	require.Len(t, d.StateTransitions, 1)
	require.Len(t, d.StateTransitions[0].Actions, 2)

	d, err := UpdateTransitionAction(d, 0, 1, "Type", "Timeout")
	require.NoError(t, err)
	d, err = UpdateTransitionAction(d, 0, 1, "Delay", ParseDelay("1, 3"))
	require.NoError(t, err)

	a := d.StateTransitions[0].Actions[1]
	assert.Equal(t, npc.ActionTimeout, a.Type)
	// retagging keeps the PlayAnimation members
	assert.Equal(t, []string{"Slot", "Animation", "Delay"}, a.Fields.Keys())
	var timeout npc.Timeout
	require.NoError(t, a.As(&timeout))
	assert.Equal(t, npc.RangeDelay(1, 3), timeout.Delay)

	d = RemoveActionFromTransition(d, 0, 0)
	require.Len(t, d.StateTransitions[0].Actions, 1)
	assert.Equal(t, npc.ActionTimeout, d.StateTransitions[0].Actions[0].Type)

	d = RemoveActionFromTransition(d, 0, 0)
	d = RemoveActionFromTransition(d, 0, 0)
	assert.Empty(t, d.StateTransitions[0].Actions)

	_, err = UpdateTransitionAction(AddStateTransition(d), 1, 0, "Type", 12)
	assert.ErrorIs(t, err, npc.ErrInvalidValue)
	roundTrip(t, d)
}

func TestInstructions(t *testing.T) {
	d := AddInstruction(emptyDefinition(t))
	require.Len(t, d.Instructions, 1)
	in := d.Instructions[0]
	require.NotNil(t, in.Sensor)
	assert.Equal(t, npc.SensorState, in.Sensor.Type)
	assert.Equal(t, "Idle", in.Sensor.State())
	assert.NotNil(t, in.Instructions)
	assert.Empty(t, in.Instructions)

	out, err := npc.Export(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Instructions": []`)

	d, err = UpdateInstruction(d, 0, InstructionSensorType, "Mob")
	require.NoError(t, err)
	d, err = UpdateInstruction(d, 0, InstructionSensorRange, "12.5")
	require.NoError(t, err)

	s := d.Instructions[0].Sensor
	assert.Equal(t, npc.SensorMob, s.Type)
	assert.Equal(t, "Idle", s.State(), "sensor type change keeps other members")
	r, ok := s.Range()
	assert.True(t, ok)
	assert.Equal(t, 12.5, r)

	_, err = UpdateInstruction(d, 0, InstructionSensorRange, "far")
	assert.ErrorIs(t, err, npc.ErrInvalidValue)

	d, err = UpdateInstruction(d, 0, "Continue", true)
	require.NoError(t, err)
	require.NotNil(t, d.Instructions[0].Continue)
	assert.True(t, *d.Instructions[0].Continue)

	d, err = UpdateInstruction(d, 0, "Priority", 3)
	require.NoError(t, err)
	raw, _ := d.Instructions[0].Extra.Raw("Priority")
	assert.Equal(t, "3", string(raw))

	_, err = UpdateInstruction(d, 0, "Continue", "yes please")
	assert.ErrorIs(t, err, npc.ErrInvalidValue)

	d = AddActionToInstruction(d, 0)
	require.Len(t, d.Instructions[0].Actions, 1)
	var st npc.StateChange
	require.NoError(t, d.Instructions[0].Actions[0].As(&st))
	assert.Equal(t, "Idle", st.State)

	d, err = UpdateInstructionAction(d, 0, 0, "State", "Flee")
	require.NoError(t, err)
	assert.Equal(t, "Flee", d.Instructions[0].Actions[0].Fields.String("State"))

	d = RemoveActionFromInstruction(d, 0, 5)
	assert.Empty(t, d.Instructions[0].Actions)
	roundTrip(t, d)

	d = RemoveInstruction(d, 0)
	assert.Empty(t, d.Instructions)
	d = RemoveInstruction(d, 0)
	assert.Empty(t, d.Instructions)
	roundTrip(t, d)
}

func TestInstructionPaths(t *testing.T) {
	d := npc.Default()

	d = AddInstructionAt(d, []int{0, 0})
	require.Len(t, d.Instructions[0].Instructions[0].Instructions, 1)

	d = AddActionToInstructionAt(d, []int{0, 0, 0})
	d, err := UpdateInstructionActionAt(d, []int{0, 0, 0}, 0, "Type", "Inventory")
	require.NoError(t, err)
	d, err = UpdateInstructionActionAt(d, []int{0, 0, 0}, 0, "Slot", 2)
	require.NoError(t, err)
	d, err = UpdateInstructionAt(d, []int{0, 0, 0}, InstructionSensorState, "Hunt")
	require.NoError(t, err)

	leaf := d.Instructions[0].Instructions[0].Instructions[0]
	assert.Equal(t, "Hunt", leaf.Sensor.State())
	assert.Equal(t, npc.ActionInventory, leaf.Actions[0].Type)

	var paths [][]int
	d.Walk(func(path []int, _ *npc.Instruction) { paths = append(paths, path) })
	assert.Equal(t, [][]int{{0}, {0, 0}, {0, 0, 0}}, paths)
	roundTrip(t, d)

	same := AddInstructionAt(d, []int{3, 1})
	assert.Equal(t, d, same)
	same, err = UpdateInstructionAt(d, []int{0, 4}, InstructionSensorType, "Any")
	require.NoError(t, err)
	assert.Equal(t, d, same)

	d = RemoveInstructionAt(d, []int{0, 0, 9})
	assert.Empty(t, d.Instructions[0].Instructions[0].Instructions)
	d = RemoveInstructionAt(d, []int{0, 0})
	assert.Empty(t, d.Instructions[0].Instructions)
	roundTrip(t, d)
}

func TestUpdateInstruction_CreatesSensor(t *testing.T) {
	d, err := npc.Parse([]byte(`{"Type":"Simple","Instructions":[{"Reference":"Component_Idle"}]}`))
	require.NoError(t, err)

	d, err = UpdateInstruction(d, 0, InstructionSensorType, "Any")
	require.NoError(t, err)
	require.NotNil(t, d.Instructions[0].Sensor)
	assert.Equal(t, npc.SensorAny, d.Instructions[0].Sensor.Type)
	assert.Equal(t, "Component_Idle", d.Instructions[0].Reference)
}
