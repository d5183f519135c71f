package edit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

func text(s string) *string { return &s }

func TestCommand_Apply(t *testing.T) {
	d := npc.Default()

	tests := []struct {
		name  string
		cmd   string
		check func(t *testing.T, out *npc.Definition)
	}{
		{
			name: "setField with JSON value",
			cmd:  `{"op":"setField","field":"StartState","value":"Sleep"}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.Equal(t, "Sleep", out.StartState)
			},
		},
		{
			name: "setField with text coerced to number",
			cmd:  `{"op":"setField","field":"KnockbackScale","text":"0.75"}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.Equal(t, 0.75, out.Knockback())
			},
		},
		{
			name: "addParameter",
			cmd:  `{"op":"addParameter"}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.True(t, out.Parameters.Has("NewParameter_12"))
			},
		},
		{
			name: "renameParameter",
			cmd:  `{"op":"renameParameter","key":"EatItem","new_key":"Food"}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.True(t, out.Parameters.Has("Food"))
			},
		},
		{
			name: "updateParameter with JSON text",
			cmd:  `{"op":"updateParameter","key":"MaxHealth","field":"Value","text":"{\"Compute\": \"MaxHealth\"}"}`,
			check: func(t *testing.T, out *npc.Definition) {
				p, _ := out.Parameters.Get("MaxHealth")
				assert.Equal(t, "MaxHealth", p.Value.Compute)
			},
		},
		{
			name: "updateParameter with text that is not JSON",
			cmd:  `{"op":"updateParameter","key":"MaxHealth","field":"Value","text":"{\"Compute\": "}`,
			check: func(t *testing.T, out *npc.Definition) {
				p, _ := out.Parameters.Get("MaxHealth")
				s, ok := p.Value.Text()
				assert.True(t, ok)
				assert.Equal(t, `{"Compute": `, s)
			},
		},
		{
			name: "updateStateTransition with text",
			cmd:  `{"op":"updateStateTransition","index":0,"field":"fromStates","text":"Idle, Wander"}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.Equal(t, []string{"Idle", "Wander"}, out.StateTransitions[0].States[0].From)
			},
		},
		{
			name: "updateTransitionAction delay text",
			cmd:  `{"op":"updateTransitionAction","index":0,"action_index":1,"field":"Delay","text":"2"}`,
			check: func(t *testing.T, out *npc.Definition) {
				raw, _ := out.StateTransitions[0].Actions[1].Fields.Raw("Delay")
				assert.Equal(t, "2", string(raw))
			},
		},
		{
			name: "removeActionFromTransition",
			cmd:  `{"op":"removeActionFromTransition","index":0,"action_index":0}`,
			check: func(t *testing.T, out *npc.Definition) {
				require.Len(t, out.StateTransitions[0].Actions, 1)
				assert.Equal(t, npc.ActionTimeout, out.StateTransitions[0].Actions[0].Type)
			},
		},
		{
			name: "addInstruction under a parent",
			cmd:  `{"op":"addInstruction","path":[0]}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.Len(t, out.Instructions, 1)
				assert.Len(t, out.Instructions[0].Instructions, 2)
			},
		},
		{
			name: "updateInstruction sensor range text",
			cmd:  `{"op":"updateInstruction","index":0,"field":"sensorRange","text":"7"}`,
			check: func(t *testing.T, out *npc.Definition) {
				r, ok := out.Instructions[0].Sensor.Range()
				assert.True(t, ok)
				assert.Equal(t, 7.0, r)
			},
		},
		{
			name: "updateInstruction member text",
			cmd:  `{"op":"updateInstruction","path":[0,0],"field":"ActionsBlocking","text":"true"}`,
			check: func(t *testing.T, out *npc.Definition) {
				require.NotNil(t, out.Instructions[0].Instructions[0].ActionsBlocking)
				assert.True(t, *out.Instructions[0].Instructions[0].ActionsBlocking)
			},
		},
		{
			name: "updateInstructionAction slot text",
			cmd:  `{"op":"updateInstructionAction","path":[0,0],"action_index":0,"field":"Slot","text":"3"}`,
			check: func(t *testing.T, out *npc.Definition) {
				var inv npc.Inventory
				require.NoError(t, out.Instructions[0].Instructions[0].Actions[0].As(&inv))
				assert.Equal(t, 3, inv.Slot)
			},
		},
		{
			name: "removeInstruction",
			cmd:  `{"op":"removeInstruction","index":0}`,
			check: func(t *testing.T, out *npc.Definition) {
				assert.Empty(t, out.Instructions)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			require.NoError(t, json.Unmarshal([]byte(tt.cmd), &cmd))

			out, err := cmd.Apply(d)
			require.NoError(t, err)
			tt.check(t, out)
			roundTrip(t, out)
		})
	}
}

func TestCommand_Errors(t *testing.T) {
	d := npc.Default()

	_, err := Command{Op: "explode"}.Apply(d)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = Command{Op: OpUpdateInstructionAction, ActionIndex: 0, Path: []int{0, 0}, Field: "Slot", Text: text("left")}.Apply(d)
	assert.ErrorIs(t, err, npc.ErrInvalidValue)

	_, err = Command{Op: OpSetField, Field: "Type", Value: json.RawMessage(`[1]`)}.Apply(d)
	assert.ErrorIs(t, err, npc.ErrInvalidValue)
}

func TestOperations_AllDispatch(t *testing.T) {
	d := npc.Default()
	for _, op := range Operations {
		_, err := Command{Op: op}.Apply(d)
		assert.NotErrorIs(t, err, ErrUnknownOperation, op)
	}
}
