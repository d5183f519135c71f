package npc

import (
	"fmt"
	"slices"
)

// Kind is the definition's role: a template, a variant of a template, or a
// self-contained NPC.
type Kind string

const (
	KindAbstract Kind = "Abstract"
	KindVariant  Kind = "Variant"
	KindSimple   Kind = "Simple"
)

var Kinds = []Kind{KindAbstract, KindVariant, KindSimple}

// Attitude is an NPC's default disposition toward players or other NPCs.
type Attitude string

const (
	AttitudeHostile  Attitude = "Hostile"
	AttitudeFriendly Attitude = "Friendly"
	AttitudeNeutral  Attitude = "Neutral"
	AttitudeIgnore   Attitude = "Ignore"
)

var Attitudes = []Attitude{AttitudeHostile, AttitudeFriendly, AttitudeNeutral, AttitudeIgnore}

// DefaultKnockbackScale applies when a definition does not set KnockbackScale.
const DefaultKnockbackScale = 0.5

// NameTranslationKeyParam is the parameter whose value names the NPC.
const NameTranslationKeyParam = "NameTranslationKey"

// Wire names of the definition's known members, in export order.
const (
	FieldComment               = "$Comment"
	FieldKind                  = "Type"
	FieldReference             = "Reference"
	FieldParameters            = "Parameters"
	FieldStartState            = "StartState"
	FieldDefaultPlayerAttitude = "DefaultPlayerAttitude"
	FieldDefaultNPCAttitude    = "DefaultNPCAttitude"
	FieldKnockbackScale        = "KnockbackScale"
	FieldMotionControllers     = "MotionControllerList"
	FieldInteractionVars       = "InteractionVars"
	FieldStateTransitions      = "StateTransitions"
	FieldInstructions          = "Instructions"
	FieldNameTranslationKey    = "NameTranslationKey"
)

// Definition is an NPC role definition as consumed by the game engine.
// Members the model does not name, such as Debug or Appearance, are kept in
// Extra and exported after the known ones.
type Definition struct {
	Comment               string                 `json:"$Comment,omitempty"`
	Kind                  Kind                   `json:"Type" jsonschema:"enum=Abstract,enum=Variant,enum=Simple"`
	Reference             string                 `json:"Reference,omitempty"`
	Parameters            Map[Parameter]         `json:"Parameters"`
	StartState            string                 `json:"StartState,omitempty"`
	DefaultPlayerAttitude Attitude               `json:"DefaultPlayerAttitude,omitempty" jsonschema:"enum=Hostile,enum=Friendly,enum=Neutral,enum=Ignore"`
	DefaultNPCAttitude    Attitude               `json:"DefaultNPCAttitude,omitempty" jsonschema:"enum=Hostile,enum=Friendly,enum=Neutral,enum=Ignore"`
	KnockbackScale        *float64               `json:"KnockbackScale,omitempty" jsonschema:"minimum=0,default=0.5"`
	MotionControllers     []MotionController     `json:"MotionControllerList"`
	InteractionVars       Map[InteractionVar]    `json:"InteractionVars"`
	StateTransitions      []StateTransition      `json:"StateTransitions"`
	Instructions          []Instruction          `json:"Instructions"`
	NameTranslationKey    *Ref                   `json:"NameTranslationKey,omitempty"`
	Extra                 Fields                 `json:"-"`
}

// Parameter is a named, described value the rest of the definition refers to.
type Parameter struct {
	Value       Ref    `json:"Value"`
	Description string `json:"Description"`
	Extra       Fields `json:"-"`
}

// MotionController configures one movement mode.
type MotionController struct {
	Type         string   `json:"Type"`
	MaxWalkSpeed *float64 `json:"MaxWalkSpeed,omitempty"`
	Gravity      *float64 `json:"Gravity,omitempty"`
	MaxFallSpeed *float64 `json:"MaxFallSpeed,omitempty"`
	Acceleration *float64 `json:"Acceleration,omitempty"`
	Extra        Fields   `json:"-"`
}

// InteractionVar is a named list of interactions, such as a melee damage profile.
type InteractionVar struct {
	Interactions []Interaction `json:"Interactions"`
	Extra        Fields        `json:"-"`
}

// Interaction is an open record; by convention it names a Parent interaction
// and a Type.
type Interaction struct {
	Fields
}

func (i Interaction) Parent() string { return i.Fields.String("Parent") }
func (i Interaction) Type() string   { return i.Fields.String("Type") }

// StatePair lists the state changes that trigger a transition.
type StatePair struct {
	From  []string `json:"From"`
	To    []string `json:"To"`
	Extra Fields   `json:"-"`
}

// StateTransition runs Actions when the NPC changes between the listed states.
// States is a list on the wire, but editors maintain exactly one entry.
type StateTransition struct {
	States  []StatePair `json:"States"`
	Actions []Action    `json:"Actions"`
	Extra   Fields      `json:"-"`
}

// Instruction is a node of the behavior tree. When its Sensor matches, its
// Actions run and its nested Instructions are evaluated.
type Instruction struct {
	Sensor          *Sensor       `json:"Sensor,omitempty"`
	Instructions    []Instruction `json:"Instructions,omitempty"`
	Actions         []Action      `json:"Actions,omitempty"`
	Continue        *bool         `json:"Continue,omitempty"`
	ActionsBlocking *bool         `json:"ActionsBlocking,omitempty"`
	Reference       string        `json:"Reference,omitempty"`
	Extra           Fields        `json:"-"`
}

// Knockback returns KnockbackScale or its default.
func (d *Definition) Knockback() float64 {
	if d.KnockbackScale == nil {
		return DefaultKnockbackScale
	}
	return *d.KnockbackScale
}

// Normalize gives every top-level collection a non-nil empty value.
func (d *Definition) Normalize() {
	d.Parameters.normalize()
	d.InteractionVars.normalize()
	if d.MotionControllers == nil {
		d.MotionControllers = []MotionController{}
	}
	if d.StateTransitions == nil {
		d.StateTransitions = []StateTransition{}
	}
	if d.Instructions == nil {
		d.Instructions = []Instruction{}
	}
}

// Clone returns a deep, normalized copy.
func (d *Definition) Clone() *Definition {
	out := &Definition{
		Comment:               d.Comment,
		Kind:                  d.Kind,
		Reference:             d.Reference,
		Parameters:            d.Parameters.Clone(Parameter.Clone),
		StartState:            d.StartState,
		DefaultPlayerAttitude: d.DefaultPlayerAttitude,
		DefaultNPCAttitude:    d.DefaultNPCAttitude,
		KnockbackScale:        clonePtr(d.KnockbackScale),
		MotionControllers:     cloneSlice(d.MotionControllers, MotionController.Clone),
		InteractionVars:       d.InteractionVars.Clone(InteractionVar.Clone),
		StateTransitions:      cloneSlice(d.StateTransitions, StateTransition.Clone),
		Instructions:          cloneSlice(d.Instructions, Instruction.Clone),
		Extra:                 d.Extra.Clone(),
	}
	if d.NameTranslationKey != nil {
		ref := d.NameTranslationKey.Clone()
		out.NameTranslationKey = &ref
	}
	out.Normalize()
	return out
}

func (p Parameter) Clone() Parameter {
	return Parameter{Value: p.Value.Clone(), Description: p.Description, Extra: p.Extra.Clone()}
}

func (m MotionController) Clone() MotionController {
	return MotionController{
		Type:         m.Type,
		MaxWalkSpeed: clonePtr(m.MaxWalkSpeed),
		Gravity:      clonePtr(m.Gravity),
		MaxFallSpeed: clonePtr(m.MaxFallSpeed),
		Acceleration: clonePtr(m.Acceleration),
		Extra:        m.Extra.Clone(),
	}
}

func (v InteractionVar) Clone() InteractionVar {
	return InteractionVar{
		Interactions: cloneSlice(v.Interactions, func(i Interaction) Interaction {
			return Interaction{Fields: i.Fields.Clone()}
		}),
		Extra: v.Extra.Clone(),
	}
}

func (p StatePair) Clone() StatePair {
	return StatePair{From: slices.Clone(p.From), To: slices.Clone(p.To), Extra: p.Extra.Clone()}
}

func (t StateTransition) Clone() StateTransition {
	return StateTransition{
		States:  cloneSlice(t.States, StatePair.Clone),
		Actions: cloneSlice(t.Actions, Action.Clone),
		Extra:   t.Extra.Clone(),
	}
}

func (in Instruction) Clone() Instruction {
	out := Instruction{
		Instructions:    cloneSlice(in.Instructions, Instruction.Clone),
		Actions:         cloneSlice(in.Actions, Action.Clone),
		Continue:        clonePtr(in.Continue),
		ActionsBlocking: clonePtr(in.ActionsBlocking),
		Reference:       in.Reference,
		Extra:           in.Extra.Clone(),
	}
	if in.Sensor != nil {
		s := in.Sensor.Clone()
		out.Sensor = &s
	}
	return out
}

// Walk visits every instruction depth-first with its path of indexes from the root.
func (d *Definition) Walk(visit func(path []int, in *Instruction)) {
	var walk func(prefix []int, list []Instruction)
	walk = func(prefix []int, list []Instruction) {
		for i := range list {
			path := append(slices.Clone(prefix), i)
			visit(path, &list[i])
			walk(path, list[i].Instructions)
		}
	}
	walk(nil, d.Instructions)
}

// JSON encoding. Each record writes its known members in a fixed order and then
// its extra members in the order they were read.

func (d Definition) MarshalJSON() ([]byte, error) {
	d.Normalize()
	return writeObject([]member{
		{key: FieldComment, value: d.Comment, omit: d.Comment == ""},
		{key: FieldKind, value: d.Kind},
		{key: FieldReference, value: d.Reference, omit: d.Reference == ""},
		{key: FieldParameters, value: d.Parameters},
		{key: FieldStartState, value: d.StartState, omit: d.StartState == ""},
		{key: FieldDefaultPlayerAttitude, value: d.DefaultPlayerAttitude, omit: d.DefaultPlayerAttitude == ""},
		{key: FieldDefaultNPCAttitude, value: d.DefaultNPCAttitude, omit: d.DefaultNPCAttitude == ""},
		{key: FieldKnockbackScale, value: d.KnockbackScale, omit: d.KnockbackScale == nil},
		{key: FieldMotionControllers, value: d.MotionControllers},
		{key: FieldInteractionVars, value: d.InteractionVars},
		{key: FieldStateTransitions, value: d.StateTransitions},
		{key: FieldInstructions, value: d.Instructions},
		{key: FieldNameTranslationKey, value: d.NameTranslationKey, omit: d.NameTranslationKey == nil},
	}, d.Extra)
}

func (d *Definition) UnmarshalJSON(data []byte) error {
	var out Definition
	extra, err := readObject(data, map[string]any{
		FieldComment:               &out.Comment,
		FieldKind:                  &out.Kind,
		FieldReference:             &out.Reference,
		FieldParameters:            &out.Parameters,
		FieldStartState:            &out.StartState,
		FieldDefaultPlayerAttitude: &out.DefaultPlayerAttitude,
		FieldDefaultNPCAttitude:    &out.DefaultNPCAttitude,
		FieldKnockbackScale:        &out.KnockbackScale,
		FieldMotionControllers:     &out.MotionControllers,
		FieldInteractionVars:       &out.InteractionVars,
		FieldStateTransitions:      &out.StateTransitions,
		FieldInstructions:          &out.Instructions,
		FieldNameTranslationKey:    &out.NameTranslationKey,
	})
	if err != nil {
		return err
	}
	out.Extra = extra
	out.Normalize()
	*d = out
	return nil
}

func (p Parameter) MarshalJSON() ([]byte, error) {
	return writeObject([]member{
		{key: "Value", value: p.Value},
		{key: "Description", value: p.Description},
	}, p.Extra)
}

func (p *Parameter) UnmarshalJSON(data []byte) error {
	var out Parameter
	extra, err := readObject(data, map[string]any{
		"Value":       &out.Value,
		"Description": &out.Description,
	})
	if err != nil {
		return fmt.Errorf("parameter: %w", err)
	}
	out.Extra = extra
	*p = out
	return nil
}

func (m MotionController) MarshalJSON() ([]byte, error) {
	return writeObject([]member{
		{key: "Type", value: m.Type},
		{key: "MaxWalkSpeed", value: m.MaxWalkSpeed, omit: m.MaxWalkSpeed == nil},
		{key: "Gravity", value: m.Gravity, omit: m.Gravity == nil},
		{key: "MaxFallSpeed", value: m.MaxFallSpeed, omit: m.MaxFallSpeed == nil},
		{key: "Acceleration", value: m.Acceleration, omit: m.Acceleration == nil},
	}, m.Extra)
}

func (m *MotionController) UnmarshalJSON(data []byte) error {
	var out MotionController
	extra, err := readObject(data, map[string]any{
		"Type":         &out.Type,
		"MaxWalkSpeed": &out.MaxWalkSpeed,
		"Gravity":      &out.Gravity,
		"MaxFallSpeed": &out.MaxFallSpeed,
		"Acceleration": &out.Acceleration,
	})
	if err != nil {
		return fmt.Errorf("motion controller: %w", err)
	}
	out.Extra = extra
	*m = out
	return nil
}

func (v InteractionVar) MarshalJSON() ([]byte, error) {
	interactions := v.Interactions
	if interactions == nil {
		interactions = []Interaction{}
	}
	return writeObject([]member{{key: "Interactions", value: interactions}}, v.Extra)
}

func (v *InteractionVar) UnmarshalJSON(data []byte) error {
	var out InteractionVar
	extra, err := readObject(data, map[string]any{"Interactions": &out.Interactions})
	if err != nil {
		return fmt.Errorf("interaction var: %w", err)
	}
	if out.Interactions == nil {
		out.Interactions = []Interaction{}
	}
	out.Extra = extra
	*v = out
	return nil
}

func (p StatePair) MarshalJSON() ([]byte, error) {
	return writeObject([]member{
		{key: "From", value: nonNil(p.From)},
		{key: "To", value: nonNil(p.To)},
	}, p.Extra)
}

func (p *StatePair) UnmarshalJSON(data []byte) error {
	var out StatePair
	extra, err := readObject(data, map[string]any{"From": &out.From, "To": &out.To})
	if err != nil {
		return fmt.Errorf("states: %w", err)
	}
	out.From = nonNil(out.From)
	out.To = nonNil(out.To)
	out.Extra = extra
	*p = out
	return nil
}

func (t StateTransition) MarshalJSON() ([]byte, error) {
	return writeObject([]member{
		{key: "States", value: nonNil(t.States)},
		{key: "Actions", value: nonNil(t.Actions)},
	}, t.Extra)
}

func (t *StateTransition) UnmarshalJSON(data []byte) error {
	var out StateTransition
	extra, err := readObject(data, map[string]any{"States": &out.States, "Actions": &out.Actions})
	if err != nil {
		return fmt.Errorf("state transition: %w", err)
	}
	out.States = nonNil(out.States)
	out.Actions = nonNil(out.Actions)
	out.Extra = extra
	*t = out
	return nil
}

// Instruction members that are nil are omitted; empty lists are written as [].
func (in Instruction) MarshalJSON() ([]byte, error) {
	return writeObject([]member{
		{key: "Sensor", value: in.Sensor, omit: in.Sensor == nil},
		{key: "Instructions", value: in.Instructions, omit: in.Instructions == nil},
		{key: "Actions", value: in.Actions, omit: in.Actions == nil},
		{key: "Continue", value: in.Continue, omit: in.Continue == nil},
		{key: "ActionsBlocking", value: in.ActionsBlocking, omit: in.ActionsBlocking == nil},
		{key: "Reference", value: in.Reference, omit: in.Reference == ""},
	}, in.Extra)
}

func (in *Instruction) UnmarshalJSON(data []byte) error {
	var out Instruction
	extra, err := readObject(data, map[string]any{
		"Sensor":          &out.Sensor,
		"Instructions":    &out.Instructions,
		"Actions":         &out.Actions,
		"Continue":        &out.Continue,
		"ActionsBlocking": &out.ActionsBlocking,
		"Reference":       &out.Reference,
	})
	if err != nil {
		return fmt.Errorf("instruction: %w", err)
	}
	out.Extra = extra
	*in = out
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func cloneSlice[T any](s []T, clone func(T) T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = clone(v)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
