package npc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ActionType tags an Action.
type ActionType string

const (
	ActionPlayAnimation ActionType = "PlayAnimation"
	ActionTimeout       ActionType = "Timeout"
	ActionInventory     ActionType = "Inventory"
	ActionBeacon        ActionType = "Beacon"
	ActionState         ActionType = "State"
	ActionAttack        ActionType = "Attack"
	ActionRemove        ActionType = "Remove"
)

// ActionTypes lists the known action tags in menu order.
var ActionTypes = []ActionType{
	ActionPlayAnimation, ActionTimeout, ActionInventory, ActionBeacon,
	ActionState, ActionAttack, ActionRemove,
}

// SensorType tags a Sensor.
type SensorType string

const (
	SensorState  SensorType = "State"
	SensorTarget SensorType = "Target"
	SensorDamage SensorType = "Damage"
	SensorMob    SensorType = "Mob"
	SensorAny    SensorType = "Any"
	SensorAnd    SensorType = "And"
	SensorOr     SensorType = "Or"
	SensorBeacon SensorType = "Beacon"
)

var SensorTypes = []SensorType{
	SensorState, SensorTarget, SensorDamage, SensorMob,
	SensorAny, SensorAnd, SensorOr, SensorBeacon,
}

// InventoryOperation is the operation of an Inventory action.
type InventoryOperation string

const (
	InventorySetHotbar   InventoryOperation = "SetHotbar"
	InventoryEquipHotbar InventoryOperation = "EquipHotbar"
)

// Action is one behavior-engine operation. Type selects which members are
// meaningful; Fields holds every other member, including ones left over from a
// previous Type.
type Action struct {
	Type   ActionType
	Fields Fields
}

// Sensor gates whether an instruction's actions run.
type Sensor struct {
	Type   SensorType
	Fields Fields
}

func (a Action) Clone() Action {
	return Action{Type: a.Type, Fields: a.Fields.Clone()}
}

func (s Sensor) Clone() Sensor {
	return Sensor{Type: s.Type, Fields: s.Fields.Clone()}
}

func (a Action) MarshalJSON() ([]byte, error) {
	return writeObject([]member{{key: "Type", value: a.Type, omit: a.Type == ""}}, a.Fields)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var out Action
	fields, err := readObject(data, map[string]any{"Type": &out.Type})
	if err != nil {
		return fmt.Errorf("action: %w", err)
	}
	out.Fields = fields
	*a = out
	return nil
}

func (s Sensor) MarshalJSON() ([]byte, error) {
	return writeObject([]member{{key: "Type", value: s.Type, omit: s.Type == ""}}, s.Fields)
}

func (s *Sensor) UnmarshalJSON(data []byte) error {
	var out Sensor
	fields, err := readObject(data, map[string]any{"Type": &out.Type})
	if err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	out.Fields = fields
	*s = out
	return nil
}

// Typed views of the members each action tag defines.

type PlayAnimation struct {
	Slot      string `json:"Slot"`
	Animation string `json:"Animation"`
}

type Timeout struct {
	Delay Delay `json:"Delay"`
}

type Inventory struct {
	Operation InventoryOperation `json:"Operation"`
	Slot      int                `json:"Slot"`
	UseTarget *bool              `json:"UseTarget,omitempty"`
}

type Beacon struct {
	Message      string          `json:"Message"`
	TargetGroups json.RawMessage `json:"TargetGroups,omitempty"`
}

type StateChange struct {
	State string `json:"State"`
}

type Attack struct {
	Attack string `json:"Attack"`
}

// Delay is a Timeout delay: a fixed number of seconds or a [min, max] range.
type Delay struct {
	Min   float64
	Max   float64
	Range bool
}

// FixedDelay returns a delay of exactly d.
func FixedDelay(d float64) Delay {
	return Delay{Min: d, Max: d}
}

// RangeDelay returns a delay chosen between lo and hi.
func RangeDelay(lo, hi float64) Delay {
	return Delay{Min: lo, Max: hi, Range: true}
}

func (d Delay) MarshalJSON() ([]byte, error) {
	if d.Range {
		return json.Marshal([2]float64{d.Min, d.Max})
	}
	return json.Marshal(d.Min)
}

func (d *Delay) UnmarshalJSON(data []byte) error {
	var single float64
	if err := json.Unmarshal(data, &single); err == nil {
		*d = FixedDelay(single)
		return nil
	}
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("delay must be a number or a [min, max] pair")
	}
	if len(pair) != 2 {
		return fmt.Errorf("delay range needs exactly 2 values, got %d", len(pair))
	}
	*d = RangeDelay(pair[0], pair[1])
	return nil
}

func (d Delay) String() string {
	if d.Range {
		return strconv.FormatFloat(d.Min, 'g', -1, 64) + ", " + strconv.FormatFloat(d.Max, 'g', -1, 64)
	}
	return strconv.FormatFloat(d.Min, 'g', -1, 64)
}

// NewAction builds an action of type t from a typed body such as PlayAnimation.
// A nil body produces an action with no members besides Type.
func NewAction(t ActionType, body any) (Action, error) {
	a := Action{Type: t}
	if body == nil {
		return a, nil
	}
	fields, err := fieldsOf(body)
	if err != nil {
		return Action{}, fmt.Errorf("action %s: %w", t, err)
	}
	a.Fields = fields
	return a, nil
}

// NewSensor builds a sensor of type t from a typed body.
func NewSensor(t SensorType, body any) (Sensor, error) {
	s := Sensor{Type: t}
	if body == nil {
		return s, nil
	}
	fields, err := fieldsOf(body)
	if err != nil {
		return Sensor{}, fmt.Errorf("sensor %s: %w", t, err)
	}
	s.Fields = fields
	return s, nil
}

func fieldsOf(body any) (Fields, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Fields{}, err
	}
	return readObject(raw, nil)
}

// DefaultAnimation is the action a new transition starts with.
func DefaultAnimation() Action {
	a, _ := NewAction(ActionPlayAnimation, PlayAnimation{Slot: "Status", Animation: "Default"})
	return a
}

// IdleState is the action a new instruction action starts with.
func IdleState() Action {
	a, _ := NewAction(ActionState, StateChange{State: "Idle"})
	return a
}

// As decodes the action's members into the typed view v, checking that the
// members the action's type requires are present.
func (a Action) As(v any) error {
	for _, key := range requiredActionFields[a.Type] {
		if !a.Fields.Has(key) {
			return fmt.Errorf("%s action requires %s", a.Type, key)
		}
	}
	if err := a.Fields.Decode(v); err != nil {
		return fmt.Errorf("%s action: %w", a.Type, err)
	}
	return nil
}

var requiredActionFields = map[ActionType][]string{
	ActionPlayAnimation: {"Slot", "Animation"},
	ActionTimeout:       {"Delay"},
	ActionInventory:     {"Operation", "Slot"},
	ActionBeacon:        {"Message"},
	ActionState:         {"State"},
	ActionAttack:        {"Attack"},
}

var requiredSensorFields = map[SensorType][]string{
	SensorState:  {"State"},
	SensorTarget: {"Range"},
	SensorMob:    {"Range"},
}

// Range returns a Target or Mob sensor's range.
func (s Sensor) Range() (float64, bool) {
	var r float64
	if ok, err := s.Fields.Get("Range", &r); !ok || err != nil {
		return 0, false
	}
	return r, true
}

// State returns the state a State sensor watches.
func (s Sensor) State() string {
	return s.Fields.String("State")
}

// Summary is a one-line description used by list views.
func (a Action) Summary() string {
	var parts []string
	for _, k := range a.Fields.keys {
		parts = append(parts, k+"="+string(a.Fields.raw[k]))
	}
	if len(parts) == 0 {
		return string(a.Type)
	}
	return string(a.Type) + " " + strings.Join(parts, " ")
}
