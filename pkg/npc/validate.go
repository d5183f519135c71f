package npc

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found by Validate. Path is a JSON-pointer-like location
// such as /Instructions/0/Actions/1.
type Issue struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// Validate reports problems that would make the game engine reject or misread
// the definition. It never modifies the definition, and editing and export
// proceed regardless of what it finds.
func Validate(d *Definition) []Issue {
	v := &validator{}

	switch d.Kind {
	case KindAbstract, KindSimple:
		if d.Kind == KindSimple && d.Reference != "" {
			v.errorf("/Reference", "a Simple definition must not carry a Reference")
		}
	case KindVariant:
		if strings.TrimSpace(d.Reference) == "" {
			v.errorf("/Reference", "a Variant definition requires the name of the template it extends")
		}
	case "":
		v.errorf("/Type", "Type is required")
	default:
		v.errorf("/Type", "unknown Type %q", d.Kind)
	}

	if d.DefaultPlayerAttitude != "" && !slices.Contains(Attitudes, d.DefaultPlayerAttitude) {
		v.errorf("/DefaultPlayerAttitude", "unknown attitude %q", d.DefaultPlayerAttitude)
	}
	if d.DefaultNPCAttitude != "" && !slices.Contains(Attitudes, d.DefaultNPCAttitude) {
		v.errorf("/DefaultNPCAttitude", "unknown attitude %q", d.DefaultNPCAttitude)
	}
	if d.KnockbackScale != nil && *d.KnockbackScale < 0 {
		v.errorf("/KnockbackScale", "must not be negative, got %g", *d.KnockbackScale)
	}

	for key := range d.Parameters.All {
		if strings.TrimSpace(key) == "" {
			v.errorf("/Parameters", "parameter names must not be blank")
		}
	}

	for i, mc := range d.MotionControllers {
		if mc.Type == "" {
			v.errorf(fmt.Sprintf("/MotionControllerList/%d/Type", i), "Type is required")
		}
	}

	states := make(map[string]bool)
	for i, t := range d.StateTransitions {
		base := fmt.Sprintf("/StateTransitions/%d", i)
		if len(t.States) == 0 {
			v.errorf(base+"/States", "a transition needs a States entry")
		}
		for j, pair := range t.States {
			if len(pair.From) == 0 && len(pair.To) == 0 {
				v.warnf(fmt.Sprintf("%s/States/%d", base, j), "transition lists no states")
			}
			for _, s := range pair.From {
				states[s] = true
			}
			for _, s := range pair.To {
				states[s] = true
			}
		}
		for j, a := range t.Actions {
			v.action(fmt.Sprintf("%s/Actions/%d", base, j), a, states)
		}
	}

	d.Walk(func(path []int, in *Instruction) {
		base := instructionPath(path)
		if in.Sensor != nil {
			v.sensor(base+"/Sensor", *in.Sensor, states)
		}
		for j, a := range in.Actions {
			v.action(fmt.Sprintf("%s/Actions/%d", base, j), a, states)
		}
	})

	if d.StartState != "" && len(states) > 0 && !states[d.StartState] {
		v.warnf("/StartState", "state %q is not used by any transition or sensor", d.StartState)
	}
	return v.issues
}

func instructionPath(path []int) string {
	var b strings.Builder
	for _, i := range path {
		b.WriteString("/Instructions/")
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

type validator struct {
	issues []Issue
}

func (v *validator) errorf(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (v *validator) warnf(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

func (v *validator) action(path string, a Action, states map[string]bool) {
	if a.Type == "" {
		v.errorf(path+"/Type", "Type is required")
		return
	}
	if !slices.Contains(ActionTypes, a.Type) {
		v.warnf(path+"/Type", "unrecognized action type %q", a.Type)
		return
	}
	for _, key := range requiredActionFields[a.Type] {
		if !a.Fields.Has(key) {
			v.errorf(path, "%s action requires %s", a.Type, key)
		}
	}

	switch a.Type {
	case ActionTimeout:
		var d Delay
		if _, err := a.Fields.Get("Delay", &d); err != nil {
			v.errorf(path+"/Delay", "%v", err)
		} else if d.Range && d.Min > d.Max {
			v.warnf(path+"/Delay", "range minimum %g exceeds maximum %g", d.Min, d.Max)
		}
	case ActionInventory:
		op := InventoryOperation(a.Fields.String("Operation"))
		if a.Fields.Has("Operation") && op != InventorySetHotbar && op != InventoryEquipHotbar {
			v.errorf(path+"/Operation", "unknown inventory operation %q", op)
		}
		var slot int
		if _, err := a.Fields.Get("Slot", &slot); err != nil {
			v.errorf(path+"/Slot", "slot must be an integer")
		}
	case ActionState:
		if s := a.Fields.String("State"); s != "" {
			states[s] = true
		}
	}
}

func (v *validator) sensor(path string, s Sensor, states map[string]bool) {
	if s.Type == "" {
		v.errorf(path+"/Type", "Type is required")
		return
	}
	if !slices.Contains(SensorTypes, s.Type) {
		v.warnf(path+"/Type", "unrecognized sensor type %q", s.Type)
		return
	}
	for _, key := range requiredSensorFields[s.Type] {
		if !s.Fields.Has(key) {
			v.errorf(path, "%s sensor requires %s", s.Type, key)
		}
	}
	switch s.Type {
	case SensorState:
		if st := s.State(); st != "" {
			states[st] = true
		}
	case SensorTarget, SensorMob:
		if s.Fields.Has("Range") {
			if _, ok := s.Range(); !ok {
				v.errorf(path+"/Range", "range must be a number")
			}
		}
	}
}
