package npc

import (
	"reflect"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"
)

// Schema reflects the JSON Schema of a definition. Every record allows
// additional properties, matching the tolerant decoder.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		Namer:                     schemaName,
	}
	s := r.Reflect(&Definition{})
	s.Title = "NPC Definition"
	s.Description = "NPC role definition consumed by the game engine's behavior system."
	return s
}

// schemaName strips package paths from instantiated generic names so
// Map[pkg/npc.Parameter] is referenced as ParameterMap.
func schemaName(t reflect.Type) string {
	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}
	arg := strings.TrimSuffix(name[open+1:], "]")
	if dot := strings.LastIndexByte(arg, '.'); dot >= 0 {
		arg = arg[dot+1:]
	}
	return arg + name[:open]
}

func inlineSchema(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{AllowAdditionalProperties: true, DoNotReference: true}
	s := r.Reflect(v)
	s.Version = ""
	return s
}

func (Map[V]) JSONSchema() *jsonschema.Schema {
	var v V
	return &jsonschema.Schema{
		Type:                 "object",
		Description:          "Ordered mapping; keys are unique and keep their insertion order.",
		AdditionalProperties: inlineSchema(&v),
	}
}

func (Ref) JSONSchema() *jsonschema.Schema {
	props := orderedmap.New()
	props.Set("Compute", &jsonschema.Schema{Type: "string", Description: "Name of the engine-resolved field."})
	return &jsonschema.Schema{
		Description: "A literal value or a Compute reference.",
		OneOf: []*jsonschema.Schema{
			{Type: "object", Properties: props, Required: []string{"Compute"}},
			{Not: &jsonschema.Schema{Type: "object", Required: []string{"Compute"}}},
		},
	}
}

func (Fields) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func (Action) JSONSchema() *jsonschema.Schema {
	return taggedSchema("Behavior action. Members depend on Type.", ActionTypes)
}

func (Sensor) JSONSchema() *jsonschema.Schema {
	return taggedSchema("Condition that gates an instruction. Members depend on Type.", SensorTypes)
}

func taggedSchema[T ~string](description string, tags []T) *jsonschema.Schema {
	enum := make([]any, len(tags))
	for i, t := range tags {
		enum[i] = string(t)
	}
	props := orderedmap.New()
	props.Set("Type", &jsonschema.Schema{Type: "string", Enum: enum})
	return &jsonschema.Schema{
		Type:        "object",
		Description: description,
		Properties:  props,
		Required:    []string{"Type"},
	}
}
