package npc

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "Definition", schemaName(reflect.TypeOf(Definition{})))
	assert.Equal(t, "ParameterMap", schemaName(reflect.TypeOf(Map[Parameter]{})))
	assert.Equal(t, "InteractionVarMap", schemaName(reflect.TypeOf(Map[InteractionVar]{})))
}

func TestSchema(t *testing.T) {
	s := Schema()
	assert.Equal(t, "NPC Definition", s.Title)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Parameters"`)
	assert.Contains(t, string(data), `"PlayAnimation"`)
}
