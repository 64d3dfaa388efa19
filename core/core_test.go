package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeID(t *testing.T) {
	id, err := ParseTypeID("logical__and")
	require.NoError(t, err)
	assert.Equal(t, NewTypeID("logical", "and"), id)
	assert.Equal(t, "logical__and", id.String())

	for _, bad := range []string{"", "logical", "__and", "logical__"} {
		_, err := ParseTypeID(bad)
		assert.Error(t, err, bad)
	}
}

func TestEntityTypeID_Matches(t *testing.T) {
	num := NewEntityTypeID("arith", "number")
	wild := NewEntityTypeID("arith", Wildcard)

	assert.True(t, num.Matches(num))
	assert.False(t, num.Matches(NewEntityTypeID("arith", "string")))
	assert.True(t, wild.Matches(num))
	assert.True(t, EntityTypeID{}.Matches(num))
}

func TestPropertyType_Diverges(t *testing.T) {
	base := NewPropertyType("p", DataTypeString)

	tests := []struct {
		name    string
		other   PropertyType
		diverge bool
	}{
		{name: "identical", other: base, diverge: false},
		{name: "description differs", other: PropertyType{Name: "p", DataType: DataTypeString, Description: "x"}, diverge: false},
		{name: "data type", other: NewPropertyType("p", DataTypeNumber), diverge: true},
		{name: "socket", other: InputProperty("p", DataTypeString), diverge: true},
		{name: "mutability", other: PropertyType{Name: "p", DataType: DataTypeString, Mutability: Immutable}, diverge: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.diverge, base.Diverges(tt.other))
		})
	}
}

func TestPropertyTypes_UpsertRemove(t *testing.T) {
	ps := PropertyTypes{NewPropertyType("a", DataTypeBool)}
	ps2 := ps.Upsert(NewPropertyType("a", DataTypeNumber)).Upsert(NewPropertyType("b", DataTypeString))

	assert.Equal(t, []string{"a", "b"}, ps2.Names())
	a, _ := ps2.Get("a")
	assert.Equal(t, DataTypeNumber, a.DataType)

	orig, _ := ps.Get("a")
	assert.Equal(t, DataTypeBool, orig.DataType, "upsert must not mutate the receiver")

	assert.Equal(t, []string{"b"}, ps2.Remove("a").Names())
}

func TestComponentList(t *testing.T) {
	c1 := NewComponentTypeID("core", "labeled")
	c2 := NewComponentTypeID("core", "named")

	var list ComponentList
	list, added := list.Add(c1)
	assert.True(t, added)
	list, added = list.Add(c1)
	assert.False(t, added)
	list, _ = list.Add(c2)
	assert.Equal(t, ComponentList{c1, c2}, list)

	list, removed := list.Remove(c1)
	assert.True(t, removed)
	assert.Equal(t, ComponentList{c2}, list)
	_, removed = list.Remove(c1)
	assert.False(t, removed)
}

func TestDataType_DefaultAndAccepts(t *testing.T) {
	for _, dt := range []DataType{DataTypeNull, DataTypeBool, DataTypeNumber, DataTypeString, DataTypeArray, DataTypeObject} {
		assert.True(t, dt.Accepts(dt.DefaultValue()), dt)
	}
	assert.True(t, DataTypeAny.Accepts(struct{}{}))
	assert.True(t, DataTypeNumber.Accepts(10))
	assert.False(t, DataTypeNumber.Accepts("10"))

	n, ok := AsNumber(int32(7))
	assert.True(t, ok)
	assert.Equal(t, float64(7), n)
}

func TestRelationInstanceID_String(t *testing.T) {
	out := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	in := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	id := NewRelationInstanceID(out, NewRelationTypeID("core", "connector"), in)

	assert.Equal(t, out.String()+"--core__connector--"+in.String(), id.String())
	id.Instance = "x"
	assert.Contains(t, id.String(), "core__connector__x")
}

func TestFlowType_ReferencedTypes(t *testing.T) {
	num := NewEntityTypeID("arith", "number")
	wrapper := NewEntityTypeID("flow", "generic")
	conn := NewRelationTypeID("core", "connector")
	ft := FlowType{
		ID:       NewFlowTypeID("flow", "adder"),
		Wrapper:  EntityInstance{Type: wrapper},
		Entities: []EntityInstance{{Type: num}, {Type: num}},
		Relations: []RelationInstance{
			{ID: RelationInstanceID{Type: conn}},
			{ID: RelationInstanceID{Type: conn}},
		},
	}

	assert.Equal(t, []EntityTypeID{wrapper, num}, ft.EntityTypes())
	assert.Equal(t, []RelationTypeID{conn}, ft.RelationTypes())

	clone := ft.Clone()
	clone.Entities[0].Type = wrapper
	assert.Equal(t, num, ft.Entities[0].Type)
}
