package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactivegraph/core"
)

var (
	c1     = core.NewComponentTypeID("test", "c1")
	c2     = core.NewComponentTypeID("test", "c2")
	labels = core.NewComponentTypeID("core", "labeled")
	numT   = core.NewEntityTypeID("test", "number")
	connT  = core.NewRelationTypeID("test", "connector")
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Components.Register(core.NewComponent(c1, core.NewPropertyType("p", core.DataTypeString))))
	require.NoError(t, r.Components.Register(core.NewComponent(c2, core.NewPropertyType("p", core.DataTypeNumber))))
	require.NoError(t, r.Components.Register(core.NewComponent(labels, core.NewPropertyType("label", core.DataTypeString))))
	return r
}

func TestCompose_ComponentsDiverge(t *testing.T) {
	r := newRegistry(t)

	div, err := r.EntityTypes.Register(core.NewEntityType(numT, []core.ComponentTypeID{c1, c2}))
	require.NoError(t, err)
	require.False(t, div.IsEmpty())
	assert.Equal(t, []string{"p"}, div.PropertyNames())
	require.Len(t, div.Properties[c2], 1)
	assert.Equal(t, core.DataTypeString, div.Properties[c2][0].Effective.DataType)
	assert.Equal(t, core.DataTypeNumber, div.Properties[c2][0].Component.DataType)
	assert.Contains(t, div.String(), "test__c2 diverges on p")

	props, again, err := r.EntityTypes.EffectiveProperties(numT)
	require.NoError(t, err)
	assert.Equal(t, div, again)
	assert.Equal(t, []string{"p"}, props.Names())
}

func TestCompose_OwnPropertyDiverges(t *testing.T) {
	r := newRegistry(t)
	own := core.NewPropertyType("label", core.DataTypeNumber)

	div, err := r.EntityTypes.Register(core.NewEntityType(numT, []core.ComponentTypeID{labels}, own))
	require.NoError(t, err)
	require.Len(t, div.Properties[labels], 1)
	assert.Equal(t, "label", div.Properties[labels][0].Name)
}

func TestCompose_Unfulfilled(t *testing.T) {
	r := newRegistry(t)
	missing := core.NewComponentTypeID("test", "missing")

	div, err := r.EntityTypes.Register(core.NewEntityType(numT, []core.ComponentTypeID{labels, missing}))
	require.NoError(t, err)
	assert.Equal(t, []core.ComponentTypeID{missing}, div.Unfulfilled)
	assert.Empty(t, div.Properties)
	assert.Contains(t, div.String(), "unfulfilled")
}

func TestCompose_NoDivergence(t *testing.T) {
	props, div := Compose(
		core.PropertyTypes{core.NewPropertyType("value", core.DataTypeNumber)},
		[]core.ComponentTypeID{labels},
		NewRegistry().Components.Resolver(),
	)
	assert.Equal(t, []core.ComponentTypeID{labels}, div.Unfulfilled)
	assert.Equal(t, []string{"value"}, props.Names())
	assert.Equal(t, "no divergence", Divergent{}.String())
}

func TestEntityTypeManager_RegisterAndMerge(t *testing.T) {
	r := newRegistry(t)
	base := core.NewEntityType(numT, []core.ComponentTypeID{labels}, core.NewPropertyType("value", core.DataTypeNumber))

	_, err := r.EntityTypes.Register(base)
	require.NoError(t, err)
	_, err = r.EntityTypes.Register(base)
	assert.ErrorIs(t, err, ErrTypeAlreadyExists)

	update := core.NewEntityType(numT, []core.ComponentTypeID{c1},
		core.NewPropertyType("value", core.DataTypeString),
		core.NewPropertyType("extra", core.DataTypeBool))
	update.Description = "merged"
	update.Extensions = core.Extensions{"color": "red"}
	div, err := r.EntityTypes.Merge(update)
	require.NoError(t, err)
	assert.True(t, div.IsEmpty())

	got, ok := r.EntityTypes.Get(numT)
	require.True(t, ok)
	assert.Equal(t, core.ComponentList{labels, c1}, got.Components)
	assert.Equal(t, []string{"value", "extra"}, got.Properties.Names())
	p, _ := got.Properties.Get("value")
	assert.Equal(t, core.DataTypeString, p.DataType)
	assert.Equal(t, "merged", got.Description)
	assert.Equal(t, "red", got.Extensions["color"])

	_, err = r.EntityTypes.Merge(core.NewEntityType(core.NewEntityTypeID("test", "nope"), nil))
	assert.ErrorIs(t, err, ErrTypeDoesNotExist)

	_, err = r.EntityTypes.Register(core.EntityType{})
	assert.ErrorIs(t, err, ErrInvalidTypeID)
}

func TestEntityTypeManager_Queries(t *testing.T) {
	r := newRegistry(t)
	_, err := r.EntityTypes.Register(core.NewEntityType(numT, []core.ComponentTypeID{labels, c1}))
	require.NoError(t, err)

	assert.True(t, r.EntityTypes.IsA(numT, labels))
	assert.False(t, r.EntityTypes.IsA(numT, c2))
	assert.True(t, r.EntityTypes.IsAny(numT, c2, c1))
	assert.False(t, r.EntityTypes.IsAny(numT, c2))
	assert.True(t, r.EntityTypes.IsAll(numT, labels, c1))
	assert.False(t, r.EntityTypes.IsAll(numT, labels, c2))
	assert.False(t, r.EntityTypes.IsAll(core.NewEntityTypeID("x", "y")))

	cs := r.EntityTypes.GetComponentsCloned(numT)
	cs[0] = c2
	assert.True(t, r.EntityTypes.IsA(numT, labels), "returned slice is a copy")
}

func TestEntityTypeManager_ComponentMutation(t *testing.T) {
	r := newRegistry(t)
	_, err := r.EntityTypes.Register(core.NewEntityType(numT, nil))
	require.NoError(t, err)

	var added, removed []core.ComponentTypeID
	r.EntityTypes.OnComponentAdded(func(ty core.EntityTypeID, c core.ComponentTypeID) {
		assert.Equal(t, numT, ty)
		added = append(added, c)
	})
	r.EntityTypes.OnComponentRemoved(func(_ core.EntityTypeID, c core.ComponentTypeID) {
		removed = append(removed, c)
	})

	require.NoError(t, r.EntityTypes.AddComponent(numT, labels))
	assert.ErrorIs(t, r.EntityTypes.AddComponent(numT, labels), ErrComponentAlreadyExists)
	assert.ErrorIs(t, r.EntityTypes.AddComponent(numT, core.NewComponentTypeID("x", "y")), ErrComponentDoesNotExist)
	assert.ErrorIs(t, r.EntityTypes.AddComponent(core.NewEntityTypeID("x", "y"), labels), ErrTypeDoesNotExist)

	require.NoError(t, r.EntityTypes.RemoveComponent(numT, labels))
	assert.ErrorIs(t, r.EntityTypes.RemoveComponent(numT, labels), ErrComponentDoesNotExist)

	assert.Equal(t, []core.ComponentTypeID{labels}, added)
	assert.Equal(t, []core.ComponentTypeID{labels}, removed)
}

func TestPropertyManagement(t *testing.T) {
	r := newRegistry(t)
	_, err := r.EntityTypes.Register(core.NewEntityType(numT, nil))
	require.NoError(t, err)

	v := core.NewPropertyType("v", core.DataTypeNumber)
	require.NoError(t, r.EntityTypes.AddProperty(numT, v))
	assert.ErrorIs(t, r.EntityTypes.AddProperty(numT, v), ErrPropertyAlreadyExists)
	require.NoError(t, r.EntityTypes.UpdateProperty(numT, core.NewPropertyType("v", core.DataTypeString)))
	assert.ErrorIs(t, r.EntityTypes.UpdateProperty(numT, core.NewPropertyType("w", core.DataTypeString)), ErrPropertyDoesNotExist)
	got, _ := r.EntityTypes.Get(numT)
	p, _ := got.Properties.Get("v")
	assert.Equal(t, core.DataTypeString, p.DataType)
	require.NoError(t, r.EntityTypes.RemoveProperty(numT, "v"))
	assert.ErrorIs(t, r.EntityTypes.RemoveProperty(numT, "v"), ErrPropertyDoesNotExist)
	assert.ErrorIs(t, r.EntityTypes.AddProperty(core.NewEntityTypeID("x", "y"), v), ErrTypeDoesNotExist)

	require.NoError(t, r.Components.AddProperty(c1, core.NewPropertyType("q", core.DataTypeBool)))
	assert.ErrorIs(t, r.Components.AddProperty(c1, core.NewPropertyType("q", core.DataTypeBool)), ErrPropertyAlreadyExists)
	require.NoError(t, r.Components.UpdateProperty(c1, core.NewPropertyType("q", core.DataTypeNumber)))
	require.NoError(t, r.Components.RemoveProperty(c1, "q"))
	assert.ErrorIs(t, r.Components.RemoveProperty(core.NewComponentTypeID("x", "y"), "q"), ErrTypeDoesNotExist)
}

func TestComponentManager(t *testing.T) {
	r := newRegistry(t)
	assert.ErrorIs(t, r.Components.Register(core.NewComponent(c1)), ErrTypeAlreadyExists)
	assert.ErrorIs(t, r.Components.Register(core.Component{}), ErrInvalidTypeID)

	merged, err := r.Components.Merge(core.Component{
		ID:          c1,
		Description: "strings",
		Properties:  core.PropertyTypes{core.NewPropertyType("q", core.DataTypeBool)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "q"}, merged.Properties.Names())
	assert.Equal(t, "strings", merged.Description)

	_, err = r.Components.Merge(core.NewComponent(core.NewComponentTypeID("x", "y")))
	assert.ErrorIs(t, err, ErrTypeDoesNotExist)

	assert.Len(t, r.Components.GetAll(), 3)
	assert.Len(t, r.Components.GetByNamespace("test"), 2)
	assert.True(t, r.Components.Delete(c2))
	assert.False(t, r.Components.Has(c2))
	assert.Equal(t, 2, r.Components.Len())
}

func TestRelationTypeManager(t *testing.T) {
	r := newRegistry(t)
	rt := core.NewRelationTypeID("test", "connector")
	_, err := r.RelationTypes.Register(core.NewRelationType(rt, numT, core.NewEntityTypeID("test", core.Wildcard), []core.ComponentTypeID{labels}))
	require.NoError(t, err)

	other := core.NewEntityTypeID("test", "other")
	_, err = r.RelationTypes.Merge(core.RelationType{ID: rt, Inbound: other})
	require.NoError(t, err)
	got, _ := r.RelationTypes.Get(rt)
	assert.Equal(t, numT, got.Outbound)
	assert.Equal(t, other, got.Inbound)
	assert.True(t, r.RelationTypes.IsA(rt, labels))
	assert.Len(t, r.RelationTypes.GetAll(), 1)
}

func TestFlowTypeManager(t *testing.T) {
	r := newRegistry(t)
	_, err := r.EntityTypes.Register(core.NewEntityType(numT, nil))
	require.NoError(t, err)

	flowID := core.NewFlowTypeID("test", "flow")
	other := core.NewEntityTypeID("test", "other")
	flow := core.FlowType{
		ID:        flowID,
		Wrapper:   core.EntityInstance{Type: numT},
		Entities:  []core.EntityInstance{{Type: other}},
		Relations: []core.RelationInstance{{ID: core.RelationInstanceID{Type: connT}}},
	}
	_, err = r.FlowTypes.Register(flow)
	require.NoError(t, err)
	_, err = r.FlowTypes.Register(flow)
	assert.ErrorIs(t, err, ErrTypeAlreadyExists)

	v, err := r.FlowTypes.Validate(flowID)
	require.NoError(t, err)
	assert.False(t, v.IsValid())
	assert.Equal(t, []core.EntityTypeID{other}, v.UnfulfilledEntityTypes)
	assert.Equal(t, []core.RelationTypeID{connT}, v.UnfulfilledRelationTypes)

	_, err = r.EntityTypes.Register(core.NewEntityType(other, nil))
	require.NoError(t, err)
	_, err = r.RelationTypes.Register(core.NewRelationType(connT, numT, other, nil))
	require.NoError(t, err)
	v, _ = r.FlowTypes.Validate(flowID)
	assert.True(t, v.IsValid())

	_, err = r.FlowTypes.Merge(core.FlowType{ID: flowID, Variables: core.PropertyTypes{core.NewPropertyType("x", core.DataTypeNumber)}})
	require.NoError(t, err)
	got, _ := r.FlowTypes.Get(flowID)
	assert.Equal(t, []string{"x"}, got.Variables.Names())
	assert.Len(t, got.Entities, 1)

	require.NoError(t, r.FlowTypes.AddVariable(flowID, core.NewPropertyType("y", core.DataTypeString)))
	require.NoError(t, r.FlowTypes.RemoveVariable(flowID, "x"))
	got, _ = r.FlowTypes.Get(flowID)
	assert.Equal(t, []string{"y"}, got.Variables.Names())

	_, err = r.FlowTypes.Validate(core.NewFlowTypeID("x", "y"))
	assert.ErrorIs(t, err, ErrTypeDoesNotExist)
}

type batchProvider struct {
	id         string
	components []core.Component
	entities   []core.EntityType
}

func (p batchProvider) ID() string { return p.id }
func (p batchProvider) Components() ([]core.Component, error) { return p.components, nil }
func (p batchProvider) EntityTypes() ([]core.EntityType, error) { return p.entities, nil }

func TestRegistry_Providers(t *testing.T) {
	r := NewRegistry()
	first := batchProvider{
		id:         "first",
		components: []core.Component{core.NewComponent(c1, core.NewPropertyType("p", core.DataTypeString))},
		entities:   []core.EntityType{core.NewEntityType(numT, []core.ComponentTypeID{c1})},
	}
	report, err := r.RegisterProvider(first)
	require.NoError(t, err)
	assert.True(t, report.IsEmpty())

	_, err = r.RegisterProvider(first)
	assert.ErrorIs(t, err, ErrProviderAlreadyExists)

	second := batchProvider{
		id:         "second",
		components: []core.Component{core.NewComponent(c2, core.NewPropertyType("p", core.DataTypeNumber))},
		entities:   []core.EntityType{core.NewEntityType(numT, []core.ComponentTypeID{c2})},
	}
	report, err = r.RegisterProvider(second)
	require.NoError(t, err)
	require.Contains(t, report.EntityTypes, numT)
	assert.Equal(t, []string{"p"}, report.EntityTypes[numT].PropertyNames())

	require.NoError(t, r.UnregisterProvider("second"))
	assert.True(t, r.EntityTypes.Has(numT), "merged types stay with their introducing provider")
	assert.False(t, r.Components.Has(c2))

	require.NoError(t, r.UnregisterProvider("first"))
	assert.False(t, r.EntityTypes.Has(numT))
	assert.False(t, r.Components.Has(c1))
	assert.ErrorIs(t, r.UnregisterProvider("first"), ErrProviderDoesNotExist)
}

func TestProviderRegistry_ReportsFailures(t *testing.T) {
	r := NewRegistry()
	reg := r.entityTypeProviders
	report, err := reg.RegisterProvider("bad", []core.EntityType{
		{},
		core.NewEntityType(numT, nil),
	})
	assert.ErrorIs(t, err, ErrInvalidTypeID)
	assert.Empty(t, report)
	assert.Equal(t, []core.EntityTypeID{numT}, reg.ProvidedBy("bad"))
	assert.Equal(t, []string{"bad"}, reg.Providers())
}

func TestRegistry_ComponentMergeReportsDivergence(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterProvider(batchProvider{
		id: "base",
		components: []core.Component{
			core.NewComponent(c1, core.NewPropertyType("p", core.DataTypeString)),
			core.NewComponent(labels, core.NewPropertyType("label", core.DataTypeString)),
		},
		entities: []core.EntityType{core.NewEntityType(numT, []core.ComponentTypeID{c1, labels})},
	})
	require.NoError(t, err)

	report, err := r.RegisterProvider(batchProvider{
		id:         "extension",
		components: []core.Component{core.NewComponent(labels, core.NewPropertyType("p", core.DataTypeNumber))},
	})
	require.NoError(t, err)
	require.Contains(t, report.EntityTypes, numT)
	assert.Equal(t, []string{"p"}, report.EntityTypes[numT].PropertyNames())
	assert.Contains(t, report.EntityTypes[numT].Properties, labels)
	assert.Empty(t, report.RelationTypes)

	div, err := r.EntityTypes.Divergence(numT)
	require.NoError(t, err)
	assert.Equal(t, report.EntityTypes[numT], div)
}
