package reactive

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactivegraph/core"
)

var (
	_ Instance = (*Entity)(nil)
	_ Instance = (*Relation)(nil)
)

type fakeBehaviour struct{ ty core.BehaviourTypeID }

func (f *fakeBehaviour) BehaviourType() core.BehaviourTypeID { return f.ty }

var (
	compX = core.NewComponentTypeID("test", "x")
	compY = core.NewComponentTypeID("test", "y")
	numT  = core.NewEntityTypeID("test", "number")
)

func components() map[core.ComponentTypeID]core.Component {
	return map[core.ComponentTypeID]core.Component{
		compX: core.NewComponent(compX, core.NewPropertyType("a", core.DataTypeNumber)),
		compY: core.NewComponent(compY,
			core.NewPropertyType("a", core.DataTypeNumber),
			core.NewPropertyType("b", core.DataTypeString)),
	}
}

func resolver(id core.ComponentTypeID) (core.Component, bool) {
	c, ok := components()[id]
	return c, ok
}

func TestEntity_PropertiesFromSchema(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) {
		o.Properties = core.PropertyTypes{core.NewPropertyType("value", core.DataTypeNumber)}
		o.Components = []core.Component{components()[compY]}
		o.Values = map[string]any{"b": "hello", "extra": true}
	})

	assert.NotEqual(t, uuid.Nil, e.ID())
	assert.Equal(t, []string{"a", "b", "extra", "value"}, e.PropertyNames())
	v, ok := e.Get("value")
	assert.True(t, ok)
	assert.Equal(t, float64(0), v)
	v, _ = e.Get("b")
	assert.Equal(t, "hello", v)
	assert.True(t, e.IsA(compY))
	assert.False(t, e.IsA(compX))
}

func TestEntity_SetUnknownIsNoOp(t *testing.T) {
	e := NewEntity(uuid.Nil, numT)
	e.Set("missing", 1)
	_, ok := e.Get("missing")
	assert.False(t, ok)
	assert.False(t, e.Has("missing"))
}

func TestEntity_SetNotifiesAndSnapshot(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) {
		o.Values = map[string]any{"value": float64(1), LabelProperty: "/org/test/one"}
	})
	cell, ok := e.Property("value")
	require.True(t, ok)

	var got []any
	cell.Observe(func(v any) { got = append(got, v) })
	e.Set("value", float64(2))
	e.SetNoPropagate("value", float64(3))
	e.Tick("value")

	assert.Equal(t, []any{float64(2), float64(3)}, got)
	assert.Equal(t, map[string]any{"value": float64(3), LabelProperty: "/org/test/one"}, e.Snapshot())
	label, ok := e.Label()
	assert.True(t, ok)
	assert.Equal(t, "/org/test/one", label)
}

func TestEntity_ComponentRemovalPolicy(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) {
		o.Properties = core.PropertyTypes{core.NewPropertyType("own", core.DataTypeBool)}
		o.Hooks = Hooks{ResolveComponent: resolver}
	})
	require.NoError(t, e.AddComponent(compX))
	require.NoError(t, e.AddComponent(compY))
	assert.ErrorIs(t, e.AddComponent(compY), ErrComponentActive)
	assert.Equal(t, []string{"a", "b", "own"}, e.PropertyNames())

	cellA, _ := e.Property("a")
	cellA.Observe(func(any) {})

	require.NoError(t, e.RemoveComponent(compX))
	assert.True(t, e.Has("a"), "a is still contributed by y")
	assert.True(t, e.Has("b"))
	assert.Equal(t, 1, cellA.Subscribers())

	require.NoError(t, e.RemoveComponent(compY))
	assert.False(t, e.Has("a"))
	assert.False(t, e.Has("b"))
	assert.True(t, e.Has("own"))
	assert.Equal(t, 0, cellA.Subscribers())
	assert.Empty(t, e.Components())

	assert.ErrorIs(t, e.RemoveComponent(compY), ErrComponentNotActive)
}

func TestEntity_OwnPropertySurvivesComponentRemoval(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) {
		o.Properties = core.PropertyTypes{core.NewPropertyType("a", core.DataTypeNumber)}
		o.Components = []core.Component{components()[compX]}
	})
	require.NoError(t, e.RemoveComponent(compX))
	assert.True(t, e.Has("a"))
}

func TestEntity_UnknownComponent(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) { o.Hooks = Hooks{ResolveComponent: resolver} })
	err := e.AddComponent(core.NewComponentTypeID("test", "nope"))
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestEntity_ComponentHooksOrder(t *testing.T) {
	var events []string
	e := NewEntity(uuid.Nil, numT)
	e.SetHooks(Hooks{
		ResolveComponent: resolver,
		ComponentAdded:   func(id core.ComponentTypeID) { events = append(events, "added:"+id.Name) },
		ComponentRemoving: func(id core.ComponentTypeID) {
			events = append(events, "removing:"+id.Name)
			assert.True(t, e.IsA(id))
		},
		ComponentRemoved: func(id core.ComponentTypeID) {
			events = append(events, "removed:"+id.Name)
			assert.False(t, e.IsA(id))
		},
	})

	require.NoError(t, e.AddComponent(compX))
	require.NoError(t, e.RemoveComponent(compX))
	assert.Equal(t, []string{"added:x", "removing:x", "removed:x"}, events)
}

func TestEntity_AttachAndRelease(t *testing.T) {
	e := NewEntity(uuid.Nil, numT)
	ty := core.NewBehaviourTypeID("test", "b")
	first := &fakeBehaviour{ty: ty}
	second := &fakeBehaviour{ty: ty}

	require.NoError(t, e.AttachBehaviour(first))
	assert.ErrorIs(t, e.AttachBehaviour(second), ErrBehaviourAttached)
	assert.True(t, e.BehavesAs(ty))
	assert.Equal(t, []core.BehaviourTypeID{ty}, e.Behaviours())

	assert.False(t, e.ReleaseBehaviour(second), "only the stored behaviour can release itself")
	assert.True(t, e.ReleaseBehaviour(first))
	assert.False(t, e.BehavesAs(ty))
	require.NoError(t, e.AttachBehaviour(second))
	ref, ok := e.Behaviour(ty)
	assert.True(t, ok)
	assert.Same(t, second, ref)
}

func TestEntity_Dispose(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) { o.Hooks = Hooks{ResolveComponent: resolver} })
	e.Dispose()
	assert.True(t, e.Disposed())
	assert.True(t, errors.Is(e.AttachBehaviour(&fakeBehaviour{ty: core.NewBehaviourTypeID("t", "b")}), ErrDisposed))
	assert.ErrorIs(t, e.AddComponent(compX), ErrDisposed)
}

func TestEntity_ConcurrentAttachKeepsAtMostOne(t *testing.T) {
	e := NewEntity(uuid.Nil, numT)
	ty := core.NewBehaviourTypeID("test", "b")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.AttachBehaviour(&fakeBehaviour{ty: ty}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRelation_Identity(t *testing.T) {
	out := NewEntity(uuid.Nil, numT)
	in := NewEntity(uuid.Nil, numT)
	ty := core.NewRelationTypeID("test", "connector")

	r := NewRelation(out, ty, "1", in, func(o *Options) {
		o.Values = map[string]any{"outbound_property_name": "value"}
	})

	assert.Equal(t, out.ID(), r.ID().Outbound)
	assert.Equal(t, in.ID(), r.ID().Inbound)
	assert.Equal(t, ty, r.Type())
	assert.Same(t, out, r.Outbound())
	assert.Same(t, in, r.Inbound())
	v, _ := r.Get("outbound_property_name")
	assert.Equal(t, "value", v)
	assert.Equal(t, r.ID(), r.ToInstance().ID)
}

func TestEntity_ClearObservers(t *testing.T) {
	e := NewEntity(uuid.Nil, numT, func(o *Options) { o.Values = map[string]any{"a": 1, "b": 2} })
	for _, name := range e.PropertyNames() {
		c, _ := e.Property(name)
		c.Observe(func(any) {})
	}
	e.ClearObservers()
	for _, name := range e.PropertyNames() {
		c, _ := e.Property(name)
		assert.Equal(t, 0, c.Subscribers())
	}
}
