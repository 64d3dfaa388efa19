package behaviour

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/reactive"
)

var (
	_ Creator               = (*Factory)(nil)
	_ reactive.BehaviourRef = (*Machine)(nil)
)

var (
	numberType = core.NewEntityTypeID("test", "number")
	copyTy     = core.NewBehaviourTypeID("test", "copy")
)

func newNumber(values map[string]any) *reactive.Entity {
	return reactive.NewEntity(uuid.Nil, numberType, func(o *reactive.Options) { o.Values = values })
}

// recorder observes "input" and counts calls; it records lifecycle hooks.
type recorder struct {
	mu       sync.Mutex
	calls    int
	events   []string
	failWith error
	shutdown error
	property string
}

func (r *recorder) Connect(c *Context) error {
	r.log("connect")
	if r.failWith != nil {
		return r.failWith
	}
	name := r.property
	if name == "" {
		name = "input"
	}
	return c.Observe(c.Instance(), name, func(any) {
		r.mu.Lock()
		r.calls++
		r.mu.Unlock()
	})
}

func (r *recorder) Disconnect() error {
	r.log("disconnect")
	return nil
}

func (r *recorder) Shutdown() error {
	r.log("shutdown")
	return r.shutdown
}

func (r *recorder) log(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func factoryFor(r *recorder) *Factory {
	return NewFactory(copyTy, func(reactive.Instance, Params) (Behaviour, error) { return r, nil })
}

func TestFactory_CreateConnects(t *testing.T) {
	e := newNumber(map[string]any{"input": float64(0)})
	r := &recorder{}

	m, err := factoryFor(r).Create(e)
	require.NoError(t, err)
	assert.Equal(t, Connected, m.State())
	assert.True(t, e.BehavesAs(copyTy))
	assert.Equal(t, 1, m.Subscriptions())

	e.Set("input", float64(1))
	assert.Equal(t, 1, r.calls)
}

func TestFactory_RejectsAlreadyApplied(t *testing.T) {
	e := newNumber(map[string]any{"input": float64(0)})
	f := factoryFor(&recorder{})

	_, err := f.Create(e)
	require.NoError(t, err)

	_, err = f.Create(e)
	var ce *CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, AlreadyApplied, ce.Kind)
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestFactory_MissingPropertyLeavesNothing(t *testing.T) {
	e := newNumber(nil)
	r := &recorder{}

	_, err := factoryFor(r).Create(e)
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.ErrorIs(t, err, ErrMissingProperty)
	assert.False(t, e.BehavesAs(copyTy))
	assert.Equal(t, []string{"connect", "shutdown"}, r.events)
}

func TestFactory_ConstructorError(t *testing.T) {
	boom := errors.New("boom")
	f := NewFactory(copyTy, func(reactive.Instance, Params) (Behaviour, error) { return nil, boom })
	_, err := f.Create(newNumber(nil))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestFactory_ParamsOverrideDefaults(t *testing.T) {
	var got Params
	f := NewFactory(copyTy, func(_ reactive.Instance, p Params) (Behaviour, error) {
		got = p
		return &recorder{property: "input"}, nil
	}, func(o *FactoryOptions) { o.Params = Params{"a": 1, "b": 2} })

	_, err := f.Create(newNumber(map[string]any{"input": 0}), func(o *CreateOptions) {
		o.Params = Params{"b": 3}
	})
	require.NoError(t, err)
	assert.Equal(t, Params{"a": 1, "b": 3}, got)
}

func TestMachine_ConnectDisconnectIdempotent(t *testing.T) {
	e := newNumber(map[string]any{"input": float64(0)})
	r := &recorder{}
	m, err := factoryFor(r).Create(e, func(o *CreateOptions) { o.DeferConnect = true })
	require.NoError(t, err)
	assert.Equal(t, Created, m.State())

	require.NoError(t, m.Connect())
	require.NoError(t, m.Connect())
	cell, _ := e.Property("input")
	assert.Equal(t, 1, cell.Subscribers())

	require.NoError(t, m.Disconnect())
	require.NoError(t, m.Disconnect())
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 0, cell.Subscribers())

	require.NoError(t, m.Reconnect())
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, 1, cell.Subscribers())
}

func TestMachine_CloseOrder(t *testing.T) {
	e := newNumber(map[string]any{"input": float64(0)})
	r := &recorder{}
	var transitions []string
	m, err := factoryFor(r).Create(e, func(o *CreateOptions) {
		o.Listener = func(m *Machine, from, to State, err error) {
			transitions = append(transitions, from.String()+">"+to.String())
			if to == ShutDown {
				assert.False(t, m.Instance().BehavesAs(copyTy), "released before shutdown completes")
			}
		}
	})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	cell, _ := e.Property("input")
	assert.Equal(t, 0, cell.Subscribers())
	assert.False(t, e.BehavesAs(copyTy))
	assert.Equal(t, ShutDown, m.State())
	assert.Equal(t, []string{"connect", "disconnect", "shutdown"}, r.events)
	assert.Equal(t, []string{"created>connected", "connected>disconnected", "disconnected>shut_down"}, transitions)

	err = m.Connect()
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.ErrorIs(t, err, ErrShutDown)
}

func TestMachine_CloseJoinsShutdownError(t *testing.T) {
	boom := errors.New("boom")
	e := newNumber(map[string]any{"input": 0})
	m, err := factoryFor(&recorder{shutdown: boom}).Create(e)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Close(), boom)
	assert.False(t, e.BehavesAs(copyTy))
}

func TestMachine_ReconnectFailure(t *testing.T) {
	e := newNumber(map[string]any{"input": 0})
	r := &recorder{}
	m, err := factoryFor(r).Create(e)
	require.NoError(t, err)

	r.failWith = errors.New("gone")
	err = m.Reconnect()
	assert.ErrorIs(t, err, ErrReconnectFailed)
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 0, m.Subscriptions())
}

func TestFactory_ConcurrentCreateAtMostOne(t *testing.T) {
	e := newNumber(map[string]any{"input": 0})
	f := NewFactory(copyTy, func(reactive.Instance, Params) (Behaviour, error) { return &recorder{}, nil })

	var wg sync.WaitGroup
	var mu sync.Mutex
	var created []*Machine
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := f.Create(e)
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyApplied)
				return
			}
			mu.Lock()
			created = append(created, m)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, created, 1)
	cell, _ := e.Property("input")
	assert.Equal(t, 1, cell.Subscribers())
}

func TestFunction(t *testing.T) {
	e := newNumber(map[string]any{"lhs": float64(1), "rhs": float64(2), "result": float64(0)})
	add := NewFunction(core.NewBehaviourTypeID("arithmetic", "add"), func(in map[string]any) any {
		l, _ := core.AsNumber(in["lhs"])
		r, _ := core.AsNumber(in["rhs"])
		return l + r
	}, "result", "lhs", "rhs")

	m, err := add.Create(e)
	require.NoError(t, err)

	e.Set("lhs", float64(5))
	v, _ := e.Get("result")
	assert.Equal(t, float64(7), v)

	require.NoError(t, m.Close())
	e.Set("rhs", float64(10))
	v, _ = e.Get("result")
	assert.Equal(t, float64(7), v)
}

func TestFunction_MissingInput(t *testing.T) {
	e := newNumber(map[string]any{"result": 0})
	f := NewFunction(core.NewBehaviourTypeID("arithmetic", "neg"), func(map[string]any) any { return 0 }, "result", "value")
	_, err := f.Create(e)
	assert.ErrorIs(t, err, ErrMissingProperty)
}

func TestConnector(t *testing.T) {
	a := newNumber(map[string]any{"input": float64(0)})
	b := newNumber(map[string]any{"output": float64(0)})
	rel := reactive.NewRelation(a, core.NewRelationTypeID("core", "default_connector"), "", b, func(o *reactive.Options) {
		o.Values = map[string]any{OutboundPropertyName: "input", InboundPropertyName: "output"}
	})

	m, err := NewConnector(core.NewBehaviourTypeID("core", "default_connector"), nil).Create(rel)
	require.NoError(t, err)

	a.Set("input", float64(10))
	v, _ := b.Get("output")
	assert.Equal(t, float64(10), v)

	require.NoError(t, m.Close())
	a.Set("input", float64(20))
	v, _ = b.Get("output")
	assert.Equal(t, float64(10), v)
	cell, _ := a.Property("input")
	assert.Equal(t, 0, cell.Subscribers())
}

func TestConnector_TransformAndParams(t *testing.T) {
	a := newNumber(map[string]any{"x": float64(1)})
	b := newNumber(map[string]any{"y": float64(0)})
	rel := reactive.NewRelation(a, core.NewRelationTypeID("core", "double"), "", b)

	f := NewConnector(core.NewBehaviourTypeID("core", "double"), func(v any) any {
		n, _ := core.AsNumber(v)
		return n * 2
	})
	_, err := f.Create(rel, func(o *CreateOptions) {
		o.Params = Params{OutboundPropertyName: "x", InboundPropertyName: "y"}
	})
	require.NoError(t, err)

	a.Set("x", float64(4))
	v, _ := b.Get("y")
	assert.Equal(t, float64(8), v)
}

func TestConnector_Errors(t *testing.T) {
	f := NewConnector(core.NewBehaviourTypeID("core", "c"), nil)

	_, err := f.Create(newNumber(nil))
	assert.ErrorIs(t, err, ErrInvalidInstance)

	a, b := newNumber(nil), newNumber(nil)
	rel := reactive.NewRelation(a, core.NewRelationTypeID("core", "c"), "", b)
	_, err = f.Create(rel)
	assert.ErrorIs(t, err, ErrMissingProperty)
}

func TestErrorsMessages(t *testing.T) {
	err := NewNotFoundError(copyTy)
	assert.ErrorIs(t, err, ErrBehaviourNotFound)
	assert.Contains(t, err.Error(), "test__copy")

	ce := &CreationError{Kind: AlreadyApplied, Behaviour: copyTy}
	assert.Contains(t, ce.Error(), "already applied")
	assert.Equal(t, "already_applied", AlreadyApplied.String())
	assert.Equal(t, "missing_dependency", MissingDependency.String())
}
