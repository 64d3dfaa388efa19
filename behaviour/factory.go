package behaviour

import (
	"errors"
	"maps"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/reactive"
)

// Params are construction parameters passed to a Constructor.
type Params map[string]any

// String returns the string parameter key.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Constructor builds the behaviour logic for inst. Returning an error aborts
// creation with a MissingDependency error.
type Constructor func(inst reactive.Instance, params Params) (Behaviour, error)

// Creator creates machines of one behaviour type. Managers store Creators.
type Creator interface {
	BehaviourType() core.BehaviourTypeID
	Create(inst reactive.Instance, optFns ...func(o *CreateOptions)) (*Machine, error)
}

// CreateOptions configures one Create call.
type CreateOptions struct {
	// Params override the factory defaults.
	Params Params
	// Listener observes every transition of the created machine.
	Listener TransitionListener
	// DeferConnect leaves the machine in the Created state.
	DeferConnect bool
}

// FactoryOptions configures a Factory.
type FactoryOptions struct {
	// Params are the default construction parameters.
	Params Params
}

// Factory creates behaviours of one type from a Constructor.
type Factory struct {
	ty     core.BehaviourTypeID
	ctor   Constructor
	params Params
}

// NewFactory creates a Factory.
func NewFactory(ty core.BehaviourTypeID, ctor Constructor, optFns ...func(o *FactoryOptions)) *Factory {
	opts := FactoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Factory{ty: ty, ctor: ctor, params: maps.Clone(opts.Params)}
}

// BehaviourType returns the type of the behaviours this factory creates.
func (f *Factory) BehaviourType() core.BehaviourTypeID { return f.ty }

// Create builds a machine for inst, attaches it and connects it.
//
// Creation is rejected with AlreadyApplied when inst already behaves as the
// factory's type, including when a concurrent Create won the attach. Any
// constructor or connect failure is a MissingDependency; a machine that failed
// to connect is closed before returning so it leaves nothing on inst.
func (f *Factory) Create(inst reactive.Instance, optFns ...func(o *CreateOptions)) (*Machine, error) {
	opts := CreateOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if inst.BehavesAs(f.ty) {
		return nil, &CreationError{Kind: AlreadyApplied, Behaviour: f.ty}
	}

	params := maps.Clone(f.params)
	if params == nil {
		params = Params{}
	}
	maps.Copy(params, opts.Params)

	logic, err := f.ctor(inst, params)
	if err != nil {
		return nil, &CreationError{Kind: MissingDependency, Behaviour: f.ty, Err: err}
	}

	m := newMachine(f.ty, inst, logic, opts.Listener)
	if err := inst.AttachBehaviour(m); err != nil {
		if errors.Is(err, reactive.ErrBehaviourAttached) {
			return nil, &CreationError{Kind: AlreadyApplied, Behaviour: f.ty, Err: err}
		}
		return nil, &CreationError{Kind: MissingDependency, Behaviour: f.ty, Err: err}
	}

	if opts.DeferConnect {
		return m, nil
	}
	if err := m.Connect(); err != nil {
		_ = m.Close()
		return nil, &CreationError{Kind: MissingDependency, Behaviour: f.ty, Err: err}
	}
	return m, nil
}
