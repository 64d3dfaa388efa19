// Package behaviour implements behaviour factories and the state machine that
// drives one behaviour's subscriptions on one reactive instance.
//
// A Machine moves through Created, Connected, Disconnected and ShutDown.
// Connect and Disconnect are idempotent. Every subscription a behaviour makes
// goes through its Context, so Disconnect can always remove all of them.
// Close is the only teardown path: it disconnects, releases the machine from
// its instance and then releases behaviour resources, in that order.
package behaviour

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/property"
	"github.com/hupe1980/reactivegraph/reactive"
)

// State is the lifecycle state of a Machine.
type State int

const (
	Created State = iota
	Connected
	Disconnected
	ShutDown
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case ShutDown:
		return "shut_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Behaviour is the logic of one behaviour type. Connect registers its
// callbacks through c.
type Behaviour interface {
	Connect(c *Context) error
}

// Disconnector is implemented by behaviours that need to run logic after
// their subscriptions were removed.
type Disconnector interface {
	Disconnect() error
}

// Shutdowner is implemented by behaviours that hold private resources.
type Shutdowner interface {
	Shutdown() error
}

// TransitionListener observes state changes. err is set for failed transitions,
// in which case to is the state that was attempted. Listeners run while the
// machine is locked and must not call its methods other than BehaviourType
// and Instance.
type TransitionListener func(m *Machine, from, to State, err error)

type subscription struct {
	cell   *property.Cell
	handle property.Handle
}

// Context records the subscriptions a behaviour makes while connecting.
type Context struct {
	m    *Machine
	subs []subscription
}

// Instance returns the instance the behaviour is attached to.
func (c *Context) Instance() reactive.Instance { return c.m.inst }

// Observe subscribes fn to the property name of inst.
func (c *Context) Observe(inst reactive.Instance, name string, fn property.Observer) error {
	cell, ok := inst.Property(name)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMissingProperty, name, inst)
	}
	c.ObserveCell(cell, fn)
	return nil
}

// ObserveCell subscribes fn to cell.
func (c *Context) ObserveCell(cell *property.Cell, fn property.Observer) {
	c.subs = append(c.subs, subscription{cell: cell, handle: cell.Observe(fn)})
}

func (c *Context) removeAll() {
	for _, s := range c.subs {
		s.cell.Remove(s.handle)
	}
	c.subs = nil
}

// Machine drives one behaviour on one instance.
type Machine struct {
	ty       core.BehaviourTypeID
	inst     reactive.Instance
	logic    Behaviour
	listener TransitionListener

	mu    sync.Mutex
	state State
	ctx   *Context
}

func newMachine(ty core.BehaviourTypeID, inst reactive.Instance, logic Behaviour, listener TransitionListener) *Machine {
	m := &Machine{ty: ty, inst: inst, logic: logic, listener: listener, state: Created}
	m.ctx = &Context{m: m}
	return m
}

// BehaviourType implements reactive.BehaviourRef.
func (m *Machine) BehaviourType() core.BehaviourTypeID { return m.ty }

// Instance returns the owning instance.
func (m *Machine) Instance() reactive.Instance { return m.inst }

// Logic returns the behaviour implementation.
func (m *Machine) Logic() Behaviour { return m.logic }

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscriptions returns the number of live subscriptions.
func (m *Machine) Subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ctx.subs)
}

// Connect registers the behaviour's subscriptions. It is a no-op when connected.
// A failed connect leaves no subscription behind.
func (m *Machine) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked()
}

func (m *Machine) connectLocked() error {
	switch m.state {
	case Connected:
		return nil
	case ShutDown:
		return m.fail(ConnectFailed, Connected, ErrShutDown)
	}
	if err := m.logic.Connect(m.ctx); err != nil {
		m.ctx.removeAll()
		return m.fail(ConnectFailed, Connected, err)
	}
	m.transition(Connected)
	return nil
}

// Disconnect removes every subscription. It is a no-op unless connected.
func (m *Machine) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnectLocked()
}

func (m *Machine) disconnectLocked() error {
	if m.state != Connected {
		return nil
	}
	m.ctx.removeAll()
	m.transition(Disconnected)
	if d, ok := m.logic.(Disconnector); ok {
		if err := d.Disconnect(); err != nil {
			return m.fail(DisconnectFailed, Disconnected, err)
		}
	}
	return nil
}

// Reconnect disconnects and connects again.
func (m *Machine) Reconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ShutDown {
		return m.fail(ReconnectFailed, Connected, ErrShutDown)
	}
	if err := m.disconnectLocked(); err != nil {
		return &TransitionError{Kind: ReconnectFailed, Behaviour: m.ty, Err: err}
	}
	if err := m.connectLocked(); err != nil {
		return &TransitionError{Kind: ReconnectFailed, Behaviour: m.ty, Err: err}
	}
	return nil
}

// Close tears the machine down: disconnect, release from the instance, shut
// down. Later calls are no-ops. The returned error joins every failed step;
// all steps run regardless.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ShutDown {
		return nil
	}
	var errs []error
	if err := m.disconnectLocked(); err != nil {
		errs = append(errs, err)
	}
	m.ctx.removeAll()
	m.inst.ReleaseBehaviour(m)
	if s, ok := m.logic.(Shutdowner); ok {
		if err := s.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	m.transition(ShutDown)
	return errors.Join(errs...)
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	if m.listener != nil && from != to {
		m.listener(m, from, to, nil)
	}
}

func (m *Machine) fail(kind TransitionErrorKind, to State, err error) error {
	if m.listener != nil {
		m.listener(m, m.state, to, err)
	}
	return &TransitionError{Kind: kind, Behaviour: m.ty, Err: err}
}
