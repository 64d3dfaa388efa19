// Package reactive implements live entity and relation instances: an identity,
// a set of active components, a map of property cells and a map of attached
// behaviours keyed by behaviour type.
//
// Instances do not create or destroy behaviours themselves. A behaviour state
// machine attaches itself through AttachBehaviour and removes itself through
// ReleaseBehaviour once it has disconnected. The registries install Hooks so
// that component changes on a live instance reach the behaviour managers.
package reactive

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/property"
)

var (
	// ErrBehaviourAttached is returned when a behaviour of the same type is already attached.
	ErrBehaviourAttached = errors.New("behaviour already attached")
	// ErrDisposed is returned by mutating operations on a deleted instance.
	ErrDisposed = errors.New("instance disposed")
	// ErrComponentActive is returned when adding a component that is already active.
	ErrComponentActive = errors.New("component already active")
	// ErrComponentNotActive is returned when removing a component that is not active.
	ErrComponentNotActive = errors.New("component not active")
	// ErrUnknownComponent is returned when a component cannot be resolved.
	ErrUnknownComponent = errors.New("unknown component")
)

// LabelProperty is the conventional property holding an instance label.
const LabelProperty = "label"

// BehaviourRef is the handle an attached behaviour leaves on its instance.
type BehaviourRef interface {
	BehaviourType() core.BehaviourTypeID
}

// Instance is the contract shared by entities and relations.
type Instance interface {
	fmt.Stringer

	Get(name string) (any, bool)
	Set(name string, value any)
	SetNoPropagate(name string, value any)
	Tick(name string)
	Property(name string) (*property.Cell, bool)
	Has(name string) bool
	PropertyNames() []string
	Snapshot() map[string]any
	Label() (string, bool)

	Components() []core.ComponentTypeID
	IsA(component core.ComponentTypeID) bool
	AddComponent(component core.ComponentTypeID) error
	RemoveComponent(component core.ComponentTypeID) error

	BehavesAs(ty core.BehaviourTypeID) bool
	Behaviours() []core.BehaviourTypeID
	Behaviour(ty core.BehaviourTypeID) (BehaviourRef, bool)
	AttachBehaviour(ref BehaviourRef) error
	ReleaseBehaviour(ref BehaviourRef) bool

	Dispose()
	Disposed() bool
	ClearObservers()
}

// Hooks connect a live instance to the registries that own it. Every field is
// optional.
type Hooks struct {
	// ResolveComponent returns the schema of a component.
	ResolveComponent func(core.ComponentTypeID) (core.Component, bool)
	// ComponentAdded runs after a component became active.
	ComponentAdded func(core.ComponentTypeID)
	// ComponentRemoving runs before a component is deactivated.
	ComponentRemoving func(core.ComponentTypeID)
	// ComponentRemoved runs after a component was deactivated.
	ComponentRemoved func(core.ComponentTypeID)
}

// Options configures a new instance.
type Options struct {
	// Components are the resolved components active from the start.
	Components []core.Component
	// Properties are the type's own property declarations.
	Properties core.PropertyTypes
	// Values are initial property values. Names without a declaration become
	// free properties that are never dropped by component removal.
	Values map[string]any
	// Cell configures every property cell of the instance.
	Cell []func(o *property.Options)
	// Hooks are installed at construction time.
	Hooks Hooks
}

type container struct {
	mu          sync.RWMutex
	components  core.ComponentList
	cells       map[string]*property.Cell
	own         map[string]struct{}
	contributed map[string]map[core.ComponentTypeID]struct{}
	behaviours  map[core.BehaviourTypeID]BehaviourRef
	disposed    bool
	hooks       Hooks
	cellOpts    []func(o *property.Options)
}

func newContainer(opts Options) *container {
	c := &container{
		cells:       make(map[string]*property.Cell),
		own:         make(map[string]struct{}),
		contributed: make(map[string]map[core.ComponentTypeID]struct{}),
		behaviours:  make(map[core.BehaviourTypeID]BehaviourRef),
		hooks:       opts.Hooks,
		cellOpts:    opts.Cell,
	}
	for _, p := range opts.Properties {
		c.own[p.Name] = struct{}{}
		c.addCell(p.Name, initial(opts.Values, p))
	}
	for _, comp := range opts.Components {
		if c.components.Contains(comp.ID) {
			continue
		}
		c.components = append(c.components, comp.ID)
		c.contribute(comp, opts.Values)
	}
	for name, v := range opts.Values {
		if _, ok := c.cells[name]; !ok {
			c.own[name] = struct{}{}
			c.addCell(name, v)
		}
	}
	return c
}

func initial(values map[string]any, p core.PropertyType) any {
	if v, ok := values[p.Name]; ok {
		return v
	}
	return p.DataType.DefaultValue()
}

func (c *container) addCell(name string, value any) {
	c.cells[name] = property.NewCell(name, value, c.cellOpts...)
}

// contribute records comp as a contributor of its properties and creates the
// missing cells. Callers hold c.mu.
func (c *container) contribute(comp core.Component, values map[string]any) {
	for _, p := range comp.Properties {
		set, ok := c.contributed[p.Name]
		if !ok {
			set = make(map[core.ComponentTypeID]struct{})
			c.contributed[p.Name] = set
		}
		set[comp.ID] = struct{}{}
		if _, exists := c.cells[p.Name]; !exists {
			c.addCell(p.Name, initial(values, p))
		}
	}
}

func (c *container) cell(name string) (*property.Cell, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cell, ok := c.cells[name]
	return cell, ok
}

func (c *container) get(name string) (any, bool) {
	cell, ok := c.cell(name)
	if !ok {
		return nil, false
	}
	return cell.Get(), true
}

// set writes outside the container lock so subscribers may touch the instance.
func (c *container) set(name string, value any) {
	if cell, ok := c.cell(name); ok {
		cell.Set(value)
	}
}

func (c *container) setNoPropagate(name string, value any) {
	if cell, ok := c.cell(name); ok {
		cell.SetNoPropagate(value)
	}
}

func (c *container) tick(name string) {
	if cell, ok := c.cell(name); ok {
		cell.Tick()
	}
}

func (c *container) has(name string) bool {
	_, ok := c.cell(name)
	return ok
}

func (c *container) propertyNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := slices.Collect(maps.Keys(c.cells))
	sort.Strings(names)
	return names
}

func (c *container) snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.cells))
	for name, cell := range c.cells {
		out[name] = cell.Get()
	}
	return out
}

func (c *container) label() (string, bool) {
	v, ok := c.get(LabelProperty)
	if !ok {
		return "", false
	}
	return core.AsString(v)
}

func (c *container) componentIDs() []core.ComponentTypeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.components)
}

func (c *container) isA(component core.ComponentTypeID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.components.Contains(component)
}

func (c *container) addComponent(id core.ComponentTypeID) error {
	c.mu.RLock()
	hooks := c.hooks
	disposed := c.disposed
	c.mu.RUnlock()
	if disposed {
		return ErrDisposed
	}

	comp := core.Component{ID: id}
	if hooks.ResolveComponent != nil {
		resolved, ok := hooks.ResolveComponent(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownComponent, id)
		}
		comp = resolved
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	var added bool
	c.components, added = c.components.Add(id)
	if !added {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrComponentActive, id)
	}
	c.contribute(comp, nil)
	c.mu.Unlock()

	if hooks.ComponentAdded != nil {
		hooks.ComponentAdded(id)
	}
	return nil
}

// removeComponent drops every cell that id contributed unless the cell is an
// own property or another active component still contributes it. Dropped
// cells lose their subscribers first.
func (c *container) removeComponent(id core.ComponentTypeID) error {
	c.mu.RLock()
	hooks := c.hooks
	active := c.components.Contains(id)
	c.mu.RUnlock()
	if !active {
		return fmt.Errorf("%w: %s", ErrComponentNotActive, id)
	}

	if hooks.ComponentRemoving != nil {
		hooks.ComponentRemoving(id)
	}

	c.mu.Lock()
	var removed bool
	c.components, removed = c.components.Remove(id)
	if !removed {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrComponentNotActive, id)
	}
	var dropped []*property.Cell
	for name, set := range c.contributed {
		if _, ok := set[id]; !ok {
			continue
		}
		delete(set, id)
		if len(set) > 0 {
			continue
		}
		delete(c.contributed, name)
		if _, own := c.own[name]; own {
			continue
		}
		if cell, ok := c.cells[name]; ok {
			dropped = append(dropped, cell)
			delete(c.cells, name)
		}
	}
	c.mu.Unlock()

	for _, cell := range dropped {
		cell.RemoveAll()
	}
	if hooks.ComponentRemoved != nil {
		hooks.ComponentRemoved(id)
	}
	return nil
}

func (c *container) setHooks(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

func (c *container) behavesAs(ty core.BehaviourTypeID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.behaviours[ty]
	return ok
}

func (c *container) behaviourTypes() []core.BehaviourTypeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := slices.Collect(maps.Keys(c.behaviours))
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (c *container) behaviour(ty core.BehaviourTypeID) (BehaviourRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.behaviours[ty]
	return ref, ok
}

// attach is the atomic check-and-insert that keeps at most one behaviour per type.
func (c *container) attach(ref BehaviourRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	ty := ref.BehaviourType()
	if _, ok := c.behaviours[ty]; ok {
		return fmt.Errorf("%w: %s", ErrBehaviourAttached, ty)
	}
	c.behaviours[ty] = ref
	return nil
}

// release removes ref only if it is the behaviour currently stored for its type.
func (c *container) release(ref BehaviourRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ty := ref.BehaviourType()
	if cur, ok := c.behaviours[ty]; ok && cur == ref {
		delete(c.behaviours, ty)
		return true
	}
	return false
}

func (c *container) dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
}

func (c *container) isDisposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

func (c *container) clearObservers() {
	c.mu.RLock()
	cells := slices.Collect(maps.Values(c.cells))
	c.mu.RUnlock()
	for _, cell := range cells {
		cell.RemoveAll()
	}
}
