package types

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/syncmap"
	"github.com/hupe1980/reactivegraph/logging"
)

// ComponentListener is notified about type level composition changes.
type ComponentListener[ID comparable] func(ty ID, component core.ComponentTypeID)

// composition describes how to read and write the composable parts of T.
type composition[ID comparable, T core.Composite] struct {
	kind           string
	id             func(T) ID
	validate       func(ID) error
	clone          func(T) T
	withComponents func(T, core.ComponentList) T
	withProperties func(T, core.PropertyTypes) T
	merge          func(cur, update T) T
}

// compositeManager implements the engine shared by entity and relation types.
type compositeManager[ID interface {
	comparable
	fmt.Stringer
}, T core.Composite] struct {
	c          composition[ID, T]
	items      *syncmap.Map[ID, T]
	components *ComponentManager
	logger     logging.Logger

	mu      sync.RWMutex
	added   []ComponentListener[ID]
	removed []ComponentListener[ID]
}

func newCompositeManager[ID interface {
	comparable
	fmt.Stringer
}, T core.Composite](c composition[ID, T], components *ComponentManager, opts Options) *compositeManager[ID, T] {
	return &compositeManager[ID, T]{
		c:          c,
		items:      syncmap.New[ID, T](opts.Shards),
		components: components,
		logger:     opts.Logger,
	}
}

func (m *compositeManager[ID, T]) divergence(t T) (core.PropertyTypes, Divergent) {
	return Compose(t.OwnProperties(), t.ComponentIDs(), m.components.Resolver())
}

func (m *compositeManager[ID, T]) report(op string, id ID, div Divergent) {
	if div.IsEmpty() {
		return
	}
	m.logger.Warn(m.c.kind+"."+op+".divergent",
		"type", id.String(),
		"properties", div.PropertyNames(),
		"unfulfilled", len(div.Unfulfilled),
	)
}

// Register adds a new type and reports its composition problems.
func (m *compositeManager[ID, T]) Register(t T) (Divergent, error) {
	id := m.c.id(t)
	if err := m.c.validate(id); err != nil {
		return Divergent{}, fmt.Errorf("%w: %v", ErrInvalidTypeID, err)
	}
	if _, loaded := m.items.LoadOrStore(id, m.c.clone(t)); loaded {
		return Divergent{}, fmt.Errorf("%w: %s %s", ErrTypeAlreadyExists, m.c.kind, id)
	}
	_, div := m.divergence(t)
	m.report("register", id, div)
	m.logger.Debug(m.c.kind+".register", "type", id.String())
	return div, nil
}

// Merge merges t into the registered type of the same id and reports the
// composition problems of the result.
func (m *compositeManager[ID, T]) Merge(t T) (Divergent, error) {
	id := m.c.id(t)
	var merged T
	_, ok := m.items.Compute(id, func(cur T, loaded bool) (T, bool) {
		if !loaded {
			return cur, false
		}
		merged = m.c.merge(cur, t)
		return merged, true
	})
	if !ok {
		return Divergent{}, fmt.Errorf("%w: %s %s", ErrTypeDoesNotExist, m.c.kind, id)
	}
	_, div := m.divergence(merged)
	m.report("merge", id, div)
	return div, nil
}

// Get returns a copy of the type.
func (m *compositeManager[ID, T]) Get(id ID) (T, bool) {
	t, ok := m.items.Load(id)
	if !ok {
		return t, false
	}
	return m.c.clone(t), true
}

func (m *compositeManager[ID, T]) Has(id ID) bool { return m.items.Has(id) }

// GetAll returns every type sorted by id.
func (m *compositeManager[ID, T]) GetAll() []T {
	out := m.items.Values()
	for i := range out {
		out[i] = m.c.clone(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return m.c.id(out[i]).String() < m.c.id(out[j]).String() })
	return out
}

func (m *compositeManager[ID, T]) Delete(id ID) bool {
	_, ok := m.items.LoadAndDelete(id)
	return ok
}

func (m *compositeManager[ID, T]) Len() int { return m.items.Len() }

// GetComponentsCloned returns the component references of a type.
func (m *compositeManager[ID, T]) GetComponentsCloned(id ID) []core.ComponentTypeID {
	t, ok := m.items.Load(id)
	if !ok {
		return nil
	}
	return t.ComponentIDs()
}

// IsA reports whether the type references component.
func (m *compositeManager[ID, T]) IsA(id ID, component core.ComponentTypeID) bool {
	return slices.Contains(m.GetComponentsCloned(id), component)
}

// IsAny reports whether the type references at least one of components.
func (m *compositeManager[ID, T]) IsAny(id ID, components ...core.ComponentTypeID) bool {
	have := m.GetComponentsCloned(id)
	for _, c := range components {
		if slices.Contains(have, c) {
			return true
		}
	}
	return false
}

// IsAll reports whether the type references every one of components.
func (m *compositeManager[ID, T]) IsAll(id ID, components ...core.ComponentTypeID) bool {
	if !m.Has(id) {
		return false
	}
	have := m.GetComponentsCloned(id)
	for _, c := range components {
		if !slices.Contains(have, c) {
			return false
		}
	}
	return true
}

// EffectiveProperties returns the own properties of a type plus those of its
// components, together with the composition report.
func (m *compositeManager[ID, T]) EffectiveProperties(id ID) (core.PropertyTypes, Divergent, error) {
	t, ok := m.items.Load(id)
	if !ok {
		return nil, Divergent{}, fmt.Errorf("%w: %s %s", ErrTypeDoesNotExist, m.c.kind, id)
	}
	ps, div := m.divergence(t)
	return ps, div, nil
}

// Divergence recomputes the composition report of a type.
func (m *compositeManager[ID, T]) Divergence(id ID) (Divergent, error) {
	_, div, err := m.EffectiveProperties(id)
	return div, err
}

// DivergenceByComponent recomputes the composition report of every type
// referencing component and returns the non-empty ones.
func (m *compositeManager[ID, T]) DivergenceByComponent(component core.ComponentTypeID) Report[ID] {
	report := Report[ID]{}
	m.items.Range(func(id ID, t T) bool {
		if !slices.Contains(t.ComponentIDs(), component) {
			return true
		}
		if _, div := m.divergence(t); !div.IsEmpty() {
			report[id] = div
			m.report("component.merge", id, div)
		}
		return true
	})
	return report
}

// AddComponent adds a component reference to a type. The component must be
// registered.
func (m *compositeManager[ID, T]) AddComponent(id ID, component core.ComponentTypeID) error {
	if !m.components.Has(component) {
		return fmt.Errorf("%w: %s", ErrComponentDoesNotExist, component)
	}
	var editErr error
	_, ok := m.items.Compute(id, func(cur T, loaded bool) (T, bool) {
		if !loaded {
			return cur, false
		}
		list, added := core.ComponentList(cur.ComponentIDs()).Add(component)
		if !added {
			editErr = fmt.Errorf("%w: %s on %s", ErrComponentAlreadyExists, component, id)
			return cur, true
		}
		return m.c.withComponents(cur, list), true
	})
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrTypeDoesNotExist, m.c.kind, id)
	}
	if editErr != nil {
		return editErr
	}
	m.logger.Info(m.c.kind+".component.add", "type", id.String(), "component", component.String())
	m.notify(m.listeners(true), id, component)
	return nil
}

// RemoveComponent removes a component reference from a type.
func (m *compositeManager[ID, T]) RemoveComponent(id ID, component core.ComponentTypeID) error {
	var editErr error
	_, ok := m.items.Compute(id, func(cur T, loaded bool) (T, bool) {
		if !loaded {
			return cur, false
		}
		list, removed := core.ComponentList(cur.ComponentIDs()).Remove(component)
		if !removed {
			editErr = fmt.Errorf("%w: %s on %s", ErrComponentDoesNotExist, component, id)
			return cur, true
		}
		return m.c.withComponents(cur, list), true
	})
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrTypeDoesNotExist, m.c.kind, id)
	}
	if editErr != nil {
		return editErr
	}
	m.logger.Info(m.c.kind+".component.remove", "type", id.String(), "component", component.String())
	m.notify(m.listeners(false), id, component)
	return nil
}

// AddProperty adds an own property to a type.
func (m *compositeManager[ID, T]) AddProperty(id ID, p core.PropertyType) error {
	return m.editProperties(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) { return addProperty(ps, p) })
}

// UpdateProperty replaces an own property of a type.
func (m *compositeManager[ID, T]) UpdateProperty(id ID, p core.PropertyType) error {
	return m.editProperties(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) { return updateProperty(ps, p) })
}

// RemoveProperty removes an own property of a type.
func (m *compositeManager[ID, T]) RemoveProperty(id ID, name string) error {
	return m.editProperties(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) { return removeProperty(ps, name) })
}

func (m *compositeManager[ID, T]) editProperties(id ID, edit func(core.PropertyTypes) (core.PropertyTypes, error)) error {
	var editErr error
	_, ok := m.items.Compute(id, func(cur T, loaded bool) (T, bool) {
		if !loaded {
			return cur, false
		}
		ps, err := edit(cur.OwnProperties())
		if err != nil {
			editErr = err
			return cur, true
		}
		return m.c.withProperties(cur, ps), true
	})
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrTypeDoesNotExist, m.c.kind, id)
	}
	return editErr
}

// OnComponentAdded registers fn to run after AddComponent succeeded.
func (m *compositeManager[ID, T]) OnComponentAdded(fn ComponentListener[ID]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, fn)
}

// OnComponentRemoved registers fn to run after RemoveComponent succeeded.
func (m *compositeManager[ID, T]) OnComponentRemoved(fn ComponentListener[ID]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, fn)
}

func (m *compositeManager[ID, T]) listeners(added bool) []ComponentListener[ID] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if added {
		return slices.Clone(m.added)
	}
	return slices.Clone(m.removed)
}

func (m *compositeManager[ID, T]) notify(fns []ComponentListener[ID], id ID, component core.ComponentTypeID) {
	for _, fn := range fns {
		fn(id, component)
	}
}
