package types

import (
	"fmt"
	"sort"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/syncmap"
	"github.com/hupe1980/reactivegraph/logging"
)

// Options configures the type managers.
type Options struct {
	Logger logging.Logger
	Shards int
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return opts
}

// ComponentManager stores components.
type ComponentManager struct {
	items  *syncmap.Map[core.ComponentTypeID, core.Component]
	logger logging.Logger
}

// NewComponentManager creates an empty ComponentManager.
func NewComponentManager(optFns ...func(o *Options)) *ComponentManager {
	opts := buildOptions(optFns)
	return &ComponentManager{
		items:  syncmap.New[core.ComponentTypeID, core.Component](opts.Shards),
		logger: opts.Logger,
	}
}

// Register adds a new component.
func (m *ComponentManager) Register(c core.Component) error {
	if err := c.ID.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTypeID, err)
	}
	if _, loaded := m.items.LoadOrStore(c.ID, c.Clone()); loaded {
		return fmt.Errorf("%w: component %s", ErrTypeAlreadyExists, c.ID)
	}
	m.logger.Debug("component.register", "component", c.ID.String(), "properties", len(c.Properties))
	return nil
}

// Merge merges c into the registered component of the same id: properties are
// upserted, extensions merged and a non-empty description replaces the old one.
func (m *ComponentManager) Merge(c core.Component) (core.Component, error) {
	var merged core.Component
	_, ok := m.items.Compute(c.ID, func(cur core.Component, loaded bool) (core.Component, bool) {
		if !loaded {
			return cur, false
		}
		for _, p := range c.Properties {
			cur.Properties = cur.Properties.Upsert(p)
		}
		cur.Extensions = cur.Extensions.Merge(c.Extensions)
		if c.Description != "" {
			cur.Description = c.Description
		}
		merged = cur.Clone()
		return cur, true
	})
	if !ok {
		return core.Component{}, fmt.Errorf("%w: component %s", ErrTypeDoesNotExist, c.ID)
	}
	return merged, nil
}

// Get returns a copy of the component.
func (m *ComponentManager) Get(id core.ComponentTypeID) (core.Component, bool) {
	c, ok := m.items.Load(id)
	if !ok {
		return core.Component{}, false
	}
	return c.Clone(), true
}

// Resolver returns Get as a ComponentResolver.
func (m *ComponentManager) Resolver() ComponentResolver { return m.Get }

func (m *ComponentManager) Has(id core.ComponentTypeID) bool { return m.items.Has(id) }

// GetAll returns every component sorted by id.
func (m *ComponentManager) GetAll() []core.Component {
	out := m.items.Values()
	for i := range out {
		out[i] = out[i].Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// GetByNamespace returns the components of one namespace.
func (m *ComponentManager) GetByNamespace(namespace string) []core.Component {
	var out []core.Component
	for _, c := range m.GetAll() {
		if c.ID.Namespace == namespace {
			out = append(out, c)
		}
	}
	return out
}

func (m *ComponentManager) Delete(id core.ComponentTypeID) bool {
	_, ok := m.items.LoadAndDelete(id)
	return ok
}

func (m *ComponentManager) Len() int { return m.items.Len() }

// AddProperty adds a property declaration to a component.
func (m *ComponentManager) AddProperty(id core.ComponentTypeID, p core.PropertyType) error {
	return m.editProperties(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) {
		return addProperty(ps, p)
	})
}

// UpdateProperty replaces an existing property declaration.
func (m *ComponentManager) UpdateProperty(id core.ComponentTypeID, p core.PropertyType) error {
	return m.editProperties(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) {
		return updateProperty(ps, p)
	})
}

// RemoveProperty removes a property declaration.
func (m *ComponentManager) RemoveProperty(id core.ComponentTypeID, name string) error {
	return m.editProperties(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) {
		return removeProperty(ps, name)
	})
}

func (m *ComponentManager) editProperties(id core.ComponentTypeID, edit func(core.PropertyTypes) (core.PropertyTypes, error)) error {
	var editErr error
	_, ok := m.items.Compute(id, func(cur core.Component, loaded bool) (core.Component, bool) {
		if !loaded {
			return cur, false
		}
		ps, err := edit(cur.Properties)
		if err != nil {
			editErr = err
			return cur, true
		}
		cur.Properties = ps
		return cur, true
	})
	if !ok {
		return fmt.Errorf("%w: component %s", ErrTypeDoesNotExist, id)
	}
	return editErr
}

func addProperty(ps core.PropertyTypes, p core.PropertyType) (core.PropertyTypes, error) {
	if ps.Contains(p.Name) {
		return ps, fmt.Errorf("%w: %s", ErrPropertyAlreadyExists, p.Name)
	}
	return ps.Upsert(p), nil
}

func updateProperty(ps core.PropertyTypes, p core.PropertyType) (core.PropertyTypes, error) {
	if !ps.Contains(p.Name) {
		return ps, fmt.Errorf("%w: %s", ErrPropertyDoesNotExist, p.Name)
	}
	return ps.Upsert(p), nil
}

func removeProperty(ps core.PropertyTypes, name string) (core.PropertyTypes, error) {
	if !ps.Contains(name) {
		return ps, fmt.Errorf("%w: %s", ErrPropertyDoesNotExist, name)
	}
	return ps.Remove(name), nil
}
