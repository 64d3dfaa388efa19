package instance

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/util"
	"github.com/hupe1980/reactivegraph/manager"
	"github.com/hupe1980/reactivegraph/reactive"
	"github.com/hupe1980/reactivegraph/types"
)

const kindEntity = "entity"

// EntityInstanceManager is the registry of live entities.
type EntityInstanceManager struct {
	*registry[uuid.UUID, *reactive.Entity]

	types               *types.Registry
	typeBehaviours      *manager.EntityBehaviourManager
	componentBehaviours *manager.EntityComponentBehaviourManager
	opts                Options

	mu        sync.RWMutex
	followers []endpointFollower
}

// endpointFollower keeps the instances that point at an entity in step with
// it. RelationInstanceManager follows its entity registry.
type endpointFollower interface {
	reconnectEndpoint(e *reactive.Entity)
	DeleteByEntity(id uuid.UUID) int
}

// NewEntityInstanceManager creates an empty entity registry together with its
// entity type and entity component behaviour managers.
func NewEntityInstanceManager(reg *types.Registry, optFns ...func(o *Options)) *EntityInstanceManager {
	opts := buildOptions(optFns)
	m := &EntityInstanceManager{
		registry: newRegistry[uuid.UUID, *reactive.Entity](kindEntity, opts),
		types:    reg,
		opts:     opts,
	}
	m.typeBehaviours = manager.NewEntityBehaviourManager(m.GetAll, opts.managerOptions())
	m.componentBehaviours = manager.NewEntityComponentBehaviourManager(m.GetAll, opts.managerOptions())
	return m
}

// Behaviours returns the manager of behaviours bound to entity types.
func (m *EntityInstanceManager) Behaviours() *manager.EntityBehaviourManager { return m.typeBehaviours }

// ComponentBehaviours returns the manager of behaviours bound to components.
func (m *EntityInstanceManager) ComponentBehaviours() *manager.EntityComponentBehaviourManager {
	return m.componentBehaviours
}

func (m *EntityInstanceManager) attachers() []attacher[*reactive.Entity] {
	return []attacher[*reactive.Entity]{m.typeBehaviours, m.componentBehaviours}
}

// Create builds an entity of type ty and registers it. A nil id is replaced
// by a random one. Properties of the type and its components start at values
// or at the default value of their data type.
func (m *EntityInstanceManager) Create(ty core.EntityTypeID, id uuid.UUID, values map[string]any) (*reactive.Entity, error) {
	t, ok := m.types.EntityTypes.Get(ty)
	if !ok {
		return nil, fmt.Errorf("%w: entity type %s", ErrUnknownType, ty)
	}
	if id != uuid.Nil && m.Has(id) {
		return nil, fmt.Errorf("%w: entity %s", ErrIDTaken, id)
	}
	components, props := resolve(m.types.Components, t.Components, t.Properties)
	if !m.opts.SkipValidation {
		if err := util.ValidateValues(values, props); err != nil {
			return nil, fmt.Errorf("entity %s: %w", ty, err)
		}
	}

	e := reactive.NewEntity(id, ty, func(o *reactive.Options) {
		o.Components = components
		o.Properties = t.Properties
		o.Values = values
		o.Cell = m.opts.cellOptions(kindEntity)
	})
	if err := m.RegisterReactiveInstance(e); err != nil {
		return nil, err
	}
	return e, nil
}

// resolve looks up the components of a type. Unknown components stay active
// without contributing properties.
func resolve(cm *types.ComponentManager, ids []core.ComponentTypeID, own core.PropertyTypes) ([]core.Component, core.PropertyTypes) {
	components := make([]core.Component, 0, len(ids))
	for _, id := range ids {
		c, ok := cm.Get(id)
		if !ok {
			c = core.Component{ID: id}
		}
		components = append(components, c)
	}
	props, _ := types.Compose(own, ids, cm.Resolver())
	return components, props
}

// RegisterReactiveInstance registers an entity built elsewhere and attaches
// every behaviour that applies to its type and components.
func (m *EntityInstanceManager) RegisterReactiveInstance(e *reactive.Entity) error {
	if !m.types.EntityTypes.Has(e.Type()) {
		return fmt.Errorf("%w: entity type %s", ErrUnknownType, e.Type())
	}
	if err := m.register(e.ID(), e, m.attachers()...); err != nil {
		return err
	}
	e.SetHooks(m.hooks(e))
	return nil
}

func (m *EntityInstanceManager) hooks(e *reactive.Entity) reactive.Hooks {
	return reactive.Hooks{
		ResolveComponent: m.types.Components.Get,
		ComponentAdded: func(core.ComponentTypeID) {
			m.reconnect(e, m.attachers()...)
			m.componentBehaviours.AddBehaviours(e)
			m.reconnectFollowers(e)
		},
		ComponentRemoving: func(c core.ComponentTypeID) {
			m.componentBehaviours.RemoveBehavioursWhere(e, manager.ForComponent(c))
		},
		ComponentRemoved: func(core.ComponentTypeID) {
			m.reconnect(e, m.attachers()...)
			m.reconnectFollowers(e)
		},
	}
}

func (m *EntityInstanceManager) follow(f endpointFollower) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers = append(m.followers, f)
}

func (m *EntityInstanceManager) endpointFollowers() []endpointFollower {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.followers)
}

func (m *EntityInstanceManager) reconnectFollowers(e *reactive.Entity) {
	for _, f := range m.endpointFollowers() {
		f.reconnectEndpoint(e)
	}
}

// GetByType returns the entities of type ty. A wildcard type matches every
// entity.
func (m *EntityInstanceManager) GetByType(ty core.EntityTypeID) []*reactive.Entity {
	return m.filter(func(e *reactive.Entity) bool { return ty.Matches(e.Type()) })
}

// GetByComponent returns the entities that carry component.
func (m *EntityInstanceManager) GetByComponent(component core.ComponentTypeID) []*reactive.Entity {
	return m.filter(func(e *reactive.Entity) bool { return e.IsA(component) })
}

// Delete removes the relations that start or end at the entity, then every
// behaviour of the entity, and releases it.
func (m *EntityInstanceManager) Delete(id uuid.UUID) bool {
	if !m.Has(id) {
		return false
	}
	for _, f := range m.endpointFollowers() {
		f.DeleteByEntity(id)
	}
	_, ok := m.remove(id, m.attachers()...)
	return ok
}

// AddComponent activates component on a live entity.
func (m *EntityInstanceManager) AddComponent(id uuid.UUID, component core.ComponentTypeID) error {
	e, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: entity %s", ErrInstanceNotFound, id)
	}
	return e.AddComponent(component)
}

// RemoveComponent deactivates component on a live entity.
func (m *EntityInstanceManager) RemoveComponent(id uuid.UUID, component core.ComponentTypeID) error {
	e, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: entity %s", ErrInstanceNotFound, id)
	}
	return e.RemoveComponent(component)
}
