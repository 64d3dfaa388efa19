package instance

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/util"
	"github.com/hupe1980/reactivegraph/manager"
	"github.com/hupe1980/reactivegraph/reactive"
	"github.com/hupe1980/reactivegraph/types"
)

const kindRelation = "relation"

// RelationInstanceManager is the registry of live relations.
type RelationInstanceManager struct {
	*registry[core.RelationInstanceID, *reactive.Relation]

	types               *types.Registry
	entities            *EntityInstanceManager
	typeBehaviours      *manager.RelationBehaviourManager
	componentBehaviours *manager.RelationComponentBehaviourManager
	opts                Options
}

// NewRelationInstanceManager creates an empty relation registry whose
// endpoints are looked up in entities.
func NewRelationInstanceManager(reg *types.Registry, entities *EntityInstanceManager, optFns ...func(o *Options)) *RelationInstanceManager {
	opts := buildOptions(optFns)
	m := &RelationInstanceManager{
		registry: newRegistry[core.RelationInstanceID, *reactive.Relation](kindRelation, opts),
		types:    reg,
		entities: entities,
		opts:     opts,
	}
	m.typeBehaviours = manager.NewRelationBehaviourManager(m.GetAll, opts.managerOptions())
	m.componentBehaviours = manager.NewRelationComponentBehaviourManager(m.GetAll, opts.managerOptions())
	entities.follow(m)
	return m
}

// Behaviours returns the manager of behaviours bound to relation types.
func (m *RelationInstanceManager) Behaviours() *manager.RelationBehaviourManager { return m.typeBehaviours }

// ComponentBehaviours returns the manager of behaviours bound to components.
func (m *RelationInstanceManager) ComponentBehaviours() *manager.RelationComponentBehaviourManager {
	return m.componentBehaviours
}

func (m *RelationInstanceManager) attachers() []attacher[*reactive.Relation] {
	return []attacher[*reactive.Relation]{m.typeBehaviours, m.componentBehaviours}
}

// Create builds a relation of type ty between two registered entities and
// registers it. instance distinguishes several relations of the same type
// between the same entities.
func (m *RelationInstanceManager) Create(outbound uuid.UUID, ty core.RelationTypeID, instance string, inbound uuid.UUID, values map[string]any) (*reactive.Relation, error) {
	t, ok := m.types.RelationTypes.Get(ty)
	if !ok {
		return nil, fmt.Errorf("%w: relation type %s", ErrUnknownType, ty)
	}
	out, ok := m.entities.Get(outbound)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutboundNotFound, outbound)
	}
	in, ok := m.entities.Get(inbound)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInboundNotFound, inbound)
	}
	if err := checkEndpoints(t, out, in); err != nil {
		return nil, err
	}
	id := core.RelationInstanceID{Outbound: outbound, Type: ty, Instance: instance, Inbound: inbound}
	if m.Has(id) {
		return nil, fmt.Errorf("%w: relation %s", ErrIDTaken, id)
	}
	components, props := resolve(m.types.Components, t.Components, t.Properties)
	if !m.opts.SkipValidation {
		if err := util.ValidateValues(values, props); err != nil {
			return nil, fmt.Errorf("relation %s: %w", ty, err)
		}
	}

	r := reactive.NewRelation(out, ty, instance, in, func(o *reactive.Options) {
		o.Components = components
		o.Properties = t.Properties
		o.Values = values
		o.Cell = m.opts.cellOptions(kindRelation)
	})
	if err := m.RegisterReactiveInstance(r); err != nil {
		return nil, err
	}
	return r, nil
}

func checkEndpoints(t core.RelationType, out, in *reactive.Entity) error {
	if !t.Outbound.Matches(out.Type()) {
		return fmt.Errorf("%w: outbound %s is not %s", ErrTypeMismatch, out.Type(), t.Outbound)
	}
	if !t.Inbound.Matches(in.Type()) {
		return fmt.Errorf("%w: inbound %s is not %s", ErrTypeMismatch, in.Type(), t.Inbound)
	}
	return nil
}

// RegisterReactiveInstance registers a relation built elsewhere. Both
// endpoints must be registered entities.
func (m *RelationInstanceManager) RegisterReactiveInstance(r *reactive.Relation) error {
	t, ok := m.types.RelationTypes.Get(r.Type())
	if !ok {
		return fmt.Errorf("%w: relation type %s", ErrUnknownType, r.Type())
	}
	if !m.entities.Has(r.Outbound().ID()) {
		return fmt.Errorf("%w: %s", ErrOutboundNotFound, r.Outbound().ID())
	}
	if !m.entities.Has(r.Inbound().ID()) {
		return fmt.Errorf("%w: %s", ErrInboundNotFound, r.Inbound().ID())
	}
	if err := checkEndpoints(t, r.Outbound(), r.Inbound()); err != nil {
		return err
	}
	if err := m.register(r.ID(), r, m.attachers()...); err != nil {
		return err
	}
	r.SetHooks(m.hooks(r))
	return nil
}

func (m *RelationInstanceManager) hooks(r *reactive.Relation) reactive.Hooks {
	return reactive.Hooks{
		ResolveComponent: m.types.Components.Get,
		ComponentAdded: func(core.ComponentTypeID) {
			m.reconnect(r, m.attachers()...)
			m.componentBehaviours.AddBehaviours(r)
		},
		ComponentRemoving: func(c core.ComponentTypeID) {
			m.componentBehaviours.RemoveBehavioursWhere(r, manager.ForComponent(c))
		},
		ComponentRemoved: func(core.ComponentTypeID) {
			m.reconnect(r, m.attachers()...)
		},
	}
}

// GetByType returns the relations of type ty.
func (m *RelationInstanceManager) GetByType(ty core.RelationTypeID) []*reactive.Relation {
	return m.filter(func(r *reactive.Relation) bool { return r.Type() == ty })
}

// GetByOutbound returns the relations starting at the entity.
func (m *RelationInstanceManager) GetByOutbound(id uuid.UUID) []*reactive.Relation {
	return m.filter(func(r *reactive.Relation) bool { return r.Outbound().ID() == id })
}

// GetByInbound returns the relations ending at the entity.
func (m *RelationInstanceManager) GetByInbound(id uuid.UUID) []*reactive.Relation {
	return m.filter(func(r *reactive.Relation) bool { return r.Inbound().ID() == id })
}

// Delete removes every behaviour of the relation and releases it.
func (m *RelationInstanceManager) Delete(id core.RelationInstanceID) bool {
	_, ok := m.remove(id, m.attachers()...)
	return ok
}

// DeleteByEntity deletes every relation that starts or ends at the entity and
// returns how many were deleted.
func (m *RelationInstanceManager) DeleteByEntity(id uuid.UUID) int {
	deleted := 0
	for _, r := range m.byEntity(id) {
		if m.Delete(r.ID()) {
			deleted++
		}
	}
	return deleted
}

// reconnectEndpoint reconnects the behaviours of every relation at e after
// the cells of e changed.
func (m *RelationInstanceManager) reconnectEndpoint(e *reactive.Entity) {
	for _, r := range m.byEntity(e.ID()) {
		m.reconnect(r, m.attachers()...)
	}
}

func (m *RelationInstanceManager) byEntity(id uuid.UUID) []*reactive.Relation {
	return m.filter(func(r *reactive.Relation) bool {
		return r.Outbound().ID() == id || r.Inbound().ID() == id
	})
}

// AddComponent activates component on a live relation.
func (m *RelationInstanceManager) AddComponent(id core.RelationInstanceID, component core.ComponentTypeID) error {
	r, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: relation %s", ErrInstanceNotFound, id)
	}
	return r.AddComponent(component)
}

// RemoveComponent deactivates component on a live relation.
func (m *RelationInstanceManager) RemoveComponent(id core.RelationInstanceID, component core.ComponentTypeID) error {
	r, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: relation %s", ErrInstanceNotFound, id)
	}
	return r.RemoveComponent(component)
}
