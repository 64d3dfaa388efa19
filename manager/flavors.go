package manager

import (
	"github.com/google/uuid"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/reactive"
)

type (
	// EntityBehaviourManager attaches behaviours to entities of one entity type.
	EntityBehaviourManager = Manager[*reactive.Entity, uuid.UUID, core.EntityBehaviourTypeID]
	// RelationBehaviourManager attaches behaviours to relations of one relation type.
	RelationBehaviourManager = Manager[*reactive.Relation, core.RelationInstanceID, core.RelationBehaviourTypeID]
	// EntityComponentBehaviourManager attaches behaviours to entities carrying a component.
	EntityComponentBehaviourManager = Manager[*reactive.Entity, uuid.UUID, core.ComponentBehaviourTypeID]
	// RelationComponentBehaviourManager attaches behaviours to relations carrying a component.
	RelationComponentBehaviourManager = Manager[*reactive.Relation, core.RelationInstanceID, core.ComponentBehaviourTypeID]
)

func entityKey(e *reactive.Entity) uuid.UUID { return e.ID() }
func relationKey(r *reactive.Relation) core.RelationInstanceID { return r.ID() }

func componentBehaviour(f core.ComponentBehaviourTypeID) core.BehaviourTypeID { return f.Behaviour }

// NewEntityBehaviourManager creates the entity type flavor. population lists
// the live entities.
func NewEntityBehaviourManager(population func() []*reactive.Entity, optFns ...func(o *Options)) *EntityBehaviourManager {
	return newManager(ScopeEntity, entityKey,
		func(f core.EntityBehaviourTypeID, e *reactive.Entity) bool { return f.EntityType.Matches(e.Type()) },
		func(f core.EntityBehaviourTypeID) core.BehaviourTypeID { return f.Behaviour },
		population, optFns)
}

// NewRelationBehaviourManager creates the relation type flavor.
func NewRelationBehaviourManager(population func() []*reactive.Relation, optFns ...func(o *Options)) *RelationBehaviourManager {
	return newManager(ScopeRelation, relationKey,
		func(f core.RelationBehaviourTypeID, r *reactive.Relation) bool { return f.RelationType == r.Type() },
		func(f core.RelationBehaviourTypeID) core.BehaviourTypeID { return f.Behaviour },
		population, optFns)
}

// NewEntityComponentBehaviourManager creates the entity component flavor.
func NewEntityComponentBehaviourManager(population func() []*reactive.Entity, optFns ...func(o *Options)) *EntityComponentBehaviourManager {
	return newManager(ScopeEntityComponent, entityKey,
		func(f core.ComponentBehaviourTypeID, e *reactive.Entity) bool { return e.IsA(f.Component) },
		componentBehaviour,
		population, optFns)
}

// NewRelationComponentBehaviourManager creates the relation component flavor.
func NewRelationComponentBehaviourManager(population func() []*reactive.Relation, optFns ...func(o *Options)) *RelationComponentBehaviourManager {
	return newManager(ScopeRelationComponent, relationKey,
		func(f core.ComponentBehaviourTypeID, r *reactive.Relation) bool { return r.IsA(f.Component) },
		componentBehaviour,
		population, optFns)
}

// ForComponent matches component behaviour keys of one component.
func ForComponent(component core.ComponentTypeID) func(core.ComponentBehaviourTypeID) bool {
	return func(f core.ComponentBehaviourTypeID) bool { return f.Component == component }
}
