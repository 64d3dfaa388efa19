package types

import (
	"github.com/hupe1980/reactivegraph/core"
)

// EntityTypeManager stores entity types.
type EntityTypeManager struct {
	*compositeManager[core.EntityTypeID, core.EntityType]
}

// NewEntityTypeManager creates an EntityTypeManager resolving components
// through components.
func NewEntityTypeManager(components *ComponentManager, optFns ...func(o *Options)) *EntityTypeManager {
	return &EntityTypeManager{newCompositeManager(composition[core.EntityTypeID, core.EntityType]{
		kind:     "entity_type",
		id:       func(t core.EntityType) core.EntityTypeID { return t.ID },
		validate: func(id core.EntityTypeID) error { return id.Validate() },
		clone:    core.EntityType.Clone,
		withComponents: func(t core.EntityType, cs core.ComponentList) core.EntityType {
			t.Components = cs
			return t
		},
		withProperties: func(t core.EntityType, ps core.PropertyTypes) core.EntityType {
			t.Properties = ps
			return t
		},
		merge: func(cur, update core.EntityType) core.EntityType {
			cur = cur.Clone()
			for _, c := range update.Components {
				cur.Components, _ = cur.Components.Add(c)
			}
			for _, p := range update.Properties {
				cur.Properties = cur.Properties.Upsert(p)
			}
			cur.Extensions = cur.Extensions.Merge(update.Extensions)
			if update.Description != "" {
				cur.Description = update.Description
			}
			return cur
		},
	}, components, buildOptions(optFns))}
}

// RelationTypeManager stores relation types.
type RelationTypeManager struct {
	*compositeManager[core.RelationTypeID, core.RelationType]
}

// NewRelationTypeManager creates a RelationTypeManager resolving components
// through components.
func NewRelationTypeManager(components *ComponentManager, optFns ...func(o *Options)) *RelationTypeManager {
	return &RelationTypeManager{newCompositeManager(composition[core.RelationTypeID, core.RelationType]{
		kind:     "relation_type",
		id:       func(t core.RelationType) core.RelationTypeID { return t.ID },
		validate: func(id core.RelationTypeID) error { return id.Validate() },
		clone:    core.RelationType.Clone,
		withComponents: func(t core.RelationType, cs core.ComponentList) core.RelationType {
			t.Components = cs
			return t
		},
		withProperties: func(t core.RelationType, ps core.PropertyTypes) core.RelationType {
			t.Properties = ps
			return t
		},
		merge: func(cur, update core.RelationType) core.RelationType {
			cur = cur.Clone()
			for _, c := range update.Components {
				cur.Components, _ = cur.Components.Add(c)
			}
			for _, p := range update.Properties {
				cur.Properties = cur.Properties.Upsert(p)
			}
			cur.Extensions = cur.Extensions.Merge(update.Extensions)
			if update.Description != "" {
				cur.Description = update.Description
			}
			if !update.Outbound.IsZero() {
				cur.Outbound = update.Outbound
			}
			if !update.Inbound.IsZero() {
				cur.Inbound = update.Inbound
			}
			return cur
		},
	}, components, buildOptions(optFns))}
}
