package core

import (
	"slices"

	"github.com/google/uuid"
)

// Component is a reusable bundle of property declarations. Components are
// composed into entity and relation types and never instantiated alone.
type Component struct {
	ID          ComponentTypeID `json:"id"`
	Description string          `json:"description,omitempty"`
	Properties  PropertyTypes   `json:"properties"`
	Extensions  Extensions      `json:"extensions,omitempty"`
}

// NewComponent creates a component with the given properties.
func NewComponent(id ComponentTypeID, properties ...PropertyType) Component {
	return Component{ID: id, Properties: PropertyTypes(properties).Clone()}
}

// Clone returns a deep copy.
func (c Component) Clone() Component {
	c.Properties = c.Properties.Clone()
	c.Extensions = c.Extensions.Clone()
	return c
}

// Composite is implemented by the types that compose components.
type Composite interface {
	ComponentIDs() []ComponentTypeID
	OwnProperties() PropertyTypes
}

// ComponentList is an ordered set of component references.
type ComponentList []ComponentTypeID

// Contains reports whether id is referenced.
func (cs ComponentList) Contains(id ComponentTypeID) bool { return slices.Contains(cs, id) }

// Add appends id if missing and reports whether it was added.
func (cs ComponentList) Add(id ComponentTypeID) (ComponentList, bool) {
	if cs.Contains(id) {
		return cs, false
	}
	return append(slices.Clone(cs), id), true
}

// Remove drops id and reports whether it was present.
func (cs ComponentList) Remove(id ComponentTypeID) (ComponentList, bool) {
	i := slices.Index(cs, id)
	if i < 0 {
		return cs, false
	}
	return slices.Delete(slices.Clone(cs), i, i+1), true
}

// EntityType describes a kind of entity.
type EntityType struct {
	ID          EntityTypeID  `json:"id"`
	Description string        `json:"description,omitempty"`
	Components  ComponentList `json:"components,omitempty"`
	Properties  PropertyTypes `json:"properties,omitempty"`
	Extensions  Extensions    `json:"extensions,omitempty"`
}

// NewEntityType creates an entity type.
func NewEntityType(id EntityTypeID, components []ComponentTypeID, properties ...PropertyType) EntityType {
	return EntityType{ID: id, Components: slices.Clone(components), Properties: PropertyTypes(properties).Clone()}
}

// ComponentIDs implements Composite.
func (t EntityType) ComponentIDs() []ComponentTypeID { return slices.Clone(t.Components) }

// OwnProperties implements Composite.
func (t EntityType) OwnProperties() PropertyTypes { return t.Properties.Clone() }

// Clone returns a deep copy.
func (t EntityType) Clone() EntityType {
	t.Components = slices.Clone(t.Components)
	t.Properties = t.Properties.Clone()
	t.Extensions = t.Extensions.Clone()
	return t
}

// RelationType describes a kind of directed relation between two entities.
type RelationType struct {
	ID          RelationTypeID `json:"id"`
	Description string         `json:"description,omitempty"`
	Outbound    EntityTypeID   `json:"outbound"`
	Inbound     EntityTypeID   `json:"inbound"`
	Components  ComponentList  `json:"components,omitempty"`
	Properties  PropertyTypes  `json:"properties,omitempty"`
	Extensions  Extensions     `json:"extensions,omitempty"`
}

// NewRelationType creates a relation type.
func NewRelationType(id RelationTypeID, outbound, inbound EntityTypeID, components []ComponentTypeID, properties ...PropertyType) RelationType {
	return RelationType{
		ID:         id,
		Outbound:   outbound,
		Inbound:    inbound,
		Components: slices.Clone(components),
		Properties: PropertyTypes(properties).Clone(),
	}
}

// ComponentIDs implements Composite.
func (t RelationType) ComponentIDs() []ComponentTypeID { return slices.Clone(t.Components) }

// OwnProperties implements Composite.
func (t RelationType) OwnProperties() PropertyTypes { return t.Properties.Clone() }

// Clone returns a deep copy.
func (t RelationType) Clone() RelationType {
	t.Components = slices.Clone(t.Components)
	t.Properties = t.Properties.Clone()
	t.Extensions = t.Extensions.Clone()
	return t
}

// EntityInstance is a plain, non-reactive entity record used in flow templates.
type EntityInstance struct {
	ID         uuid.UUID      `json:"id"`
	Type       EntityTypeID   `json:"type"`
	Components ComponentList  `json:"components,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// RelationInstanceID identifies a relation: outbound entity, relation type,
// instance discriminator and inbound entity.
type RelationInstanceID struct {
	Outbound uuid.UUID      `json:"outbound"`
	Type     RelationTypeID `json:"type"`
	Instance string         `json:"instance,omitempty"`
	Inbound  uuid.UUID      `json:"inbound"`
}

// NewRelationInstanceID creates a relation id without discriminator.
func NewRelationInstanceID(outbound uuid.UUID, ty RelationTypeID, inbound uuid.UUID) RelationInstanceID {
	return RelationInstanceID{Outbound: outbound, Type: ty, Inbound: inbound}
}

func (id RelationInstanceID) String() string {
	s := id.Outbound.String() + "--" + id.Type.String()
	if id.Instance != "" {
		s += "__" + id.Instance
	}
	return s + "--" + id.Inbound.String()
}

// RelationInstance is a plain, non-reactive relation record used in flow templates.
type RelationInstance struct {
	ID         RelationInstanceID `json:"id"`
	Components ComponentList      `json:"components,omitempty"`
	Properties map[string]any     `json:"properties,omitempty"`
}

// FlowType is a template graph of entity and relation instances plus
// variables that parameterize the wrapper entity.
type FlowType struct {
	ID          FlowTypeID         `json:"id"`
	Description string             `json:"description,omitempty"`
	Wrapper     EntityInstance     `json:"wrapper"`
	Entities    []EntityInstance   `json:"entities,omitempty"`
	Relations   []RelationInstance `json:"relations,omitempty"`
	Variables   PropertyTypes      `json:"variables,omitempty"`
	Extensions  Extensions         `json:"extensions,omitempty"`
}

// Clone returns a deep copy.
func (t FlowType) Clone() FlowType {
	t.Wrapper = cloneEntityInstance(t.Wrapper)
	entities := make([]EntityInstance, len(t.Entities))
	for i, e := range t.Entities {
		entities[i] = cloneEntityInstance(e)
	}
	t.Entities = entities
	relations := make([]RelationInstance, len(t.Relations))
	for i, r := range t.Relations {
		r.Components = slices.Clone(r.Components)
		r.Properties = CloneValues(r.Properties)
		relations[i] = r
	}
	t.Relations = relations
	t.Variables = t.Variables.Clone()
	t.Extensions = t.Extensions.Clone()
	return t
}

// EntityTypes returns every entity type referenced by the template, wrapper first.
func (t FlowType) EntityTypes() []EntityTypeID {
	var out []EntityTypeID
	seen := map[EntityTypeID]bool{}
	for _, e := range append([]EntityInstance{t.Wrapper}, t.Entities...) {
		if e.Type.IsZero() || seen[e.Type] {
			continue
		}
		seen[e.Type] = true
		out = append(out, e.Type)
	}
	return out
}

// RelationTypes returns every relation type referenced by the template.
func (t FlowType) RelationTypes() []RelationTypeID {
	var out []RelationTypeID
	seen := map[RelationTypeID]bool{}
	for _, r := range t.Relations {
		if seen[r.ID.Type] {
			continue
		}
		seen[r.ID.Type] = true
		out = append(out, r.ID.Type)
	}
	return out
}

func cloneEntityInstance(e EntityInstance) EntityInstance {
	e.Components = slices.Clone(e.Components)
	e.Properties = CloneValues(e.Properties)
	return e
}
