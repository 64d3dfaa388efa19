package core

import (
	"fmt"
	"strings"
)

// NamespaceSeparator separates namespace and name in the string form of a TypeID.
const NamespaceSeparator = "__"

// TypeID is a namespaced type identifier. The zero value is invalid.
type TypeID struct {
	Namespace string `json:"namespace" toml:"namespace"`
	Name      string `json:"name" toml:"name"`
}

// NewTypeID creates a TypeID.
func NewTypeID(namespace, name string) TypeID {
	return TypeID{Namespace: namespace, Name: name}
}

// ParseTypeID parses the "namespace__name" form.
func ParseTypeID(s string) (TypeID, error) {
	ns, name, ok := strings.Cut(s, NamespaceSeparator)
	if !ok || ns == "" || name == "" {
		return TypeID{}, fmt.Errorf("invalid type id %q: expected namespace%sname", s, NamespaceSeparator)
	}
	return TypeID{Namespace: ns, Name: name}, nil
}

// String returns the "namespace__name" form.
func (t TypeID) String() string { return t.Namespace + NamespaceSeparator + t.Name }

// IsZero reports whether the id is unset.
func (t TypeID) IsZero() bool { return t.Namespace == "" && t.Name == "" }

// Validate checks that both parts are present.
func (t TypeID) Validate() error {
	if t.Namespace == "" || t.Name == "" {
		return fmt.Errorf("invalid type id %q: namespace and name are required", t.String())
	}
	return nil
}

// ComponentTypeID identifies a Component.
type ComponentTypeID struct{ TypeID }

// NewComponentTypeID creates a ComponentTypeID.
func NewComponentTypeID(namespace, name string) ComponentTypeID {
	return ComponentTypeID{NewTypeID(namespace, name)}
}

// EntityTypeID identifies an EntityType.
type EntityTypeID struct{ TypeID }

// NewEntityTypeID creates an EntityTypeID.
func NewEntityTypeID(namespace, name string) EntityTypeID {
	return EntityTypeID{NewTypeID(namespace, name)}
}

// Wildcard is the type name matching any entity type in relation constraints.
const Wildcard = "*"

// IsWildcard reports whether the id matches any entity type.
func (t EntityTypeID) IsWildcard() bool { return t.Name == Wildcard || t.IsZero() }

// Matches reports whether ty satisfies the constraint t.
func (t EntityTypeID) Matches(ty EntityTypeID) bool {
	return t.IsWildcard() || t == ty
}

// RelationTypeID identifies a RelationType.
type RelationTypeID struct{ TypeID }

// NewRelationTypeID creates a RelationTypeID.
func NewRelationTypeID(namespace, name string) RelationTypeID {
	return RelationTypeID{NewTypeID(namespace, name)}
}

// FlowTypeID identifies a FlowType.
type FlowTypeID struct{ TypeID }

// NewFlowTypeID creates a FlowTypeID.
func NewFlowTypeID(namespace, name string) FlowTypeID {
	return FlowTypeID{NewTypeID(namespace, name)}
}

// BehaviourTypeID identifies a behaviour implementation. It is the key of an
// instance's behaviour map.
type BehaviourTypeID struct{ TypeID }

// NewBehaviourTypeID creates a BehaviourTypeID.
func NewBehaviourTypeID(namespace, name string) BehaviourTypeID {
	return BehaviourTypeID{NewTypeID(namespace, name)}
}

// ComponentBehaviourTypeID binds a behaviour to any instance carrying Component.
type ComponentBehaviourTypeID struct {
	Component ComponentTypeID
	Behaviour BehaviourTypeID
}

// NewComponentBehaviourTypeID creates a ComponentBehaviourTypeID.
func NewComponentBehaviourTypeID(component ComponentTypeID, behaviour BehaviourTypeID) ComponentBehaviourTypeID {
	return ComponentBehaviourTypeID{Component: component, Behaviour: behaviour}
}

func (t ComponentBehaviourTypeID) String() string {
	return t.Component.String() + "/" + t.Behaviour.String()
}

// EntityBehaviourTypeID binds a behaviour to instances of one entity type.
type EntityBehaviourTypeID struct {
	EntityType EntityTypeID
	Behaviour  BehaviourTypeID
}

// NewEntityBehaviourTypeID creates an EntityBehaviourTypeID.
func NewEntityBehaviourTypeID(entityType EntityTypeID, behaviour BehaviourTypeID) EntityBehaviourTypeID {
	return EntityBehaviourTypeID{EntityType: entityType, Behaviour: behaviour}
}

func (t EntityBehaviourTypeID) String() string {
	return t.EntityType.String() + "/" + t.Behaviour.String()
}

// RelationBehaviourTypeID binds a behaviour to instances of one relation type.
type RelationBehaviourTypeID struct {
	RelationType RelationTypeID
	Behaviour    BehaviourTypeID
}

// NewRelationBehaviourTypeID creates a RelationBehaviourTypeID.
func NewRelationBehaviourTypeID(relationType RelationTypeID, behaviour BehaviourTypeID) RelationBehaviourTypeID {
	return RelationBehaviourTypeID{RelationType: relationType, Behaviour: behaviour}
}

func (t RelationBehaviourTypeID) String() string {
	return t.RelationType.String() + "/" + t.Behaviour.String()
}
