package testutil

import (
	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/types"
)

// EntityTypeBuilder provides a fluent helper for constructing entity types in tests.
// Example:
//
//	ty := NewEntityTypeBuilder("test", "sensor").Component(valueComp).Number("value").Build()
type EntityTypeBuilder struct {
	t core.EntityType
}

// NewEntityTypeBuilder creates a builder for the entity type namespace/name.
func NewEntityTypeBuilder(namespace, name string) *EntityTypeBuilder {
	return &EntityTypeBuilder{t: core.EntityType{ID: core.NewEntityTypeID(namespace, name)}}
}

// Component adds components (chainable).
func (b *EntityTypeBuilder) Component(ids ...core.ComponentTypeID) *EntityTypeBuilder {
	b.t.Components = append(b.t.Components, ids...)
	return b
}

// Property adds an own property (chainable).
func (b *EntityTypeBuilder) Property(name string, dt core.DataType) *EntityTypeBuilder {
	b.t.Properties = b.t.Properties.Upsert(core.NewPropertyType(name, dt))
	return b
}

// Number adds an own number property (chainable).
func (b *EntityTypeBuilder) Number(name string) *EntityTypeBuilder {
	return b.Property(name, core.DataTypeNumber)
}

// String adds an own string property (chainable).
func (b *EntityTypeBuilder) String(name string) *EntityTypeBuilder {
	return b.Property(name, core.DataTypeString)
}

// Build returns the entity type.
func (b *EntityTypeBuilder) Build() core.EntityType { return b.t.Clone() }

// RelationTypeBuilder helps construct relation types with fluent chaining for tests.
type RelationTypeBuilder struct {
	t core.RelationType
}

// NewRelationTypeBuilder creates a builder for the relation type namespace/name
// accepting any endpoints until From and To are set.
func NewRelationTypeBuilder(namespace, name string) *RelationTypeBuilder {
	return &RelationTypeBuilder{t: core.RelationType{ID: core.NewRelationTypeID(namespace, name)}}
}

// From sets the outbound entity type (chainable).
func (b *RelationTypeBuilder) From(ty core.EntityTypeID) *RelationTypeBuilder {
	b.t.Outbound = ty
	return b
}

// To sets the inbound entity type (chainable).
func (b *RelationTypeBuilder) To(ty core.EntityTypeID) *RelationTypeBuilder {
	b.t.Inbound = ty
	return b
}

// Component adds components (chainable).
func (b *RelationTypeBuilder) Component(ids ...core.ComponentTypeID) *RelationTypeBuilder {
	b.t.Components = append(b.t.Components, ids...)
	return b
}

// Property adds an own property (chainable).
func (b *RelationTypeBuilder) Property(name string, dt core.DataType) *RelationTypeBuilder {
	b.t.Properties = b.t.Properties.Upsert(core.NewPropertyType(name, dt))
	return b
}

// Build returns the relation type.
func (b *RelationTypeBuilder) Build() core.RelationType { return b.t.Clone() }

// RegistryBuilder collects types and registers them in one go.
// Example:
//
//	reg := NewRegistryBuilder().Component(c).EntityType(et).MustBuild()
type RegistryBuilder struct {
	components    []core.Component
	entityTypes   []core.EntityType
	relationTypes []core.RelationType
	flowTypes     []core.FlowType
	opts          []func(o *types.Options)
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder { return &RegistryBuilder{} }

// Options sets the registry options (chainable).
func (b *RegistryBuilder) Options(optFns ...func(o *types.Options)) *RegistryBuilder {
	b.opts = append(b.opts, optFns...)
	return b
}

// Component adds components (chainable).
func (b *RegistryBuilder) Component(cs ...core.Component) *RegistryBuilder {
	b.components = append(b.components, cs...)
	return b
}

// EntityType adds entity types (chainable).
func (b *RegistryBuilder) EntityType(ts ...core.EntityType) *RegistryBuilder {
	b.entityTypes = append(b.entityTypes, ts...)
	return b
}

// RelationType adds relation types (chainable).
func (b *RegistryBuilder) RelationType(ts ...core.RelationType) *RegistryBuilder {
	b.relationTypes = append(b.relationTypes, ts...)
	return b
}

// FlowType adds flow types (chainable).
func (b *RegistryBuilder) FlowType(ts ...core.FlowType) *RegistryBuilder {
	b.flowTypes = append(b.flowTypes, ts...)
	return b
}

// Build registers every collected type, components first.
func (b *RegistryBuilder) Build() (*types.Registry, error) {
	reg := types.NewRegistry(b.opts...)
	for _, c := range b.components {
		if err := reg.Components.Register(c); err != nil {
			return nil, err
		}
	}
	for _, t := range b.entityTypes {
		if _, err := reg.EntityTypes.Register(t); err != nil {
			return nil, err
		}
	}
	for _, t := range b.relationTypes {
		if _, err := reg.RelationTypes.Register(t); err != nil {
			return nil, err
		}
	}
	for _, t := range b.flowTypes {
		if _, err := reg.FlowTypes.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// MustBuild is Build that panics on error.
func (b *RegistryBuilder) MustBuild() *types.Registry {
	reg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return reg
}
