// Package provider contains type providers: batches of components, entity
// types, relation types and flow types that are registered with a
// types.Registry in one go and can be unregistered again by provider id.
package provider

import (
	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/types"
)

var (
	_ types.ComponentProvider    = (*Static)(nil)
	_ types.EntityTypeProvider   = (*Static)(nil)
	_ types.RelationTypeProvider = (*Static)(nil)
	_ types.FlowTypeProvider     = (*Static)(nil)
)

// Static provides types defined in code.
type Static struct {
	id            string
	components    []core.Component
	entityTypes   []core.EntityType
	relationTypes []core.RelationType
	flowTypes     []core.FlowType
}

// NewStatic creates an empty provider.
func NewStatic(id string) *Static { return &Static{id: id} }

func (s *Static) ID() string { return s.id }

// WithComponents adds components (chainable).
func (s *Static) WithComponents(cs ...core.Component) *Static {
	s.components = append(s.components, cs...)
	return s
}

// WithEntityTypes adds entity types (chainable).
func (s *Static) WithEntityTypes(ts ...core.EntityType) *Static {
	s.entityTypes = append(s.entityTypes, ts...)
	return s
}

// WithRelationTypes adds relation types (chainable).
func (s *Static) WithRelationTypes(ts ...core.RelationType) *Static {
	s.relationTypes = append(s.relationTypes, ts...)
	return s
}

// WithFlowTypes adds flow types (chainable).
func (s *Static) WithFlowTypes(ts ...core.FlowType) *Static {
	s.flowTypes = append(s.flowTypes, ts...)
	return s
}

func (s *Static) Components() ([]core.Component, error) {
	out := make([]core.Component, len(s.components))
	for i, c := range s.components {
		out[i] = c.Clone()
	}
	return out, nil
}

func (s *Static) EntityTypes() ([]core.EntityType, error) {
	out := make([]core.EntityType, len(s.entityTypes))
	for i, t := range s.entityTypes {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *Static) RelationTypes() ([]core.RelationType, error) {
	out := make([]core.RelationType, len(s.relationTypes))
	for i, t := range s.relationTypes {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *Static) FlowTypes() ([]core.FlowType, error) {
	out := make([]core.FlowType, len(s.flowTypes))
	for i, t := range s.flowTypes {
		out[i] = t.Clone()
	}
	return out, nil
}
