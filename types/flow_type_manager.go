package types

import (
	"fmt"
	"sort"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/syncmap"
	"github.com/hupe1980/reactivegraph/logging"
)

// FlowValidation lists the types a flow template references but the
// registries do not know.
type FlowValidation struct {
	UnfulfilledEntityTypes   []core.EntityTypeID   `json:"unfulfilled_entity_types,omitempty"`
	UnfulfilledRelationTypes []core.RelationTypeID `json:"unfulfilled_relation_types,omitempty"`
}

// IsValid reports whether every referenced type is registered.
func (v FlowValidation) IsValid() bool {
	return len(v.UnfulfilledEntityTypes) == 0 && len(v.UnfulfilledRelationTypes) == 0
}

// FlowTypeManager stores flow types.
type FlowTypeManager struct {
	items     *syncmap.Map[core.FlowTypeID, core.FlowType]
	entities  *EntityTypeManager
	relations *RelationTypeManager
	logger    logging.Logger
}

// NewFlowTypeManager creates a FlowTypeManager validating against the given
// entity and relation type managers.
func NewFlowTypeManager(entities *EntityTypeManager, relations *RelationTypeManager, optFns ...func(o *Options)) *FlowTypeManager {
	opts := buildOptions(optFns)
	return &FlowTypeManager{
		items:     syncmap.New[core.FlowTypeID, core.FlowType](opts.Shards),
		entities:  entities,
		relations: relations,
		logger:    opts.Logger,
	}
}

// Register adds a new flow type. The returned Divergent is always empty;
// unresolved references are reported by Validate.
func (m *FlowTypeManager) Register(f core.FlowType) (Divergent, error) {
	if err := f.ID.Validate(); err != nil {
		return Divergent{}, fmt.Errorf("%w: %v", ErrInvalidTypeID, err)
	}
	if _, loaded := m.items.LoadOrStore(f.ID, f.Clone()); loaded {
		return Divergent{}, fmt.Errorf("%w: flow type %s", ErrTypeAlreadyExists, f.ID)
	}
	if v := m.validate(f); !v.IsValid() {
		m.logger.Warn("flow_type.register.unfulfilled",
			"type", f.ID.String(),
			"entity_types", len(v.UnfulfilledEntityTypes),
			"relation_types", len(v.UnfulfilledRelationTypes),
		)
	}
	return Divergent{}, nil
}

// Merge replaces the template graph of a registered flow type when update
// carries one, upserts variables and merges extensions.
func (m *FlowTypeManager) Merge(update core.FlowType) (Divergent, error) {
	_, ok := m.items.Compute(update.ID, func(cur core.FlowType, loaded bool) (core.FlowType, bool) {
		if !loaded {
			return cur, false
		}
		cur = cur.Clone()
		u := update.Clone()
		if !u.Wrapper.Type.IsZero() {
			cur.Wrapper = u.Wrapper
		}
		if len(u.Entities) > 0 {
			cur.Entities = u.Entities
		}
		if len(u.Relations) > 0 {
			cur.Relations = u.Relations
		}
		for _, v := range u.Variables {
			cur.Variables = cur.Variables.Upsert(v)
		}
		cur.Extensions = cur.Extensions.Merge(u.Extensions)
		if u.Description != "" {
			cur.Description = u.Description
		}
		return cur, true
	})
	if !ok {
		return Divergent{}, fmt.Errorf("%w: flow type %s", ErrTypeDoesNotExist, update.ID)
	}
	return Divergent{}, nil
}

// Validate reports the entity and relation types the flow references but
// that are not registered.
func (m *FlowTypeManager) Validate(id core.FlowTypeID) (FlowValidation, error) {
	f, ok := m.items.Load(id)
	if !ok {
		return FlowValidation{}, fmt.Errorf("%w: flow type %s", ErrTypeDoesNotExist, id)
	}
	return m.validate(f), nil
}

func (m *FlowTypeManager) validate(f core.FlowType) FlowValidation {
	var v FlowValidation
	for _, ty := range f.EntityTypes() {
		if !m.entities.Has(ty) {
			v.UnfulfilledEntityTypes = append(v.UnfulfilledEntityTypes, ty)
		}
	}
	for _, ty := range f.RelationTypes() {
		if !m.relations.Has(ty) {
			v.UnfulfilledRelationTypes = append(v.UnfulfilledRelationTypes, ty)
		}
	}
	return v
}

// Get returns a copy of the flow type.
func (m *FlowTypeManager) Get(id core.FlowTypeID) (core.FlowType, bool) {
	f, ok := m.items.Load(id)
	if !ok {
		return core.FlowType{}, false
	}
	return f.Clone(), true
}

func (m *FlowTypeManager) Has(id core.FlowTypeID) bool { return m.items.Has(id) }

// GetAll returns every flow type sorted by id.
func (m *FlowTypeManager) GetAll() []core.FlowType {
	out := m.items.Values()
	for i := range out {
		out[i] = out[i].Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (m *FlowTypeManager) Delete(id core.FlowTypeID) bool {
	_, ok := m.items.LoadAndDelete(id)
	return ok
}

func (m *FlowTypeManager) Len() int { return m.items.Len() }

// AddVariable adds a variable to a flow type.
func (m *FlowTypeManager) AddVariable(id core.FlowTypeID, p core.PropertyType) error {
	return m.editVariables(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) { return addProperty(ps, p) })
}

// RemoveVariable removes a variable from a flow type.
func (m *FlowTypeManager) RemoveVariable(id core.FlowTypeID, name string) error {
	return m.editVariables(id, func(ps core.PropertyTypes) (core.PropertyTypes, error) { return removeProperty(ps, name) })
}

func (m *FlowTypeManager) editVariables(id core.FlowTypeID, edit func(core.PropertyTypes) (core.PropertyTypes, error)) error {
	var editErr error
	_, ok := m.items.Compute(id, func(cur core.FlowType, loaded bool) (core.FlowType, bool) {
		if !loaded {
			return cur, false
		}
		ps, err := edit(cur.Variables)
		if err != nil {
			editErr = err
			return cur, true
		}
		cur.Variables = ps
		return cur, true
	})
	if !ok {
		return fmt.Errorf("%w: flow type %s", ErrTypeDoesNotExist, id)
	}
	return editErr
}
