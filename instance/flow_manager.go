package instance

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/syncmap"
	"github.com/hupe1980/reactivegraph/internal/util"
	"github.com/hupe1980/reactivegraph/logging"
	"github.com/hupe1980/reactivegraph/reactive"
	"github.com/hupe1980/reactivegraph/types"
)

// Flow is an instantiated flow type. The wrapper entity's id is the flow id.
type Flow struct {
	Type      core.FlowTypeID
	Wrapper   *reactive.Entity
	Entities  []*reactive.Entity
	Relations []*reactive.Relation
}

// ID returns the id of the wrapper entity.
func (f *Flow) ID() uuid.UUID { return f.Wrapper.ID() }

// FlowManager instantiates flow types into live entities and relations.
type FlowManager struct {
	types     *types.Registry
	entities  *EntityInstanceManager
	relations *RelationInstanceManager
	flows     *syncmap.Map[uuid.UUID, *Flow]
	logger    logging.Logger
	opts      Options
}

// NewFlowManager creates a FlowManager that registers flow members in the
// given instance registries.
func NewFlowManager(reg *types.Registry, entities *EntityInstanceManager, relations *RelationInstanceManager, optFns ...func(o *Options)) *FlowManager {
	opts := buildOptions(optFns)
	return &FlowManager{
		types:     reg,
		entities:  entities,
		relations: relations,
		flows:     syncmap.New[uuid.UUID, *Flow](opts.Shards),
		logger:    opts.Logger,
		opts:      opts,
	}
}

// Instantiate creates the entities and relations of flow type ty with fresh
// ids. String property values of the template are rendered as text/template
// against the variables, and the variables themselves are written to the
// wrapper entity. Missing variables take their declared default. When any
// member fails, the members already created are deleted again.
func (m *FlowManager) Instantiate(ty core.FlowTypeID, variables map[string]any) (*Flow, error) {
	ft, ok := m.types.FlowTypes.Get(ty)
	if !ok {
		return nil, fmt.Errorf("%w: flow type %s", ErrUnknownType, ty)
	}
	if ft.Wrapper.Type.IsZero() {
		return nil, fmt.Errorf("%w: flow type %s has no wrapper entity", ErrUnknownType, ty)
	}
	if !m.opts.SkipValidation {
		if err := util.ValidateValues(variables, ft.Variables); err != nil {
			return nil, fmt.Errorf("flow %s: %w", ty, err)
		}
	}
	vars := util.ApplyDefaults(variables, ft.Variables)

	ids := map[uuid.UUID]uuid.UUID{}
	fresh := func(old uuid.UUID) uuid.UUID {
		id := uuid.New()
		if old != uuid.Nil {
			ids[old] = id
		}
		return id
	}
	mapped := func(old uuid.UUID) uuid.UUID {
		if id, ok := ids[old]; ok {
			return id
		}
		return old
	}

	flow := &Flow{Type: ty}
	rollback := func(cause error) (*Flow, error) {
		m.remove(flow)
		m.logger.Warn("flow.instantiate.failed", "flow_type", ty.String(), "error", cause)
		return nil, cause
	}

	wrapperID := fresh(ft.Wrapper.ID)
	members := make([]uuid.UUID, len(ft.Entities))
	for i, e := range ft.Entities {
		if e.ID == ft.Wrapper.ID && e.ID != uuid.Nil {
			members[i] = wrapperID
			continue
		}
		members[i] = fresh(e.ID)
	}

	wrapperValues, err := util.RenderValues(ft.Wrapper.Properties, vars)
	if err != nil {
		return nil, fmt.Errorf("flow %s wrapper: %w", ty, err)
	}
	if wrapperValues == nil {
		wrapperValues = map[string]any{}
	}
	for k, v := range vars {
		wrapperValues[k] = v
	}
	flow.Wrapper, err = m.createEntity(ft.Wrapper, wrapperID, wrapperValues)
	if err != nil {
		return rollback(fmt.Errorf("flow %s wrapper: %w", ty, err))
	}

	for i, tmpl := range ft.Entities {
		if members[i] == wrapperID {
			continue
		}
		values, err := util.RenderValues(tmpl.Properties, vars)
		if err != nil {
			return rollback(fmt.Errorf("flow %s entity %s: %w", ty, tmpl.ID, err))
		}
		e, err := m.createEntity(tmpl, members[i], values)
		if err != nil {
			return rollback(fmt.Errorf("flow %s entity %s: %w", ty, tmpl.ID, err))
		}
		flow.Entities = append(flow.Entities, e)
	}

	for _, tmpl := range ft.Relations {
		values, err := util.RenderValues(tmpl.Properties, vars)
		if err != nil {
			return rollback(fmt.Errorf("flow %s relation %s: %w", ty, tmpl.ID, err))
		}
		r, err := m.relations.Create(mapped(tmpl.ID.Outbound), tmpl.ID.Type, tmpl.ID.Instance, mapped(tmpl.ID.Inbound), values)
		if err != nil {
			return rollback(fmt.Errorf("flow %s relation %s: %w", ty, tmpl.ID, err))
		}
		for _, c := range tmpl.Components {
			if !r.IsA(c) {
				if err := r.AddComponent(c); err != nil {
					flow.Relations = append(flow.Relations, r)
					return rollback(fmt.Errorf("flow %s relation %s: %w", ty, tmpl.ID, err))
				}
			}
		}
		flow.Relations = append(flow.Relations, r)
	}

	m.flows.Store(flow.ID(), flow)
	m.logger.Info("flow.instantiate",
		"flow_type", ty.String(),
		"flow", flow.ID().String(),
		"entities", len(flow.Entities)+1,
		"relations", len(flow.Relations),
	)
	return flow, nil
}

func (m *FlowManager) createEntity(tmpl core.EntityInstance, id uuid.UUID, values map[string]any) (*reactive.Entity, error) {
	e, err := m.entities.Create(tmpl.Type, id, values)
	if err != nil {
		return nil, err
	}
	for _, c := range tmpl.Components {
		if e.IsA(c) {
			continue
		}
		if err := e.AddComponent(c); err != nil {
			m.entities.Delete(e.ID())
			return nil, err
		}
	}
	return e, nil
}

// remove deletes the members of a flow, relations first.
func (m *FlowManager) remove(f *Flow) {
	for i := len(f.Relations) - 1; i >= 0; i-- {
		m.relations.Delete(f.Relations[i].ID())
	}
	for i := len(f.Entities) - 1; i >= 0; i-- {
		m.entities.Delete(f.Entities[i].ID())
	}
	if f.Wrapper != nil {
		m.entities.Delete(f.Wrapper.ID())
	}
}

// Get returns the flow with the wrapper id.
func (m *FlowManager) Get(id uuid.UUID) (*Flow, bool) { return m.flows.Load(id) }

// Has reports whether a flow with the wrapper id exists.
func (m *FlowManager) Has(id uuid.UUID) bool { return m.flows.Has(id) }

// GetAll returns every flow ordered by id.
func (m *FlowManager) GetAll() []*Flow {
	out := m.flows.Values()
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}

// GetByType returns the flows instantiated from ty.
func (m *FlowManager) GetByType(ty core.FlowTypeID) []*Flow {
	var out []*Flow
	for _, f := range m.GetAll() {
		if f.Type == ty {
			out = append(out, f)
		}
	}
	return out
}

// Delete deletes every member of the flow.
func (m *FlowManager) Delete(id uuid.UUID) error {
	f, ok := m.flows.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("%w: flow %s", ErrInstanceNotFound, id)
	}
	m.remove(f)
	m.logger.Info("flow.delete", "flow_type", f.Type.String(), "flow", id.String())
	return nil
}

// Len returns the number of flows.
func (m *FlowManager) Len() int { return m.flows.Len() }

// DeleteAll deletes every flow.
func (m *FlowManager) DeleteAll() error {
	var errs []error
	for _, f := range m.GetAll() {
		if err := m.Delete(f.ID()); err != nil && !errors.Is(err, ErrInstanceNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
