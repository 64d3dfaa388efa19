package types

import (
	"errors"

	"github.com/hupe1980/reactivegraph/core"
)

// Registry bundles the type managers and their provider registries.
type Registry struct {
	Components    *ComponentManager
	EntityTypes   *EntityTypeManager
	RelationTypes *RelationTypeManager
	FlowTypes     *FlowTypeManager

	componentProviders    *ProviderRegistry[core.ComponentTypeID, core.Component]
	entityTypeProviders   *ProviderRegistry[core.EntityTypeID, core.EntityType]
	relationTypeProviders *ProviderRegistry[core.RelationTypeID, core.RelationType]
	flowTypeProviders     *ProviderRegistry[core.FlowTypeID, core.FlowType]
}

// ProviderReport collects the composition reports of one provider. The
// reports include the types whose referenced components the provider
// registered or merged into.
type ProviderReport struct {
	EntityTypes   Report[core.EntityTypeID]
	RelationTypes Report[core.RelationTypeID]
}

// IsEmpty reports whether no type diverged.
func (r ProviderReport) IsEmpty() bool {
	return len(r.EntityTypes) == 0 && len(r.RelationTypes) == 0
}

// NewRegistry creates empty type managers wired to each other.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	components := NewComponentManager(optFns...)
	entities := NewEntityTypeManager(components, optFns...)
	relations := NewRelationTypeManager(components, optFns...)
	flows := NewFlowTypeManager(entities, relations, optFns...)

	return &Registry{
		Components:    components,
		EntityTypes:   entities,
		RelationTypes: relations,
		FlowTypes:     flows,
		componentProviders: NewProviderRegistry("component",
			func(c core.Component) core.ComponentTypeID { return c.ID },
			func(c core.Component) (Divergent, error) { return Divergent{}, components.Register(c) },
			func(c core.Component) (Divergent, error) {
				_, err := components.Merge(c)
				return Divergent{}, err
			},
			components.Delete, optFns...),
		entityTypeProviders: NewProviderRegistry("entity_type",
			func(t core.EntityType) core.EntityTypeID { return t.ID },
			entities.Register, entities.Merge, entities.Delete, optFns...),
		relationTypeProviders: NewProviderRegistry("relation_type",
			func(t core.RelationType) core.RelationTypeID { return t.ID },
			relations.Register, relations.Merge, relations.Delete, optFns...),
		flowTypeProviders: NewProviderRegistry("flow_type",
			func(t core.FlowType) core.FlowTypeID { return t.ID },
			flows.Register, flows.Merge, flows.Delete, optFns...),
	}
}

// RegisterProvider registers every batch p supplies: components first, then
// entity types, relation types and flow types.
func (r *Registry) RegisterProvider(p Provider) (ProviderReport, error) {
	var (
		report ProviderReport
		errs   []error
	)
	if cp, ok := p.(ComponentProvider); ok {
		batch, err := cp.Components()
		if err == nil {
			_, err = r.componentProviders.RegisterProvider(p.ID(), batch)
			for _, c := range batch {
				report.EntityTypes = report.EntityTypes.merge(r.EntityTypes.DivergenceByComponent(c.ID))
				report.RelationTypes = report.RelationTypes.merge(r.RelationTypes.DivergenceByComponent(c.ID))
			}
		}
		errs = append(errs, err)
	}
	if ep, ok := p.(EntityTypeProvider); ok {
		batch, err := ep.EntityTypes()
		if err == nil {
			var rep Report[core.EntityTypeID]
			rep, err = r.entityTypeProviders.RegisterProvider(p.ID(), batch)
			report.EntityTypes = report.EntityTypes.merge(rep)
		}
		errs = append(errs, err)
	}
	if rp, ok := p.(RelationTypeProvider); ok {
		batch, err := rp.RelationTypes()
		if err == nil {
			var rep Report[core.RelationTypeID]
			rep, err = r.relationTypeProviders.RegisterProvider(p.ID(), batch)
			report.RelationTypes = report.RelationTypes.merge(rep)
		}
		errs = append(errs, err)
	}
	if fp, ok := p.(FlowTypeProvider); ok {
		batch, err := fp.FlowTypes()
		if err == nil {
			_, err = r.flowTypeProviders.RegisterProvider(p.ID(), batch)
		}
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// UnregisterProvider removes the types the provider introduced, in reverse
// dependency order.
func (r *Registry) UnregisterProvider(providerID string) error {
	var errs []error
	var found bool
	unregister := func(fn func(string) error) {
		err := fn(providerID)
		if err == nil {
			found = true
			return
		}
		if !errors.Is(err, ErrProviderDoesNotExist) {
			errs = append(errs, err)
		}
	}
	unregister(func(id string) error { _, err := r.flowTypeProviders.UnregisterProvider(id); return err })
	unregister(func(id string) error { _, err := r.relationTypeProviders.UnregisterProvider(id); return err })
	unregister(func(id string) error { _, err := r.entityTypeProviders.UnregisterProvider(id); return err })
	unregister(func(id string) error { _, err := r.componentProviders.UnregisterProvider(id); return err })
	if !found && len(errs) == 0 {
		return ErrProviderDoesNotExist
	}
	return errors.Join(errs...)
}
