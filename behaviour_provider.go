package reactivegraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/reactivegraph/behaviour"
	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/types"
)

// Binding pairs a factory with the key it is registered under.
type Binding[F comparable] struct {
	Key     F
	Factory behaviour.Creator
}

// BehaviourProvider supplies behaviour factories. A provider implements one
// or more of EntityBehaviourProvider, EntityComponentBehaviourProvider,
// RelationBehaviourProvider and RelationComponentBehaviourProvider.
type BehaviourProvider interface {
	ID() string
}

type EntityBehaviourProvider interface {
	BehaviourProvider
	EntityBehaviours() []Binding[core.EntityBehaviourTypeID]
}

type EntityComponentBehaviourProvider interface {
	BehaviourProvider
	EntityComponentBehaviours() []Binding[core.ComponentBehaviourTypeID]
}

type RelationBehaviourProvider interface {
	BehaviourProvider
	RelationBehaviours() []Binding[core.RelationBehaviourTypeID]
}

type RelationComponentBehaviourProvider interface {
	BehaviourProvider
	RelationComponentBehaviours() []Binding[core.ComponentBehaviourTypeID]
}

var (
	_ EntityBehaviourProvider            = BehaviourBundle{}
	_ EntityComponentBehaviourProvider   = BehaviourBundle{}
	_ RelationBehaviourProvider          = BehaviourBundle{}
	_ RelationComponentBehaviourProvider = BehaviourBundle{}
)

// BehaviourBundle is a BehaviourProvider defined in code.
type BehaviourBundle struct {
	Name              string
	Entity            []Binding[core.EntityBehaviourTypeID]
	EntityComponent   []Binding[core.ComponentBehaviourTypeID]
	Relation          []Binding[core.RelationBehaviourTypeID]
	RelationComponent []Binding[core.ComponentBehaviourTypeID]
}

func (b BehaviourBundle) ID() string { return b.Name }

func (b BehaviourBundle) EntityBehaviours() []Binding[core.EntityBehaviourTypeID] { return b.Entity }

func (b BehaviourBundle) EntityComponentBehaviours() []Binding[core.ComponentBehaviourTypeID] {
	return b.EntityComponent
}

func (b BehaviourBundle) RelationBehaviours() []Binding[core.RelationBehaviourTypeID] { return b.Relation }

func (b BehaviourBundle) RelationComponentBehaviours() []Binding[core.ComponentBehaviourTypeID] {
	return b.RelationComponent
}

// behaviourRegistration remembers what a provider registered so it can be
// unregistered symmetrically.
type behaviourRegistration struct {
	entity            []core.EntityBehaviourTypeID
	entityComponent   []core.ComponentBehaviourTypeID
	relation          []core.RelationBehaviourTypeID
	relationComponent []core.ComponentBehaviourTypeID
}

func (r *behaviourRegistration) count() int {
	return len(r.entity) + len(r.entityComponent) + len(r.relation) + len(r.relationComponent)
}

type registrar[F comparable] interface {
	Register(f F, c behaviour.Creator) error
	Has(f F) bool
}

// bind registers every binding not yet known to m and returns the keys it
// registered.
func bind[F comparable](m registrar[F], bindings []Binding[F]) ([]F, error) {
	var (
		keys []F
		errs []error
	)
	for _, b := range bindings {
		if m.Has(b.Key) {
			errs = append(errs, fmt.Errorf("behaviour %v: already registered", b.Key))
			continue
		}
		if err := m.Register(b.Key, b.Factory); err != nil {
			errs = append(errs, fmt.Errorf("behaviour %v: %w", b.Key, err))
			continue
		}
		keys = append(keys, b.Key)
	}
	return keys, errors.Join(errs...)
}

// RegisterBehaviourProvider registers the factories of p on the matching
// behaviour managers. Every factory is applied to the live population at
// once. Individual failures do not stop the provider; they are returned
// joined.
func (r *Runtime) RegisterBehaviourProvider(p BehaviourProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.behaviourProviders[p.ID()]; ok {
		return fmt.Errorf("%w: %s", types.ErrProviderAlreadyExists, p.ID())
	}

	reg := &behaviourRegistration{}
	var errs []error
	if ep, ok := p.(EntityBehaviourProvider); ok {
		keys, err := bind[core.EntityBehaviourTypeID](r.EntityBehaviours(), ep.EntityBehaviours())
		reg.entity = keys
		errs = append(errs, err)
	}
	if cp, ok := p.(EntityComponentBehaviourProvider); ok {
		keys, err := bind[core.ComponentBehaviourTypeID](r.EntityComponentBehaviours(), cp.EntityComponentBehaviours())
		reg.entityComponent = keys
		errs = append(errs, err)
	}
	if rp, ok := p.(RelationBehaviourProvider); ok {
		keys, err := bind[core.RelationBehaviourTypeID](r.RelationBehaviours(), rp.RelationBehaviours())
		reg.relation = keys
		errs = append(errs, err)
	}
	if cp, ok := p.(RelationComponentBehaviourProvider); ok {
		keys, err := bind[core.ComponentBehaviourTypeID](r.RelationComponentBehaviours(), cp.RelationComponentBehaviours())
		reg.relationComponent = keys
		errs = append(errs, err)
	}
	r.behaviourProviders[p.ID()] = reg
	r.logger.Info("behaviour.provider.register", "provider", p.ID(), "factories", reg.count())
	return errors.Join(errs...)
}

// UnregisterBehaviourProvider unregisters the factories the provider
// registered, which removes their behaviours from every instance.
func (r *Runtime) UnregisterBehaviourProvider(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.behaviourProviders[id]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrProviderDoesNotExist, id)
	}
	delete(r.behaviourProviders, id)
	for _, k := range reg.relationComponent {
		r.RelationComponentBehaviours().Unregister(k)
	}
	for _, k := range reg.relation {
		r.RelationBehaviours().Unregister(k)
	}
	for _, k := range reg.entityComponent {
		r.EntityComponentBehaviours().Unregister(k)
	}
	for _, k := range reg.entity {
		r.EntityBehaviours().Unregister(k)
	}
	r.logger.Info("behaviour.provider.unregister", "provider", id, "factories", reg.count())
	return nil
}

// BehaviourProviders returns the ids of the registered behaviour providers, sorted.
func (r *Runtime) BehaviourProviders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.behaviourProviders))
	for id := range r.behaviourProviders {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
