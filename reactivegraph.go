// Package reactivegraph provides a Runtime that bundles the type registries,
// the live instance registries and the behaviour managers of a reactive
// object graph. Most applications interact with this package by:
//  1. Creating a Runtime via New() or NewFromConfig()
//  2. Registering type providers (components, entity, relation and flow types)
//  3. Registering behaviour providers for entity types, relation types and components
//  4. Creating entities and relations, or instantiating flows, and writing their properties
//
// Every registry is safe for concurrent use. Property writes propagate
// synchronously on the writing goroutine.
package reactivegraph

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/reactivegraph/config"
	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/instance"
	"github.com/hupe1980/reactivegraph/logging"
	"github.com/hupe1980/reactivegraph/manager"
	"github.com/hupe1980/reactivegraph/metrics"
	"github.com/hupe1980/reactivegraph/reactive"
	"github.com/hupe1980/reactivegraph/types"
)

// Options configures the Runtime.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Registerer receives the Prometheus collectors. Nil disables metrics.
	Registerer prometheus.Registerer
	// Shards is the shard count of every registry map.
	Shards int
	// MaxPropagationDepth bounds nested notifications of one property cell.
	// Zero keeps the default, a negative value disables the limit.
	MaxPropagationDepth int
	// SkipValidation accepts property values regardless of their declared data type.
	SkipValidation bool
}

// Runtime is the context object holding every registry.
type Runtime struct {
	opts      Options
	logger    logging.Logger
	metrics   *metrics.Metrics
	types     *types.Registry
	entities  *instance.EntityInstanceManager
	relations *instance.RelationInstanceManager
	flows     *instance.FlowManager

	mu                 sync.Mutex
	behaviourProviders map[string]*behaviourRegistration
}

// New creates a Runtime with empty registries.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	var met *metrics.Metrics
	if opts.Registerer != nil {
		met = metrics.New(opts.Registerer)
	}

	reg := types.NewRegistry(func(o *types.Options) {
		o.Logger = withComponent(opts.Logger, "types")
		o.Shards = opts.Shards
	})
	instanceOpts := func(o *instance.Options) {
		o.Logger = withComponent(opts.Logger, "instance")
		o.Metrics = met
		o.Shards = opts.Shards
		o.MaxPropagationDepth = opts.MaxPropagationDepth
		o.SkipValidation = opts.SkipValidation
	}
	entities := instance.NewEntityInstanceManager(reg, instanceOpts)
	relations := instance.NewRelationInstanceManager(reg, entities, instanceOpts)

	r := &Runtime{
		opts:               opts,
		logger:             withComponent(opts.Logger, "runtime"),
		metrics:            met,
		types:              reg,
		entities:           entities,
		relations:          relations,
		flows:              instance.NewFlowManager(reg, entities, relations, instanceOpts),
		behaviourProviders: make(map[string]*behaviourRegistration),
	}
	r.followTypeComponents()
	return r
}

// NewFromConfig creates a Runtime from environment configuration. Logs go to
// stdout; with metrics enabled the collectors are registered with the
// Prometheus default registerer. optFns are applied last.
func NewFromConfig(cfg config.Config, optFns ...func(o *Options)) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(append([]func(o *Options){func(o *Options) {
		o.Logger = cfg.Logger(io.Writer(os.Stdout))
		o.Shards = cfg.Shards
		o.MaxPropagationDepth = cfg.MaxPropagationDepth
		if cfg.Metrics {
			o.Registerer = prometheus.DefaultRegisterer
		}
	}}, optFns...)...), nil
}

func withComponent(l logging.Logger, component string) logging.Logger {
	if gl, ok := l.(*logging.GraphLogger); ok {
		return gl.WithComponent(component)
	}
	return l
}

// followTypeComponents applies component changes of a type to its live instances.
func (r *Runtime) followTypeComponents() {
	r.types.EntityTypes.OnComponentAdded(func(ty core.EntityTypeID, c core.ComponentTypeID) {
		for _, e := range r.entities.GetByType(ty) {
			if err := e.AddComponent(c); err != nil && !errors.Is(err, reactive.ErrComponentActive) {
				r.logger.Warn("entity.component.add.failed", "entity", e.String(), "component", c.String(), "error", err)
			}
		}
	})
	r.types.EntityTypes.OnComponentRemoved(func(ty core.EntityTypeID, c core.ComponentTypeID) {
		for _, e := range r.entities.GetByType(ty) {
			if err := e.RemoveComponent(c); err != nil && !errors.Is(err, reactive.ErrComponentNotActive) {
				r.logger.Warn("entity.component.remove.failed", "entity", e.String(), "component", c.String(), "error", err)
			}
		}
	})
	r.types.RelationTypes.OnComponentAdded(func(ty core.RelationTypeID, c core.ComponentTypeID) {
		for _, rel := range r.relations.GetByType(ty) {
			if err := rel.AddComponent(c); err != nil && !errors.Is(err, reactive.ErrComponentActive) {
				r.logger.Warn("relation.component.add.failed", "relation", rel.String(), "component", c.String(), "error", err)
			}
		}
	})
	r.types.RelationTypes.OnComponentRemoved(func(ty core.RelationTypeID, c core.ComponentTypeID) {
		for _, rel := range r.relations.GetByType(ty) {
			if err := rel.RemoveComponent(c); err != nil && !errors.Is(err, reactive.ErrComponentNotActive) {
				r.logger.Warn("relation.component.remove.failed", "relation", rel.String(), "component", c.String(), "error", err)
			}
		}
	})
}

// Types returns the type registry.
func (r *Runtime) Types() *types.Registry { return r.types }

// Entities returns the entity registry.
func (r *Runtime) Entities() *instance.EntityInstanceManager { return r.entities }

// Relations returns the relation registry.
func (r *Runtime) Relations() *instance.RelationInstanceManager { return r.relations }

// Flows returns the flow manager.
func (r *Runtime) Flows() *instance.FlowManager { return r.flows }

// Metrics returns the collectors, or nil when metrics are disabled.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

func (r *Runtime) EntityBehaviours() *manager.EntityBehaviourManager { return r.entities.Behaviours() }

func (r *Runtime) EntityComponentBehaviours() *manager.EntityComponentBehaviourManager {
	return r.entities.ComponentBehaviours()
}

func (r *Runtime) RelationBehaviours() *manager.RelationBehaviourManager { return r.relations.Behaviours() }

func (r *Runtime) RelationComponentBehaviours() *manager.RelationComponentBehaviourManager {
	return r.relations.ComponentBehaviours()
}

// RegisterTypeProvider registers the types of p.
func (r *Runtime) RegisterTypeProvider(p types.Provider) (types.ProviderReport, error) {
	report, err := r.types.RegisterProvider(p)
	if !report.IsEmpty() {
		r.logger.Warn("types.provider.divergent", "provider", p.ID(),
			"entity_types", len(report.EntityTypes),
			"relation_types", len(report.RelationTypes),
		)
	}
	return report, err
}

// UnregisterTypeProvider removes the types p introduced.
func (r *Runtime) UnregisterTypeProvider(id string) error { return r.types.UnregisterProvider(id) }

// CreateEntity creates and registers an entity. A nil id is replaced by a random one.
func (r *Runtime) CreateEntity(ty core.EntityTypeID, id uuid.UUID, values map[string]any) (*reactive.Entity, error) {
	return r.entities.Create(ty, id, values)
}

// CreateRelation creates and registers a relation between two registered entities.
func (r *Runtime) CreateRelation(outbound uuid.UUID, ty core.RelationTypeID, instanceID string, inbound uuid.UUID, values map[string]any) (*reactive.Relation, error) {
	return r.relations.Create(outbound, ty, instanceID, inbound, values)
}

// InstantiateFlow creates the members of a flow type.
func (r *Runtime) InstantiateFlow(ty core.FlowTypeID, variables map[string]any) (*instance.Flow, error) {
	return r.flows.Instantiate(ty, variables)
}

// DeleteEntity deletes the relations that start or end at the entity and then
// the entity itself.
func (r *Runtime) DeleteEntity(id uuid.UUID) bool {
	if !r.entities.Has(id) {
		return false
	}
	relations := r.relations.DeleteByEntity(id)
	ok := r.entities.Delete(id)
	r.logger.Debug("entity.delete.cascade", "entity", id.String(), "relations", relations)
	return ok
}

// DeleteRelation deletes a relation.
func (r *Runtime) DeleteRelation(id core.RelationInstanceID) bool { return r.relations.Delete(id) }

// Shutdown closes every behaviour on every live instance, relations first,
// each kind in instance order. Instances stay registered. It returns the
// number of closed behaviours.
func (r *Runtime) Shutdown() int {
	if gl, ok := r.logger.(*logging.GraphLogger); ok {
		defer gl.StartTimer("runtime.shutdown")()
	}
	closed := 0
	for _, rel := range r.relations.GetAll() {
		closed += r.relations.Behaviours().RemoveBehaviours(rel)
		closed += r.relations.ComponentBehaviours().RemoveBehaviours(rel)
	}
	for _, e := range r.entities.GetAll() {
		closed += r.entities.Behaviours().RemoveBehaviours(e)
		closed += r.entities.ComponentBehaviours().RemoveBehaviours(e)
	}
	r.logger.Info("runtime.shutdown", "behaviours", closed)
	return closed
}

// String describes the population of the runtime.
func (r *Runtime) String() string {
	return fmt.Sprintf("reactivegraph(entities=%d relations=%d flows=%d)", r.entities.Len(), r.relations.Len(), r.flows.Len())
}
