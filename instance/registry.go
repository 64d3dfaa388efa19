// Package instance holds the live entity and relation instances.
//
// The registries create instances from the type registries, attach every
// applicable behaviour when an instance is registered and strip them again
// before an instance is released. Each registry owns the behaviour managers
// of its instance kind.
package instance

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/reactivegraph/internal/syncmap"
	"github.com/hupe1980/reactivegraph/logging"
	"github.com/hupe1980/reactivegraph/manager"
	"github.com/hupe1980/reactivegraph/metrics"
	"github.com/hupe1980/reactivegraph/property"
	"github.com/hupe1980/reactivegraph/reactive"
)

var (
	// ErrIDTaken is returned when an instance with the same id is registered.
	ErrIDTaken = errors.New("instance id already taken")
	// ErrUnknownType is returned when the instance type is not registered.
	ErrUnknownType = errors.New("unknown type")
	// ErrInstanceNotFound is returned when no instance has the given id.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrOutboundNotFound is returned when the outbound entity of a relation is not registered.
	ErrOutboundNotFound = errors.New("outbound entity not found")
	// ErrInboundNotFound is returned when the inbound entity of a relation is not registered.
	ErrInboundNotFound = errors.New("inbound entity not found")
	// ErrTypeMismatch is returned when an endpoint does not match the relation type.
	ErrTypeMismatch = errors.New("entity type does not match relation type")
)

// Options configures the instance registries.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// Shards is the shard count of the internal maps.
	Shards int
	// MaxPropagationDepth bounds nested notifications of every property cell.
	// Zero keeps the cell default, a negative value disables the limit.
	MaxPropagationDepth int
	// SkipValidation accepts initial values regardless of their declared data type.
	SkipValidation bool
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return opts
}

func (o Options) managerOptions() func(mo *manager.Options) {
	return func(mo *manager.Options) {
		mo.Logger = o.Logger
		mo.Metrics = o.Metrics
		mo.Shards = o.Shards
	}
}

// cellOptions applies the depth limit and reports truncated propagations.
func (o Options) cellOptions(kind string) []func(po *property.Options) {
	logger, met := o.Logger, o.Metrics
	return []func(po *property.Options){func(po *property.Options) {
		if o.MaxPropagationDepth != 0 {
			po.MaxDepth = o.MaxPropagationDepth
		}
		po.OnTruncate = func(name string, _ any) {
			met.PropagationTruncated(kind)
			logger.Warn("property.propagation.truncated", "kind", kind, "property", name)
		}
	}}
}

// attacher is the part of a behaviour manager a registry drives.
type attacher[I any] interface {
	AddBehaviours(inst I) int
	RemoveBehaviours(inst I) int
	ReconnectAll(inst I) error
}

// registry is the id-keyed store shared by entities and relations.
type registry[K comparable, I reactive.Instance] struct {
	kind    string
	items   *syncmap.Map[K, I]
	logger  logging.Logger
	metrics *metrics.Metrics
}

func newRegistry[K comparable, I reactive.Instance](kind string, opts Options) *registry[K, I] {
	return &registry[K, I]{
		kind:    kind,
		items:   syncmap.New[K, I](opts.Shards),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Has reports whether an instance with the id is registered.
func (r *registry[K, I]) Has(id K) bool { return r.items.Has(id) }

// Get returns the instance with the id.
func (r *registry[K, I]) Get(id K) (I, bool) { return r.items.Load(id) }

// GetAll returns every instance, ordered by its string form.
func (r *registry[K, I]) GetAll() []I {
	out := r.items.Values()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// GetByLabel returns the first instance, in GetAll order, whose label equals label.
func (r *registry[K, I]) GetByLabel(label string) (I, bool) {
	for _, inst := range r.GetAll() {
		if l, ok := inst.Label(); ok && l == label {
			return inst, true
		}
	}
	var zero I
	return zero, false
}

// Len returns the number of registered instances.
func (r *registry[K, I]) Len() int { return r.items.Len() }

func (r *registry[K, I]) register(id K, inst I, attachers ...attacher[I]) error {
	if inst.Disposed() {
		return fmt.Errorf("%s %s: %w", r.kind, inst, reactive.ErrDisposed)
	}
	if _, loaded := r.items.LoadOrStore(id, inst); loaded {
		return fmt.Errorf("%w: %s %v", ErrIDTaken, r.kind, id)
	}
	r.metrics.InstanceAdded(r.kind)
	applied := 0
	for _, a := range attachers {
		applied += a.AddBehaviours(inst)
	}
	r.logger.Debug(r.kind+".register", r.kind, inst.String(), "behaviours", applied)
	return nil
}

// remove releases the instance: it stops accepting behaviours, loses the
// ones it has and then every remaining subscriber.
func (r *registry[K, I]) remove(id K, attachers ...attacher[I]) (I, bool) {
	inst, ok := r.items.LoadAndDelete(id)
	if !ok {
		return inst, false
	}
	inst.Dispose()
	removed := 0
	for _, a := range attachers {
		removed += a.RemoveBehaviours(inst)
	}
	inst.ClearObservers()
	r.metrics.InstanceRemoved(r.kind)
	r.logger.Debug(r.kind+".delete", r.kind, inst.String(), "behaviours", removed)
	return inst, true
}

func (r *registry[K, I]) reconnect(inst I, attachers ...attacher[I]) {
	var errs []error
	for _, a := range attachers {
		errs = append(errs, a.ReconnectAll(inst))
	}
	if err := errors.Join(errs...); err != nil {
		r.logger.Warn(r.kind+".reconnect.failed", r.kind, inst.String(), "error", err)
	}
}

func (r *registry[K, I]) filter(match func(I) bool) []I {
	var out []I
	for _, inst := range r.GetAll() {
		if match(inst) {
			out = append(out, inst)
		}
	}
	return out
}
