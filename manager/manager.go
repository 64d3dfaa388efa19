// Package manager owns the lifetime of behaviour state machines across the
// live instance population.
//
// One generic Manager backs four flavors: behaviours bound to an entity type,
// to a relation type, and to a component carried by entities or relations.
// Registering a factory applies it retroactively to every qualifying instance;
// unregistering removes it everywhere. A manager is the only code that closes
// the machines it created.
package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/reactivegraph/behaviour"
	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/internal/syncmap"
	"github.com/hupe1980/reactivegraph/logging"
	"github.com/hupe1980/reactivegraph/metrics"
	"github.com/hupe1980/reactivegraph/reactive"
)

// ErrFactoryMismatch is returned when a factory creates a behaviour type other
// than the one it is registered under.
var ErrFactoryMismatch = errors.New("factory behaviour type mismatch")

// Scope names a manager flavor in logs and metrics.
type Scope string

const (
	ScopeEntity            Scope = "entity"
	ScopeRelation          Scope = "relation"
	ScopeEntityComponent   Scope = "entity_component"
	ScopeRelationComponent Scope = "relation_component"
)

// Options configures a Manager.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// Shards is the shard count of the internal maps.
	Shards int
}

type slot[K comparable] struct {
	behaviour core.BehaviourTypeID
	key       K
}

type entry[I any] struct {
	inst    I
	machine *behaviour.Machine
}

// Manager attaches behaviours of factories keyed by F to instances I that are
// identified by K.
type Manager[I reactive.Instance, K comparable, F comparable] struct {
	scope       Scope
	key         func(I) K
	applies     func(F, I) bool
	behaviourOf func(F) core.BehaviourTypeID
	population  func() []I

	factories *syncmap.Map[F, behaviour.Creator]
	attached  *syncmap.Map[slot[K], entry[I]]

	logger  logging.Logger
	graph   *logging.GraphLogger
	metrics *metrics.Metrics
}

func newManager[I reactive.Instance, K comparable, F comparable](
	scope Scope,
	key func(I) K,
	applies func(F, I) bool,
	behaviourOf func(F) core.BehaviourTypeID,
	population func() []I,
	optFns []func(o *Options),
) *Manager[I, K, F] {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if population == nil {
		population = func() []I { return nil }
	}
	mgr := &Manager[I, K, F]{
		scope:       scope,
		key:         key,
		applies:     applies,
		behaviourOf: behaviourOf,
		population:  population,
		factories:   syncmap.New[F, behaviour.Creator](opts.Shards),
		attached:    syncmap.New[slot[K], entry[I]](opts.Shards),
		logger:      logging.OrNoOp(opts.Logger),
		metrics:     opts.Metrics,
	}
	if gl, ok := opts.Logger.(*logging.GraphLogger); ok {
		mgr.graph = gl.WithContext("scope", string(scope))
	}
	return mgr
}

// Scope returns the manager flavor.
func (mgr *Manager[I, K, F]) Scope() Scope { return mgr.scope }

// Register stores the factory under f and applies it to every qualifying
// instance of the current population. Instances that already carry the
// behaviour are skipped.
func (mgr *Manager[I, K, F]) Register(f F, c behaviour.Creator) error {
	ty := mgr.behaviourOf(f)
	if c.BehaviourType() != ty {
		return fmt.Errorf("%w: registered as %s, creates %s", ErrFactoryMismatch, ty, c.BehaviourType())
	}
	mgr.factories.Store(f, c)

	start := time.Now()
	var visited, applied, failed int
	for _, inst := range mgr.population() {
		if !mgr.applies(f, inst) {
			continue
		}
		visited++
		switch err := mgr.add(inst, f, c); {
		case err == nil:
			applied++
		case errors.Is(err, behaviour.ErrAlreadyApplied):
		default:
			failed++
		}
	}
	mgr.logWalk("register", ty, visited, applied, failed, time.Since(start))
	return nil
}

// Unregister removes the factory and the behaviour from every instance. An
// instance that still qualifies for another registered key of the same
// behaviour type gets the behaviour back from that key's factory.
func (mgr *Manager[I, K, F]) Unregister(f F) bool {
	if _, ok := mgr.factories.LoadAndDelete(f); !ok {
		return false
	}
	ty := mgr.behaviourOf(f)
	start := time.Now()
	var affected []I
	mgr.attached.Range(func(s slot[K], e entry[I]) bool {
		if s.behaviour == ty && mgr.remove(s) {
			affected = append(affected, e.inst)
		}
		return true
	})
	restored := 0
	for _, inst := range affected {
		if mgr.reapply(inst, ty, nil) {
			restored++
		}
	}
	mgr.logWalk("unregister", ty, len(affected), restored, 0, time.Since(start))
	return true
}

// reapply attaches ty to inst through the first registered factory of that
// behaviour type which still qualifies. Keys matching skip are ignored.
func (mgr *Manager[I, K, F]) reapply(inst I, ty core.BehaviourTypeID, skip func(F) bool) bool {
	restored := false
	mgr.factories.Range(func(f F, c behaviour.Creator) bool {
		if mgr.behaviourOf(f) != ty || (skip != nil && skip(f)) || !mgr.applies(f, inst) {
			return true
		}
		restored = mgr.add(inst, f, c) == nil
		return !restored
	})
	return restored
}

func (mgr *Manager[I, K, F]) logWalk(op string, ty core.BehaviourTypeID, visited, applied, failed int, dur time.Duration) {
	mgr.metrics.ObservePopulationWalk(string(mgr.scope), op, dur)
	if mgr.graph != nil {
		mgr.graph.LogPopulationWalk(op, ty.String(), visited, applied, failed, dur)
		return
	}
	mgr.logger.Info("behaviour."+op,
		"scope", string(mgr.scope),
		"behaviour", ty.String(),
		"visited", visited,
		"applied", applied,
		"failed", failed,
		"duration_ms", dur.Milliseconds(),
	)
}

// Get returns the factory registered under f.
func (mgr *Manager[I, K, F]) Get(f F) (behaviour.Creator, bool) { return mgr.factories.Load(f) }

// Has reports whether a factory is registered under f.
func (mgr *Manager[I, K, F]) Has(f F) bool { return mgr.factories.Has(f) }

// Factories returns the registered factory keys.
func (mgr *Manager[I, K, F]) Factories() []F { return mgr.factories.Keys() }

// AddBehaviours applies every registered factory that qualifies for inst and
// returns how many behaviours were attached. Failures are logged and skipped.
func (mgr *Manager[I, K, F]) AddBehaviours(inst I) int {
	applied := 0
	mgr.factories.Range(func(f F, c behaviour.Creator) bool {
		if mgr.applies(f, inst) && mgr.add(inst, f, c) == nil {
			applied++
		}
		return true
	})
	return applied
}

// AddBehaviour applies the registered factory of behaviour type ty to inst.
func (mgr *Manager[I, K, F]) AddBehaviour(inst I, ty core.BehaviourTypeID) error {
	var (
		found bool
		err   error
	)
	mgr.factories.Range(func(f F, c behaviour.Creator) bool {
		if mgr.behaviourOf(f) != ty || !mgr.applies(f, inst) {
			return true
		}
		found = true
		err = mgr.add(inst, f, c)
		return false
	})
	if !found {
		return behaviour.NewNotFoundError(ty)
	}
	return err
}

func (mgr *Manager[I, K, F]) add(inst I, f F, c behaviour.Creator) error {
	ty := c.BehaviourType()
	m, err := c.Create(inst, func(o *behaviour.CreateOptions) { o.Listener = mgr.listen })
	if err != nil {
		var ce *behaviour.CreationError
		if errors.As(err, &ce) {
			mgr.metrics.CreationFailed(string(mgr.scope), ce.Kind.String())
			if ce.Kind == behaviour.AlreadyApplied {
				mgr.logger.Debug("behaviour.add.skipped", "scope", string(mgr.scope), "behaviour", ty.String(), "instance", inst.String())
				return err
			}
		}
		mgr.logger.Warn("behaviour.add.failed", "scope", string(mgr.scope), "behaviour", ty.String(), "instance", inst.String(), "error", err)
		return err
	}

	s := slot[K]{behaviour: ty, key: mgr.key(inst)}
	mgr.attached.Store(s, entry[I]{inst: inst, machine: m})
	mgr.metrics.BehaviourAttached(string(mgr.scope))
	mgr.logger.Debug("behaviour.add", "scope", string(mgr.scope), "behaviour", ty.String(), "instance", inst.String())

	// An Unregister or an instance delete may have walked past this slot
	// before it was stored.
	if !mgr.factories.Has(f) || inst.Disposed() {
		mgr.remove(s)
		return behaviour.NewNotFoundError(ty)
	}
	return nil
}

func (mgr *Manager[I, K, F]) remove(s slot[K]) bool {
	e, ok := mgr.attached.LoadAndDelete(s)
	if !ok {
		return false
	}
	if err := e.machine.Close(); err != nil {
		mgr.logger.Warn("behaviour.remove.failed", "scope", string(mgr.scope), "behaviour", s.behaviour.String(), "error", err)
	}
	mgr.metrics.BehaviourDetached(string(mgr.scope))
	mgr.logger.Debug("behaviour.remove", "scope", string(mgr.scope), "behaviour", s.behaviour.String(), "instance", e.inst.String())
	return true
}

func (mgr *Manager[I, K, F]) listen(m *behaviour.Machine, from, to behaviour.State, err error) {
	if mgr.graph != nil {
		mgr.graph.WithInstance(m.Instance().String()).LogTransition(m.BehaviourType().String(), from.String(), to.String(), err)
	}
	if err == nil {
		return
	}
	transition := "connect"
	switch to {
	case behaviour.Disconnected:
		transition = "disconnect"
	case behaviour.ShutDown:
		transition = "shutdown"
	}
	mgr.metrics.TransitionFailed(string(mgr.scope), transition)
	if mgr.graph != nil {
		return
	}
	mgr.logger.Warn("behaviour.transition.failed",
		"scope", string(mgr.scope),
		"behaviour", m.BehaviourType().String(),
		"instance", m.Instance().String(),
		"from", from.String(),
		"to", to.String(),
		"error", err,
	)
}

// RemoveBehaviour closes the behaviour of type ty on inst.
func (mgr *Manager[I, K, F]) RemoveBehaviour(inst I, ty core.BehaviourTypeID) error {
	if !mgr.remove(slot[K]{behaviour: ty, key: mgr.key(inst)}) {
		return behaviour.NewNotFoundError(ty)
	}
	return nil
}

// RemoveBehaviours closes every behaviour this manager attached to inst.
func (mgr *Manager[I, K, F]) RemoveBehaviours(inst I) int {
	k := mgr.key(inst)
	removed := 0
	for _, ty := range inst.Behaviours() {
		if mgr.remove(slot[K]{behaviour: ty, key: k}) {
			removed++
		}
	}
	return removed
}

// RemoveBehavioursByKey closes every behaviour attached to the instance with key k.
func (mgr *Manager[I, K, F]) RemoveBehavioursByKey(k K) int {
	removed := 0
	mgr.attached.Range(func(s slot[K], _ entry[I]) bool {
		if s.key == k && mgr.remove(s) {
			removed++
		}
		return true
	})
	return removed
}

// RemoveBehavioursByBehaviour closes the behaviour of type ty on every instance.
func (mgr *Manager[I, K, F]) RemoveBehavioursByBehaviour(ty core.BehaviourTypeID) int {
	removed := 0
	mgr.attached.Range(func(s slot[K], _ entry[I]) bool {
		if s.behaviour == ty && mgr.remove(s) {
			removed++
		}
		return true
	})
	return removed
}

// RemoveBehavioursWhere closes the behaviours on inst whose factory key
// satisfies match. A behaviour type that inst still qualifies for through a
// key not matching match is attached again from that key's factory.
func (mgr *Manager[I, K, F]) RemoveBehavioursWhere(inst I, match func(F) bool) int {
	k := mgr.key(inst)
	removed := 0
	seen := make(map[core.BehaviourTypeID]bool)
	for _, f := range mgr.factories.Keys() {
		ty := mgr.behaviourOf(f)
		if !match(f) || seen[ty] {
			continue
		}
		seen[ty] = true
		if mgr.remove(slot[K]{behaviour: ty, key: k}) {
			removed++
			mgr.reapply(inst, ty, match)
		}
	}
	return removed
}

// RemoveAll closes every behaviour the manager attached.
func (mgr *Manager[I, K, F]) RemoveAll() int {
	removed := 0
	mgr.attached.Range(func(s slot[K], _ entry[I]) bool {
		if mgr.remove(s) {
			removed++
		}
		return true
	})
	return removed
}

// Machine returns the state machine of behaviour ty on inst.
func (mgr *Manager[I, K, F]) Machine(inst I, ty core.BehaviourTypeID) (*behaviour.Machine, bool) {
	e, ok := mgr.attached.Load(slot[K]{behaviour: ty, key: mgr.key(inst)})
	if !ok {
		return nil, false
	}
	return e.machine, true
}

// HasBehaviour reports whether this manager attached ty to inst.
func (mgr *Manager[I, K, F]) HasBehaviour(inst I, ty core.BehaviourTypeID) bool {
	return mgr.attached.Has(slot[K]{behaviour: ty, key: mgr.key(inst)})
}

// Connect connects the behaviour ty on inst.
func (mgr *Manager[I, K, F]) Connect(inst I, ty core.BehaviourTypeID) error {
	m, ok := mgr.Machine(inst, ty)
	if !ok {
		return behaviour.NewNotFoundError(ty)
	}
	return m.Connect()
}

// Disconnect disconnects the behaviour ty on inst.
func (mgr *Manager[I, K, F]) Disconnect(inst I, ty core.BehaviourTypeID) error {
	m, ok := mgr.Machine(inst, ty)
	if !ok {
		return behaviour.NewNotFoundError(ty)
	}
	return m.Disconnect()
}

// Reconnect reconnects the behaviour ty on inst.
func (mgr *Manager[I, K, F]) Reconnect(inst I, ty core.BehaviourTypeID) error {
	m, ok := mgr.Machine(inst, ty)
	if !ok {
		return behaviour.NewNotFoundError(ty)
	}
	return m.Reconnect()
}

// ReconnectAll reconnects every behaviour this manager attached to inst. It
// continues past failures and returns them joined.
func (mgr *Manager[I, K, F]) ReconnectAll(inst I) error {
	var errs []error
	for _, ty := range inst.Behaviours() {
		m, ok := mgr.Machine(inst, ty)
		if !ok {
			continue
		}
		if err := m.Reconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetBehaviourTypes returns the behaviour types this manager attached to inst.
func (mgr *Manager[I, K, F]) GetBehaviourTypes(inst I) []core.BehaviourTypeID {
	var out []core.BehaviourTypeID
	for _, ty := range inst.Behaviours() {
		if mgr.HasBehaviour(inst, ty) {
			out = append(out, ty)
		}
	}
	return out
}

// GetInstancesByBehaviour returns every instance carrying behaviour ty.
func (mgr *Manager[I, K, F]) GetInstancesByBehaviour(ty core.BehaviourTypeID) []I {
	var out []I
	mgr.attached.Range(func(s slot[K], e entry[I]) bool {
		if s.behaviour == ty {
			out = append(out, e.inst)
		}
		return true
	})
	return out
}

// Len returns the number of attached behaviours.
func (mgr *Manager[I, K, F]) Len() int { return mgr.attached.Len() }
