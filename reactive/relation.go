package reactive

import (
	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/property"
)

// Relation is a live relation between two entities. The entities are
// referenced, not owned.
type Relation struct {
	id       core.RelationInstanceID
	outbound *Entity
	inbound  *Entity
	c        *container
}

// NewRelation creates a relation. The outbound and inbound ids of id are
// taken from the given entities.
func NewRelation(outbound *Entity, ty core.RelationTypeID, instance string, inbound *Entity, optFns ...func(o *Options)) *Relation {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	id := core.RelationInstanceID{
		Outbound: outbound.ID(),
		Type:     ty,
		Instance: instance,
		Inbound:  inbound.ID(),
	}
	return &Relation{id: id, outbound: outbound, inbound: inbound, c: newContainer(opts)}
}

// ID returns the relation id.
func (r *Relation) ID() core.RelationInstanceID { return r.id }

// Type returns the relation type.
func (r *Relation) Type() core.RelationTypeID { return r.id.Type }

// Outbound returns the source entity.
func (r *Relation) Outbound() *Entity { return r.outbound }

// Inbound returns the target entity.
func (r *Relation) Inbound() *Entity { return r.inbound }

func (r *Relation) String() string { return r.id.String() }

func (r *Relation) Get(name string) (any, bool) { return r.c.get(name) }
func (r *Relation) Set(name string, value any) { r.c.set(name, value) }
func (r *Relation) SetNoPropagate(name string, value any) { r.c.setNoPropagate(name, value) }
func (r *Relation) Tick(name string) { r.c.tick(name) }
func (r *Relation) Property(name string) (*property.Cell, bool) { return r.c.cell(name) }
func (r *Relation) Has(name string) bool { return r.c.has(name) }
func (r *Relation) PropertyNames() []string { return r.c.propertyNames() }
func (r *Relation) Snapshot() map[string]any { return r.c.snapshot() }
func (r *Relation) Label() (string, bool) { return r.c.label() }
func (r *Relation) Components() []core.ComponentTypeID { return r.c.componentIDs() }
func (r *Relation) IsA(component core.ComponentTypeID) bool { return r.c.isA(component) }
func (r *Relation) SetHooks(h Hooks) { r.c.setHooks(h) }
func (r *Relation) BehavesAs(ty core.BehaviourTypeID) bool { return r.c.behavesAs(ty) }
func (r *Relation) Behaviours() []core.BehaviourTypeID { return r.c.behaviourTypes() }
func (r *Relation) AttachBehaviour(ref BehaviourRef) error { return r.c.attach(ref) }
func (r *Relation) ReleaseBehaviour(ref BehaviourRef) bool { return r.c.release(ref) }
func (r *Relation) Dispose() { r.c.dispose() }
func (r *Relation) Disposed() bool { return r.c.isDisposed() }
func (r *Relation) ClearObservers() { r.c.clearObservers() }

func (r *Relation) AddComponent(component core.ComponentTypeID) error {
	return r.c.addComponent(component)
}

func (r *Relation) RemoveComponent(component core.ComponentTypeID) error {
	return r.c.removeComponent(component)
}

func (r *Relation) Behaviour(ty core.BehaviourTypeID) (BehaviourRef, bool) {
	return r.c.behaviour(ty)
}

// ToInstance returns a plain record of the relation.
func (r *Relation) ToInstance() core.RelationInstance {
	return core.RelationInstance{
		ID:         r.id,
		Components: r.Components(),
		Properties: r.Snapshot(),
	}
}
