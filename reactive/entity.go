package reactive

import (
	"github.com/google/uuid"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/property"
)

// Entity is a live entity instance.
type Entity struct {
	id uuid.UUID
	ty core.EntityTypeID
	c  *container
}

// NewEntity creates an entity. A nil id is replaced by a random one.
func NewEntity(id uuid.UUID, ty core.EntityTypeID, optFns ...func(o *Options)) *Entity {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Entity{id: id, ty: ty, c: newContainer(opts)}
}

// ID returns the entity id.
func (e *Entity) ID() uuid.UUID { return e.id }

// Type returns the entity type.
func (e *Entity) Type() core.EntityTypeID { return e.ty }

func (e *Entity) String() string { return e.ty.String() + "/" + e.id.String() }

// Get returns the value of a property.
func (e *Entity) Get(name string) (any, bool) { return e.c.get(name) }

// Set writes a property and notifies its subscribers. Unknown names are ignored.
func (e *Entity) Set(name string, value any) { e.c.set(name, value) }

// SetNoPropagate writes a property without notifying.
func (e *Entity) SetNoPropagate(name string, value any) { e.c.setNoPropagate(name, value) }

// Tick re-notifies the current value of a property.
func (e *Entity) Tick(name string) { e.c.tick(name) }

// Property returns the cell of a property.
func (e *Entity) Property(name string) (*property.Cell, bool) { return e.c.cell(name) }

// Has reports whether the entity has a property.
func (e *Entity) Has(name string) bool { return e.c.has(name) }

// PropertyNames returns the sorted property names.
func (e *Entity) PropertyNames() []string { return e.c.propertyNames() }

// Snapshot copies every property value.
func (e *Entity) Snapshot() map[string]any { return e.c.snapshot() }

// Label returns the string value of the label property.
func (e *Entity) Label() (string, bool) { return e.c.label() }

// Components returns the active components.
func (e *Entity) Components() []core.ComponentTypeID { return e.c.componentIDs() }

// IsA reports whether component is active.
func (e *Entity) IsA(component core.ComponentTypeID) bool { return e.c.isA(component) }

// AddComponent activates a component and creates the cells it introduces.
func (e *Entity) AddComponent(component core.ComponentTypeID) error {
	return e.c.addComponent(component)
}

// RemoveComponent deactivates a component.
func (e *Entity) RemoveComponent(component core.ComponentTypeID) error {
	return e.c.removeComponent(component)
}

// SetHooks replaces the registry hooks.
func (e *Entity) SetHooks(h Hooks) { e.c.setHooks(h) }

// BehavesAs reports whether a behaviour of type ty is attached.
func (e *Entity) BehavesAs(ty core.BehaviourTypeID) bool { return e.c.behavesAs(ty) }

// Behaviours returns the attached behaviour types.
func (e *Entity) Behaviours() []core.BehaviourTypeID { return e.c.behaviourTypes() }

// Behaviour returns the attached behaviour of type ty.
func (e *Entity) Behaviour(ty core.BehaviourTypeID) (BehaviourRef, bool) { return e.c.behaviour(ty) }

// AttachBehaviour stores ref unless a behaviour of its type is attached.
func (e *Entity) AttachBehaviour(ref BehaviourRef) error { return e.c.attach(ref) }

// ReleaseBehaviour removes ref. It must only be called by a disconnected behaviour.
func (e *Entity) ReleaseBehaviour(ref BehaviourRef) bool { return e.c.release(ref) }

// Dispose rejects any further behaviour or component changes.
func (e *Entity) Dispose() { e.c.dispose() }

// Disposed reports whether Dispose was called.
func (e *Entity) Disposed() bool { return e.c.isDisposed() }

// ClearObservers removes every subscriber from every cell.
func (e *Entity) ClearObservers() { e.c.clearObservers() }

// ToInstance returns a plain record of the entity.
func (e *Entity) ToInstance() core.EntityInstance {
	return core.EntityInstance{
		ID:         e.id,
		Type:       e.ty,
		Components: e.Components(),
		Properties: e.Snapshot(),
	}
}
