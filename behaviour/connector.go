package behaviour

import (
	"fmt"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/reactive"
)

// Relation properties naming the connected properties.
const (
	OutboundPropertyName = "outbound_property_name"
	InboundPropertyName  = "inbound_property_name"
)

// Transform maps a value on its way through a connector.
type Transform func(any) any

type connector struct {
	rel      *reactive.Relation
	outName  string
	inName   string
	transfer Transform
}

// NewConnector returns a factory for a relation behaviour that copies every
// write of the outbound entity's property to the inbound entity's property.
// The property names come from the params, falling back to the relation's
// outbound_property_name and inbound_property_name properties. A nil
// transform copies values unchanged.
func NewConnector(ty core.BehaviourTypeID, transform Transform) *Factory {
	if transform == nil {
		transform = func(v any) any { return v }
	}
	return NewFactory(ty, func(inst reactive.Instance, params Params) (Behaviour, error) {
		rel, ok := inst.(*reactive.Relation)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a relation", ErrInvalidInstance, inst)
		}
		outName, err := propertyName(rel, params, OutboundPropertyName)
		if err != nil {
			return nil, err
		}
		inName, err := propertyName(rel, params, InboundPropertyName)
		if err != nil {
			return nil, err
		}
		if !rel.Outbound().Has(outName) {
			return nil, fmt.Errorf("%w: %s on %s", ErrMissingProperty, outName, rel.Outbound())
		}
		if !rel.Inbound().Has(inName) {
			return nil, fmt.Errorf("%w: %s on %s", ErrMissingProperty, inName, rel.Inbound())
		}
		return &connector{rel: rel, outName: outName, inName: inName, transfer: transform}, nil
	})
}

func propertyName(rel *reactive.Relation, params Params, key string) (string, error) {
	if s, ok := params.String(key); ok && s != "" {
		return s, nil
	}
	if v, ok := rel.Get(key); ok {
		if s, ok := core.AsString(v); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s on %s", ErrMissingProperty, key, rel)
}

func (c *connector) Connect(ctx *Context) error {
	inbound := c.rel.Inbound()
	return ctx.Observe(c.rel.Outbound(), c.outName, func(v any) {
		inbound.Set(c.inName, c.transfer(v))
	})
}
