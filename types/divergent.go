// Package types is the type composition engine. It registers components,
// entity types, relation types and flow types, merges updates into them and
// computes the effective property set of a type from its own properties and
// the properties of the components it references.
//
// Conflicting declarations are never resolved silently. Every register and
// merge returns a Divergent report listing divergent properties per component
// and the referenced components that cannot be resolved.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/reactivegraph/core"
)

// DivergentProperty is a property declared by a component that conflicts
// with a declaration already in the effective set.
type DivergentProperty struct {
	Name      string            `json:"name"`
	Effective core.PropertyType `json:"effective"`
	Component core.PropertyType `json:"component"`
}

// Divergent reports composition problems of one type.
type Divergent struct {
	Properties  map[core.ComponentTypeID][]DivergentProperty `json:"properties,omitempty"`
	Unfulfilled []core.ComponentTypeID                       `json:"unfulfilled,omitempty"`
}

// IsEmpty reports whether there is nothing to report.
func (d Divergent) IsEmpty() bool {
	return len(d.Properties) == 0 && len(d.Unfulfilled) == 0
}

// PropertyNames returns the sorted names of all divergent properties.
func (d Divergent) PropertyNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, props := range d.Properties {
		for _, p := range props {
			if !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p.Name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (d Divergent) String() string {
	if d.IsEmpty() {
		return "no divergence"
	}
	var parts []string
	comps := make([]core.ComponentTypeID, 0, len(d.Properties))
	for c := range d.Properties {
		comps = append(comps, c)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].String() < comps[j].String() })
	for _, c := range comps {
		names := make([]string, len(d.Properties[c]))
		for i, p := range d.Properties[c] {
			names[i] = p.Name
		}
		parts = append(parts, fmt.Sprintf("%s diverges on %s", c, strings.Join(names, ",")))
	}
	for _, c := range d.Unfulfilled {
		parts = append(parts, fmt.Sprintf("%s unfulfilled", c))
	}
	return strings.Join(parts, "; ")
}

// ComponentResolver looks up a component by id.
type ComponentResolver func(core.ComponentTypeID) (core.Component, bool)

// Compose computes the effective property set of own plus the properties of
// components, in order. The first declaration of a name wins the slot in the
// effective set; every later declaration that diverges from it is reported
// under the component that made it.
func Compose(own core.PropertyTypes, components []core.ComponentTypeID, resolve ComponentResolver) (core.PropertyTypes, Divergent) {
	effective := own.Clone()
	var div Divergent
	for _, id := range components {
		comp, ok := resolve(id)
		if !ok {
			div.Unfulfilled = append(div.Unfulfilled, id)
			continue
		}
		for _, p := range comp.Properties {
			existing, ok := effective.Get(p.Name)
			if !ok {
				effective = append(effective, p.Clone())
				continue
			}
			if existing.Diverges(p) {
				if div.Properties == nil {
					div.Properties = make(map[core.ComponentTypeID][]DivergentProperty)
				}
				div.Properties[id] = append(div.Properties[id], DivergentProperty{
					Name:      p.Name,
					Effective: existing,
					Component: p,
				})
			}
		}
	}
	return effective, div
}
