// Package core provides the schema vocabulary shared by every part of the
// reactive graph runtime. It defines:
//
//   - Namespaced type identifiers (components, entity/relation/flow types, behaviours)
//   - PropertyType declarations (data type, socket type, mutability, extensions)
//   - Component, EntityType, RelationType and FlowType definitions
//   - Composite behaviour keys binding a behaviour to a component or a type
//   - Helpers for the dynamically typed, JSON-like property values
//
// The package holds plain data only. Registries, live instances and
// behaviours live in the types, reactive, behaviour and manager packages.
package core
