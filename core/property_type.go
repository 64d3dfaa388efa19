package core

import "fmt"

// DataType is the JSON-like data type of a property value.
type DataType string

const (
	DataTypeNull   DataType = "null"
	DataTypeBool   DataType = "bool"
	DataTypeNumber DataType = "number"
	DataTypeString DataType = "string"
	DataTypeArray  DataType = "array"
	DataTypeObject DataType = "object"
	DataTypeAny    DataType = "any"
)

// ParseDataType parses a data type name.
func ParseDataType(s string) (DataType, error) {
	switch dt := DataType(s); dt {
	case DataTypeNull, DataTypeBool, DataTypeNumber, DataTypeString, DataTypeArray, DataTypeObject, DataTypeAny:
		return dt, nil
	default:
		return "", fmt.Errorf("unknown data type %q", s)
	}
}

// DefaultValue returns the initial value for a property cell of this type.
func (d DataType) DefaultValue() any {
	switch d {
	case DataTypeBool:
		return false
	case DataTypeNumber:
		return float64(0)
	case DataTypeString:
		return ""
	case DataTypeArray:
		return []any{}
	case DataTypeObject:
		return map[string]any{}
	default:
		return nil
	}
}

// SocketType describes whether a property is an input, an output or neither.
type SocketType string

const (
	SocketNone   SocketType = "none"
	SocketInput  SocketType = "input"
	SocketOutput SocketType = "output"
)

// ParseSocketType parses a socket type name. The empty string is SocketNone.
func ParseSocketType(s string) (SocketType, error) {
	switch st := SocketType(s); st {
	case "":
		return SocketNone, nil
	case SocketNone, SocketInput, SocketOutput:
		return st, nil
	default:
		return "", fmt.Errorf("unknown socket type %q", s)
	}
}

// Mutability describes whether a property may be written after creation.
// The runtime treats it as metadata; enforcement belongs to the consuming layer.
type Mutability string

const (
	Mutable   Mutability = "mutable"
	Immutable Mutability = "immutable"
)

// ParseMutability parses a mutability name. The empty string is Mutable.
func ParseMutability(s string) (Mutability, error) {
	switch m := Mutability(s); m {
	case "":
		return Mutable, nil
	case Mutable, Immutable:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mutability %q", s)
	}
}

// Extensions holds opaque key/value annotations.
type Extensions map[string]any

// Clone returns a shallow copy.
func (e Extensions) Clone() Extensions {
	if e == nil {
		return nil
	}
	out := make(Extensions, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into a copy of e, other winning on conflict.
func (e Extensions) Merge(other Extensions) Extensions {
	out := e.Clone()
	if out == nil && len(other) > 0 {
		out = make(Extensions, len(other))
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// PropertyType declares a named, typed property.
type PropertyType struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DataType    DataType   `json:"data_type"`
	SocketType  SocketType `json:"socket_type"`
	Mutability  Mutability `json:"mutability"`
	Extensions  Extensions `json:"extensions,omitempty"`
}

// NewPropertyType creates a mutable property without socket.
func NewPropertyType(name string, dataType DataType) PropertyType {
	return PropertyType{Name: name, DataType: dataType, SocketType: SocketNone, Mutability: Mutable}
}

// InputProperty creates a mutable input socket property.
func InputProperty(name string, dataType DataType) PropertyType {
	p := NewPropertyType(name, dataType)
	p.SocketType = SocketInput
	return p
}

// OutputProperty creates an immutable output socket property.
func OutputProperty(name string, dataType DataType) PropertyType {
	p := NewPropertyType(name, dataType)
	p.SocketType = SocketOutput
	p.Mutability = Immutable
	return p
}

// Diverges reports whether two declarations of the same property disagree
// on data type, socket type or mutability.
func (p PropertyType) Diverges(other PropertyType) bool {
	return p.DataType != other.DataType ||
		p.normalizedSocket() != other.normalizedSocket() ||
		p.normalizedMutability() != other.normalizedMutability()
}

func (p PropertyType) normalizedSocket() SocketType {
	if p.SocketType == "" {
		return SocketNone
	}
	return p.SocketType
}

func (p PropertyType) normalizedMutability() Mutability {
	if p.Mutability == "" {
		return Mutable
	}
	return p.Mutability
}

// Clone returns a copy with its own extension map.
func (p PropertyType) Clone() PropertyType {
	p.Extensions = p.Extensions.Clone()
	return p
}

// PropertyTypes is an ordered list of property declarations with unique names.
type PropertyTypes []PropertyType

// Get returns the declaration with the given name.
func (ps PropertyTypes) Get(name string) (PropertyType, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyType{}, false
}

// Contains reports whether a declaration with the given name exists.
func (ps PropertyTypes) Contains(name string) bool {
	_, ok := ps.Get(name)
	return ok
}

// Names returns the property names in declaration order.
func (ps PropertyTypes) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Clone returns a deep copy.
func (ps PropertyTypes) Clone() PropertyTypes {
	if ps == nil {
		return nil
	}
	out := make(PropertyTypes, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// Upsert replaces the declaration with the same name or appends it.
func (ps PropertyTypes) Upsert(p PropertyType) PropertyTypes {
	for i := range ps {
		if ps[i].Name == p.Name {
			out := ps.Clone()
			out[i] = p.Clone()
			return out
		}
	}
	return append(ps.Clone(), p.Clone())
}

// Remove returns the list without the named declaration.
func (ps PropertyTypes) Remove(name string) PropertyTypes {
	out := make(PropertyTypes, 0, len(ps))
	for _, p := range ps {
		if p.Name != name {
			out = append(out, p.Clone())
		}
	}
	return out
}
