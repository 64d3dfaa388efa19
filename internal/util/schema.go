package util

import (
	"fmt"
	"sort"

	"github.com/hupe1980/reactivegraph/core"
)

// ValidationError represents a property value that does not match its declaration.
type ValidationError struct {
	Field   string `json:"field"`   // Property that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for property '%s': %s", e.Field, e.Message)
}

// ValidateValues checks values against the declared properties. Undeclared
// names are allowed and nil is valid for every data type. Names are checked in
// sorted order so the first reported error is deterministic.
func ValidateValues(values map[string]any, properties core.PropertyTypes) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, ok := properties.Get(name)
		if !ok {
			continue // Allow free properties
		}
		value := values[name]
		if !isValidType(value, p.DataType) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", p.DataType, value),
			}
		}
	}
	return nil
}

// isValidType checks if a value is valid according to the expected data type.
func isValidType(value any, expected core.DataType) bool {
	if value == nil {
		return true // nil is valid for any type
	}
	return expected.Accepts(value)
}

// ApplyDefaults returns a copy of values with the default value of every
// declared property that is missing.
func ApplyDefaults(values map[string]any, properties core.PropertyTypes) map[string]any {
	out := core.CloneValues(values)
	if out == nil {
		out = make(map[string]any, len(properties))
	}
	for _, p := range properties {
		if _, ok := out[p.Name]; !ok {
			out[p.Name] = p.DataType.DefaultValue()
		}
	}
	return out
}
