package core

// Values are dynamically typed and JSON-like: nil, bool, float64 (other Go
// numeric kinds are accepted and normalized by AsNumber), string, []any and
// map[string]any.

// DataTypeOf returns the data type of a value. Unknown kinds report DataTypeAny.
func DataTypeOf(v any) DataType {
	switch v.(type) {
	case nil:
		return DataTypeNull
	case bool:
		return DataTypeBool
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return DataTypeNumber
	case string:
		return DataTypeString
	case []any:
		return DataTypeArray
	case map[string]any:
		return DataTypeObject
	default:
		return DataTypeAny
	}
}

// Accepts reports whether v is a valid value for a property of data type d.
func (d DataType) Accepts(v any) bool {
	if d == DataTypeAny {
		return true
	}
	return DataTypeOf(v) == d
}

// AsNumber converts numeric values to float64.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// AsBool returns v as a bool.
func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// AsString returns v as a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// CloneValues returns a shallow copy of a property value map.
func CloneValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
