package gate

// Safe optional lookups over decoded JSON. A missing key, a nil map and a
// value of the wrong type all yield the explicit default.

// String returns m[key] when it is a string, otherwise "".
func String(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Bool returns m[key] when it is a bool, otherwise false.
func Bool(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

// Object returns m[key] when it is a JSON object.
func Object(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	obj, ok := m[key].(map[string]any)
	if !ok || obj == nil {
		return nil, false
	}
	return obj, true
}

// List returns m[key] when it is a JSON array.
func List(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	list, ok := m[key].([]any)
	return list, ok
}

// Present reports whether key exists in m with a non-null value.
func Present(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	v, ok := m[key]
	return ok && v != nil
}
