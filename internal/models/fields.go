package models

// Field is one key/value pair of a record.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Fields is an ordered field mapping. Order is significant: it drives header order.
type Fields []Field

// Get returns the value for key and whether it was present.
func (f Fields) Get(key string) (any, bool) {
	for _, fld := range f {
		if fld.Key == key {
			return fld.Value, true
		}
	}
	return nil, false
}

// Keys returns the field keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, fld := range f {
		keys[i] = fld.Key
	}
	return keys
}

// Clone returns a copy that shares no backing array with f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Set replaces the value for key in place, or appends the field when absent.
// Callers that do not own f should Clone first.
func (f Fields) Set(key string, value any) Fields {
	for i := range f {
		if f[i].Key == key {
			f[i].Value = value
			return f
		}
	}
	return append(f, Field{Key: key, Value: value})
}
