// Package config implements the declarative configuration model: backend
// definitions expressed as plain documents, deep-merged across override
// chains and compiled into an endpoint catalogue at client initialization.
package config


// Document is the raw, loosely-typed form of a backend definition. Backends
// are described as data: a child document overrides or extends a base
// document, never a type hierarchy.
type Document map[string]any

// DeepExtend merges override documents onto base, last writer wins.
//
// Merge rule: nested mappings merge key by key recursively; scalar and array
// leaves in an override replace the base leaf; keys absent from an override
// are inherited unchanged. The inputs are not mutated. The operation is
// associative, so multi-level override chains can be folded in declaration
// order.
func DeepExtend(base Document, overrides ...Document) Document {
	out := cloneValue(base).(Document)
	for _, ov := range overrides {
		out = mergeDocs(out, ov)
	}
	return out
}

func mergeDocs(dst, src Document) Document {
	if dst == nil {
		dst = Document{}
	}
	for key, sv := range src {
		dv, exists := dst[key]
		if !exists {
			dst[key] = cloneValue(sv)
			continue
		}
		dm, dok := asDocument(dv)
		sm, sok := asDocument(sv)
		if dok && sok {
			dst[key] = mergeDocs(dm, sm)
			continue
		}
		dst[key] = cloneValue(sv)
	}
	return dst
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		out := make(Document, len(val))
		for k, x := range val {
			out[k] = cloneValue(x)
		}
		return out
	case map[string]any:
		out := make(Document, len(val))
		for k, x := range val {
			out[k] = cloneValue(x)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = cloneValue(x)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = x
		}
		return out
	default:
		return v
	}
}

func asDocument(v any) (Document, bool) {
	switch val := v.(type) {
	case Document:
		return val, true
	case map[string]any:
		return Document(val), true
	}
	return nil, false
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return cloneValue(d).(Document)
}

// Section returns the nested mapping at key, or an empty one.
func (d Document) Section(key string) Document {
	if m, ok := asDocument(d[key]); ok {
		return m
	}
	return Document{}
}

// String returns the string leaf at key, or def.
func (d Document) String(key, def string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the boolean leaf at key, or def.
func (d Document) Bool(key string, def bool) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return def
}

// Strings returns the string-array leaf at key. Entries of other types are
// skipped.
func (d Document) Strings(key string) []string {
	var out []string
	switch val := d[key].(type) {
	case []string:
		out = append(out, val...)
	case []any:
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// StringMap returns the mapping at key flattened to string leaves.
func (d Document) StringMap(key string) map[string]string {
	section, ok := asDocument(d[key])
	if !ok {
		return nil
	}
	out := make(map[string]string, len(section))
	for k, v := range section {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// BoolMap returns the mapping at key flattened to boolean leaves.
func (d Document) BoolMap(key string) map[string]bool {
	section, ok := asDocument(d[key])
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(section))
	for k, v := range section {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

// Keys returns the top-level keys, in no particular order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}
