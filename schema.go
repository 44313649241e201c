package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes one exported metadata field: a dotted path into
// the flattened value map and the inferred type.
type FieldDescriptor struct {
	Path string
	Type string
}

// Describe returns descriptors for every registered key, ordered by ID. The
// declared value kind stands in for the Go type.
func (r *Registry) Describe() []FieldDescriptor {
	keys := r.Keys()
	out := make([]FieldDescriptor, 0, len(keys))
	for _, key := range keys {
		kind := string(key.Kind)
		if key.AllowMultiple {
			kind = "[]" + kind
		}
		out = append(out, FieldDescriptor{Path: key.Name, Type: kind})
	}
	return out
}

// Describe derives field descriptors from the strand's flattened value map.
// Nested JSON values contribute one descriptor per leaf path.
func (s Strand) Describe() []FieldDescriptor {
	if s.Len() == 0 {
		return []FieldDescriptor{}
	}
	descriptors := deriveFieldDescriptors(s.ValueMap(), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{
				Path: prefix,
				Type: "map[string]any",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			nextPrefix := joinPath(prefix, key)
			fields = append(fields, deriveFieldDescriptors(typed[key], nextPrefix)...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: "[]" + elementType,
		}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: typeName(typed),
		}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
