package settings

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// merge deep-merges layers left to right into a fresh map. Nested objects are
// merged key by key; any other value replaces what came before.
func merge(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				mergeInto(cur, sub)
				continue
			}
			fresh := map[string]any{}
			mergeInto(fresh, sub)
			dst[k] = fresh
			continue
		}
		dst[k] = copyValue(v)
	}
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = copyValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = copyValue(x)
		}
		return s
	default:
		return v
	}
}

// setPath stores v under a dotted key, creating intermediate objects.
func setPath(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// flatten turns nested objects into dotted keys. Descent stops at keys for
// which leaf returns true so dict-typed fields stay whole.
func flatten(m map[string]any, leaf func(key string) bool) map[string]any {
	out := map[string]any{}
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		obj, ok := v.(map[string]any)
		if !ok || len(obj) == 0 || (prefix != "" && leaf(prefix)) {
			out[prefix] = v
			return
		}
		for k, x := range obj {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			walk(key, x)
		}
	}
	walk("", m)
	delete(out, "")
	return out
}

// normalize converts v into its JSON-decoded form so typed Go values compare
// equal to values read back from disk.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return out, nil
}

func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
