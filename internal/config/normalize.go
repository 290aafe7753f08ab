package config

import (
	"fmt"
	"time"
)

// normalize converts YAML-decoded data into plain JSON-compatible values:
// string-keyed maps, []any slices, strings, bools, numbers and nil.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}

		return out
	case time.Time:
		return t.Format(time.RFC3339)
	case nil, bool, string, int, int64, uint64, float64:
		return t
	default:
		return fmt.Sprint(t)
	}
}
