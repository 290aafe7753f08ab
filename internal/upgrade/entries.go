package upgrade

import (
	"fmt"

	"github.com/cogniteev/easy-upgrade/internal/config"
)

// entry is one {actionName: actionConfig} item of a release.
type entry struct {
	name   string
	config config.Values
}

// singleEntry reads a required fetch or install entry. Both a single-key
// mapping and a list holding one such mapping are accepted.
func singleEntry(values config.Values, key string) (entry, error) {
	raw, ok := values.Get(key)
	if !ok || raw == nil {
		return entry{}, fmt.Errorf("%w: %q is required", ErrConfigShape, key)
	}

	if list, isList := raw.([]any); isList {
		if len(list) != 1 {
			return entry{}, fmt.Errorf("%w: %q must hold exactly one action, got %d", ErrConfigShape, key, len(list))
		}

		raw = list[0]
	}

	return parseEntry(key, raw)
}

// listEntries reads the optional post-install entries in declaration order.
func listEntries(values config.Values, key string) ([]entry, error) {
	raw, ok := values.Get(key)
	if !ok || raw == nil {
		return nil, nil
	}

	list, isList := raw.([]any)
	if !isList {
		// A lone mapping is one entry, and still has to be single-key.
		list = []any{raw}
	}

	entries := make([]entry, 0, len(list))

	for i, item := range list {
		e, err := parseEntry(fmt.Sprintf("%s[%d]", key, i), item)
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func parseEntry(key string, raw any) (entry, error) {
	mapping, ok := asMapping(raw)
	if !ok {
		return entry{}, fmt.Errorf("%w: %q must be a {action: config} mapping, got %T", ErrConfigShape, key, raw)
	}

	if len(mapping) != 1 {
		return entry{}, fmt.Errorf("%w: %q must name exactly one action, got %d", ErrConfigShape, key, len(mapping))
	}

	for name, value := range mapping {
		if name == "" {
			return entry{}, fmt.Errorf("%w: %q has an empty action name", ErrConfigShape, key)
		}

		if value == nil {
			return entry{name: name, config: config.Values{}}, nil
		}

		cfg, ok := asMapping(value)
		if !ok {
			return entry{}, fmt.Errorf("%w: config of action %q in %q must be a mapping, got %T",
				ErrConfigShape, name, key, value)
		}

		return entry{name: name, config: cfg}, nil
	}

	return entry{}, nil
}

func asMapping(raw any) (config.Values, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return config.Values(m), true
	case config.Values:
		return m, true
	default:
		return nil, false
	}
}
