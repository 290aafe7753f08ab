package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-viper/mapstructure/v2"
)

// Values is a free-form mapping of settings with typed accessors.
// A nil Values behaves as an empty mapping.
type Values map[string]any

// Get returns the raw value stored under key.
func (v Values) Get(key string) (any, bool) {
	value, ok := v[key]

	return value, ok
}

// Has reports whether key is set.
func (v Values) Has(key string) bool {
	_, ok := v[key]

	return ok
}

// Keys returns the keys in lexical order.
func (v Values) Keys() []string {
	return slices.Sorted(maps.Keys(v))
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}

	return maps.Clone(v)
}

// String returns the string under key, or def when the key is absent or null.
func (v Values) String(key, def string) (string, error) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return def, nil
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidValue, key, raw)
	}

	return s, nil
}

// Bool returns the boolean under key, or def when the key is absent or null.
func (v Values) Bool(key string, def bool) (bool, error) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return def, nil
	}

	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q must be a boolean, got %T", ErrInvalidValue, key, raw)
	}

	return b, nil
}

// StringSlice returns a list of strings under key. A single string is
// accepted as a one-element list. def is returned when the key is absent.
func (v Values) StringSlice(key string, def []string) ([]string, error) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch t := raw.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))

		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q[%d] must be a string, got %T", ErrInvalidValue, key, i, item)
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q must be a list of strings, got %T", ErrInvalidValue, key, raw)
	}
}

// Sub returns the mapping under key. An absent or null key yields an empty mapping.
func (v Values) Sub(key string) (Values, error) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return Values{}, nil
	}

	switch t := raw.(type) {
	case map[string]any:
		return Values(t), nil
	case Values:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q must be a mapping, got %T", ErrInvalidValue, key, raw)
	}
}

// Decode copies the settings into out, a pointer to a struct with
// `mapstructure` tags. Scalars are converted weakly ("true" into a bool,
// "10" into an int) and durations may be written as strings. Unknown keys
// are ignored.
func (v Values) Decode(out any) error {
	return v.decode(out, false)
}

// DecodeStrict is Decode that fails on keys out does not declare.
func (v Values) DecodeStrict(out any) error {
	return v.decode(out, true)
}

func (v Values) decode(out any, strict bool) error {
	//nolint:exhaustruct // Remaining decoder options keep their defaults.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(v.Clone())); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	return nil
}
