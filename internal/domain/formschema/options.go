package formschema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

var ErrInvalidArgument = errors.New("invalid argument")

// DeduplicateOptions keeps the first option seen for each value, in input
// order. Options without a value are always kept.
func DeduplicateOptions(opts []FieldOption) []FieldOption {
	out := make([]FieldOption, 0, len(opts))
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		key, ok := o.Key()
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, o)
	}
	return out
}

// DeduplicateRaw deduplicates a decoded JSON option list by its "value"
// entries. Nil elements are dropped. Elements that are not objects, or have
// no comparable value, are kept as distinct entries. Input that is not an
// array is rejected with ErrInvalidArgument.
func DeduplicateRaw(v any) ([]any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: options must be an array, got %T", ErrInvalidArgument, v)
	}
	out := make([]any, 0, len(arr))
	seen := make(map[any]struct{}, len(arr))
	for _, el := range arr {
		if el == nil {
			continue
		}
		key, ok := rawOptionValue(el)
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, el)
	}
	return out, nil
}

func rawOptionValue(el any) (any, bool) {
	var v any
	var ok bool
	switch t := el.(type) {
	case *ordered.Object:
		v, ok = t.Get("value")
	case map[string]any:
		v, ok = t["value"]
	default:
		return nil, false
	}
	if !ok || v == nil {
		return nil, false
	}
	switch v.(type) {
	case string, float64, bool, json.Number:
		return v, true
	}
	return nil, false
}
