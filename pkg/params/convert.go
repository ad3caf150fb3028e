package params

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Truthy reports whether v counts as set: nil, false, "", "0", zero numbers
// and empty collections are falsy.
func Truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != "" && value != "0"
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case []any:
		return len(value) > 0
	case []string:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	case map[string]string:
		return len(value) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}
	return true
}

// String formats v for HTML attributes and messages. Nil becomes "" and
// lists are joined with ", ".
func String(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "1"
		}
		return ""
	case []string:
		return strings.Join(value, ", ")
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			parts = append(parts, String(item))
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Int coerces numbers and numeric strings to int.
func Int(v any) int {
	switch value := v.(type) {
	case int:
		return value
	case int8:
		return int(value)
	case int16:
		return int(value)
	case int32:
		return int(value)
	case int64:
		return int(value)
	case uint:
		return int(value)
	case uint32:
		return int(value)
	case uint64:
		return int(value)
	case float32:
		return int(value)
	case float64:
		return int(value)
	case bool:
		if value {
			return 1
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// Map returns v as map[string]any when it is a string keyed map.
func Map(v any) map[string]any {
	switch value := v.(type) {
	case map[string]any:
		return value
	case map[string]string:
		out := make(map[string]any, len(value))
		for key, item := range value {
			out[key] = item
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(value))
		for key, item := range value {
			out[fmt.Sprint(key)] = item
		}
		return out
	}
	return nil
}

// List returns v as a []any; scalars are wrapped, nil yields nil.
func List(v any) []any {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		return value
	case []string:
		out := make([]any, 0, len(value))
		for _, item := range value {
			out = append(out, item)
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(value))
		for _, item := range value {
			out = append(out, item)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	}
	return []any{v}
}

// Strings returns v as a string slice. Maps yield their sorted values.
func Strings(v any) []string {
	switch value := v.(type) {
	case nil:
		return nil
	case []string:
		return value
	case string:
		return []string{value}
	}
	if m := Map(v); m != nil {
		keys := make([]string, 0, len(m))
		for key := range m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, key := range keys {
			out = append(out, String(m[key]))
		}
		return out
	}
	items := List(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, String(item))
	}
	return out
}

// Contains reports whether list holds s.
func Contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Without returns list minus every occurrence of s.
func Without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != s {
			out = append(out, item)
		}
	}
	return out
}

// MergeDefaults returns values completed with defaults. Nested maps present
// on both sides are merged recursively; any other value in values wins.
// Neither input is modified.
func MergeDefaults(values, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(values)+len(defaults))
	for key, value := range defaults {
		out[key] = value
	}
	for key, value := range values {
		nested, isMap := value.(map[string]any)
		base, baseIsMap := out[key].(map[string]any)
		if isMap && baseIsMap {
			out[key] = MergeDefaults(nested, base)
			continue
		}
		out[key] = value
	}
	return out
}
