package params

import (
	"sort"
	"strings"
	"sync"

	"github.com/mohae/deepcopy"
)

// Bag is a nested key-value store addressed with dot paths ("label.attrs.id").
// Intermediate maps are created on Set. Values read from the bag are returned
// as stored; use the typed getters for coercion.
type Bag struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns a bag holding a deep copy of values.
func New(values map[string]any) *Bag {
	b := &Bag{data: make(map[string]any, len(values))}
	for key, value := range values {
		b.data[key] = deepcopy.Copy(value)
	}
	return b
}

// Clone returns an independent deep copy of the bag.
func (b *Bag) Clone() *Bag {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return New(b.data)
}

// All returns the underlying map. Callers must not retain it across mutations.
func (b *Bag) All() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

// Keys returns the sorted top-level keys.
func (b *Bag) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for key := range b.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the dot path resolves to a stored value (nil included).
func (b *Bag) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := lookup(b.data, key)
	return ok
}

// Get resolves a dot path, returning nil when missing.
func (b *Bag) Get(key string) any {
	return b.GetOr(key, nil)
}

// GetOr resolves a dot path, returning fallback when the path is missing.
func (b *Bag) GetOr(key string, fallback any) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if value, ok := lookup(b.data, key); ok {
		return value
	}
	return fallback
}

// GetString returns the value at key formatted as a string.
func (b *Bag) GetString(key string) string {
	return String(b.Get(key))
}

// GetInt returns the value at key as an int (0 when not numeric).
func (b *Bag) GetInt(key string) int {
	return Int(b.Get(key))
}

// GetBool returns the truthiness of the value at key.
func (b *Bag) GetBool(key string) bool {
	return Truthy(b.Get(key))
}

// GetMap returns the value at key as a map, or nil.
func (b *Bag) GetMap(key string) map[string]any {
	return Map(b.Get(key))
}

// GetStrings returns the value at key as a string slice.
func (b *Bag) GetStrings(key string) []string {
	return Strings(b.Get(key))
}

// Set stores value at the dot path, creating intermediate maps.
func (b *Bag) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	assign(b.data, key, value)
}

// SetMany stores every entry of values. Keys may be dot paths.
func (b *Bag) SetMany(values map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, value := range values {
		assign(b.data, key, value)
	}
}

// Push appends value to the list stored at key. A missing or scalar entry is
// replaced by a list.
func (b *Bag) Push(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, _ := lookup(b.data, key)
	switch list := current.(type) {
	case []string:
		if s, ok := value.(string); ok {
			assign(b.data, key, append(list, s))
			return
		}
		out := make([]any, 0, len(list)+1)
		for _, item := range list {
			out = append(out, item)
		}
		assign(b.data, key, append(out, value))
	case []any:
		assign(b.data, key, append(list, value))
	default:
		if s, ok := value.(string); ok {
			assign(b.data, key, []string{s})
			return
		}
		assign(b.data, key, []any{value})
	}
}

// Pull returns the value at key and removes it.
func (b *Bag) Pull(key string) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := lookup(b.data, key)
	if !ok {
		return nil
	}
	remove(b.data, key)
	return value
}

// Forget removes the value at key.
func (b *Bag) Forget(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remove(b.data, key)
}

// Merge applies defaults under the current top-level values: a key already
// present in the bag keeps its value.
func (b *Bag) Merge(defaults map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, value := range defaults {
		if _, exists := b.data[key]; exists {
			continue
		}
		b.data[key] = deepcopy.Copy(value)
	}
}

func lookup(data map[string]any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	if value, ok := data[key]; ok {
		return value, true
	}
	segments := strings.Split(key, ".")
	var current any = data
	for _, segment := range segments {
		m := Map(current)
		if m == nil {
			return nil, false
		}
		next, ok := m[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func assign(data map[string]any, key string, value any) {
	if key == "" {
		return
	}
	segments := strings.Split(key, ".")
	current := data
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = Map(current[segment])
			if next == nil {
				next = make(map[string]any)
			}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

func remove(data map[string]any, key string) {
	if _, ok := data[key]; ok {
		delete(data, key)
		return
	}
	segments := strings.Split(key, ".")
	current := data
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}
