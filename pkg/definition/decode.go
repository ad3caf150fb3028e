package definition

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ordered is a decoded mapping that remembers its key order.
type ordered struct {
	keys   []string
	values map[string]any
}

func newOrdered() *ordered {
	return &ordered{values: make(map[string]any)}
}

func (o *ordered) set(key string, value any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *ordered) get(key string) (any, bool) {
	value, ok := o.values[key]
	return value, ok
}

// listKeys names the form declarations whose map form is turned into a
// list carrying the map key, so file order survives.
var listKeys = map[string]string{
	"fields": "slug",
	"groups": "alias",
}

// formParams converts a decoded form body into the params form.Manager
// expects.
func formParams(body *ordered) map[string]any {
	out := make(map[string]any, len(body.keys))
	for _, key := range body.keys {
		value := body.values[key]
		keyName, listed := listKeys[key]
		declared, isMap := value.(*ordered)
		if !listed || !isMap {
			out[key] = plain(value)
			continue
		}
		list := make([]any, 0, len(declared.keys))
		for _, name := range declared.keys {
			entryValue := declared.values[name]
			if entryValue == false {
				continue
			}
			entry, _ := plain(entryValue).(map[string]any)
			if entry == nil {
				entry = make(map[string]any)
			}
			entry[keyName] = name
			list = append(list, entry)
		}
		out[key] = list
	}
	return out
}

// plain converts decoded values into plain maps and lists.
func plain(v any) any {
	switch typed := v.(type) {
	case *ordered:
		out := make(map[string]any, len(typed.keys))
		for _, key := range typed.keys {
			out[key] = plain(typed.values[key])
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, plain(item))
		}
		return out
	default:
		return v
	}
}

func decodeJSON(data []byte) (*ordered, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	root, ok := fromJSON(gjson.ParseBytes(data)).(*ordered)
	if !ok {
		return nil, errors.New("document must be an object")
	}
	return root, nil
}

func fromJSON(result gjson.Result) any {
	switch {
	case result.IsObject():
		out := newOrdered()
		result.ForEach(func(key, value gjson.Result) bool {
			out.set(key.String(), fromJSON(value))
			return true
		})
		return out
	case result.IsArray():
		items := result.Array()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, fromJSON(item))
		}
		return out
	}
	switch result.Type {
	case gjson.String:
		return result.Str
	case gjson.Number:
		if result.Num == math.Trunc(result.Num) && math.Abs(result.Num) < 1<<53 {
			return int(result.Num)
		}
		return result.Num
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}

func decodeYAML(data []byte) (*ordered, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("document is empty")
	}
	value, err := fromYAML(doc.Content[0])
	if err != nil {
		return nil, err
	}
	root, ok := value.(*ordered)
	if !ok {
		return nil, errors.New("document must be a mapping")
	}
	return root, nil
}

func fromYAML(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		out := newOrdered()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			value, err := fromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out.set(key.Value, value)
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node", node.Line)
	}
}
