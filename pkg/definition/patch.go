package definition

import (
	"bytes"
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tidwall/gjson"
)

// Patch applies overlay to a copy of def. A JSON array is read as an
// RFC 6902 operation list, a JSON object as an RFC 7386 merge patch.
// Fields declared as a list are addressed by index, e.g. "/fields/0/title".
func Patch(def Definition, overlay []byte) (Definition, error) {
	overlay = bytes.TrimSpace(overlay)
	if len(overlay) == 0 {
		return def.Clone(), nil
	}

	current, err := sonic.Marshal(def.Params)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: marshal %q: %w", def.Alias, err)
	}

	var modified []byte
	switch overlay[0] {
	case '[':
		patch, err := jsonpatch.DecodePatch(overlay)
		if err != nil {
			return Definition{}, fmt.Errorf("definition: decode patch: %w", err)
		}
		modified, err = patch.Apply(current)
		if err != nil {
			return Definition{}, fmt.Errorf("definition: apply patch to %q: %w", def.Alias, err)
		}
	case '{':
		modified, err = jsonpatch.MergePatch(current, overlay)
		if err != nil {
			return Definition{}, fmt.Errorf("definition: merge patch into %q: %w", def.Alias, err)
		}
	default:
		return Definition{}, fmt.Errorf("definition: patch must be a JSON array or object")
	}

	root, ok := fromJSON(gjson.ParseBytes(modified)).(*ordered)
	if !ok {
		return Definition{}, fmt.Errorf("definition: patch turned %q into a non object", def.Alias)
	}
	return newDefinition(def.Alias, root, def.Source)
}

// PatchAll applies overlays keyed by alias. Overlays naming unknown forms
// are an error.
func PatchAll(defs []Definition, overlays map[string][]byte) ([]Definition, error) {
	out := make([]Definition, len(defs))
	copy(out, defs)
	for alias, overlay := range overlays {
		index := -1
		for i, def := range out {
			if def.Alias == alias {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("definition: patch for unknown form %q", alias)
		}
		patched, err := Patch(out[index], overlay)
		if err != nil {
			return nil, err
		}
		out[index] = patched
	}
	return out, nil
}
