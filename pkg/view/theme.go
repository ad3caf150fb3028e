package view

import (
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ThemeConfig flattens a theme selection: variant templates, tokens and
// asset files override the base manifest. Tokens are also exposed as CSS
// custom properties ("brand" becomes "--brand").
func ThemeConfig(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: make(map[string]string),
		Tokens:   make(map[string]string),
		CSSVars:  make(map[string]string),
	}

	prefix := ""
	files := make(map[string]string)
	if manifest := selection.Manifest; manifest != nil {
		mergeStrings(cfg.Partials, manifest.Templates)
		mergeStrings(cfg.Tokens, manifest.Tokens)
		prefix = manifest.Assets.Prefix
		mergeStrings(files, manifest.Assets.Files)

		if variant, ok := manifest.Variants[selection.Variant]; ok {
			mergeStrings(cfg.Partials, variant.Templates)
			mergeStrings(cfg.Tokens, variant.Tokens)
			if variant.Assets.Prefix != "" {
				prefix = variant.Assets.Prefix
			}
			mergeStrings(files, variant.Assets.Files)
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.TrimPrefix(key, "--")] = value
	}

	cfg.AssetURL = func(key string) string {
		file := strings.TrimSpace(files[key])
		if file == "" {
			return ""
		}
		if prefix == "" || strings.Contains(file, "://") {
			return file
		}
		return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
	}
	return cfg
}

// CSSVarsStyle renders CSS custom properties as a sorted style declaration.
func CSSVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}

func mergeStrings(dst, src map[string]string) {
	for key, value := range src {
		if strings.TrimSpace(value) == "" {
			continue
		}
		dst[key] = value
	}
}
