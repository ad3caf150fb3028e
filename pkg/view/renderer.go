// Package view renders form views through a pongo2 template set. Views are
// presentation only: callers pass plain maps with pre-rendered fragments.
package view

import "io"

// TemplateRenderer renders a named template. The pongo2 Engine is the
// default; WithRenderer swaps in another one.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any, out ...io.Writer) (string, error)
}
