package export

import (
	"sort"
	"strings"
)

// Renderer turns a Dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Registry resolves renderers by format name, which is their extension.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry indexes renderers by extension. Later entries win on clashes.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer, len(renderers))}
	for _, renderer := range renderers {
		if renderer == nil {
			continue
		}
		r.renderers[strings.ToLower(renderer.Extension())] = renderer
	}
	return r
}

// Lookup finds the renderer for format, ignoring case and surrounding spaces.
func (r *Registry) Lookup(format string) (Renderer, bool) {
	if r == nil {
		return nil, false
	}
	renderer, ok := r.renderers[strings.ToLower(strings.TrimSpace(format))]
	return renderer, ok
}

// Formats lists the registered format names sorted.
func (r *Registry) Formats() []string {
	if r == nil {
		return nil
	}
	formats := make([]string, 0, len(r.renderers))
	for format := range r.renderers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}
