package api

import (
	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/store"
)

// Pyramid is one served tile pyramid: a store plus its display
// metadata.
type Pyramid struct {
	ID    string
	Title string
	Mode  imagery.Mode
	Depth int
	Store store.TileStore
}

// PyramidInfo contains information about a pyramid for the API response.
type PyramidInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Mode  string `json:"mode"`
	Depth int    `json:"depth"`
}

// PyramidRegistry holds all configured pyramids in config order.
type PyramidRegistry struct {
	pyramids map[string]*Pyramid
	order    []string
	title    string
}

// NewPyramidRegistry creates a new pyramid registry.
func NewPyramidRegistry(title string) *PyramidRegistry {
	return &PyramidRegistry{
		pyramids: make(map[string]*Pyramid),
		title:    title,
	}
}

// Register adds a pyramid. Registration order is the order pyramids are
// listed in API responses.
func (r *PyramidRegistry) Register(p *Pyramid) {
	if _, ok := r.pyramids[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.pyramids[p.ID] = p
}

// Get returns the pyramid with the given id, or nil if not found.
func (r *PyramidRegistry) Get(id string) *Pyramid {
	return r.pyramids[id]
}

// Title returns the configured site title.
func (r *PyramidRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "skytiler"
}

// Pyramids returns info for all registered pyramids in config order.
func (r *PyramidRegistry) Pyramids() []PyramidInfo {
	infos := make([]PyramidInfo, 0, len(r.order))
	for _, id := range r.order {
		p := r.pyramids[id]
		infos = append(infos, PyramidInfo{
			ID:    p.ID,
			Title: p.Title,
			Mode:  p.Mode.String(),
			Depth: p.Depth,
		})
	}
	return infos
}
