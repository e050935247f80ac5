package wayland

import (
	"sync"

	"golang.org/x/exp/maps"
)

// SurfaceRegistry maps generic surfaces to the Plasma surface decorating
// them, so that each Surface gets at most one PlasmaShellSurface.
//
// Entries live exactly as long as the PlasmaShellSurface: they are added
// when it is created and removed when it is released or destroyed. When
// the Surface itself is destroyed first, its entry goes away too and the
// Plasma surface's Parent becomes nil.
type SurfaceRegistry struct {
	mu      sync.Mutex
	entries map[*Surface]*PlasmaShellSurface
}

func NewSurfaceRegistry() *SurfaceRegistry {
	return &SurfaceRegistry{entries: make(map[*Surface]*PlasmaShellSurface)}
}

// Get returns the Plasma surface of s, or nil.
func (r *SurfaceRegistry) Get(s *Surface) *PlasmaShellSurface {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[s]
}

// Len returns the number of live entries.
func (r *SurfaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// getOrCreate returns the entry for s, calling create to make one if
// there is none. The lock is held throughout, so concurrent callers
// share one entry.
func (r *SurfaceRegistry) getOrCreate(s *Surface, create func() *PlasmaShellSurface) *PlasmaShellSurface {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ps, ok := r.entries[s]; ok {
		return ps
	}

	ps := create()
	r.entries[s] = ps
	ps.registry = r
	ps.unwatchParent = s.onDestroy.Add(func(s *Surface) {
		r.remove(s, ps)
		ps.parent = nil
		ps.unwatchParent = nil
	})
	return ps
}

// remove drops the entry for s if it still belongs to ps.
func (r *SurfaceRegistry) remove(s *Surface, ps *PlasmaShellSurface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[s] == ps {
		delete(r.entries, s)
	}
}

// Surfaces returns the registered Plasma surfaces in no particular order.
func (r *SurfaceRegistry) Surfaces() []*PlasmaShellSurface {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PlasmaShellSurface, 0, len(r.entries))
	for _, ps := range maps.Values(r.entries) {
		out = append(out, ps)
	}
	return out
}
