package wayland

import (
	"golang.org/x/exp/slices"
)

const plasmaShellRequestGetSurface = 0

// PlasmaShell wraps the org_kde_plasma_shell global, the factory for
// PlasmaShellSurfaces.
//
// Releasing or destroying the shell does the same to every surface it
// created, before the shell itself goes away.
type PlasmaShell struct {
	handle   Handle[*Proxy]
	queue    *EventQueue
	surfaces *SurfaceRegistry
	children []*PlasmaShellSurface

	onReleasing  Listeners[*PlasmaShell]
	onDestroying Listeners[*PlasmaShell]
}

// NewPlasmaShell returns an unbound shell. Call Setup with a bound
// org_kde_plasma_shell, or use Registry.BindPlasmaShell.
func NewPlasmaShell() *PlasmaShell {
	return &PlasmaShell{
		// org_kde_plasma_shell has no destructor request.
		handle:   NewHandle((*Proxy).destroyLocal),
		surfaces: NewSurfaceRegistry(),
	}
}

// Setup binds the shell to p. It panics if the shell is already set up.
func (s *PlasmaShell) Setup(p *Proxy) {
	if p != nil && p.iface != PlasmaShellInterface {
		panic("wayland: setting up PlasmaShell with a " + p.iface)
	}
	s.handle.Setup(p)
}

func (s *PlasmaShell) Valid() bool { return s.handle.Valid() }

// Proxy returns the org_kde_plasma_shell, or nil if the shell isn't valid.
func (s *PlasmaShell) Proxy() *Proxy {
	p, _ := s.handle.Get()
	return p
}

// SetEventQueue makes surfaces created from now on deliver their events
// through q.
func (s *PlasmaShell) SetEventQueue(q *EventQueue) { s.queue = q }
func (s *PlasmaShell) EventQueue() *EventQueue     { return s.queue }

// Surfaces returns the registry used to find the Plasma surface of a
// generic surface.
func (s *PlasmaShell) Surfaces() *SurfaceRegistry { return s.surfaces }

// SetSurfaceRegistry shares r with other shells. It must be called before
// creating surfaces.
func (s *PlasmaShell) SetSurfaceRegistry(r *SurfaceRegistry) {
	if len(s.children) > 0 {
		panic("wayland: changing the surface registry of a shell with surfaces")
	}
	s.surfaces = r
}

// CreateSurface returns the PlasmaShellSurface of surface, creating it
// if surface doesn't have one yet. Calling it again for the same surface
// returns the same object without sending any request.
func (s *PlasmaShell) CreateSurface(surface *Surface) *PlasmaShellSurface {
	shell := s.handle.Must()
	if surface == nil || !surface.Valid() {
		panic("wayland: creating a PlasmaShellSurface for an invalid surface")
	}
	return s.surfaces.getOrCreate(surface, func() *PlasmaShellSurface {
		ps := newPlasmaShellSurface()
		p := shell.child("org_kde_plasma_surface")
		shell.marshal(shell.request(plasmaShellRequestGetSurface).
			PutNewID(p.id).
			PutObject(surface.proxy.id))
		if s.queue != nil {
			s.queue.AddProxy(p)
		}
		ps.setup(p)
		ps.parent = surface
		ps.shell = s
		s.children = append(s.children, ps)
		return ps
	})
}

// OnReleasing registers fn to run at the start of Release, while the
// shell and its surfaces are still valid.
func (s *PlasmaShell) OnReleasing(fn func(*PlasmaShell)) (remove func()) {
	return s.onReleasing.Add(fn)
}

// OnDestroying registers fn to run at the start of Destroy.
func (s *PlasmaShell) OnDestroying(fn func(*PlasmaShell)) (remove func()) {
	return s.onDestroying.Add(fn)
}

func (s *PlasmaShell) forgetChild(ps *PlasmaShellSurface) {
	s.children = slices.DeleteFunc(s.children, func(x *PlasmaShellSurface) bool { return x == ps })
}

// Release releases all surfaces created by the shell, then the shell.
func (s *PlasmaShell) Release() {
	if !s.handle.Valid() {
		return
	}
	s.onReleasing.emit(s)
	for _, ps := range slices.Clone(s.children) {
		ps.Release()
	}
	s.handle.Release()
}

// Destroy tears the shell and its surfaces down without sending requests.
// Use it once the connection is gone.
func (s *PlasmaShell) Destroy() {
	if !s.handle.Valid() {
		return
	}
	s.onDestroying.emit(s)
	for _, ps := range slices.Clone(s.children) {
		ps.Destroy()
	}
	s.handle.Destroy()
}
