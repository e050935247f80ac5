package wayland

// Handle owns one protocol object and knows how to tear it down.
//
// A Handle starts out unbound. Setup binds it exactly once. From then on
// it is torn down in one of two ways: Release runs the destructor the
// Handle was created with, which usually sends a destructor request to the
// compositor, while Destroy only forgets the object. Destroy is for when
// the connection is already gone and nothing may be sent anymore.
//
// The zero Handle has no destructor; Release then behaves like Destroy.
type Handle[P comparable] struct {
	obj        P
	bound      bool
	destructor func(P)
}

// NewHandle returns an unbound Handle that calls destructor on Release.
func NewHandle[P comparable](destructor func(P)) Handle[P] {
	return Handle[P]{destructor: destructor}
}

// Setup binds the handle to obj. Binding twice or binding the zero value
// is a programming error and panics.
func (h *Handle[P]) Setup(obj P) {
	var zero P
	if h.bound {
		panic("wayland: handle is already set up")
	}
	if obj == zero {
		panic("wayland: setting up handle with nil object")
	}
	h.obj = obj
	h.bound = true
}

// Valid reports whether the handle is bound.
func (h *Handle[P]) Valid() bool { return h.bound }

// Get returns the bound object. ok is false once the handle has been
// released or destroyed, or before it was set up.
func (h *Handle[P]) Get() (obj P, ok bool) {
	return h.obj, h.bound
}

// Must returns the bound object and panics if there is none.
func (h *Handle[P]) Must() P {
	if !h.bound {
		panic("wayland: use of invalid handle")
	}
	return h.obj
}

// Release runs the destructor and unbinds. It does nothing on an unbound
// handle.
func (h *Handle[P]) Release() {
	if !h.bound {
		return
	}
	obj := h.obj
	h.clear()
	if h.destructor != nil {
		h.destructor(obj)
	}
}

// Destroy unbinds without running the destructor.
func (h *Handle[P]) Destroy() {
	if !h.bound {
		return
	}
	h.clear()
}

func (h *Handle[P]) clear() {
	var zero P
	h.obj = zero
	h.bound = false
}
