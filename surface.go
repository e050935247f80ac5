package wayland

const (
	compositorRequestCreateSurface = 0

	surfaceRequestDestroy        = 0
	surfaceRequestAttach         = 1
	surfaceRequestDamage         = 2
	surfaceRequestFrame          = 3
	surfaceRequestCommit         = 6
	surfaceRequestSetBufferScale = 8
	surfaceRequestDamageBuffer   = 9

	surfaceEventPreferredBufferScale = 2
)

type Compositor struct {
	proxy *Proxy
}

func (comp *Compositor) Proxy() *Proxy   { return comp.proxy }
func (comp *Compositor) Version() uint32 { return comp.proxy.vers }

func (comp *Compositor) CreateSurface() *Surface {
	surf := &Surface{proxy: comp.proxy.child("wl_surface")}
	surf.proxy.listen(surf)
	comp.proxy.marshal(comp.proxy.request(compositorRequestCreateSurface).PutNewID(surf.proxy.id))
	return surf
}

// Destroy forgets the compositor. wl_compositor has no destructor request.
func (comp *Compositor) Destroy() {
	comp.proxy.destroyLocal()
}

// Surface is a wl_surface. Its pointer is the identity that extensions
// such as the Plasma shell key their per-surface state on.
type Surface struct {
	proxy     *Proxy
	destroyed bool
	onDestroy Listeners[*Surface]

	OnPreferredBufferScale func(scale int32)
}

func (surf *Surface) Proxy() *Proxy   { return surf.proxy }
func (surf *Surface) Version() uint32 { return surf.proxy.vers }

// Valid reports whether Destroy hasn't been called yet.
func (surf *Surface) Valid() bool { return !surf.destroyed }

func (surf *Surface) Destroy() {
	if surf.destroyed {
		return
	}
	surf.destroyed = true
	surf.onDestroy.emit(surf)
	surf.onDestroy.clear()
	surf.proxy.destroyWith(surfaceRequestDestroy)
}

// Attach sets buf as the pending content. A nil buffer unmaps the surface.
func (surf *Surface) Attach(buf *Buffer, x, y int32) {
	var id uint32
	if buf != nil {
		id = buf.handle.Must().id
	}
	surf.proxy.marshal(surf.proxy.request(surfaceRequestAttach).PutObject(id).PutInt(x).PutInt(y))
}

func (surf *Surface) Damage(x, y, width, height int32) {
	surf.proxy.marshal(surf.proxy.request(surfaceRequestDamage).PutInt(x).PutInt(y).PutInt(width).PutInt(height))
}

func (surf *Surface) DamageBuffer(x, y, width, height int32) {
	surf.proxy.marshal(surf.proxy.request(surfaceRequestDamageBuffer).PutInt(x).PutInt(y).PutInt(width).PutInt(height))
}

// Frame requests fn to be called when it is a good time to draw the
// next frame.
func (surf *Surface) Frame(fn func(data uint32)) *Callback {
	cb := newCallback(surf.proxy.child("wl_callback"), fn)
	surf.proxy.marshal(surf.proxy.request(surfaceRequestFrame).PutNewID(cb.proxy.id))
	return cb
}

func (surf *Surface) SetBufferScale(scale int32) {
	surf.proxy.marshal(surf.proxy.request(surfaceRequestSetBufferScale).PutInt(scale))
}

func (surf *Surface) Commit() {
	surf.proxy.marshal(surf.proxy.request(surfaceRequestCommit))
}

func (surf *Surface) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, surf.proxy)
	switch opcode {
	case surfaceEventPreferredBufferScale:
		scale := args.ReadInt()
		if err := args.Err(); err != nil {
			return err
		}
		if surf.OnPreferredBufferScale != nil {
			surf.OnPreferredBufferScale(scale)
		}
	}
	return nil
}
