package wayland

import (
	"encoding/binary"
	"fmt"
)

const (
	xdgWmBaseRequestDestroy       = 0
	xdgWmBaseRequestGetXdgSurface = 2
	xdgWmBaseRequestPong          = 3

	xdgWmBaseEventPing = 0

	xdgSurfaceRequestDestroy      = 0
	xdgSurfaceRequestGetToplevel  = 1
	xdgSurfaceRequestAckConfigure = 4

	xdgSurfaceEventConfigure = 0

	xdgToplevelRequestDestroy  = 0
	xdgToplevelRequestSetTitle = 2
	xdgToplevelRequestSetAppID = 3

	xdgToplevelEventConfigure = 0
	xdgToplevelEventClose     = 1
)

const (
	XdgWmBaseInterface = "xdg_wm_base"
	XdgWmBaseVersion   = 3
)

// XdgToplevelState is one of the states listed in a toplevel configure
// event.
type XdgToplevelState uint32

const (
	XdgToplevelStateMaximized   XdgToplevelState = 1
	XdgToplevelStateFullscreen  XdgToplevelState = 2
	XdgToplevelStateResizing    XdgToplevelState = 3
	XdgToplevelStateActivated   XdgToplevelState = 4
	XdgToplevelStateTiledLeft   XdgToplevelState = 5
	XdgToplevelStateTiledRight  XdgToplevelState = 6
	XdgToplevelStateTiledTop    XdgToplevelState = 7
	XdgToplevelStateTiledBottom XdgToplevelState = 8
)

// XdgWmBase wraps the xdg_wm_base global, which turns surfaces into
// desktop windows. Pings are answered automatically.
type XdgWmBase struct {
	proxy *Proxy

	// OnPing is called after a ping has been answered.
	OnPing func(serial uint32)
}

func (reg *Registry) BindXdgWmBase(name uint32, vers uint32) *XdgWmBase {
	xdg := &XdgWmBase{proxy: reg.bind(name, XdgWmBaseInterface, vers, XdgWmBaseVersion)}
	xdg.proxy.listen(xdg)
	return xdg
}

func (xdg *XdgWmBase) Proxy() *Proxy { return xdg.proxy }

func (xdg *XdgWmBase) Destroy() {
	xdg.proxy.destroyWith(xdgWmBaseRequestDestroy)
}

func (xdg *XdgWmBase) Pong(serial uint32) {
	xdg.proxy.marshal(xdg.proxy.request(xdgWmBaseRequestPong).PutUint(serial))
}

func (xdg *XdgWmBase) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, xdg.proxy)
	if opcode != xdgWmBaseEventPing {
		return nil
	}
	serial := args.ReadUint()
	if err := args.Err(); err != nil {
		return err
	}
	xdg.Pong(serial)
	if xdg.OnPing != nil {
		xdg.OnPing(serial)
	}
	return nil
}

// XdgSurface creates the xdg_surface of surf. surf must not have a buffer
// attached yet.
func (xdg *XdgWmBase) XdgSurface(surf *Surface) *XdgSurface {
	if surf == nil || !surf.Valid() {
		panic("wayland: creating an XdgSurface for an invalid surface")
	}
	p := xdg.proxy.child("xdg_surface")
	xdg.proxy.marshal(xdg.proxy.request(xdgWmBaseRequestGetXdgSurface).
		PutNewID(p.id).
		PutObject(surf.proxy.id))
	xs := &XdgSurface{proxy: p, surface: surf}
	p.listen(xs)
	return xs
}

// XdgSurface is the xdg_surface of a Surface. Nothing may be attached to
// the surface until the first configure event has been acknowledged.
type XdgSurface struct {
	proxy      *Proxy
	surface    *Surface
	configured bool

	// OnConfigure is called for every configure event. It must call
	// AckConfigure, usually right before committing the new state. If it
	// is nil, configure events are acknowledged immediately.
	OnConfigure func(serial uint32)
}

func (xs *XdgSurface) Proxy() *Proxy     { return xs.proxy }
func (xs *XdgSurface) Surface() *Surface { return xs.surface }

// Configured reports whether a configure event has arrived.
func (xs *XdgSurface) Configured() bool { return xs.configured }

func (xs *XdgSurface) AckConfigure(serial uint32) {
	xs.proxy.marshal(xs.proxy.request(xdgSurfaceRequestAckConfigure).PutUint(serial))
}

// Toplevel gives the surface the toplevel window role.
func (xs *XdgSurface) Toplevel() *XdgToplevel {
	p := xs.proxy.child("xdg_toplevel")
	xs.proxy.marshal(xs.proxy.request(xdgSurfaceRequestGetToplevel).PutNewID(p.id))
	top := &XdgToplevel{proxy: p}
	p.listen(top)
	return top
}

// Destroy destroys the xdg_surface. Its toplevel must be destroyed first.
func (xs *XdgSurface) Destroy() {
	xs.proxy.destroyWith(xdgSurfaceRequestDestroy)
}

func (xs *XdgSurface) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, xs.proxy)
	if opcode != xdgSurfaceEventConfigure {
		return nil
	}
	serial := args.ReadUint()
	if err := args.Err(); err != nil {
		return err
	}
	xs.configured = true
	if xs.OnConfigure != nil {
		xs.OnConfigure(serial)
	} else {
		xs.AckConfigure(serial)
	}
	return nil
}

// XdgToplevel is a desktop window. Configure events carry the size the
// compositor suggests; they take effect with the xdg_surface configure
// that follows.
type XdgToplevel struct {
	proxy *Proxy

	OnConfigure func(width, height int32, states []XdgToplevelState)
	OnClose     func()
}

func (top *XdgToplevel) Proxy() *Proxy { return top.proxy }

func (top *XdgToplevel) SetTitle(s string) {
	top.proxy.marshal(top.proxy.request(xdgToplevelRequestSetTitle).PutString(s))
}

// SetAppID sets the application id, which compositors match against
// desktop files.
func (top *XdgToplevel) SetAppID(id string) {
	top.proxy.marshal(top.proxy.request(xdgToplevelRequestSetAppID).PutString(id))
}

func (top *XdgToplevel) Destroy() {
	top.proxy.destroyWith(xdgToplevelRequestDestroy)
}

func (top *XdgToplevel) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, top.proxy)
	switch opcode {
	case xdgToplevelEventConfigure:
		width := args.ReadInt()
		height := args.ReadInt()
		raw := args.ReadArray()
		if err := args.Err(); err != nil {
			return err
		}
		states, err := decodeStates(raw)
		if err != nil {
			return err
		}
		if top.OnConfigure != nil {
			top.OnConfigure(width, height, states)
		}
	case xdgToplevelEventClose:
		if top.OnClose != nil {
			top.OnClose()
		}
	}
	return nil
}

// decodeStates decodes an array of uint32 states in host byte order.
func decodeStates(b []byte) ([]XdgToplevelState, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("toplevel state array of %d bytes", len(b))
	}
	states := make([]XdgToplevelState, 0, len(b)/4)
	for i := 0; i < len(b); i += 4 {
		states = append(states, XdgToplevelState(binary.NativeEndian.Uint32(b[i:])))
	}
	return states, nil
}
