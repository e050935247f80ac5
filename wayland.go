// Package wayland is a Wayland client binding focused on desktop-shell
// clients: it speaks the core protocol needed to put pixels on screen
// (compositor, surfaces, shared memory buffers) and KDE's Plasma shell
// extension, which gives surfaces roles such as panels and notifications.
//
// All objects belong to a Display and must only be used from the
// goroutine that dispatches its events. Events are delivered
// synchronously from Dispatch, in the order the compositor sent them.
package wayland

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrDisconnected is returned when using a display after Disconnect.
var ErrDisconnected = errors.New("wayland: display is disconnected")

// ProtocolError is a fatal error sent by the compositor.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wayland: protocol error %d on object %d: %s", e.Code, e.ObjectID, e.Message)
}

type transport interface {
	WriteMessage(*request) error
	ReadMessage() (event, error)
	Close() error
}

const (
	displayRequestSync        = 0
	displayRequestGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1

	callbackEventDone = 0
)

type Display struct {
	conn    transport
	log     *slog.Logger
	self    *Proxy
	proxies map[uint32]*Proxy
	free    []uint32
	nextID  uint32
	err     error
}

// Connect connects to the compositor. Without options it uses
// WAYLAND_SOCKET if set, and the socket named by WAYLAND_DISPLAY
// otherwise.
func Connect(opts ...ConnectOption) (*Display, error) {
	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	if o.name == "" {
		fd, ok, err := inheritedSocket()
		if err != nil {
			return nil, err
		}
		if ok {
			conn, err := fromFD(fd)
			if err != nil {
				return nil, fmt.Errorf("couldn't connect to Wayland server: %w", err)
			}
			return newDisplay(conn, o.logger), nil
		}
	}

	conn, path, err := dial(o.name)
	if err != nil {
		return nil, fmt.Errorf("couldn't connect to Wayland server: %w", err)
	}
	o.logger.Debug("connected", "socket", path)
	return newDisplay(conn, o.logger), nil
}

func newDisplay(conn transport, log *slog.Logger) *Display {
	dsp := &Display{
		conn:    conn,
		log:     log,
		proxies: make(map[uint32]*Proxy),
		nextID:  1,
	}
	dsp.self = dsp.newProxy("wl_display", 1)
	dsp.self.listen((*displayListener)(dsp))
	return dsp
}

// Disconnect closes the connection. Objects of the display must be
// torn down with Destroy, not Release, afterwards.
func (dsp *Display) Disconnect() {
	if dsp.conn == nil {
		panic("double close of wayland.Display")
	}
	dsp.conn.Close()
	dsp.conn = nil
	if dsp.err == nil {
		dsp.err = ErrDisconnected
	}
}

// Err returns the error that broke the connection, if any. Once set, no
// more requests are sent and dispatching fails.
func (dsp *Display) Err() error { return dsp.err }

func (dsp *Display) fail(err error) {
	if dsp.err == nil {
		dsp.err = err
	}
}

// Dispatch reads one event, blocking if necessary, and delivers it. Events
// for proxies assigned to an EventQueue are queued there instead.
func (dsp *Display) Dispatch() error {
	if dsp.err != nil {
		return dsp.err
	}
	m, err := dsp.conn.ReadMessage()
	if err != nil {
		dsp.fail(fmt.Errorf("wayland: reading event: %w", err))
		return dsp.err
	}
	dsp.route(m)
	return dsp.err
}

// Roundtrip blocks until the compositor has processed every request sent
// so far, dispatching events in the meantime.
func (dsp *Display) Roundtrip() error {
	done := false
	dsp.Sync(func(uint32) { done = true })
	for !done {
		if err := dsp.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func (dsp *Display) route(m event) {
	p, ok := dsp.proxies[m.Sender()]
	if !ok {
		dsp.log.Debug("dropping event for unknown object", "id", m.Sender(), "opcode", m.Op())
		return
	}
	if p.queue != nil {
		p.queue.pending = append(p.queue.pending, queuedEvent{p, m})
		return
	}
	dsp.deliver(p, m)
}

func (dsp *Display) deliver(p *Proxy, m event) {
	if p.zombie {
		dsp.log.Debug("dropping event for destroyed object", "object", p.String(), "opcode", m.Op())
		return
	}
	if err := p.dispatch(m.Op(), m); err != nil {
		dsp.fail(fmt.Errorf("wayland: decoding event %d of %s: %w", m.Op(), p, err))
	}
}

func (dsp *Display) send(m *request) {
	if dsp.conn == nil {
		panic("wayland: request on disconnected display")
	}
	if dsp.err != nil {
		return
	}
	if err := dsp.conn.WriteMessage(m); err != nil {
		dsp.fail(fmt.Errorf("wayland: sending %s.%s: %w", m.sender, m.sender.MethodName(m.opcode), err))
	}
}

func (dsp *Display) newProxy(iface string, vers uint32) *Proxy {
	var id uint32
	if n := len(dsp.free); n > 0 {
		id = dsp.free[n-1]
		dsp.free = dsp.free[:n-1]
	} else {
		id = dsp.nextID
		dsp.nextID++
	}
	p := &Proxy{dsp: dsp, iface: iface, vers: vers}
	p.SetID(id)
	return p
}

// forget turns p into a zombie. Its id stays reserved until the
// compositor confirms the deletion with delete_id, and events that were
// already in flight are dropped.
func (dsp *Display) forget(p *Proxy) {
	p.zombie = true
	p.handler = nil
}

// Proxy looks up the object with the given id.
func (dsp *Display) Proxy(id uint32) (*Proxy, bool) {
	p, ok := dsp.proxies[id]
	if !ok || p.zombie {
		return nil, false
	}
	return p, true
}

type displayListener Display

func (l *displayListener) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	dsp := (*Display)(l)
	checkTarget(p, dsp.self)
	switch opcode {
	case displayEventError:
		err := &ProtocolError{
			ObjectID: args.ReadUint(),
			Code:     args.ReadUint(),
			Message:  args.ReadString(),
		}
		if args.Err() != nil {
			return args.Err()
		}
		dsp.log.Warn("protocol error", "object", err.ObjectID, "code", err.Code, "message", err.Message)
		dsp.fail(err)
	case displayEventDeleteID:
		id := args.ReadUint()
		if args.Err() != nil {
			return args.Err()
		}
		if p, ok := dsp.proxies[id]; ok {
			p.Delete()
		}
	}
	return nil
}

// Callback is a one-shot notification, used by Sync and Surface.Frame.
type Callback struct {
	proxy  *Proxy
	OnDone func(data uint32)
}

func (cb *Callback) Proxy() *Proxy { return cb.proxy }

func (cb *Callback) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, cb.proxy)
	if opcode != callbackEventDone {
		return nil
	}
	data := args.ReadUint()
	if args.Err() != nil {
		return args.Err()
	}
	// The compositor destroys the callback after done.
	p.dsp.forget(p)
	if cb.OnDone != nil {
		cb.OnDone(data)
	}
	return nil
}

func newCallback(p *Proxy, fn func(uint32)) *Callback {
	cb := &Callback{proxy: p, OnDone: fn}
	p.listen(cb)
	return cb
}

// Sync asks the compositor to call fn once it has processed all requests
// sent before.
func (dsp *Display) Sync(fn func(data uint32)) *Callback {
	p := dsp.newProxy("wl_callback", 1)
	cb := newCallback(p, fn)
	dsp.send(dsp.self.request(displayRequestSync).PutNewID(p.id))
	return cb
}

// Registry returns a new registry object. Globals are announced through
// its OnGlobal field during the next dispatches.
func (dsp *Display) Registry() *Registry {
	reg := &Registry{
		dsp:   dsp,
		proxy: dsp.newProxy("wl_registry", 1),
	}
	reg.proxy.listen(reg)
	dsp.send(dsp.self.request(displayRequestGetRegistry).PutNewID(reg.proxy.id))
	return reg
}
