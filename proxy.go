package wayland

import (
	"fmt"
	"strconv"

	"deedles.dev/wl/wire"
)

// Proxy is the client side of one protocol object. It is what a Handle
// binds to. Proxy implements wire.Object, which is how requests name
// their sender.
type Proxy struct {
	dsp     *Display
	id      uint32
	iface   string
	vers    uint32
	queue   *EventQueue
	handler eventHandler
	zombie  bool
}

func (p *Proxy) ID() uint32         { return p.id }
func (p *Proxy) Interface() string  { return p.iface }
func (p *Proxy) Version() uint32    { return p.vers }
func (p *Proxy) Display() *Display  { return p.dsp }
func (p *Proxy) Queue() *EventQueue { return p.queue }

var _ wire.Object = (*Proxy)(nil)

func (p *Proxy) String() string {
	return fmt.Sprintf("%s@%d", p.iface, p.id)
}

// SetID gives p its protocol id and makes it the display's object for
// that id.
func (p *Proxy) SetID(id uint32) {
	p.id = id
	p.dsp.proxies[id] = p
}

// Delete is called once the compositor has confirmed the deletion of p
// with delete_id. The id becomes free for reuse.
func (p *Proxy) Delete() {
	if p.dsp.proxies[p.id] == p {
		delete(p.dsp.proxies, p.id)
		p.dsp.free = append(p.dsp.free, p.id)
	}
}

// Dispatch delivers msg to p's listener.
func (p *Proxy) Dispatch(msg *wire.MessageBuffer) error {
	return p.dispatch(msg.Op(), msg)
}

func (p *Proxy) dispatch(opcode uint16, args eventArgs) error {
	if p.handler == nil {
		return nil
	}
	return p.handler.handleEvent(p, opcode, args)
}

// MethodName names request op in logs and errors.
func (p *Proxy) MethodName(op uint16) string {
	return "request " + strconv.Itoa(int(op))
}

// listen routes p's events to h.
func (p *Proxy) listen(h eventHandler) {
	if p.handler != nil {
		panic(fmt.Sprintf("wayland: %s already has a listener", p))
	}
	p.handler = h
}

// detach stops delivering p's events without any protocol traffic.
func (p *Proxy) detach() {
	p.handler = nil
}

func (p *Proxy) request(opcode uint16) *request {
	if p.zombie {
		panic(fmt.Sprintf("wayland: request on destroyed object %s", p))
	}
	return &request{sender: p, opcode: opcode}
}

func (p *Proxy) marshal(m *request) {
	p.dsp.send(m)
}

// child allocates a proxy for an object created by a request on p. Like
// libwayland, it inherits p's version and queue.
func (p *Proxy) child(iface string) *Proxy {
	c := p.dsp.newProxy(iface, p.vers)
	c.queue = p.queue
	return c
}

// destroyWith sends the destructor request opcode and forgets p.
func (p *Proxy) destroyWith(opcode uint16) {
	p.marshal(p.request(opcode))
	p.dsp.forget(p)
}

// destroyLocal forgets p without telling the compositor, for interfaces
// that have no destructor request.
func (p *Proxy) destroyLocal() {
	p.dsp.forget(p)
}
