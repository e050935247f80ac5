package wayland

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// fakeConn records requests and hands out queued events. When it runs out
// of events it answers outstanding wl_display.sync requests the way a
// compositor would.
type fakeConn struct {
	sent     []*request
	events   []event
	synced   int
	serial   uint32
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(m *request) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeConn) ReadMessage() (event, error) {
	if len(c.events) == 0 {
		c.answerSyncs()
	}
	if len(c.events) == 0 {
		return nil, io.EOF
	}
	m := c.events[0]
	c.events = c.events[1:]
	return m, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) answerSyncs() {
	for ; c.synced < len(c.sent); c.synced++ {
		m := c.sent[c.synced]
		if m.sender.id != 1 || m.opcode != displayRequestSync {
			continue
		}
		id := readArgs(m).ReadUint()
		c.serial++
		c.push(newEvent(id, callbackEventDone, c.serial))
		c.push(newEvent(1, displayEventDeleteID, id))
	}
}

func (c *fakeConn) push(m event) { c.events = append(c.events, m) }

// to returns the requests sent by p.
func (c *fakeConn) to(p *Proxy) []*request {
	var out []*request
	for _, m := range c.sent {
		if m.sender == p {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.sent = nil
	c.synced = 0
}

// argReader reads arguments stored as Go values. It stands in for
// wire.MessageBuffer in events and reads back recorded requests.
type argReader struct {
	args []any
	err  error
}

func readArg[T any](r *argReader) T {
	var zero T
	if r.err != nil {
		return zero
	}
	if len(r.args) == 0 {
		r.err = io.ErrUnexpectedEOF
		return zero
	}
	v, ok := r.args[0].(T)
	if !ok {
		r.err = fmt.Errorf("argument is a %T, not a %T", r.args[0], zero)
		return zero
	}
	r.args = r.args[1:]
	return v
}

func (r *argReader) ReadUint() uint32   { return readArg[uint32](r) }
func (r *argReader) ReadInt() int32     { return readArg[int32](r) }
func (r *argReader) ReadString() string { return readArg[string](r) }
func (r *argReader) ReadArray() []byte  { return readArg[[]byte](r) }
func (r *argReader) ReadBool() bool     { return readArg[uint32](r) != 0 }
func (r *argReader) Err() error         { return r.err }

func readArgs(m *request) *argReader { return &argReader{args: m.args} }

type testEvent struct {
	argReader
	sender uint32
	op     uint16
}

func (ev *testEvent) Sender() uint32 { return ev.sender }
func (ev *testEvent) Op() uint16     { return ev.op }

// newEvent builds an event from sender with arguments of type uint32,
// int32, string or []byte.
func newEvent(sender uint32, op uint16, args ...any) *testEvent {
	return &testEvent{argReader: argReader{args: args}, sender: sender, op: op}
}

func newTestDisplay(t *testing.T) (*Display, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	return newDisplay(conn, slog.New(nopHandler{})), conn
}

// deliverEvent pushes m and dispatches it.
func deliverEvent(t *testing.T, dsp *Display, conn *fakeConn, m event) {
	t.Helper()
	conn.push(m)
	if err := dsp.Dispatch(); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s didn't panic", name)
		}
	}()
	fn()
}

func TestRoundtrip(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	var got uint32
	dsp.Sync(func(data uint32) { got = data })
	if err := dsp.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip() = %v", err)
	}
	if got != 1 {
		t.Errorf("first sync callback got serial %d, want 1", got)
	}
	if n := len(conn.to(dsp.self)); n != 2 {
		t.Errorf("sent %d display requests, want 2", n)
	}
}

func TestDeleteIDReusesID(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	cb := dsp.Sync(nil)
	id := cb.Proxy().ID()

	deliverEvent(t, dsp, conn, newEvent(id, callbackEventDone, uint32(0)))
	if _, ok := dsp.Proxy(id); ok {
		t.Errorf("callback %d still alive after done", id)
	}
	other := dsp.Sync(nil)
	if other.Proxy().ID() == id {
		t.Fatalf("id %d reused before delete_id", id)
	}

	deliverEvent(t, dsp, conn, newEvent(1, displayEventDeleteID, id))
	again := dsp.Sync(nil)
	if again.Proxy().ID() != id {
		t.Errorf("new object got id %d, want recycled id %d", again.Proxy().ID(), id)
	}
}

func TestProtocolError(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	conn.push(newEvent(1, displayEventError, uint32(3), uint32(2), "invalid role"))
	err := dsp.Dispatch()
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("Dispatch() = %v, want a *ProtocolError", err)
	}
	if perr.ObjectID != 3 || perr.Code != 2 || perr.Message != "invalid role" {
		t.Errorf("got %+v", perr)
	}

	// Requests after a fatal error are dropped.
	conn.reset()
	dsp.Sync(nil)
	if len(conn.sent) != 0 {
		t.Errorf("sent %d requests after a protocol error", len(conn.sent))
	}
	if dsp.Err() != err {
		t.Errorf("Err() = %v, want %v", dsp.Err(), err)
	}
}

func TestWriteErrorIsSticky(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	conn.writeErr = errors.New("broken pipe")
	dsp.Sync(nil)
	if dsp.Err() == nil {
		t.Fatal("Err() = nil after failed write")
	}
	if err := dsp.Dispatch(); err == nil {
		t.Error("Dispatch() succeeded after failed write")
	}
}

func TestDispatchUnknownObject(t *testing.T) {
	var buf bytes.Buffer
	conn := &fakeConn{}
	dsp := newDisplay(conn, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	deliverEvent(t, dsp, conn, newEvent(42, 0))
	if !strings.Contains(buf.String(), "unknown object") {
		t.Errorf("log = %q, want a message about the unknown object", buf.String())
	}
}

func TestDisconnect(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	dsp.Disconnect()
	if !conn.closed {
		t.Error("connection wasn't closed")
	}
	if !errors.Is(dsp.Err(), ErrDisconnected) {
		t.Errorf("Err() = %v, want ErrDisconnected", dsp.Err())
	}
	mustPanic(t, "second Disconnect", dsp.Disconnect)
	mustPanic(t, "Sync after Disconnect", func() { dsp.Sync(nil) })
}

func TestEventQueue(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	q := dsp.NewEventQueue()

	var queued, direct bool
	qcb := dsp.Sync(func(uint32) { queued = true })
	q.AddProxy(qcb.Proxy())
	dcb := dsp.Sync(func(uint32) { direct = true })

	deliverEvent(t, dsp, conn, newEvent(qcb.Proxy().ID(), callbackEventDone, uint32(0)))
	deliverEvent(t, dsp, conn, newEvent(dcb.Proxy().ID(), callbackEventDone, uint32(0)))
	if queued {
		t.Error("queued callback ran from Display.Dispatch")
	}
	if !direct {
		t.Error("default queue callback didn't run")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if err := q.Dispatch(); err != nil {
		t.Fatal(err)
	}
	if !queued {
		t.Error("queued callback didn't run from EventQueue.Dispatch")
	}
}

func TestEventQueueRoundtrip(t *testing.T) {
	dsp, _ := newTestDisplay(t)
	q := dsp.NewEventQueue()
	if err := q.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip() = %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after Roundtrip, want 0", q.Len())
	}
}

func TestEventQueueOtherDisplay(t *testing.T) {
	dsp1, _ := newTestDisplay(t)
	dsp2, _ := newTestDisplay(t)
	cb := dsp2.Sync(nil)
	mustPanic(t, "AddProxy", func() { dsp1.NewEventQueue().AddProxy(cb.Proxy()) })
}

func TestRegistryBind(t *testing.T) {
	dsp, conn := newTestDisplay(t)
	reg := dsp.Registry()

	var globals []string
	reg.OnGlobal = func(name uint32, iface string, version uint32) {
		globals = append(globals, iface)
	}
	deliverEvent(t, dsp, conn, newEvent(reg.Proxy().ID(), registryEventGlobal, uint32(7), PlasmaShellInterface, uint32(10)))
	if len(globals) != 1 || globals[0] != PlasmaShellInterface {
		t.Fatalf("OnGlobal saw %v", globals)
	}

	conn.reset()
	shell := reg.BindPlasmaShell(7, 10)
	if v := shell.Proxy().Version(); v != PlasmaShellVersion {
		t.Errorf("bound version %d, want clamped to %d", v, PlasmaShellVersion)
	}
	msgs := conn.to(reg.Proxy())
	if len(msgs) != 1 || msgs[0].opcode != registryRequestBind {
		t.Fatalf("sent %v, want one bind", msgs)
	}
	args := readArgs(msgs[0])
	name, iface, vers, id := args.ReadUint(), args.ReadString(), args.ReadUint(), args.ReadUint()
	if err := args.Err(); err != nil {
		t.Fatal(err)
	}
	if name != 7 || iface != PlasmaShellInterface || vers != PlasmaShellVersion || id != shell.Proxy().ID() {
		t.Errorf("bind(%d, %q, %d, %d)", name, iface, vers, id)
	}
}
