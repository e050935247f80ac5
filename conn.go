package wayland

import (
	"fmt"
	"net"
	"os"

	"deedles.dev/wl/wire"
	"golang.org/x/sys/unix"
)

// event is one message from the compositor. *wire.MessageBuffer
// implements it.
type event interface {
	eventArgs
	Sender() uint32
	Op() uint16
}

// fdArg is a file descriptor argument. It is duplicated when the request
// is written, so the caller keeps ownership of the original.
type fdArg int

// request is a request that hasn't been written yet. Arguments are kept
// as uint32, int32, string or fdArg, in wire order.
type request struct {
	sender *Proxy
	opcode uint16
	args   []any
}

func (r *request) PutUint(v uint32) *request    { r.args = append(r.args, v); return r }
func (r *request) PutInt(v int32) *request      { r.args = append(r.args, v); return r }
func (r *request) PutObject(id uint32) *request { r.args = append(r.args, id); return r }
func (r *request) PutNewID(id uint32) *request  { r.args = append(r.args, id); return r }
func (r *request) PutString(s string) *request  { r.args = append(r.args, s); return r }
func (r *request) PutFD(fd int) *request        { r.args = append(r.args, fdArg(fd)); return r }

func (r *request) PutBool(b bool) *request {
	if b {
		return r.PutUint(1)
	}
	return r.PutUint(0)
}

// PutUntypedNewID writes a new_id whose interface isn't fixed by the
// protocol, as used by wl_registry.bind.
func (r *request) PutUntypedNewID(iface string, version, id uint32) *request {
	return r.PutString(iface).PutUint(version).PutNewID(id)
}

// fds returns the number of file descriptors r carries.
func (r *request) fds() int {
	n := 0
	for _, arg := range r.args {
		if _, ok := arg.(fdArg); ok {
			n++
		}
	}
	return n
}

// unixConn is the transport over a real Wayland socket. Messages are
// encoded and decoded by the wire package.
type unixConn struct {
	c *wire.Conn
}

func (c *unixConn) WriteMessage(r *request) error {
	b := wire.NewMessage(r.sender, r.opcode)
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, arg := range r.args {
		switch arg := arg.(type) {
		case uint32:
			b.WriteUint(arg)
		case int32:
			b.WriteInt(arg)
		case string:
			b.WriteString(arg)
		case fdArg:
			fd, err := unix.Dup(int(arg))
			if err != nil {
				return fmt.Errorf("duplicating fd %d: %w", int(arg), err)
			}
			f := os.NewFile(uintptr(fd), "wayland-fd")
			files = append(files, f)
			b.WriteFile(f)
		default:
			panic(fmt.Sprintf("wayland: unsupported argument type %T", arg))
		}
	}
	b.Method = r.sender.MethodName(r.opcode)
	b.Args = r.args
	return b.Build(c.c)
}

func (c *unixConn) ReadMessage() (event, error) {
	msg, err := wire.ReadMessage(c.c)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *unixConn) Close() error { return c.c.Close() }

// dial connects to the compositor. An empty name lets the wire package
// resolve the socket from the environment.
func dial(name string) (*unixConn, string, error) {
	if name == "" {
		c, err := wire.Dial()
		if err != nil {
			return nil, "", err
		}
		return &unixConn{c}, c.RemoteAddr().String(), nil
	}
	path, err := SocketPath(name)
	if err != nil {
		return nil, "", err
	}
	c, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, "", err
	}
	return &unixConn{wire.NewConn(c)}, path, nil
}

// fromFD wraps an already connected socket, as passed in WAYLAND_SOCKET.
func fromFD(fd int) (*unixConn, error) {
	f := os.NewFile(uintptr(fd), "wayland-socket")
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		return nil, err
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("fd %d is not a unix socket", fd)
	}
	return &unixConn{wire.NewConn(uc)}, nil
}
