package wayland

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"strings"
	"testing"

	"deedles.dev/wl/wire"
	"golang.org/x/sys/unix"
)

func TestSocketPath(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		runtime string
		want    string
		wantErr bool
	}{
		{"", "", "/run/user/1000", "/run/user/1000/wayland-0", false},
		{"", "wayland-1", "/run/user/1000", "/run/user/1000/wayland-1", false},
		{"wayland-2", "wayland-1", "/run/user/1000", "/run/user/1000/wayland-2", false},
		{"/tmp/kwin.sock", "wayland-1", "", "/tmp/kwin.sock", false},
		{"", "/tmp/kwin.sock", "", "/tmp/kwin.sock", false},
		{"wayland-0", "", "", "", true},
	}
	for _, tt := range tests {
		t.Setenv("WAYLAND_DISPLAY", tt.env)
		t.Setenv("XDG_RUNTIME_DIR", tt.runtime)
		got, err := SocketPath(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SocketPath(%q) with WAYLAND_DISPLAY=%q: error = %v, wantErr %t", tt.name, tt.env, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SocketPath(%q) with WAYLAND_DISPLAY=%q = %q, want %q", tt.name, tt.env, got, tt.want)
		}
	}
}

func TestInheritedSocket(t *testing.T) {
	t.Setenv("WAYLAND_SOCKET", "7")
	fd, ok, err := inheritedSocket()
	if err != nil || !ok || fd != 7 {
		t.Fatalf("inheritedSocket() = (%d, %t, %v), want (7, true, nil)", fd, ok, err)
	}
	if _, ok, _ := inheritedSocket(); ok {
		t.Error("WAYLAND_SOCKET wasn't unset")
	}

	t.Setenv("WAYLAND_SOCKET", "nope")
	if _, _, err := inheritedSocket(); err == nil {
		t.Error("invalid WAYLAND_SOCKET accepted")
	}
}

func TestConnectNoCompositor(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	if _, err := Connect(WithDisplayName("wayland-test")); err == nil {
		t.Error("Connect succeeded without a compositor")
	}
}

// socketPair returns two connected unix sockets, standing in for a
// client and a compositor.
func socketPair(t *testing.T) (client, server *wire.Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Skipf("socketpair: %v", err)
	}
	conns := make([]*wire.Conn, 2)
	for i, fd := range fds {
		f := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		conns[i] = wire.NewConn(c.(*net.UnixConn))
	}
	return conns[0], conns[1]
}

func TestConnectOverSocketPair(t *testing.T) {
	client, server := socketPair(t)
	defer server.Close()
	dsp := newDisplay(&unixConn{client}, Logger())
	defer dsp.Disconnect()

	reg := dsp.Registry()
	m, err := wire.ReadMessage(server)
	if err != nil {
		t.Fatal(err)
	}
	if m.Sender() != 1 || m.Op() != displayRequestGetRegistry || m.ReadUint() != reg.Proxy().ID() {
		t.Fatalf("server got %d/%d, want wl_display.get_registry", m.Sender(), m.Op())
	}

	var iface string
	reg.OnGlobal = func(name uint32, i string, version uint32) { iface = i }
	ev := wire.NewMessage(reg.Proxy(), registryEventGlobal)
	ev.WriteUint(1)
	ev.WriteString(PlasmaShellInterface)
	ev.WriteUint(8)
	if err := ev.Build(server); err != nil {
		t.Fatal(err)
	}
	if err := dsp.Dispatch(); err != nil {
		t.Fatal(err)
	}
	if iface != PlasmaShellInterface {
		t.Errorf("OnGlobal got %q, want %q", iface, PlasmaShellInterface)
	}
}

func TestWriteFDOverSocketPair(t *testing.T) {
	client, server := socketPair(t)
	defer server.Close()
	dsp := newDisplay(&unixConn{client}, Logger())
	defer dsp.Disconnect()
	reg := dsp.Registry()
	shm := reg.BindShm(1, ShmVersion)
	if _, err := wire.ReadMessage(server); err != nil {
		t.Fatal(err)
	}
	if _, err := wire.ReadMessage(server); err != nil {
		t.Fatal(err)
	}

	pool, err := shm.CreatePool(4096)
	if err != nil {
		t.Skipf("can't create shm pool: %v", err)
	}
	defer pool.Destroy()
	m, err := wire.ReadMessage(server)
	if err != nil {
		t.Fatal(err)
	}
	id := m.ReadUint()
	f := m.ReadFile()
	size := m.ReadInt()
	if err := m.Err(); err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Fatal("create_pool arrived without a file descriptor")
	}
	defer f.Close()
	if m.Op() != shmRequestCreatePool || id != pool.Proxy().ID() || size != 4096 {
		t.Errorf("server got %d(%d, fd, %d), want create_pool(%d, fd, 4096)", m.Op(), id, size, pool.Proxy().ID())
	}
	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 4096 {
		t.Errorf("shared file is %d bytes, want 4096", fi.Size())
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(l)
	if Logger() != l {
		t.Error("Logger() didn't return the installed logger")
	}
	SetLogger(nil)
	if Logger() == nil || Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) didn't restore the silent logger")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var o connectOptions
	WithLogger(l)(&o)
	WithDisplayName("wayland-9")(&o)
	if o.logger != l || o.name != "wayland-9" {
		t.Fatalf("options = %+v", o)
	}

	conn := &fakeConn{}
	dsp := newDisplay(conn, o.logger)
	conn.push(newEvent(1, displayEventError, uint32(1), uint32(0), "bad"))
	dsp.Dispatch()
	if !strings.Contains(buf.String(), "protocol error") {
		t.Errorf("log = %q, want a protocol error warning", buf.String())
	}
}
