package wayland

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultDisplayName is used when neither WithDisplayName nor
// WAYLAND_DISPLAY name a compositor.
const DefaultDisplayName = "wayland-0"

// ConnectOption configures Connect.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	name   string
	logger *slog.Logger
}

// WithDisplayName connects to the named socket instead of the one in
// WAYLAND_DISPLAY. Absolute paths are used as is, other names are looked
// up in XDG_RUNTIME_DIR. It also disables WAYLAND_SOCKET.
func WithDisplayName(name string) ConnectOption {
	return func(o *connectOptions) {
		o.name = name
	}
}

// WithLogger sets the logger of the display. It defaults to Logger().
func WithLogger(l *slog.Logger) ConnectOption {
	return func(o *connectOptions) {
		o.logger = l
	}
}

// SocketPath resolves a display name to a socket path the way libwayland
// does.
func SocketPath(name string) (string, error) {
	if name == "" {
		name = os.Getenv("WAYLAND_DISPLAY")
	}
	if name == "" {
		name = DefaultDisplayName
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", errors.New("wayland: XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, name), nil
}

// inheritedSocket returns the fd in WAYLAND_SOCKET and unsets the
// variable so children don't reuse it.
func inheritedSocket() (fd int, ok bool, err error) {
	s, ok := os.LookupEnv("WAYLAND_SOCKET")
	if !ok {
		return -1, false, nil
	}
	os.Unsetenv("WAYLAND_SOCKET")
	fd, err = strconv.Atoi(s)
	if err != nil || fd < 0 {
		return -1, false, fmt.Errorf("wayland: invalid WAYLAND_SOCKET %q", s)
	}
	return fd, true, nil
}
