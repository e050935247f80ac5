// Command plasmapanel puts a solid or image-filled surface on a Plasma
// desktop with a shell role such as panel or notification.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"

	wayland "honnef.co/go/kwayland"
)

var (
	display    = flag.String("display", "", "Wayland display to connect to (default $WAYLAND_DISPLAY)")
	roleName   = flag.String("role", "panel", "surface role (normal, desktop, panel, osd, notification, tooltip, critical)")
	behavior   = flag.String("behavior", "always-visible", "panel behavior (always-visible, auto-hide, windows-can-cover, windows-go-below)")
	width      = flag.Int("width", 1920, "surface width in pixels")
	height     = flag.Int("height", 44, "surface height in pixels")
	posX       = flag.Int("x", 0, "x position in global compositor space")
	posY       = flag.Int("y", 0, "y position in global compositor space")
	fill       = flag.String("color", "#31363bff", "fill color as #rrggbb or #rrggbbaa")
	imagePath  = flag.String("image", "", "image to scale into the surface instead of a solid fill")
	skipTasks  = flag.Bool("skip-taskbar", true, "hide the surface from task bars and switchers")
	takesFocus = flag.Bool("focus", false, "let the panel take keyboard focus")
	title      = flag.String("title", "plasmapanel", "window title")
	verbose    = flag.Bool("v", false, "log protocol diagnostics")
)

var roles = map[string]wayland.Role{
	"normal":       wayland.RoleNormal,
	"desktop":      wayland.RoleDesktop,
	"panel":        wayland.RolePanel,
	"osd":          wayland.RoleOnScreenDisplay,
	"notification": wayland.RoleNotification,
	"tooltip":      wayland.RoleToolTip,
	"critical":     wayland.RoleCriticalNotification,
}

var behaviors = map[string]wayland.PanelBehavior{
	"always-visible":    wayland.PanelAlwaysVisible,
	"auto-hide":         wayland.PanelAutoHide,
	"windows-can-cover": wayland.PanelWindowsCanCover,
	"windows-go-below":  wayland.PanelWindowsGoBelow,
}

func main() {
	flag.Parse()
	if *verbose {
		wayland.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := mainErr(); err != nil {
		fmt.Fprintf(os.Stderr, "plasmapanel: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	compositor *wayland.Compositor
	shm        *wayland.Shm
	shell      *wayland.PlasmaShell
	xdg        *wayland.XdgWmBase
}

func mainErr() error {
	role, ok := roles[*roleName]
	if !ok {
		return fmt.Errorf("invalid -role %s", *roleName)
	}
	pb, ok := behaviors[*behavior]
	if !ok {
		return fmt.Errorf("invalid -behavior %s", *behavior)
	}
	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("invalid size %dx%d", *width, *height)
	}
	src, err := loadSource()
	if err != nil {
		return err
	}

	dsp, err := wayland.Connect(wayland.WithDisplayName(*display))
	if err != nil {
		return err
	}
	defer dsp.Disconnect()

	var g globals
	reg := dsp.Registry()
	reg.OnGlobal = func(name uint32, iface string, version uint32) {
		switch iface {
		case wayland.CompositorInterface:
			g.compositor = reg.BindCompositor(name, version)
		case wayland.ShmInterface:
			g.shm = reg.BindShm(name, version)
		case wayland.PlasmaShellInterface:
			g.shell = reg.BindPlasmaShell(name, version)
		case wayland.XdgWmBaseInterface:
			g.xdg = reg.BindXdgWmBase(name, version)
		}
	}
	if err := dsp.Roundtrip(); err != nil {
		return err
	}
	switch {
	case g.compositor == nil:
		return errors.New("compositor doesn't offer " + wayland.CompositorInterface)
	case g.shm == nil:
		return errors.New("compositor doesn't offer " + wayland.ShmInterface)
	case g.shell == nil:
		return errors.New("compositor doesn't offer " + wayland.PlasmaShellInterface + "; is this a Plasma session?")
	case g.xdg == nil:
		return errors.New("compositor doesn't offer " + wayland.XdgWmBaseInterface)
	}

	surf := g.compositor.CreateSurface()
	xs := g.xdg.XdgSurface(surf)
	top := xs.Toplevel()
	top.SetTitle(*title)
	top.SetAppID("plasmapanel")
	closed := false
	top.OnClose = func() { closed = true }
	ps := g.shell.CreateSurface(surf)
	ps.SetRole(role)
	ps.SetSize(image.Pt(*width, *height))
	if role == wayland.RolePanel {
		ps.SetPanelBehavior(pb)
		ps.SetPanelTakesFocus(*takesFocus)
	}
	ps.SetPosition(int32(*posX), int32(*posY))
	ps.SetSkipTaskbar(*skipTasks)
	ps.SetSkipSwitcher(*skipTasks)
	ps.OnAutoHidePanelHidden(func() { wayland.Logger().Info("panel hidden") })
	ps.OnAutoHidePanelShown(func() { wayland.Logger().Info("panel shown") })

	stride := int32(*width) * int32(wayland.ShmFormatArgb8888.BytesPerPixel())
	pool, err := g.shm.CreatePool(int(stride) * *height)
	if err != nil {
		return err
	}
	defer pool.Release()
	buf, err := pool.GetBuffer(int32(*width), int32(*height), stride, wayland.ShmFormatArgb8888)
	if err != nil {
		return err
	}
	if err := buf.Draw(src); err != nil {
		return err
	}

	buf.OnRelease(func(b *wayland.Buffer) { b.SetUsed(false) })
	xs.OnConfigure = func(serial uint32) {
		xs.AckConfigure(serial)
		buf.SetUsed(true)
		surf.Attach(buf, 0, 0)
		surf.DamageBuffer(0, 0, int32(*width), int32(*height))
		surf.Commit()
	}
	// The role is only complete once committed without a buffer; the
	// compositor answers with the first configure.
	surf.Commit()

	for !closed {
		if err := dsp.Dispatch(); err != nil {
			return err
		}
	}
	top.Destroy()
	xs.Destroy()
	return nil
}

func loadSource() (image.Image, error) {
	if *imagePath == "" {
		c, err := parseColor(*fill)
		if err != nil {
			return nil, err
		}
		m := image.NewRGBA(image.Rect(0, 0, 1, 1))
		m.SetRGBA(0, 0, c)
		return m, nil
	}
	f, err := os.Open(*imagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", *imagePath, err)
	}
	return m, nil
}

// parseColor parses #rrggbb and #rrggbbaa and premultiplies the result.
func parseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	n := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(n).(color.RGBA), nil
}
