package wayland

import (
	"fmt"
	"image"

	"golang.org/x/exp/constraints"
)

const (
	plasmaSurfaceRequestDestroy             = 0
	plasmaSurfaceRequestSetOutput           = 1
	plasmaSurfaceRequestSetPosition         = 2
	plasmaSurfaceRequestSetRole             = 3
	plasmaSurfaceRequestSetPanelBehavior    = 4
	plasmaSurfaceRequestSetSkipTaskbar      = 5
	plasmaSurfaceRequestPanelAutoHideHide   = 6
	plasmaSurfaceRequestPanelAutoHideShow   = 7
	plasmaSurfaceRequestSetPanelTakesFocus  = 8
	plasmaSurfaceRequestSetSkipSwitcher     = 9
	plasmaSurfaceRequestSetVisible          = 10
	plasmaSurfaceRequestSetWindowType       = 11
	plasmaSurfaceEventAutoHiddenPanelHidden = 0
	plasmaSurfaceEventAutoHiddenPanelShown  = 1
)

// RoleCriticalNotificationSince is the first org_kde_plasma_surface
// version that knows the critical notification role.
const RoleCriticalNotificationSince = 5

// Role describes what a surface is used for. The compositor uses it for
// stacking and placement.
type Role int

const (
	RoleNormal Role = iota
	RoleDesktop
	RolePanel
	RoleOnScreenDisplay
	RoleNotification
	RoleToolTip
	// RoleCriticalNotification is sent as RoleNotification to compositors
	// older than RoleCriticalNotificationSince.
	RoleCriticalNotification
	roleCount
)

const (
	roleCodeNormal               = 0
	roleCodeDesktop              = 1
	roleCodePanel                = 2
	roleCodeOnScreenDisplay      = 3
	roleCodeNotification         = 4
	roleCodeToolTip              = 5
	roleCodeCriticalNotification = 6
)

var roleCodes = [...]uint32{
	RoleNormal:               roleCodeNormal,
	RoleDesktop:              roleCodeDesktop,
	RolePanel:                roleCodePanel,
	RoleOnScreenDisplay:      roleCodeOnScreenDisplay,
	RoleNotification:         roleCodeNotification,
	RoleToolTip:              roleCodeToolTip,
	RoleCriticalNotification: roleCodeCriticalNotification,
}

var roleNames = [...]string{
	RoleNormal:               "Normal",
	RoleDesktop:              "Desktop",
	RolePanel:                "Panel",
	RoleOnScreenDisplay:      "OnScreenDisplay",
	RoleNotification:         "Notification",
	RoleToolTip:              "ToolTip",
	RoleCriticalNotification: "CriticalNotification",
}

func (r Role) String() string { return enumName(roleNames[:], r, "Role") }

// PanelBehavior controls how a panel interacts with windows. Only
// meaningful for surfaces with RolePanel.
type PanelBehavior int

const (
	PanelAlwaysVisible PanelBehavior = iota
	PanelAutoHide
	PanelWindowsCanCover
	PanelWindowsGoBelow
	panelBehaviorCount
)

var panelBehaviorCodes = [...]uint32{
	PanelAlwaysVisible:   1,
	PanelAutoHide:        2,
	PanelWindowsCanCover: 3,
	PanelWindowsGoBelow:  4,
}

var panelBehaviorNames = [...]string{
	PanelAlwaysVisible:   "AlwaysVisible",
	PanelAutoHide:        "AutoHide",
	PanelWindowsCanCover: "WindowsCanCover",
	PanelWindowsGoBelow:  "WindowsGoBelow",
}

func (b PanelBehavior) String() string { return enumName(panelBehaviorNames[:], b, "PanelBehavior") }

// WindowType is a finer grained classification than Role, used by
// compositors that layer system windows by type.
type WindowType int

const (
	WindowTypeWallpaper WindowType = iota
	WindowTypeDesktop
	WindowTypeDialog
	WindowTypeSysSplash
	WindowTypeSearchBar
	WindowTypeNotification
	WindowTypeCriticalNotification
	WindowTypeInputMethod
	WindowTypeInputMethodDialog
	WindowTypeDnd
	WindowTypeDock
	WindowTypeApplicationOverlay
	WindowTypeStatusBar
	WindowTypeStatusBarPanel
	WindowTypeToast
	WindowTypeKeyguard
	WindowTypePhone
	WindowTypeSystemDialog
	WindowTypeSystemError
	WindowTypeVoiceInteraction
	WindowTypeScreenshot
	WindowTypeBootProgress
	WindowTypePointer
	WindowTypeLastSysLayer
	WindowTypeBaseApplication
	WindowTypeApplication
	WindowTypeApplicationStarting
	WindowTypeLastApplicationWindow
	windowTypeCount
)

var windowTypeCodes = [...]uint32{
	WindowTypeWallpaper:             0,
	WindowTypeDesktop:               1,
	WindowTypeDialog:                2,
	WindowTypeSysSplash:             3,
	WindowTypeSearchBar:             4,
	WindowTypeNotification:          5,
	WindowTypeCriticalNotification:  6,
	WindowTypeInputMethod:           7,
	WindowTypeInputMethodDialog:     8,
	WindowTypeDnd:                   9,
	WindowTypeDock:                  10,
	WindowTypeApplicationOverlay:    11,
	WindowTypeStatusBar:             12,
	WindowTypeStatusBarPanel:        13,
	WindowTypeToast:                 14,
	WindowTypeKeyguard:              15,
	WindowTypePhone:                 16,
	WindowTypeSystemDialog:          17,
	WindowTypeSystemError:           18,
	WindowTypeVoiceInteraction:      19,
	WindowTypeScreenshot:            20,
	WindowTypeBootProgress:          21,
	WindowTypePointer:               22,
	WindowTypeLastSysLayer:          23,
	WindowTypeBaseApplication:       24,
	WindowTypeApplication:           25,
	WindowTypeApplicationStarting:   26,
	WindowTypeLastApplicationWindow: 27,
}

var windowTypeNames = [...]string{
	WindowTypeWallpaper:             "Wallpaper",
	WindowTypeDesktop:               "Desktop",
	WindowTypeDialog:                "Dialog",
	WindowTypeSysSplash:             "SysSplash",
	WindowTypeSearchBar:             "SearchBar",
	WindowTypeNotification:          "Notification",
	WindowTypeCriticalNotification:  "CriticalNotification",
	WindowTypeInputMethod:           "InputMethod",
	WindowTypeInputMethodDialog:     "InputMethodDialog",
	WindowTypeDnd:                   "Dnd",
	WindowTypeDock:                  "Dock",
	WindowTypeApplicationOverlay:    "ApplicationOverlay",
	WindowTypeStatusBar:             "StatusBar",
	WindowTypeStatusBarPanel:        "StatusBarPanel",
	WindowTypeToast:                 "Toast",
	WindowTypeKeyguard:              "Keyguard",
	WindowTypePhone:                 "Phone",
	WindowTypeSystemDialog:          "SystemDialog",
	WindowTypeSystemError:           "SystemError",
	WindowTypeVoiceInteraction:      "VoiceInteraction",
	WindowTypeScreenshot:            "Screenshot",
	WindowTypeBootProgress:          "BootProgress",
	WindowTypePointer:               "Pointer",
	WindowTypeLastSysLayer:          "LastSysLayer",
	WindowTypeBaseApplication:       "BaseApplication",
	WindowTypeApplication:           "Application",
	WindowTypeApplicationStarting:   "ApplicationStarting",
	WindowTypeLastApplicationWindow: "LastApplicationWindow",
}

func (t WindowType) String() string { return enumName(windowTypeNames[:], t, "WindowType") }

// Every enum value must have a code. These fail to compile otherwise.
var (
	_ = [1]struct{}{}[len(roleCodes)-int(roleCount)]
	_ = [1]struct{}{}[len(roleNames)-int(roleCount)]
	_ = [1]struct{}{}[len(panelBehaviorCodes)-int(panelBehaviorCount)]
	_ = [1]struct{}{}[len(panelBehaviorNames)-int(panelBehaviorCount)]
	_ = [1]struct{}{}[len(windowTypeCodes)-int(windowTypeCount)]
	_ = [1]struct{}{}[len(windowTypeNames)-int(windowTypeCount)]
)

func protocolCode[E constraints.Integer](codes []uint32, v E, kind string) uint32 {
	if v < 0 || uint64(v) >= uint64(len(codes)) {
		panic(fmt.Sprintf("wayland: unmapped %s %d", kind, v))
	}
	return codes[int(v)]
}

func enumName[E constraints.Integer](names []string, v E, kind string) string {
	if v < 0 || uint64(v) >= uint64(len(names)) {
		return fmt.Sprintf("%s(%d)", kind, v)
	}
	return names[int(v)]
}

// PlasmaShellSurface adds Plasma specific state to a Surface: its role,
// panel behavior and window type. Get one from PlasmaShell.CreateSurface.
//
// All requests are one-way and panic if the PlasmaShellSurface is no
// longer valid.
type PlasmaShellSurface struct {
	handle Handle[*Proxy]

	shell         *PlasmaShell
	registry      *SurfaceRegistry
	parent        *Surface
	unwatchParent func()

	role       Role
	windowType WindowType
	size       image.Point

	onHidden Listeners[struct{}]
	onShown  Listeners[struct{}]
}

func newPlasmaShellSurface() *PlasmaShellSurface {
	return &PlasmaShellSurface{
		handle:     NewHandle(func(p *Proxy) { p.destroyWith(plasmaSurfaceRequestDestroy) }),
		role:       RoleNormal,
		windowType: WindowTypeApplication,
	}
}

func (ps *PlasmaShellSurface) setup(p *Proxy) {
	ps.handle.Setup(p)
	p.listen(ps)
}

func (ps *PlasmaShellSurface) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, ps.handle.Must())
	switch opcode {
	case plasmaSurfaceEventAutoHiddenPanelHidden:
		ps.onHidden.emit(struct{}{})
	case plasmaSurfaceEventAutoHiddenPanelShown:
		ps.onShown.emit(struct{}{})
	}
	return nil
}

// OnAutoHidePanelHidden registers fn to be called when the compositor has
// hidden this auto-hiding panel.
func (ps *PlasmaShellSurface) OnAutoHidePanelHidden(fn func()) (remove func()) {
	return ps.onHidden.Add(func(struct{}) { fn() })
}

// OnAutoHidePanelShown registers fn to be called when the compositor has
// shown this auto-hiding panel again.
func (ps *PlasmaShellSurface) OnAutoHidePanelShown(fn func()) (remove func()) {
	return ps.onShown.Add(func(struct{}) { fn() })
}

func (ps *PlasmaShellSurface) Valid() bool { return ps.handle.Valid() }

// Proxy returns the org_kde_plasma_surface, or nil once it is gone.
func (ps *PlasmaShellSurface) Proxy() *Proxy {
	p, _ := ps.handle.Get()
	return p
}

// Parent returns the surface this decorates, or nil if it has been
// destroyed.
func (ps *PlasmaShellSurface) Parent() *Surface { return ps.parent }

func (ps *PlasmaShellSurface) Role() Role             { return ps.role }
func (ps *PlasmaShellSurface) WindowType() WindowType { return ps.windowType }

// Size returns the size last recorded with SetSize. The protocol has no
// size request; this is bookkeeping for the client, typically the size of
// the buffers it attaches to the parent surface.
func (ps *PlasmaShellSurface) Size() image.Point      { return ps.size }
func (ps *PlasmaShellSurface) SetSize(sz image.Point) { ps.size = sz }

func (ps *PlasmaShellSurface) SetPosition(x, y int32) {
	p := ps.handle.Must()
	p.marshal(p.request(plasmaSurfaceRequestSetPosition).PutInt(x).PutInt(y))
}

func (ps *PlasmaShellSurface) SetRole(role Role) {
	p := ps.handle.Must()
	code := protocolCode(roleCodes[:], role, "role")
	if role == RoleCriticalNotification && p.vers < RoleCriticalNotificationSince {
		code = roleCodeNotification
	}
	p.marshal(p.request(plasmaSurfaceRequestSetRole).PutUint(code))
	ps.role = role
}

func (ps *PlasmaShellSurface) SetPanelBehavior(behavior PanelBehavior) {
	p := ps.handle.Must()
	code := protocolCode(panelBehaviorCodes[:], behavior, "panel behavior")
	p.marshal(p.request(plasmaSurfaceRequestSetPanelBehavior).PutUint(code))
}

// SetSkipTaskbar hides the surface from task bars.
func (ps *PlasmaShellSurface) SetSkipTaskbar(skip bool) {
	ps.sendBool(plasmaSurfaceRequestSetSkipTaskbar, skip)
}

// SetSkipSwitcher hides the surface from window switchers.
func (ps *PlasmaShellSurface) SetSkipSwitcher(skip bool) {
	ps.sendBool(plasmaSurfaceRequestSetSkipSwitcher, skip)
}

// RequestHideAutoHidingPanel asks the compositor to hide this panel. It
// only has an effect for panels with PanelAutoHide; the compositor
// answers with an auto-hide-panel-hidden event.
func (ps *PlasmaShellSurface) RequestHideAutoHidingPanel() {
	p := ps.handle.Must()
	p.marshal(p.request(plasmaSurfaceRequestPanelAutoHideHide))
}

// RequestShowAutoHidingPanel asks the compositor to show this auto-hiding
// panel again.
func (ps *PlasmaShellSurface) RequestShowAutoHidingPanel() {
	p := ps.handle.Must()
	p.marshal(p.request(plasmaSurfaceRequestPanelAutoHideShow))
}

// SetPanelTakesFocus sets whether the panel accepts keyboard focus.
func (ps *PlasmaShellSurface) SetPanelTakesFocus(takesFocus bool) {
	ps.sendBool(plasmaSurfaceRequestSetPanelTakesFocus, takesFocus)
}

func (ps *PlasmaShellSurface) SetVisible(visible bool) {
	ps.sendBool(plasmaSurfaceRequestSetVisible, visible)
}

func (ps *PlasmaShellSurface) SetWindowType(t WindowType) {
	p := ps.handle.Must()
	code := protocolCode(windowTypeCodes[:], t, "window type")
	p.marshal(p.request(plasmaSurfaceRequestSetWindowType).PutUint(code))
	ps.windowType = t
}

func (ps *PlasmaShellSurface) sendBool(opcode uint16, v bool) {
	p := ps.handle.Must()
	p.marshal(p.request(opcode).PutBool(v))
}

// Release sends the destructor request and removes the surface from its
// registry.
func (ps *PlasmaShellSurface) Release() {
	if !ps.handle.Valid() {
		return
	}
	ps.handle.Release()
	ps.teardown()
}

// Destroy forgets the surface without sending anything, for use after the
// connection is gone.
func (ps *PlasmaShellSurface) Destroy() {
	p, ok := ps.handle.Get()
	if !ok {
		return
	}
	ps.handle.Destroy()
	p.detach()
	ps.teardown()
}

func (ps *PlasmaShellSurface) teardown() {
	if ps.registry != nil && ps.parent != nil {
		ps.registry.remove(ps.parent, ps)
	}
	if ps.unwatchParent != nil {
		ps.unwatchParent()
		ps.unwatchParent = nil
	}
	if ps.shell != nil {
		ps.shell.forgetChild(ps)
	}
	ps.onHidden.clear()
	ps.onShown.clear()
}
