package wayland

const (
	registryRequestBind = 0

	registryEventGlobal       = 0
	registryEventGlobalRemove = 1
)

// Interface names of the globals this package can bind.
const (
	CompositorInterface  = "wl_compositor"
	ShmInterface         = "wl_shm"
	PlasmaShellInterface = "org_kde_plasma_shell"
)

// Highest versions of the globals this package implements. Bind clamps
// the requested version to these.
const (
	CompositorVersion  = 6
	ShmVersion         = 2
	PlasmaShellVersion = 8
)

type Registry struct {
	dsp   *Display
	proxy *Proxy

	OnGlobal       func(name uint32, iface string, version uint32)
	OnGlobalRemove func(name uint32)
}

func (reg *Registry) Proxy() *Proxy { return reg.proxy }

// Destroy forgets the registry. wl_registry has no destructor request, so
// the compositor keeps sending announcements, which are dropped.
func (reg *Registry) Destroy() {
	reg.proxy.destroyLocal()
}

func (reg *Registry) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, reg.proxy)
	switch opcode {
	case registryEventGlobal:
		name := args.ReadUint()
		iface := args.ReadString()
		vers := args.ReadUint()
		if err := args.Err(); err != nil {
			return err
		}
		if reg.OnGlobal != nil {
			reg.OnGlobal(name, iface, vers)
		}
	case registryEventGlobalRemove:
		name := args.ReadUint()
		if err := args.Err(); err != nil {
			return err
		}
		if reg.OnGlobalRemove != nil {
			reg.OnGlobalRemove(name)
		}
	}
	return nil
}

func (reg *Registry) bind(name uint32, iface string, vers, max uint32) *Proxy {
	vers = min(vers, max)
	p := reg.dsp.newProxy(iface, vers)
	p.queue = reg.proxy.queue
	reg.proxy.marshal(reg.proxy.request(registryRequestBind).
		PutUint(name).
		PutUntypedNewID(iface, vers, p.id))
	return p
}

func (reg *Registry) BindCompositor(name uint32, vers uint32) *Compositor {
	return &Compositor{proxy: reg.bind(name, CompositorInterface, vers, CompositorVersion)}
}

func (reg *Registry) BindShm(name uint32, vers uint32) *Shm {
	shm := &Shm{proxy: reg.bind(name, ShmInterface, vers, ShmVersion)}
	shm.proxy.listen(shm)
	return shm
}

// BindPlasmaShell binds the Plasma shell global and sets up a new
// PlasmaShell with it.
func (reg *Registry) BindPlasmaShell(name uint32, vers uint32) *PlasmaShell {
	shell := NewPlasmaShell()
	shell.Setup(reg.bind(name, PlasmaShellInterface, vers, PlasmaShellVersion))
	return shell
}
