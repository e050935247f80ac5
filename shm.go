package wayland

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

const (
	shmRequestCreatePool = 0
	shmRequestRelease    = 1
	shmReleaseSince      = 2

	shmEventFormat = 0

	shmPoolRequestCreateBuffer = 0
	shmPoolRequestDestroy      = 1
	shmPoolRequestResize       = 2
)

type ShmFormat uint32

const (
	ShmFormatArgb8888 ShmFormat = 0          // 32-bit ARGB format, [31:0] A:R:G:B 8:8:8:8 little endian
	ShmFormatXrgb8888 ShmFormat = 1          // 32-bit RGB format, [31:0] x:R:G:B 8:8:8:8 little endian
	ShmFormatRgb565   ShmFormat = 0x36314752 // 16-bit RGB 565 format, [15:0] R:G:B 5:6:5 little endian
	ShmFormatXbgr8888 ShmFormat = 0x34324258 // 32-bit xBGR format, [31:0] x:B:G:R 8:8:8:8 little endian
	ShmFormatAbgr8888 ShmFormat = 0x34324241 // 32-bit ABGR format, [31:0] A:B:G:R 8:8:8:8 little endian
)

// BytesPerPixel returns the pixel size of the packed formats above, or 0.
func (f ShmFormat) BytesPerPixel() int {
	switch f {
	case ShmFormatArgb8888, ShmFormatXrgb8888, ShmFormatXbgr8888, ShmFormatAbgr8888:
		return 4
	case ShmFormatRgb565:
		return 2
	default:
		return 0
	}
}

// Shm is the wl_shm global, the factory for shared memory pools.
type Shm struct {
	proxy   *Proxy
	formats []ShmFormat

	OnFormat func(format ShmFormat)
}

func (shm *Shm) Proxy() *Proxy   { return shm.proxy }
func (shm *Shm) Version() uint32 { return shm.proxy.vers }

// Formats returns the formats announced so far. ARGB8888 and XRGB8888 are
// always supported, even if not announced yet.
func (shm *Shm) Formats() []ShmFormat { return slices.Clone(shm.formats) }

func (shm *Shm) HasFormat(f ShmFormat) bool {
	return f == ShmFormatArgb8888 || f == ShmFormatXrgb8888 || slices.Contains(shm.formats, f)
}

func (shm *Shm) Release() {
	if shm.proxy.vers >= shmReleaseSince {
		shm.proxy.destroyWith(shmRequestRelease)
	} else {
		shm.proxy.destroyLocal()
	}
}

func (shm *Shm) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, shm.proxy)
	if opcode != shmEventFormat {
		return nil
	}
	f := ShmFormat(args.ReadUint())
	if err := args.Err(); err != nil {
		return err
	}
	if !slices.Contains(shm.formats, f) {
		shm.formats = append(shm.formats, f)
	}
	if shm.OnFormat != nil {
		shm.OnFormat(f)
	}
	return nil
}

// CreatePool allocates size bytes of anonymous shared memory and shares
// them with the compositor.
func (shm *Shm) CreatePool(size int) (*ShmPool, error) {
	if size <= 0 || size > math.MaxInt32 {
		return nil, fmt.Errorf("wayland: invalid pool size %d", size)
	}
	fd, err := unix.MemfdCreate("kwayland-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("wayland: creating shm file: %w", err)
	}
	shm.sealShrink(fd)
	mem, err := mapPool(fd, size)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	pool := &ShmPool{
		shm:    shm,
		handle: NewHandle(func(p *Proxy) { p.destroyWith(shmPoolRequestDestroy) }),
		fd:     fd,
		mem:    mem,
	}
	p := shm.proxy.child("wl_shm_pool")
	shm.proxy.marshal(shm.proxy.request(shmRequestCreatePool).PutNewID(p.id).PutFD(fd).PutInt(int32(size)))
	pool.handle.Setup(p)
	return pool, nil
}

// sealShrink keeps the compositor from ever seeing the file shrink under
// it. Sealing is best effort.
func (shm *Shm) sealShrink(fd int) {
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK); err != nil {
		shm.proxy.dsp.log.Debug("couldn't seal shm file", "fd", fd, "error", err)
	}
}

func mapPool(fd int, size int) ([]byte, error) {
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, fmt.Errorf("wayland: sizing shm file: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("wayland: mapping shm file: %w", err)
	}
	return mem, nil
}

// ShmPool is a shared memory region buffers are carved from. The pool owns
// the memory; buffers only own their protocol objects.
type ShmPool struct {
	shm     *Shm
	handle  Handle[*Proxy]
	fd      int
	mem     []byte
	offset  int
	buffers []*Buffer
}

func (pool *ShmPool) Valid() bool { return pool.handle.Valid() }
func (pool *ShmPool) Size() int   { return len(pool.mem) }

// Proxy returns the wl_shm_pool, or nil once the pool is gone.
func (pool *ShmPool) Proxy() *Proxy {
	p, _ := pool.handle.Get()
	return p
}

// Buffers returns the buffers created from the pool that are still alive.
func (pool *ShmPool) Buffers() []*Buffer { return slices.Clone(pool.buffers) }

// CreateBuffer creates a buffer at offset with the given layout.
func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format ShmFormat) *Buffer {
	p := pool.handle.Must()
	if offset < 0 || width <= 0 || height <= 0 || stride < width ||
		int(offset)+int(stride)*int(height) > len(pool.mem) {
		panic(fmt.Sprintf("wayland: buffer %dx%d stride %d at %d doesn't fit pool of %d bytes",
			width, height, stride, offset, len(pool.mem)))
	}
	bp := p.child("wl_buffer")
	p.marshal(p.request(shmPoolRequestCreateBuffer).
		PutNewID(bp.id).
		PutInt(offset).
		PutInt(width).
		PutInt(height).
		PutInt(stride).
		PutUint(uint32(format)))
	buf := newBuffer(pool, bp, width, height, stride, int(offset), format)
	pool.buffers = append(pool.buffers, buf)
	return buf
}

// GetBuffer returns a buffer of the given layout that the compositor has
// released and the client isn't using, creating one at the end of the
// pool if there is none. The pool grows as needed.
func (pool *ShmPool) GetBuffer(width, height, stride int32, format ShmFormat) (*Buffer, error) {
	for _, buf := range pool.buffers {
		if !buf.IsReleased() || buf.IsUsed() {
			continue
		}
		if buf.width != width || buf.height != height || buf.stride != stride || buf.format != format {
			continue
		}
		buf.SetReleased(false)
		return buf, nil
	}

	need := pool.offset + int(stride)*int(height)
	if need > len(pool.mem) {
		if err := pool.Resize(max(need, 2*len(pool.mem))); err != nil {
			return nil, err
		}
	}
	buf := pool.CreateBuffer(int32(pool.offset), width, height, stride, format)
	pool.offset = need
	return buf, nil
}

// Resize grows the pool to size bytes. Pools can't shrink. If the new
// memory can't be mapped, the pool and its buffers are left as they were.
func (pool *ShmPool) Resize(size int) error {
	p := pool.handle.Must()
	if size < len(pool.mem) {
		return fmt.Errorf("wayland: can't shrink shm pool from %d to %d bytes", len(pool.mem), size)
	}
	if size > math.MaxInt32 {
		return fmt.Errorf("wayland: shm pool of %d bytes is too large", size)
	}
	if size == len(pool.mem) {
		return nil
	}
	mem, err := mapPool(pool.fd, size)
	if err != nil {
		return err
	}
	if err := unix.Munmap(pool.mem); err != nil {
		p.dsp.log.Warn("unmapping old shm pool memory", "pool", p.String(), "error", err)
	}
	p.dsp.log.Debug("resized shm pool", "pool", p.String(), "size", size)
	pool.mem = mem
	p.marshal(p.request(shmPoolRequestResize).PutInt(int32(size)))
	return nil
}

func (pool *ShmPool) forgetBuffer(buf *Buffer) {
	pool.buffers = slices.DeleteFunc(pool.buffers, func(b *Buffer) bool { return b == buf })
}

// Release destroys all buffers, then the pool, telling the compositor
// about each, and unmaps the memory.
func (pool *ShmPool) Release() {
	if !pool.handle.Valid() {
		return
	}
	for _, buf := range slices.Clone(pool.buffers) {
		buf.Release()
	}
	pool.handle.Release()
	pool.unmap()
}

// Destroy tears the pool and its buffers down locally, for use after the
// connection is gone.
func (pool *ShmPool) Destroy() {
	if !pool.handle.Valid() {
		return
	}
	for _, buf := range slices.Clone(pool.buffers) {
		buf.Destroy()
	}
	pool.handle.Destroy()
	pool.unmap()
}

func (pool *ShmPool) unmap() {
	err := errors.Join(unix.Munmap(pool.mem), unix.Close(pool.fd))
	if err != nil {
		pool.shm.proxy.dsp.log.Warn("releasing shm pool", "error", err)
	}
	pool.mem = nil
	pool.fd = -1
}
