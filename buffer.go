package wayland

import "image"

const (
	bufferRequestDestroy = 0

	bufferEventRelease = 0
)

// Buffer is a wl_buffer backed by a region of a ShmPool.
//
// Two flags track who may touch the pixels. Released is driven by the
// compositor: it becomes true when the compositor has finished reading the
// buffer. Used is purely client-side bookkeeping: set it when handing the
// buffer to the compositor so that ShmPool.GetBuffer won't hand it out again
// until it has been released.
type Buffer struct {
	pool   *ShmPool
	handle Handle[*Proxy]

	width, height int32
	stride        int32
	offset        int
	format        ShmFormat

	released bool
	used     bool

	onRelease Listeners[*Buffer]
}

func newBuffer(pool *ShmPool, p *Proxy, width, height, stride int32, offset int, format ShmFormat) *Buffer {
	buf := &Buffer{
		pool:   pool,
		handle: NewHandle(func(p *Proxy) { p.destroyWith(bufferRequestDestroy) }),
		width:  width,
		height: height,
		stride: stride,
		offset: offset,
		format: format,
	}
	buf.handle.Setup(p)
	p.listen(buf)
	return buf
}

func (buf *Buffer) handleEvent(p *Proxy, opcode uint16, args eventArgs) error {
	checkTarget(p, buf.handle.Must())
	switch opcode {
	case bufferEventRelease:
		buf.released = true
		buf.onRelease.emit(buf)
	}
	return nil
}

// OnRelease registers fn to be called when the compositor releases the
// buffer.
func (buf *Buffer) OnRelease(fn func(*Buffer)) (remove func()) {
	return buf.onRelease.Add(fn)
}

func (buf *Buffer) Valid() bool { return buf.handle.Valid() }

// Proxy returns the wl_buffer, or nil once the buffer is gone.
func (buf *Buffer) Proxy() *Proxy {
	p, _ := buf.handle.Get()
	return p
}

func (buf *Buffer) Size() image.Point   { return image.Pt(int(buf.width), int(buf.height)) }
func (buf *Buffer) Stride() int32       { return buf.stride }
func (buf *Buffer) Offset() int         { return buf.offset }
func (buf *Buffer) Format() ShmFormat   { return buf.format }
func (buf *Buffer) IsReleased() bool    { return buf.released }
func (buf *Buffer) SetReleased(b bool)  { buf.released = b }
func (buf *Buffer) IsUsed() bool        { return buf.used }
func (buf *Buffer) SetUsed(b bool)      { buf.used = b }
func (buf *Buffer) Pool() *ShmPool      { return buf.pool }

func (buf *Buffer) byteLen() int { return int(buf.stride) * int(buf.height) }

// Address returns the buffer's pixels in the pool's shared memory. The
// slice is invalidated when the pool is resized or released.
func (buf *Buffer) Address() []byte {
	buf.handle.Must()
	return buf.pool.mem[buf.offset : buf.offset+buf.byteLen() : buf.offset+buf.byteLen()]
}

// Copy copies stride*height bytes from src into the buffer. src must be
// at least that long.
func (buf *Buffer) Copy(src []byte) {
	copy(buf.Address(), src[:buf.byteLen()])
}

// Release destroys the wl_buffer. The memory stays with the pool.
func (buf *Buffer) Release() {
	if !buf.handle.Valid() {
		return
	}
	buf.handle.Release()
	buf.teardown()
}

// Destroy forgets the wl_buffer without telling the compositor.
func (buf *Buffer) Destroy() {
	p, ok := buf.handle.Get()
	if !ok {
		return
	}
	buf.handle.Destroy()
	p.detach()
	buf.teardown()
}

func (buf *Buffer) teardown() {
	buf.onRelease.clear()
	buf.pool.forgetBuffer(buf)
}
