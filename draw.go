package wayland

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// argbImage is a draw.Image over premultiplied ARGB8888 or XRGB8888
// pixels, which are stored as B, G, R, A bytes.
type argbImage struct {
	pix    []byte
	stride int
	rect   image.Rectangle
	opaque bool
}

func (m *argbImage) ColorModel() color.Model { return color.RGBAModel }
func (m *argbImage) Bounds() image.Rectangle { return m.rect }

func (m *argbImage) At(x, y int) color.Color {
	if !image.Pt(x, y).In(m.rect) {
		return color.RGBA{}
	}
	i := y*m.stride + x*4
	c := color.RGBA{B: m.pix[i], G: m.pix[i+1], R: m.pix[i+2], A: m.pix[i+3]}
	if m.opaque {
		c.A = 0xff
	}
	return c
}

func (m *argbImage) Set(x, y int, c color.Color) {
	if !image.Pt(x, y).In(m.rect) {
		return
	}
	i := y*m.stride + x*4
	r, g, b, a := c.RGBA()
	m.pix[i] = byte(b >> 8)
	m.pix[i+1] = byte(g >> 8)
	m.pix[i+2] = byte(r >> 8)
	m.pix[i+3] = byte(a >> 8)
}

// Image returns the buffer's memory as an image. Only the 32-bit ARGB and
// XRGB formats are supported.
func (buf *Buffer) Image() (draw.Image, error) {
	if buf.format != ShmFormatArgb8888 && buf.format != ShmFormatXrgb8888 {
		return nil, fmt.Errorf("wayland: can't draw into buffer of format %#x", uint32(buf.format))
	}
	return &argbImage{
		pix:    buf.Address(),
		stride: int(buf.stride),
		rect:   image.Rect(0, 0, int(buf.width), int(buf.height)),
		opaque: buf.format == ShmFormatXrgb8888,
	}, nil
}

// Draw scales src to fill the buffer.
func (buf *Buffer) Draw(src image.Image) error {
	dst, err := buf.Image()
	if err != nil {
		return err
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return nil
}
