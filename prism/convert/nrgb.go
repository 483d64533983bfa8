package convert

import (
	"fmt"
	"image"
	"image/color"
)

var _ = fmt.Print

// RGBColor is an opaque 8-bit color, the pixel type of RGBImage
type RGBColor struct {
	R, G, B uint8
}

func (c RGBColor) String() string {
	return fmt.Sprintf("RGBColor{%02X %02X %02X}", c.R, c.G, c.B)
}

func (c RGBColor) RGBA() (r, g, b, a uint32) {
	r, g, b = uint32(c.R)*0x101, uint32(c.G)*0x101, uint32(c.B)*0x101
	return r, g, b, 0xffff
}

func rgb_model(c color.Color) color.Color {
	if _, ok := c.(RGBColor); ok {
		return c
	}
	q := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBColor{q.R, q.G, q.B}
}

var RGBModel color.Model = color.ModelFunc(rgb_model)

// RGBImage holds packed opaque pixels in the RGB8 pixel format. Converting
// opaque sources such as CMYK or gray images produces one of these, so
// the transform writes exactly three bytes per pixel.
type RGBImage struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

func NewRGBImage(r image.Rectangle) *RGBImage {
	return &RGBImage{Pix: make([]uint8, 3*r.Dx()*r.Dy()), Stride: 3 * r.Dx(), Rect: r}
}

func (p *RGBImage) ColorModel() color.Model { return RGBModel }
func (p *RGBImage) Bounds() image.Rectangle { return p.Rect }
func (p *RGBImage) Opaque() bool            { return true }

func (p *RGBImage) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

func (p *RGBImage) At(x, y int) color.Color { return p.RGBAt(x, y) }

func (p *RGBImage) RGBAt(x, y int) RGBColor {
	if !(image.Point{x, y}.In(p.Rect)) {
		return RGBColor{}
	}
	s := p.Pix[p.PixOffset(x, y):]
	return RGBColor{s[0], s[1], s[2]}
}

func (p *RGBImage) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	q := RGBModel.Convert(c).(RGBColor)
	s := p.Pix[p.PixOffset(x, y):]
	s[0], s[1], s[2] = q.R, q.G, q.B
}

// SubImage shares pixels with p
func (p *RGBImage) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &RGBImage{}
	}
	return &RGBImage{Pix: p.Pix[p.PixOffset(r.Min.X, r.Min.Y):], Stride: p.Stride, Rect: r}
}
