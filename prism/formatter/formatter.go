// Package formatter converts pixels between raw buffers described by a
// types.PixelFormat and the working representations pipelines evaluate:
// 16 bit unsigned integers or float32 values normalized to [0,1].
package formatter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/types"
	"github.com/x448/float16"
)

var _ = fmt.Print

// Formatter moves the color channels of one pixel in and out of a buffer.
// off holds the byte offset of every logical channel of the pixel, color
// channels first then extra channels, see Increments.
type Formatter interface {
	Format() types.PixelFormat
	Unpack16(dst []uint16, buf []byte, off []int)
	Pack16(src []uint16, buf []byte, off []int)
	UnpackFloat(dst []float32, buf []byte, off []int)
	PackFloat(src []float32, buf []byte, off []int)
}

// Factory returns a formatter for f or reports that it cannot handle it.
type Factory func(f types.PixelFormat) (Formatter, bool)

// New returns a formatter from the first factory accepting f, falling back
// to the built-in one.
func New(f types.PixelFormat, factories ...Factory) (Formatter, error) {
	if err := f.Validate(); err != nil {
		return nil, cmserr.Wrap(cmserr.Configuration, "formatter.New", err)
	}
	for _, fac := range factories {
		if fac == nil {
			continue
		}
		if ans, ok := fac(f); ok && ans != nil {
			return ans, nil
		}
	}
	return NewGeneric(f), nil
}

// Increments describes where the channels of a run of pixels live. The
// logical channel i of pixel n starts at Start[i] + n*Inc.
type Increments struct {
	Start []int
	Inc   int
}

// physical_position returns the index of the logical channel in a pixel
// as stored.
func physical_position(f types.PixelFormat, i int) int {
	var p int
	if i < f.Channels {
		p = i
		if f.ExtraFirst {
			p += f.ExtraChannels
		}
	} else {
		p = i - f.Channels
		if !f.ExtraFirst {
			p += f.Channels
		}
	}
	if f.ChannelsSwapped {
		p = f.TotalChannels() - 1 - p
	}
	return p
}

// ComputeIncrements derives channel offsets for f. bytes_per_plane is the
// distance between planes of planar formats and ignored otherwise.
func ComputeIncrements(f types.PixelFormat, bytes_per_plane int) Increments {
	bpc := f.BytesPerChannel()
	ans := Increments{Start: make([]int, f.TotalChannels())}
	if f.Planar {
		ans.Inc = bpc
		for i := range ans.Start {
			ans.Start[i] = physical_position(f, i) * bytes_per_plane
		}
	} else {
		ans.Inc = bpc * f.TotalChannels()
		for i := range ans.Start {
			ans.Start[i] = physical_position(f, i) * bpc
		}
	}
	return ans
}

// Offsets fills off with the channel offsets of pixel n starting at base.
func (inc Increments) Offsets(off []int, base, n int) {
	d := base + n*inc.Inc
	for i, s := range inc.Start {
		off[i] = s + d
	}
}

// Generic handles every format that validates.
type Generic struct {
	format types.PixelFormat
	order  binary.ByteOrder
	// natural = normalized * scale + offset, per color channel
	scale, offset [types.MaxChannels]float64
}

var _ Formatter = (*Generic)(nil)

func NewGeneric(f types.PixelFormat) *Generic {
	ans := &Generic{format: f, order: binary.LittleEndian}
	if f.BytesSwapped {
		ans.order = binary.BigEndian
	}
	for i := range ans.scale {
		ans.scale[i] = 1
	}
	if f.IsFloat() {
		switch f.Model {
		case types.Lab:
			ans.scale[0], ans.scale[1], ans.scale[2] = 100, 255, 255
			ans.offset[1], ans.offset[2] = -128, -128
		case types.XYZ:
			ans.scale[0], ans.scale[1], ans.scale[2] = colorconv.MaxEncodeableXYZ, colorconv.MaxEncodeableXYZ, colorconv.MaxEncodeableXYZ
		}
	}
	return ans
}

func (g *Generic) Format() types.PixelFormat { return g.format }

// From8To16 expands an 8 bit sample so that 0xff maps onto 0xffff.
func From8To16(v uint8) uint16 { return uint16(v)<<8 | uint16(v) }

// From16To8 reduces a 16 bit sample with rounding.
func From16To8(v uint16) uint8 { return uint8((uint32(v)*65281 + 8388608) >> 24) }

// From15To16 and From16To15 convert the 1.15 fixed encoding, where 0x8000
// is full scale.
func From15To16(v uint16) uint16 { return uint16((uint32(v)*0xffff + 0x4000) >> 15) }
func From16To15(v uint16) uint16 { return uint16((uint32(v) << 15) / 0xffff) }

func quantize16(d float64) uint16 {
	d = d*0xffff + 0.5
	if !(d > 0) {
		return 0
	}
	if d >= 0xffff {
		return 0xffff
	}
	return uint16(d)
}

// read_int reads an integer sample as a 16 bit value
func read_int(f types.PixelFormat, order binary.ByteOrder, buf []byte, o int) uint16 {
	if f.Layout == types.Int8 {
		return From8To16(buf[o])
	}
	v := order.Uint16(buf[o:])
	if f.Fixed15 {
		v = From15To16(min(v, 0x8000))
	}
	return v
}

func write_int(f types.PixelFormat, order binary.ByteOrder, buf []byte, o int, v uint16) {
	if f.Layout == types.Int8 {
		buf[o] = From16To8(v)
		return
	}
	if f.Fixed15 {
		v = From16To15(v)
	}
	order.PutUint16(buf[o:], v)
}

func read_float(l types.ChannelLayout, order binary.ByteOrder, buf []byte, o int) float64 {
	switch l {
	case types.Half16:
		return float64(float16.Frombits(order.Uint16(buf[o:])).Float32())
	case types.Float32:
		return float64(math.Float32frombits(order.Uint32(buf[o:])))
	default:
		return math.Float64frombits(order.Uint64(buf[o:]))
	}
}

func write_float(l types.ChannelLayout, order binary.ByteOrder, buf []byte, o int, v float64) {
	switch l {
	case types.Half16:
		order.PutUint16(buf[o:], float16.Fromfloat32(float32(v)).Bits())
	case types.Float32:
		order.PutUint32(buf[o:], math.Float32bits(float32(v)))
	default:
		order.PutUint64(buf[o:], math.Float64bits(v))
	}
}

func (g *Generic) normalized(buf []byte, o, ch int) float64 {
	f := g.format
	var v float64
	switch {
	case f.IsFloat():
		v = (read_float(f.Layout, g.order, buf, o) - g.offset[ch]) / g.scale[ch]
	case f.Layout == types.Int8:
		v = float64(buf[o]) / 0xff
	case f.Fixed15:
		v = float64(min(g.order.Uint16(buf[o:]), 0x8000)) / 0x8000
	default:
		v = float64(g.order.Uint16(buf[o:])) / 0xffff
	}
	if f.Reversed {
		v = 1 - v
	}
	return v
}

func (g *Generic) set_normalized(buf []byte, o, ch int, v float64) {
	f := g.format
	if f.Reversed {
		v = 1 - v
	}
	switch {
	case f.IsFloat():
		write_float(f.Layout, g.order, buf, o, v*g.scale[ch]+g.offset[ch])
	case f.Layout == types.Int8:
		buf[o] = uint8(math.Floor(max(0, min(v, 1))*0xff + 0.5))
	case f.Fixed15:
		g.order.PutUint16(buf[o:], uint16(math.Floor(max(0, min(v, 1))*0x8000+0.5)))
	default:
		g.order.PutUint16(buf[o:], quantize16(v))
	}
}

func (g *Generic) Unpack16(dst []uint16, buf []byte, off []int) {
	f := g.format
	if f.IsFloat() {
		for i := range f.Channels {
			dst[i] = quantize16(g.normalized(buf, off[i], i))
		}
		return
	}
	for i := range f.Channels {
		v := read_int(f, g.order, buf, off[i])
		if f.Reversed {
			v = 0xffff - v
		}
		dst[i] = v
	}
}

func (g *Generic) Pack16(src []uint16, buf []byte, off []int) {
	f := g.format
	if f.IsFloat() {
		for i := range f.Channels {
			g.set_normalized(buf, off[i], i, float64(src[i])/0xffff)
		}
		return
	}
	for i := range f.Channels {
		v := src[i]
		if f.Reversed {
			v = 0xffff - v
		}
		write_int(f, g.order, buf, off[i], v)
	}
}

func (g *Generic) UnpackFloat(dst []float32, buf []byte, off []int) {
	for i := range g.format.Channels {
		dst[i] = float32(g.normalized(buf, off[i], i))
	}
}

func (g *Generic) PackFloat(src []float32, buf []byte, off []int) {
	for i := range g.format.Channels {
		g.set_normalized(buf, off[i], i, float64(src[i]))
	}
}

// CopyExtraChannels copies the extra channels of one pixel from src to dst,
// converting the sample encoding when the formats differ. Nothing is
// copied unless both formats have the same number of extra channels.
func CopyExtraChannels(sf types.PixelFormat, src []byte, soff []int, df types.PixelFormat, dst []byte, doff []int) {
	if c := NewExtraCopier(sf, df); c != nil {
		c.Copy(src, soff, dst, doff)
	}
}

// ExtraCopier is CopyExtraChannels bound to a pair of formats. It is nil
// when there is nothing to copy.
type ExtraCopier struct {
	sf, df types.PixelFormat
	sg, dg *Generic
	same   bool
}

func NewExtraCopier(sf, df types.PixelFormat) *ExtraCopier {
	if sf.ExtraChannels != df.ExtraChannels || sf.ExtraChannels == 0 {
		return nil
	}
	return &ExtraCopier{
		sf: sf, df: df, sg: NewGeneric(plain_extras(sf)), dg: NewGeneric(plain_extras(df)),
		same: sf.Layout == df.Layout && sf.BytesSwapped == df.BytesSwapped && sf.Fixed15 == df.Fixed15,
	}
}

func (c *ExtraCopier) Copy(src []byte, soff []int, dst []byte, doff []int) {
	bpc := c.sf.BytesPerChannel()
	for x := range c.sf.ExtraChannels {
		so, do := soff[c.sf.Channels+x], doff[c.df.Channels+x]
		if c.same {
			copy(dst[do:do+bpc], src[so:so+bpc])
			continue
		}
		c.dg.set_normalized(dst, do, types.MaxChannels-1, c.sg.normalized(src, so, types.MaxChannels-1))
	}
}

// extra channels are plain [0,1] samples, never reversed
func plain_extras(f types.PixelFormat) types.PixelFormat {
	f.Reversed = false
	f.Model = types.MultiChannel
	return f
}
