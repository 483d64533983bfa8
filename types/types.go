package types

import (
	"fmt"
	"strings"
)

var _ = fmt.Print

// ColorModel is the color space a pixel's color channels are expressed in.
type ColorModel int

const (
	UnknownModel ColorModel = iota
	Gray
	RGB
	CMY
	CMYK
	Lab
	XYZ
	YCbCr
	HSV
	HLS
	Yxy
	// MultiChannel is an N-ink device space, N given by PixelFormat.Channels
	MultiChannel
)

var model_names = map[ColorModel]string{
	UnknownModel: "Unknown",
	Gray:         "Gray",
	RGB:          "RGB",
	CMY:          "CMY",
	CMYK:         "CMYK",
	Lab:          "Lab",
	XYZ:          "XYZ",
	YCbCr:        "YCbCr",
	HSV:          "HSV",
	HLS:          "HLS",
	Yxy:          "Yxy",
	MultiChannel: "MultiChannel",
}

func (m ColorModel) String() string {
	if ans, ok := model_names[m]; ok {
		return ans
	}
	return fmt.Sprintf("ColorModel(%d)", int(m))
}

// NumberOfChannels returns the natural number of color channels for the
// model or 0 when it is not fixed (MultiChannel, Unknown).
func (m ColorModel) NumberOfChannels() int {
	switch m {
	case Gray:
		return 1
	case RGB, CMY, Lab, XYZ, YCbCr, HSV, HLS, Yxy:
		return 3
	case CMYK:
		return 4
	}
	return 0
}

// IsInk is true for subtractive device spaces.
func (m ColorModel) IsInk() bool {
	switch m {
	case CMY, CMYK, MultiChannel:
		return true
	}
	return false
}

// ChannelLayout is the storage type of one sample.
type ChannelLayout int

const (
	NoLayout ChannelLayout = iota
	Int8
	Int16
	Half16
	Float32
	Double64
)

var layout_names = map[ChannelLayout]string{
	NoLayout: "None",
	Int8:     "8",
	Int16:    "16",
	Half16:   "HALF",
	Float32:  "FLT",
	Double64: "DBL",
}

func (l ChannelLayout) String() string {
	if ans, ok := layout_names[l]; ok {
		return ans
	}
	return fmt.Sprintf("ChannelLayout(%d)", int(l))
}

func (l ChannelLayout) BytesPerChannel() int {
	switch l {
	case Int8:
		return 1
	case Int16, Half16:
		return 2
	case Float32:
		return 4
	case Double64:
		return 8
	}
	return 0
}

func (l ChannelLayout) IsFloat() bool {
	return l == Half16 || l == Float32 || l == Double64
}

// MaxChannels bounds the channel count of any pixel and any pipeline stage.
const MaxChannels = 16

// PixelFormat describes how raw bytes encode one pixel. It is a small value
// type, constructed once and passed around by value.
type PixelFormat struct {
	Model         ColorModel
	Layout        ChannelLayout
	Channels      int
	ExtraChannels int
	// Extra channels precede the color channels (ARGB rather than RGBA)
	ExtraFirst bool
	// Channel-major buffers, one plane per channel
	Planar bool
	// Reverse physical channel order, RGB becomes BGR
	ChannelsSwapped bool
	// Multi-byte samples are stored in the opposite of little-endian order
	BytesSwapped bool
	// Samples are stored as max - value (min is white)
	Reversed bool
	// 16 bit samples use the 1.15 fixed encoding where 0x8000 is full scale
	Fixed15 bool
}

func (f PixelFormat) BytesPerChannel() int { return f.Layout.BytesPerChannel() }
func (f PixelFormat) TotalChannels() int   { return f.Channels + f.ExtraChannels }
func (f PixelFormat) IsFloat() bool        { return f.Layout.IsFloat() }

// BytesPerPixel is the size of one interleaved pixel, or for planar
// formats, the sum of one sample from every plane.
func (f PixelFormat) BytesPerPixel() int {
	return f.BytesPerChannel() * f.TotalChannels()
}

func (f PixelFormat) Validate() error {
	if f.Layout == NoLayout || f.Layout.BytesPerChannel() == 0 {
		return fmt.Errorf("pixel format %s has no valid channel layout", f)
	}
	if f.Channels < 0 || f.ExtraChannels < 0 {
		return fmt.Errorf("pixel format %s has negative channel counts", f)
	}
	if f.Channels == 0 {
		return fmt.Errorf("pixel format %s has no color channels", f)
	}
	if f.TotalChannels() > MaxChannels {
		return fmt.Errorf("pixel format %s has %d channels, at most %d are supported", f, f.TotalChannels(), MaxChannels)
	}
	if n := f.Model.NumberOfChannels(); n > 0 && n != f.Channels {
		return fmt.Errorf("pixel format %s has %d channels but the %s model needs %d", f, f.Channels, f.Model, n)
	}
	if f.Fixed15 && f.Layout != Int16 {
		return fmt.Errorf("pixel format %s: the 1.15 fixed encoding needs 16 bit samples", f)
	}
	return nil
}

// CompatibleWith is true when the two formats carry the same number of
// color and extra channels and so can describe the same pixels.
func (f PixelFormat) CompatibleWith(o PixelFormat) bool {
	return f.Channels == o.Channels && f.ExtraChannels == o.ExtraChannels
}

func (f PixelFormat) String() string {
	var b strings.Builder
	b.WriteString(f.Model.String())
	if f.Model.NumberOfChannels() == 0 {
		fmt.Fprintf(&b, "%d", f.Channels)
	}
	if f.ExtraChannels > 0 {
		fmt.Fprintf(&b, "+%dX", f.ExtraChannels)
		if f.ExtraFirst {
			b.WriteString("(first)")
		}
	}
	b.WriteString("_")
	b.WriteString(f.Layout.String())
	if f.Fixed15 {
		b.WriteString("_15")
	}
	flags := []string{}
	if f.Planar {
		flags = append(flags, "PLANAR")
	}
	if f.ChannelsSwapped {
		flags = append(flags, "SWAP")
	}
	if f.BytesSwapped {
		flags = append(flags, "SE")
	}
	if f.Reversed {
		flags = append(flags, "REV")
	}
	if len(flags) > 0 {
		b.WriteString("_" + strings.Join(flags, "_"))
	}
	return b.String()
}

func mk(m ColorModel, l ChannelLayout) PixelFormat {
	return PixelFormat{Model: m, Layout: l, Channels: m.NumberOfChannels()}
}

func (f PixelFormat) WithAlpha(first bool) PixelFormat {
	f.ExtraChannels, f.ExtraFirst = 1, first
	return f
}

func (f PixelFormat) Swapped() PixelFormat {
	f.ChannelsSwapped = true
	return f
}

func (f PixelFormat) AsPlanar() PixelFormat {
	f.Planar = true
	return f
}

func (f PixelFormat) ByteSwapped() PixelFormat {
	f.BytesSwapped = true
	return f
}

// Commonly used formats
var (
	Gray8     = mk(Gray, Int8)
	Gray16    = mk(Gray, Int16)
	GrayFloat = mk(Gray, Float32)
	GrayA8    = mk(Gray, Int8).WithAlpha(false)

	RGB8        = mk(RGB, Int8)
	BGR8        = mk(RGB, Int8).Swapped()
	RGBA8       = mk(RGB, Int8).WithAlpha(false)
	ARGB8       = mk(RGB, Int8).WithAlpha(true)
	ABGR8       = mk(RGB, Int8).WithAlpha(false).Swapped()
	BGRA8       = mk(RGB, Int8).WithAlpha(true).Swapped()
	RGB8Planar  = mk(RGB, Int8).AsPlanar()
	RGB16       = mk(RGB, Int16)
	RGB16SE     = mk(RGB, Int16).ByteSwapped()
	RGBA16      = mk(RGB, Int16).WithAlpha(false)
	RGB16Planar = mk(RGB, Int16).AsPlanar()
	RGB15       = PixelFormat{Model: RGB, Layout: Int16, Channels: 3, Fixed15: true}
	RGBHalf     = mk(RGB, Half16)
	RGBFloat    = mk(RGB, Float32)
	RGBAFloat   = mk(RGB, Float32).WithAlpha(false)
	RGBDouble   = mk(RGB, Double64)
	CMY8        = mk(CMY, Int8)
	CMYK8       = mk(CMYK, Int8)
	KYMC8       = mk(CMYK, Int8).Swapped()
	CMYK8Planar = mk(CMYK, Int8).AsPlanar()
	CMYK16      = mk(CMYK, Int16)
	CMYKFloat   = mk(CMYK, Float32)
	CMYKDouble  = mk(CMYK, Double64)
	Lab8        = mk(Lab, Int8)
	Lab16       = mk(Lab, Int16)
	LabFloat    = mk(Lab, Float32)
	LabDouble   = mk(Lab, Double64)
	XYZ16       = mk(XYZ, Int16)
	XYZFloat    = mk(XYZ, Float32)
	XYZDouble   = mk(XYZ, Double64)
	YCbCr8      = mk(YCbCr, Int8)
	HSV8        = mk(HSV, Int8)
)

// MultiChannelFormat is an n ink device format.
func MultiChannelFormat(n int, l ChannelLayout) PixelFormat {
	return PixelFormat{Model: MultiChannel, Layout: l, Channels: n}
}

// Flags control how a transform is built.
type Flags uint32

const (
	// Do not memoize the last converted pixel
	NoCache Flags = 0x0040
	// Only pack and unpack, the pipeline is not evaluated
	NullTransform Flags = 0x0200
	// Force the generic pipeline interpreter
	NoOptimize Flags = 0x0100
	// Always resample into a CLUT, even for shapes a cheaper matcher handles
	ForceCLUT Flags = 0x0002
	// Use more grid points when resampling
	HighResPrecalc Flags = 0x0400
	// Use fewer grid points when resampling
	LowResPrecalc Flags = 0x0800
	// Do not fix white misalignment in resampled CLUTs
	NoWhiteOnWhiteFixup Flags = 0x0004
	// Force multilinear rather than tetrahedral CLUT interpolation
	Trilinear Flags = 0x0008
	// Pass extra channels through unchanged
	CopyAlpha Flags = 0x04000000
	// Scale the dynamic range so source and destination black points meet
	BlackPointCompensation Flags = 0x2000
	// Buffer formats may still be changed after creation. Cleared once an
	// optimizer locks in format specific code.
	CanChangeFormatter Flags = 0x02000000

	gridPointsMask  Flags = 0x00FF0000
	gridPointsShift       = 16
)

// GridPoints returns flags requesting n grid points per axis when resampling.
func GridPoints(n int) Flags {
	return Flags((uint32(n) & 0xFF) << gridPointsShift)
}

// RequestedGridPoints returns the grid point count encoded in f, or zero.
func (f Flags) RequestedGridPoints() int {
	return int((f & gridPointsMask) >> gridPointsShift)
}

func (f Flags) Has(x Flags) bool { return f&x == x }

var flag_names = []struct {
	f    Flags
	name string
}{
	{ForceCLUT, "FORCE_CLUT"},
	{NoWhiteOnWhiteFixup, "NOWHITEONWHITEFIXUP"},
	{Trilinear, "TRILINEAR"},
	{NoCache, "NOCACHE"},
	{NoOptimize, "NOOPTIMIZE"},
	{NullTransform, "NULLTRANSFORM"},
	{HighResPrecalc, "HIGHRESPRECALC"},
	{LowResPrecalc, "LOWRESPRECALC"},
	{BlackPointCompensation, "BLACKPOINTCOMPENSATION"},
	{CanChangeFormatter, "CAN_CHANGE_FORMATTER"},
	{CopyAlpha, "COPY_ALPHA"},
}

func (f Flags) String() string {
	parts := []string{}
	for _, x := range flag_names {
		if f.Has(x.f) {
			parts = append(parts, x.name)
		}
	}
	if n := f.RequestedGridPoints(); n > 0 {
		parts = append(parts, fmt.Sprintf("GRIDPOINTS(%d)", n))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// Intent is a rendering intent.
type Intent uint32

const (
	Perceptual Intent = iota
	RelativeColorimetric
	Saturation
	AbsoluteColorimetric
)

var intent_names = map[Intent]string{
	Perceptual:           "Perceptual",
	RelativeColorimetric: "RelativeColorimetric",
	Saturation:           "Saturation",
	AbsoluteColorimetric: "AbsoluteColorimetric",
}

func (i Intent) String() string {
	if ans, ok := intent_names[i]; ok {
		return ans
	}
	return fmt.Sprintf("Intent(%d)", uint32(i))
}
