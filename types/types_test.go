package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelFormat(t *testing.T) {
	for _, tc := range []struct {
		f        PixelFormat
		bpp      int
		str      string
		is_float bool
	}{
		{RGB8, 3, "RGB_8", false},
		{BGRA8, 4, "RGB+1X(first)_8_SWAP", false},
		{RGB16SE, 6, "RGB_16_SE", false},
		{RGB15, 6, "RGB_16_15", false},
		{RGBHalf, 6, "RGB_HALF", true},
		{CMYKFloat, 16, "CMYK_FLT", true},
		{LabDouble, 24, "Lab_DBL", true},
		{CMYK8Planar, 4, "CMYK_8_PLANAR", false},
		{MultiChannelFormat(6, Int16), 12, "MultiChannel6_16", false},
	} {
		t.Run(tc.str, func(t *testing.T) {
			require.NoError(t, tc.f.Validate())
			assert.Equal(t, tc.bpp, tc.f.BytesPerPixel())
			assert.Equal(t, tc.str, tc.f.String())
			assert.Equal(t, tc.is_float, tc.f.IsFloat())
		})
	}
}

func TestPixelFormatValidate(t *testing.T) {
	bad := []PixelFormat{
		{Model: RGB, Channels: 3},
		{Model: RGB, Layout: Int8, Channels: 4},
		{Model: Gray, Layout: Int8},
		{Model: MultiChannel, Layout: Int8, Channels: 15, ExtraChannels: 2},
		{Model: RGB, Layout: Int8, Channels: 3, Fixed15: true},
	}
	for _, f := range bad {
		assert.Error(t, f.Validate(), "%s", f)
	}
	assert.True(t, RGBA8.CompatibleWith(BGRA8))
	assert.False(t, RGB8.CompatibleWith(RGBA8))
}

func TestFlags(t *testing.T) {
	f := NoCache | CopyAlpha | GridPoints(33)
	assert.Equal(t, 33, f.RequestedGridPoints())
	assert.True(t, f.Has(NoCache|CopyAlpha))
	assert.False(t, f.Has(NoOptimize))
	assert.Equal(t, "NOCACHE|COPY_ALPHA|GRIDPOINTS(33)", f.String())
	assert.Equal(t, "0", Flags(0).String())
	assert.Equal(t, "AbsoluteColorimetric", AbsoluteColorimetric.String())
}
