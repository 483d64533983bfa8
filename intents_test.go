package cmspipe

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/profile"
	"github.com/kovidgoyal/cmspipe/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

func link(t *testing.T, in, out types.PixelFormat, intent types.Intent, flags types.Flags, profiles ...profile.Profile) *Transform {
	t.Helper()
	ans, err := CreateMultiprofileTransform(profiles, []types.Intent{intent}, nil, nil, in, out, flags)
	require.NoError(t, err)
	return ans
}

func cmyk(t *testing.T, opts profile.CMYKOptions) profile.Profile {
	t.Helper()
	ans, err := profile.NewSyntheticCMYK(opts)
	require.NoError(t, err)
	return ans
}

func floats(b []byte) []float32 {
	ans := make([]float32, len(b)/4)
	for i := range ans {
		ans[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return ans
}

func float_bytes(f ...float32) []byte {
	ans := make([]byte, 4*len(f))
	for i, x := range f {
		binary.LittleEndian.PutUint32(ans[4*i:], math.Float32bits(x))
	}
	return ans
}

func convert_float(tr *Transform, px ...float32) []float32 {
	dst := make([]byte, 4*tr.OutputFormat().TotalChannels())
	tr.DoTransform(float_bytes(px...), dst, 1)
	return floats(dst)
}

func TestSRGBRoundTrip(t *testing.T) {
	tr := link(t, types.RGB8, types.RGB8, types.RelativeColorimetric, 0, profile.NewSRGB(), profile.NewSRGB())
	src := random_bytes(3 * 4096)
	dst := make([]byte, len(src))
	tr.DoTransform(src, dst, 4096)
	assert.LessOrEqual(t, max_diff(src, dst), 1)
}

func TestSRGBToXYZ(t *testing.T) {
	tr := link(t, types.RGBFloat, types.XYZFloat, types.Perceptual, 0, profile.NewSRGB())
	white := convert_float(tr, 1, 1, 1)
	for i := range 3 {
		assert.InDelta(t, colorconv.WhiteD50[i], white[i], 1e-3)
	}
	assert.InDeltaSlice(t, []float32{0, 0, 0}, convert_float(tr, 0, 0, 0), 1e-5)
}

func TestSRGBToGray(t *testing.T) {
	gray, err := profile.NewGray(2.2)
	require.NoError(t, err)
	tr := link(t, types.RGB8, types.Gray8, types.Perceptual, 0, profile.NewSRGB(), gray)
	dst := make([]byte, 3)
	tr.DoTransform([]byte{0, 0, 0, 128, 128, 128, 255, 255, 255}, dst, 3)
	expected := 255 * math.Pow(colorconv.SRGBToLinear(128.0/255), 1/2.2)
	assert.Equal(t, byte(0), dst[0])
	assert.InDelta(t, expected, float64(dst[1]), 1)
	assert.Equal(t, byte(255), dst[2])
}

func TestThroughLab(t *testing.T) {
	tr := link(t, types.RGB16, types.RGB16, types.Perceptual, types.NoOptimize, profile.NewSRGB(), profile.NewLab(), profile.NewSRGB())
	src := random_bytes(3 * 2 * 256)
	dst := make([]byte, len(src))
	tr.DoTransform(src, dst, 256)
	for i := 0; i < len(src); i += 2 {
		assert.InDelta(t, binary.LittleEndian.Uint16(src[i:]), binary.LittleEndian.Uint16(dst[i:]), 8)
	}

	tr = link(t, types.LabFloat, types.LabFloat, types.Perceptual, 0, profile.NewLab())
	assert.InDeltaSlice(t, []float32{50, -20, 30}, convert_float(tr, 50, -20, 30), 1e-3)
}

func TestSRGBToCMYK(t *testing.T) {
	printer := cmyk(t, profile.CMYKOptions{})
	tr := link(t, types.RGBFloat, types.CMYKFloat, types.RelativeColorimetric, 0, profile.NewSRGB(), printer)
	assert.InDeltaSlice(t, []float32{0, 0, 0, 0}, convert_float(tr, 1, 1, 1), 0.01)
	black := convert_float(tr, 0, 0, 0)
	assert.InDelta(t, 1, black[3], 0.01)

	// a proof goes into the printer and back out of it
	proof := link(t, types.RGBFloat, types.RGBFloat, types.RelativeColorimetric, 0, profile.NewSRGB(), printer, printer, profile.NewSRGB())
	for _, c := range [][]float32{{0.5, 0.5, 0.5}, {0.8, 0.3, 0.2}, {0.2, 0.6, 0.7}, {0.9, 0.9, 0.1}} {
		assert.InDeltaSlice(t, c, convert_float(proof, c...), 0.04, "%v", c)
	}
}

func TestBlackPointCompensation(t *testing.T) {
	printer := cmyk(t, profile.CMYKOptions{InkFloor: 0.05})
	convert := func(tr *Transform) []byte {
		dst := make([]byte, 3)
		tr.DoTransform([]byte{255, 255, 255, 255}, dst, 1)
		return dst
	}
	floor := 255 * 0.05
	plain := convert(link(t, types.CMYK8, types.RGB8, types.RelativeColorimetric, 0, printer, profile.NewSRGB()))
	for _, v := range plain {
		assert.InDelta(t, floor, float64(v), 2)
	}
	for _, tr := range []*Transform{
		link(t, types.CMYK8, types.RGB8, types.RelativeColorimetric, types.BlackPointCompensation, printer, profile.NewSRGB()),
		func() *Transform {
			ans, err := CreateMultiprofileTransform([]profile.Profile{printer, profile.NewSRGB()}, []types.Intent{types.RelativeColorimetric, types.RelativeColorimetric}, []bool{false, true}, nil, types.CMYK8, types.RGB8, 0)
			require.NoError(t, err)
			return ans
		}(),
	} {
		for _, v := range convert(tr) {
			assert.LessOrEqual(t, v, byte(2))
		}
	}
	// absolute colorimetric never compensates
	absolute := convert(link(t, types.CMYK8, types.RGB8, types.AbsoluteColorimetric, types.BlackPointCompensation, printer, profile.NewSRGB()))
	for _, v := range absolute {
		assert.InDelta(t, floor, float64(v), 2)
	}
}

func TestAbsoluteColorimetric(t *testing.T) {
	w := colorconv.WhiteD50
	paper := cmyk(t, profile.CMYKOptions{PaperWhite: colorconv.Vec3{0.9 * w[0], 0.9 * w[1], 0.9 * w[2]}})
	convert := func(intent types.Intent) []byte {
		tr := link(t, types.CMYK8, types.RGB8, intent, 0, paper, profile.NewSRGB())
		dst := make([]byte, 3)
		tr.DoTransform([]byte{0, 0, 0, 0}, dst, 1)
		return dst
	}
	assert.Equal(t, []byte{255, 255, 255}, convert(types.RelativeColorimetric))
	tr := link(t, types.CMYK8, types.RGB8, types.AbsoluteColorimetric, 0, paper, profile.NewSRGB())
	assert.True(t, tr.Flags().Has(types.NoWhiteOnWhiteFixup), "white is not white on other paper")
	expected := 255 * colorconv.LinearToSRGB(0.9)
	for _, v := range convert(types.AbsoluteColorimetric) {
		assert.InDelta(t, expected, float64(v), 2)
	}
}

func TestMultiprofileErrors(t *testing.T) {
	srgb := profile.NewSRGB()
	two := []profile.Profile{srgb, srgb}
	for _, tc := range []struct {
		name       string
		profiles   []profile.Profile
		intents    []types.Intent
		bpc        []bool
		adaptation []float64
		in, out    types.PixelFormat
	}{
		{"no profiles", nil, []types.Intent{types.Perceptual}, nil, nil, types.RGB8, types.RGB8},
		{"nil profile", []profile.Profile{srgb, nil}, []types.Intent{types.Perceptual}, nil, nil, types.RGB8, types.RGB8},
		{"intent count", two, []types.Intent{types.Perceptual, types.Perceptual, types.Perceptual}, nil, nil, types.RGB8, types.RGB8},
		{"bpc count", two, []types.Intent{types.Perceptual}, []bool{true}, nil, types.RGB8, types.RGB8},
		{"adaptation count", two, []types.Intent{types.Perceptual}, nil, []float64{1}, types.RGB8, types.RGB8},
		{"adaptation range", two, []types.Intent{types.Perceptual}, nil, []float64{1, 2}, types.RGB8, types.RGB8},
		{"input model", two, []types.Intent{types.Perceptual}, nil, nil, types.CMYK8, types.RGB8},
		{"output model", two, []types.Intent{types.Perceptual}, nil, nil, types.RGB8, types.Lab16},
		{"unknown intent", two, []types.Intent{types.Intent(99)}, nil, nil, types.RGB8, types.RGB8},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateMultiprofileTransform(tc.profiles, tc.intents, tc.bpc, tc.adaptation, tc.in, tc.out, 0)
			assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		})
	}
	// formats without a model take whatever the chain produces
	unknown := types.RGB8
	unknown.Model = types.UnknownModel
	_, err := CreateMultiprofileTransform(two, []types.Intent{types.Perceptual}, nil, nil, unknown, unknown, 0)
	assert.NoError(t, err)
}

func TestEmptyLayer(t *testing.T) {
	m := colorconv.IdentityMat3()
	assert.True(t, is_empty_layer(m, colorconv.Vec3{}))
	assert.True(t, is_empty_layer(m, colorconv.Vec3{0.001, 0, 0}))
	m[0][1] = 0.01
	assert.False(t, is_empty_layer(m, colorconv.Vec3{}))
}
