package profile

import (
	"fmt"
	"math"
	"testing"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

func eval(t *testing.T, p *pipeline.Pipeline, in ...float32) []float32 {
	t.Helper()
	_, n := p.IOSig()
	out := make([]float32, types.MaxChannels)
	p.Eval(in, out)
	return out[:n]
}

func to_pcs(t *testing.T, p Profile) *pipeline.Pipeline {
	ans, err := p.ToPCS(types.RelativeColorimetric)
	require.NoError(t, err)
	return ans
}

func from_pcs(t *testing.T, p Profile) *pipeline.Pipeline {
	ans, err := p.FromPCS(types.RelativeColorimetric)
	require.NoError(t, err)
	return ans
}

func TestSRGB(t *testing.T) {
	p := NewSRGB()
	assert.Equal(t, types.RGB, p.ColorSpace())
	assert.Equal(t, types.XYZ, p.PCS())
	assert.Equal(t, 3, p.Channels())
	assert.True(t, IsMatrixShaper(p))

	fwd, back := to_pcs(t, p), from_pcs(t, p)
	white := PCSToXYZ(types.XYZ, eval(t, fwd, 1, 1, 1))
	for i := range 3 {
		assert.InDelta(t, colorconv.WhiteD50[i], white[i], 1e-3)
	}
	m, err := colorconv.RGBToXYZMatrix(colorconv.SRGBPrimaries)
	require.NoError(t, err)
	for _, c := range []colorful.Color{{R: 0.5, G: 0.2, B: 0.8}, {R: 0.05, G: 0.9, B: 0.3}, {R: 0.7, G: 0.7, B: 0.7}} {
		r, g, b := c.LinearRgb()
		expected := m.Apply(colorconv.Vec3{r, g, b})
		actual := PCSToXYZ(types.XYZ, eval(t, fwd, float32(c.R), float32(c.G), float32(c.B)))
		for i := range 3 {
			assert.InDelta(t, expected[i], actual[i], 1e-4, "%v", c)
		}
		assert.InDeltaSlice(t, []float32{float32(c.R), float32(c.G), float32(c.B)}, eval(t, back, eval(t, fwd, float32(c.R), float32(c.G), float32(c.B))...), 1e-4)
	}

	_, err = p.ToneCurve(GreenTRC)
	require.NoError(t, err)
	_, err = p.ToneCurve(GrayTRC)
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
}

func TestGray(t *testing.T) {
	p, err := NewGray(2.2)
	require.NoError(t, err)
	assert.Equal(t, types.Gray, p.ColorSpace())
	assert.True(t, IsMatrixShaper(p))
	fwd, back := to_pcs(t, p), from_pcs(t, p)
	xyz := PCSToXYZ(types.XYZ, eval(t, fwd, 0.5))
	y := math.Pow(0.5, 2.2)
	for i := range 3 {
		assert.InDelta(t, colorconv.WhiteD50[i]*y, xyz[i], 1e-5)
	}
	assert.InDelta(t, 0.5, eval(t, back, eval(t, fwd, 0.5)...)[0], 1e-4)
	_, err = p.ToneCurve(RedTRC)
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	_, err = NewGray(0)
	assert.Error(t, err)
}

func TestLab(t *testing.T) {
	p := NewLab()
	assert.True(t, p.Class().IsDeviceLink())
	assert.False(t, IsMatrixShaper(p))
	assert.Equal(t, []float32{0.3, 0.4, 0.7}, eval(t, to_pcs(t, p), 0.3, 0.4, 0.7))
	assert.Equal(t, []float32{0.3, 0.4, 0.7}, eval(t, from_pcs(t, p), 0.3, 0.4, 0.7))
	assert.Equal(t, colorconv.Vec3{}, p.BlackPoint(types.Perceptual))
}

func TestSyntheticCMYK(t *testing.T) {
	p, err := NewSyntheticCMYK(CMYKOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.CMYK, p.ColorSpace())
	assert.Equal(t, types.Lab, p.PCS())
	assert.Equal(t, OutputClass, p.Class())
	assert.False(t, IsMatrixShaper(p))
	fwd, back := to_pcs(t, p), from_pcs(t, p)

	assert.InDeltaSlice(t, []float32{1, 128.0 / 255, 128.0 / 255}, eval(t, fwd, 0, 0, 0, 0), 2e-3)
	assert.InDelta(t, 0, eval(t, fwd, 0, 0, 0, 1)[0], 1e-3)

	// colors inside the gamut survive a trip through the printer
	for _, c := range []colorful.Color{{R: 0.5, G: 0.5, B: 0.5}, {R: 0.8, G: 0.3, B: 0.2}, {R: 0.2, G: 0.6, B: 0.7}} {
		L, a, b := c.Lab()
		l, aa, bb := colorconv.NormalizeLab(L*100, a*100, b*100)
		// go-colorful uses D65, which is fine as a source of in gamut Lab
		lab := []float32{float32(l), float32(aa), float32(bb)}
		assert.InDeltaSlice(t, lab, eval(t, fwd, eval(t, back, lab...)...), 0.02, "%v", c)
	}

	_, err = NewSyntheticCMYK(CMYKOptions{InkFloor: 1})
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
}

func TestBlackPoints(t *testing.T) {
	black := NewSRGB().BlackPoint(types.Perceptual)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, black[:], 1e-6)
	assert.Equal(t, colorconv.Vec3{}, NewSRGB().BlackPoint(types.AbsoluteColorimetric))

	p, err := NewSyntheticCMYK(CMYKOptions{InkFloor: 0.05})
	require.NoError(t, err)
	for _, intent := range []types.Intent{types.Perceptual, types.RelativeColorimetric} {
		bp := p.BlackPoint(intent)
		y := colorconv.SRGBToLinear(0.05)
		assert.InDelta(t, y, bp[1], 2e-3, "%s", intent)
		// black points are neutral
		assert.InDelta(t, colorconv.WhiteD50[0]*bp[1], bp[0], 1e-9)
		assert.InDelta(t, colorconv.WhiteD50[2]*bp[1], bp[2], 1e-9)
	}
}

func TestDeviceBlack(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0}, DeviceBlack(types.RGB, 3))
	assert.Equal(t, []float32{1, 1, 1, 1}, DeviceBlack(types.CMYK, 4))
	assert.Equal(t, []float32{0}, DeviceBlack(types.Gray, 1))
	assert.Nil(t, DeviceBlack(types.XYZ, 3))
}

func TestPCSConversions(t *testing.T) {
	for _, pcs := range []types.ColorModel{types.XYZ, types.Lab} {
		xyz := colorconv.Vec3{0.3, 0.4, 0.2}
		actual := PCSToXYZ(pcs, XYZToPCS(pcs, xyz))
		for i := range 3 {
			assert.InDelta(t, xyz[i], actual[i], 1e-5, "%s", pcs)
		}
	}
}
