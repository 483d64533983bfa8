package pipeline

import (
	"fmt"
	"math"
	"testing"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

func gamma_set(t *testing.T, g ...float64) *CurveSet {
	c := make([]*curve.ToneCurve, len(g))
	for i, x := range g {
		var err error
		c[i], err = curve.NewGamma(x)
		require.NoError(t, err)
	}
	ans, err := NewCurveSet(c...)
	require.NoError(t, err)
	return ans
}

func eval(p interface{ Eval(in, out []float32) }, in ...float32) []float32 {
	out := make([]float32, 16)
	p.Eval(in, out)
	return out
}

func TestStages(t *testing.T) {
	t.Run("CurveSet", func(t *testing.T) {
		c := gamma_set(t, 1, 2, 0.5)
		assert.InDeltaSlice(t, []float32{0.25, 0.0625, 0.5}, eval(c, 0.25, 0.25, 0.25)[:3], 1e-6)
		i, o := c.IOSig()
		assert.Equal(t, []int{3, 3}, []int{i, o})
		assert.False(t, c.IsLinear(curve.LinearTolerance))
		id, err := NewIdentityCurves(3)
		require.NoError(t, err)
		assert.True(t, id.IsLinear(curve.LinearTolerance))
		_, err = NewCurveSet()
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		_, err = NewCurveSet(nil)
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	})
	t.Run("Matrix", func(t *testing.T) {
		m, err := NewMatrix(2, 3, []float64{1, 2, 3, 0, 1, 0}, []float64{0.5, -0.5})
		require.NoError(t, err)
		i, o := m.IOSig()
		assert.Equal(t, []int{3, 2}, []int{i, o})
		assert.InDeltaSlice(t, []float32{0.5 + 0.1 + 0.4 + 0.9, -0.3}, eval(m, 0.1, 0.2, 0.3)[:2], 1e-6)
		_, err = NewMatrix(2, 2, []float64{1, 2, 3}, nil)
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		_, err = NewMatrix(2, 2, []float64{1, 2, 3, 4}, []float64{1})
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		assert.True(t, NewMatrix3(colorconv.IdentityMat3(), nil).IsIdentity())
		assert.False(t, NewMatrix3(colorconv.IdentityMat3(), &colorconv.Vec3{0, 0.1, 0}).IsIdentity())
		mm, off, ok := NewMatrix3(colorconv.Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, &colorconv.Vec3{1, 2, 3}).AsMat3()
		require.True(t, ok)
		assert.Equal(t, colorconv.Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, mm)
		assert.Equal(t, colorconv.Vec3{1, 2, 3}, off)
		_, _, ok = m.AsMat3()
		assert.False(t, ok)
	})
	t.Run("CLUT", func(t *testing.T) {
		c, err := SampleCLUT([]int{3, 3}, 1, false, func(in, out []float32) error {
			out[0] = (in[0] + in[1]) / 2
			return nil
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.45, eval(c, 0.3, 0.6)[0], 1e-6)
		o16 := []uint16{0}
		c.Eval16([]uint16{0xffff, 0xffff}, o16)
		assert.Equal(t, uint16(0xffff), o16[0])
		cl := c.Clone().(*CLUT)
		cl.Params().Table[0] = 1
		assert.Equal(t, float32(0), c.Params().Table[0])
		_, err = SampleCLUT([]int{3, 3}, 1, false, func(in, out []float32) error { return cmserr.Domainf("test", "fail") })
		assert.ErrorIs(t, err, cmserr.ErrDomain)
		_, err = SampleCLUT([]int{1}, 1, false, func(in, out []float32) error { return nil })
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		assert.Equal(t, "CLUT{3x3→1 Linear2D}", c.String())
	})
	t.Run("Custom", func(t *testing.T) {
		c, err := NewCustom("swap", 2, 2, EvaluatorFunc(func(in, out []float32) { out[0], out[1] = in[1], in[0] }))
		require.NoError(t, err)
		assert.Equal(t, []float32{2, 1}, eval(c, 1, 2)[:2])
		assert.Equal(t, "swap", c.Clone().(*Custom).Tag())
		_, err = NewCustom("x", 2, 2, nil)
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		_, err = NewCustom("x", 0, 2, EvaluatorFunc(func(in, out []float32) {}))
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	})
	t.Run("NamedColor", func(t *testing.T) {
		n, err := NewNamedColor(2, []float32{0.1, 0.2}, []float32{0.3, 0.4})
		require.NoError(t, err)
		assert.Equal(t, []float32{0.3, 0.4}, eval(n, 1.0/0xffff)[:2])
		assert.Equal(t, []float32{0, 0}, eval(n, 0.5)[:2])
		_, err = NewNamedColor(2, []float32{0.1})
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	})
}

func TestPCSStages(t *testing.T) {
	lab := []float32{0.5, 0.6, 0.3}
	xyz := eval(NewLabToXYZ(), lab...)
	L, a, b := colorconv.DenormalizeLab(0.5, 0.6, 0.3)
	X, Y, Z := colorconv.LabToXYZ_D50(L, a, b)
	assert.InDelta(t, X/colorconv.MaxEncodeableXYZ, xyz[0], 1e-6)
	assert.InDelta(t, Y/colorconv.MaxEncodeableXYZ, xyz[1], 1e-6)
	assert.InDelta(t, Z/colorconv.MaxEncodeableXYZ, xyz[2], 1e-6)
	assert.InDeltaSlice(t, lab, eval(NewXYZToLab(), xyz[:3]...)[:3], 1e-5)

	v4 := eval(NewLabV2ToV4(), 0xff00/65535.0, 0.5, 0)
	assert.InDelta(t, 1, v4[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0xff00 / 65535.0, 0.5, 0}, eval(NewLabV4ToV2(), v4[:3]...)[:3], 1e-6)

	c, err := NewClipNegatives(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 0}, eval(c, -1, 0.5, float32(math.Inf(-1)))[:3])

	nl := eval(NewNormalizeFromLab(), 50, -28, 127)
	assert.InDeltaSlice(t, []float32{0.5, 100.0 / 255, 1}, nl[:3], 1e-6)
	assert.InDeltaSlice(t, []float32{50, -28, 127}, eval(NewNormalizeToLab(), nl[:3]...)[:3], 1e-4)

	assert.Equal(t, TagXYZToLab, InverseTags[TagLabToXYZ])
}

func TestBlackPointCorrection(t *testing.T) {
	in_bp := colorconv.Vec3{0.02, 0.021, 0.018}
	out_bp := colorconv.Vec3{0.004, 0.0041, 0.0035}
	m := NewBlackPointCorrection(in_bp, out_bp)
	n := func(v colorconv.Vec3) []float32 {
		x, y, z := colorconv.NormalizeXYZ(v[0], v[1], v[2])
		return []float32{float32(x), float32(y), float32(z)}
	}
	assert.InDeltaSlice(t, n(out_bp), eval(m, n(in_bp)...)[:3], 1e-6)
	assert.InDeltaSlice(t, n(colorconv.WhiteD50), eval(m, n(colorconv.WhiteD50)...)[:3], 1e-6)
	a := NewChromaticAdaptation(colorconv.WhiteD65, colorconv.WhiteD50)
	assert.InDeltaSlice(t, n(colorconv.WhiteD50), eval(a, n(colorconv.WhiteD65)...)[:3], 1e-4)
}

func TestPipelineAssembly(t *testing.T) {
	p := New(3, 3)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, eval(p, 0.1, 0.2, 0.3)[:3])
	c3 := gamma_set(t, 2, 2, 2)
	m, err := NewMatrix(1, 3, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, nil)
	require.NoError(t, err)
	c1 := gamma_set(t, 0.5)
	require.NoError(t, p.Append(c3, m))
	require.NoError(t, p.Append(c1))
	i, o := p.IOSig()
	assert.Equal(t, []int{3, 1}, []int{i, o})
	assert.InDelta(t, math.Sqrt((0.01+0.04+0.09)/3), eval(p, 0.1, 0.2, 0.3)[0], 1e-6)

	t.Run("mismatch", func(t *testing.T) {
		before := p.String()
		err := p.Append(gamma_set(t, 1, 1))
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		err = p.Insert(1, gamma_set(t, 1))
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		err = p.Insert(7, gamma_set(t, 1))
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		_, err = p.Remove(1)
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
		assert.Equal(t, before, p.String())
		assert.Equal(t, 3, p.Len())
	})
	t.Run("mutation", func(t *testing.T) {
		q := p.Clone()
		require.NoError(t, q.Prepend(gamma_set(t, 1, 1, 1)))
		require.NoError(t, q.Insert(4, gamma_set(t, 1)))
		assert.Equal(t, 5, q.Len())
		s, err := q.Remove(0)
		require.NoError(t, err)
		assert.Equal(t, KindCurveSet, s.Kind())
		_, ok := q.CheckAndRetrieve(KindCurveSet, KindMatrix, KindCurveSet, KindCurveSet)
		assert.True(t, ok)
		_, ok = q.CheckAndRetrieve(KindCurveSet, KindMatrix, KindCurveSet)
		assert.False(t, ok)
		assert.True(t, q.Has(KindMatrix))
		assert.False(t, q.Has(KindCLUT))
		assert.Equal(t, 3, p.Len())
	})
	t.Run("cat", func(t *testing.T) {
		q := New(0, 0)
		require.NoError(t, q.Cat(p))
		require.NoError(t, q.Cat(New(1, 1)))
		assert.Equal(t, 3, q.Len())
		assert.NotSame(t, p.Stage(0), q.Stage(0))
		assert.Equal(t, eval(p, 0.4, 0.5, 0.6), eval(q, 0.4, 0.5, 0.6))
		assert.ErrorIs(t, q.Cat(p), cmserr.ErrConfiguration)
	})
	t.Run("remove all", func(t *testing.T) {
		q, err := FromStages(gamma_set(t, 2, 2))
		require.NoError(t, err)
		_, err = q.Remove(0)
		require.NoError(t, err)
		i, o := q.IOSig()
		assert.Equal(t, []int{2, 2}, []int{i, o})
		assert.Equal(t, []float32{0.5, 0.25}, eval(q, 0.5, 0.25)[:2])
		_, err = FromStages()
		assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	})
	t.Run("eval16", func(t *testing.T) {
		q, err := FromStages(gamma_set(t, 1, 1, 1))
		require.NoError(t, err)
		out := make([]uint16, 3)
		q.Eval16([]uint16{0, 0x1234, 0xffff}, out)
		assert.Equal(t, []uint16{0, 0x1234, 0xffff}, out)
		New(3, 3).Eval16([]uint16{1, 2, 3}, out)
		assert.Equal(t, []uint16{1, 2, 3}, out)
	})
	assert.Contains(t, p.String(), " → Matrix1x3")
}

func TestCLUTInPipeline(t *testing.T) {
	table := make([]uint16, 0, 8*3)
	for i := range 2 {
		for j := range 2 {
			for k := range 2 {
				table = append(table, uint16((1-k)*0xffff), uint16((1-j)*0xffff), uint16((1-i)*0xffff))
			}
		}
	}
	params, err := interp.NewParams16(interp.UniformGrid(3, 2), 3, table)
	require.NoError(t, err)
	c, err := NewCLUT(params, false)
	require.NoError(t, err)
	p, err := FromStages(c)
	require.NoError(t, err)
	out := eval(p, 0.25, 0.5, 0.75)
	assert.InDeltaSlice(t, []float32{0.25, 0.5, 0.75}, out[:3], 1e-6)
	o16 := make([]uint16, 3)
	c.Eval16([]uint16{0x1234, 0x5678, 0x9abc}, o16)
	assert.Equal(t, []uint16{0xffff - 0x9abc, 0xffff - 0x5678, 0xffff - 0x1234}, o16)
}
