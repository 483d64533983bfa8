package cmspipe

import (
	"fmt"
	"testing"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/kovidgoyal/cmspipe/prism/optimize"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/prism/profile"
	"github.com/kovidgoyal/cmspipe/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

type squared struct{}

func (squared) Transform(x float64) float64        { return x * x }
func (squared) InverseTransform(y float64) float64 { return y }
func (squared) String() string                     { return "squared" }

func TestContextIsolation(t *testing.T) {
	base := DefaultContext()
	called := false
	c := NewContext(WithIntentHandler(types.Saturation, func(*Context, []profile.Profile, []types.Intent, []bool, []float64, types.Flags) (*pipeline.Pipeline, error) {
		called = true
		return pipeline.New(3, 3), nil
	}))
	_, err := c.CreateMultiprofileTransform([]profile.Profile{profile.NewSRGB(), profile.NewSRGB()}, []types.Intent{types.Saturation}, nil, nil, types.RGB8, types.RGB8, 0)
	require.NoError(t, err)
	assert.True(t, called)

	called = false
	_, err = base.CreateMultiprofileTransform([]profile.Profile{profile.NewSRGB(), profile.NewSRGB()}, []types.Intent{types.Saturation}, nil, nil, types.RGB8, types.RGB8, 0)
	require.NoError(t, err)
	assert.False(t, called, "the default context was modified")

	d := c.With(WithIntentHandler(types.Saturation, nil))
	_, found := d.IntentHandler(types.Saturation)
	assert.False(t, found)
	_, found = c.IntentHandler(types.Saturation)
	assert.True(t, found)
	_, err = d.CreateMultiprofileTransform([]profile.Profile{profile.NewSRGB()}, []types.Intent{types.Saturation}, nil, nil, types.RGB8, types.XYZFloat, 0)
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
}

func TestContextFormulas(t *testing.T) {
	c := NewContext(WithFormulas(curve.Formula{ID: 500, Build: func([]float64) (curve.Function, error) { return squared{}, nil }}))
	tc, err := c.ParametricCurve(500)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, tc.Evaluate(0.5), 1e-6)
	// built-in formulas are still there
	_, err = c.ParametricCurve(1, 2.2)
	require.NoError(t, err)
	_, found := DefaultContext().Formulas().Lookup(500)
	assert.False(t, found)

	var reported []*cmserr.Error
	c = c.With(WithErrorHandler(func(e *cmserr.Error) { reported = append(reported, e) }))
	_, err = c.ParametricCurve(501)
	require.Error(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, err, error(reported[0]))
}

func TestContextInterpolators(t *testing.T) {
	constant := func(p *interp.Params, trilinear bool) (interp.Interpolator, bool) {
		return interp.Interpolator{
			Name:      "Constant",
			EvalFloat: func(in, out []float32) { out[0] = 0.5 },
			Eval16:    func(in, out []uint16) { out[0] = 0x8000 },
		}, p.NumOutputs == 1
	}
	c := NewContext(WithInterpolatorFactory(constant))
	p, err := interp.NewFloatGrid(interp.UniformGrid(2, 3), 1)
	require.NoError(t, err)
	clut, err := c.NewCLUT(p, false)
	require.NoError(t, err)
	assert.Equal(t, "Constant", clut.Interpolator().Name)

	clut, err = DefaultContext().NewCLUT(p, false)
	require.NoError(t, err)
	assert.NotEqual(t, "Constant", clut.Interpolator().Name)
}

func TestContextFormatters(t *testing.T) {
	asked := 0
	c := NewContext(WithFormatterFactory(func(f types.PixelFormat) (formatter.Formatter, bool) {
		asked++
		if f.Model != types.Gray {
			return nil, false
		}
		g := *formatter.NewGeneric(f)
		return inverted{&g}, true
	}))
	tr, err := c.CreateTransform(types.Gray8, types.RGB8, pipe(t, fan_out(t)), types.Perceptual, types.NoOptimize)
	require.NoError(t, err)
	assert.Equal(t, 2, asked)
	dst := make([]byte, 3)
	tr.DoTransform([]byte{0}, dst, 1)
	assert.Equal(t, []byte{255, 255, 255}, dst)
}

// inverted reads gray samples upside down
type inverted struct{ *formatter.Generic }

func (f inverted) Unpack16(dst []uint16, buf []byte, off []int) {
	f.Generic.Unpack16(dst, buf, off)
	dst[0] = 0xffff - dst[0]
}

func fan_out(t *testing.T) *pipeline.Custom {
	c, err := pipeline.NewCustom("fan out", 1, 3, pipeline.EvaluatorFunc(func(in, out []float32) {
		out[0], out[1], out[2] = in[0], in[0], in[0]
	}))
	require.NoError(t, err)
	return c
}

func TestContextOptimizers(t *testing.T) {
	c := NewContext(WithOptimizer(optimize.Matcher{Name: "Everything", Match: func(r *optimize.Request) (optimize.Result, bool) {
		return optimize.Result{
			Pipeline: r.Pipeline, Name: "Everything", Flags: r.Flags,
			Eval16: func(in, out []uint16) { out[0], out[1], out[2] = 1, 2, 3 },
		}, true
	}}))
	tr, err := c.CreateTransform(types.RGB16, types.RGB16, shaper(t), types.Perceptual, 0)
	require.NoError(t, err)
	assert.Equal(t, "Everything", tr.Optimization())
	tr, err = DefaultContext().CreateTransform(types.RGB16, types.RGB16, shaper(t), types.Perceptual, 0)
	require.NoError(t, err)
	assert.NotEqual(t, "Everything", tr.Optimization())
}

func TestContextGridPoints(t *testing.T) {
	c := NewContext(WithGridPointsFunc(func(types.ColorModel, int, types.Flags) int { return 5 }))
	assert.Equal(t, 5, c.ReasonableGridPoints(types.RGB, 3, 0))
	assert.Equal(t, 33, DefaultContext().ReasonableGridPoints(types.RGB, 3, 0))
	assert.Equal(t, 9, DefaultContext().ReasonableGridPoints(types.RGB, 3, types.GridPoints(9)))
	// nil restores the heuristic
	assert.Equal(t, 17, c.With(WithGridPointsFunc(nil)).ReasonableGridPoints(types.CMYK, 4, 0))

	tr, err := c.CreateTransform(types.RGB16, types.RGB16, mixer(t), types.Perceptual, 0)
	require.NoError(t, err)
	require.Equal(t, "Resample16", tr.Optimization())
	clut, ok := tr.Pipeline().Stage(tr.Pipeline().Len() - 1).(*pipeline.CLUT)
	require.True(t, ok)
	assert.Equal(t, []int{5, 5, 5}, clut.Params().GridPoints)
}
