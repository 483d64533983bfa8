package interp

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
)

var _ = fmt.Print

// Interpolator evaluates a grid at a point. Both entry points are always
// set. The float path works in [0,1] units, the 16 bit path over the full
// uint16 range.
type Interpolator struct {
	Name      string
	EvalFloat func(in, out []float32)
	Eval16    func(in, out []uint16)
}

// Factory builds an interpolator for the grid or reports that it cannot
// handle it.
type Factory func(p *Params, trilinear bool) (Interpolator, bool)

func quantize(v float32) uint16 {
	d := float64(v)*0xffff + 0.5
	if !(d > 0) {
		return 0
	}
	if d >= 0xffff {
		return 0xffff
	}
	return uint16(d)
}

// DefaultFactory handles every grid NewParams accepts.
func DefaultFactory(p *Params, trilinear bool) (ans Interpolator, ok bool) {
	if p.Table != nil {
		ans.Name, ans.EvalFloat = float_evaluator(p, p.Table, 1, trilinear)
		ef, nin, nout := ans.EvalFloat, p.NumInputs, p.NumOutputs
		ans.Eval16 = func(in, out []uint16) {
			var fi [MaxInputDimensions]float32
			var fo [MaxOutputChannels]float32
			for i, v := range in[:nin] {
				fi[i] = float32(v) / 0xffff
			}
			ef(fi[:nin], fo[:nout])
			for i, v := range fo[:nout] {
				out[i] = quantize(v)
			}
		}
		return ans, true
	}
	if p.Table16 != nil {
		ans.Name, ans.Eval16 = evaluator16(p, trilinear)
		_, ans.EvalFloat = float_evaluator(p, p.Table16, 1.0/0xffff, trilinear)
		return ans, true
	}
	return ans, false
}

// New returns an interpolator from the first factory that accepts the
// grid, falling back to DefaultFactory.
func New(p *Params, trilinear bool, factories ...Factory) (Interpolator, error) {
	if p == nil || (p.Table == nil && p.Table16 == nil) {
		return Interpolator{}, cmserr.Configurationf("interp.New", "grid has no samples")
	}
	for _, f := range factories {
		if f == nil {
			continue
		}
		if ans, ok := f(p, trilinear); ok {
			if ans.EvalFloat == nil || ans.Eval16 == nil {
				return Interpolator{}, cmserr.Pluginf("interp.New", "interpolator %#v is missing an evaluation path", ans.Name)
			}
			return ans, nil
		}
	}
	ans, _ := DefaultFactory(p, trilinear)
	return ans, nil
}
