package optimize

import (
	"fmt"
	"math"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

const (
	// Samples in the float curve and shaper tables
	FloatTableSize = 0x8001
	// Tolerance for deciding that a float composite curve is the identity
	linear_curves_epsilon = 0.00001
)

// CompositeCurves evaluates a pipeline made only of curve sets at n evenly
// spaced points, returning one table per channel.
func CompositeCurves(p *pipeline.Pipeline, n int) ([][]float32, error) {
	const op = "optimize.CompositeCurves"
	if n < 2 {
		return nil, cmserr.Configurationf(op, "at least two samples are needed, not %d", n)
	}
	in, out := p.IOSig()
	if in != out {
		return nil, cmserr.Configurationf(op, "curve pipelines map n channels onto n, not %d onto %d", in, out)
	}
	ans := make([][]float32, in)
	for c := range ans {
		ans[c] = make([]float32, n)
	}
	var ib, ob [types.MaxChannels]float32
	for i := range n {
		v := float32(float64(i) / float64(n-1))
		for c := range in {
			ib[c] = v
		}
		p.Eval(ib[:], ob[:])
		for c := range in {
			ans[c][i] = ob[c]
		}
	}
	return ans, nil
}

func only_curves(p *pipeline.Pipeline) bool {
	for _, s := range p.Stages() {
		if s.Kind() != pipeline.KindCurveSet {
			return false
		}
	}
	return true
}

// JoinCurves collapses a pipeline consisting only of curve sets into one
// lookup table per channel. Composites that turn out to be the identity
// become plain copies.
func JoinCurves(r *Request) (Result, bool) {
	in, out := r.Input, r.Output
	if in.Channels != out.Channels || !only_curves(r.Pipeline) {
		return Result{}, false
	}
	if pi, po := r.Pipeline.IOSig(); pi != in.Channels || po != out.Channels {
		return Result{}, false
	}
	switch {
	case in.IsFloat() && out.IsFloat():
		return join_curves_float(r)
	case in.IsFloat() || out.IsFloat():
		// the integer tables would lose precision
		return Result{}, false
	case in.Layout == types.Int8 && out.Layout == types.Int8 && (in.Channels == 1 || in.Channels == 3) && !in.Reversed && !out.Reversed:
		return join_curves_8(r)
	}
	return join_curves_16(r)
}

func join_curves_8(r *Request) (Result, bool) {
	tables, err := CompositeCurves(r.Pipeline, 256)
	if err != nil {
		r.report("optimize.JoinCurves", err)
		return Result{}, false
	}
	n := len(tables)
	var lut [types.MaxChannels][256]uint8
	linear := true
	for c, t := range tables {
		for i, v := range t {
			lut[c][i] = formatter.From16To8(curve.QuantizeFloat(v))
			if lut[c][i] != uint8(i) {
				linear = false
			}
		}
	}
	flags := (r.Flags | types.NoCache) &^ types.CanChangeFormatter
	walker := formatter.NewWalker(r.Input, r.Output, r.Flags.Has(types.CopyAlpha))
	ans := Result{Pipeline: r.Pipeline, Flags: flags}
	if linear {
		ans.Name = "Identity8"
		ans.Worker = func(src, dst []byte, lines formatter.Lines) {
			walker.Run(src, dst, lines, func(soff, doff []int) {
				for c := range n {
					dst[doff[c]] = src[soff[c]]
				}
			})
		}
		return ans, true
	}
	ans.Name = "JoinCurves8"
	ans.Worker = func(src, dst []byte, lines formatter.Lines) {
		walker.Run(src, dst, lines, func(soff, doff []int) {
			for c := range n {
				dst[doff[c]] = lut[c][src[soff[c]]]
			}
		})
	}
	return ans, true
}

func join_curves_16(r *Request) (Result, bool) {
	tables, err := CompositeCurves(r.Pipeline, 0x10000)
	if err != nil {
		r.report("optimize.JoinCurves", err)
		return Result{}, false
	}
	n := len(tables)
	lut := make([][]uint16, n)
	linear := true
	for c, t := range tables {
		lut[c] = make([]uint16, len(t))
		for i, v := range t {
			lut[c][i] = curve.QuantizeFloat(v)
			if lut[c][i] != uint16(i) {
				linear = false
			}
		}
	}
	if linear {
		ans := identity_result(r.Pipeline, r.Flags)
		ans.Name = "Identity16"
		return ans, true
	}
	return Result{
		Pipeline: r.Pipeline, Name: "JoinCurves16", Flags: r.Flags,
		Eval16: func(in, out []uint16) {
			for c, t := range lut {
				out[c] = t[in[c]]
			}
		},
	}, true
}

func join_curves_float(r *Request) (Result, bool) {
	tables, err := CompositeCurves(r.Pipeline, FloatTableSize)
	if err != nil {
		r.report("optimize.JoinCurves", err)
		return Result{}, false
	}
	linear := true
	for _, t := range tables {
		for i, v := range t {
			if math.Abs(float64(v)-float64(i)/(FloatTableSize-1)) > linear_curves_epsilon {
				linear = false
				break
			}
		}
	}
	if linear {
		ans := identity_result(r.Pipeline, r.Flags)
		ans.Name = "IdentityFloat"
		return ans, true
	}
	return Result{
		Pipeline: r.Pipeline, Name: "JoinCurvesFloat", Flags: r.Flags,
		EvalFloat: func(in, out []float32) {
			for c, t := range tables {
				out[c] = curve.Lerp(t, in[c])
			}
		},
		Eval16: func(in, out []uint16) {
			for c, t := range tables {
				out[c] = curve.QuantizeFloat(curve.Lerp(t, float32(in[c])/0xffff))
			}
		},
	}, true
}
