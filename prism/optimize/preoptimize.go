package optimize

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
)

var _ = fmt.Print

func is_noop(s pipeline.Stage) bool {
	switch s := s.(type) {
	case *pipeline.Identity:
		return true
	case *pipeline.CurveSet:
		return s.IsLinear(curve.LinearTolerance)
	case *pipeline.Matrix:
		return s.IsIdentity()
	}
	return false
}

func cancel_out(a, b pipeline.Stage) bool {
	ca, ok := a.(*pipeline.Custom)
	if !ok {
		return false
	}
	cb, ok := b.(*pipeline.Custom)
	if !ok {
		return false
	}
	inv, found := pipeline.InverseTags[ca.Tag()]
	return found && inv == cb.Tag()
}

// multiply composes two affine stages, first a then b.
func multiply(a, b *pipeline.Matrix) (*pipeline.Matrix, error) {
	a_in, a_out := a.IOSig()
	_, b_out := b.IOSig()
	am, bm := a.Coefficients(), b.Coefficients()
	ao, bo := a.Offset(), b.Offset()
	m := make([]float64, b_out*a_in)
	var offset []float64
	if ao != nil || bo != nil {
		offset = make([]float64, b_out)
	}
	for r := range b_out {
		for c := range a_in {
			var s float64
			for k := range a_out {
				s += bm[r*a_out+k] * am[k*a_in+c]
			}
			m[r*a_in+c] = s
		}
		if offset != nil {
			if ao != nil {
				for k := range a_out {
					offset[r] += bm[r*a_out+k] * ao[k]
				}
			}
			if bo != nil {
				offset[r] += bo[r]
			}
		}
	}
	return pipeline.NewMatrix(b_out, a_in, m, offset)
}

func preoptimize_pass(stages []pipeline.Stage) ([]pipeline.Stage, bool) {
	changed := false
	ans := make([]pipeline.Stage, 0, len(stages))
	for _, s := range stages {
		if is_noop(s) {
			changed = true
			continue
		}
		if len(ans) > 0 {
			prev := ans[len(ans)-1]
			if cancel_out(prev, s) {
				ans = ans[:len(ans)-1]
				changed = true
				continue
			}
			pm, pok := prev.(*pipeline.Matrix)
			sm, sok := s.(*pipeline.Matrix)
			if pok && sok {
				if combined, err := multiply(pm, sm); err == nil {
					ans[len(ans)-1] = combined
					changed = true
					continue
				}
			}
		}
		ans = append(ans, s)
	}
	return ans, changed
}

// PreOptimize returns a simplified copy of p: identity stages and linear
// curve sets are dropped, adjacent stages that undo each other are removed
// and runs of matrices are multiplied together. It repeats until nothing
// changes. The result may have no stages.
func PreOptimize(p *pipeline.Pipeline) (*pipeline.Pipeline, bool) {
	in, out := p.IOSig()
	stages := p.Clone().Stages()
	any_change := false
	for {
		var changed bool
		if stages, changed = preoptimize_pass(stages); !changed {
			break
		}
		any_change = true
	}
	if len(stages) == 0 {
		if in != out {
			// nothing can turn n channels into m, keep the original
			return p.Clone(), false
		}
		return pipeline.New(in, out), any_change
	}
	ans, err := pipeline.FromStages(stages...)
	if err != nil {
		return p.Clone(), false
	}
	return ans, any_change
}
