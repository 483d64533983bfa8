// Package optimize replaces generic pipeline interpretation with faster
// evaluators specialized for a pipeline shape and a pair of pixel formats.
//
// Matchers are tried in a fixed order and the first one to accept wins.
// Every matcher is best effort: when its preconditions do not hold or it
// cannot build its state it reports no match and the caller falls back to
// interpreting the pipeline.
package optimize

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// Worker converts whole buffers, bypassing the formatters. The buffer
// formats are fixed when the worker is built.
type Worker func(src, dst []byte, lines formatter.Lines)

// GridPointsFunc picks the number of grid points per axis used when
// resampling a pipeline whose input is in the given color model.
type GridPointsFunc func(m types.ColorModel, channels int, flags types.Flags) int

type Request struct {
	// Never modified, matchers work on copies
	Pipeline      *pipeline.Pipeline
	Input, Output types.PixelFormat
	Intent        types.Intent
	Flags         types.Flags
	// nil means ReasonableGridPoints
	GridPoints GridPointsFunc
	// Consulted when building CLUT stages
	Interpolators []interp.Factory
	// Receives diagnostics from matchers that fail closed, may be nil
	Report func(err error)
}

func (r *Request) grid_points(m types.ColorModel, channels int) int {
	if r.GridPoints != nil {
		return r.GridPoints(m, channels, r.Flags)
	}
	return ReasonableGridPoints(m, channels, r.Flags)
}

func (r *Request) report(op string, err error) {
	if r.Report != nil && err != nil {
		r.Report(cmserr.Wrap(cmserr.Resource, op, err))
	}
}

func (r *Request) trilinear() bool { return r.Flags.Has(types.Trilinear) }

// Result is what a transform evaluates. Pipeline is always set and is
// equivalent to the original. The evaluator fields are optional: Worker
// takes precedence over EvalFloat and Eval16, a nil evaluator means the
// pipeline is interpreted.
type Result struct {
	Pipeline  *pipeline.Pipeline
	Name      string
	Eval16    func(in, out []uint16)
	EvalFloat func(in, out []float32)
	Worker    Worker
	Flags     types.Flags
}

func (r Result) IsOptimized() bool { return r.Name != "" }

// Matcher recognizes a pipeline shape. Match is called with a pipeline
// that has already been through PreOptimize and has at least one stage.
type Matcher struct {
	Name  string
	Match func(r *Request) (Result, bool)
}

// Default is the built-in matcher list in priority order.
var Default = []Matcher{
	{"MatrixShaper", MatrixShaper},
	{"JoinCurves", JoinCurves},
	{"Resample", Resample},
}

// ReasonableGridPoints returns the grid size used when resampling a
// pipeline whose input has the given number of channels.
func ReasonableGridPoints(m types.ColorModel, channels int, flags types.Flags) int {
	if n := flags.RequestedGridPoints(); n > 0 {
		return n
	}
	if m.NumberOfChannels() > 0 {
		channels = m.NumberOfChannels()
	}
	switch {
	case flags.Has(types.HighResPrecalc):
		switch {
		case channels > 4:
			return 7
		case channels == 4:
			return 23
		}
		return 49
	case flags.Has(types.LowResPrecalc):
		switch {
		case channels > 4:
			return 6
		case channels == 1:
			return 33
		}
		return 17
	}
	switch {
	case channels > 4:
		return 7
	case channels == 4:
		return 17
	}
	return 33
}

func copy16(in, out []uint16, n int) { copy(out[:n], in[:n]) }
func copyf(in, out []float32, n int) { copy(out[:n], in[:n]) }
func identity_result(p *pipeline.Pipeline, flags types.Flags) Result {
	n, _ := p.IOSig()
	return Result{
		Pipeline: p, Name: "Identity", Flags: flags,
		Eval16:    func(in, out []uint16) { copy16(in, out, n) },
		EvalFloat: func(in, out []float32) { copyf(in, out, n) },
	}
}

// Optimize runs the matchers over r.Pipeline, which is left untouched.
// Pipelines with named color stages and requests carrying NoOptimize are
// interpreted as is. ForceCLUT skips every matcher except resampling.
func Optimize(r Request, matchers ...Matcher) Result {
	ans := Result{Pipeline: r.Pipeline, Flags: r.Flags}
	if r.Flags.Has(types.NoOptimize) || r.Pipeline.Has(pipeline.KindNamedColor) {
		return ans
	}
	p, _ := PreOptimize(r.Pipeline)
	ans.Pipeline = p
	if p.Len() == 0 {
		return identity_result(p, r.Flags)
	}
	r.Pipeline = p
	if r.Flags.Has(types.ForceCLUT) {
		matchers = []Matcher{{"Resample", Resample}}
	}
	for _, m := range matchers {
		if m.Match == nil {
			continue
		}
		if res, ok := m.Match(&r); ok {
			if res.Pipeline == nil {
				r.report("optimize.Optimize", cmserr.Pluginf("optimize.Optimize", "the %s optimizer returned no pipeline", m.Name))
				continue
			}
			if res.Name == "" {
				res.Name = m.Name
			}
			if res.Worker != nil {
				// workers are bound to the buffer formats
				res.Flags &^= types.CanChangeFormatter
			}
			return res
		}
	}
	return ans
}
