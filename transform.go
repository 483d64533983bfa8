package cmspipe

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/optimize"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
	"github.com/kovidgoyal/go-parallel"
)

var _ = fmt.Print

// Jobs smaller than this many pixels are not split across goroutines
const parallel_threshold = 16384

// Transform converts pixel buffers from one format to another through a
// pipeline. A Transform is read only once built, so any number of
// goroutines may convert buffers with it at the same time, as long as
// ChangeBuffersFormat is not called concurrently.
type Transform struct {
	ctx             *Context
	input, output   types.PixelFormat
	in_fmt, out_fmt formatter.Formatter
	intent          types.Intent
	flags           types.Flags
	result          optimize.Result
	walker          *formatter.Walker
	use_cache       bool
	// the last pixel converted, seeded at creation and copied by every call
	cache_in, cache_out [types.MaxChannels]uint16
	run                 func(src, dst []byte, lines formatter.Lines)
}

// CreateTransform builds a transform with the default context.
func CreateTransform(in, out types.PixelFormat, p *pipeline.Pipeline, intent types.Intent, flags types.Flags) (*Transform, error) {
	return DefaultContext().CreateTransform(in, out, p, intent, flags)
}

// CreateTransform builds a transform evaluating p over buffers of format in
// producing buffers of format out. p is not modified and may be reused. It
// may be nil only for NullTransform, which just repacks pixels.
func (c *Context) CreateTransform(in, out types.PixelFormat, p *pipeline.Pipeline, intent types.Intent, flags types.Flags) (*Transform, error) {
	const op = "cmspipe.CreateTransform"
	in_fmt, err := formatter.New(in, c.formatters...)
	if err != nil {
		return nil, c.report(cmserr.Wrap(cmserr.Configuration, op, err))
	}
	out_fmt, err := formatter.New(out, c.formatters...)
	if err != nil {
		return nil, c.report(cmserr.Wrap(cmserr.Configuration, op, err))
	}
	if flags.Has(types.CopyAlpha) && in.ExtraChannels != out.ExtraChannels {
		return nil, c.report(cmserr.Configurationf(op, "cannot copy %d extra channels into %d", in.ExtraChannels, out.ExtraChannels))
	}
	if intent == types.AbsoluteColorimetric {
		// paper white does not map onto device white
		flags |= types.NoWhiteOnWhiteFixup
	}
	ans := &Transform{ctx: c, input: in, output: out, in_fmt: in_fmt, out_fmt: out_fmt, intent: intent, flags: flags}
	if flags.Has(types.NullTransform) {
		if in.Channels != out.Channels {
			return nil, c.report(cmserr.Configurationf(op, "a null transform cannot change the number of channels from %d to %d", in.Channels, out.Channels))
		}
		if p == nil {
			p = pipeline.New(in.Channels, out.Channels)
		}
		ans.result = optimize.Result{Pipeline: p, Flags: flags}
		ans.bind()
		return ans, nil
	}
	if p == nil {
		return nil, c.report(cmserr.Configurationf(op, "no pipeline to evaluate"))
	}
	if pi, po := p.IOSig(); pi != in.Channels || po != out.Channels {
		return nil, c.report(cmserr.Configurationf(op, "the pipeline maps %d channels onto %d but the formats are %s and %s", pi, po, in, out))
	}
	ans.result = optimize.Optimize(optimize.Request{
		Pipeline: p, Input: in, Output: out, Intent: intent, Flags: flags,
		GridPoints: c.grid_points, Interpolators: c.interpolators,
		Report: func(err error) { c.report(err) },
	}, c.matchers()...)
	ans.use_cache = !ans.result.Flags.Has(types.NoCache) && !in.IsFloat() && !out.IsFloat()
	if ans.use_cache {
		ans.eval16(ans.cache_in[:], ans.cache_out[:])
	}
	ans.bind()
	return ans, nil
}

func (t *Transform) Context() *Context               { return t.ctx }
func (t *Transform) InputFormat() types.PixelFormat  { return t.input }
func (t *Transform) OutputFormat() types.PixelFormat { return t.output }
func (t *Transform) Intent() types.Intent            { return t.intent }
func (t *Transform) Flags() types.Flags              { return t.result.Flags }
func (t *Transform) Pipeline() *pipeline.Pipeline    { return t.result.Pipeline }

// Optimization names the specialized evaluator in use, empty when the
// pipeline is interpreted.
func (t *Transform) Optimization() string { return t.result.Name }

func (t *Transform) eval16(in, out []uint16) {
	if t.result.Eval16 != nil {
		t.result.Eval16(in, out)
	} else {
		t.result.Pipeline.Eval16(in, out)
	}
}

func (t *Transform) eval_float(in, out []float32) {
	if t.result.EvalFloat != nil {
		t.result.EvalFloat(in, out)
	} else {
		t.result.Pipeline.Eval(in, out)
	}
}

// bind picks the buffer loop for the current formats
func (t *Transform) bind() {
	t.walker = formatter.NewWalker(t.input, t.output, t.flags.Has(types.CopyAlpha))
	float := t.input.IsFloat() || t.output.IsFloat()
	switch {
	case t.flags.Has(types.NullTransform) && float:
		t.run = t.null_float
	case t.flags.Has(types.NullTransform):
		t.run = t.null16
	case t.result.Worker != nil:
		t.run = t.result.Worker
	case float:
		t.run = t.float_xform
	case t.use_cache:
		t.run = t.cached16
	default:
		t.run = t.xform16
	}
}

func (t *Transform) null16(src, dst []byte, lines formatter.Lines) {
	var w [types.MaxChannels]uint16
	t.walker.Run(src, dst, lines, func(soff, doff []int) {
		t.in_fmt.Unpack16(w[:], src, soff)
		t.out_fmt.Pack16(w[:], dst, doff)
	})
}

func (t *Transform) null_float(src, dst []byte, lines formatter.Lines) {
	var w [types.MaxChannels]float32
	t.walker.Run(src, dst, lines, func(soff, doff []int) {
		t.in_fmt.UnpackFloat(w[:], src, soff)
		t.out_fmt.PackFloat(w[:], dst, doff)
	})
}

func (t *Transform) float_xform(src, dst []byte, lines formatter.Lines) {
	var win, wout [types.MaxChannels]float32
	t.walker.Run(src, dst, lines, func(soff, doff []int) {
		t.in_fmt.UnpackFloat(win[:], src, soff)
		t.eval_float(win[:], wout[:])
		t.out_fmt.PackFloat(wout[:], dst, doff)
	})
}

func (t *Transform) xform16(src, dst []byte, lines formatter.Lines) {
	var win, wout [types.MaxChannels]uint16
	t.walker.Run(src, dst, lines, func(soff, doff []int) {
		t.in_fmt.Unpack16(win[:], src, soff)
		t.eval16(win[:], wout[:])
		t.out_fmt.Pack16(wout[:], dst, doff)
	})
}

func (t *Transform) cached16(src, dst []byte, lines formatter.Lines) {
	// channels past the color channels stay zero in both
	var win [types.MaxChannels]uint16
	cin, cout := t.cache_in, t.cache_out
	t.walker.Run(src, dst, lines, func(soff, doff []int) {
		t.in_fmt.Unpack16(win[:], src, soff)
		if win != cin {
			t.eval16(win[:], cout[:])
			cin = win
		}
		t.out_fmt.Pack16(cout[:], dst, doff)
	})
}

// DoTransform converts n pixels stored contiguously in src into dst. For
// planar formats each plane holds n samples. src and dst may be the same
// buffer when both formats have the same pixel size.
func (t *Transform) DoTransform(src, dst []byte, n int) {
	t.run(src, dst, formatter.PackedLines(t.input, t.output, n))
}

// DoTransformStrided converts line_count lines of pixels_per_line pixels.
// Lines start bytes_per_line_in bytes apart in src and bytes_per_line_out
// bytes apart in dst, which may exceed the size of the pixels in a line.
func (t *Transform) DoTransformStrided(src, dst []byte, pixels_per_line, line_count, bytes_per_line_in, bytes_per_line_out int) {
	t.run(src, dst, formatter.StridedLines(t.input, t.output, pixels_per_line, line_count, bytes_per_line_in, bytes_per_line_out))
}

// DoTransformLineStride is DoTransformStrided with explicit distances
// between the planes of planar buffers.
func (t *Transform) DoTransformLineStride(src, dst []byte, pixels_per_line, line_count, bytes_per_line_in, bytes_per_line_out, bytes_per_plane_in, bytes_per_plane_out int) {
	t.run(src, dst, formatter.Lines{
		PixelsPerLine: pixels_per_line, LineCount: line_count,
		BytesPerLineIn: bytes_per_line_in, BytesPerLineOut: bytes_per_line_out,
		BytesPerPlaneIn: bytes_per_plane_in, BytesPerPlaneOut: bytes_per_plane_out,
	})
}

// DoTransformParallel is DoTransformStrided with the lines split among
// goroutines. Small jobs run on the calling goroutine. The only error is
// a panic in a plugin evaluator or formatter, recovered and reported as a
// plugin error.
func (t *Transform) DoTransformParallel(src, dst []byte, pixels_per_line, line_count, bytes_per_line_in, bytes_per_line_out int) error {
	lines := formatter.StridedLines(t.input, t.output, pixels_per_line, line_count, bytes_per_line_in, bytes_per_line_out)
	if line_count < 2 || pixels_per_line*line_count < parallel_threshold {
		t.run(src, dst, lines)
		return nil
	}
	err := parallel.Run_in_parallel_over_range(0, func(start, limit int) {
		sub, in_offset, out_offset := lines.Slice(start, limit)
		t.run(src[in_offset:], dst[out_offset:], sub)
	}, 0, line_count)
	if err != nil {
		return cmserr.Wrap(cmserr.Plugin, "cmspipe.DoTransformParallel", err)
	}
	return nil
}

// ChangeBuffersFormat rebinds the transform to new buffer formats with the
// same channel counts. It fails when the evaluator in use was specialized
// for the original formats.
func (t *Transform) ChangeBuffersFormat(in, out types.PixelFormat) error {
	const op = "cmspipe.ChangeBuffersFormat"
	c := t.ctx
	if t.result.Worker != nil {
		return c.report(cmserr.Configurationf(op, "the %s optimization is bound to %s → %s", t.result.Name, t.input, t.output))
	}
	if in.Channels != t.input.Channels || out.Channels != t.output.Channels {
		return c.report(cmserr.Configurationf(op, "channel counts cannot change from %d → %d to %d → %d", t.input.Channels, t.output.Channels, in.Channels, out.Channels))
	}
	if t.flags.Has(types.CopyAlpha) && in.ExtraChannels != out.ExtraChannels {
		return c.report(cmserr.Configurationf(op, "cannot copy %d extra channels into %d", in.ExtraChannels, out.ExtraChannels))
	}
	in_fmt, err := formatter.New(in, c.formatters...)
	if err != nil {
		return c.report(cmserr.Wrap(cmserr.Configuration, op, err))
	}
	out_fmt, err := formatter.New(out, c.formatters...)
	if err != nil {
		return c.report(cmserr.Wrap(cmserr.Configuration, op, err))
	}
	t.input, t.output, t.in_fmt, t.out_fmt = in, out, in_fmt, out_fmt
	t.use_cache = !t.result.Flags.Has(types.NoCache) && !in.IsFloat() && !out.IsFloat()
	if t.use_cache {
		t.cache_in = [types.MaxChannels]uint16{}
		t.eval16(t.cache_in[:], t.cache_out[:])
	}
	t.bind()
	return nil
}
