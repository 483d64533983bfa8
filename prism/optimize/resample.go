package optimize

import (
	"fmt"
	"math"

	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
	"github.com/kovidgoyal/go-parallel"
)

var _ = fmt.Print

const (
	// Grids with fewer nodes are sampled on the calling goroutine
	parallel_sampling_threshold = 4096
	// Resolution of the prelinearization curves of the 8 bit RGB path
	prelinearization_points = 4096
)

func for_each_node_range(nodes int, work func(start, limit int)) error {
	if nodes < parallel_sampling_threshold {
		work(0, nodes)
		return nil
	}
	return parallel.Run_in_parallel_over_range(0, work, 0, nodes)
}

// Sample16 fills a 16 bit grid by evaluating p at every node.
func Sample16(p *pipeline.Pipeline, params *interp.Params) error {
	no := params.NumOutputs
	return for_each_node_range(params.NumNodes(), func(start, limit int) {
		var in, out [types.MaxChannels]uint16
		for node := start; node < limit; node++ {
			rem := node
			for k := params.NumInputs - 1; k >= 0; k-- {
				g := params.GridPoints[k]
				in[k] = interp.QuantizeNode16(rem%g, g)
				rem /= g
			}
			p.Eval16(in[:], out[:])
			copy(params.Table16[node*no:(node+1)*no], out[:no])
		}
	})
}

// SampleFloat fills a float grid by evaluating p at every node.
func SampleFloat(p *pipeline.Pipeline, params *interp.Params) error {
	no := params.NumOutputs
	return for_each_node_range(params.NumNodes(), func(start, limit int) {
		var in, out [types.MaxChannels]float32
		for node := start; node < limit; node++ {
			params.NodeInput(node, in[:params.NumInputs])
			p.Eval(in[:], out[:])
			copy(params.Table[node*no:(node+1)*no], out[:no])
		}
	})
}

// WhitePoint returns the encoding of white for a color model in [0,1]
// units, if the model has a well defined one.
func WhitePoint(m types.ColorModel, channels int) ([]float32, bool) {
	ans := make([]float32, channels)
	switch {
	case m == types.Gray || m == types.RGB:
		for i := range ans {
			ans[i] = 1
		}
	case m == types.Lab && channels == 3:
		ans[0], ans[1], ans[2] = 1, 128.0/255, 128.0/255
	case m.IsInk():
	default:
		return nil, false
	}
	return ans, true
}

// fix_white makes the grid map white exactly onto white. Nothing is done
// when the whites already agree, when they are wildly apart or when input
// white does not fall on a grid node.
func fix_white(c *pipeline.CLUT, in_model, out_model types.ColorModel) bool {
	params := c.Params()
	win, ok := WhitePoint(in_model, params.NumInputs)
	if !ok {
		return false
	}
	wout, ok := WhitePoint(out_model, params.NumOutputs)
	if !ok {
		return false
	}
	var obtained [types.MaxChannels]float32
	c.Eval(win, obtained[:])
	equal := true
	for i, w := range wout {
		a, b := int(curve.QuantizeFloat(w)), int(curve.QuantizeFloat(obtained[i]))
		if abs(a-b) > 0xf000 {
			return false
		}
		if a != b {
			equal = false
		}
	}
	if equal {
		return false
	}
	offset := 0
	for k, w := range win {
		px := float64(w) * float64(params.Domain[k])
		x0 := math.Floor(px)
		if px != x0 {
			return false
		}
		offset += int(x0) * params.Strides[k]
	}
	for i, w := range wout {
		if params.Table16 != nil {
			params.Table16[offset+i] = curve.QuantizeFloat(w)
		} else {
			params.Table[offset+i] = w
		}
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Resample evaluates the whole pipeline on a regular grid and replaces it
// with a single CLUT stage. Integer formats get a 16 bit grid, 8 bit RGB
// to RGB gets prelinearization curves and a dedicated tetrahedral worker,
// float formats get a float grid for RGB to RGB or for CMYK input. Pipelines with
// named color stages cannot be expressed on a grid.
func Resample(r *Request) (Result, bool) {
	if r.Pipeline.Has(pipeline.KindNamedColor) {
		return Result{}, false
	}
	in, out := r.Input, r.Output
	if ni, no := r.Pipeline.IOSig(); ni != in.Channels || no != out.Channels {
		return Result{}, false
	}
	switch {
	case in.IsFloat() && out.IsFloat():
		switch {
		case in.Model == types.RGB && out.Model == types.RGB:
			return resample_float(r, "ResampleFloatRGB")
		case in.Model == types.CMYK && in.Channels == 4:
			return resample_float(r, "ResampleFloatCMYK")
		}
		return Result{}, false
	case in.IsFloat() || out.IsFloat():
		return Result{}, false
	}
	if in.Model == types.RGB && out.Model == types.RGB && out.Channels == 3 && in.Layout == types.Int8 && out.Layout == types.Int8 && !in.Reversed && !out.Reversed && !r.trilinear() {
		if ans, ok := prelin8(r); ok {
			return ans, true
		}
	}
	return resample16(r)
}

func resample16(r *Request) (Result, bool) {
	const op = "optimize.Resample"
	ni, no := r.Pipeline.IOSig()
	params, err := interp.NewGrid16(interp.UniformGrid(ni, r.grid_points(r.Input.Model, ni)), no)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	if err = Sample16(r.Pipeline, params); err != nil {
		r.report(op, err)
		return Result{}, false
	}
	clut, err := pipeline.NewCLUT(params, r.trilinear(), r.Interpolators...)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	if !r.Flags.Has(types.NoWhiteOnWhiteFixup) {
		fix_white(clut, r.Input.Model, r.Output.Model)
	}
	p, err := pipeline.FromStages(clut)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	return Result{Pipeline: p, Name: "Resample16", Flags: r.Flags, Eval16: clut.Eval16, EvalFloat: clut.Eval}, true
}

func resample_float(r *Request, name string) (Result, bool) {
	const op = "optimize.Resample"
	ni, no := r.Pipeline.IOSig()
	params, err := interp.NewFloatGrid(interp.UniformGrid(ni, r.grid_points(r.Input.Model, ni)), no)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	if err = SampleFloat(r.Pipeline, params); err != nil {
		r.report(op, err)
		return Result{}, false
	}
	clut, err := pipeline.NewCLUT(params, r.trilinear(), r.Interpolators...)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	if !r.Flags.Has(types.NoWhiteOnWhiteFixup) {
		fix_white(clut, r.Input.Model, r.Output.Model)
	}
	p, err := pipeline.FromStages(clut)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	return Result{Pipeline: p, Name: name, Flags: r.Flags, Eval16: clut.Eval16, EvalFloat: clut.Eval}, true
}

// Curves with wide flat areas at either end cannot be inverted usefully
func is_degenerated(t []uint16) bool {
	zeros, poles := 0, 0
	for _, v := range t {
		switch v {
		case 0:
			zeros++
		case 0xffff:
			poles++
		}
	}
	if zeros == 1 && poles == 1 {
		return false
	}
	return zeros > len(t)/4 || poles > len(t)/4
}

// has_plateau reports a run of equal values spanning more than one 8 bit
// input step, which would map distinct pixels onto the same grid position
func has_plateau(t []uint16) bool {
	const limit = prelinearization_points / 256
	run := 1
	for i := 1; i < len(t); i++ {
		if t[i] == t[i-1] {
			if run++; run > limit {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func strictly_monotonic(v []float32) bool {
	rising := v[len(v)-1] > v[0]
	for i := 1; i < len(v); i++ {
		if (rising && v[i] <= v[i-1]) || (!rising && v[i] >= v[i-1]) {
			return false
		}
	}
	return true
}

// slope_limiting replaces the first and last 2% of a table with straight
// lines running to the end points, which guarantees the end points.
func slope_limiting(t []uint16) {
	n := len(t)
	at_begin := int(math.Floor(float64(n)*0.02 + 0.5))
	at_end := n - at_begin - 1
	begin_val, end_val := 0.0, float64(0xffff)
	if t[0] > t[n-1] {
		begin_val, end_val = end_val, begin_val
	}
	saturate := func(d float64) uint16 { return curve.QuantizeFloat(float32(d / 0xffff)) }
	val := float64(t[at_begin])
	slope := (val - begin_val) / float64(at_begin)
	beta := val - slope*float64(at_begin)
	for i := range at_begin {
		t[i] = saturate(float64(i)*slope + beta)
	}
	val = float64(t[at_end])
	slope = (end_val - val) / float64(at_begin)
	beta = val - slope*float64(at_end)
	for i := at_end; i < n; i++ {
		t[i] = saturate(float64(i)*slope + beta)
	}
}

func prelinearization_curves(p *pipeline.Pipeline) (trans, rev []*curve.ToneCurve, ok bool) {
	var tables [3][]uint16
	var gray [3][]float32
	for t := range tables {
		tables[t] = make([]uint16, prelinearization_points)
		gray[t] = make([]float32, prelinearization_points)
	}
	var ib, ob [types.MaxChannels]float32
	for i := range prelinearization_points {
		v := float32(float64(i) / (prelinearization_points - 1))
		ib[0], ib[1], ib[2] = v, v, v
		p.Eval(ib[:], ob[:])
		for t := range tables {
			gray[t][i] = ob[t]
			tables[t][i] = curve.QuantizeFloat(ob[t])
		}
	}
	trans, rev = make([]*curve.ToneCurve, 3), make([]*curve.ToneCurve, 3)
	for t, table := range tables {
		if !strictly_monotonic(gray[t]) {
			return nil, nil, false
		}
		slope_limiting(table)
		if is_degenerated(table) || has_plateau(table) {
			return nil, nil, false
		}
		c, err := curve.NewTabulated16(table)
		if err != nil || !c.IsMonotonic() {
			return nil, nil, false
		}
		if rev[t], err = c.ReverseWithResolution(prelinearization_points); err != nil {
			return nil, nil, false
		}
		trans[t] = c
	}
	return trans, rev, true
}

// prelin8 linearizes the input through curves derived from the gray axis
// of the pipeline so that the grid is sampled where the pipeline changes
// the most, then evaluates 8 bit pixels with precomputed grid offsets.
func prelin8(r *Request) (Result, bool) {
	const op = "optimize.Resample"
	trans, rev, ok := prelinearization_curves(r.Pipeline)
	if !ok {
		return Result{}, false
	}
	_, no := r.Pipeline.IOSig()
	rev_stage, err := pipeline.NewCurveSet(rev...)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	with_curves := r.Pipeline.Clone()
	if err = with_curves.Prepend(rev_stage); err != nil {
		r.report(op, err)
		return Result{}, false
	}
	params, err := interp.NewGrid16(interp.UniformGrid(3, r.grid_points(types.RGB, 3)), no)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	if err = Sample16(with_curves, params); err != nil {
		r.report(op, err)
		return Result{}, false
	}
	clut, err := pipeline.NewCLUT(params, false, r.Interpolators...)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	trans_stage, err := pipeline.NewCurveSet(trans...)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}
	p, err := pipeline.FromStages(trans_stage, clut)
	if err != nil {
		r.report(op, err)
		return Result{}, false
	}

	// grid offset and fractional position of every 8 bit input value
	var x0, rest [3][256]int
	for i := range 256 {
		for t := range 3 {
			v := interp.ToFixedDomain(int(trans[t].Eval16(formatter.From8To16(uint8(i)))) * params.Domain[t])
			x0[t][i] = params.Strides[t] * (v >> 16)
			rest[t][i] = v & 0xffff
		}
	}
	table, strides := params.Table16, params.Strides
	walker := formatter.NewWalker(r.Input, r.Output, r.Flags.Has(types.CopyAlpha))
	worker := func(src, dst []byte, lines formatter.Lines) {
		walker.Run(src, dst, lines, func(soff, doff []int) {
			ri, gi, bi := src[soff[0]], src[soff[1]], src[soff[2]]
			X0, Y0, Z0 := x0[0][ri], x0[1][gi], x0[2][bi]
			rx, ry, rz := rest[0][ri], rest[1][gi], rest[2][bi]
			X1, Y1, Z1 := X0, Y0, Z0
			if rx != 0 {
				X1 += strides[0]
			}
			if ry != 0 {
				Y1 += strides[1]
			}
			if rz != 0 {
				Z1 += strides[2]
			}
			for oc := range no {
				d := func(x, y, z int) int { return int(table[x+y+z+oc]) }
				c0 := d(X0, Y0, Z0)
				var c1, c2, c3 int
				switch {
				case rx >= ry && ry >= rz:
					c1 = d(X1, Y0, Z0) - c0
					c2 = d(X1, Y1, Z0) - d(X1, Y0, Z0)
					c3 = d(X1, Y1, Z1) - d(X1, Y1, Z0)
				case rx >= rz && rz >= ry:
					c1 = d(X1, Y0, Z0) - c0
					c2 = d(X1, Y1, Z1) - d(X1, Y0, Z1)
					c3 = d(X1, Y0, Z1) - d(X1, Y0, Z0)
				case rz >= rx && rx >= ry:
					c1 = d(X1, Y0, Z1) - d(X0, Y0, Z1)
					c2 = d(X1, Y1, Z1) - d(X1, Y0, Z1)
					c3 = d(X0, Y0, Z1) - c0
				case ry >= rx && rx >= rz:
					c1 = d(X1, Y1, Z0) - d(X0, Y1, Z0)
					c2 = d(X0, Y1, Z0) - c0
					c3 = d(X1, Y1, Z1) - d(X1, Y1, Z0)
				case ry >= rz && rz >= rx:
					c1 = d(X1, Y1, Z1) - d(X0, Y1, Z1)
					c2 = d(X0, Y1, Z0) - c0
					c3 = d(X0, Y1, Z1) - d(X0, Y1, Z0)
				case rz >= ry && ry >= rx:
					c1 = d(X1, Y1, Z1) - d(X0, Y1, Z1)
					c2 = d(X0, Y1, Z1) - d(X0, Y0, Z1)
					c3 = d(X0, Y0, Z1) - c0
				}
				acc := c1*rx + c2*ry + c3*rz + 0x8001
				res16 := c0 + ((acc + (acc >> 16)) >> 16)
				dst[doff[oc]] = formatter.From16To8(uint16(max(0, min(res16, 0xffff))))
			}
		})
	}
	return Result{
		Pipeline: p, Name: "Prelin8", Flags: (r.Flags | types.NoCache) &^ types.CanChangeFormatter,
		Worker: worker,
	}, true
}
