package optimize

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// matrix_shaper is the shape curves → 3x3 matrix → curves
type matrix_shaper struct {
	in, out  []*curve.ToneCurve
	m        colorconv.Mat3
	offset   colorconv.Vec3
	identity bool
}

func as_matrix_shaper(p *pipeline.Pipeline) (ans matrix_shaper, ok bool) {
	var c1, c2 *pipeline.CurveSet
	if s, found := p.CheckAndRetrieve(pipeline.KindCurveSet, pipeline.KindMatrix, pipeline.KindCurveSet); found {
		if ans.m, ans.offset, ok = s[1].(*pipeline.Matrix).AsMat3(); !ok {
			return
		}
		c1, c2 = s[0].(*pipeline.CurveSet), s[2].(*pipeline.CurveSet)
	} else if s, found := p.CheckAndRetrieve(pipeline.KindCurveSet, pipeline.KindMatrix, pipeline.KindMatrix, pipeline.KindCurveSet); found {
		m1, m2 := s[1].(*pipeline.Matrix), s[2].(*pipeline.Matrix)
		// the input offset must be zero
		if m1.Offset() != nil {
			return ans, false
		}
		a, _, ok1 := m1.AsMat3()
		b, off, ok2 := m2.AsMat3()
		if !ok1 || !ok2 {
			return ans, false
		}
		ans.m, ans.offset = b.Multiply(a), off
		c1, c2 = s[0].(*pipeline.CurveSet), s[3].(*pipeline.CurveSet)
	} else {
		return ans, false
	}
	ans.in, ans.out = c1.Curves(), c2.Curves()
	ans.identity = ans.m.IsIdentity() && ans.offset == colorconv.Vec3{}
	return ans, true
}

// MatrixShaper fuses curves → matrix → curves on three channel formats.
// 8 bit buffers use 1.14 fixed point arithmetic, 1.15 buffers use 1.15
// fixed point, everything else uses dense float shaper tables.
func MatrixShaper(r *Request) (Result, bool) {
	in, out := r.Input, r.Output
	if in.Channels != 3 || out.Channels != 3 {
		return Result{}, false
	}
	ms, ok := as_matrix_shaper(r.Pipeline)
	if !ok {
		return Result{}, false
	}
	switch {
	case in.Layout == types.Int8 && out.Layout == types.Int8 && !in.Reversed && !out.Reversed:
		return ms.fixed14(r), true
	case in.Fixed15 && out.Fixed15 && !in.Reversed && !out.Reversed:
		return ms.fixed15(r), true
	}
	return ms.float_tables(r), true
}

func double_to_1fixed14(x float64) int { return int(math.Floor(x*16384 + 0.5)) }

// Conversion without floor, to get symmetric rounding of negatives
func double_to_1fixed15(x float64) int { return int(x*0x8000 + 0.5) }

func (ms matrix_shaper) fixed14(r *Request) Result {
	var shaper1 [3][256]int
	var shaper2 [3][0x4001]uint8
	var mat [3][3]int
	var off [3]int
	for c := range 3 {
		for i := range 256 {
			y := float64(ms.in[c].Evaluate(float32(float64(i) / 255)))
			if y < 131072 {
				shaper1[c][i] = double_to_1fixed14(y)
			} else {
				shaper1[c][i] = math.MaxInt32
			}
		}
		for i := range 0x4001 {
			y := ms.out[c].Evaluate(float32(float64(i) / 0x4000))
			shaper2[c][i] = formatter.From16To8(curve.QuantizeFloat(y))
		}
		for k := range 3 {
			mat[c][k] = double_to_1fixed14(ms.m[c][k])
		}
		off[c] = double_to_1fixed14(ms.offset[c])
	}
	identity := ms.identity
	walker := formatter.NewWalker(r.Input, r.Output, r.Flags.Has(types.CopyAlpha))
	return Result{
		Pipeline: r.Pipeline, Name: "MatrixShaper8", Flags: (r.Flags | types.NoCache) &^ types.CanChangeFormatter,
		Worker: func(src, dst []byte, lines formatter.Lines) {
			walker.Run(src, dst, lines, func(soff, doff []int) {
				rr, g, b := shaper1[0][src[soff[0]]], shaper1[1][src[soff[1]]], shaper1[2][src[soff[2]]]
				var l [3]int
				if identity {
					l = [3]int{rr, g, b}
				} else {
					for c := range 3 {
						l[c] = (mat[c][0]*rr + mat[c][1]*g + mat[c][2]*b + off[c] + 0x2000) >> 14
					}
				}
				for c := range 3 {
					dst[doff[c]] = shaper2[c][max(0, min(l[c], 0x4000))]
				}
			})
		},
	}
}

func sample_order(f types.PixelFormat) binary.ByteOrder {
	if f.BytesSwapped {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (ms matrix_shaper) fixed15(r *Request) Result {
	shaper1 := make([][]int, 3)
	shaper2 := make([][]uint16, 3)
	var mat [3][3]int
	var off [3]int
	for c := range 3 {
		shaper1[c] = make([]int, 0x8001)
		shaper2[c] = make([]uint16, 0x8001)
		for i := range 0x8001 {
			x := float32(float64(i) / 0x8000)
			shaper1[c][i] = double_to_1fixed15(float64(ms.in[c].Evaluate(x)))
			y := max(0, min(float64(ms.out[c].Evaluate(x)), 1))
			shaper2[c][i] = uint16(double_to_1fixed15(y))
		}
		for k := range 3 {
			mat[c][k] = double_to_1fixed15(ms.m[c][k])
		}
		off[c] = double_to_1fixed15(ms.offset[c]) + 0x4000
	}
	identity := ms.identity
	sorder, dorder := sample_order(r.Input), sample_order(r.Output)
	walker := formatter.NewWalker(r.Input, r.Output, r.Flags.Has(types.CopyAlpha))
	return Result{
		Pipeline: r.Pipeline, Name: "MatrixShaper15", Flags: (r.Flags | types.NoCache) &^ types.CanChangeFormatter,
		Worker: func(src, dst []byte, lines formatter.Lines) {
			walker.Run(src, dst, lines, func(soff, doff []int) {
				var v, l [3]int
				for c := range 3 {
					v[c] = shaper1[c][min(sorder.Uint16(src[soff[c]:]), 0x8000)]
				}
				if identity {
					l = v
				} else {
					for c := range 3 {
						l[c] = (mat[c][0]*v[0] + mat[c][1]*v[1] + mat[c][2]*v[2] + off[c]) >> 15
					}
				}
				for c := range 3 {
					dorder.PutUint16(dst[doff[c]:], shaper2[c][max(0, min(l[c], 0x8000))])
				}
			})
		},
	}
}

func (ms matrix_shaper) float_tables(r *Request) Result {
	shaper1 := make([][]float32, 3)
	shaper2 := make([][]float32, 3)
	for c := range 3 {
		shaper1[c] = make([]float32, FloatTableSize)
		shaper2[c] = make([]float32, FloatTableSize)
		for i := range FloatTableSize {
			x := float32(float64(i) / (FloatTableSize - 1))
			shaper1[c][i] = ms.in[c].Evaluate(x)
			shaper2[c][i] = ms.out[c].Evaluate(x)
		}
	}
	m, offset, identity := ms.m, ms.offset, ms.identity
	eval := func(in, out []float32) {
		var v colorconv.Vec3
		for c := range 3 {
			v[c] = float64(curve.Lerp(shaper1[c], in[c]))
		}
		if !identity {
			v = m.Apply(v)
			for c := range 3 {
				v[c] += offset[c]
			}
		}
		for c := range 3 {
			out[c] = curve.Lerp(shaper2[c], float32(v[c]))
		}
	}
	return Result{
		Pipeline: r.Pipeline, Name: "MatrixShaperFloat", Flags: r.Flags | types.NoCache,
		EvalFloat: eval,
		Eval16: func(in, out []uint16) {
			var fi, fo [3]float32
			for c := range 3 {
				fi[c] = float32(in[c]) / 0xffff
			}
			eval(fi[:], fo[:])
			for c := range 3 {
				out[c] = curve.QuantizeFloat(fo[c])
			}
		},
	}
}
