package interp

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

// grid_of samples f at every node of a uniform grid
func grid_of(t *testing.T, inputs, points, outputs int, f func(in, out []float32)) *Params {
	p, err := NewParams(UniformGrid(inputs, points), outputs, make([]float32, NumNodes(UniformGrid(inputs, points))*outputs))
	require.NoError(t, err)
	require.NoError(t, p.ForEachNode(func(in []float32, node int) error {
		f(in, p.Table[node*outputs:(node+1)*outputs])
		return nil
	}))
	return p
}

func grid16_of(t *testing.T, inputs, points, outputs int, f func(in, out []float32)) *Params {
	fp := grid_of(t, inputs, points, outputs, f)
	t16 := make([]uint16, len(fp.Table))
	for i, v := range fp.Table {
		t16[i] = quantize(v)
	}
	p, err := NewParams16(fp.GridPoints, outputs, t16)
	require.NoError(t, err)
	return p
}

func affine(in, out []float32) {
	var s float32
	for i, v := range in {
		s += float32(i+1) * v
	}
	n := float32(len(in) * (len(in) + 1) / 2)
	for o := range out {
		out[o] = s / n
		if o%2 == 1 {
			out[o] = 1 - out[o]
		}
	}
}

func TestParams(t *testing.T) {
	p, err := NewParams16([]int{2, 3, 4}, 3, make([]uint16, 2*3*4*3))
	require.NoError(t, err)
	assert.Equal(t, []int{36, 12, 3}, p.Strides)
	assert.Equal(t, []int{1, 2, 3}, p.Domain)
	assert.Equal(t, 36+2*3, p.NodeOffset(1, 0, 2))
	assert.False(t, p.IsFloat())
	c := p.Clone()
	c.Table16[0] = 7
	assert.Equal(t, uint16(0), p.Table16[0])

	_, err = NewParams([]int{2, 2}, 1, make([]float32, 3))
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	_, err = NewParams([]int{2, 1}, 1, make([]float32, 2))
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	_, err = NewParams(UniformGrid(16, 2), 1, nil)
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	_, err = NewParams([]int{2}, 17, nil)
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)
	_, err = NewParams(UniformGrid(15, 255), 16, nil)
	assert.ErrorIs(t, err, cmserr.ErrResource)

	assert.Equal(t, uint16(0), QuantizeNode16(0, 17))
	assert.Equal(t, uint16(0xffff), QuantizeNode16(16, 17))
	assert.Equal(t, uint16(0x8000), QuantizeNode16(1, 3))
	assert.Equal(t, float32(0.25), QuantizeNode(1, 5))

	seen := 0
	require.NoError(t, p.ForEachNode(func(in []float32, node int) error {
		if node == 5 {
			// node 5 is (0, 1, 1)
			assert.Equal(t, []float32{0, 0.5, float32(1.0 / 3)}, in)
		}
		seen++
		return nil
	}))
	assert.Equal(t, 24, seen)
}

func TestChannelReversal16(t *testing.T) {
	table := make([]uint16, 0, 8*3)
	for i := range 2 {
		for j := range 2 {
			for k := range 2 {
				table = append(table, uint16((1-k)*0xffff), uint16((1-j)*0xffff), uint16((1-i)*0xffff))
			}
		}
	}
	p, err := NewParams16(UniformGrid(3, 2), 3, table)
	require.NoError(t, err)
	for _, trilinear := range []bool{false, true} {
		ip, err := New(p, trilinear)
		require.NoError(t, err)
		out := make([]uint16, 3)
		ip.Eval16([]uint16{0x1234, 0x5678, 0x9abc}, out)
		assert.Equal(t, []uint16{0xffff - 0x9abc, 0xffff - 0x5678, 0xffff - 0x1234}, out, ip.Name)
		ip.Eval16([]uint16{0xffff, 0, 0xffff}, out)
		assert.Equal(t, []uint16{0, 0xffff, 0}, out, ip.Name)
	}
}

// rising and falling edges of a 2 point cube must round the same way
func TestTetrahedral16Symmetry(t *testing.T) {
	var identity, reversed []uint16
	for i := range 2 {
		for j := range 2 {
			for k := range 2 {
				identity = append(identity, uint16(i*0xffff), uint16(j*0xffff), uint16(k*0xffff))
				reversed = append(reversed, uint16((1-k)*0xffff), uint16((1-j)*0xffff), uint16((1-i)*0xffff))
			}
		}
	}
	pi, err := NewParams16(UniformGrid(3, 2), 3, identity)
	require.NoError(t, err)
	pr, err := NewParams16(UniformGrid(3, 2), 3, reversed)
	require.NoError(t, err)
	fwd, err := New(pi, false)
	require.NoError(t, err)
	rev, err := New(pr, false)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(3, 5))
	a, b := make([]uint16, 3), make([]uint16, 3)
	for range 20000 {
		in := []uint16{uint16(rng.UintN(0x10000)), uint16(rng.UintN(0x10000)), uint16(rng.UintN(0x10000))}
		fwd.Eval16(in, a)
		rev.Eval16(in, b)
		if a[0] != in[0] || a[1] != in[1] || a[2] != in[2] {
			t.Fatalf("identity cube maps %#x to %#x", in, a)
		}
		if b[0] != 0xffff-in[2] || b[1] != 0xffff-in[1] || b[2] != 0xffff-in[0] {
			t.Fatalf("reversing cube maps %#x to %#x", in, b)
		}
	}
}

func TestIdentity1D16(t *testing.T) {
	p, err := NewParams16([]int{2}, 1, []uint16{0, 0xffff})
	require.NoError(t, err)
	ip, err := New(p, false)
	require.NoError(t, err)
	out := []uint16{0}
	for x := range 0x10000 {
		ip.Eval16([]uint16{uint16(x)}, out)
		if out[0] != uint16(x) {
			t.Fatalf("identity curve maps %#x to %#x", x, out[0])
		}
	}
}

func TestNodesAreExact(t *testing.T) {
	f := func(in, out []float32) {
		for o := range out {
			v := float32(0.1 * float64(o+1))
			for _, x := range in {
				v += x * x * 0.2
			}
			out[o] = min(v, 1)
		}
	}
	for _, inputs := range []int{1, 2, 3, 4} {
		for _, points := range []int{3, 5, 17} {
			t.Run(fmt.Sprintf("float-%dx%d", inputs, points), func(t *testing.T) {
				p := grid_of(t, inputs, points, 3, f)
				ip, err := New(p, false)
				require.NoError(t, err)
				out := make([]float32, 3)
				require.NoError(t, p.ForEachNode(func(in []float32, node int) error {
					ip.EvalFloat(in, out)
					assert.Equal(t, p.Table[node*3:node*3+3], out, "node %d at %v", node, in)
					return nil
				}))
			})
		}
		for _, points := range []int{4, 6} {
			t.Run(fmt.Sprintf("u16-%dx%d", inputs, points), func(t *testing.T) {
				p := grid16_of(t, inputs, points, 3, f)
				ip, err := New(p, false)
				require.NoError(t, err)
				out := make([]uint16, 3)
				in := make([]uint16, inputs)
				require.NoError(t, p.ForEachNode(func(_ []float32, node int) error {
					rem := node
					for k := inputs - 1; k >= 0; k-- {
						in[k] = QuantizeNode16(rem%points, points)
						rem /= points
					}
					ip.Eval16(in, out)
					assert.Equal(t, p.Table16[node*3:node*3+3], out, "node %d at %v", node, in)
					return nil
				}))
			})
		}
	}
}

func TestBoundaries(t *testing.T) {
	for _, inputs := range []int{1, 3, 5} {
		p := grid_of(t, inputs, 5, 2, affine)
		last := p.Table[len(p.Table)-2:]
		first := p.Table[:2]
		for _, trilinear := range []bool{false, true} {
			ip, err := New(p, trilinear)
			require.NoError(t, err)
			out := make([]float32, 2)
			in := make([]float32, inputs)
			for _, v := range []float32{1, 1.5, float32(math.Inf(1))} {
				for i := range in {
					in[i] = v
				}
				ip.EvalFloat(in, out)
				assert.Equal(t, last, out, "%s at %v", ip.Name, v)
			}
			for _, v := range []float32{0, -3, 1e-12, float32(math.NaN())} {
				for i := range in {
					in[i] = v
				}
				ip.EvalFloat(in, out)
				assert.Equal(t, first, out, "%s at %v", ip.Name, v)
			}
			o16 := make([]uint16, 2)
			in16 := make([]uint16, inputs)
			for i := range in16 {
				in16[i] = 0xffff
			}
			ip.Eval16(in16, o16)
			assert.Equal(t, []uint16{quantize(last[0]), quantize(last[1])}, o16, ip.Name)
		}
	}
}

func TestAffineIsReproduced(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for _, inputs := range []int{1, 2, 3, 4, 6} {
		for _, trilinear := range []bool{false, true} {
			p := grid_of(t, inputs, 5, 3, affine)
			ip, err := New(p, trilinear)
			require.NoError(t, err)
			p16 := grid16_of(t, inputs, 5, 3, affine)
			ip16, err := New(p16, trilinear)
			require.NoError(t, err)
			in := make([]float32, inputs)
			in16 := make([]uint16, inputs)
			expected, out := make([]float32, 3), make([]float32, 3)
			out16 := make([]uint16, 3)
			for range 200 {
				for i := range in {
					in16[i] = uint16(r.IntN(0x10000))
					in[i] = float32(in16[i]) / 0xffff
				}
				affine(in, expected)
				ip.EvalFloat(in, out)
				assert.InDeltaSlice(t, expected, out, 1e-5, ip.Name)
				ip16.EvalFloat(in, out)
				assert.InDeltaSlice(t, expected, out, 2e-5, ip16.Name)
				ip16.Eval16(in16, out16)
				for o := range out16 {
					assert.InDelta(t, float64(quantize(expected[o])), float64(out16[o]), 4, "%s at %v", ip16.Name, in16)
				}
			}
		}
	}
}

func TestTetrahedralConverges(t *testing.T) {
	product := func(in, out []float32) { out[0] = in[0] * in[1] * in[2] }
	r := rand.New(rand.NewPCG(3, 4))
	points := make([][3]float32, 500)
	for i := range points {
		points[i] = [3]float32{r.Float32(), r.Float32(), r.Float32()}
	}
	max_diff := func(n int) (ans float64) {
		p := grid_of(t, 3, n, 1, product)
		tetra, err := New(p, false)
		require.NoError(t, err)
		tri, err := New(p, true)
		require.NoError(t, err)
		require.Equal(t, "Tetrahedral", tetra.Name)
		require.Equal(t, "Trilinear", tri.Name)
		a, b := []float32{0}, []float32{0}
		for _, pt := range points {
			tetra.EvalFloat(pt[:], a)
			tri.EvalFloat(pt[:], b)
			ans = max(ans, math.Abs(float64(a[0]-b[0])))
		}
		return
	}
	d5, d17 := max_diff(5), max_diff(17)
	assert.Less(t, d17, d5)
	assert.Less(t, d17, 5e-3)
}

func TestMultilinear(t *testing.T) {
	p := grid_of(t, 4, 3, 2, affine)
	ml := Multilinear(p)
	in, out, expected := []float32{0.1, 0.7, 0.3, 0.9}, make([]float32, 2), make([]float32, 2)
	affine(in, expected)
	ml(in, out)
	assert.InDeltaSlice(t, expected, out, 1e-5)
}

func TestFactories(t *testing.T) {
	p := grid_of(t, 3, 2, 1, affine)
	called := false
	custom := func(p *Params, trilinear bool) (Interpolator, bool) {
		if p.NumOutputs != 1 {
			return Interpolator{}, false
		}
		called = true
		return Interpolator{Name: "Const", EvalFloat: func(in, out []float32) { out[0] = 0.5 }, Eval16: func(in, out []uint16) { out[0] = 0x8000 }}, true
	}
	ip, err := New(p, false, nil, custom)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "Const", ip.Name)

	p2 := grid_of(t, 3, 2, 2, affine)
	ip, err = New(p2, false, custom)
	require.NoError(t, err)
	assert.Equal(t, "Tetrahedral", ip.Name)

	broken := func(p *Params, trilinear bool) (Interpolator, bool) { return Interpolator{Name: "broken"}, true }
	_, err = New(p, false, broken)
	assert.ErrorIs(t, err, cmserr.ErrPlugin)
	_, err = New(&Params{}, false)
	assert.ErrorIs(t, err, cmserr.ErrConfiguration)

	ip, err = New(grid_of(t, 5, 2, 1, affine), true)
	require.NoError(t, err)
	assert.Equal(t, "Outer5D", ip.Name)
}
