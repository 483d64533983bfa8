// Package interp evaluates regular N-dimensional sample grids (CLUTs).
package interp

import (
	"fmt"
	"math"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
)

var _ = fmt.Print

const (
	// Maximum number of input dimensions of a grid
	MaxInputDimensions = 15
	// Maximum number of output channels of a grid
	MaxOutputChannels = 16
)

// Params describes a grid. The first input is the slowest varying axis, so
// the sample for grid coordinates (i0, i1, ..., in) starts at
// sum(ik * Strides[k]) and holds NumOutputs values.
type Params struct {
	NumInputs, NumOutputs int
	GridPoints            []int
	// GridPoints[k] - 1
	Domain []int
	// distance in table entries between neighbouring nodes along input k
	Strides []int
	// Exactly one of Table and Table16 is non-nil
	Table   []float32
	Table16 []uint16
}

// NumNodes returns the number of grid nodes, or zero on overflow.
func NumNodes(grid []int) int {
	ans := 1
	for _, g := range grid {
		if g < 2 {
			return 0
		}
		if ans > math.MaxInt32/g {
			return 0
		}
		ans *= g
	}
	return ans
}

// UniformGrid returns n copies of points.
func UniformGrid(n, points int) []int {
	ans := make([]int, n)
	for i := range ans {
		ans[i] = points
	}
	return ans
}

func new_params(grid []int, outputs int, table_len int) (*Params, error) {
	const op = "interp.NewParams"
	if len(grid) == 0 || len(grid) > MaxInputDimensions {
		return nil, cmserr.Configurationf(op, "a grid must have between 1 and %d inputs, not %d", MaxInputDimensions, len(grid))
	}
	if outputs < 1 || outputs > MaxOutputChannels {
		return nil, cmserr.Configurationf(op, "a grid must have between 1 and %d outputs, not %d", MaxOutputChannels, outputs)
	}
	for i, g := range grid {
		if g < 2 {
			return nil, cmserr.Configurationf(op, "grid axis %d has %d points, at least 2 are needed", i, g)
		}
		if g > 0xffff {
			return nil, cmserr.Configurationf(op, "grid axis %d has too many points: %d", i, g)
		}
	}
	nodes := NumNodes(grid)
	if nodes == 0 || nodes > math.MaxInt32/outputs {
		return nil, cmserr.Resourcef(op, "grid %v with %d outputs is too large", grid, outputs)
	}
	if table_len >= 0 && table_len != nodes*outputs {
		return nil, cmserr.Configurationf(op, "grid %v with %d outputs needs %d samples, got %d", grid, outputs, nodes*outputs, table_len)
	}
	p := &Params{NumInputs: len(grid), NumOutputs: outputs, GridPoints: append([]int(nil), grid...)}
	p.Domain = make([]int, len(grid))
	p.Strides = make([]int, len(grid))
	stride := outputs
	for k := len(grid) - 1; k >= 0; k-- {
		p.Domain[k] = grid[k] - 1
		p.Strides[k] = stride
		stride *= grid[k]
	}
	return p, nil
}

// NewParams describes a grid of float samples. The table is used as is,
// not copied.
func NewParams(grid []int, outputs int, table []float32) (*Params, error) {
	p, err := new_params(grid, outputs, len(table))
	if err != nil {
		return nil, err
	}
	p.Table = table
	return p, nil
}

// NewParams16 describes a grid of 16 bit samples. The table is used as is,
// not copied.
func NewParams16(grid []int, outputs int, table []uint16) (*Params, error) {
	p, err := new_params(grid, outputs, len(table))
	if err != nil {
		return nil, err
	}
	p.Table16 = table
	return p, nil
}

// NewFloatGrid validates the grid and allocates a zeroed float table for it.
func NewFloatGrid(grid []int, outputs int) (*Params, error) {
	p, err := new_params(grid, outputs, -1)
	if err != nil {
		return nil, err
	}
	p.Table = make([]float32, p.NumNodes()*outputs)
	return p, nil
}

// NewGrid16 validates the grid and allocates a zeroed 16 bit table for it.
func NewGrid16(grid []int, outputs int) (*Params, error) {
	p, err := new_params(grid, outputs, -1)
	if err != nil {
		return nil, err
	}
	p.Table16 = make([]uint16, p.NumNodes()*outputs)
	return p, nil
}

func (p *Params) IsFloat() bool { return p.Table != nil }

func (p *Params) NumNodes() int { return NumNodes(p.GridPoints) }

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	ans := *p
	ans.GridPoints = append([]int(nil), p.GridPoints...)
	ans.Domain = append([]int(nil), p.Domain...)
	ans.Strides = append([]int(nil), p.Strides...)
	if p.Table != nil {
		ans.Table = append([]float32(nil), p.Table...)
	}
	if p.Table16 != nil {
		ans.Table16 = append([]uint16(nil), p.Table16...)
	}
	return &ans
}

// NodeOffset returns the table offset of the node at the given grid
// coordinates.
func (p *Params) NodeOffset(coords ...int) int {
	ans := 0
	for k, c := range coords {
		ans += c * p.Strides[k]
	}
	return ans
}

// ForEachNode calls f for every node of the grid in table order, with the
// node position in [0,1] units. The outputs of node n start at
// n*NumOutputs in the table.
func (p *Params) ForEachNode(f func(in []float32, node int) error) error {
	var inbuf [MaxInputDimensions]float32
	in := inbuf[:p.NumInputs]
	for node := range p.NumNodes() {
		p.NodeInput(node, in)
		if err := f(in, node); err != nil {
			return err
		}
	}
	return nil
}

// NodeInput fills in with the position of node in [0,1] units.
func (p *Params) NodeInput(node int, in []float32) {
	for k := p.NumInputs - 1; k >= 0; k-- {
		in[k] = QuantizeNode(node%p.GridPoints[k], p.GridPoints[k])
		node /= p.GridPoints[k]
	}
}

// QuantizeNode returns the position of node i on an axis of n points in
// [0,1] units.
func QuantizeNode(i, n int) float32 {
	return float32(float64(i) / float64(n-1))
}

// QuantizeNode16 returns the position of node i on an axis of n points in
// the 16 bit domain.
func QuantizeNode16(i, n int) uint16 {
	x := float64(i) * 65535.0 / float64(n-1)
	return uint16(math.Floor(x + 0.5))
}
