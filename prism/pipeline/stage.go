// Package pipeline models a color transform as an ordered sequence of
// stages, each mapping a vector of [0,1] values to another.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

type Kind int

const (
	KindCurveSet Kind = iota + 1
	KindMatrix
	KindCLUT
	KindIdentity
	KindCustom
	KindNamedColor
)

var kind_names = map[Kind]string{
	KindCurveSet: "CurveSet", KindMatrix: "Matrix", KindCLUT: "CLUT", KindIdentity: "Identity",
	KindCustom: "Custom", KindNamedColor: "NamedColor",
}

func (k Kind) String() string {
	if ans, ok := kind_names[k]; ok {
		return ans
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stage is one element of a pipeline. The set of stage types is closed,
// extension happens through Custom stages.
type Stage interface {
	Kind() Kind
	IOSig() (in, out int)
	// Eval maps in onto out. The slices never alias.
	Eval(in, out []float32)
	Clone() Stage
	String() string
	sealed()
}

var _ Stage = (*CurveSet)(nil)
var _ Stage = (*Matrix)(nil)
var _ Stage = (*CLUT)(nil)
var _ Stage = (*Identity)(nil)
var _ Stage = (*Custom)(nil)
var _ Stage = (*NamedColor)(nil)

func check_channels(op string, n int) error {
	if n < 1 || n > types.MaxChannels {
		return cmserr.Configurationf(op, "stages must have between 1 and %d channels, not %d", types.MaxChannels, n)
	}
	return nil
}

// CurveSet applies one tone curve per channel.
type CurveSet struct {
	curves []*curve.ToneCurve
}

// NewCurveSet builds a curve set. Tone curves are immutable so they are
// shared rather than copied.
func NewCurveSet(curves ...*curve.ToneCurve) (*CurveSet, error) {
	if err := check_channels("pipeline.NewCurveSet", len(curves)); err != nil {
		return nil, err
	}
	for i, c := range curves {
		if c == nil {
			return nil, cmserr.Configurationf("pipeline.NewCurveSet", "curve %d is nil", i)
		}
	}
	return &CurveSet{curves: append([]*curve.ToneCurve(nil), curves...)}, nil
}

// NewIdentityCurves returns n identity curves.
func NewIdentityCurves(n int) (*CurveSet, error) {
	c := make([]*curve.ToneCurve, max(n, 0))
	for i := range c {
		c[i] = curve.NewIdentity()
	}
	return NewCurveSet(c...)
}

func (c *CurveSet) Kind() Kind        { return KindCurveSet }
func (c *CurveSet) IOSig() (int, int) { return len(c.curves), len(c.curves) }
func (c *CurveSet) sealed()           {}
func (c *CurveSet) Clone() Stage {
	return &CurveSet{curves: append([]*curve.ToneCurve(nil), c.curves...)}
}
func (c *CurveSet) Curves() []*curve.ToneCurve { return append([]*curve.ToneCurve(nil), c.curves...) }

func (c *CurveSet) Eval(in, out []float32) {
	for i, t := range c.curves {
		out[i] = t.Evaluate(in[i])
	}
}

// IsLinear is true when every curve is the identity within tolerance.
func (c *CurveSet) IsLinear(tolerance float64) bool {
	for _, t := range c.curves {
		if !t.IsLinear(tolerance) {
			return false
		}
	}
	return true
}

func (c *CurveSet) String() string {
	items := make([]string, len(c.curves))
	for i, t := range c.curves {
		items[i] = t.String()
	}
	return "CurveSet{" + strings.Join(items, ", ") + "}"
}

// Matrix computes out = M × in + offset in double precision.
type Matrix struct {
	rows, cols int
	// row major, rows x cols
	m      []float64
	offset []float64
}

// NewMatrix builds a matrix stage with rows outputs and cols inputs. offset
// may be nil.
func NewMatrix(rows, cols int, m []float64, offset []float64) (*Matrix, error) {
	const op = "pipeline.NewMatrix"
	if err := check_channels(op, rows); err != nil {
		return nil, err
	}
	if err := check_channels(op, cols); err != nil {
		return nil, err
	}
	if len(m) != rows*cols {
		return nil, cmserr.Configurationf(op, "a %dx%d matrix needs %d coefficients, got %d", rows, cols, rows*cols, len(m))
	}
	if offset != nil && len(offset) != rows {
		return nil, cmserr.Configurationf(op, "a matrix with %d rows needs %d offsets, got %d", rows, rows, len(offset))
	}
	ans := &Matrix{rows: rows, cols: cols, m: append([]float64(nil), m...)}
	if offset != nil {
		ans.offset = append([]float64(nil), offset...)
	}
	return ans, nil
}

// NewMatrix3 builds a 3x3 matrix stage with an optional offset.
func NewMatrix3(m colorconv.Mat3, offset *colorconv.Vec3) *Matrix {
	ans := &Matrix{rows: 3, cols: 3, m: make([]float64, 0, 9)}
	for _, row := range m {
		ans.m = append(ans.m, row[:]...)
	}
	if offset != nil {
		ans.offset = append([]float64(nil), offset[:]...)
	}
	return ans
}

func (c *Matrix) Kind() Kind        { return KindMatrix }
func (c *Matrix) IOSig() (int, int) { return c.cols, c.rows }
func (c *Matrix) sealed()           {}
func (c *Matrix) Clone() Stage {
	ans := &Matrix{rows: c.rows, cols: c.cols, m: append([]float64(nil), c.m...)}
	if c.offset != nil {
		ans.offset = append([]float64(nil), c.offset...)
	}
	return ans
}

// Coefficients returns a copy of the row major coefficients.
func (c *Matrix) Coefficients() []float64 { return append([]float64(nil), c.m...) }

// Offset returns a copy of the offset, nil when there is none.
func (c *Matrix) Offset() []float64 {
	if c.offset == nil {
		return nil
	}
	return append([]float64(nil), c.offset...)
}

// AsMat3 returns the matrix and offset of a 3x3 stage.
func (c *Matrix) AsMat3() (m colorconv.Mat3, offset colorconv.Vec3, ok bool) {
	if c.rows != 3 || c.cols != 3 {
		return
	}
	for r := range 3 {
		copy(m[r][:], c.m[r*3:r*3+3])
		if c.offset != nil {
			offset[r] = c.offset[r]
		}
	}
	return m, offset, true
}

// IsIdentity is true for square matrices with unit diagonal and no offset.
func (c *Matrix) IsIdentity() bool {
	if c.rows != c.cols {
		return false
	}
	for r := range c.rows {
		for k := range c.cols {
			expected := 0.0
			if r == k {
				expected = 1
			}
			if c.m[r*c.cols+k] != expected {
				return false
			}
		}
		if c.offset != nil && c.offset[r] != 0 {
			return false
		}
	}
	return true
}

func (c *Matrix) Eval(in, out []float32) {
	for r := range c.rows {
		row := c.m[r*c.cols : (r+1)*c.cols]
		var tmp float64
		for k, v := range row {
			tmp += float64(in[k]) * v
		}
		if c.offset != nil {
			tmp += c.offset[r]
		}
		out[r] = float32(tmp)
	}
}

func (c *Matrix) String() string {
	if c.offset != nil {
		return fmt.Sprintf("Matrix%dx%d{%v + %v}", c.rows, c.cols, c.m, c.offset)
	}
	return fmt.Sprintf("Matrix%dx%d{%v}", c.rows, c.cols, c.m)
}

// CLUT evaluates a regular sample grid.
type CLUT struct {
	params    *interp.Params
	ip        interp.Interpolator
	trilinear bool
	factories []interp.Factory
}

// NewCLUT wraps a grid. The first of factories that accepts the grid
// supplies the interpolator, otherwise the default one is used.
func NewCLUT(p *interp.Params, trilinear bool, factories ...interp.Factory) (*CLUT, error) {
	ip, err := interp.New(p, trilinear, factories...)
	if err != nil {
		return nil, err
	}
	return &CLUT{params: p, ip: ip, trilinear: trilinear, factories: factories}, nil
}

// SampleCLUT builds a float grid by calling f at every node.
func SampleCLUT(grid []int, outputs int, trilinear bool, f func(in, out []float32) error, factories ...interp.Factory) (*CLUT, error) {
	p, err := interp.NewFloatGrid(grid, outputs)
	if err != nil {
		return nil, err
	}
	if err = p.ForEachNode(func(in []float32, node int) error {
		return f(in, p.Table[node*outputs:(node+1)*outputs])
	}); err != nil {
		return nil, err
	}
	return NewCLUT(p, trilinear, factories...)
}

func (c *CLUT) Kind() Kind             { return KindCLUT }
func (c *CLUT) IOSig() (int, int)      { return c.params.NumInputs, c.params.NumOutputs }
func (c *CLUT) sealed()                {}
func (c *CLUT) Eval(in, out []float32) { c.ip.EvalFloat(in, out) }

// Eval16 evaluates the grid in the 16 bit domain.
func (c *CLUT) Eval16(in, out []uint16) { c.ip.Eval16(in, out) }

// Params returns the grid. It must not be modified.
func (c *CLUT) Params() *interp.Params { return c.params }

func (c *CLUT) Interpolator() interp.Interpolator { return c.ip }

func (c *CLUT) Clone() Stage {
	ans, err := NewCLUT(c.params.Clone(), c.trilinear, c.factories...)
	if err != nil {
		// the grid was accepted once already
		panic(err)
	}
	return ans
}

func (c *CLUT) String() string {
	g := make([]string, len(c.params.GridPoints))
	for i, x := range c.params.GridPoints {
		g[i] = fmt.Sprint(x)
	}
	return fmt.Sprintf("CLUT{%s→%d %s}", strings.Join(g, "x"), c.params.NumOutputs, c.ip.Name)
}

type Identity struct{ n int }

func NewIdentity(n int) (*Identity, error) {
	if err := check_channels("pipeline.NewIdentity", n); err != nil {
		return nil, err
	}
	return &Identity{n}, nil
}

func (c *Identity) Kind() Kind             { return KindIdentity }
func (c *Identity) IOSig() (int, int)      { return c.n, c.n }
func (c *Identity) sealed()                {}
func (c *Identity) Clone() Stage           { return &Identity{c.n} }
func (c *Identity) Eval(in, out []float32) { copy(out[:c.n], in[:c.n]) }
func (c *Identity) String() string         { return fmt.Sprintf("Identity{%d}", c.n) }

// Evaluator is the capability a Custom stage carries. Implementations must
// be pure functions of their input, they are called concurrently.
type Evaluator interface {
	Evaluate(in, out []float32)
}

type EvaluatorFunc func(in, out []float32)

func (f EvaluatorFunc) Evaluate(in, out []float32) { f(in, out) }

// Custom evaluates an externally supplied function. The tag identifies the
// function so optimizers can recognize well known stages.
type Custom struct {
	tag     string
	in, out int
	e       Evaluator
}

func NewCustom(tag string, in, out int, e Evaluator) (*Custom, error) {
	const op = "pipeline.NewCustom"
	if err := check_channels(op, in); err != nil {
		return nil, err
	}
	if err := check_channels(op, out); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, cmserr.Configurationf(op, "custom stage %#v has no evaluator", tag)
	}
	return &Custom{tag: tag, in: in, out: out, e: e}, nil
}

func (c *Custom) Kind() Kind             { return KindCustom }
func (c *Custom) IOSig() (int, int)      { return c.in, c.out }
func (c *Custom) sealed()                {}
func (c *Custom) Tag() string            { return c.tag }
func (c *Custom) Evaluator() Evaluator   { return c.e }
func (c *Custom) Clone() Stage           { ans := *c; return &ans }
func (c *Custom) Eval(in, out []float32) { c.e.Evaluate(in[:c.in], out[:c.out]) }
func (c *Custom) String() string         { return fmt.Sprintf("Custom{%s %d→%d}", c.tag, c.in, c.out) }

// NamedColor maps a color index onto a list of device colors. The input is
// the index in the 16 bit domain scaled to [0,1], unknown indices produce
// zeros.
type NamedColor struct {
	colors  [][]float32
	outputs int
}

func NewNamedColor(outputs int, colors ...[]float32) (*NamedColor, error) {
	const op = "pipeline.NewNamedColor"
	if err := check_channels(op, outputs); err != nil {
		return nil, err
	}
	if len(colors) > 0xffff {
		return nil, cmserr.Resourcef(op, "too many named colors: %d", len(colors))
	}
	ans := &NamedColor{outputs: outputs, colors: make([][]float32, len(colors))}
	for i, c := range colors {
		if len(c) != outputs {
			return nil, cmserr.Configurationf(op, "named color %d has %d channels instead of %d", i, len(c), outputs)
		}
		ans.colors[i] = append([]float32(nil), c...)
	}
	return ans, nil
}

func (c *NamedColor) Kind() Kind        { return KindNamedColor }
func (c *NamedColor) IOSig() (int, int) { return 1, c.outputs }
func (c *NamedColor) sealed()           {}
func (c *NamedColor) Len() int          { return len(c.colors) }
func (c *NamedColor) String() string {
	return fmt.Sprintf("NamedColor{%d→%d}", len(c.colors), c.outputs)
}

func (c *NamedColor) Clone() Stage {
	ans := &NamedColor{outputs: c.outputs, colors: make([][]float32, len(c.colors))}
	for i, x := range c.colors {
		ans.colors[i] = append([]float32(nil), x...)
	}
	return ans
}

func (c *NamedColor) Eval(in, out []float32) {
	idx := int(curve.QuantizeFloat(in[0]))
	if idx >= len(c.colors) {
		clear(out[:c.outputs])
		return
	}
	copy(out[:c.outputs], c.colors[idx])
}
