// Package curve implements tone curves, 1-D functions over [0,1] stored
// either as a table of samples or as a parametric formula.
package curve

import (
	"fmt"
	"math"
	"slices"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
)

var _ = fmt.Print

const (
	// Resolution of tables built when reversing or composing curves
	ReverseResolution = 4096
	// Tolerance used when deciding that a curve is the identity
	LinearTolerance = 1e-5
	// Below this inputs snap to the first sample
	tiny_input = 1e-9
)

type ToneCurve struct {
	// sampled representation, nil for parametric curves
	table []float32
	// parametric representation
	fn         Function
	id         int
	params     []float64
	invertible bool
}

// NewTabulated builds a curve from samples covering [0,1] at even spacing.
func NewTabulated(samples []float32) (*ToneCurve, error) {
	if len(samples) < 2 {
		return nil, cmserr.Configurationf("curve.NewTabulated", "a tabulated curve needs at least two samples, not %d", len(samples))
	}
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return nil, cmserr.Domainf("curve.NewTabulated", "sample %d is not finite", i)
		}
	}
	return &ToneCurve{table: slices.Clone(samples)}, nil
}

// NewTabulated16 builds a curve from 16 bit samples covering [0,1].
func NewTabulated16(samples []uint16) (*ToneCurve, error) {
	s := make([]float32, len(samples))
	for i, x := range samples {
		s[i] = float32(x) / 0xffff
	}
	return NewTabulated(s)
}

// NewParametric builds a curve from a formula in the formulas table. A
// negative id selects the inverse of the formula.
func NewParametric(formulas *Formulas, id int, params ...float64) (*ToneCurve, error) {
	f, found := formulas.Lookup(id)
	if !found {
		return nil, cmserr.Domainf("curve.NewParametric", "no parametric formula registered for id: %d", id)
	}
	if len(params) < f.NumParams {
		return nil, cmserr.Configurationf("curve.NewParametric", "formula %d needs %d parameters, got %d", id, f.NumParams, len(params))
	}
	fn, err := f.Build(params[:f.NumParams])
	if err != nil {
		return nil, cmserr.Wrap(cmserr.Domain, "curve.NewParametric", err)
	}
	if fn == nil {
		return nil, cmserr.Pluginf("curve.NewParametric", "formula %d returned no function", id)
	}
	return &ToneCurve{fn: fn, id: id, params: slices.Clone(params[:f.NumParams]), invertible: f.HasInverse}, nil
}

// NewGamma returns the Y = X^gamma curve.
func NewGamma(gamma float64) (*ToneCurve, error) {
	return NewParametric(DefaultFormulas(), GammaFunction, gamma)
}

func NewIdentity() *ToneCurve {
	ans, _ := NewGamma(1)
	return ans
}

// Sample builds a tabulated curve with n samples of f.
func Sample(n int, f func(x float32) float32) (*ToneCurve, error) {
	if n < 2 {
		return nil, cmserr.Configurationf("curve.Sample", "cannot sample a curve at %d points", n)
	}
	t := make([]float32, n)
	for i := range t {
		t[i] = f(float32(float64(i) / float64(n-1)))
	}
	return NewTabulated(t)
}

func (c *ToneCurve) IsParametric() bool { return c.fn != nil }

// ParametricType returns the formula id or zero for tabulated curves.
func (c *ToneCurve) ParametricType() int { return c.id }

func (c *ToneCurve) Params() []float64 { return slices.Clone(c.params) }

// Samples returns a copy of the table, nil for parametric curves.
func (c *ToneCurve) Samples() []float32 { return slices.Clone(c.table) }

func (c *ToneCurve) Len() int { return len(c.table) }

func (c *ToneCurve) Clone() *ToneCurve {
	// Functions are immutable once prepared so they can be shared
	return &ToneCurve{table: slices.Clone(c.table), fn: c.fn, id: c.id, params: slices.Clone(c.params), invertible: c.invertible}
}

func (c *ToneCurve) String() string {
	if c.fn != nil {
		return c.fn.String()
	}
	return fmt.Sprintf("TabulatedCurve{%d}", len(c.table))
}

// Lerp evaluates a table of evenly spaced samples over [0,1]. Inputs that
// are NaN or below a tiny epsilon return the first sample, inputs at or
// above 1 return the last.
func Lerp(table []float32, x float32) float32 {
	if !(x >= tiny_input) {
		return table[0]
	}
	if x >= 1 {
		return table[len(table)-1]
	}
	v := x * float32(len(table)-1)
	cell := int(v)
	if cell >= len(table)-1 {
		return table[len(table)-1]
	}
	frac := v - float32(cell)
	lo := table[cell]
	return lo + (table[cell+1]-lo)*frac
}

func clamp01(x float64) float64 {
	if !(x > 0) {
		return 0
	}
	return min(x, 1)
}

// Evaluate returns the curve value at x. Out of range inputs are clamped.
func (c *ToneCurve) Evaluate(x float32) float32 {
	if c.fn != nil {
		return float32(c.evaluate64(float64(x)))
	}
	return Lerp(c.table, x)
}

func (c *ToneCurve) evaluate64(x float64) float64 {
	x = clamp01(x)
	if c.id < 0 {
		return c.fn.InverseTransform(x)
	}
	return c.fn.Transform(x)
}

// Eval16 evaluates the curve in the 16 bit domain.
func (c *ToneCurve) Eval16(x uint16) uint16 {
	return QuantizeFloat(c.Evaluate(float32(x) / 0xffff))
}

// QuantizeFloat converts a [0,1] value into the 16 bit domain with rounding
// and saturation.
func QuantizeFloat(v float32) uint16 {
	d := float64(v)*0xffff + 0.5
	if !(d > 0) {
		return 0
	}
	if d >= 0xffff {
		return 0xffff
	}
	return uint16(d)
}

// Table16 returns n samples of the curve in the 16 bit domain.
func (c *ToneCurve) Table16(n int) []uint16 {
	ans := make([]uint16, n)
	for i := range ans {
		ans[i] = QuantizeFloat(c.Evaluate(float32(float64(i) / float64(n-1))))
	}
	return ans
}

// dense_samples returns the curve sampled at enough points to represent it
func (c *ToneCurve) dense_samples() []float64 {
	n := max(len(c.table), ReverseResolution)
	ans := make([]float64, n)
	for i := range ans {
		ans[i] = float64(c.Evaluate(float32(float64(i) / float64(n-1))))
	}
	return ans
}

// IsLinear reports whether the curve is the identity within tolerance.
func (c *ToneCurve) IsLinear(tolerance float64) bool {
	if c.table != nil {
		n := float64(len(c.table) - 1)
		for i, v := range c.table {
			if math.Abs(float64(v)-float64(i)/n) > tolerance {
				return false
			}
		}
		return true
	}
	for i, v := range c.dense_samples() {
		if math.Abs(v-float64(i)/float64(ReverseResolution-1)) > tolerance {
			return false
		}
	}
	return true
}

func is_monotonic(s []float64) bool {
	if len(s) < 2 {
		return true
	}
	descending := s[len(s)-1] < s[0]
	for i := 1; i < len(s); i++ {
		if descending {
			if s[i] > s[i-1] {
				return false
			}
		} else if s[i] < s[i-1] {
			return false
		}
	}
	return true
}

func (c *ToneCurve) IsMonotonic() bool {
	return is_monotonic(c.dense_samples())
}

func (c *ToneCurve) IsDescending() bool {
	if c.table != nil {
		return c.table[len(c.table)-1] < c.table[0]
	}
	return c.Evaluate(1) < c.Evaluate(0)
}

// Reverse returns the inverse of the curve. Parametric curves whose formula
// has a closed form inverse stay parametric, everything else is resampled
// at ReverseResolution points. The curve must be monotonic.
func (c *ToneCurve) Reverse() (*ToneCurve, error) {
	return c.ReverseWithResolution(ReverseResolution)
}

func (c *ToneCurve) ReverseWithResolution(n int) (*ToneCurve, error) {
	if c.fn != nil && c.invertible {
		return &ToneCurve{fn: c.fn, id: -c.id, params: slices.Clone(c.params), invertible: true}, nil
	}
	if n < 2 {
		return nil, cmserr.Configurationf("curve.Reverse", "cannot reverse into %d samples", n)
	}
	fwd := c.dense_samples()
	if !is_monotonic(fwd) {
		return nil, cmserr.Domainf("curve.Reverse", "curve %s is not monotonic", c)
	}
	descending := fwd[len(fwd)-1] < fwd[0]
	lo, hi := fwd[0], fwd[len(fwd)-1]
	if descending {
		lo, hi = hi, lo
	}
	step := 1 / float64(len(fwd)-1)
	ans := make([]float32, n)
	for i := range ans {
		y := float64(i) / float64(n-1)
		var x float64
		switch {
		case y <= lo:
			x = 0
			if descending {
				x = 1
			}
		case y >= hi:
			x = 1
			if descending {
				x = 0
			}
		default:
			// first index whose sample is past y, in the direction of the curve
			j, _ := slices.BinarySearchFunc(fwd, y, func(s, y float64) int {
				if descending {
					if s > y {
						return -1
					}
				} else if s < y {
					return -1
				}
				return 1
			})
			j = max(1, min(j, len(fwd)-1))
			y0, y1 := fwd[j-1], fwd[j]
			x0 := float64(j-1) * step
			if y1 == y0 {
				x = x0
			} else {
				x = x0 + step*(y-y0)/(y1-y0)
			}
		}
		ans[i] = float32(x)
	}
	return &ToneCurve{table: ans}, nil
}

// Compose returns a tabulated curve of n samples for next(c(x)).
func (c *ToneCurve) Compose(next *ToneCurve, n int) (*ToneCurve, error) {
	return Sample(n, func(x float32) float32 { return next.Evaluate(c.Evaluate(x)) })
}

// EstimateGamma fits a power law to the curve, failing when the standard
// deviation of the per-sample exponents exceeds precision.
func (c *ToneCurve) EstimateGamma(precision float64) (float64, error) {
	const n_points = 4096
	var sum, sum2, n float64
	for i := 1; i < n_points-1; i++ {
		x := float64(i) / (n_points - 1)
		y := float64(c.Evaluate(float32(x)))
		// Avoid the lower part where linear ramps are common
		if y > 0 && y < 1 && x > 0.07 {
			g := math.Log(y) / math.Log(x)
			sum += g
			sum2 += g * g
			n++
		}
	}
	if n <= 1 {
		return 0, cmserr.Domainf("curve.EstimateGamma", "curve %s has too few usable samples", c)
	}
	std := math.Sqrt(max(0, (n*sum2-sum*sum)/(n*(n-1))))
	if std > precision {
		return 0, cmserr.Domainf("curve.EstimateGamma", "curve %s is not a power law, deviation: %f", c, std)
	}
	return sum / n, nil
}
