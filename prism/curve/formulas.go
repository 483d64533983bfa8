package curve

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
)

var _ = fmt.Print

// Function is one instantiated parametric formula.
type Function interface {
	Transform(x float64) float64
	InverseTransform(y float64) float64
	String() string
}

// Formula describes a family of parametric curves identified by a
// positive id. The id negated selects the inverse of the family, when
// HasInverse is true.
type Formula struct {
	ID         int
	NumParams  int
	HasInverse bool
	Build      func(params []float64) (Function, error)
}

// Formulas is an immutable table mapping formula ids to formulas. Derive
// modified tables with With.
type Formulas struct {
	m map[int]Formula
}

const (
	GammaFunction           = 1   // Y = X^g
	ConditionalZeroFunction = 2   // Y = (aX+b)^g for X >= -b/a, else 0
	ConditionalCFunction    = 3   // Y = (aX+b)^g + c for X >= -b/a, else c
	SplitFunction           = 4   // Y = (aX+b)^g for X >= d, else cX
	ComplexFunction         = 5   // Y = (aX+b)^g + e for X >= d, else cX+f
	OffsetGammaFunction     = 6   // Y = (aX+b)^g + c
	LogFunction             = 7   // Y = a*log10(b*X^g + c) + d
	ExpFunction             = 8   // Y = a*b^(cX+d) + e
	SShapedFunction         = 108 // Y = (1 - (1-X)^(1/g))^(1/g)
	SigmoidFunction         = 109 // logistic S curve with slope g
)

func builder[T any, PT interface {
	*T
	Function
	Prepare() error
}](set func(*T, []float64)) func([]float64) (Function, error) {
	return func(p []float64) (Function, error) {
		var ans T
		set(&ans, p)
		c := PT(&ans)
		if err := c.Prepare(); err != nil {
			return nil, err
		}
		return c, nil
	}
}

var DefaultFormulas = sync.OnceValue(func() *Formulas {
	return (&Formulas{}).With(
		Formula{ID: GammaFunction, NumParams: 1, HasInverse: true, Build: builder(func(c *GammaCurve, p []float64) { c.gamma = p[0] })},
		Formula{ID: ConditionalZeroFunction, NumParams: 3, HasInverse: true, Build: builder(func(c *ConditionalZeroCurve, p []float64) {
			c.g, c.a, c.b = p[0], p[1], p[2]
		})},
		Formula{ID: ConditionalCFunction, NumParams: 4, HasInverse: true, Build: builder(func(c *ConditionalCCurve, p []float64) {
			c.g, c.a, c.b, c.c = p[0], p[1], p[2], p[3]
		})},
		Formula{ID: SplitFunction, NumParams: 5, HasInverse: true, Build: builder(func(c *SplitCurve, p []float64) {
			c.g, c.a, c.b, c.c, c.d = p[0], p[1], p[2], p[3], p[4]
		})},
		Formula{ID: ComplexFunction, NumParams: 7, HasInverse: true, Build: builder(func(c *ComplexCurve, p []float64) {
			c.g, c.a, c.b, c.c, c.d, c.e, c.f = p[0], p[1], p[2], p[3], p[4], p[5], p[6]
		})},
		Formula{ID: OffsetGammaFunction, NumParams: 4, HasInverse: true, Build: builder(func(c *OffsetGammaCurve, p []float64) {
			c.g, c.a, c.b, c.c = p[0], p[1], p[2], p[3]
		})},
		Formula{ID: LogFunction, NumParams: 5, HasInverse: true, Build: builder(func(c *LogCurve, p []float64) {
			c.g, c.a, c.b, c.c, c.d = p[0], p[1], p[2], p[3], p[4]
		})},
		Formula{ID: ExpFunction, NumParams: 5, HasInverse: true, Build: builder(func(c *ExpCurve, p []float64) {
			c.a, c.b, c.c, c.d, c.e = p[0], p[1], p[2], p[3], p[4]
		})},
		Formula{ID: SShapedFunction, NumParams: 1, HasInverse: true, Build: builder(func(c *SShapedCurve, p []float64) { c.g = p[0] })},
		Formula{ID: SigmoidFunction, NumParams: 1, HasInverse: true, Build: builder(func(c *SigmoidCurve, p []float64) { c.k = p[0] })},
	)
})

// With returns a copy of the table with the given formulas added,
// replacing any existing formulas with the same ids.
func (f *Formulas) With(formulas ...Formula) *Formulas {
	ans := &Formulas{m: make(map[int]Formula, len(f.m)+len(formulas))}
	maps.Copy(ans.m, f.m)
	for _, x := range formulas {
		ans.m[x.ID] = x
	}
	return ans
}

// Lookup finds the formula for id, which may be negative to select an
// inverse.
func (f *Formulas) Lookup(id int) (Formula, bool) {
	if f == nil {
		return Formula{}, false
	}
	x, found := f.m[abs(id)]
	if !found || (id < 0 && !x.HasInverse) {
		return Formula{}, false
	}
	return x, true
}

func (f *Formulas) IDs() []int {
	return slices.Sorted(maps.Keys(f.m))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type GammaCurve struct {
	gamma, inv_gamma float64
	is_one           bool
}
type ConditionalZeroCurve struct{ g, a, b, threshold, inv_gamma, inv_a float64 }
type ConditionalCCurve struct{ g, a, b, c, threshold, inv_gamma, inv_a float64 }
type SplitCurve struct{ g, a, b, c, d, inv_g, inv_a, inv_c, threshold float64 }
type ComplexCurve struct{ g, a, b, c, d, e, f, inv_g, inv_a, inv_c, threshold float64 }
type OffsetGammaCurve struct{ g, a, b, c, inv_g, inv_a float64 }
type LogCurve struct{ g, a, b, c, d float64 }
type ExpCurve struct{ a, b, c, d, e, log_b float64 }
type SShapedCurve struct{ g, inv_g float64 }
type SigmoidCurve struct{ k, correction float64 }

var _ Function = (*GammaCurve)(nil)
var _ Function = (*ConditionalZeroCurve)(nil)
var _ Function = (*ConditionalCCurve)(nil)
var _ Function = (*SplitCurve)(nil)
var _ Function = (*ComplexCurve)(nil)
var _ Function = (*OffsetGammaCurve)(nil)
var _ Function = (*LogCurve)(nil)
var _ Function = (*ExpCurve)(nil)
var _ Function = (*SShapedCurve)(nil)
var _ Function = (*SigmoidCurve)(nil)

const gamma_one_tolerance = 0.0001

func (c *GammaCurve) Transform(x float64) float64 {
	if x < 0 {
		if c.is_one {
			return x
		}
		return 0
	}
	return math.Pow(x, c.gamma)
}

func (c *GammaCurve) InverseTransform(x float64) float64 {
	if x < 0 {
		if c.is_one {
			return x
		}
		return 0
	}
	return math.Pow(x, c.inv_gamma)
}

func (c *GammaCurve) Prepare() error {
	if c.gamma == 0 {
		return fmt.Errorf("gamma curve has zero gamma value")
	}
	c.inv_gamma = 1 / c.gamma
	c.is_one = math.Abs(c.gamma-1) < gamma_one_tolerance
	return nil
}
func (c *GammaCurve) String() string { return fmt.Sprintf("GammaCurve{%v}", c.gamma) }

func (c *ConditionalZeroCurve) Prepare() error {
	if c.a == 0 || c.g == 0 {
		return fmt.Errorf("conditional zero curve has zero parameter value: a=%f or g=%f", c.a, c.g)
	}
	c.threshold, c.inv_gamma, c.inv_a = -c.b/c.a, 1/c.g, 1/c.a
	return nil
}

func (c *ConditionalZeroCurve) String() string {
	return fmt.Sprintf("ConditionalZeroCurve{a: %v b: %v g: %v}", c.a, c.b, c.g)
}

func (c *ConditionalZeroCurve) Transform(x float64) float64 {
	// Y = (aX+b)^g if X ≥ -b/a else 0
	if x >= c.threshold {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g)
		}
	}
	return 0
}

func (c *ConditionalZeroCurve) InverseTransform(y float64) float64 {
	// X = (Y^(1/g) - b) / a if Y >= 0 else X = -b/a
	if y < 0 {
		return c.threshold
	}
	return max(0, (math.Pow(y, c.inv_gamma)-c.b)*c.inv_a)
}

func (c *ConditionalCCurve) Prepare() error {
	if c.a == 0 || c.g == 0 {
		return fmt.Errorf("conditional C curve has zero parameter value: a=%f or g=%f", c.a, c.g)
	}
	c.threshold, c.inv_gamma, c.inv_a = -c.b/c.a, 1/c.g, 1/c.a
	return nil
}

func (c *ConditionalCCurve) String() string {
	return fmt.Sprintf("ConditionalCCurve{a: %v b: %v c: %v g: %v}", c.a, c.b, c.c, c.g)
}

func (c *ConditionalCCurve) Transform(x float64) float64 {
	// Y = (aX+b)^g + c if X ≥ -b/a else c
	if x >= c.threshold {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g) + c.c
		}
		return 0
	}
	return c.c
}

func (c *ConditionalCCurve) InverseTransform(y float64) float64 {
	// X = ((Y-c)^(1/g) - b) / a if Y >= c else X = -b/a
	if e := y - c.c; e >= 0 {
		if e == 0 {
			return 0
		}
		return (math.Pow(e, c.inv_gamma) - c.b) * c.inv_a
	}
	return c.threshold
}

func (c *SplitCurve) Prepare() error {
	if c.a == 0 || c.g == 0 || c.c == 0 {
		return fmt.Errorf("split curve has zero parameter value: a=%f or g=%f or c=%f", c.a, c.g, c.c)
	}
	c.threshold, c.inv_g, c.inv_a, c.inv_c = math.Pow(c.a*c.d+c.b, c.g), 1/c.g, 1/c.a, 1/c.c
	return nil
}

func (c *SplitCurve) String() string {
	return fmt.Sprintf("SplitCurve{a: %v b: %v c: %v d: %v g: %v}", c.a, c.b, c.c, c.d, c.g)
}

func (c *SplitCurve) Transform(x float64) float64 {
	// Y = (aX+b)^g if X ≥ d else cX
	if x >= c.d {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g)
		}
		return 0
	}
	return c.c * x
}

func (c *SplitCurve) InverseTransform(y float64) float64 {
	// X=((Y^1/g-b)/a)    | Y >= (ad+b)^g
	// X=Y/c              | Y< (ad+b)^g
	if y < c.threshold {
		return y * c.inv_c
	}
	return (math.Pow(y, c.inv_g) - c.b) * c.inv_a
}

func (c *ComplexCurve) Prepare() error {
	if c.a == 0 || c.g == 0 || c.c == 0 {
		return fmt.Errorf("complex curve has zero parameter value: a=%f or g=%f or c=%f", c.a, c.g, c.c)
	}
	c.threshold, c.inv_g, c.inv_a, c.inv_c = math.Pow(c.a*c.d+c.b, c.g)+c.e, 1/c.g, 1/c.a, 1/c.c
	return nil
}

func (c *ComplexCurve) String() string {
	return fmt.Sprintf("ComplexCurve{a: %v b: %v c: %v d: %v e: %v f: %v g: %v}", c.a, c.b, c.c, c.d, c.e, c.f, c.g)
}

func (c *ComplexCurve) Transform(x float64) float64 {
	// Y = (aX+b)^g + e if X ≥ d else cX+f
	if x >= c.d {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g) + c.e
		}
		return c.e
	}
	return c.c*x + c.f
}

func (c *ComplexCurve) InverseTransform(y float64) float64 {
	// X=((Y-e)1/g-b)/a   | Y >=(ad+b)^g+e), cd+f
	// X=(Y-f)/c          | else
	if y < c.threshold {
		return (y - c.f) * c.inv_c
	}
	if e := y - c.e; e > 0 {
		return (math.Pow(e, c.inv_g) - c.b) * c.inv_a
	}
	return 0
}

func (c *OffsetGammaCurve) Prepare() error {
	if c.a == 0 || c.g == 0 {
		return fmt.Errorf("offset gamma curve has zero parameter value: a=%f or g=%f", c.a, c.g)
	}
	c.inv_g, c.inv_a = 1/c.g, 1/c.a
	return nil
}

func (c *OffsetGammaCurve) String() string {
	return fmt.Sprintf("OffsetGammaCurve{a: %v b: %v c: %v g: %v}", c.a, c.b, c.c, c.g)
}

func (c *OffsetGammaCurve) Transform(x float64) float64 {
	// Y = (aX+b)^g + c
	if e := c.a*x + c.b; e > 0 {
		return math.Pow(e, c.g) + c.c
	}
	return c.c
}

func (c *OffsetGammaCurve) InverseTransform(y float64) float64 {
	// X = ((Y-c)^(1/g) - b) / a
	if e := y - c.c; e > 0 {
		return (math.Pow(e, c.inv_g) - c.b) * c.inv_a
	}
	return 0
}

func (c *LogCurve) Prepare() error {
	if c.a == 0 || c.b == 0 || c.g == 0 {
		return fmt.Errorf("log curve has zero parameter value: a=%f or b=%f or g=%f", c.a, c.b, c.g)
	}
	return nil
}

func (c *LogCurve) String() string {
	return fmt.Sprintf("LogCurve{a: %v b: %v c: %v d: %v g: %v}", c.a, c.b, c.c, c.d, c.g)
}

func (c *LogCurve) Transform(x float64) float64 {
	// Y = a * log10(b * X^g + c) + d
	if e := c.b*math.Pow(max(0, x), c.g) + c.c; e > 0 {
		return c.a*math.Log10(e) + c.d
	}
	return c.d
}

func (c *LogCurve) InverseTransform(y float64) float64 {
	// X = ((10^((Y-d)/a) - c) / b)^(1/g)
	if e := (math.Pow(10, (y-c.d)/c.a) - c.c) / c.b; e > 0 {
		return math.Pow(e, 1/c.g)
	}
	return 0
}

func (c *ExpCurve) Prepare() error {
	if c.a == 0 || c.c == 0 || c.b <= 0 || c.b == 1 {
		return fmt.Errorf("exp curve has invalid parameter value: a=%f or b=%f or c=%f", c.a, c.b, c.c)
	}
	c.log_b = math.Log(c.b)
	return nil
}

func (c *ExpCurve) String() string {
	return fmt.Sprintf("ExpCurve{a: %v b: %v c: %v d: %v e: %v}", c.a, c.b, c.c, c.d, c.e)
}

func (c *ExpCurve) Transform(x float64) float64 {
	// Y = a * b^(cX+d) + e
	return c.a*math.Pow(c.b, c.c*x+c.d) + c.e
}

func (c *ExpCurve) InverseTransform(y float64) float64 {
	// X = (log(( Y - e) / a) / log(b) - d ) / c
	if e := (y - c.e) / c.a; e > 0 {
		return (math.Log(e)/c.log_b - c.d) / c.c
	}
	return 0
}

func (c *SShapedCurve) Prepare() error {
	if c.g == 0 {
		return fmt.Errorf("S shaped curve has zero gamma value")
	}
	c.inv_g = 1 / c.g
	return nil
}

func (c *SShapedCurve) String() string { return fmt.Sprintf("SShapedCurve{g: %v}", c.g) }

func (c *SShapedCurve) Transform(x float64) float64 {
	// Y = (1 - (1-X)^(1/g))^(1/g)
	return math.Pow(max(0, 1-math.Pow(max(0, 1-x), c.inv_g)), c.inv_g)
}

func (c *SShapedCurve) InverseTransform(y float64) float64 {
	// X = 1 - (1-Y^g)^g
	return 1 - math.Pow(max(0, 1-math.Pow(max(0, y), c.g)), c.g)
}

func sigmoid_base(k, t float64) float64 {
	return (1.0 / (1.0 + math.Exp(-k*t))) - 0.5
}

func inverted_sigmoid_base(k, t float64) float64 {
	return -math.Log((1.0/(t+0.5))-1.0) / k
}

func (c *SigmoidCurve) Prepare() error {
	if c.k <= 0 {
		return fmt.Errorf("sigmoid curve needs a positive slope not: %f", c.k)
	}
	c.correction = 0.5 / sigmoid_base(c.k, 1)
	return nil
}

func (c *SigmoidCurve) String() string { return fmt.Sprintf("SigmoidCurve{k: %v}", c.k) }

func (c *SigmoidCurve) Transform(x float64) float64 {
	return c.correction*sigmoid_base(c.k, 2.0*x-1.0) + 0.5
}

func (c *SigmoidCurve) InverseTransform(y float64) float64 {
	return (inverted_sigmoid_base(c.k, (y-0.5)/c.correction) + 1.0) / 2.0
}
