package cmspipe

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/formatter"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/kovidgoyal/cmspipe/prism/optimize"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// ErrorHandler receives every construction failure. It is called from
// whichever goroutine is building the transform.
type ErrorHandler func(err *cmserr.Error)

// Context holds the pluggable parts of the engine. A Context is immutable
// once built, derive modified copies with With. Everything it holds must
// be safe to call concurrently.
type Context struct {
	formulas      *curve.Formulas
	interpolators []interp.Factory
	formatters    []formatter.Factory
	optimizers    []optimize.Matcher
	intents       map[types.Intent]IntentHandler
	grid_points   optimize.GridPointsFunc
	error_handler ErrorHandler
}

// Option sets an optional parameter of a Context.
type Option func(*Context)

// WithFormulas adds parametric curve formulas, replacing built-in ones
// with the same ids.
func WithFormulas(formulas ...curve.Formula) Option {
	return func(c *Context) {
		c.formulas = c.formulas.With(formulas...)
	}
}

// WithInterpolatorFactory adds a factory consulted before the built-in
// interpolators whenever a CLUT is built.
func WithInterpolatorFactory(f interp.Factory) Option {
	return func(c *Context) {
		c.interpolators = append(c.interpolators, f)
	}
}

// WithFormatterFactory adds a factory consulted before the built-in
// formatter when a transform binds its buffer formats.
func WithFormatterFactory(f formatter.Factory) Option {
	return func(c *Context) {
		c.formatters = append(c.formatters, f)
	}
}

// WithOptimizer adds a matcher tried before the built-in optimizations, in
// the order added.
func WithOptimizer(m optimize.Matcher) Option {
	return func(c *Context) {
		c.optimizers = append(c.optimizers, m)
	}
}

// WithIntentHandler registers the device link builder for an intent.
func WithIntentHandler(intent types.Intent, h IntentHandler) Option {
	return func(c *Context) {
		c.intents[intent] = h
	}
}

// WithGridPointsFunc replaces the heuristic choosing the CLUT size when
// pipelines are resampled.
func WithGridPointsFunc(f optimize.GridPointsFunc) Option {
	return func(c *Context) {
		c.grid_points = f
	}
}

// WithErrorHandler installs the hook receiving construction failures. The
// default hook discards them, they are returned to the caller regardless.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Context) {
		c.error_handler = h
	}
}

// DefaultContext is the process wide context with the built-in plugins.
var DefaultContext = sync.OnceValue(func() *Context {
	ans := &Context{
		formulas:      curve.DefaultFormulas(),
		intents:       make(map[types.Intent]IntentHandler, 4),
		grid_points:   optimize.ReasonableGridPoints,
		error_handler: func(*cmserr.Error) {},
	}
	for _, i := range []types.Intent{types.Perceptual, types.RelativeColorimetric, types.Saturation, types.AbsoluteColorimetric} {
		ans.intents[i] = DefaultIntentHandler
	}
	return ans
})

// NewContext returns the default context modified by opts.
func NewContext(opts ...Option) *Context {
	return DefaultContext().With(opts...)
}

// With returns a copy of c modified by opts. c itself is unchanged.
func (c *Context) With(opts ...Option) *Context {
	ans := &Context{
		formulas:      c.formulas,
		interpolators: slices.Clone(c.interpolators),
		formatters:    slices.Clone(c.formatters),
		optimizers:    slices.Clone(c.optimizers),
		intents:       maps.Clone(c.intents),
		grid_points:   c.grid_points,
		error_handler: c.error_handler,
	}
	for _, o := range opts {
		o(ans)
	}
	if ans.error_handler == nil {
		ans.error_handler = func(*cmserr.Error) {}
	}
	if ans.grid_points == nil {
		ans.grid_points = optimize.ReasonableGridPoints
	}
	return ans
}

func (c *Context) Formulas() *curve.Formulas { return c.formulas }

// ParametricCurve builds a curve from the formulas known to this context.
func (c *Context) ParametricCurve(id int, params ...float64) (*curve.ToneCurve, error) {
	ans, err := curve.NewParametric(c.formulas, id, params...)
	return ans, c.report(err)
}

// NewCLUT wraps a grid with an interpolator from this context.
func (c *Context) NewCLUT(p *interp.Params, trilinear bool) (*pipeline.CLUT, error) {
	ans, err := pipeline.NewCLUT(p, trilinear, c.interpolators...)
	return ans, c.report(err)
}

// IntentHandler returns the device link builder registered for intent.
func (c *Context) IntentHandler(intent types.Intent) (IntentHandler, bool) {
	h, found := c.intents[intent]
	return h, found && h != nil
}

// ReasonableGridPoints is the CLUT size used when resampling a pipeline
// whose input is in color model m.
func (c *Context) ReasonableGridPoints(m types.ColorModel, channels int, flags types.Flags) int {
	return c.grid_points(m, channels, flags)
}

// matchers returns the optimizations in priority order
func (c *Context) matchers() []optimize.Matcher {
	return append(slices.Clone(c.optimizers), optimize.Default...)
}

// report routes err through the error handler, typing it as a
// configuration error unless it already has a kind. It returns the typed
// error.
func (c *Context) report(err error) error {
	if err == nil {
		return nil
	}
	var e *cmserr.Error
	if !errors.As(err, &e) {
		e = cmserr.Wrap(cmserr.Configuration, "", err)
	}
	c.error_handler(e)
	return e
}
