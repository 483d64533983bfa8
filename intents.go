package cmspipe

import (
	"fmt"
	"math"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/prism/profile"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// IntentHandler builds the device link joining a chain of profiles. The
// slices all have one entry per profile.
type IntentHandler func(c *Context, profiles []profile.Profile, intents []types.Intent, bpc []bool, adaptation []float64, flags types.Flags) (*pipeline.Pipeline, error)

// matrices closer to the identity than this are left out of the link
const empty_layer_threshold = 0.002

func is_empty_layer(m colorconv.Mat3, offset colorconv.Vec3) bool {
	diff := 0.
	for r := range 3 {
		for c := range 3 {
			if r == c {
				diff += math.Abs(m[r][c] - 1)
			} else {
				diff += math.Abs(m[r][c])
			}
		}
		diff += math.Abs(offset[r])
	}
	return diff < empty_layer_threshold
}

// compute_conversion returns the PCS to PCS correction between two adjacent
// profiles, nil when there is none. Every profile here is D50 adapted, so
// partial adaptation states collapse onto the white point scaling.
func compute_conversion(prev, cur profile.Profile, intent types.Intent, bpc bool) *pipeline.Matrix {
	if intent == types.AbsoluteColorimetric {
		win, wout := prev.MediaWhitePoint(), cur.MediaWhitePoint()
		var m colorconv.Mat3
		for i := range 3 {
			m[i][i] = 1
			if wout[i] != 0 {
				m[i][i] = win[i] / wout[i]
			}
		}
		return pipeline.NewMatrix3(m, nil)
	}
	if bpc {
		bin, bout := prev.BlackPoint(intent), cur.BlackPoint(intent)
		if bin != bout {
			return pipeline.NewBlackPointCorrection(bin, bout)
		}
	}
	return nil
}

// add_conversion appends the stages moving values from the PCS in to the
// PCS out, applying m on the way.
func add_conversion(op string, p *pipeline.Pipeline, in, out types.ColorModel, m *pipeline.Matrix) error {
	if m != nil {
		mat, off, _ := m.AsMat3()
		if is_empty_layer(mat, off) {
			m = nil
		}
	}
	var stages []pipeline.Stage
	switch {
	case in == types.XYZ && out == types.XYZ:
		if m != nil {
			stages = append(stages, m)
		}
	case in == types.XYZ && out == types.Lab:
		if m != nil {
			stages = append(stages, m)
		}
		stages = append(stages, pipeline.NewXYZToLab())
	case in == types.Lab && out == types.XYZ:
		stages = append(stages, pipeline.NewLabToXYZ())
		if m != nil {
			stages = append(stages, m)
		}
	case in == types.Lab && out == types.Lab:
		if m != nil {
			stages = append(stages, pipeline.NewLabToXYZ(), m, pipeline.NewXYZToLab())
		}
	default:
		if in != out {
			return cmserr.Configurationf(op, "cannot connect %s to %s", in, out)
		}
	}
	if len(stages) == 0 {
		return nil
	}
	return p.Append(stages...)
}

func is_pcs(m types.ColorModel) bool { return m == types.XYZ || m == types.Lab }

// the two connection spaces convert into each other
func compatible(a, b types.ColorModel) bool { return a == b || (is_pcs(a) && is_pcs(b)) }

// DefaultIntentHandler links ICC style profiles: every profile contributes
// its table toward or away from the PCS and adjacent profiles are joined by
// the PCS conversions, black point compensation and the absolute
// colorimetric white point scaling.
func DefaultIntentHandler(c *Context, profiles []profile.Profile, intents []types.Intent, bpc []bool, adaptation []float64, flags types.Flags) (*pipeline.Pipeline, error) {
	const op = "cmspipe.DefaultIntentHandler"
	if len(profiles) == 0 {
		return nil, cmserr.Configurationf(op, "no profiles to link")
	}
	ans := pipeline.New(0, 0)
	current := profiles[0].ColorSpace()
	for i, p := range profiles {
		link := p.Class().IsDeviceLink()
		is_input := !is_pcs(current)
		if i == 0 {
			is_input = !link
		}
		var space_in, space_out types.ColorModel
		if is_input || link {
			space_in, space_out = p.ColorSpace(), p.PCS()
		} else {
			space_in, space_out = p.PCS(), p.ColorSpace()
		}
		if !compatible(space_in, current) {
			return nil, cmserr.Configurationf(op, "%s expects %s but the chain produces %s at position %d", p.Description(), space_in, current, i)
		}
		var lut *pipeline.Pipeline
		var err error
		switch {
		case link:
			if i > 0 && is_pcs(current) {
				var m *pipeline.Matrix
				if p.Class() == profile.AbstractClass {
					m = compute_conversion(profiles[i-1], p, intents[i], bpc[i])
				}
				if err = add_conversion(op, ans, current, space_in, m); err != nil {
					return nil, err
				}
			}
			lut, err = p.ToPCS(intents[i])
		case is_input:
			lut, err = p.ToPCS(intents[i])
		default:
			if i > 0 {
				if err = add_conversion(op, ans, current, space_in, compute_conversion(profiles[i-1], p, intents[i], bpc[i])); err != nil {
					return nil, err
				}
			}
			lut, err = p.FromPCS(intents[i])
		}
		if err != nil {
			return nil, cmserr.Wrap(cmserr.Configuration, op, err)
		}
		if err = ans.Cat(lut); err != nil {
			return nil, err
		}
		current = space_out
	}
	if in, _ := ans.IOSig(); in == 0 {
		return nil, cmserr.Configurationf(op, "the profiles produced an empty link")
	}
	return ans, nil
}

// link_spaces returns the color models at both ends of a profile chain
func link_spaces(profiles []profile.Profile) (entry, exit types.ColorModel) {
	entry = profiles[0].ColorSpace()
	current := entry
	for i, p := range profiles {
		link := p.Class().IsDeviceLink()
		is_input := !is_pcs(current)
		if i == 0 {
			is_input = !link
		}
		if is_input || link {
			current = p.PCS()
		} else {
			current = p.ColorSpace()
		}
	}
	return entry, current
}

// CreateMultiprofileTransform links profiles with the default context.
func CreateMultiprofileTransform(profiles []profile.Profile, intents []types.Intent, bpc []bool, adaptation []float64, in, out types.PixelFormat, flags types.Flags) (*Transform, error) {
	return DefaultContext().CreateMultiprofileTransform(profiles, intents, bpc, adaptation, in, out, flags)
}

// CreateMultiprofileTransform builds the device link for a chain of
// profiles with the handler registered for the first intent and wraps it in
// a transform. A single intent applies to every profile. bpc and adaptation
// may be nil, meaning no black point compensation and full adaptation.
// The BlackPointCompensation flag turns compensation on everywhere except
// for the absolute colorimetric intent, which never uses it.
func (c *Context) CreateMultiprofileTransform(profiles []profile.Profile, intents []types.Intent, bpc []bool, adaptation []float64, in, out types.PixelFormat, flags types.Flags) (*Transform, error) {
	const op = "cmspipe.CreateMultiprofileTransform"
	n := len(profiles)
	if n == 0 {
		return nil, c.report(cmserr.Configurationf(op, "no profiles"))
	}
	for i, p := range profiles {
		if p == nil {
			return nil, c.report(cmserr.Configurationf(op, "profile %d is nil", i))
		}
	}
	switch len(intents) {
	case n:
		intents = append([]types.Intent(nil), intents...)
	case 1:
		intents = repeat(intents[0], n)
	default:
		return nil, c.report(cmserr.Configurationf(op, "%d intents for %d profiles", len(intents), n))
	}
	switch len(bpc) {
	case n:
		bpc = append([]bool(nil), bpc...)
	case 0:
		bpc = make([]bool, n)
	default:
		return nil, c.report(cmserr.Configurationf(op, "%d black point compensation flags for %d profiles", len(bpc), n))
	}
	switch len(adaptation) {
	case n:
		for i, a := range adaptation {
			if a < 0 || a > 1 {
				return nil, c.report(cmserr.Configurationf(op, "adaptation state %d is %v, outside [0,1]", i, a))
			}
		}
	case 0:
		adaptation = repeat(1.0, n)
	default:
		return nil, c.report(cmserr.Configurationf(op, "%d adaptation states for %d profiles", len(adaptation), n))
	}
	for i := range bpc {
		if flags.Has(types.BlackPointCompensation) {
			bpc[i] = true
		}
		if intents[i] == types.AbsoluteColorimetric {
			bpc[i] = false
		}
	}
	// formats without a model accept anything
	entry, exit := link_spaces(profiles)
	if in.Model != types.UnknownModel && in.Model != entry {
		return nil, c.report(cmserr.Configurationf(op, "the input format %s does not hold %s", in, entry))
	}
	if out.Model != types.UnknownModel && out.Model != exit {
		return nil, c.report(cmserr.Configurationf(op, "the output format %s does not hold %s", out, exit))
	}
	h, found := c.IntentHandler(intents[0])
	if !found {
		return nil, c.report(cmserr.Configurationf(op, "no handler for the %s intent", intents[0]))
	}
	link, err := h(c, profiles, intents, bpc, adaptation, flags)
	if err != nil {
		return nil, c.report(cmserr.Wrap(cmserr.Configuration, op, err))
	}
	return c.CreateTransform(in, out, link, intents[0], flags)
}

func repeat[T any](v T, n int) []T {
	ans := make([]T, n)
	for i := range ans {
		ans[i] = v
	}
	return ans
}
