package profile

import (
	"fmt"
	"sync"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/interp"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// matrix_shaper is a gray or RGB display profile: tone curves followed by
// a matrix into XYZ.
type matrix_shaper struct {
	description string
	curves      []*curve.ToneCurve
	to_xyz      colorconv.Mat3
	from_xyz    colorconv.Mat3
}

var _ Profile = (*matrix_shaper)(nil)

// NewRGB returns a display profile from the chromaticities of its primaries
// and one tone curve per channel, mapping encoded values to linear light.
func NewRGB(description string, primaries colorconv.Primaries, red, green, blue *curve.ToneCurve) (Profile, error) {
	const op = "profile.NewRGB"
	m, err := colorconv.RGBToXYZMatrix(primaries)
	if err != nil {
		return nil, cmserr.Wrap(cmserr.Configuration, op, err)
	}
	inv, err := m.Inverted()
	if err != nil {
		return nil, cmserr.Wrap(cmserr.Configuration, op, err)
	}
	for _, c := range []*curve.ToneCurve{red, green, blue} {
		if c == nil {
			return nil, cmserr.Configurationf(op, "all three tone curves are needed")
		}
	}
	return &matrix_shaper{description: description, curves: []*curve.ToneCurve{red, green, blue}, to_xyz: m, from_xyz: inv}, nil
}

// NewSRGB returns the IEC 61966-2.1 sRGB profile.
func NewSRGB() Profile {
	c, err := curve.NewParametric(curve.DefaultFormulas(), curve.SplitFunction, 2.4, 1/1.055, 0.055/1.055, 1/12.92, 0.04045)
	if err != nil {
		panic(err)
	}
	ans, err := NewRGB("sRGB IEC61966-2.1", colorconv.SRGBPrimaries, c, c, c)
	if err != nil {
		panic(err)
	}
	return ans
}

// NewLinearRGB returns an RGB profile with the given primaries and no
// companding.
func NewLinearRGB(primaries colorconv.Primaries) (Profile, error) {
	c := curve.NewIdentity()
	return NewRGB("Linear RGB", primaries, c, c, c)
}

// NewGray returns a gray display profile with a pure power law response,
// whose white is D50.
func NewGray(gamma float64) (Profile, error) {
	c, err := curve.NewGamma(gamma)
	if err != nil {
		return nil, err
	}
	return &matrix_shaper{description: fmt.Sprintf("Gray gamma %g", gamma), curves: []*curve.ToneCurve{c}}, nil
}

func (p *matrix_shaper) is_gray() bool                   { return len(p.curves) == 1 }
func (p *matrix_shaper) Description() string             { return p.description }
func (p *matrix_shaper) Class() Class                    { return DisplayClass }
func (p *matrix_shaper) PCS() types.ColorModel           { return types.XYZ }
func (p *matrix_shaper) Channels() int                   { return len(p.curves) }
func (p *matrix_shaper) MediaWhitePoint() colorconv.Vec3 { return colorconv.WhiteD50 }
func (p *matrix_shaper) ColorSpace() types.ColorModel {
	if p.is_gray() {
		return types.Gray
	}
	return types.RGB
}

func (p *matrix_shaper) BlackPoint(intent types.Intent) colorconv.Vec3 {
	return DetectBlackPoint(p, intent)
}

func (p *matrix_shaper) ToneCurve(tag Tag) (*curve.ToneCurve, error) {
	switch {
	case p.is_gray() && tag == GrayTRC:
		return p.curves[0].Clone(), nil
	case !p.is_gray() && tag >= RedTRC && tag <= BlueTRC:
		return p.curves[tag-RedTRC].Clone(), nil
	}
	return nil, missing_tag(p, tag)
}

func (p *matrix_shaper) ToPCS(types.Intent) (*pipeline.Pipeline, error) {
	curves, err := pipeline.NewCurveSet(p.curves...)
	if err != nil {
		return nil, err
	}
	var m *pipeline.Matrix
	if p.is_gray() {
		w := colorconv.WhiteD50
		if m, err = pipeline.NewMatrix(3, 1, []float64{w[0] / colorconv.MaxEncodeableXYZ, w[1] / colorconv.MaxEncodeableXYZ, w[2] / colorconv.MaxEncodeableXYZ}, nil); err != nil {
			return nil, err
		}
	} else {
		s := p.to_xyz
		for r := range 3 {
			for c := range 3 {
				s[r][c] /= colorconv.MaxEncodeableXYZ
			}
		}
		m = pipeline.NewMatrix3(s, nil)
	}
	return pipeline.FromStages(curves, m)
}

func (p *matrix_shaper) FromPCS(types.Intent) (*pipeline.Pipeline, error) {
	inv := make([]*curve.ToneCurve, len(p.curves))
	for i, c := range p.curves {
		var err error
		if inv[i], err = c.Reverse(); err != nil {
			return nil, err
		}
	}
	curves, err := pipeline.NewCurveSet(inv...)
	if err != nil {
		return nil, err
	}
	var m *pipeline.Matrix
	if p.is_gray() {
		if m, err = pipeline.NewMatrix(1, 3, []float64{0, colorconv.MaxEncodeableXYZ, 0}, nil); err != nil {
			return nil, err
		}
	} else {
		s := p.from_xyz
		for r := range 3 {
			for c := range 3 {
				s[r][c] *= colorconv.MaxEncodeableXYZ
			}
		}
		m = pipeline.NewMatrix3(s, nil)
	}
	// out of gamut values are clamped by the curves
	return pipeline.FromStages(m, curves)
}

// lab_identity is the abstract Lab profile whose pipelines do nothing.
type lab_identity struct{}

var _ Profile = lab_identity{}

// NewLab returns the Lab identity profile, usable wherever a profile is
// needed to move values in and out of the Lab PCS.
func NewLab() Profile { return lab_identity{} }

func (lab_identity) Description() string                    { return "Lab identity" }
func (lab_identity) Class() Class                           { return AbstractClass }
func (lab_identity) ColorSpace() types.ColorModel           { return types.Lab }
func (lab_identity) PCS() types.ColorModel                  { return types.Lab }
func (lab_identity) Channels() int                          { return 3 }
func (lab_identity) MediaWhitePoint() colorconv.Vec3        { return colorconv.WhiteD50 }
func (lab_identity) BlackPoint(types.Intent) colorconv.Vec3 { return colorconv.Vec3{} }

func (p lab_identity) ToneCurve(tag Tag) (*curve.ToneCurve, error) { return nil, missing_tag(p, tag) }

func (lab_identity) ToPCS(types.Intent) (*pipeline.Pipeline, error) {
	id, err := pipeline.NewIdentity(3)
	if err != nil {
		return nil, err
	}
	return pipeline.FromStages(id)
}

func (p lab_identity) FromPCS(intent types.Intent) (*pipeline.Pipeline, error) {
	return p.ToPCS(intent)
}

// CMYKOptions tunes the synthetic CMYK printer.
type CMYKOptions struct {
	// Grid points per axis of the CMYK → Lab table, 17 when zero
	ToPCSGridPoints int
	// Grid points per axis of the Lab → CMYK table, 33 when zero
	FromPCSGridPoints int
	// The white of the paper, D50 when zero
	PaperWhite colorconv.Vec3
	// Fraction of the light that full ink coverage still reflects
	InkFloor float64
}

// synthetic_cmyk is a printer whose inks subtract sRGB channels, with
// black replacing the gray component of the other three inks.
type synthetic_cmyk struct {
	opts             CMYKOptions
	to_pcs, from_pcs *pipeline.CLUT
}

var _ Profile = (*synthetic_cmyk)(nil)

var srgb_matrices = sync.OnceValues(func() (colorconv.Mat3, colorconv.Mat3) {
	m, err := colorconv.RGBToXYZMatrix(colorconv.SRGBPrimaries)
	if err != nil {
		panic(err)
	}
	inv, err := m.Inverted()
	if err != nil {
		panic(err)
	}
	return m, inv
})

func (p *synthetic_cmyk) ink(in, out []float32) error {
	floor := p.opts.InkFloor
	m, _ := srgb_matrices()
	k := 1 - float64(in[3])
	var rgb colorconv.Vec3
	for i := range 3 {
		rgb[i] = colorconv.SRGBToLinear(floor + (1-floor)*(1-float64(in[i]))*k)
	}
	xyz := m.Apply(rgb)
	L, a, b := colorconv.XYZToLab_D50(xyz[0], xyz[1], xyz[2])
	l, aa, bb := colorconv.NormalizeLab(L, a, b)
	out[0], out[1], out[2] = float32(l), float32(aa), float32(bb)
	return nil
}

func (p *synthetic_cmyk) separate(in, out []float32) error {
	floor := p.opts.InkFloor
	_, inv := srgb_matrices()
	L, a, b := colorconv.DenormalizeLab(float64(in[0]), float64(in[1]), float64(in[2]))
	x, y, z := colorconv.LabToXYZ_D50(L, a, b)
	lin := inv.Apply(colorconv.Vec3{x, y, z})
	var rgb [3]float64
	for i := range 3 {
		e := colorconv.LinearToSRGB(max(0, min(lin[i], 1)))
		rgb[i] = max(0, min((e-floor)/(1-floor), 1))
	}
	k := 1 - max(rgb[0], rgb[1], rgb[2])
	out[3] = float32(k)
	for i := range 3 {
		if k >= 1 {
			out[i] = 0
		} else {
			out[i] = float32(max(0, min(1-rgb[i]/(1-k), 1)))
		}
	}
	return nil
}

// NewSyntheticCMYK returns an output profile for an idealized four ink
// printer, tabulated into CLUTs the way printer profiles are.
func NewSyntheticCMYK(opts CMYKOptions) (Profile, error) {
	if opts.ToPCSGridPoints == 0 {
		opts.ToPCSGridPoints = 17
	}
	if opts.FromPCSGridPoints == 0 {
		opts.FromPCSGridPoints = 33
	}
	if opts.PaperWhite == (colorconv.Vec3{}) {
		opts.PaperWhite = colorconv.WhiteD50
	}
	if opts.InkFloor < 0 || opts.InkFloor >= 1 {
		return nil, cmserr.Configurationf("profile.NewSyntheticCMYK", "the ink floor must be in [0,1), not %v", opts.InkFloor)
	}
	ans := &synthetic_cmyk{opts: opts}
	var err error
	if ans.to_pcs, err = pipeline.SampleCLUT(interp.UniformGrid(4, opts.ToPCSGridPoints), 3, false, ans.ink); err != nil {
		return nil, err
	}
	if ans.from_pcs, err = pipeline.SampleCLUT(interp.UniformGrid(3, opts.FromPCSGridPoints), 4, false, ans.separate); err != nil {
		return nil, err
	}
	return ans, nil
}

func (p *synthetic_cmyk) Description() string             { return "Synthetic CMYK" }
func (p *synthetic_cmyk) Class() Class                    { return OutputClass }
func (p *synthetic_cmyk) ColorSpace() types.ColorModel    { return types.CMYK }
func (p *synthetic_cmyk) PCS() types.ColorModel           { return types.Lab }
func (p *synthetic_cmyk) Channels() int                   { return 4 }
func (p *synthetic_cmyk) MediaWhitePoint() colorconv.Vec3 { return p.opts.PaperWhite }

func (p *synthetic_cmyk) ToneCurve(tag Tag) (*curve.ToneCurve, error) {
	return nil, missing_tag(p, tag)
}

func (p *synthetic_cmyk) BlackPoint(intent types.Intent) colorconv.Vec3 {
	return DetectBlackPoint(p, intent)
}

func (p *synthetic_cmyk) ToPCS(types.Intent) (*pipeline.Pipeline, error) {
	return pipeline.FromStages(p.to_pcs.Clone())
}

func (p *synthetic_cmyk) FromPCS(types.Intent) (*pipeline.Pipeline, error) {
	return pipeline.FromStages(p.from_pcs.Clone())
}
