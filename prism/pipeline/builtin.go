package pipeline

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/colorconv"
)

var _ = fmt.Print

// Tags of the well known custom stages below
const (
	TagLabToXYZ      = "lab-to-xyz"
	TagXYZToLab      = "xyz-to-lab"
	TagLabV2ToV4     = "lab-v2-to-v4"
	TagLabV4ToV2     = "lab-v4-to-v2"
	TagClipNegatives = "clip-negatives"
)

// The inverse of every tag that has one
var InverseTags = map[string]string{
	TagLabToXYZ: TagXYZToLab, TagXYZToLab: TagLabToXYZ,
	TagLabV2ToV4: TagLabV4ToV2, TagLabV4ToV2: TagLabV2ToV4,
}

func must_custom(tag string, in, out int, f EvaluatorFunc) *Custom {
	ans, err := NewCustom(tag, in, out, f)
	if err != nil {
		panic(err)
	}
	return ans
}

// NewLabToXYZ converts normalized Lab into normalized XYZ relative to D50.
func NewLabToXYZ() *Custom {
	return must_custom(TagLabToXYZ, 3, 3, func(in, out []float32) {
		L, a, b := colorconv.DenormalizeLab(float64(in[0]), float64(in[1]), float64(in[2]))
		X, Y, Z := colorconv.LabToXYZ_D50(L, a, b)
		x, y, z := colorconv.NormalizeXYZ(X, Y, Z)
		out[0], out[1], out[2] = float32(x), float32(y), float32(z)
	})
}

// NewXYZToLab converts normalized XYZ relative to D50 into normalized Lab.
func NewXYZToLab() *Custom {
	return must_custom(TagXYZToLab, 3, 3, func(in, out []float32) {
		X, Y, Z := colorconv.DenormalizeXYZ(float64(in[0]), float64(in[1]), float64(in[2]))
		L, a, b := colorconv.XYZToLab_D50(X, Y, Z)
		l, aa, bb := colorconv.NormalizeLab(L, a, b)
		out[0], out[1], out[2] = float32(l), float32(aa), float32(bb)
	})
}

// The legacy Lab encoding puts 100 at 0xff00 rather than 0xffff
const lab_v2_to_v4 = 65535.0 / 65280.0

// NewLabV2ToV4 rescales the legacy 16 bit Lab encoding into the current one.
func NewLabV2ToV4() *Custom {
	return must_custom(TagLabV2ToV4, 3, 3, func(in, out []float32) {
		for i := range 3 {
			out[i] = float32(min(float64(in[i])*lab_v2_to_v4, 1))
		}
	})
}

// NewLabV4ToV2 is the inverse of NewLabV2ToV4.
func NewLabV4ToV2() *Custom {
	return must_custom(TagLabV4ToV2, 3, 3, func(in, out []float32) {
		for i := range 3 {
			out[i] = float32(float64(in[i]) / lab_v2_to_v4)
		}
	})
}

// NewClipNegatives replaces negative values with zero.
func NewClipNegatives(n int) (*Custom, error) {
	return NewCustom(TagClipNegatives, n, n, EvaluatorFunc(func(in, out []float32) {
		for i, v := range in {
			out[i] = max(v, 0)
		}
	}))
}

// NewNormalizeFromLab maps Lab in natural units onto the normalized
// encoding pipelines use.
func NewNormalizeFromLab() *Matrix {
	return NewMatrix3(colorconv.Mat3{{1.0 / 100, 0, 0}, {0, 1.0 / 255, 0}, {0, 0, 1.0 / 255}}, &colorconv.Vec3{0, 128.0 / 255, 128.0 / 255})
}

// NewNormalizeToLab maps normalized Lab onto natural units.
func NewNormalizeToLab() *Matrix {
	return NewMatrix3(colorconv.Mat3{{100, 0, 0}, {0, 255, 0}, {0, 0, 255}}, &colorconv.Vec3{0, -128, -128})
}

// NewChromaticAdaptation adapts normalized XYZ from one white to another.
func NewChromaticAdaptation(from, to colorconv.Vec3) *Matrix {
	return NewMatrix3(colorconv.ChromaticAdaptationMatrix(from, to), nil)
}

// NewBlackPointCorrection scales normalized XYZ so that in_blackpoint maps
// onto out_blackpoint while D50 white stays fixed. Black points are in XYZ
// with Y = 1 for white.
func NewBlackPointCorrection(in_blackpoint, out_blackpoint colorconv.Vec3) *Matrix {
	d50 := colorconv.WhiteD50
	var m colorconv.Mat3
	var offset colorconv.Vec3
	for i := range 3 {
		t := in_blackpoint[i] - d50[i]
		if t == 0 {
			m[i][i] = 1
			continue
		}
		m[i][i] = (out_blackpoint[i] - d50[i]) / t
		// offsets are in normalized units
		offset[i] = -d50[i] * (out_blackpoint[i] - in_blackpoint[i]) / t / colorconv.MaxEncodeableXYZ
	}
	return NewMatrix3(m, &offset)
}
