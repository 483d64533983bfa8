// Package profile is the interface the engine consumes from color profiles,
// together with a few in-memory profiles that need no ICC data.
//
// Pipelines returned by profiles work in the normalized encodings: device
// values in [0,1], XYZ divided by colorconv.MaxEncodeableXYZ and Lab as
// L/100, (a+128)/255, (b+128)/255. Colorimetric values returned directly,
// such as white and black points, are XYZ with Y = 1 for white.
package profile

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/prism/pipeline"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// Class is the device class of a profile.
type Class int

const (
	InputClass Class = iota
	DisplayClass
	OutputClass
	// Abstract profiles map PCS to PCS and are used like device links
	AbstractClass
	LinkClass
	ColorSpaceClass
)

func (c Class) String() string {
	switch c {
	case InputClass:
		return "Input"
	case DisplayClass:
		return "Display"
	case OutputClass:
		return "Output"
	case AbstractClass:
		return "Abstract"
	case LinkClass:
		return "Link"
	case ColorSpaceClass:
		return "ColorSpace"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// IsDeviceLink is true for classes whose ToPCS pipeline is used as is,
// between whatever color spaces the profile declares.
func (c Class) IsDeviceLink() bool { return c == AbstractClass || c == LinkClass }

// Tag names a tone curve a profile may carry.
type Tag int

const (
	RedTRC Tag = iota
	GreenTRC
	BlueTRC
	GrayTRC
)

func (t Tag) String() string {
	switch t {
	case RedTRC:
		return "rTRC"
	case GreenTRC:
		return "gTRC"
	case BlueTRC:
		return "bTRC"
	case GrayTRC:
		return "kTRC"
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// Profile is what building a multiprofile transform needs from a profile.
// Implementations must return fresh pipelines from ToPCS and FromPCS, the
// caller owns them.
type Profile interface {
	Description() string
	Class() Class
	// The device side color space
	ColorSpace() types.ColorModel
	// Either types.XYZ or types.Lab
	PCS() types.ColorModel
	// Number of device channels
	Channels() int
	ToneCurve(tag Tag) (*curve.ToneCurve, error)
	// Device to PCS, or the whole link for device link classes
	ToPCS(intent types.Intent) (*pipeline.Pipeline, error)
	FromPCS(intent types.Intent) (*pipeline.Pipeline, error)
	BlackPoint(intent types.Intent) colorconv.Vec3
	MediaWhitePoint() colorconv.Vec3
}

func missing_tag(p Profile, tag Tag) error {
	return cmserr.Configurationf("profile.ToneCurve", "%s has no %s tag", p.Description(), tag)
}

// IsMatrixShaper is true for profiles built from tone curves and a matrix
// to XYZ, whose black point is always found from the darkest colorant.
func IsMatrixShaper(p Profile) bool {
	switch p.ColorSpace() {
	case types.Gray:
		_, err := p.ToneCurve(GrayTRC)
		return err == nil && p.PCS() == types.XYZ
	case types.RGB:
		for _, t := range []Tag{RedTRC, GreenTRC, BlueTRC} {
			if _, err := p.ToneCurve(t); err != nil {
				return false
			}
		}
		return p.PCS() == types.XYZ
	}
	return false
}

// DeviceBlack returns the normalized device values that produce the least
// light, nil when the color space has no defined black.
func DeviceBlack(m types.ColorModel, channels int) []float32 {
	switch m {
	case types.Gray, types.RGB:
		return make([]float32, channels)
	case types.CMY, types.CMYK, types.MultiChannel:
		ans := make([]float32, channels)
		for i := range ans {
			ans[i] = 1
		}
		return ans
	case types.Lab:
		return []float32{0, 128.0 / 255, 128.0 / 255}
	}
	return nil
}

// PCSToXYZ converts a normalized PCS value to XYZ with Y = 1 for white.
func PCSToXYZ(pcs types.ColorModel, v []float32) colorconv.Vec3 {
	if pcs == types.Lab {
		L, a, b := colorconv.DenormalizeLab(float64(v[0]), float64(v[1]), float64(v[2]))
		x, y, z := colorconv.LabToXYZ_D50(L, a, b)
		return colorconv.Vec3{x, y, z}
	}
	x, y, z := colorconv.DenormalizeXYZ(float64(v[0]), float64(v[1]), float64(v[2]))
	return colorconv.Vec3{x, y, z}
}

// XYZToPCS is the inverse of PCSToXYZ.
func XYZToPCS(pcs types.ColorModel, xyz colorconv.Vec3) []float32 {
	var a, b, c float64
	if pcs == types.Lab {
		L, aa, bb := colorconv.XYZToLab_D50(xyz[0], xyz[1], xyz[2])
		a, b, c = colorconv.NormalizeLab(L, aa, bb)
	} else {
		a, b, c = colorconv.NormalizeXYZ(xyz[0], xyz[1], xyz[2])
	}
	return []float32{float32(a), float32(b), float32(c)}
}
