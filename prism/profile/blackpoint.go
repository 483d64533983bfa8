package profile

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// DetectBlackPoint finds the darkest color a profile produces for the
// given intent, in XYZ. Absolute colorimetric and link profiles have no
// black point and return zero.
func DetectBlackPoint(p Profile, intent types.Intent) colorconv.Vec3 {
	if p.Class().IsDeviceLink() {
		return colorconv.Vec3{}
	}
	switch intent {
	case types.Perceptual, types.Saturation:
		if IsMatrixShaper(p) {
			return black_point_as_darker_colorant(p, types.RelativeColorimetric)
		}
	case types.RelativeColorimetric:
		if p.Class() == OutputClass && p.ColorSpace() == types.CMYK {
			return black_point_using_perceptual_black(p)
		}
	default:
		return colorconv.Vec3{}
	}
	return black_point_as_darker_colorant(p, intent)
}

// only the lightness of a black point is kept
func neutral_black(pcs types.ColorModel, v []float32, max_l float64) colorconv.Vec3 {
	xyz := PCSToXYZ(pcs, v)
	l, _, _ := colorconv.XYZToLab_D50(xyz[0], xyz[1], xyz[2])
	if l < 0 || l > max_l {
		l = 0
	}
	x, y, z := colorconv.LabToXYZ_D50(l, 0, 0)
	return colorconv.Vec3{x, y, z}
}

func black_point_as_darker_colorant(p Profile, intent types.Intent) colorconv.Vec3 {
	bp := DeviceBlack(p.ColorSpace(), p.Channels())
	if bp == nil {
		return colorconv.Vec3{}
	}
	tr, err := p.ToPCS(intent)
	if err != nil {
		return colorconv.Vec3{}
	}
	var out [types.MaxChannels]float32
	tr.Eval(bp, out[:])
	return neutral_black(p.PCS(), out[:3], 50)
}

// Output profiles know best what their black is: map PCS black through
// the perceptual tables to the device and back.
func black_point_using_perceptual_black(p Profile) colorconv.Vec3 {
	dev, err := p.FromPCS(types.Perceptual)
	if err != nil {
		return colorconv.Vec3{}
	}
	tr, err := p.ToPCS(types.Perceptual)
	if err != nil {
		return colorconv.Vec3{}
	}
	var device, pcs [types.MaxChannels]float32
	dev.Eval(XYZToPCS(p.PCS(), colorconv.Vec3{}), device[:])
	tr.Eval(device[:], pcs[:])
	xyz := PCSToXYZ(p.PCS(), pcs[:3])
	l, _, _ := colorconv.XYZToLab_D50(xyz[0], xyz[1], xyz[2])
	x, y, z := colorconv.LabToXYZ_D50(min(l, 50), 0, 0)
	return colorconv.Vec3{x, y, z}
}
