package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/rwcarlsen/goexif/exif"
	exif_tiff "github.com/rwcarlsen/goexif/tiff"
)

var _ = fmt.Print

// orientation is the EXIF flag saying how the stored pixels must be
// transformed for display
type orientation int

const (
	orientationUnspecified orientation = iota
	orientationNormal
	orientationFlipH
	orientationRotate180
	orientationFlipV
	orientationTranspose
	orientationRotate270
	orientationTransverse
	orientationRotate90
)

func read_orientation(data []byte) (ans orientation) {
	// malformed EXIF blocks must not prevent loading the pixels
	defer func() {
		if r := recover(); r != nil {
			ans = orientationUnspecified
		}
	}()
	x, _ := exif.Decode(bytes.NewReader(data))
	if x == nil {
		return orientationUnspecified
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil || tag == nil || tag.Format() != exif_tiff.IntVal {
		return orientationUnspecified
	}
	if v, err := tag.Int(0); err == nil && v > 0 && v < 9 {
		return orientation(v)
	}
	return orientationUnspecified
}

// source returns the position in the stored image of the displayed pixel
// at (x, y), for a stored image of size w x h
func (o orientation) source(x, y, w, h int) (int, int) {
	switch o {
	case orientationFlipH:
		return w - 1 - x, y
	case orientationRotate180:
		return w - 1 - x, h - 1 - y
	case orientationFlipV:
		return x, h - 1 - y
	case orientationTranspose:
		return y, x
	case orientationRotate270:
		return y, h - 1 - x
	case orientationTransverse:
		return w - 1 - y, h - 1 - x
	case orientationRotate90:
		return w - 1 - y, x
	}
	return x, y
}

func (o orientation) swaps_axes() bool {
	return o >= orientationTranspose
}

// apply returns img as it should be displayed. Pixels are copied into an
// NRGBA64 image so that no precision is lost and color conversion can
// proceed in place.
func (o orientation) apply(img image.Image) image.Image {
	if o == orientationUnspecified || o == orientationNormal {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	src := image.NewNRGBA64(image.Rect(0, 0, w, h))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
	dw, dh := w, h
	if o.swaps_axes() {
		dw, dh = h, w
	}
	dst := image.NewNRGBA64(image.Rect(0, 0, dw, dh))
	for y := range dh {
		for x := range dw {
			sx, sy := o.source(x, y, w, h)
			dst.SetNRGBA64(x, y, src.NRGBA64At(sx, sy))
		}
	}
	return dst
}
