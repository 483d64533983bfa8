package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/kovidgoyal/cmspipe"
	"github.com/kovidgoyal/cmspipe/prism/profile"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// Go images store 16 bit samples big endian
var (
	rgba16 = types.RGBA16.ByteSwapped()
	gray16 = types.Gray16.ByteSwapped()
)

type converter struct {
	ctx      *cmspipe.Context
	from, to profile.Profile
	intent   types.Intent
	flags    types.Flags
}

func (c *converter) transform(in, out types.PixelFormat) (*cmspipe.Transform, error) {
	return c.ctx.CreateMultiprofileTransform([]profile.Profile{c.from, c.to}, []types.Intent{c.intent}, nil, nil, in, out, c.flags)
}

// run converts a block of rows, src and dst start at the first pixel
func (c *converter) run(in, out types.PixelFormat, src, dst []byte, width, height, src_stride, dst_stride int) error {
	tr, err := c.transform(in, out)
	if err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return nil
	}
	return tr.DoTransformParallel(src, dst, width, height, src_stride, dst_stride)
}

func opaque_nrgba64(b image.Rectangle) *image.NRGBA64 {
	ans := image.NewNRGBA64(b)
	for i := 6; i < len(ans.Pix); i += 8 {
		ans.Pix[i], ans.Pix[i+1] = 0xff, 0xff
	}
	return ans
}

func (c *converter) expand(img image.Image, deep bool) (image.Image, error) {
	b := img.Bounds()
	var d draw.Image
	if deep {
		d = image.NewNRGBA64(b)
	} else {
		d = image.NewNRGBA(b)
	}
	draw.Draw(d, b, img, b.Min, draw.Src)
	return c.convert(d)
}

func (c *converter) convert(image_any image.Image) (ans image.Image, err error) {
	b := image_any.Bounds()
	width, height := b.Dx(), b.Dy()
	ans = image_any
	switch img := image_any.(type) {
	case *image.NRGBA:
		off := img.PixOffset(b.Min.X, b.Min.Y)
		err = c.run(types.RGBA8, types.RGBA8, img.Pix[off:], img.Pix[off:], width, height, img.Stride, img.Stride)
	case *RGBImage:
		off := img.PixOffset(b.Min.X, b.Min.Y)
		err = c.run(types.RGB8, types.RGB8, img.Pix[off:], img.Pix[off:], width, height, img.Stride, img.Stride)
	case *image.NRGBA64:
		off := img.PixOffset(b.Min.X, b.Min.Y)
		err = c.run(rgba16, rgba16, img.Pix[off:], img.Pix[off:], width, height, img.Stride, img.Stride)
	case *image.Gray:
		if c.from.ColorSpace() != types.Gray {
			return c.expand(img, false)
		}
		d := NewRGBImage(b)
		ans = d
		err = c.run(types.Gray8, types.RGB8, img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], d.Pix, width, height, img.Stride, d.Stride)
	case *image.Gray16:
		if c.from.ColorSpace() != types.Gray {
			return c.expand(img, true)
		}
		d := opaque_nrgba64(b)
		ans = d
		err = c.run(gray16, rgba16, img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], d.Pix, width, height, img.Stride, d.Stride)
	case *image.CMYK:
		d := NewRGBImage(b)
		ans = d
		err = c.run(types.CMYK8, types.RGB8, img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], d.Pix, width, height, img.Stride, d.Stride)
	case *image.Paletted:
		buf := make([]byte, 8*len(img.Palette))
		for i, x := range img.Palette {
			q := color.NRGBA64Model.Convert(x).(color.NRGBA64)
			s := buf[8*i : 8*i+8 : 8*i+8]
			s[0], s[1] = uint8(q.R>>8), uint8(q.R)
			s[2], s[3] = uint8(q.G>>8), uint8(q.G)
			s[4], s[5] = uint8(q.B>>8), uint8(q.B)
			s[6], s[7] = uint8(q.A>>8), uint8(q.A)
		}
		if err = c.run(rgba16, rgba16, buf, buf, len(img.Palette), 1, len(buf), len(buf)); err != nil {
			return
		}
		for i := range img.Palette {
			s := buf[8*i : 8*i+8 : 8*i+8]
			img.Palette[i] = color.NRGBA64{
				R: uint16(s[0])<<8 | uint16(s[1]), G: uint16(s[2])<<8 | uint16(s[3]),
				B: uint16(s[4])<<8 | uint16(s[5]), A: uint16(s[6])<<8 | uint16(s[7]),
			}
		}
	case *image.RGBA, *image.YCbCr, *image.NYCbCrA:
		// premultiplied or subsampled pixels are decoded into a copy first
		return c.expand(img, false)
	default:
		return c.expand(img, true)
	}
	if err != nil {
		return nil, err
	}
	return
}
