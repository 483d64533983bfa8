package main

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/kovidgoyal/cmspipe"
	"github.com/kovidgoyal/cmspipe/colorconv"
	"github.com/kovidgoyal/cmspipe/prism/convert"
	"github.com/kovidgoyal/cmspipe/prism/profile"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// apply runs a profile chain from the pixels of src into dst
func apply(profiles []profile.Profile, intent types.Intent, src *image.NRGBA, out types.PixelFormat, dst []byte, dst_stride int) error {
	tr, err := cmspipe.CreateMultiprofileTransform(profiles, []types.Intent{intent}, nil, nil, types.RGBA8, out, 0)
	if err != nil {
		return err
	}
	b := src.Bounds()
	return tr.DoTransformParallel(src.Pix, dst, b.Dx(), b.Dy(), src.Stride, dst_stride)
}

func as_nrgba(img image.Image) *image.NRGBA {
	b := img.Bounds()
	ans := image.NewNRGBA(b)
	draw.Draw(ans, b, img, b.Min, draw.Src)
	return ans
}

// proof simulates the synthetic printer: sRGB → CMYK → sRGB
func proof(img image.Image) (image.Image, error) {
	printer, err := profile.NewSyntheticCMYK(profile.CMYKOptions{InkFloor: 0.04})
	if err != nil {
		return nil, err
	}
	src := as_nrgba(img)
	cmyk := image.NewCMYK(src.Bounds())
	if err = apply([]profile.Profile{profile.NewSRGB(), printer}, types.RelativeColorimetric, src, types.CMYK8, cmyk.Pix, cmyk.Stride); err != nil {
		return nil, err
	}
	return convert.Convert(cmyk, printer, profile.NewSRGB(), convert.Options{Intent: types.RelativeColorimetric, BlackPointCompensation: true})
}

func convert_image(mode string, img image.Image) (image.Image, error) {
	srgb := profile.NewSRGB()
	switch mode {
	case "linear":
		linear, err := profile.NewLinearRGB(colorconv.SRGBPrimaries)
		if err != nil {
			return nil, err
		}
		return convert.Convert(img, srgb, linear, convert.Options{})
	case "gray":
		gray, err := profile.NewGray(2.2)
		if err != nil {
			return nil, err
		}
		src := as_nrgba(img)
		g := image.NewGray(src.Bounds())
		if err = apply([]profile.Profile{srgb, gray}, types.Perceptual, src, types.Gray8, g.Pix, g.Stride); err != nil {
			return nil, err
		}
		return convert.ConvertToSRGB(gray, g)
	case "proof":
		return proof(img)
	}
	return nil, fmt.Errorf("unknown mode: %s", mode)
}

func main() {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}()
	if len(os.Args) < 3 || len(os.Args) > 4 {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/demo linear|gray|proof input-file [output-file]")
		os.Exit(1)
	}
	img, format, err := convert.Open(os.Args[2])
	if err != nil {
		return
	}
	fmt.Printf("Loaded %s image of size %v\n", format, img.Bounds().Size())
	if img, err = convert_image(os.Args[1], img); err != nil {
		return
	}
	output_file := os.Args[2] + "-" + os.Args[1] + ".png"
	if len(os.Args) == 4 {
		output_file = os.Args[3]
	}
	if err = convert.Save(img, output_file); err == nil {
		fmt.Println("Saved to:", output_file)
	}
}
