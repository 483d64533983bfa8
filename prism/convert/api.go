package convert

import (
	"fmt"
	"image"

	"github.com/kovidgoyal/cmspipe"
	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/profile"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// Options control how images are converted. The zero value uses the
// default context and the perceptual intent.
type Options struct {
	Context                *cmspipe.Context
	Intent                 types.Intent
	Flags                  types.Flags
	BlackPointCompensation bool
}

func (o Options) context() *cmspipe.Context {
	if o.Context == nil {
		return cmspipe.DefaultContext()
	}
	return o.Context
}

// Convert re-encodes the pixels of img, described by the from profile,
// into the RGB space of the to profile. The result may be the original
// image modified in place, or a new *image.NRGBA or *image.NRGBA64 when
// the original cannot hold the result.
func Convert(img image.Image, from, to profile.Profile, opts Options) (image.Image, error) {
	const op = "convert.Convert"
	if from == nil || to == nil {
		return nil, cmserr.Configurationf(op, "both profiles are needed")
	}
	if to.ColorSpace() != types.RGB {
		return nil, cmserr.Configurationf(op, "images can only be converted into RGB, not %s", to.ColorSpace())
	}
	if opts.BlackPointCompensation {
		opts.Flags |= types.BlackPointCompensation
	}
	c := &converter{ctx: opts.context(), from: from, to: to, intent: opts.Intent, flags: opts.Flags}
	return c.convert(img)
}

// ConvertToSRGB converts img, described by p, to sRGB with the perceptual
// intent.
func ConvertToSRGB(p profile.Profile, img image.Image) (image.Image, error) {
	return Convert(img, p, profile.NewSRGB(), Options{})
}
