package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var _ = fmt.Print

type Format int

const (
	UNKNOWN Format = iota
	JPEG
	PNG
	GIF
	TIFF
	WEBP
	BMP
)

var format_names = map[Format]string{
	JPEG: "JPEG", PNG: "PNG", GIF: "GIF", TIFF: "TIFF", WEBP: "WEBP", BMP: "BMP",
}

func (f Format) String() string {
	if ans, ok := format_names[f]; ok {
		return ans
	}
	return "Unknown"
}

var format_exts = map[string]Format{
	"jpg": JPEG, "jpeg": JPEG, "png": PNG, "gif": GIF, "tif": TIFF, "tiff": TIFF, "bmp": BMP, "webp": WEBP,
}

// ErrUnsupportedFormat means the given image format is not supported.
var ErrUnsupportedFormat = errors.New("convert: unsupported image format")

// FormatFromFilename parses the image format from the filename extension.
func FormatFromFilename(filename string) (Format, error) {
	if f, ok := format_exts[strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))]; ok {
		return f, nil
	}
	return UNKNOWN, ErrUnsupportedFormat
}

type decodeConfig struct {
	autoOrientation bool
}

// DecodeOption sets an optional parameter for Open and Decode.
type DecodeOption func(*decodeConfig)

// AutoOrientation controls whether decoded images are transformed
// according to their EXIF orientation tag, if present. Enabled by default.
func AutoOrientation(enabled bool) DecodeOption {
	return func(c *decodeConfig) {
		c.autoOrientation = enabled
	}
}

// Decode reads an image in any of the formats known to the image package
// plus TIFF, BMP and WEBP.
func Decode(r io.Reader, opts ...DecodeOption) (image.Image, Format, error) {
	cfg := decodeConfig{autoOrientation: true}
	for _, o := range opts {
		o(&cfg)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, UNKNOWN, err
	}
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, UNKNOWN, err
	}
	f := format_exts[name]
	if cfg.autoOrientation && (f == JPEG || f == TIFF) {
		img = read_orientation(data).apply(img)
	}
	return img, f, nil
}

// Open decodes the image in filename, see Decode.
func Open(filename string, opts ...DecodeOption) (image.Image, Format, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, UNKNOWN, err
	}
	defer file.Close()
	return Decode(file, opts...)
}

// Encode writes img to w. WEBP images can only be decoded.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case PNG:
		return png.Encode(w, img)
	case GIF:
		return gif.Encode(w, img, nil)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case BMP:
		return bmp.Encode(w, img)
	}
	return ErrUnsupportedFormat
}

// Save encodes img into filename, in the format named by its extension.
func Save(img image.Image, filename string) (err error) {
	f, err := FormatFromFilename(filename)
	if err != nil {
		return err
	}
	if f == WEBP {
		return ErrUnsupportedFormat
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = Encode(file, img, f)
	errc := file.Close()
	if err == nil {
		err = errc
	}
	return err
}
