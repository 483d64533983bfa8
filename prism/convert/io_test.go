package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

func TestFormatFromFilename(t *testing.T) {
	for name, expected := range map[string]Format{
		"a.JPG": JPEG, "a.jpeg": JPEG, "x/y.png": PNG, "a.tif": TIFF, "a.tiff": TIFF, "a.bmp": BMP, "a.webp": WEBP, "a.gif": GIF,
	} {
		f, err := FormatFromFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, expected, f, name)
	}
	_, err := FormatFromFilename("a.xyz")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 7, 5))
	for y := range 5 {
		for x := range 7 {
			img.SetNRGBA(x, y, color.NRGBA{uint8(30 * x), uint8(40 * y), 99, 255})
		}
	}
	for _, f := range []Format{PNG, TIFF, BMP} {
		t.Run(f.String(), func(t *testing.T) {
			path := filepath.Join(dir, "img."+map[Format]string{PNG: "png", TIFF: "tiff", BMP: "bmp"}[f])
			require.NoError(t, Save(img, path))
			loaded, format, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, f, format)
			compare(t, img, loaded, 0)
		})
	}
	assert.ErrorIs(t, Save(img, filepath.Join(dir, "img.webp")), ErrUnsupportedFormat)
}

// with_orientation splices an APP1 segment holding a minimal EXIF block
// with the given orientation into a JPEG stream
func with_orientation(jpeg_data []byte, o uint16) []byte {
	tiff := []byte{
		'I', 'I', 42, 0, 8, 0, 0, 0, // header, IFD0 at offset 8
		1, 0, // one entry
		0x12, 0x01, 3, 0, 1, 0, 0, 0, byte(o), byte(o >> 8), 0, 0, // orientation, SHORT
		0, 0, 0, 0, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	n := len(payload) + 2
	var ans []byte
	ans = append(ans, 0xff, 0xd8, 0xff, 0xe1, byte(n>>8), byte(n))
	ans = append(ans, payload...)
	return append(ans, jpeg_data[2:]...)
}

func TestAutoOrientation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	for y := range 16 {
		for x := range 32 {
			c := color.NRGBA{0, 0, 255, 255}
			if x < 16 {
				c = color.NRGBA{255, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, JPEG))
	red := func(c color.Color) bool {
		r, _, b, _ := c.RGBA()
		return r > 0xc000 && b < 0x4000
	}
	for _, tc := range []struct {
		o          uint16
		size       image.Point
		top_is_red bool
	}{
		{1, image.Pt(32, 16), true},
		{3, image.Pt(32, 16), false},
		{6, image.Pt(16, 32), true},
		{8, image.Pt(16, 32), false},
	} {
		t.Run(fmt.Sprint(tc.o), func(t *testing.T) {
			loaded, format, err := Decode(bytes.NewReader(with_orientation(buf.Bytes(), tc.o)))
			require.NoError(t, err)
			assert.Equal(t, JPEG, format)
			require.Equal(t, tc.size, loaded.Bounds().Size())
			if tc.size.X > tc.size.Y {
				// wide images are split into left and right halves
				assert.Equal(t, tc.top_is_red, red(loaded.At(4, 8)))
				assert.Equal(t, !tc.top_is_red, red(loaded.At(28, 8)))
			} else {
				assert.Equal(t, tc.top_is_red, red(loaded.At(8, 4)))
				assert.Equal(t, !tc.top_is_red, red(loaded.At(8, 28)))
			}
		})
	}
	loaded, _, err := Decode(bytes.NewReader(with_orientation(buf.Bytes(), 6)), AutoOrientation(false))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(32, 16), loaded.Bounds().Size())
}

func TestOrientationSource(t *testing.T) {
	const w, h = 3, 2
	for _, tc := range []struct {
		o        orientation
		expected [][2]int // source of displayed (0,0) and (1,0)
	}{
		{orientationNormal, [][2]int{{0, 0}, {1, 0}}},
		{orientationFlipH, [][2]int{{2, 0}, {1, 0}}},
		{orientationRotate180, [][2]int{{2, 1}, {1, 1}}},
		{orientationFlipV, [][2]int{{0, 1}, {1, 1}}},
		{orientationTranspose, [][2]int{{0, 0}, {0, 1}}},
		{orientationRotate270, [][2]int{{0, 1}, {0, 0}}},
		{orientationTransverse, [][2]int{{2, 1}, {2, 0}}},
		{orientationRotate90, [][2]int{{2, 0}, {2, 1}}},
	} {
		for x, e := range tc.expected {
			sx, sy := tc.o.source(x, 0, w, h)
			assert.Equal(t, e, [2]int{sx, sy}, "orientation %d x=%d", tc.o, x)
		}
	}
}
