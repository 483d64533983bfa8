package formatter

import (
	"fmt"

	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// Lines describes a buffer of pixel rows.
type Lines struct {
	PixelsPerLine, LineCount int
	// distance between the starts of consecutive lines
	BytesPerLineIn, BytesPerLineOut int
	// distance between planes, only used by planar formats
	BytesPerPlaneIn, BytesPerPlaneOut int
}

// PackedLines describes n pixels stored contiguously as a single line.
func PackedLines(in, out types.PixelFormat, n int) Lines {
	return Lines{
		PixelsPerLine: n, LineCount: 1,
		BytesPerLineIn: n * in.BytesPerPixel(), BytesPerLineOut: n * out.BytesPerPixel(),
		BytesPerPlaneIn: n * in.BytesPerChannel(), BytesPerPlaneOut: n * out.BytesPerChannel(),
	}
}

// StridedLines describes rows whose starts are a fixed number of bytes
// apart. Planar rows hold one plane after another, each plane being
// PixelsPerLine samples long.
func StridedLines(in, out types.PixelFormat, pixels_per_line, line_count, bytes_per_line_in, bytes_per_line_out int) Lines {
	return Lines{
		PixelsPerLine: pixels_per_line, LineCount: line_count,
		BytesPerLineIn: bytes_per_line_in, BytesPerLineOut: bytes_per_line_out,
		BytesPerPlaneIn: pixels_per_line * in.BytesPerChannel(), BytesPerPlaneOut: pixels_per_line * out.BytesPerChannel(),
	}
}

// Slice returns the lines [start, limit) along with the byte offsets at
// which they begin in the input and output buffers.
func (l Lines) Slice(start, limit int) (ans Lines, in_offset, out_offset int) {
	ans = l
	ans.LineCount = limit - start
	return ans, start * l.BytesPerLineIn, start * l.BytesPerLineOut
}

// Walker steps through every pixel of a pair of buffers.
type Walker struct {
	in, out types.PixelFormat
	extra   *ExtraCopier
}

// NewWalker returns a walker from buffers of format in into buffers of
// format out. When copy_extra is set, extra channels are copied over as
// each pixel is visited.
func NewWalker(in, out types.PixelFormat, copy_extra bool) *Walker {
	ans := &Walker{in: in, out: out}
	if copy_extra {
		ans.extra = NewExtraCopier(in, out)
	}
	return ans
}

// Run calls f with the channel offsets of every pixel in src and dst.
// Offsets are recomputed per line, so f must not keep them.
func (w *Walker) Run(src, dst []byte, lines Lines, f func(soff, doff []int)) {
	si := ComputeIncrements(w.in, lines.BytesPerPlaneIn)
	di := ComputeIncrements(w.out, lines.BytesPerPlaneOut)
	var sbuf, dbuf [types.MaxChannels]int
	soff, doff := sbuf[:len(si.Start)], dbuf[:len(di.Start)]
	for y := range lines.LineCount {
		sbase, dbase := y*lines.BytesPerLineIn, y*lines.BytesPerLineOut
		for x := range lines.PixelsPerLine {
			si.Offsets(soff, sbase, x)
			di.Offsets(doff, dbase, x)
			f(soff, doff)
			if w.extra != nil {
				w.extra.Copy(src, soff, dst, doff)
			}
		}
	}
}
