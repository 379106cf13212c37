package bmp

import (
	"fmt"
	"math"
)

// DefaultMaxImageBytes bounds every buffer the decoder allocates from header
// fields.
const DefaultMaxImageBytes = 1 << 30

// ColorMask describes how to pull each channel out of a packed pixel word:
// channel = (word & mask) >> shift. A zero mask means the channel is absent.
type ColorMask struct {
	Red, Green, Blue, Alpha                     uint32
	RedShift, GreenShift, BlueShift, AlphaShift uint
}

var (
	mask555 = ColorMask{
		Red: 0x00007c00, Green: 0x000003e0, Blue: 0x0000001f,
		RedShift: 10, GreenShift: 5, BlueShift: 0,
	}
	mask888 = ColorMask{
		Red: 0x00ff0000, Green: 0x0000ff00, Blue: 0x000000ff,
		RedShift: 16, GreenShift: 8, BlueShift: 0,
	}
)

// fixedMasks maps a bit count to the mask of the decoded pixels. Indexed
// input is expanded to 32-bit color table entries.
var fixedMasks = map[uint16]ColorMask{
	1:  mask888,
	4:  mask888,
	8:  mask888,
	16: mask555,
	24: mask888,
	32: mask888,
}

// Layout is the pixel plan for one image.
type Layout struct {
	Width    int
	Height   int
	BitCount int

	// PixelSize is the size in bytes of one decoded pixel.
	PixelSize int

	// SrcBytesPerRow is the padded stride of the pixel data in the file,
	// BytesPerRow the stride of the decoded buffer.
	SrcBytesPerRow int
	BytesPerRow    int

	// ImageSize is the number of pixel data bytes to read at DataOffset.
	ImageSize  int
	DataOffset int64

	// ColorCount is the number of color table entries, 0 for direct color.
	ColorCount int

	Mask ColorMask
}

func (l Layout) indexed() bool {
	return l.BitCount <= 8
}

func pixelSize(bitCount uint16) (int, error) {
	switch bitCount {
	case 1, 4, 8, 32:
		return 4, nil
	case 16:
		return 2, nil
	case 24:
		return 3, nil
	}
	return 0, UnsupportedBitCountError(bitCount)
}

// stride rounds a row of the given bit length up to a multiple of 4 bytes.
func stride(width, bits uint64) uint64 {
	return (width*bits + 31) / 32 * 4
}

// mulLimit returns a*b, or false when the product exceeds limit.
func mulLimit(a, b, limit uint64) (uint64, bool) {
	if a != 0 && b > limit/a {
		return 0, false
	}
	return a * b, a*b <= limit
}

func classify(fh FileHeader, ih InfoHeader, maxBytes int) (Layout, error) {
	ps, err := pixelSize(ih.BitCount)
	if err != nil {
		return Layout{}, err
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	limit := uint64(maxBytes)

	w, h := uint64(ih.Width), uint64(ih.Height)
	bc := uint64(ih.BitCount)

	srcStride := stride(w, bc)
	srcSize, ok := mulLimit(srcStride, h, limit)
	if !ok {
		return Layout{}, fmt.Errorf("%w: %dx%d at %d bpp", ErrGeometryOverflow, w, h, bc)
	}

	outStride := stride(w, uint64(ps)*8)
	if ih.BitCount == 24 {
		// 24-bit rows are repacked without padding
		outStride = w * 3
	}
	if _, ok := mulLimit(outStride, h, limit); !ok {
		return Layout{}, fmt.Errorf("%w: %dx%d decoded at %d bytes per pixel", ErrGeometryOverflow, w, h, ps)
	}

	l := Layout{
		Width:          int(w),
		Height:         int(h),
		BitCount:       int(bc),
		PixelSize:      ps,
		SrcBytesPerRow: int(srcStride),
		BytesPerRow:    int(outStride),
		Mask:           fixedMasks[ih.BitCount],
	}

	if l.indexed() {
		n := uint64(ih.ColorUsed)
		if n == 0 {
			n = 1 << bc
		}
		if n > 1<<bc {
			return Layout{}, fmt.Errorf("%w: %d entries for %d bpp", ErrBadColorTable, n, bc)
		}
		l.ColorCount = int(n)
	}

	size := uint64(ih.SizeImage)
	if size == 0 {
		size = srcSize
	}
	if size > limit || size > math.MaxInt {
		return Layout{}, fmt.Errorf("%w: image size %d", ErrGeometryOverflow, size)
	}
	if size < srcSize {
		return Layout{}, fmt.Errorf("%w: image size %d is less than %d rows of %d bytes", ErrTruncatedPixelData, size, h, srcStride)
	}
	l.ImageSize = int(size)

	l.DataOffset = int64(fh.DataOffset)
	if l.DataOffset == 0 {
		// pixel data is assumed to follow the headers and color table
		l.DataOffset = fileHeaderSize + int64(ih.Size) + int64(l.ColorCount)*4
	}

	return l, nil
}
