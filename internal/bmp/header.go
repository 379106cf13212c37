package bmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
)

// compression methods
const (
	biRGB       = 0
	biBitfields = 3
)

var errShortBlob = errors.New("bmp: field out of range")

// cursor reads little-endian fields at fixed offsets of a header blob.
// The first out-of-range read sticks in err and every later read returns 0.
type cursor struct {
	b   []byte
	err error
}

func (c *cursor) field(off, n int) []byte {
	if c.err != nil {
		return nil
	}
	if off < 0 || off+n > len(c.b) {
		c.err = fmt.Errorf("%w: %d bytes at offset %d of %d", errShortBlob, n, off, len(c.b))
		return nil
	}
	return c.b[off : off+n]
}

func (c *cursor) u16(off int) uint16 {
	b := c.field(off, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) u32(off int) uint32 {
	b := c.field(off, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) i32(off int) int32 {
	return int32(c.u32(off))
}

type FileHeader struct {
	Signature  [2]byte
	FileSize   uint32
	DataOffset uint32
}

func readFileHeader(r io.Reader) (FileHeader, error) {
	b := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return FileHeader{}, fmt.Errorf("%w: %v", ErrIncorrectFileHeader, err)
	}

	if string(b[:2]) != "BM" {
		return FileHeader{}, fmt.Errorf("%w: file signature should be 'BM' (got: %q)", ErrIncorrectFileHeader, b[:2])
	}

	c := &cursor{b: b}
	h := FileHeader{
		Signature:  [2]byte{b[0], b[1]},
		FileSize:   c.u32(0x02),
		DataOffset: c.u32(0x0a),
	}
	return h, c.err
}

// InfoHeader holds the DIB header fields the decoder uses. Height is always
// positive; a negative declared height sets TopDown.
type InfoHeader struct {
	Size        uint32
	Width       int32
	Height      int32
	Planes      uint16
	BitCount    uint16
	Compression uint32
	SizeImage   uint32
	ColorUsed   uint32
	TopDown     bool

	// channel masks, only present in headers of 52 bytes and more
	RedMask   uint32
	GreenMask uint32
	BlueMask  uint32
	AlphaMask uint32
}

func supportedInfoHeaderSize(n uint32) bool {
	switch n {
	case 40, 52, 56, 64, 108, 124:
		return true
	}
	return false
}

// ReadInfoHeader reads a DIB header whose first 4 bytes give its length.
func ReadInfoHeader(r io.Reader) (InfoHeader, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return InfoHeader{}, fmt.Errorf("%w: %v", ErrIncorrectInfoHeader, err)
	}

	n := binary.LittleEndian.Uint32(size[:])
	if !supportedInfoHeaderSize(n) {
		return InfoHeader{}, fmt.Errorf("%w: unsupported DIB header size (got: %d)", ErrIncorrectInfoHeader, n)
	}

	// the size field is part of the header blob, so offsets match the layout
	b := make([]byte, n)
	copy(b, size[:])
	if _, err := io.ReadFull(r, b[4:]); err != nil {
		return InfoHeader{}, fmt.Errorf("%w: %v", ErrIncorrectInfoHeader, err)
	}

	c := &cursor{b: b}
	h := InfoHeader{
		Size:        n,
		Width:       c.i32(0x04),
		Height:      c.i32(0x08),
		Planes:      c.u16(0x0c),
		BitCount:    c.u16(0x0e),
		Compression: c.u32(0x10),
		SizeImage:   c.u32(0x14),
		ColorUsed:   c.u32(0x20),
	}
	if n >= 52 {
		h.RedMask, h.GreenMask, h.BlueMask = c.u32(0x28), c.u32(0x2c), c.u32(0x30)
	}
	if n >= 56 {
		h.AlphaMask = c.u32(0x34)
	}
	if c.err != nil {
		return InfoHeader{}, fmt.Errorf("%w: %v", ErrIncorrectInfoHeader, c.err)
	}

	if h.Width <= 0 {
		return InfoHeader{}, fmt.Errorf("%w: width should be greater than zero (got: %d)", ErrIncorrectInfoHeader, h.Width)
	}

	if h.Height == math.MinInt32 {
		return InfoHeader{}, fmt.Errorf("%w: height %d cannot be negated", ErrGeometryOverflow, h.Height)
	}
	if h.Height < 0 {
		h.Height *= -1
		h.TopDown = true
	}

	if h.Height == 0 {
		return InfoHeader{}, fmt.Errorf("%w: height should be non-zero", ErrIncorrectInfoHeader)
	}

	if h.Planes != 1 {
		return InfoHeader{}, fmt.Errorf("%w: planes should be 1 (got: %d)", ErrIncorrectInfoHeader, h.Planes)
	}

	return h, nil
}

// checkCompression accepts uncompressed data, and BI_BITFIELDS data whose
// masks are the fixed ones the decoder would use anyway.
func checkCompression(h *InfoHeader) error {
	switch h.Compression {
	case biRGB:
		return nil
	case biBitfields:
		// OS/2 headers (64 bytes) keep other fields where the masks would be
		if h.Size < 52 || h.Size == 64 {
			break
		}
		m, ok := fixedMasks[h.BitCount]
		if !ok || (h.BitCount != 16 && h.BitCount != 32) {
			break
		}
		if h.RedMask != m.Red || h.GreenMask != m.Green || h.BlueMask != m.Blue {
			break
		}
		if h.AlphaMask != 0 && !(h.BitCount == 32 && h.AlphaMask == 0xff000000) {
			break
		}
		h.Compression = biRGB
		return nil
	}
	return UnsupportedCompressionError(h.Compression)
}

func readHeaders(r io.Reader) (FileHeader, InfoHeader, error) {
	fh, err := readFileHeader(r)
	if err != nil {
		return FileHeader{}, InfoHeader{}, err
	}

	ih, err := ReadInfoHeader(r)
	if err != nil {
		return FileHeader{}, InfoHeader{}, err
	}

	if err := checkCompression(&ih); err != nil {
		return FileHeader{}, InfoHeader{}, err
	}

	return fh, ih, nil
}
