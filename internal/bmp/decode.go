package bmp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// readChunk caps the up-front allocation for pixel data; the buffer grows
// only as bytes actually arrive.
const readChunk = 64 << 10

// Result is a decoded pixel buffer. Rows are stored top-down: row 0 is the
// top scanline of the image whatever the order in the file.
type Result struct {
	Width          int
	Height         int
	BytesPerRow    int
	PixelSize      int
	BitsPerPixel   int
	SourceBitCount int
	SourceTopDown  bool
	Mask           ColorMask
	Data           []byte
}

type decoder struct {
	fh         FileHeader
	ih         InfoHeader
	layout     Layout
	colorTable []uint32

	// number of bytes consumed from the stream
	pos int64
}

func newDecoder(r io.Reader, maxBytes int) (*decoder, error) {
	fh, ih, err := readHeaders(r)
	if err != nil {
		return nil, err
	}

	l, err := classify(fh, ih, maxBytes)
	if err != nil {
		return nil, err
	}

	d := &decoder{
		fh:     fh,
		ih:     ih,
		layout: l,
		pos:    fileHeaderSize + int64(ih.Size),
	}

	return d, nil
}

func (d *decoder) readColorTable(r io.Reader) error {
	n := d.layout.ColorCount
	b := make([]byte, n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("%w: want %d entries: %v", ErrBadColorTable, n, err)
	}
	d.pos += int64(len(b))

	d.colorTable = make([]uint32, n)
	for i := range d.colorTable {
		d.colorTable[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	return nil
}

// seekData skips forward to the pixel data offset.
func (d *decoder) seekData(r io.Reader) error {
	off := d.layout.DataOffset
	if off < d.pos {
		return fmt.Errorf("%w: %d points into the first %d bytes of headers", ErrInvalidDataOffset, off, d.pos)
	}

	n, err := io.CopyN(io.Discard, r, off-d.pos)
	d.pos += n
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: stream ends at %d before data offset %d", ErrTruncatedPixelData, d.pos, off)
		}
		return err
	}

	return nil
}

func readPixelData(r io.Reader, n int) ([]byte, error) {
	var buf bytes.Buffer
	if n < readChunk {
		buf.Grow(n)
	} else {
		buf.Grow(readChunk)
	}

	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrTruncatedPixelData, n, buf.Len())
		}
		return nil, err
	}

	return buf.Bytes(), nil
}

func index1(row []byte, x int) int {
	return int(row[x/8]>>(7-uint(x%8))) & 1
}

func index4(row []byte, x int) int {
	if x%2 == 0 {
		return int(row[x/2] >> 4)
	}
	return int(row[x/2] & 0x0f)
}

func index8(row []byte, x int) int {
	return int(row[x])
}

// expandIndexed writes one 4-byte color table entry per source index.
func (d *decoder) expandIndexed(src []byte, index func(row []byte, x int) int) ([]byte, error) {
	l := d.layout
	pix := make([]byte, l.BytesPerRow*l.Height)

	for y := 0; y < l.Height; y++ {
		row := src[y*l.SrcBytesPerRow : (y+1)*l.SrcBytesPerRow]
		p := pix[y*l.BytesPerRow : (y+1)*l.BytesPerRow]

		for x := 0; x < l.Width; x++ {
			i := index(row, x)
			if i >= len(d.colorTable) {
				return nil, fmt.Errorf("%w: index %d in source row %d column %d, table has %d entries",
					ErrColorIndexOutOfRange, i, y, x, len(d.colorTable))
			}
			binary.LittleEndian.PutUint32(p[x*4:], d.colorTable[i])
		}
	}

	return pix, nil
}

// copyRows takes 16 and 32-bit rows as they are; source and output strides
// are the same.
func (d *decoder) copyRows(src []byte) []byte {
	l := d.layout
	pix := make([]byte, l.BytesPerRow*l.Height)
	copy(pix, src)
	return pix
}

// repack24 drops the row padding of 24-bit data.
func (d *decoder) repack24(src []byte) []byte {
	l := d.layout
	pix := make([]byte, l.BytesPerRow*l.Height)

	for y := 0; y < l.Height; y++ {
		row := src[y*l.SrcBytesPerRow:]
		copy(pix[y*l.BytesPerRow:(y+1)*l.BytesPerRow], row[:l.BytesPerRow])
	}

	return pix
}

func (d *decoder) extract(src []byte) ([]byte, error) {
	switch d.layout.BitCount {
	case 1:
		return d.expandIndexed(src, index1)
	case 4:
		return d.expandIndexed(src, index4)
	case 8:
		return d.expandIndexed(src, index8)
	case 16, 32:
		return d.copyRows(src), nil
	case 24:
		return d.repack24(src), nil
	}

	return nil, UnsupportedBitCountError(d.layout.BitCount)
}

func (d *decoder) decode(r io.Reader) (*Result, error) {
	l := d.layout

	if l.indexed() {
		if err := d.readColorTable(r); err != nil {
			return nil, err
		}
	}

	if err := d.seekData(r); err != nil {
		return nil, err
	}

	src, err := readPixelData(r, l.ImageSize)
	if err != nil {
		return nil, err
	}
	d.pos += int64(len(src))

	pix, err := d.extract(src)
	if err != nil {
		return nil, err
	}

	normalize(pix, l.BytesPerRow, l.Height, d.ih.TopDown)

	res := &Result{
		Width:          l.Width,
		Height:         l.Height,
		BytesPerRow:    l.BytesPerRow,
		PixelSize:      l.PixelSize,
		BitsPerPixel:   l.PixelSize * 8,
		SourceBitCount: l.BitCount,
		SourceTopDown:  d.ih.TopDown,
		Mask:           l.Mask,
		Data:           pix,
	}

	return res, nil
}

// Decode reads a BMP image from r. maxBytes bounds the size of the pixel
// data and of the decoded buffer; 0 means DefaultMaxImageBytes.
func Decode(r io.Reader, maxBytes int) (*Result, error) {
	d, err := newDecoder(r, maxBytes)
	if err != nil {
		return nil, err
	}

	return d.decode(r)
}

// DecodeLayout reads only the headers of a BMP image and returns the pixel
// plan the decoder would follow.
func DecodeLayout(r io.Reader, maxBytes int) (Layout, error) {
	d, err := newDecoder(r, maxBytes)
	if err != nil {
		return Layout{}, err
	}

	return d.layout, nil
}
