// Package rawbmp decodes uncompressed BMP images into a raw pixel buffer
// together with the stride and channel masks needed to read it.
package rawbmp

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math/bits"
	"os"

	"github.com/ur65/go-rawbmp/internal/bmp"
)

// ColorMask describes how to extract a channel from a packed pixel word.
type ColorMask = bmp.ColorMask

type (
	UnsupportedCompressionError = bmp.UnsupportedCompressionError
	UnsupportedBitCountError    = bmp.UnsupportedBitCountError
)

var ErrFileNotFound = errors.New("bmp: file not found")

var (
	ErrIncorrectFileHeader  = bmp.ErrIncorrectFileHeader
	ErrIncorrectInfoHeader  = bmp.ErrIncorrectInfoHeader
	ErrBadColorTable        = bmp.ErrBadColorTable
	ErrGeometryOverflow     = bmp.ErrGeometryOverflow
	ErrTruncatedPixelData   = bmp.ErrTruncatedPixelData
	ErrColorIndexOutOfRange = bmp.ErrColorIndexOutOfRange
	ErrInvalidDataOffset    = bmp.ErrInvalidDataOffset
)

// Options tunes the decoder. The zero value is ready to use.
type Options struct {
	// MaxImageBytes bounds the pixel data read from the stream and the
	// decoded buffer. 0 means 1 GiB.
	MaxImageBytes int
}

// Bitmap is a decoded image. Data holds Height rows of BytesPerRow bytes,
// top row first. Each pixel is PixelSize little-endian bytes whose channels
// are selected by ColorMask.
//
// 1, 4 and 8-bit images are expanded through their color table to 32-bit
// pixels, and 24-bit images are repacked to Width*3 bytes per row.
type Bitmap struct {
	Width          int
	Height         int
	BytesPerRow    int
	PixelSize      int
	BitsPerPixel   int
	SourceBitCount int
	ColorMask      ColorMask
	Data           []byte
}

// Decode reads a BMP image from r.
func Decode(r io.Reader) (*Bitmap, error) {
	return DecodeWithOptions(r, Options{})
}

// DecodeWithOptions reads a BMP image from r using opts.
func DecodeWithOptions(r io.Reader, opts Options) (*Bitmap, error) {
	res, err := bmp.Decode(r, opts.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	b := &Bitmap{
		Width:          res.Width,
		Height:         res.Height,
		BytesPerRow:    res.BytesPerRow,
		PixelSize:      res.PixelSize,
		BitsPerPixel:   res.BitsPerPixel,
		SourceBitCount: res.SourceBitCount,
		ColorMask:      res.Mask,
		Data:           res.Data,
	}

	return b, nil
}

// DecodeFile opens and decodes the named BMP file. The file is closed before
// DecodeFile returns.
func DecodeFile(name string) (*Bitmap, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	defer f.Close()

	return Decode(f)
}

// DecodeConfig reads only the headers of a BMP image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	l, err := bmp.DecodeLayout(r, 0)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{ColorModel: color.NRGBAModel, Width: l.Width, Height: l.Height}, nil
}

// Pixel returns the packed word of the pixel at (x, y).
func (b *Bitmap) Pixel(x, y int) uint32 {
	i := y*b.BytesPerRow + x*b.PixelSize
	p := b.Data[i : i+b.PixelSize]

	var v uint32
	for j := len(p) - 1; j >= 0; j-- {
		v = v<<8 | uint32(p[j])
	}
	return v
}

// channel extracts one masked value and scales it to 8 bits.
func channel(v, mask uint32, shift uint) uint8 {
	m := mask >> shift
	c := (v & mask) >> shift
	switch bits.Len32(m) {
	case 0:
		return 0
	case 8:
		return uint8(c)
	}
	return uint8(uint64(c) * 0xff / uint64(m))
}

// At returns the color of the pixel at (x, y). Pixels without an alpha mask
// are opaque.
func (b *Bitmap) At(x, y int) color.NRGBA {
	v := b.Pixel(x, y)
	m := b.ColorMask

	c := color.NRGBA{
		R: channel(v, m.Red, m.RedShift),
		G: channel(v, m.Green, m.GreenShift),
		B: channel(v, m.Blue, m.BlueShift),
		A: 0xff,
	}
	if m.Alpha != 0 {
		c.A = channel(v, m.Alpha, m.AlphaShift)
	}

	return c
}

// Image converts the bitmap to an *image.NRGBA.
func (b *Bitmap) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))

	for y := 0; y < b.Height; y++ {
		p := img.Pix[y*img.Stride : (y+1)*img.Stride]
		for x := 0; x < b.Width; x++ {
			c := b.At(x, y)
			p[x*4+0] = c.R
			p[x*4+1] = c.G
			p[x*4+2] = c.B
			p[x*4+3] = c.A
		}
	}

	return img
}

func decodeImage(r io.Reader) (image.Image, error) {
	b, err := Decode(r)
	if err != nil {
		return nil, err
	}

	return b.Image(), nil
}

func init() {
	image.RegisterFormat("bmp", "BM????\x00\x00\x00\x00", decodeImage, DecodeConfig)
}
