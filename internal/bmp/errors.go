package bmp

import (
	"errors"
	"fmt"
)

var (
	ErrIncorrectFileHeader  = errors.New("bmp: incorrect file header")
	ErrIncorrectInfoHeader  = errors.New("bmp: incorrect info header")
	ErrBadColorTable        = errors.New("bmp: bad color table")
	ErrGeometryOverflow     = errors.New("bmp: image geometry overflows buffer size")
	ErrTruncatedPixelData   = errors.New("bmp: truncated pixel data")
	ErrColorIndexOutOfRange = errors.New("bmp: color index out of range")
	ErrInvalidDataOffset    = errors.New("bmp: invalid pixel data offset")
)

// UnsupportedCompressionError reports a compression method other than
// uncompressed RGB.
type UnsupportedCompressionError uint32

func (e UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("bmp: supported compression method is only 0 (got: %d)", uint32(e))
}

// UnsupportedBitCountError reports a bit depth outside 1, 4, 8, 16, 24 and 32.
type UnsupportedBitCountError uint16

func (e UnsupportedBitCountError) Error() string {
	return fmt.Sprintf("bmp: unsupported bpp (got: %d)", uint16(e))
}
