package bmp

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// testBMP builds BMP streams for tests. Zero values pick the usual header:
// a 40-byte info header, one plane and a data offset right after the color
// table and gap.
type testBMP struct {
	headerSize  uint32
	width       int32
	height      int32
	planes      uint16
	bitCount    uint16
	compression uint32
	sizeImage   uint32
	colorUsed   uint32
	masks       [4]uint32

	dataOffset uint32
	zeroOffset bool

	colorTable []uint32
	gap        []byte
	pixels     []byte
}

func (b testBMP) bytes() []byte {
	hs := b.headerSize
	if hs == 0 {
		hs = infoHeaderSize
	}
	planes := b.planes
	if planes == 0 {
		planes = 1
	}
	offset := b.dataOffset
	if offset == 0 && !b.zeroOffset {
		offset = fileHeaderSize + hs + uint32(len(b.colorTable)*4+len(b.gap))
	}

	bb := &bytes.Buffer{}

	// BITMAPFILEHEADER
	bb.WriteString("BM")
	binary.Write(bb, binary.LittleEndian, uint32(fileHeaderSize+hs)+uint32(len(b.colorTable)*4+len(b.gap)+len(b.pixels)))
	binary.Write(bb, binary.LittleEndian, int16(0))
	binary.Write(bb, binary.LittleEndian, int16(0))
	binary.Write(bb, binary.LittleEndian, offset)

	// BITMAPINFOHEADER
	binary.Write(bb, binary.LittleEndian, hs)
	binary.Write(bb, binary.LittleEndian, b.width)
	binary.Write(bb, binary.LittleEndian, b.height)
	binary.Write(bb, binary.LittleEndian, planes)
	binary.Write(bb, binary.LittleEndian, b.bitCount)
	binary.Write(bb, binary.LittleEndian, b.compression)
	binary.Write(bb, binary.LittleEndian, b.sizeImage)
	binary.Write(bb, binary.LittleEndian, int32(0))
	binary.Write(bb, binary.LittleEndian, int32(0))
	binary.Write(bb, binary.LittleEndian, b.colorUsed)
	binary.Write(bb, binary.LittleEndian, uint32(0))

	if hs > infoHeaderSize {
		ext := make([]byte, hs-infoHeaderSize)
		for i, m := range b.masks {
			if 4*i+4 <= len(ext) {
				binary.LittleEndian.PutUint32(ext[4*i:], m)
			}
		}
		bb.Write(ext)
	}

	// COLOR TABLE + IMAGEDATA
	if len(b.colorTable) > 0 {
		binary.Write(bb, binary.LittleEndian, b.colorTable)
	}
	bb.Write(b.gap)
	bb.Write(b.pixels)

	return bb.Bytes()
}

func mustDecode(t *testing.T, b testBMP) *Result {
	t.Helper()
	res, err := Decode(bytes.NewReader(b.bytes()), 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return res
}

func seq(from byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = from + byte(i)
	}
	return b
}
