package bmp

// normalize puts rows in top-down order. Bottom-up sources, the usual case,
// are flipped; top-down sources are already in order.
func normalize(pix []byte, stride, height int, topDown bool) {
	if topDown {
		return
	}
	flipRows(pix, stride, height)
}

func flipRows(pix []byte, stride, height int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
