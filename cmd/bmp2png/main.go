package main

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/ur65/go-rawbmp"
)

var (
	outdir   string
	verbose  bool
	maxBytes int
)

func init() {
	flag.StringVar(&outdir, "o", ".", "output directory")
	flag.BoolVar(&verbose, "v", false, "print the decoded layout")
	flag.IntVar(&maxBytes, "max-bytes", 0, "largest pixel buffer to decode (0: 1 GiB)")
	flag.Usage = func() {
		fmt.Println("usage: go run main.go [-o OUTDIR] [-v] [-max-bytes N] BMP_FILE")
		fmt.Println("example: go run main.go -o ./out ./sample.bmp")
		fmt.Println("files ending in .zst are decompressed first")
		os.Exit(2)
	}
}

func decodeFile(path string, opts rawbmp.Options) (*rawbmp.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rawbmp.ErrFileNotFound, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	return rawbmp.DecodeWithOptions(r, opts)
}

// convert decodes the BMP at path and writes it as a PNG into dir,
// returning the name of the written file.
func convert(path, dir string, opts rawbmp.Options, w io.Writer) (string, error) {
	bm, err := decodeFile(path, opts)
	if err != nil {
		return "", err
	}

	if w != nil {
		fmt.Fprintf(w, "Width: \t\t%d px\n", bm.Width)
		fmt.Fprintf(w, "Height: \t%d px\n", bm.Height)
		fmt.Fprintf(w, "BitCount: \t%d bits\n", bm.SourceBitCount)
		fmt.Fprintf(w, "PixelSize: \t%d bytes\n", bm.PixelSize)
		fmt.Fprintf(w, "Stride: \t%d bytes\n", bm.BytesPerRow)
		fmt.Fprintf(w, "Mask: \t\tR=%#08x G=%#08x B=%#08x A=%#08x\n",
			bm.ColorMask.Red, bm.ColorMask.Green, bm.ColorMask.Blue, bm.ColorMask.Alpha)
	}

	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".zst")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := filepath.Join(dir, base+".png")

	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, bm.Image()); err != nil {
		return "", err
	}

	return name, f.Close()
}

func run() error {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
	}

	if err := os.MkdirAll(outdir, 0755); err != nil {
		return err
	}

	var w io.Writer
	if verbose {
		w = os.Stdout
	}

	name, err := convert(args[0], outdir, rawbmp.Options{MaxImageBytes: maxBytes}, w)
	if err != nil {
		return err
	}
	fmt.Println(name)

	return nil
}

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}
