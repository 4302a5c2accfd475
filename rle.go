package subtile

import (
	"fmt"
	"image"
	"image/color"
)

// DefaultMaxPixels bounds the size of a decoded image. PGS caps graphics objects at
// 4096x4096 and DVD frames are much smaller.
const DefaultMaxPixels = 4096 * 4096

// IndexedImage is a bitmap whose pixels are palette indices in row-major order
type IndexedImage struct {
	Height int
	Pix    []uint8
	Width  int
}

// Bounds returns the image rectangle anchored at the origin
func (img *IndexedImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// ColorIndexAt returns the palette index at (x, y)
func (img *IndexedImage) ColorIndexAt(x, y int) uint8 {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return 0
	}
	return img.Pix[y*img.Width+x]
}

// At returns the color of (x, y) through l
func (img *IndexedImage) At(x, y int, l ColorLookup) color.Color {
	return l.Lookup(img.ColorIndexAt(x, y))
}

// ToPaletted wraps the image into a standard library paletted image without copying pixels
func (img *IndexedImage) ToPaletted(l ColorLookup) *image.Paletted {
	return &image.Paletted{
		Pix:     img.Pix,
		Stride:  img.Width,
		Rect:    img.Bounds(),
		Palette: lookupPalette(l),
	}
}

// rleRun is one decoded run. An end of line run pads the rest of the row with value.
type rleRun struct {
	eol    bool
	length int
	value  uint8
}

// rleCodec is the bit-packing convention of a container
type rleCodec interface {
	nextRun(r *bitReader) (rleRun, error)
	// eolTerminated reports whether rows end only on an end of line code rather than as
	// soon as they are full
	eolTerminated() bool
}

// decodeRLE decodes a w*h image. Rows are spread over fields in turn: row y is read from
// fields[y%len(fields)], which is how DVD subpictures store interlaced lines.
func decodeRLE(w, h int, fields [][]byte, c rleCodec, maxPixels int) (img *IndexedImage, err error) {
	// Check declared size
	if w < 0 || h < 0 {
		err = malformed("invalid image size %dx%d", w, h)
		return
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if w*h > maxPixels {
		err = malformed("image size %dx%d exceeds %d pixels", w, h, maxPixels)
		return
	}
	if w*h == 0 {
		for _, f := range fields {
			if len(f) > 0 {
				err = malformed("empty %dx%d image with %d bytes of RLE data", w, h, len(f))
				return
			}
		}
		img = &IndexedImage{Width: w, Height: h, Pix: []uint8{}}
		return
	}
	if len(fields) == 0 {
		err = fmt.Errorf("%w: no RLE data for a %dx%d image", ErrTruncatedImage, w, h)
		return
	}

	// Create readers
	rs := make([]*bitReader, len(fields))
	for idx, f := range fields {
		rs[idx] = newBitReader(f)
	}

	img = &IndexedImage{Width: w, Height: h, Pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		r := rs[y%len(rs)]
		row := img.Pix[y*w : (y+1)*w]
		x := 0
		for {
			// Row is full
			if x >= w && !c.eolTerminated() {
				break
			}

			// Next run
			var run rleRun
			if run, err = c.nextRun(r); err != nil {
				// Input ended exactly where the row did
				if x >= w {
					err = nil
					break
				}
				img = nil
				err = fmt.Errorf("%w: input ended at row %d after %d/%d pixels", ErrTruncatedImage, y, x, w)
				return
			}

			// End of line
			if run.eol {
				for ; x < w; x++ {
					row[x] = run.value
				}
				break
			}

			// Runs overrunning the row are clipped
			n := run.length
			if x+n > w {
				n = w - x
			}
			for i := 0; i < n; i++ {
				row[x+i] = run.value
			}
			x += n
		}
		r.align()
	}
	return
}

// vobSubCodec decodes 2-bit pixels packed in nibble-prefixed codes:
//
//	1 nibble:  n n c c              (1-3 pixels)
//	2 nibbles: 0 0 n n n n c c      (4-15 pixels)
//	3 nibbles: 0 0 0 0 n n n n n n c c
//	4 nibbles: 0 0 0 0 0 0 n n n n n n n n c c
//
// A 4 nibbles code with a zero count fills the line.
type vobSubCodec struct{}

func (vobSubCodec) eolTerminated() bool { return false }

func (vobSubCodec) nextRun(r *bitReader) (run rleRun, err error) {
	var v, n uint32
	if v, err = r.readBits(2); err != nil {
		return
	}
	switch {
	case v != 0:
		n = v
	default:
		if v, err = r.readBits(2); err != nil {
			return
		}
		if v != 0 {
			var lo uint32
			if lo, err = r.readBits(2); err != nil {
				return
			}
			n = v<<2 | lo
			break
		}
		if v, err = r.readBits(2); err != nil {
			return
		}
		if v != 0 {
			var lo uint32
			if lo, err = r.readBits(4); err != nil {
				return
			}
			n = v<<4 | lo
			break
		}
		if n, err = r.readBits(8); err != nil {
			return
		}
		run.eol = n == 0
	}

	// Value
	if v, err = r.readBits(2); err != nil {
		return
	}
	run.length = int(n)
	run.value = uint8(v)
	return
}

// pgsCodec decodes byte oriented runs:
//
//	CCCCCCCC                                    1 pixel of color C
//	00000000 00000000                           end of line
//	00000000 00LLLLLL                           L pixels of color 0
//	00000000 01LLLLLL LLLLLLLL                  L pixels of color 0
//	00000000 10LLLLLL CCCCCCCC                  L pixels of color C
//	00000000 11LLLLLL LLLLLLLL CCCCCCCC         L pixels of color C
type pgsCodec struct{}

func (pgsCodec) eolTerminated() bool { return true }

func (pgsCodec) nextRun(r *bitReader) (run rleRun, err error) {
	var b uint8
	if b, err = r.readByte(); err != nil {
		return
	}
	if b != 0 {
		run.length = 1
		run.value = b
		return
	}

	// Flags
	var f uint8
	if f, err = r.readByte(); err != nil {
		return
	}
	if f == 0 {
		run.eol = true
		return
	}

	// Length
	run.length = int(f & 0x3f)
	if f&0x40 > 0 {
		if b, err = r.readByte(); err != nil {
			return
		}
		run.length = run.length<<8 | int(b)
	}

	// Color
	if f&0x80 > 0 {
		if run.value, err = r.readByte(); err != nil {
			return
		}
	}
	return
}
