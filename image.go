package subtile

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ColorLookup resolves a pixel index into a color. *Palette implements it, and so does the
// lookup returned by Event.Colors for VobSub events.
type ColorLookup interface {
	Lookup(index uint8) color.Color
}

// lookupPalette expands a lookup into 256 colors, all transparent if l is nil
func lookupPalette(l ColorLookup) color.Palette {
	cp := make(color.Palette, PaletteSize)
	for i := range cp {
		if l == nil {
			cp[i] = transparent
			continue
		}
		cp[i] = l.Lookup(uint8(i))
	}
	return cp
}

func lookupNRGBA(l ColorLookup) (cs [PaletteSize]color.NRGBA) {
	for i, c := range lookupPalette(l) {
		cs[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}
	return
}

// ToNRGBA renders an indexed image with the given colors
func ToNRGBA(img *IndexedImage, l ColorLookup) *image.NRGBA {
	cs := lookupNRGBA(l)
	out := image.NewNRGBA(img.Bounds())
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := cs[img.Pix[y*img.Width+x]]
			o := out.PixOffset(x, y)
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = c.R, c.G, c.B, c.A
		}
	}
	return out
}

// OCROptions controls the grayscale image produced for OCR engines. A pixel is text when
// both its alpha and its luma reach the thresholds.
type OCROptions struct {
	AlphaThreshold uint8      `toml:"alpha_threshold"`
	Background     color.Gray `toml:"-"`
	Border         int        `toml:"border"`
	LumaThreshold  uint8      `toml:"luma_threshold"`
	Scale          int        `toml:"scale"`
	Text           color.Gray `toml:"-"`
}

// DefaultOCROptions returns black text on a white background with a 5 pixels border
func DefaultOCROptions() OCROptions {
	return OCROptions{
		AlphaThreshold: 0x80,
		Background:     color.Gray{Y: 0xff},
		Border:         5,
		LumaThreshold:  0x80,
		Scale:          1,
		Text:           color.Gray{Y: 0},
	}
}

// ToOCR renders an indexed image as thresholded grayscale, ignoring alpha in the output
func ToOCR(img *IndexedImage, l ColorLookup, o OCROptions) *image.Gray {
	if o.Scale < 1 {
		o.Scale = 1
	}
	if o.Border < 0 {
		o.Border = 0
	}

	// Classify each palette entry once
	var isText [PaletteSize]bool
	for i, c := range lookupNRGBA(l) {
		isText[i] = c.A >= o.AlphaThreshold && luma(c) >= o.LumaThreshold
	}

	// Threshold
	mask := image.NewGray(img.Bounds())
	for idx, v := range img.Pix {
		if isText[v] {
			mask.Pix[idx] = o.Text.Y
		} else {
			mask.Pix[idx] = o.Background.Y
		}
	}

	// Place on a bordered canvas
	w, h := img.Width*o.Scale, img.Height*o.Scale
	out := image.NewGray(image.Rect(0, 0, w+2*o.Border, h+2*o.Border))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: o.Background}, image.Point{}, draw.Src)
	dr := image.Rect(o.Border, o.Border, o.Border+w, o.Border+h)
	if o.Scale == 1 {
		draw.Draw(out, dr, mask, image.Point{}, draw.Src)
	} else {
		draw.NearestNeighbor.Scale(out, dr, mask, mask.Bounds(), draw.Src, nil)
	}
	return out
}

// luma uses the BT.601 weights of color.GrayModel on non premultiplied components
func luma(c color.NRGBA) uint8 {
	return uint8((19595*uint32(c.R) + 38470*uint32(c.G) + 7471*uint32(c.B) + 1<<15) >> 16)
}
