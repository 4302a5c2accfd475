package subtile

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

const (
	// PaletteSize is the number of addressable palette entries
	PaletteSize = 256
	// VobSubPaletteSize is the number of colors declared by an idx palette
	VobSubPaletteSize = 16
)

var transparent = color.NRGBA{}

// Palette maps an 8-bit index to a color. A Palette is never modified once built: updates
// return a new value so that events already handed out keep the colors they were decoded
// with. Undefined indices are transparent.
type Palette struct {
	colors  [PaletteSize]color.Color
	defined [PaletteSize]bool
	n       int
}

// PaletteEntry assigns a color to a palette index
type PaletteEntry struct {
	Color color.Color
	Index uint8
}

// NewPalette creates a palette whose first color is stored at index base
func NewPalette(colors []color.Color, base int) (p *Palette, err error) {
	if base < 0 || base+len(colors) > PaletteSize {
		err = fmt.Errorf("%w: %d colors starting at index %d don't fit in %d entries", ErrInvalidPalette, len(colors), base, PaletteSize)
		return
	}
	p = &Palette{}
	for i, c := range colors {
		p.set(uint8(base+i), c)
	}
	return
}

// DefaultVobSubPalette returns the gray ramp used when an idx file has no palette
func DefaultVobSubPalette() *Palette {
	p := &Palette{}
	for i := 0; i < VobSubPaletteSize; i++ {
		v := uint8(i * 0x11)
		p.set(uint8(i), color.NRGBA{R: v, G: v, B: v, A: 0xff})
	}
	return p
}

// ParseVobSubPalette parses the value of an idx "palette" key: 16 hexadecimal RGB colors
// separated by commas
func ParseVobSubPalette(value string) (p *Palette, err error) {
	values := strings.Split(strings.ReplaceAll(value, ", ", ","), ",")
	if len(values) != VobSubPaletteSize {
		err = fmt.Errorf("%w: idx palette has %d colors, expected %d", ErrInvalidPalette, len(values), VobSubPaletteSize)
		return
	}

	colors := make([]color.Color, 0, VobSubPaletteSize)
	for idx, v := range values {
		v = strings.TrimSpace(v)
		if len(v) != 6 {
			err = fmt.Errorf("%w: color #%d %q is not a 6 digits hexadecimal value", ErrInvalidPalette, idx, v)
			return
		}
		var bs []byte
		if bs, err = hex.DecodeString(v); err != nil {
			err = fmt.Errorf("%w: decoding color #%d %q failed: %w", ErrInvalidPalette, idx, v, err)
			return
		}
		colors = append(colors, color.NRGBA{R: bs[0], G: bs[1], B: bs[2], A: 0xff})
	}
	return NewPalette(colors, 0)
}

func (p *Palette) set(i uint8, c color.Color) {
	if !p.defined[i] {
		p.n++
	}
	p.colors[i] = c
	p.defined[i] = true
}

// Update returns a copy of the palette where only the listed entries changed
func (p *Palette) Update(entries []PaletteEntry) *Palette {
	n := &Palette{}
	if p != nil {
		*n = *p
	}
	for _, e := range entries {
		n.set(e.Index, e.Color)
	}
	return n
}

// Len returns the number of defined entries
func (p *Palette) Len() int {
	if p == nil {
		return 0
	}
	return p.n
}

// At returns the color stored at index i and whether it was defined. A nil palette has no
// defined entry.
func (p *Palette) At(i uint8) (color.Color, bool) {
	if p == nil || !p.defined[i] {
		return transparent, false
	}
	return p.colors[i], true
}

// Defined reports whether index i was set
func (p *Palette) Defined(i uint8) bool {
	return p != nil && p.defined[i]
}

// Lookup returns the color at index i, transparent when undefined
func (p *Palette) Lookup(i uint8) color.Color {
	c, _ := p.At(i)
	return c
}

// Colors returns the 256 entries as a standard library palette
func (p *Palette) Colors() color.Palette {
	cp := make(color.Palette, PaletteSize)
	for i := range cp {
		cp[i] = p.Lookup(uint8(i))
	}
	return cp
}

// TransparentIndex returns the first fully transparent index, 0 if none
func (p *Palette) TransparentIndex() uint8 {
	for i := 0; i < PaletteSize; i++ {
		if _, _, _, a := p.Lookup(uint8(i)).RGBA(); a == 0 {
			return uint8(i)
		}
	}
	return 0
}
