package subtile

import (
	"fmt"
	"image/color"
)

const (
	pdsHeaderLength = 2
	pdsEntryLength  = 5
)

// PaletteDefinition represents a palette definition segment. Entries are YCbCr colors with
// alpha.
type PaletteDefinition struct {
	Entries []PaletteEntry
	ID      uint8
	Version uint8
}

func parsePaletteDefinition(bs []byte) (d *PaletteDefinition, err error) {
	if len(bs) < pdsHeaderLength || (len(bs)-pdsHeaderLength)%pdsEntryLength != 0 {
		err = fmt.Errorf("%w: PDS body of %d bytes is not 2 + 5*n bytes long", ErrInvalidPalette, len(bs))
		return
	}
	n := (len(bs) - pdsHeaderLength) / pdsEntryLength
	if n > PaletteSize {
		err = fmt.Errorf("%w: PDS declares %d entries", ErrInvalidPalette, n)
		return
	}

	d = &PaletteDefinition{
		Entries: make([]PaletteEntry, 0, n),
		ID:      bs[0],
		Version: bs[1],
	}
	for e := bs[pdsHeaderLength:]; len(e) >= pdsEntryLength; e = e[pdsEntryLength:] {
		d.Entries = append(d.Entries, PaletteEntry{
			Index: e[0],
			Color: color.NYCbCrA{YCbCr: color.YCbCr{Y: e[1], Cr: e[2], Cb: e[3]}, A: e[4]},
		})
	}
	return
}
