package subtile

import (
	"errors"
	"image"
	"image/color"
	"iter"
)

// Event is one decoded subtitle. Image is nil when parsing with DecodeTimingOnly. Palette is
// shared by all the events decoded while it was active and must not be modified. Image may
// be shared too: a PGS object displayed whole by several compositions yields the same image
// in each of their events, so it must not be modified either.
type Event struct {
	// Area is where the subtitle is displayed on screen
	Area    image.Rectangle
	Forced  bool
	Image   *IndexedImage
	Palette *Palette
	Span    TimeSpan
	// VobSub is only set for DVD subtitles
	VobSub *VobSubColors
}

// VobSubColors maps the 4 values of a DVD subpicture to idx palette entries and 4-bit
// alphas. Both arrays are in control sequence order, which lists the background last.
type VobSubColors struct {
	Alpha [4]uint8
	Index [4]uint8
}

// Colors returns the lookup to render the event's image with, nil when no palette is known
func (e *Event) Colors() ColorLookup {
	if e.Palette == nil {
		return nil
	}
	if e.VobSub != nil {
		return vobSubLookup{colors: *e.VobSub, palette: e.Palette}
	}
	return e.Palette
}

type vobSubLookup struct {
	colors  VobSubColors
	palette *Palette
}

func (l vobSubLookup) Lookup(v uint8) color.Color {
	px := 3 - v&0x3
	c := color.NRGBAModel.Convert(l.palette.Lookup(l.colors.Index[px])).(color.NRGBA)
	c.A = l.colors.Alpha[px] & 0xf * 0x11
	return c
}

// eventSeq turns a Next method into a sequence that ends on ErrNoMoreSubtitles and stops
// after yielding any other error
func eventSeq(next func() (*Event, error)) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			e, err := next()
			if errors.Is(err, ErrNoMoreSubtitles) {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}
