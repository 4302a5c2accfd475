package subtile

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/asticode/go-astikit"
)

// CompositionState tells how a display set relates to the previous ones
type CompositionState uint8

// Composition states
const (
	CompositionStateNormal           CompositionState = 0x00
	CompositionStateAcquisitionPoint CompositionState = 0x40
	CompositionStateEpochStart       CompositionState = 0x80
)

const (
	pcsHeaderLength             = 11
	compositionObjectLength     = 8
	compositionObjectCropLength = 8
	compositionObjectCropFlag   = 0x40
)

// PresentationComposition represents a presentation composition segment, the first segment
// of every display set
type PresentationComposition struct {
	CompositionNumber  uint16
	CompositionObjects []CompositionObject
	FrameRate          uint8
	Height             uint16
	PaletteID          uint8
	PaletteUpdate      bool
	State              CompositionState
	Width              uint16
}

// CompositionObject places an object on screen
type CompositionObject struct {
	// Crop is relative to the object and is nil when the object is displayed whole
	Crop     *image.Rectangle
	ObjectID uint16
	WindowID uint8
	X        uint16
	Y        uint16
}

func parsePresentationComposition(bs []byte) (c *PresentationComposition, err error) {
	var i *astikit.BytesIterator
	if i, err = parseFixedBody(bs, SegmentTypePCS, pcsHeaderLength); err != nil {
		return
	}

	// Header
	var h []byte
	if h, err = nextBytes(i, pcsHeaderLength); err != nil {
		return
	}
	c = &PresentationComposition{
		Width:             binary.BigEndian.Uint16(h),
		Height:            binary.BigEndian.Uint16(h[2:]),
		FrameRate:         h[4],
		CompositionNumber: binary.BigEndian.Uint16(h[5:]),
		State:             CompositionState(h[7]),
		PaletteUpdate:     h[8]&0x80 > 0,
		PaletteID:         h[9],
	}

	// Objects
	n := int(h[10])
	c.CompositionObjects = make([]CompositionObject, 0, n)
	for idx := 0; idx < n; idx++ {
		var o CompositionObject
		if o, err = parseCompositionObject(i); err != nil {
			err = fmt.Errorf("subtile: parsing composition object #%d failed: %w", idx, err)
			return
		}
		c.CompositionObjects = append(c.CompositionObjects, o)
	}
	err = checkConsumed(i, SegmentTypePCS)
	return
}

func parseCompositionObject(i *astikit.BytesIterator) (o CompositionObject, err error) {
	var bs []byte
	if bs, err = nextBytes(i, compositionObjectLength); err != nil {
		err = malformed("truncated composition object")
		return
	}
	o.ObjectID = binary.BigEndian.Uint16(bs)
	o.WindowID = bs[2]
	o.X = binary.BigEndian.Uint16(bs[4:])
	o.Y = binary.BigEndian.Uint16(bs[6:])

	// Crop
	if bs[3]&compositionObjectCropFlag > 0 {
		if bs, err = nextBytes(i, compositionObjectCropLength); err != nil {
			err = malformed("truncated composition object crop")
			return
		}
		x, y := int(binary.BigEndian.Uint16(bs)), int(binary.BigEndian.Uint16(bs[2:]))
		w, h := int(binary.BigEndian.Uint16(bs[4:])), int(binary.BigEndian.Uint16(bs[6:]))
		r := image.Rect(x, y, x+w, y+h)
		o.Crop = &r
	}
	return
}
