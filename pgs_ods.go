package subtile

import (
	"fmt"

	"go.uber.org/zap"
)

// Object sequence flags
const (
	objectSequenceFirst = 0x80
	objectSequenceLast  = 0x40
)

const (
	odsHeaderLength      = 4
	odsFirstHeaderLength = 11
	objectSizeLength     = 4 // Width and height are counted in the object data length
)

// objectDefinitionHeader is what precedes the RLE bytes of an ODS
type objectDefinitionHeader struct {
	dataLength Uint24
	flags      uint8
	height     uint16
	id         uint16
	version    uint8
	width      uint16
}

func (h objectDefinitionHeader) isFirst() bool { return h.flags&objectSequenceFirst > 0 }
func (h objectDefinitionHeader) isLast() bool  { return h.flags&objectSequenceLast > 0 }

// pgsObject is a decoded object. image is nil when decoding timing only.
type pgsObject struct {
	height  int
	id      uint16
	image   *IndexedImage
	version uint8
	width   int
}

// objectBuilder accumulates the fragments of the object being defined
type objectBuilder struct {
	fl     *fragmentList
	header objectDefinitionHeader
	wanted int
}

// readObjectDefinition reads an ODS body, accumulates its fragment and returns the object
// once its last fragment is in
func (p *PGSParser) readObjectDefinition(size int) (o *pgsObject, err error) {
	// Header
	if size < odsHeaderLength {
		err = malformed("ODS body of %d bytes", size)
		return
	}
	var h objectDefinitionHeader
	if h.id, err = p.sr.u16(); err != nil {
		return
	}
	if h.version, err = p.sr.u8(); err != nil {
		return
	}
	if h.flags, err = p.sr.u8(); err != nil {
		return
	}
	if h.flags&^(objectSequenceFirst|objectSequenceLast) != 0 {
		err = malformed("invalid object sequence flags 0x%02x", h.flags)
		return
	}
	n := size - odsHeaderLength

	// Sequence
	switch {
	case h.isFirst():
		if p.builder != nil {
			err = fmt.Errorf("%w: object %d starts while object %d is incomplete", ErrInconsistentObjectSequence, h.id, p.builder.header.id)
			return
		}
		if size < odsFirstHeaderLength {
			err = malformed("first ODS body of %d bytes", size)
			return
		}
		if h.dataLength, err = p.sr.u24(); err != nil {
			return
		}
		if h.width, err = p.sr.u16(); err != nil {
			return
		}
		if h.height, err = p.sr.u16(); err != nil {
			return
		}
		if h.dataLength.Uint32() < objectSizeLength {
			err = malformed("object data length %s is too small", h.dataLength)
			return
		}
		p.builder = &objectBuilder{
			fl:     newFragmentList(),
			header: h,
			wanted: int(h.dataLength.Uint32()) - objectSizeLength,
		}
		n = size - odsFirstHeaderLength
	case p.builder == nil:
		err = fmt.Errorf("%w: continuation of object %d without first fragment", ErrInconsistentObjectSequence, h.id)
		return
	case p.builder.header.id != h.id:
		err = fmt.Errorf("%w: continuation of object %d while object %d is incomplete", ErrInconsistentObjectSequence, h.id, p.builder.header.id)
		return
	}
	b := p.builder

	// Data
	if b.fl.size()+n > b.wanted {
		err = malformed("object %d has more than the %d declared bytes", h.id, b.wanted)
		return
	}
	f := &fragment{size: n}
	if p.optPolicy.ReadsObjectData() {
		f.payload = poolOfTempPayload.get(n)
		f.data = f.payload.s
		if err = p.sr.fill(f.data); err != nil {
			poolOfTempPayload.put(f.payload)
			err = eofError(err)
			return
		}
	} else if err = p.sr.skip(int64(n)); err != nil {
		return
	}
	b.fl.pushBack(f)

	if !h.isLast() {
		return
	}

	// Complete
	p.builder = nil
	defer b.fl.clear()
	if b.fl.size() != b.wanted {
		err = malformed("object %d has %d bytes, %d declared", h.id, b.fl.size(), b.wanted)
		return
	}
	p.l.Debug("subtile: object complete",
		zap.Uint16("id", h.id),
		zap.Int("fragments", b.fl.length()),
		zap.Int("bytes", b.wanted))

	o = &pgsObject{
		height:  int(b.header.height),
		id:      b.header.id,
		version: b.header.version,
		width:   int(b.header.width),
	}
	obj := &RLEObject{
		Height:    o.height,
		Width:     o.width,
		codec:     pgsCodec{},
		maxPixels: p.optMaxPixels,
	}
	if b.fl.hasData() {
		tp := b.fl.assemble()
		defer poolOfTempPayload.put(tp)
		obj.Fields = [][]byte{tp.s}
	}
	if o.image, err = p.optPolicy.DecodeObject(obj); err != nil {
		err = fmt.Errorf("subtile: decoding object %d failed: %w", h.id, err)
		return
	}
	return
}
