package subtile

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/asticode/go-astikit"
)

// SegmentType is the type code of a PGS segment
type SegmentType uint8

// Segment types
const (
	SegmentTypePDS SegmentType = 0x14 // Palette definition
	SegmentTypeODS SegmentType = 0x15 // Object definition
	SegmentTypePCS SegmentType = 0x16 // Presentation composition
	SegmentTypeWDS SegmentType = 0x17 // Window definition
	SegmentTypeEND SegmentType = 0x80 // End of display set
)

const (
	segmentHeaderLength = 13
	segmentMagic        = "PG"
)

func (t SegmentType) String() string {
	switch t {
	case SegmentTypePDS:
		return "PDS"
	case SegmentTypeODS:
		return "ODS"
	case SegmentTypePCS:
		return "PCS"
	case SegmentTypeWDS:
		return "WDS"
	case SegmentTypeEND:
		return "END"
	}
	return "0x" + strconv.FormatUint(uint64(t), 16)
}

// SegmentHeader represents the header preceding every PGS segment
// http://blog.thescorpius.com/index.php/2017/07/15/presentation-graphic-stream-sup-files-bluray-subtitle-format/
type SegmentHeader struct {
	DTS  ClockReference
	PTS  ClockReference
	Size uint16 // Size of the segment body
	Type SegmentType
}

// parseSegmentHeader parses a 13 bytes segment header
func parseSegmentHeader(i *astikit.BytesIterator) (h SegmentHeader, err error) {
	var bs []byte
	if bs, err = nextBytes(i, segmentHeaderLength); err != nil {
		return
	}

	// Magic
	if string(bs[:2]) != segmentMagic {
		err = malformed("segment starts with %q instead of %q", bs[:2], segmentMagic)
		return
	}

	h.PTS = newClockReference(int64(binary.BigEndian.Uint32(bs[2:])), 0)
	h.DTS = newClockReference(int64(binary.BigEndian.Uint32(bs[6:])), 0)
	h.Type = SegmentType(bs[10])
	h.Size = binary.BigEndian.Uint16(bs[11:])
	return
}

// checkConsumed makes sure a body parser didn't leave bytes behind
func checkConsumed(i *astikit.BytesIterator, t SegmentType) error {
	if i.HasBytesLeft() {
		return malformed("%s has %d trailing bytes", t, i.Len()-i.Offset())
	}
	return nil
}

func parseFixedBody(bs []byte, t SegmentType, min int) (*astikit.BytesIterator, error) {
	if len(bs) < min {
		return nil, fmt.Errorf("%w: %s body of %d bytes, at least %d expected", ErrMalformedHeader, t, len(bs), min)
	}
	return astikit.NewBytesIterator(bs), nil
}
