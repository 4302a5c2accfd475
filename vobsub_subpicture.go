package subtile

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/asticode/go-astikit"
	"go.uber.org/zap"
)

// Control commands
const (
	controlCommandForce      = 0x00
	controlCommandStartDate  = 0x01
	controlCommandStopDate   = 0x02
	controlCommandPalette    = 0x03
	controlCommandAlpha      = 0x04
	controlCommandArea       = 0x05
	controlCommandRLEOffsets = 0x06
	controlCommandEnd        = 0xff
)

// subpicture is a parsed DVD subpicture packet. Delays are relative to the packet time.
// http://dvd.sourceforge.net/dvdinfo/spu.html
type subpicture struct {
	area       image.Rectangle
	colors     VobSubColors
	fields     [2][]byte
	forced     bool
	hasStop    bool
	startDelay TimePoint
	stopDelay  TimePoint
}

// controlSequence gathers what a subpicture's control sequences declare. The first value of
// every command wins, except RLE offsets where the last one does.
type controlSequence struct {
	alpha, palette *[4]uint8
	area           *image.Rectangle
	forced         bool
	rleOffsets     *[2]uint16
	start, stop    *uint16
}

// parseSubpicture parses a reassembled subpicture packet. data must hold exactly the
// declared packet size.
func parseSubpicture(data []byte, l *zap.Logger) (sp *subpicture, err error) {
	if len(data) < 4 {
		err = fmt.Errorf("%w: subpicture packet of %d bytes", ErrUnexpectedEOF, len(data))
		return
	}
	controlOffset := int(binary.BigEndian.Uint16(data[2:]))

	// Parse control sequences
	var cs controlSequence
	if err = cs.parse(data, controlOffset, l); err != nil {
		err = fmt.Errorf("subtile: parsing control sequences failed: %w", err)
		return
	}

	// Check we found everything we need
	switch {
	case cs.start == nil:
		err = malformed("subpicture has no start date")
	case cs.area == nil:
		err = malformed("subpicture has no display area")
	case cs.palette == nil:
		err = malformed("subpicture has no palette")
	case cs.alpha == nil:
		err = malformed("subpicture has no alpha")
	case cs.rleOffsets == nil:
		err = malformed("subpicture has no RLE offsets")
	}
	if err != nil {
		return
	}

	sp = &subpicture{
		area:       *cs.area,
		colors:     VobSubColors{Alpha: *cs.alpha, Index: *cs.palette},
		forced:     cs.forced,
		startDelay: TimePointFromVobSubDelay(*cs.start),
	}
	if cs.stop != nil {
		sp.hasStop = true
		sp.stopDelay = TimePointFromVobSubDelay(*cs.stop)
	}

	// Scan lines end where the control data starts. Encoders let the fields overlap each other
	// and the first bytes of the control data, which hold the date of the first sequence.
	start0, start1, end := int(cs.rleOffsets[0]), int(cs.rleOffsets[1]), controlOffset+2
	if start0 > start1 || start1 > end {
		err = malformed("invalid scan line offsets %d, %d with control data at %d", start0, start1, end)
		return
	}
	if sp.fields[0], err = subSlice(data, start0, end); err != nil {
		err = fmt.Errorf("subtile: slicing top field failed: %w", err)
		return
	}
	if sp.fields[1], err = subSlice(data, start1, end); err != nil {
		err = fmt.Errorf("subtile: slicing bottom field failed: %w", err)
		return
	}
	return
}

// parse walks the chain of control sequences starting at offset until one points to itself
func (cs *controlSequence) parse(data []byte, offset int, l *zap.Logger) (err error) {
	i := astikit.NewBytesIterator(data)
	for {
		if offset+4 > len(data) {
			err = malformed("control sequence at %d is outside of a %d bytes packet", offset, len(data))
			return
		}
		i.Seek(offset)

		// Header
		var bs []byte
		if bs, err = nextBytes(i, 4); err != nil {
			return
		}
		date := binary.BigEndian.Uint16(bs)
		next := int(binary.BigEndian.Uint16(bs[2:]))

		// Commands
		if err = cs.parseCommands(i, date, l); err != nil {
			err = fmt.Errorf("subtile: parsing control sequence at %d failed: %w", offset, err)
			return
		}

		// Next sequence
		switch {
		case next == offset:
			return
		case next < offset:
			err = malformed("control sequence at %d points back to %d", offset, next)
			return
		}
		offset = next
	}
}

func (cs *controlSequence) parseCommands(i *astikit.BytesIterator, date uint16, l *zap.Logger) (err error) {
	for {
		var cmd byte
		if cmd, err = i.NextByte(); err != nil {
			err = fmt.Errorf("%w: control sequence without end command", ErrUnexpectedEOF)
			return
		}

		var bs []byte
		switch cmd {
		case controlCommandForce:
			cs.forced = true
		case controlCommandStartDate:
			if cs.start == nil {
				d := date
				cs.start = &d
			}
		case controlCommandStopDate:
			if cs.stop == nil {
				d := date
				cs.stop = &d
			}
		case controlCommandPalette, controlCommandAlpha:
			if bs, err = nextBytes(i, 2); err != nil {
				return
			}
			v := &[4]uint8{bs[0] >> 4, bs[0] & 0xf, bs[1] >> 4, bs[1] & 0xf}
			if cmd == controlCommandPalette && cs.palette == nil {
				cs.palette = v
			} else if cmd == controlCommandAlpha && cs.alpha == nil {
				cs.alpha = v
			}
		case controlCommandArea:
			if bs, err = nextBytes(i, 6); err != nil {
				return
			}
			x1 := int(bs[0])<<4 | int(bs[1])>>4
			x2 := int(bs[1]&0xf)<<8 | int(bs[2])
			y1 := int(bs[3])<<4 | int(bs[4])>>4
			y2 := int(bs[4]&0xf)<<8 | int(bs[5])
			if x2 < x1 || y2 < y1 {
				err = malformed("invalid area (%d, %d)-(%d, %d)", x1, y1, x2, y2)
				return
			}
			if cs.area == nil {
				r := image.Rect(x1, y1, x2+1, y2+1)
				cs.area = &r
			}
		case controlCommandRLEOffsets:
			if bs, err = nextBytes(i, 4); err != nil {
				return
			}
			cs.rleOffsets = &[2]uint16{binary.BigEndian.Uint16(bs), binary.BigEndian.Uint16(bs[2:])}
		case controlCommandEnd:
			return
		default:
			// Skip to the end of the sequence
			unsupported, start := cmd, i.Offset()
			for cmd != controlCommandEnd {
				if cmd, err = i.NextByte(); err != nil {
					err = fmt.Errorf("%w: control sequence without end command", ErrUnexpectedEOF)
					return
				}
			}
			l.Warn("subtile: skipping unsupported control command",
				zap.Error(fmt.Errorf("%w: control command 0x%02x", ErrUnsupportedSegment, unsupported)),
				zap.Int("skipped", i.Offset()-1-start))
			return
		}
	}
}
