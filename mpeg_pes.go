package subtile

import (
	"encoding/binary"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Stream IDs found in DVD program streams
const (
	streamIDProgramEnd     = 0xb9
	streamIDPackHeader     = 0xba
	streamIDSystemHeader   = 0xbb
	streamIDPrivateStream1 = 0xbd
	streamIDPaddingStream  = 0xbe
	streamIDPrivateStream2 = 0xbf
)

// PTS DTS indicator
const (
	ptsDTSIndicatorBothPresent = 3
	ptsDTSIndicatorOnlyPTS     = 2
)

// Subpicture substreams of private stream 1 are 0x20 + track
const (
	subpictureSubstreamBase = 0x20
	subpictureSubstreamMask = 0xe0
)

const pesHeaderLength = 6

// pesPacket is a Packetized Elementary Stream packet of a program stream. Data points into
// the pooled buffer the packet was read into and is only valid until close is called.
// http://dvd.sourceforge.net/dvdinfo/pes-hdr.html
type pesPacket struct {
	data        []byte
	header      pesHeader
	substreamID uint8

	internalData *tempPayload
}

type pesHeader struct {
	optionalHeader *pesOptionalHeader
	packetLength   uint16
	streamID       uint8
}

type pesOptionalHeader struct {
	dataAlignmentIndicator bool
	dts                    ClockReference
	escr                   ClockReference
	hasESCR                bool
	headerLength           uint8
	pts                    ClockReference
	ptsDTSIndicator        uint8
}

func (p *pesPacket) close() {
	if p.internalData != nil {
		poolOfTempPayload.put(p.internalData)
		p.internalData = nil
	}
}

// pts returns the presentation timestamp if the packet carries one
func (p *pesPacket) pts() (ClockReference, bool) {
	h := p.header.optionalHeader
	if h == nil || h.ptsDTSIndicator&ptsDTSIndicatorOnlyPTS == 0 {
		return ClockReference{}, false
	}
	return h.pts, true
}

func (p *pesPacket) isSubpicture() bool {
	return p.header.streamID == streamIDPrivateStream1 && p.substreamID&subpictureSubstreamMask == subpictureSubstreamBase
}

// parsePESPacket parses a PES packet whose start code is at the iterator's offset
func parsePESPacket(i *astikit.BytesIterator) (p *pesPacket, err error) {
	p = &pesPacket{}

	// Skip start code prefix
	i.Skip(3)

	// Parse header
	var dataStart, dataEnd int
	if dataStart, dataEnd, err = p.header.parse(i); err != nil {
		err = fmt.Errorf("subtile: parsing PES header failed: %w", err)
		return
	}

	// Validation
	if dataEnd < dataStart {
		err = malformed("PES data end %d is before data start %d", dataEnd, dataStart)
		return
	}

	// Extract data
	i.Seek(dataStart)
	if p.data, err = nextBytes(i, dataEnd-dataStart); err != nil {
		err = fmt.Errorf("subtile: fetching PES data failed: %w", err)
		return
	}

	// DVD private streams start with a substream id
	if p.header.streamID == streamIDPrivateStream1 {
		if len(p.data) == 0 {
			err = malformed("private stream 1 packet without substream id")
			return
		}
		p.substreamID = p.data[0]
		p.data = p.data[1:]
	}
	return
}

// hasPESOptionalHeader checks whether the stream carries a PES optional header
func hasPESOptionalHeader(streamID uint8) bool {
	return streamID != streamIDPaddingStream && streamID != streamIDPrivateStream2
}

func (h *pesHeader) parse(i *astikit.BytesIterator) (dataStart, dataEnd int, err error) {
	var bs []byte
	if bs, err = nextBytes(i, 3); err != nil {
		return
	}
	h.streamID = bs[0]
	h.packetLength = binary.BigEndian.Uint16(bs[1:])

	// Program streams always declare a length
	dataEnd = i.Offset() + int(h.packetLength)
	if dataEnd > i.Len() {
		err = fmt.Errorf("%w: PES packet of %d bytes in a %d bytes buffer", ErrUnexpectedEOF, h.packetLength, i.Len()-i.Offset())
		return
	}

	// Optional header
	if hasPESOptionalHeader(h.streamID) {
		h.optionalHeader = &pesOptionalHeader{}
		if dataStart, err = h.optionalHeader.parse(i); err != nil {
			err = fmt.Errorf("subtile: parsing PES optional header failed: %w", err)
			return
		}
	} else {
		dataStart = i.Offset()
	}
	return
}

// parse reads the fields we need and leaves the rest to be skipped through the header length
func (h *pesOptionalHeader) parse(i *astikit.BytesIterator) (dataStart int, err error) {
	var bs []byte
	if bs, err = nextBytes(i, 3); err != nil {
		return
	}
	if bs[0]>>6 != 0b10 {
		err = malformed("PES optional header marker bits are %02b", bs[0]>>6)
		return
	}
	h.dataAlignmentIndicator = bs[0]&0x4 > 0
	h.ptsDTSIndicator = bs[1] >> 6 & 0x3
	h.hasESCR = bs[1]&0x20 > 0
	h.headerLength = bs[2]

	// Update data start
	dataStart = i.Offset() + int(h.headerLength)

	// PTS/DTS
	switch h.ptsDTSIndicator {
	case ptsDTSIndicatorOnlyPTS:
		if err = h.pts.parsePTSOrDTS(i); err != nil {
			err = fmt.Errorf("subtile: parsing PTS failed: %w", err)
			return
		}
	case ptsDTSIndicatorBothPresent:
		if err = h.pts.parsePTSOrDTS(i); err != nil {
			err = fmt.Errorf("subtile: parsing PTS failed: %w", err)
			return
		}
		if err = h.dts.parsePTSOrDTS(i); err != nil {
			err = fmt.Errorf("subtile: parsing DTS failed: %w", err)
			return
		}
	}

	// ESCR
	if h.hasESCR {
		if err = h.escr.parseSCR(i); err != nil {
			err = fmt.Errorf("subtile: parsing ESCR failed: %w", err)
			return
		}
	}

	if dataStart < i.Offset() {
		err = malformed("PES header length %d is shorter than its fields", h.headerLength)
		return
	}
	return
}

// parsePTSOrDTS parses a 33 bits timestamp spread over 5 bytes with marker bits
func (cr *ClockReference) parsePTSOrDTS(i *astikit.BytesIterator) (err error) {
	var bs []byte
	if bs, err = nextBytes(i, 5); err != nil {
		return
	}
	*cr = newClockReference(int64(bs[0])>>1&0x7<<30|int64(bs[1])<<22|int64(bs[2])>>1&0x7f<<15|int64(bs[3])<<7|int64(bs[4])>>1&0x7f, 0)
	return
}

// parseSCR parses a system clock reference, which shares its layout with the PES ESCR: 33
// bits base and 9 bits extension over 6 bytes
func (cr *ClockReference) parseSCR(i *astikit.BytesIterator) (err error) {
	var bs []byte
	if bs, err = nextBytes(i, 6); err != nil {
		return
	}
	scr := int64(bs[0])>>3&0x7<<39 | int64(bs[0])&0x3<<37 | int64(bs[1])<<29 | int64(bs[2])>>3<<24 | int64(bs[2])&0x3<<22 | int64(bs[3])<<14 | int64(bs[4])>>3<<9 | int64(bs[4])&0x3<<7 | int64(bs[5])>>1
	*cr = newClockReference(scr>>9, scr&0x1ff)
	return
}

// nextBytes fetches n bytes without copy and reports a short buffer as ErrUnexpectedEOF
func nextBytes(i *astikit.BytesIterator, n int) (bs []byte, err error) {
	if bs, err = i.NextBytesNoCopy(n); err != nil || len(bs) < n {
		err = fmt.Errorf("%w: %d bytes needed at offset %d of %d", ErrUnexpectedEOF, n, i.Offset(), i.Len())
		return
	}
	return
}
