package subtile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/asticode/go-astikit"
	"go.uber.org/zap"
)

const (
	packHeaderLength = 10
	startCodePrefix  = 0x000001
)

// packHeader represents an MPEG-2 program stream pack header
// https://en.wikipedia.org/wiki/MPEG_program_stream
type packHeader struct {
	muxRate uint32 // In units of 50 bytes per second
	scr     ClockReference
}

func parsePackHeader(i *astikit.BytesIterator) (h packHeader, err error) {
	var bs []byte
	if bs, err = nextBytes(i, packHeaderLength); err != nil {
		return
	}
	if bs[0]>>6 != 0b01 {
		err = malformed("pack header is not an MPEG-2 one (%08b)", bs[0])
		return
	}

	// SCR
	if err = h.scr.parseSCR(astikit.NewBytesIterator(bs[:6])); err != nil {
		err = fmt.Errorf("subtile: parsing SCR failed: %w", err)
		return
	}

	h.muxRate = uint32(bs[6])<<14 | uint32(bs[7])<<6 | uint32(bs[8])>>2
	return
}

// psReader pulls PES packets out of an MPEG-2 program stream, skipping pack headers,
// system headers and the streams subtitles don't live in
type psReader struct {
	l  *zap.Logger
	sr *streamReader
}

func newPSReader(sr *streamReader, l *zap.Logger) *psReader {
	return &psReader{
		l:  l,
		sr: sr,
	}
}

// nextSubpicturePES returns the next subpicture packet of private stream 1. It returns
// io.EOF at the end of the stream. The caller must close the packet.
func (r *psReader) nextSubpicturePES() (p *pesPacket, err error) {
	for {
		// Get start code
		var code uint32
		if code, err = r.nextStartCode(); err != nil {
			return
		}

		switch id := uint8(code); {
		case id == streamIDPackHeader:
			if err = r.skipPackHeader(); err != nil {
				err = fmt.Errorf("subtile: skipping pack header failed: %w", err)
				return
			}
		case id == streamIDProgramEnd:
		case id == streamIDPrivateStream1:
			if p, err = r.readPES(code); err != nil {
				err = fmt.Errorf("subtile: reading PES packet failed: %w", err)
				return
			}
			if p.isSubpicture() {
				return
			}
			r.l.Debug("subtile: skipping private stream 1 packet", zap.Uint8("substream", p.substreamID))
			p.close()
		case id >= streamIDSystemHeader:
			// Every other stream declares its length right after its start code
			var n uint16
			if n, err = r.sr.u16(); err != nil {
				err = fmt.Errorf("subtile: reading packet length failed: %w", err)
				return
			}
			if err = r.sr.skip(int64(n)); err != nil {
				err = fmt.Errorf("subtile: skipping stream 0x%x failed: %w", id, err)
				return
			}
		default:
			r.l.Debug("subtile: ignoring start code", zap.Uint32("code", code), zap.Int64("offset", r.sr.offset))
		}
	}
}

// nextStartCode returns the next 0x000001xx code, skipping garbage in between
func (r *psReader) nextStartCode() (code uint32, err error) {
	if r.sr.remaining() == 0 {
		err = io.EOF
		return
	}
	if code, err = r.sr.u32(); err != nil {
		return
	}

	// Resync
	var skipped int
	for code>>8 != startCodePrefix {
		if r.sr.remaining() == 0 {
			r.l.Warn("subtile: trailing bytes without start code", zap.Int("bytes", skipped+4))
			err = io.EOF
			return
		}
		var b uint8
		if b, err = r.sr.u8(); err != nil {
			return
		}
		code = code<<8 | uint32(b)
		skipped++
	}
	if skipped > 0 {
		r.l.Warn("subtile: skipped bytes looking for a start code", zap.Int("bytes", skipped), zap.Int64("offset", r.sr.offset-4))
	}
	return
}

func (r *psReader) skipPackHeader() (err error) {
	var bs []byte
	if bs, err = r.sr.fixed(packHeaderLength); err != nil {
		return
	}
	var h packHeader
	if h, err = parsePackHeader(astikit.NewBytesIterator(bs)); err != nil {
		return
	}
	r.l.Debug("subtile: pack header", zap.Duration("scr", h.scr.Duration()), zap.Uint32("mux_rate", h.muxRate))

	// Stuffing
	return r.sr.skip(int64(bs[9] & 0x7))
}

// readPES reads a whole PES packet into a pooled payload and parses it
func (r *psReader) readPES(code uint32) (p *pesPacket, err error) {
	var n uint16
	if n, err = r.sr.u16(); err != nil {
		return
	}
	if int64(n) > r.sr.remaining() {
		err = fmt.Errorf("%w: PES packet of %d bytes with %d bytes left", ErrUnexpectedEOF, n, r.sr.remaining())
		return
	}

	// Read
	tp := poolOfTempPayload.get(pesHeaderLength + int(n))
	binary.BigEndian.PutUint32(tp.s, code)
	binary.BigEndian.PutUint16(tp.s[4:], n)
	if err = r.sr.fill(tp.s[pesHeaderLength:]); err != nil {
		poolOfTempPayload.put(tp)
		err = eofError(err)
		return
	}

	// Parse
	if p, err = parsePESPacket(astikit.NewBytesIterator(tp.s)); err != nil {
		poolOfTempPayload.put(tp)
		return
	}
	p.internalData = tp
	return
}
