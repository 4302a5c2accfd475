package subtile

import (
	"io"
)

// bitReader reads bits MSB first from an in-memory RLE buffer
type bitReader struct {
	bit  uint // bit position within the current byte, MSB first
	data []byte
	pos  int // byte position
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// readBits reads up to 32 bits
func (r *bitReader) readBits(n uint) (v uint32, err error) {
	for n > 0 {
		if r.pos >= len(r.data) {
			err = io.ErrUnexpectedEOF
			return
		}

		// Take as many bits as possible from the current byte
		avail := 8 - r.bit
		take := n
		if take > avail {
			take = avail
		}
		b := uint32(r.data[r.pos]) >> (avail - take) & (1<<take - 1)
		v = v<<take | b
		n -= take

		// Move forward
		r.bit += take
		if r.bit == 8 {
			r.bit = 0
			r.pos++
		}
	}
	return
}

func (r *bitReader) readByte() (uint8, error) {
	v, err := r.readBits(8)
	return uint8(v), err
}

// align moves to the next byte boundary unless already on one
func (r *bitReader) align() {
	if r.bit > 0 {
		r.bit = 0
		r.pos++
	}
}
