package subtile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// streamReader reads big-endian fields from a seekable source. It never buffers ahead of
// what it hands out so that skip can be a true seek on the underlying source.
type streamReader struct {
	buf    [4]byte
	offset int64
	r      io.ReadSeeker
	size   int64
}

// newStreamReader creates a stream reader positioned at the source's current offset
func newStreamReader(r io.ReadSeeker) (sr *streamReader, err error) {
	sr = &streamReader{r: r}

	// Remember where we are
	if sr.offset, err = r.Seek(0, io.SeekCurrent); err != nil {
		err = fmt.Errorf("subtile: getting current offset failed: %w", err)
		return
	}

	// Learn the size so that skips past the end can be detected
	if sr.size, err = r.Seek(0, io.SeekEnd); err != nil {
		err = fmt.Errorf("subtile: seeking to end failed: %w", err)
		return
	}

	// Go back
	if _, err = r.Seek(sr.offset, io.SeekStart); err != nil {
		err = fmt.Errorf("subtile: seeking back to %d failed: %w", sr.offset, err)
		return
	}
	return
}

// fill reads exactly len(bs) bytes. It returns io.EOF untouched when no byte at all could
// be read so that callers can tell a clean end of stream from a truncated record.
func (sr *streamReader) fill(bs []byte) (err error) {
	var n int
	n, err = io.ReadFull(sr.r, bs)
	sr.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return io.EOF
		}
		err = eofError(err)
	}
	return
}

func (sr *streamReader) fixed(n int) (bs []byte, err error) {
	bs = sr.buf[:n]
	if err = sr.fill(bs); err == io.EOF {
		err = eofError(err)
	}
	return
}

func (sr *streamReader) u8() (uint8, error) {
	bs, err := sr.fixed(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

func (sr *streamReader) u16() (uint16, error) {
	bs, err := sr.fixed(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(bs), nil
}

func (sr *streamReader) u24() (u Uint24, err error) {
	var bs []byte
	if bs, err = sr.fixed(3); err != nil {
		return
	}
	copy(u[:], bs)
	return
}

func (sr *streamReader) u32() (uint32, error) {
	bs, err := sr.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(bs), nil
}

// next reads n bytes into a fresh slice. The declared length is checked against what is
// left in the source before allocating.
func (sr *streamReader) next(n int) (bs []byte, err error) {
	if n < 0 || int64(n) > sr.remaining() {
		err = fmt.Errorf("%w: %d bytes requested at offset %d, %d left", ErrUnexpectedEOF, n, sr.offset, sr.remaining())
		return
	}
	bs = make([]byte, n)
	if err = sr.fill(bs); err == io.EOF {
		err = eofError(err)
	}
	return
}

// skip moves the cursor n bytes forward by seeking
func (sr *streamReader) skip(n int64) (err error) {
	if n < 0 || n > sr.remaining() {
		err = fmt.Errorf("%w: cannot skip %d bytes at offset %d, %d left", ErrUnexpectedEOF, n, sr.offset, sr.remaining())
		return
	}
	if n == 0 {
		return
	}
	var o int64
	if o, err = sr.r.Seek(n, io.SeekCurrent); err != nil {
		err = fmt.Errorf("subtile: seeking %d bytes failed: %w", n, err)
		return
	}
	sr.offset = o
	return
}

// seekTo moves the cursor to an absolute offset
func (sr *streamReader) seekTo(offset int64) (err error) {
	if offset < 0 || offset > sr.size {
		err = fmt.Errorf("%w: offset %d is outside of a %d bytes stream", ErrUnexpectedEOF, offset, sr.size)
		return
	}
	var o int64
	if o, err = sr.r.Seek(offset, io.SeekStart); err != nil {
		err = fmt.Errorf("subtile: seeking to %d failed: %w", offset, err)
		return
	}
	sr.offset = o
	return
}

func (sr *streamReader) remaining() int64 {
	return sr.size - sr.offset
}

// subSlice returns bs[start:end] or ErrUnexpectedEOF when the bounds don't fit
func subSlice(bs []byte, start, end int) ([]byte, error) {
	if start < 0 || end < start || end > len(bs) {
		return nil, fmt.Errorf("%w: slice [%d:%d] out of %d bytes", ErrUnexpectedEOF, start, end, len(bs))
	}
	return bs[start:end], nil
}
