package subtile

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReader(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c})
	sr, err := newStreamReader(r)
	require.NoError(t, err)
	assert.Equal(t, int64(12), sr.remaining())

	u8, err := sr.u8()
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x01), u8)
	u16, err := sr.u16()
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0203), u16)
	u24, err := sr.u24()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x040506), u24.Uint32())
	assert.NoError(t, sr.skip(2))
	u32, err := sr.u32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x090a0b0c), u32)
	assert.Equal(t, int64(0), sr.remaining())

	// Clean end of stream
	assert.Equal(t, io.EOF, sr.fill(make([]byte, 1)))
	_, err = sr.u8()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)

	// Seek back and read past the end
	require.NoError(t, sr.seekTo(10))
	_, err = sr.u32()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	require.NoError(t, sr.seekTo(4))
	bs, err := sr.next(3)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x06, 0x07}, bs)
	_, err = sr.next(10)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
	assert.ErrorIs(t, sr.skip(10), ErrUnexpectedEOF)
	assert.ErrorIs(t, sr.seekTo(13), ErrUnexpectedEOF)
}

func TestStreamReaderStartsAtCurrentOffset(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x02, 0x03})
	_, err := r.Seek(1, io.SeekStart)
	require.NoError(t, err)
	sr, err := newStreamReader(r)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sr.remaining())
	u8, err := sr.u8()
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x02), u8)
}

type failingSeeker struct {
	*bytes.Reader
	fail bool
}

func (s *failingSeeker) Seek(offset int64, whence int) (int64, error) {
	if s.fail {
		return 0, errors.New("seek failed")
	}
	return s.Reader.Seek(offset, whence)
}

func TestStreamReaderFailedSeek(t *testing.T) {
	s := &failingSeeker{Reader: bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04})}
	sr, err := newStreamReader(s)
	require.NoError(t, err)
	_, err = sr.u8()
	require.NoError(t, err)

	s.fail = true
	assert.Error(t, sr.skip(1))
	assert.Error(t, sr.seekTo(0))
	assert.Equal(t, int64(1), sr.offset)
	assert.Equal(t, int64(3), sr.remaining())

	s.fail = false
	require.NoError(t, sr.skip(2))
	assert.Equal(t, int64(1), sr.remaining())
}

func TestSubSlice(t *testing.T) {
	bs, err := subSlice([]byte{1, 2, 3}, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, bs)
	_, err = subSlice([]byte{1, 2, 3}, 2, 4)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
	_, err = subSlice([]byte{1, 2, 3}, 2, 1)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestUint24(t *testing.T) {
	u := NewUint24(0x123456)
	assert.Equal(t, uint32(0x123456), u.Uint32())
	assert.Equal(t, "1193046", u.String())
}
