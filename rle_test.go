package subtile

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader(t *testing.T) {
	r := newBitReader(bits(t, "10110011 01011111"))
	v, err := r.readBits(3)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0b101), v)
	v, err = r.readBits(9)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0b100110101), v)
	r.align()
	assert.Equal(t, 2, r.pos)
	_, err = r.readBits(1)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	r = newBitReader([]byte{0xab, 0xcd})
	r.readBits(1)
	r.align()
	b, err := r.readByte()
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xcd), b)
}

func TestVobSubCodec(t *testing.T) {
	for _, c := range []struct {
		bits   string
		name   string
		length int
		value  uint8
		eol    bool
	}{
		{name: "1 nibble", bits: "1101 0000", length: 3, value: 1},
		{name: "2 nibbles", bits: "00 1111 10", length: 15, value: 2},
		{name: "3 nibbles", bits: "0000 111111 11 0000", length: 63, value: 3},
		{name: "4 nibbles", bits: "000000 11111111 01", length: 255, value: 1},
		{name: "end of line", bits: "000000 00000000 10", eol: true, value: 2},
	} {
		t.Run(c.name, func(t *testing.T) {
			run, err := vobSubCodec{}.nextRun(newBitReader(bits(t, c.bits)))
			require.NoError(t, err)
			assert.Equal(t, rleRun{eol: c.eol, length: c.length, value: c.value}, run)
		})
	}
}

func TestPGSCodec(t *testing.T) {
	for _, c := range []struct {
		data   []byte
		name   string
		length int
		value  uint8
		eol    bool
	}{
		{name: "single pixel", data: []byte{0x05}, length: 1, value: 5},
		{name: "short color 0", data: []byte{0x00, 0x03}, length: 3},
		{name: "long color 0", data: []byte{0x00, 0x41, 0x2c}, length: 300},
		{name: "short color", data: []byte{0x00, 0x83, 0x07}, length: 3, value: 7},
		{name: "long color", data: []byte{0x00, 0xc0, 0x64, 0x09}, length: 100, value: 9},
		{name: "end of line", data: []byte{0x00, 0x00}, eol: true},
	} {
		t.Run(c.name, func(t *testing.T) {
			run, err := pgsCodec{}.nextRun(newBitReader(c.data))
			require.NoError(t, err)
			assert.Equal(t, rleRun{eol: c.eol, length: c.length, value: c.value}, run)
		})
	}

	_, err := pgsCodec{}.nextRun(newBitReader([]byte{0x00, 0xc0, 0x64}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeRLEVobSub(t *testing.T) {
	// Interlaced fields
	img, err := decodeRLE(4, 2, [][]byte{
		bits(t, "00 0100 01"),
		bits(t, "000000 00000000 10"),
	}, vobSubCodec{}, 0)
	require.NoError(t, err)
	assert.Equal(t, &IndexedImage{Width: 4, Height: 2, Pix: []uint8{1, 1, 1, 1, 2, 2, 2, 2}}, img)

	// Rows align on bytes and overrunning runs are clipped
	img, err = decodeRLE(4, 4, [][]byte{
		bits(t, "1101 0110 00011001"),
		bits(t, "0111 000000 00000000 00 0000 0111 000000 00000000 00 0000"),
	}, vobSubCodec{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{
		1, 1, 1, 2,
		3, 0, 0, 0,
		1, 1, 1, 1,
		3, 0, 0, 0,
	}, img.Pix)
	assert.Len(t, img.Pix, img.Width*img.Height)

	// Truncated
	_, err = decodeRLE(4, 4, [][]byte{bits(t, "1101 0110"), bits(t, "0111 0000")}, vobSubCodec{}, 0)
	assert.ErrorIs(t, err, ErrTruncatedImage)
}

func TestDecodeRLEPGS(t *testing.T) {
	img, err := decodeRLE(4, 2, [][]byte{pgsTestObject}, pgsCodec{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1, 2, 2, 3, 3}, img.Pix)
	assert.Equal(t, uint8(3), img.ColorIndexAt(3, 1))
	assert.Equal(t, uint8(0), img.ColorIndexAt(4, 1))

	// End of line pads with color 0 and overruns are clipped
	img, err = decodeRLE(4, 2, [][]byte{{0x00, 0x82, 0x05, 0x00, 0x00, 0x00, 0x86, 0x01, 0x00, 0x00}}, pgsCodec{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{5, 5, 0, 0, 1, 1, 1, 1}, img.Pix)

	// Last line may omit its end of line
	img, err = decodeRLE(4, 1, [][]byte{{0x00, 0x84, 0x01}}, pgsCodec{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1}, img.Pix)

	// Truncated
	_, err = decodeRLE(4, 2, [][]byte{pgsTestObject[:5]}, pgsCodec{}, 0)
	assert.ErrorIs(t, err, ErrTruncatedImage)
	_, err = decodeRLE(4, 2, nil, pgsCodec{}, 0)
	assert.ErrorIs(t, err, ErrTruncatedImage)
}

func TestDecodeRLELimits(t *testing.T) {
	_, err := decodeRLE(5000, 5000, [][]byte{{0x00}}, pgsCodec{}, 0)
	assert.ErrorIs(t, err, ErrMalformedHeader)
	_, err = decodeRLE(4, 2, [][]byte{pgsTestObject}, pgsCodec{}, 7)
	assert.ErrorIs(t, err, ErrMalformedHeader)
	_, err = decodeRLE(-1, 2, [][]byte{pgsTestObject}, pgsCodec{}, 0)
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = decodeRLE(0, 2, [][]byte{{0x01}}, pgsCodec{}, 0)
	assert.ErrorIs(t, err, ErrMalformedHeader)
	_, err = decodeRLE(4, 0, [][]byte{{0x01}}, pgsCodec{}, 0)
	assert.ErrorIs(t, err, ErrMalformedHeader)

	img, err := decodeRLE(0, 0, nil, pgsCodec{}, 0)
	require.NoError(t, err)
	assert.Empty(t, img.Pix)
}

func TestDecodeRLEIsDeterministic(t *testing.T) {
	o := &RLEObject{Fields: [][]byte{pgsTestObject}, Height: 2, Width: 4, codec: pgsCodec{}}
	img1, err := DecodeFull.DecodeObject(o)
	require.NoError(t, err)
	img2, err := o.Decode()
	require.NoError(t, err)
	assert.Equal(t, img1, img2)

	img, err := DecodeTimingOnly.DecodeObject(o)
	assert.NoError(t, err)
	assert.Nil(t, img)
	assert.True(t, DecodeFull.ReadsObjectData())
	assert.False(t, DecodeTimingOnly.ReadsObjectData())
}
