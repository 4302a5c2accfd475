package subtile

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/require"
)

// bits packs a string of 0s and 1s, spaces ignored, the way RLE data is laid out
func bits(t *testing.T, s string) []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	s = strings.ReplaceAll(s, " ", "")
	require.Zero(t, len(s)%8, "bit string must fill whole bytes")
	require.NoError(t, w.Write(s))
	return buf.Bytes()
}

// PGS

type testCompositionObject struct {
	crop   []uint16
	id     uint16
	window uint8
	x, y   uint16
}

func pgsSegment(typ SegmentType, pts uint32, body []byte) []byte {
	bs := []byte(segmentMagic)
	bs = binary.BigEndian.AppendUint32(bs, pts)
	bs = binary.BigEndian.AppendUint32(bs, 0)
	bs = append(bs, byte(typ))
	bs = binary.BigEndian.AppendUint16(bs, uint16(len(body)))
	return append(bs, body...)
}

func pcsBody(number uint16, state CompositionState, paletteID uint8, paletteUpdate bool, objects ...testCompositionObject) []byte {
	bs := binary.BigEndian.AppendUint16(nil, 1920)
	bs = binary.BigEndian.AppendUint16(bs, 1080)
	bs = append(bs, 0x10)
	bs = binary.BigEndian.AppendUint16(bs, number)
	var update byte
	if paletteUpdate {
		update = 0x80
	}
	bs = append(bs, byte(state), update, paletteID, byte(len(objects)))
	for _, o := range objects {
		bs = binary.BigEndian.AppendUint16(bs, o.id)
		var flags byte
		if o.crop != nil {
			flags = compositionObjectCropFlag
		}
		bs = append(bs, o.window, flags)
		bs = binary.BigEndian.AppendUint16(bs, o.x)
		bs = binary.BigEndian.AppendUint16(bs, o.y)
		for _, v := range o.crop {
			bs = binary.BigEndian.AppendUint16(bs, v)
		}
	}
	return bs
}

func wdsBody(ws ...Window) []byte {
	bs := []byte{byte(len(ws))}
	for _, w := range ws {
		bs = append(bs, w.ID)
		bs = binary.BigEndian.AppendUint16(bs, w.X)
		bs = binary.BigEndian.AppendUint16(bs, w.Y)
		bs = binary.BigEndian.AppendUint16(bs, w.Width)
		bs = binary.BigEndian.AppendUint16(bs, w.Height)
	}
	return bs
}

// pdsBody takes entries as index, Y, Cr, Cb, A
func pdsBody(id, version uint8, entries ...[5]byte) []byte {
	bs := []byte{id, version}
	for _, e := range entries {
		bs = append(bs, e[:]...)
	}
	return bs
}

func odsFirstBody(id uint16, flags uint8, dataLength uint32, w, h uint16, data []byte) []byte {
	bs := binary.BigEndian.AppendUint16(nil, id)
	bs = append(bs, 0, flags)
	u := NewUint24(dataLength)
	bs = append(bs, u[:]...)
	bs = binary.BigEndian.AppendUint16(bs, w)
	bs = binary.BigEndian.AppendUint16(bs, h)
	return append(bs, data...)
}

func odsNextBody(id uint16, flags uint8, data []byte) []byte {
	bs := binary.BigEndian.AppendUint16(nil, id)
	bs = append(bs, 0, flags)
	return append(bs, data...)
}

// pgsTestObject is a 4x2 object: a row of color 1 and a row of [2 2 3 3]
var pgsTestObject = []byte{
	0x00, 0x84, 0x01, 0x00, 0x00,
	0x02, 0x02, 0x00, 0x82, 0x03, 0x00, 0x00,
}

var pgsTestPalette = [][5]byte{
	{0, 16, 128, 128, 0xff},
	{1, 235, 128, 128, 0xff},
	{2, 81, 240, 90, 0xff},
	{3, 16, 128, 128, 0},
}

// displaySet builds an epoch start display set showing pgsTestObject at (100, 200)
func displaySet(pts uint32, number uint16) []byte {
	var bs []byte
	bs = append(bs, pgsSegment(SegmentTypePCS, pts, pcsBody(number, CompositionStateEpochStart, 0, false, testCompositionObject{x: 100, y: 200}))...)
	bs = append(bs, pgsSegment(SegmentTypeWDS, pts, wdsBody(Window{X: 100, Y: 200, Width: 4, Height: 2}))...)
	bs = append(bs, pgsSegment(SegmentTypePDS, pts, pdsBody(0, 0, pgsTestPalette...))...)
	bs = append(bs, pgsSegment(SegmentTypeODS, pts, odsFirstBody(0, objectSequenceFirst|objectSequenceLast, uint32(len(pgsTestObject)+4), 4, 2, pgsTestObject))...)
	bs = append(bs, pgsSegment(SegmentTypeEND, pts, nil)...)
	return bs
}

// clearingSet builds a display set removing everything from screen
func clearingSet(pts uint32, number uint16) []byte {
	var bs []byte
	bs = append(bs, pgsSegment(SegmentTypePCS, pts, pcsBody(number, CompositionStateNormal, 0, false))...)
	bs = append(bs, pgsSegment(SegmentTypeWDS, pts, wdsBody(Window{X: 100, Y: 200, Width: 4, Height: 2}))...)
	bs = append(bs, pgsSegment(SegmentTypeEND, pts, nil)...)
	return bs
}

// VobSub

type testSubpicture struct {
	alpha, palette [2]byte
	area           [4]int // x1, x2, y1, y2
	fields         [2][]byte
	start, stop    uint16
	withStop       bool
	extraCommands  []byte
}

// vobSubTestSubpicture is a 4x2 subpicture: a row of value 1 and a row filled with value 2
func vobSubTestSubpicture(t *testing.T) testSubpicture {
	return testSubpicture{
		alpha:   [2]byte{0xff, 0xf0},
		palette: [2]byte{0x3f, 0x21},
		area:    [4]int{0, 3, 0, 1},
		fields: [2][]byte{
			bits(t, "00 0100 01"),
			bits(t, "000000 00000000 10"),
		},
		stop:     100,
		withStop: true,
	}
}

func (sp testSubpicture) bytes() []byte {
	ctrl0 := 4 + len(sp.fields[0]) + len(sp.fields[1])

	// First sequence
	seq0 := []byte{controlCommandPalette, sp.palette[0], sp.palette[1], controlCommandAlpha, sp.alpha[0], sp.alpha[1]}
	x1, x2, y1, y2 := sp.area[0], sp.area[1], sp.area[2], sp.area[3]
	seq0 = append(seq0, controlCommandArea,
		byte(x1>>4), byte(x1&0xf)<<4|byte(x2>>8), byte(x2),
		byte(y1>>4), byte(y1&0xf)<<4|byte(y2>>8), byte(y2))
	seq0 = append(seq0, controlCommandRLEOffsets)
	seq0 = binary.BigEndian.AppendUint16(seq0, 4)
	seq0 = binary.BigEndian.AppendUint16(seq0, uint16(4+len(sp.fields[0])))
	seq0 = append(seq0, controlCommandStartDate)
	seq0 = append(seq0, sp.extraCommands...)
	seq0 = append(seq0, controlCommandEnd)

	ctrl1 := ctrl0 + 4 + len(seq0)
	next := ctrl0
	if sp.withStop {
		next = ctrl1
	}

	bs := []byte{0, 0, byte(ctrl0 >> 8), byte(ctrl0)}
	bs = append(bs, sp.fields[0]...)
	bs = append(bs, sp.fields[1]...)
	bs = binary.BigEndian.AppendUint16(bs, sp.start)
	bs = binary.BigEndian.AppendUint16(bs, uint16(next))
	bs = append(bs, seq0...)
	if sp.withStop {
		bs = binary.BigEndian.AppendUint16(bs, sp.stop)
		bs = binary.BigEndian.AppendUint16(bs, uint16(ctrl1))
		bs = append(bs, controlCommandStopDate, controlCommandEnd)
	}
	binary.BigEndian.PutUint16(bs, uint16(len(bs)))
	return bs
}

var testPackHeader = []byte{0x00, 0x00, 0x01, 0xba, 0x44, 0x00, 0x04, 0x00, 0x04, 0x01, 0x01, 0x89, 0xc3, 0xf8}

func ptsBytes(pts int64) []byte {
	return []byte{
		0x20 | byte(pts>>29)&0x0e | 1,
		byte(pts >> 22),
		byte(pts>>14)&0xfe | 1,
		byte(pts >> 7),
		byte(pts<<1) | 1,
	}
}

// psPacket wraps payload in a pack header and a private stream 1 PES packet. A negative pts
// leaves the packet without timestamp.
func psPacket(substream byte, pts int64, payload []byte) []byte {
	var opt []byte
	if pts >= 0 {
		opt = append([]byte{0x81, 0x80, 5}, ptsBytes(pts)...)
	} else {
		opt = []byte{0x81, 0x00, 0}
	}
	bs := append([]byte{}, testPackHeader...)
	bs = append(bs, 0x00, 0x00, 0x01, streamIDPrivateStream1)
	bs = binary.BigEndian.AppendUint16(bs, uint16(len(opt)+1+len(payload)))
	bs = append(bs, opt...)
	bs = append(bs, substream)
	return append(bs, payload...)
}

// paddingPacket is a padding stream packet as DVD sectors end with
func paddingPacket(n int) []byte {
	bs := []byte{0x00, 0x00, 0x01, streamIDPaddingStream}
	bs = binary.BigEndian.AppendUint16(bs, uint16(n))
	return append(bs, bytes.Repeat([]byte{0xff}, n)...)
}

const testIdx = `# VobSub index file, v7 (do not modify this line!)
#
size: 720x480
org: 0, 0
alpha: 100%
time offset: 0
forced subs: OFF
palette: 000000, ffffff, 808080, ff0000, 00ff00, 0000ff, ffff00, 00ffff, ff00ff, 111111, 222222, 333333, 444444, 555555, 666666, 777777
langidx: 0

id: en, index: 0
timestamp: 00:00:01:000, filepos: 000000000
`
