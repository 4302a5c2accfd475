package subtile

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/asticode/go-astikit"
)

const windowLength = 9

// Window is an area of the screen compositions draw into
type Window struct {
	Height uint16
	ID     uint8
	Width  uint16
	X      uint16
	Y      uint16
}

// Rectangle returns the window area on screen
func (w Window) Rectangle() image.Rectangle {
	return image.Rect(int(w.X), int(w.Y), int(w.X)+int(w.Width), int(w.Y)+int(w.Height))
}

func parseWindowDefinition(bs []byte) (ws []Window, err error) {
	var i *astikit.BytesIterator
	if i, err = parseFixedBody(bs, SegmentTypeWDS, 1); err != nil {
		return
	}

	// Number of windows
	var n byte
	if n, err = i.NextByte(); err != nil {
		err = fmt.Errorf("subtile: fetching next byte failed: %w", err)
		return
	}

	// Windows
	ws = make([]Window, 0, n)
	for idx := 0; idx < int(n); idx++ {
		var b []byte
		if b, err = nextBytes(i, windowLength); err != nil {
			err = malformed("truncated window #%d", idx)
			return
		}
		ws = append(ws, Window{
			ID:     b[0],
			X:      binary.BigEndian.Uint16(b[1:]),
			Y:      binary.BigEndian.Uint16(b[3:]),
			Width:  binary.BigEndian.Uint16(b[5:]),
			Height: binary.BigEndian.Uint16(b[7:]),
		})
	}
	err = checkConsumed(i, SegmentTypeWDS)
	return
}
