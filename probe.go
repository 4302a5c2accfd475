package subtile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format is a subtitle file format recognized by Probe
type Format int

// Formats
const (
	FormatUnknown Format = iota
	FormatVobSubIdx
	FormatVobSubSub
	FormatPGS
)

var (
	idxMagic = []byte(idxHeaderPrefix)
	subMagic = []byte{0x00, 0x00, 0x01, streamIDPackHeader}
	supMagic = []byte(segmentMagic)
)

func (f Format) String() string {
	switch f {
	case FormatVobSubIdx:
		return "vobsub-idx"
	case FormatVobSubSub:
		return "vobsub-sub"
	case FormatPGS:
		return "pgs"
	}
	return "unknown"
}

// IsIdxFile checks whether header starts like a VobSub idx file
func IsIdxFile(header []byte) bool {
	return bytes.HasPrefix(header, idxMagic)
}

// IsSubFile checks whether header starts with an MPEG-2 pack header
func IsSubFile(header []byte) bool {
	return bytes.HasPrefix(header, subMagic)
}

// IsSupFile checks whether header starts with a PGS segment
func IsSupFile(header []byte) bool {
	return bytes.HasPrefix(header, supMagic)
}

// ProbeFormat detects the format of a stream from its first bytes
func ProbeFormat(r io.Reader) (f Format, err error) {
	header := make([]byte, len(idxMagic))
	var n int
	if n, err = io.ReadFull(r, header); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("subtile: reading header failed: %w", err)
		return
	}
	err = nil
	header = header[:n]

	switch {
	case IsIdxFile(header):
		f = FormatVobSubIdx
	case IsSubFile(header):
		f = FormatVobSubSub
	case IsSupFile(header):
		f = FormatPGS
	}
	return
}

// ProbeFile detects the format of the file at path
func ProbeFile(path string) (f Format, err error) {
	var fh *os.File
	if fh, err = os.Open(path); err != nil {
		err = fmt.Errorf("subtile: opening %s failed: %w", path, err)
		return
	}
	defer fh.Close()
	return ProbeFormat(fh)
}
