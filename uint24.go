package subtile

import (
	"strconv"
)

// Uint24 is a 3 bytes big-endian unsigned integer as found in PGS object definitions
type Uint24 [3]byte

// NewUint24 builds a Uint24 from the 24 low bits of v
func NewUint24(v uint32) Uint24 {
	return Uint24{byte(v >> 16), byte(v >> 8), byte(v)}
}

func (u Uint24) Uint32() uint32 {
	return uint32(u[0])<<16 | uint32(u[1])<<8 | uint32(u[2])
}

func (u Uint24) String() string {
	return strconv.FormatUint(uint64(u.Uint32()), 10)
}
