package subtile

import "sync"

// poolOfTempPayload is shared by the PES reader and object reassembly. Classes cover a DVD
// sector, a PGS segment and a large assembled object.
var poolOfTempPayload = newPoolTempPayload(1<<11, 1<<16, 1<<20)

// tempPayload is an object containing payload slice
type tempPayload struct {
	class int
	s     []byte
}

// poolTempPayload buckets temporary payloads by capacity. Payloads bigger than the largest
// class are allocated and left to the garbage collector.
type poolTempPayload struct {
	classes []int
	sps     []sync.Pool
}

func newPoolTempPayload(classes ...int) *poolTempPayload {
	ptp := &poolTempPayload{
		classes: classes,
		sps:     make([]sync.Pool, len(classes)),
	}
	for idx, c := range classes {
		ptp.sps[idx].New = func() interface{} {
			return &tempPayload{
				class: idx,
				s:     make([]byte, 0, c),
			}
		}
	}
	return ptp
}

// get returns a tempPayload whose slice has a 'size' length. Its content is undefined.
func (ptp *poolTempPayload) get(size int) (payload *tempPayload) {
	for idx, c := range ptp.classes {
		if size <= c {
			payload, _ = ptp.sps[idx].Get().(*tempPayload)
			payload.s = payload.s[:size]
			return
		}
	}
	return &tempPayload{class: -1, s: make([]byte, size)}
}

// put returns the payload to its bucket
// Don't use the payload after a call to put
func (ptp *poolTempPayload) put(payload *tempPayload) {
	if payload == nil || payload.class < 0 || payload.class >= len(ptp.sps) {
		return
	}
	ptp.sps[payload.class].Put(payload)
}
