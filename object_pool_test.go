package subtile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolTempPayload(t *testing.T) {
	ptp := newPoolTempPayload(4, 16)
	tp := ptp.get(3)
	assert.Len(t, tp.s, 3)
	assert.Equal(t, 4, cap(tp.s))
	assert.Equal(t, 0, tp.class)
	ptp.put(tp)

	tp = ptp.get(10)
	assert.Len(t, tp.s, 10)
	assert.Equal(t, 1, tp.class)

	// Oversized payloads are not pooled
	tp = ptp.get(17)
	assert.Len(t, tp.s, 17)
	assert.Equal(t, -1, tp.class)
	ptp.put(tp)
	ptp.put(nil)
}

func TestFragmentList(t *testing.T) {
	fl := newFragmentList()
	for _, d := range [][]byte{{1, 2}, {3}, {4, 5, 6}} {
		tp := poolOfTempPayload.get(len(d))
		copy(tp.s, d)
		fl.pushBack(&fragment{data: tp.s, payload: tp, size: len(d)})
	}
	assert.Equal(t, 3, fl.length())
	assert.Equal(t, 6, fl.size())
	assert.True(t, fl.hasData())

	tp := fl.assemble()
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, tp.s)
	poolOfTempPayload.put(tp)

	// Skipped fragments only count their size
	fl.pushBack(&fragment{size: 4})
	assert.Equal(t, 10, fl.size())
	assert.False(t, fl.hasData())

	fl.clear()
	assert.Equal(t, 0, fl.length())
	assert.Equal(t, 0, fl.size())
	assert.Nil(t, fl.head)
}
