package subtile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimePoint(t *testing.T) {
	assert.Equal(t, TimePoint(1000), TimePointFromPTS(90000))
	assert.Equal(t, TimePoint(1500), TimePointFromSeconds(1.5))
	assert.Equal(t, TimePoint(250), TimePointFromVobSubDelay(25))
	assert.Equal(t, TimePoint(42), TimePointFromDuration(42*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, 2*time.Second, TimePointFromMillis(2000).Duration())
	assert.Equal(t, 1.25, TimePointFromMillis(1250).Seconds())
	assert.Equal(t, TimePoint(1100), TimePointFromMillis(1000).Add(100*time.Millisecond))

	tp := TimePointFromMillis(3723004)
	assert.Equal(t, "01:02:03,004", tp.SRT())
	assert.Equal(t, "01:02:03.004", tp.WebVTT())
	assert.Equal(t, "-00:00:01.500", TimePointFromMillis(-1500).String())
}

func TestTimeSpan(t *testing.T) {
	s, err := NewTimeSpan(1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, TimePoint(1000), s.Start())
	end, ok := s.End()
	assert.True(t, ok)
	assert.Equal(t, TimePoint(2000), end)
	assert.Equal(t, "00:00:01.000 --> 00:00:02.000", s.String())

	_, err = NewTimeSpan(2000, 1000)
	assert.ErrorIs(t, err, ErrMalformedHeader)

	o := OpenTimeSpan(1000)
	_, ok = o.End()
	assert.False(t, ok)
	assert.Equal(t, "00:00:01.000 --> ?", o.String())

	// Closing before the start clamps
	end, ok = o.Closed(500).End()
	assert.True(t, ok)
	assert.Equal(t, TimePoint(1000), end)
}

func TestCloseOpenSpans(t *testing.T) {
	closed, err := NewTimeSpan(0, 500)
	require.NoError(t, err)
	es := []*Event{
		{Span: closed},
		{Span: OpenTimeSpan(1000)},
		{Span: OpenTimeSpan(2000)},
		{Span: OpenTimeSpan(10000)},
	}
	CloseOpenSpans(es)

	var ends []TimePoint
	for _, e := range es {
		end, ok := e.Span.End()
		require.True(t, ok)
		ends = append(ends, end)
	}
	assert.Equal(t, []TimePoint{500, 1999, 7000, 15000}, ends)
}
