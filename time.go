package subtile

import (
	"fmt"
	"time"
)

const (
	// PGS timestamps tick at 90 kHz
	ptsTicksPerMillisecond = 90
	// VobSub control sequence dates are expressed in 1/100th of a second
	vobSubDelayUnit = 10 * time.Millisecond
)

// Default values used by CloseOpenSpans
const (
	DefaultSubtitleSpacing = time.Millisecond
	DefaultSubtitleLength  = 5 * time.Second
)

// TimePoint is a presentation instant in milliseconds. It may be negative when an index
// file applies a negative delay.
type TimePoint int64

func TimePointFromMillis(ms int64) TimePoint {
	return TimePoint(ms)
}

// TimePointFromSeconds truncates sub-millisecond precision
func TimePointFromSeconds(s float64) TimePoint {
	return TimePoint(int64(s * 1000))
}

func TimePointFromDuration(d time.Duration) TimePoint {
	return TimePoint(d.Milliseconds())
}

// TimePointFromPTS converts a 90 kHz presentation timestamp
func TimePointFromPTS(ticks int64) TimePoint {
	return TimePoint(ticks / ptsTicksPerMillisecond)
}

// TimePointFromVobSubDelay converts a control sequence date
func TimePointFromVobSubDelay(ticks uint16) TimePoint {
	return TimePointFromDuration(time.Duration(ticks) * vobSubDelayUnit)
}

func (t TimePoint) Millis() int64 {
	return int64(t)
}

func (t TimePoint) Seconds() float64 {
	return float64(t) / 1000
}

func (t TimePoint) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

func (t TimePoint) Add(d time.Duration) TimePoint {
	return t + TimePointFromDuration(d)
}

// SRT formats the time point as HH:MM:SS,mmm
func (t TimePoint) SRT() string {
	return t.format(',')
}

// WebVTT formats the time point as HH:MM:SS.mmm
func (t TimePoint) WebVTT() string {
	return t.format('.')
}

func (t TimePoint) String() string {
	return t.format('.')
}

func (t TimePoint) format(sep byte) string {
	var sign string
	ms := int64(t)
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%02d:%02d:%02d%c%03d", sign, ms/3600000, ms/60000%60, ms/1000%60, sep, ms%1000)
}

// TimeSpan is a start time and an optional end time. When the end is missing, the span is
// left for the caller to close, see CloseOpenSpans.
type TimeSpan struct {
	end    TimePoint
	hasEnd bool
	start  TimePoint
}

// NewTimeSpan creates a closed span
func NewTimeSpan(start, end TimePoint) (s TimeSpan, err error) {
	if end < start {
		err = fmt.Errorf("%w: span ends at %s before it starts at %s", ErrMalformedHeader, end, start)
		return
	}
	s = TimeSpan{start: start, end: end, hasEnd: true}
	return
}

// OpenTimeSpan creates a span without end
func OpenTimeSpan(start TimePoint) TimeSpan {
	return TimeSpan{start: start}
}

func (s TimeSpan) Start() TimePoint {
	return s.start
}

// End returns the end of the span and whether it is known
func (s TimeSpan) End() (TimePoint, bool) {
	return s.end, s.hasEnd
}

// Closed returns a copy of the span ending at end. An end before the start is clamped to
// the start.
func (s TimeSpan) Closed(end TimePoint) TimeSpan {
	if end < s.start {
		end = s.start
	}
	return TimeSpan{start: s.start, end: end, hasEnd: true}
}

func (s TimeSpan) String() string {
	if !s.hasEnd {
		return s.start.String() + " --> ?"
	}
	return s.start.String() + " --> " + s.end.String()
}

// CloseOpenSpans gives an end to every event lacking one: just before the next event starts
// but no longer than DefaultSubtitleLength, and DefaultSubtitleLength for the last one.
func CloseOpenSpans(events []*Event) {
	for idx, e := range events {
		if _, ok := e.Span.End(); ok {
			continue
		}
		end := e.Span.Start().Add(DefaultSubtitleLength)
		if idx+1 < len(events) {
			if next := events[idx+1].Span.Start().Add(-DefaultSubtitleSpacing); next < end {
				end = next
			}
		}
		e.Span = e.Span.Closed(end)
	}
}
