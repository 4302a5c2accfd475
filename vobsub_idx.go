package subtile

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	idxHeaderPrefix     = "# VobSub index file"
	idxSizePrefix       = "size: "
	idxOriginPrefix     = "org: "
	idxAlphaRatioPrefix = "alpha: "
	idxTimeOffsetPrefix = "time offset: "
	idxForcedSubsPrefix = "forced subs: "
	idxPalettePrefix    = "palette: "
	idxLangIdxPrefix    = "langidx: "
	idxIDPrefix         = "id: "
	idxTimestampPrefix  = "timestamp: "
	idxDelayPrefix      = "delay: "
)

// VobSubIndex is the content of an idx file
type VobSubIndex struct {
	// AlphaRatio is the "alpha" key as a ratio, 1 when absent
	AlphaRatio float64
	ForcedSubs bool
	LangIdx    int
	Origin     image.Point
	// Palette is shared by every event of the index
	Palette    *Palette
	Size       image.Point
	TimeOffset time.Duration
	Tracks     []*VobSubTrack
}

// VobSubTrack lists the subpictures of one language in file order
type VobSubTrack struct {
	Entries  []VobSubEntry
	Index    int
	Language string
}

// VobSubEntry locates a subpicture in the sub file. Time already includes the index time
// offset and the track delays.
type VobSubEntry struct {
	FilePos int64
	Time    TimePoint
}

// Track returns the track with the given index
func (idx *VobSubIndex) Track(index int) (*VobSubTrack, bool) {
	for _, t := range idx.Tracks {
		if t.Index == index {
			return t, true
		}
	}
	return nil, false
}

// OpenVobSubIndex parses the idx file at path
func OpenVobSubIndex(path string, l *zap.Logger) (idx *VobSubIndex, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = fmt.Errorf("subtile: opening %s failed: %w", path, err)
		return
	}
	defer f.Close()
	return ParseVobSubIndex(f, l)
}

// ParseVobSubIndex parses an idx file. Unknown keys are ignored. When no palette is declared,
// DefaultVobSubPalette is used and a warning is logged.
func ParseVobSubIndex(r io.Reader, l *zap.Logger) (idx *VobSubIndex, err error) {
	if l == nil {
		l = zap.NewNop()
	}
	idx = &VobSubIndex{AlphaRatio: 1}

	var delay time.Duration
	var track *VobSubTrack
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		// Width, Height
		case strings.HasPrefix(line, idxSizePrefix):
			if idx.Size, err = parseIdxPair(line[len(idxSizePrefix):], "x"); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing size failed: %w", n, err)
				return
			}
		// Origin
		case strings.HasPrefix(line, idxOriginPrefix):
			if idx.Origin, err = parseIdxPair(line[len(idxOriginPrefix):], ","); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing origin failed: %w", n, err)
				return
			}
		// Alpha ratio
		case strings.HasPrefix(line, idxAlphaRatioPrefix):
			v := strings.TrimSuffix(strings.TrimSpace(line[len(idxAlphaRatioPrefix):]), "%")
			var i int
			if i, err = strconv.Atoi(v); err != nil || i < 0 || i > 100 {
				err = malformed("line %d: invalid alpha ratio %q", n, v)
				return
			}
			idx.AlphaRatio = float64(i) / 100
		// Time offset
		case strings.HasPrefix(line, idxTimeOffsetPrefix):
			if idx.TimeOffset, err = parseIdxDuration(line[len(idxTimeOffsetPrefix):]); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing time offset failed: %w", n, err)
				return
			}
		// Forced subs
		case strings.HasPrefix(line, idxForcedSubsPrefix):
			switch v := strings.TrimSpace(line[len(idxForcedSubsPrefix):]); v {
			case "ON":
				idx.ForcedSubs = true
			case "OFF":
				idx.ForcedSubs = false
			default:
				err = malformed("line %d: invalid forced subs value %q", n, v)
				return
			}
		// Palette
		case strings.HasPrefix(line, idxPalettePrefix):
			if idx.Palette, err = ParseVobSubPalette(line[len(idxPalettePrefix):]); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing palette failed: %w", n, err)
				return
			}
		// Language index
		case strings.HasPrefix(line, idxLangIdxPrefix):
			v := strings.TrimSpace(line[len(idxLangIdxPrefix):])
			if idx.LangIdx, err = strconv.Atoi(v); err != nil {
				err = malformed("line %d: invalid language index %q", n, v)
				return
			}
		// Track
		case strings.HasPrefix(line, idxIDPrefix):
			if track, err = parseIdxTrack(line[len(idxIDPrefix):]); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing track failed: %w", n, err)
				return
			}
			idx.Tracks = append(idx.Tracks, track)
			delay = 0
		// Delay applies to the following timestamps of the track
		case strings.HasPrefix(line, idxDelayPrefix):
			var d time.Duration
			if d, err = parseIdxDuration(line[len(idxDelayPrefix):]); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing delay failed: %w", n, err)
				return
			}
			delay += d
		// Timestamp
		case strings.HasPrefix(line, idxTimestampPrefix):
			var e VobSubEntry
			if e, err = parseIdxTimestamp(line[len(idxTimestampPrefix):]); err != nil {
				err = fmt.Errorf("subtile: line %d: parsing timestamp failed: %w", n, err)
				return
			}
			if track == nil {
				l.Warn("subtile: timestamp before any track id, assuming track 0", zap.Int("line", n))
				track = &VobSubTrack{}
				idx.Tracks = append(idx.Tracks, track)
			}
			e.Time = e.Time.Add(idx.TimeOffset + delay)
			track.Entries = append(track.Entries, e)
		}
	}
	if err = scanner.Err(); err != nil {
		err = fmt.Errorf("subtile: scanning idx failed: %w", err)
		return
	}

	// Palette
	if idx.Palette == nil {
		l.Warn("subtile: idx has no palette, using default palette")
		idx.Palette = DefaultVobSubPalette()
	}
	return
}

func parseIdxPair(v, sep string) (p image.Point, err error) {
	vs := strings.Split(v, sep)
	if len(vs) != 2 {
		err = malformed("expected 2 values separated by %q, got %q", sep, v)
		return
	}
	if p.X, err = strconv.Atoi(strings.TrimSpace(vs[0])); err != nil {
		err = malformed("invalid value %q", vs[0])
		return
	}
	if p.Y, err = strconv.Atoi(strings.TrimSpace(vs[1])); err != nil {
		err = malformed("invalid value %q", vs[1])
		return
	}
	return
}

// parseIdxTrack parses "en, index: 0"
func parseIdxTrack(v string) (t *VobSubTrack, err error) {
	vs := strings.SplitN(v, ",", 2)
	t = &VobSubTrack{Language: strings.TrimSpace(vs[0])}
	if len(vs) < 2 {
		return
	}
	i := strings.TrimSpace(vs[1])
	if !strings.HasPrefix(i, "index:") {
		err = malformed("unexpected track attribute %q", i)
		return
	}
	if t.Index, err = strconv.Atoi(strings.TrimSpace(i[len("index:"):])); err != nil {
		err = malformed("invalid track index %q", i)
		return
	}
	return
}

// parseIdxTimestamp parses "00:00:01:000, filepos: 000000000"
func parseIdxTimestamp(v string) (e VobSubEntry, err error) {
	vs := strings.SplitN(v, ",", 2)
	if len(vs) != 2 {
		err = malformed("expected timestamp and filepos, got %q", v)
		return
	}

	// Time
	var d time.Duration
	if d, err = parseIdxDuration(vs[0]); err != nil {
		return
	}
	e.Time = TimePointFromDuration(d)

	// Position
	p := strings.TrimSpace(vs[1])
	if !strings.HasPrefix(p, "filepos:") {
		err = malformed("expected filepos, got %q", p)
		return
	}
	p = strings.TrimPrefix(strings.TrimSpace(p[len("filepos:"):]), "0x")
	if e.FilePos, err = strconv.ParseInt(p, 16, 64); err != nil || e.FilePos < 0 {
		err = malformed("invalid filepos %q", p)
		return
	}
	return
}

// parseIdxDuration parses "[-]HH:MM:SS:mmm" or a plain number of milliseconds
func parseIdxDuration(v string) (d time.Duration, err error) {
	v = strings.TrimSpace(v)
	var neg bool
	switch {
	case strings.HasPrefix(v, "-"):
		neg, v = true, v[1:]
	case strings.HasPrefix(v, "+"):
		v = v[1:]
	}

	vs := strings.Split(v, ":")
	switch len(vs) {
	case 1:
		var ms int64
		if ms, err = strconv.ParseInt(vs[0], 10, 64); err != nil {
			err = malformed("invalid duration %q", v)
			return
		}
		d = time.Duration(ms) * time.Millisecond
	case 4:
		units := [4]time.Duration{time.Hour, time.Minute, time.Second, time.Millisecond}
		for i, s := range vs {
			var n int
			if n, err = strconv.Atoi(s); err != nil || n < 0 {
				err = malformed("invalid duration %q", v)
				return
			}
			d += time.Duration(n) * units[i]
		}
	default:
		err = malformed("invalid duration %q", v)
		return
	}
	if neg {
		d = -d
	}
	return
}
