package subtile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// VobSubParser decodes the subpictures of a sub file one at a time. When created from an
// index it yields one event per entry of the selected track, otherwise it scans the whole
// program stream and times events with the PES timestamps.
type VobSubParser struct {
	c       io.Closer
	ctx     context.Context
	done    bool
	entries []VobSubEntry
	indexed bool
	l       *zap.Logger
	palette *Palette
	pos     int
	ps      *psReader
	sr      *streamReader
	start   int64

	optMaxPixels int
	optPolicy    DecodePolicy
	optTrack     int
}

// VobSubParserOptLogger returns the option to set the logger
func VobSubParserOptLogger(l *zap.Logger) func(*VobSubParser) {
	return func(p *VobSubParser) {
		if l != nil {
			p.l = l
		}
	}
}

// VobSubParserOptMaxPixels returns the option to bound the size of decoded images
func VobSubParserOptMaxPixels(n int) func(*VobSubParser) {
	return func(p *VobSubParser) {
		p.optMaxPixels = n
	}
}

// VobSubParserOptPolicy returns the option to set the decode policy
func VobSubParserOptPolicy(dp DecodePolicy) func(*VobSubParser) {
	return func(p *VobSubParser) {
		if dp != nil {
			p.optPolicy = dp
		}
	}
}

// VobSubParserOptTrack returns the option to select a track. By default the idx langidx
// track is used, and the first track met when there is no index.
func VobSubParserOptTrack(track int) func(*VobSubParser) {
	return func(p *VobSubParser) {
		p.optTrack = track
	}
}

func newVobSubParser(ctx context.Context, sub io.ReadSeeker, opts ...func(*VobSubParser)) (p *VobSubParser, err error) {
	// Init
	p = &VobSubParser{
		ctx:          ctx,
		l:            zap.NewNop(),
		optMaxPixels: DefaultMaxPixels,
		optPolicy:    DecodeFull,
		optTrack:     -1,
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	// Create readers
	if p.sr, err = newStreamReader(sub); err != nil {
		err = fmt.Errorf("subtile: creating stream reader failed: %w", err)
		return
	}
	p.start = p.sr.offset
	p.ps = newPSReader(p.sr, p.l)
	return
}

// NewVobSubParser creates a parser yielding the entries of idx, read from sub
func NewVobSubParser(ctx context.Context, idx *VobSubIndex, sub io.ReadSeeker, opts ...func(*VobSubParser)) (p *VobSubParser, err error) {
	if p, err = newVobSubParser(ctx, sub, opts...); err != nil {
		return
	}
	if p.optTrack < 0 {
		p.optTrack = idx.LangIdx
	}
	if p.optTrack >= subpictureSubstreamBase {
		err = malformed("invalid track %d", p.optTrack)
		return
	}

	// Select track
	p.indexed = true
	t, ok := idx.Track(p.optTrack)
	if !ok {
		p.l.Warn("subtile: track not found in idx", zap.Int("track", p.optTrack), zap.Int("tracks", len(idx.Tracks)))
	} else {
		p.entries = t.Entries
	}
	p.palette = idx.Palette
	return
}

// NewVobSubStreamParser creates a parser that scans sub without an index. A nil palette is
// replaced by DefaultVobSubPalette.
func NewVobSubStreamParser(ctx context.Context, sub io.ReadSeeker, palette *Palette, opts ...func(*VobSubParser)) (p *VobSubParser, err error) {
	if p, err = newVobSubParser(ctx, sub, opts...); err != nil {
		return
	}
	if p.palette = palette; p.palette == nil {
		p.palette = DefaultVobSubPalette()
	}
	return
}

// OpenVobSub opens an idx file and the sub file next to it. The parser must be closed.
func OpenVobSub(ctx context.Context, idxPath string, opts ...func(*VobSubParser)) (p *VobSubParser, err error) {
	// Parse index with the logger the parser will use
	var tmp VobSubParser
	tmp.l = zap.NewNop()
	for _, opt := range opts {
		opt(&tmp)
	}
	var idx *VobSubIndex
	if idx, err = OpenVobSubIndex(idxPath, tmp.l); err != nil {
		err = fmt.Errorf("subtile: parsing idx failed: %w", err)
		return
	}

	// Open sub
	subPath := strings.TrimSuffix(idxPath, filepath.Ext(idxPath)) + ".sub"
	var f *os.File
	if f, err = os.Open(subPath); err != nil {
		err = fmt.Errorf("subtile: opening %s failed: %w", subPath, err)
		return
	}

	if p, err = NewVobSubParser(ctx, idx, f, opts...); err != nil {
		f.Close()
		return
	}
	p.c = f
	return
}

// Close closes the file opened by OpenVobSub
func (p *VobSubParser) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

// Palette returns the palette shared by the events
func (p *VobSubParser) Palette() *Palette {
	return p.palette
}

// SizeHint returns the number of events left when parsing from an index
func (p *VobSubParser) SizeHint() (int, bool) {
	if !p.indexed {
		return 0, false
	}
	return len(p.entries) - p.pos, true
}

// Next returns the next event or ErrNoMoreSubtitles. After an error, every call returns
// ErrNoMoreSubtitles.
func (p *VobSubParser) Next() (e *Event, err error) {
	if p.done {
		return nil, ErrNoMoreSubtitles
	}

	select {
	case <-p.ctx.Done():
		err = p.ctx.Err()
	default:
		if p.indexed {
			e, err = p.nextIndexed()
		} else {
			e, err = p.nextStreamed()
		}
	}

	if err != nil {
		p.done = true
		e = nil
	}
	return
}

// Events returns the remaining events as a sequence that stops after the first error
func (p *VobSubParser) Events() iter.Seq2[*Event, error] {
	return eventSeq(p.Next)
}

// Rewind goes back to the first event
func (p *VobSubParser) Rewind() (err error) {
	p.done = false
	p.pos = 0
	if err = p.sr.seekTo(p.start); err != nil {
		err = fmt.Errorf("subtile: rewinding failed: %w", err)
		return
	}
	return
}

func (p *VobSubParser) nextIndexed() (e *Event, err error) {
	if p.pos >= len(p.entries) {
		err = ErrNoMoreSubtitles
		return
	}
	entry := p.entries[p.pos]
	p.pos++

	// Seek
	if err = p.sr.seekTo(entry.FilePos); err != nil {
		err = fmt.Errorf("subtile: seeking to subpicture %d failed: %w", p.pos-1, err)
		return
	}

	// Read
	var tp *tempPayload
	if tp, _, err = p.readSubpicture(); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: no subpicture at offset 0x%x", ErrUnexpectedEOF, entry.FilePos)
		}
		err = fmt.Errorf("subtile: reading subpicture %d failed: %w", p.pos-1, err)
		return
	}
	defer poolOfTempPayload.put(tp)

	if e, err = p.newEvent(tp.s, entry.Time); err != nil {
		err = fmt.Errorf("subtile: decoding subpicture %d failed: %w", p.pos-1, err)
		return
	}
	return
}

func (p *VobSubParser) nextStreamed() (e *Event, err error) {
	// Read
	var tp *tempPayload
	var first *pesPacket
	if tp, first, err = p.readSubpicture(); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrNoMoreSubtitles
			return
		}
		err = fmt.Errorf("subtile: reading subpicture failed: %w", err)
		return
	}
	defer poolOfTempPayload.put(tp)

	// Time
	pts, ok := first.pts()
	if !ok {
		err = malformed("subpicture at offset %d has no PTS", p.sr.offset)
		return
	}

	if e, err = p.newEvent(tp.s, pts.TimePoint()); err != nil {
		err = fmt.Errorf("subtile: decoding subpicture failed: %w", err)
		return
	}
	return
}

// readSubpicture reassembles a subpicture packet spread over PES packets of the selected
// substream. The first PES packet is returned for its header, its payload now belongs to tp.
func (p *VobSubParser) readSubpicture() (tp *tempPayload, first *pesPacket, err error) {
	fl := newFragmentList()
	defer fl.clear()

	wanted := -1
	for wanted < 0 || fl.size() < wanted {
		// Next packet
		var pkt *pesPacket
		if pkt, err = p.ps.nextSubpicturePES(); err != nil {
			if errors.Is(err, io.EOF) && wanted >= 0 {
				err = fmt.Errorf("%w: subpicture ended after %d/%d bytes", ErrUnexpectedEOF, fl.size(), wanted)
			}
			return
		}

		// Filter substream
		track := int(pkt.substreamID - subpictureSubstreamBase)
		if p.optTrack < 0 {
			p.optTrack = track
		}
		if track != p.optTrack {
			p.l.Debug("subtile: skipping subpicture of another track", zap.Int("track", track), zap.Int("wanted", p.optTrack))
			pkt.close()
			continue
		}

		// First packet declares the size
		if wanted < 0 {
			if len(pkt.data) < 2 {
				pkt.close()
				err = malformed("subpicture packet of %d bytes has no size", len(pkt.data))
				return
			}
			wanted = int(pkt.data[0])<<8 | int(pkt.data[1])
			first = pkt
		}

		// Take ownership of the payload
		fl.pushBack(&fragment{data: pkt.data, payload: pkt.internalData, size: len(pkt.data)})
		pkt.internalData = nil
	}

	// Assemble
	if fl.size() > wanted {
		p.l.Warn("subtile: subpicture has more data than declared", zap.Int("size", fl.size()), zap.Int("declared", wanted))
	}
	tp = fl.assemble()
	tp.s = tp.s[:wanted]
	return
}

func (p *VobSubParser) newEvent(data []byte, base TimePoint) (e *Event, err error) {
	// Parse
	var sp *subpicture
	if sp, err = parseSubpicture(data, p.l); err != nil {
		return
	}

	// Create event
	colors := sp.colors
	e = &Event{
		Area:    sp.area,
		Forced:  sp.forced,
		Palette: p.palette,
		Span:    OpenTimeSpan(base + sp.startDelay),
		VobSub:  &colors,
	}
	if sp.hasStop {
		e.Span = e.Span.Closed(base + sp.stopDelay)
	}

	// Decode
	if e.Image, err = p.optPolicy.DecodeObject(&RLEObject{
		Fields:    sp.fields[:],
		Height:    sp.area.Dy(),
		Width:     sp.area.Dx(),
		codec:     vobSubCodec{},
		maxPixels: p.optMaxPixels,
	}); err != nil {
		err = fmt.Errorf("subtile: decoding image failed: %w", err)
		return
	}
	return
}
