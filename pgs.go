package subtile

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"iter"
	"os"

	"github.com/asticode/go-astikit"
	"go.uber.org/zap"
)

// PGSParser decodes the display sets of a PGS stream (.sup) one at a time
// https://patents.google.com/patent/US20090185789/
// http://blog.thescorpius.com/index.php/2017/07/15/presentation-graphic-stream-sup-files-bluray-subtitle-format/
type PGSParser struct {
	c      io.Closer
	ctx    context.Context
	done   bool
	hdr    [segmentHeaderLength]byte
	l      *zap.Logger
	sr     *streamReader
	start  int64
	parsed int

	// Display set state
	builder     *objectBuilder
	composition *PresentationComposition
	compPTS     ClockReference
	deferredErr error
	objects     map[uint16]*pgsObject
	palettes    map[uint8]*Palette
	pending     *Event

	optMaxPixels int
	optPolicy    DecodePolicy
}

// PGSParserOptLogger returns the option to set the logger
func PGSParserOptLogger(l *zap.Logger) func(*PGSParser) {
	return func(p *PGSParser) {
		if l != nil {
			p.l = l
		}
	}
}

// PGSParserOptMaxPixels returns the option to bound the size of decoded objects
func PGSParserOptMaxPixels(n int) func(*PGSParser) {
	return func(p *PGSParser) {
		p.optMaxPixels = n
	}
}

// PGSParserOptPolicy returns the option to set the decode policy
func PGSParserOptPolicy(dp DecodePolicy) func(*PGSParser) {
	return func(p *PGSParser) {
		if dp != nil {
			p.optPolicy = dp
		}
	}
}

// NewPGSParser creates a parser reading segments from r's current offset
func NewPGSParser(ctx context.Context, r io.ReadSeeker, opts ...func(*PGSParser)) (p *PGSParser, err error) {
	// Init
	p = &PGSParser{
		ctx:          ctx,
		l:            zap.NewNop(),
		objects:      make(map[uint16]*pgsObject),
		optMaxPixels: DefaultMaxPixels,
		optPolicy:    DecodeFull,
		palettes:     make(map[uint8]*Palette),
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	// Create reader
	if p.sr, err = newStreamReader(r); err != nil {
		err = fmt.Errorf("subtile: creating stream reader failed: %w", err)
		return
	}
	p.start = p.sr.offset
	return
}

// OpenPGS opens a .sup file. The parser must be closed.
func OpenPGS(ctx context.Context, path string, opts ...func(*PGSParser)) (p *PGSParser, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = fmt.Errorf("subtile: opening %s failed: %w", path, err)
		return
	}
	if p, err = NewPGSParser(ctx, f, opts...); err != nil {
		f.Close()
		return
	}
	p.c = f
	return
}

// Close closes the file opened by OpenPGS
func (p *PGSParser) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

// Next returns the next event or ErrNoMoreSubtitles. An event is returned once the following
// composition gives its end, or with an open end when the stream ends. After an error, every
// call returns ErrNoMoreSubtitles.
func (p *PGSParser) Next() (e *Event, err error) {
	if p.done {
		return nil, ErrNoMoreSubtitles
	}

	select {
	case <-p.ctx.Done():
		err = p.ctx.Err()
	default:
		e, err = p.next()
	}

	if err != nil {
		p.done = true
		e = nil
	}
	return
}

// Events returns the remaining events as a sequence that stops after the first error
func (p *PGSParser) Events() iter.Seq2[*Event, error] {
	return eventSeq(p.Next)
}

// Rewind goes back to where the parser started and forgets every display set
func (p *PGSParser) Rewind() (err error) {
	if err = p.sr.seekTo(p.start); err != nil {
		err = fmt.Errorf("subtile: rewinding failed: %w", err)
		return
	}
	p.resetEpoch()
	p.builder = nil
	p.composition = nil
	p.deferredErr = nil
	p.done = false
	p.parsed = 0
	p.pending = nil
	return
}

// SizeHint returns the number of events left. It is only known when decoding timing only,
// through a scan of the remaining segment headers that leaves the cursor untouched.
func (p *PGSParser) SizeHint() (n int, ok bool) {
	if p.optPolicy.ReadsObjectData() || p.done {
		return 0, p.done
	}

	// Restore cursor
	offset := p.sr.offset
	defer func() {
		if err := p.sr.seekTo(offset); err != nil {
			p.l.Warn("subtile: restoring cursor failed", zap.Error(err))
			n, ok = 0, false
		}
	}()

	if p.pending != nil {
		n++
	}
	// A composition read but not ended yet is counted once its end segment comes
	if p.composition != nil && len(p.composition.CompositionObjects) > 0 {
		n++
	}
	var (
		hdr   [segmentHeaderLength]byte
		count [1]byte
	)
	for p.sr.remaining() > 0 {
		if err := p.sr.fill(hdr[:]); err != nil {
			return 0, false
		}
		h, err := parseSegmentHeader(astikit.NewBytesIterator(hdr[:]))
		if err != nil {
			return 0, false
		}
		skip := int64(h.Size)
		if h.Type == SegmentTypePCS && h.Size >= pcsHeaderLength {
			// Object count is the last byte of the PCS header
			if err = p.sr.skip(pcsHeaderLength - 1); err != nil {
				return 0, false
			}
			if err = p.sr.fill(count[:]); err != nil {
				return 0, false
			}
			if count[0] > 0 {
				n++
			}
			skip -= pcsHeaderLength
		}
		if err = p.sr.skip(skip); err != nil {
			return 0, false
		}
	}
	return n, true
}

func (p *PGSParser) next() (e *Event, err error) {
	// An error met after an event was ready is returned on the following call
	if p.deferredErr != nil {
		err = p.deferredErr
		return
	}

	for {
		// Segment header
		var h SegmentHeader
		if h, err = p.nextSegmentHeader(); err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrNoMoreSubtitles
				if p.builder != nil {
					p.l.Warn("subtile: stream ends with an incomplete object", zap.Uint16("id", p.builder.header.id))
					p.builder.fl.clear()
					p.builder = nil
				}
			} else {
				err = fmt.Errorf("subtile: reading segment header at offset %d failed: %w", p.sr.offset, err)
			}
			return p.flushPending(err)
		}

		// Segment body
		if e, err = p.handleSegment(h); err != nil {
			err = fmt.Errorf("subtile: handling %s segment #%d failed: %w", h.Type, p.parsed, err)
			return p.flushPending(err)
		}
		p.parsed++
		if e != nil {
			return
		}
	}
}

// flushPending returns the pending event with an open end and defers err
func (p *PGSParser) flushPending(err error) (*Event, error) {
	if p.pending == nil {
		return nil, err
	}
	e := p.pending
	p.pending = nil
	p.deferredErr = err
	return e, nil
}

func (p *PGSParser) nextSegmentHeader() (h SegmentHeader, err error) {
	if err = p.sr.fill(p.hdr[:]); err != nil {
		return
	}
	return parseSegmentHeader(astikit.NewBytesIterator(p.hdr[:]))
}

// readBody reads a whole segment body into a pooled payload the caller must put back
func (p *PGSParser) readBody(size int) (tp *tempPayload, err error) {
	if int64(size) > p.sr.remaining() {
		err = fmt.Errorf("%w: segment body of %d bytes with %d bytes left", ErrUnexpectedEOF, size, p.sr.remaining())
		return
	}
	tp = poolOfTempPayload.get(size)
	if err = p.sr.fill(tp.s); err != nil {
		poolOfTempPayload.put(tp)
		err = eofError(err)
		return
	}
	return
}

func (p *PGSParser) handleSegment(h SegmentHeader) (e *Event, err error) {
	size := int(h.Size)
	if int64(size) > p.sr.remaining() {
		err = fmt.Errorf("%w: %s body of %d bytes with %d bytes left", ErrUnexpectedEOF, h.Type, size, p.sr.remaining())
		return
	}

	switch h.Type {
	case SegmentTypePCS:
		var tp *tempPayload
		if tp, err = p.readBody(size); err != nil {
			return
		}
		defer poolOfTempPayload.put(tp)
		var c *PresentationComposition
		if c, err = parsePresentationComposition(tp.s); err != nil {
			return
		}
		e = p.handleComposition(h, c)
	case SegmentTypeWDS:
		var tp *tempPayload
		if tp, err = p.readBody(size); err != nil {
			return
		}
		defer poolOfTempPayload.put(tp)
		// Windows only bound where objects may be drawn, compositions place them already
		if _, err = parseWindowDefinition(tp.s); err != nil {
			return
		}
	case SegmentTypePDS:
		var tp *tempPayload
		if tp, err = p.readBody(size); err != nil {
			return
		}
		defer poolOfTempPayload.put(tp)
		var d *PaletteDefinition
		if d, err = parsePaletteDefinition(tp.s); err != nil {
			return
		}
		p.handlePaletteDefinition(d)
	case SegmentTypeODS:
		var o *pgsObject
		if o, err = p.readObjectDefinition(size); err != nil {
			return
		}
		if o != nil {
			p.objects[o.id] = o
		}
	case SegmentTypeEND:
		if err = p.sr.skip(int64(size)); err != nil {
			return
		}
		err = p.handleEnd(h)
	default:
		p.l.Debug("subtile: skipping segment",
			zap.Error(fmt.Errorf("%w: type %s", ErrUnsupportedSegment, h.Type)),
			zap.Int("size", size))
		err = p.sr.skip(int64(size))
	}
	return
}

// handleComposition starts a display set and returns the pending event it ends
func (p *PGSParser) handleComposition(h SegmentHeader, c *PresentationComposition) (e *Event) {
	if p.pending != nil {
		e = p.pending
		e.Span = e.Span.Closed(h.PTS.TimePoint())
		p.pending = nil
	}
	if p.composition != nil {
		p.l.Warn("subtile: display set without end segment", zap.Uint16("composition", p.composition.CompositionNumber))
	}
	if c.State == CompositionStateEpochStart {
		p.resetEpoch()
	}
	p.composition = c
	p.compPTS = h.PTS
	return
}

// handlePaletteDefinition updates a palette of the epoch, leaving events already built
// with the previous version untouched
func (p *PGSParser) handlePaletteDefinition(d *PaletteDefinition) {
	var base *Palette
	if prev, ok := p.palettes[d.ID]; ok {
		base = prev
	}
	p.palettes[d.ID] = base.Update(d.Entries)
}

// handleEnd closes the display set. One that shows objects becomes the pending event.
func (p *PGSParser) handleEnd(h SegmentHeader) (err error) {
	if p.builder != nil {
		err = fmt.Errorf("%w: display set ends while object %d is incomplete", ErrInconsistentObjectSequence, p.builder.header.id)
		return
	}
	c := p.composition
	p.composition = nil
	if c == nil {
		p.l.Warn("subtile: end segment without composition", zap.Duration("pts", h.PTS.Duration()))
		return
	}
	if len(c.CompositionObjects) == 0 {
		return
	}

	// Palette
	pal, ok := p.palettes[c.PaletteID]
	if !ok {
		p.l.Warn("subtile: composition references an undefined palette", zap.Uint8("palette", c.PaletteID))
	}

	// Image
	var area image.Rectangle
	var img *IndexedImage
	if area, img, err = p.compose(c, pal); err != nil {
		return
	}

	p.pending = &Event{
		Area:    area,
		Image:   img,
		Palette: pal,
		Span:    OpenTimeSpan(p.compPTS.TimePoint()),
	}
	return
}

// compose draws the composition objects into one image covering all of them
func (p *PGSParser) compose(c *PresentationComposition, pal *Palette) (area image.Rectangle, img *IndexedImage, err error) {
	type placement struct {
		dst image.Rectangle
		o   *pgsObject
		src image.Point
	}
	ps := make([]placement, 0, len(c.CompositionObjects))
	for _, co := range c.CompositionObjects {
		o, ok := p.objects[co.ObjectID]
		if !ok {
			err = fmt.Errorf("%w: composition references undefined object %d", ErrInconsistentObjectSequence, co.ObjectID)
			return
		}
		src := image.Rect(0, 0, o.width, o.height)
		if co.Crop != nil {
			src = co.Crop.Intersect(src)
		}
		dst := src.Sub(src.Min).Add(image.Pt(int(co.X), int(co.Y)))
		area = area.Union(dst)
		ps = append(ps, placement{dst: dst, o: o, src: src.Min})
	}

	// Single object shown whole
	if len(ps) == 1 && ps[0].src == (image.Point{}) && ps[0].dst.Dx() == ps[0].o.width && ps[0].dst.Dy() == ps[0].o.height {
		img = ps[0].o.image
		return
	}

	// Timing only
	for _, pl := range ps {
		if pl.o.image == nil {
			return
		}
	}

	// Compose
	if area.Dx()*area.Dy() > p.optMaxPixels {
		err = malformed("composition of %dx%d exceeds %d pixels", area.Dx(), area.Dy(), p.optMaxPixels)
		return
	}
	img = &IndexedImage{Width: area.Dx(), Height: area.Dy(), Pix: make([]uint8, area.Dx()*area.Dy())}
	if t := pal.TransparentIndex(); t != 0 {
		for idx := range img.Pix {
			img.Pix[idx] = t
		}
	}
	for _, pl := range ps {
		for y := 0; y < pl.dst.Dy(); y++ {
			s := (pl.src.Y+y)*pl.o.width + pl.src.X
			d := (pl.dst.Min.Y-area.Min.Y+y)*img.Width + pl.dst.Min.X - area.Min.X
			copy(img.Pix[d:d+pl.dst.Dx()], pl.o.image.Pix[s:s+pl.dst.Dx()])
		}
	}
	return
}

func (p *PGSParser) resetEpoch() {
	p.objects = make(map[uint16]*pgsObject)
	p.palettes = make(map[uint8]*Palette)
}
