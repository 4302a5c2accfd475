package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	"github.com/seijikun/subtile"
	"go.uber.org/zap"
)

// listEvents prints one row per event and dumps images when asked to
func (c *commandContext) listEvents(w io.Writer, events iter.Seq2[*subtile.Event, error]) (err error) {
	var rows [][]string
	n := 0
	for e, errNext := range events {
		if errNext != nil {
			err = fmt.Errorf("event #%d: %w", n, errNext)
			break
		}

		// Dump
		var dumped string
		if e.Image != nil && c.cfg.Dump.Dir != "" {
			if dumped, err = c.dumpEvent(n, e); err != nil {
				return
			}
		}

		rows = append(rows, eventRow(n, e, dumped))
		n++
	}

	fmt.Fprintln(w, renderTable(w,
		[]string{"#", "Start", "End", "Area", "Size", "Forced", "Colors", "Dump"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "%d events\n", n)
	return
}

func eventRow(n int, e *subtile.Event, dumped string) []string {
	end := "-"
	if t, ok := e.Span.End(); ok {
		end = t.SRT()
	}
	size := "-"
	if e.Image != nil {
		size = fmt.Sprintf("%dx%d", e.Image.Width, e.Image.Height)
	}
	forced := ""
	if e.Forced {
		forced = "yes"
	}
	return []string{
		strconv.Itoa(n),
		e.Span.Start().SRT(),
		end,
		e.Area.String(),
		size,
		forced,
		strconv.Itoa(e.Palette.Len()),
		dumped,
	}
}

func (c *commandContext) dumpEvent(n int, e *subtile.Event) (path string, err error) {
	var img image.Image
	if c.cfg.Dump.Mode == dumpModeOCR {
		img = subtile.ToOCR(e.Image, e.Colors(), c.cfg.OCR.options())
	} else {
		img = subtile.ToNRGBA(e.Image, e.Colors())
	}

	path = filepath.Join(c.cfg.Dump.Dir, fmt.Sprintf("%05d_%dms.png", n, e.Span.Start().Millis()))
	var f *os.File
	if f, err = os.Create(path); err != nil {
		err = fmt.Errorf("creating %s failed: %w", path, err)
		return
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		err = fmt.Errorf("encoding %s failed: %w", path, err)
		return
	}
	c.logger.Debug("dumped event", zap.Int("event", n), zap.String("path", path))
	return
}
