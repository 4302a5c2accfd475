package subtile

import (
	"errors"
	"fmt"
	"io"
)

// Errors
var (
	ErrUnexpectedEOF              = errors.New("subtile: unexpected end of data")
	ErrMalformedHeader            = errors.New("subtile: malformed header")
	ErrTruncatedImage             = errors.New("subtile: truncated image")
	ErrInvalidPalette             = errors.New("subtile: invalid palette")
	ErrUnsupportedSegment         = errors.New("subtile: unsupported segment")
	ErrInconsistentObjectSequence = errors.New("subtile: inconsistent object sequence")
	ErrNoMoreSubtitles            = errors.New("subtile: no more subtitles")
)

// eofError converts a short read into ErrUnexpectedEOF while keeping the cause in the chain.
// Any other error is returned untouched so that I/O failures keep their identity.
func eofError(err error) error {
	if errors.Is(err, ErrUnexpectedEOF) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrUnexpectedEOF, err)
	}
	return err
}

// malformed wraps an in-memory parsing error as ErrMalformedHeader: the bytes were there but
// the declared sizes did not allow the field to be read.
func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedHeader, fmt.Sprintf(format, args...))
}
