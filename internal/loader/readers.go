package loader

// readers.go wraps raw CSV input before it reaches encoding/csv:
//
//   - the UTF-8 byte order mark written by spreadsheet exports is dropped
//   - invalid UTF-8 bytes become '?' so a stray Latin-1 cell cannot abort a run
//   - input beyond the configured size fails with ErrFileTooLarge

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned once more than the allowed bytes were read.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns r positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' while streaming.
// A multi-byte rune split across reads is held back until the rest arrives.
type utf8Sanitizer struct {
	r     io.Reader
	chunk []byte
	raw   []byte // undecoded tail of the last read
	out   []byte // sanitized bytes not yet returned
	err   error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, chunk: make([]byte, 4096)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 && s.err == nil {
		s.fill()
	}
	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		return n, nil
	}
	return 0, s.err
}

func (s *utf8Sanitizer) fill() {
	n, err := s.r.Read(s.chunk)
	s.raw = append(s.raw, s.chunk[:n]...)
	s.err = err

	i := 0
	for i < len(s.raw) {
		if err == nil && !utf8.FullRune(s.raw[i:]) {
			break
		}
		r, size := utf8.DecodeRune(s.raw[i:])
		if r == utf8.RuneError && size == 1 {
			s.out = append(s.out, '?')
		} else {
			s.out = append(s.out, s.raw[i:i+size]...)
		}
		i += size
	}
	s.raw = append(s.raw[:0], s.raw[i:]...)
}

// limitReader fails with ErrFileTooLarge after max bytes. A non-positive
// max disables the limit.
type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, l.max)
	}
	return n, err
}

// wrapInput applies size limiting, BOM stripping and UTF-8 sanitizing,
// in that order.
func wrapInput(r io.Reader, maxBytes int64) io.Reader {
	return newUTF8Sanitizer(skipBOM(&limitReader{r: r, max: maxBytes}))
}
