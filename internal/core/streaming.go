package core

// streaming.go cleans CSV input on the fly before encoding/csv sees it:
//
//   - bomReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//     and other Windows tools, which would otherwise end up in the first
//     column name.
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?', so files saved
//     in a legacy code page still parse instead of failing halfway.
//
// Use cleanCSVReader to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips the UTF-8 BOM if present.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			b.r.Discard(len(utf8BOM))
		}
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 sequences with '?' while reading.
// A multi-byte sequence split across two reads is carried over in pending,
// so callers must read with buffers of at least utf8.UTFMax bytes
// (bufio-backed readers such as encoding/csv always do).
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// When atEOF is false a trailing incomplete rune is held back in pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				return write
			}
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// cleanCSVReader strips a BOM first, then sanitizes the remaining bytes.
func cleanCSVReader(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMReader(r))
}
