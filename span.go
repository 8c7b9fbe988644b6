// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"strings"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) into some buffer. It is the
// universal "where did this value come from" handle: every parsed record
// carries a Span covering its full extent, and composite values that are
// bulk or opaque (a PNG IDAT payload, a ZIP file comment) are stored as a
// Span rather than copied, so the result tree can be re-read on demand
// without retaining a second copy of the bytes. GIF sub-block streams are
// the exception: their blocks are concatenated into a new byte slice.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsEmpty reports whether the span covers zero bytes.
func (s Span) IsEmpty() bool {
	return s.Start == s.End
}

// Bytes returns the slice of buf covered by s. The caller must not mutate
// the result; it aliases buf.
func (s Span) Bytes(buf []byte) []byte {
	return buf[s.Start:s.End]
}

// String decodes the span as UTF-8, replacing invalid sequences with the
// Unicode replacement character. Callers that require strict decoding
// should compare utf8.ValidString themselves.
func (s Span) String(buf []byte) string {
	b := s.Bytes(buf)
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}
