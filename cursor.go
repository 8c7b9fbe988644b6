// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"encoding/binary"
)

// ByteCursor is a sequential reader of fixed-width integers, null-terminated
// strings, and spans over a backing byte slice, with a fixed endianness
// chosen at construction. It never retains ownership of buf beyond a single
// parse call. Reads return values or Spans (indices); BytesForSpan returns a
// view that aliases buf.
//
// Methods that would read past the end of buf call stop() with an error
// wrapping ErrEndOfInput rather than returning one directly — see errors.go
// and the recoverParseError wrapper installed by every exported Parse*
// function.
type ByteCursor struct {
	buffer    []byte
	index     int
	byteOrder binary.ByteOrder
}

// newByteCursor constructs a cursor over buf with the given endianness.
// TIFF-aware callers that need both orderings over the same buffer should
// construct two cursors.
func newByteCursor(buf []byte, littleEndian bool) *ByteCursor {
	var order binary.ByteOrder = binary.BigEndian
	if littleEndian {
		order = binary.LittleEndian
	}
	return &ByteCursor{buffer: buf, byteOrder: order}
}

func (c *ByteCursor) len() int {
	return len(c.buffer)
}

// Pos returns the current index.
func (c *ByteCursor) Pos() int {
	return c.index
}

// Seek moves the cursor to an absolute index. It does not bounds-check
// against len(buffer); a subsequent read will fail if the new position is
// out of range. This mirrors EXIF's need to follow a pointer to an
// out-of-line value and then return.
func (c *ByteCursor) Seek(pos int) {
	c.index = pos
}

// AtEnd reports whether the cursor sits exactly at the end of the buffer.
func (c *ByteCursor) AtEnd() bool {
	return c.index == c.len()
}

// Remaining returns the number of unread bytes.
func (c *ByteCursor) Remaining() int {
	return c.len() - c.index
}

func (c *ByteCursor) requireBytes(n int) {
	if n < 0 || c.index+n > c.len() {
		stop(newInvalidFormatError(ErrEndOfInput))
	}
}

// Next returns the byte at index and advances by 1.
func (c *ByteCursor) Next() byte {
	c.requireBytes(1)
	b := c.buffer[c.index]
	c.index++
	return b
}

// Peek returns the byte at index without advancing, or (0, false) if the
// cursor is at or past the end of the buffer.
func (c *ByteCursor) Peek() (byte, bool) {
	if c.index >= c.len() {
		return 0, false
	}
	return c.buffer[c.index], true
}

// ReadU8 reads one byte and advances by 1.
func (c *ByteCursor) ReadU8() uint8 {
	return c.Next()
}

// ReadU16 reads 2 bytes respecting the cursor's endianness.
func (c *ByteCursor) ReadU16() uint16 {
	c.requireBytes(2)
	v := c.byteOrder.Uint16(c.buffer[c.index : c.index+2])
	c.index += 2
	return v
}

// ReadU32 reads 4 bytes respecting the cursor's endianness.
func (c *ByteCursor) ReadU32() uint32 {
	c.requireBytes(4)
	v := c.byteOrder.Uint32(c.buffer[c.index : c.index+4])
	c.index += 4
	return v
}

// ReadI32 reads 4 bytes respecting the cursor's endianness, as a signed value.
func (c *ByteCursor) ReadI32() int32 {
	return int32(c.ReadU32())
}

// ExpectByte reads one byte and fails with *UnexpectedByteError if it does
// not equal b.
func (c *ByteCursor) ExpectByte(b byte) {
	got := c.Next()
	if got != b {
		stop(newInvalidFormatError(&UnexpectedByteError{Expected: b, Found: got}))
	}
}

// ExpectBytes reads len(bs) bytes and fails with *UnexpectedByteError at the
// first byte that does not match.
func (c *ByteCursor) ExpectBytes(bs []byte) {
	for _, b := range bs {
		c.ExpectByte(b)
	}
}

// ConsumeIfEquals reports whether the next len(bs) bytes equal bs. If they
// do, the cursor advances past them; otherwise the cursor is left
// unchanged. It never advances past the end of the buffer while peeking.
func (c *ByteCursor) ConsumeIfEquals(bs []byte) bool {
	if c.index+len(bs) > c.len() {
		return false
	}
	for i, b := range bs {
		if c.buffer[c.index+i] != b {
			return false
		}
	}
	c.index += len(bs)
	return true
}

// GetSpan returns a Span of the next length bytes and advances the cursor
// to the end of that span.
func (c *ByteCursor) GetSpan(length int) Span {
	c.requireBytes(length)
	s := Span{Start: c.index, End: c.index + length}
	c.index = s.End
	return s
}

// GetSpanTo returns a Span from the current index through end (exclusive)
// and sets the cursor's index to end.
func (c *ByteCursor) GetSpanTo(end int) Span {
	if end < c.index || end > c.len() {
		stop(newInvalidFormatError(ErrEndOfInput))
	}
	s := Span{Start: c.index, End: end}
	c.index = end
	return s
}

// ReadNullTerminatedString returns a Span from the current index through and
// including the terminating 0x00 byte, and advances the cursor past it.
func (c *ByteCursor) ReadNullTerminatedString() Span {
	start := c.index
	for {
		if c.index >= c.len() {
			stop(newInvalidFormatError(ErrEndOfInput))
		}
		b := c.buffer[c.index]
		c.index++
		if b == 0 {
			return Span{Start: start, End: c.index}
		}
	}
}

// BytesForSpan returns the slice-view of s; it does not mutate the cursor.
func (c *ByteCursor) BytesForSpan(s Span) []byte {
	return s.Bytes(c.buffer)
}

// StringForSpan decodes s as UTF-8, tolerating invalid byte sequences by
// substituting the replacement character. It does not mutate the cursor.
func (c *ByteCursor) StringForSpan(s Span) string {
	return s.String(c.buffer)
}
