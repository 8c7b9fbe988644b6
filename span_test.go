// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSpanLenAndEmpty(t *testing.T) {
	c := qt.New(t)

	s := Span{Start: 2, End: 5}
	c.Assert(s.Len(), qt.Equals, 3)
	c.Assert(s.IsEmpty(), qt.IsFalse)

	empty := Span{Start: 4, End: 4}
	c.Assert(empty.Len(), qt.Equals, 0)
	c.Assert(empty.IsEmpty(), qt.IsTrue)
}

func TestSpanBytesAndString(t *testing.T) {
	c := qt.New(t)

	buf := []byte("hello world")
	s := Span{Start: 0, End: 5}
	c.Assert(s.Bytes(buf), qt.DeepEquals, []byte("hello"))
	c.Assert(s.String(buf), qt.Equals, "hello")
}

func TestSpanStringReplacesInvalidUTF8(t *testing.T) {
	c := qt.New(t)

	buf := []byte{0x68, 0x69, 0xff, 0xfe}
	s := Span{Start: 0, End: len(buf)}
	got := s.String(buf)
	c.Assert(got, qt.Contains, "hi")
}
