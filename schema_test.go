// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSchemaWalkFixedWidth(t *testing.T) {
	c := qt.New(t)

	schema := Schema{
		{Name: "width", Kind: KindU32},
		{Name: "height", Kind: KindU32},
		{Name: "bit_depth", Kind: KindU8},
	}
	c.Assert(schema.isFullyFixed(), qt.IsTrue)

	data := []byte{0, 0, 0, 10, 0, 0, 0, 20, 8}
	cur := newByteCursor(data, false)
	fields := schema.Walk(cur, len(data))

	c.Assert(fields["width"], qt.Equals, uint32(10))
	c.Assert(fields["height"], qt.Equals, uint32(20))
	c.Assert(fields["bit_depth"], qt.Equals, uint8(8))
	c.Assert(cur.Pos(), qt.Equals, len(data))
}

func TestSchemaWalkWithTrailingRest(t *testing.T) {
	c := qt.New(t)

	schema := Schema{
		{Name: "keyword", Kind: KindNullTermString},
		{Name: "rest", Kind: KindRest},
	}
	c.Assert(schema.isFullyFixed(), qt.IsFalse)

	data := []byte("Comment\x00hello world")
	cur := newByteCursor(data, false)
	fields := schema.Walk(cur, len(data))

	keywordSpan := fields["keyword"].(Span)
	c.Assert(cur.StringForSpan(keywordSpan), qt.Equals, "Comment\x00")

	restSpan := fields["rest"].(Span)
	c.Assert(cur.StringForSpan(restSpan), qt.Equals, "hello world")
}
