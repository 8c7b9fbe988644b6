// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// buildMinimalEXIF assembles a little-endian TIFF/EXIF blob with a root IFD
// (inline SHORT Orientation + inline LONG ExifIFDPointer) pointing at an
// EXIF sub-IFD holding one pointer-mode RATIONAL field (ExposureTime =
// 1/250), per the worked layout:
//
//	0   "II", magic 42, rootOffset=8
//	8   root IFD: count=2, Orientation(inline), ExifIFDPointer(inline=38), nextIFD=0
//	38  sub-IFD: count=1, ExposureTime(pointer=56), nextIFD=0
//	56  rational data: num=1, den=250
func buildMinimalEXIF() []byte {
	var buf []byte
	buf = append(buf, 'I', 'I')
	buf = append(buf, 42, 0)      // magic, LE u16
	buf = append(buf, 8, 0, 0, 0) // root IFD offset

	// Root IFD at offset 8.
	buf = append(buf, 2, 0) // field count

	// Orientation (0x0112), SHORT, count=1, inline value 1 (stored in the
	// first two bytes of the 4-byte value_or_offset field, little-endian).
	buf = append(buf, 0x12, 0x01) // tag
	buf = append(buf, 3, 0)       // type = SHORT
	buf = append(buf, 1, 0, 0, 0) // count
	buf = append(buf, 1, 0, 0, 0) // value_or_offset

	// ExifIFDPointer (0x8769), LONG, count=1, inline value = 38.
	buf = append(buf, 0x69, 0x87)  // tag
	buf = append(buf, 4, 0)        // type = LONG
	buf = append(buf, 1, 0, 0, 0)  // count
	buf = append(buf, 38, 0, 0, 0) // value_or_offset

	buf = append(buf, 0, 0, 0, 0) // next IFD offset (none)

	// Sub-IFD at offset 38.
	buf = append(buf, 1, 0) // field count

	// ExposureTime (0x829a), RATIONAL, count=1, pointer to offset 56.
	buf = append(buf, 0x9a, 0x82)  // tag
	buf = append(buf, 5, 0)        // type = RATIONAL
	buf = append(buf, 1, 0, 0, 0)  // count
	buf = append(buf, 56, 0, 0, 0) // value_or_offset (pointer)

	buf = append(buf, 0, 0, 0, 0) // next IFD offset (none)

	// Rational data at offset 56: 1/250.
	buf = append(buf, 1, 0, 0, 0)   // numerator
	buf = append(buf, 250, 0, 0, 0) // denominator

	return buf
}

// buildMinimalEXIFBigEndian mirrors buildMinimalEXIF field-for-field, but
// with an "MM" marker and every multi-byte value big-endian-encoded,
// carrying the same logical values at the same offsets. Used to prove
// parsing is marker-driven rather than hard-coded to one endianness.
func buildMinimalEXIFBigEndian() []byte {
	var buf []byte
	buf = append(buf, 'M', 'M')
	buf = append(buf, 0, 42)      // magic, BE u16
	buf = append(buf, 0, 0, 0, 8) // root IFD offset

	// Root IFD at offset 8.
	buf = append(buf, 0, 2) // field count

	// Orientation (0x0112), SHORT, count=1, inline value 1 (stored in the
	// first two bytes of the 4-byte value_or_offset field, big-endian).
	buf = append(buf, 0x01, 0x12) // tag
	buf = append(buf, 0, 3)       // type = SHORT
	buf = append(buf, 0, 0, 0, 1) // count
	buf = append(buf, 0, 1, 0, 0) // value_or_offset

	// ExifIFDPointer (0x8769), LONG, count=1, inline value = 38.
	buf = append(buf, 0x87, 0x69)  // tag
	buf = append(buf, 0, 4)        // type = LONG
	buf = append(buf, 0, 0, 0, 1)  // count
	buf = append(buf, 0, 0, 0, 38) // value_or_offset

	buf = append(buf, 0, 0, 0, 0) // next IFD offset (none)

	// Sub-IFD at offset 38.
	buf = append(buf, 0, 1) // field count

	// ExposureTime (0x829a), RATIONAL, count=1, pointer to offset 56.
	buf = append(buf, 0x82, 0x9a)  // tag
	buf = append(buf, 0, 5)        // type = RATIONAL
	buf = append(buf, 0, 0, 0, 1)  // count
	buf = append(buf, 0, 0, 0, 56) // value_or_offset (pointer)

	buf = append(buf, 0, 0, 0, 0) // next IFD offset (none)

	// Rational data at offset 56: 1/250.
	buf = append(buf, 0, 0, 0, 1)   // numerator
	buf = append(buf, 0, 0, 0, 250) // denominator

	return buf
}

func TestParseEXIFInlineOrientation(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseEXIF(buildMinimalEXIF(), ExifOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(rec.LittleEndian, qt.IsTrue)

	f, ok := rec.FieldByTag(0x0112)
	c.Assert(ok, qt.IsTrue)
	c.Assert(f.HasName, qt.IsTrue)
	c.Assert(f.Namespace, qt.Equals, "Image")
	c.Assert(f.Name, qt.Equals, "Orientation")
	c.Assert(f.Value, qt.Equals, uint16(1))
}

func TestParseEXIFSubIFDRationalPointer(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseEXIF(buildMinimalEXIF(), ExifOptions{})
	c.Assert(err, qt.IsNil)

	f, ok := rec.FieldByTag(0x829a)
	c.Assert(ok, qt.IsTrue)
	c.Assert(f.Namespace, qt.Equals, "Photo")
	c.Assert(f.Name, qt.Equals, "ExposureTime")
	c.Assert(f.Value, qt.Equals, Rational{Num: 1, Den: 250})
}

func TestParseEXIFFullFieldList(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseEXIF(buildMinimalEXIF(), ExifOptions{})
	c.Assert(err, qt.IsNil)

	want := []ExifField{
		{Tag: 0x0112, Namespace: "Image", Name: "Orientation", HasName: true, Type: exifTypeShort, Count: 1, Value: uint16(1)},
		{Tag: 0x8769, Namespace: "Image", Name: "ExifIFDPointer", HasName: true, Type: exifTypeLong, Count: 1, Value: uint32(38)},
		{Tag: 0x829a, Namespace: "Photo", Name: "ExposureTime", HasName: true, Type: exifTypeRational, Count: 1, Value: Rational{Num: 1, Den: 250}},
	}

	if diff := cmp.Diff(want, rec.Fields, cmpopts.IgnoreFields(ExifField{}, "Span")); diff != "" {
		t.Fatalf("field list mismatch (-want +got):\n%s", diff)
	}
}

// TestParseEXIFMarkerEquivalence asserts that the same logical field values
// decode identically whether the blob is II (little-endian) or MM
// (big-endian) encoded. Span and LittleEndian necessarily differ between
// the two, so both are excluded from the comparison.
func TestParseEXIFMarkerEquivalence(t *testing.T) {
	c := qt.New(t)

	le, err := ParseEXIF(buildMinimalEXIF(), ExifOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(le.LittleEndian, qt.IsTrue)

	be, err := ParseEXIF(buildMinimalEXIFBigEndian(), ExifOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(be.LittleEndian, qt.IsFalse)

	if diff := cmp.Diff(le.Fields, be.Fields, cmpopts.IgnoreFields(ExifField{}, "Span")); diff != "" {
		t.Fatalf("II vs MM field mismatch (-le +be):\n%s", diff)
	}
}

func TestParseEXIFRejectsGarbageMarker(t *testing.T) {
	c := qt.New(t)

	buf := buildMinimalEXIF()
	buf[0], buf[1] = 'X', 'X'
	_, err := ParseEXIF(buf, ExifOptions{})
	c.Assert(err, qt.ErrorIs, errInvalidFormat)
}

func TestParseEXIFEmptyInput(t *testing.T) {
	c := qt.New(t)

	_, err := ParseEXIF(nil, ExifOptions{})
	c.Assert(err, qt.ErrorIs, errInvalidFormat)
}

func TestParseEXIFUnknownType(t *testing.T) {
	c := qt.New(t)

	buf := buildMinimalEXIF()
	// Corrupt the Orientation entry's type field (offset 12-13) to an
	// unsupported type code (11 = FLOAT).
	buf[12], buf[13] = 11, 0

	_, err := ParseEXIF(buf, ExifOptions{})
	c.Assert(err, qt.ErrorIs, errInvalidFormat)
	var target *UnknownExifTypeError
	c.Assert(errors.As(err, &target), qt.IsTrue)
}

func TestParseEXIFLimitNumTags(t *testing.T) {
	c := qt.New(t)

	_, err := ParseEXIF(buildMinimalEXIF(), ExifOptions{LimitNumTags: 1})
	c.Assert(err, qt.ErrorIs, errInvalidFormat)
}
