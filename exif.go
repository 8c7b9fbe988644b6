// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

// TIFF/EXIF field types this reader understands. Types outside this set
// (SBYTE, SSHORT, FLOAT, DOUBLE, and anything reserved) raise
// *UnknownExifTypeError rather than being silently skipped.
const (
	exifTypeByte      = 1
	exifTypeAscii     = 2
	exifTypeShort     = 3
	exifTypeLong      = 4
	exifTypeRational  = 5
	exifTypeUndefined = 7
	exifTypeSLong     = 9
	exifTypeSRational = 10
)

func exifTypeWidth(typ uint16) (int, bool) {
	switch typ {
	case exifTypeByte, exifTypeAscii, exifTypeUndefined:
		return 1, true
	case exifTypeShort:
		return 2, true
	case exifTypeLong, exifTypeSLong:
		return 4, true
	case exifTypeRational, exifTypeSRational:
		return 8, true
	}
	return 0, false
}

// Rational is an unsigned TIFF RATIONAL: numerator over denominator.
type Rational struct {
	Num, Den uint32
}

// SRational is a signed TIFF SRATIONAL.
type SRational struct {
	Num, Den int32
}

// ExifField is one decoded IFD entry. Name and Namespace are populated from
// the exiftags.go table of the IFD the entry was read from when the tag is
// known there; otherwise HasName is false and callers see only the raw Tag
// number.
type ExifField struct {
	Tag       uint16
	Namespace string
	Name      string
	HasName   bool
	Type      uint16
	Count     uint32
	Value     any
	Span      Span
}

// ExifRecord is the result of ParseEXIF: the root IFD's fields, with the
// EXIF sub-IFD (tag 0x8769) and GPS sub-IFD (tag 0x8825) fields appended
// to the same flat list rather than nested, mirroring how callers usually
// want to look a tag up without caring which IFD it came from.
type ExifRecord struct {
	LittleEndian bool
	Fields       []ExifField
	Buffer       []byte
}

// FieldByTag returns the first field with the given tag number, if any.
func (r *ExifRecord) FieldByTag(tag uint16) (ExifField, bool) {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return ExifField{}, false
}

const (
	exifTagExifIFDPointer = 0x8769
	exifTagGPSIFDPointer  = 0x8825
	exifTagIopIFDPointer  = 0xa005

	defaultExifLimitNumTags = 5000
)

// ExifOptions configures ParseEXIF.
type ExifOptions struct {
	// LimitNumTags caps the total number of IFD entries read across the
	// root, EXIF, GPS, and Interop IFDs combined. Guards against a
	// pathological field count driving excessive allocation. Defaults to
	// 5000.
	LimitNumTags uint32
}

// ParseEXIF parses buf as a raw TIFF/EXIF blob starting at its byte-order
// marker ("II" or "MM"), the same layout a PNG eXIf chunk or a JPEG APP1
// segment's payload carries after its own wrapper is stripped. The
// cursor's endianness is selected from the marker before any further read.
func ParseEXIF(buf []byte, opts ExifOptions) (rec *ExifRecord, err error) {
	defer recoverParseError(&err)

	if opts.LimitNumTags == 0 {
		opts.LimitNumTags = defaultExifLimitNumTags
	}

	if len(buf) < 2 {
		stop(newInvalidFormatError(ErrEndOfInput))
	}

	var littleEndian bool
	switch {
	case buf[0] == 'I' && buf[1] == 'I':
		littleEndian = true
	case buf[0] == 'M' && buf[1] == 'M':
		littleEndian = false
	default:
		stop(newInvalidFormatError(&BadSignatureError{Format: "tiff"}))
	}

	cur := newByteCursor(buf, littleEndian)
	cur.Seek(2)
	magic := cur.ReadU16()
	if magic != 42 {
		stop(newInvalidFormatError(&UnexpectedByteError{Expected: 42, Found: byte(magic)}))
	}
	rootOffset := cur.ReadU32()

	budget := opts.LimitNumTags
	fields := readExifIFD(cur, int(rootOffset), "Image", &budget)

	// Sub-IFD pointers are resolved against the root IFD's own fields;
	// each sub-IFD's fields are tagged with their own namespace directly,
	// rather than re-derived later from a flat tag-number lookup — GPS tag
	// 0x01 and Interop tag 0x0001 collide numerically, so namespace must
	// come from which IFD produced the field, not a guess after the fact.
	for _, f := range fields {
		switch f.Tag {
		case exifTagExifIFDPointer:
			if off, ok := f.Value.(uint32); ok {
				fields = append(fields, readExifIFD(cur, int(off), "Photo", &budget)...)
			}
		case exifTagGPSIFDPointer:
			if off, ok := f.Value.(uint32); ok {
				fields = append(fields, readExifIFD(cur, int(off), "GPSInfo", &budget)...)
			}
		case exifTagIopIFDPointer:
			if off, ok := f.Value.(uint32); ok {
				fields = append(fields, readExifIFD(cur, int(off), "Iop", &budget)...)
			}
		}
	}

	return &ExifRecord{LittleEndian: littleEndian, Fields: fields, Buffer: buf}, nil
}

// readExifIFD reads the IFD at offset off (relative to the start of the
// TIFF header, i.e. cur's buffer) and returns its fields, each resolved
// against namespace's own table. The next-IFD offset trailing the entries
// is read and discarded: this reader only follows the EXIF, GPS, and
// Interop sub-IFD pointers, never IFD1 (the thumbnail IFD).
func readExifIFD(cur *ByteCursor, off int, namespace string, budget *uint32) []ExifField {
	savedPos := cur.Pos()
	cur.Seek(off)

	count := cur.ReadU16()
	fields := make([]ExifField, 0, count)
	table := exifNamespaceTable(namespace)
	for i := uint16(0); i < count; i++ {
		if *budget == 0 {
			stop(newInvalidFormatErrorf("exif: tag count exceeds configured limit"))
		}
		*budget--
		f := readExifFieldEntry(cur)
		if name, known := table[f.Tag]; known {
			f.Name = name
			f.HasName = true
			f.Namespace = namespace
		}
		fields = append(fields, f)
	}
	cur.ReadU32() // next IFD offset; thumbnail IFD is out of scope

	cur.Seek(savedPos)
	return fields
}

func readExifFieldEntry(cur *ByteCursor) ExifField {
	start := cur.Pos()
	tag := cur.ReadU16()
	typ := cur.ReadU16()
	count := cur.ReadU32()

	width, ok := exifTypeWidth(typ)
	if !ok {
		stop(newInvalidFormatError(&UnknownExifTypeError{Type: typ}))
	}

	rawSpan := cur.GetSpan(4)
	size := uint64(count) * uint64(width)

	var value any
	if size <= 4 {
		value = decodeExifInlineValue(cur, typ, count, cur.BytesForSpan(rawSpan))
	} else {
		value = decodeExifPointerValue(cur, typ, count, cur.byteOrder32(rawSpan))
	}

	return ExifField{Tag: tag, Type: typ, Count: count, Value: value, Span: Span{Start: start, End: cur.Pos()}}
}

// byteOrder32 reinterprets a 4-byte span as a u32 respecting the cursor's
// endianness, without advancing the cursor.
func (c *ByteCursor) byteOrder32(s Span) uint32 {
	return c.byteOrder.Uint32(c.BytesForSpan(s))
}

// decodeExifInlineValue decodes a value that fits within the 4-byte
// value_or_offset field itself. BYTE/ASCII/UNDEFINED take the raw file
// bytes from the field's first byte down, independent of cursor
// endianness — TIFF treats that packing as byte-order-agnostic. SHORT,
// LONG, and SLONG are each taken from their own endianness-aware
// reinterpretation of their slice of raw: two SHORTs pack side by side
// in the 4-byte field, each still decoded per-value rather than via a
// single u32 read of the whole field (which would put a little-endian
// SHORT in the wrong half).
func decodeExifInlineValue(cur *ByteCursor, typ uint16, count uint32, raw []byte) any {
	switch typ {
	case exifTypeByte, exifTypeAscii, exifTypeUndefined:
		switch count {
		case 1:
			return raw[0]
		case 2:
			return []uint8{raw[0], raw[1]}
		case 3:
			return []uint8{raw[0], raw[1], raw[2]}
		case 4:
			return []uint8{raw[0], raw[1], raw[2], raw[3]}
		default:
			return []uint8{}
		}
	case exifTypeShort:
		if count == 1 {
			return cur.byteOrder.Uint16(raw[0:2])
		}
		return []uint16{cur.byteOrder.Uint16(raw[0:2]), cur.byteOrder.Uint16(raw[2:4])}
	case exifTypeLong:
		return cur.byteOrder.Uint32(raw)
	case exifTypeSLong:
		return int32(cur.byteOrder.Uint32(raw))
	}
	stop(newInvalidFormatError(&UnknownExifTypeError{Type: typ}))
	panic("unreachable")
}

// decodeExifPointerValue follows offset to read count values of typ,
// restoring the cursor's prior position before returning so the enclosing
// IFD walk can continue reading its next entry.
func decodeExifPointerValue(cur *ByteCursor, typ uint16, count uint32, offset uint32) any {
	savedPos := cur.Pos()
	cur.Seek(int(offset))
	defer cur.Seek(savedPos)

	switch typ {
	case exifTypeByte, exifTypeAscii, exifTypeUndefined:
		span := cur.GetSpan(int(count))
		b := append([]byte(nil), cur.BytesForSpan(span)...)
		if count == 1 {
			return b[0]
		}
		return b
	case exifTypeShort:
		if count == 1 {
			return cur.ReadU16()
		}
		out := make([]uint16, count)
		for i := range out {
			out[i] = cur.ReadU16()
		}
		return out
	case exifTypeLong:
		if count == 1 {
			return cur.ReadU32()
		}
		out := make([]uint32, count)
		for i := range out {
			out[i] = cur.ReadU32()
		}
		return out
	case exifTypeSLong:
		if count == 1 {
			return cur.ReadI32()
		}
		out := make([]int32, count)
		for i := range out {
			out[i] = cur.ReadI32()
		}
		return out
	case exifTypeRational:
		if count == 1 {
			return Rational{Num: cur.ReadU32(), Den: cur.ReadU32()}
		}
		out := make([]Rational, count)
		for i := range out {
			out[i] = Rational{Num: cur.ReadU32(), Den: cur.ReadU32()}
		}
		return out
	case exifTypeSRational:
		if count == 1 {
			return SRational{Num: cur.ReadI32(), Den: cur.ReadI32()}
		}
		out := make([]SRational, count)
		for i := range out {
			out[i] = SRational{Num: cur.ReadI32(), Den: cur.ReadI32()}
		}
		return out
	}
	stop(newInvalidFormatError(&UnknownExifTypeError{Type: typ}))
	panic("unreachable")
}
