// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import "hash/crc32"

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// Known PNG chunk schemas, keyed by 4-byte chunk name. See
// https://www.w3.org/TR/png and https://exiftool.org/TagNames/PNG.html for
// the field layouts. This table is the single place a new ancillary chunk
// is declared — see the Schema/SchemaDispatch design in schema.go.
var pngChunkSchemas = map[string]Schema{
	"IHDR": {
		{Name: "width", Kind: KindU32},
		{Name: "height", Kind: KindU32},
		{Name: "bit_depth", Kind: KindU8},
		{Name: "color_type", Kind: KindU8},
		{Name: "compression_method", Kind: KindU8},
		{Name: "filter_method", Kind: KindU8},
		{Name: "interlace_method", Kind: KindU8},
	},
	"IDAT": {
		{Name: "buffer", Kind: KindRest},
	},
	"IEND": {},
	"pHYs": {
		{Name: "ppu_x", Kind: KindU32},
		{Name: "ppu_y", Kind: KindU32},
		{Name: "unit", Kind: KindU8},
	},
	"cHRM": {
		{Name: "wpx", Kind: KindU32},
		{Name: "wpy", Kind: KindU32},
		{Name: "rx", Kind: KindU32},
		{Name: "ry", Kind: KindU32},
		{Name: "gx", Kind: KindU32},
		{Name: "gy", Kind: KindU32},
		{Name: "bx", Kind: KindU32},
		{Name: "by", Kind: KindU32},
	},
	"iCCP": {
		{Name: "profile_name", Kind: KindNullTermString},
		{Name: "compression_method", Kind: KindU8},
		{Name: "compressed_profile", Kind: KindRest},
	},
	"zTXt": {
		{Name: "keyword", Kind: KindNullTermString},
		{Name: "compression_method", Kind: KindU8},
		{Name: "compressed_text", Kind: KindRest},
	},
	"eXIf": {
		{Name: "buffer", Kind: KindRest},
	},
	"tEXt": {
		{Name: "keyword", Kind: KindNullTermString},
		{Name: "text", Kind: KindRest},
	},
	"tIME": {
		{Name: "year", Kind: KindU16},
		{Name: "month", Kind: KindU8},
		{Name: "day", Kind: KindU8},
		{Name: "hour", Kind: KindU8},
		{Name: "minute", Kind: KindU8},
		{Name: "second", Kind: KindU8},
	},
	"gAMA": {
		{Name: "gamma", Kind: KindU32},
	},
	"sRGB": {
		{Name: "rendering_intent", Kind: KindU8},
	},
}

// Chunk is one length-prefixed, four-character-named PNG chunk.
type Chunk struct {
	Name         string
	RawData      Span
	CRC          uint32
	ParsedFields map[string]any // non-nil iff Name is a known schema
}

// PNGRecord is the result of ParsePNG.
type PNGRecord struct {
	HeaderSpan Span
	Chunks     []Chunk
	Buffer     []byte
}

// PNGOptions configures ParsePNG.
type PNGOptions struct {
	// Strict, when true, validates each chunk's CRC and fails with an
	// error on mismatch. Off by default.
	Strict bool

	// Warnf, if set, is called for chunks whose name has no registered
	// schema in pngChunkSchemas (so ParsedFields is left nil). Defaults
	// to a no-op.
	Warnf func(string, ...any)
}

// ParsePNG parses buf as a PNG file. buf must begin with the 8-byte PNG
// signature.
func ParsePNG(buf []byte, opts PNGOptions) (rec *PNGRecord, err error) {
	defer recoverParseError(&err)

	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}

	cur := newByteCursor(buf, false)
	if !cur.ConsumeIfEquals(pngSignature) {
		stop(newInvalidFormatError(&BadSignatureError{Format: "png"}))
	}
	headerSpan := Span{Start: 0, End: 8}

	rec = &PNGRecord{HeaderSpan: headerSpan, Buffer: buf}

	for !cur.AtEnd() {
		length := cur.ReadU32()
		nameSpan := cur.GetSpan(4)
		name := cur.StringForSpan(nameSpan)
		dataStart := cur.Pos()
		rawData := cur.GetSpanTo(dataStart + int(length))

		chunk := Chunk{Name: name, RawData: rawData}

		if schema, known := pngChunkSchemas[name]; known {
			fieldCur := newByteCursor(buf, false)
			fieldCur.Seek(rawData.Start)
			func() {
				defer func() {
					if r := recover(); r != nil {
						e, _ := r.(error)
						if e == nil {
							e = newInvalidFormatErrorf("panic decoding chunk %q", name)
						}
						stop(&SchemaMismatchError{ChunkName: name, Err: e})
					}
				}()
				chunk.ParsedFields = schema.Walk(fieldCur, rawData.End)
			}()
		} else {
			opts.Warnf("spanraster: unrecognized png chunk %q, raw data only", name)
		}

		crc := cur.ReadU32()
		chunk.CRC = crc

		if opts.Strict {
			if computed := crc32PNG(buf[nameSpan.Start:rawData.End]); computed != crc {
				stop(newInvalidFormatErrorf("chunk %q: crc mismatch: got 0x%08x, want 0x%08x", name, computed, crc))
			}
		}

		rec.Chunks = append(rec.Chunks, chunk)
	}

	return rec, nil
}

// crc32PNG computes the CRC-32 PNG mandates over the chunk type and data
// bytes, for PNGOptions.Strict verification. PNG uses the ISO 3309 /
// ITU-T V.42 polynomial, the same table hash/crc32's IEEE functions
// implement.
func crc32PNG(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
