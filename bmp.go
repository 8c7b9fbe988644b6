// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import "bytes"

// FileHeader is the 14-byte BITMAPFILEHEADER.
type FileHeader struct {
	Signature  Span
	FileSize   uint32
	Reserved   uint32
	DataOffset uint32
	Span       Span
}

// DIBHeaderKind tags which variant DibHeader carries, dispatched on the
// leading u32 "header size" field.
type DIBHeaderKind int

const (
	DIBInfo DIBHeaderKind = iota
	DIBV5
	DIBCore
	DIBOther
)

// InfoHeader is the 40-byte BITMAPINFOHEADER.
type InfoHeader struct {
	Width, Height               int32
	Planes, BitsPerPixel        uint16
	Compression                 uint32
	ImageSize                   uint32
	PPMX, PPMY                  int32
	ColorsUsed, ImportantColors uint32
}

// V5Header is the 124-byte BITMAPV5HEADER; its first ten fields mirror
// InfoHeader, followed by color masks, colorspace, and ICC profile
// pointers.
type V5Header struct {
	InfoHeader
	RedMask, GreenMask, BlueMask, AlphaMask uint32
	ColorSpaceType                          Span
	Endpoints                               [9]uint32 // 3x3 CIEXYZTRIPLE
	GammaRed, GammaGreen, GammaBlue         uint32
	Intent                                  uint32
	ProfileDataOffset                       uint32
	ProfileSize                             uint32
	Reserved2                               uint32
}

// CoreHeader is the 12-byte BITMAPCOREHEADER; only width/height/bpp have
// well-defined, version-independent meaning.
type CoreHeader struct {
	Width, Height int16
	Planes        uint16
	BitsPerPixel  uint16
}

// OtherHeader covers DIB header sizes this reader recognizes as valid but
// does not decode field-by-field (16, 52, 56, 64, 108): the common
// {width,height,bpp} prefix is parsed and the remainder kept as an opaque
// Span.
type OtherHeader struct {
	Size          uint32
	Width, Height int32
	Planes        uint16
	BitsPerPixel  uint16
	Rest          Span
}

// DibHeader is the sum type of recognized DIB header variants.
type DibHeader struct {
	Kind DIBHeaderKind
	Size uint32
	Span Span

	Info  *InfoHeader
	V5    *V5Header
	Core  *CoreHeader
	Other *OtherHeader
}

// PaletteEntry is one BGRA palette entry, stored in (r,g,b,a) order.
type PaletteEntry struct {
	R, G, B, A uint8
}

// BMPRecord is the result of ParseBMP.
type BMPRecord struct {
	Header     FileHeader
	Dib        DibHeader
	ColorTable []PaletteEntry
	Pixels     Span
	Buffer     []byte
}

var bmpSignature = []byte{'B', 'M'}

// ParseBMP parses buf as a BMP file. buf must begin with "BM".
func ParseBMP(buf []byte) (rec *BMPRecord, err error) {
	defer recoverParseError(&err)

	cur := newByteCursor(buf, true)

	fhStart := cur.Pos()
	sigSpan := cur.GetSpan(2)
	if !bytes.Equal(cur.BytesForSpan(sigSpan), bmpSignature) {
		stop(newInvalidFormatError(&BadSignatureError{Format: "bmp"}))
	}
	fileSize := cur.ReadU32()
	reserved := cur.ReadU32()
	dataOffset := cur.ReadU32()
	fh := FileHeader{
		Signature: sigSpan, FileSize: fileSize, Reserved: reserved,
		DataOffset: dataOffset, Span: Span{Start: fhStart, End: cur.Pos()},
	}

	dib := readDIBHeader(cur)

	var palette []PaletteEntry
	bpp := dibBitsPerPixel(dib)
	if bpp == 4 || bpp == 8 {
		count := int(dibColorsUsed(dib))
		if count == 0 {
			count = 1 << bpp
		}
		span := cur.GetSpan(count * 4)
		b := cur.BytesForSpan(span)
		if len(b)%4 != 0 {
			stop(newInvalidFormatError(&InvalidColorTableLengthError{Length: len(b), EntrySize: 4, SourceName: "bmp"}))
		}
		palette = make([]PaletteEntry, len(b)/4)
		for i := range palette {
			o := i * 4
			// Stored BGRA; exposed as (r,g,b,a).
			palette[i] = PaletteEntry{R: b[o+2], G: b[o+1], B: b[o+0], A: b[o+3]}
		}
	}

	cur.Seek(int(dataOffset))
	pixels := cur.GetSpanTo(cur.len())

	return &BMPRecord{Header: fh, Dib: dib, ColorTable: palette, Pixels: pixels, Buffer: buf}, nil
}

func dibBitsPerPixel(d DibHeader) uint16 {
	switch d.Kind {
	case DIBInfo:
		return d.Info.BitsPerPixel
	case DIBV5:
		return d.V5.BitsPerPixel
	case DIBCore:
		return d.Core.BitsPerPixel
	case DIBOther:
		return d.Other.BitsPerPixel
	}
	return 0
}

// dibColorsUsed returns the header's declared ColorsUsed count, or 0 when
// the header variant carries no such field (CoreHeader, OtherHeader) or
// declares 0 itself — in both cases the palette size defaults to the full
// 1<<bpp table.
func dibColorsUsed(d DibHeader) uint32 {
	switch d.Kind {
	case DIBInfo:
		return d.Info.ColorsUsed
	case DIBV5:
		return d.V5.ColorsUsed
	}
	return 0
}

func readDIBHeader(cur *ByteCursor) DibHeader {
	start := cur.Pos()
	size := cur.ReadU32()

	switch size {
	case 40:
		info := readInfoHeaderBody(cur)
		return DibHeader{Kind: DIBInfo, Size: size, Info: &info, Span: Span{Start: start, End: cur.Pos()}}
	case 124:
		info := readInfoHeaderBody(cur)
		v5 := V5Header{InfoHeader: info}
		v5.RedMask = cur.ReadU32()
		v5.GreenMask = cur.ReadU32()
		v5.BlueMask = cur.ReadU32()
		v5.AlphaMask = cur.ReadU32()
		v5.ColorSpaceType = cur.GetSpan(4)
		for i := range v5.Endpoints {
			v5.Endpoints[i] = cur.ReadU32()
		}
		v5.GammaRed = cur.ReadU32()
		v5.GammaGreen = cur.ReadU32()
		v5.GammaBlue = cur.ReadU32()
		v5.Intent = cur.ReadU32()
		v5.ProfileDataOffset = cur.ReadU32()
		v5.ProfileSize = cur.ReadU32()
		v5.Reserved2 = cur.ReadU32()
		return DibHeader{Kind: DIBV5, Size: size, V5: &v5, Span: Span{Start: start, End: cur.Pos()}}
	case 12:
		core := CoreHeader{
			Width:        int16(cur.ReadU16()),
			Height:       int16(cur.ReadU16()),
			Planes:       cur.ReadU16(),
			BitsPerPixel: cur.ReadU16(),
		}
		return DibHeader{Kind: DIBCore, Size: size, Core: &core, Span: Span{Start: start, End: cur.Pos()}}
	case 16, 52, 56, 64, 108:
		width := cur.ReadI32()
		height := cur.ReadI32()
		planes := cur.ReadU16()
		bpp := cur.ReadU16()
		rest := cur.GetSpanTo(start + int(size))
		other := OtherHeader{Size: size, Width: width, Height: height, Planes: planes, BitsPerPixel: bpp, Rest: rest}
		return DibHeader{Kind: DIBOther, Size: size, Other: &other, Span: Span{Start: start, End: cur.Pos()}}
	default:
		stop(newInvalidFormatErrorf("bmp: unrecognized dib header size %d", size))
	}
	panic("unreachable")
}

func readInfoHeaderBody(cur *ByteCursor) InfoHeader {
	return InfoHeader{
		Width:           cur.ReadI32(),
		Height:          cur.ReadI32(),
		Planes:          cur.ReadU16(),
		BitsPerPixel:    cur.ReadU16(),
		Compression:     cur.ReadU32(),
		ImageSize:       cur.ReadU32(),
		PPMX:            cur.ReadI32(),
		PPMY:            cur.ReadI32(),
		ColorsUsed:      cur.ReadU32(),
		ImportantColors: cur.ReadU32(),
	}
}
