// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

// Section indicators and extension labels from the GIF89a specification.
const (
	gifExtensionIntroducer = 0x21
	gifImageSeparator      = 0x2c
	gifTrailer             = 0x3b

	gifExtPlainText       = 0x01
	gifExtGraphicsControl = 0xf9
	gifExtComment         = 0xfe
	gifExtApplication     = 0xff
)

const (
	gifFieldHasColorTable = 1 << 7
	gifFieldInterlace     = 1 << 6
	gifFieldSortFlag      = 1 << 5 // Image Descriptor packed byte
	gifFieldLSDSortFlag   = 1 << 3 // Logical Screen Descriptor packed byte
	gifFieldTableSizeMask = 0x07
)

// LogicalScreenDescriptor is the 7-byte record following the GIF header.
type LogicalScreenDescriptor struct {
	Width             uint16
	Height            uint16
	Packed            uint8
	BackgroundColorIx uint8
	PixelAspectRatio  uint8
	Span              Span

	HasGlobalColorTable bool
	Sorted              bool
	GlobalColorTableSz  uint8 // 3-bit field; table has 2^(n+1) entries
	ColorResolution     uint8 // 3-bit field
}

func decodeLogicalScreenDescriptor(packed uint8) (hasGCT, sorted bool, gctSize, colorRes uint8) {
	hasGCT = packed&gifFieldHasColorTable != 0
	sorted = packed&gifFieldLSDSortFlag != 0
	gctSize = packed & gifFieldTableSizeMask
	colorRes = (packed >> 4) & 0x07
	return
}

// ColorTable is a GIF global or local color table: entries RGB triples.
type ColorTable struct {
	Colors [][3]byte
	Span   Span
}

func readColorTable(cur *ByteCursor, sizeField uint8) ColorTable {
	entries := 1 << (sizeField + 1)
	span := cur.GetSpan(3 * entries)
	b := cur.BytesForSpan(span)
	if len(b)%3 != 0 {
		stop(newInvalidFormatError(&InvalidColorTableLengthError{Length: len(b), EntrySize: 3, SourceName: "gif"}))
	}
	colors := make([][3]byte, entries)
	for i := 0; i < entries; i++ {
		colors[i] = [3]byte{b[i*3], b[i*3+1], b[i*3+2]}
	}
	return ColorTable{Colors: colors, Span: span}
}

// ImageDescriptor is the 10-byte record beginning with the 0x2C separator.
type ImageDescriptor struct {
	Left, Top, Width, Height uint16
	Packed                   uint8
	Span                     Span

	HasLocalColorTable bool
	Interlaced         bool
	Sorted             bool
	LocalColorTableSz  uint8
}

// ExtensionKind tags which variant an Extension carries.
type ExtensionKind int

const (
	ExtGraphicsControl ExtensionKind = iota
	ExtApplication
	ExtComment
	ExtPlainText
)

// GraphicsControlExt is the decoded Graphics Control Extension payload.
type GraphicsControlExt struct {
	BlockSize             uint8
	Packed                uint8
	DelayTime             uint16
	TransparentColorIndex uint8
	BlockTerminator       uint8

	Reserved            uint8
	Disposal            uint8
	WaitForInput        bool
	HasTransparentColor bool
}

// ApplicationExt is the decoded Application Extension payload.
type ApplicationExt struct {
	BlockLength   uint8
	Identifier    Span
	SubIndex      uint8
	NumExecutions uint16
	Terminator    uint16
}

// PlainTextExt is the decoded Plain Text Extension payload.
type PlainTextExt struct {
	NumBytesToSkip uint8
	Skipped        Span
	Text           []byte
}

// CommentExt is the decoded Comment Extension payload.
type CommentExt struct {
	Text []byte
}

// Extension is a tagged variant over the four known GIF extension blocks.
type Extension struct {
	Kind            ExtensionKind
	Span            Span
	GraphicsControl *GraphicsControlExt
	Application     *ApplicationExt
	Comment         *CommentExt
	PlainText       *PlainTextExt
}

// Image is one {descriptor, optional local color table, extensions,
// LZW-compressed sub-block stream} unit in a GIF.
type Image struct {
	Descriptor      ImageDescriptor
	LocalColorTable *ColorTable
	Extensions      []Extension
	MinCodeSize     uint8
	Data            []byte
	Span            Span
}

// GIFRecord is the result of ParseGIF.
type GIFRecord struct {
	Header           Span
	LSD              LogicalScreenDescriptor
	GlobalColorTable *ColorTable
	Images           []Image
	Buffer           []byte
}

var (
	gif87a = []byte("GIF87a")
	gif89a = []byte("GIF89a")
)

// ParseGIF parses buf as a GIF file. buf must begin with "GIF87a" or "GIF89a".
func ParseGIF(buf []byte) (rec *GIFRecord, err error) {
	defer recoverParseError(&err)

	cur := newByteCursor(buf, true)
	if !cur.ConsumeIfEquals(gif87a) && !cur.ConsumeIfEquals(gif89a) {
		stop(newInvalidFormatError(&BadSignatureError{Format: "gif"}))
	}
	header := Span{Start: 0, End: 6}

	lsdStart := cur.Pos()
	width := cur.ReadU16()
	height := cur.ReadU16()
	packed := cur.ReadU8()
	bgColorIx := cur.ReadU8()
	par := cur.ReadU8()
	lsdSpan := Span{Start: lsdStart, End: cur.Pos()}

	hasGCT, sorted, gctSize, colorRes := decodeLogicalScreenDescriptor(packed)
	lsd := LogicalScreenDescriptor{
		Width: width, Height: height, Packed: packed,
		BackgroundColorIx: bgColorIx, PixelAspectRatio: par, Span: lsdSpan,
		HasGlobalColorTable: hasGCT, Sorted: sorted, GlobalColorTableSz: gctSize,
		ColorResolution: colorRes,
	}

	rec = &GIFRecord{Header: header, LSD: lsd, Buffer: buf}

	if hasGCT {
		gct := readColorTable(cur, gctSize)
		rec.GlobalColorTable = &gct
	}

	for {
		b, ok := cur.Peek()
		if !ok {
			stop(newInvalidFormatError(ErrEndOfInput))
		}
		if b == gifTrailer {
			break
		}

		var exts []Extension
		for {
			b, ok = cur.Peek()
			if !ok || b != gifExtensionIntroducer {
				break
			}
			exts = append(exts, readGIFExtension(cur))
		}

		img := readGIFImage(cur, exts)
		rec.Images = append(rec.Images, img)
	}

	cur.ExpectByte(gifTrailer)
	if !cur.AtEnd() {
		stop(newInvalidFormatError(ErrTrailingBytes))
	}

	return rec, nil
}

func readGIFExtension(cur *ByteCursor) Extension {
	start := cur.Pos()
	cur.ExpectByte(gifExtensionIntroducer)
	label := cur.ReadU8()

	var ext Extension
	switch label {
	case gifExtGraphicsControl:
		blockSize := cur.ReadU8()
		packed := cur.ReadU8()
		delay := cur.ReadU16()
		transparentIx := cur.ReadU8()
		terminator := cur.ReadU8()
		gc := &GraphicsControlExt{
			BlockSize: blockSize, Packed: packed, DelayTime: delay,
			TransparentColorIndex: transparentIx, BlockTerminator: terminator,
			Reserved:            (packed >> 5) & 0x07,
			Disposal:            (packed >> 2) & 0x07,
			WaitForInput:        packed&0x02 != 0,
			HasTransparentColor: packed&0x01 != 0,
		}
		ext = Extension{Kind: ExtGraphicsControl, GraphicsControl: gc}
	case gifExtApplication:
		blockLen := cur.ReadU8()
		id := cur.GetSpan(int(blockLen))
		subIndex := cur.ReadU8()
		numExec := cur.ReadU16()
		terminator := cur.ReadU16()
		app := &ApplicationExt{
			BlockLength: blockLen, Identifier: id, SubIndex: subIndex,
			NumExecutions: numExec, Terminator: terminator,
		}
		ext = Extension{Kind: ExtApplication, Application: app}
	case gifExtComment:
		data := concatSubBlocks(cur)
		ext = Extension{Kind: ExtComment, Comment: &CommentExt{Text: data}}
	case gifExtPlainText:
		numSkip := cur.ReadU8()
		skipped := cur.GetSpan(int(numSkip))
		text := concatSubBlocks(cur)
		ext = Extension{Kind: ExtPlainText, PlainText: &PlainTextExt{
			NumBytesToSkip: numSkip, Skipped: skipped, Text: text,
		}}
	default:
		stop(newInvalidFormatError(&UnexpectedExtensionError{Label: label}))
	}

	ext.Span = Span{Start: start, End: cur.Pos()}
	return ext
}

// concatSubBlocks reads the "length-prefixed block until length==0" loop
// shared by GIF image data, Comment, and PlainText, consuming the
// terminating zero-length block.
func concatSubBlocks(cur *ByteCursor) []byte {
	var out []byte
	for {
		n := cur.ReadU8()
		if n == 0 {
			break
		}
		span := cur.GetSpan(int(n))
		out = append(out, cur.BytesForSpan(span)...)
	}
	if out == nil {
		out = []byte{}
	}
	return out
}

func readGIFImage(cur *ByteCursor, leadingExts []Extension) Image {
	start := cur.Pos()
	cur.ExpectByte(gifImageSeparator)

	left := cur.ReadU16()
	top := cur.ReadU16()
	width := cur.ReadU16()
	height := cur.ReadU16()
	packed := cur.ReadU8()
	// The descriptor span includes the leading separator byte.
	descSpan := Span{Start: start, End: cur.Pos()}

	desc := ImageDescriptor{
		Left: left, Top: top, Width: width, Height: height, Packed: packed, Span: descSpan,
		HasLocalColorTable: packed&gifFieldHasColorTable != 0,
		Interlaced:         packed&gifFieldInterlace != 0,
		Sorted:             packed&gifFieldSortFlag != 0,
		LocalColorTableSz:  packed & gifFieldTableSizeMask,
	}

	var lct *ColorTable
	if desc.HasLocalColorTable {
		t := readColorTable(cur, desc.LocalColorTableSz)
		lct = &t
	}

	minCodeSize := cur.ReadU8()
	data := concatSubBlocks(cur)

	return Image{
		Descriptor:      desc,
		LocalColorTable: lct,
		Extensions:      leadingExts,
		MinCodeSize:     minCodeSize,
		Data:            data,
		Span:            Span{Start: start, End: cur.Pos()},
	}
}

// DecodeGIFImage decodes img's LZW-compressed sub-block stream into a
// stream of palette indices. Decoding only requires that *some* palette be
// reachable for the image: its own local color table, or the GIF's global
// one.
func DecodeGIFImage(gif *GIFRecord, img Image) ([]byte, error) {
	if img.LocalColorTable == nil && gif.GlobalColorTable == nil {
		return nil, newInvalidFormatErrorf("gif: image has no reachable color table")
	}
	return DecodeGIFLZW(img.MinCodeSize, img.Data)
}
