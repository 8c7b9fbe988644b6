// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import "bytes"

// Format identifies one of the container formats this module can parse.
//
//go:generate stringer -type=Format
type Format int

const (
	// FormatUnknown signals that Sniff could not identify buf's format.
	FormatUnknown Format = iota
	FormatPNG
	FormatGIF
	FormatBMP
	FormatZIP
	FormatTIFF
)

// Sniff identifies buf's format from its leading bytes. For PNG, GIF, BMP,
// and TIFF these are the same signature bytes the format's own Parse*
// function validates; ZIP is recognized by a leading local file header
// signature, which ParseZIP itself does not check (it locates the archive
// from its end-of-central-directory record). It does not validate the rest
// of buf; a positive result only means the magic bytes matched.
func Sniff(buf []byte) Format {
	switch {
	case bytes.HasPrefix(buf, pngSignature):
		return FormatPNG
	case bytes.HasPrefix(buf, gif87a), bytes.HasPrefix(buf, gif89a):
		return FormatGIF
	case bytes.HasPrefix(buf, bmpSignature):
		return FormatBMP
	case len(buf) >= 4 && buf[0] == 'I' && buf[1] == 'I' && buf[2] == 42 && buf[3] == 0:
		return FormatTIFF
	case len(buf) >= 4 && buf[0] == 'M' && buf[1] == 'M' && buf[2] == 0 && buf[3] == 42:
		return FormatTIFF
	case len(buf) >= 4 && bytes.Equal(buf[:4], zipSigLocalFileHeader):
		return FormatZIP
	}
	return FormatUnknown
}

// Record is the parsed result of Parse, holding exactly one populated
// field selected by Format.
type Record struct {
	Format Format

	PNG  *PNGRecord
	GIF  *GIFRecord
	BMP  *BMPRecord
	ZIP  *ZIPRecord
	TIFF *ExifRecord
}

// Parse sniffs buf's format and dispatches to the matching Parse*
// function. ICC profiles are not auto-detected: they have no leading
// signature of their own outside the surrounding container (a PNG iCCP
// chunk, for instance) that identifies them, so callers parse those via
// ParseICC directly once they've located the profile bytes.
func Parse(buf []byte) (*Record, error) {
	format := Sniff(buf)
	switch format {
	case FormatPNG:
		rec, err := ParsePNG(buf, PNGOptions{})
		if err != nil {
			return nil, err
		}
		return &Record{Format: format, PNG: rec}, nil
	case FormatGIF:
		rec, err := ParseGIF(buf)
		if err != nil {
			return nil, err
		}
		return &Record{Format: format, GIF: rec}, nil
	case FormatBMP:
		rec, err := ParseBMP(buf)
		if err != nil {
			return nil, err
		}
		return &Record{Format: format, BMP: rec}, nil
	case FormatZIP:
		rec, err := ParseZIP(buf)
		if err != nil {
			return nil, err
		}
		return &Record{Format: format, ZIP: rec}, nil
	case FormatTIFF:
		rec, err := ParseEXIF(buf, ExifOptions{})
		if err != nil {
			return nil, err
		}
		return &Record{Format: format, TIFF: rec}, nil
	}
	return nil, newInvalidFormatErrorf("spanraster: could not identify format from leading bytes")
}
