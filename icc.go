// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

var iccSignatureACSP = []byte("acsp")

// Known ICC tag signatures this reader decodes, named per the ICC spec's
// own four-character tag keywords.
var iccKnownTags = map[string]string{
	"desc": "description",
	"cprt": "copyright",
	"dmdd": "deviceModelDescription",
	"vued": "viewingConditionsDescription",
	"wtpt": "whitepoint",
}

// Four-byte header attribute codes mapped to a human label, with a
// pass-through fallback for anything not in the table.
var iccFourCCDictionary = map[string]string{
	"scnr": "Scanner",
	"mntr": "Monitor",
	"prtr": "Printer",
	"link": "Link",
	"spac": "ColorSpace",
	"abst": "Abstract",
	"nmcl": "NamedColor",
	"adbe": "Adobe",
	"appl": "Apple",
	"MSFT": "Microsoft",
	"SGI ": "SGI",
	"SUNW": "Sun",
}

func iccFourCCLabel(b []byte) string {
	s := string(b)
	if v, ok := iccFourCCDictionary[s]; ok {
		return v
	}
	return s
}

// ICCRecord is an order-irrelevant mapping from known-tag keyword to
// decoded value: a string, or an [x,y,z] triple for XYZ tags.
type ICCRecord map[string]any

// ICCOptions configures ParseICC.
type ICCOptions struct {
	// Warnf, if set, is called for tag-table entries whose signature is
	// not in iccKnownTags (they are skipped, never an error). Defaults to
	// a no-op.
	Warnf func(string, ...any)
}

// ParseICC parses buf as an already-inflated ICC profile payload
// (big-endian throughout). The caller is responsible for any surrounding
// container's DEFLATE decompression (e.g. a PNG iCCP chunk).
func ParseICC(buf []byte, opts ICCOptions) (rec ICCRecord, err error) {
	defer recoverParseError(&err)

	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}

	cur := newByteCursor(buf, false)

	profileSize := cur.ReadU32()
	if int(profileSize) != len(buf) {
		stop(newInvalidFormatError(&InvalidICCError{Reason: "length mismatch"}))
	}

	out := ICCRecord{}

	cur.Seek(36)
	sigSpan := cur.GetSpan(4)
	if !bytes.Equal(cur.BytesForSpan(sigSpan), iccSignatureACSP) {
		stop(newInvalidFormatError(&InvalidICCError{Reason: "missing signature"}))
	}

	cur.Seek(8)
	version := cur.ReadU32()
	if label, known := iccVersionNames[version]; known {
		out["version"] = label
	}

	cur.Seek(64)
	intent := cur.ReadU32()
	if label, known := iccIntentString(intent); known {
		out["intent"] = label
	}

	for _, attr := range []struct {
		offset int
		key    string
	}{
		{4, "cmm"}, {12, "deviceClass"}, {16, "colorSpace"},
		{20, "connectionSpace"}, {40, "platform"}, {48, "manufacturer"},
		{52, "model"}, {80, "creator"},
	} {
		cur.Seek(attr.offset)
		v := cur.ReadU32()
		if v == 0 {
			continue
		}
		cur.Seek(attr.offset)
		span := cur.GetSpan(4)
		out[attr.key] = iccFourCCLabel(cur.BytesForSpan(span))
	}

	cur.Seek(128)
	tagCount := cur.ReadU32()

	for i := uint32(0); i < tagCount; i++ {
		entryOffset := 132 + int(i)*12
		cur.Seek(entryOffset)
		sigSpan := cur.GetSpan(4)
		sig := string(cur.BytesForSpan(sigSpan))
		tagOffset := cur.ReadU32()
		tagSize := cur.ReadU32()

		label, known := iccKnownTags[sig]
		if !known {
			opts.Warnf("spanraster: skipping unrecognized icc tag %q", sig)
			continue
		}

		if int(tagOffset) > len(buf) {
			stop(newInvalidFormatError(&InvalidICCError{Reason: "tag offset out of bounds"}))
		}

		cur.Seek(int(tagOffset))
		typeSpan := cur.GetSpan(4)
		tagType := string(cur.BytesForSpan(typeSpan))

		switch tagType {
		case "desc":
			cur.Seek(int(tagOffset) + 8)
			textSize := cur.ReadU32()
			if textSize > tagSize {
				stop(newInvalidFormatError(&InvalidICCError{Reason: "desc text size exceeds tag size"}))
			}
			cur.Seek(int(tagOffset) + 12)
			out[label] = cur.StringForSpan(cur.GetSpan(int(textSize)))
		case "text":
			cur.Seek(int(tagOffset) + 8)
			out[label] = cur.StringForSpan(cur.GetSpan(int(tagSize) - 14))
		case "mluc":
			cur.Seek(int(tagOffset) + 8)
			numNames := cur.ReadU32()
			recordSize := cur.ReadU32()
			if recordSize != 12 {
				stop(newInvalidFormatError(&InvalidICCError{Reason: "mluc record size must be 12"}))
			}
			if numNames > 0 {
				// First record starts immediately after the 16-byte mluc
				// header (type, reserved, numNames, recordSize); each record
				// is {language(2), country(2), length(4), offset(4)}, so the
				// length field sits 4 bytes into the record.
				cur.Seek(int(tagOffset) + 16 + 4)
				nameLen := cur.ReadU32()
				nameOffset := cur.ReadU32()
				cur.Seek(int(tagOffset) + int(nameOffset))
				out[label] = decodeUTF16BE(cur.BytesForSpan(cur.GetSpan(int(nameLen))))
			}
		case "XYZ ":
			cur.Seek(int(tagOffset) + 8)
			x := cur.ReadI32()
			y := cur.ReadI32()
			z := cur.ReadI32()
			out[label] = [3]float64{fixedQ16_16(x), fixedQ16_16(y), fixedQ16_16(z)}
		default:
			// Unknown tag type for a known keyword: skip silently, same
			// as an unknown tag signature.
		}
	}

	return out, nil
}

func fixedQ16_16(v int32) float64 {
	return float64(v) / 65536.0
}

// iccVersionNames maps the u32 at header offset 8 to a display version.
// Only released profile versions are mapped; an unrecognized value leaves
// the version field absent rather than guessing at a rendering.
var iccVersionNames = map[uint32]string{
	0x02000000: "2.0",
	0x02100000: "2.1",
	0x02200000: "2.2",
	0x02400000: "2.4",
	0x04000000: "4.0",
	0x04200000: "4.2",
	0x04300000: "4.3",
	0x04400000: "4.4",
}

func iccIntentString(v uint32) (string, bool) {
	switch v {
	case 0:
		return "Perceptual", true
	case 1:
		return "Relative Colorimetric", true
	case 2:
		return "Saturation", true
	case 3:
		return "Absolute Colorimetric", true
	default:
		return "", false
	}
}

// decodeUTF16BE decodes b as UTF-16BE, falling back to a raw byte string
// if the decoder reports malformed input.
func decodeUTF16BE(b []byte) string {
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
