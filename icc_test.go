// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

// buildMinimalICC assembles a 128-byte ICC header, a one-entry tag table,
// and a single "desc" tag's payload, laid out at fixed offsets per the ICC
// profile format (all fields big-endian).
func buildMinimalICC() []byte {
	const (
		descTagOffset = 144
		descTextSize  = 6 // "Hello\x00"
		descTagSize   = 18
		totalLen      = descTagOffset + 12 + descTextSize
	)

	buf := make([]byte, totalLen)

	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLen)) // profile size
	copy(buf[36:40], "acsp")
	binary.BigEndian.PutUint32(buf[8:12], 0x04300000) // version 4.3
	binary.BigEndian.PutUint32(buf[64:68], 0)         // intent: Perceptual
	copy(buf[12:16], "mntr")                          // device class

	binary.BigEndian.PutUint32(buf[128:132], 1) // tag count

	copy(buf[132:136], "desc")
	binary.BigEndian.PutUint32(buf[136:140], descTagOffset)
	binary.BigEndian.PutUint32(buf[140:144], descTagSize)

	copy(buf[descTagOffset:descTagOffset+4], "desc") // tag type
	binary.BigEndian.PutUint32(buf[descTagOffset+8:descTagOffset+12], descTextSize)
	copy(buf[descTagOffset+12:descTagOffset+12+descTextSize], "Hello\x00")

	return buf
}

func TestParseICCDescAndVersion(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseICC(buildMinimalICC(), ICCOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(rec["version"], qt.Equals, "4.3")
	c.Assert(rec["description"], qt.Equals, "Hello\x00")
	c.Assert(rec["deviceClass"], qt.Equals, "Monitor")
}

// TestParseICCIntentZeroIsPresent guards against a regression where an
// intent value of 0 ("Perceptual") was mistaken for "field absent" and
// silently dropped.
func TestParseICCIntentZeroIsPresent(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseICC(buildMinimalICC(), ICCOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(rec["intent"], qt.Equals, "Perceptual")
}

// buildICCWithWhitepoint assembles a profile whose single tag is a "wtpt"
// XYZType entry: the "XYZ " type signature, 4 reserved bytes, then three
// Q16.16 fixed-point values.
func buildICCWithWhitepoint() []byte {
	const (
		tagOffset = 144
		tagSize   = 20
		totalLen  = tagOffset + tagSize
	)

	buf := make([]byte, totalLen)

	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLen))
	copy(buf[36:40], "acsp")

	binary.BigEndian.PutUint32(buf[128:132], 1) // tag count

	copy(buf[132:136], "wtpt")
	binary.BigEndian.PutUint32(buf[136:140], tagOffset)
	binary.BigEndian.PutUint32(buf[140:144], tagSize)

	copy(buf[tagOffset:tagOffset+4], "XYZ ")
	binary.BigEndian.PutUint32(buf[tagOffset+8:tagOffset+12], 0x00010000)  // 1.0
	binary.BigEndian.PutUint32(buf[tagOffset+12:tagOffset+16], 0x00010000) // 1.0
	binary.BigEndian.PutUint32(buf[tagOffset+16:tagOffset+20], 0x00008000) // 0.5

	return buf
}

func TestParseICCWhitepointXYZ(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseICC(buildICCWithWhitepoint(), ICCOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(rec["whitepoint"], qt.Equals, [3]float64{1, 1, 0.5})
}

// buildICCWithMluc assembles a profile whose single tag is a "vued" entry
// of type "mluc": a 16-byte mluc header (type, reserved, record count,
// record size), one {language, country, length, offset} record, then the
// UTF-16BE string data the record points at.
func buildICCWithMluc() []byte {
	const (
		tagOffset  = 144
		nameOffset = 28 // relative to tag start, past header + one record
		nameLen    = 4  // "Hi" in UTF-16BE
		tagSize    = nameOffset + nameLen
		totalLen   = tagOffset + tagSize
	)

	buf := make([]byte, totalLen)

	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLen))
	copy(buf[36:40], "acsp")

	binary.BigEndian.PutUint32(buf[128:132], 1) // tag count

	copy(buf[132:136], "vued")
	binary.BigEndian.PutUint32(buf[136:140], tagOffset)
	binary.BigEndian.PutUint32(buf[140:144], tagSize)

	copy(buf[tagOffset:tagOffset+4], "mluc")
	binary.BigEndian.PutUint32(buf[tagOffset+8:tagOffset+12], 1)   // record count
	binary.BigEndian.PutUint32(buf[tagOffset+12:tagOffset+16], 12) // record size
	copy(buf[tagOffset+16:tagOffset+18], "en")                     // language
	copy(buf[tagOffset+18:tagOffset+20], "US")                     // country
	binary.BigEndian.PutUint32(buf[tagOffset+20:tagOffset+24], nameLen)
	binary.BigEndian.PutUint32(buf[tagOffset+24:tagOffset+28], nameOffset)
	copy(buf[tagOffset+nameOffset:tagOffset+nameOffset+nameLen], "\x00H\x00i")

	return buf
}

func TestParseICCMlucFirstRecord(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseICC(buildICCWithMluc(), ICCOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(rec["viewingConditionsDescription"], qt.Equals, "Hi")
}

// buildICCWithText assembles a profile whose single tag is a "cprt" entry
// of type "text": the type signature, 4 reserved bytes, then the body.
func buildICCWithText() []byte {
	const (
		tagOffset = 144
		tagSize   = 22
		totalLen  = tagOffset + tagSize
	)

	buf := make([]byte, totalLen)

	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLen))
	copy(buf[36:40], "acsp")

	binary.BigEndian.PutUint32(buf[128:132], 1) // tag count

	copy(buf[132:136], "cprt")
	binary.BigEndian.PutUint32(buf[136:140], tagOffset)
	binary.BigEndian.PutUint32(buf[140:144], tagSize)

	copy(buf[tagOffset:tagOffset+4], "text")
	copy(buf[tagOffset+8:], "copyleft")

	return buf
}

func TestParseICCTextTag(t *testing.T) {
	c := qt.New(t)

	rec, err := ParseICC(buildICCWithText(), ICCOptions{})
	c.Assert(err, qt.IsNil)
	c.Assert(rec["copyright"], qt.Equals, "copyleft")
}

// TestParseICCUnknownVersionAbsent guards the "present exactly on a known
// enum hit" rule: a version word outside the known set leaves the field out
// entirely rather than rendering a guess.
func TestParseICCUnknownVersionAbsent(t *testing.T) {
	c := qt.New(t)

	buf := buildMinimalICC()
	binary.BigEndian.PutUint32(buf[8:12], 0x09990000)

	rec, err := ParseICC(buf, ICCOptions{})
	c.Assert(err, qt.IsNil)
	_, present := rec["version"]
	c.Assert(present, qt.IsFalse)
}

func TestParseICCLengthMismatch(t *testing.T) {
	c := qt.New(t)

	buf := buildMinimalICC()
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)+1))

	_, err := ParseICC(buf, ICCOptions{})
	c.Assert(err, qt.ErrorIs, errInvalidFormat)
}

func TestParseICCMissingSignature(t *testing.T) {
	c := qt.New(t)

	buf := buildMinimalICC()
	copy(buf[36:40], "xxxx")

	_, err := ParseICC(buf, ICCOptions{})
	c.Assert(err, qt.ErrorIs, errInvalidFormat)
}
