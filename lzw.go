// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

// DecodeGIFLZW decodes GIF-flavored LZW variable-width codes into the
// index stream (palette indices, not RGB pixels). minCodeSize is the value
// stored immediately before the sub-block stream in a GIF Image; data is
// the concatenation of that image's sub-blocks (see concatSubBlocks).
//
// The table-building rules (KwKwK handling, code-width growth capped at 12
// bits, mandatory leading clear code) follow the GIF89a LZW variant, which
// is LSB-first and carries its clear and end-of-information codes in band.
func DecodeGIFLZW(minCodeSize uint8, data []byte) (out []byte, err error) {
	defer recoverParseError(&err)
	out = decodeGIFLZWUnchecked(minCodeSize, data)
	return out, err
}

func decodeGIFLZWUnchecked(minCodeSize uint8, data []byte) []byte {
	if len(data) == 0 {
		return []byte{}
	}

	clearCode := uint32(1) << minCodeSize
	endCode := clearCode + 1

	const maxWidth = 12

	bc := newBitCursor(data)

	var table [][]byte
	resetTable := func() {
		table = make([][]byte, 0, 1<<maxWidth)
		for i := uint32(0); i < clearCode; i++ {
			table = append(table, []byte{byte(i)})
		}
		// clearCode and endCode entries are placeholders; never indexed into.
		table = append(table, nil, nil)
	}

	width := int(minCodeSize) + 1
	resetTable()

	var out []byte
	var prev []byte

	readCode := func() uint32 {
		return bc.ReadNBits(width)
	}

	first := readCode()
	if first != clearCode {
		stop(newInvalidFormatErrorf("lzw: stream does not start with clear code"))
	}

	for {
		code := readCode()
		if code == clearCode {
			resetTable()
			width = int(minCodeSize) + 1
			prev = nil
			continue
		}
		if code == endCode {
			break
		}

		var entry []byte
		if int(code) < len(table) {
			entry = table[code]
			out = append(out, entry...)
			if prev != nil {
				newEntry := make([]byte, 0, len(prev)+1)
				newEntry = append(newEntry, prev...)
				newEntry = append(newEntry, entry[0])
				table = append(table, newEntry)
			}
		} else if int(code) == len(table) {
			if prev == nil {
				stop(newInvalidFormatErrorf("lzw: invalid code %d with no previous entry", code))
			}
			k := prev[0]
			newEntry := make([]byte, 0, len(prev)+1)
			newEntry = append(newEntry, prev...)
			newEntry = append(newEntry, k)
			out = append(out, newEntry...)
			table = append(table, newEntry)
			entry = newEntry
		} else {
			stop(newInvalidFormatErrorf("lzw: invalid code %d", code))
		}

		if len(table) == 1<<uint(width) && width < maxWidth {
			width++
		}

		prev = entry
	}

	if !bc.AtEnd() {
		stop(newInvalidFormatError(&UnexpectedTrailingBitsError{}))
	}

	if out == nil {
		out = []byte{}
	}
	return out
}
