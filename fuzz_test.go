// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import "testing"

// One fuzz target per container format, seeded from this package's own
// hand-built minimal fixtures. Every Parse* entrypoint recovers internal
// panics into *InvalidFormatError via recoverParseError, so the only
// failure worth flagging here is an error that is neither nil nor
// format-invalid: a genuine escaped panic or resource exhaustion.

func FuzzParsePNG(f *testing.F) {
	f.Add(buildMinimalPNG())
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := ParsePNG(data, PNGOptions{})
		assertOnlyInvalidFormat(t, err)
	})
}

func FuzzParseGIF(f *testing.F) {
	f.Add(buildMinimalGIF())
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := ParseGIF(data)
		assertOnlyInvalidFormat(t, err)
	})
}

func FuzzParseBMP(f *testing.F) {
	f.Add(buildBMP8bpp())
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := ParseBMP(data)
		assertOnlyInvalidFormat(t, err)
	})
}

func FuzzParseZIP(f *testing.F) {
	f.Add(buildMinimalZIP())
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := ParseZIP(data)
		assertOnlyInvalidFormat(t, err)
	})
}

func FuzzParseEXIF(f *testing.F) {
	f.Add(buildMinimalEXIF())
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := ParseEXIF(data, ExifOptions{})
		assertOnlyInvalidFormat(t, err)
	})
}

func FuzzParseICC(f *testing.F) {
	f.Add(buildMinimalICC())
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := ParseICC(data, ICCOptions{})
		assertOnlyInvalidFormat(t, err)
	})
}

func assertOnlyInvalidFormat(t *testing.T, err error) {
	t.Helper()
	if err != nil && !IsInvalidFormat(err) {
		t.Fatalf("unexpected non-format error: %v (%T)", err, err)
	}
}
