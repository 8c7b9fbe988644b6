// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"errors"
	"fmt"
)

// Internal sentinel used to unwind a parse via panic/recover; see stop()
// below and the recover() wrapper in each Parse* entrypoint.
var errStop = errors.New("stop")

// ErrEndOfInput is returned (wrapped) when a read would exceed the buffer.
var ErrEndOfInput = errors.New("end of input")

// ErrBitCursorOutOfBounds is returned when a bit-level read goes past the buffer.
var ErrBitCursorOutOfBounds = errors.New("bit cursor out of bounds")

// ErrMissingCentralDirectory is returned when a ZIP end-of-central-directory
// signature cannot be located by the reverse scan.
var ErrMissingCentralDirectory = errors.New("missing end of central directory")

// ErrTrailingBytes is returned when bytes remain after a format's declared
// terminator (GIF trailer, ZIP EoCD end, ...).
var ErrTrailingBytes = errors.New("trailing bytes after terminator")

// UnexpectedByteError reports an expect_byte/expect_bytes mismatch.
type UnexpectedByteError struct {
	Expected byte
	Found    byte
}

func (e *UnexpectedByteError) Error() string {
	return fmt.Sprintf("unexpected byte: expected 0x%02x, found 0x%02x", e.Expected, e.Found)
}

// BadSignatureError reports a top-level magic-byte mismatch.
type BadSignatureError struct {
	Format string
}

func (e *BadSignatureError) Error() string {
	return fmt.Sprintf("bad %s signature", e.Format)
}

// InvalidICCError reports an ICC-specific structural failure.
type InvalidICCError struct {
	Reason string
}

func (e *InvalidICCError) Error() string {
	return "invalid icc profile: " + e.Reason
}

// InvalidColorTableLengthError reports a color-table byte count that is not
// a multiple of the per-entry size (3 for GIF, 4 for BMP palettes).
type InvalidColorTableLengthError struct {
	Length     int
	EntrySize  int
	SourceName string
}

func (e *InvalidColorTableLengthError) Error() string {
	return fmt.Sprintf("%s: color table length %d is not a multiple of %d", e.SourceName, e.Length, e.EntrySize)
}

// UnknownExifTypeError reports an EXIF field type code outside {1,2,3,4,5,7,9,10}.
type UnknownExifTypeError struct {
	Type uint16
}

func (e *UnknownExifTypeError) Error() string {
	return fmt.Sprintf("unknown exif type %d", e.Type)
}

// SchemaMismatchError reports that a PNG chunk could not be decoded by its
// known schema.
type SchemaMismatchError struct {
	ChunkName string
	Err       error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("chunk %q did not match its schema: %v", e.ChunkName, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// UnexpectedExtensionError reports a GIF extension label outside the known set.
type UnexpectedExtensionError struct {
	Label byte
}

func (e *UnexpectedExtensionError) Error() string {
	return fmt.Sprintf("unexpected gif extension label 0x%02x", e.Label)
}

// UnexpectedTrailingBitsError reports non-zero bits remaining in an LZW
// stream after the end code.
type UnexpectedTrailingBitsError struct{}

func (e *UnexpectedTrailingBitsError) Error() string {
	return "unexpected non-zero trailing bits after lzw end code"
}

// errInvalidFormat is the root sentinel every concrete *InvalidFormatError
// wraps, so callers can test with IsInvalidFormat/errors.Is without caring
// about the specific kind.
var errInvalidFormat = &InvalidFormatError{Err: errors.New("invalid format")}

// IsInvalidFormat reports whether err (or something it wraps) is an
// InvalidFormatError.
func IsInvalidFormat(err error) bool {
	return errors.Is(err, errInvalidFormat)
}

// InvalidFormatError wraps any of the above error kinds to signal that the
// input could not be parsed as the requested format.
type InvalidFormatError struct {
	Err error
}

func (e *InvalidFormatError) Error() string {
	return "invalid format: " + e.Err.Error()
}

func (e *InvalidFormatError) Unwrap() error { return e.Err }

// Is reports whether target is an *InvalidFormatError, so errors.Is(err,
// errInvalidFormat) matches any instance regardless of the wrapped reason.
func (e *InvalidFormatError) Is(target error) bool {
	_, ok := target.(*InvalidFormatError)
	return ok
}

func newInvalidFormatError(err error) error {
	if err == nil {
		return nil
	}
	return &InvalidFormatError{Err: err}
}

func newInvalidFormatErrorf(format string, args ...any) error {
	return &InvalidFormatError{Err: fmt.Errorf(format, args...)}
}

// stop panics with err, unwinding to the nearest recover() in a Parse*
// entrypoint. This lets deeply nested field decoding (EXIF IFDs, PNG chunk
// schemas, GIF sub-block streams) read bytes without an `if err != nil` at
// every single call site.
func stop(err error) {
	panic(err)
}

// recoverParseError turns a panic raised via stop() into a returned error.
// Every panic value that implements error, runtime errors included, is
// wrapped as an *InvalidFormatError; a panic value that is not an error is
// re-raised.
func recoverParseError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(error)
	if !ok {
		panic(r)
	}
	if e == errStop {
		return
	}
	*err = newInvalidFormatError(e)
}
