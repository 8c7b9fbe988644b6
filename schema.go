// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

import (
	"reflect"
	"strconv"

	bst "github.com/mixcode/binarystruct"
)

// FieldKind names the on-wire shape of one field in a Schema.
type FieldKind int

const (
	// KindU8 is a single byte.
	KindU8 FieldKind = iota
	// KindU16 is a 2-byte big-endian unsigned integer.
	KindU16
	// KindU32 is a 4-byte big-endian unsigned integer.
	KindU32
	// KindNullTermString is a span running through and including a
	// terminating 0x00 byte.
	KindNullTermString
	// KindRest is a span running from the current position to the
	// schema's declared end (the chunk boundary).
	KindRest
)

// Field is one (name, kind) pair in a Schema.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema is an ordered list of fields describing a fixed record. It is pure
// data — see the schema tables in png.go — so that adding a new known chunk
// name is a declaration, not a new imperative decode function.
type Schema []Field

func (s Schema) isFullyFixed() bool {
	for _, f := range s {
		if f.Kind != KindU8 && f.Kind != KindU16 && f.Kind != KindU32 {
			return false
		}
	}
	return true
}

// Walk drives cur to populate a map of named fields according to schema,
// stopping at end (the exclusive end of the record). Fixed-width-only
// schemas are decoded in one shot via reflect.StructOf + binarystruct;
// schemas containing a null-terminated string or a rest-of-record field
// are walked field-by-field through cur, since those shapes are
// run-length-dependent on the record's declared end rather than a fixed
// byte count binarystruct can express statically.
func (s Schema) Walk(cur *ByteCursor, end int) map[string]any {
	if s.isFullyFixed() {
		data := cur.BytesForSpan(cur.GetSpanTo(end))
		fields, err := decodeFixedSchema(s, data)
		if err != nil {
			stop(newInvalidFormatError(err))
		}
		return fields
	}

	out := make(map[string]any, len(s))
	for _, f := range s {
		switch f.Kind {
		case KindU8:
			out[f.Name] = cur.ReadU8()
		case KindU16:
			out[f.Name] = cur.ReadU16()
		case KindU32:
			out[f.Name] = cur.ReadU32()
		case KindNullTermString:
			out[f.Name] = cur.ReadNullTerminatedString()
		case KindRest:
			out[f.Name] = cur.GetSpanTo(end)
		}
	}
	if cur.Pos() != end {
		// A declared rest/null-term field did not reach the boundary;
		// the remaining bytes belong to no declared field.
		cur.Seek(end)
	}
	return out
}

// decodeFixedSchema decodes a run of fully-fixed-width fields via
// binarystruct by building an anonymous struct type on the fly (one
// exported uintN field per schema entry, in declared order) and letting
// bst.Unmarshal do the big-endian decode.
func decodeFixedSchema(schema Schema, data []byte) (map[string]any, error) {
	structFields := make([]reflect.StructField, len(schema))
	for i, f := range schema {
		var t reflect.Type
		switch f.Kind {
		case KindU8:
			t = reflect.TypeOf(uint8(0))
		case KindU16:
			t = reflect.TypeOf(uint16(0))
		default:
			t = reflect.TypeOf(uint32(0))
		}
		structFields[i] = reflect.StructField{
			Name: fieldIdentifier(i),
			Type: t,
		}
	}

	st := reflect.StructOf(structFields)
	ptr := reflect.New(st)
	if _, err := bst.Unmarshal(data, bst.BigEndian, ptr.Interface()); err != nil {
		return nil, err
	}

	v := ptr.Elem()
	out := make(map[string]any, len(schema))
	for i, f := range schema {
		out[f.Name] = v.Field(i).Interface()
	}
	return out, nil
}

// fieldIdentifier returns a stable, always-valid exported Go identifier for
// reflect.StructOf; the schema's own Field.Name (which may contain
// characters that are not valid in a Go identifier) is carried separately
// in the output map, so the struct field name itself need not be pretty.
func fieldIdentifier(i int) string {
	return "Field" + strconv.Itoa(i)
}
