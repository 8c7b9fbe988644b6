// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

var (
	zipSigLocalFileHeader       = []byte{'P', 'K', 0x03, 0x04}
	zipSigCentralDirectoryEntry = []byte{'P', 'K', 0x01, 0x02}
	zipSigEndOfCentralDirectory = []byte{'P', 'K', 0x05, 0x06}
)

// EndOfCentralDirectory is the trailing record anchoring a ZIP archive's
// central directory.
type EndOfCentralDirectory struct {
	DiskNum      uint16
	DiskOfCD     uint16
	DiskEntries  uint16
	TotalEntries uint16
	CDSize       uint32
	CDOffset     uint32
	CommentLen   uint16
	Comment      Span
	Span         Span
}

// CentralDirectoryFileHeader is one per-archive-member record in the ZIP
// Central Directory. Local file headers and data descriptors are not
// parsed; only the Central Directory is needed to enumerate members.
type CentralDirectoryFileHeader struct {
	OS                uint8
	ZipVersion        uint8
	VersionNeeded     uint16
	Flags             uint16
	Compression       uint16
	MTime             uint32
	CRC               uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	NameLen           uint16
	ExtraLen          uint16
	CommentLen        uint16
	DiskStart         uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32
	Name              Span
	Extra             Span
	Comment           Span
	Span              Span
}

// ZIPRecord is the result of ParseZIP.
type ZIPRecord struct {
	FileHeaders []CentralDirectoryFileHeader
	End         EndOfCentralDirectory
	Buffer      []byte
}

// ParseZIP locates the End-of-Central-Directory record by scanning
// backwards from the end of buf, then walks the Central Directory File
// Headers it anchors.
func ParseZIP(buf []byte) (rec *ZIPRecord, err error) {
	defer recoverParseError(&err)

	eocdStart := findEOCD(buf)
	if eocdStart < 0 {
		stop(newInvalidFormatError(ErrMissingCentralDirectory))
	}

	cur := newByteCursor(buf, true)
	cur.Seek(eocdStart)
	cur.ExpectBytes(zipSigEndOfCentralDirectory)

	diskNum := cur.ReadU16()
	diskOfCD := cur.ReadU16()
	diskEntries := cur.ReadU16()
	totalEntries := cur.ReadU16()
	cdSize := cur.ReadU32()
	cdOffset := cur.ReadU32()
	commentLen := cur.ReadU16()
	comment := cur.GetSpan(int(commentLen))
	if !cur.AtEnd() {
		stop(newInvalidFormatError(ErrTrailingBytes))
	}

	end := EndOfCentralDirectory{
		DiskNum: diskNum, DiskOfCD: diskOfCD, DiskEntries: diskEntries,
		TotalEntries: totalEntries, CDSize: cdSize, CDOffset: cdOffset,
		CommentLen: commentLen, Comment: comment,
		Span: Span{Start: eocdStart, End: cur.Pos()},
	}

	rec = &ZIPRecord{End: end, Buffer: buf}

	cur.Seek(int(cdOffset))
	for {
		if cur.Pos()+4 > len(buf) {
			break
		}
		if !cur.ConsumeIfEquals(zipSigCentralDirectoryEntry) {
			break
		}
		start := cur.Pos() - 4

		osByte := cur.ReadU8()
		zipVersion := cur.ReadU8()
		versionNeeded := cur.ReadU16()
		flags := cur.ReadU16()
		compression := cur.ReadU16()
		mtime := cur.ReadU32()
		crc := cur.ReadU32()
		compressedSize := cur.ReadU32()
		uncompressedSize := cur.ReadU32()
		nameLen := cur.ReadU16()
		extraLen := cur.ReadU16()
		fileCommentLen := cur.ReadU16()
		diskStart := cur.ReadU16()
		internalAttrs := cur.ReadU16()
		externalAttrs := cur.ReadU32()
		localHeaderOffset := cur.ReadU32()
		name := cur.GetSpan(int(nameLen))
		extra := cur.GetSpan(int(extraLen))
		fileComment := cur.GetSpan(int(fileCommentLen))

		rec.FileHeaders = append(rec.FileHeaders, CentralDirectoryFileHeader{
			OS: osByte, ZipVersion: zipVersion, VersionNeeded: versionNeeded,
			Flags: flags, Compression: compression, MTime: mtime, CRC: crc,
			CompressedSize: compressedSize, UncompressedSize: uncompressedSize,
			NameLen: nameLen, ExtraLen: extraLen, CommentLen: fileCommentLen,
			DiskStart: diskStart, InternalAttrs: internalAttrs,
			ExternalAttrs: externalAttrs, LocalHeaderOffset: localHeaderOffset,
			Name: name, Extra: extra, Comment: fileComment,
			Span: Span{Start: start, End: cur.Pos()},
		})
	}

	return rec, nil
}

// findEOCD scans buf backwards for the End-of-Central-Directory signature,
// returning its start index or -1 if none is found. A backward scan is
// required because the EoCD carries a variable-length trailing comment, so
// its position cannot be computed from the front of the file.
func findEOCD(buf []byte) int {
	sig := zipSigEndOfCentralDirectory
	for i := len(buf) - len(sig); i >= 0; i-- {
		if buf[i] == sig[0] && buf[i+1] == sig[1] && buf[i+2] == sig[2] && buf[i+3] == sig[3] {
			return i
		}
	}
	return -1
}
