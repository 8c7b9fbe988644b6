// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package spanraster

// The tag dictionary resolves an EXIF tag number to a human-readable name.
// One table per TIFF/EXIF namespace (Image, Photo, Iop, GPSInfo, MpfInfo),
// searched in a fixed order with the first match winning — tag numbers are
// only unique within a namespace: 0x829a (33434, ExposureTime) genuinely
// appears in both Image and Photo in exiftool's published tag tables, and
// GPS tag 1 collides with Interop tag 1.
var exifNamespaceOrder = []string{"Image", "Photo", "Iop", "GPSInfo", "MpfInfo"}

// Image: IFD0 tags.
var exifImageTags = map[uint16]string{
	0x0100: "ImageWidth",
	0x0101: "ImageLength",
	0x0102: "BitsPerSample",
	0x0103: "Compression",
	0x0106: "PhotometricInterpretation",
	0x010e: "ImageDescription",
	0x010f: "Make",
	0x0110: "Model",
	0x0111: "StripOffsets",
	0x0112: "Orientation",
	0x0115: "SamplesPerPixel",
	0x0116: "RowsPerStrip",
	0x0117: "StripByteCounts",
	0x011a: "XResolution",
	0x011b: "YResolution",
	0x011c: "PlanarConfiguration",
	0x0128: "ResolutionUnit",
	0x0131: "Software",
	0x0132: "DateTime",
	0x013b: "Artist",
	0x013e: "WhitePoint",
	0x013f: "PrimaryChromaticities",
	0x0211: "YCbCrCoefficients",
	0x0212: "YCbCrSubSampling",
	0x0213: "YCbCrPositioning",
	0x0214: "ReferenceBlackWhite",
	0x8298: "Copyright",
	0x8769: "ExifIFDPointer",
	0x8825: "GPSInfoIFDPointer",
	// Present in both Image and Photo in exiftool's own tag tables.
	0x829a: "ExposureTime",
}

// Photo: EXIF sub-IFD tags.
var exifPhotoTags = map[uint16]string{
	0x829a: "ExposureTime",
	0x829d: "FNumber",
	0x8822: "ExposureProgram",
	0x8824: "SpectralSensitivity",
	0x8827: "ISOSpeedRatings",
	0x8828: "OECF",
	0x9000: "ExifVersion",
	0x9003: "DateTimeOriginal",
	0x9004: "DateTimeDigitized",
	0x9101: "ComponentsConfiguration",
	0x9102: "CompressedBitsPerPixel",
	0x9201: "ShutterSpeedValue",
	0x9202: "ApertureValue",
	0x9203: "BrightnessValue",
	0x9204: "ExposureBiasValue",
	0x9205: "MaxApertureValue",
	0x9206: "SubjectDistance",
	0x9207: "MeteringMode",
	0x9208: "LightSource",
	0x9209: "Flash",
	0x920a: "FocalLength",
	0x9214: "SubjectArea",
	0x927c: "MakerNote",
	0x9286: "UserComment",
	0x9290: "SubSecTime",
	0x9291: "SubSecTimeOriginal",
	0x9292: "SubSecTimeDigitized",
	0xa000: "FlashpixVersion",
	0xa001: "ColorSpace",
	0xa002: "PixelXDimension",
	0xa003: "PixelYDimension",
	0xa004: "RelatedSoundFile",
	0xa005: "InteroperabilityIFDPointer",
	0xa20b: "FlashEnergy",
	0xa20e: "FocalPlaneXResolution",
	0xa20f: "FocalPlaneYResolution",
	0xa210: "FocalPlaneResolutionUnit",
	0xa214: "SubjectLocation",
	0xa215: "ExposureIndex",
	0xa217: "SensingMethod",
	0xa300: "FileSource",
	0xa301: "SceneType",
	0xa302: "CFAPattern",
	0xa401: "CustomRendered",
	0xa402: "ExposureMode",
	0xa403: "WhiteBalance",
	0xa404: "DigitalZoomRatio",
	0xa405: "FocalLengthIn35mmFilm",
	0xa406: "SceneCaptureType",
	0xa407: "GainControl",
	0xa408: "Contrast",
	0xa409: "Saturation",
	0xa40a: "Sharpness",
	0xa40c: "SubjectDistanceRange",
	0xa420: "ImageUniqueID",
	0xa433: "LensMake",
	0xa434: "LensModel",
}

// Iop: Interoperability sub-IFD tags.
var exifIopTags = map[uint16]string{
	0x0001: "InteroperabilityIndex",
	0x0002: "InteroperabilityVersion",
	0x1000: "RelatedImageFileFormat",
	0x1001: "RelatedImageWidth",
	0x1002: "RelatedImageLength",
}

// GPSInfo: GPS sub-IFD tags.
var exifGPSTags = map[uint16]string{
	0x00: "GPSVersionID",
	0x01: "GPSLatitudeRef",
	0x02: "GPSLatitude",
	0x03: "GPSLongitudeRef",
	0x04: "GPSLongitude",
	0x05: "GPSAltitudeRef",
	0x06: "GPSAltitude",
	0x07: "GPSTimeStamp",
	0x08: "GPSSatellites",
	0x09: "GPSStatus",
	0x0a: "GPSMeasureMode",
	0x0b: "GPSDOP",
	0x0c: "GPSSpeedRef",
	0x0d: "GPSSpeed",
	0x0e: "GPSTrackRef",
	0x0f: "GPSTrack",
	0x10: "GPSImgDirectionRef",
	0x11: "GPSImgDirection",
	0x12: "GPSMapDatum",
	0x13: "GPSDestLatitudeRef",
	0x14: "GPSDestLatitude",
	0x15: "GPSDestLongitudeRef",
	0x16: "GPSDestLongitude",
	0x17: "GPSDestBearingRef",
	0x18: "GPSDestBearing",
	0x19: "GPSDestDistanceRef",
	0x1a: "GPSDestDistance",
	0x1b: "GPSProcessingMethod",
	0x1c: "GPSAreaInformation",
	0x1d: "GPSDateStamp",
	0x1e: "GPSDifferential",
}

// MpfInfo: Multi-Picture Format (CIPA DC-007) tags.
var exifMpfTags = map[uint16]string{
	0xb000: "MPFVersion",
	0xb001: "NumberOfImages",
	0xb002: "MPImageList",
	0xb101: "ImageUIDList",
	0xb102: "TotalFrames",
}

func exifNamespaceTable(ns string) map[uint16]string {
	switch ns {
	case "Image":
		return exifImageTags
	case "Photo":
		return exifPhotoTags
	case "Iop":
		return exifIopTags
	case "GPSInfo":
		return exifGPSTags
	case "MpfInfo":
		return exifMpfTags
	}
	return nil
}

// lookupExifTagName resolves tag against the namespace-merged dictionary,
// returning the namespace and name of the first match found walking
// exifNamespaceOrder in order.
func lookupExifTagName(tag uint16) (namespace, name string, ok bool) {
	for _, ns := range exifNamespaceOrder {
		if n, found := exifNamespaceTable(ns)[tag]; found {
			return ns, n, true
		}
	}
	return "", "", false
}
