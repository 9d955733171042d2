package raw

import (
	"encoding/binary"
)

// field is one IFD entry for buildTIFF.
type field struct {
	tag   Tag
	typ   uint16
	count int
	data  []byte
}

func shorts(tag Tag, v ...uint16) field {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(b[2*i:], x)
	}
	return field{tag, typeShort, len(v), b}
}

func longs(tag Tag, v ...uint32) field {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], x)
	}
	return field{tag, typeLong, len(v), b}
}

func rationals(tag Tag, v ...[2]uint32) field {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[8*i:], x[0])
		binary.LittleEndian.PutUint32(b[8*i+4:], x[1])
	}
	return field{tag, typeRational, len(v), b}
}

func srationals(tag Tag, v ...[2]int32) field {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[8*i:], uint32(x[0]))
		binary.LittleEndian.PutUint32(b[8*i+4:], uint32(x[1]))
	}
	return field{tag, typeSRational, len(v), b}
}

func byteField(tag Tag, typ uint16, b ...byte) field {
	return field{tag, typ, len(b), b}
}

// buildTIFF lays out a little-endian file: header, payload at offset 8,
// one IFD, then the out-of-line entry values.
func buildTIFF(magic uint16, payload []byte, fields ...field) []byte {
	le := binary.LittleEndian
	ifdOff := headerSize + len(payload)
	ifdOff += ifdOff & 1
	extraOff := ifdOff + 2 + 12*len(fields) + 4

	out := make([]byte, ifdOff, extraOff)
	copy(out, "II")
	le.PutUint16(out[2:], magic)
	le.PutUint32(out[4:], uint32(ifdOff))
	copy(out[headerSize:], payload)

	var extra []byte
	out = le.AppendUint16(out, uint16(len(fields)))
	for _, f := range fields {
		out = le.AppendUint16(out, uint16(f.tag))
		out = le.AppendUint16(out, f.typ)
		out = le.AppendUint32(out, uint32(f.count))
		if len(f.data) <= 4 {
			var v [4]byte
			copy(v[:], f.data)
			out = append(out, v[:]...)
			continue
		}
		out = le.AppendUint32(out, uint32(extraOff+len(extra)))
		extra = append(extra, f.data...)
		if len(extra)&1 == 1 {
			extra = append(extra, 0)
		}
	}
	out = le.AppendUint32(out, 0)
	return append(out, extra...)
}

// dngLayout describes a synthetic single-IFD DNG.
type dngLayout struct {
	width, height int
	pattern       []byte // 2x2 or 6x6 CFA; nil for 3-sample LinearRaw
	compression   uint16
	neutral       [3][2]uint32
	colorMatrix   [][2]int32
	crop          []uint32 // origin x, y, size w, h
}

// buildDNG encodes samples (16-bit) as a single strip.
func buildDNG(layout dngLayout, strip []byte) []byte {
	cfaDim := uint16(2)
	if len(layout.pattern) == 36 {
		cfaDim = 6
	}
	compression := layout.compression
	if compression == 0 {
		compression = compressionNone
	}
	fields := []field{
		longs(TagNewSubfileType, 0),
		longs(TagImageWidth, uint32(layout.width)),
		longs(TagImageLength, uint32(layout.height)),
		shorts(TagBitsPerSample, 16),
		shorts(TagCompression, compression),
		longs(TagStripOffsets, headerSize),
		longs(TagRowsPerStrip, uint32(layout.height)),
		longs(TagStripByteCounts, uint32(len(strip))),
		byteField(TagDNGVersion, typeByte, 1, 4, 0, 0),
		longs(TagWhiteLevel, 65535),
	}
	if layout.pattern != nil {
		fields = append(fields,
			shorts(TagPhotometric, photometricCFA),
			shorts(TagSamplesPerPixel, 1),
			shorts(TagCFARepeatDim, cfaDim, cfaDim),
			byteField(TagCFAPattern, typeByte, layout.pattern...),
		)
	} else {
		fields = append(fields,
			shorts(TagPhotometric, photometricLinearRaw),
			shorts(TagSamplesPerPixel, 3),
		)
	}
	if layout.neutral != ([3][2]uint32{}) {
		fields = append(fields, rationals(TagAsShotNeutral, layout.neutral[:]...))
	}
	if layout.colorMatrix != nil {
		fields = append(fields, srationals(TagColorMatrix1, layout.colorMatrix...))
	}
	if len(layout.crop) == 4 {
		fields = append(fields,
			longs(TagDefaultCropOrigin, layout.crop[0], layout.crop[1]),
			longs(TagDefaultCropSize, layout.crop[2], layout.crop[3]),
		)
	}
	return buildTIFF(magicTIFF, strip, fields...)
}

var rggb = []byte{cfaRed, cfaGreen, cfaGreen, cfaBlue}

// mosaic returns 16-bit little-endian samples whose value depends on the
// CFA color at each site.
func mosaic(w, h int, pattern []byte, value func(c uint8) uint16) []byte {
	dim := 2
	if len(pattern) == 36 {
		dim = 6
	}
	b := make([]byte, 2*w*h)
	for y := range h {
		for x := range w {
			c := pattern[(y%dim)*dim+x%dim]
			binary.LittleEndian.PutUint16(b[2*(y*w+x):], value(c))
		}
	}
	return b
}
