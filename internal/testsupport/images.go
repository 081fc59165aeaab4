package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/disintegration/imaging"
)

// GPSCoordinate is a degrees/minutes/seconds rational triple plus the
// hemisphere reference letter, matching how cameras record positions.
type GPSCoordinate struct {
	Ref string
	DMS [3][2]uint32
}

// EXIFMeta describes the metadata baked into a synthetic test JPEG.
// Zero-valued fields are omitted from the generated APP1 segment.
type EXIFMeta struct {
	Make             string
	Model            string
	LensModel        string
	DateTimeOriginal string
	Orientation      int
	ISO              int
	MeteringMode     int
	ExposureProgram  int
	FocalLength      [2]uint32
	FNumber          [2]uint32
	ExposureTime     [2]uint32
	ExposureBias     *[2]int32
	Lat              *GPSCoordinate
	Lon              *GPSCoordinate
}

// WriteJPEG writes a solid-color baseline JPEG without any EXIF data.
func WriteJPEG(t testing.TB, path string, width, height int) {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 90, B: 160, A: 255})
	writeJPEGFile(t, path, JPEGBytes(t, img))
}

// WriteEXIFJPEG writes a JPEG carrying an APP1 EXIF segment built from meta.
func WriteEXIFJPEG(t testing.TB, path string, width, height int, meta EXIFMeta) {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 160, G: 90, B: 40, A: 255})
	plain := JPEGBytes(t, img)

	payload := append([]byte("Exif\x00\x00"), buildTIFF(meta)...)
	segment := make([]byte, 4, 4+len(payload))
	segment[0] = 0xFF
	segment[1] = 0xE1
	binary.BigEndian.PutUint16(segment[2:4], uint16(len(payload)+2))
	segment = append(segment, payload...)

	// Splice the APP1 segment directly after the SOI marker.
	out := make([]byte, 0, len(plain)+len(segment))
	out = append(out, plain[:2]...)
	out = append(out, segment...)
	out = append(out, plain[2:]...)
	writeJPEGFile(t, path, out)
}

// CornerImage returns an image with four distinct corner pixels so
// orientation transforms can be verified by sampling.
func CornerImage(width, height int) *image.NRGBA {
	img := imaging.New(width, height, color.NRGBA{A: 255})
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(width-1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, height-1, color.NRGBA{B: 255, A: 255})
	img.SetNRGBA(width-1, height-1, color.NRGBA{R: 255, G: 255, A: 255})
	return img
}

// JPEGBytes encodes img as a baseline JPEG and returns the bytes.
func JPEGBytes(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func writeJPEGFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for test jpeg: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test jpeg: %v", err)
	}
}

// TIFF entry types used by the builder.
const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSRational = 10
)

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func entryASCII(tag uint16, s string) tiffEntry {
	data := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func entryShort(tag uint16, v uint16) tiffEntry {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, v)
	return tiffEntry{tag: tag, typ: typeShort, count: 1, data: data}
}

func entryLong(tag uint16, v uint32) tiffEntry {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return tiffEntry{tag: tag, typ: typeLong, count: 1, data: data}
}

func entryRationals(tag uint16, pairs ...[2]uint32) tiffEntry {
	data := make([]byte, 0, len(pairs)*8)
	for _, p := range pairs {
		var b [8]byte
		binary.LittleEndian.PutUint32(b[0:4], p[0])
		binary.LittleEndian.PutUint32(b[4:8], p[1])
		data = append(data, b[:]...)
	}
	return tiffEntry{tag: tag, typ: typeRational, count: uint32(len(pairs)), data: data}
}

func entrySRational(tag uint16, num, den int32) tiffEntry {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], uint32(num))
	binary.LittleEndian.PutUint32(data[4:8], uint32(den))
	return tiffEntry{tag: tag, typ: typeSRational, count: 1, data: data}
}

func ifdSize(entries []tiffEntry) (block, ext uint32) {
	block = 2 + uint32(len(entries))*12 + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			ext += uint32(len(e.data) + len(e.data)%2)
		}
	}
	return block, ext
}

func appendIFD(out []byte, entries []tiffEntry, start uint32) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	block, _ := ifdSize(entries)
	extOffset := start + block
	var ext []byte

	var count [2]byte
	binary.LittleEndian.PutUint16(count[:], uint16(len(entries)))
	out = append(out, count[:]...)

	for _, e := range entries {
		var hdr [8]byte
		binary.LittleEndian.PutUint16(hdr[0:2], e.tag)
		binary.LittleEndian.PutUint16(hdr[2:4], e.typ)
		binary.LittleEndian.PutUint32(hdr[4:8], e.count)
		out = append(out, hdr[:]...)

		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			out = append(out, inline[:]...)
			continue
		}
		var off [4]byte
		binary.LittleEndian.PutUint32(off[:], extOffset)
		out = append(out, off[:]...)
		ext = append(ext, e.data...)
		if len(e.data)%2 != 0 {
			ext = append(ext, 0)
		}
		extOffset += uint32(len(e.data) + len(e.data)%2)
	}

	out = append(out, 0, 0, 0, 0) // no next IFD
	return append(out, ext...)
}

func buildTIFF(meta EXIFMeta) []byte {
	var ifd0, exifIFD, gpsIFD []tiffEntry

	if meta.Make != "" {
		ifd0 = append(ifd0, entryASCII(0x010F, meta.Make))
	}
	if meta.Model != "" {
		ifd0 = append(ifd0, entryASCII(0x0110, meta.Model))
	}
	if meta.Orientation != 0 {
		ifd0 = append(ifd0, entryShort(0x0112, uint16(meta.Orientation)))
	}

	if meta.ExposureTime != [2]uint32{} {
		exifIFD = append(exifIFD, entryRationals(0x829A, meta.ExposureTime))
	}
	if meta.FNumber != [2]uint32{} {
		exifIFD = append(exifIFD, entryRationals(0x829D, meta.FNumber))
	}
	if meta.ExposureProgram != 0 {
		exifIFD = append(exifIFD, entryShort(0x8822, uint16(meta.ExposureProgram)))
	}
	if meta.ISO != 0 {
		exifIFD = append(exifIFD, entryShort(0x8827, uint16(meta.ISO)))
	}
	if meta.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, entryASCII(0x9003, meta.DateTimeOriginal))
	}
	if meta.ExposureBias != nil {
		exifIFD = append(exifIFD, entrySRational(0x9204, meta.ExposureBias[0], meta.ExposureBias[1]))
	}
	if meta.MeteringMode != 0 {
		exifIFD = append(exifIFD, entryShort(0x9207, uint16(meta.MeteringMode)))
	}
	if meta.FocalLength != [2]uint32{} {
		exifIFD = append(exifIFD, entryRationals(0x920A, meta.FocalLength))
	}
	if meta.LensModel != "" {
		exifIFD = append(exifIFD, entryASCII(0xA434, meta.LensModel))
	}

	if meta.Lat != nil && meta.Lon != nil {
		gpsIFD = append(gpsIFD,
			entryASCII(0x0001, meta.Lat.Ref),
			entryRationals(0x0002, meta.Lat.DMS[0], meta.Lat.DMS[1], meta.Lat.DMS[2]),
			entryASCII(0x0003, meta.Lon.Ref),
			entryRationals(0x0004, meta.Lon.DMS[0], meta.Lon.DMS[1], meta.Lon.DMS[2]),
		)
	}

	// Pointer entries are part of IFD0, so add them before sizing.
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, entryLong(0x8769, 0))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, entryLong(0x8825, 0))
	}

	block0, ext0 := ifdSize(ifd0)
	exifStart := 8 + block0 + ext0
	blockE, extE := ifdSize(exifIFD)
	gpsStart := exifStart + blockE + extE
	if len(exifIFD) == 0 {
		gpsStart = exifStart
	}

	for i := range ifd0 {
		switch ifd0[i].tag {
		case 0x8769:
			binary.LittleEndian.PutUint32(ifd0[i].data, exifStart)
		case 0x8825:
			binary.LittleEndian.PutUint32(ifd0[i].data, gpsStart)
		}
	}

	out := make([]byte, 8)
	out[0], out[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(out[2:4], 42)
	binary.LittleEndian.PutUint32(out[4:8], 8)

	out = appendIFD(out, ifd0, 8)
	if len(exifIFD) > 0 {
		out = appendIFD(out, exifIFD, exifStart)
	}
	if len(gpsIFD) > 0 {
		out = appendIFD(out, gpsIFD, gpsStart)
	}
	return out
}
