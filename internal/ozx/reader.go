// Package ozx reads ZIP archives, including RFC-9 zipped OME-Zarr
// (.ozx) containers, without loading the whole central directory when
// the archive advertises the jsonFirst layout.
//
// Supports ZIP64 archives, STORE and DEFLATE entries, and byte-range
// streaming of entry contents.
package ozx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"
)

const (
	methodStored  = 0
	methodDeflate = 8

	zip64Marker   = 0xFFFFFFFF
	zip64Marker16 = 0xFFFF
	zip64ExtraID  = 0x0001

	// 65536 byte max comment plus the 22 byte EOCD record.
	maxEOCDSearch = 65536 + 22
)

var (
	sigLocalHeader  = []byte{0x50, 0x4b, 0x03, 0x04}
	sigCentralDir   = []byte{0x50, 0x4b, 0x01, 0x02}
	sigEOCD         = []byte{0x50, 0x4b, 0x05, 0x06}
	sigEOCD64       = []byte{0x50, 0x4b, 0x06, 0x06}
	sigEOCD64Locate = []byte{0x50, 0x4b, 0x06, 0x07}
)

// ErrInvalidZip indicates the file is not a readable ZIP archive.
var ErrInvalidZip = errors.New("invalid zip archive")

// ErrEntryNotFound indicates the named entry is absent from the archive.
var ErrEntryNotFound = errors.New("entry not found in archive")

// Entry is one file entry from the central directory.
type Entry struct {
	Name             string
	CompressedSize   uint64
	UncompressedSize uint64
	Method           uint16
	CRC32            uint32
	localOffset      uint64
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// isJSON reports whether the entry is Zarr metadata, for the jsonFirst
// early-stop.
func (e Entry) isJSON() bool {
	name := strings.ToLower(e.Name)
	return strings.HasSuffix(name, ".json") ||
		strings.HasSuffix(name, ".zattrs") ||
		strings.HasSuffix(name, ".zarray") ||
		strings.HasSuffix(name, ".zgroup")
}

// Reader reads one ZIP archive.
type Reader struct {
	f        *os.File
	size     int64
	comment  string
	metadata *Metadata

	entries map[string]Entry
	order   []string

	cdOffset uint64
	cdCount  uint64
	zip64    bool
	parsed   bool
}

// Open opens the archive and locates its central directory.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r := &Reader{
		f:       f,
		size:    stat.Size(),
		entries: make(map[string]Entry),
	}
	if err := r.parseEOCD(); err != nil {
		f.Close()
		return nil, err
	}
	r.metadata = parseComment(r.comment)
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Size returns the archive file size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// IsZip64 reports whether the archive uses the ZIP64 format.
func (r *Reader) IsZip64() bool {
	return r.zip64
}

// Comment returns the raw archive comment.
func (r *Reader) Comment() string {
	return r.comment
}

// Metadata returns the RFC-9 OME metadata parsed from the archive
// comment, or nil when the comment carries none.
func (r *Reader) Metadata() *Metadata {
	return r.metadata
}

// EntryCount returns the total entry count declared by the archive.
func (r *Reader) EntryCount() uint64 {
	return r.cdCount
}

// ParseCentralDirectory reads the entire central directory.
func (r *Reader) ParseCentralDirectory() error {
	if r.parsed {
		return nil
	}
	if err := r.parseCD(nil); err != nil {
		return err
	}
	r.parsed = true
	return nil
}

// ParseMetadataEntries reads central directory entries up to the first
// non-JSON file when the archive advertises jsonFirst, and the whole
// directory otherwise.
func (r *Reader) ParseMetadataEntries() error {
	if r.parsed {
		return nil
	}
	if r.metadata == nil || !r.metadata.JSONFirst {
		return r.ParseCentralDirectory()
	}
	return r.parseCD(func(e Entry) bool {
		return !e.IsDir() && !e.isJSON()
	})
}

// Files lists the parsed non-directory entry names in central directory
// order, optionally filtered by prefix.
func (r *Reader) Files(prefix string) []string {
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.entries[name].IsDir() {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Entry returns a parsed entry by name.
func (r *Reader) Entry(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// ReadFile reads an entire entry into memory.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// OpenEntry returns a reader over the uncompressed contents of an entry.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	dataOff, err := r.dataOffset(entry)
	if err != nil {
		return nil, err
	}

	switch entry.Method {
	case methodStored:
		section := io.NewSectionReader(r.f, dataOff, int64(entry.UncompressedSize))
		return io.NopCloser(section), nil
	case methodDeflate:
		section := io.NewSectionReader(r.f, dataOff, int64(entry.CompressedSize))
		return flate.NewReader(section), nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression method %d", ErrInvalidZip, entry.Method)
	}
}

// WriteRange writes bytes [start, end] of an entry's uncompressed
// contents to w. The end offset is clamped to the entry size. DEFLATE
// entries are decompressed from the beginning and skipped to the start
// offset.
func (r *Reader) WriteRange(w io.Writer, name string, start, end int64) (int64, error) {
	entry, ok := r.entries[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	if start < 0 || end < start {
		return 0, fmt.Errorf("invalid range %d-%d", start, end)
	}
	if start >= int64(entry.UncompressedSize) {
		return 0, nil
	}
	if end > int64(entry.UncompressedSize)-1 {
		end = int64(entry.UncompressedSize) - 1
	}
	length := end - start + 1

	dataOff, err := r.dataOffset(entry)
	if err != nil {
		return 0, err
	}

	switch entry.Method {
	case methodStored:
		section := io.NewSectionReader(r.f, dataOff+start, length)
		return io.Copy(w, section)
	case methodDeflate:
		section := io.NewSectionReader(r.f, dataOff, int64(entry.CompressedSize))
		fr := flate.NewReader(section)
		defer fr.Close()
		if _, err := io.CopyN(io.Discard, fr, start); err != nil {
			return 0, err
		}
		return io.CopyN(w, fr, length)
	default:
		return 0, fmt.Errorf("%w: unsupported compression method %d", ErrInvalidZip, entry.Method)
	}
}

// dataOffset resolves the start of an entry's file data by reading its
// local header.
func (r *Reader) dataOffset(entry Entry) (int64, error) {
	var header [30]byte
	if _, err := r.f.ReadAt(header[:], int64(entry.localOffset)); err != nil {
		return 0, fmt.Errorf("%w: reading local header for %s", ErrInvalidZip, entry.Name)
	}
	if !bytes.Equal(header[:4], sigLocalHeader) {
		return 0, fmt.Errorf("%w: invalid local header for %s", ErrInvalidZip, entry.Name)
	}
	nameLen := binary.LittleEndian.Uint16(header[26:28])
	extraLen := binary.LittleEndian.Uint16(header[28:30])
	return int64(entry.localOffset) + 30 + int64(nameLen) + int64(extraLen), nil
}

// parseCD walks the central directory, stopping early when stop
// returns true for an entry (that entry is still recorded).
func (r *Reader) parseCD(stop func(Entry) bool) error {
	br := io.NewSectionReader(r.f, int64(r.cdOffset), r.size-int64(r.cdOffset))

	for i := uint64(0); i < r.cdCount; i++ {
		var header [46]byte
		if _, err := io.ReadFull(br, header[:]); err != nil {
			return fmt.Errorf("%w: truncated central directory entry %d", ErrInvalidZip, i)
		}
		if !bytes.Equal(header[:4], sigCentralDir) {
			return fmt.Errorf("%w: bad central directory entry %d", ErrInvalidZip, i)
		}

		method := binary.LittleEndian.Uint16(header[10:12])
		crc := binary.LittleEndian.Uint32(header[16:20])
		compSize := uint64(binary.LittleEndian.Uint32(header[20:24]))
		uncompSize := uint64(binary.LittleEndian.Uint32(header[24:28]))
		nameLen := binary.LittleEndian.Uint16(header[28:30])
		extraLen := binary.LittleEndian.Uint16(header[30:32])
		commentLen := binary.LittleEndian.Uint16(header[32:34])
		localOffset := uint64(binary.LittleEndian.Uint32(header[42:46]))

		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return fmt.Errorf("%w: truncated entry name at index %d", ErrInvalidZip, i)
		}
		extra := make([]byte, extraLen)
		if _, err := io.ReadFull(br, extra); err != nil {
			return fmt.Errorf("%w: truncated extra field at index %d", ErrInvalidZip, i)
		}
		if commentLen > 0 {
			if _, err := br.Seek(int64(commentLen), io.SeekCurrent); err != nil {
				return err
			}
		}

		if compSize == zip64Marker || uncompSize == zip64Marker || localOffset == zip64Marker {
			compSize, uncompSize, localOffset = parseZip64Extra(extra, compSize, uncompSize, localOffset)
		}

		entry := Entry{
			Name:             string(name),
			CompressedSize:   compSize,
			UncompressedSize: uncompSize,
			Method:           method,
			CRC32:            crc,
			localOffset:      localOffset,
		}
		if _, seen := r.entries[entry.Name]; !seen {
			r.order = append(r.order, entry.Name)
		}
		r.entries[entry.Name] = entry

		if stop != nil && stop(entry) {
			return nil
		}
	}
	return nil
}

// parseEOCD locates the end-of-central-directory record by scanning
// backwards over the archive tail, then follows ZIP64 records if the
// standard record carries overflow markers.
func (r *Reader) parseEOCD() error {
	searchSize := int64(maxEOCDSearch)
	if searchSize > r.size {
		searchSize = r.size
	}
	tail := make([]byte, searchSize)
	if _, err := r.f.ReadAt(tail, r.size-searchSize); err != nil {
		return fmt.Errorf("%w: reading archive tail", ErrInvalidZip)
	}

	pos := bytes.LastIndex(tail, sigEOCD)
	if pos < 0 {
		return fmt.Errorf("%w: end of central directory not found", ErrInvalidZip)
	}
	if int64(pos)+22 > searchSize {
		return fmt.Errorf("%w: truncated end of central directory", ErrInvalidZip)
	}
	eocd := tail[pos : pos+22]

	cdCount := uint64(binary.LittleEndian.Uint16(eocd[10:12]))
	cdSize := uint64(binary.LittleEndian.Uint32(eocd[12:16]))
	cdOffset := uint64(binary.LittleEndian.Uint32(eocd[16:20]))
	commentLen := int(binary.LittleEndian.Uint16(eocd[20:22]))

	if commentLen > 0 && pos+22+commentLen <= len(tail) {
		r.comment = string(tail[pos+22 : pos+22+commentLen])
	}

	if cdOffset == zip64Marker || cdSize == zip64Marker || cdCount == zip64Marker16 {
		r.zip64 = true
		return r.parseZip64EOCD(r.size - searchSize + int64(pos))
	}

	r.cdOffset = cdOffset
	r.cdCount = cdCount
	return nil
}

func (r *Reader) parseZip64EOCD(eocdPos int64) error {
	locPos := eocdPos - 20
	if locPos < 0 {
		return fmt.Errorf("%w: zip64 locator not found", ErrInvalidZip)
	}
	var locator [20]byte
	if _, err := r.f.ReadAt(locator[:], locPos); err != nil {
		return fmt.Errorf("%w: reading zip64 locator", ErrInvalidZip)
	}
	if !bytes.Equal(locator[:4], sigEOCD64Locate) {
		return fmt.Errorf("%w: invalid zip64 locator", ErrInvalidZip)
	}
	eocd64Offset := binary.LittleEndian.Uint64(locator[8:16])

	var eocd64 [56]byte
	if _, err := r.f.ReadAt(eocd64[:], int64(eocd64Offset)); err != nil {
		return fmt.Errorf("%w: reading zip64 end of central directory", ErrInvalidZip)
	}
	if !bytes.Equal(eocd64[:4], sigEOCD64) {
		return fmt.Errorf("%w: invalid zip64 end of central directory", ErrInvalidZip)
	}

	r.cdCount = binary.LittleEndian.Uint64(eocd64[32:40])
	r.cdOffset = binary.LittleEndian.Uint64(eocd64[48:56])
	return nil
}

// parseZip64Extra pulls 64-bit sizes and offsets from the 0x0001 extra
// field for values that overflowed their 32-bit central directory slots.
// Fields appear in fixed order, only for the values that overflowed.
func parseZip64Extra(extra []byte, compSize, uncompSize, localOffset uint64) (uint64, uint64, uint64) {
	for off := 0; off+4 <= len(extra); {
		id := binary.LittleEndian.Uint16(extra[off : off+2])
		size := int(binary.LittleEndian.Uint16(extra[off+2 : off+4]))
		off += 4

		if id != zip64ExtraID {
			off += size
			continue
		}

		data := extra[off:]
		if size < len(data) {
			data = data[:size]
		}
		idx := 0
		if uncompSize == zip64Marker && idx+8 <= len(data) {
			uncompSize = binary.LittleEndian.Uint64(data[idx : idx+8])
			idx += 8
		}
		if compSize == zip64Marker && idx+8 <= len(data) {
			compSize = binary.LittleEndian.Uint64(data[idx : idx+8])
			idx += 8
		}
		if localOffset == zip64Marker && idx+8 <= len(data) {
			localOffset = binary.LittleEndian.Uint64(data[idx : idx+8])
		}
		break
	}
	return compSize, uncompSize, localOffset
}

// IsOZXFile reports whether a filename has the .ozx extension.
func IsOZXFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".ozx")
}
