// Package pack reads and writes KMX asset packs: single-file archives of
// zlib-compressed assets with a compressed file table at the end.
package pack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

const (
	packMagic      = "KMXPACK\x00"
	packVersion    = 1
	headerSize     = 20
	entryFixedSize = 13
)

// Entry flags.
const (
	FlagFile       = 0x01
	FlagCompressed = 0x02
)

var (
	ErrInvalidMagic = errors.New("pack: invalid magic")
	ErrNotFound     = errors.New("pack: file not found")
	ErrCorrupt      = errors.New("pack: corrupt archive")
)

// Header is the fixed pack header.
type Header struct {
	Magic       [8]byte
	Version     uint32
	FileCount   uint32
	TableOffset uint32
}

// Entry describes one stored file.
type Entry struct {
	Name           string
	CompressedSize uint32
	Size           uint32
	Flags          uint8
	Offset         uint32
}

// Compressed reports whether the entry data is zlib-compressed.
func (e *Entry) Compressed() bool {
	return e.Flags&FlagCompressed != 0
}

// Archive is an opened pack. Read is safe for concurrent use.
type Archive struct {
	file    *os.File
	header  Header
	entries map[string]*Entry
}

// Open opens a pack for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive := &Archive{
		file:    file,
		entries: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if err := archive.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table: %w", err)
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.file, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if string(a.header.Magic[:]) != packMagic {
		return ErrInvalidMagic
	}

	if a.header.Version != packVersion {
		return fmt.Errorf("unsupported pack version: %d", a.header.Version)
	}

	return nil
}

func (a *Archive) readFileTable() error {
	var sizes [8]byte
	tableOffset := int64(a.header.TableOffset) + headerSize
	if _, err := a.file.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: table sizes: %v", ErrCorrupt, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[:])
	size := binary.LittleEndian.Uint32(sizes[4:])

	table, err := a.inflate(tableOffset+8, compressedSize, size)
	if err != nil {
		return fmt.Errorf("table: %w", err)
	}

	offset := 0
	for i := uint32(0); i < a.header.FileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("%w: entry %d: unterminated name", ErrCorrupt, i)
		}
		name := string(table[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+entryFixedSize > len(table) {
			return fmt.Errorf("%w: entry %d: truncated", ErrCorrupt, i)
		}

		entry := &Entry{
			Name:           normalizePath(name),
			CompressedSize: binary.LittleEndian.Uint32(table[offset:]),
			Size:           binary.LittleEndian.Uint32(table[offset+4:]),
			Flags:          table[offset+8],
			Offset:         binary.LittleEndian.Uint32(table[offset+9:]),
		}
		offset += entryFixedSize

		if entry.Flags&FlagFile != 0 {
			a.entries[entry.Name] = entry
		}
	}

	return nil
}

// inflate reads compressedSize bytes at off and decompresses them to size.
func (a *Archive) inflate(off int64, compressedSize, size uint32) ([]byte, error) {
	compressed := make([]byte, compressedSize)
	if _, err := a.file.ReadAt(compressed, off); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer reader.Close()

	result := make([]byte, size)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return result, nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for name := range a.entries {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[normalizePath(name)]
	return ok
}

// Stat returns the entry for name.
func (a *Archive) Stat(name string) (*Entry, bool) {
	entry, ok := a.entries[normalizePath(name)]
	return entry, ok
}

// Read reads a file from the archive.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.entries[normalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	dataOffset := int64(entry.Offset) + headerSize
	if entry.Compressed() {
		data, err := a.inflate(dataOffset, entry.CompressedSize, entry.Size)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return data, nil
	}

	data := make([]byte, entry.Size)
	if _, err := a.file.ReadAt(data, dataOffset); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return data, nil
}

func normalizePath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	return strings.ToLower(name)
}
