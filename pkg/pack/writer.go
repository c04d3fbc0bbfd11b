package pack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Writer builds a pack file. Entries are streamed to disk as they are added;
// the table and header are written by Close.
type Writer struct {
	file    *os.File
	entries []Entry
	seen    map[string]bool
	offset  uint32
}

// Create creates or truncates path and returns a Writer for it.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	// Header is written last; reserve its space.
	if _, err := file.Write(make([]byte, headerSize)); err != nil {
		file.Close()
		return nil, err
	}

	return &Writer{file: file, seen: make(map[string]bool)}, nil
}

// Add stores data under name. Data that does not shrink under zlib is stored
// as is.
func (w *Writer) Add(name string, data []byte) error {
	key := normalizePath(name)
	if w.seen[key] {
		return fmt.Errorf("pack: duplicate entry %s", key)
	}

	compressed, err := deflate(data)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}

	entry := Entry{
		Name:   key,
		Size:   uint32(len(data)),
		Flags:  FlagFile,
		Offset: w.offset,
	}
	payload := data
	if len(compressed) < len(data) {
		entry.Flags |= FlagCompressed
		payload = compressed
	}
	entry.CompressedSize = uint32(len(payload))

	if _, err := w.file.Write(payload); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	w.offset += entry.CompressedSize
	w.entries = append(w.entries, entry)
	w.seen[key] = true
	return nil
}

// Close writes the file table and header and closes the file.
func (w *Writer) Close() error {
	err := w.finish()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) finish() error {
	var table bytes.Buffer
	var fixed [entryFixedSize]byte
	for _, e := range w.entries {
		table.WriteString(e.Name)
		table.WriteByte(0)
		binary.LittleEndian.PutUint32(fixed[0:], e.CompressedSize)
		binary.LittleEndian.PutUint32(fixed[4:], e.Size)
		fixed[8] = e.Flags
		binary.LittleEndian.PutUint32(fixed[9:], e.Offset)
		table.Write(fixed[:])
	}

	compressed, err := deflate(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}

	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	if _, err := w.file.Write(sizes[:]); err != nil {
		return err
	}
	if _, err := w.file.Write(compressed); err != nil {
		return err
	}

	header := Header{
		Version:     packVersion,
		FileCount:   uint32(len(w.entries)),
		TableOffset: w.offset,
	}
	copy(header.Magic[:], packMagic)

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(w.file, binary.LittleEndian, &header)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
