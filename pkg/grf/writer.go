package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Faultbox/midgard-nav/pkg/encoding"
)

// Write encodes files as a GRF archive. Names use forward slashes; they are
// stored with backslashes and EUC-KR encoded like client archives. Entries
// are written in name order.
func Write(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		body  bytes.Buffer
		table bytes.Buffer
	)
	for _, name := range names {
		content := files[name]

		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(content); err != nil {
			return fmt.Errorf("compressing %s: %w", name, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", name, err)
		}

		// Entries are 8-byte aligned.
		size := uint32(compressed.Len())
		aligned := (size + 7) &^ 7
		offset := uint32(body.Len())
		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-size))

		table.Write(encoding.UTF8ToEUCKR(strings.ReplaceAll(name, "/", "\\")))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, [3]uint32{size, aligned, uint32(len(content))})
		table.WriteByte(flagFile)
		binary.Write(&table, binary.LittleEndian, offset)
	}

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(names)) + 7,
		Version:     grfVersion,
	}
	copy(header.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(compressedTable.Len()), uint32(table.Len())}); err != nil {
		return err
	}
	_, err := w.Write(compressedTable.Bytes())
	return err
}

// WriteFile writes files as a GRF archive at path.
func WriteFile(path string, files map[string][]byte) error {
	var buf bytes.Buffer
	if err := Write(&buf, files); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
