package grf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeTestArchive writes files to a temporary archive and opens it.
func writeTestArchive(t *testing.T, files map[string][]byte) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := WriteFile(path, files); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	archive, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { archive.Close() })
	return archive
}

var testFiles = map[string][]byte{
	"data/prontera.gat":         append([]byte("GRAT"), make([]byte, 100)...),
	"data/test.txt":             []byte("Hello, GRF!"),
	"data/subfolder/nested.txt": bytes.Repeat([]byte("nested "), 64),
	"data/지도.gat":               []byte("hangul name"),
}

func TestArchive_List(t *testing.T) {
	archive := writeTestArchive(t, testFiles)

	files := archive.List()
	if len(files) != len(testFiles) {
		t.Fatalf("expected %d files, got %d: %v", len(testFiles), len(files), files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] > files[i] {
			t.Errorf("List not sorted: %q before %q", files[i-1], files[i])
		}
	}
}

func TestArchive_Read(t *testing.T) {
	archive := writeTestArchive(t, testFiles)

	for name, want := range testFiles {
		t.Run(name, func(t *testing.T) {
			got, err := archive.Read(name)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("Read(%q) = %q, want %q", name, got, want)
			}
		})
	}
}

func TestArchive_LookupIgnoresCaseAndSlashes(t *testing.T) {
	archive := writeTestArchive(t, testFiles)

	for _, name := range []string{`DATA\Prontera.GAT`, "data/PRONTERA.gat"} {
		if !archive.Contains(name) {
			t.Errorf("Contains(%q) = false", name)
		}
	}
	if archive.Contains("data/geffen.gat") {
		t.Error("Contains reported a missing file")
	}

	entry, ok := archive.Entry(`data\test.txt`)
	if !ok {
		t.Fatal("expected an entry for data/test.txt")
	}
	if entry.UncompressedSize != uint32(len(testFiles["data/test.txt"])) {
		t.Errorf("UncompressedSize = %d", entry.UncompressedSize)
	}
	if entry.AlignedSize%8 != 0 {
		t.Errorf("AlignedSize %d is not 8-byte aligned", entry.AlignedSize)
	}
}

func TestArchive_ReadMissing(t *testing.T) {
	archive := writeTestArchive(t, testFiles)
	if _, err := archive.Read("data/geffen.gat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestArchive_ReadAfterClose(t *testing.T) {
	archive := writeTestArchive(t, testFiles)
	if err := archive.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := archive.Read("data/test.txt"); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected os.ErrClosed, got %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	var valid bytes.Buffer
	if err := Write(&valid, testFiles); err != nil {
		t.Fatal(err)
	}
	badVersion := append([]byte(nil), valid.Bytes()...)
	badVersion[42] = 0x03

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", append([]byte("Master of Mojo!"), make([]byte, 40)...), ErrInvalidMagic},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"truncated table", valid.Bytes()[:valid.Len()-8], ErrCorruptTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".grf")
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Open(path); !errors.Is(err, tt.want) {
				t.Errorf("Open error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Open(filepath.Join(dir, "missing.grf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
