package persistence

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type snapshot struct {
	Name  string
	Count int
}

func TestSaveAndLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.gob")

	if err := SaveGob(path, snapshot{Name: "docs", Count: 3}); err != nil {
		t.Fatalf("SaveGob failed: %v", err)
	}
	if err := SaveGob(path, snapshot{Name: "docs", Count: 4}); err != nil {
		t.Fatalf("second SaveGob failed: %v", err)
	}

	var loaded snapshot
	if err := LoadGob(path, &loaded); err != nil {
		t.Fatalf("LoadGob failed: %v", err)
	}
	if loaded.Count != 4 || loaded.Name != "docs" {
		t.Errorf("Expected {docs 4}, got %+v", loaded)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the snapshot file to remain, found %d entries", len(entries))
	}
}

func TestLoadGob_MissingFile(t *testing.T) {
	var loaded snapshot
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &loaded)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestSaveGob_EncodeFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.gob")

	if err := SaveGob(path, make(chan int)); err == nil {
		t.Fatal("Expected encoding a channel to fail")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no files after failed save, found %d", len(entries))
	}
}

func TestWriteAtomic_FailedWriteKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte("previous"), 0600); err != nil {
		t.Fatal(err)
	}

	err := WriteAtomic(path, func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return errors.New("encoder failed")
	})
	if err == nil {
		t.Fatal("Expected the write error to be returned")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "previous" {
		t.Errorf("Expected previous content to survive, got %q", data)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected no temporary files to remain, found %d entries", len(entries))
	}
}
