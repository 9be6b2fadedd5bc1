package key

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aurora-toolkit/core/resref"
)

// writeTempArchive writes a KEY + single BIF pair under dir and
// returns the KEY path, mirroring S2 from the testable properties.
func writeTempArchive(t *testing.T, dir string, entries []Entry) string {
	t.Helper()

	dataPath := filepath.Join(dir, "data001.bif")
	df, err := os.Create(dataPath)
	if err != nil {
		t.Fatalf("create data archive: %v", err)
	}
	defer df.Close()

	keyPath := filepath.Join(dir, "chitin.key")
	kf, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("create key file: %v", err)
	}
	defer kf.Close()

	err = Write(kf, []DataArchiveSpec{
		{Name: "data001.bif", Writer: df, Entries: entries},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return keyPath
}

func TestOpenAndGet(t *testing.T) {
	dir := t.TempDir()
	utc, _ := resref.TypeByExtension("utc")
	payload := bytes.Repeat([]byte{0xAB}, 182290)
	entries := []Entry{
		{ID: resref.Identity{Name: "player", Type: utc}, Data: payload},
	}
	keyPath := writeTempArchive(t, dir, entries)

	a, err := Open(keyPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	id, _ := resref.Identify("player.utc")
	got, err := a.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("Get() returned %d bytes, want %d", len(got), len(payload))
	}
	if sha256.Sum256(got) != sha256.Sum256(payload) {
		t.Errorf("Get() returned different bytes than written")
	}
}

func TestZeroSizeResourceRoundTrips(t *testing.T) {
	dir := t.TempDir()
	txt, _ := resref.TypeByExtension("txt")
	entries := []Entry{
		{ID: resref.Identity{Name: "empty", Type: txt}, Data: []byte{}},
	}
	keyPath := writeTempArchive(t, dir, entries)

	a, err := Open(keyPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	id, _ := resref.Identify("empty.txt")
	got, err := a.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get() = %d bytes, want 0", len(got))
	}
}

func TestBZFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	txt, _ := resref.TypeByExtension("txt")

	payloads := []string{"Hello World 1", "Hello World 2", "Hello World 3"}
	var entries []Entry
	for i, s := range payloads {
		entries = append(entries, Entry{
			ID:   resref.Identity{Name: "msg" + string(rune('0'+i)), Type: txt},
			Data: []byte(s),
		})
	}

	dataPath := filepath.Join(dir, "data001.bzf")
	df, err := os.Create(dataPath)
	if err != nil {
		t.Fatalf("create data archive: %v", err)
	}
	defer df.Close()

	keyPath := filepath.Join(dir, "chitin.key")
	kf, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("create key file: %v", err)
	}
	defer kf.Close()

	if err := WriteBZF(kf, []DataArchiveSpec{
		{Name: "data001.bzf", Writer: df, Entries: entries},
	}); err != nil {
		t.Fatalf("WriteBZF: %v", err)
	}

	a, err := Open(keyPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	for i, s := range payloads {
		id := resref.Identity{Name: "msg" + string(rune('0'+i)), Type: txt}
		got, err := a.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if string(got) != s {
			t.Errorf("Get(%s) = %q, want %q", id, got, s)
		}
	}
}

func TestMissingDataArchiveIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	txt, _ := resref.TypeByExtension("txt")
	entries := []Entry{{ID: resref.Identity{Name: "a", Type: txt}, Data: []byte("x")}}
	keyPath := writeTempArchive(t, dir, entries)

	// Remove the data archive after the KEY was written against it.
	if err := os.Remove(filepath.Join(dir, "data001.bif")); err != nil {
		t.Fatalf("remove data archive: %v", err)
	}

	a, err := Open(keyPath, nil)
	if err != nil {
		t.Fatalf("Open should tolerate a missing data archive: %v", err)
	}
	defer a.Close()

	id, _ := resref.Identify("a.txt")
	if _, err := a.Get(id); !errors.Is(err, ErrDataArchiveMissing) {
		t.Errorf("Get() = %v, want ErrDataArchiveMissing", err)
	}
}
