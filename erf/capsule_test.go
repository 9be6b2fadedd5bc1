package erf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aurora-toolkit/core/resref"
)

func writeTempCapsule(t *testing.T, kind Kind, entries map[string][]byte) string {
	t.Helper()

	c := New(kind)
	for name, data := range entries {
		id, err := resref.Identify(name)
		if err != nil {
			t.Fatalf("Identify(%q): %v", name, err)
		}
		c.Set(id, data)
	}

	ext := map[Kind]string{KindERF: "erf", KindMOD: "mod", KindSAV: "sav", KindRIM: "rim"}[kind]
	path := filepath.Join(t.TempDir(), "capsule."+ext)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if err := c.Write(f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestERFRoundTrip(t *testing.T) {
	entries := map[string][]byte{
		"module.ifo": []byte("module info blob"),
		"player.utc": []byte("creature template blob"),
	}
	path := writeTempCapsule(t, KindERF, entries)

	c, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if c.Kind() != KindERF {
		t.Errorf("Kind() = %v, want ERF", c.Kind())
	}

	for name, want := range entries {
		id, _ := resref.Identify(name)
		got, err := c.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		if string(got) != string(want) {
			t.Errorf("Get(%s) = %q, want %q", name, got, want)
		}
	}
}

func TestRIMRoundTrip(t *testing.T) {
	entries := map[string][]byte{
		"startingmap.are": []byte("area blob"),
	}
	path := writeTempCapsule(t, KindRIM, entries)

	c, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	id, _ := resref.Identify("startingmap.are")
	got, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "area blob" {
		t.Errorf("Get() = %q, want %q", got, "area blob")
	}
}

func TestSetRemoveAndIter(t *testing.T) {
	path := writeTempCapsule(t, KindERF, map[string][]byte{
		"a.txt": []byte("aaa"),
		"b.txt": []byte("bbb"),
	})
	c, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	bID, _ := resref.Identify("b.txt")
	if !c.Remove(bID) {
		t.Fatalf("Remove(b.txt) = false, want true")
	}
	if c.Remove(bID) {
		t.Fatalf("second Remove(b.txt) = true, want false")
	}

	cID, _ := resref.Identify("c.txt")
	c.Set(cID, []byte("ccc"))

	entries := c.Iter()
	if len(entries) != 2 {
		t.Fatalf("Iter() len = %d, want 2", len(entries))
	}
}

func TestConvertToAndEqual(t *testing.T) {
	path := writeTempCapsule(t, KindERF, map[string][]byte{
		"x.txt": []byte("xxx"),
	})
	erfCap, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer erfCap.Close()

	rimCap, err := erfCap.ConvertTo(KindRIM)
	if err != nil {
		t.Fatalf("ConvertTo: %v", err)
	}

	if !erfCap.Equal(rimCap) {
		t.Errorf("converted capsule not Equal to source")
	}
}

func TestDuplicateIdentityRejected(t *testing.T) {
	// Append the same identity twice through the internal append path
	// rather than through Set (which dedups by key); the second append
	// must be rejected.
	c := New(KindERF)
	id, _ := resref.Identify("dup.txt")
	if err := c.append(id, 0, 1); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := c.append(id, 1, 1); err == nil {
		t.Errorf("second append of same identity succeeded, want ErrDuplicateIdentity")
	}
}
