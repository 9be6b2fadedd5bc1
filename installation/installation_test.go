package installation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aurora-toolkit/core/core"
	"github.com/aurora-toolkit/core/erf"
	"github.com/aurora-toolkit/core/resref"
)

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", path, err)
	}
}

func writeModule(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	c := erf.New(erf.KindMOD)
	for name, data := range entries {
		id, err := resref.Identify(name)
		if err != nil {
			t.Fatalf("Identify(%q): %v", name, err)
		}
		c.Set(id, data)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %q: %v", path, err)
	}
	defer f.Close()

	if err := c.Write(f); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestOverrideShadowsModules(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "override"))
	mustMkdir(t, filepath.Join(root, "modules"))

	if err := os.WriteFile(filepath.Join(root, "override", "player.utc"), []byte("override copy"), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}
	writeModule(t, filepath.Join(root, "modules", "danm13.mod"), map[string][]byte{
		"player.utc": []byte("module copy"),
	})

	ctx := core.New(root, t.TempDir(), core.GenerationOne)
	inst, err := New(ctx, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inst.Close()

	id, _ := resref.Identify("player.utc")
	rec, err := inst.Resource(id)
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if string(rec.Data) != "override copy" {
		t.Errorf("Resource() = %q, want override copy", rec.Data)
	}

	all := inst.Resources(id)
	if len(all) != 2 {
		t.Fatalf("Resources() len = %d, want 2", len(all))
	}
	if string(all[1].Data) != "module copy" {
		t.Errorf("Resources()[1] = %q, want module copy", all[1].Data)
	}
}

func TestResourceNotFound(t *testing.T) {
	root := t.TempDir()
	ctx := core.New(root, t.TempDir(), core.GenerationOne)
	inst, err := New(ctx, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inst.Close()

	id, _ := resref.Identify("missing.utc")
	if _, err := inst.Resource(id); err != ErrResourceNotFound {
		t.Errorf("Resource() err = %v, want ErrResourceNotFound", err)
	}
}

func TestEnumerateReportsShadowing(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "modules"))
	writeModule(t, filepath.Join(root, "modules", "a_danm13.mod"), map[string][]byte{
		"shared.utc": []byte("first"),
	})
	writeModule(t, filepath.Join(root, "modules", "b_danm14.mod"), map[string][]byte{
		"shared.utc": []byte("second"),
	})

	ctx := core.New(root, t.TempDir(), core.GenerationOne)
	inst, err := New(ctx, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inst.Close()

	utc, _ := resref.TypeByExtension("utc")
	entries := inst.Enumerate(utc)
	if len(entries) != 2 {
		t.Fatalf("Enumerate() len = %d, want 2", len(entries))
	}
	if !entries[0].Shadowed {
		t.Errorf("first (superseded) entry reported as not shadowed, want true")
	}
	if entries[1].Shadowed {
		t.Errorf("second (winning) entry reported as shadowed, want false")
	}
}

func TestDetectGenerationMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "swkotor2.exe"), []byte{}, 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	gen, confidence := DetectGeneration(root)
	if gen != core.GenerationTwo {
		t.Errorf("DetectGeneration() gen = %v, want GenerationTwo", gen)
	}
	if confidence == ConfidenceNone {
		t.Errorf("DetectGeneration() confidence = none, want some signal")
	}
}

func TestDetectGenerationNoMarkers(t *testing.T) {
	root := t.TempDir()
	gen, confidence := DetectGeneration(root)
	if gen != core.GenerationUnknown || confidence != ConfidenceNone {
		t.Errorf("DetectGeneration() = (%v, %v), want (Unknown, None)", gen, confidence)
	}
}
