package convert

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/aurora-toolkit/core/mdl"
)

// buildFixture writes a two-node model (a plain root with one mesh
// child) plus a small "table" region the mesh node's faces/texture-
// index/vertex-index pointer fields all reference, so a single
// conversion exercises both the children-array rewrite and the
// mesh-header insertion/removal rewrite together.
func buildFixture(t *testing.T) (mdlPath, mdxPath string, bodyLen uint32) {
	t.Helper()
	dir := t.TempDir()

	const (
		rootOffset  = uint32(mdl.ModelHeaderSize)
		childArray  = rootOffset + uint32(mdl.NodeHeaderSize)
		childOffset = childArray + 4
		meshBase    = childOffset + uint32(mdl.MeshSubHeaderOffset)
		tableOffset = meshBase + uint32(mdl.MeshHeaderSizeK1)
		tableLen    = 16
	)
	bodyLen = tableOffset + tableLen

	body := make([]byte, bodyLen)
	put32 := func(off uint32, v uint32) { binary.LittleEndian.PutUint32(body[off:], v) }
	put16 := func(off uint32, v uint16) { binary.LittleEndian.PutUint16(body[off:], v) }

	put32(mdl.FieldModelRootNode, rootOffset)
	geo := geometryFuncPointers[genK1]
	put32(0, geo[0])
	put32(4, geo[1])

	put16(rootOffset+0 /* flags */, 0)
	put32(rootOffset+mdl.FieldNodeChildrenPtr, childArray)
	put32(rootOffset+mdl.FieldNodeChildrenCount, 1)
	put32(childArray, childOffset)

	put16(childOffset+0, uint16(mdl.NodeMesh))

	put32(meshBase+mdl.FieldMeshFaces, tableOffset)
	put32(meshBase+mdl.FieldMeshTextureIdx, tableOffset)
	put32(meshBase+mdl.FieldMeshVertexIdx, tableOffset)
	mesh := meshFuncPointers[genK1][meshTrimesh]
	put32(meshBase+mdl.FieldMeshFuncPtr1, mesh[0])
	put32(meshBase+mdl.FieldMeshFuncPtr2, mesh[1])

	for i := uint32(0); i < tableLen; i++ {
		body[tableOffset+i] = byte(i + 1)
	}

	mdlBuf := make([]byte, 12+len(body))
	binary.LittleEndian.PutUint32(mdlBuf[4:], uint32(len(body)))
	copy(mdlBuf[12:], body)

	mdlPath = filepath.Join(dir, "model.mdl")
	mdxPath = filepath.Join(dir, "model.mdx")
	if err := os.WriteFile(mdlPath, mdlBuf, 0o600); err != nil {
		t.Fatalf("write mdl fixture: %v", err)
	}
	if err := os.WriteFile(mdxPath, make([]byte, 4), 0o600); err != nil {
		t.Fatalf("write mdx fixture: %v", err)
	}
	return mdlPath, mdxPath, bodyLen
}

// TestK1ToK2ToK1IsIdentity exercises S8: round-tripping a model
// through both generation conversions reproduces the original bytes.
func TestK1ToK2ToK1IsIdentity(t *testing.T) {
	mdlPath, mdxPath, _ := buildFixture(t)

	original, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}

	f, err := mdl.Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := K1ToK2(f); err != nil {
		t.Fatalf("K1ToK2: %v", err)
	}
	mid, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(mid) != len(original)+8 {
		t.Fatalf("after K1ToK2 len = %d, want %d", len(mid), len(original)+8)
	}

	if err := K2ToK1(f); err != nil {
		t.Fatalf("K2ToK1: %v", err)
	}
	f.Close()

	roundTripped, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(roundTripped) != string(original) {
		t.Fatalf("K1->K2->K1 round trip is not the identity on bytes")
	}
}

// TestK2ToK1ToK2IsIdentity covers the opposite round trip: starting
// from a model already converted to K2, converting back and forth
// reproduces its bytes.
func TestK2ToK1ToK2IsIdentity(t *testing.T) {
	mdlPath, mdxPath, _ := buildFixture(t)

	f, err := mdl.Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := K1ToK2(f); err != nil {
		t.Fatalf("K1ToK2: %v", err)
	}

	asK2, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := K2ToK1(f); err != nil {
		t.Fatalf("K2ToK1: %v", err)
	}
	if err := K1ToK2(f); err != nil {
		t.Fatalf("K1ToK2: %v", err)
	}
	f.Close()

	roundTripped, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(roundTripped) != string(asK2) {
		t.Fatalf("K2->K1->K2 round trip is not the identity on bytes")
	}
}

func TestK1ToK2RewritesFuncPointers(t *testing.T) {
	mdlPath, mdxPath, _ := buildFixture(t)

	f, err := mdl.Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := K1ToK2(f); err != nil {
		t.Fatalf("K1ToK2: %v", err)
	}
	f.Close()

	buf, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}
	body := buf[12:]
	geo := geometryFuncPointers[genK2]
	if got := binary.LittleEndian.Uint32(body[0:]); got != geo[0] {
		t.Errorf("geometry func pointer 1 = %#x, want %#x", got, geo[0])
	}
	if got := binary.LittleEndian.Uint32(body[4:]); got != geo[1] {
		t.Errorf("geometry func pointer 2 = %#x, want %#x", got, geo[1])
	}
}
