package mdl

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// fixture is a single-mesh-node model: model header, one node with a
// mesh sub-header, one triangle in the render (vertex-index) table,
// one face in the collision table, and a matching single-vertex MDX
// stream. Byte offsets mirror the layout documented in mdl.go/
// node.go/mesh.go.
type fixture struct {
	nodeBodyOffset uint32
	meshBase       uint32
	triOffset      uint32
	faceOffset     uint32
}

func buildFixture(t *testing.T, dir string) (mdlPath, mdxPath string, fx fixture) {
	t.Helper()

	fx.nodeBodyOffset = modelHeaderSize
	fx.meshBase = fx.nodeBodyOffset + meshSubHeaderOff
	fx.triOffset = fx.meshBase + meshHeaderSizeK1
	fx.faceOffset = fx.triOffset + triangleRecordSize

	bodyLen := fx.faceOffset + faceRecordSize
	body := make([]byte, bodyLen)

	binary.LittleEndian.PutUint32(body[rootNodeOffsetOff:], fx.nodeBodyOffset)
	binary.LittleEndian.PutUint32(body[nodeCountOff:], 1)

	node := body[fx.nodeBodyOffset:]
	binary.LittleEndian.PutUint16(node[nodeFlagsOff:], uint16(NodeMesh))
	copy(node[nodeNameOff:], "root")

	mesh := body[fx.meshBase:]
	binary.LittleEndian.PutUint32(mesh[meshFacesOff:], fx.faceOffset)
	binary.LittleEndian.PutUint32(mesh[meshFacesCountOff:], 1)
	copy(mesh[textureNameOff:], "OLD_TEX")
	copy(mesh[lightmapNameOff:], "lm_test")
	binary.LittleEndian.PutUint32(mesh[meshVertexIndicesOff:], fx.triOffset)
	binary.LittleEndian.PutUint32(mesh[meshVertexIndicesCountOff:], 1)
	binary.LittleEndian.PutUint32(mesh[meshMDXVertexCountOff:], 1)
	binary.LittleEndian.PutUint32(mesh[meshMDXDataSizeOff:], 24)
	binary.LittleEndian.PutUint32(mesh[meshMDXDataStartOff:], 0)
	binary.LittleEndian.PutUint32(mesh[meshMDXVertexOff:], 0)
	binary.LittleEndian.PutUint32(mesh[meshMDXNormalOff:], 12)

	binary.LittleEndian.PutUint16(body[fx.triOffset:], 0)
	binary.LittleEndian.PutUint16(body[fx.triOffset+2:], 1)
	binary.LittleEndian.PutUint16(body[fx.triOffset+4:], 2)

	binary.LittleEndian.PutUint16(body[fx.faceOffset+faceVertIndicesOff:], 3)
	binary.LittleEndian.PutUint16(body[fx.faceOffset+faceVertIndicesOff+2:], 4)
	binary.LittleEndian.PutUint16(body[fx.faceOffset+faceVertIndicesOff+4:], 5)

	mdlBuf := make([]byte, preludeSize+len(body))
	binary.LittleEndian.PutUint32(mdlBuf[4:], uint32(len(body)))
	copy(mdlBuf[preludeSize:], body)

	mdx := make([]byte, 24)
	writeFloat32(mdx, 0, 1.0)
	writeFloat32(mdx, 4, 2.0)
	writeFloat32(mdx, 8, 3.0)
	writeFloat32(mdx, 12, 0.1)
	writeFloat32(mdx, 16, 0.2)
	writeFloat32(mdx, 20, 0.3)

	mdlPath = filepath.Join(dir, "model.mdl")
	mdxPath = filepath.Join(dir, "model.mdx")
	if err := os.WriteFile(mdlPath, mdlBuf, 0o600); err != nil {
		t.Fatalf("write mdl fixture: %v", err)
	}
	if err := os.WriteFile(mdxPath, mdx, 0o600); err != nil {
		t.Fatalf("write mdx fixture: %v", err)
	}
	return mdlPath, mdxPath, fx
}

func TestIterTexturesAndLightmaps(t *testing.T) {
	dir := t.TempDir()
	mdlPath, mdxPath, _ := buildFixture(t, dir)

	f, err := Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	textures, err := f.IterTextures()
	if err != nil {
		t.Fatalf("IterTextures: %v", err)
	}
	if len(textures) != 1 || textures[0] != "old_tex" {
		t.Fatalf("IterTextures() = %v, want [old_tex]", textures)
	}

	lightmaps, err := f.IterLightmaps()
	if err != nil {
		t.Fatalf("IterLightmaps: %v", err)
	}
	if len(lightmaps) != 1 || lightmaps[0] != "lm_test" {
		t.Fatalf("IterLightmaps() = %v, want [lm_test]", lightmaps)
	}
}

// TestRenameTextures exercises S7: after renaming and reopening, the
// model's texture list reports the new name.
func TestRenameTextures(t *testing.T) {
	dir := t.TempDir()
	mdlPath, mdxPath, _ := buildFixture(t, dir)

	f, err := Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.RenameTextures(map[string]string{"old_tex": "new_tex"}); err != nil {
		t.Fatalf("RenameTextures: %v", err)
	}
	f.Close()

	f2, err := Open(mdlPath, mdxPath, &Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f2.Close()
	textures, err := f2.IterTextures()
	if err != nil {
		t.Fatalf("IterTextures: %v", err)
	}
	if len(textures) != 1 || textures[0] != "new_tex" {
		t.Fatalf("IterTextures() after rename = %v, want [new_tex]", textures)
	}
}

// TestFlipDoubleIsIdentity checks that flip(true, true) composed
// with itself is the identity on every
// vertex position and normal, and preserves triangle winding.
func TestFlipDoubleIsIdentity(t *testing.T) {
	dir := t.TempDir()
	mdlPath, mdxPath, _ := buildFixture(t, dir)

	before, err := os.ReadFile(mdxPath)
	if err != nil {
		t.Fatal(err)
	}
	beforeBody, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}

	f, err := Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.Flip(true, true); err != nil {
		t.Fatalf("Flip 1: %v", err)
	}
	if err := f.Flip(true, true); err != nil {
		t.Fatalf("Flip 2: %v", err)
	}
	f.Close()

	after, err := os.ReadFile(mdxPath)
	if err != nil {
		t.Fatal(err)
	}
	afterBody, err := os.ReadFile(mdlPath)
	if err != nil {
		t.Fatal(err)
	}

	if string(before) != string(after) {
		t.Errorf("MDX bytes changed after double flip(true,true)")
	}
	if string(beforeBody) != string(afterBody) {
		t.Errorf("MDL bytes changed after double flip(true,true)")
	}
}

// TestTransformSetsPositionAndOrientation checks the synthetic
// root's stored translation and quaternion.
func TestTransformSetsPositionAndOrientation(t *testing.T) {
	dir := t.TempDir()
	mdlPath, mdxPath, fx := buildFixture(t, dir)

	f, err := Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	oldRoot := f.Header.RootNodeOffset
	if oldRoot != fx.nodeBodyOffset {
		t.Fatalf("sanity: oldRoot = %d, want %d", oldRoot, fx.nodeBodyOffset)
	}

	translation := Vector3{X: 1, Y: 2, Z: 3}
	theta := math.Pi / 2
	if err := f.Transform(translation, theta); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if f.Header.RootNodeOffset == oldRoot {
		t.Fatalf("RootNodeOffset unchanged after Transform")
	}
	if f.Header.NodeCount != 2 {
		t.Fatalf("NodeCount = %d, want 2", f.Header.NodeCount)
	}

	newRoot, err := f.readNode(fileOffset(f.Header.RootNodeOffset))
	if err != nil {
		t.Fatalf("readNode(new root): %v", err)
	}
	children, err := f.children(newRoot)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 1 || children[0] != fileOffset(oldRoot) {
		t.Fatalf("new root children = %v, want [%d]", children, fileOffset(oldRoot))
	}

	body := f.body()
	newNodeBody := bodyOffset(newRoot.Offset)
	px, _ := readFloat32(body, newNodeBody+nodePositionOff)
	py, _ := readFloat32(body, newNodeBody+nodePositionOff+4)
	pz, _ := readFloat32(body, newNodeBody+nodePositionOff+8)
	if px != translation.X || py != translation.Y || pz != translation.Z {
		t.Fatalf("position = (%v,%v,%v), want %v", px, py, pz, translation)
	}

	qx, _ := readFloat32(body, newNodeBody+nodeOrientationOff)
	qy, _ := readFloat32(body, newNodeBody+nodeOrientationOff+4)
	qz, _ := readFloat32(body, newNodeBody+nodeOrientationOff+8)
	qw, _ := readFloat32(body, newNodeBody+nodeOrientationOff+12)
	want := RotationZ(theta)
	const eps = 1e-6
	if math.Abs(float64(qx-want.X)) > eps || math.Abs(float64(qy-want.Y)) > eps ||
		math.Abs(float64(qz-want.Z)) > eps || math.Abs(float64(qw-want.W)) > eps {
		t.Fatalf("orientation = (%v,%v,%v,%v), want %v", qx, qy, qz, qw, want)
	}

	var visited int
	if err := f.Walk(func(*Node) error { visited++; return nil }); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if visited != 2 {
		t.Fatalf("Walk visited %d nodes, want 2", visited)
	}
}

func TestRenameNode(t *testing.T) {
	dir := t.TempDir()
	mdlPath, mdxPath, _ := buildFixture(t, dir)

	f, err := Open(mdlPath, mdxPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	root, err := f.readNode(fileOffset(f.Header.RootNodeOffset))
	if err != nil {
		t.Fatalf("readNode: %v", err)
	}
	if err := f.RenameNode(root, "renamed"); err != nil {
		t.Fatalf("RenameNode: %v", err)
	}

	again, err := f.readNode(fileOffset(f.Header.RootNodeOffset))
	if err != nil {
		t.Fatalf("readNode after rename: %v", err)
	}
	if again.Name != "renamed" {
		t.Fatalf("Name = %q, want %q", again.Name, "renamed")
	}
}
