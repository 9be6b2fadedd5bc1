package mdl

import (
	"strings"

	"github.com/aurora-toolkit/core/internal/binutil"
)

// Mesh sub-header layout, relative to meshSubHeaderOff (node+80).
// The engine reads the texture name at 88 and the lightmap name at
// 120; the surrounding fields follow the trimesh header layout.
const (
	meshFuncPtr1Off   = 0
	meshFuncPtr2Off   = 4
	meshFacesOff      = 8
	meshFacesCountOff = 12

	textureNameOff  = 88
	textureNameLen  = 32
	lightmapNameOff = 120
	lightmapNameLen = 32

	meshTextureIndicesOff = 152

	meshVertexIndicesOff      = 176
	meshVertexIndicesCountOff = 180

	meshMDXVertexCountOff = 188
	meshMDXDataSizeOff    = 192 // stride, bytes per vertex
	meshMDXDataStartOff   = 196 // byte offset into the MDX file
	meshMDXVertexOff      = 200 // offset-within-vertex of position, -1 if absent
	meshMDXNormalOff      = 204 // offset-within-vertex of normal, -1 if absent

	// meshHeaderSizeK1/K2: K2's mesh header carries 8 extra bytes over
	// K1's, inserted/removed at the end of the header laid out above.
	meshHeaderSizeK1 = 232
	meshHeaderSizeK2 = 240
)

// nullSentinel and dirtSentinel are the reserved texture/lightmap
// names IterTextures/IterLightmaps skip.
const (
	nullSentinel = "null"
	dirtSentinel = "dirt"
)

func meshAbsOffset(node *Node, field uint32) uint32 {
	return node.Offset + meshSubHeaderOff + field
}

// textureName reads the mesh node's texture name field, already
// lowercased.
func (f *File) textureName(n *Node) (string, error) {
	s, err := binutil.FixedASCII(f.body(), bodyOffset(meshAbsOffset(n, textureNameOff)), textureNameLen)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

// lightmapName reads the mesh node's lightmap name field, already
// lowercased.
func (f *File) lightmapName(n *Node) (string, error) {
	s, err := binutil.FixedASCII(f.body(), bodyOffset(meshAbsOffset(n, lightmapNameOff)), lightmapNameLen)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

// IterTextures returns every unique, non-empty, lowercased texture
// name referenced by a mesh node, skipping the "null" sentinel and
// the reserved "dirt" placeholder.
func (f *File) IterTextures() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	err := f.Walk(func(n *Node) error {
		if !n.Type.Has(NodeMesh) {
			return nil
		}
		name, err := f.textureName(n)
		if err != nil {
			return err
		}
		if name == "" || name == nullSentinel || name == dirtSentinel || seen[name] {
			return nil
		}
		seen[name] = true
		out = append(out, name)
		return nil
	})
	return out, err
}

// IterLightmaps returns every unique, non-empty, lowercased lightmap
// name referenced by a mesh node, skipping the "null" sentinel.
func (f *File) IterLightmaps() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	err := f.Walk(func(n *Node) error {
		if !n.Type.Has(NodeMesh) {
			return nil
		}
		name, err := f.lightmapName(n)
		if err != nil {
			return err
		}
		if name == "" || name == nullSentinel || seen[name] {
			return nil
		}
		seen[name] = true
		out = append(out, name)
		return nil
	})
	return out, err
}

// RenameTextures rewrites every mesh node's texture name field in
// place according to names, keyed by the field's current lowercased
// value; names absent from the map are left untouched. New names are
// NUL-padded or truncated to the fixed 32-byte field.
func (f *File) RenameTextures(names map[string]string) error {
	return f.Walk(func(n *Node) error {
		if !n.Type.Has(NodeMesh) {
			return nil
		}
		cur, err := f.textureName(n)
		if err != nil {
			return err
		}
		newName, ok := names[cur]
		if !ok {
			return nil
		}
		return f.writeFixedASCII(bodyOffset(meshAbsOffset(n, textureNameOff)), textureNameLen, newName)
	})
}

// RenameLightmaps rewrites every mesh node's lightmap name field in
// place, the lightmap analogue of RenameTextures.
func (f *File) RenameLightmaps(names map[string]string) error {
	return f.Walk(func(n *Node) error {
		if !n.Type.Has(NodeMesh) {
			return nil
		}
		cur, err := f.lightmapName(n)
		if err != nil {
			return err
		}
		newName, ok := names[cur]
		if !ok {
			return nil
		}
		return f.writeFixedASCII(bodyOffset(meshAbsOffset(n, lightmapNameOff)), lightmapNameLen, newName)
	})
}

// RenameNode replaces the 32-byte name label of n in place.
func (f *File) RenameNode(n *Node, newName string) error {
	return f.writeFixedASCII(bodyOffset(n.Offset+nodeNameOff), nodeNameLen, newName)
}

// writeFixedASCII writes s into a width-byte NUL-padded field at the
// given body offset, rejecting non-ASCII input and silently
// truncating input longer than width (matching PutFixedASCII's
// truncate-on-write contract in internal/binutil).
func (f *File) writeFixedASCII(off uint32, width uint32, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return ErrNotASCII
		}
	}
	if len(s) > int(width) {
		s = s[:width]
	}
	buf := binutil.PutFixedASCII(s, int(width))
	dst, err := binutil.BytesAt(f.body(), off, width)
	if err != nil {
		return err
	}
	copy(dst, buf)
	return nil
}
