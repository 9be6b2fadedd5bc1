// Package convert converts model files between the two supported
// engine generations: they share a file structure but differ in mesh-header size (K2 carries 8 extra bytes
// per mesh header) and in the function-pointer constants stamped into
// geometry/mesh headers.
//
// The file is a directed graph of byte offsets with no schema layer,
// so conversion works off OffsetMap, a single canonical
// pointer-location -> pointee-location map built in one walk. Every
// mutation is applied as a coordinated pair of updates: shift the
// keys whose locations move, shift the values whose targets move,
// then rewrite the stored pointer bytes once, into a freshly built
// buffer rather than in place.
package convert

import (
	"encoding/binary"
	"sort"

	"github.com/aurora-toolkit/core/mdl"
)

// OffsetMap is the canonical pointer-location -> pointee-location map
// built by a single walk of the model.
type OffsetMap map[uint32]uint32

// pointerField is one entry queued for rewrite: the body-relative
// byte offset a 4-byte offset value lives at (location) and the
// stored value it currently holds (target).
type pointerField struct {
	location uint32
	target   uint32
}

// meshNode is a mesh-bearing node's body-relative sub-header start,
// its node-header start, and its flag-derived category, collected
// during the pre-transform walk.
type meshNode struct {
	nodeBodyOffset uint32
	meshBase       uint32
	category       meshCategory
}

// K1ToK2 converts m in place from the first supported generation to
// the second: it inserts 8 zero bytes at the end of every mesh
// header, shifts every stored offset that lands at or past each
// insertion point, and rewrites the known function-pointer constants
// to generation two's values.
func K1ToK2(m *mdl.File) error { return convert(m, genK1, genK2) }

// K2ToK1 performs the reverse of K1ToK2: it removes the 8 trailing
// bytes K2 added to every mesh header and shifts every stored offset
// accordingly.
func K2ToK1(m *mdl.File) error { return convert(m, genK2, genK1) }

func convert(m *mdl.File, from, to int) error {
	pointers, meshes, err := collect(m)
	if err != nil {
		return err
	}

	points := make([]uint32, 0, len(meshes))
	for _, mn := range meshes {
		points = append(points, mn.meshBase+mdl.MeshHeaderSizeK1)
	}
	sort.Slice(points, func(i, j int) bool { return points[i] < points[j] })
	for i := 1; i < len(points); i++ {
		if points[i] == points[i-1] {
			return ErrCollision
		}
	}

	delta := int32(8)
	if to == genK1 {
		delta = -8
	}

	shift := func(off uint32) uint32 {
		n := sort.Search(len(points), func(i int) bool { return points[i] > off })
		return uint32(int64(off) + int64(delta)*int64(n))
	}

	newBody := spliceBody(m.BodyBytes(), points, delta)

	for _, pf := range pointers {
		loc := shift(pf.location)
		val := shift(pf.target)
		if int(loc)+4 > len(newBody) {
			return mdl.ErrOffsetOutOfBounds
		}
		binary.LittleEndian.PutUint32(newBody[loc:], val)
	}

	rewriteFuncPointers(newBody, meshes, shift, to)

	return m.Rebuild(newBody)
}

// spliceBody builds a new buffer from body with delta bytes
// inserted (delta > 0) or removed (delta < 0) at each point, points
// sorted ascending and given in terms of the *source* layout.
func spliceBody(body []byte, points []uint32, delta int32) []byte {
	out := make([]byte, 0, len(body)+len(points)*8)
	prev := uint32(0)
	for _, p := range points {
		out = append(out, body[prev:p]...)
		if delta > 0 {
			out = append(out, make([]byte, delta)...)
			prev = p
		} else {
			prev = p + uint32(-delta)
		}
	}
	out = append(out, body[prev:]...)
	return out
}

// collect walks m once, gathering every stored offset field (the
// model header's root pointer, every node's children-array pointer
// and each of its entries, and every mesh node's faces/texture-index/
// vertex-index table pointers) plus the list of mesh nodes needed to
// compute insertion points and rewrite function pointers.
func collect(m *mdl.File) ([]pointerField, []meshNode, error) {
	var pointers []pointerField
	var meshes []meshNode

	pointers = append(pointers, pointerField{
		location: mdl.FieldModelRootNode,
		target:   m.Header.RootNodeOffset,
	})

	err := m.Walk(func(n *mdl.Node) error {
		nodeBody := mdl.BodyOffset(n.Offset)

		if n.ChildCount > 0 {
			pointers = append(pointers, pointerField{
				location: nodeBody + mdl.FieldNodeChildrenPtr,
				target:   n.ChildrenOffset,
			})
			for _, entryLoc := range m.ChildArrayOffsets(n.ChildrenOffset, n.ChildCount) {
				val, err := m.BodyUint32(entryLoc)
				if err != nil {
					return err
				}
				pointers = append(pointers, pointerField{location: entryLoc, target: val})
			}
		}

		if !n.Type.Has(mdl.NodeMesh) {
			return nil
		}
		meshBase := nodeBody + mdl.MeshSubHeaderOffset
		for _, field := range []uint32{mdl.FieldMeshFaces, mdl.FieldMeshTextureIdx, mdl.FieldMeshVertexIdx} {
			val, err := m.BodyUint32(meshBase + field)
			if err != nil {
				return err
			}
			pointers = append(pointers, pointerField{location: meshBase + field, target: val})
		}
		meshes = append(meshes, meshNode{
			nodeBodyOffset: nodeBody,
			meshBase:       meshBase,
			category:       categorize(n.Type),
		})
		return nil
	})
	return pointers, meshes, err
}
