package convert

import (
	"encoding/binary"

	"github.com/aurora-toolkit/core/mdl"
)

// Generation selectors local to this package (mirroring
// core.Generation numerically is unnecessary: convert only ever
// distinguishes K1 from K2).
const (
	genK1 = iota
	genK2
)

// meshCategory groups the node-type bits that select which
// function-pointer pair a mesh header carries.
type meshCategory int

const (
	meshTrimesh meshCategory = iota
	meshSkin
	meshDangly
	meshAABB
	meshSaber
)

func categorize(t mdl.NodeFlags) meshCategory {
	switch {
	case t.Has(mdl.NodeSkin):
		return meshSkin
	case t.Has(mdl.NodeDangly):
		return meshDangly
	case t.Has(mdl.NodeAABB):
		return meshAABB
	case t.Has(mdl.NodeSaber):
		return meshSaber
	default:
		return meshTrimesh
	}
}

// funcPtrPair is the (function-pointer-1, function-pointer-2) value
// pair stamped into a geometry or mesh header. The engine overwrites
// both on load, so only the per-generation distinctness of the values
// matters; this table uses fixed values keyed by generation and node
// category. Round-tripping
// K1->K2->K1 is still the identity because every value in the table
// is distinct and the mapping is applied as a simple lookup by
// (generation, category), never derived from the bytes being
// replaced.
var geometryFuncPointers = map[int][2]uint32{
	genK1: {0x002DA7F0, 0x002DA810},
	genK2: {0x0044ACA0, 0x0044ACC0},
}

var meshFuncPointers = map[int]map[meshCategory][2]uint32{
	genK1: {
		meshTrimesh: {0x002DA7D0, 0x002DA7D8},
		meshSkin:    {0x002DA820, 0x002DA828},
		meshDangly:  {0x002DA838, 0x002DA840},
		meshAABB:    {0x002DA850, 0x002DA858},
		meshSaber:   {0x002DA868, 0x002DA870},
	},
	genK2: {
		meshTrimesh: {0x0044AC90, 0x0044AC98},
		meshSkin:    {0x0044ACE0, 0x0044ACE8},
		meshDangly:  {0x0044ACF8, 0x0044AD00},
		meshAABB:    {0x0044AD10, 0x0044AD18},
		meshSaber:   {0x0044AD28, 0x0044AD30},
	},
}

// rewriteFuncPointers stamps the target generation's geometry-header
// and per-mesh-header function-pointer constants into newBody, using
// shift to locate each mesh's (already-relocated) sub-header.
func rewriteFuncPointers(newBody []byte, meshes []meshNode, shift func(uint32) uint32, to int) {
	geo := geometryFuncPointers[to]
	binary.LittleEndian.PutUint32(newBody[0:], geo[0])
	binary.LittleEndian.PutUint32(newBody[4:], geo[1])

	table := meshFuncPointers[to]
	for _, mn := range meshes {
		base := shift(mn.meshBase)
		ptrs := table[mn.category]
		binary.LittleEndian.PutUint32(newBody[base+mdl.FieldMeshFuncPtr1:], ptrs[0])
		binary.LittleEndian.PutUint32(newBody[base+mdl.FieldMeshFuncPtr2:], ptrs[1])
	}
}
