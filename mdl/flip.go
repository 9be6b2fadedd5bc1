package mdl

import (
	"encoding/binary"
	"math"

	"github.com/aurora-toolkit/core/internal/binutil"
)

// faceRecordSize and faceVertIndicesOff describe the MDL-local face
// (collision) table entry: plane normal (12), plane distance (4),
// surface material (4), three adjacent-face indices (6), then the
// three vertex indices reversed by Flip.
const (
	faceRecordSize      = 32
	faceVertIndicesOff  = 26
	triangleRecordSize  = 6 // three uint16 vertex indices
)

func readFloat32(data []byte, off uint32) (float32, error) {
	raw, err := binutil.Uint32(data, off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(raw), nil
}

func writeFloat32(data []byte, off uint32, v float32) error {
	dst, err := binutil.BytesAt(data, off, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	return nil
}

func writeUint16(data []byte, off uint32, v uint16) error {
	dst, err := binutil.BytesAt(data, off, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(dst, v)
	return nil
}

// Flip negates the X and/or Y component of every mesh vertex position
// and normal. For an odd number of flips (exactly one
// of flipX/flipY set), triangle winding is reversed in both the
// MDL-local vertex-index (render) table and the face (collision)
// table, since negating a single axis mirrors the mesh and would
// otherwise invert every surface normal implied by winding order.
func (f *File) Flip(flipX, flipY bool) error {
	odd := flipX != flipY

	return f.Walk(func(n *Node) error {
		if !n.Type.Has(NodeMesh) {
			return nil
		}
		if err := f.flipMDXVertices(n, flipX, flipY); err != nil {
			return err
		}
		if odd {
			if err := f.reverseWinding(n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *File) flipMDXVertices(n *Node, flipX, flipY bool) error {
	body := f.body()
	meshOff := n.Offset + meshSubHeaderOff

	count, err := binutil.Uint32(body, bodyOffset(meshOff+meshMDXVertexCountOff))
	if err != nil {
		return err
	}
	stride, err := binutil.Uint32(body, bodyOffset(meshOff+meshMDXDataSizeOff))
	if err != nil {
		return err
	}
	start, err := binutil.Uint32(body, bodyOffset(meshOff+meshMDXDataStartOff))
	if err != nil {
		return err
	}
	posOff, err := binutil.Uint32(body, bodyOffset(meshOff+meshMDXVertexOff))
	if err != nil {
		return err
	}
	normOff, err := binutil.Uint32(body, bodyOffset(meshOff+meshMDXNormalOff))
	if err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		vStart := start + i*stride
		if err := negateComponents(f.mdx, vStart+posOff, flipX, flipY); err != nil {
			return err
		}
		if err := negateComponents(f.mdx, vStart+normOff, flipX, flipY); err != nil {
			return err
		}
	}
	return nil
}

// negateComponents flips the X and/or Y float32 of a 3-float vector
// stored at off within data (position or normal triples share layout:
// X, Y, Z consecutively).
func negateComponents(data []byte, off uint32, flipX, flipY bool) error {
	if flipX {
		v, err := readFloat32(data, off)
		if err != nil {
			return err
		}
		if err := writeFloat32(data, off, -v); err != nil {
			return err
		}
	}
	if flipY {
		v, err := readFloat32(data, off+4)
		if err != nil {
			return err
		}
		if err := writeFloat32(data, off+4, -v); err != nil {
			return err
		}
	}
	return nil
}

// reverseWinding swaps the second and third vertex index of every
// triangle in both the render (vertex-index) table and the collision
// (face) table, undoing the mirroring negateComponents introduces.
func (f *File) reverseWinding(n *Node) error {
	body := f.body()
	meshOff := n.Offset + meshSubHeaderOff

	viOffset, err := binutil.Uint32(body, bodyOffset(meshOff+meshVertexIndicesOff))
	if err != nil {
		return err
	}
	viCount, err := binutil.Uint32(body, bodyOffset(meshOff+meshVertexIndicesCountOff))
	if err != nil {
		return err
	}
	for i := uint32(0); i < viCount; i++ {
		rowOff := viOffset + i*triangleRecordSize
		if err := swapUint16(body, rowOff+2, rowOff+4); err != nil {
			return err
		}
	}

	facesOffset, err := binutil.Uint32(body, bodyOffset(meshOff+meshFacesOff))
	if err != nil {
		return err
	}
	facesCount, err := binutil.Uint32(body, bodyOffset(meshOff+meshFacesCountOff))
	if err != nil {
		return err
	}
	for i := uint32(0); i < facesCount; i++ {
		rowOff := facesOffset + i*faceRecordSize + faceVertIndicesOff
		if err := swapUint16(body, rowOff+2, rowOff+4); err != nil {
			return err
		}
	}
	return nil
}

func swapUint16(data []byte, offA, offB uint32) error {
	a, err := binutil.Uint16(data, offA)
	if err != nil {
		return err
	}
	b, err := binutil.Uint16(data, offB)
	if err != nil {
		return err
	}
	if err := writeUint16(data, offA, b); err != nil {
		return err
	}
	return writeUint16(data, offB, a)
}
