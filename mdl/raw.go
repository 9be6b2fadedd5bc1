package mdl

import (
	"encoding/binary"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/aurora-toolkit/core/internal/binutil"
)

// This file exposes the minimal raw, body-relative byte-level surface
// the convert package needs to perform its offset-graph rewrite
// without reaching into mdl's unexported node/mesh layout constants
// directly. Everything here is
// body-relative (i.e. already past the 12-byte prelude), matching how
// every stored offset inside the file itself is encoded.

// Exported field offsets, relative to a mesh node's sub-header start
// (MeshSubHeaderOffset past the node's own start), for the pointer
// fields the convert package's offset collection must track. See mesh.go for the full
// layout these are drawn from.
const (
	MeshSubHeaderOffset    = meshSubHeaderOff
	FieldMeshFaces         = meshFacesOff
	FieldMeshTextureIdx    = meshTextureIndicesOff
	FieldMeshVertexIdx     = meshVertexIndicesOff
	FieldMeshFuncPtr1      = meshFuncPtr1Off
	FieldMeshFuncPtr2      = meshFuncPtr2Off
	FieldNodeChildrenPtr   = nodeChildrenPtrOff
	FieldNodeChildrenCount = nodeChildrenCountOff
	FieldModelRootNode     = rootNodeOffsetOff
	MeshHeaderSizeK1       = meshHeaderSizeK1
	MeshHeaderSizeK2       = meshHeaderSizeK2
	ModelHeaderSize        = modelHeaderSize
)

// BodyLen returns the current length of the MDL body (past the
// 12-byte prelude).
func (f *File) BodyLen() int { return len(f.body()) }

// BodyBytes returns a copy of the current MDL body, for callers (the
// convert package) that need to build a resized replacement buffer
// without mutating the live mapping mid-read.
func (f *File) BodyBytes() []byte {
	body := f.body()
	out := make([]byte, len(body))
	copy(out, body)
	return out
}

// BodyUint32 reads a little-endian uint32 at a body-relative offset.
func (f *File) BodyUint32(off uint32) (uint32, error) {
	return binutil.Uint32(f.body(), off)
}

// SetBodyUint32 writes a little-endian uint32 at a body-relative
// offset within the current body (no resize).
func (f *File) SetBodyUint32(off uint32, v uint32) error {
	dst, err := binutil.BytesAt(f.body(), off, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, v)
	return nil
}

// ChildArrayOffsets returns the body offsets of the count raw
// uint32 entries stored at the children array beginning at arrayOff.
func (f *File) ChildArrayOffsets(arrayOff, count uint32) []uint32 {
	out := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		out[i] = arrayOff + i*4
	}
	return out
}

// Rebuild replaces the entire MDL body with newBody, resizing the
// backing file and mapping as needed, and updates the prelude's
// stored body-size field and the parsed Header. Used by the
// generation converter after it has spliced or removed mesh-header
// padding and rewritten every offset in the file to match.
func (f *File) Rebuild(newBody []byte) error {
	newFileSize := preludeSize + len(newBody)
	if newFileSize != len(f.mdl) {
		if err := f.mdl.Unmap(); err != nil {
			return err
		}
		if err := f.mdlFile.Truncate(int64(newFileSize)); err != nil {
			return err
		}
		data, err := mmap.Map(f.mdlFile, mmap.RDWR, 0)
		if err != nil {
			return err
		}
		f.mdl = data
	}
	copy(f.mdl[preludeSize:], newBody)
	binary.LittleEndian.PutUint32(f.mdl[4:], uint32(len(newBody)))
	return f.parseHeader()
}

// NodeHeaderSize is the fixed size of a node's generic header, before
// any type-specific sub-header.
const NodeHeaderSize = nodeHeaderSize

// BodyOffset converts an absolute file offset (e.g. Node.Offset) to
// its body-relative (stored) form.
func BodyOffset(fileOff uint32) uint32 { return bodyOffset(fileOff) }

// FileOffset converts a body-relative stored offset to an absolute
// file offset.
func FileOffset(bodyOff uint32) uint32 { return fileOffset(bodyOff) }
