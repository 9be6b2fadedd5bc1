package mdl

import (
	"encoding/binary"
	"math"

	mmap "github.com/edsrzf/mmap-go"
)

// Vector3 is a plain 3-component float vector, used for positions,
// normals, and the translation argument of Transform.
type Vector3 struct {
	X, Y, Z float32
}

// Quaternion is a plain 4-component rotation quaternion in (x, y, z,
// w) order, the order the node header stores it in.
type Quaternion struct {
	X, Y, Z, W float32
}

// RotationZ builds the quaternion (0, 0, sin(theta/2), cos(theta/2))
// for a rotation of theta radians around the Z axis.
func RotationZ(theta float64) Quaternion {
	half := theta / 2
	return Quaternion{X: 0, Y: 0, Z: float32(math.Sin(half)), W: float32(math.Cos(half))}
}

// Additional node-header fields used only by Transform: the position
// and orientation of the synthetic root it creates. These occupy the
// remainder of the fixed 80-byte node header, after the flag word at
// 0 and the children pointer/count at 44/48; the layout keeps node+80
// as the first byte of any type-specific sub-header.
const (
	nodePositionOff    = 52 // [3]float32
	nodeOrientationOff = 64 // [4]float32 (x, y, z, w)
)

// Transform wraps the model's existing root node inside a new
// synthetic root whose position is translation and whose orientation
// quaternion encodes a rotation of rotationZ radians around Z. The
// new node is appended to the end of the file
// (so no existing stored offset needs to shift) and the model header
// is updated to point at it and to count it.
func (f *File) Transform(translation Vector3, rotationZ float64) error {
	oldRootBodyOffset := f.Header.RootNodeOffset
	q := RotationZ(rotationZ)

	body := f.body()
	newNodeBodyOffset := uint32(len(body))
	childArrayBodyOffset := newNodeBodyOffset + nodeHeaderSize

	if err := f.grow(preludeSize + int(childArrayBodyOffset) + 4); err != nil {
		return err
	}
	body = f.body()

	node := make([]byte, nodeHeaderSize)
	binary.LittleEndian.PutUint16(node[nodeFlagsOff:], uint16(NodeHeader))
	binary.LittleEndian.PutUint32(node[nodeChildrenPtrOff:], childArrayBodyOffset)
	binary.LittleEndian.PutUint32(node[nodeChildrenCountOff:], 1)
	binary.LittleEndian.PutUint32(node[nodePositionOff:], math.Float32bits(translation.X))
	binary.LittleEndian.PutUint32(node[nodePositionOff+4:], math.Float32bits(translation.Y))
	binary.LittleEndian.PutUint32(node[nodePositionOff+8:], math.Float32bits(translation.Z))
	binary.LittleEndian.PutUint32(node[nodeOrientationOff:], math.Float32bits(q.X))
	binary.LittleEndian.PutUint32(node[nodeOrientationOff+4:], math.Float32bits(q.Y))
	binary.LittleEndian.PutUint32(node[nodeOrientationOff+8:], math.Float32bits(q.Z))
	binary.LittleEndian.PutUint32(node[nodeOrientationOff+12:], math.Float32bits(q.W))
	copy(body[newNodeBodyOffset:], node)

	binary.LittleEndian.PutUint32(body[childArrayBodyOffset:], oldRootBodyOffset)

	binary.LittleEndian.PutUint32(body[rootNodeOffsetOff:], newNodeBodyOffset)
	binary.LittleEndian.PutUint32(body[nodeCountOff:], f.Header.NodeCount+1)

	f.Header.RootNodeOffset = newNodeBodyOffset
	f.Header.NodeCount++
	return nil
}

// grow extends the backing MDL file (and its memory mapping) to at
// least newFileSize bytes and updates the prelude's stored MDL body
// size.
func (f *File) grow(newFileSize int) error {
	if newFileSize <= len(f.mdl) {
		return nil
	}
	if err := f.mdl.Unmap(); err != nil {
		return err
	}
	if err := f.mdlFile.Truncate(int64(newFileSize)); err != nil {
		return err
	}
	mode := mmap.RDWR
	data, err := mmap.Map(f.mdlFile, mode, 0)
	if err != nil {
		return err
	}
	f.mdl = data
	binary.LittleEndian.PutUint32(f.mdl[4:], uint32(newFileSize-preludeSize))
	return nil
}
