package mdl

import "github.com/aurora-toolkit/core/internal/binutil"

// NodeFlags is the 16-bit bitmask at the start of every node header
// selecting which optional sub-headers follow.
type NodeFlags uint16

// Node type bits.
const (
	NodeHeader    NodeFlags = 0x0001
	NodeLight     NodeFlags = 0x0002
	NodeEmitter   NodeFlags = 0x0004
	NodeCamera    NodeFlags = 0x0008
	NodeReference NodeFlags = 0x0010
	NodeMesh      NodeFlags = 0x0020
	NodeSkin      NodeFlags = 0x0040
	NodeAnim      NodeFlags = 0x0080
	NodeDangly    NodeFlags = 0x0100
	NodeAABB      NodeFlags = 0x0200
	NodeSaber     NodeFlags = 0x0800
)

// Has reports whether flags includes every bit set in want.
func (flags NodeFlags) Has(want NodeFlags) bool { return flags&want == want }

// Node header layout, relative to the node's own start: the flag
// word at 0, the children pointer/count at 44/48, and the 32-byte
// name label between the flag word and the parent pointer.
const (
	nodeFlagsOff         = 0
	nodeNameOff          = 8
	nodeNameLen          = 32
	nodeChildrenPtrOff   = 44
	nodeChildrenCountOff = 48
	nodeHeaderSize       = 80

	// meshSubHeaderOff is where a mesh-bearing node's type-specific
	// sub-header begins, relative to the node's own start; the
	// texture/lightmap fields sit 88 and 120 bytes into it.
	meshSubHeaderOff = 80
)

// Node is one entry in the model's node tree, as yielded by Walk.
type Node struct {
	Type           NodeFlags
	Offset         uint32 // absolute file offset of the node's start
	Name           string
	ChildrenOffset uint32 // body-relative pointer to the child-offset array
	ChildCount     uint32
}

// readNode parses the node header at the absolute file offset off.
func (f *File) readNode(off uint32) (*Node, error) {
	if off < preludeSize {
		return nil, ErrOffsetOutOfBounds
	}
	body := f.body()
	start := bodyOffset(off)

	rawFlags, err := binutil.Uint16(body, start+nodeFlagsOff)
	if err != nil {
		return nil, err
	}
	name, err := binutil.FixedASCII(body, start+nodeNameOff, nodeNameLen)
	if err != nil {
		return nil, err
	}
	childPtr, err := binutil.Uint32(body, start+nodeChildrenPtrOff)
	if err != nil {
		return nil, err
	}
	childCount, err := binutil.Uint32(body, start+nodeChildrenCountOff)
	if err != nil {
		return nil, err
	}

	return &Node{
		Type:           NodeFlags(rawFlags),
		Offset:         off,
		Name:           name,
		ChildrenOffset: childPtr,
		ChildCount:     childCount,
	}, nil
}

// children returns the absolute file offsets of n's children.
func (f *File) children(n *Node) ([]uint32, error) {
	if n.ChildCount == 0 {
		return nil, nil
	}
	body := f.body()
	out := make([]uint32, n.ChildCount)
	for i := uint32(0); i < n.ChildCount; i++ {
		raw, err := binutil.Uint32(body, n.ChildrenOffset+i*4)
		if err != nil {
			return nil, err
		}
		out[i] = fileOffset(raw)
	}
	return out, nil
}

// Walk performs a breadth-first traversal of the node tree starting
// at the root node named by the model header, invoking visit once per
// node in BFS order. A node whose descendants loop back
// to an already-visited offset yields ErrCycle rather than looping
// forever.
func (f *File) Walk(visit func(*Node) error) error {
	rootOff := fileOffset(f.Header.RootNodeOffset)
	root, err := f.readNode(rootOff)
	if err != nil {
		return err
	}

	visited := map[uint32]bool{root.Offset: true}
	queue := []*Node{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if err := visit(n); err != nil {
			return err
		}

		childOffs, err := f.children(n)
		if err != nil {
			return err
		}
		for _, off := range childOffs {
			if visited[off] {
				return ErrCycle
			}
			visited[off] = true
			child, err := f.readNode(off)
			if err != nil {
				return err
			}
			queue = append(queue, child)
		}
	}
	return nil
}
