package kdtree

import (
	"fmt"
	"math"
)

const (
	// Node indices share the header word with a 2-bit tag so the node
	// array is capped at 2^30 entries.
	MaxNodesCount = 0x40000000

	// The capacity of the traversal stack. Builders must never produce
	// trees deeper than this.
	MaxTraversalDepth = 64

	leafNodeFlags uint32 = 3
)

// A Node is an 8-byte kd-tree record: a 32-bit header and a 32-bit payload.
//
// The low 2 bits of the header select the node kind. Values 0, 1 and 2 mark
// an interior node split along the X, Y or Z axis; 3 marks a leaf. The
// remaining 30 bits hold the index of the above child for interior nodes
// (the below child is always the next node in the array) or the triangle
// count for leaves.
//
// The payload holds the split plane position (float32 bits) for interior
// nodes, the triangle index for single-triangle leaves and an offset into
// the tree's triangle index list for leaves with more than one triangle.
type Node struct {
	header  uint32
	payload uint32
}

// Create an interior node split along axis (0 = x, 1 = y, 2 = z) at the
// given plane position. The below child is implied to follow this node.
func InteriorNode(axis int, aboveChild int32, split float32) Node {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("kdtree: invalid split axis %d", axis))
	}
	if aboveChild < 0 || aboveChild >= MaxNodesCount {
		panic(fmt.Sprintf("kdtree: above child index %d out of range", aboveChild))
	}
	return Node{
		header:  uint32(axis) | uint32(aboveChild)<<2,
		payload: math.Float32bits(split),
	}
}

// Create a leaf with no triangles.
func EmptyLeaf() Node {
	return Node{header: leafNodeFlags}
}

// Create a leaf that references a single triangle directly.
func SingleTriangleLeaf(triangle int32) Node {
	if triangle < 0 {
		panic(fmt.Sprintf("kdtree: invalid triangle index %d", triangle))
	}
	return Node{
		header:  leafNodeFlags | 1<<2,
		payload: uint32(triangle),
	}
}

// Create a leaf referencing count > 1 triangles stored contiguously in the
// tree's triangle index list starting at offset.
func MultiTriangleLeaf(count, offset int32) Node {
	if count <= 1 || count >= MaxNodesCount {
		panic(fmt.Sprintf("kdtree: invalid triangle count %d for multi-triangle leaf", count))
	}
	if offset < 0 {
		panic(fmt.Sprintf("kdtree: invalid triangle index offset %d", offset))
	}
	return Node{
		header:  leafNodeFlags | uint32(count)<<2,
		payload: uint32(offset),
	}
}

func (n Node) IsLeaf() bool {
	return n.header&leafNodeFlags == leafNodeFlags
}

func (n Node) IsInterior() bool {
	return !n.IsLeaf()
}

// Get the split axis of an interior node.
func (n Node) SplitAxis() int {
	assertf(n.IsInterior(), "SplitAxis called on a leaf node")
	return int(n.header & leafNodeFlags)
}

// Get the split plane position of an interior node.
func (n Node) Split() float32 {
	assertf(n.IsInterior(), "Split called on a leaf node")
	return math.Float32frombits(n.payload)
}

// Get the index of the child on the positive side of the split plane.
func (n Node) AboveChild() int32 {
	assertf(n.IsInterior(), "AboveChild called on a leaf node")
	return int32(n.header >> 2)
}

// Get the number of triangles referenced by a leaf.
func (n Node) TriangleCount() int32 {
	assertf(n.IsLeaf(), "TriangleCount called on an interior node")
	return int32(n.header >> 2)
}

// Get the triangle referenced by a single-triangle leaf.
func (n Node) TriangleIndex() int32 {
	assertf(n.IsLeaf() && n.header>>2 == 1, "TriangleIndex called on a node that is not a single-triangle leaf")
	return int32(n.payload)
}

// Get the triangle index list offset of a multi-triangle leaf.
func (n Node) IndexOffset() int32 {
	assertf(n.IsLeaf() && n.header>>2 > 1, "IndexOffset called on a node that is not a multi-triangle leaf")
	return int32(n.payload)
}

func (n Node) String() string {
	if n.IsInterior() {
		return fmt.Sprintf("interior{axis: %d, split: %g, above: %d}", n.SplitAxis(), n.Split(), n.AboveChild())
	}
	switch count := n.TriangleCount(); count {
	case 0:
		return "leaf{}"
	case 1:
		return fmt.Sprintf("leaf{triangle: %d}", n.TriangleIndex())
	default:
		return fmt.Sprintf("leaf{triangles: %d, offset: %d}", count, n.IndexOffset())
	}
}

func assertf(cond bool, format string, args ...interface{}) {
	if debugAssertions && !cond {
		panic(fmt.Sprintf("kdtree: "+format, args...))
	}
}
