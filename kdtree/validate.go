package kdtree

import "fmt"

// Check that the node array and triangle index list form a well formed
// tree over a mesh with triangleCount triangles:
//
//   - the tree has a root and at most MaxNodesCount nodes
//   - children are stored after their parents and inside the node array
//   - every node is reachable from exactly one parent
//   - leaves reference valid triangles and in-range index list slices
//   - the tree is no deeper than MaxTraversalDepth
//
// Violations are reported as errors wrapping ErrCorrupt.
func Validate(nodes []Node, triangleIndices []int32, triangleCount int32) error {
	nodeCount := len(nodes)
	if nodeCount == 0 {
		return fmt.Errorf("%w: tree has no root node", ErrCorrupt)
	}
	if nodeCount > MaxNodesCount {
		return fmt.Errorf("%w: node count %d exceeds the maximum of %d", ErrCorrupt, nodeCount, MaxNodesCount)
	}

	for i, triangle := range triangleIndices {
		if triangle < 0 || triangle >= triangleCount {
			return fmt.Errorf("%w: triangle index list entry %d references triangle %d; mesh has %d triangles", ErrCorrupt, i, triangle, triangleCount)
		}
	}

	// Children always come after their parent so a single forward pass
	// can assign depths; nodes that are never assigned one are orphans.
	depth := make([]uint8, nodeCount)
	parented := make([]bool, nodeCount)
	parented[0] = true

	setChild := func(parent, child int) error {
		if parented[child] {
			return fmt.Errorf("%w: node %d is referenced by more than one parent", ErrCorrupt, child)
		}
		parented[child] = true
		if int(depth[parent])+1 > MaxTraversalDepth {
			return fmt.Errorf("%w: tree depth exceeds the maximum of %d", ErrCorrupt, MaxTraversalDepth)
		}
		depth[child] = depth[parent] + 1
		return nil
	}

	for i, node := range nodes {
		if !parented[i] {
			return fmt.Errorf("%w: node %d is not reachable from the root", ErrCorrupt, i)
		}

		if node.IsInterior() {
			below := i + 1
			above := int(node.AboveChild())
			if below >= nodeCount {
				return fmt.Errorf("%w: interior node %d has no below child", ErrCorrupt, i)
			}
			if above <= below || above >= nodeCount {
				return fmt.Errorf("%w: interior node %d references above child %d; valid range is (%d, %d)", ErrCorrupt, i, above, below, nodeCount)
			}
			if err := setChild(i, below); err != nil {
				return err
			}
			if err := setChild(i, above); err != nil {
				return err
			}
			continue
		}

		switch count := node.TriangleCount(); count {
		case 0:
		case 1:
			if triangle := node.TriangleIndex(); triangle < 0 || triangle >= triangleCount {
				return fmt.Errorf("%w: leaf %d references triangle %d; mesh has %d triangles", ErrCorrupt, i, triangle, triangleCount)
			}
		default:
			offset := int64(node.IndexOffset())
			if offset < 0 || offset+int64(count) > int64(len(triangleIndices)) {
				return fmt.Errorf("%w: leaf %d references index list range [%d, %d); list length %d", ErrCorrupt, i, offset, offset+int64(count), len(triangleIndices))
			}
		}
	}

	return nil
}
