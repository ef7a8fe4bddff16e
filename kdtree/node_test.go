package kdtree

import (
	"math"
	"testing"
	"unsafe"
)

func TestNodeSize(t *testing.T) {
	if size := unsafe.Sizeof(Node{}); size != nodeSize {
		t.Fatalf("expected node size to be %d bytes; got %d", nodeSize, size)
	}
}

func TestInteriorNodeEncoding(t *testing.T) {
	specs := []struct {
		axis       int
		aboveChild int32
		split      float32
	}{
		{0, 2, 1.5},
		{1, 12345, -3.25},
		{2, MaxNodesCount - 1, 0},
		{2, 7, float32(math.Inf(1))},
	}

	for specIndex, spec := range specs {
		n := InteriorNode(spec.axis, spec.aboveChild, spec.split)
		if !n.IsInterior() || n.IsLeaf() {
			t.Errorf("[spec %d] expected an interior node", specIndex)
			continue
		}
		if n.SplitAxis() != spec.axis {
			t.Errorf("[spec %d] expected axis %d; got %d", specIndex, spec.axis, n.SplitAxis())
		}
		if n.AboveChild() != spec.aboveChild {
			t.Errorf("[spec %d] expected above child %d; got %d", specIndex, spec.aboveChild, n.AboveChild())
		}
		if n.Split() != spec.split {
			t.Errorf("[spec %d] expected split %f; got %f", specIndex, spec.split, n.Split())
		}
		if n.header&3 != uint32(spec.axis) || n.header>>2 != uint32(spec.aboveChild) {
			t.Errorf("[spec %d] unexpected header layout %#x", specIndex, n.header)
		}
	}
}

func TestLeafEncoding(t *testing.T) {
	empty := EmptyLeaf()
	if !empty.IsLeaf() || empty.TriangleCount() != 0 {
		t.Fatalf("expected empty leaf; got %v", empty)
	}

	single := SingleTriangleLeaf(42)
	if !single.IsLeaf() || single.TriangleCount() != 1 || single.TriangleIndex() != 42 {
		t.Fatalf("expected single-triangle leaf referencing 42; got %v", single)
	}

	multi := MultiTriangleLeaf(5, 100)
	if !multi.IsLeaf() || multi.TriangleCount() != 5 || multi.IndexOffset() != 100 {
		t.Fatalf("expected leaf with 5 triangles at offset 100; got %v", multi)
	}

	maxCount := MultiTriangleLeaf(MaxNodesCount-1, 0)
	if maxCount.TriangleCount() != MaxNodesCount-1 {
		t.Fatalf("expected count %d; got %d", MaxNodesCount-1, maxCount.TriangleCount())
	}
}

func TestNodeConstructorsRejectInvalidInput(t *testing.T) {
	specs := []struct {
		name string
		fn   func()
	}{
		{"negative axis", func() { InteriorNode(-1, 2, 0) }},
		{"leaf axis", func() { InteriorNode(3, 2, 0) }},
		{"above child too large", func() { InteriorNode(0, MaxNodesCount, 0) }},
		{"negative above child", func() { InteriorNode(0, -1, 0) }},
		{"negative triangle", func() { SingleTriangleLeaf(-1) }},
		{"multi leaf with one triangle", func() { MultiTriangleLeaf(1, 0) }},
		{"multi leaf count too large", func() { MultiTriangleLeaf(MaxNodesCount, 0) }},
		{"negative offset", func() { MultiTriangleLeaf(2, -1) }},
	}

	for _, spec := range specs {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("[spec %s] expected constructor to panic", spec.name)
				}
			}()
			spec.fn()
		}()
	}
}

func TestNodeString(t *testing.T) {
	specs := []struct {
		node   Node
		expStr string
	}{
		{InteriorNode(1, 4, 0.5), "interior{axis: 1, split: 0.5, above: 4}"},
		{EmptyLeaf(), "leaf{}"},
		{SingleTriangleLeaf(3), "leaf{triangle: 3}"},
		{MultiTriangleLeaf(2, 8), "leaf{triangles: 2, offset: 8}"},
	}

	for specIndex, spec := range specs {
		if got := spec.node.String(); got != spec.expStr {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.expStr, got)
		}
	}
}
