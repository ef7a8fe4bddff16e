package kdtree

import (
	"testing"

	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/achilleasa/kdtrace/types"
)

// Four unit triangles facing +z: triangles 0 and 1 sit over x in [0, 1]
// at z = 0 and z = -1; triangles 2 and 3 sit over x in [2, 3] at z = 0
// and z = 1.
func quadMesh(t *testing.T) *mesh.TriangleMesh {
	tri := func(x, z float32) []types.Vec3 {
		return []types.Vec3{{x, 0, z}, {x + 1, 0, z}, {x, 1, z}}
	}

	var vertices []types.Vec3
	vertices = append(vertices, tri(0, 0)...)
	vertices = append(vertices, tri(0, -1)...)
	vertices = append(vertices, tri(2, 0)...)
	vertices = append(vertices, tri(2, 1)...)

	m, err := mesh.New("quad", vertices, [][3]int32{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9, 10, 11}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// A tree splitting quadMesh along x = 1.5 with two multi-triangle leaves.
func quadTree(t *testing.T) *Tree {
	m := quadMesh(t)
	nodes := []Node{
		InteriorNode(0, 2, 1.5),
		MultiTriangleLeaf(2, 0),
		MultiTriangleLeaf(2, 2),
	}
	return New(nodes, []int32{0, 1, 2, 3}, m, m.Bounds())
}
