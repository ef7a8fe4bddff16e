package kdtree

import (
	"math"

	"github.com/achilleasa/kdtrace/types"
)

// The Mesh interface is implemented by triangle meshes that can be
// indexed by a Tree. Meshes are borrowed by the tree and must not be
// modified while the tree is in use.
type Mesh interface {
	// Get the number of triangles in the mesh.
	TriangleCount() int32

	// Get the world space bounds of the mesh.
	Bounds() types.BBox

	// Intersect a ray with a single triangle. Hits are only reported for
	// distances inside the ray's [TMin, TMax] range.
	IntersectTriangle(ray types.Ray, triangle int32) (t, b1, b2 float32, hit bool)

	// Get the geometric normal of a triangle.
	TriangleNormal(triangle int32) types.Vec3
}

// Describes the nearest ray hit.
type Intersection struct {
	// The hit triangle index.
	Triangle int32

	// The parametric hit distance along the ray.
	T float32

	// Barycentric coordinates of the hit point.
	B1, B2 float32

	Point  types.Vec3
	Normal types.Vec3
}

// A Tree is an immutable kd-tree over the triangles of a mesh. The node
// array is laid out depth first: the below child of an interior node is
// always stored right after its parent.
//
// All methods are safe for concurrent use.
type Tree struct {
	nodes           []Node
	triangleIndices []int32

	mesh       Mesh
	meshBounds types.BBox
}

// An entry of the traversal stack.
type stackEntry struct {
	node int32
	tMin float32
	tMax float32
}

// Create a tree from a prebuilt node array and triangle index list. The
// tree takes ownership of both slices; callers must not modify them
// afterwards. The arrays are trusted: nodes[0] must be the root, all child
// indices and leaf offsets must be in range and the tree depth must not
// exceed MaxTraversalDepth. Use Validate to check arrays from an untrusted
// source. Only trees whose meshBounds equal mesh.Bounds() can be saved.
func New(nodes []Node, triangleIndices []int32, mesh Mesh, meshBounds types.BBox) *Tree {
	return &Tree{
		nodes:           nodes,
		triangleIndices: triangleIndices,
		mesh:            mesh,
		meshBounds:      meshBounds,
	}
}

// Get the indexed mesh.
func (tr *Tree) Mesh() Mesh {
	return tr.mesh
}

// Get the bounds of the indexed mesh.
func (tr *Tree) MeshBounds() types.BBox {
	return tr.meshBounds
}

// Get the node array. The returned slice must not be modified.
func (tr *Tree) Nodes() []Node {
	return tr.nodes
}

// Get the triangle index list. The returned slice must not be modified.
func (tr *Tree) TriangleIndices() []int32 {
	return tr.triangleIndices
}

// Find the nearest triangle hit by the ray. The ray's TMin is expected
// to be non-negative.
//
// Children are visited front to back: the child containing the ray origin
// side of the split plane is processed first while the far child is pushed
// to the stack together with the parametric range the ray spends in it.
// Popped entries that start beyond the closest hit found so far are
// discarded.
func (tr *Tree) Intersect(ray types.Ray) (Intersection, bool) {
	tMin, tMax, overlaps := tr.meshBounds.IntersectRay(ray)
	if !overlaps {
		return Intersection{}, false
	}

	var stack [MaxTraversalDepth]stackEntry
	var stackTop int

	closest := Intersection{Triangle: -1}
	closestT := float32(math.Inf(1))

	nodeIndex := int32(0)
	for {
		node := tr.nodes[nodeIndex]

		if node.IsInterior() {
			axis := node.SplitAxis()
			split := node.Split()
			origin := ray.Origin[axis]
			dir := ray.Dir[axis]

			// Origins lying on the plane are classified as below unless
			// the ray moves towards the above side.
			nearChild, farChild := nodeIndex+1, node.AboveChild()
			if origin > split || (origin == split && dir > 0) {
				nearChild, farChild = farChild, nearChild
			}

			// A ray parallel to the plane never leaves the near side
			if dir == 0 {
				nodeIndex = nearChild
				continue
			}

			tSplit := (split - origin) / dir
			switch {
			case tSplit > tMax || tSplit <= 0:
				nodeIndex = nearChild
			case tSplit < tMin:
				nodeIndex = farChild
			default:
				if stackTop == MaxTraversalDepth {
					panic("kdtree: traversal stack overflow; tree exceeds the maximum depth")
				}
				stack[stackTop] = stackEntry{node: farChild, tMin: tSplit, tMax: tMax}
				stackTop++

				nodeIndex = nearChild
				tMax = tSplit
			}
			continue
		}

		switch count := node.TriangleCount(); count {
		case 0:
		case 1:
			tr.intersectTriangle(ray, node.TriangleIndex(), &closest, &closestT)
		default:
			offset := node.IndexOffset()
			for _, triangle := range tr.triangleIndices[offset : offset+count] {
				tr.intersectTriangle(ray, triangle, &closest, &closestT)
			}
		}

		// Pop the next entry that may still contain a closer hit
		for {
			if stackTop == 0 {
				if closest.Triangle < 0 {
					return Intersection{}, false
				}
				closest.Point = ray.At(closest.T)
				closest.Normal = tr.mesh.TriangleNormal(closest.Triangle)
				return closest, true
			}

			stackTop--
			entry := stack[stackTop]
			if entry.tMin <= closestT {
				nodeIndex, tMin, tMax = entry.node, entry.tMin, entry.tMax
				break
			}
		}
	}
}

// Test a triangle and record it if it is closer than the current hit.
func (tr *Tree) intersectTriangle(ray types.Ray, triangle int32, closest *Intersection, closestT *float32) {
	t, b1, b2, hit := tr.mesh.IntersectTriangle(ray, triangle)
	if !hit || t >= *closestT {
		return
	}
	*closestT = t
	closest.Triangle = triangle
	closest.T = t
	closest.B1 = b1
	closest.B2 = b2
}
