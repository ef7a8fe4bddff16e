package mesh

import (
	"errors"
	"fmt"

	"github.com/achilleasa/kdtrace/types"
)

// Triangles are addressed with int32 indices; the kd-tree reserves the
// top two bits of a node header so the count must fit in 30 bits.
const MaxTriangles = 0x3fffffff

var (
	ErrTooManyTriangles = errors.New("mesh: exceeded the maximum number of triangles")
)

// Determinant magnitudes below this threshold are treated as rays lying
// in the triangle plane.
const parallelEpsilon = 1e-12

// A TriangleMesh stores indexed triangles. Once created it is never
// modified so it can be shared by any number of concurrent readers.
type TriangleMesh struct {
	Name string

	vertices  []types.Vec3
	triangles [][3]int32
	normals   []types.Vec3
	bounds    types.BBox
}

// Create a mesh from a vertex list and a list of vertex index triplets.
func New(name string, vertices []types.Vec3, triangles [][3]int32) (*TriangleMesh, error) {
	if len(triangles) > MaxTriangles {
		return nil, ErrTooManyTriangles
	}

	m := &TriangleMesh{
		Name:      name,
		vertices:  vertices,
		triangles: triangles,
		normals:   make([]types.Vec3, len(triangles)),
		bounds:    types.EmptyBBox(),
	}

	for triIndex, tri := range triangles {
		for _, vIndex := range tri {
			if vIndex < 0 || int(vIndex) >= len(vertices) {
				return nil, fmt.Errorf("mesh: triangle %d references vertex %d; vertex count %d", triIndex, vIndex, len(vertices))
			}
		}

		v0, v1, v2 := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]
		m.normals[triIndex] = v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		m.bounds = m.bounds.AddPoint(v0).AddPoint(v1).AddPoint(v2)
	}

	return m, nil
}

// Get the number of triangles in the mesh.
func (m *TriangleMesh) TriangleCount() int32 {
	return int32(len(m.triangles))
}

// Get the number of vertices in the mesh.
func (m *TriangleMesh) VertexCount() int {
	return len(m.vertices)
}

// Get the mesh bounding box. An empty mesh returns an invalid (empty) bbox.
func (m *TriangleMesh) Bounds() types.BBox {
	return m.bounds
}

// Get the three vertices of a triangle.
func (m *TriangleMesh) Triangle(triangle int32) (v0, v1, v2 types.Vec3) {
	tri := m.triangles[triangle]
	return m.vertices[tri[0]], m.vertices[tri[1]], m.vertices[tri[2]]
}

// Get the bounding box of a single triangle.
func (m *TriangleMesh) TriangleBounds(triangle int32) types.BBox {
	v0, v1, v2 := m.Triangle(triangle)
	return types.BBoxFromPoints(v0, v1, v2)
}

// Get the geometric normal of a triangle.
func (m *TriangleMesh) TriangleNormal(triangle int32) types.Vec3 {
	return m.normals[triangle]
}

// Intersect a ray with a single triangle using the Möller-Trumbore
// algorithm. On a hit it returns the parametric distance t, which lies in
// [ray.TMin, ray.TMax], and the barycentric coordinates of the hit point
// with respect to the second and third vertices.
func (m *TriangleMesh) IntersectTriangle(ray types.Ray, triangle int32) (t, b1, b2 float32, hit bool) {
	v0, v1, v2 := m.Triangle(triangle)

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	p := ray.Dir.Cross(edge2)
	det := edge1.Dot(p)
	if det > -parallelEpsilon && det < parallelEpsilon {
		return 0, 0, 0, false
	}
	invDet := 1.0 / det

	s := ray.Origin.Sub(v0)
	b1 = s.Dot(p) * invDet
	if b1 < 0 || b1 > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	b2 = ray.Dir.Dot(q) * invDet
	if b2 < 0 || b1+b2 > 1 {
		return 0, 0, 0, false
	}

	t = edge2.Dot(q) * invDet
	if t < ray.TMin || t > ray.TMax {
		return 0, 0, 0, false
	}
	return t, b1, b2, true
}
