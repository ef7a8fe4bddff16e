package reader

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/types"
)

func makeBinaryStl(faces [][3]types.Vec3) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, stlHeaderSize))
	binary.Write(&buf, binary.LittleEndian, uint32(len(faces)))
	for _, face := range faces {
		// normal
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
		for _, v := range face {
			for _, c := range v {
				binary.Write(&buf, binary.LittleEndian, math.Float32bits(c))
			}
		}
		// attribute byte count
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestBinaryStl(t *testing.T) {
	faces := [][3]types.Vec3{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	}
	data := makeBinaryStl(faces)
	if len(data) != stlHeaderSize+4+2*stlTriangleSize {
		t.Fatalf("unexpected binary stl size %d", len(data))
	}

	res := asset.NewResourceFromStream("square.stl", bytes.NewReader(data))
	m, err := ReadResource(res)
	if err != nil {
		t.Fatal(err)
	}

	if m.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles; got %d", m.TriangleCount())
	}

	// Shared corners are welded
	if m.VertexCount() != 4 {
		t.Fatalf("expected 4 welded vertices; got %d", m.VertexCount())
	}

	v0, v1, v2 := m.Triangle(1)
	if got := [3]types.Vec3{v0, v1, v2}; got != faces[1] {
		t.Fatalf("expected second triangle to be %v; got %v", faces[1], got)
	}
}

func TestAsciiStl(t *testing.T) {
	payload := `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`
	res := asset.NewResourceFromStream("tri.stl", strings.NewReader(payload))
	m, err := ReadResource(res)
	if err != nil {
		t.Fatal(err)
	}

	if m.TriangleCount() != 1 || m.VertexCount() != 3 {
		t.Fatalf("expected 1 triangle with 3 vertices; got %d triangles and %d vertices", m.TriangleCount(), m.VertexCount())
	}

	expNormal := types.Vec3{0, 0, 1}
	if n := m.TriangleNormal(0); n != expNormal {
		t.Fatalf("expected normal %v; got %v", expNormal, n)
	}
}

func TestAsciiStlErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}
	specs := []spec{
		{
			"solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\n",
			"stl reader: bad.stl: line 7: expected facet to define 3 vertices; got 2",
		},
		{
			"solid x\nfacet\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nvertex 1 1 0\n",
			"stl reader: bad.stl: line 6: facet defines more than 3 vertices",
		},
		{
			"garbage",
			"stl reader: bad.stl: not a valid ascii or binary STL file",
		},
	}

	for index, s := range specs {
		res := asset.NewResourceFromStream("bad.stl", strings.NewReader(s.payload))
		_, err := ReadResource(res)
		if err == nil || err.Error() != s.expError {
			t.Fatalf("[spec %d] expected error %q; got %v", index, s.expError, err)
		}
	}
}
