package kdtree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/achilleasa/kdtrace/types"
)

func saveTree(t *testing.T, tree *Tree) []byte {
	var buf bytes.Buffer
	if err := tree.Save(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSaveLayout(t *testing.T) {
	tree := quadTree(t)
	data := saveTree(t, tree)

	// header: magic + version + triangle count + bounds
	headerLen := 4 + 4 + 4 + 6*4
	expLen := headerLen + 4 + 3*nodeSize + 4 + 4*4
	if len(data) != expLen {
		t.Fatalf("expected %d bytes; got %d", expLen, len(data))
	}
	if string(data[:4]) != "KDTR" {
		t.Fatalf("expected magic KDTR; got %q", data[:4])
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != 1 {
		t.Fatalf("expected version 1; got %d", version)
	}
	if count := binary.LittleEndian.Uint32(data[8:]); count != 4 {
		t.Fatalf("expected triangle count 4; got %d", count)
	}
	if nodeCount := binary.LittleEndian.Uint32(data[headerLen:]); nodeCount != 3 {
		t.Fatalf("expected node count 3; got %d", nodeCount)
	}

	root := tree.Nodes()[0]
	if header := binary.LittleEndian.Uint32(data[headerLen+4:]); header != root.header {
		t.Fatalf("expected root header %#x; got %#x", root.header, header)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tree := quadTree(t)
	data := saveTree(t, tree)

	loaded, err := Load(bytes.NewReader(data), tree.Mesh())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(loaded.Nodes(), tree.Nodes()) {
		t.Fatalf("expected nodes %v; got %v", tree.Nodes(), loaded.Nodes())
	}
	if !reflect.DeepEqual(loaded.TriangleIndices(), tree.TriangleIndices()) {
		t.Fatalf("expected triangle indices %v; got %v", tree.TriangleIndices(), loaded.TriangleIndices())
	}
	if loaded.MeshBounds() != tree.MeshBounds() {
		t.Fatalf("expected bounds %v; got %v", tree.MeshBounds(), loaded.MeshBounds())
	}

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		origin := types.XYZ(rng.Float32()*6-1.5, rng.Float32()*3-1, rng.Float32()*6-3)
		dir := types.XYZ(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()*2-1).Normalize()
		ray := types.NewRay(origin, dir)

		expHit, expOk := tree.Intersect(ray)
		hit, ok := loaded.Intersect(ray)
		if ok != expOk || hit != expHit {
			t.Fatalf("[ray %d] expected %+v (hit: %t); got %+v (hit: %t)", i, expHit, expOk, hit, ok)
		}
	}

	if resaved := saveTree(t, loaded); !bytes.Equal(resaved, data) {
		t.Fatal("expected re-serialized tree to be byte-identical")
	}
}

func TestSaveLoadFile(t *testing.T) {
	tree := quadTree(t)
	path := filepath.Join(t.TempDir(), "quad.kdtree")
	if err := tree.SaveFile(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFile(path, tree.Mesh())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Nodes(), tree.Nodes()) {
		t.Fatalf("expected nodes %v; got %v", tree.Nodes(), loaded.Nodes())
	}

	if _, err = LoadFile(filepath.Join(t.TempDir(), "missing.kdtree"), tree.Mesh()); err == nil {
		t.Fatal("expected error loading a missing file")
	}
}

func TestSaveRejectsForeignBounds(t *testing.T) {
	m := quadMesh(t)
	bounds := m.Bounds()
	bounds.Max[0] += 1

	tree := New([]Node{EmptyLeaf()}, nil, m, bounds)
	var buf bytes.Buffer
	if err := tree.Save(&buf); !errors.Is(err, ErrMeshMismatch) {
		t.Fatalf("expected error %v; got %v", ErrMeshMismatch, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing to be written; got %d bytes", buf.Len())
	}

	if err := tree.SaveFile(filepath.Join(t.TempDir(), "foreign.kdtree")); !errors.Is(err, ErrMeshMismatch) {
		t.Fatalf("expected error %v; got %v", ErrMeshMismatch, err)
	}
}

func TestLoadErrors(t *testing.T) {
	tree := quadTree(t)
	data := saveTree(t, tree)
	headerLen := 4 + 4 + 4 + 6*4

	patch := func(offset int, value uint32) []byte {
		out := append([]byte(nil), data...)
		binary.LittleEndian.PutUint32(out[offset:], value)
		return out
	}

	otherMesh, err := mesh.New("other", []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][3]int32{{0, 1, 2}})
	if err != nil {
		t.Fatal(err)
	}

	// Same triangle count and a different bounding box
	var shiftedVertices []types.Vec3
	var shiftedTriangles [][3]int32
	for i := int32(0); i < 4; i++ {
		base := int32(len(shiftedVertices))
		shiftedVertices = append(shiftedVertices, types.Vec3{10, 0, 0}, types.Vec3{11, 0, 0}, types.Vec3{10, 1, 0})
		shiftedTriangles = append(shiftedTriangles, [3]int32{base, base + 1, base + 2})
	}
	shiftedMesh, err := mesh.New("shifted", shiftedVertices, shiftedTriangles)
	if err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		name   string
		data   []byte
		mesh   Mesh
		expErr error
	}{
		{"empty input", nil, tree.Mesh(), io.ErrUnexpectedEOF},
		{"bad magic", patch(0, 0xdeadbeef), tree.Mesh(), ErrBadMagic},
		{"unsupported version", patch(4, 2), tree.Mesh(), ErrUnsupportedVersion},
		{"triangle count mismatch", data, otherMesh, ErrMeshMismatch},
		{"bounds mismatch", data, shiftedMesh, ErrMeshMismatch},
		{"zero nodes", patch(headerLen, 0), tree.Mesh(), ErrCorrupt},
		{"negative node count", patch(headerLen, 0xffffffff), tree.Mesh(), ErrCorrupt},
		{"truncated nodes", data[:headerLen+4+nodeSize], tree.Mesh(), io.ErrUnexpectedEOF},
		{"huge node count", patch(headerLen, MaxNodesCount), tree.Mesh(), io.ErrUnexpectedEOF},
		{"truncated indices", data[:len(data)-2], tree.Mesh(), io.ErrUnexpectedEOF},
		{"missing index count", data[:headerLen+4+3*nodeSize], tree.Mesh(), io.ErrUnexpectedEOF},
		{"bad child reference", patch(headerLen+4, uint32(7)<<2), tree.Mesh(), ErrCorrupt},
		{"bad triangle index", patch(len(data)-4, 9), tree.Mesh(), ErrCorrupt},
	}

	for _, spec := range specs {
		loaded, err := Load(bytes.NewReader(spec.data), spec.mesh)
		if !errors.Is(err, spec.expErr) {
			t.Errorf("[spec %s] expected error %v; got %v", spec.name, spec.expErr, err)
		}
		if loaded != nil {
			t.Errorf("[spec %s] expected no tree to be returned on error", spec.name)
		}
	}
}
