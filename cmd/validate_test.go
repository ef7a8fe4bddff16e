package cmd

import (
	"flag"
	"math/rand"
	"strings"
	"testing"

	"github.com/achilleasa/kdtrace/asset/compiler"
	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/types"
	"github.com/urfave/cli"
)

func TestCompareWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var (
		vertices  []types.Vec3
		triangles [][3]int32
	)
	for i := 0; i < 64; i++ {
		base := types.Vec3{rng.Float32() * 10, rng.Float32() * 10, rng.Float32() * 10}
		v := int32(len(vertices))
		vertices = append(vertices,
			base,
			base.Add(types.Vec3{rng.Float32(), 0, 0}),
			base.Add(types.Vec3{0, rng.Float32(), rng.Float32()}),
		)
		triangles = append(triangles, [3]int32{v, v + 1, v + 2})
	}
	m, err := mesh.New("random", vertices, triangles)
	if err != nil {
		t.Fatal(err)
	}
	tree, _, err := compiler.BuildKdTree(m, compiler.DefaultBuildParams())
	if err != nil {
		t.Fatal(err)
	}

	rays := make([]types.Ray, 1000)
	for i := range rays {
		rays[i] = randomRay(rng, m.Bounds())
	}

	for _, workers := range []int{0, 1, 3, 8, 2000} {
		hits, mismatches, err := compareWithBruteForce(tree, rays, workers)
		if err != nil {
			t.Fatalf("[workers %d] unexpected error: %v", workers, err)
		}
		if mismatches != 0 {
			t.Errorf("[workers %d] expected no mismatches; got %d", workers, mismatches)
		}
		if hits == 0 {
			t.Errorf("[workers %d] expected some rays to hit the mesh", workers)
		}
	}

	if hits, mismatches, err := compareWithBruteForce(tree, nil, 4); hits != 0 || mismatches != 0 || err != nil {
		t.Fatalf("expected no results for an empty ray list; got %d hits, %d mismatches and error %v", hits, mismatches, err)
	}
}

func TestCompareWithBruteForceReportsFailedQueries(t *testing.T) {
	m, err := mesh.New(
		"wedge",
		[]types.Vec3{types.XYZ(0, 0, -1), types.XYZ(3, 0, -1), types.XYZ(0, 1, 1)},
		[][3]int32{{0, 1, 2}},
	)
	if err != nil {
		t.Fatal(err)
	}

	// Every interior node pushes its above child so the traversal stack
	// overflows one level before reaching the last leaf.
	const chainLen = kdtree.MaxTraversalDepth + 1
	nodes := make([]kdtree.Node, 0, 2*chainLen+1)
	for i := 0; i < chainLen; i++ {
		nodes = append(nodes, kdtree.InteriorNode(0, int32(chainLen+1+i), float32(2.5-float64(i)*0.01)))
	}
	for i := 0; i <= chainLen; i++ {
		nodes = append(nodes, kdtree.EmptyLeaf())
	}
	tree := kdtree.New(nodes, nil, m, m.Bounds())

	rays := []types.Ray{types.NewRay(types.XYZ(-1, 0.5, 0), types.XYZ(1, 0, 0))}
	_, _, err = compareWithBruteForce(tree, rays, 2)
	if err == nil || !strings.Contains(err.Error(), "stack overflow") {
		t.Fatalf("expected a traversal stack overflow error; got %v", err)
	}
}

func TestValidateTreeRejectsInvalidRayCount(t *testing.T) {
	for _, rayCount := range []int{0, -5} {
		set := flag.NewFlagSet("validate", flag.ContinueOnError)
		set.Int("rays", rayCount, "")
		set.Int64("seed", 1, "")
		if err := set.Parse([]string{"mesh.obj"}); err != nil {
			t.Fatal(err)
		}

		err := ValidateTree(cli.NewContext(nil, set, nil))
		if err == nil || !strings.Contains(err.Error(), "invalid ray count") {
			t.Fatalf("[rays %d] expected an invalid ray count error; got %v", rayCount, err)
		}
	}
}
