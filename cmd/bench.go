package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/achilleasa/kdtrace/asset/mesh/reader"
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

type benchResult struct {
	name     string
	rays     int
	hits     int
	duration time.Duration
}

// Time random ray queries against one or more prebuilt kd-trees. Each
// argument is a mesh file whose tree is loaded from the matching .kdtree
// file.
func Bench(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing mesh file argument")
	}

	rayCount := ctx.Int("rays")
	if rayCount <= 0 {
		return fmt.Errorf("invalid ray count %d", rayCount)
	}

	meshFiles, err := expandFileArgs(ctx.Args())
	if err != nil {
		return err
	}

	// Load all resources up front so the timed section only measures queries
	trees := make([]*kdtree.Tree, 0, len(meshFiles))
	for _, meshFile := range meshFiles {
		m, err := reader.ReadMesh(meshFile)
		if err != nil {
			return err
		}
		tree, err := kdtree.LoadFile(treeFileFor(meshFile), m)
		if err != nil {
			return err
		}
		trees = append(trees, tree)
	}

	results := make([]benchResult, 0, len(trees))
	start := time.Now()
	for idx, tree := range trees {
		rng := rand.New(rand.NewSource(ctx.Int64("seed")))
		rays := make([]types.Ray, rayCount)
		for i := range rays {
			rays[i] = randomRay(rng, tree.MeshBounds())
		}

		res := benchResult{name: meshFiles[idx], rays: rayCount}
		treeStart := time.Now()
		for _, ray := range rays {
			if _, hit := tree.Intersect(ray); hit {
				res.hits++
			}
		}
		res.duration = time.Since(treeStart)
		results = append(results, res)
	}

	displayBenchResults(results, time.Since(start))
	return nil
}

func displayBenchResults(results []benchResult, total time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mesh", "Rays", "Hits", "Time", "Mrays/sec"})
	for _, res := range results {
		table.Append([]string{
			res.name,
			fmt.Sprintf("%d", res.rays),
			fmt.Sprintf("%d", res.hits),
			res.duration.String(),
			fmt.Sprintf("%.2f", float64(res.rays)/res.duration.Seconds()/1e6),
		})
	}
	table.SetFooter([]string{"", "", "", "TOTAL", total.String()})

	table.Render()
	logger.Noticef("benchmark results\n%s", buf.String())
}

// Generate a ray starting inside an enlarged copy of bounds and aimed at a
// random point inside the central half of bounds.
func randomRay(rng *rand.Rand, bounds types.BBox) types.Ray {
	if !bounds.IsValid() {
		return types.NewRay(types.Vec3{}, types.Vec3{0, 0, -1})
	}

	extent := bounds.Extent()
	center := bounds.Center()
	var origin, target types.Vec3
	for axis := 0; axis < 3; axis++ {
		origin[axis] = center[axis] + (rng.Float32()*2-1)*extent[axis]
		target[axis] = center[axis] + (rng.Float32()-0.5)*extent[axis]
	}

	dir := target.Sub(origin).Normalize()
	if dir == (types.Vec3{}) {
		dir = types.Vec3{0, 0, -1}
	}
	return types.NewRay(origin, dir)
}

// Find the nearest hit by testing every mesh triangle.
func bruteForceIntersect(m kdtree.Mesh, ray types.Ray) (triangle int32, closestT float32, hit bool) {
	triangle = -1
	closestT = float32(math.Inf(1))
	for tri := int32(0); tri < m.TriangleCount(); tri++ {
		if t, _, _, ok := m.IntersectTriangle(ray, tri); ok && t < closestT {
			triangle, closestT, hit = tri, t, true
		}
	}
	return triangle, closestT, hit
}
