package cmd

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/types"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// Compare kd-tree query results against brute force triangle tests.
func ValidateTree(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	rayCount := ctx.Int("rays")
	if rayCount <= 0 {
		return fmt.Errorf("invalid ray count %d", rayCount)
	}

	m, tree, err := loadMeshAndTree(ctx)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(ctx.Int64("seed")))
	rays := make([]types.Ray, rayCount)
	for i := range rays {
		rays[i] = randomRay(rng, m.Bounds())
	}

	hits, mismatches, err := compareWithBruteForce(tree, rays, runtime.NumCPU())
	if err != nil {
		return err
	}

	logger.Noticef("validated %d rays (%d hits)", rayCount, hits)
	if mismatches > 0 {
		return fmt.Errorf("kd-tree disagrees with brute force for %d of %d rays", mismatches, rayCount)
	}
	return nil
}

// Check rays in parallel chunks and return the number of hits and the
// number of rays where the tree and a linear scan disagree. A query that
// panics, for instance on a traversal stack overflow, is reported as an
// error.
func compareWithBruteForce(tree *kdtree.Tree, rays []types.Ray, workers int) (hits, mismatches int, err error) {
	if workers < 1 {
		workers = 1
	}
	chunkLen := (len(rays) + workers - 1) / workers
	if chunkLen == 0 {
		return 0, 0, nil
	}

	type chunkResult struct {
		hits, mismatches int
	}
	results := make([]chunkResult, (len(rays)+chunkLen-1)/chunkLen)

	g := errgroup.Group{}
	for idx := range results {
		chunk := rays[idx*chunkLen : min((idx+1)*chunkLen, len(rays))]
		res := &results[idx]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("kd-tree query failed: %v", r)
				}
			}()

			for _, ray := range chunk {
				expTriangle, expT, expHit := bruteForceIntersect(tree.Mesh(), ray)
				hit, ok := tree.Intersect(ray)

				switch {
				case ok != expHit:
					res.mismatches++
					logger.Warningf("ray %v: brute force hit %t; kd-tree hit %t", ray, expHit, ok)
				case ok && hit.Triangle != expTriangle && math.Abs(float64(hit.T-expT)) > 1e-4*(1+float64(expT)):
					res.mismatches++
					logger.Warningf("ray %v: brute force hit triangle %d at t=%f; kd-tree hit triangle %d at t=%f", ray, expTriangle, expT, hit.Triangle, hit.T)
				case ok:
					res.hits++
				}
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return 0, 0, err
	}

	for _, res := range results {
		hits += res.hits
		mismatches += res.mismatches
	}
	return hits, mismatches, nil
}
