package compiler

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
)

const (
	// Triangle counts share the leaf header word with the node tag.
	maxTrianglesCount = 0x3fffffff
)

var (
	ErrTooManyTriangles = errors.New("compiler: mesh has too many triangles for a kd-tree")
	ErrTooManyNodes     = errors.New("compiler: kd-tree node limit reached")
)

// The BuildMesh interface is implemented by meshes that can be partitioned
// by the kd-tree builder.
type BuildMesh interface {
	kdtree.Mesh
	TriangleBounds(triangle int32) types.BBox
}

// Statistics collected while building a tree.
type BuildStats struct {
	LeafCount              int           `json:"leaf_count"`
	EmptyLeafCount         int           `json:"empty_leaf_count"`
	TrianglesPerLeaf       float64       `json:"triangles_per_leaf"`
	PerfectDepth           int           `json:"perfect_depth"`
	AverageDepth           float64       `json:"average_depth"`
	DepthStandardDeviation float64       `json:"depth_standard_deviation"`
	BuildTime              time.Duration `json:"build_time_ns"`

	leafDepths        []int
	trianglesInLeaves int
}

func (s *BuildStats) newLeaf(triangleCount, depth int) {
	s.LeafCount++
	if triangleCount == 0 {
		s.EmptyLeafCount++
	}
	s.trianglesInLeaves += triangleCount
	s.leafDepths = append(s.leafDepths, depth)
}

func (s *BuildStats) finalize() {
	nonEmpty := s.LeafCount - s.EmptyLeafCount
	if nonEmpty > 0 {
		s.TrianglesPerLeaf = float64(s.trianglesInLeaves) / float64(nonEmpty)
	}
	if len(s.leafDepths) == 0 {
		return
	}
	var sum float64
	for _, d := range s.leafDepths {
		sum += float64(d)
	}
	s.AverageDepth = sum / float64(len(s.leafDepths))

	var variance float64
	for _, d := range s.leafDepths {
		delta := float64(d) - s.AverageDepth
		variance += delta * delta
	}
	s.DepthStandardDeviation = math.Sqrt(variance / float64(len(s.leafDepths)))
	s.leafDepths = nil
}

type edgeType uint8

const (
	edgeStart edgeType = iota
	edgeEnd
)

type boundEdge struct {
	position float32
	kind     edgeType
}

type builder struct {
	logger log.Logger
	mesh   BuildMesh
	params BuildParams

	triangleBounds []types.BBox

	// Scratch space reused by every split evaluation.
	edges []boundEdge

	nodes           []kdtree.Node
	triangleIndices []int32

	stats BuildStats
}

// Build a kd-tree over the mesh triangles using the surface area heuristic.
//
// The returned tree references mesh; the mesh must outlive it.
func BuildKdTree(mesh BuildMesh, params BuildParams) (*kdtree.Tree, BuildStats, error) {
	if err := params.Validate(); err != nil {
		return nil, BuildStats{}, err
	}

	triangleCount := mesh.TriangleCount()
	if triangleCount > maxTrianglesCount {
		return nil, BuildStats{}, ErrTooManyTriangles
	}

	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = autoMaxDepth(int(triangleCount))
	}
	if maxDepth > kdtree.MaxTraversalDepth {
		maxDepth = kdtree.MaxTraversalDepth
	}

	b := &builder{
		logger:         log.New("kdtree builder"),
		mesh:           mesh,
		params:         params,
		triangleBounds: make([]types.BBox, triangleCount),
		edges:          make([]boundEdge, 2*int(triangleCount)),
	}

	start := time.Now()

	meshBounds := mesh.Bounds()
	triangles := make([]int32, triangleCount)
	for i := range triangles {
		triangles[i] = int32(i)
		b.triangleBounds[i] = mesh.TriangleBounds(int32(i))
	}
	b.stats.PerfectDepth = perfectDepth(int(triangleCount))

	if triangleCount == 0 {
		b.nodes = append(b.nodes, kdtree.EmptyLeaf())
		b.newLeafStats(0, 0)
	} else if err := b.buildNode(meshBounds, triangles, 0, maxDepth); err != nil {
		return nil, BuildStats{}, err
	}

	b.stats.BuildTime = time.Since(start)
	if params.CollectStats {
		b.stats.finalize()
	} else {
		b.stats = BuildStats{BuildTime: b.stats.BuildTime}
	}

	b.logger.Debugf(
		"kd-tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, triangle refs: %d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		maxDepth, len(b.nodes), b.stats.LeafCount, len(b.triangleIndices),
	)

	return kdtree.New(b.nodes, b.triangleIndices, mesh, meshBounds), b.stats, nil
}

// Default depth limit for a mesh: round(8 + 1.3 * floor(log2(n))).
func autoMaxDepth(triangleCount int) int {
	if triangleCount < 2 {
		return 8
	}
	return int(math.Floor(0.5 + 8 + 1.3*math.Floor(math.Log2(float64(triangleCount)))))
}

// Depth of a balanced tree with two triangles per leaf.
func perfectDepth(triangleCount int) int {
	if triangleCount < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(triangleCount) / 2)))
}

func (b *builder) newLeafStats(triangleCount, depth int) {
	if b.params.CollectStats {
		b.stats.newLeaf(triangleCount, depth)
	}
}

func (b *builder) buildNode(nodeBounds types.BBox, triangles []int32, depth, maxDepth int) error {
	if len(b.nodes) >= kdtree.MaxNodesCount {
		return ErrTooManyNodes
	}

	if len(triangles) <= b.params.LeafTrianglesLimit || depth >= maxDepth {
		return b.createLeaf(triangles, depth)
	}

	axis, split, ok := b.selectSplit(nodeBounds, triangles)
	if !ok {
		return b.createLeaf(triangles, depth)
	}

	// Classify against the triangle bounds instead of the sorted edges.
	// Rays running inside the split plane only visit the below child, so
	// every triangle touching the plane must be referenced on that side.
	below := make([]int32, 0, len(triangles))
	above := make([]int32, 0, len(triangles))
	for _, tri := range triangles {
		bounds := b.triangleBounds[tri]
		lo, hi := bounds.Min[axis], bounds.Max[axis]
		if lo <= split {
			below = append(below, tri)
		}
		if hi > split {
			above = append(above, tri)
		}
	}

	belowBounds, aboveBounds := nodeBounds, nodeBounds
	belowBounds.Max[axis] = split
	aboveBounds.Min[axis] = split

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, kdtree.Node{})

	if err := b.buildNode(belowBounds, below, depth+1, maxDepth); err != nil {
		return err
	}

	aboveChild := len(b.nodes)
	if aboveChild >= kdtree.MaxNodesCount {
		return ErrTooManyNodes
	}
	if err := b.buildNode(aboveBounds, above, depth+1, maxDepth); err != nil {
		return err
	}

	b.nodes[nodeIndex] = kdtree.InteriorNode(axis, int32(aboveChild), split)
	return nil
}

func (b *builder) createLeaf(triangles []int32, depth int) error {
	switch len(triangles) {
	case 0:
		b.nodes = append(b.nodes, kdtree.EmptyLeaf())
	case 1:
		b.nodes = append(b.nodes, kdtree.SingleTriangleLeaf(triangles[0]))
	default:
		offset := len(b.triangleIndices)
		if offset+len(triangles) > math.MaxInt32 {
			return fmt.Errorf("compiler: triangle index list exceeds %d entries", math.MaxInt32)
		}
		b.nodes = append(b.nodes, kdtree.MultiTriangleLeaf(int32(len(triangles)), int32(offset)))
		b.triangleIndices = append(b.triangleIndices, triangles...)
	}
	b.newLeafStats(len(triangles), depth)
	return nil
}

// Find the split plane with the lowest SAH cost. Returns false if no split
// is cheaper than intersecting every triangle in the node.
func (b *builder) selectSplit(nodeBounds types.BBox, triangles []int32) (bestAxis int, bestSplit float32, found bool) {
	surfaceArea := nodeBounds.SurfaceArea()
	if !(surfaceArea > 0) {
		return 0, 0, false
	}
	invTotalSA := 1 / surfaceArea
	extent := nodeBounds.Extent()

	bestCost := b.params.IntersectionCost * float32(len(triangles))

	axes := [3]int{0, 1, 2}
	if b.params.SplitAlongTheLongestAxis {
		sort.SliceStable(axes[:], func(i, j int) bool {
			return extent[axes[i]] > extent[axes[j]]
		})
	}

	for _, axis := range axes {
		axis0 := (axis + 1) % 3
		axis1 := (axis + 2) % 3
		s0 := 2 * extent[axis0] * extent[axis1]
		d0 := 2 * (extent[axis0] + extent[axis1])
		minPos, maxPos := nodeBounds.Min[axis], nodeBounds.Max[axis]

		edges := b.edges[:2*len(triangles)]
		for i, tri := range triangles {
			bounds := b.triangleBounds[tri]
			edges[2*i] = boundEdge{position: bounds.Min[axis], kind: edgeStart}
			edges[2*i+1] = boundEdge{position: bounds.Max[axis], kind: edgeEnd}
		}
		sort.SliceStable(edges, func(i, j int) bool {
			return edges[i].position < edges[j].position
		})

		// Sweep edge groups sharing a position. At a group positioned at t,
		// numBelow counts triangles starting before t and numAbove counts
		// triangles ending after t. Triangles starting at t are also
		// referenced below.
		numBelow, numAbove := 0, len(triangles)
		for i := 0; i < len(edges); {
			t := edges[i].position
			starts, ends := 0, 0
			for ; i < len(edges) && edges[i].position == t; i++ {
				if edges[i].kind == edgeStart {
					starts++
				} else {
					ends++
				}
			}
			numAbove -= ends

			if t > minPos && t < maxPos {
				belowSA := s0 + d0*(t-minPos)
				aboveSA := s0 + d0*(maxPos-t)
				pBelow := belowSA * invTotalSA
				pAbove := aboveSA * invTotalSA

				belowCount := numBelow + starts
				var bonus float32
				if belowCount == 0 || numAbove == 0 {
					bonus = b.params.EmptyBonus
				}
				cost := b.params.TraversalCost +
					b.params.IntersectionCost*(1-bonus)*(pBelow*float32(belowCount)+pAbove*float32(numAbove))

				if cost < bestCost {
					bestCost = cost
					bestAxis = axis
					bestSplit = t
					found = true
				}
			}

			numBelow += starts
		}

		if found && b.params.SplitAlongTheLongestAxis {
			break
		}
	}

	return bestAxis, bestSplit, found
}
