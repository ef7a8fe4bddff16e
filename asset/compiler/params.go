package compiler

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/achilleasa/kdtrace/kdtree"
)

// Parameters controlling kd-tree construction.
type BuildParams struct {
	// Surface area heuristic weights. A split is only made if its
	// estimated cost is lower than IntersectionCost * triangles.
	IntersectionCost float32 `json:"intersection_cost"`
	TraversalCost    float32 `json:"traversal_cost"`

	// Cost discount applied to splits that leave one side empty.
	EmptyBonus float32 `json:"empty_bonus"`

	// The maximum tree depth. Values <= 0 select a depth based on the
	// mesh triangle count. The depth is always capped to
	// kdtree.MaxTraversalDepth.
	MaxDepth int `json:"max_depth"`

	// If set, axes are tried in order of decreasing node extent and the
	// first axis yielding a split is used instead of the best of all three.
	SplitAlongTheLongestAxis bool `json:"split_along_the_longest_axis"`

	// Nodes with this many triangles or fewer become leaves. Leaves may
	// still end up with more triangles when no split pays off.
	LeafTrianglesLimit int `json:"leaf_triangles_limit"`

	CollectStats bool `json:"collect_stats"`
}

// Get the default build parameters.
func DefaultBuildParams() BuildParams {
	return BuildParams{
		IntersectionCost:         80,
		TraversalCost:            1,
		EmptyBonus:               0.3,
		MaxDepth:                 -1,
		SplitAlongTheLongestAxis: false,
		LeafTrianglesLimit:       2,
		CollectStats:             true,
	}
}

// Check parameter ranges.
func (p BuildParams) Validate() error {
	switch {
	case p.IntersectionCost <= 0:
		return fmt.Errorf("compiler: intersection cost must be positive; got %v", p.IntersectionCost)
	case p.TraversalCost < 0:
		return fmt.Errorf("compiler: traversal cost must not be negative; got %v", p.TraversalCost)
	case p.EmptyBonus < 0 || p.EmptyBonus > 1:
		return fmt.Errorf("compiler: empty bonus must be in [0, 1]; got %v", p.EmptyBonus)
	case p.LeafTrianglesLimit < 0:
		return fmt.Errorf("compiler: leaf triangles limit must not be negative; got %d", p.LeafTrianglesLimit)
	case p.MaxDepth > kdtree.MaxTraversalDepth:
		return fmt.Errorf("compiler: max depth must not exceed %d; got %d", kdtree.MaxTraversalDepth, p.MaxDepth)
	}
	return nil
}

// Decode JSON encoded build parameters. Fields missing from the input
// keep their default value.
func LoadBuildParams(r io.Reader) (BuildParams, error) {
	params := DefaultBuildParams()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return params, fmt.Errorf("compiler: could not decode build params: %w", err)
	}
	return params, params.Validate()
}
