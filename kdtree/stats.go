package kdtree

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Structural statistics for a tree.
type Stats struct {
	Nodes         int `json:"nodes"`
	InteriorNodes int `json:"interior_nodes"`
	Leaves        int `json:"leaves"`
	EmptyLeaves   int `json:"empty_leaves"`

	// Depth statistics only consider non-empty leaves.
	MaxDepth         int     `json:"max_depth"`
	AverageLeafDepth float64 `json:"average_leaf_depth"`

	// Leaf triangle references; triangles straddling split planes are
	// referenced by more than one leaf.
	TriangleRefs     int     `json:"triangle_refs"`
	TrianglesPerLeaf float64 `json:"triangles_per_leaf"`

	NodeBytes  int `json:"node_bytes"`
	IndexBytes int `json:"index_bytes"`
}

// Collect tree statistics.
func (tr *Tree) Stats() Stats {
	stats := Stats{
		Nodes:      len(tr.nodes),
		NodeBytes:  len(tr.nodes) * nodeSize,
		IndexBytes: len(tr.triangleIndices) * 4,
	}

	depth := make([]int, len(tr.nodes))
	var depthSum int
	for i, node := range tr.nodes {
		if node.IsInterior() {
			stats.InteriorNodes++
			depth[i+1] = depth[i] + 1
			depth[node.AboveChild()] = depth[i] + 1
			continue
		}

		stats.Leaves++
		count := int(node.TriangleCount())
		if count == 0 {
			stats.EmptyLeaves++
			continue
		}
		stats.TriangleRefs += count
		depthSum += depth[i]
		if depth[i] > stats.MaxDepth {
			stats.MaxDepth = depth[i]
		}
	}

	if nonEmpty := stats.Leaves - stats.EmptyLeaves; nonEmpty > 0 {
		stats.AverageLeafDepth = float64(depthSum) / float64(nonEmpty)
		stats.TrianglesPerLeaf = float64(stats.TriangleRefs) / float64(nonEmpty)
	}
	return stats
}

// Build a tabular representation of the tree statistics.
func (s Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Category", "Metric", "Value"})
	table.Append([]string{"Nodes", "Total", fmt.Sprint(s.Nodes)})
	table.Append([]string{"", "Interior", fmt.Sprint(s.InteriorNodes)})
	table.Append([]string{"", "Leaves", fmt.Sprint(s.Leaves)})
	table.Append([]string{"", "Empty leaves", fmt.Sprint(s.EmptyLeaves)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Depth", "Max", fmt.Sprint(s.MaxDepth)})
	table.Append([]string{"", "Avg leaf depth", fmt.Sprintf("%.2f", s.AverageLeafDepth)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Triangles", "Leaf references", fmt.Sprint(s.TriangleRefs)})
	table.Append([]string{"", "Per leaf", fmt.Sprintf("%.2f", s.TrianglesPerLeaf)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Memory", "Nodes", fmtSize(s.NodeBytes)})
	table.Append([]string{"", "Triangle indices", fmtSize(s.IndexBytes)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(s.NodeBytes+s.IndexBytes), " ")})

	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes int) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float32(totalBytes)/1e6)
}
