package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/achilleasa/kdtrace/asset/compiler"
	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/achilleasa/kdtrace/asset/mesh/reader"
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Build kd-trees for a list of mesh files.
func CompileTree(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing mesh file argument")
	}

	params, err := buildParams(ctx)
	if err != nil {
		return err
	}

	meshFiles, err := expandFileArgs(ctx.Args())
	if err != nil {
		return err
	}

	for _, meshFile := range meshFiles {
		logger.Noticef("parsing mesh: %s", meshFile)
		m, err := reader.ReadMesh(meshFile)
		if err != nil {
			return err
		}

		logger.Noticef("building kd-tree for %d triangles", m.TriangleCount())
		tree, buildStats, err := compiler.BuildKdTree(m, params)
		if err != nil {
			return err
		}

		if params.CollectStats {
			logger.Noticef("build statistics\n%s", buildStatsTable(buildStats))
		}
		logger.Noticef("kd-tree information:\n%s", tree.Stats().Table())

		if err = tree.SaveFile(treeFileFor(meshFile)); err != nil {
			return err
		}
	}

	return nil
}

// Display kd-tree info.
func ShowTreeInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	_, tree, err := loadMeshAndTree(ctx)
	if err != nil {
		return err
	}

	stats := tree.Stats()
	if ctx.Bool("json") {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	logger.Noticef("kd-tree information:\n%s", stats.Table())
	return nil
}

// Assemble build params from an optional JSON file and command flags.
// Flags take precedence over file values.
func buildParams(ctx *cli.Context) (compiler.BuildParams, error) {
	params := compiler.DefaultBuildParams()
	if paramFile := ctx.String("params"); paramFile != "" {
		f, err := os.Open(paramFile)
		if err != nil {
			return params, err
		}
		defer f.Close()

		if params, err = compiler.LoadBuildParams(f); err != nil {
			return params, err
		}
	}

	if ctx.IsSet("leaf-limit") {
		params.LeafTrianglesLimit = ctx.Int("leaf-limit")
	}
	if ctx.IsSet("max-depth") {
		params.MaxDepth = ctx.Int("max-depth")
	}
	return params, params.Validate()
}

func buildStatsTable(stats compiler.BuildStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Leaves", fmt.Sprint(stats.LeafCount)})
	table.Append([]string{"Empty leaves", fmt.Sprint(stats.EmptyLeafCount)})
	table.Append([]string{"Triangles per leaf", fmt.Sprintf("%.2f", stats.TrianglesPerLeaf)})
	table.Append([]string{"Perfect depth", fmt.Sprint(stats.PerfectDepth)})
	table.Append([]string{"Average depth", fmt.Sprintf("%.2f", stats.AverageDepth)})
	table.Append([]string{"Depth std deviation", fmt.Sprintf("%.2f", stats.DepthStandardDeviation)})
	table.SetFooter([]string{"Build time", stats.BuildTime.String()})
	table.Render()
	return buf.String()
}

// Get the default kd-tree file for a mesh file.
func treeFileFor(meshFile string) string {
	return strings.TrimSuffix(meshFile, path.Ext(meshFile)) + ".kdtree"
}

// Load the mesh named by the first argument and the kd-tree named by the
// second one. When the tree argument is missing the tree is loaded from
// the mesh file path with a .kdtree extension.
func loadMeshAndTree(ctx *cli.Context) (*mesh.TriangleMesh, *kdtree.Tree, error) {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return nil, nil, errors.New("expected a mesh file and an optional kd-tree file argument")
	}

	meshFile := ctx.Args().Get(0)
	treeFile := treeFileFor(meshFile)
	if ctx.NArg() == 2 {
		treeFile = ctx.Args().Get(1)
	}

	m, err := reader.ReadMesh(meshFile)
	if err != nil {
		return nil, nil, err
	}

	tree, err := kdtree.LoadFile(treeFile, m)
	if err != nil {
		return nil, nil, err
	}
	return m, tree, nil
}
