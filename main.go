package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/kdtrace/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "kdtrace"
	app.Usage = "build and query kd-trees for fast ray/triangle mesh intersection"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "build kd-trees for triangle meshes",
			Description: `
Parse a mesh from a wavefront obj or stl file and build a kd-tree using the
surface area heuristic.

The tree is written next to the mesh file using a .kdtree extension and can
be supplied to the info, bench, validate and render commands together with
the original mesh. Arguments may also be glob patterns such as
"models/**/*.obj".`,
			ArgsUsage: "mesh_file1.stl mesh_file2.obj ...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "params, p",
					Usage: "load build parameters from a JSON file",
				},
				cli.IntFlag{
					Name:  "leaf-limit",
					Value: 2,
					Usage: "create leaves for nodes with at most this many triangles",
				},
				cli.IntFlag{
					Name:  "max-depth",
					Value: -1,
					Usage: "max tree depth; values <= 0 select a depth based on the triangle count",
				},
			},
			Action: cmd.CompileTree,
		},
		{
			Name:      "info",
			Usage:     "display kd-tree statistics",
			ArgsUsage: "mesh_file [kdtree_file]",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "json",
					Usage: "print statistics as JSON",
				},
			},
			Action: cmd.ShowTreeInfo,
		},
		{
			Name:  "bench",
			Usage: "time random ray queries against prebuilt kd-trees",
			Description: `
Load each mesh and its .kdtree file, generate random rays aimed at the mesh
bounds and report the time spent answering nearest-hit queries.`,
			ArgsUsage: "mesh_file1.stl mesh_file2.stl ...",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "rays, n",
					Value: 1000000,
					Usage: "number of rays per mesh",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed for ray generation",
				},
			},
			Action: cmd.Bench,
		},
		{
			Name:      "validate",
			Usage:     "compare kd-tree query results against brute force triangle tests",
			ArgsUsage: "mesh_file [kdtree_file]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "rays, n",
					Value: 10000,
					Usage: "number of random rays to check",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed for ray generation",
				},
			},
			Action: cmd.ValidateTree,
		},
		{
			Name:        "render",
			Usage:       "render a depth image of a mesh",
			Description: `Trace one primary ray per pixel through the kd-tree and write the hit distances as a grayscale png.`,
			ArgsUsage:   "mesh_file [kdtree_file]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Value: 0,
					Usage: "number of cpu tracers; 0 uses one tracer per cpu",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of frames to render; extra frames rebalance tracer workloads",
				},
				cli.Float64Flag{
					Name:  "fov",
					Value: 45,
					Usage: "vertical field of view in degrees",
				},
				cli.Float64Flag{
					Name:  "yaw",
					Value: 0,
					Usage: "orbit the camera around the mesh by this many degrees",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
