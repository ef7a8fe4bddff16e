package cmd

import (
	"bytes"
	"fmt"
	"math"

	"github.com/achilleasa/kdtrace/renderer"
	"github.com/achilleasa/kdtrace/tracer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a depth image of a mesh through its kd-tree.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderer.Options{
		FrameW:  uint32(ctx.Int("width")),
		FrameH:  uint32(ctx.Int("height")),
		Workers: ctx.Int("workers"),
		Frames:  uint32(ctx.Int("frames")),
	}

	_, tree, err := loadMeshAndTree(ctx)
	if err != nil {
		return err
	}

	camera := tracer.FitCamera(tree.MeshBounds(), float32(ctx.Float64("fov")))
	if yaw := ctx.Float64("yaw"); yaw != 0 {
		camera.Orbit(float32(yaw * math.Pi / 180))
	}

	scheduler := tracer.NaiveScheduler()
	if opts.Frames > 1 {
		scheduler = tracer.PerfectScheduler()
	}

	// Create renderer
	r, err := renderer.NewDefault(tree, camera, scheduler, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		return err
	}

	// Display stats
	displayFrameStats(r.Stats())

	return renderer.WritePNG(ctx.String("out"), r.Frame())
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Rays", "Hits", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.Rays),
			fmt.Sprintf("%d", stat.Hits),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("%.2f Mrays/sec", stats.RaysPerSecond()/1e6), "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
