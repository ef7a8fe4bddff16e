package renderer

import (
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/tracer"
)

var logger = log.New("renderer")

type Renderer interface {
	// Render frame.
	Render() error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats

	// Get the last rendered frame as a grayscale depth image.
	Frame() *image.Gray

	// Get the hit distance for each pixel of the last rendered frame.
	// Pixels whose primary ray missed the mesh are set to +Inf.
	DepthBuffer() []float32
}

// The default renderer splits each frame into row blocks and traces them
// in parallel using a pool of cpu tracers.
type defaultRenderer struct {
	logger log.Logger

	// Attached tracers.
	tracers []tracer.Tracer

	// The block scheduler.
	scheduler tracer.BlockScheduler

	// Render options.
	options Options

	// Shared per-pixel hit distances. Each tracer writes a disjoint set of rows.
	depthBuffer []float32

	// Channels for receiving block completion and error notifications.
	doneChan chan uint32
	errChan  chan error

	// Render statistics.
	stats FrameStats
}

// Create a new default renderer using the specified block scheduler.
func NewDefault(tree *kdtree.Tree, camera *tracer.Camera, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	if tree == nil {
		return nil, ErrTreeNotDefined
	}
	if camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFrameSize, opts.FrameW, opts.FrameH)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Frames == 0 {
		opts.Frames = 1
	}

	camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	r := &defaultRenderer{
		logger:      logger,
		scheduler:   scheduler,
		options:     opts,
		depthBuffer: make([]float32, opts.FrameW*opts.FrameH),
		doneChan:    make(chan uint32, opts.Workers),
		errChan:     make(chan error, opts.Workers),
	}

	for idx := 0; idx < opts.Workers; idx++ {
		tr := tracer.NewCPUTracer(fmt.Sprintf("cpu-%d", idx), tree, camera)
		if err := tr.Setup(opts.FrameW, opts.FrameH, r.depthBuffer); err != nil {
			tr.Close()
			r.Close()
			return nil, err
		}
		r.tracers = append(r.tracers, tr)
	}

	r.logger.Infof("attached %d cpu tracers", len(r.tracers))
	return r, nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Render the configured number of frames. Frames after the first let the
// scheduler rebalance blocks based on tracer timings.
func (r *defaultRenderer) Render() error {
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	for frame := uint32(0); frame < r.options.Frames; frame++ {
		if err := r.renderFrame(); err != nil {
			return err
		}
		r.logger.Debugf("rendered frame %d in %s", frame, r.stats.RenderTime)
	}
	return nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Get the hit distance buffer.
func (r *defaultRenderer) DepthBuffer() []float32 {
	return r.depthBuffer
}

// Get the last rendered frame as a grayscale depth image.
func (r *defaultRenderer) Frame() *image.Gray {
	return DepthImage(r.depthBuffer, r.options.FrameW, r.options.FrameH)
}

func (r *defaultRenderer) renderFrame() error {
	start := time.Now()

	blockAssignment := r.scheduler.Schedule(r.tracers, r.options.FrameH)

	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		if blockAssignment[idx] == 0 {
			continue
		}
		tr.Enqueue(tracer.BlockRequest{
			BlockY:   blockY,
			BlockH:   blockAssignment[idx],
			DoneChan: r.doneChan,
			ErrChan:  r.errChan,
		})
		blockY += blockAssignment[idx]
		pending++
	}

	// Wait for all tracers to finish
	var err error
	for ; pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case blockErr := <-r.errChan:
			if err == nil {
				err = blockErr
			}
		}
	}
	if err != nil {
		return err
	}

	r.updateStats(blockAssignment, time.Since(start))
	return nil
}

func (r *defaultRenderer) updateStats(blockAssignment []uint32, renderTime time.Duration) {
	r.stats = FrameStats{
		Tracers:    make([]TracerStat, len(r.tracers)),
		RenderTime: renderTime,
	}

	for idx, tr := range r.tracers {
		stat := TracerStat{
			Id:           tr.Id(),
			BlockH:       blockAssignment[idx],
			FramePercent: 100 * float32(blockAssignment[idx]) / float32(r.options.FrameH),
		}
		if blockAssignment[idx] > 0 {
			trStats := tr.Stats()
			stat.RenderTime = trStats.RenderTime
			stat.Rays = trStats.Rays
			stat.Hits = trStats.Hits
		}
		r.stats.Tracers[idx] = stat
		r.stats.Rays += stat.Rays
		r.stats.Hits += stat.Hits
	}
}
