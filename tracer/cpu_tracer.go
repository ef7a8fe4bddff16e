package tracer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/log"
)

type cpuTracer struct {
	logger log.Logger

	sync.Mutex

	// The tracer id.
	id string

	tree   *kdtree.Tree
	camera *Camera

	frameW, frameH uint32
	depthBuffer    []float32

	// A channel for receiving block requests from the renderer.
	blockReqChan chan BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered frame.
	stats *Stats
}

// Create a tracer that casts primary rays from camera through tree on the
// calling machine's cpu. Multiple tracers may share a tree.
func NewCPUTracer(id string, tree *kdtree.Tree, camera *Camera) Tracer {
	return &cpuTracer{
		logger: log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:     id,
		tree:   tree,
		camera: camera,
		stats:  &Stats{},
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Each cpu tracer runs on a single goroutine.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return 1
}

// Attach the depth buffer and start the worker.
func (tr *cpuTracer) Setup(frameW, frameH uint32, depthBuffer []float32) error {
	if uint64(len(depthBuffer)) != uint64(frameW)*uint64(frameH) {
		return fmt.Errorf("tracer: depth buffer has %d entries; expected %d", len(depthBuffer), frameW*frameH)
	}

	tr.Lock()
	defer tr.Unlock()

	tr.frameW, tr.frameH = frameW, frameH
	tr.depthBuffer = depthBuffer

	// Start worker
	if tr.closeChan == nil {
		tr.blockReqChan = make(chan BlockRequest, 1)
		tr.closeChan = make(chan struct{})
		go tr.worker(tr.blockReqChan, tr.closeChan)
	}
	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close
		<-tr.closeChan
		tr.closeChan = nil
		tr.blockReqChan = nil
	}
	tr.depthBuffer = nil
}

// Enqueue block request.
func (tr *cpuTracer) Enqueue(blockReq BlockRequest) {
	tr.Lock()
	reqChan := tr.blockReqChan
	tr.Unlock()

	if reqChan == nil {
		blockReq.ErrChan <- ErrNotSetup
		return
	}

	select {
	case reqChan <- blockReq:
	default:
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- ErrBusy
	}
}

// Retrieve last frame statistics.
func (tr *cpuTracer) Stats() *Stats {
	return tr.stats
}

func (tr *cpuTracer) worker(blockReqChan <-chan BlockRequest, closeChan chan struct{}) {
	for {
		select {
		case blockReq := <-blockReqChan:
			if err := tr.trace(blockReq); err != nil {
				blockReq.ErrChan <- err
				continue
			}
			blockReq.DoneChan <- blockReq.BlockH
		case <-closeChan:
			closeChan <- struct{}{}
			return
		}
	}
}

// Trace a block of frame rows storing the nearest hit distance for each
// pixel. Pixels whose ray misses the mesh are set to +Inf.
func (tr *cpuTracer) trace(blockReq BlockRequest) error {
	if uint64(blockReq.BlockY)+uint64(blockReq.BlockH) > uint64(tr.frameH) {
		return fmt.Errorf("%w: rows [%d, %d); frame height %d", ErrBlockOutOfRange, blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, tr.frameH)
	}

	start := time.Now()
	miss := float32(math.Inf(1))
	var hits uint64
	for y := blockReq.BlockY; y < blockReq.BlockY+blockReq.BlockH; y++ {
		row := tr.depthBuffer[y*tr.frameW : (y+1)*tr.frameW]
		for x := range row {
			hit, ok := tr.tree.Intersect(tr.camera.Ray(uint32(x), y, tr.frameW, tr.frameH))
			if !ok {
				row[x] = miss
				continue
			}
			row[x] = hit.T
			hits++
		}
	}

	*tr.stats = Stats{
		BlockH:     blockReq.BlockH,
		RenderTime: time.Since(start),
		Rays:       uint64(blockReq.BlockH) * uint64(tr.frameW),
		Hits:       hits,
	}
	return nil
}
