package tracer

import (
	"errors"
	"time"
)

var (
	ErrNotSetup        = errors.New("tracer: setup has not been called")
	ErrBusy            = errors.New("tracer: a block request is already pending")
	ErrBlockOutOfRange = errors.New("tracer: block exceeds frame bounds")
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block
	RenderTime time.Duration

	// Primary rays cast and rays that hit the mesh.
	Rays uint64
	Hits uint64
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// single cpu core.
	SpeedEstimate() float32

	// Attach the frame depth buffer and start processing requests. The
	// buffer holds frameW * frameH hit distances in row-major order.
	Setup(frameW, frameH uint32, depthBuffer []float32) error

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Retrieve last frame statistics.
	Stats() *Stats
}
