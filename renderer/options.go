package renderer

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of cpu tracers. Values <= 0 select one tracer per cpu.
	Workers int

	// Number of frames to render. Defaults to 1.
	Frames uint32
}
