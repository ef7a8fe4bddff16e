package renderer

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"time"
)

// Darkest gray level used for hits; misses are black.
const farGray = 32

// Map hit distances to an 8-bit grayscale image. The nearest hit is white,
// the farthest hit maps to farGray and misses are black.
func DepthImage(depth []float32, frameW, frameH uint32) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, int(frameW), int(frameH)))

	nearest, farthest := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, d := range depth {
		if math.IsInf(float64(d), 0) {
			continue
		}
		nearest = float32(math.Min(float64(nearest), float64(d)))
		farthest = float32(math.Max(float64(farthest), float64(d)))
	}

	span := farthest - nearest
	for idx, d := range depth {
		if math.IsInf(float64(d), 0) {
			continue
		}
		level := float32(255)
		if span > 0 {
			level = 255 - (255-farGray)*(d-nearest)/span
		}
		img.Pix[idx] = uint8(level + 0.5)
	}
	return img
}

// Encode img as png and write it to filename.
func WritePNG(filename string, img image.Image) error {
	start := time.Now()

	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	err = png.Encode(f, img)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("renderer: could not write %s: %w", filename, err)
	}

	logger.Noticef("wrote frame to %s in %d ms", filename, time.Since(start).Nanoseconds()/1e6)
	return nil
}
