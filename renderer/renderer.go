package renderer

import (
	"context"
	"image"
)

type Renderer interface {
	// Render passes until the configured pass count is reached, every
	// tile converges or ctx is cancelled.
	Render(ctx context.Context) error

	// Get the tone-mapped image for the samples accumulated so far.
	Frame() *image.RGBA

	// Shutdown renderer and release the attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
