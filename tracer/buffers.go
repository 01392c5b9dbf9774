package tracer

import (
	"github.com/achilleasa/tiletrace/log"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/achilleasa/tiletrace/types"
)

// The device buffers used by the frame pipeline. Buffers only grow; each
// reallocation starts a new buffer generation.
type frameBuffers struct {
	logger log.Logger

	rays   *device.Buffer[Ray]
	hits   *device.Buffer[Intersection]
	colors *device.Buffer[types.Vec4]

	shadowRays *device.Buffer[Ray]
	shadowHits *device.Buffer[Intersection]
}

func newFrameBuffers(dev *device.Device, logger log.Logger) *frameBuffers {
	return &frameBuffers{
		logger:     logger,
		rays:       device.NewBuffer[Ray](dev, "rays"),
		hits:       device.NewBuffer[Intersection](dev, "intersections"),
		colors:     device.NewBuffer[types.Vec4](dev, "colors"),
		shadowRays: device.NewBuffer[Ray](dev, "shadow rays"),
		shadowHits: device.NewBuffer[Intersection](dev, "shadow intersections"),
	}
}

func (fb *frameBuffers) grow(buf interface {
	Name() string
	Size() int
	Grow(int) (bool, error)
}, n int) error {
	realloc, err := buf.Grow(n)
	if err != nil {
		return err
	}
	if realloc {
		fb.logger.Debugf("reallocated %s buffer (%d bytes)", buf.Name(), buf.Size())
	}
	return nil
}

// Ensure the primary ray, intersection and color buffers can hold pixels entries.
func (fb *frameBuffers) growPrimary(pixels int) error {
	if err := fb.grow(fb.rays, pixels); err != nil {
		return err
	}
	if err := fb.grow(fb.hits, pixels); err != nil {
		return err
	}
	return fb.grow(fb.colors, pixels)
}

// Ensure the shadow ray buffer and the per-light shadow arena fit.
func (fb *frameBuffers) growShadow(pixels, lights int) error {
	if err := fb.grow(fb.shadowRays, pixels); err != nil {
		return err
	}
	return fb.grow(fb.shadowHits, pixels*lights)
}

// Get the shadow arena for the current frame.
func (fb *frameBuffers) shadowArena(pixels int) shadowArena {
	return shadowArena{pixels: pixels, data: fb.shadowHits.Data()}
}

func (fb *frameBuffers) release() {
	fb.rays.Release()
	fb.hits.Release()
	fb.colors.Release()
	fb.shadowRays.Release()
	fb.shadowHits.Release()
}
