package tracer

import (
	"context"
	"fmt"

	"github.com/achilleasa/tiletrace/accel"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/achilleasa/tiletrace/types"
)

// FrameState tracks the progress of a frame through the pipeline.
type FrameState uint8

const (
	Idle FrameState = iota
	RaysGenerated
	PrimaryIntersected
	ShadowRaysGenerated
	ShadowIntersected
	Shaded
)

func (s FrameState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case RaysGenerated:
		return "RaysGenerated"
	case PrimaryIntersected:
		return "PrimaryIntersected"
	case ShadowRaysGenerated:
		return "ShadowRaysGenerated"
	case ShadowIntersected:
		return "ShadowIntersected"
	case Shaded:
		return "Shaded"
	}
	return fmt.Sprintf("FrameState(%d)", uint8(s))
}

// Returns true if the pipeline may move from s to next.
func (s FrameState) CanTransition(next FrameState) bool {
	switch s {
	case Idle:
		return next == RaysGenerated
	case RaysGenerated:
		return next == PrimaryIntersected
	case PrimaryIntersected, ShadowIntersected:
		return next == ShadowRaysGenerated || next == Shaded
	case ShadowRaysGenerated:
		return next == ShadowIntersected
	case Shaded:
		return next == Idle
	}
	return false
}

// A single frame moving through the pipeline stages.
type frame struct {
	state FrameState
	trail []FrameState

	dev         *device.Device
	accelerator accel.Accelerator
	buffers     *frameBuffers
	input       *shadingInput
	fallback    *scene.Material

	w, h     int
	proj     projection
	jitter   types.Vec2
	mask     *TileMask
	shadowed bool
}

func (f *frame) advance(next FrameState) error {
	if !f.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, next)
	}
	f.state = next
	f.trail = append(f.trail, next)
	return nil
}

func (f *frame) pixels() int {
	return f.w * f.h
}

// Encode a grid stage that moves the frame to next once it completes.
func (f *frame) encodeGrid(cb *device.CommandBuffer, name string, next FrameState, kernel device.Kernel) {
	cb.EncodeFunc(name, func(ctx context.Context) error {
		if _, err := f.dev.Exec2D(ctx, f.w, f.h, kernel); err != nil {
			return err
		}
		return f.advance(next)
	})
}

// Encode an intersection query that moves the frame to next once it completes.
func (f *frame) encodeIntersect(cb *device.CommandBuffer, name string, next FrameState, rays []Ray, out []Intersection, mode accel.Mode) {
	cb.EncodeFunc(name, func(ctx context.Context) error {
		if err := f.accelerator.Intersect(ctx, rays, out, mode); err != nil {
			return err
		}
		return f.advance(next)
	})
}

// Encode the full frame as a linear command sequence.
func (f *frame) encode(cb *device.CommandBuffer) {
	pixels := f.pixels()
	rays := f.buffers.rays.Data()
	hits := f.buffers.hits.Data()
	colors := f.buffers.colors.Data()

	f.encodeGrid(cb, "generate primary rays", RaysGenerated, func(x, y int) {
		index := y*f.w + x
		if !f.mask.Covers(x, y) {
			rays[index] = accel.InvalidRay()
			return
		}
		rays[index] = f.proj.ray(x, y, f.jitter)
	})
	f.encodeIntersect(cb, "intersect primary rays", PrimaryIntersected, rays, hits, accel.Nearest)

	var arena shadowArena
	if f.shadowed {
		arena = f.buffers.shadowArena(pixels)
		shadowRays := f.buffers.shadowRays.Data()
		for li := range f.input.lights {
			light := &f.input.lights[li]
			f.encodeGrid(cb, fmt.Sprintf("generate shadow rays (light %d)", li), ShadowRaysGenerated, func(x, y int) {
				index := y*f.w + x
				shadowRays[index] = GenerateShadowRay(&rays[index], &hits[index], light)
			})
			f.encodeIntersect(cb, fmt.Sprintf("intersect shadow rays (light %d)", li), ShadowIntersected, shadowRays, arena.Row(li), accel.Any)
		}
	}

	f.encodeGrid(cb, "shade", Shaded, func(x, y int) {
		if !f.mask.Covers(x, y) {
			return
		}
		index := y*f.w + x
		hit := &hits[index]
		if !hit.Hit() {
			colors[index] = shadeMiss(y, f.h)
			return
		}

		mat := f.input.material(hit.PrimitiveIndex, f.fallback)
		var occluded func(int) bool
		if f.shadowed {
			occluded = func(light int) bool {
				return arena.At(light, index).Distance > 0
			}
		}
		colors[index] = f.input.shade(&rays[index], hit, mat, occluded)
	})
}

// Copy the shaded pixels covered by the mask into out.
func (f *frame) store(out *Frame) {
	colors := f.buffers.colors.Data()
	for y := 0; y < f.h; y++ {
		for x := 0; x < f.w; x++ {
			if f.mask.Covers(x, y) {
				out.Pix[y*f.w+x] = colors[y*f.w+x]
			}
		}
	}
}
