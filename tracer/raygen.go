package tracer

import (
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
)

// The min distance of primary rays; prevents hits at the camera origin.
const rayEpsilon float32 = 1e-4

// A pinhole projection precomputed for a camera and frame size.
type projection struct {
	origin             types.Vec3
	forward, right, up types.Vec3

	halfWidth, halfHeight float32
	w, h                  float32
}

func newProjection(cam scene.Camera, w, h int) projection {
	forward, right, up := cam.Basis()
	halfHeight := math32.Tan(cam.FOV * 0.5)
	return projection{
		origin:     cam.Origin,
		forward:    forward,
		right:      right,
		up:         up,
		halfWidth:  float32(w) / float32(h) * halfHeight,
		halfHeight: halfHeight,
		w:          float32(w),
		h:          float32(h),
	}
}

// Generate the primary ray through pixel (x, y) offset from the pixel
// center by jitter.
func (p *projection) ray(x, y int, jitter types.Vec2) Ray {
	u := 2.0*(float32(x)+0.5+jitter[0])/p.w - 1.0
	v := 2.0*(float32(y)+0.5+jitter[1])/p.h - 1.0

	dir := p.forward.
		Add(p.right.Mul(u * p.halfWidth)).
		Sub(p.up.Mul(v * p.halfHeight)).
		Normalize()

	return Ray{
		Origin:      p.origin,
		MinDistance: rayEpsilon,
		Direction:   dir,
		MaxDistance: math32.Inf(1),
	}
}

// Generate the primary ray for pixel (x, y) of a w x h frame.
func GeneratePrimaryRay(cam scene.Camera, w, h, x, y int, jitter types.Vec2) Ray {
	p := newProjection(cam, w, h)
	return p.ray(x, y, jitter)
}
