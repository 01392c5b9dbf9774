package accel

import (
	"context"

	"github.com/achilleasa/tiletrace/types"
)

// Null is an accelerator whose rays never hit anything.
type Null struct{}

func (Null) Build([]types.Vec3, []uint32, int) error {
	return nil
}

func (Null) Intersect(ctx context.Context, rays []Ray, out []Intersection, _ Mode) error {
	if len(out) < len(rays) {
		return ErrOutputTooSmall
	}
	for index := range rays {
		out[index] = Miss()
	}
	return ctx.Err()
}
