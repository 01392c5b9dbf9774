package accel

import (
	"context"
	"errors"

	"github.com/achilleasa/tiletrace/types"
)

// Intersection query modes.
type Mode uint8

const (
	// Report the closest hit along the ray.
	Nearest Mode = iota

	// Report any hit along the ray; used for occlusion tests.
	Any
)

func (m Mode) String() string {
	if m == Any {
		return "any"
	}
	return "nearest"
}

var (
	ErrInvalidGeometry = errors.New("accel: invalid geometry")
	ErrNotBuilt        = errors.New("accel: acceleration structure not built")
	ErrOutputTooSmall  = errors.New("accel: intersection buffer smaller than ray buffer")
)

// The Accelerator interface is implemented by structures that can intersect
// rays against a triangle mesh.
type Accelerator interface {
	// Build the structure from a vertex list and a triangle index list
	// holding 3 indices per triangle. On failure the accelerator is left
	// in an unusable state and Intersect returns ErrNotBuilt.
	Build(vertices []types.Vec3, indices []uint32, triCount int) error

	// Intersect rays and write one result per ray into out.
	Intersect(ctx context.Context, rays []Ray, out []Intersection, mode Mode) error
}

// Validate mesh data before building an accelerator.
func validateGeometry(vertices []types.Vec3, indices []uint32, triCount int) error {
	if triCount <= 0 || len(vertices) == 0 || len(indices) < 3*triCount {
		return ErrInvalidGeometry
	}
	for _, index := range indices[:3*triCount] {
		if int(index) >= len(vertices) {
			return ErrInvalidGeometry
		}
	}
	return nil
}
