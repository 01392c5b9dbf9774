package scene

import (
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
)

// Camera describes a pinhole camera.
type Camera struct {
	Origin types.Vec3
	LookAt types.Vec3
	Up     types.Vec3

	// Vertical field of view in radians.
	FOV float32
}

// Create a camera at origin looking at lookAt with a vertical FOV given in degrees.
func NewCamera(origin, lookAt, up types.Vec3, fovDegrees float32) Camera {
	return Camera{
		Origin: origin,
		LookAt: lookAt,
		Up:     up,
		FOV:    fovDegrees * math32.Pi / 180.0,
	}
}

// Calculate the orthonormal camera basis.
func (c Camera) Basis() (forward, right, up types.Vec3) {
	forward = c.LookAt.Sub(c.Origin).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

// Returns true if the camera defines a usable view.
func (c Camera) Valid() bool {
	forward, right, _ := c.Basis()
	return forward != types.Vec3{} && right != types.Vec3{} && c.FOV > 0 && c.FOV < math32.Pi
}
