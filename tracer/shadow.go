package tracer

import (
	"github.com/achilleasa/tiletrace/accel"
	"github.com/achilleasa/tiletrace/asset/scene"
)

const (
	// Offset applied to shadow ray origins and subtracted from the distance
	// to point lights.
	shadowEpsilon float32 = 1e-3

	// Max distance for shadow rays towards directional lights.
	directionalShadowDistance float32 = 1e30
)

// Generate a shadow ray from the primary hit towards a light. Primary misses
// yield an invalid ray.
func GenerateShadowRay(primary *Ray, hit *Intersection, light *scene.Light) Ray {
	if !hit.Hit() {
		return accel.InvalidRay()
	}

	hitPoint := primary.At(hit.Distance)

	var ray Ray
	if light.IsDirectional() {
		ray.Direction = light.Position.Vec3().Mul(-1).Normalize()
		ray.MaxDistance = directionalShadowDistance
	} else {
		toLight := light.Position.Vec3().Sub(hitPoint)
		ray.Direction = toLight.Normalize()
		ray.MaxDistance = toLight.Len() - shadowEpsilon
	}
	ray.Origin = hitPoint.Add(ray.Direction.Mul(shadowEpsilon))
	return ray
}

// Shadow intersections for all lights packed into a single arena. The
// results for light i occupy [i*pixels, (i+1)*pixels).
type shadowArena struct {
	pixels int
	data   []Intersection
}

// Get the intersection results for a light.
func (a *shadowArena) Row(light int) []Intersection {
	return a.data[light*a.pixels : (light+1)*a.pixels]
}

// Get the intersection result for a light and pixel.
func (a *shadowArena) At(light, pixel int) *Intersection {
	return &a.data[light*a.pixels+pixel]
}
