package tracer

import (
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
)

// Shading weights. The shadowed and unshadowed paths use their own ambient
// weight and distance attenuation coefficient.
const (
	ambientWeight          float32 = 0.1
	attenuationCoefficient float32 = 0.01

	noShadowAmbientWeight          float32 = 0.15
	noShadowAttenuationCoefficient float32 = 0.02
)

// Background gradient colors for primary misses.
var (
	backgroundTop    = types.Vec3{0.55, 0.7, 0.9}
	backgroundBottom = types.Vec3{0.1, 0.1, 0.15}
)

// The scene data needed for shading a hit.
type shadingInput struct {
	vertices        []types.Vec3
	indices         []uint32
	materialIndices []uint32
	materials       []scene.Material
	lights          []scene.Light
}

// Get the material for a triangle. Missing or out of range indices map to
// the default material.
func (in *shadingInput) material(tri int32, fallback *scene.Material) *scene.Material {
	if tri < 0 || int(tri) >= len(in.materialIndices) {
		return fallback
	}
	index := in.materialIndices[tri]
	if int(index) >= len(in.materials) {
		return fallback
	}
	return &in.materials[index]
}

// Get the geometric normal of a triangle, flipped to face the incoming ray.
func (in *shadingInput) faceNormal(tri int32, dir types.Vec3) types.Vec3 {
	base := int(tri) * 3
	v0 := in.vertices[in.indices[base]]
	v1 := in.vertices[in.indices[base+1]]
	v2 := in.vertices[in.indices[base+2]]

	n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
	if n.Dot(dir) >= 0 {
		n = n.Mul(-1)
	}
	return n
}

// Get the miss color for a pixel row.
func shadeMiss(y, h int) types.Vec4 {
	t := (float32(y) + 0.5) / float32(h)
	return backgroundTop.Mul(1 - t).Add(backgroundBottom.Mul(t)).Vec4(1)
}

// Calculate the direction towards a light and its distance attenuation for
// the given coefficient.
func lightDirection(light *scene.Light, point types.Vec3, k float32) (types.Vec3, float32) {
	if light.IsDirectional() {
		return light.Position.Vec3().Mul(-1).Normalize(), 1
	}
	toLight := light.Position.Vec3().Sub(point)
	dist := toLight.Len()
	return toLight.Normalize(), 1.0 / (1.0 + k*dist*dist)
}

// Returns the spot cone factor for a light (1 inside the cone or for lights
// without a cone, 0 outside).
func spotFactor(light *scene.Light, toLight types.Vec3) float32 {
	if light.Spot[3] <= 0 {
		return 1
	}
	if toLight.Mul(-1).Dot(light.Spot.Vec3().Normalize()) < light.Spot[3] {
		return 0
	}
	return 1
}

// Evaluate the local illumination at a primary hit. If occluded is not nil
// it reports whether the shadow ray towards light i was blocked.
func (in *shadingInput) shade(ray *Ray, hit *Intersection, mat *scene.Material, occluded func(light int) bool) types.Vec4 {
	ambientW, k := noShadowAmbientWeight, noShadowAttenuationCoefficient
	if occluded != nil {
		ambientW, k = ambientWeight, attenuationCoefficient
	}

	point := ray.At(hit.Distance)
	normal := in.faceNormal(hit.PrimitiveIndex, ray.Direction)
	viewDir := ray.Direction.Mul(-1)
	shininess := math32.Max(mat.Shininess(), 1)

	color := mat.Emission.Vec3().Add(mat.Ambient.Vec3().Mul(ambientW))
	for li := range in.lights {
		light := &in.lights[li]

		toLight, atten := lightDirection(light, point, k)
		nDotL := normal.Dot(toLight)
		if nDotL <= 0 {
			continue
		}
		if spotFactor(light, toLight) == 0 {
			continue
		}
		if occluded != nil && occluded(li) {
			continue
		}

		radiance := light.Emission.Vec3().Mul(light.Intensity() * atten)
		color = color.Add(mat.Diffuse.Vec3().MulVec(radiance).Mul(nDotL))

		halfVec := toLight.Add(viewDir).Normalize()
		specular := math32.Pow(math32.Max(normal.Dot(halfVec), 0), shininess)
		color = color.Add(mat.Specular.Vec3().MulVec(radiance).Mul(specular))
	}

	return color.Clamp(0, 1).Vec4(mat.Alpha())
}
