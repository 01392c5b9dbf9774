package scene

import "github.com/achilleasa/tiletrace/types"

// Material describes the reflectance parameters of a surface. All colors are
// stored as Vec4 so the layout matches the kernel-side structure.
type Material struct {
	// Ambient color (RGB).
	Ambient types.Vec4

	// Diffuse color (RGB); W is reserved for a texture index.
	Diffuse types.Vec4

	// Specular color (RGB); W holds the shininess exponent.
	Specular types.Vec4

	// Emitted radiance (RGB).
	Emission types.Vec4

	// Reflection and refraction colors. Reserved for multi-bounce transport.
	Reflection types.Vec4
	Refraction types.Vec4

	// Layout:
	// [0] alpha
	// [1] transparency amount
	// [2] index of refraction
	// [3] 1 / index of refraction
	Transparency types.Vec4
}

// Get the specular exponent.
func (m *Material) Shininess() float32 {
	return m.Specular[3]
}

// Get the output alpha for surfaces using this material.
func (m *Material) Alpha() float32 {
	return m.Transparency[0] * (1.0 - m.Transparency[1])
}

// Set the index of refraction and its reciprocal.
func (m *Material) SetIOR(ior float32) {
	if ior <= 0 {
		ior = 1
	}
	m.Transparency[2] = ior
	m.Transparency[3] = 1.0 / ior
}

// Create an opaque material with the given diffuse color.
func DiffuseMaterial(diffuse types.Vec3) Material {
	m := Material{
		Ambient:      diffuse.Mul(0.5).Vec4(0),
		Diffuse:      diffuse.Vec4(-1),
		Specular:     types.Vec4{0, 0, 0, 1},
		Transparency: types.Vec4{1, 0, 1, 1},
	}
	return m
}

// The material used by triangles without a valid material index.
func DefaultMaterial() Material {
	return DiffuseMaterial(types.Vec3{0.7, 0.7, 0.7})
}

// Values stored in Light.Position[3].
const (
	DirectionalLightType float32 = 0.0
	PointLightType       float32 = 1.0
)

// Light describes a directional, point or spot light source.
type Light struct {
	// Light color (RGB) and intensity (W).
	Emission types.Vec4

	// For point lights xyz is the world position; for directional
	// lights xyz is the direction the light travels. W selects the type.
	Position types.Vec4

	// Optional spot cone: xyz is the cone axis, w the cosine of the cutoff
	// angle. A zero cutoff disables the cone.
	Spot types.Vec4
}

// Returns true if this is a directional light.
func (l *Light) IsDirectional() bool {
	return l.Position[3] < 0.5
}

// Get the light intensity.
func (l *Light) Intensity() float32 {
	return l.Emission[3]
}

// Create a directional light travelling along dir.
func DirectionalLight(dir, color types.Vec3, intensity float32) Light {
	return Light{
		Emission: color.Vec4(intensity),
		Position: dir.Normalize().Vec4(DirectionalLightType),
	}
}

// Create a point light at pos.
func PointLight(pos, color types.Vec3, intensity float32) Light {
	return Light{
		Emission: color.Vec4(intensity),
		Position: pos.Vec4(PointLightType),
	}
}

// Create a spot light at pos pointing along axis. The cutoff is given as the
// cosine of the cone half-angle.
func SpotLight(pos, axis, color types.Vec3, intensity, cosCutoff float32) Light {
	l := PointLight(pos, color, intensity)
	l.Spot = axis.Normalize().Vec4(cosCutoff)
	return l
}
