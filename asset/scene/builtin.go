package scene

import (
	"fmt"
	"sort"

	"github.com/achilleasa/tiletrace/types"
)

// The prefix used for referencing builtin scenes instead of scene files.
const BuiltinPrefix = "builtin:"

var builtins = map[string]func() *Scene{
	"triangle": triangleScene,
	"cornell":  cornellScene,
}

// Get the names of all builtin scenes.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create a builtin scene by name.
func Builtin(name string) (*Scene, error) {
	ctor, exists := builtins[name]
	if !exists {
		return nil, fmt.Errorf("scene: unknown builtin scene %q", name)
	}
	return ctor(), nil
}

// A single triangle lying on the XZ plane lit from above.
func triangleScene() *Scene {
	sc := &Scene{
		Materials: []Material{DiffuseMaterial(types.Vec3{0.8, 0.8, 0.8})},
		Lights: []Light{
			DirectionalLight(types.Vec3{0, -1, 0}, types.Vec3{1, 1, 1}, 1),
		},
		Camera: NewCamera(types.Vec3{0, 2, 0}, types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1}, 60),
	}
	sc.AddTriangle(types.Vec3{-1, 0, 1}, types.Vec3{1, 0, 1}, types.Vec3{0, 0, -1}, 0)
	return sc
}

// A closed-back box with colored side walls, a cube and a ceiling light.
func cornellScene() *Scene {
	white := DiffuseMaterial(types.Vec3{0.73, 0.73, 0.73})
	red := DiffuseMaterial(types.Vec3{0.65, 0.05, 0.05})
	green := DiffuseMaterial(types.Vec3{0.12, 0.45, 0.15})
	lamp := DiffuseMaterial(types.Vec3{0.8, 0.8, 0.8})
	lamp.Emission = types.Vec4{1, 0.9, 0.7, 0}
	glossy := DiffuseMaterial(types.Vec3{0.6, 0.6, 0.7})
	glossy.Specular = types.Vec4{0.5, 0.5, 0.5, 32}

	sc := &Scene{
		Materials: []Material{white, red, green, lamp, glossy},
		Lights: []Light{
			PointLight(types.Vec3{0, 1.9, 0}, types.Vec3{1, 0.95, 0.9}, 1.5),
			SpotLight(types.Vec3{0.8, 1.9, 0.8}, types.Vec3{-0.4, -1, -0.4}, types.Vec3{0.6, 0.6, 1}, 1, 0.9),
		},
		Camera: NewCamera(types.Vec3{0, 1, 3.5}, types.Vec3{0, 1, 0}, types.Vec3{0, 1, 0}, 45),
	}

	// floor, ceiling and back wall
	sc.AddQuad(types.Vec3{-1, 0, 1}, types.Vec3{1, 0, 1}, types.Vec3{1, 0, -1}, types.Vec3{-1, 0, -1}, 0)
	sc.AddQuad(types.Vec3{-1, 2, -1}, types.Vec3{1, 2, -1}, types.Vec3{1, 2, 1}, types.Vec3{-1, 2, 1}, 0)
	sc.AddQuad(types.Vec3{-1, 0, -1}, types.Vec3{1, 0, -1}, types.Vec3{1, 2, -1}, types.Vec3{-1, 2, -1}, 0)

	// side walls
	sc.AddQuad(types.Vec3{-1, 0, 1}, types.Vec3{-1, 0, -1}, types.Vec3{-1, 2, -1}, types.Vec3{-1, 2, 1}, 1)
	sc.AddQuad(types.Vec3{1, 0, -1}, types.Vec3{1, 0, 1}, types.Vec3{1, 2, 1}, types.Vec3{1, 2, -1}, 2)

	// ceiling lamp slightly below the ceiling
	sc.AddQuad(types.Vec3{-0.3, 1.99, -0.3}, types.Vec3{0.3, 1.99, -0.3}, types.Vec3{0.3, 1.99, 0.3}, types.Vec3{-0.3, 1.99, 0.3}, 3)

	addCube(sc, types.Vec3{-0.35, 0.3, -0.2}, 0.3, 4)
	return sc
}

// Append an axis-aligned cube centered at c with half-extent h.
func addCube(sc *Scene, c types.Vec3, h float32, matIndex uint32) {
	p := func(x, y, z float32) types.Vec3 {
		return types.Vec3{c[0] + x*h, c[1] + y*h, c[2] + z*h}
	}

	sc.AddQuad(p(-1, -1, 1), p(1, -1, 1), p(1, 1, 1), p(-1, 1, 1), matIndex)
	sc.AddQuad(p(1, -1, -1), p(-1, -1, -1), p(-1, 1, -1), p(1, 1, -1), matIndex)
	sc.AddQuad(p(-1, -1, -1), p(-1, -1, 1), p(-1, 1, 1), p(-1, 1, -1), matIndex)
	sc.AddQuad(p(1, -1, 1), p(1, -1, -1), p(1, 1, -1), p(1, 1, 1), matIndex)
	sc.AddQuad(p(-1, 1, 1), p(1, 1, 1), p(1, 1, -1), p(-1, 1, -1), matIndex)
	sc.AddQuad(p(-1, -1, -1), p(1, -1, -1), p(1, -1, 1), p(-1, -1, 1), matIndex)
}
