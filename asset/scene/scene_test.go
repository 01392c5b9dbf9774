package scene

import (
	"strings"
	"testing"

	"github.com/achilleasa/tiletrace/types"
	"github.com/google/go-cmp/cmp"
)

func TestAddQuad(t *testing.T) {
	sc := &Scene{}
	sc.AddQuad(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{1, 1, 0}, types.Vec3{0, 1, 0}, 7)

	if got := sc.TriangleCount(); got != 2 {
		t.Fatalf("expected 2 triangles; got %d", got)
	}

	if diff := cmp.Diff([]uint32{0, 1, 2, 0, 2, 3}, sc.Indices); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{7, 7}, sc.MaterialIndices); diff != "" {
		t.Fatalf("material index mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinScenes(t *testing.T) {
	for _, name := range BuiltinNames() {
		sc, err := Builtin(name)
		if err != nil {
			t.Fatal(err)
		}

		if sc.TriangleCount() == 0 {
			t.Fatalf("[%s] expected scene to contain triangles", name)
		}
		if len(sc.MaterialIndices) != sc.TriangleCount() {
			t.Fatalf("[%s] expected %d material indices; got %d", name, sc.TriangleCount(), len(sc.MaterialIndices))
		}
		for _, idx := range sc.Indices {
			if int(idx) >= len(sc.Vertices) {
				t.Fatalf("[%s] index %d out of range", name, idx)
			}
		}
		if !sc.Camera.Valid() {
			t.Fatalf("[%s] expected a valid camera", name)
		}
	}

	if _, err := Builtin("teapot"); err == nil {
		t.Fatal("expected an error for unknown builtin scene")
	}
}

func TestStats(t *testing.T) {
	sc, _ := Builtin("triangle")
	out := sc.Stats()
	for _, exp := range []string{"Vertices", "Triangles", "Materials", "Lights", "Total"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("expected stats table to contain %q; got\n%s", exp, out)
		}
	}
}

func TestCameraBasis(t *testing.T) {
	cam := NewCamera(types.Vec3{0, 0, 5}, types.Vec3{0, 0, 0}, types.Vec3{0, 1, 0}, 60)
	forward, right, up := cam.Basis()

	if !types.ApproxEqual(forward, types.Vec3{0, 0, -1}, 1e-6) {
		t.Fatalf("expected forward to be -Z; got %v", forward)
	}
	if !types.ApproxEqual(right, types.Vec3{1, 0, 0}, 1e-6) {
		t.Fatalf("expected right to be +X; got %v", right)
	}
	if !types.ApproxEqual(up, types.Vec3{0, 1, 0}, 1e-6) {
		t.Fatalf("expected up to be +Y; got %v", up)
	}

	degenerate := NewCamera(types.Vec3{0, 0, 0}, types.Vec3{0, 1, 0}, types.Vec3{0, 1, 0}, 60)
	if degenerate.Valid() {
		t.Fatal("expected camera with up parallel to view direction to be invalid")
	}
}

func TestLightHelpers(t *testing.T) {
	dir := DirectionalLight(types.Vec3{0, -2, 0}, types.Vec3{1, 1, 1}, 0.5)
	if !dir.IsDirectional() {
		t.Fatal("expected directional light")
	}
	if dir.Position.Vec3() != (types.Vec3{0, -1, 0}) {
		t.Fatalf("expected normalized direction; got %v", dir.Position.Vec3())
	}
	if dir.Intensity() != 0.5 {
		t.Fatalf("expected intensity 0.5; got %f", dir.Intensity())
	}

	pt := PointLight(types.Vec3{1, 2, 3}, types.Vec3{1, 1, 1}, 1)
	if pt.IsDirectional() {
		t.Fatal("expected point light")
	}
}
