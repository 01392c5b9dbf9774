package reader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/tiletrace/asset"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/asset/scene/writer"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
)

const triangleObj = `
v -1 0 1
v 1 0 1
v 0 0 -1
f 1 2 3
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadBuiltinScene(t *testing.T) {
	sc, err := ReadScene("builtin:cornell")
	if err != nil {
		t.Fatal(err)
	}
	if sc.TriangleCount() == 0 {
		t.Fatal("expected builtin scene to contain triangles")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.ply", "ply")

	_, err := ReadScene(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported file format") {
		t.Fatalf("expected unsupported format error; got %v", err)
	}
}

func TestYamlSceneDescription(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mesh.obj", triangleObj)
	path := writeFile(t, dir, "scene.yaml", `
mesh: mesh.obj
camera:
  origin: [0, 2, 0]
  look_at: [0, 0, 0]
  up: [0, 0, -1]
  fov: 90
lights:
  - type: directional
    direction: [0, -1, 0]
  - type: spot
    position: [0, 2, 0]
    direction: [0, -1, 0]
    color: [1, 0, 0]
    intensity: 2
    cutoff: 60
`)

	sc, err := ReadScene(path)
	if err != nil {
		t.Fatal(err)
	}

	if sc.Camera.Origin != (types.Vec3{0, 2, 0}) {
		t.Fatalf("expected camera origin override; got %v", sc.Camera.Origin)
	}
	if math32.Abs(sc.Camera.FOV-math32.Pi/2) > 1e-6 {
		t.Fatalf("expected FOV of pi/2; got %f", sc.Camera.FOV)
	}
	if len(sc.Lights) != 2 {
		t.Fatalf("expected 2 lights; got %d", len(sc.Lights))
	}
	if !sc.Lights[0].IsDirectional() {
		t.Fatal("expected first light to be directional")
	}
	if math32.Abs(sc.Lights[1].Spot[3]-0.5) > 1e-6 {
		t.Fatalf("expected spot cutoff cosine 0.5; got %f", sc.Lights[1].Spot[3])
	}
}

func TestYamlSceneDescriptionErrors(t *testing.T) {
	type spec struct {
		yaml   string
		expErr string
	}

	specs := []spec{
		{"camera:\n  fov: 45\n", "does not specify a mesh"},
		{"mesh: mesh.obj\nunknown: 1\n", "field unknown not found"},
		{"mesh: mesh.obj\nlights:\n  - type: area\n", `unsupported light type "area"`},
		{"mesh: mesh.obj\nlights:\n  - type: point\n    position: [1, 2]\n", `expected "position" to contain 3 components`},
		{"mesh: mesh.obj\ncamera:\n  up: [0, 0, -1]\n", "does not describe a valid view"},
	}

	for specIndex, s := range specs {
		dir := t.TempDir()
		writeFile(t, dir, "mesh.obj", triangleObj)
		path := writeFile(t, dir, "scene.yml", s.yaml)

		_, err := ReadScene(path)
		if err == nil || !strings.Contains(err.Error(), s.expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", specIndex, s.expErr, err)
		}
	}
}

func TestZipRoundTrip(t *testing.T) {
	sc, err := scene.Builtin("cornell")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err = writer.Encode(sc, &buf); err != nil {
		t.Fatal(err)
	}

	res := asset.NewResourceFromStream("scene.zip", &buf)
	loaded, err := newZipSceneReader().Read(res)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(sc, loaded); diff != "" {
		t.Fatalf("scene mismatch after round-trip (-want +got):\n%s", diff)
	}
}

func TestCompiledSceneFile(t *testing.T) {
	sc, _ := scene.Builtin("triangle")
	path := filepath.Join(t.TempDir(), "triangle.zip")
	if err := writer.WriteScene(sc, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadScene(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TriangleCount() != 1 {
		t.Fatalf("expected 1 triangle; got %d", loaded.TriangleCount())
	}
}
