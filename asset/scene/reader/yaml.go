package reader

import (
	"fmt"
	"time"

	"github.com/achilleasa/tiletrace/asset"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/log"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// A YAML scene description that references a mesh file and overrides or
// extends its camera and lights.
//
//	mesh: room.obj
//	camera:
//	  origin: [0, 1, 3.5]
//	  look_at: [0, 1, 0]
//	  up: [0, 1, 0]
//	  fov: 45
//	lights:
//	  - type: spot
//	    position: [0, 1.9, 0]
//	    direction: [0, -1, 0]
//	    color: [1, 1, 1]
//	    intensity: 1.5
//	    cutoff: 30
type sceneDescription struct {
	Mesh   string             `yaml:"mesh"`
	Camera *cameraDescription `yaml:"camera"`
	Lights []lightDescription `yaml:"lights"`
}

type cameraDescription struct {
	Origin []float32 `yaml:"origin"`
	LookAt []float32 `yaml:"look_at"`
	Up     []float32 `yaml:"up"`
	FOV    float32   `yaml:"fov"`
}

type lightDescription struct {
	Type      string    `yaml:"type"`
	Position  []float32 `yaml:"position"`
	Direction []float32 `yaml:"direction"`
	Color     []float32 `yaml:"color"`
	Intensity float32   `yaml:"intensity"`

	// Spot cone half-angle in degrees.
	Cutoff float32 `yaml:"cutoff"`
}

type yamlSceneReader struct {
	logger log.Logger
}

func newYamlSceneReader() *yamlSceneReader {
	return &yamlSceneReader{
		logger: log.New("yaml scene reader"),
	}
}

// Read scene description.
func (r *yamlSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene description from "%s"`, sceneRes.Path())
	start := time.Now()

	var desc sceneDescription
	dec := yaml.NewDecoder(sceneRes)
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return nil, errors.Wrapf(err, "yaml scene reader: could not decode %s", sceneRes.Path())
	}

	if desc.Mesh == "" {
		return nil, fmt.Errorf("yaml scene reader: %s does not specify a mesh", sceneRes.Path())
	}

	meshRes, err := asset.NewResource(desc.Mesh, sceneRes)
	if err != nil {
		return nil, errors.Wrapf(err, "yaml scene reader: could not open mesh referenced by %s", sceneRes.Path())
	}
	defer meshRes.Close()

	sc, err := newWavefrontReader().Read(meshRes)
	if err != nil {
		return nil, err
	}

	if desc.Camera != nil {
		if sc.Camera, err = desc.Camera.toCamera(sc.Camera); err != nil {
			return nil, errors.Wrapf(err, "yaml scene reader: %s", sceneRes.Path())
		}
	}

	for index, ld := range desc.Lights {
		light, err := ld.toLight()
		if err != nil {
			return nil, errors.Wrapf(err, "yaml scene reader: %s: light %d", sceneRes.Path(), index)
		}
		sc.Lights = append(sc.Lights, light)
	}

	r.logger.Noticef("parsed scene description in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

// Apply the description on top of a base camera.
func (cd *cameraDescription) toCamera(base scene.Camera) (scene.Camera, error) {
	cam := base
	var err error
	if cd.Origin != nil {
		if cam.Origin, err = toVec3("origin", cd.Origin); err != nil {
			return cam, err
		}
	}
	if cd.LookAt != nil {
		if cam.LookAt, err = toVec3("look_at", cd.LookAt); err != nil {
			return cam, err
		}
	}
	if cd.Up != nil {
		if cam.Up, err = toVec3("up", cd.Up); err != nil {
			return cam, err
		}
	}
	if cd.FOV != 0 {
		cam.FOV = cd.FOV * math32.Pi / 180.0
	}

	if !cam.Valid() {
		return cam, fmt.Errorf("camera definition does not describe a valid view")
	}
	return cam, nil
}

func (ld *lightDescription) toLight() (scene.Light, error) {
	color := types.Vec3{1, 1, 1}
	var err error
	if ld.Color != nil {
		if color, err = toVec3("color", ld.Color); err != nil {
			return scene.Light{}, err
		}
	}
	intensity := ld.Intensity
	if intensity == 0 {
		intensity = 1
	}

	switch ld.Type {
	case "directional":
		dir, err := toVec3("direction", ld.Direction)
		if err != nil {
			return scene.Light{}, err
		}
		return scene.DirectionalLight(dir, color, intensity), nil
	case "point", "spot":
		pos, err := toVec3("position", ld.Position)
		if err != nil {
			return scene.Light{}, err
		}
		if ld.Type == "point" {
			return scene.PointLight(pos, color, intensity), nil
		}

		axis, err := toVec3("direction", ld.Direction)
		if err != nil {
			return scene.Light{}, err
		}
		if ld.Cutoff <= 0 || ld.Cutoff >= 90 {
			return scene.Light{}, fmt.Errorf("spot cutoff must be in the (0, 90) degree range; got %v", ld.Cutoff)
		}
		return scene.SpotLight(pos, axis, color, intensity, math32.Cos(ld.Cutoff*math32.Pi/180.0)), nil
	}

	return scene.Light{}, fmt.Errorf("unsupported light type %q", ld.Type)
}

func toVec3(field string, v []float32) (types.Vec3, error) {
	if len(v) != 3 {
		return types.Vec3{}, fmt.Errorf("expected %q to contain 3 components; got %d", field, len(v))
	}
	return types.Vec3{v[0], v[1], v[2]}, nil
}
