package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/tiletrace/asset"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/log"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
)

type wavefrontSceneReader struct {
	logger log.Logger

	// The scene being assembled.
	sc *scene.Scene

	// A map of material names to indices in the scene material list.
	matNameToIndex map[string]int

	// Currently selected material or -1 if none is selected.
	curMaterial int

	// Parsed vertices. Faces may reference vertices from any included file.
	vertexList []types.Vec3

	// Number of uv and normal coords seen so far; they are only validated.
	uvCount     int
	normalCount int

	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger: log.New("wavefront scene reader"),
		sc: &scene.Scene{
			Camera: scene.NewCamera(types.Vec3{0, 0, 5}, types.Vec3{0, 0, 0}, types.Vec3{0, 1, 0}, 45),
		},
		matNameToIndex: make(map[string]int),
		curMaterial:    -1,
		errStack:       make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}

	if r.sc.TriangleCount() == 0 {
		return nil, r.emitError(sceneRes.Path(), 0, "scene does not define any faces")
	}

	r.sc.Vertices = r.vertexList
	r.logger.Noticef("parsed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return r.sc, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return fmt.Errorf("%s", strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Select the default material for surfaces not using one, creating it if needed.
func (r *wavefrontSceneReader) defaultMaterial() int {
	matIndex, exists := r.matNameToIndex[""]
	if !exists {
		r.sc.Materials = append(r.sc.Materials, scene.DefaultMaterial())
		matIndex = len(r.sc.Materials) - 1
		r.matNameToIndex[""] = matIndex
	}
	return matIndex
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex offset we can apply it while parsing faces.
	relVertexOffset := len(r.vertexList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		var err error
		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}

			if lineTokens[0] == "call" {
				err = r.parse(incRes)
			} else {
				err = r.parseMaterials(incRes)
			}
			incRes.Close()

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "usemtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matIndex, exists := r.matNameToIndex[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `undefined material with name "%s"`, lineTokens[1])
			}
			r.curMaterial = matIndex
		case "v":
			var v types.Vec3
			v, err = parseVec3(lineTokens)
			r.vertexList = append(r.vertexList, v)
		case "vt":
			_, err = parseVec2(lineTokens)
			r.uvCount++
		case "vn":
			_, err = parseVec3(lineTokens)
			r.normalCount++
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.logger.Debugf("parsing object %q", lineTokens[1])
		case "f":
			err = r.parseFace(lineTokens, relVertexOffset)
		case "camera_fov":
			var fov float32
			fov, err = parseFloat32(lineTokens)
			r.sc.Camera.FOV = fov * math32.Pi / 180.0
		case "camera_eye":
			r.sc.Camera.Origin, err = parseVec3(lineTokens)
		case "camera_look":
			r.sc.Camera.LookAt, err = parseVec3(lineTokens)
		case "camera_up":
			r.sc.Camera.Up, err = parseVec3(lineTokens)
		case "light_point", "light_dir":
			var light scene.Light
			light, err = parseLight(lineTokens)
			if err == nil {
				r.sc.Lights = append(r.sc.Lights, light)
			}
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, err.Error())
		}
	}

	return scanner.Err()
}

// Parse face definition. Each face definition consists of 3 or 4 arguments,
// one for each vertex. Each vertex argument uses one of the formats:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the end
// of the vertex list. Quads are split into two triangles.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var indices [4]uint32
	expIndices := 0
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		indices[arg] = uint32(vOffset)

		if expIndices > 1 && vTokens[1] != "" {
			if _, err = selectFaceCoordIndex(vTokens[1], r.uvCount, 0); err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}
		if expIndices > 2 && vTokens[2] != "" {
			if _, err = selectFaceCoordIndex(vTokens[2], r.normalCount, 0); err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
		}
	}

	if r.curMaterial < 0 {
		r.curMaterial = r.defaultMaterial()
	}

	matIndex := uint32(r.curMaterial)
	r.sc.Indices = append(r.sc.Indices, indices[0], indices[1], indices[2])
	r.sc.MaterialIndices = append(r.sc.MaterialIndices, matIndex)
	if len(lineTokens) == 5 {
		r.sc.Indices = append(r.sc.Indices, indices[0], indices[2], indices[3])
		r.sc.MaterialIndices = append(r.sc.MaterialIndices, matIndex)
	}

	return nil
}

// Parse a wavefront material library.
func (r *wavefrontSceneReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0

	r.logger.Infof(`parsing material library "%s"`, res.Path())

	scanner := bufio.NewScanner(res)

	var curMaterial *scene.Material
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		if lineTokens[0] == "newmtl" {
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matName := lineTokens[1]
			if _, exists := r.matNameToIndex[matName]; exists {
				return r.emitError(res.Path(), lineNum, `material "%s" already defined`, matName)
			}

			r.sc.Materials = append(r.sc.Materials, scene.DefaultMaterial())
			r.matNameToIndex[matName] = len(r.sc.Materials) - 1
			curMaterial = &r.sc.Materials[len(r.sc.Materials)-1]
			continue
		}

		if curMaterial == nil {
			return r.emitError(res.Path(), lineNum, `got "%s" without a "newmtl"`, lineTokens[0])
		}

		var err error
		var v types.Vec3
		var f float32
		switch lineTokens[0] {
		case "include":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			baseMaterialIndex, exists := r.matNameToIndex[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `could not include unknown material "%s"`, lineTokens[1])
			}
			*curMaterial = r.sc.Materials[baseMaterialIndex]
		case "Ka":
			v, err = parseVec3(lineTokens)
			curMaterial.Ambient = v.Vec4(curMaterial.Ambient[3])
		case "Kd":
			v, err = parseVec3(lineTokens)
			curMaterial.Diffuse = v.Vec4(curMaterial.Diffuse[3])
		case "Ks":
			v, err = parseVec3(lineTokens)
			curMaterial.Specular = v.Vec4(curMaterial.Specular[3])
		case "Ke":
			v, err = parseVec3(lineTokens)
			curMaterial.Emission = v.Vec4(curMaterial.Emission[3])
		case "Ns":
			f, err = parseFloat32(lineTokens)
			curMaterial.Specular[3] = f
		case "Ni":
			f, err = parseFloat32(lineTokens)
			curMaterial.SetIOR(f)
		case "d":
			f, err = parseFloat32(lineTokens)
			curMaterial.Transparency[0] = f
		case "Tr":
			f, err = parseFloat32(lineTokens)
			curMaterial.Transparency[1] = f
		default:
			r.logger.Debugf("[%s: %d] ignoring unsupported material keyword %q", res.Path(), lineNum, lineTokens[0])
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, err.Error())
		}
	}

	return scanner.Err()
}

// Parse a light definition using one of the formats:
// light_point x y z r g b intensity
// light_dir   x y z r g b intensity
func parseLight(lineTokens []string) (scene.Light, error) {
	if len(lineTokens) != 8 {
		return scene.Light{}, fmt.Errorf(`unsupported syntax for "%s"; expected 7 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	var vals [7]float32
	for i := range vals {
		v, err := strconv.ParseFloat(lineTokens[i+1], 32)
		if err != nil {
			return scene.Light{}, err
		}
		vals[i] = float32(v)
	}

	xyz := types.Vec3{vals[0], vals[1], vals[2]}
	color := types.Vec3{vals[3], vals[4], vals[5]}
	if lineTokens[0] == "light_dir" {
		if xyz.Len() == 0 {
			return scene.Light{}, fmt.Errorf("directional light requires a non-zero direction")
		}
		return scene.DirectionalLight(xyz, color, vals[6]), nil
	}
	return scene.PointLight(xyz, color, vals[6]), nil
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
