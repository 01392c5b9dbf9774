package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/tiletrace/types"
	"github.com/olekukonko/tablewriter"
)

// The name of the gob-encoded scene entry inside a compiled scene archive.
const CompiledDataFile = "scene.bin"

// Scene holds a flattened triangle mesh together with its materials, lights
// and camera. Triangle i is formed by the vertices referenced by
// Indices[3*i:3*i+3] and uses material MaterialIndices[i].
type Scene struct {
	Vertices        []types.Vec3
	Indices         []uint32
	MaterialIndices []uint32

	Materials []Material
	Lights    []Light

	Camera Camera
}

// Get the number of triangles in the scene.
func (sc *Scene) TriangleCount() int {
	return len(sc.Indices) / 3
}

// Append a triangle using the given material index.
func (sc *Scene) AddTriangle(v0, v1, v2 types.Vec3, matIndex uint32) {
	base := uint32(len(sc.Vertices))
	sc.Vertices = append(sc.Vertices, v0, v1, v2)
	sc.Indices = append(sc.Indices, base, base+1, base+2)
	sc.MaterialIndices = append(sc.MaterialIndices, matIndex)
}

// Append a quad as two triangles (v0, v1, v2) and (v0, v2, v3).
func (sc *Scene) AddQuad(v0, v1, v2, v3 types.Vec3, matIndex uint32) {
	base := uint32(len(sc.Vertices))
	sc.Vertices = append(sc.Vertices, v0, v1, v2, v3)
	sc.Indices = append(sc.Indices, base, base+1, base+2, base, base+2, base+3)
	sc.MaterialIndices = append(sc.MaterialIndices, matIndex, matIndex)
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sc.Vertices, sc.Indices)})
	table.Append([]string{"", "Vertices", fmt.Sprint(len(sc.Vertices)), fmtSize(sc.Vertices)})
	table.Append([]string{"", "Triangles", fmt.Sprint(sc.TriangleCount()), fmtSize(sc.Indices)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Materials", "---", "", fmtSize(sc.Materials, sc.MaterialIndices)})
	table.Append([]string{"", "Mat. indices", fmt.Sprint(len(sc.MaterialIndices)), fmtSize(sc.MaterialIndices)})
	table.Append([]string{"", "Materials", fmt.Sprint(len(sc.Materials)), fmtSize(sc.Materials)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Lights", "---", fmt.Sprint(len(sc.Lights)), fmtSize(sc.Lights)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Vertices, sc.Indices, sc.MaterialIndices, sc.Materials, sc.Lights), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
