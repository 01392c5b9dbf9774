package tracer

import (
	"time"

	"github.com/achilleasa/tiletrace/accel"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/achilleasa/tiletrace/types"
)

type (
	Ray          = accel.Ray
	Intersection = accel.Intersection
)

// A frame of RGBA radiance values stored in row-major order.
type Frame struct {
	W, H int
	Pix  []types.Vec4
}

// Allocate a frame with the given dimensions.
func NewFrame(w, h int) *Frame {
	return &Frame{W: w, H: h, Pix: make([]types.Vec4, w*h)}
}

// Get the pixel at (x, y).
func (f *Frame) At(x, y int) types.Vec4 {
	return f.Pix[y*f.W+x]
}

func (f *Frame) valid() bool {
	return f != nil && f.W > 0 && f.H > 0 && len(f.Pix) == f.W*f.H
}

// TileMask restricts tracing to a subset of fixed-size screen tiles. A nil
// mask or a mask without any tiles enables every pixel.
type TileMask struct {
	TileSize int
	Cols     int
	Active   []bool
}

// Returns true if pixel (x, y) belongs to an active tile.
func (m *TileMask) Covers(x, y int) bool {
	if m == nil || len(m.Active) == 0 || m.TileSize <= 0 {
		return true
	}
	index := (y/m.TileSize)*m.Cols + x/m.TileSize
	return index < len(m.Active) && m.Active[index]
}

// The parameters for tracing a single frame.
type TraceRequest struct {
	Camera scene.Camera

	// Sub-pixel sample offset from the pixel center in [-0.5, 0.5).
	Jitter types.Vec2

	// Optional mask of tiles to trace. Pixels outside the mask keep their
	// previous frame contents.
	Mask *TileMask
}

// Statistics for a traced frame.
type Stats struct {
	// Per-stage execution time.
	Stages []device.Timing

	// The sequence of states the frame went through.
	States []FrameState

	// The number of lights with shadow passes and whether the shadowed
	// shading path was used.
	ShadowedLights int
	Shadowed       bool

	// Total frame time.
	RenderTime time.Duration
}
