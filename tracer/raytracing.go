package tracer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/tiletrace/accel"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/log"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/achilleasa/tiletrace/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// An Option configures a RayTracing instance.
type Option func(*RayTracing)

// Use a specific accelerator instead of the default BVH.
func WithAccelerator(a accel.Accelerator) Option {
	return func(rt *RayTracing) {
		rt.accelerator = a
	}
}

// RayTracing drives the wavefront pipeline on a device: primary ray
// generation, nearest-hit intersection, a shadow pass per light and local
// shading.
type RayTracing struct {
	logger log.Logger
	device *device.Device

	mu          sync.Mutex
	sessionID   uuid.UUID
	initialized bool
	accelerator accel.Accelerator
	accelReady  bool
	buffers     *frameBuffers

	input           shadingInput
	triCount        int
	defaultMaterial scene.Material
	shadowsEnabled  bool
	maxBounces      int
}

// Create a new ray tracer for the given device. Init must be called before
// any other operation.
func New(dev *device.Device, opts ...Option) *RayTracing {
	rt := &RayTracing{
		logger:          log.New(fmt.Sprintf("raytracing (%s)", dev.Name)),
		device:          dev,
		defaultMaterial: scene.DefaultMaterial(),
		shadowsEnabled:  true,
		maxBounces:      1,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Returns true if the device can run the pipeline.
func IsSupported(dev *device.Device) bool {
	return dev != nil && dev.IsSupported()
}

// Prepare the pipeline. Calling Init on an initialized instance is a no-op.
func (rt *RayTracing) Init() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.initialized {
		return nil
	}
	if !IsSupported(rt.device) {
		return ErrUnsupportedDevice
	}

	if rt.accelerator == nil {
		rt.accelerator = accel.NewBVH(rt.device.Workers)
	}
	rt.buffers = newFrameBuffers(rt.device, rt.logger)
	rt.sessionID = uuid.New()
	rt.initialized = true

	rt.logger.Infof("session %s initialized on %s", rt.sessionID, rt.device.Name)
	return nil
}

// Get the id of the current session. A new id is assigned by each Init call
// following a Release.
func (rt *RayTracing) SessionID() uuid.UUID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.sessionID
}

// Release all device resources. It is safe to call Release multiple times.
func (rt *RayTracing) Release() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.initialized {
		return
	}
	rt.buffers.release()
	rt.buffers = nil
	rt.accelReady = false
	rt.initialized = false
	rt.logger.Infof("session %s released", rt.sessionID)
}

// Build the acceleration structure for an indexed triangle mesh. On failure
// tracing is disabled until a subsequent build succeeds.
func (rt *RayTracing) BuildAccelerationStructure(vertices []types.Vec3, indices []uint32, triCount int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.initialized {
		return ErrNotInitialized
	}

	start := time.Now()
	if err := rt.accelerator.Build(vertices, indices, triCount); err != nil {
		rt.accelReady = false
		rt.logger.Warningf("acceleration structure build failed: %v", err)
		return errors.Wrap(err, "tracer: could not build acceleration structure")
	}

	rt.input.vertices = append(rt.input.vertices[:0], vertices...)
	rt.input.indices = append(rt.input.indices[:0], indices[:triCount*3]...)
	rt.triCount = triCount
	rt.accelReady = true

	rt.logger.Debugf("built acceleration structure for %d triangles in %d ms", triCount, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Set the scene materials. An empty list is rejected with ErrEmptyMaterials
// and leaves the current materials untouched.
func (rt *RayTracing) SetMaterials(materials []scene.Material) error {
	if len(materials) == 0 {
		return ErrEmptyMaterials
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.input.materials = append(rt.input.materials[:0], materials...)
	return nil
}

// Set the material index for each triangle. Triangles without an index or
// with an out of range index use the default material.
func (rt *RayTracing) SetMaterialIndices(indices []uint32) error {
	if len(indices) == 0 {
		return ErrEmptyMaterialIndices
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.input.materialIndices = append(rt.input.materialIndices[:0], indices...)
	return nil
}

// Set the scene lights. An empty list disables direct lighting and the
// shadow passes.
func (rt *RayTracing) SetLights(lights []scene.Light) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.input.lights = append(rt.input.lights[:0], lights...)
}

// Enable or disable the per-light shadow passes.
func (rt *RayTracing) SetShadowsEnabled(enabled bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.shadowsEnabled = enabled
}

// Set the max number of bounces. Only direct lighting is currently traced so
// the value is stored for future transport passes.
func (rt *RayTracing) SetMaxBounces(bounces int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if bounces < 1 {
		bounces = 1
	}
	rt.maxBounces = bounces
}

// Get the max number of bounces.
func (rt *RayTracing) MaxBounces() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.maxBounces
}

// Upload the geometry, materials and lights of a scene.
func (rt *RayTracing) LoadScene(sc *scene.Scene) error {
	if err := rt.BuildAccelerationStructure(sc.Vertices, sc.Indices, sc.TriangleCount()); err != nil {
		return err
	}
	if len(sc.Materials) != 0 {
		if err := rt.SetMaterials(sc.Materials); err != nil {
			return err
		}
	}
	if len(sc.MaterialIndices) != 0 {
		if err := rt.SetMaterialIndices(sc.MaterialIndices); err != nil {
			return err
		}
	}
	rt.SetLights(sc.Lights)
	return nil
}

// Trace a single frame into out. Pixels outside the request mask keep their
// contents. If the frame fails, out is left untouched.
func (rt *RayTracing) Trace(ctx context.Context, out *Frame, req TraceRequest) (Stats, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var stats Stats
	switch {
	case !rt.initialized:
		return stats, ErrNotInitialized
	case !rt.accelReady:
		return stats, ErrNoAccelerator
	case !out.valid():
		return stats, ErrInvalidFrameSize
	case !req.Camera.Valid():
		return stats, ErrInvalidCamera
	}

	start := time.Now()
	pixels := out.W * out.H
	if err := rt.buffers.growPrimary(pixels); err != nil {
		return stats, errors.Wrap(err, "tracer: could not allocate frame buffers")
	}

	shadowed := rt.shadowsEnabled && len(rt.input.lights) != 0
	if shadowed {
		if err := rt.buffers.growShadow(pixels, len(rt.input.lights)); err != nil {
			rt.logger.Warningf("could not allocate shadow buffers for %d lights; falling back to unshadowed shading: %v", len(rt.input.lights), err)
			shadowed = false
		}
	}

	f := &frame{
		dev:         rt.device,
		accelerator: rt.accelerator,
		buffers:     rt.buffers,
		input:       &rt.input,
		fallback:    &rt.defaultMaterial,
		w:           out.W,
		h:           out.H,
		proj:        newProjection(req.Camera, out.W, out.H),
		jitter:      req.Jitter,
		mask:        req.Mask,
		shadowed:    shadowed,
	}

	cb := rt.device.CommandBuffer()
	f.encode(cb)
	if err := cb.Commit(ctx); err != nil {
		return stats, err
	}
	timings, err := cb.Wait()
	stats.Stages = timings
	if err != nil {
		return stats, err
	}
	if err = f.advance(Idle); err != nil {
		return stats, err
	}

	f.store(out)

	stats.States = f.trail
	stats.Shadowed = shadowed
	if shadowed {
		stats.ShadowedLights = len(rt.input.lights)
	}
	stats.RenderTime = time.Since(start)
	return stats, nil
}
