package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/log"
	"github.com/achilleasa/tiletrace/sampler"
	"github.com/achilleasa/tiletrace/tracer"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/achilleasa/tiletrace/types"
	"pgregory.net/rand"
)

var _ Renderer = (*Progressive)(nil)

// Progressive renders a scene over multiple passes. After every pass the
// per-tile variance steers the tile sampler towards the noisiest regions of
// the frame.
type Progressive struct {
	logger log.Logger
	opts   Options

	device  *device.Device
	tracer  *tracer.RayTracing
	sampler *sampler.TileSampler
	camera  scene.Camera
	rng     *rand.Rand

	mu     sync.Mutex
	closed bool
	frame  *tracer.Frame
	accum  *accumulator
	stats  FrameStats

	// Per-tile sample budget assigned by the sampler, samples traced so
	// far and samples still owed to each tile.
	budget  []uint32
	traced  []uint32
	pending []uint32
}

// Create a new progressive renderer for a scene.
func NewProgressive(sc *scene.Scene, dev *device.Device, opts Options, tracerOpts ...tracer.Option) (*Progressive, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if !sc.Camera.Valid() {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW <= 0 || opts.FrameH <= 0 {
		return nil, fmt.Errorf("renderer: invalid frame size %dx%d", opts.FrameW, opts.FrameH)
	}
	if opts.VarianceInterval <= 0 {
		opts.VarianceInterval = 1
	}
	if opts.ToneMapper == nil {
		opts.ToneMapper = Clamp
	}
	if opts.Gamma <= 0 {
		opts.Gamma = 1
	}
	if opts.Exposure <= 0 {
		opts.Exposure = 1
	}

	r := &Progressive{
		logger:  log.New("progressive renderer"),
		opts:    opts,
		device:  dev,
		tracer:  tracer.New(dev, tracerOpts...),
		sampler: sampler.New(),
		camera:  sc.Camera,
		rng:     rand.New(opts.Seed),
		frame:   tracer.NewFrame(opts.FrameW, opts.FrameH),
		accum:   newAccumulator(opts.FrameW, opts.FrameH),
	}

	if err := r.tracer.Init(); err != nil {
		return nil, err
	}
	if err := r.tracer.LoadScene(sc); err != nil {
		r.tracer.Release()
		return nil, err
	}
	r.tracer.SetShadowsEnabled(opts.Shadows)
	r.tracer.SetMaxBounces(opts.MaxBounces)

	if err := r.sampler.SetSize(opts.Sampler, opts.FrameW, opts.FrameH); err != nil {
		r.tracer.Release()
		return nil, err
	}
	tiles := r.sampler.NbTiles()
	r.stats.TotalTiles = tiles
	r.budget = make([]uint32, tiles)
	r.traced = make([]uint32, tiles)
	r.pending = make([]uint32, tiles)
	if err := r.refreshPending(); err != nil {
		r.tracer.Release()
		return nil, err
	}

	return r, nil
}

// Render passes until the configured pass count is reached or every tile
// has converged.
func (r *Progressive) Render(ctx context.Context) error {
	for r.opts.Passes == 0 || r.Stats().Passes < r.opts.Passes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		converged, err := r.RenderPass(ctx)
		if err != nil {
			return err
		}
		if converged {
			r.logger.Noticef("all tiles converged after %d passes", r.Stats().Passes)
			return nil
		}
	}
	return nil
}

// Trace and accumulate a single pass. Each tile receives as many samples as
// the sampler assigned to it since the previous pass. Returns true once
// every tile has converged.
func (r *Progressive) RenderPass(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrClosed
	}

	start := time.Now()
	r.stats.ActiveTiles = 0
	for _, n := range r.pending {
		if n > 0 {
			r.stats.ActiveTiles++
		}
	}

	for {
		mask, ok := r.nextMask()
		if !ok {
			break
		}
		if err := r.traceSample(ctx, mask); err != nil {
			return false, err
		}
	}
	r.stats.Passes++

	converged, err := r.updateSampling()
	if err != nil {
		return false, err
	}

	r.stats.RenderTime += time.Since(start)
	return converged, nil
}

// Build the mask of tiles that are still owed a sample in this pass. A nil
// mask covers every tile.
func (r *Progressive) nextMask() (*tracer.TileMask, bool) {
	var active []bool
	count := 0
	for index, n := range r.pending {
		if n == 0 {
			continue
		}
		if active == nil {
			active = make([]bool, len(r.pending))
		}
		active[index] = true
		count++
	}

	switch {
	case count == 0:
		return nil, false
	case count == len(r.pending):
		return nil, true
	}
	return &tracer.TileMask{TileSize: r.sampler.TileSize(), Cols: r.sampler.NbTilesX(), Active: active}, true
}

// Trace one jittered sample for the tiles covered by the mask.
func (r *Progressive) traceSample(ctx context.Context, mask *tracer.TileMask) error {
	req := tracer.TraceRequest{Camera: r.camera, Mask: mask}
	if r.opts.Jitter {
		req.Jitter = types.Vec2{r.rng.Float32() - 0.5, r.rng.Float32() - 0.5}
	}

	traceStats, err := r.tracer.Trace(ctx, r.frame, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		return err
	}
	for _, stage := range traceStats.Stages {
		r.stats.addStage(stage.Name, stage.Duration)
	}

	if err = r.accumulate(ctx, mask); err != nil {
		return err
	}

	for index := range r.pending {
		if mask == nil || mask.Active[index] {
			if r.pending[index] > 0 {
				r.pending[index]--
				r.traced[index]++
			}
		}
	}
	r.stats.Traces++
	return nil
}

// Add the traced frame to the per-pixel statistics.
func (r *Progressive) accumulate(ctx context.Context, mask *tracer.TileMask) error {
	cb := r.device.CommandBuffer()
	cb.Encode("accumulate", r.opts.FrameW, r.opts.FrameH, func(x, y int) {
		if mask.Covers(x, y) {
			r.accum.at(x, y).add(r.frame.At(x, y))
		}
	})
	if err := cb.Commit(ctx); err != nil {
		return err
	}
	timings, err := cb.Wait()
	for _, timing := range timings {
		r.stats.addStage(timing.Name, timing.Duration)
	}
	return err
}

// Fetch the per-tile sample budget and derive the samples owed to each tile.
func (r *Progressive) refreshPending() error {
	if err := r.sampler.UploadSamples(r.budget); err != nil {
		return err
	}
	for index, n := range r.budget {
		r.pending[index] = 0
		if n > r.traced[index] {
			r.pending[index] = n - r.traced[index]
		}
	}
	return nil
}

// Refresh the variance map when due and select the tiles for the next pass.
func (r *Progressive) updateSampling() (bool, error) {
	cols, rows := r.sampler.NbTilesX(), r.sampler.NbTilesY()

	if r.stats.Passes%r.opts.VarianceInterval == 0 {
		variance := r.accum.tileVariance(r.sampler.TileSize(), cols, rows, r.opts.MinSamples, r.opts.MaxSamples, r.opts.VarianceThreshold)
		if err := r.sampler.GrabVarianceMap(cols, rows, variance); err != nil {
			return false, err
		}

		r.stats.ConvergedTiles = 0
		for _, v := range variance {
			if v == 0 {
				r.stats.ConvergedTiles++
			}
		}
		r.logger.Debugf("pass %d: %d of %d tiles converged", r.stats.Passes, r.stats.ConvergedTiles, len(variance))
		if r.stats.ConvergedTiles == len(variance) {
			r.updateSampleStats()
			return true, nil
		}
	}

	if _, err := r.sampler.SelectTiles(r.opts.Sampler.Adaptive); err != nil {
		return false, err
	}
	if err := r.refreshPending(); err != nil {
		return false, err
	}
	r.updateSampleStats()
	return false, nil
}

func (r *Progressive) updateSampleStats() {
	var total int
	r.stats.MinSamples, r.stats.MaxSamples = -1, 0
	for i := range r.accum.pixels {
		n := r.accum.pixels[i].samples
		total += n
		r.stats.MaxSamples = max(r.stats.MaxSamples, n)
		if r.stats.MinSamples < 0 || n < r.stats.MinSamples {
			r.stats.MinSamples = n
		}
	}
	r.stats.AverageSamples = float64(total) / float64(len(r.accum.pixels))
	r.stats.MaxTileSamples = r.sampler.MaxTileSamples()
}

// Resolve the accumulated samples into a tone-mapped image.
func (r *Progressive) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, r.opts.FrameW, r.opts.FrameH))
	for y := 0; y < r.opts.FrameH; y++ {
		for x := 0; x < r.opts.FrameW; x++ {
			img.SetRGBA(x, y, r.resolve(r.accum.at(x, y).mean()))
		}
	}
	return img
}

func (r *Progressive) resolve(c types.Vec4) color.RGBA {
	alpha := min(max(c[3], 0), 1)

	// image.RGBA stores alpha-premultiplied values.
	rgb := gammaCorrect(r.opts.ToneMapper(c.Vec3().Mul(r.opts.Exposure)), r.opts.Gamma).Clamp(0, 1).Mul(alpha)
	return color.RGBA{
		R: uint8(rgb[0]*255 + 0.5),
		G: uint8(rgb[1]*255 + 0.5),
		B: uint8(rgb[2]*255 + 0.5),
		A: uint8(alpha*255 + 0.5),
	}
}

// Get the render statistics.
func (r *Progressive) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.stats
	stats.Stages = append([]StageStat(nil), r.stats.Stages...)
	return stats
}

// Release the tracer. Calling Close multiple times is safe.
func (r *Progressive) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.tracer.Release()
}
