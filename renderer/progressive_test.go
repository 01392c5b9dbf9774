package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/achilleasa/tiletrace/accel"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/sampler"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/achilleasa/tiletrace/types"
)

func floorScene() *scene.Scene {
	sc := &scene.Scene{
		Materials: []scene.Material{scene.DiffuseMaterial(types.Vec3{1, 0, 0})},
		Lights:    []scene.Light{scene.DirectionalLight(types.Vec3{0, -1, 0}, types.Vec3{1, 1, 1}, 0.5)},
		Camera:    scene.NewCamera(types.Vec3{0, 2, 0}, types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1}, 60),
	}
	sc.AddTriangle(types.Vec3{-1, 0, 1}, types.Vec3{1, 0, 1}, types.Vec3{0, 0, -1}, 0)
	return sc
}

func testOptions(adaptive bool) Options {
	return Options{
		FrameW:            8,
		FrameH:            8,
		Sampler:           sampler.Params{TileSize: 8, AdaptiveTileSize: 4, Adaptive: adaptive},
		MinSamples:        2,
		MaxSamples:        100,
		VarianceThreshold: 0.01,
		VarianceInterval:  1,
		Shadows:           true,
		MaxBounces:        1,
		Exposure:          1,
		ToneMapper:        Clamp,
		Gamma:             1,
	}
}

func TestProgressiveConverges(t *testing.T) {
	type spec struct {
		adaptive      bool
		expTotalTiles int
	}

	specs := []spec{
		{false, 1},
		{true, 4},
	}

	for specIndex, s := range specs {
		r, err := NewProgressive(floorScene(), device.NewCPU(2), testOptions(s.adaptive))
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		if err = r.Render(context.Background()); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		stats := r.Stats()
		if stats.Passes != 2 {
			t.Errorf("[spec %d] expected noise-free scene to converge after 2 passes; got %d", specIndex, stats.Passes)
		}
		if stats.TotalTiles != s.expTotalTiles || stats.ConvergedTiles != s.expTotalTiles {
			t.Errorf("[spec %d] expected %d converged tiles; got %d of %d", specIndex, s.expTotalTiles, stats.ConvergedTiles, stats.TotalTiles)
		}
		if stats.MaxSamples != stats.MaxTileSamples {
			t.Errorf("[spec %d] expected traced samples to match the tile budget %d; got %d", specIndex, stats.MaxTileSamples, stats.MaxSamples)
		}
		if !s.adaptive && (stats.MinSamples != 2 || stats.MaxSamples != 2) {
			t.Errorf("[spec %d] expected 2 samples per pixel; got min %d, max %d", specIndex, stats.MinSamples, stats.MaxSamples)
		}

		img := r.Frame()
		if got := img.RGBAAt(4, 4); got.R != 140 || got.G != 0 || got.B != 0 || got.A != 255 {
			t.Errorf("[spec %d] expected center pixel to be lit red; got %v", specIndex, got)
		}
		if got := img.RGBAAt(0, 0); got.G == 0 {
			t.Errorf("[spec %d] expected corner pixel to show the background; got %v", specIndex, got)
		}

		r.Close()
		r.Close()
	}
}

func TestProgressivePassLimit(t *testing.T) {
	opts := testOptions(true)
	opts.Passes = 3
	opts.MinSamples = 50
	opts.Jitter = true
	opts.Seed = 7

	r, err := NewProgressive(floorScene(), device.NewCPU(2), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err = r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}

	stats := r.Stats()
	if stats.Passes != 3 {
		t.Fatalf("expected 3 passes; got %d", stats.Passes)
	}
	if stats.ConvergedTiles != 0 {
		t.Fatalf("expected no converged tiles before min samples; got %d", stats.ConvergedTiles)
	}

	var accumulate *StageStat
	for i := range stats.Stages {
		if stats.Stages[i].Name == "accumulate" {
			accumulate = &stats.Stages[i]
		}
	}
	if accumulate == nil || accumulate.Calls != stats.Traces {
		t.Fatalf("expected the accumulate stage to run once per traced sample; got %+v", accumulate)
	}
	if stats.Traces <= stats.Passes {
		t.Fatalf("expected the adaptive budget to trace more than one sample per pass; got %d", stats.Traces)
	}
	if stats.MaxTileSamples <= 1 {
		t.Fatalf("expected the sampler to assign samples to tiles; got max %d", stats.MaxTileSamples)
	}
}

func TestProgressiveErrors(t *testing.T) {
	if _, err := NewProgressive(nil, device.NewCPU(1), testOptions(false)); !errors.Is(err, ErrSceneNotDefined) {
		t.Fatalf("expected ErrSceneNotDefined; got %v", err)
	}

	sc := floorScene()
	sc.Camera = scene.Camera{}
	if _, err := NewProgressive(sc, device.NewCPU(1), testOptions(false)); !errors.Is(err, ErrCameraNotDefined) {
		t.Fatalf("expected ErrCameraNotDefined; got %v", err)
	}

	opts := testOptions(false)
	opts.FrameW = 0
	if _, err := NewProgressive(floorScene(), device.NewCPU(1), opts); err == nil {
		t.Fatal("expected an error for an invalid frame size")
	}

	sc = floorScene()
	sc.Indices = nil
	if _, err := NewProgressive(sc, device.NewCPU(1), testOptions(false)); !errors.Is(err, accel.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry; got %v", err)
	}
}

func TestProgressiveInterrupted(t *testing.T) {
	r, err := NewProgressive(floorScene(), device.NewCPU(1), testOptions(false))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err = r.Render(ctx); !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrInterrupted; got %v", err)
	}

	r.Close()
	if _, err = r.RenderPass(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
}

func TestProgressiveTracesTileBudget(t *testing.T) {
	type spec struct {
		adaptive bool
	}

	specs := []spec{
		{false},
		{true},
	}

	for specIndex, s := range specs {
		opts := testOptions(s.adaptive)
		opts.Passes = 3
		opts.MinSamples = 1000
		opts.MaxSamples = 1000
		opts.Jitter = true
		opts.Seed = 3

		r, err := NewProgressive(floorScene(), device.NewCPU(2), opts)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		if err = r.Render(context.Background()); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		budget := make([]uint32, r.sampler.NbTiles())
		if err = r.sampler.UploadSamples(budget); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		tileSize, cols := r.sampler.TileSize(), r.sampler.NbTilesX()
		for y := 0; y < opts.FrameH; y++ {
			for x := 0; x < opts.FrameW; x++ {
				tile := (y/tileSize)*cols + x/tileSize
				got := uint32(r.accum.at(x, y).samples)
				if got != r.traced[tile] {
					t.Fatalf("[spec %d] expected pixel (%d, %d) to hold the %d samples traced for tile %d; got %d", specIndex, x, y, r.traced[tile], tile, got)
				}
				// Samples drawn after the last pass are owed to the next one.
				if got+r.pending[tile] != budget[tile] {
					t.Fatalf("[spec %d] expected traced (%d) + pending (%d) samples to match the budget %d of tile %d", specIndex, got, r.pending[tile], budget[tile], tile)
				}
			}
		}

		stats := r.Stats()
		if !s.adaptive && stats.MaxSamples != 3 {
			t.Errorf("[spec %d] expected one sample per pass; got %d", specIndex, stats.MaxSamples)
		}
		if s.adaptive && stats.MaxSamples <= 3 {
			t.Errorf("[spec %d] expected the tile budget to exceed one sample per pass; got %d", specIndex, stats.MaxSamples)
		}
		r.Close()
	}
}
