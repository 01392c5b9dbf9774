package renderer

import (
	"math"
	"testing"

	"github.com/achilleasa/tiletrace/types"
)

func TestPixelStats(t *testing.T) {
	var ps pixelStats
	if ps.varianceOfMean() != 0 || ps.mean() != (types.Vec4{}) {
		t.Fatal("expected empty stats to report zero mean and variance")
	}

	ps.add(types.Vec4{1, 1, 1, 1})
	ps.add(types.Vec4{0, 0, 0, 1})

	if exp := (types.Vec4{0.5, 0.5, 0.5, 1}); ps.mean() != exp {
		t.Fatalf("expected mean %v; got %v", exp, ps.mean())
	}

	// Sample variance of {1, 0} is 0.5; variance of the mean is 0.25.
	if got := ps.varianceOfMean(); math.Abs(got-0.25) > 1e-6 {
		t.Fatalf("expected variance of the mean to be 0.25; got %f", got)
	}
}

func TestTileVariance(t *testing.T) {
	type spec struct {
		samples    []types.Vec4
		minSamples int
		maxSamples int
		threshold  float32
		exp        float32
	}

	white, black := types.Vec4{1, 1, 1, 1}, types.Vec4{0, 0, 0, 1}

	specs := []spec{
		// Too few samples: never reported as converged
		{[]types.Vec4{white}, 2, 10, 0.01, 0.01},
		{[]types.Vec4{white}, 2, 10, 0, minVariance},
		// Constant samples converge once min samples are reached
		{[]types.Vec4{white, white}, 2, 10, 0.01, 0},
		// Noisy samples keep their variance
		{[]types.Vec4{white, black}, 2, 10, 0.01, 0.25},
		// Below the threshold
		{[]types.Vec4{white, black}, 2, 10, 0.5, 0},
		// Saturated pixels are converged regardless of noise
		{[]types.Vec4{white, black}, 1, 2, 0, 0},
	}

	for specIndex, s := range specs {
		acc := newAccumulator(2, 2)
		for i := range acc.pixels {
			for _, sample := range s.samples {
				acc.pixels[i].add(sample)
			}
		}

		got := acc.tileVariance(2, 1, 1, s.minSamples, s.maxSamples, s.threshold)
		if math.Abs(float64(got[0]-s.exp)) > 1e-6 {
			t.Errorf("[spec %d] expected tile variance %f; got %f", specIndex, s.exp, got[0])
		}
	}
}

func TestTileVarianceClipsEdgeTiles(t *testing.T) {
	acc := newAccumulator(3, 1)
	acc.at(2, 0).add(types.Vec4{1, 1, 1, 1})
	acc.at(2, 0).add(types.Vec4{0, 0, 0, 1})

	got := acc.tileVariance(2, 2, 1, 0, 10, 0)
	if got[0] != 0 || math.Abs(float64(got[1]-0.25)) > 1e-6 {
		t.Fatalf("expected tile variance [0 0.25]; got %v", got)
	}
}
