package renderer

import (
	"github.com/achilleasa/tiletrace/types"
)

// Rec. 709 luminance weights.
var luminanceWeights = types.Vec3{0.2126, 0.7152, 0.0722}

// Sampling statistics for a single pixel.
type pixelStats struct {
	colorAccum types.Vec4
	lumAccum   float64
	lumSqAccum float64
	samples    int
}

// Add a new sample.
func (ps *pixelStats) add(c types.Vec4) {
	ps.colorAccum = ps.colorAccum.Add(c)
	lum := float64(c.Vec3().Dot(luminanceWeights))
	ps.lumAccum += lum
	ps.lumSqAccum += lum * lum
	ps.samples++
}

// Get the mean sample value.
func (ps *pixelStats) mean() types.Vec4 {
	if ps.samples == 0 {
		return types.Vec4{}
	}
	return ps.colorAccum.Mul(1.0 / float32(ps.samples))
}

// Get the variance of the mean luminance estimate.
func (ps *pixelStats) varianceOfMean() float64 {
	if ps.samples < 2 {
		return 0
	}
	n := float64(ps.samples)
	mean := ps.lumAccum / n
	variance := (ps.lumSqAccum/n - mean*mean) * n / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return variance / n
}

// The per-pixel statistics for the whole frame.
type accumulator struct {
	w, h   int
	pixels []pixelStats
}

func newAccumulator(w, h int) *accumulator {
	return &accumulator{w: w, h: h, pixels: make([]pixelStats, w*h)}
}

func (a *accumulator) at(x, y int) *pixelStats {
	return &a.pixels[y*a.w+x]
}

// Estimate the variance of every tile. Tiles whose pixels all reached
// maxSamples, or whose variance fell below threshold once every pixel has
// minSamples, report zero variance.
func (a *accumulator) tileVariance(tileSize, cols, rows, minSamples, maxSamples int, threshold float32) []float32 {
	out := make([]float32, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			out[row*cols+col] = a.estimateTile(col*tileSize, row*tileSize, tileSize, minSamples, maxSamples, threshold)
		}
	}
	return out
}

func (a *accumulator) estimateTile(x0, y0, tileSize, minSamples, maxSamples int, threshold float32) float32 {
	x1, y1 := min(x0+tileSize, a.w), min(y0+tileSize, a.h)

	var (
		sum         float64
		count       int
		saturated   = true
		minObserved = maxSamples
	)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			ps := a.at(x, y)
			sum += ps.varianceOfMean()
			count++
			saturated = saturated && ps.samples >= maxSamples
			minObserved = min(minObserved, ps.samples)
		}
	}

	if saturated {
		return 0
	}
	variance := float32(sum / float64(count))
	if minObserved < minSamples {
		// Not enough samples for a reliable estimate.
		return max(variance, threshold, minVariance)
	}
	if variance < threshold {
		return 0
	}
	return variance
}

// The variance reported for tiles that still need samples but have not
// produced any measurable noise yet.
const minVariance float32 = 1e-6
