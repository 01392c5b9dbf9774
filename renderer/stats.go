package renderer

import "time"

// Accumulated time spent in a pipeline stage across all passes.
type StageStat struct {
	Name       string
	Calls      int
	RenderTime time.Duration
}

type FrameStats struct {
	// Number of completed passes and of traced samples across them. A pass
	// traces as many samples as the most sampled tile was assigned.
	Passes int
	Traces int

	// Tiles traced by the last pass and tiles that reached convergence.
	ActiveTiles    int
	ConvergedTiles int
	TotalTiles     int

	// Per-pixel sample counts.
	MinSamples     int
	MaxSamples     int
	AverageSamples float64

	// Max number of samples assigned to a tile by the sampler.
	MaxTileSamples int

	// Per-stage totals in pipeline order.
	Stages []StageStat

	// Total render time across all passes.
	RenderTime time.Duration
}

// Add the timing of a stage execution.
func (fs *FrameStats) addStage(name string, d time.Duration) {
	for i := range fs.Stages {
		if fs.Stages[i].Name == name {
			fs.Stages[i].Calls++
			fs.Stages[i].RenderTime += d
			return
		}
	}
	fs.Stages = append(fs.Stages, StageStat{Name: name, Calls: 1, RenderTime: d})
}
