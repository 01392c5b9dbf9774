package renderer

import (
	"github.com/achilleasa/tiletrace/config"
	"github.com/achilleasa/tiletrace/sampler"
)

type Options struct {
	// Frame dims.
	FrameW int
	FrameH int

	// Number of passes; 0 renders until all tiles converge.
	Passes int

	// Tile layout.
	Sampler sampler.Params

	// Per-pixel sample limits and the convergence threshold for the
	// variance of the mean pixel luminance.
	MinSamples        int
	MaxSamples        int
	VarianceThreshold float32

	// Passes between variance map refreshes.
	VarianceInterval int

	// Sub-pixel jitter.
	Jitter bool
	Seed   uint64

	Shadows    bool
	MaxBounces int

	// Tone mapping.
	Exposure   float32
	ToneMapper ToneMapper
	Gamma      float32
}

// Build renderer options from validated render settings.
func OptionsFromConfig(cfg config.Render) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}

	toneMapper, err := ToneMapperByName(cfg.ToneMapping.Operator, cfg.ToneMapping.WhitePoint)
	if err != nil {
		return Options{}, err
	}

	return Options{
		FrameW: cfg.Width,
		FrameH: cfg.Height,
		Passes: cfg.Passes,
		Sampler: sampler.Params{
			TileSize:         cfg.Sampler.TileSize,
			AdaptiveTileSize: cfg.Sampler.AdaptiveTileSize,
			Adaptive:         cfg.Sampler.Adaptive,
		},
		MinSamples:        cfg.Sampler.MinSamples,
		MaxSamples:        cfg.Sampler.MaxSamples,
		VarianceThreshold: cfg.Sampler.VarianceThreshold,
		VarianceInterval:  cfg.Sampler.VarianceInterval,
		Jitter:            cfg.Sampler.Jitter,
		Seed:              cfg.Sampler.Seed,
		Shadows:           cfg.Shadows,
		MaxBounces:        cfg.MaxBounces,
		Exposure:          cfg.ToneMapping.Exposure,
		ToneMapper:        toneMapper,
		Gamma:             cfg.ToneMapping.Gamma,
	}, nil
}
