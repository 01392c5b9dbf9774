package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/achilleasa/tiletrace/asset"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Supported tone mapping operators.
const (
	ToneMapNone       = "none"
	ToneMapReinhard   = "reinhard"
	ToneMapACES       = "aces"
	ToneMapUncharted2 = "uncharted2"
)

// Sampler configures the tile layout and adaptive sampling.
type Sampler struct {
	TileSize         int  `yaml:"tile_size"`
	AdaptiveTileSize int  `yaml:"adaptive_tile_size"`
	Adaptive         bool `yaml:"adaptive"`

	// Per-pixel sample limits. Tiles whose pixels reached MaxSamples, or
	// whose variance fell below VarianceThreshold after MinSamples, are
	// treated as converged.
	MinSamples        int     `yaml:"min_samples"`
	MaxSamples        int     `yaml:"max_samples"`
	VarianceThreshold float32 `yaml:"variance_threshold"`

	// Number of passes between variance map refreshes.
	VarianceInterval int `yaml:"variance_interval"`

	// Randomize the sub-pixel sample position of each pass.
	Jitter bool   `yaml:"jitter"`
	Seed   uint64 `yaml:"seed"`
}

// Device configures the compute device.
type Device struct {
	// Number of workers; 0 selects the number of CPUs.
	Workers int `yaml:"workers"`

	// Max bytes allocated by device buffers; 0 disables the limit.
	MaxBufferBytes int64 `yaml:"max_buffer_bytes"`
}

// ToneMapping configures the conversion of accumulated radiance to display values.
type ToneMapping struct {
	Operator   string  `yaml:"operator"`
	Exposure   float32 `yaml:"exposure"`
	WhitePoint float32 `yaml:"white_point"`
	Gamma      float32 `yaml:"gamma"`
}

// Render holds all settings for a render session.
type Render struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Number of passes to render; 0 renders until every tile converges.
	Passes int `yaml:"passes"`

	Shadows    bool `yaml:"shadows"`
	MaxBounces int  `yaml:"max_bounces"`

	Device      Device      `yaml:"device"`
	Sampler     Sampler     `yaml:"sampler"`
	ToneMapping ToneMapping `yaml:"tone_mapping"`
}

// Get the default render settings.
func Default() Render {
	return Render{
		Width:      512,
		Height:     512,
		Passes:     64,
		Shadows:    true,
		MaxBounces: 1,
		Sampler: Sampler{
			TileSize:          32,
			AdaptiveTileSize:  16,
			Adaptive:          true,
			MinSamples:        16,
			MaxSamples:        1024,
			VarianceThreshold: 0.01,
			VarianceInterval:  4,
			Jitter:            true,
			Seed:              1,
		},
		ToneMapping: ToneMapping{
			Operator:   ToneMapReinhard,
			Exposure:   1.0,
			WhitePoint: 4.0,
			Gamma:      2.2,
		},
	}
}

// Load settings from a local or remote YAML file. Fields missing from the
// file keep their default values.
func Load(path string) (Render, error) {
	res, err := asset.NewResource(path, nil)
	if err != nil {
		return Render{}, errors.Wrap(err, "config: could not open config")
	}
	defer res.Close()

	cfg, err := Decode(res)
	if err != nil {
		return Render{}, errors.Wrapf(err, "config: %s", res.Path())
	}
	return cfg, nil
}

// Decode settings from a YAML stream on top of the defaults.
func Decode(r io.Reader) (Render, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Render{}, errors.Wrap(err, "could not decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return Render{}, err
	}
	return cfg, nil
}

// Check the settings for consistency.
func (r *Render) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(r.Width > 0 && r.Height > 0, "invalid frame size %dx%d", r.Width, r.Height)
	check(r.Passes >= 0, "passes must not be negative")
	check(r.MaxBounces >= 1, "max_bounces must be at least 1")
	check(r.Device.Workers >= 0, "device.workers must not be negative")
	check(r.Device.MaxBufferBytes >= 0, "device.max_buffer_bytes must not be negative")
	check(r.Sampler.TileSize > 0, "sampler.tile_size must be positive")
	check(r.Sampler.AdaptiveTileSize > 0, "sampler.adaptive_tile_size must be positive")
	check(r.Sampler.MinSamples > 0, "sampler.min_samples must be positive")
	check(r.Sampler.MaxSamples >= r.Sampler.MinSamples, "sampler.max_samples must not be less than sampler.min_samples")
	check(r.Sampler.VarianceThreshold >= 0, "sampler.variance_threshold must not be negative")
	check(r.Sampler.VarianceInterval > 0, "sampler.variance_interval must be positive")
	check(r.ToneMapping.Exposure > 0, "tone_mapping.exposure must be positive")
	check(r.ToneMapping.Gamma > 0, "tone_mapping.gamma must be positive")
	check(r.ToneMapping.WhitePoint > 0, "tone_mapping.white_point must be positive")

	switch r.ToneMapping.Operator {
	case ToneMapNone, ToneMapReinhard, ToneMapACES, ToneMapUncharted2:
	default:
		problems = append(problems, fmt.Sprintf("unsupported tone mapping operator %q", r.ToneMapping.Operator))
	}

	if len(problems) != 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
