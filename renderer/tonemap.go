package renderer

import (
	"fmt"

	"github.com/achilleasa/tiletrace/config"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
)

// A ToneMapper maps exposed linear radiance to [0, 1].
type ToneMapper func(c types.Vec3) types.Vec3

// Clamp radiance without any curve.
func Clamp(c types.Vec3) types.Vec3 {
	return c.Clamp(0, 1)
}

// Extended Reinhard operator; values at the white point map to 1.
func Reinhard(whitePoint float32) ToneMapper {
	invWhiteSq := 1.0 / (whitePoint * whitePoint)
	return func(c types.Vec3) types.Vec3 {
		for i := range c {
			c[i] = c[i] * (1 + c[i]*invWhiteSq) / (1 + c[i])
		}
		return c.Clamp(0, 1)
	}
}

// Fitted ACES filmic curve.
func ACES(c types.Vec3) types.Vec3 {
	for i, x := range c {
		c[i] = (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
	}
	return c.Clamp(0, 1)
}

// Uncharted 2 filmic curve normalized by the white point.
func Uncharted2(whitePoint float32) ToneMapper {
	const exposureBias = 2.0
	whiteScale := 1.0 / uncharted2Curve(whitePoint)
	return func(c types.Vec3) types.Vec3 {
		for i := range c {
			c[i] = uncharted2Curve(c[i]*exposureBias) * whiteScale
		}
		return c.Clamp(0, 1)
	}
}

func uncharted2Curve(x float32) float32 {
	const (
		a = 0.15
		b = 0.50
		c = 0.10
		d = 0.20
		e = 0.02
		f = 0.30
	)
	return ((x*(a*x+c*b) + d*e) / (x*(a*x+b) + d*f)) - e/f
}

// Get a tone mapper by its config name.
func ToneMapperByName(name string, whitePoint float32) (ToneMapper, error) {
	switch name {
	case config.ToneMapNone:
		return Clamp, nil
	case config.ToneMapReinhard:
		return Reinhard(whitePoint), nil
	case config.ToneMapACES:
		return ACES, nil
	case config.ToneMapUncharted2:
		return Uncharted2(whitePoint), nil
	}
	return nil, fmt.Errorf("renderer: unsupported tone mapper %q", name)
}

// Apply gamma correction.
func gammaCorrect(c types.Vec3, gamma float32) types.Vec3 {
	invGamma := 1.0 / gamma
	for i := range c {
		c[i] = math32.Pow(math32.Max(c[i], 0), invGamma)
	}
	return c
}
