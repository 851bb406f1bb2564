package flow

import (
	"image/color"
	"math"
)

// Light model for elevation shadows, in logical pixels.
const (
	LightHeight = 600
	LightRadius = 800
)

// Shadow alpha multipliers applied to the shadow colour's alpha.
const (
	ambientAlpha = 0.039
	spotAlpha    = 0.25
)

// ComputeShadowBounds returns bounds grown by the extent of the shadow a
// layer at the given elevation casts.
//
// The light is a disc of radius LightRadius*dpr at height LightHeight. A
// layer of width w at elevation l casts a shadow extending
// E = l * (r + w/2) / h past each side, and likewise vertically.
func ComputeShadowBounds(bounds Rect, elevation, dpr float64) Rect {
	tx := (LightRadius*dpr + bounds.Width()*0.5) / LightHeight
	ty := (LightRadius*dpr + bounds.Height()*0.5) / LightHeight
	return bounds.Outset(elevation*tx, elevation*ty)
}

// Shadow holds the derived parameters of an elevation shadow. Both the
// ambient and the spot part are Gaussian blurs of the occluder's outline.
type Shadow struct {
	AmbientColor color.NRGBA
	AmbientSigma float64 // device pixels

	SpotColor  color.NRGBA
	SpotSigma  float64 // device pixels
	SpotOffset Point   // device pixels
	SpotScale  float64
}

// ShadowParams derives shadow parameters from elevation and device pixel
// ratio. The result depends on nothing else.
func ShadowParams(c color.NRGBA, elevation, dpr float64) Shadow {
	if elevation <= 0 || dpr <= 0 {
		return Shadow{SpotScale: 1}
	}
	z := elevation * dpr
	lightZ := LightHeight * dpr
	lightR := LightRadius * dpr

	// Ratio of the occluder's height to its distance from the light;
	// clamped so a layer at or above the light stays finite.
	zRatio := math.Min(z/math.Max(lightZ-z, 1), 0.95)
	spotBlur := lightR * zRatio
	ambientBlur := z * 0.5

	a := float64(c.A)
	return Shadow{
		AmbientColor: color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(a * ambientAlpha))},
		AmbientSigma: ambientBlur * 0.5,
		SpotColor:    color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(a * spotAlpha))},
		SpotSigma:    spotBlur * 0.5,
		SpotOffset:   Point{X: 0, Y: z * zRatio},
		SpotScale:    1 + zRatio*0.05,
	}
}
