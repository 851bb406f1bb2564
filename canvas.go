package flow

import (
	"image"
	"image/color"
)

// ClipOp selects how a clip shape combines with the current clip.
type ClipOp uint8

const (
	// ClipIntersect keeps only the area inside the shape.
	ClipIntersect ClipOp = iota
	// ClipDifference removes the area inside the shape.
	ClipDifference
)

// String returns the name of the clip op.
func (op ClipOp) String() string {
	switch op {
	case ClipIntersect:
		return "Intersect"
	case ClipDifference:
		return "Difference"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (op ClipOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// ImageFilter is a Gaussian blur applied to a layer's output.
type ImageFilter struct {
	SigmaX, SigmaY float64
}

// Blur returns a blur filter with the given standard deviations.
func Blur(sigmaX, sigmaY float64) *ImageFilter {
	return &ImageFilter{SigmaX: sigmaX, SigmaY: sigmaY}
}

// OutsetBounds returns the area affected by filtering content inside r.
// Three standard deviations cover all visible bleed.
func (f *ImageFilter) OutsetBounds(r Rect) Rect {
	if f == nil {
		return r
	}
	return r.Outset(3*f.SigmaX, 3*f.SigmaY)
}

// Paint describes how shapes are filled and how save layers composite.
type Paint struct {
	Color     color.NRGBA
	AntiAlias bool
	// Filter, when set on a SaveLayer paint, is applied to the layer before
	// it is composited back.
	Filter *ImageFilter
}

// Fill returns an anti-aliased fill paint of the given colour.
func Fill(c color.NRGBA) Paint {
	return Paint{Color: c, AntiAlias: true}
}

// Canvas is the 2D drawing capability layers paint into. It keeps a
// save/restore stack of matrix and clip state; transform calls right-multiply
// the current matrix.
//
// Implementations: surface.ImageSurface rasterizes in software and
// displaylist.Recorder records calls for later playback.
type Canvas interface {
	// Save pushes the matrix and clip and returns the save count before
	// the push.
	Save() int
	// SaveLayer is Save plus an offscreen layer composited with paint on
	// Restore. bounds limits the layer when non-nil.
	SaveLayer(bounds *Rect, paint *Paint) int
	Restore()
	RestoreToCount(count int)
	SaveCount() int

	Translate(dx, dy float64)
	Scale(sx, sy float64)
	Rotate(radians float64)
	Skew(kx, ky float64)
	Transform(m Matrix)
	SetTransform(m Matrix)
	TotalMatrix() Matrix

	ClipRect(r Rect, op ClipOp, antiAlias bool)
	ClipRRect(rr RRect, op ClipOp, antiAlias bool)
	ClipPath(p *Path, op ClipOp, antiAlias bool)

	Clear(c color.Color)
	DrawRect(r Rect, paint Paint)
	DrawOval(r Rect, paint Paint)
	DrawRRect(rr RRect, paint Paint)
	DrawPath(p *Path, paint Paint)
	// DrawShadow draws the shadow cast by p at the given elevation.
	DrawShadow(p *Path, c color.NRGBA, elevation float64, transparentOccluder bool, dpr float64)
	// DrawImage draws img with its top-left corner at the given point in
	// the current local space.
	DrawImage(img image.Image, at Point, paint *Paint)

	Flush()
}
