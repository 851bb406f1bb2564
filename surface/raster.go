// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/path"

	"github.com/gogpu/flow"
)

// Errors.
var (
	// ErrClosed is returned by operations on a closed surface.
	ErrClosed = errors.New("surface: closed")

	// ErrInvalidSize is returned for dimensions below one pixel.
	ErrInvalidSize = errors.New("surface: invalid size")
)

// pixelLimit bounds converted coordinates so GiantRect-sized rects stay
// within int range.
const pixelLimit = 1 << 30

// pixelRect converts an integral rect to pixel coordinates. Non-finite
// rects convert to the empty rectangle.
func pixelRect(r flow.Rect) image.Rectangle {
	if !r.IsFinite() || r.IsEmpty() {
		return image.Rectangle{}
	}
	clamp := func(v float64) int {
		return int(math.Max(-pixelLimit, math.Min(pixelLimit, v)))
	}
	return image.Rect(clamp(r.Left), clamp(r.Top), clamp(r.Right), clamp(r.Bottom))
}

func rectOf(r image.Rectangle) flow.Rect {
	return flow.MakeLTRB(float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y))
}

// coverage rasterizes the device-space path dev into an alpha mask with
// bounds r. Without anti-aliasing, coverage is thresholded at one half.
func (s *ImageSurface) coverage(dev *flow.Path, r image.Rectangle, antiAlias bool) *image.Alpha {
	mask := image.NewAlpha(r)
	if r.Empty() || dev.IsEmpty() {
		return mask
	}

	z := &s.z
	z.Reset(r.Dx(), r.Dy())
	z.DrawOp = draw.Src
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	pt := func(p flow.Point) (float32, float32) {
		return float32(p.X - ox), float32(p.Y - oy)
	}

	open := false
	dev.Walk(func(cmd path.Command, pts []flow.Point) {
		switch cmd {
		case path.CmdMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(pts[0]))
			open = true
		case path.CmdLineTo:
			z.LineTo(pt(pts[0]))
		case path.CmdQuadTo:
			bx, by := pt(pts[0])
			cx, cy := pt(pts[1])
			z.QuadTo(bx, by, cx, cy)
		case path.CmdCubeTo:
			bx, by := pt(pts[0])
			cx, cy := pt(pts[1])
			dx, dy := pt(pts[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		case path.CmdClose:
			z.ClosePath()
			open = false
		}
	})
	if open {
		z.ClosePath()
	}
	z.Draw(mask, r, image.Opaque, image.Point{})

	if !antiAlias {
		for i, a := range mask.Pix {
			if a >= 128 {
				mask.Pix[i] = 255
			} else {
				mask.Pix[i] = 0
			}
		}
	}
	return mask
}

// mul8 multiplies two 8-bit coverages.
func mul8(a, b uint8) uint8 {
	return uint8((uint32(a)*uint32(b) + 127) / 255) //nolint:gosec // G115: result <= 255
}

// lerp8 moves a toward b by t/255.
func lerp8(a, b, t uint8) uint8 {
	return uint8((uint32(a)*(255-uint32(t)) + uint32(b)*uint32(t) + 127) / 255) //nolint:gosec // G115: result <= 255
}
