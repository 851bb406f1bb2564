// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/clipstate"
)

// ImageSurface is a software flow.Canvas that renders to an *image.RGBA.
//
// Shapes are filled with golang.org/x/image/vector coverage masks; clips
// are kept as alpha masks so rounded and path clips are exact. Save layers
// render into an offscreen image that is blurred by the layer's filter and
// composited back through the enclosing clip on Restore.
//
// Example:
//
//	s := surface.NewImageSurface(800, 600)
//	defer s.Close()
//
//	s.Clear(color.White)
//	s.DrawOval(flow.MakeXYWH(300, 200, 200, 200), flow.Fill(red))
//	img := s.Snapshot()
type ImageSurface struct {
	img    *image.RGBA
	stack  *clipstate.Stack
	saves  []saveEntry
	target *image.RGBA
	// clip is nil when no clip has been applied since the last layer.
	clip *image.Alpha
	z    vector.Rasterizer

	presents int
	closed   bool
}

type saveEntry struct {
	restore func()
	clip    *image.Alpha
	target  *image.RGBA
	layer   bool
	filter  *flow.ImageFilter
	matrix  flow.Matrix
}

// NewImageSurface creates a surface with the given dimensions. Sizes below
// one pixel are clamped to one.
func NewImageSurface(width, height int) *ImageSurface {
	return NewImageSurfaceFromImage(image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1))))
}

// NewImageSurfaceFromImage creates a surface that renders directly into
// img.
func NewImageSurfaceFromImage(img *image.RGBA) *ImageSurface {
	s := &ImageSurface{}
	s.reset(img)
	return s
}

func (s *ImageSurface) reset(img *image.RGBA) {
	s.img = img
	s.target = img
	s.clip = nil
	s.saves = s.saves[:0]
	s.stack = clipstate.NewStack(clipstate.New(rectOf(img.Bounds()), flow.Identity()))
}

// Width returns the surface width.
func (s *ImageSurface) Width() int { return s.img.Bounds().Dx() }

// Height returns the surface height.
func (s *ImageSurface) Height() int { return s.img.Bounds().Dy() }

// Size returns the surface size in pixels.
func (s *ImageSurface) Size() image.Point { return s.img.Bounds().Size() }

// Canvas returns s.
func (s *ImageSurface) Canvas() flow.Canvas { return s }

// Descriptor returns the surface's storage description.
func (s *ImageSurface) Descriptor() Descriptor {
	return descriptorFor(s.Width(), s.Height())
}

// Image returns the backing image. This is a direct reference, not a copy.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

// State returns the live matrix and clip bounds.
func (s *ImageSurface) State() clipstate.MatrixClipState { return *s.stack.Top() }

// Resize replaces the backing image with a cleared one of the new size and
// resets the canvas state.
func (s *ImageSurface) Resize(width, height int) error {
	if s.closed {
		return ErrClosed
	}
	if width < 1 || height < 1 {
		return ErrInvalidSize
	}
	s.reset(image.NewRGBA(image.Rect(0, 0, width, height)))
	return nil
}

// Present counts a presented frame. A software surface has no swap chain;
// readers use Snapshot or Image.
func (s *ImageSurface) Present() error {
	if s.closed {
		return ErrClosed
	}
	s.presents++
	return nil
}

// Presents returns how many frames have been presented.
func (s *ImageSurface) Presents() int { return s.presents }

// Snapshot returns a copy of the current surface contents.
func (s *ImageSurface) Snapshot() *image.RGBA {
	if s.closed {
		return nil
	}
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// Close releases the backing image.
func (s *ImageSurface) Close() error {
	s.closed = true
	return nil
}

// Save implements flow.Canvas.
func (s *ImageSurface) Save() int {
	count := s.SaveCount()
	s.saves = append(s.saves, saveEntry{restore: s.stack.Save(), clip: s.clip, target: s.target})
	return count
}

// SaveLayer implements flow.Canvas. Only the paint's filter is used; the
// layer composites source-over through the clip in effect at SaveLayer.
func (s *ImageSurface) SaveLayer(bounds *flow.Rect, paint *flow.Paint) int {
	count := s.SaveCount()
	e := saveEntry{
		restore: s.stack.Save(),
		clip:    s.clip,
		target:  s.target,
		layer:   true,
		matrix:  s.stack.Top().Matrix(),
	}
	if paint != nil {
		e.filter = paint.Filter
	}

	top := s.stack.Top()
	cull := top.DeviceCullRect()
	if e.filter != nil {
		// Blur pulls in content from just outside the clip.
		cull = cull.Outset(filterOutset(e.filter, e.matrix))
		top.ResetDeviceCullRect(cull)
	}
	region := pixelRect(cull).Intersect(s.target.Bounds())
	if bounds != nil {
		region = region.Intersect(pixelRect(e.matrix.MapRect(*bounds).RoundOut()))
	}

	s.saves = append(s.saves, e)
	s.target = image.NewRGBA(region)
	s.clip = nil
	return count
}

func filterOutset(f *flow.ImageFilter, m flow.Matrix) (dx, dy float64) {
	sx, sy := deviceSigma(f, m)
	return 3 * sx, 3 * sy
}

// deviceSigma scales a filter's sigmas by the matrix's largest axis scale.
func deviceSigma(f *flow.ImageFilter, m flow.Matrix) (sx, sy float64) {
	scale := math.Max(math.Hypot(m[0], m[4]), math.Hypot(m[1], m[5]))
	return f.SigmaX * scale, f.SigmaY * scale
}

// Restore implements flow.Canvas. Unbalanced restores are ignored.
func (s *ImageSurface) Restore() {
	n := len(s.saves)
	if n == 0 {
		return
	}
	e := s.saves[n-1]
	s.saves = s.saves[:n-1]
	e.restore()

	if e.layer && !s.closed {
		layer := s.target
		if e.filter != nil {
			sx, sy := deviceSigma(e.filter, e.matrix)
			blurRGBA(layer, sx, sy)
		}
		r := layer.Bounds()
		draw.DrawMask(e.target, r, layer, r.Min, maskOrNil(e.clip), r.Min, draw.Over)
	}
	s.target = e.target
	s.clip = e.clip
}

// maskOrNil keeps a nil *image.Alpha from becoming a non-nil image.Image.
func maskOrNil(m *image.Alpha) image.Image {
	if m == nil {
		return nil
	}
	return m
}

// RestoreToCount implements flow.Canvas.
func (s *ImageSurface) RestoreToCount(count int) {
	for s.SaveCount() > max(count, 1) {
		s.Restore()
	}
}

// SaveCount implements flow.Canvas. A fresh surface has a count of 1.
func (s *ImageSurface) SaveCount() int { return len(s.saves) + 1 }

// Translate implements flow.Canvas.
func (s *ImageSurface) Translate(dx, dy float64) { s.stack.Top().Translate(dx, dy) }

// Scale implements flow.Canvas.
func (s *ImageSurface) Scale(sx, sy float64) { s.stack.Top().Scale(sx, sy) }

// Rotate implements flow.Canvas.
func (s *ImageSurface) Rotate(radians float64) { s.stack.Top().Rotate(radians) }

// Skew implements flow.Canvas.
func (s *ImageSurface) Skew(kx, ky float64) { s.stack.Top().Skew(kx, ky) }

// Transform implements flow.Canvas.
func (s *ImageSurface) Transform(m flow.Matrix) { s.stack.Top().Transform(m) }

// SetTransform implements flow.Canvas.
func (s *ImageSurface) SetTransform(m flow.Matrix) { s.stack.Top().SetTransform(m) }

// TotalMatrix implements flow.Canvas.
func (s *ImageSurface) TotalMatrix() flow.Matrix { return s.stack.Top().Matrix() }

// ClipRect implements flow.Canvas.
func (s *ImageSurface) ClipRect(r flow.Rect, op flow.ClipOp, antiAlias bool) {
	s.stack.Top().ClipRect(r, op, antiAlias)
	s.clipShape(flow.PathFromRect(r), op, antiAlias)
}

// ClipRRect implements flow.Canvas.
func (s *ImageSurface) ClipRRect(rr flow.RRect, op flow.ClipOp, antiAlias bool) {
	s.stack.Top().ClipRRect(rr, op, antiAlias)
	s.clipShape(flow.PathFromRRect(rr), op, antiAlias)
}

// ClipPath implements flow.Canvas.
func (s *ImageSurface) ClipPath(p *flow.Path, op flow.ClipOp, antiAlias bool) {
	if p == nil {
		return
	}
	s.stack.Top().ClipPath(p, op, antiAlias)
	s.clipShape(p, op, antiAlias)
}

// clipShape combines the coverage of the local path p with the clip mask.
// Masks are never modified in place, so saved entries stay valid.
func (s *ImageSurface) clipShape(p *flow.Path, op flow.ClipOp, antiAlias bool) {
	if s.closed {
		return
	}
	region := s.target.Bounds()
	cov := s.coverage(p.Transform(s.stack.Top().Matrix()), region, antiAlias)
	out := image.NewAlpha(region)
	for i, c := range cov.Pix {
		if op == flow.ClipDifference {
			c = 255 - c
		}
		if s.clip != nil {
			c = mul8(c, s.clip.Pix[i])
		}
		out.Pix[i] = c
	}
	s.clip = out
}

// Clear implements flow.Canvas. It replaces every pixel inside the clip.
func (s *ImageSurface) Clear(c color.Color) {
	if s.closed {
		return
	}
	r := pixelRect(s.stack.Top().DeviceCullRect()).Intersect(s.target.Bounds())
	if r.Empty() {
		return
	}
	src := color.RGBAModel.Convert(c).(color.RGBA)
	if s.clip == nil {
		draw.Draw(s.target, r, image.NewUniform(src), image.Point{}, draw.Src)
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m := s.clip.AlphaAt(x, y).A
			if m == 0 {
				continue
			}
			i := s.target.PixOffset(x, y)
			px := s.target.Pix[i : i+4 : i+4]
			px[0] = lerp8(px[0], src.R, m)
			px[1] = lerp8(px[1], src.G, m)
			px[2] = lerp8(px[2], src.B, m)
			px[3] = lerp8(px[3], src.A, m)
		}
	}
}

// DrawRect implements flow.Canvas.
func (s *ImageSurface) DrawRect(r flow.Rect, paint flow.Paint) {
	s.fill(flow.PathFromRect(r), paint)
}

// DrawOval implements flow.Canvas.
func (s *ImageSurface) DrawOval(r flow.Rect, paint flow.Paint) {
	s.fill(flow.PathFromOval(r), paint)
}

// DrawRRect implements flow.Canvas.
func (s *ImageSurface) DrawRRect(rr flow.RRect, paint flow.Paint) {
	s.fill(flow.PathFromRRect(rr), paint)
}

// DrawPath implements flow.Canvas.
func (s *ImageSurface) DrawPath(p *flow.Path, paint flow.Paint) {
	if p == nil {
		return
	}
	s.fill(p, paint)
}

// fill paints the local path p with a solid colour.
func (s *ImageSurface) fill(p *flow.Path, paint flow.Paint) {
	if s.closed || paint.Color.A == 0 || s.stack.Top().ContentCulled(p.Bounds()) {
		return
	}
	dev := p.Transform(s.stack.Top().Matrix())
	r := s.drawRegion(dev.Bounds())
	if r.Empty() {
		return
	}
	s.composite(s.coverage(dev, r, paint.AntiAlias), paint.Color)
}

// drawRegion returns the pixels a draw with the given device bounds may
// touch.
func (s *ImageSurface) drawRegion(dev flow.Rect) image.Rectangle {
	r := pixelRect(dev.RoundOut()).Intersect(s.target.Bounds())
	return r.Intersect(pixelRect(s.stack.Top().DeviceCullRect().RoundOut()))
}

// composite blends c through mask, further limited by the clip.
func (s *ImageSurface) composite(mask *image.Alpha, c color.NRGBA) {
	r := mask.Bounds()
	if s.clip != nil {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				i := mask.PixOffset(x, y)
				mask.Pix[i] = mul8(mask.Pix[i], s.clip.AlphaAt(x, y).A)
			}
		}
	}
	draw.DrawMask(s.target, r, image.NewUniform(c), image.Point{}, mask, r.Min, draw.Over)
}

// DrawShadow implements flow.Canvas. The ambient and spot parts are blurred
// coverage masks of p; an opaque occluder hides the shadow beneath it.
func (s *ImageSurface) DrawShadow(p *flow.Path, c color.NRGBA, elevation float64, transparentOccluder bool, dpr float64) {
	if s.closed || p == nil || p.IsEmpty() || elevation <= 0 {
		return
	}
	top := s.stack.Top()
	if top.ContentCulled(flow.ComputeShadowBounds(p.Bounds(), elevation, dpr)) {
		return
	}
	params := flow.ShadowParams(c, elevation, dpr)
	dev := p.Transform(top.Matrix())
	r := s.drawRegion(top.Matrix().MapRect(flow.ComputeShadowBounds(p.Bounds(), elevation, dpr)))
	if r.Empty() {
		return
	}

	var occluder *image.Alpha
	if !transparentOccluder {
		occluder = s.coverage(dev, r, true)
	}

	center := dev.Bounds().Center()
	spot := flow.Translate(center.X+params.SpotOffset.X, center.Y+params.SpotOffset.Y).
		Multiply(flow.Scale(params.SpotScale, params.SpotScale)).
		Multiply(flow.Translate(-center.X, -center.Y))

	for _, part := range []struct {
		path  *flow.Path
		sigma float64
		color color.NRGBA
	}{
		{dev, params.AmbientSigma, params.AmbientColor},
		{dev.Transform(spot), params.SpotSigma, params.SpotColor},
	} {
		if part.color.A == 0 {
			continue
		}
		mask := s.coverage(part.path, r, true)
		blurAlpha(mask, part.sigma, part.sigma)
		if occluder != nil {
			for i, o := range occluder.Pix {
				mask.Pix[i] = mul8(mask.Pix[i], 255-o)
			}
		}
		s.composite(mask, part.color)
	}
}

// DrawImage implements flow.Canvas. Integer translations blit directly;
// other affine matrices resample, bilinearly when paint asks for
// anti-aliasing. Perspective matrices are not supported and draw nothing.
func (s *ImageSurface) DrawImage(img image.Image, at flow.Point, paint *flow.Paint) {
	if s.closed || img == nil {
		return
	}
	sb := img.Bounds()
	local := flow.MakeXYWH(at.X, at.Y, float64(sb.Dx()), float64(sb.Dy()))
	top := s.stack.Top()
	if top.ContentCulled(local) {
		return
	}
	m := top.Matrix().Multiply(flow.Translate(at.X-float64(sb.Min.X), at.Y-float64(sb.Min.Y)))

	if tx, ty := m.Translation(); m.IsTranslate() && tx == math.Trunc(tx) && ty == math.Trunc(ty) {
		dr := sb.Add(image.Pt(int(tx), int(ty)))
		r := dr.Intersect(s.drawRegion(rectOf(dr)))
		if r.Empty() {
			return
		}
		sp := sb.Min.Add(r.Min.Sub(dr.Min))
		draw.DrawMask(s.target, r, img, sp, maskOrNil(s.clip), r.Min, draw.Over)
		return
	}

	aff, ok := m.Aff3()
	if !ok {
		flow.Logger().Debug("surface: DrawImage skipped under perspective")
		return
	}
	var interp draw.Interpolator = draw.NearestNeighbor
	if paint != nil && paint.AntiAlias {
		interp = draw.BiLinear
	}
	var opts *draw.Options
	if s.clip != nil {
		opts = &draw.Options{DstMask: s.clip}
	}
	interp.Transform(s.target, aff, img, sb, draw.Over, opts)
}

// Flush implements flow.Canvas. Software rendering has nothing pending.
func (s *ImageSurface) Flush() {}

var (
	_ Surface     = (*ImageSurface)(nil)
	_ flow.Canvas = (*ImageSurface)(nil)
)
