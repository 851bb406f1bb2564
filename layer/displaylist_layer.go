package layer

import (
	"github.com/gogpu/flow"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/rastercache"
	"github.com/gogpu/flow/sceneupdate"
)

// DisplayListLayer draws a recorded display list at an offset. Lists that
// stay on screen long enough are served from the raster cache.
type DisplayListLayer struct {
	base
	offset     flow.Point
	dl         *displaylist.DisplayList
	isComplex  bool
	willChange bool
}

// NewDisplayListLayer creates a layer drawing dl at offset. isComplex marks
// content worth caching regardless of its op count; willChange keeps it
// out of the cache.
func NewDisplayListLayer(offset flow.Point, dl *displaylist.DisplayList, isComplex, willChange bool) *DisplayListLayer {
	return &DisplayListLayer{base: newBase(), offset: offset, dl: dl, isComplex: isComplex, willChange: willChange}
}

// DisplayList returns the layer's content.
func (l *DisplayListLayer) DisplayList() *displaylist.DisplayList { return l.dl }

// Offset returns where the content is drawn.
func (l *DisplayListLayer) Offset() flow.Point { return l.offset }

// Preroll implements Layer.
func (l *DisplayListLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	if l.dl == nil {
		l.paintBounds = flow.Rect{}
		return
	}
	if ctx.RasterCache != nil {
		ctm := snap(m.Multiply(flow.Translate(l.offset.X, l.offset.Y)))
		ctx.RasterCache.Prepare(l.dl, l.isComplex, l.willChange, ctm)
	}
	l.paintBounds = l.dl.Bounds().Offset(l.offset.X, l.offset.Y)
}

// Paint implements Layer.
func (l *DisplayListLayer) Paint(ctx *PaintContext) {
	c := ctx.Canvas
	count := c.Save()
	defer c.RestoreToCount(count)

	c.Translate(l.offset.X, l.offset.Y)
	c.SetTransform(snap(c.TotalMatrix()))

	if ctx.RasterCache != nil && ctx.RasterCache.Draw(l.dl, c) {
		return
	}
	l.dl.Playback(c)
}

// UpdateScene implements Layer. Display lists are painted into the
// enclosing frame.
func (l *DisplayListLayer) UpdateScene(sctx *sceneupdate.Context) { addToFrame(sctx, l) }

// snap moves a scale+translate matrix onto whole device pixels so cached
// images and direct draws land on the same pixels.
func snap(m flow.Matrix) flow.Matrix {
	if s, ok := rastercache.ComputeIntegralTransCTM(m); ok {
		return s
	}
	return m
}
