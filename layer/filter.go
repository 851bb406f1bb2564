package layer

import (
	"github.com/gogpu/flow"
	"github.com/gogpu/flow/rastercache"
)

// FilterLayer blurs its children. Once the same layer has rendered with
// the same filter for rastercache.MinimumRendersBeforeCachingFilterLayer
// consecutive frames its filtered output is cached. A frame without a
// preroll restarts the count.
type FilterLayer struct {
	ContainerLayer
	filter      *flow.ImageFilter
	childBounds flow.Rect
	renderCount int
	// lastFrame is the cache frame of the last cached preroll.
	lastFrame uint64
	counted   bool
}

// NewFilterLayer creates a filter layer.
func NewFilterLayer(filter *flow.ImageFilter, children ...Layer) *FilterLayer {
	return &FilterLayer{ContainerLayer: *NewContainerLayer(children...), filter: filter}
}

// Filter returns the layer's filter.
func (l *FilterLayer) Filter() *flow.ImageFilter { return l.filter }

// SetFilter replaces the filter. A different filter restarts the count of
// stable renders.
func (l *FilterLayer) SetFilter(f *flow.ImageFilter) {
	if !sameFilter(l.filter, f) {
		l.renderCount = 0
	}
	l.filter = f
}

func sameFilter(a, b *flow.ImageFilter) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// RenderCount returns how many cached prerolls the layer has been stable
// for, capped at the caching threshold. Prerolls without a cache do not
// count.
func (l *FilterLayer) RenderCount() int { return l.renderCount }

// Preroll implements Layer.
func (l *FilterLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	l.childBounds = l.PrerollChildren(ctx, m)
	bounds := l.childBounds
	if l.filter != nil && !bounds.IsEmpty() {
		bounds = l.filter.OutsetBounds(bounds.RoundOut()).RoundOut()
	}
	l.paintBounds = bounds

	if ctx.RasterCache == nil {
		return
	}
	frame := ctx.RasterCache.Frame()
	if l.counted && frame > l.lastFrame+1 {
		l.renderCount = 0
	}
	l.counted, l.lastFrame = true, frame
	if l.renderCount < rastercache.MinimumRendersBeforeCachingFilterLayer {
		l.renderCount++
		return
	}
	if !m.MapRect(l.paintBounds).Intersects(ctx.deviceCull()) {
		return
	}
	dpr := ctx.DevicePixelRatio
	ctx.RasterCache.PrepareLayer(l.ID(), l.paintBounds, m, func(c flow.Canvas) {
		l.paintFiltered(&PaintContext{Canvas: c, DevicePixelRatio: dpr})
	})
}

// Paint implements Layer.
func (l *FilterLayer) Paint(ctx *PaintContext) {
	if ctx.RasterCache != nil && ctx.RasterCache.DrawLayer(l.ID(), ctx.Canvas) {
		return
	}
	l.paintFiltered(ctx)
}

// paintFiltered paints the children into a save layer sized to their
// unfiltered bounds; the blur spreads past them on its own.
func (l *FilterLayer) paintFiltered(ctx *PaintContext) {
	c := ctx.Canvas
	b := l.childBounds
	count := c.SaveLayer(&b, &flow.Paint{Filter: l.filter})
	defer c.RestoreToCount(count)
	l.PaintChildren(ctx)
}
