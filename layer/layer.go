// Package layer implements the layer tree: a retained description of a
// frame that is prerolled once, then painted onto a canvas or composed into
// a scene.
//
// Preroll is a single depth-first pass that computes paint bounds, the
// elevation of every elevated layer and raster cache admissions. Paint
// draws the prerolled tree; UpdateScene hands elevated shapes to a
// sceneupdate.Context instead of drawing them.
package layer

import (
	"errors"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/clipstate"
	"github.com/gogpu/flow/rastercache"
	"github.com/gogpu/flow/sceneupdate"
)

// UnlimitedFrameDepth disables elevation clamping.
const UnlimitedFrameDepth = -1

// ErrNotPrerolled is returned when a tree is painted before Preroll.
var ErrNotPrerolled = errors.New("layer: tree painted before preroll")

// Layer is a node of the layer tree.
type Layer interface {
	// Preroll computes the layer's paint bounds given the accumulated
	// matrix m. It is called once per frame, parents before children.
	Preroll(ctx *PrerollContext, m flow.Matrix)
	// Paint draws the layer. Preroll must have run this frame.
	Paint(ctx *PaintContext)
	// UpdateScene adds the layer to the scene under construction.
	UpdateScene(ctx *sceneupdate.Context)
	// PaintBounds returns the bounds computed by Preroll, in the parent's
	// coordinate space.
	PaintBounds() flow.Rect
	// NeedsPainting reports whether Paint would draw anything visible.
	NeedsPainting(ctx *PaintContext) bool
	// ID returns the layer's identity across frames.
	ID() flow.LayerID
}

// PrerollContext is the state threaded through Preroll.
type PrerollContext struct {
	// RasterCache receives cache admissions. Nil disables caching.
	RasterCache *rastercache.RasterCache
	// State tracks the matrix and device cull rect. Nil means unbounded.
	State *clipstate.Stack

	// TotalElevation is the elevation accumulated by the elevated
	// ancestors of the layer being prerolled.
	TotalElevation float64
	// FramePhysicalDepth caps TotalElevation. Negative values disable the
	// cap; see UnlimitedFrameDepth.
	FramePhysicalDepth float64
	DevicePixelRatio   float64
}

// save pushes the tracked state. The returned function restores it.
func (ctx *PrerollContext) save() (top *clipstate.MatrixClipState, restore func()) {
	if ctx.State == nil {
		return nil, func() {}
	}
	restore = ctx.State.Save()
	return ctx.State.Top(), restore
}

// deviceCull returns the device cull rect, or flow.GiantRect when
// untracked.
func (ctx *PrerollContext) deviceCull() flow.Rect {
	if ctx.State == nil {
		return flow.GiantRect
	}
	return ctx.State.Top().DeviceCullRect()
}

// PaintContext is the state threaded through Paint.
type PaintContext struct {
	Canvas flow.Canvas
	// RasterCache supplies cached images. Nil paints everything directly.
	RasterCache      *rastercache.RasterCache
	DevicePixelRatio float64
}

// stateCanvas is implemented by canvases that expose their clip state.
type stateCanvas interface {
	State() clipstate.MatrixClipState
}

// QuickReject reports whether content with local bounds r is certainly
// clipped out of the canvas. Canvases that do not expose their clip state
// never reject.
func (ctx *PaintContext) QuickReject(r flow.Rect) bool {
	sc, ok := ctx.Canvas.(stateCanvas)
	if !ok {
		return false
	}
	st := sc.State()
	return st.ContentCulled(r)
}

// base holds what every layer has.
type base struct {
	id                   flow.LayerID
	paintBounds          flow.Rect
	needsSystemComposite bool
}

func newBase() base {
	return base{id: flow.NewLayerID()}
}

// ID implements Layer.
func (b *base) ID() flow.LayerID { return b.id }

// PaintBounds implements Layer.
func (b *base) PaintBounds() flow.Rect { return b.paintBounds }

// SetPaintBounds overrides the bounds computed by Preroll.
func (b *base) SetPaintBounds(r flow.Rect) { b.paintBounds = r }

// NeedsPainting implements Layer.
func (b *base) NeedsPainting(ctx *PaintContext) bool {
	return !b.paintBounds.IsEmpty() && !ctx.QuickReject(b.paintBounds)
}

// NeedsSystemComposite reports whether the layer, or a layer below it,
// must be composed by UpdateScene rather than painted.
func (b *base) NeedsSystemComposite() bool { return b.needsSystemComposite }

// Release returns the layer's ID to the allocator. Cached state keyed by
// the old ID never matches again.
func (b *base) Release() { flow.ReleaseLayerID(b.id) }

type systemComposited interface {
	NeedsSystemComposite() bool
}

func needsSystemComposite(l Layer) bool {
	sc, ok := l.(systemComposited)
	return ok && sc.NeedsSystemComposite()
}

// paintLayer paints l if it is visible.
func paintLayer(ctx *PaintContext, l Layer) {
	if l.NeedsPainting(ctx) {
		l.Paint(ctx)
	}
}

// addToFrame queues l for painting into the innermost open frame, mapped
// from the current scene matrix into the frame's space. Outside any frame
// the layer is dropped from the scene.
func addToFrame(sctx *sceneupdate.Context, l Layer) {
	f := sctx.TopFrame()
	if f == nil {
		flow.Logger().Debug("layer: paint layer outside any frame", "layer", l.ID())
		return
	}
	if sctx.TopMatrix() == f.Matrix() {
		f.AddPaintLayer(l)
		return
	}
	inv, ok := f.Matrix().Invert()
	if !ok {
		return
	}
	f.AddPaintLayer(&mappedLayer{Layer: l, m: inv.Multiply(sctx.TopMatrix())})
}

// mappedLayer is a layer painted under an extra matrix.
type mappedLayer struct {
	Layer
	m flow.Matrix
}

func (l *mappedLayer) PaintBounds() flow.Rect { return l.m.MapRect(l.Layer.PaintBounds()) }

func (l *mappedLayer) NeedsPainting(ctx *PaintContext) bool {
	return !l.PaintBounds().IsEmpty() && !ctx.QuickReject(l.PaintBounds())
}

func (l *mappedLayer) Paint(ctx *PaintContext) {
	count := ctx.Canvas.Save()
	defer ctx.Canvas.RestoreToCount(count)
	ctx.Canvas.Transform(l.m)
	paintLayer(ctx, l.Layer)
}

// Painter returns a sceneupdate.Painter that paints tree layers with the
// given cache and device pixel ratio.
func Painter(cache *rastercache.RasterCache, dpr float64) sceneupdate.Painter {
	return func(c flow.Canvas, pl sceneupdate.PaintLayer) {
		l, ok := pl.(Layer)
		if !ok {
			return
		}
		paintLayer(&PaintContext{Canvas: c, RasterCache: cache, DevicePixelRatio: dpr}, l)
	}
}
