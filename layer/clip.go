package layer

import (
	"github.com/gogpu/flow"
	"github.com/gogpu/flow/clipstate"
	"github.com/gogpu/flow/sceneupdate"
)

// Clip selects how a layer clips its children.
type Clip uint8

const (
	// ClipNone does not clip.
	ClipNone Clip = iota
	// ClipHardEdge clips without anti-aliasing.
	ClipHardEdge
	// ClipAntiAlias clips with anti-aliased edges.
	ClipAntiAlias
	// ClipAntiAliasWithSaveLayer also isolates the children in a save
	// layer, which avoids seams where anti-aliased children meet the clip.
	ClipAntiAliasWithSaveLayer
)

// String returns the name of the clip behaviour.
func (c Clip) String() string {
	switch c {
	case ClipNone:
		return "None"
	case ClipHardEdge:
		return "HardEdge"
	case ClipAntiAlias:
		return "AntiAlias"
	case ClipAntiAliasWithSaveLayer:
		return "AntiAliasWithSaveLayer"
	default:
		return "Unknown"
	}
}

// AntiAlias reports whether the clip edge is anti-aliased.
func (c Clip) AntiAlias() bool { return c >= ClipAntiAlias }

// UsesSaveLayer reports whether clipped children are isolated in a layer.
func (c Clip) UsesSaveLayer() bool { return c == ClipAntiAliasWithSaveLayer }

// clipShape is the geometry a clip layer applies.
type clipShape interface {
	bounds() flow.Rect
	track(s *clipstate.MatrixClipState, antiAlias bool)
	apply(c flow.Canvas, antiAlias bool)
}

type rectShape flow.Rect

func (r rectShape) bounds() flow.Rect { return flow.Rect(r) }
func (r rectShape) track(s *clipstate.MatrixClipState, aa bool) {
	s.ClipRect(flow.Rect(r), flow.ClipIntersect, aa)
}
func (r rectShape) apply(c flow.Canvas, aa bool) { c.ClipRect(flow.Rect(r), flow.ClipIntersect, aa) }

type rrectShape flow.RRect

func (r rrectShape) bounds() flow.Rect { return r.Rect }
func (r rrectShape) track(s *clipstate.MatrixClipState, aa bool) {
	s.ClipRRect(flow.RRect(r), flow.ClipIntersect, aa)
}
func (r rrectShape) apply(c flow.Canvas, aa bool) { c.ClipRRect(flow.RRect(r), flow.ClipIntersect, aa) }

type pathShape struct{ p *flow.Path }

func (s pathShape) bounds() flow.Rect { return s.p.Bounds() }
func (s pathShape) track(st *clipstate.MatrixClipState, aa bool) {
	st.ClipPath(s.p, flow.ClipIntersect, aa)
}
func (s pathShape) apply(c flow.Canvas, aa bool) { c.ClipPath(s.p, flow.ClipIntersect, aa) }

// clipLayer is the shared implementation of the clip layers.
type clipLayer struct {
	ContainerLayer
	shape    clipShape
	behavior Clip
}

func newClipLayer(shape clipShape, behavior Clip, children []Layer) clipLayer {
	return clipLayer{ContainerLayer: *NewContainerLayer(children...), shape: shape, behavior: behavior}
}

// Behavior returns the clip behaviour.
func (l *clipLayer) Behavior() Clip { return l.behavior }

// Preroll implements Layer. Children are prerolled against the narrowed
// cull rect and the paint bounds are limited to the clip.
func (l *clipLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	top, restore := ctx.save()
	defer restore()
	if top != nil && l.behavior != ClipNone {
		l.shape.track(top, l.behavior.AntiAlias())
	}

	bounds := l.PrerollChildren(ctx, m)
	if l.behavior != ClipNone {
		bounds = bounds.Intersect(l.shape.bounds())
	}
	l.paintBounds = bounds
}

// Paint implements Layer.
func (l *clipLayer) Paint(ctx *PaintContext) {
	count := ctx.Canvas.Save()
	defer ctx.Canvas.RestoreToCount(count)

	if l.behavior != ClipNone {
		l.shape.apply(ctx.Canvas, l.behavior.AntiAlias())
	}
	if l.behavior.UsesSaveLayer() {
		b := l.paintBounds
		ctx.Canvas.SaveLayer(&b, nil)
	}
	l.PaintChildren(ctx)
}

// UpdateScene implements Layer.
func (l *clipLayer) UpdateScene(sctx *sceneupdate.Context) {
	if l.behavior == ClipNone {
		l.UpdateSceneChildren(sctx)
		return
	}
	sctx.Clip(l.shape.bounds(), func(*sceneupdate.Entity) {
		l.UpdateSceneChildren(sctx)
	})
}

// ClipRectLayer clips its children to a rectangle.
type ClipRectLayer struct{ clipLayer }

// NewClipRectLayer creates a rectangular clip layer.
func NewClipRectLayer(r flow.Rect, behavior Clip, children ...Layer) *ClipRectLayer {
	return &ClipRectLayer{newClipLayer(rectShape(r), behavior, children)}
}

// ClipRect returns the clip rectangle.
func (l *ClipRectLayer) ClipRect() flow.Rect { return l.shape.bounds() }

// ClipRRectLayer clips its children to a rounded rectangle.
type ClipRRectLayer struct{ clipLayer }

// NewClipRRectLayer creates a rounded-rectangle clip layer.
func NewClipRRectLayer(rr flow.RRect, behavior Clip, children ...Layer) *ClipRRectLayer {
	return &ClipRRectLayer{newClipLayer(rrectShape(rr), behavior, children)}
}

// ClipRRect returns the clip shape.
func (l *ClipRRectLayer) ClipRRect() flow.RRect { return flow.RRect(l.shape.(rrectShape)) }

// ClipPathLayer clips its children to a path.
type ClipPathLayer struct{ clipLayer }

// NewClipPathLayer creates a path clip layer.
func NewClipPathLayer(p *flow.Path, behavior Clip, children ...Layer) *ClipPathLayer {
	return &ClipPathLayer{newClipLayer(pathShape{p}, behavior, children)}
}

// ClipPath returns the clip path.
func (l *ClipPathLayer) ClipPath() *flow.Path { return l.shape.(pathShape).p }
