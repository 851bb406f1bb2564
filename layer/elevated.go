package layer

import (
	"image/color"
	"math"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/sceneupdate"
)

// ElevatedContainerLayer is a container raised above its parent. During
// preroll its elevation is added to the context's total elevation for its
// subtree, clamped so the total never exceeds the frame's physical depth.
// Clamping is silent: layers beyond the depth stack at the maximum.
type ElevatedContainerLayer struct {
	ContainerLayer
	elevation float64

	parentElevation  float64
	clampedElevation float64
}

// NewElevatedContainerLayer creates a container at the given elevation.
func NewElevatedContainerLayer(elevation float64, children ...Layer) *ElevatedContainerLayer {
	return &ElevatedContainerLayer{ContainerLayer: *NewContainerLayer(children...), elevation: elevation}
}

// Elevation returns the requested elevation.
func (l *ElevatedContainerLayer) Elevation() float64 { return l.elevation }

// SetElevation changes the requested elevation.
func (l *ElevatedContainerLayer) SetElevation(e float64) { l.elevation = e }

// ParentElevation returns the total elevation of the layer's ancestors at
// the last preroll.
func (l *ElevatedContainerLayer) ParentElevation() float64 { return l.parentElevation }

// ClampedElevation returns the elevation actually applied at the last
// preroll.
func (l *ElevatedContainerLayer) ClampedElevation() float64 { return l.clampedElevation }

// TotalElevation returns the layer's absolute elevation at the last
// preroll.
func (l *ElevatedContainerLayer) TotalElevation() float64 {
	return l.parentElevation + l.clampedElevation
}

// enterElevation pushes the layer's elevation onto ctx and returns the
// function that pops it.
func (l *ElevatedContainerLayer) enterElevation(ctx *PrerollContext) (exit func()) {
	l.parentElevation = ctx.TotalElevation
	l.clampedElevation = l.elevation
	if ctx.FramePhysicalDepth >= 0 {
		l.clampedElevation = math.Min(l.elevation, ctx.FramePhysicalDepth-l.parentElevation)
	}
	ctx.TotalElevation += l.clampedElevation
	return func() { ctx.TotalElevation = l.parentElevation }
}

// Preroll implements Layer.
func (l *ElevatedContainerLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	defer l.enterElevation(ctx)()
	l.ContainerLayer.Preroll(ctx, m)
}

// PhysicalShapeLayer is an elevated shape painted in software: a shadow
// for its elevation, a filled outline, then its children clipped to the
// outline.
type PhysicalShapeLayer struct {
	ElevatedContainerLayer
	path        *flow.Path
	color       color.NRGBA
	shadowColor color.NRGBA
	behavior    Clip

	isRect     bool
	frameRRect flow.RRect
}

// NewPhysicalShapeLayer creates a physical shape layer.
func NewPhysicalShapeLayer(path *flow.Path, fill, shadow color.NRGBA, elevation float64, behavior Clip, children ...Layer) *PhysicalShapeLayer {
	if path == nil {
		path = flow.NewPath()
	}
	return &PhysicalShapeLayer{
		ElevatedContainerLayer: *NewElevatedContainerLayer(elevation, children...),
		path:                   path,
		color:                  fill,
		shadowColor:            shadow,
		behavior:               behavior,
	}
}

// Path returns the outline.
func (l *PhysicalShapeLayer) Path() *flow.Path { return l.path }

// IsRect reports whether the outline was a plain rectangle at the last
// preroll.
func (l *PhysicalShapeLayer) IsRect() bool { return l.isRect }

// FrameRRect returns the rounded rectangle standing in for the outline
// when the shape is composed into a scene. Outlines that are neither rects,
// rounded rects nor ovals use their bounds.
func (l *PhysicalShapeLayer) FrameRRect() flow.RRect { return l.frameRRect }

// Preroll implements Layer.
func (l *PhysicalShapeLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	func() {
		defer l.enterElevation(ctx)()
		l.PrerollChildren(ctx, m)
	}()

	bounds := l.path.Bounds()
	if e := l.clampedElevation; e != 0 {
		// The whole shadow region is filled and children are clipped to
		// it, so their bounds are not joined.
		bounds = flow.ComputeShadowBounds(bounds, e, ctx.DevicePixelRatio)
	}
	l.paintBounds = bounds

	l.isRect = false
	if r, ok := l.path.IsRect(); ok {
		l.isRect = true
		l.frameRRect = flow.RRectFromRect(r)
	} else if rr, ok := l.path.IsRRect(); ok {
		l.frameRRect = rr
	} else if r, ok := l.path.IsOval(); ok {
		l.frameRRect = flow.RRectOval(r)
	} else {
		l.frameRRect = flow.RRectFromRect(l.path.Bounds())
	}
}

// Paint implements Layer.
func (l *PhysicalShapeLayer) Paint(ctx *PaintContext) {
	c := ctx.Canvas
	if e := l.clampedElevation; e != 0 {
		c.DrawShadow(l.path, l.shadowColor, e, l.color.A != 0xff, ctx.DevicePixelRatio)
	}

	paint := flow.Fill(l.color)
	if !l.behavior.UsesSaveLayer() {
		c.DrawPath(l.path, paint)
	}

	count := c.Save()
	defer c.RestoreToCount(count)
	switch l.behavior {
	case ClipHardEdge:
		c.ClipPath(l.path, flow.ClipIntersect, false)
	case ClipAntiAlias:
		c.ClipPath(l.path, flow.ClipIntersect, true)
	case ClipAntiAliasWithSaveLayer:
		c.ClipPath(l.path, flow.ClipIntersect, true)
		b := l.paintBounds
		c.SaveLayer(&b, nil)
		// Filling the clip avoids the seam an anti-aliased path fill
		// leaves under the layer.
		c.DrawRect(l.paintBounds, paint)
	}
	l.PaintChildren(ctx)
}

// UpdateScene implements Layer. The shape becomes a scene frame and its
// children are painted into the frame's surface.
func (l *PhysicalShapeLayer) UpdateScene(sctx *sceneupdate.Context) {
	sctx.Frame(l.frameRRect, l.color, l.clampedElevation, l.ID(), func(*sceneupdate.Frame) {
		l.UpdateSceneChildren(sctx)
	})
}

// SystemCompositedLayer is an elevated rounded rectangle composed by the
// platform: UpdateScene hands its shape and colour to the scene as a frame
// and paints only its children. It takes part in elevation exactly like
// the software layers.
type SystemCompositedLayer struct {
	ElevatedContainerLayer
	rrect flow.RRect
	color color.NRGBA
}

// NewSystemCompositedLayer creates a platform-composited layer.
func NewSystemCompositedLayer(rrect flow.RRect, fill color.NRGBA, elevation float64, children ...Layer) *SystemCompositedLayer {
	return &SystemCompositedLayer{
		ElevatedContainerLayer: *NewElevatedContainerLayer(elevation, children...),
		rrect:                  rrect,
		color:                  fill,
	}
}

// RRect returns the layer's shape.
func (l *SystemCompositedLayer) RRect() flow.RRect { return l.rrect }

// Color returns the layer's fill.
func (l *SystemCompositedLayer) Color() color.NRGBA { return l.color }

// Preroll implements Layer.
func (l *SystemCompositedLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	l.ElevatedContainerLayer.Preroll(ctx, m)
	l.paintBounds = l.paintBounds.Union(l.rrect.Rect)
	l.needsSystemComposite = true
}

// Paint implements Layer. Without a scene the shape is painted directly.
func (l *SystemCompositedLayer) Paint(ctx *PaintContext) {
	c := ctx.Canvas
	count := c.Save()
	defer c.RestoreToCount(count)
	c.ClipRRect(l.rrect, flow.ClipIntersect, true)
	c.DrawRRect(l.rrect, flow.Fill(l.color))
	l.PaintChildren(ctx)
}

// UpdateScene implements Layer.
func (l *SystemCompositedLayer) UpdateScene(sctx *sceneupdate.Context) {
	sctx.Frame(l.rrect, l.color, l.clampedElevation, l.ID(), func(*sceneupdate.Frame) {
		l.UpdateSceneChildren(sctx)
	})
}
