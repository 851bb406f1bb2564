package layer

import (
	"github.com/gogpu/flow"
	"github.com/gogpu/flow/sceneupdate"
)

// ContainerLayer groups child layers. Its paint bounds are the union of
// its children's.
type ContainerLayer struct {
	base
	children []Layer
}

// NewContainerLayer creates an empty container.
func NewContainerLayer(children ...Layer) *ContainerLayer {
	return &ContainerLayer{base: newBase(), children: children}
}

// Add appends a child.
func (c *ContainerLayer) Add(l Layer) { c.children = append(c.children, l) }

// Children returns the child layers. Callers must not modify the slice.
func (c *ContainerLayer) Children() []Layer { return c.children }

// Preroll implements Layer.
func (c *ContainerLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	c.paintBounds = c.PrerollChildren(ctx, m)
}

// PrerollChildren prerolls every child under m and returns the union of
// their paint bounds. It also recomputes whether the container needs
// system compositing.
func (c *ContainerLayer) PrerollChildren(ctx *PrerollContext, m flow.Matrix) flow.Rect {
	var bounds flow.Rect
	c.needsSystemComposite = false
	for _, child := range c.children {
		child.Preroll(ctx, m)
		if needsSystemComposite(child) {
			c.needsSystemComposite = true
		}
		bounds = bounds.Union(child.PaintBounds())
	}
	return bounds
}

// Paint implements Layer.
func (c *ContainerLayer) Paint(ctx *PaintContext) { c.PaintChildren(ctx) }

// PaintChildren paints the visible children in order.
func (c *ContainerLayer) PaintChildren(ctx *PaintContext) {
	for _, child := range c.children {
		paintLayer(ctx, child)
	}
}

// UpdateScene implements Layer.
func (c *ContainerLayer) UpdateScene(sctx *sceneupdate.Context) { c.UpdateSceneChildren(sctx) }

// UpdateSceneChildren composes children that need system compositing and
// queues the rest for painting into the enclosing frame.
func (c *ContainerLayer) UpdateSceneChildren(sctx *sceneupdate.Context) {
	for _, child := range c.children {
		if needsSystemComposite(child) {
			child.UpdateScene(sctx)
		} else {
			addToFrame(sctx, child)
		}
	}
}

// TransformLayer applies a matrix to its children.
type TransformLayer struct {
	ContainerLayer
	transform flow.Matrix
}

// NewTransformLayer creates a transform layer.
func NewTransformLayer(m flow.Matrix, children ...Layer) *TransformLayer {
	return &TransformLayer{ContainerLayer: *NewContainerLayer(children...), transform: m}
}

// Transform returns the layer's matrix.
func (l *TransformLayer) Transform() flow.Matrix { return l.transform }

// SetTransform replaces the layer's matrix.
func (l *TransformLayer) SetTransform(m flow.Matrix) { l.transform = m }

// Preroll implements Layer.
func (l *TransformLayer) Preroll(ctx *PrerollContext, m flow.Matrix) {
	top, restore := ctx.save()
	defer restore()
	if top != nil {
		top.Transform(l.transform)
	}
	l.paintBounds = l.transform.MapRect(l.PrerollChildren(ctx, m.Multiply(l.transform)))
}

// Paint implements Layer.
func (l *TransformLayer) Paint(ctx *PaintContext) {
	count := ctx.Canvas.Save()
	defer ctx.Canvas.RestoreToCount(count)
	ctx.Canvas.Transform(l.transform)
	l.PaintChildren(ctx)
}

// UpdateScene implements Layer.
func (l *TransformLayer) UpdateScene(sctx *sceneupdate.Context) {
	sctx.Transform(l.transform, func(*sceneupdate.Entity) {
		l.UpdateSceneChildren(sctx)
	})
}
