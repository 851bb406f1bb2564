// Package sceneupdate composes elevated layers into a retained scene of
// entity and shape nodes. Each Frame that has content asks a
// SurfaceProducer for a surface and queues a paint task; ExecutePaintTasks
// then paints every queued surface and hands them back for submission.
//
// Scopes (Entity, Transform, Shape, Clip, Frame) are callback combinators:
// the node is pushed before the callback runs and popped when it returns,
// on every exit path.
package sceneupdate

import (
	"math"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/internal/parallel"
)

// Context tracks the scene being built for one frame.
//
// Context is not safe for concurrent use; ExecutePaintTasks may paint
// surfaces in parallel internally.
type Context struct {
	session  *Session
	producer SurfaceProducer
	pool     *parallel.WorkerPool
	fallback flow.Canvas

	top    *Entity
	frame  *Frame
	scaleX float64
	scaleY float64
	matrix flow.Matrix

	tasks []PaintTask
}

// Option configures a Context.
type Option func(*Context)

// WithWorkerPool paints surfaces in parallel on p.
func WithWorkerPool(p *parallel.WorkerPool) Option {
	return func(c *Context) { c.pool = p }
}

// WithFallbackCanvas sets the canvas frames paint into directly when the
// producer cannot supply a surface.
func WithFallbackCanvas(canvas flow.Canvas) Option {
	return func(c *Context) { c.fallback = canvas }
}

// NewContext creates a context that builds into session and allocates
// surfaces from producer. A nil producer paints every frame as a solid
// shape or, with a fallback canvas, directly.
func NewContext(session *Session, producer SurfaceProducer, opts ...Option) *Context {
	if session == nil {
		session = NewSession()
	}
	c := &Context{
		session:  session,
		producer: producer,
		scaleX:   1,
		scaleY:   1,
		matrix:   flow.Identity(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the context builds into.
func (c *Context) Session() *Session { return c.session }

// ScaleX returns the accumulated horizontal scale of the enclosing
// transforms.
func (c *Context) ScaleX() float64 { return c.scaleX }

// ScaleY returns the accumulated vertical scale of the enclosing
// transforms.
func (c *Context) ScaleY() float64 { return c.scaleY }

// TopMatrix returns the product of the enclosing transforms.
func (c *Context) TopMatrix() flow.Matrix { return c.matrix }

// TopFrame returns the innermost open frame, or nil outside any frame.
func (c *Context) TopFrame() *Frame { return c.frame }

// TopEntity returns the innermost open entity, or nil at the root.
func (c *Context) TopEntity() *Entity { return c.top }

// PendingPaintTasks returns the number of queued paint tasks.
func (c *Context) PendingPaintTasks() int { return len(c.tasks) }

// HasRetainedNode reports whether the producer keeps a node under key.
func (c *Context) HasRetainedNode(key RetainedKey) bool {
	return c.producer != nil && key.IsRetained() && c.producer.HasRetainedNode(key)
}

// GetRetainedNode returns the node kept under key, or nil.
func (c *Context) GetRetainedNode(key RetainedKey) *EntityNode {
	if !c.HasRetainedNode(key) {
		return nil
	}
	return c.producer.GetRetainedNode(key)
}

// RetainedKey returns the key content owned by id gets at the current
// scale.
func (c *Context) RetainedKey(id flow.LayerID) RetainedKey {
	return RetainedKey{ID: id, ScaleX: c.scaleX, ScaleY: c.scaleY}
}

// AttachRetained adds the node kept under key to the innermost entity. It
// reports false, and does nothing, when no node is kept.
func (c *Context) AttachRetained(key RetainedKey) bool {
	node := c.GetRetainedNode(key)
	if node == nil {
		return false
	}
	c.parentNode().AddChild(node)
	flow.Logger().Debug("sceneupdate: reused retained node", "key", key)
	return true
}

func (c *Context) parentNode() *EntityNode {
	if c.top != nil {
		return c.top.node
	}
	return c.session.Root()
}

// Entity is an open scope owning one EntityNode.
type Entity struct {
	ctx    *Context
	parent *Entity
	node   *EntityNode
}

// Node returns the scope's entity node.
func (e *Entity) Node() *EntityNode { return e.node }

func (c *Context) pushEntity() *Entity {
	e := &Entity{ctx: c, parent: c.top, node: c.session.NewEntityNode()}
	c.top = e
	return e
}

// popEntity closes e and attaches its node to the enclosing entity.
func (c *Context) popEntity(e *Entity) {
	c.top = e.parent
	c.parentNode().AddChild(e.node)
}

// Entity opens a plain entity scope around fn.
func (c *Context) Entity(fn func(e *Entity)) {
	e := c.pushEntity()
	defer c.popEntity(e)
	fn(e)
}

// Transform opens an entity carrying m around fn. The accumulated scale
// and matrix include m while fn runs.
func (c *Context) Transform(m flow.Matrix, fn func(e *Entity)) {
	e := c.pushEntity()
	prevX, prevY, prevM := c.scaleX, c.scaleY, c.matrix
	defer func() {
		c.scaleX, c.scaleY, c.matrix = prevX, prevY, prevM
		c.popEntity(e)
	}()

	if !m.IsIdentity() {
		sx, sy := math.Hypot(m[0], m[4]), math.Hypot(m[1], m[5])
		// A degenerate axis cannot be decomposed; the node stays identity.
		if sx != 0 && sy != 0 {
			e.node.Translation = [3]float64{m[3], m[7], m[11]}
			e.node.Scale = [2]float64{sx, sy}
			e.node.Rotation = math.Atan2(m[4], m[0])
			c.scaleX *= sx
			c.scaleY *= sy
		}
		c.matrix = c.matrix.Multiply(m)
	}
	fn(e)
}

// TransformScale opens an entity that only scales.
func (c *Context) TransformScale(sx, sy float64, fn func(e *Entity)) {
	e := c.pushEntity()
	prevX, prevY, prevM := c.scaleX, c.scaleY, c.matrix
	defer func() {
		c.scaleX, c.scaleY, c.matrix = prevX, prevY, prevM
		c.popEntity(e)
	}()

	e.node.Scale = [2]float64{sx, sy}
	c.scaleX *= sx
	c.scaleY *= sy
	c.matrix = c.matrix.Multiply(flow.Scale(sx, sy))
	fn(e)
}

// Shape is an open entity scope that also owns a ShapeNode.
type Shape struct {
	*Entity
	shape *ShapeNode
}

// ShapeNode returns the scope's shape node.
func (s *Shape) ShapeNode() *ShapeNode { return s.shape }

func (c *Context) pushShape() *Shape {
	s := &Shape{Entity: c.pushEntity(), shape: c.session.NewShapeNode()}
	s.node.AddChild(s.shape)
	return s
}

// Shape opens an entity holding a shape node around fn.
func (c *Context) Shape(fn func(s *Shape)) {
	s := c.pushShape()
	defer c.popEntity(s.Entity)
	fn(s)
}

// Clip opens an entity whose children are clipped to r.
func (c *Context) Clip(r flow.Rect, fn func(e *Entity)) {
	e := c.pushEntity()
	defer c.popEntity(e)
	clip := r
	e.node.Clip = &clip
	fn(e)
}
