package sceneupdate

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/flow"
)

// PaintLayer is content a Frame paints into its surface.
type PaintLayer interface {
	PaintBounds() flow.Rect
}

// Painter paints one layer onto a canvas. The layer tree supplies it so
// this package does not depend on layer types.
type Painter func(c flow.Canvas, l PaintLayer)

// Frame is an open shape scope whose contents may be painted into a
// retained surface.
type Frame struct {
	*Shape
	rrect       flow.RRect
	color       color.NRGBA
	id          flow.LayerID
	matrix      flow.Matrix
	paintBounds flow.Rect
	layers      []PaintLayer
}

// Matrix returns the context matrix the frame was opened under. Layers
// added from nested transforms must be mapped into this space.
func (f *Frame) Matrix() flow.Matrix { return f.matrix }

// AddPaintLayer queues l to be painted into the frame's surface.
func (f *Frame) AddPaintLayer(l PaintLayer) {
	f.layers = append(f.layers, l)
	f.paintBounds = f.paintBounds.Union(l.PaintBounds())
}

// Frame opens a frame for an elevated shape owned by id and runs fn inside
// it. If the producer retains a node for id at the current scale, that node
// is attached instead, fn is not called and Frame returns false.
//
// A zero id is never retained. When fn returns, the frame becomes a solid
// shape if no painted layer is visible inside rrect, otherwise a paint task
// is queued for a fresh surface.
func (c *Context) Frame(rrect flow.RRect, fill color.NRGBA, elevation float64, id flow.LayerID, fn func(f *Frame)) bool {
	if key := c.RetainedKey(id); key.IsRetained() && c.AttachRetained(key) {
		return false
	}

	f := &Frame{Shape: c.pushShape(), rrect: rrect, color: fill, id: id, matrix: c.matrix}
	f.node.Translation[2] = -elevation
	prev := c.frame
	c.frame = f
	defer func() {
		c.frame = prev
		f.finish()
		c.popEntity(f.Entity)
	}()
	if fn != nil {
		fn(f)
	}
	return true
}

func (f *Frame) finish() {
	c := f.ctx
	bounds := f.rrect.Rect
	f.node.Clip = &bounds
	f.shape.Shape = f.rrect
	f.shape.Color = f.color

	if f.paintBounds.IsEmpty() || !f.paintBounds.Intersects(bounds) {
		f.layers = nil
	}
	if len(f.layers) == 0 {
		return
	}

	sx, sy := c.scaleX, c.scaleY
	size := image.Pt(int(math.Ceil(bounds.Width()*sx)), int(math.Ceil(bounds.Height()*sy)))
	if size.X <= 0 || size.Y <= 0 {
		return
	}

	var s Surface
	if c.producer != nil {
		s = c.producer.ProduceSurface(size, c.RetainedKey(f.id), f.node)
	}
	if s == nil {
		f.degrade(size)
		return
	}
	f.shape.Texture = s
	c.tasks = append(c.tasks, PaintTask{
		Surface:    s,
		Left:       bounds.Left,
		Top:        bounds.Top,
		ScaleX:     sx,
		ScaleY:     sy,
		Background: f.color,
		Layers:     f.layers,
	})
}

// degrade handles a frame that got no surface: its layers are painted
// straight onto the fallback canvas, or the shape stays a solid colour.
func (f *Frame) degrade(size image.Point) {
	c := f.ctx
	flow.Logger().Warn("sceneupdate: no surface for frame",
		"layer", f.id, "width", size.X, "height", size.Y, "direct", c.fallback != nil)
	if c.fallback == nil {
		return
	}
	c.tasks = append(c.tasks, PaintTask{
		Canvas:     c.fallback,
		Matrix:     c.matrix,
		Clip:       f.rrect,
		Background: f.color,
		Layers:     f.layers,
	})
}

// PaintTask is one queued unit of paint work. Surface tasks paint into
// their own surface; direct tasks (Surface nil) paint onto Canvas under
// Matrix.
type PaintTask struct {
	Surface Surface

	Left, Top      float64
	ScaleX, ScaleY float64

	Canvas flow.Canvas
	Matrix flow.Matrix
	Clip   flow.RRect

	Background color.NRGBA
	Layers     []PaintLayer
}

func (t *PaintTask) paintSurface(paint Painter) {
	canvas := t.Surface.Canvas()
	canvas.RestoreToCount(1)
	count := canvas.Save()
	defer canvas.RestoreToCount(count)

	canvas.Clear(t.Background)
	canvas.Scale(t.ScaleX, t.ScaleY)
	canvas.Translate(-t.Left, -t.Top)
	for _, l := range t.Layers {
		paint(canvas, l)
	}
	canvas.Flush()
}

func (t *PaintTask) paintDirect(paint Painter) {
	canvas := t.Canvas
	count := canvas.Save()
	defer canvas.RestoreToCount(count)

	canvas.SetTransform(t.Matrix)
	canvas.ClipRRect(t.Clip, flow.ClipIntersect, true)
	canvas.DrawRRect(t.Clip, flow.Fill(t.Background))
	for _, l := range t.Layers {
		paint(canvas, l)
	}
}

// ExecutePaintTasks paints every queued task and returns the painted
// surfaces for submission. Surface tasks run on the worker pool when one is
// configured; all of them finish before this returns. Direct tasks run
// afterwards, in queue order, on the calling goroutine.
func (c *Context) ExecutePaintTasks(paint Painter) []Surface {
	tasks := c.tasks
	c.tasks = nil
	if len(tasks) == 0 || paint == nil {
		return nil
	}

	surfaces := make([]Surface, 0, len(tasks))
	work := make([]func(), 0, len(tasks))
	var direct []*PaintTask
	for i := range tasks {
		t := &tasks[i]
		if t.Surface == nil {
			direct = append(direct, t)
			continue
		}
		surfaces = append(surfaces, t.Surface)
		work = append(work, func() { t.paintSurface(paint) })
	}

	if c.pool != nil {
		c.pool.ExecuteAll(work)
	} else {
		for _, fn := range work {
			fn()
		}
	}
	for _, t := range direct {
		t.paintDirect(paint)
	}

	flow.Logger().Debug("sceneupdate: executed paint tasks",
		"surfaces", len(surfaces), "direct", len(direct))
	return surfaces
}

// SubmitSurfaces hands painted surfaces back to the producer.
func (c *Context) SubmitSurfaces(surfaces []Surface) {
	if c.producer == nil {
		return
	}
	for _, s := range surfaces {
		c.producer.SubmitSurface(s)
	}
}
