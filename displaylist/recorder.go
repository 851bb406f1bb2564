package displaylist

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/clipstate"
)

// Recorder is a flow.Canvas that records calls into a DisplayList.
//
// It tracks matrix and clip the same way a rasterizing canvas would, so the
// finished list knows the bounds of everything it draws. Draws that fall
// entirely outside the clip are still recorded but do not grow the bounds.
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	stack *clipstate.Stack
	ops   []Op
	pool  *ResourcePool

	// saves has one entry per open Save or SaveLayer.
	saves []saveEntry
	// acc accumulates device bounds of draws since the innermost open layer.
	acc flow.Rect
}

type saveEntry struct {
	restore func()
	layer   bool
	// For layers: the bounds accumulated outside the layer, the layer's
	// optional bounds and filter, and the matrix at SaveLayer time.
	outer  flow.Rect
	bounds *flow.Rect
	filter *flow.ImageFilter
	matrix flow.Matrix
}

// NewRecorder creates a recorder whose clip starts at cull. An empty cull
// means unbounded.
func NewRecorder(cull flow.Rect) *Recorder {
	if cull.IsEmpty() {
		cull = flow.GiantRect
	}
	return &Recorder{
		stack: clipstate.NewStack(clipstate.New(cull, flow.Identity())),
		ops:   make([]Op, 0, 32),
		pool:  NewResourcePool(),
	}
}

// Finish closes any open saves and returns the recorded list. The Recorder
// must not be used afterwards.
func (r *Recorder) Finish() *DisplayList {
	r.RestoreToCount(1)
	draws := 0
	for _, op := range r.ops {
		if op.Type().IsDraw() {
			draws++
		}
	}
	return &DisplayList{
		id:        nextID.Add(1),
		ops:       r.ops,
		pool:      r.pool,
		bounds:    r.acc,
		drawCount: draws,
	}
}

// Bounds returns the device bounds of everything drawn so far, excluding
// open save layers.
func (r *Recorder) Bounds() flow.Rect {
	for _, e := range r.saves {
		if e.layer {
			return e.outer
		}
	}
	return r.acc
}

// State returns the live matrix and clip.
func (r *Recorder) State() clipstate.MatrixClipState { return *r.stack.Top() }

func (r *Recorder) record(op Op) { r.ops = append(r.ops, op) }

// accumulate grows the bounds by local's clipped device rect.
func (r *Recorder) accumulate(local flow.Rect) {
	if dev, ok := r.stack.Top().MapAndClipRect(local); ok {
		r.acc = r.acc.Union(dev)
	}
}

// Save implements flow.Canvas.
func (r *Recorder) Save() int {
	count := r.SaveCount()
	r.record(SaveOp{})
	r.saves = append(r.saves, saveEntry{restore: r.stack.Save()})
	return count
}

// SaveLayer implements flow.Canvas.
func (r *Recorder) SaveLayer(bounds *flow.Rect, paint *flow.Paint) int {
	count := r.SaveCount()
	op := SaveLayerOp{}
	e := saveEntry{layer: true, outer: r.acc, matrix: r.stack.Top().Matrix()}
	if bounds != nil {
		b := *bounds
		op.Bounds, e.bounds = &b, &b
	}
	if paint != nil {
		p := *paint
		op.Paint = &p
		e.filter = p.Filter
	}
	r.record(op)
	e.restore = r.stack.Save()
	if e.filter != nil {
		// Content just outside the clip can bleed into it through the blur.
		top := r.stack.Top()
		top.ResetDeviceCullRect(top.DeviceCullRect().Outset(deviceOutset(e.filter, e.matrix)))
	}
	r.saves = append(r.saves, e)
	r.acc = flow.Rect{}
	return count
}

// Restore implements flow.Canvas. Unbalanced restores are ignored.
func (r *Recorder) Restore() {
	n := len(r.saves)
	if n == 0 {
		return
	}
	e := r.saves[n-1]
	r.saves = r.saves[:n-1]
	e.restore()
	r.record(RestoreOp{})

	if !e.layer {
		return
	}
	inner := r.acc
	if e.bounds != nil {
		inner = inner.Intersect(e.matrix.MapRect(*e.bounds))
	}
	if e.filter != nil && !inner.IsEmpty() {
		inner = inner.Outset(deviceOutset(e.filter, e.matrix))
		inner = inner.Intersect(r.stack.Top().DeviceCullRect())
	}
	r.acc = e.outer.Union(inner)
}

// deviceOutset converts a filter's bleed into device pixels under m.
func deviceOutset(f *flow.ImageFilter, m flow.Matrix) (dx, dy float64) {
	sx := math.Hypot(m[0], m[4])
	sy := math.Hypot(m[1], m[5])
	s := math.Max(sx, sy)
	return 3 * f.SigmaX * s, 3 * f.SigmaY * s
}

// RestoreToCount implements flow.Canvas.
func (r *Recorder) RestoreToCount(count int) {
	if count < 1 {
		count = 1
	}
	for r.SaveCount() > count {
		r.Restore()
	}
}

// SaveCount implements flow.Canvas. A fresh recorder has a count of 1.
func (r *Recorder) SaveCount() int { return len(r.saves) + 1 }

func (r *Recorder) concat(m flow.Matrix) {
	r.stack.Top().Transform(m)
	r.record(TransformOp{Matrix: m})
}

// Translate implements flow.Canvas.
func (r *Recorder) Translate(dx, dy float64) { r.concat(flow.Translate(dx, dy)) }

// Scale implements flow.Canvas.
func (r *Recorder) Scale(sx, sy float64) { r.concat(flow.Scale(sx, sy)) }

// Rotate implements flow.Canvas.
func (r *Recorder) Rotate(radians float64) { r.concat(flow.Rotate(radians)) }

// Skew implements flow.Canvas.
func (r *Recorder) Skew(kx, ky float64) { r.concat(flow.Skew(kx, ky)) }

// Transform implements flow.Canvas.
func (r *Recorder) Transform(m flow.Matrix) { r.concat(m) }

// SetTransform implements flow.Canvas.
func (r *Recorder) SetTransform(m flow.Matrix) {
	r.stack.Top().SetTransform(m)
	r.record(SetTransformOp{Matrix: m})
}

// TotalMatrix implements flow.Canvas.
func (r *Recorder) TotalMatrix() flow.Matrix { return r.stack.Top().Matrix() }

// ClipRect implements flow.Canvas.
func (r *Recorder) ClipRect(rect flow.Rect, op flow.ClipOp, antiAlias bool) {
	r.stack.Top().ClipRect(rect, op, antiAlias)
	r.record(ClipRectOp{Rect: rect, Op: op, AntiAlias: antiAlias})
}

// ClipRRect implements flow.Canvas.
func (r *Recorder) ClipRRect(rr flow.RRect, op flow.ClipOp, antiAlias bool) {
	r.stack.Top().ClipRRect(rr, op, antiAlias)
	r.record(ClipRRectOp{RRect: rr, Op: op, AntiAlias: antiAlias})
}

// ClipPath implements flow.Canvas.
func (r *Recorder) ClipPath(p *flow.Path, op flow.ClipOp, antiAlias bool) {
	r.stack.Top().ClipPath(p, op, antiAlias)
	r.record(ClipPathOp{Path: r.pool.AddPath(p), Op: op, AntiAlias: antiAlias})
}

// Clear implements flow.Canvas. It covers the whole clip.
func (r *Recorder) Clear(c color.Color) {
	r.record(ClearOp{Color: color.NRGBAModel.Convert(c).(color.NRGBA)})
	if cull := r.stack.Top().DeviceCullRect(); !cull.IsEmpty() {
		r.acc = r.acc.Union(cull)
	}
}

// DrawRect implements flow.Canvas.
func (r *Recorder) DrawRect(rect flow.Rect, paint flow.Paint) {
	r.record(DrawRectOp{Rect: rect, Paint: paint})
	r.accumulate(rect)
}

// DrawOval implements flow.Canvas.
func (r *Recorder) DrawOval(rect flow.Rect, paint flow.Paint) {
	r.record(DrawOvalOp{Rect: rect, Paint: paint})
	r.accumulate(rect)
}

// DrawRRect implements flow.Canvas.
func (r *Recorder) DrawRRect(rr flow.RRect, paint flow.Paint) {
	r.record(DrawRRectOp{RRect: rr, Paint: paint})
	r.accumulate(rr.Rect)
}

// DrawPath implements flow.Canvas.
func (r *Recorder) DrawPath(p *flow.Path, paint flow.Paint) {
	r.record(DrawPathOp{Path: r.pool.AddPath(p), Paint: paint})
	if p != nil {
		r.accumulate(p.Bounds())
	}
}

// DrawShadow implements flow.Canvas.
func (r *Recorder) DrawShadow(p *flow.Path, c color.NRGBA, elevation float64, transparentOccluder bool, dpr float64) {
	r.record(DrawShadowOp{
		Path:                r.pool.AddPath(p),
		Color:               c,
		Elevation:           elevation,
		TransparentOccluder: transparentOccluder,
		DPR:                 dpr,
	})
	if p != nil {
		r.accumulate(flow.ComputeShadowBounds(p.Bounds(), elevation, dpr))
	}
}

// DrawImage implements flow.Canvas.
func (r *Recorder) DrawImage(img image.Image, at flow.Point, paint *flow.Paint) {
	if img == nil {
		return
	}
	op := DrawImageOp{Image: r.pool.AddImage(img), At: at}
	if paint != nil {
		p := *paint
		op.Paint = &p
	}
	r.record(op)
	b := img.Bounds()
	r.accumulate(flow.MakeXYWH(at.X, at.Y, float64(b.Dx()), float64(b.Dy())))
}

// Flush implements flow.Canvas. Recording has nothing to flush.
func (r *Recorder) Flush() {}

var _ flow.Canvas = (*Recorder)(nil)
