package displaylist

import (
	"encoding/json"
	"sync/atomic"

	"github.com/gogpu/flow"
)

// nextID hands out display list identities. IDs start at 1; 0 means "no
// list".
var nextID atomic.Uint64

// DisplayList is an immutable recording. Its ID is unique for the life of
// the process and serves as the content identity for raster caching.
//
// A DisplayList is safe for concurrent playback.
type DisplayList struct {
	id        uint64
	ops       []Op
	pool      *ResourcePool
	bounds    flow.Rect
	drawCount int
}

// ID returns the list's unique identity.
func (d *DisplayList) ID() uint64 { return d.id }

// Bounds returns the bounds of everything drawn, in the list's own
// coordinate space.
func (d *DisplayList) Bounds() flow.Rect { return d.bounds }

// OpCount returns the number of recorded ops, state ops included.
func (d *DisplayList) OpCount() int { return len(d.ops) }

// DrawOpCount returns the number of ops that draw.
func (d *DisplayList) DrawOpCount() int { return d.drawCount }

// Ops returns the recorded ops. Callers must not modify the slice.
func (d *DisplayList) Ops() []Op { return d.ops }

// Resources returns the pool holding the list's paths and images.
func (d *DisplayList) Resources() *ResourcePool { return d.pool }

// Playback replays the list into c. The canvas matrix at the time of the
// call acts as the list's origin, and c's save count is unchanged
// afterwards.
func (d *DisplayList) Playback(c flow.Canvas) {
	if d == nil || c == nil {
		return
	}
	base := c.TotalMatrix()
	count := c.Save()
	defer c.RestoreToCount(count)

	for _, op := range d.ops {
		switch o := op.(type) {
		case SaveOp:
			c.Save()
		case SaveLayerOp:
			c.SaveLayer(o.Bounds, o.Paint)
		case RestoreOp:
			c.Restore()
		case TransformOp:
			c.Transform(o.Matrix)
		case SetTransformOp:
			c.SetTransform(base.Multiply(o.Matrix))
		case ClipRectOp:
			c.ClipRect(o.Rect, o.Op, o.AntiAlias)
		case ClipRRectOp:
			c.ClipRRect(o.RRect, o.Op, o.AntiAlias)
		case ClipPathOp:
			c.ClipPath(d.pool.Path(o.Path), o.Op, o.AntiAlias)
		case ClearOp:
			c.Clear(o.Color)
		case DrawRectOp:
			c.DrawRect(o.Rect, o.Paint)
		case DrawOvalOp:
			c.DrawOval(o.Rect, o.Paint)
		case DrawRRectOp:
			c.DrawRRect(o.RRect, o.Paint)
		case DrawPathOp:
			c.DrawPath(d.pool.Path(o.Path), o.Paint)
		case DrawShadowOp:
			c.DrawShadow(d.pool.Path(o.Path), o.Color, o.Elevation, o.TransparentOccluder, o.DPR)
		case DrawImageOp:
			c.DrawImage(d.pool.Image(o.Image), o.At, o.Paint)
		}
	}
}

type jsonOp struct {
	Op   string `json:"op"`
	Args Op     `json:"args,omitempty"`
}

type jsonPath struct {
	Bounds   flow.Rect `json:"bounds"`
	Segments int       `json:"segments"`
}

type jsonImage struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type jsonList struct {
	ID        uint64      `json:"id"`
	Bounds    flow.Rect   `json:"bounds"`
	OpCount   int         `json:"op_count"`
	DrawCount int         `json:"draw_count"`
	Ops       []jsonOp    `json:"ops"`
	Paths     []jsonPath  `json:"paths,omitempty"`
	Images    []jsonImage `json:"images,omitempty"`
}

// MarshalJSON writes the list as a human-readable trace: every op by name
// with its arguments, and a summary of each referenced path and image.
func (d *DisplayList) MarshalJSON() ([]byte, error) {
	out := jsonList{
		ID:        d.id,
		Bounds:    d.bounds,
		OpCount:   len(d.ops),
		DrawCount: d.drawCount,
		Ops:       make([]jsonOp, len(d.ops)),
	}
	for i, op := range d.ops {
		out.Ops[i] = jsonOp{Op: op.Type().String()}
		switch op.(type) {
		case SaveOp, RestoreOp:
		default:
			out.Ops[i].Args = op
		}
	}
	for _, p := range d.pool.paths {
		out.Paths = append(out.Paths, jsonPath{Bounds: p.Bounds(), Segments: len(p.Data().Cmds)})
	}
	for _, img := range d.pool.images {
		b := img.Bounds()
		out.Images = append(out.Images, jsonImage{Width: b.Dx(), Height: b.Dy()})
	}
	return json.Marshal(out)
}
