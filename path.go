package flow

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// kappa is the cubic Bezier control distance that approximates a quarter
// ellipse.
const kappa = 0.5522847498307936

// shapeKind remembers which simple shape built a path, so clip and shadow
// code can take the exact rect/oval/rrect routes.
type shapeKind uint8

const (
	shapeGeneral shapeKind = iota
	shapeRect
	shapeOval
	shapeRRect
)

// Path is a vector outline. Geometry is stored as seehuhn.de/go/geom path
// data; a path built by a single AddRect, AddOval or AddRRect on an empty
// path also remembers that shape.
type Path struct {
	data  path.Data
	kind  shapeKind
	rrect RRect
	// open reports whether a subpath has been started and not closed.
	open bool
}

// NewPath creates a new empty path.
func NewPath() *Path {
	return &Path{}
}

// PathFromRect returns a closed rectangular path.
func PathFromRect(r Rect) *Path {
	p := NewPath()
	p.AddRect(r)
	return p
}

// PathFromOval returns the ellipse inscribed in r.
func PathFromOval(r Rect) *Path {
	p := NewPath()
	p.AddOval(r)
	return p
}

// PathFromRRect returns a rounded rectangle path.
func PathFromRRect(rr RRect) *Path {
	p := NewPath()
	p.AddRRect(rr)
	return p
}

// MoveTo starts a new subpath at (x, y).
func (p *Path) MoveTo(x, y float64) {
	p.kind = shapeGeneral
	p.data.Cmds = append(p.data.Cmds, path.CmdMoveTo)
	p.data.Coords = append(p.data.Coords, vec.Vec2{X: x, Y: y})
	p.open = true
}

// LineTo adds a straight segment to (x, y).
func (p *Path) LineTo(x, y float64) {
	p.ensureOpen(x, y)
	p.data.Cmds = append(p.data.Cmds, path.CmdLineTo)
	p.data.Coords = append(p.data.Coords, vec.Vec2{X: x, Y: y})
}

// QuadTo adds a quadratic Bezier segment.
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.ensureOpen(cx, cy)
	p.data.Cmds = append(p.data.Cmds, path.CmdQuadTo)
	p.data.Coords = append(p.data.Coords, vec.Vec2{X: cx, Y: cy}, vec.Vec2{X: x, Y: y})
}

// CubeTo adds a cubic Bezier segment.
func (p *Path) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.ensureOpen(c1x, c1y)
	p.data.Cmds = append(p.data.Cmds, path.CmdCubeTo)
	p.data.Coords = append(p.data.Coords,
		vec.Vec2{X: c1x, Y: c1y}, vec.Vec2{X: c2x, Y: c2y}, vec.Vec2{X: x, Y: y})
}

// Close closes the current subpath.
func (p *Path) Close() {
	if !p.open {
		return
	}
	p.data.Cmds = append(p.data.Cmds, path.CmdClose)
	p.open = false
}

// ensureOpen starts an implicit subpath when a segment is added without a
// preceding MoveTo, and drops any remembered shape.
func (p *Path) ensureOpen(x, y float64) {
	if !p.open {
		p.MoveTo(x, y)
		return
	}
	p.kind = shapeGeneral
}

// remember records the shape that built an empty path. Any shape added to a
// non-empty path leaves it general.
func (p *Path) remember(wasEmpty bool, kind shapeKind, rr RRect) {
	if wasEmpty {
		p.kind, p.rrect = kind, rr
	} else {
		p.kind = shapeGeneral
	}
}

// AddRect appends r as a closed clockwise subpath.
func (p *Path) AddRect(r Rect) {
	wasEmpty := p.IsEmpty()
	p.MoveTo(r.Left, r.Top)
	p.LineTo(r.Right, r.Top)
	p.LineTo(r.Right, r.Bottom)
	p.LineTo(r.Left, r.Bottom)
	p.Close()
	p.remember(wasEmpty, shapeRect, RRectFromRect(r))
}

// AddOval appends the ellipse inscribed in r as four cubic arcs.
func (p *Path) AddOval(r Rect) {
	wasEmpty := p.IsEmpty()
	c := r.Center()
	rx, ry := r.Width()*0.5, r.Height()*0.5
	kx, ky := rx*kappa, ry*kappa
	p.MoveTo(r.Right, c.Y)
	p.CubeTo(r.Right, c.Y+ky, c.X+kx, r.Bottom, c.X, r.Bottom)
	p.CubeTo(c.X-kx, r.Bottom, r.Left, c.Y+ky, r.Left, c.Y)
	p.CubeTo(r.Left, c.Y-ky, c.X-kx, r.Top, c.X, r.Top)
	p.CubeTo(c.X+kx, r.Top, r.Right, c.Y-ky, r.Right, c.Y)
	p.Close()
	p.remember(wasEmpty, shapeOval, RRectOval(r))
}

// AddRRect appends a rounded rectangle. Square corners become plain
// line joins.
func (p *Path) AddRRect(rr RRect) {
	if rr.IsRect() {
		p.AddRect(rr.Rect)
		return
	}
	wasEmpty := p.IsEmpty()
	r := rr.Rect
	ul, ur := rr.Radii[UpperLeft], rr.Radii[UpperRight]
	lr, ll := rr.Radii[LowerRight], rr.Radii[LowerLeft]

	p.MoveTo(r.Left+ul.X, r.Top)
	p.LineTo(r.Right-ur.X, r.Top)
	p.CubeTo(r.Right-ur.X*(1-kappa), r.Top, r.Right, r.Top+ur.Y*(1-kappa), r.Right, r.Top+ur.Y)
	p.LineTo(r.Right, r.Bottom-lr.Y)
	p.CubeTo(r.Right, r.Bottom-lr.Y*(1-kappa), r.Right-lr.X*(1-kappa), r.Bottom, r.Right-lr.X, r.Bottom)
	p.LineTo(r.Left+ll.X, r.Bottom)
	p.CubeTo(r.Left+ll.X*(1-kappa), r.Bottom, r.Left, r.Bottom-ll.Y*(1-kappa), r.Left, r.Bottom-ll.Y)
	p.LineTo(r.Left, r.Top+ul.Y)
	p.CubeTo(r.Left, r.Top+ul.Y*(1-kappa), r.Left+ul.X*(1-kappa), r.Top, r.Left+ul.X, r.Top)
	p.Close()

	kind := shapeRRect
	if rr.IsOval() {
		kind = shapeOval
	}
	p.remember(wasEmpty, kind, rr)
}

// IsEmpty reports whether the path has no segments.
func (p *Path) IsEmpty() bool {
	return p == nil || len(p.data.Cmds) == 0
}

// IsRect returns the rectangle when the path was built as a single rect.
func (p *Path) IsRect() (Rect, bool) {
	if p == nil || p.kind != shapeRect {
		return Rect{}, false
	}
	return p.rrect.Rect, true
}

// IsOval returns the bounds of the ellipse when the path was built as a
// single oval.
func (p *Path) IsOval() (Rect, bool) {
	if p == nil || p.kind != shapeOval {
		return Rect{}, false
	}
	return p.rrect.Rect, true
}

// IsRRect returns the rounded rectangle when the path was built as a single
// rect, oval or rrect.
func (p *Path) IsRRect() (RRect, bool) {
	if p == nil || p.kind == shapeGeneral {
		return RRect{}, false
	}
	return p.rrect, true
}

// Bounds returns the bounding box of every coordinate in the path, control
// points included. Curves never leave this hull.
func (p *Path) Bounds() Rect {
	if p.IsEmpty() {
		return Rect{}
	}
	if p.kind != shapeGeneral {
		return p.rrect.Rect
	}
	r := Rect{Left: math.Inf(1), Top: math.Inf(1), Right: math.Inf(-1), Bottom: math.Inf(-1)}
	for _, c := range p.data.Coords {
		r.Left = math.Min(r.Left, c.X)
		r.Top = math.Min(r.Top, c.Y)
		r.Right = math.Max(r.Right, c.X)
		r.Bottom = math.Max(r.Bottom, c.Y)
	}
	return r
}

// Data returns the underlying path data. Callers must not modify it.
func (p *Path) Data() *path.Data {
	return &p.data
}

// Transform returns a copy of p with every coordinate mapped through m.
// Points that map behind the perspective horizon are dropped to the origin;
// callers with perspective transforms should clip first. The shape hint
// survives only when m keeps rectangles rectangular.
func (p *Path) Transform(m Matrix) *Path {
	out := &Path{open: p.open}
	out.data.Cmds = append([]path.Command(nil), p.data.Cmds...)
	out.data.Coords = make([]vec.Vec2, len(p.data.Coords))
	for i, c := range p.data.Coords {
		q, _ := m.MapPoint(Point{X: c.X, Y: c.Y})
		out.data.Coords[i] = vec.Vec2{X: q.X, Y: q.Y}
	}
	if p.kind != shapeGeneral && m.IsScaleTranslate() {
		out.kind = p.kind
		out.rrect = RRect{Rect: m.MapRect(p.rrect.Rect)}
		sx, sy := math.Abs(m[0]), math.Abs(m[5])
		for i, c := range p.rrect.Radii {
			out.rrect.Radii[i] = Point{X: c.X * sx, Y: c.Y * sy}
		}
	}
	return out
}

// Clone returns a deep copy of p.
func (p *Path) Clone() *Path {
	out := *p
	out.data.Cmds = append([]path.Command(nil), p.data.Cmds...)
	out.data.Coords = append([]vec.Vec2(nil), p.data.Coords...)
	return &out
}

// Walk calls fn for every segment in order. pts holds the segment's
// coordinates: one for MoveTo and LineTo, two for QuadTo, three for CubeTo,
// none for Close.
func (p *Path) Walk(fn func(cmd path.Command, pts []Point)) {
	var buf [3]Point
	i := 0
	for _, cmd := range p.data.Cmds {
		n := 0
		switch cmd {
		case path.CmdMoveTo, path.CmdLineTo:
			n = 1
		case path.CmdQuadTo:
			n = 2
		case path.CmdCubeTo:
			n = 3
		}
		for k := 0; k < n; k++ {
			buf[k] = Point{X: p.data.Coords[i+k].X, Y: p.data.Coords[i+k].Y}
		}
		i += n
		fn(cmd, buf[:n])
	}
}
