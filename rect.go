package flow

import "math"

// giantExtent bounds GiantRect. Large enough to exceed any real surface yet
// small enough that arithmetic on it stays finite.
const giantExtent = 1e9

// GiantRect is the most conservative finite rectangle. It stands in for
// "unbounded" wherever a real bound cannot be computed, for example the
// local cull rect of a non-invertible transform.
var GiantRect = Rect{Left: -giantExtent, Top: -giantExtent, Right: giantExtent, Bottom: giantExtent}

// Point represents a 2D point.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Rect is an axis-aligned rectangle stored as left/top/right/bottom edges.
// A rect is empty unless Left < Right and Top < Bottom; a rect containing
// NaN is therefore always empty.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// MakeLTRB creates a Rect from its edges.
func MakeLTRB(l, t, r, b float64) Rect {
	return Rect{Left: l, Top: t, Right: r, Bottom: b}
}

// MakeXYWH creates a Rect from its origin and size.
func MakeXYWH(x, y, w, h float64) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// MakeWH creates a Rect at the origin with the given size.
func MakeWH(w, h float64) Rect {
	return Rect{Right: w, Bottom: h}
}

// Width returns Right-Left.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns Bottom-Top.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) * 0.5, Y: (r.Top + r.Bottom) * 0.5}
}

// IsEmpty reports whether the rectangle encloses no area.
func (r Rect) IsEmpty() bool {
	return !(r.Left < r.Right && r.Top < r.Bottom)
}

// IsFinite reports whether all four edges are finite.
func (r Rect) IsFinite() bool {
	return isFinite(r.Left) && isFinite(r.Top) && isFinite(r.Right) && isFinite(r.Bottom)
}

// Intersect returns the intersection of r and o, or the zero Rect when they
// do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	res := Rect{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}
	if res.IsEmpty() {
		return Rect{}
	}
	return res
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).IsEmpty()
}

// Contains reports whether o lies entirely inside r. An empty o is never
// contained.
func (r Rect) Contains(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return o.Left >= r.Left && o.Top >= r.Top && o.Right <= r.Right && o.Bottom <= r.Bottom
}

// ContainsPoint reports whether p lies inside r, edges included.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Union returns the smallest rectangle enclosing both r and o. Empty inputs
// are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		Left:   math.Min(r.Left, o.Left),
		Top:    math.Min(r.Top, o.Top),
		Right:  math.Max(r.Right, o.Right),
		Bottom: math.Max(r.Bottom, o.Bottom),
	}
}

// Offset returns r translated by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Outset returns r grown by dx horizontally and dy vertically on each side.
func (r Rect) Outset(dx, dy float64) Rect {
	return Rect{Left: r.Left - dx, Top: r.Top - dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// RoundOut returns the smallest integer rectangle enclosing r.
func (r Rect) RoundOut() Rect {
	return Rect{
		Left:   math.Floor(r.Left),
		Top:    math.Floor(r.Top),
		Right:  math.Ceil(r.Right),
		Bottom: math.Ceil(r.Bottom),
	}
}

// RoundIn returns the largest integer rectangle enclosed by r.
func (r Rect) RoundIn() Rect {
	return Rect{
		Left:   math.Ceil(r.Left),
		Top:    math.Ceil(r.Top),
		Right:  math.Floor(r.Right),
		Bottom: math.Floor(r.Bottom),
	}
}

// Round returns r with every edge rounded to the nearest integer, halves
// rounding up.
func (r Rect) Round() Rect {
	return Rect{
		Left:   RoundHalfUp(r.Left),
		Top:    RoundHalfUp(r.Top),
		Right:  RoundHalfUp(r.Right),
		Bottom: RoundHalfUp(r.Bottom),
	}
}

// Corners returns the corners clockwise from top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.Left, Y: r.Top},
		{X: r.Right, Y: r.Top},
		{X: r.Right, Y: r.Bottom},
		{X: r.Left, Y: r.Bottom},
	}
}

// BoundsOf returns the bounding box of pts. It returns the zero Rect for
// an empty slice.
func BoundsOf(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Left: pts[0].X, Top: pts[0].Y, Right: pts[0].X, Bottom: pts[0].Y}
	for _, p := range pts[1:] {
		r.Left = math.Min(r.Left, p.X)
		r.Top = math.Min(r.Top, p.Y)
		r.Right = math.Max(r.Right, p.X)
		r.Bottom = math.Max(r.Bottom, p.Y)
	}
	return r
}

// RoundHalfUp rounds x to the nearest integer with halves rounding toward
// positive infinity, matching pixel-center sampling.
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Corner indexes the radii of an RRect.
type Corner int

// Corner constants, clockwise from the top-left.
const (
	UpperLeft Corner = iota
	UpperRight
	LowerRight
	LowerLeft
)

// RRect is a rectangle with elliptical corners. Radii[c] holds the X and Y
// radius of corner c.
type RRect struct {
	Rect  Rect
	Radii [4]Point
}

// RRectFromRect returns an RRect with square corners.
func RRectFromRect(r Rect) RRect {
	return RRect{Rect: r}
}

// RRectFromRectXY returns an RRect with the same radii on every corner.
// Radii are clamped so opposite corners never overlap.
func RRectFromRectXY(r Rect, rx, ry float64) RRect {
	rx = math.Max(0, math.Min(rx, r.Width()*0.5))
	ry = math.Max(0, math.Min(ry, r.Height()*0.5))
	if rx == 0 || ry == 0 {
		return RRect{Rect: r}
	}
	c := Point{X: rx, Y: ry}
	return RRect{Rect: r, Radii: [4]Point{c, c, c, c}}
}

// RRectOval returns the RRect describing the oval inscribed in r.
func RRectOval(r Rect) RRect {
	return RRectFromRectXY(r, r.Width()*0.5, r.Height()*0.5)
}

// Bounds returns the bounding rectangle.
func (rr RRect) Bounds() Rect { return rr.Rect }

// IsEmpty reports whether the bounds are empty.
func (rr RRect) IsEmpty() bool { return rr.Rect.IsEmpty() }

// IsRect reports whether every corner is square.
func (rr RRect) IsRect() bool {
	for _, c := range rr.Radii {
		if c.X > 0 && c.Y > 0 {
			return false
		}
	}
	return true
}

// IsOval reports whether the radii describe the inscribed ellipse.
func (rr RRect) IsOval() bool {
	if rr.IsEmpty() {
		return false
	}
	hw, hh := rr.Rect.Width()*0.5, rr.Rect.Height()*0.5
	for _, c := range rr.Radii {
		if c.X < hw || c.Y < hh {
			return false
		}
	}
	return true
}

// Offset returns rr translated by (dx, dy).
func (rr RRect) Offset(dx, dy float64) RRect {
	rr.Rect = rr.Rect.Offset(dx, dy)
	return rr
}

// ContainsPoint reports whether p lies inside the rounded rectangle,
// edges included.
func (rr RRect) ContainsPoint(p Point) bool {
	r := rr.Rect
	if !r.ContainsPoint(p) {
		return false
	}
	// Pick the corner quadrant p lies in and test against its ellipse.
	var c Corner
	var cx, cy float64
	switch {
	case p.X < r.Left+rr.Radii[UpperLeft].X && p.Y < r.Top+rr.Radii[UpperLeft].Y:
		c, cx, cy = UpperLeft, r.Left+rr.Radii[UpperLeft].X, r.Top+rr.Radii[UpperLeft].Y
	case p.X > r.Right-rr.Radii[UpperRight].X && p.Y < r.Top+rr.Radii[UpperRight].Y:
		c, cx, cy = UpperRight, r.Right-rr.Radii[UpperRight].X, r.Top+rr.Radii[UpperRight].Y
	case p.X > r.Right-rr.Radii[LowerRight].X && p.Y > r.Bottom-rr.Radii[LowerRight].Y:
		c, cx, cy = LowerRight, r.Right-rr.Radii[LowerRight].X, r.Bottom-rr.Radii[LowerRight].Y
	case p.X < r.Left+rr.Radii[LowerLeft].X && p.Y > r.Bottom-rr.Radii[LowerLeft].Y:
		c, cx, cy = LowerLeft, r.Left+rr.Radii[LowerLeft].X, r.Bottom-rr.Radii[LowerLeft].Y
	default:
		return true
	}
	rad := rr.Radii[c]
	if rad.X <= 0 || rad.Y <= 0 {
		return true
	}
	dx := (p.X - cx) / rad.X
	dy := (p.Y - cy) / rad.Y
	return dx*dx+dy*dy <= 1
}

// InnerRect returns a rectangle guaranteed to lie inside rr, obtained by
// insetting each edge by the largest radius touching it.
func (rr RRect) InnerRect() Rect {
	r := rr.Rect
	left := math.Max(rr.Radii[UpperLeft].X, rr.Radii[LowerLeft].X)
	right := math.Max(rr.Radii[UpperRight].X, rr.Radii[LowerRight].X)
	top := math.Max(rr.Radii[UpperLeft].Y, rr.Radii[UpperRight].Y)
	bottom := math.Max(rr.Radii[LowerLeft].Y, rr.Radii[LowerRight].Y)
	return Rect{Left: r.Left + left, Top: r.Top + top, Right: r.Right - right, Bottom: r.Bottom - bottom}
}

// OvalContainsPoint reports whether p lies inside the ellipse inscribed in
// bounds, edges included.
func OvalContainsPoint(bounds Rect, p Point) bool {
	if bounds.IsEmpty() {
		return false
	}
	c := bounds.Center()
	rx, ry := bounds.Width()*0.5, bounds.Height()*0.5
	dx := (p.X - c.X) / rx
	dy := (p.Y - c.Y) / ry
	return dx*dx+dy*dy <= 1
}
