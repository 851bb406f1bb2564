package clipstate

import (
	"math"

	"github.com/gogpu/flow"
)

// ClipRect narrows the cull rect by r under op.
//
// Intersect replaces the cull rect with its intersection with r's device
// bounds. Difference only shrinks the cull rect by exact reductions: it
// empties the cull rect when r covers it, and trims one side when r's device
// rect spans the cull rect completely along the other axis. Any other
// difference leaves the cull rect unchanged. The cull rect never grows.
func (s *MatrixClipState) ClipRect(r flow.Rect, op flow.ClipOp, antiAlias bool) {
	switch op {
	case flow.ClipIntersect:
		s.intersectBounds(r, antiAlias)
	case flow.ClipDifference:
		if s.RectCoversCull(r) {
			s.cull = flow.Rect{}
			return
		}
		s.cutout(r, antiAlias)
	}
}

// ClipOval narrows the cull rect by the oval inscribed in bounds.
func (s *MatrixClipState) ClipOval(bounds flow.Rect, op flow.ClipOp, antiAlias bool) {
	switch op {
	case flow.ClipIntersect:
		s.intersectBounds(bounds, antiAlias)
	case flow.ClipDifference:
		if s.OvalCoversCull(bounds) {
			s.cull = flow.Rect{}
		}
	}
}

// ClipRRect narrows the cull rect by rr.
func (s *MatrixClipState) ClipRRect(rr flow.RRect, op flow.ClipOp, antiAlias bool) {
	switch {
	case rr.IsRect():
		s.ClipRect(rr.Rect, op, antiAlias)
		return
	case rr.IsOval():
		s.ClipOval(rr.Rect, op, antiAlias)
		return
	}
	switch op {
	case flow.ClipIntersect:
		s.intersectBounds(rr.Rect, antiAlias)
	case flow.ClipDifference:
		if s.RRectCoversCull(rr) {
			s.cull = flow.Rect{}
			return
		}
		// The cross formed by the horizontal and vertical bands between the
		// corners is fully inside rr; cut each band out separately.
		r := rr.Rect
		top := math.Max(rr.Radii[flow.UpperLeft].Y, rr.Radii[flow.UpperRight].Y)
		bottom := math.Max(rr.Radii[flow.LowerLeft].Y, rr.Radii[flow.LowerRight].Y)
		left := math.Max(rr.Radii[flow.UpperLeft].X, rr.Radii[flow.LowerLeft].X)
		right := math.Max(rr.Radii[flow.UpperRight].X, rr.Radii[flow.LowerRight].X)
		s.cutout(flow.Rect{Left: r.Left, Top: r.Top + top, Right: r.Right, Bottom: r.Bottom - bottom}, antiAlias)
		s.cutout(flow.Rect{Left: r.Left + left, Top: r.Top, Right: r.Right - right, Bottom: r.Bottom}, antiAlias)
	}
}

// ClipPath narrows the cull rect by p. Paths built from a single rect, oval
// or rrect take the exact routes; general paths intersect by their bounds
// and never shrink the cull rect on difference.
func (s *MatrixClipState) ClipPath(p *flow.Path, op flow.ClipOp, antiAlias bool) {
	if p == nil {
		return
	}
	if r, ok := p.IsRect(); ok {
		s.ClipRect(r, op, antiAlias)
		return
	}
	if r, ok := p.IsOval(); ok {
		s.ClipOval(r, op, antiAlias)
		return
	}
	if rr, ok := p.IsRRect(); ok {
		s.ClipRRect(rr, op, antiAlias)
		return
	}
	if op == flow.ClipIntersect {
		s.intersectBounds(p.Bounds(), antiAlias)
	}
}

// intersectBounds intersects the cull rect with local's device bounds.
// Anti-aliased edges round outward so partially covered pixels stay
// visible; aliased edges snap to the nearest pixel like the rasterizer does.
func (s *MatrixClipState) intersectBounds(local flow.Rect, antiAlias bool) {
	if s.cull.IsEmpty() {
		return
	}
	if local.IsEmpty() {
		s.cull = flow.Rect{}
		return
	}
	dev := s.matrix.MapRect(local)
	if antiAlias {
		dev = dev.RoundOut()
	} else {
		dev = dev.Round()
	}
	s.cull = s.cull.Intersect(dev)
}

// cutout removes local's device rect from the cull rect when the result is
// still a rectangle. Anti-aliased cutouts round inward since their partially
// covered edge pixels remain visible.
func (s *MatrixClipState) cutout(local flow.Rect, antiAlias bool) {
	if s.cull.IsEmpty() || local.IsEmpty() || !s.matrix.RectStaysRect() {
		return
	}
	dev := s.matrix.MapRect(local)
	if antiAlias {
		dev = dev.RoundIn()
	} else {
		dev = dev.Round()
	}
	if dev.IsEmpty() {
		return
	}
	s.cull = cutoutOrEmpty(s.cull, dev)
}

// cutoutOrEmpty returns r minus cut when that difference is a rectangle,
// otherwise r unchanged.
func cutoutOrEmpty(r, cut flow.Rect) flow.Rect {
	if cut.Contains(r) {
		return flow.Rect{}
	}
	res := r
	spansY := cut.Top <= r.Top && cut.Bottom >= r.Bottom
	spansX := cut.Left <= r.Left && cut.Right >= r.Right
	switch {
	case spansY && cut.Left <= r.Left && cut.Right > r.Left:
		res.Left = cut.Right
	case spansY && cut.Right >= r.Right && cut.Left < r.Right:
		res.Right = cut.Left
	case spansX && cut.Top <= r.Top && cut.Bottom > r.Top:
		res.Top = cut.Bottom
	case spansX && cut.Bottom >= r.Bottom && cut.Top < r.Bottom:
		res.Bottom = cut.Top
	}
	if res.IsEmpty() {
		return flow.Rect{}
	}
	return res
}
