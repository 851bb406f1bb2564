// Package clipstate tracks the current transform and a conservative
// device-space cull rect while a layer tree or display list is walked.
//
// MatrixClipState is a plain value. Copying it is how a caller saves state;
// the Stack type packages that copy-and-restore discipline for code that
// wants it. Nothing in this package allocates per operation.
package clipstate

import "github.com/gogpu/flow"

// MatrixClipState is the pair (matrix, device cull rect).
//
// The cull rect is a superset of what can still be drawn: clipping only ever
// narrows it, and content whose mapped bounds miss it can be skipped.
type MatrixClipState struct {
	cull   flow.Rect
	matrix flow.Matrix
}

// New creates a state with the given device cull rect and matrix.
func New(deviceCull flow.Rect, m flow.Matrix) MatrixClipState {
	s := MatrixClipState{matrix: m}
	s.ResetDeviceCullRect(deviceCull)
	return s
}

// NewLocal creates a state whose device cull rect is localCull mapped
// through m.
func NewLocal(localCull flow.Rect, m flow.Matrix) MatrixClipState {
	s := MatrixClipState{matrix: m}
	s.ResetLocalCullRect(localCull)
	return s
}

// ResetDeviceCullRect overwrites the device cull rect. Used when a save
// layer must see beyond its parent's clip, e.g. for filter bleed.
func (s *MatrixClipState) ResetDeviceCullRect(r flow.Rect) {
	if r.IsEmpty() {
		s.cull = flow.Rect{}
		return
	}
	s.cull = r
}

// ResetLocalCullRect overwrites the device cull rect with r mapped through
// the current matrix.
func (s *MatrixClipState) ResetLocalCullRect(r flow.Rect) {
	if r.IsEmpty() {
		s.cull = flow.Rect{}
		return
	}
	s.cull = s.matrix.MapRect(r)
}

// Translate composes a translation in local space.
func (s *MatrixClipState) Translate(dx, dy float64) {
	s.matrix = s.matrix.Multiply(flow.Translate(dx, dy))
}

// Scale composes a scale in local space.
func (s *MatrixClipState) Scale(sx, sy float64) {
	s.matrix = s.matrix.Multiply(flow.Scale(sx, sy))
}

// Skew composes a skew in local space.
func (s *MatrixClipState) Skew(kx, ky float64) {
	s.matrix = s.matrix.Multiply(flow.Skew(kx, ky))
}

// Rotate composes a rotation (radians) in local space.
func (s *MatrixClipState) Rotate(radians float64) {
	s.matrix = s.matrix.Multiply(flow.Rotate(radians))
}

// Transform2DAffine composes the 2D affine
// x' = mxx*x + mxy*y + mxt, y' = myx*x + myy*y + myt.
func (s *MatrixClipState) Transform2DAffine(mxx, mxy, mxt, myx, myy, myt float64) {
	s.matrix = s.matrix.Multiply(flow.MakeAffine2D(mxx, mxy, mxt, myx, myy, myt))
}

// TransformFullPerspective composes a full 4x4 matrix given in row-major
// order.
func (s *MatrixClipState) TransformFullPerspective(
	mxx, mxy, mxz, mxt,
	myx, myy, myz, myt,
	mzx, mzy, mzz, mzt,
	mwx, mwy, mwz, mwt float64,
) {
	s.matrix = s.matrix.Multiply(flow.Matrix{
		mxx, mxy, mxz, mxt,
		myx, myy, myz, myt,
		mzx, mzy, mzz, mzt,
		mwx, mwy, mwz, mwt,
	})
}

// Transform composes m in local space.
func (s *MatrixClipState) Transform(m flow.Matrix) {
	s.matrix = s.matrix.Multiply(m)
}

// SetTransform replaces the matrix.
func (s *MatrixClipState) SetTransform(m flow.Matrix) {
	s.matrix = m
}

// SetIdentity resets the matrix to the identity.
func (s *MatrixClipState) SetIdentity() {
	s.matrix = flow.Identity()
}

// InverseTransform composes the inverse of other's matrix, undoing a
// transform recorded in another coordinate frame. It returns false, leaving
// s untouched, when other's matrix is not invertible.
func (s *MatrixClipState) InverseTransform(other MatrixClipState) bool {
	inv, ok := other.matrix.Invert()
	if !ok {
		return false
	}
	s.matrix = s.matrix.Multiply(inv)
	return true
}

// Matrix returns the current matrix.
func (s *MatrixClipState) Matrix() flow.Matrix { return s.matrix }

// DeviceCullRect returns the device cull rect.
func (s *MatrixClipState) DeviceCullRect() flow.Rect { return s.cull }

// IsCullRectEmpty reports whether nothing can be drawn.
func (s *MatrixClipState) IsCullRectEmpty() bool { return s.cull.IsEmpty() }

// IsMatrixInvertible reports whether the matrix has a non-zero determinant.
func (s *MatrixClipState) IsMatrixInvertible() bool { return s.matrix.IsInvertible() }

// HasPerspective reports whether the matrix has perspective terms.
func (s *MatrixClipState) HasPerspective() bool { return s.matrix.HasPerspective() }

// LocalCullRect returns the device cull rect pulled back into local space.
// It is empty when the cull rect is empty and flow.GiantRect when the
// matrix cannot be inverted.
func (s *MatrixClipState) LocalCullRect() flow.Rect {
	if s.cull.IsEmpty() {
		return flow.Rect{}
	}
	inv, ok := s.matrix.Invert()
	if !ok {
		return flow.GiantRect
	}
	return inv.MapRect(s.cull)
}

// LocalCullCorners returns the four device cull corners mapped into local
// space, clockwise from top-left. ok is false when the matrix cannot be
// inverted or a corner lands behind the perspective horizon.
func (s *MatrixClipState) LocalCullCorners() (corners [4]flow.Point, ok bool) {
	return localCorners(s.matrix, s.cull)
}

func localCorners(m flow.Matrix, deviceRect flow.Rect) (corners [4]flow.Point, ok bool) {
	inv, ok := m.Invert()
	if !ok {
		return corners, false
	}
	for i, c := range deviceRect.Corners() {
		p, ok := inv.MapPoint(c)
		if !ok {
			return corners, false
		}
		corners[i] = p
	}
	return corners, true
}

// MapRect maps src through the matrix. The bool reports whether the mapping
// kept rectangles axis-aligned, i.e. whether dst is exact rather than a
// bounding box.
func (s *MatrixClipState) MapRect(src flow.Rect) (dst flow.Rect, aligned bool) {
	return s.matrix.MapRect(src), s.matrix.RectStaysRect()
}

// MapAndClipRect maps src and intersects it with the device cull rect. The
// bool reports whether anything is left.
func (s *MatrixClipState) MapAndClipRect(src flow.Rect) (flow.Rect, bool) {
	dst := s.matrix.MapRect(src).Intersect(s.cull)
	return dst, !dst.IsEmpty()
}

// ContentCulled reports whether content with the given local bounds misses
// the device cull rect entirely.
func (s *MatrixClipState) ContentCulled(content flow.Rect) bool {
	if s.cull.IsEmpty() || content.IsEmpty() {
		return true
	}
	return !s.matrix.MapRect(content).Intersects(s.cull)
}

// RectCoversCull reports whether content, under the current matrix, fully
// contains the device cull rect. An empty cull rect is trivially covered.
func (s *MatrixClipState) RectCoversCull(content flow.Rect) bool {
	if content.IsEmpty() {
		return false
	}
	if s.cull.IsEmpty() {
		return true
	}
	return TransformedRectCoversBounds(content, s.matrix, s.cull)
}

// OvalCoversCull reports whether the oval inscribed in bounds fully contains
// the device cull rect.
func (s *MatrixClipState) OvalCoversCull(bounds flow.Rect) bool {
	if bounds.IsEmpty() {
		return false
	}
	if s.cull.IsEmpty() {
		return true
	}
	return TransformedOvalCoversBounds(bounds, s.matrix, s.cull)
}

// RRectCoversCull reports whether rr fully contains the device cull rect.
func (s *MatrixClipState) RRectCoversCull(rr flow.RRect) bool {
	if rr.IsEmpty() {
		return false
	}
	if s.cull.IsEmpty() {
		return true
	}
	return TransformedRRectCoversBounds(rr, s.matrix, s.cull)
}

// The coverage tests below pull the device rect's corners back into local
// space and test each against the shape. All three shapes are convex, so four
// corners inside means the whole (possibly rotated) quadrilateral is inside.

// TransformedRectCoversBounds reports whether local, mapped through m, fully
// contains the device rect cover.
func TransformedRectCoversBounds(local flow.Rect, m flow.Matrix, cover flow.Rect) bool {
	if local.IsEmpty() {
		return false
	}
	if cover.IsEmpty() {
		return true
	}
	corners, ok := localCorners(m, cover)
	if !ok {
		return false
	}
	for _, c := range corners {
		if !local.ContainsPoint(c) {
			return false
		}
	}
	return true
}

// TransformedOvalCoversBounds reports whether the oval inscribed in local,
// mapped through m, fully contains the device rect cover.
func TransformedOvalCoversBounds(local flow.Rect, m flow.Matrix, cover flow.Rect) bool {
	if local.IsEmpty() {
		return false
	}
	if cover.IsEmpty() {
		return true
	}
	corners, ok := localCorners(m, cover)
	if !ok {
		return false
	}
	for _, c := range corners {
		if !flow.OvalContainsPoint(local, c) {
			return false
		}
	}
	return true
}

// TransformedRRectCoversBounds reports whether rr, mapped through m, fully
// contains the device rect cover.
func TransformedRRectCoversBounds(rr flow.RRect, m flow.Matrix, cover flow.Rect) bool {
	if rr.IsEmpty() {
		return false
	}
	if cover.IsEmpty() {
		return true
	}
	if rr.IsRect() {
		return TransformedRectCoversBounds(rr.Rect, m, cover)
	}
	if rr.IsOval() {
		return TransformedOvalCoversBounds(rr.Rect, m, cover)
	}
	corners, ok := localCorners(m, cover)
	if !ok {
		return false
	}
	for _, c := range corners {
		if !rr.ContainsPoint(c) {
			return false
		}
	}
	return true
}

// Equal reports whether two states have the same matrix and cull rect.
func (s MatrixClipState) Equal(o MatrixClipState) bool {
	return s.matrix == o.matrix && s.cull == o.cull
}
