package flow

import (
	"math"

	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/matrix"
)

// Matrix is a 4x4 homogeneous transform stored in row-major order:
//
//	| M[0]  M[1]  M[2]  M[3]  |
//	| M[4]  M[5]  M[6]  M[7]  |
//	| M[8]  M[9]  M[10] M[11] |
//	| M[12] M[13] M[14] M[15] |
//
// A 2D point (x, y) maps to
//
//	x' = (M[0]*x + M[1]*y + M[3]) / w
//	y' = (M[4]*x + M[5]*y + M[7]) / w
//	w  =  M[12]*x + M[13]*y + M[15]
//
// The zero value is not the identity; use Identity.
type Matrix [16]float64

const nearlyZero = 1e-12

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(tx, ty float64) Matrix {
	m := Identity()
	m[3], m[7] = tx, ty
	return m
}

// Scale creates a scaling matrix.
func Scale(sx, sy float64) Matrix {
	m := Identity()
	m[0], m[5] = sx, sy
	return m
}

// Skew creates a skew matrix: x' = x + kx*y, y' = ky*x + y.
func Skew(kx, ky float64) Matrix {
	m := Identity()
	m[1], m[4] = kx, ky
	return m
}

// Rotate creates a rotation matrix about the Z axis (angle in radians).
func Rotate(radians float64) Matrix {
	sin, cos := math.Sincos(radians)
	// Snap so quarter turns stay exactly axis-aligned.
	if math.Abs(sin) < nearlyZero {
		sin = 0
	}
	if math.Abs(cos) < nearlyZero {
		cos = 0
	}
	m := Identity()
	m[0], m[1] = cos, -sin
	m[4], m[5] = sin, cos
	return m
}

// MakeAffine2D creates a matrix from the six coefficients of a 2D affine
// transform: x' = mxx*x + mxy*y + mxt, y' = myx*x + myy*y + myt.
func MakeAffine2D(mxx, mxy, mxt, myx, myy, myt float64) Matrix {
	return Matrix{
		mxx, mxy, 0, mxt,
		myx, myy, 0, myt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Multiply returns m * o. Applied to a point, o acts first.
func (m Matrix) Multiply(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i*4+j] = m[i*4]*o[j] + m[i*4+1]*o[4+j] + m[i*4+2]*o[8+j] + m[i*4+3]*o[12+j]
		}
	}
	return r
}

// cofactors holds the 2x2 sub-determinants shared by Determinant and Invert.
type cofactors struct {
	s0, s1, s2, s3, s4, s5 float64
	c0, c1, c2, c3, c4, c5 float64
}

func (m *Matrix) cofactors() cofactors {
	return cofactors{
		s0: m[0]*m[5] - m[4]*m[1],
		s1: m[0]*m[6] - m[4]*m[2],
		s2: m[0]*m[7] - m[4]*m[3],
		s3: m[1]*m[6] - m[5]*m[2],
		s4: m[1]*m[7] - m[5]*m[3],
		s5: m[2]*m[7] - m[6]*m[3],

		c5: m[10]*m[15] - m[14]*m[11],
		c4: m[9]*m[15] - m[13]*m[11],
		c3: m[9]*m[14] - m[13]*m[10],
		c2: m[8]*m[15] - m[12]*m[11],
		c1: m[8]*m[14] - m[12]*m[10],
		c0: m[8]*m[13] - m[12]*m[9],
	}
}

func (c cofactors) det() float64 {
	return c.s0*c.c5 - c.s1*c.c4 + c.s2*c.c3 + c.s3*c.c2 - c.s4*c.c1 + c.s5*c.c0
}

// Determinant returns the determinant of the full 4x4 matrix.
func (m Matrix) Determinant() float64 {
	return m.cofactors().det()
}

// IsInvertible reports whether the determinant is non-zero and finite.
func (m Matrix) IsInvertible() bool {
	d := m.Determinant()
	return d != 0 && isFinite(d)
}

// Invert returns the inverse matrix. ok is false, and the identity is
// returned, when m is not invertible.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	c := m.cofactors()
	det := c.det()
	if det == 0 || !isFinite(det) {
		return Identity(), false
	}
	id := 1 / det

	inv[0] = (m[5]*c.c5 - m[6]*c.c4 + m[7]*c.c3) * id
	inv[1] = (-m[1]*c.c5 + m[2]*c.c4 - m[3]*c.c3) * id
	inv[2] = (m[13]*c.s5 - m[14]*c.s4 + m[15]*c.s3) * id
	inv[3] = (-m[9]*c.s5 + m[10]*c.s4 - m[11]*c.s3) * id

	inv[4] = (-m[4]*c.c5 + m[6]*c.c2 - m[7]*c.c1) * id
	inv[5] = (m[0]*c.c5 - m[2]*c.c2 + m[3]*c.c1) * id
	inv[6] = (-m[12]*c.s5 + m[14]*c.s2 - m[15]*c.s1) * id
	inv[7] = (m[8]*c.s5 - m[10]*c.s2 + m[11]*c.s1) * id

	inv[8] = (m[4]*c.c4 - m[5]*c.c2 + m[7]*c.c0) * id
	inv[9] = (-m[0]*c.c4 + m[1]*c.c2 - m[3]*c.c0) * id
	inv[10] = (m[12]*c.s4 - m[13]*c.s2 + m[15]*c.s0) * id
	inv[11] = (-m[8]*c.s4 + m[9]*c.s2 - m[11]*c.s0) * id

	inv[12] = (-m[4]*c.c3 + m[5]*c.c1 - m[6]*c.c0) * id
	inv[13] = (m[0]*c.c3 - m[1]*c.c1 + m[2]*c.c0) * id
	inv[14] = (-m[12]*c.s3 + m[13]*c.s1 - m[14]*c.s0) * id
	inv[15] = (m[8]*c.s3 - m[9]*c.s1 + m[10]*c.s0) * id

	return inv, true
}

// IsIdentity returns true if the matrix is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// HasPerspective reports whether the bottom row differs from [0 0 0 1].
func (m Matrix) HasPerspective() bool {
	return m[12] != 0 || m[13] != 0 || m[14] != 0 || m[15] != 1
}

// IsAffine2D reports whether the third row and column are the identity and
// there are no perspective terms, i.e. the matrix is a plain 2D affine map.
func (m Matrix) IsAffine2D() bool {
	return m[2] == 0 && m[6] == 0 &&
		m[8] == 0 && m[9] == 0 && m[10] == 1 && m[11] == 0 &&
		!m.HasPerspective()
}

// IsTranslate reports whether the matrix is a pure translation.
func (m Matrix) IsTranslate() bool {
	return m.IsAffine2D() && m[0] == 1 && m[1] == 0 && m[4] == 0 && m[5] == 1
}

// IsScaleTranslate reports whether the matrix only scales and translates.
func (m Matrix) IsScaleTranslate() bool {
	return m.IsAffine2D() && m[1] == 0 && m[4] == 0
}

// RectStaysRect reports whether every axis-aligned rectangle maps to an
// axis-aligned rectangle: scale/translate or a multiple of 90 degrees of
// rotation, with no degenerate axis.
func (m Matrix) RectStaysRect() bool {
	if !m.IsAffine2D() {
		return false
	}
	if m[1] == 0 && m[4] == 0 {
		return m[0] != 0 && m[5] != 0
	}
	if m[0] == 0 && m[5] == 0 {
		return m[1] != 0 && m[4] != 0
	}
	return false
}

// Translation returns the X and Y translation components.
func (m Matrix) Translation() (tx, ty float64) {
	return m[3], m[7]
}

// WithTranslation returns a copy of m with its X and Y translation replaced.
func (m Matrix) WithTranslation(tx, ty float64) Matrix {
	m[3], m[7] = tx, ty
	return m
}

// MapPoint transforms p. ok is false when the point maps to or behind the
// perspective horizon (w <= 0).
func (m Matrix) MapPoint(p Point) (Point, bool) {
	x := m[0]*p.X + m[1]*p.Y + m[3]
	y := m[4]*p.X + m[5]*p.Y + m[7]
	if !m.HasPerspective() {
		return Point{X: x, Y: y}, true
	}
	w := m[12]*p.X + m[13]*p.Y + m[15]
	if w <= 0 || !isFinite(w) {
		return Point{}, false
	}
	return Point{X: x / w, Y: y / w}, true
}

// MapRect returns the bounds of r's four transformed corners. If any corner
// lands behind the perspective horizon the result is GiantRect, which
// conservatively stands in for "unbounded".
func (m Matrix) MapRect(r Rect) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	if m.IsScaleTranslate() {
		return Rect{
			Left:   math.Min(r.Left*m[0]+m[3], r.Right*m[0]+m[3]),
			Top:    math.Min(r.Top*m[5]+m[7], r.Bottom*m[5]+m[7]),
			Right:  math.Max(r.Left*m[0]+m[3], r.Right*m[0]+m[3]),
			Bottom: math.Max(r.Top*m[5]+m[7], r.Bottom*m[5]+m[7]),
		}
	}
	var pts [4]Point
	for i, c := range r.Corners() {
		p, ok := m.MapPoint(c)
		if !ok {
			return GiantRect
		}
		pts[i] = p
	}
	return BoundsOf(pts[:])
}

// Affine converts m to a seehuhn.de/go/geom matrix ([a b c d e f] with
// x' = a*x + c*y + e). ok is false when m is not a 2D affine transform.
func (m Matrix) Affine() (matrix.Matrix, bool) {
	return matrix.Matrix{m[0], m[4], m[1], m[5], m[3], m[7]}, m.IsAffine2D()
}

// FromAffine converts a seehuhn.de/go/geom matrix to a Matrix.
func FromAffine(a matrix.Matrix) Matrix {
	return MakeAffine2D(a[0], a[2], a[4], a[1], a[3], a[5])
}

// Aff3 converts m to an x/image row-major 2x3 affine. ok is false when m is
// not a 2D affine transform.
func (m Matrix) Aff3() (f64.Aff3, bool) {
	return f64.Aff3{m[0], m[1], m[3], m[4], m[5], m[7]}, m.IsAffine2D()
}

// FromAff3 converts an x/image affine to a Matrix.
func FromAff3(a f64.Aff3) Matrix {
	return MakeAffine2D(a[0], a[1], a[2], a[3], a[4], a[5])
}

// Mat3 converts m to an x/image row-major 3x3 homogeneous 2D matrix. ok is
// false when m depends on, or writes, the Z axis.
func (m Matrix) Mat3() (f64.Mat3, bool) {
	ok := m[2] == 0 && m[6] == 0 && m[14] == 0 &&
		m[8] == 0 && m[9] == 0 && m[10] == 1 && m[11] == 0
	return f64.Mat3{m[0], m[1], m[3], m[4], m[5], m[7], m[12], m[13], m[15]}, ok
}

// FromMat3 converts an x/image 3x3 homogeneous matrix to a Matrix.
func FromMat3(a f64.Mat3) Matrix {
	return Matrix{
		a[0], a[1], 0, a[2],
		a[3], a[4], 0, a[5],
		0, 0, 1, 0,
		a[6], a[7], 0, a[8],
	}
}

// NearlyEqual reports whether every element of m and o differs by at most
// tol.
func (m Matrix) NearlyEqual(o Matrix, tol float64) bool {
	for i := range m {
		if math.Abs(m[i]-o[i]) > tol {
			return false
		}
	}
	return true
}
