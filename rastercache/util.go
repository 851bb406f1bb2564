package rastercache

import (
	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/matrix"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/displaylist"
)

// Admission constants.
const (
	// DefaultPictureAndDisplayListCacheLimitPerFrame bounds how many new
	// display list images one frame may rasterize. Hits are unlimited.
	DefaultPictureAndDisplayListCacheLimitPerFrame = 3

	// MinimumRendersBeforeCachingFilterLayer is how many consecutive frames
	// a filter layer must render unchanged before its output is cached.
	MinimumRendersBeforeCachingFilterLayer = 3

	// DefaultAccessThreshold is how many frames a display list must be seen
	// before it is rasterized.
	DefaultAccessThreshold = 3

	// minimumOpCount is the op count above which a simple display list is
	// worth caching.
	minimumOpCount = 5
)

// CanRasterizeRect reports whether a surface can be allocated for r. Empty
// rects have nothing to cache; non-finite rects would need unbounded memory
// and usually point at unbounded content upstream, so they are logged.
func CanRasterizeRect(r flow.Rect) bool {
	if r.IsEmpty() {
		return false
	}
	if !r.IsFinite() {
		flow.Logger().Warn("rastercache: cannot rasterize non-finite rect",
			"left", r.Left, "top", r.Top, "right", r.Right, "bottom", r.Bottom)
		return false
	}
	return true
}

// GetDeviceBounds maps local bounds through ctm into device space.
func GetDeviceBounds(r flow.Rect, ctm flow.Matrix) flow.Rect {
	return ctm.MapRect(r)
}

// GetRoundedOutDeviceBounds is GetDeviceBounds expanded to whole pixels, so
// the cached image covers the content under any fractional offset.
func GetRoundedOutDeviceBounds(r flow.Rect, ctm flow.Matrix) flow.Rect {
	return ctm.MapRect(r).RoundOut()
}

// Matrix is the set of matrix representations ComputeIntegralTransCTM
// accepts.
type Matrix interface {
	flow.Matrix | matrix.Matrix | f64.Aff3 | f64.Mat3
}

// ComputeIntegralTransCTM snaps the translation of a scale+translate matrix
// to whole device pixels, rounding half up. For any other matrix it returns
// in unchanged and false.
func ComputeIntegralTransCTM[M Matrix](in M) (M, bool) {
	m, ok := toMatrix(in)
	if !ok || !m.IsScaleTranslate() {
		return in, false
	}
	tx, ty := m.Translation()
	return fromMatrix[M](m.WithTranslation(flow.RoundHalfUp(tx), flow.RoundHalfUp(ty))), true
}

// toMatrix widens any supported representation to a flow.Matrix. A Mat3
// with perspective terms converts fine and then fails IsScaleTranslate.
func toMatrix[M Matrix](in M) (flow.Matrix, bool) {
	switch v := any(in).(type) {
	case flow.Matrix:
		return v, true
	case matrix.Matrix:
		return flow.FromAffine(v), true
	case f64.Aff3:
		return flow.FromAff3(v), true
	case f64.Mat3:
		return flow.FromMat3(v), true
	}
	return flow.Matrix{}, false
}

func fromMatrix[M Matrix](m flow.Matrix) M {
	var out M
	switch p := any(&out).(type) {
	case *flow.Matrix:
		*p = m
	case *matrix.Matrix:
		*p, _ = m.Affine()
	case *f64.Aff3:
		*p, _ = m.Aff3()
	case *f64.Mat3:
		*p, _ = m.Mat3()
	}
	return out
}

// IsDisplayListWorthRasterizing reports whether caching dl can pay off.
// Content that will change is never cached. Complex content always is, and
// simple content must hold more than a handful of ops.
func IsDisplayListWorthRasterizing(dl *displaylist.DisplayList, willChange, isComplex bool) bool {
	if dl == nil || willChange {
		return false
	}
	if !CanRasterizeRect(dl.Bounds()) {
		return false
	}
	if isComplex {
		return true
	}
	return dl.OpCount() > minimumOpCount
}
