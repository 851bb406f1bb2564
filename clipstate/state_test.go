package clipstate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gogpu/flow"
)

var screen = flow.MakeWH(100, 100)

func TestCompositionMatchesProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		s := New(screen, flow.Identity())
		want := flow.Identity()
		type op func()
		var replay []op
		for i := 0; i < 8; i++ {
			a, b := rng.Float64()*4-2, rng.Float64()*4-2
			switch rng.Intn(3) {
			case 0:
				want = want.Multiply(flow.Translate(a*50, b*50))
				replay = append(replay, func() { s.Translate(a*50, b*50) })
			case 1:
				want = want.Multiply(flow.Scale(a, b))
				replay = append(replay, func() { s.Scale(a, b) })
			case 2:
				want = want.Multiply(flow.Rotate(a))
				replay = append(replay, func() { s.Rotate(a) })
			}
		}
		for _, f := range replay {
			f()
		}
		if got := s.Matrix(); !got.NearlyEqual(want, 1e-9) {
			t.Fatalf("trial %d: matrix = %v, want %v", trial, got, want)
		}

		// SetIdentity followed by the same sequence reproduces it.
		s.Translate(7, 9)
		s.SetIdentity()
		for _, f := range replay {
			f()
		}
		if got := s.Matrix(); !got.NearlyEqual(want, 1e-9) {
			t.Fatalf("trial %d: after SetIdentity matrix = %v, want %v", trial, got, want)
		}
	}
}

func TestTransformVariants(t *testing.T) {
	s := New(screen, flow.Identity())
	s.Transform2DAffine(2, 0, 5, 0, 3, 7)
	if want := flow.Translate(5, 7).Multiply(flow.Scale(2, 3)); s.Matrix() != want {
		t.Errorf("Transform2DAffine matrix = %v, want %v", s.Matrix(), want)
	}

	s.SetIdentity()
	s.TransformFullPerspective(
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0.01, 0, 0, 1,
	)
	if !s.HasPerspective() {
		t.Error("HasPerspective() = false after TransformFullPerspective")
	}

	s.SetTransform(flow.Scale(4, 4))
	s.Skew(0.5, 0)
	if want := flow.Scale(4, 4).Multiply(flow.Skew(0.5, 0)); s.Matrix() != want {
		t.Errorf("Skew matrix = %v, want %v", s.Matrix(), want)
	}
}

func TestInverseTransformRoundTrip(t *testing.T) {
	ms := []flow.Matrix{
		flow.Translate(10, 20),
		flow.Scale(2, 0.5),
		flow.Translate(3, 4).Multiply(flow.Rotate(0.8)).Multiply(flow.Scale(1.5, 2)),
		flow.Skew(0.2, 0.1),
	}
	for i, m := range ms {
		base := flow.Translate(-3, 8).Multiply(flow.Rotate(0.2))
		s := New(screen, base)
		other := New(screen, m)

		if !s.InverseTransform(other) {
			t.Fatalf("case %d: InverseTransform() = false, want true", i)
		}
		s.Transform(m)
		if got := s.Matrix(); !got.NearlyEqual(base, 1e-9) {
			t.Errorf("case %d: round trip = %v, want %v", i, got, base)
		}
	}
}

func TestInverseTransformSingularLeavesStateUnchanged(t *testing.T) {
	s := New(flow.MakeLTRB(10, 10, 90, 90), flow.Translate(1, 2).Multiply(flow.Rotate(0.3)))
	before := s
	if s.InverseTransform(New(screen, flow.Scale(0, 1))) {
		t.Fatal("InverseTransform(singular) = true, want false")
	}
	if s != before {
		t.Errorf("state changed: got %+v, want %+v", s, before)
	}
}

func TestLocalCullRect(t *testing.T) {
	s := New(flow.MakeLTRB(10, 20, 30, 40), flow.Translate(10, 20).Multiply(flow.Scale(2, 2)))
	if got, want := s.LocalCullRect(), flow.MakeLTRB(0, 0, 10, 10); got != want {
		t.Errorf("LocalCullRect() = %v, want %v", got, want)
	}

	s.SetTransform(flow.Scale(0, 1))
	if got := s.LocalCullRect(); got != flow.GiantRect {
		t.Errorf("LocalCullRect() with singular matrix = %v, want GiantRect", got)
	}

	empty := New(flow.Rect{}, flow.Identity())
	if got := empty.LocalCullRect(); !got.IsEmpty() {
		t.Errorf("LocalCullRect() of empty cull = %v, want empty", got)
	}
}

func TestResetCullRect(t *testing.T) {
	s := New(flow.MakeWH(10, 10), flow.Scale(2, 2))
	s.ResetLocalCullRect(flow.MakeWH(50, 50))
	if got, want := s.DeviceCullRect(), flow.MakeWH(100, 100); got != want {
		t.Errorf("after ResetLocalCullRect: %v, want %v", got, want)
	}
	s.ResetDeviceCullRect(flow.MakeLTRB(5, 5, 6, 6))
	if got, want := s.DeviceCullRect(), flow.MakeLTRB(5, 5, 6, 6); got != want {
		t.Errorf("after ResetDeviceCullRect: %v, want %v", got, want)
	}
	s.ResetDeviceCullRect(flow.MakeLTRB(5, 5, 5, 6))
	if !s.IsCullRectEmpty() {
		t.Error("empty reset should leave an empty cull rect")
	}
}

func TestMapRect(t *testing.T) {
	s := New(screen, flow.Translate(10, 10))
	dst, aligned := s.MapRect(flow.MakeWH(5, 5))
	if !aligned || dst != flow.MakeLTRB(10, 10, 15, 15) {
		t.Errorf("MapRect() = %v, %v; want {10 10 15 15}, true", dst, aligned)
	}

	s.Rotate(0.5)
	if _, aligned := s.MapRect(flow.MakeWH(5, 5)); aligned {
		t.Error("MapRect() under rotation reported aligned")
	}

	s = New(flow.MakeWH(50, 50), flow.Identity())
	got, ok := s.MapAndClipRect(flow.MakeLTRB(40, 40, 80, 80))
	if !ok || got != flow.MakeLTRB(40, 40, 50, 50) {
		t.Errorf("MapAndClipRect() = %v, %v; want {40 40 50 50}, true", got, ok)
	}
	if _, ok := s.MapAndClipRect(flow.MakeLTRB(60, 60, 80, 80)); ok {
		t.Error("MapAndClipRect() outside cull: ok = true, want false")
	}
}

func TestContentCulled(t *testing.T) {
	tests := []struct {
		name    string
		cull    flow.Rect
		m       flow.Matrix
		content flow.Rect
		want    bool
	}{
		{"inside", screen, flow.Identity(), flow.MakeLTRB(10, 10, 20, 20), false},
		{"outside", screen, flow.Identity(), flow.MakeLTRB(110, 10, 120, 20), true},
		{"translated in", screen, flow.Translate(-100, 0), flow.MakeLTRB(110, 10, 120, 20), false},
		{"empty content", screen, flow.Identity(), flow.Rect{}, true},
		{"empty cull", flow.Rect{}, flow.Identity(), flow.MakeWH(10, 10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.cull, tt.m)
			if got := s.ContentCulled(tt.content); got != tt.want {
				t.Errorf("ContentCulled(%v) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

// rotatedAboutCenter rotates the unit square by angle around (0.5, 0.5).
func rotatedAboutCenter(angle float64) flow.Matrix {
	return flow.Translate(0.5, 0.5).Multiply(flow.Rotate(angle)).Multiply(flow.Translate(-0.5, -0.5))
}

func TestRectCoversCullUnderRotation(t *testing.T) {
	unit := flow.MakeWH(1, 1)
	m := rotatedAboutCenter(math.Pi / 4)

	// The rotated square's device bounding box does contain the unrotated
	// square, so a bounding-box test would wrongly report coverage.
	if !m.MapRect(unit).Contains(unit) {
		t.Fatal("precondition: rotated bounds should contain the unit square")
	}

	s := New(unit, m)
	if s.RectCoversCull(unit) {
		t.Error("rotated unit square must not cover its own unrotated bounds")
	}

	inner := New(flow.MakeLTRB(0.4, 0.4, 0.6, 0.6), m)
	if !inner.RectCoversCull(unit) {
		t.Error("rotated unit square should cover a small centered cull rect")
	}
}

func TestCoversCull(t *testing.T) {
	small := New(flow.MakeLTRB(40, 40, 60, 60), flow.Identity())
	full := New(screen, flow.Identity())
	empty := New(flow.Rect{}, flow.Identity())
	inset := New(flow.MakeLTRB(10, 10, 90, 90), flow.Identity())
	singular := New(screen, flow.Scale(0, 1))
	rr := flow.RRectFromRectXY(screen, 20, 20)

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"rect covers small", small.RectCoversCull(screen), true},
		{"rect covers itself", full.RectCoversCull(screen), true},
		{"rect misses", full.RectCoversCull(flow.MakeWH(50, 100)), false},
		{"empty content", full.RectCoversCull(flow.Rect{}), false},
		{"empty cull", empty.RectCoversCull(screen), true},
		{"oval covers small", small.OvalCoversCull(screen), true},
		{"oval misses corners", full.OvalCoversCull(screen), false},
		{"rrect covers small", small.RRectCoversCull(rr), true},
		{"rrect misses corners", full.RRectCoversCull(rr), false},
		{"rrect covers inset", inset.RRectCoversCull(rr), true},
		{"singular matrix", singular.RectCoversCull(flow.GiantRect), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestTransformedOvalCoversBoundsRotated(t *testing.T) {
	// A circle is rotation invariant: rotating it must not change coverage.
	circle := flow.MakeLTRB(-50, -50, 50, 50)
	cover := flow.MakeLTRB(-30, -30, 30, 30)
	for _, angle := range []float64{0, 0.3, math.Pi / 4, 2} {
		if !TransformedOvalCoversBounds(circle, flow.Rotate(angle), cover) {
			t.Errorf("angle %v: circle should cover %v", angle, cover)
		}
	}
	if TransformedOvalCoversBounds(circle, flow.Identity(), flow.MakeLTRB(-40, -40, 40, 40)) {
		t.Error("corners at radius 56.6 lie outside a radius 50 circle")
	}
}

func TestLocalCullCornersPerspective(t *testing.T) {
	m := flow.Identity()
	m[12] = -0.02
	// The inverse has w = 1 + 0.02x, so device corners at x = -100 map
	// behind the horizon.
	s := New(flow.MakeLTRB(-100, 0, 100, 100), m)
	if _, ok := s.LocalCullCorners(); ok {
		t.Error("LocalCullCorners() crossing the horizon: ok = true, want false")
	}
	if s.RectCoversCull(flow.GiantRect) {
		t.Error("coverage must not be proven when corners cannot be mapped")
	}
}

func BenchmarkRectCoversCull(b *testing.B) {
	s := New(flow.MakeLTRB(0, 0, 800, 600), flow.Translate(400, 300).Multiply(flow.Rotate(0.3)))
	content := flow.MakeLTRB(-1000, -1000, 1000, 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.RectCoversCull(content)
	}
}
