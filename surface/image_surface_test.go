// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/flow"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func alphaAt(s *ImageSurface, x, y int) uint8 {
	return s.Image().RGBAAt(x, y).A
}

func TestNewImageSurface(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{100, 50, 100, 50},
		{0, 0, 1, 1},
		{-3, 7, 1, 7},
	}
	for _, tt := range tests {
		s := NewImageSurface(tt.w, tt.h)
		if s.Width() != tt.wantW || s.Height() != tt.wantH {
			t.Errorf("NewImageSurface(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, s.Width(), s.Height(), tt.wantW, tt.wantH)
		}
	}
}

func TestImageSurfaceDescriptor(t *testing.T) {
	d := NewImageSurface(64, 32).Descriptor()
	if d.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want RGBA8Unorm", d.Format)
	}
	if d.Size.Width != 64 || d.Size.Height != 32 || d.Size.DepthOrArrayLayers != 1 {
		t.Errorf("Size = %+v, want 64x32x1", d.Size)
	}
}

func TestImageSurfaceClear(t *testing.T) {
	s := NewImageSurface(10, 10)
	s.Clear(color.RGBA{R: 255, A: 255})
	if c := s.Snapshot().RGBAAt(5, 5); c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v, want opaque red", c)
	}
}

func TestImageSurfaceClearRespectsClip(t *testing.T) {
	s := NewImageSurface(100, 100)
	s.ClipRect(flow.MakeWH(50, 100), flow.ClipIntersect, false)
	s.Clear(color.White)
	if alphaAt(s, 25, 50) != 255 || alphaAt(s, 75, 50) != 0 {
		t.Errorf("alpha inside/outside clip = %d/%d, want 255/0", alphaAt(s, 25, 50), alphaAt(s, 75, 50))
	}
}

func TestImageSurfaceDrawRect(t *testing.T) {
	s := NewImageSurface(100, 100)
	s.Clear(color.White)
	s.DrawRect(flow.MakeLTRB(25, 25, 75, 75), flow.Fill(red))

	img := s.Snapshot()
	if c := img.RGBAAt(10, 10); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("corner pixel = %v, should be white", c)
	}
	if c := img.RGBAAt(50, 50); c != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("center pixel = %v, should be red", c)
	}
}

func TestImageSurfaceTransform(t *testing.T) {
	s := NewImageSurface(100, 100)
	s.Translate(50, 0)
	s.Scale(2, 2)
	s.DrawRect(flow.MakeWH(10, 10), flow.Fill(red))
	if alphaAt(s, 65, 15) != 255 {
		t.Errorf("alpha at (65,15) = %d, want 255", alphaAt(s, 65, 15))
	}
	if alphaAt(s, 5, 5) != 0 || alphaAt(s, 75, 5) != 0 {
		t.Error("draw leaked outside its transformed bounds")
	}
}

func TestImageSurfaceClips(t *testing.T) {
	tests := []struct {
		name      string
		clip      func(s *ImageSurface)
		in, out   image.Point
		partialAt *image.Point
	}{
		{
			name: "intersect",
			clip: func(s *ImageSurface) { s.ClipRect(flow.MakeWH(50, 100), flow.ClipIntersect, true) },
			in:   image.Pt(25, 50), out: image.Pt(75, 50),
		},
		{
			name: "difference",
			clip: func(s *ImageSurface) { s.ClipRect(flow.MakeWH(50, 100), flow.ClipDifference, true) },
			in:   image.Pt(75, 50), out: image.Pt(25, 50),
		},
		{
			name: "rrect corner",
			clip: func(s *ImageSurface) {
				s.ClipRRect(flow.RRectFromRectXY(flow.MakeWH(100, 100), 30, 30), flow.ClipIntersect, true)
			},
			in: image.Pt(50, 50), out: image.Pt(1, 1),
		},
		{
			name: "path",
			clip: func(s *ImageSurface) {
				p := flow.NewPath()
				p.MoveTo(0, 0)
				p.LineTo(100, 0)
				p.LineTo(0, 100)
				p.Close()
				s.ClipPath(p, flow.ClipIntersect, true)
			},
			in: image.Pt(10, 10), out: image.Pt(90, 90),
		},
		{
			name: "anti-aliased edge",
			clip: func(s *ImageSurface) { s.ClipRect(flow.MakeLTRB(0, 0, 50.5, 100), flow.ClipIntersect, true) },
			in:   image.Pt(25, 50), out: image.Pt(75, 50), partialAt: &image.Point{X: 50, Y: 50},
		},
		{
			name: "aliased edge",
			clip: func(s *ImageSurface) { s.ClipRect(flow.MakeLTRB(0, 0, 50.4, 100), flow.ClipIntersect, false) },
			in:   image.Pt(49, 50), out: image.Pt(50, 50),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewImageSurface(100, 100)
			tt.clip(s)
			s.DrawRect(flow.MakeWH(100, 100), flow.Fill(red))
			if a := alphaAt(s, tt.in.X, tt.in.Y); a != 255 {
				t.Errorf("alpha at %v = %d, want 255", tt.in, a)
			}
			if a := alphaAt(s, tt.out.X, tt.out.Y); a != 0 {
				t.Errorf("alpha at %v = %d, want 0", tt.out, a)
			}
			if tt.partialAt != nil {
				if a := alphaAt(s, tt.partialAt.X, tt.partialAt.Y); a == 0 || a == 255 {
					t.Errorf("alpha at %v = %d, want partial", *tt.partialAt, a)
				}
			}
		})
	}
}

func TestImageSurfaceRestoreDropsClip(t *testing.T) {
	s := NewImageSurface(100, 100)
	count := s.Save()
	s.ClipRect(flow.MakeWH(10, 10), flow.ClipIntersect, true)
	s.Translate(30, 30)
	s.RestoreToCount(count)

	if !s.TotalMatrix().IsIdentity() {
		t.Errorf("TotalMatrix() = %v after restore, want identity", s.TotalMatrix())
	}
	s.DrawRect(flow.MakeWH(100, 100), flow.Fill(red))
	if alphaAt(s, 75, 75) != 255 {
		t.Error("clip survived Restore")
	}
}

func TestImageSurfaceSaveLayerBounds(t *testing.T) {
	s := NewImageSurface(100, 100)
	b := flow.MakeWH(50, 50)
	if got := s.SaveLayer(&b, nil); got != 1 {
		t.Errorf("SaveLayer() = %d, want 1", got)
	}
	s.DrawRect(flow.MakeWH(100, 100), flow.Fill(red))
	if alphaAt(s, 25, 25) != 0 {
		t.Error("layer content reached the surface before Restore")
	}
	s.Restore()
	if alphaAt(s, 25, 25) != 255 || alphaAt(s, 75, 75) != 0 {
		t.Errorf("alpha inside/outside layer bounds = %d/%d, want 255/0", alphaAt(s, 25, 25), alphaAt(s, 75, 75))
	}
}

func TestImageSurfaceSaveLayerBlur(t *testing.T) {
	s := NewImageSurface(100, 100)
	s.SaveLayer(nil, &flow.Paint{Filter: flow.Blur(3, 3)})
	s.DrawRect(flow.MakeLTRB(40, 40, 60, 60), flow.Fill(red))
	s.Restore()

	if a := alphaAt(s, 37, 50); a == 0 {
		t.Error("blur did not spread outside the drawn rect")
	}
	if a := alphaAt(s, 40, 50); a == 0 || a == 255 {
		t.Errorf("blurred edge alpha = %d, want softened", a)
	}
	if a := alphaAt(s, 5, 5); a != 0 {
		t.Errorf("alpha far from content = %d, want 0", a)
	}
}

func TestImageSurfaceDrawShadow(t *testing.T) {
	occluder := flow.PathFromRect(flow.MakeLTRB(30, 30, 70, 70))

	s := NewImageSurface(100, 100)
	s.DrawShadow(occluder, black, 8, false, 1)
	if a := alphaAt(s, 50, 75); a == 0 {
		t.Error("no shadow below the occluder")
	}
	if a := alphaAt(s, 50, 50); a != 0 {
		t.Errorf("shadow under opaque occluder alpha = %d, want 0", a)
	}
	if a := alphaAt(s, 2, 2); a != 0 {
		t.Errorf("shadow outside its bounds alpha = %d, want 0", a)
	}

	s = NewImageSurface(100, 100)
	s.DrawShadow(occluder, black, 8, true, 1)
	if a := alphaAt(s, 50, 50); a == 0 {
		t.Error("transparent occluder hid its shadow")
	}

	s = NewImageSurface(100, 100)
	s.DrawShadow(occluder, black, 0, true, 1)
	if a := alphaAt(s, 50, 75); a != 0 {
		t.Errorf("zero elevation drew a shadow, alpha = %d", a)
	}
}

func TestImageSurfaceDrawImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 255, 255
	}

	s := NewImageSurface(20, 20)
	s.DrawImage(src, flow.Pt(10, 10), nil)
	if alphaAt(s, 11, 11) != 255 || alphaAt(s, 9, 9) != 0 || alphaAt(s, 14, 14) != 0 {
		t.Error("translated blit landed in the wrong place")
	}

	s = NewImageSurface(20, 20)
	s.Scale(2, 2)
	s.DrawImage(src, flow.Pt(0, 0), nil)
	if alphaAt(s, 7, 7) != 255 || alphaAt(s, 9, 9) != 0 {
		t.Error("scaled image has the wrong extent")
	}

	s = NewImageSurface(20, 20)
	s.ClipRect(flow.MakeWH(12, 20), flow.ClipIntersect, false)
	s.DrawImage(src, flow.Pt(10, 10), nil)
	if alphaAt(s, 11, 11) != 255 || alphaAt(s, 12, 12) != 0 {
		t.Error("blit ignored the clip")
	}
}

func TestImageSurfaceResize(t *testing.T) {
	s := NewImageSurface(10, 10)
	s.Translate(5, 5)
	s.Save()
	if err := s.Resize(30, 20); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if s.Width() != 30 || s.Height() != 20 {
		t.Errorf("size = %dx%d, want 30x20", s.Width(), s.Height())
	}
	if s.SaveCount() != 1 || !s.TotalMatrix().IsIdentity() {
		t.Error("Resize() did not reset canvas state")
	}
	if err := s.Resize(0, 5); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Resize(0, 5) error = %v, want ErrInvalidSize", err)
	}

	if err := s.Present(); err != nil || s.Presents() != 1 {
		t.Errorf("Present() = %v, Presents() = %d", err, s.Presents())
	}
	_ = s.Close()
	if err := s.Present(); !errors.Is(err, ErrClosed) {
		t.Errorf("Present() after Close = %v, want ErrClosed", err)
	}
	if s.Snapshot() != nil {
		t.Error("Snapshot() after Close should be nil")
	}
}

func TestRegistry(t *testing.T) {
	s, err := New("image", 8, 4)
	if err != nil {
		t.Fatalf(`New("image") error = %v`, err)
	}
	if s.Width() != 8 || s.Height() != 4 {
		t.Errorf("size = %dx%d, want 8x4", s.Width(), s.Height())
	}

	_, err = New("vulkan", 8, 4)
	var nf *BackendNotFoundError
	if !errors.As(err, &nf) || nf.Name != "vulkan" {
		t.Errorf(`New("vulkan") error = %v, want BackendNotFoundError`, err)
	}

	r := NewRegistry()
	r.Register("b", nil)
	r.Register("a", nil)
	if got := r.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", got)
	}
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(2)
	if len(k) != 13 {
		t.Fatalf("len = %d, want 13", len(k))
	}
	var sum float32
	for i, v := range k {
		sum += v
		if v != k[len(k)-1-i] {
			t.Errorf("kernel not symmetric at %d", i)
		}
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("kernel sum = %v, want 1", sum)
	}
	if got := gaussianKernel(0); len(got) != 1 || got[0] != 1 {
		t.Errorf("gaussianKernel(0) = %v, want [1]", got)
	}
}

func TestBlurAlpha(t *testing.T) {
	m := image.NewAlpha(image.Rect(0, 0, 21, 21))
	m.SetAlpha(10, 10, color.Alpha{A: 255})
	blurAlpha(m, 2, 2)
	if m.AlphaAt(10, 10).A == 255 {
		t.Error("center not spread")
	}
	if m.AlphaAt(8, 10) != m.AlphaAt(12, 10) || m.AlphaAt(10, 8) != m.AlphaAt(10, 12) {
		t.Error("blur not symmetric")
	}
}
