// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterizer

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/config"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/layer"
	"github.com/gogpu/flow/surface"
)

var red = color.NRGBA{R: 255, A: 255}

// stepClock advances by step on every reading, so each timed lap lasts
// exactly step.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func redTree(size int, built time.Duration) *layer.Tree {
	rec := displaylist.NewRecorder(flow.Rect{})
	rec.DrawRect(flow.MakeLTRB(4, 4, 12, 12), flow.Fill(red))
	root := layer.NewDisplayListLayer(flow.Point{}, rec.Finish(), false, false)
	return layer.NewTree(root, image.Pt(size, size), layer.WithConstructionTime(built))
}

func newTestRasterizer(t *testing.T, opts ...Option) (*Rasterizer, *surface.ImageSurface) {
	t.Helper()
	s := surface.NewImageSurface(1, 1)
	r, err := New(append([]Option{WithSurface(s)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, s
}

func TestDoDraw(t *testing.T) {
	r, s := newTestRasterizer(t)

	if !r.DoDraw(redTree(32, 3*time.Millisecond)) {
		t.Fatal("DoDraw() = false, want true")
	}
	if s.Width() != 32 || s.Height() != 32 {
		t.Errorf("surface size = %dx%d, want 32x32", s.Width(), s.Height())
	}
	if s.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", s.Presents())
	}
	img := s.Image()
	if got := img.RGBAAt(8, 8); got.R != 255 || got.G != 0 {
		t.Errorf("content pixel = %v, want red", got)
	}
	if got := img.RGBAAt(20, 20); got.G != 255 {
		t.Errorf("background pixel = %v, want white", got)
	}
	if got := r.Compositor().UITime().LastLap(); got != 3*time.Millisecond {
		t.Errorf("UITime().LastLap() = %v, want 3ms", got)
	}
	if r.Frames() != 1 || r.State() != Idle {
		t.Errorf("Frames/State = %d/%v, want 1/Idle", r.Frames(), r.State())
	}
}

func TestDoDrawNoop(t *testing.T) {
	r, s := newTestRasterizer(t)
	tests := []struct {
		name string
		tree *layer.Tree
	}{
		{"nil tree", nil},
		{"nil root", layer.NewTree(nil, image.Pt(10, 10))},
		{"empty frame", redTree(0, 0)},
	}
	for _, tt := range tests {
		if r.DoDraw(tt.tree) {
			t.Errorf("%s: DoDraw() = true, want false", tt.name)
		}
	}
	if s.Presents() != 0 || r.Frames() != 0 {
		t.Errorf("Presents/Frames = %d/%d, want 0/0", s.Presents(), r.Frames())
	}
}

func TestDrawRepostsBacklog(t *testing.T) {
	r, s := newTestRasterizer(t)
	p := NewPipeline[*layer.Tree](3)
	for range 3 {
		p.TryProduce(redTree(16, 0))
	}

	if err := r.Draw(p); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if r.Frames() != 1 {
		t.Errorf("Frames() after one Draw = %d, want 1", r.Frames())
	}
	if got := r.TaskRunner().Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}

	r.TaskRunner().RunPending()
	if r.Frames() != 3 || s.Presents() != 3 {
		t.Errorf("Frames/Presents = %d/%d, want 3/3", r.Frames(), s.Presents())
	}
	if got := r.TaskRunner().Pending(); got != 0 {
		t.Errorf("Pending() after drain = %d, want 0", got)
	}
}

func TestDrawReentrant(t *testing.T) {
	r, _ := newTestRasterizer(t)
	p := NewPipeline[*layer.Tree](1)
	p.TryProduce(redTree(16, 0))

	r.state.Store(int32(Drawing))
	if err := r.Draw(p); !errors.Is(err, ErrReentrantDraw) {
		t.Errorf("Draw() error = %v, want %v", err, ErrReentrantDraw)
	}
	if r.ReentrantDraws() != 1 || p.Len() != 1 {
		t.Errorf("ReentrantDraws/Len = %d/%d, want 1/1", r.ReentrantDraws(), p.Len())
	}

	r.state.Store(int32(Idle))
	if err := r.Draw(p); err != nil {
		t.Errorf("Draw() error = %v", err)
	}
	if r.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", r.Frames())
	}
}

func TestSlowFrameTrace(t *testing.T) {
	tests := []struct {
		name       string
		step       time.Duration
		threshold  int
		always     bool
		wantTraces int64
	}{
		{"fast frame", time.Millisecond, 2, false, 0},
		{"slow frame", 40 * time.Millisecond, 2, false, 1},
		{"tracing enabled", time.Millisecond, 0, true, 1},
		{"threshold off", time.Second, 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			settings := config.Default()
			settings.TraceDir = dir
			settings.RasterizerTracingThreshold = tt.threshold
			settings.PictureTracingEnabled = tt.always
			clock := &stepClock{now: time.Unix(0, 0), step: tt.step}
			r, _ := newTestRasterizer(t, WithSettings(settings), WithClock(clock))

			r.DoDraw(redTree(32, 0))
			if got := r.Traces(); got != tt.wantTraces {
				t.Fatalf("Traces() = %d, want %d", got, tt.wantTraces)
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if int64(len(entries)) != tt.wantTraces {
				t.Fatalf("trace files = %d, want %d", len(entries), tt.wantTraces)
			}
			if tt.wantTraces == 0 {
				return
			}

			path := r.LastTracePath()
			if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "trace_") {
				t.Errorf("LastTracePath() = %q, want trace_*.json in %s", path, dir)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			var got struct {
				Width       int            `json:"width"`
				RasterTime  Duration       `json:"raster_time"`
				DisplayList map[string]any `json:"display_list"`
			}
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("trace is not valid JSON: %v", err)
			}
			if got.Width != 32 {
				t.Errorf("width = %d, want 32", got.Width)
			}
			if time.Duration(got.RasterTime) != tt.step {
				t.Errorf("raster_time = %v, want %v", time.Duration(got.RasterTime), tt.step)
			}
			if got.DisplayList == nil {
				t.Error("display_list missing")
			}
		})
	}
}

func TestSceneComposition(t *testing.T) {
	producer := surface.NewProducer()
	r, s := newTestRasterizer(t, WithSceneComposition(producer))

	rec := displaylist.NewRecorder(flow.Rect{})
	rec.DrawRect(flow.MakeLTRB(4, 4, 12, 12), flow.Fill(red))
	content := layer.NewDisplayListLayer(flow.Point{}, rec.Finish(), false, false)
	card := layer.NewSystemCompositedLayer(flow.RRectFromRect(flow.MakeLTRB(0, 0, 24, 24)),
		color.NRGBA{B: 255, A: 255}, 2, content)
	tree := layer.NewTree(card, image.Pt(32, 32))

	if !r.DoDraw(tree) {
		t.Fatal("DoDraw() = false, want true")
	}
	if got := r.Session().Presents(); got != 1 {
		t.Errorf("Presents() = %d, want 1", got)
	}
	if st := producer.Stats(); st.Produced != 1 || st.Submitted != 1 {
		t.Errorf("Produced/Submitted = %d/%d, want 1/1", st.Produced, st.Submitted)
	}
	img := s.Image()
	if got := img.RGBAAt(8, 8); got.R != 255 || got.B != 0 {
		t.Errorf("content pixel = %v, want red", got)
	}
	if got := img.RGBAAt(18, 18); got.B != 255 || got.R != 0 {
		t.Errorf("card pixel = %v, want blue", got)
	}
}

// bgraSurface reports a storage format the rasterizer cannot draw into.
type bgraSurface struct {
	*surface.ImageSurface
}

func (s bgraSurface) Descriptor() surface.Descriptor {
	d := s.ImageSurface.Descriptor()
	d.Format = gputypes.TextureFormatBGRA8Unorm
	return d
}

func TestNewErrors(t *testing.T) {
	bad := config.Default()
	bad.PipelineDepth = 0
	_, err := New(WithSettings(bad))
	var ve *config.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("New() with invalid settings error = %v, want *config.ValidationError", err)
	}

	unknown := config.Default()
	unknown.SurfaceBackend = "vulkan"
	_, err = New(WithSettings(unknown))
	var nf *surface.BackendNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("New() with unknown backend error = %v, want *surface.BackendNotFoundError", err)
	}

	if _, err := New(WithSurface(bgraSurface{surface.NewImageSurface(4, 4)})); err == nil {
		t.Error("New() with a BGRA surface error = nil, want unsupported format")
	}

	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Close()
	if r.Surface() == nil {
		t.Error("Surface() = nil, want default backend surface")
	}
}
