package rastercache

import (
	"image/color"
	"testing"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/surface"
)

var red = color.NRGBA{R: 255, A: 255}

func TestPrepareWaitsForAccessThreshold(t *testing.T) {
	c := New()
	dl := recordRects(1, 20)
	ctm := flow.Identity()

	for frame := 1; frame <= DefaultAccessThreshold; frame++ {
		got := c.Prepare(dl, true, false, ctm)
		if want := frame >= DefaultAccessThreshold; got != want {
			t.Errorf("frame %d: Prepare() = %v, want %v", frame, got, want)
		}
		c.SweepAfterFrame()
	}
	if got := c.AccessCount(NewKey(dl.ID(), KindDisplayList, ctm)); got != DefaultAccessThreshold {
		t.Errorf("AccessCount() = %d, want %d", got, DefaultAccessThreshold)
	}
	if got := c.Stats().Images; got != 1 {
		t.Errorf("Images = %d, want 1", got)
	}
}

func TestPrepareFrameBudget(t *testing.T) {
	c := New(WithAccessThreshold(1))
	var lists [5]*displaylist.DisplayList
	for i := range lists {
		lists[i] = recordRects(1, 10)
	}

	var prepared [5]bool
	cached := 0
	for i, dl := range lists {
		prepared[i] = c.Prepare(dl, true, false, flow.Identity())
		if prepared[i] {
			cached++
		}
	}
	if cached != DefaultPictureAndDisplayListCacheLimitPerFrame {
		t.Fatalf("frame 1 cached %d, want %d", cached, DefaultPictureAndDisplayListCacheLimitPerFrame)
	}
	for i := 3; i < 5; i++ {
		if prepared[i] {
			t.Errorf("item %d cached beyond the frame limit", i)
		}
		if got := c.AccessCount(NewKey(lists[i].ID(), KindDisplayList, flow.Identity())); got != 1 {
			t.Errorf("item %d AccessCount = %d, want 1", i, got)
		}
	}
	if st := c.Stats(); st.PicturesThisFrame != 3 || st.Images != 3 {
		t.Errorf("Stats() = %+v, want 3 images, 3 new this frame", st)
	}

	c.SweepAfterFrame()

	// Existing images cost nothing, so the two leftovers fit next frame.
	for i, dl := range lists {
		if !c.Prepare(dl, true, false, flow.Identity()) {
			t.Errorf("frame 2: item %d not cached", i)
		}
	}
	st := c.Stats()
	if st.Images != 5 || st.PicturesThisFrame != 2 {
		t.Errorf("Stats() = %+v, want 5 images, 2 new this frame", st)
	}
}

func TestPrepareExistingEntryIgnoresBudget(t *testing.T) {
	c := New(WithAccessThreshold(1))
	old := recordRects(1, 10)
	key := NewKey(old.ID(), KindDisplayList, flow.Identity())
	if !c.Prepare(old, true, false, flow.Identity()) {
		t.Fatal("frame 1: Prepare(old) = false")
	}
	c.SweepAfterFrame()

	for i := range DefaultPictureAndDisplayListCacheLimitPerFrame {
		if !c.Prepare(recordRects(1, 10), true, false, flow.Identity()) {
			t.Fatalf("frame 2: new item %d not cached", i)
		}
	}
	if !c.Prepare(old, true, false, flow.Identity()) {
		t.Error("Prepare(old) after the frame limit = false, want true")
	}
	if n := c.SweepAfterFrame(); n != 0 {
		t.Errorf("SweepAfterFrame() = %d, want 0", n)
	}
	if got := c.AccessCount(key); got != 2 {
		t.Errorf("AccessCount(old) = %d, want 2", got)
	}
	if !c.Draw(old, surface.NewImageSurface(20, 20)) {
		t.Error("Draw(old) missed after the sweep")
	}
}

func TestDrawKeepsEntryAlive(t *testing.T) {
	c := New(WithAccessThreshold(1))
	dl := recordRects(1, 10)
	c.Prepare(dl, true, false, flow.Identity())
	c.SweepAfterFrame()

	if !c.Draw(dl, surface.NewImageSurface(20, 20)) {
		t.Fatal("Draw() missed")
	}
	if n := c.SweepAfterFrame(); n != 0 {
		t.Errorf("SweepAfterFrame() = %d after a draw, want 0", n)
	}
	if n := c.SweepAfterFrame(); n != 1 {
		t.Errorf("SweepAfterFrame() = %d after an idle frame, want 1", n)
	}
	if got := c.Frame(); got != 3 {
		t.Errorf("Frame() = %d, want 3", got)
	}
}

func TestPrepareRejects(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		prepare func(c *RasterCache) bool
	}{
		{
			name: "simple content",
			prepare: func(c *RasterCache) bool {
				return c.Prepare(recordRects(2, 10), false, false, flow.Identity())
			},
		},
		{
			name: "singular matrix",
			prepare: func(c *RasterCache) bool {
				return c.Prepare(recordRects(1, 10), true, false, flow.Scale(0, 1))
			},
		},
		{
			name: "over memory budget",
			opts: []Option{WithMaxSizeMB(1)},
			prepare: func(c *RasterCache) bool {
				return c.Prepare(recordRects(1, 600), true, false, flow.Identity())
			},
		},
		{
			name: "no frame budget",
			opts: []Option{WithPictureLimitPerFrame(0)},
			prepare: func(c *RasterCache) bool {
				return c.Prepare(recordRects(1, 10), true, false, flow.Identity())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(append([]Option{WithAccessThreshold(1)}, tt.opts...)...)
			if tt.prepare(c) {
				t.Error("Prepare() = true, want false")
			}
			if got := c.Stats().Images; got != 0 {
				t.Errorf("Images = %d, want 0", got)
			}
		})
	}
}

func TestDrawUsesCachedImage(t *testing.T) {
	c := New(WithAccessThreshold(1))
	dl := recordRects(1, 20)
	if !c.Prepare(dl, true, false, flow.Translate(10, 10)) {
		t.Fatal("Prepare() = false")
	}

	dst := surface.NewImageSurface(100, 100)
	dst.Translate(40, 40)
	if !c.Draw(dl, dst) {
		t.Fatal("Draw() missed after a translated Prepare")
	}
	if !dst.TotalMatrix().NearlyEqual(flow.Translate(40, 40), 0) {
		t.Errorf("Draw() changed the canvas matrix to %v", dst.TotalMatrix())
	}
	img := dst.Image()
	if a := img.RGBAAt(50, 50).A; a != 255 {
		t.Errorf("alpha inside cached image = %d, want 255", a)
	}
	if a := img.RGBAAt(35, 35).A; a != 0 {
		t.Errorf("alpha outside cached image = %d, want 0", a)
	}

	dst.Scale(2, 2)
	if c.Draw(dl, dst) {
		t.Error("Draw() hit with a different scale")
	}
	if c.Draw(recordRects(1, 20), dst) {
		t.Error("Draw() hit for an unprepared list")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Errorf("Hits/Misses = %d/%d, want 1/2", st.Hits, st.Misses)
	}
}

func TestPrepareLayer(t *testing.T) {
	c := New()
	id := flow.LayerID{Index: 7, Generation: 2}
	calls := 0
	draw := func(cv flow.Canvas) {
		calls++
		cv.DrawRect(flow.MakeWH(10, 10), flow.Fill(red))
	}

	if c.PrepareLayer(flow.LayerID{}, flow.MakeWH(10, 10), flow.Identity(), draw) {
		t.Error("PrepareLayer() cached a zero LayerID")
	}
	if c.PrepareLayer(id, flow.Rect{}, flow.Identity(), draw) {
		t.Error("PrepareLayer() cached empty bounds")
	}
	for i := 0; i < 2; i++ {
		if !c.PrepareLayer(id, flow.MakeWH(10, 10), flow.Identity(), draw) {
			t.Fatalf("PrepareLayer() call %d = false", i+1)
		}
	}
	if calls != 1 {
		t.Errorf("draw called %d times, want 1", calls)
	}

	dst := surface.NewImageSurface(20, 20)
	if !c.DrawLayer(id, dst) {
		t.Fatal("DrawLayer() missed")
	}
	if a := dst.Image().RGBAAt(5, 5).A; a != 255 {
		t.Errorf("alpha = %d, want 255", a)
	}
	if c.DrawLayer(flow.LayerID{Index: 7, Generation: 3}, dst) {
		t.Error("DrawLayer() hit for a stale generation")
	}
}

func TestSweepAfterFrame(t *testing.T) {
	c := New(WithAccessThreshold(1))
	kept, dropped := recordRects(1, 10), recordRects(1, 10)
	c.Prepare(kept, true, false, flow.Identity())
	c.Prepare(dropped, true, false, flow.Identity())
	if n := c.SweepAfterFrame(); n != 0 {
		t.Errorf("SweepAfterFrame() = %d after using both, want 0", n)
	}

	c.Prepare(kept, true, false, flow.Identity())
	if n := c.SweepAfterFrame(); n != 1 {
		t.Errorf("SweepAfterFrame() = %d, want 1", n)
	}
	st := c.Stats()
	if st.Entries != 1 || st.Images != 1 || st.Size != 10*10*4 {
		t.Errorf("Stats() = %+v, want one 10x10 image", st)
	}

	c.Clear()
	if st := c.Stats(); st.Entries != 0 || st.Size != 0 || st.Evictions != 1 {
		t.Errorf("Stats() after Clear = %+v", st)
	}
}
