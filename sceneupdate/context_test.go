package sceneupdate

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/internal/parallel"
)

type fakeSurface struct {
	size image.Point
	rec  *displaylist.Recorder
}

func (s *fakeSurface) Size() image.Point   { return s.size }
func (s *fakeSurface) Canvas() flow.Canvas { return s.rec }

type fakeProducer struct {
	mu        sync.Mutex
	fail      bool
	produced  []image.Point
	retained  map[RetainedKey]*EntityNode
	submitted int
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{retained: make(map[RetainedKey]*EntityNode)}
}

func (p *fakeProducer) ProduceSurface(size image.Point, key RetainedKey, node *EntityNode) Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil
	}
	p.produced = append(p.produced, size)
	if key.IsRetained() {
		p.retained[key] = node
	}
	return &fakeSurface{size: size, rec: displaylist.NewRecorder(flow.MakeWH(float64(size.X), float64(size.Y)))}
}

func (p *fakeProducer) HasRetainedNode(key RetainedKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.retained[key]
	return ok
}

func (p *fakeProducer) GetRetainedNode(key RetainedKey) *EntityNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retained[key]
}

func (p *fakeProducer) SubmitSurface(Surface) {
	p.mu.Lock()
	p.submitted++
	p.mu.Unlock()
}

type fakeLayer struct{ bounds flow.Rect }

func (l fakeLayer) PaintBounds() flow.Rect { return l.bounds }

var blue = color.NRGBA{B: 255, A: 255}

func TestScopesAttachToParent(t *testing.T) {
	c := NewContext(nil, nil)
	var inner *EntityNode
	c.Transform(flow.Translate(10, 20), func(outer *Entity) {
		if c.TopEntity() != outer {
			t.Error("TopEntity() is not the open transform")
		}
		c.Entity(func(e *Entity) {
			inner = e.Node()
			if e.parent != outer {
				t.Error("nested entity has wrong parent")
			}
		})
		if got := outer.Node().Children(); len(got) != 1 || got[0] != inner {
			t.Errorf("outer children = %v, want [inner]", got)
		}
	})
	if c.TopEntity() != nil {
		t.Error("TopEntity() != nil after all scopes closed")
	}
	if got := len(c.Session().Root().Children()); got != 1 {
		t.Errorf("root children = %d, want 1", got)
	}
}

func TestTransformScaleTracking(t *testing.T) {
	c := NewContext(nil, nil)
	c.TransformScale(2, 1, func(*Entity) {
		c.Transform(flow.Scale(2, 3).Multiply(flow.Translate(5, 5)), func(e *Entity) {
			if c.ScaleX() != 4 || c.ScaleY() != 3 {
				t.Errorf("scale = (%v, %v), want (4, 3)", c.ScaleX(), c.ScaleY())
			}
			if got := e.Node().Translation; got != [3]float64{10, 15, 0} {
				t.Errorf("Translation = %v, want [10 15 0]", got)
			}
			want := flow.Scale(2, 1).Multiply(flow.Scale(2, 3)).Multiply(flow.Translate(5, 5))
			if !c.TopMatrix().NearlyEqual(want, 1e-12) {
				t.Errorf("TopMatrix() = %v, want %v", c.TopMatrix(), want)
			}
		})
		if c.ScaleX() != 2 || c.ScaleY() != 1 {
			t.Errorf("scale after inner scope = (%v, %v), want (2, 1)", c.ScaleX(), c.ScaleY())
		}
	})
	if c.ScaleX() != 1 || c.ScaleY() != 1 || !c.TopMatrix().IsIdentity() {
		t.Errorf("state after scopes = (%v, %v, %v), want identity", c.ScaleX(), c.ScaleY(), c.TopMatrix())
	}
}

func TestScopePopsOnPanic(t *testing.T) {
	c := NewContext(nil, nil)
	func() {
		defer func() { _ = recover() }()
		c.Transform(flow.Scale(3, 3), func(*Entity) {
			c.Clip(flow.MakeWH(10, 10), func(*Entity) {
				panic("boom")
			})
		})
	}()
	if c.TopEntity() != nil || c.ScaleX() != 1 {
		t.Errorf("after panic TopEntity() = %v, ScaleX() = %v; want nil, 1", c.TopEntity(), c.ScaleX())
	}
}

func TestFrameWithoutContentIsSolid(t *testing.T) {
	p := newFakeProducer()
	c := NewContext(nil, p)
	var shape *ShapeNode
	c.Frame(flow.RRectFromRect(flow.MakeWH(50, 50)), blue, 4, flow.LayerID{Index: 1, Generation: 1}, func(f *Frame) {
		shape = f.ShapeNode()
		// Content outside the frame does not count.
		f.AddPaintLayer(fakeLayer{bounds: flow.MakeLTRB(100, 100, 120, 120)})
	})
	if len(p.produced) != 0 || c.PendingPaintTasks() != 0 {
		t.Errorf("produced %d surfaces, %d tasks; want none", len(p.produced), c.PendingPaintTasks())
	}
	if shape.Color != blue || shape.Texture != nil {
		t.Errorf("shape = %+v, want solid blue", shape)
	}
}

func TestFrameProducesAndPaints(t *testing.T) {
	p := newFakeProducer()
	c := NewContext(nil, p)
	id := flow.LayerID{Index: 7, Generation: 1}

	c.TransformScale(2, 2, func(*Entity) {
		c.Frame(flow.RRectFromRect(flow.MakeLTRB(10, 10, 60, 40)), blue, 2, id, func(f *Frame) {
			f.AddPaintLayer(fakeLayer{bounds: flow.MakeLTRB(10, 10, 30, 30)})
			f.AddPaintLayer(fakeLayer{bounds: flow.MakeLTRB(20, 20, 40, 40)})
			if got := f.Node().Translation[2]; got != -2 {
				t.Errorf("frame Z = %v, want -2", got)
			}
		})
	})
	if len(p.produced) != 1 || p.produced[0] != image.Pt(100, 60) {
		t.Fatalf("produced = %v, want [(100,60)]", p.produced)
	}

	var painted []flow.Rect
	surfaces := c.ExecutePaintTasks(func(canvas flow.Canvas, l PaintLayer) {
		if got, want := canvas.TotalMatrix(), flow.Scale(2, 2).Multiply(flow.Translate(-10, -10)); !got.NearlyEqual(want, 1e-12) {
			t.Errorf("paint matrix = %v, want %v", got, want)
		}
		painted = append(painted, l.PaintBounds())
	})
	if len(surfaces) != 1 || len(painted) != 2 {
		t.Errorf("surfaces = %d, painted = %d; want 1, 2", len(surfaces), len(painted))
	}
	if c.PendingPaintTasks() != 0 {
		t.Error("tasks not cleared after ExecutePaintTasks")
	}
	c.SubmitSurfaces(surfaces)
	if p.submitted != 1 {
		t.Errorf("submitted = %d, want 1", p.submitted)
	}
}

func TestFrameReusesRetainedNode(t *testing.T) {
	p := newFakeProducer()
	c := NewContext(nil, p)
	id := flow.LayerID{Index: 3, Generation: 2}
	rr := flow.RRectFromRect(flow.MakeWH(20, 20))
	content := func(f *Frame) { f.AddPaintLayer(fakeLayer{bounds: flow.MakeWH(10, 10)}) }

	if !c.Frame(rr, blue, 1, id, content) {
		t.Fatal("first Frame() = false, want true")
	}
	first := c.Session().Present()

	calls := 0
	ran := c.Frame(rr, blue, 1, id, func(f *Frame) { calls++ })
	if ran || calls != 0 {
		t.Errorf("second Frame() = %v with %d calls, want false and 0", ran, calls)
	}
	if len(p.produced) != 1 {
		t.Errorf("produced %d surfaces, want 1", len(p.produced))
	}
	got := c.Session().Root().Children()
	if len(got) != 1 || got[0] != first.Children()[0] {
		t.Error("retained node was not reattached")
	}

	// A different scale is a different key.
	c.TransformScale(2, 2, func(*Entity) {
		if !c.Frame(rr, blue, 1, id, content) {
			t.Error("Frame() at new scale reused a node")
		}
	})
}

func TestFrameZeroIDNotRetained(t *testing.T) {
	p := newFakeProducer()
	c := NewContext(nil, p)
	for range 2 {
		c.Frame(flow.RRectFromRect(flow.MakeWH(20, 20)), blue, 1, flow.LayerID{}, func(f *Frame) {
			f.AddPaintLayer(fakeLayer{bounds: flow.MakeWH(10, 10)})
		})
	}
	if len(p.produced) != 2 || len(p.retained) != 0 {
		t.Errorf("produced %d, retained %d; want 2, 0", len(p.produced), len(p.retained))
	}
}

func TestFrameDegradesWithoutSurface(t *testing.T) {
	p := newFakeProducer()
	p.fail = true
	layer := fakeLayer{bounds: flow.MakeWH(10, 10)}

	// Without a fallback the frame is just a solid shape.
	c := NewContext(nil, p)
	c.Frame(flow.RRectFromRect(flow.MakeWH(20, 20)), blue, 1, flow.LayerID{Index: 1}, func(f *Frame) {
		f.AddPaintLayer(layer)
	})
	if c.PendingPaintTasks() != 0 {
		t.Errorf("tasks = %d without fallback, want 0", c.PendingPaintTasks())
	}

	fallback := displaylist.NewRecorder(flow.Rect{})
	c = NewContext(nil, p, WithFallbackCanvas(fallback))
	c.Transform(flow.Translate(5, 5), func(*Entity) {
		c.Frame(flow.RRectFromRect(flow.MakeWH(20, 20)), blue, 1, flow.LayerID{Index: 1}, func(f *Frame) {
			f.AddPaintLayer(layer)
		})
	})
	var got flow.Canvas
	surfaces := c.ExecutePaintTasks(func(canvas flow.Canvas, l PaintLayer) { got = canvas })
	if len(surfaces) != 0 {
		t.Errorf("surfaces = %d for direct paint, want 0", len(surfaces))
	}
	if got != fallback {
		t.Error("direct task did not paint onto the fallback canvas")
	}
	if want := flow.MakeLTRB(5, 5, 25, 25); fallback.Bounds() != want {
		t.Errorf("fallback bounds = %v, want %v", fallback.Bounds(), want)
	}
	if fallback.SaveCount() != 1 {
		t.Errorf("fallback SaveCount() = %d, want 1", fallback.SaveCount())
	}
}

func TestExecutePaintTasksParallel(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	p := newFakeProducer()
	c := NewContext(nil, p, WithWorkerPool(pool))
	for i := range 8 {
		r := flow.MakeXYWH(float64(i*30), 0, 20, 20)
		c.Frame(flow.RRectFromRect(r), blue, 1, flow.LayerID{}, func(f *Frame) {
			f.AddPaintLayer(fakeLayer{bounds: r})
		})
	}
	var n atomic.Int32
	surfaces := c.ExecutePaintTasks(func(flow.Canvas, PaintLayer) { n.Add(1) })
	if len(surfaces) != 8 || n.Load() != 8 {
		t.Errorf("surfaces = %d, painted = %d; want 8, 8", len(surfaces), n.Load())
	}
}

func TestTopFrameTracksNesting(t *testing.T) {
	c := NewContext(nil, newFakeProducer())
	if c.TopFrame() != nil {
		t.Fatal("TopFrame() != nil outside frames")
	}
	rr := flow.RRectFromRect(flow.MakeWH(50, 50))
	c.Frame(rr, blue, 1, flow.LayerID{}, func(outer *Frame) {
		if c.TopFrame() != outer {
			t.Error("TopFrame() is not the open frame")
		}
		c.Transform(flow.Translate(5, 5), func(*Entity) {
			c.Frame(rr, blue, 1, flow.LayerID{}, func(inner *Frame) {
				if c.TopFrame() != inner {
					t.Error("TopFrame() is not the nested frame")
				}
				if !inner.Matrix().NearlyEqual(flow.Translate(5, 5), 0) {
					t.Errorf("inner Matrix() = %v, want translate(5, 5)", inner.Matrix())
				}
			})
		})
		if c.TopFrame() != outer {
			t.Error("TopFrame() not restored after nested frame")
		}
		if !outer.Matrix().IsIdentity() {
			t.Errorf("outer Matrix() = %v, want identity", outer.Matrix())
		}
	})
	if c.TopFrame() != nil {
		t.Error("TopFrame() != nil after frames closed")
	}
}
