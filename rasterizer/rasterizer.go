// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rasterizer drives frames: it takes finished layer trees from a
// Pipeline, rasterizes them onto a surface and presents the result.
//
// A Rasterizer runs on one TaskRunner. Draw consumes at most one tree per
// call; when more trees are waiting it posts itself again instead of
// looping, so other tasks on the runner still get a turn under backlog.
//
// Example:
//
//	r, err := rasterizer.New(rasterizer.WithSettings(settings))
//	if err != nil {
//	    return err
//	}
//	pipeline := rasterizer.NewPipeline[*layer.Tree](settings.PipelineDepth)
//	runner := r.TaskRunner()
//
//	// UI goroutine
//	pipeline.Produce(ctx, tree)
//	runner.PostTask(func() { r.Draw(pipeline) })
//
//	// raster goroutine
//	runner.Run(ctx)
//
// Frames slower than the tracing threshold are re-recorded into a display
// list and written as JSON to the trace directory.
package rasterizer

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/compositor"
	"github.com/gogpu/flow/config"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/instrumentation"
	"github.com/gogpu/flow/internal/parallel"
	"github.com/gogpu/flow/layer"
	"github.com/gogpu/flow/rastercache"
	"github.com/gogpu/flow/sceneupdate"
	"github.com/gogpu/flow/surface"
)

// ErrReentrantDraw is returned by Draw when called while a draw is already
// in progress.
var ErrReentrantDraw = errors.New("rasterizer: draw while drawing")

// State is the rasterizer's drawing state.
type State int32

const (
	// Idle means no frame is being drawn.
	Idle State = iota
	// Drawing means a frame is being drawn.
	Drawing
)

// String returns the state name.
func (s State) String() string {
	if s == Drawing {
		return "Drawing"
	}
	return "Idle"
}

// Option configures a Rasterizer.
type Option func(*options)

type options struct {
	settings config.Settings
	surface  surface.Surface
	runner   *TaskRunner
	clock    instrumentation.Clock
	producer *surface.Producer
}

// WithSettings sets the rasterizer settings. Invalid settings make New
// fail.
func WithSettings(s config.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithSurface draws onto s instead of a surface created from the
// settings' backend.
func WithSurface(s surface.Surface) Option {
	return func(o *options) { o.surface = s }
}

// WithTaskRunner posts follow-up draws to r instead of a runner of the
// rasterizer's own.
func WithTaskRunner(r *TaskRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithClock times frames with clock.
func WithClock(clock instrumentation.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithSceneComposition composes trees into a scene whose frames are
// painted into surfaces from p, then composed onto the target surface.
func WithSceneComposition(p *surface.Producer) Option {
	return func(o *options) { o.producer = p }
}

// Rasterizer draws layer trees onto a surface.
type Rasterizer struct {
	settings   config.Settings
	surface    surface.Surface
	runner     *TaskRunner
	compositor *compositor.Context

	producer *surface.Producer
	session  *sceneupdate.Session
	pool     *parallel.WorkerPool

	state     atomic.Int32
	frames    instrumentation.Counter
	reentrant instrumentation.Counter
	traces    instrumentation.Counter
	lastTrace atomic.Pointer[string]
	lastTree  atomic.Pointer[layer.Tree]
}

// New creates a rasterizer.
func New(opts ...Option) (*Rasterizer, error) {
	o := options{settings: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	s := o.settings
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("rasterizer: %w", err)
	}

	target := o.surface
	if target == nil {
		var err error
		if target, err = surface.New(s.SurfaceBackend, 1, 1); err != nil {
			return nil, fmt.Errorf("rasterizer: %w", err)
		}
	}
	if d, ok := target.(surface.Described); ok {
		if f := d.Descriptor().Format; f != surface.Format {
			return nil, fmt.Errorf("rasterizer: unsupported surface format %v", f)
		}
	}
	runner := o.runner
	if runner == nil {
		runner = NewTaskRunner()
	}

	cache := rastercache.New(
		rastercache.WithAccessThreshold(s.RasterCacheAccessThreshold),
		rastercache.WithPictureLimitPerFrame(s.PictureCacheLimitPerFrame),
		rastercache.WithMaxSizeMB(s.RasterCacheMaxMB),
	)
	r := &Rasterizer{
		settings:   s,
		surface:    target,
		runner:     runner,
		compositor: compositor.New(compositor.WithRasterCache(cache), compositor.WithClock(o.clock)),
		producer:   o.producer,
	}
	if r.producer != nil {
		r.session = sceneupdate.NewSession()
		workers := s.PaintWorkers
		if workers == 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		r.pool = parallel.NewWorkerPool(workers)
	}
	return r, nil
}

// Settings returns the rasterizer's settings.
func (r *Rasterizer) Settings() config.Settings { return r.settings }

// Surface returns the target surface.
func (r *Rasterizer) Surface() surface.Surface { return r.surface }

// TaskRunner returns the runner follow-up draws are posted to.
func (r *Rasterizer) TaskRunner() *TaskRunner { return r.runner }

// Compositor returns the compositor context.
func (r *Rasterizer) Compositor() *compositor.Context { return r.compositor }

// Session returns the scene session, or nil without scene composition.
func (r *Rasterizer) Session() *sceneupdate.Session { return r.session }

// State returns the drawing state.
func (r *Rasterizer) State() State { return State(r.state.Load()) }

// Frames returns the number of frames drawn.
func (r *Rasterizer) Frames() int64 { return r.frames.Count() }

// ReentrantDraws returns how many draws were refused because a draw was
// in progress.
func (r *Rasterizer) ReentrantDraws() int64 { return r.reentrant.Count() }

// Traces returns the number of trace files written.
func (r *Rasterizer) Traces() int64 { return r.traces.Count() }

// LastTracePath returns the path of the most recent trace file, or "".
func (r *Rasterizer) LastTracePath() string {
	if p := r.lastTrace.Load(); p != nil {
		return *p
	}
	return ""
}

// LastTree returns the most recently drawn tree.
func (r *Rasterizer) LastTree() *layer.Tree { return r.lastTree.Load() }

// Draw draws at most one tree from p. If more trees are waiting it posts
// another Draw to the task runner.
func (r *Rasterizer) Draw(p *Pipeline[*layer.Tree]) error {
	if !r.state.CompareAndSwap(int32(Idle), int32(Drawing)) {
		r.reentrant.Increment()
		flow.Logger().Warn("rasterizer: draw while drawing")
		return ErrReentrantDraw
	}
	res := func() ConsumeResult {
		defer r.state.Store(int32(Idle))
		return p.Consume(func(t *layer.Tree) { r.DoDraw(t) })
	}()

	if res == MoreAvailable {
		r.runner.PostTask(func() { _ = r.Draw(p) })
	}
	return nil
}

// DoDraw rasterizes tree onto the surface and presents it. It reports
// whether anything was drawn; a nil or empty tree, or a closed surface,
// leaves the previous frame in place.
func (r *Rasterizer) DoDraw(tree *layer.Tree) bool {
	if tree == nil || tree.IsEmpty() || r.surface == nil {
		return false
	}

	size := tree.FrameSize()
	if r.surface.Width() != size.X || r.surface.Height() != size.Y {
		if err := r.surface.Resize(size.X, size.Y); err != nil {
			flow.Logger().Warn("rasterizer: resize failed", "size", size, "err", err)
			return false
		}
	}

	r.compositor.UITime().SetLapTime(tree.ConstructionTime())

	canvas := r.surface
	canvas.RestoreToCount(1)
	canvas.Clear(r.settings.BackgroundColor.NRGBA())

	frame := r.compositor.AcquireFrame(canvas, true)
	var drawn bool
	if r.producer != nil {
		drawn = r.rasterScene(frame, tree)
	} else {
		drawn = frame.Raster(tree, false)
	}
	canvas.Flush()
	frame.End()

	if err := r.surface.Present(); err != nil {
		flow.Logger().Warn("rasterizer: present failed", "err", err)
	}
	r.frames.Increment()
	r.lastTree.Store(tree)

	r.maybeTrace(tree)
	return drawn
}

// rasterScene composes tree into the session, paints its frames and
// composes the presented scene onto the target. Frames that got no surface
// are recorded and played back over the composed scene.
func (r *Rasterizer) rasterScene(frame *compositor.ScopedFrame, tree *layer.Tree) bool {
	size := tree.FrameSize()
	direct := displaylist.NewRecorder(flow.MakeWH(float64(size.X), float64(size.Y)))
	sctx := sceneupdate.NewContext(r.session, r.producer,
		sceneupdate.WithWorkerPool(r.pool),
		sceneupdate.WithFallbackCanvas(direct),
	)
	drawn := frame.RasterScene(tree, sctx)

	surface.Compose(r.surface, r.session.Present(), tree.DevicePixelRatio())
	direct.Finish().Playback(r.surface)
	r.producer.FinishFrame()
	return drawn
}

// Close releases the surface and the paint workers.
func (r *Rasterizer) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return r.surface.Close()
}
