// Package compositor owns the state that outlives a single frame of a
// rasterizer: the raster cache and the raster and UI stopwatches.
//
// Each frame is bracketed by AcquireFrame and ScopedFrame.End:
//
//	frame := ctx.AcquireFrame(canvas, true)
//	defer frame.End()
//	if !frame.Raster(tree, false) {
//	    // nothing was drawn
//	}
//
// End sweeps the cache of entries the frame did not use and stops the
// raster stopwatch, so a frame that is acquired must always be ended.
//
// Thread Safety: a Context is used by one rasterizer goroutine. The
// stopwatches and the raster cache may be read from other goroutines.
package compositor

import (
	"github.com/gogpu/flow"
	"github.com/gogpu/flow/instrumentation"
	"github.com/gogpu/flow/layer"
	"github.com/gogpu/flow/rastercache"
	"github.com/gogpu/flow/sceneupdate"
)

// Context is the long-lived compositor state of one rasterizer.
type Context struct {
	cache      *rastercache.RasterCache
	rasterTime *instrumentation.Stopwatch
	uiTime     *instrumentation.Stopwatch
	frameCount instrumentation.Counter
}

// Option configures a Context.
type Option func(*options)

type options struct {
	cache *rastercache.RasterCache
	clock instrumentation.Clock
}

// WithRasterCache uses c instead of a cache with default settings.
func WithRasterCache(c *rastercache.RasterCache) Option {
	return func(o *options) { o.cache = c }
}

// WithClock times frames with clock instead of the system clock.
func WithClock(clock instrumentation.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New creates a compositor context.
func New(opts ...Option) *Context {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = rastercache.New()
	}
	return &Context{
		cache:      o.cache,
		rasterTime: instrumentation.NewStopwatch(o.clock),
		uiTime:     instrumentation.NewStopwatch(o.clock),
	}
}

// RasterCache returns the context's raster cache.
func (c *Context) RasterCache() *rastercache.RasterCache { return c.cache }

// RasterTime returns the stopwatch timing each frame from AcquireFrame to
// End.
func (c *Context) RasterTime() *instrumentation.Stopwatch { return c.rasterTime }

// UITime returns the stopwatch holding the construction time of each
// rasterized tree.
func (c *Context) UITime() *instrumentation.Stopwatch { return c.uiTime }

// FrameCount returns the number of frames acquired.
func (c *Context) FrameCount() *instrumentation.Counter { return &c.frameCount }

// OnSurfaceLost drops every cached image. Images are tied to the surface
// they were drawn for.
func (c *Context) OnSurfaceLost() {
	c.cache.Clear()
	flow.Logger().Info("compositor: surface lost, raster cache cleared")
}

// AcquireFrame starts a frame that paints onto canvas. canvas may be nil
// for frames that only compose a scene. When instrumentationEnabled is
// set the raster stopwatch times the frame.
func (c *Context) AcquireFrame(canvas flow.Canvas, instrumentationEnabled bool) *ScopedFrame {
	c.frameCount.Increment()
	if instrumentationEnabled {
		c.rasterTime.Start()
	}
	return &ScopedFrame{ctx: c, canvas: canvas, instrumentationEnabled: instrumentationEnabled}
}

// ScopedFrame is one frame of a Context.
type ScopedFrame struct {
	ctx                    *Context
	canvas                 flow.Canvas
	instrumentationEnabled bool
	ended                  bool
}

// Canvas returns the canvas the frame paints onto.
func (f *ScopedFrame) Canvas() flow.Canvas { return f.canvas }

// Context returns the compositor context that owns the frame.
func (f *ScopedFrame) Context() *Context { return f.ctx }

func (f *ScopedFrame) cache(ignore bool) *rastercache.RasterCache {
	if ignore {
		return nil
	}
	return f.ctx.cache
}

// Raster prerolls tree and paints it onto the frame's canvas. With
// ignoreRasterCache the tree is neither admitted to nor drawn from the
// cache. It returns false when nothing could be painted.
func (f *ScopedFrame) Raster(tree *layer.Tree, ignoreRasterCache bool) bool {
	if tree == nil || f.canvas == nil {
		return false
	}
	cache := f.cache(ignoreRasterCache)
	tree.Preroll(cache)
	if err := tree.Paint(f.canvas, cache); err != nil {
		flow.Logger().Warn("compositor: paint failed", "err", err)
		return false
	}
	return true
}

// RasterScene prerolls tree and composes it into sctx, then paints the
// queued surfaces and submits them to the producer.
func (f *ScopedFrame) RasterScene(tree *layer.Tree, sctx *sceneupdate.Context) bool {
	if tree == nil || sctx == nil {
		return false
	}
	tree.Preroll(f.ctx.cache)
	if err := tree.UpdateScene(sctx); err != nil {
		flow.Logger().Warn("compositor: scene update failed", "err", err)
		return false
	}
	surfaces := sctx.ExecutePaintTasks(tree.Painter(f.ctx.cache))
	sctx.SubmitSurfaces(surfaces)
	return true
}

// End finishes the frame. Calling End more than once has no effect.
func (f *ScopedFrame) End() {
	if f.ended {
		return
	}
	f.ended = true
	f.ctx.cache.SweepAfterFrame()
	if f.instrumentationEnabled {
		f.ctx.rasterTime.Stop()
	}
}
