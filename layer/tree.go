package layer

import (
	"image"
	"image/color"
	"time"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/clipstate"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/rastercache"
	"github.com/gogpu/flow/sceneupdate"
)

// Tree is one frame's layer tree together with the frame parameters it was
// built for.
type Tree struct {
	root      Layer
	frameSize image.Point

	dpr              float64
	depth            float64
	constructionTime time.Duration
	tracingThreshold int

	prerolled bool
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithDevicePixelRatio sets the ratio of device pixels to logical pixels.
func WithDevicePixelRatio(dpr float64) TreeOption {
	return func(t *Tree) {
		if dpr > 0 {
			t.dpr = dpr
		}
	}
}

// WithFramePhysicalDepth caps the total elevation of any layer. Negative
// values leave elevation unbounded.
func WithFramePhysicalDepth(depth float64) TreeOption {
	return func(t *Tree) { t.depth = depth }
}

// WithConstructionTime records how long the UI side took to build the tree.
func WithConstructionTime(d time.Duration) TreeOption {
	return func(t *Tree) { t.constructionTime = d }
}

// WithRasterizerTracingThreshold sets, in frame budgets, how slow a raster
// must be before the frame is traced. Zero disables tracing.
func WithRasterizerTracingThreshold(frames int) TreeOption {
	return func(t *Tree) { t.tracingThreshold = frames }
}

// NewTree creates a tree for a frame of the given size in device pixels.
func NewTree(root Layer, frameSize image.Point, opts ...TreeOption) *Tree {
	t := &Tree{
		root:      root,
		frameSize: frameSize,
		dpr:       1,
		depth:     UnlimitedFrameDepth,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Root returns the root layer.
func (t *Tree) Root() Layer { return t.root }

// SetRoot replaces the root layer. The tree must be prerolled again.
func (t *Tree) SetRoot(l Layer) {
	t.root = l
	t.prerolled = false
}

// FrameSize returns the frame size in device pixels.
func (t *Tree) FrameSize() image.Point { return t.frameSize }

// DevicePixelRatio returns the tree's device pixel ratio.
func (t *Tree) DevicePixelRatio() float64 { return t.dpr }

// FramePhysicalDepth returns the elevation cap.
func (t *Tree) FramePhysicalDepth() float64 { return t.depth }

// ConstructionTime returns how long the tree took to build.
func (t *Tree) ConstructionTime() time.Duration { return t.constructionTime }

// RasterizerTracingThreshold returns the slow-frame threshold in frame
// budgets.
func (t *Tree) RasterizerTracingThreshold() int { return t.tracingThreshold }

// IsEmpty reports whether there is nothing to draw.
func (t *Tree) IsEmpty() bool {
	return t.root == nil || t.frameSize.X <= 0 || t.frameSize.Y <= 0
}

func (t *Tree) frameRect() flow.Rect {
	return flow.MakeWH(float64(t.frameSize.X), float64(t.frameSize.Y))
}

// Preroll runs the preroll pass over the whole tree. A nil cache prerolls
// without caching.
func (t *Tree) Preroll(cache *rastercache.RasterCache) {
	t.prerolled = false
	if t.root == nil {
		return
	}
	ctx := &PrerollContext{
		RasterCache:        cache,
		State:              clipstate.NewStack(clipstate.New(t.frameRect(), flow.Identity())),
		FramePhysicalDepth: t.depth,
		DevicePixelRatio:   t.dpr,
	}
	t.root.Preroll(ctx, flow.Identity())
	t.prerolled = true
}

// Paint paints the prerolled tree onto canvas.
func (t *Tree) Paint(canvas flow.Canvas, cache *rastercache.RasterCache) error {
	if t.root == nil {
		return nil
	}
	if !t.prerolled {
		flow.Logger().Warn("layer: paint without preroll", "root", t.root.ID())
		return ErrNotPrerolled
	}
	paintLayer(&PaintContext{Canvas: canvas, RasterCache: cache, DevicePixelRatio: t.dpr}, t.root)
	return nil
}

// Raster prerolls and paints the tree in one step.
func (t *Tree) Raster(canvas flow.Canvas, cache *rastercache.RasterCache) error {
	t.Preroll(cache)
	return t.Paint(canvas, cache)
}

// UpdateScene composes the prerolled tree into sctx. The root becomes a
// transparent frame covering the whole frame; layers that need no system
// compositing are painted into it.
func (t *Tree) UpdateScene(sctx *sceneupdate.Context) error {
	if t.root == nil {
		return nil
	}
	if !t.prerolled {
		return ErrNotPrerolled
	}
	rr := flow.RRectFromRect(t.frameRect())
	sctx.Frame(rr, color.NRGBA{}, 0, flow.LayerID{}, func(f *sceneupdate.Frame) {
		if needsSystemComposite(t.root) {
			t.root.UpdateScene(sctx)
			return
		}
		f.AddPaintLayer(t.root)
	})
	return nil
}

// Painter returns the painter for paint tasks queued by UpdateScene.
func (t *Tree) Painter(cache *rastercache.RasterCache) sceneupdate.Painter {
	return Painter(cache, t.dpr)
}

// Flatten records the tree into a display list without using any cache.
// The tree is left prerolled without cache admissions.
func (t *Tree) Flatten() *displaylist.DisplayList {
	rec := displaylist.NewRecorder(t.frameRect())
	if t.root != nil {
		t.Preroll(nil)
		_ = t.Paint(rec, nil)
	}
	return rec.Finish()
}
