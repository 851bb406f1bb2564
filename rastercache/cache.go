// Package rastercache decides which content is worth rasterizing ahead of
// time and stores the resulting images across frames.
//
// The admission functions (CanRasterizeRect, ComputeIntegralTransCTM,
// IsDisplayListWorthRasterizing) are pure. RasterCache holds the images:
// display lists are cached after being seen for AccessThreshold frames, at
// most PictureLimitPerFrame new ones per frame, and entries not touched
// during a frame are dropped by SweepAfterFrame.
package rastercache

import (
	"container/list"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/displaylist"
	"github.com/gogpu/flow/surface"
)

const (
	// DefaultMaxSizeMB is the default image memory budget in megabytes.
	DefaultMaxSizeMB = 64
	bytesPerMB       = 1024 * 1024
	bytesPerPixel    = 4
)

// Kind distinguishes what a cache key identifies.
type Kind uint8

const (
	// KindDisplayList keys a display list by its ID.
	KindDisplayList Kind = iota
	// KindLayer keys a layer's rendered subtree by its LayerID.
	KindLayer
)

// Key identifies a cached image. The matrix has its translation removed,
// so content that only moves keeps hitting the same entry.
type Key struct {
	ID     uint64
	Kind   Kind
	Matrix flow.Matrix
}

// NewKey builds the key for content id rendered with ctm.
func NewKey(id uint64, kind Kind, ctm flow.Matrix) Key {
	return Key{ID: id, Kind: kind, Matrix: ctm.WithTranslation(0, 0)}
}

// LayerKeyID packs a LayerID into a key ID.
func LayerKeyID(id flow.LayerID) uint64 {
	return uint64(id.Index)<<32 | uint64(id.Generation)
}

type entry struct {
	key           Key
	accessCount   int
	usedThisFrame bool

	image   *image.RGBA
	logical flow.Rect
	size    int64
	element *list.Element // nil until the entry has an image
}

// RasterCache stores rasterized display lists and layers.
//
// Images are kept in LRU order under a byte budget; entries untouched during
// a frame are removed by SweepAfterFrame. RasterCache is safe for concurrent
// use, though a frame is normally prepared and drawn by one goroutine.
type RasterCache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	lru     *list.List // entries with images, front = most recent
	size    int64
	maxSize int64

	accessThreshold   int
	pictureLimit      int
	picturesThisFrame int
	frame             uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a RasterCache.
type Option func(*RasterCache)

// WithAccessThreshold sets how many frames a display list must be prepared
// before it is rasterized. Values below one are treated as one.
func WithAccessThreshold(n int) Option {
	return func(c *RasterCache) { c.accessThreshold = max(n, 1) }
}

// WithPictureLimitPerFrame sets how many new display list images one frame
// may create. Negative values are treated as zero.
func WithPictureLimitPerFrame(n int) Option {
	return func(c *RasterCache) { c.pictureLimit = max(n, 0) }
}

// WithMaxSizeMB sets the image memory budget.
func WithMaxSizeMB(mb int) Option {
	return func(c *RasterCache) {
		if mb > 0 {
			c.maxSize = int64(mb) * bytesPerMB
		}
	}
}

// New creates a raster cache with the default thresholds.
func New(opts ...Option) *RasterCache {
	c := &RasterCache{
		entries:         make(map[Key]*entry),
		lru:             list.New(),
		maxSize:         DefaultMaxSizeMB * bytesPerMB,
		accessThreshold: DefaultAccessThreshold,
		pictureLimit:    DefaultPictureAndDisplayListCacheLimitPerFrame,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare records that dl is about to be drawn with ctm and rasterizes it
// once it has been seen often enough. It returns true when an image is
// ready for Draw.
//
// Only new images count against this frame's picture limit. Over the limit
// the entry is still touched, so its access count keeps advancing and it
// can be rasterized in a later frame.
func (c *RasterCache) Prepare(dl *displaylist.DisplayList, isComplex, willChange bool, ctm flow.Matrix) bool {
	if !IsDisplayListWorthRasterizing(dl, willChange, isComplex) {
		return false
	}
	if !ctm.IsInvertible() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.touchLocked(NewKey(dl.ID(), KindDisplayList, ctm))
	if e.image != nil {
		return true
	}
	if e.accessCount < c.accessThreshold {
		return false
	}
	if c.picturesThisFrame >= c.pictureLimit {
		return false
	}
	img := rasterize(dl.Bounds(), ctm, c.maxSize, dl.Playback)
	if img == nil {
		return false
	}
	c.storeLocked(e, img, dl.Bounds())
	c.picturesThisFrame++
	flow.Logger().Debug("rastercache: cached display list",
		"id", dl.ID(), "ops", dl.OpCount(), "size", img.Bounds().Size())
	return true
}

// PrepareLayer rasterizes a layer's subtree by calling draw with a canvas
// whose matrix is ctm. Layers decide themselves when they are stable enough
// to cache, so PrepareLayer is neither thresholded nor frame-limited.
func (c *RasterCache) PrepareLayer(id flow.LayerID, bounds flow.Rect, ctm flow.Matrix, draw func(flow.Canvas)) bool {
	if id.IsZero() || draw == nil || !CanRasterizeRect(bounds) || !ctm.IsInvertible() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.touchLocked(NewKey(LayerKeyID(id), KindLayer, ctm))
	if e.image == nil {
		img := rasterize(bounds, ctm, c.maxSize, draw)
		if img == nil {
			return false
		}
		c.storeLocked(e, img, bounds)
	}
	return true
}

func (c *RasterCache) touchLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key}
		c.entries[key] = e
	}
	e.accessCount++
	e.usedThisFrame = true
	return e
}

// rasterize renders draw into a new image covering the rounded-out device
// bounds of logical. It returns nil when the image would be empty or larger
// than maxSize.
func rasterize(logical flow.Rect, ctm flow.Matrix, maxSize int64, draw func(flow.Canvas)) *image.RGBA {
	dev := GetRoundedOutDeviceBounds(logical, ctm)
	if !CanRasterizeRect(dev) {
		return nil
	}
	w, h := int(dev.Width()), int(dev.Height())
	if int64(w)*int64(h)*bytesPerPixel > maxSize {
		return nil
	}
	s := surface.NewImageSurface(w, h)
	s.Translate(-dev.Left, -dev.Top)
	s.Transform(ctm)
	draw(s)
	return s.Image()
}

func (c *RasterCache) storeLocked(e *entry, img *image.RGBA, logical flow.Rect) {
	b := img.Bounds()
	sz := int64(b.Dx()) * int64(b.Dy()) * bytesPerPixel
	c.evictUntilSize(c.maxSize - sz)

	e.image = img
	e.logical = logical
	e.size = sz
	e.element = c.lru.PushFront(e)
	c.size += sz
}

// evictUntilSize drops least recently used images until the cache holds at
// most target bytes. Must be called with c.mu held.
func (c *RasterCache) evictUntilSize(target int64) {
	for c.size > target && c.lru.Len() > 0 {
		c.removeLocked(c.lru.Back().Value.(*entry))
		c.evictions.Add(1)
	}
}

func (c *RasterCache) removeLocked(e *entry) {
	if e.element != nil {
		c.lru.Remove(e.element)
		c.size -= e.size
	}
	delete(c.entries, e.key)
}

// Draw draws the cached image of dl, if any, at the pixel-aligned device
// position given by the canvas matrix. It returns false on a miss, in which
// case the caller paints dl itself.
func (c *RasterCache) Draw(dl *displaylist.DisplayList, canvas flow.Canvas) bool {
	if dl == nil {
		return false
	}
	return c.draw(NewKey(dl.ID(), KindDisplayList, canvas.TotalMatrix()), canvas)
}

// DrawLayer draws the cached image of the layer id, if any.
func (c *RasterCache) DrawLayer(id flow.LayerID, canvas flow.Canvas) bool {
	if id.IsZero() {
		return false
	}
	return c.draw(NewKey(LayerKeyID(id), KindLayer, canvas.TotalMatrix()), canvas)
}

func (c *RasterCache) draw(key Key, canvas flow.Canvas) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.image == nil {
		c.mu.Unlock()
		c.misses.Add(1)
		return false
	}
	c.lru.MoveToFront(e.element)
	e.usedThisFrame = true
	img, logical := e.image, e.logical
	c.mu.Unlock()
	c.hits.Add(1)

	dev := GetRoundedOutDeviceBounds(logical, canvas.TotalMatrix())
	count := canvas.Save()
	canvas.SetTransform(flow.Identity())
	canvas.DrawImage(img, flow.Pt(dev.Left, dev.Top), nil)
	canvas.RestoreToCount(count)
	return true
}

// SweepAfterFrame removes every entry not prepared during the frame, resets
// the frame's picture count and returns how many entries were removed.
func (c *RasterCache) SweepAfterFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, e := range c.entries {
		if !e.usedThisFrame {
			c.removeLocked(e)
			removed++
			continue
		}
		e.usedThisFrame = false
	}
	c.picturesThisFrame = 0
	c.frame++
	if removed > 0 {
		flow.Logger().Debug("rastercache: swept unused entries", "count", removed)
	}
	return removed
}

// Frame returns how many frames have been swept. Callers that track
// stability across frames compare it between prerolls.
func (c *RasterCache) Frame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Clear drops every entry.
func (c *RasterCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := uint64(c.lru.Len()); n > 0 {
		c.evictions.Add(n)
	}
	c.entries = make(map[Key]*entry)
	c.lru.Init()
	c.size = 0
	c.picturesThisFrame = 0
}

// AccessCount returns how many times the entry for key has been prepared.
func (c *RasterCache) AccessCount(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.accessCount
	}
	return 0
}

// Stats contains cache statistics for monitoring.
type Stats struct {
	// Size is the image memory in use, in bytes.
	Size    int64
	MaxSize int64
	// Entries counts tracked keys, with or without an image.
	Entries int
	Images  int
	// PicturesThisFrame counts display lists rasterized since the last
	// sweep.
	PicturesThisFrame int
	Hits              uint64
	Misses            uint64
	// HitRate is Hits / (Hits + Misses), or 0 before any Draw.
	HitRate   float64
	Evictions uint64
}

// Stats returns current statistics.
func (c *RasterCache) Stats() Stats {
	c.mu.Lock()
	st := Stats{
		Size:              c.size,
		MaxSize:           c.maxSize,
		Entries:           len(c.entries),
		Images:            c.lru.Len(),
		PicturesThisFrame: c.picturesThisFrame,
	}
	c.mu.Unlock()

	st.Hits = c.hits.Load()
	st.Misses = c.misses.Load()
	st.Evictions = c.evictions.Load()
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}
