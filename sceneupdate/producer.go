package sceneupdate

import (
	"fmt"
	"image"

	"github.com/gogpu/flow"
)

// RetainedKey identifies content kept across frames: the layer that owns
// it and the scale it was rasterized at. A key with a zero ID is never
// retained.
type RetainedKey struct {
	ID     flow.LayerID
	ScaleX float64
	ScaleY float64
}

// IsRetained reports whether content under k may be kept across frames.
func (k RetainedKey) IsRetained() bool { return !k.ID.IsZero() }

// String returns a compact form for logs.
func (k RetainedKey) String() string {
	return fmt.Sprintf("%s@%gx%g", k.ID, k.ScaleX, k.ScaleY)
}

// Surface is an offscreen target a Frame paints its layers into.
type Surface interface {
	Size() image.Point
	Canvas() flow.Canvas
}

// SurfaceProducer allocates surfaces and keeps retained nodes.
//
// A surface returned by ProduceSurface stays valid until it is passed to
// SubmitSurface or its owning layer is released. A producer that cannot
// allocate returns nil.
type SurfaceProducer interface {
	// ProduceSurface returns a surface of the given pixel size. When key is
	// retained, node is remembered under it for later frames.
	ProduceSurface(size image.Point, key RetainedKey, node *EntityNode) Surface
	HasRetainedNode(key RetainedKey) bool
	// GetRetainedNode returns the node kept under key and marks it used in
	// the current frame, or nil.
	GetRetainedNode(key RetainedKey) *EntityNode
	SubmitSurface(s Surface)
}
