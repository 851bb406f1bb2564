// Package displaylist records drawing calls made against a flow.Canvas and
// replays them later.
//
// A Recorder is a flow.Canvas that stores every call as a typed Op instead
// of rasterizing it, while tracking the device bounds of what was drawn.
// Finish turns it into an immutable DisplayList that can be replayed into
// any Canvas, measured for raster-cache admission, or dumped as JSON for
// frame traces.
//
// # Example
//
//	rec := displaylist.NewRecorder(flow.MakeWH(800, 600))
//	rec.Translate(10, 10)
//	rec.DrawRect(flow.MakeWH(100, 50), flow.Fill(red))
//	dl := rec.Finish()
//
//	dl.Playback(surface)
package displaylist

import (
	"image/color"

	"github.com/gogpu/flow"
)

// OpType identifies the type of a recorded op.
type OpType uint8

const (
	// State ops
	OpSave         OpType = iota // Save matrix and clip
	OpSaveLayer                  // Save and begin an offscreen layer
	OpRestore                    // Restore previous state
	OpTransform                  // Concatenate a matrix
	OpSetTransform               // Replace the matrix
	OpClipRect                   // Clip to a rectangle
	OpClipRRect                  // Clip to a rounded rectangle
	OpClipPath                   // Clip to a path

	// Drawing ops
	OpClear      // Fill the clip with a colour
	OpDrawRect   // Fill a rectangle
	OpDrawOval   // Fill an oval
	OpDrawRRect  // Fill a rounded rectangle
	OpDrawPath   // Fill a path
	OpDrawShadow // Draw an elevation shadow
	OpDrawImage  // Draw an image
)

var opTypeNames = [...]string{
	OpSave:         "Save",
	OpSaveLayer:    "SaveLayer",
	OpRestore:      "Restore",
	OpTransform:    "Transform",
	OpSetTransform: "SetTransform",
	OpClipRect:     "ClipRect",
	OpClipRRect:    "ClipRRect",
	OpClipPath:     "ClipPath",
	OpClear:        "Clear",
	OpDrawRect:     "DrawRect",
	OpDrawOval:     "DrawOval",
	OpDrawRRect:    "DrawRRect",
	OpDrawPath:     "DrawPath",
	OpDrawShadow:   "DrawShadow",
	OpDrawImage:    "DrawImage",
}

// String returns the name of the op type.
func (t OpType) String() string {
	if int(t) < len(opTypeNames) {
		return opTypeNames[t]
	}
	return "Unknown"
}

// IsDraw reports whether ops of this type put pixels on the canvas.
func (t OpType) IsDraw() bool {
	return t >= OpClear && t <= OpDrawImage
}

// Op is implemented by every recorded operation.
type Op interface {
	Type() OpType
}

// PathRef indexes a path in a display list's resource pool.
type PathRef uint32

// ImageRef indexes an image in a display list's resource pool.
type ImageRef uint32

// SaveOp saves the matrix and clip.
type SaveOp struct{}

// Type implements Op.
func (SaveOp) Type() OpType { return OpSave }

// SaveLayerOp saves and redirects drawing to an offscreen layer.
type SaveLayerOp struct {
	Bounds *flow.Rect  `json:"bounds,omitempty"`
	Paint  *flow.Paint `json:"paint,omitempty"`
}

// Type implements Op.
func (SaveLayerOp) Type() OpType { return OpSaveLayer }

// RestoreOp restores the previous state.
type RestoreOp struct{}

// Type implements Op.
func (RestoreOp) Type() OpType { return OpRestore }

// TransformOp concatenates a matrix in local space. Translate, Scale,
// Rotate and Skew all record as TransformOp.
type TransformOp struct {
	Matrix flow.Matrix `json:"matrix"`
}

// Type implements Op.
func (TransformOp) Type() OpType { return OpTransform }

// SetTransformOp replaces the matrix.
type SetTransformOp struct {
	Matrix flow.Matrix `json:"matrix"`
}

// Type implements Op.
func (SetTransformOp) Type() OpType { return OpSetTransform }

// ClipRectOp clips to a rectangle.
type ClipRectOp struct {
	Rect      flow.Rect   `json:"rect"`
	Op        flow.ClipOp `json:"op"`
	AntiAlias bool        `json:"aa"`
}

// Type implements Op.
func (ClipRectOp) Type() OpType { return OpClipRect }

// ClipRRectOp clips to a rounded rectangle.
type ClipRRectOp struct {
	RRect     flow.RRect  `json:"rrect"`
	Op        flow.ClipOp `json:"op"`
	AntiAlias bool        `json:"aa"`
}

// Type implements Op.
func (ClipRRectOp) Type() OpType { return OpClipRRect }

// ClipPathOp clips to a path.
type ClipPathOp struct {
	Path      PathRef     `json:"path"`
	Op        flow.ClipOp `json:"op"`
	AntiAlias bool        `json:"aa"`
}

// Type implements Op.
func (ClipPathOp) Type() OpType { return OpClipPath }

// ClearOp fills the whole clip with a colour.
type ClearOp struct {
	Color color.NRGBA `json:"color"`
}

// Type implements Op.
func (ClearOp) Type() OpType { return OpClear }

// DrawRectOp fills a rectangle.
type DrawRectOp struct {
	Rect  flow.Rect  `json:"rect"`
	Paint flow.Paint `json:"paint"`
}

// Type implements Op.
func (DrawRectOp) Type() OpType { return OpDrawRect }

// DrawOvalOp fills the oval inscribed in Rect.
type DrawOvalOp struct {
	Rect  flow.Rect  `json:"rect"`
	Paint flow.Paint `json:"paint"`
}

// Type implements Op.
func (DrawOvalOp) Type() OpType { return OpDrawOval }

// DrawRRectOp fills a rounded rectangle.
type DrawRRectOp struct {
	RRect flow.RRect `json:"rrect"`
	Paint flow.Paint `json:"paint"`
}

// Type implements Op.
func (DrawRRectOp) Type() OpType { return OpDrawRRect }

// DrawPathOp fills a path.
type DrawPathOp struct {
	Path  PathRef    `json:"path"`
	Paint flow.Paint `json:"paint"`
}

// Type implements Op.
func (DrawPathOp) Type() OpType { return OpDrawPath }

// DrawShadowOp draws the shadow cast by a path.
type DrawShadowOp struct {
	Path                PathRef     `json:"path"`
	Color               color.NRGBA `json:"color"`
	Elevation           float64     `json:"elevation"`
	TransparentOccluder bool        `json:"transparent_occluder"`
	DPR                 float64     `json:"dpr"`
}

// Type implements Op.
func (DrawShadowOp) Type() OpType { return OpDrawShadow }

// DrawImageOp draws an image at a point.
type DrawImageOp struct {
	Image ImageRef    `json:"image"`
	At    flow.Point  `json:"at"`
	Paint *flow.Paint `json:"paint,omitempty"`
}

// Type implements Op.
func (DrawImageOp) Type() OpType { return OpDrawImage }
