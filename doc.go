// Package flow provides the geometry and capability types shared by the
// layer-tree compositor.
//
// # Overview
//
// flow is a retained-mode scene graph with cumulative affine/perspective
// transforms, conservative clip tracking, elevation-based z-ordering and a
// frame-budgeted raster cache. The root package holds the value types every
// sub-package agrees on:
//
//   - Matrix: 4x4 homogeneous transform (row-major)
//   - Rect, RRect, Point: device and local space geometry
//   - Path: an outline backed by seehuhn.de/go/geom path data
//   - Canvas: the 2D drawing capability layers paint into
//   - LayerID: arena handle used as a cross-frame identity key
//
// # Sub-packages
//
//   - clipstate: matrix/cull-rect tracker used during preroll and paint
//   - displaylist: recording Canvas and replayable display lists
//   - layer: layer variants and the per-frame layer tree
//   - rastercache: cache admission policy and cache storage
//   - sceneupdate: retained scene composition for platform compositors
//   - surface: software Canvas and surface producer
//   - compositor, rasterizer: the frame driver
//
// # Coordinate System
//
// Origin (0,0) at top-left, X increases right, Y increases down, angles in
// radians. Composition always right-multiplies, so each new operation
// applies in the current local space.
//
// # Logging
//
// flow produces no log output by default. Call SetLogger to enable it; all
// sub-packages share the same logger.
package flow

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"
)
