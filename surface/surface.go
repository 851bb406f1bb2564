// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/flow"
)

// Surface is an onscreen render target: a canvas with a fixed pixel size
// whose contents are shown by Present.
//
// Surfaces are NOT thread-safe. Each surface should be used from a single
// goroutine, or external synchronization must be used.
type Surface interface {
	flow.Canvas

	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// Resize changes the surface dimensions. Existing content is
	// discarded and the canvas state is reset.
	Resize(width, height int) error

	// Present shows what has been drawn since the last Present.
	Present() error

	// Snapshot returns a copy of the current contents.
	Snapshot() *image.RGBA

	// Close releases the surface. Close is idempotent.
	Close() error
}

// Descriptor describes a surface's pixel storage in the terms a GPU backend
// uses to allocate textures.
type Descriptor struct {
	Size   gputypes.Extent3D
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Format is the pixel format of every surface in this package.
const Format = gputypes.TextureFormatRGBA8Unorm

// Described is implemented by surfaces that can report their storage.
type Described interface {
	Descriptor() Descriptor
}

// Pixels returns the pixel count of one layer of d.
func (d Descriptor) Pixels() int {
	return int(d.Size.Width) * int(d.Size.Height)
}

// descriptorFor returns the descriptor of a width x height RGBA8 target.
func descriptorFor(width, height int) Descriptor {
	return Descriptor{
		Size: gputypes.Extent3D{
			Width:              uint32(width),  //nolint:gosec // G115: dimensions are clamped to >= 1
			Height:             uint32(height), //nolint:gosec // G115: dimensions are clamped to >= 1
			DepthOrArrayLayers: 1,
		},
		Format: Format,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}
}
