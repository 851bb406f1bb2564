package displaylist

import (
	"image"

	"github.com/gogpu/flow"
)

// ResourcePool stores the paths and images referenced by ops. Paths are
// cloned on insertion so later edits by the caller never reach a recording.
//
// ResourcePool is not safe for concurrent mutation; a finished DisplayList
// only reads it.
type ResourcePool struct {
	paths  []*flow.Path
	images []image.Image
}

// NewResourcePool creates an empty pool.
func NewResourcePool() *ResourcePool {
	return &ResourcePool{
		paths:  make([]*flow.Path, 0, 16),
		images: make([]image.Image, 0, 4),
	}
}

// AddPath clones p into the pool and returns its reference.
func (p *ResourcePool) AddPath(path *flow.Path) PathRef {
	if path == nil {
		path = flow.NewPath()
	}
	p.paths = append(p.paths, path.Clone())
	// #nosec G115 -- pool size is bounded by available memory, well under uint32 max
	return PathRef(uint32(len(p.paths) - 1))
}

// Path returns the path for ref, or nil if ref is out of range.
func (p *ResourcePool) Path(ref PathRef) *flow.Path {
	if int(ref) >= len(p.paths) {
		return nil
	}
	return p.paths[ref]
}

// AddImage stores img and returns its reference. Images are treated as
// immutable and are not copied.
func (p *ResourcePool) AddImage(img image.Image) ImageRef {
	p.images = append(p.images, img)
	// #nosec G115 -- pool size is bounded by available memory, well under uint32 max
	return ImageRef(uint32(len(p.images) - 1))
}

// Image returns the image for ref, or nil if ref is out of range.
func (p *ResourcePool) Image(ref ImageRef) image.Image {
	if int(ref) >= len(p.images) {
		return nil
	}
	return p.images[ref]
}

// PathCount returns the number of stored paths.
func (p *ResourcePool) PathCount() int { return len(p.paths) }

// ImageCount returns the number of stored images.
func (p *ResourcePool) ImageCount() int { return len(p.images) }
