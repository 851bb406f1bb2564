// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"sync"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/sceneupdate"
)

// Producer hands out ImageSurfaces for scene frames and keeps the nodes of
// retained frames across frames.
//
// Surfaces of submitted, non-retained frames return to a free list and are
// reused for requests with the same Descriptor. A retained surface stays allocated until a frame passes
// without its node being reused; FinishFrame then releases it.
//
// Producer is safe for concurrent use.
type Producer struct {
	mu       sync.Mutex
	budget   int
	live     int
	frame    uint64
	retained map[sceneupdate.RetainedKey]*retainedEntry
	held     map[*ImageSurface]bool
	free     map[Descriptor][]*ImageSurface
	nfree    int

	produced  uint64
	submitted uint64
	failed    uint64
}

type retainedEntry struct {
	node     *sceneupdate.EntityNode
	surface  *ImageSurface
	lastUsed uint64
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// WithPixelBudget limits the pixels of all live surfaces. Requests beyond
// the budget get no surface. Zero means unlimited.
func WithPixelBudget(pixels int) ProducerOption {
	return func(p *Producer) { p.budget = pixels }
}

// NewProducer creates a producer.
func NewProducer(opts ...ProducerOption) *Producer {
	p := &Producer{
		retained: make(map[sceneupdate.RetainedKey]*retainedEntry),
		held:     make(map[*ImageSurface]bool),
		free:     make(map[Descriptor][]*ImageSurface),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProduceSurface implements sceneupdate.SurfaceProducer.
func (p *Producer) ProduceSurface(size image.Point, key sceneupdate.RetainedKey, node *sceneupdate.EntityNode) sceneupdate.Surface {
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	desc := descriptorFor(size.X, size.Y)
	pixels := desc.Pixels()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.budget > 0 && p.live+pixels > p.budget {
		p.failed++
		flow.Logger().Warn("surface: pixel budget exhausted",
			"requested", pixels, "live", p.live, "budget", p.budget)
		return nil
	}

	s := p.takeLocked(desc)
	p.live += pixels
	p.produced++

	if key.IsRetained() && node != nil {
		if old, ok := p.retained[key]; ok {
			p.releaseLocked(old.surface)
		}
		p.retained[key] = &retainedEntry{node: node, surface: s, lastUsed: p.frame}
		p.held[s] = true
	}
	return s
}

func (p *Producer) takeLocked(desc Descriptor) *ImageSurface {
	if list := p.free[desc]; len(list) > 0 {
		s := list[len(list)-1]
		list[len(list)-1] = nil
		if len(list) == 1 {
			delete(p.free, desc)
		} else {
			p.free[desc] = list[:len(list)-1]
		}
		p.nfree--
		s.reset(s.img)
		return s
	}
	return NewImageSurface(int(desc.Size.Width), int(desc.Size.Height))
}

func (p *Producer) releaseLocked(s *ImageSurface) {
	delete(p.held, s)
	desc := s.Descriptor()
	p.live -= desc.Pixels()
	p.free[desc] = append(p.free[desc], s)
	p.nfree++
}

// HasRetainedNode implements sceneupdate.SurfaceProducer.
func (p *Producer) HasRetainedNode(key sceneupdate.RetainedKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.retained[key]
	return ok
}

// GetRetainedNode implements sceneupdate.SurfaceProducer.
func (p *Producer) GetRetainedNode(key sceneupdate.RetainedKey) *sceneupdate.EntityNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.retained[key]
	if !ok {
		return nil
	}
	e.lastUsed = p.frame
	return e.node
}

// SubmitSurface implements sceneupdate.SurfaceProducer. Surfaces that are
// not retained go back to the free list.
func (p *Producer) SubmitSurface(ss sceneupdate.Surface) {
	s, ok := ss.(*ImageSurface)
	if !ok {
		return
	}
	_ = s.Present()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted++
	if !p.held[s] {
		p.releaseLocked(s)
	}
}

// FinishFrame releases retained surfaces whose nodes were not reused during
// the frame and starts the next frame. It returns how many were released.
func (p *Producer) FinishFrame() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	released := 0
	for key, e := range p.retained {
		if e.lastUsed < p.frame {
			delete(p.retained, key)
			p.releaseLocked(e.surface)
			released++
		}
	}
	p.frame++
	if released > 0 {
		flow.Logger().Debug("surface: released retained surfaces", "count", released)
	}
	return released
}

// ProducerStats describes a Producer's current state.
type ProducerStats struct {
	// LivePixels is the pixel count of surfaces not on the free list.
	LivePixels int
	Retained   int
	Free       int
	Produced   uint64
	Submitted  uint64
	// Failed counts requests refused by the pixel budget.
	Failed uint64
}

// Stats returns current statistics.
func (p *Producer) Stats() ProducerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProducerStats{
		LivePixels: p.live,
		Retained:   len(p.retained),
		Free:       p.nfree,
		Produced:   p.produced,
		Submitted:  p.submitted,
		Failed:     p.failed,
	}
}

var _ sceneupdate.SurfaceProducer = (*Producer)(nil)
