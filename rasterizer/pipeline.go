// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterizer

import (
	"context"
	"errors"
)

// ErrPipelineClosed is returned when producing into a closed pipeline.
var ErrPipelineClosed = errors.New("rasterizer: pipeline closed")

// ConsumeResult reports what Consume found.
type ConsumeResult int

const (
	// Done means one item was consumed and the pipeline is now empty.
	Done ConsumeResult = iota
	// MoreAvailable means one item was consumed and more are waiting.
	MoreAvailable
	// NoneAvailable means the pipeline was empty.
	NoneAvailable
)

// String returns the result name.
func (r ConsumeResult) String() string {
	switch r {
	case Done:
		return "Done"
	case MoreAvailable:
		return "MoreAvailable"
	case NoneAvailable:
		return "NoneAvailable"
	default:
		return "Unknown"
	}
}

// Pipeline is a bounded single-producer, single-consumer queue of frames.
// The producer blocks (or fails, with TryProduce) while depth items wait;
// the consumer never blocks.
type Pipeline[T any] struct {
	items chan T
	done  chan struct{}
}

// NewPipeline creates a pipeline holding at most depth items. depth is
// raised to 1 if smaller.
func NewPipeline[T any](depth int) *Pipeline[T] {
	return &Pipeline[T]{items: make(chan T, max(depth, 1)), done: make(chan struct{})}
}

// Depth returns the pipeline capacity.
func (p *Pipeline[T]) Depth() int { return cap(p.items) }

// Len returns the number of waiting items.
func (p *Pipeline[T]) Len() int { return len(p.items) }

// Produce queues v, waiting for space until ctx is done or the pipeline
// is closed.
func (p *Pipeline[T]) Produce(ctx context.Context, v T) error {
	select {
	case <-p.done:
		return ErrPipelineClosed
	default:
	}
	select {
	case p.items <- v:
		return nil
	case <-p.done:
		return ErrPipelineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryProduce queues v if there is space and reports whether it did.
func (p *Pipeline[T]) TryProduce(v T) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.items <- v:
		return true
	default:
		return false
	}
}

// Consume passes at most one waiting item to fn.
func (p *Pipeline[T]) Consume(fn func(T)) ConsumeResult {
	select {
	case v := <-p.items:
		fn(v)
		if len(p.items) > 0 {
			return MoreAvailable
		}
		return Done
	default:
		return NoneAvailable
	}
}

// Close stops further production. Waiting items can still be consumed.
// Close must be called at most once.
func (p *Pipeline[T]) Close() { close(p.done) }
