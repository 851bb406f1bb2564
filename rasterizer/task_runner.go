// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterizer

import (
	"context"
	"sync"
)

// TaskRunner runs posted tasks one at a time, in posting order, on the
// goroutine that calls Run. Tasks may post further tasks; they run after
// everything already queued.
//
// PostTask is safe for concurrent use.
type TaskRunner struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// NewTaskRunner creates an idle runner.
func NewTaskRunner() *TaskRunner {
	return &TaskRunner{wake: make(chan struct{}, 1)}
}

// PostTask queues fn. It returns false once the runner is closed.
func (r *TaskRunner) PostTask(fn func()) bool {
	if fn == nil {
		return false
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, fn)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks.
func (r *TaskRunner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *TaskRunner) next() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil
	}
	fn := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return fn
}

// RunPending runs the queued tasks, including tasks they post, until the
// queue is empty. It returns how many ran.
func (r *TaskRunner) RunPending() int {
	n := 0
	for fn := r.next(); fn != nil; fn = r.next() {
		fn()
		n++
	}
	return n
}

// RunOnce runs the oldest queued task and reports whether there was one.
// Tasks it posts stay queued.
func (r *TaskRunner) RunOnce() bool {
	fn := r.next()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Run executes tasks until ctx is done or the runner is closed and
// drained. It returns ctx.Err() when cancelled, nil after Close.
func (r *TaskRunner) Run(ctx context.Context) error {
	for {
		r.RunPending()

		r.mu.Lock()
		closed := r.closed && len(r.queue) == 0
		r.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		}
	}
}

// Close rejects further tasks. Run returns after the queue drains.
func (r *TaskRunner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
