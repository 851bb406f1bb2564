package flow

import (
	"fmt"
	"sync"
)

// LayerID is a generation-checked handle identifying a layer across frames.
// The zero LayerID is never allocated and means "no identity": content with
// a zero ID is never retained or cached.
type LayerID struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether id is the zero handle.
func (id LayerID) IsZero() bool {
	return id == LayerID{}
}

// String returns "index/generation".
func (id LayerID) String() string {
	return fmt.Sprintf("%d/%d", id.Index, id.Generation)
}

// IDAllocator hands out LayerIDs from an arena of slots. Releasing a slot
// bumps its generation, so a stale handle never compares equal to the next
// owner of the slot.
//
// IDAllocator is safe for concurrent use.
type IDAllocator struct {
	mu          sync.Mutex
	generations []uint32 // index 0 is reserved
	live        []bool
	free        []uint32
}

// NewIDAllocator creates an empty allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{generations: []uint32{0}, live: []bool{false}}
}

// Allocate returns a fresh handle.
func (a *IDAllocator) Allocate() LayerID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.live[idx] = true
		return LayerID{Index: idx, Generation: a.generations[idx]}
	}
	idx := uint32(len(a.generations))
	a.generations = append(a.generations, 1)
	a.live = append(a.live, true)
	return LayerID{Index: idx, Generation: 1}
}

// Release invalidates id and recycles its slot. Releasing a stale or zero
// handle is a no-op.
func (a *IDAllocator) Release(id LayerID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.validLocked(id) {
		return
	}
	a.live[id.Index] = false
	a.generations[id.Index]++
	if a.generations[id.Index] == 0 {
		// Wrapped: retire the slot rather than reissue generation 0.
		return
	}
	a.free = append(a.free, id.Index)
}

// Valid reports whether id is currently allocated.
func (a *IDAllocator) Valid(id LayerID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.validLocked(id)
}

func (a *IDAllocator) validLocked(id LayerID) bool {
	if id.Index == 0 || int(id.Index) >= len(a.generations) {
		return false
	}
	return a.live[id.Index] && a.generations[id.Index] == id.Generation
}

// Len returns the number of live handles.
func (a *IDAllocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, l := range a.live {
		if l {
			n++
		}
	}
	return n
}

var defaultIDs = NewIDAllocator()

// NewLayerID allocates a handle from the process-wide allocator.
func NewLayerID() LayerID {
	return defaultIDs.Allocate()
}

// ReleaseLayerID returns a handle to the process-wide allocator.
func ReleaseLayerID(id LayerID) {
	defaultIDs.Release(id)
}
