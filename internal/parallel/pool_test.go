package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		workers int
		want    int
	}{
		{4, 4},
		{1, 1},
		{0, runtime.GOMAXPROCS(0)},
		{-5, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		p := NewWorkerPool(tt.workers)
		if got := p.Workers(); got != tt.want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", tt.workers, got, tt.want)
		}
		if !p.IsRunning() {
			t.Errorf("NewWorkerPool(%d) not running", tt.workers)
		}
		p.Close()
	}
}

func TestExecuteAllRunsEverything(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	var mu sync.Mutex
	seen := make(map[int]bool)
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() {
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		}
	}
	p.ExecuteAll(work)

	if len(seen) != len(work) {
		t.Errorf("ran %d tasks, want %d", len(seen), len(work))
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()
	p.ExecuteAll(nil)
	p.ExecuteAll([]func(){})
}

func TestExecuteAllWaits(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()

	var done atomic.Int32
	work := []func(){
		func() { time.Sleep(20 * time.Millisecond); done.Add(1) },
		func() { time.Sleep(10 * time.Millisecond); done.Add(1) },
		func() { done.Add(1) },
	}
	p.ExecuteAll(work)
	if got := done.Load(); got != 3 {
		t.Errorf("completed = %d when ExecuteAll returned, want 3", got)
	}
}

func TestExecuteAllAfterCloseRunsInline(t *testing.T) {
	p := NewWorkerPool(2)
	p.Close()
	p.Close()
	if p.IsRunning() {
		t.Fatal("IsRunning() = true after Close")
	}

	var n atomic.Int32
	p.ExecuteAll([]func(){func() { n.Add(1) }, func() { n.Add(1) }})
	if got := n.Load(); got != 2 {
		t.Errorf("ran %d tasks on closed pool, want 2", got)
	}
}

func TestExecuteAllRepeated(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	var n atomic.Int32
	work := make([]func(), 4)
	for i := range work {
		work[i] = func() {
			time.Sleep(5 * time.Millisecond)
			n.Add(1)
		}
	}
	for range 10 {
		p.ExecuteAll(work)
	}
	if got := n.Load(); got != 40 {
		t.Errorf("ran %d tasks, want 40", got)
	}
}

func BenchmarkExecuteAll(b *testing.B) {
	p := NewWorkerPool(0)
	defer p.Close()
	work := make([]func(), 64)
	for i := range work {
		work[i] = func() {}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ExecuteAll(work)
	}
}
