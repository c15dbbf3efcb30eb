// Package workerpool provides a bounded goroutine pool shared by the
// CPU-heavy scan stages. Detection fans document scans out across it,
// so a large asset batch reuses workers instead of paying a goroutine
// per file.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs submitted tasks on a fixed set of reusable workers.
type Pool struct {
	workers int
	tasks   chan func()

	running atomic.Int32
	closed  atomic.Bool
	wg      sync.WaitGroup
}

var (
	defaultPool *Pool
	defaultOnce sync.Once
)

// Default returns the process-wide pool, sized for I/O-mixed scanning
// at four workers per CPU, clamped to [16, 256].
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New(min(max(runtime.GOMAXPROCS(0)*4, 16), 256))
	})
	return defaultPool
}

// New creates a pool of the given size. Workers start lazily as tasks
// arrive.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		workers: workers,
		tasks:   make(chan func(), workers*4),
	}
}

// Submit queues task for execution, blocking while the queue is full.
// Submitting to a closed pool is rejected with false.
func (p *Pool) Submit(task func()) bool {
	if p.closed.Load() {
		return false
	}
	p.maybeSpawn()
	p.tasks <- task
	return true
}

// maybeSpawn starts a worker unless the pool is already at capacity.
// The CAS loop keeps the running count exact under concurrent Submits.
func (p *Pool) maybeSpawn() {
	for {
		n := p.running.Load()
		if n >= int32(p.workers) {
			return
		}
		if p.running.CompareAndSwap(n, n+1) {
			p.wg.Add(1)
			go p.work()
			return
		}
	}
}

func (p *Pool) work() {
	defer func() {
		p.running.Add(-1)
		p.wg.Done()
	}()
	for task := range p.tasks {
		runTask(task)
	}
}

// runTask contains panics so a bad document cannot take a worker down
// with it.
func runTask(task func()) {
	defer func() {
		_ = recover()
	}()
	if task != nil {
		task()
	}
}

// Running returns the number of live workers.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Cap returns the worker limit.
func (p *Pool) Cap() int { return p.workers }

// Waiting returns the number of queued tasks not yet picked up.
func (p *Pool) Waiting() int { return len(p.tasks) }

// Close drains queued tasks and stops the workers. Calling it again
// is a no-op.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool { return p.closed.Load() }

// ParallelFor runs fn for each index from 0 to n-1 on the pool and
// blocks until every iteration finishes.
func (p *Pool) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		if !p.Submit(func() {
			defer wg.Done()
			fn(i)
		}) {
			wg.Done()
		}
	}
	wg.Wait()
}

// Map applies fn to every item on the pool and returns the results in
// input order. Items whose submission fails because the pool closed
// keep their zero value.
func Map[T, R any](p *Pool, items []T, fn func(T) R) []R {
	results := make([]R, len(items))
	var wg sync.WaitGroup
	wg.Add(len(items))

	for i, item := range items {
		if !p.Submit(func() {
			defer wg.Done()
			results[i] = fn(item)
		}) {
			wg.Done()
		}
	}

	wg.Wait()
	return results
}
