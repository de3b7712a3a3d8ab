// Package parallel runs row bands of CPU image kernels on a fixed set of
// worker goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// MinBandRows is the smallest band Bands hands to a worker. Smaller images
// run on the calling goroutine.
const MinBandRows = 16

// WorkerPool is a pool of goroutines for parallel pixel work.
//
// Each worker has its own queue and steals from the others when its queue
// is empty, so bands with uneven cost still finish together.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	mine := p.workQueues[id]
	for {
		select {
		case <-p.done:
			drain(mine)
			return
		case work := <-mine:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				drain(mine)
				return
			case work := <-mine:
				work()
			}
		}
	}
}

func drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll runs every item and waits for all of them. Items run on the
// calling goroutine when the pool is closed.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		wrapped := func() {
			defer wg.Done()
			fn()
		}
		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	wg.Wait()
}

// Bands splits rows [0, height) into contiguous bands, one or more per
// worker, and calls fn(y0, y1) for each. It returns when every band is done.
func (p *WorkerPool) Bands(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	n := min(p.workers*2, (height+MinBandRows-1)/MinBandRows)
	if n <= 1 {
		fn(0, height)
		return
	}
	step := (height + n - 1) / n
	work := make([]func(), 0, n)
	for y0 := 0; y0 < height; y0 += step {
		y1 := min(y0+step, height)
		work = append(work, func() { fn(y0, y1) })
	}
	p.ExecuteAll(work)
}

// Close stops the workers after queued work completes.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
