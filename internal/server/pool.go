package server

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/alignecoderepos/heron/internal/logging"
)

var (
	ErrPoolFull   = errors.New("all workers are busy")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Task is a unit of work run by a pool worker. ctx is cancelled when the
// pool is shut down.
type Task func(ctx context.Context)

// WorkerPool runs tasks on a bounded set of goroutines with no queue: a
// task is handed directly to an idle worker, or a new worker is started if
// fewer than max exist, otherwise Submit fails with ErrPoolFull.
type WorkerPool struct {
	tasks       chan Task
	slots       *semaphore.Weighted
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	workers atomic.Int32
	active  atomic.Int32
	closed  atomic.Bool
}

// NewWorkerPool starts core workers that live until shutdown. Workers above
// core exit after idleTimeout without work.
func NewWorkerPool(core, max int, idleTimeout time.Duration) *WorkerPool {
	if max < 1 {
		max = 1
	}
	if core > max {
		core = max
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		tasks:       make(chan Task),
		slots:       semaphore.NewWeighted(int64(max)),
		idleTimeout: idleTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}

	for i := 0; i < core; i++ {
		p.slots.TryAcquire(1)
		p.spawn(nil, true)
	}
	return p
}

// Submit hands task to a worker without blocking.
func (p *WorkerPool) Submit(task Task) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
	}

	if !p.slots.TryAcquire(1) {
		return ErrPoolFull
	}
	p.spawn(task, false)
	return nil
}

// ShutdownNow stops accepting tasks, cancels the context given to running
// tasks and lets idle workers exit. It does not wait.
func (p *WorkerPool) ShutdownNow() {
	p.closed.Store(true)
	p.cancel()
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Workers returns the number of live worker goroutines.
func (p *WorkerPool) Workers() int {
	return int(p.workers.Load())
}

// Active returns the number of workers currently running a task.
func (p *WorkerPool) Active() int {
	return int(p.active.Load())
}

func (p *WorkerPool) spawn(first Task, core bool) {
	p.wg.Add(1)
	p.workers.Add(1)
	go p.work(first, core)
}

func (p *WorkerPool) work(task Task, core bool) {
	defer func() {
		p.workers.Add(-1)
		p.slots.Release(1)
		p.wg.Done()
	}()

	for {
		if task != nil {
			p.run(task)
			task = nil
		}

		var idle *time.Timer
		var idleC <-chan time.Time
		if !core {
			if p.idleTimeout <= 0 {
				return
			}
			idle = time.NewTimer(p.idleTimeout)
			idleC = idle.C
		}

		select {
		case <-p.ctx.Done():
			return
		case task = <-p.tasks:
			if idle != nil {
				idle.Stop()
			}
		case <-idleC:
			return
		}
	}
}

func (p *WorkerPool) run(task Task) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("Worker task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	task(p.ctx)
}
