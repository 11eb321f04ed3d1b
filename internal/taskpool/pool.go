package taskpool

import (
	"sync"

	"github.com/rs/zerolog"
)

// Pool runs tasks on a core set of workers behind a bounded queue. When the
// queue fills the pool grows one spare worker at a time up to maxWorkers;
// beyond that Submit drops the task instead of blocking the caller. Push
// delivery is best-effort and must never stall alert ingestion.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger zerolog.Logger

	mu       sync.Mutex
	closed   bool
	spare    int
	maxSpare int
}

func New(workers, maxWorkers, queueSize int, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if maxWorkers < workers {
		maxWorkers = workers
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		tasks:    make(chan func(), queueSize),
		maxSpare: maxWorkers - workers,
		logger:   logger.With().Str("component", "taskpool").Logger(),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// spareWorker runs its seed task, then keeps draining the queue and exits
// once it goes idle.
func (p *Pool) spareWorker(seed func()) {
	defer p.wg.Done()
	seed()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		default:
			p.mu.Lock()
			p.spare--
			p.mu.Unlock()
			return
		}
	}
}

// Submit enqueues a task, growing a spare worker when the queue is full. It
// reports false when the pool is saturated or already stopped.
func (p *Pool) Submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
	}

	if p.spare >= p.maxSpare {
		p.logger.Warn().Msg("task queue full, dropping task")
		return false
	}
	p.spare++
	p.wg.Add(1)
	go p.spareWorker(task)
	return true
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
