package worker

import (
	"context"
	"sort"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	seq int
	job Job
}

type indexedResult struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of goroutines. Wait returns results in
// submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
	collected []indexedResult
	drained   chan struct{}
}

// NewPool creates a pool bound to ctx with the specified number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		results:    make(chan indexedResult, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		drained:    make(chan struct{}),
	}
}

// Start starts the worker goroutines and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		defer close(p.drained)
		for r := range p.results {
			p.mu.Lock()
			p.collected = append(p.collected, r)
			p.mu.Unlock()
		}
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := ij.job.Execute(p.ctx)
			select {
			case p.results <- indexedResult{seq: ij.seq, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job; it returns false if the pool was shut down
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	seq := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob{seq: seq, job: job}:
		return true
	}
}

// Wait closes the pool to new jobs, waits for all submitted jobs and
// returns their results in submission order. Submit must not be called
// concurrently with or after Wait.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.drained

	p.mu.Lock()
	collected := p.collected
	p.mu.Unlock()

	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })
	results := make([]Result, len(collected))
	for i, r := range collected {
		results[i] = r.result
	}
	return results
}

// Shutdown cancels running jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
