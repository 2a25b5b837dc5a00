package worker

import (
	"context"
	"sync"
)

// Result is anything a job produces that may carry a failure
type Result interface {
	GetError() error
}

// Job is a unit of work run by a Pool
type Job[R Result] interface {
	Execute(ctx context.Context) R
}

// Pool runs jobs on a fixed number of goroutines. Results are collected
// as they complete, so Submit never blocks on unread results.
type Pool[R Result] struct {
	workers   int
	jobs      chan Job[R]
	results   chan R
	collected []R
	done      chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool[R Result](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[R]{
		workers: workers,
		jobs:    make(chan Job[R], workers*2),
		results: make(chan R, workers),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool[R]) Start() {
	go func() {
		defer close(p.done)
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool[R]) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns false if the pool was shut down.
func (p *Pool[R]) Submit(job Job[R]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Wait closes the queue and returns every result once the workers finish.
// Submit must not be called after Wait.
func (p *Pool[R]) Wait() []R {
	close(p.jobs)
	p.wg.Wait()
	p.closeResults()
	<-p.done
	p.cancel()
	return p.collected
}

// Shutdown stops the workers without draining queued jobs and returns
// whatever completed
func (p *Pool[R]) Shutdown() []R {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
	<-p.done
	return p.collected
}

func (p *Pool[R]) closeResults() {
	p.closeOnce.Do(func() { close(p.results) })
}

// Errors returns the non-nil errors among results
func Errors[R Result](results []R) []error {
	var errs []error
	for _, r := range results {
		if err := r.GetError(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
