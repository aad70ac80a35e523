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

type queued struct {
	index int
	job   Job
}

type completed struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of goroutines and returns their
// results in submission order, whatever order they finish in.
type Pool struct {
	workers    int
	jobQueue   chan queued
	submitted  int
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	completed []completed
}

// NewPool creates a pool whose jobs run under a context derived from parent.
// Cancelling parent cancels every in-flight job.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan queued, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := item.job.Execute(p.ctx)
			p.mu.Lock()
			p.completed = append(p.completed, completed{index: item.index, result: result})
			p.mu.Unlock()
		}
	}
}

// Submit queues a job. It blocks while the queue is full and returns false
// once the pool has been cancelled. Submit must not be called concurrently
// with Wait.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	item := queued{index: p.submitted, job: job}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- item:
		p.submitted++
		return true
	}
}

// Wait stops accepting jobs, waits for the workers to drain the queue and
// returns the results in submission order. Jobs still queued when the
// parent context is cancelled produce no result.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.cancelFunc()

	p.mu.Lock()
	collected := p.completed
	p.completed = nil
	p.mu.Unlock()

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	results := make([]Result, len(collected))
	for i, c := range collected {
		results[i] = c.result
	}
	return results
}

// Shutdown cancels in-flight jobs and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}
