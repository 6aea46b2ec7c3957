package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job hands back
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool detached from any caller context
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs are cancelled with parent
func NewPoolWithContext(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers
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
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns immediately once the pool is shut down.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- job:
	}
}

// Wait closes the queue and collects results in completion order
func (p *Pool) Wait() []Result {
	p.closeQueue()
	return p.collect()
}

// Shutdown cancels in-flight jobs and stops the workers
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

// indexedJob tags a job's output with its submission position
type indexedJob[T any] struct {
	index int
	fn    func(ctx context.Context, i int) T
}

type indexedResult[T any] struct {
	index int
	value T
}

func (r *indexedResult[T]) GetError() error { return nil }

func (j *indexedJob[T]) Execute(ctx context.Context) Result {
	return &indexedResult[T]{index: j.index, value: j.fn(ctx, j.index)}
}

// Map runs fn for every index in [0, n) on at most workers goroutines and
// returns the outputs in index order, whatever order they complete in.
// Slots whose job never ran (parent cancelled) keep T's zero value.
func Map[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) T) []T {
	out, _ := MapRan(ctx, workers, n, fn)
	return out
}

// MapRan is Map that also reports which slots hold a collected output.
// ran[i] is false when job i was skipped or cut off by cancellation.
func MapRan[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) T) ([]T, []bool) {
	out := make([]T, n)
	ran := make([]bool, n)
	if n == 0 {
		return out, ran
	}
	if workers > n {
		workers = n
	}

	pool := NewPoolWithContext(ctx, workers)
	pool.Start()

	go func() {
		for i := 0; i < n; i++ {
			pool.Submit(&indexedJob[T]{index: i, fn: fn})
		}
		pool.closeQueue()
	}()

	for _, r := range pool.collect() {
		ir := r.(*indexedResult[T])
		out[ir.index] = ir.value
		ran[ir.index] = true
	}
	return out, ran
}

func (p *Pool) closeQueue() {
	close(p.jobQueue)
}

// collect drains results until every worker has exited
func (p *Pool) collect() []Result {
	go func() {
		p.wg.Wait()
		p.closeResults()
		p.cancelFunc()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// ResultCollector gathers results from several goroutines
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates an empty collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add appends a result
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns everything added so far
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}
