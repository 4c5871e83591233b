package pipeline

import (
	"context"
	"sync"

	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// PoolOptions bounds the batch fan-out. Each run already rate-limits its own
// network and capability calls through the shared process-wide limiters, so
// the pool only caps run concurrency.
type PoolOptions struct {
	// Workers is the run-concurrency limit.
	Workers int
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// RunAll enriches every seed, at most opts.Workers runs in flight. Results
// are returned in seed order. onRun, when non-nil, receives each terminal run
// in completion order; an onRun error (a failing sink, typically) cancels the
// remaining runs and is returned.
func (o *Orchestrator) RunAll(ctx context.Context, seeds []seed.Seed, opts PoolOptions, onRun func(*Run) error) ([]*Run, error) {
	opts = opts.withDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]*Run, len(seeds))

	type job struct {
		idx int
		s   seed.Seed
	}
	type completion struct {
		idx int
		run *Run
	}

	jobs := make(chan job)
	done := make(chan completion, opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if runCtx.Err() != nil {
					return
				}
				run := o.EnrichSeed(runCtx, j.s)
				select {
				case done <- completion{idx: j.idx, run: run}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, s := range seeds {
			select {
			case jobs <- job{idx: i, s: s}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	var firstErr error
	for c := range done {
		out[c.idx] = c.run
		if onRun != nil && firstErr == nil {
			if err := onRun(c.run); err != nil {
				firstErr = err
				cancel()
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
