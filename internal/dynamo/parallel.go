package dynamo

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RunSpec is one independent run of a sweep: a freshly built simulator
// together with its initial state and config.
type RunSpec struct {
	Sim    *Simulator
	X0     State
	Config Config
}

// Builder constructs the run for sweep index i. It is called on the worker
// goroutine, so every run gets its own plant, controller and integrator.
type Builder func(i int) (RunSpec, error)

type Sweep struct {
	numRuns int
	workers int
	// KeepDiverged returns partial results of diverged runs instead of failing the sweep.
	KeepDiverged bool
}

func NewSweep(numRuns int) *Sweep {
	return &Sweep{numRuns: numRuns, workers: runtime.GOMAXPROCS(0)}
}

func (w *Sweep) WithWorkers(n int) *Sweep {
	if n > 0 {
		w.workers = n
	}
	return w
}

func (w *Sweep) Run(ctx context.Context, build Builder) ([]*Result, error) {
	if w.numRuns < 0 {
		return nil, fmt.Errorf("%w: sweep runs=%d", ErrInvalidParameter, w.numRuns)
	}
	results := make([]*Result, w.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)

	for i := 0; i < w.numRuns; i++ {
		idx := i
		g.Go(func() error {
			spec, err := build(idx)
			if err != nil {
				return err
			}
			res, err := spec.Sim.Run(ctx, spec.X0, spec.Config)
			if err != nil && !(w.KeepDiverged && errors.Is(err, ErrDiverging)) {
				return err
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
