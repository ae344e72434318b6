// Package batch runs many independent iterations of a rotation in
// parallel and reduces them to summary statistics.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/aclements/go-moremath/stats"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/aplcore/engine"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Options configures a batch. Base.Seed is the seed of iteration 0;
// iteration i runs with Base.Seed + i. Base.Sink and Base.Combat are
// ignored because iterations run concurrently and must not share them;
// set Base.NewCombat to give every iteration its own collaborator on its
// own RNG.
type Options struct {
	Base       engine.Options
	Iterations int
	Workers    int // <= 0 uses GOMAXPROCS
}

// Iteration is one run's outcome without its event log.
type Iteration struct {
	Seed      int64
	End       time.Duration
	Totals    types.Totals
	Decisions int
}

// Stat summarizes one per-second rate across iterations.
type Stat struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

// Summary is the reduced result of a batch.
type Summary struct {
	Rotation   string
	Iterations int
	Horizon    time.Duration
	BaseSeed   int64
	DPS        Stat
	HPS        Stat
	APS        Stat // absorb per second
	Casts      Stat // casts per iteration
}

// Batch holds every iteration plus the summary computed from them.
type Batch struct {
	Summary    Summary
	Iterations []Iteration
}

// Run executes the batch. Each iteration owns its state, RNG and queue;
// only the catalog and the priority list are shared, read-only. The first
// failing iteration cancels the rest.
func Run(ctx context.Context, defs *state.Defs, list types.PriorityList, opts Options) (*Batch, error) {
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", opts.Iterations)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	base := opts.Base
	base.Sink = nil
	base.Combat = nil

	iters := make([]Iteration, opts.Iterations)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range iters {
		g.Go(func() error {
			o := base
			o.Seed = base.Seed + int64(i)
			res, err := engine.New(defs, list, o).Run(gctx)
			if err != nil {
				return fmt.Errorf("iteration %d (seed %d): %w", i, o.Seed, err)
			}
			iters[i] = Iteration{Seed: res.Seed, End: res.End, Totals: res.Totals, Decisions: res.Decisions}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	horizon := base.Horizon
	if horizon <= 0 {
		horizon = engine.DefaultHorizon
	}
	return &Batch{
		Summary:    Summarize(list.Name, horizon, base.Seed, iters),
		Iterations: iters,
	}, nil
}

// Summarize reduces iterations in index order, so the result does not
// depend on how they were scheduled.
func Summarize(rotation string, horizon time.Duration, baseSeed int64, iters []Iteration) Summary {
	var dps, hps, aps, casts []float64
	for _, it := range iters {
		secs := it.End.Seconds()
		dps = append(dps, perSecond(it.Totals.Damage, secs))
		hps = append(hps, perSecond(it.Totals.Healing, secs))
		aps = append(aps, perSecond(it.Totals.Absorb, secs))
		casts = append(casts, float64(it.Totals.Casts))
	}
	return Summary{
		Rotation:   rotation,
		Iterations: len(iters),
		Horizon:    horizon,
		BaseSeed:   baseSeed,
		DPS:        describe(dps),
		HPS:        describe(hps),
		APS:        describe(aps),
		Casts:      describe(casts),
	}
}

func perSecond(total, secs float64) float64 {
	if secs <= 0 {
		return 0
	}
	return total / secs
}

func describe(xs []float64) Stat {
	if len(xs) == 0 {
		return Stat{}
	}
	s := stats.Sample{Xs: xs}
	lo, hi := s.Bounds()
	st := Stat{
		Mean:   s.Mean(),
		Min:    lo,
		Max:    hi,
		Median: s.Copy().Sort().Quantile(0.5),
	}
	if len(xs) > 1 {
		st.StdDev = s.StdDev()
	}
	return st
}
