package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nathoo/aplcore/cli"
	"github.com/nathoo/aplcore/engine"
	"github.com/nathoo/aplcore/engine/batch"
	"github.com/nathoo/aplcore/engine/replay"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/loader"
	"github.com/nathoo/aplcore/report"
	"github.com/nathoo/aplcore/store"
	"github.com/nathoo/aplcore/tui"
	"github.com/nathoo/aplcore/types"
)

// errDiverged is returned by verify mode when the re-run differs.
var errDiverged = errors.New("run diverged from record")

// Run executes the configured mode.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Mode == ModeHistory {
		return runHistory(ctx, cfg, out)
	}

	defs, list, err := load(cfg)
	if err != nil {
		return err
	}
	opts := engine.Options{
		Horizon:    cfg.Horizon,
		Seed:       cfg.Seed,
		Targets:    cfg.Targets,
		Allies:     cfg.Allies,
		RateWindow: cfg.RateWindow,
		Logger:     slog.Default(),
	}

	switch cfg.Mode {
	case ModeRun:
		return runSingle(ctx, cfg, defs, list, opts, out)
	case ModeBatch:
		return runBatch(ctx, cfg, defs, list, opts, out)
	case ModeVerify:
		return runVerify(ctx, cfg, defs, list, out)
	}

	sched := engine.New(defs, list, opts)
	if cfg.Mode == ModeTUI || (cfg.Mode == ModeAuto && cfg.Script == "" && isTerminal()) {
		return tui.Run(sched)
	}

	c := cli.New(sched)
	c.In = in
	c.Out = out
	c.Trace = cfg.Trace
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	}
	c.Run()
	return nil
}

func load(cfg Config) (*state.Defs, types.PriorityList, error) {
	defs, err := loader.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, types.PriorityList{}, fmt.Errorf("loading catalog: %w", err)
	}
	list, err := loader.LoadRotation(cfg.Rotation, defs)
	if err != nil {
		return nil, types.PriorityList{}, fmt.Errorf("loading rotation: %w", err)
	}
	return defs, list, nil
}

func runSingle(ctx context.Context, cfg Config, defs *state.Defs, list types.PriorityList, opts engine.Options, out io.Writer) error {
	sched := engine.New(defs, list, opts)
	res, err := sched.Run(ctx)
	if err != nil {
		return err
	}

	secs := res.End.Seconds()
	fmt.Fprintf(out, "%s seed %d: %v, %d decisions, %d casts\n", res.Rotation, res.Seed, res.End, res.Decisions, res.Totals.Casts)
	fmt.Fprintf(out, "  damage  %10.0f  (%.1f/s)\n", res.Totals.Damage, perSecond(res.Totals.Damage, secs))
	fmt.Fprintf(out, "  healing %10.0f  (%.1f/s)\n", res.Totals.Healing, perSecond(res.Totals.Healing, secs))
	fmt.Fprintf(out, "  absorb  %10.0f  (%.1f/s)\n", res.Totals.Absorb, perSecond(res.Totals.Absorb, secs))
	if res.Stopped {
		fmt.Fprintln(out, "  (stopped early)")
	}

	if cfg.Record != "" {
		data, err := replay.Save(replay.FromRun(sched))
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Record, data, 0o644); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		fmt.Fprintf(out, "Run record written to %s.\n", cfg.Record)
	}
	if cfg.XLSX != "" {
		if err := report.WriteRun(cfg.XLSX, res, defs); err != nil {
			return err
		}
		fmt.Fprintf(out, "Workbook written to %s.\n", cfg.XLSX)
	}
	return nil
}

func runBatch(ctx context.Context, cfg Config, defs *state.Defs, list types.PriorityList, opts engine.Options, out io.Writer) error {
	start := time.Now()
	b, err := batch.Run(ctx, defs, list, batch.Options{Base: opts, Iterations: cfg.Iterations, Workers: cfg.Workers})
	if err != nil {
		return err
	}
	slog.Info("batch complete", "rotation", list.Name, "iterations", cfg.Iterations, "elapsed", time.Since(start))
	printSummary(out, b.Summary)

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.SaveSummary(ctx, b.Summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved as run %d.\n", id)
		if best, ok, err := st.Best(ctx, b.Summary.Rotation); err != nil {
			return err
		} else if ok && best.ID != id {
			fmt.Fprintf(out, "Best stored run for %s: #%d at %.1f DPS.\n", best.Summary.Rotation, best.ID, best.Summary.DPS.Mean)
		}
	}
	if cfg.XLSX != "" {
		if err := report.WriteBatch(cfg.XLSX, b); err != nil {
			return err
		}
		fmt.Fprintf(out, "Workbook written to %s.\n", cfg.XLSX)
	}
	return nil
}

func runVerify(ctx context.Context, cfg Config, defs *state.Defs, list types.PriorityList, out io.Writer) error {
	data, err := os.ReadFile(cfg.Record)
	if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}
	rec, err := replay.Load(data)
	if err != nil {
		return err
	}
	d, err := replay.Verify(ctx, rec, defs, list)
	if err != nil {
		return err
	}
	if d != nil {
		fmt.Fprintf(out, "Diverged: %s\n", d)
		return errDiverged
	}
	fmt.Fprintf(out, "OK: %d events match.\n", len(rec.Events))
	return nil
}

func runHistory(ctx context.Context, cfg Config, out io.Writer) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	runs, err := st.ListRuns(ctx, "", 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs.")
		return nil
	}
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(out, "#%-4d %s  %-20s %5d x %-8v DPS %8.1f  HPS %8.1f\n",
			r.ID, r.CreatedAt.Format(time.DateTime), s.Rotation, s.Iterations, s.Horizon, s.DPS.Mean, s.HPS.Mean)
	}
	return nil
}

func printSummary(out io.Writer, s batch.Summary) {
	fmt.Fprintf(out, "%s: %d iterations of %v from seed %d\n", s.Rotation, s.Iterations, s.Horizon, s.BaseSeed)
	row := func(name string, st batch.Stat) {
		fmt.Fprintf(out, "  %-5s mean %9.1f  sd %8.1f  min %9.1f  median %9.1f  max %9.1f\n",
			name, st.Mean, st.StdDev, st.Min, st.Median, st.Max)
	}
	row("DPS", s.DPS)
	row("HPS", s.HPS)
	row("APS", s.APS)
	row("Casts", s.Casts)
}

func perSecond(total, secs float64) float64 {
	if secs <= 0 {
		return 0
	}
	return total / secs
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
