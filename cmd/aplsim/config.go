package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Run modes.
const (
	ModeAuto    = "auto"    // tui on a terminal, plain otherwise
	ModeTUI     = "tui"     // full-screen timeline viewer
	ModePlain   = "plain"   // line debugger
	ModeRun     = "run"     // one run to the horizon
	ModeBatch   = "batch"   // many seeds, summarized
	ModeVerify  = "verify"  // re-run a saved record and diff it
	ModeHistory = "history" // list stored batch summaries
)

// Config holds aplsim configuration. Environment variables are read
// first; flags override them.
type Config struct {
	Catalog    string        `env:"APLSIM_CATALOG"`
	Rotation   string        `env:"APLSIM_ROTATION"`
	Mode       string        `env:"APLSIM_MODE"        envDefault:"auto"`
	Horizon    time.Duration `env:"APLSIM_HORIZON"     envDefault:"5m"`
	Seed       int64         `env:"APLSIM_SEED"        envDefault:"1"`
	Targets    int           `env:"APLSIM_TARGETS"     envDefault:"1"`
	Allies     int           `env:"APLSIM_ALLIES"      envDefault:"5"`
	RateWindow time.Duration `env:"APLSIM_RATE_WINDOW"`
	Iterations int           `env:"APLSIM_ITERATIONS"  envDefault:"100"`
	Workers    int           `env:"APLSIM_WORKERS"`
	DBPath     string        `env:"APLSIM_DB"`
	XLSX       string        `env:"APLSIM_XLSX"`
	Record     string        `env:"APLSIM_RECORD"`
	Script     string        `env:"APLSIM_SCRIPT"`
	Trace      bool          `env:"APLSIM_TRACE"`
	LogLevel   string        `env:"APLSIM_LOG_LEVEL"   envDefault:"warn"`
	Version    bool
}

// ParseConfig parses the environment and then args into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "path to the spell catalog (YAML)")
	fs.StringVar(&cfg.Rotation, "rotation", cfg.Rotation, "path to the priority list (.json, .yaml or .lua)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "auto, tui, plain, run, batch, verify or history")
	fs.DurationVar(&cfg.Horizon, "horizon", cfg.Horizon, "simulated fight length")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed (first seed in batch mode)")
	fs.IntVar(&cfg.Targets, "targets", cfg.Targets, "number of enemy targets")
	fs.IntVar(&cfg.Allies, "allies", cfg.Allies, "number of allied targets")
	fs.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "casts-per-minute window (overrides the catalog)")
	fs.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "batch iterations")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "batch workers (0 uses all CPUs)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database for batch history")
	fs.StringVar(&cfg.XLSX, "xlsx", cfg.XLSX, "write an XLSX report to this path")
	fs.StringVar(&cfg.Record, "record", cfg.Record, "run record to write (run mode) or check (verify mode)")
	fs.StringVar(&cfg.Script, "script", cfg.Script, "command script for the line debugger")
	fs.BoolVar(&cfg.Trace, "trace", cfg.Trace, "show queue trace in the debugger")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	return cfg, nil
}

// Validate checks the fields the selected mode needs.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeTUI, ModePlain, ModeRun, ModeBatch, ModeVerify:
		if c.Catalog == "" || c.Rotation == "" {
			return fmt.Errorf("mode %s needs -catalog and -rotation", c.Mode)
		}
	case ModeHistory:
		if c.DBPath == "" {
			return fmt.Errorf("mode %s needs -db", c.Mode)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Mode == ModeVerify && c.Record == "" {
		return fmt.Errorf("mode %s needs -record", c.Mode)
	}
	if c.Mode == ModeBatch && c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %v", c.Horizon)
	}
	if c.Targets < 0 || c.Allies < 0 {
		return fmt.Errorf("targets and allies must be non-negative")
	}
	return nil
}

// newLogger builds a text slog logger at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
