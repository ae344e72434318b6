// Package replay records runs as JSON and re-runs them to check that the
// engine still produces the same timeline.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nathoo/aplcore/engine"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// FormatVersion is written into every record.
const FormatVersion = "1"

// Record is the JSON-serializable run format.
type Record struct {
	Version     string        `json:"version"`
	Rotation    string        `json:"rotation"`
	Seed        int64         `json:"seed"`
	Horizon     time.Duration `json:"horizon"`
	Targets     int           `json:"targets"`
	Allies      int           `json:"allies"`
	RateWindow  time.Duration `json:"rate_window,omitempty"`
	RNGPosition int64         `json:"rng_position"`
	Decisions   int           `json:"decisions"`
	Totals      types.Totals  `json:"totals"`
	Events      []types.Event `json:"events"`
}

// FromRun captures a finished (or stopped) scheduler.
func FromRun(s *engine.Scheduler) *Record {
	res := s.Result()
	return &Record{
		Version:     FormatVersion,
		Rotation:    res.Rotation,
		Seed:        res.Seed,
		Horizon:     res.Horizon,
		Targets:     s.State.Targets,
		Allies:      s.State.Allies,
		RateWindow:  s.Defs.RateWindow,
		RNGPosition: s.RNG.Position(),
		Decisions:   res.Decisions,
		Totals:      res.Totals,
		Events:      res.Events,
	}
}

// Save serializes a record to JSON bytes.
func Save(rec *Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

// Load deserializes JSON bytes into a record.
func Load(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding run record: %w", err)
	}
	if rec.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported run record version %q", rec.Version)
	}
	if rec.Events == nil {
		rec.Events = []types.Event{}
	}
	return &rec, nil
}

// Options returns the scheduler options that reproduce the record.
func (r *Record) Options() engine.Options {
	return engine.Options{
		Horizon:    r.Horizon,
		Seed:       r.Seed,
		Targets:    r.Targets,
		Allies:     r.Allies,
		RateWindow: r.RateWindow,
	}
}

// Divergence is the first point where two timelines differ. A nil Want
// or Got means that side ended early. When the events match but the runs
// still differ, both are nil and Note says how.
type Divergence struct {
	Index int
	Want  *types.Event
	Got   *types.Event
	Note  string
}

func (d *Divergence) String() string {
	if d.Note != "" && d.Want == nil && d.Got == nil {
		return fmt.Sprintf("after event %d: %s", d.Index, d.Note)
	}
	return fmt.Sprintf("event %d: want %s, got %s", d.Index, describe(d.Want), describe(d.Got))
}

func describe(ev *types.Event) string {
	if ev == nil {
		return "end of timeline"
	}
	s := fmt.Sprintf("%s@%v spell=%d target=%d", ev.Type, ev.At, ev.SpellID, ev.Target)
	if ev.Amount != 0 {
		s += fmt.Sprintf(" amount=%.1f", ev.Amount)
	}
	return s
}

// Diff returns the first divergence between two timelines, or nil.
func Diff(want, got []types.Event) *Divergence {
	n := min(len(want), len(got))
	for i := 0; i < n; i++ {
		if want[i] != got[i] {
			return &Divergence{Index: i, Want: &want[i], Got: &got[i]}
		}
	}
	switch {
	case len(want) > n:
		return &Divergence{Index: n, Want: &want[n]}
	case len(got) > n:
		return &Divergence{Index: n, Got: &got[n]}
	}
	return nil
}

// Verify re-runs the recorded rotation and reports the first divergence,
// or nil when the timelines and the final RNG position match. The error
// is reserved for runs that fail outright.
func Verify(ctx context.Context, rec *Record, defs *state.Defs, list types.PriorityList) (*Divergence, error) {
	s := engine.New(defs, list, rec.Options())
	res, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	if d := Diff(rec.Events, res.Events); d != nil {
		return d, nil
	}
	if pos := s.RNG.Position(); pos != rec.RNGPosition {
		return &Divergence{
			Index: len(res.Events),
			Note:  fmt.Sprintf("rng position %d, recorded %d", pos, rec.RNGPosition),
		}, nil
	}
	return nil, nil
}
