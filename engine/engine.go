// Package engine provides the decision scheduler that wires the event
// queue, the priority-list interpreter, and the action catalog into a
// discrete-event simulation loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nathoo/aplcore/engine/actions"
	"github.com/nathoo/aplcore/engine/apl"
	"github.com/nathoo/aplcore/engine/events"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Defaults applied by New when Options leaves a field zero.
const (
	DefaultHorizon                = 5 * time.Minute
	DefaultMaxDecisionsPerInstant = 64
	DefaultIdlePoll               = time.Second
)

// ErrStalled reports a list that keeps deciding at the same instant
// without time advancing.
var ErrStalled = errors.New("stalled: too many decisions at one instant")

// RunError is a fatal error raised while running, with the simulated time
// and the priority entry involved. Entry is -1 when no entry was running.
type RunError struct {
	At    time.Duration
	Entry int
	Err   error
}

func (e *RunError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("at %v (entry %d): %v", e.At, e.Entry, e.Err)
	}
	return fmt.Sprintf("at %v: %v", e.At, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Options configures one run.
type Options struct {
	Horizon                time.Duration
	Seed                   int64
	Targets                int
	Allies                 int
	RateWindow             time.Duration // overrides the catalog's cpm window when set
	Sink                   events.Sink
	Combat                 actions.Combat              // nil falls back to NewCombat
	NewCombat              func(*RNG) actions.Combat // builds a collaborator on the run's RNG; nil uses the default
	MaxDecisionsPerInstant int
	Logger                 *slog.Logger
}

// Tick describes what one Step did.
type Tick struct {
	At       time.Duration
	Item     events.Item
	Decision apl.Decision
	Events   []types.Event
	Done     bool
}

// Scheduler owns the simulation state and the event queue for one run.
type Scheduler struct {
	Defs  *state.Defs
	State *types.State
	RNG   *RNG

	interp   *apl.Interpreter
	queue    events.Queue
	rec      events.Recorder
	sink     events.Sink
	combat   actions.Combat
	log      *slog.Logger
	wakes    map[time.Duration]bool
	perTick  int
	maxTick  int
	done     bool
	stopped  bool
	finished bool
}

// New creates a scheduler with a decision wake queued at time zero.
func New(defs *state.Defs, list types.PriorityList, opts Options) *Scheduler {
	if opts.RateWindow > 0 {
		d := *defs
		d.RateWindow = opts.RateWindow
		defs = &d
	}
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultHorizon
	}
	if opts.MaxDecisionsPerInstant <= 0 {
		opts.MaxDecisionsPerInstant = DefaultMaxDecisionsPerInstant
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	st := state.NewState(defs, opts.Targets, opts.Allies, opts.Horizon, opts.Seed)
	s := &Scheduler{
		Defs:    defs,
		State:   st,
		RNG:     NewRNG(opts.Seed),
		interp:  apl.New(list, defs),
		combat:  opts.Combat,
		log:     opts.Logger.With("rotation", list.Name, "seed", opts.Seed),
		wakes:   map[time.Duration]bool{},
		maxTick: opts.MaxDecisionsPerInstant,
	}
	s.sink = events.Multi(&s.rec, opts.Sink)
	if s.combat == nil && opts.NewCombat != nil {
		s.combat = opts.NewCombat(s.RNG)
	}
	if s.combat == nil {
		s.combat = NewCombat(defs, s.RNG)
	}

	s.wake(0)
	if defs.ManaRegen > 0 && defs.RegenInterval > 0 {
		s.queue.Push(events.Item{At: defs.RegenInterval, Kind: events.KindManaTick, Entry: -1})
	}
	return s
}

// Interpreter exposes the interpreter, for debugging views.
func (s *Scheduler) Interpreter() *apl.Interpreter { return s.interp }

// View returns a read-only view of the current state.
func (s *Scheduler) View() state.View { return state.NewView(s.State, s.Defs) }

// Pending returns the number of queued items.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// Done reports whether the run reached its horizon or ran out of work.
func (s *Scheduler) Done() bool { return s.done }

func (s *Scheduler) env() actions.Env {
	return actions.Env{
		Defs:   s.Defs,
		Combat: s.combat,
		Entry:  -1,
		Schedule: func(it events.Item) {
			s.queue.Push(it)
		},
	}
}

// wake queues a decision at most once per instant, never past the horizon.
func (s *Scheduler) wake(at time.Duration) {
	if at > s.State.Horizon || s.wakes[at] {
		return
	}
	s.wakes[at] = true
	s.queue.Push(events.Item{At: at, Kind: events.KindDecision, Entry: -1})
}

// Step pops one queued item, advances time, applies the item's effect and
// invokes the interpreter once.
func (s *Scheduler) Step() (Tick, error) {
	if s.done {
		return Tick{At: s.State.Now, Done: true}, nil
	}
	it, ok := s.queue.Peek()
	if !ok || it.At > s.State.Horizon {
		s.finish()
		return Tick{At: s.State.Now, Done: true}, nil
	}
	s.queue.Pop()

	if it.At != s.State.Now {
		s.State.Now = it.At
		s.perTick = 0
	}
	tick := Tick{At: it.At, Item: it}

	env := s.env()
	switch it.Kind {
	case events.KindDecision:
		delete(s.wakes, it.At)
	case events.KindCastComplete:
		env.Entry = it.Entry
		tick.Events = actions.Land(s.State, env, it.SpellID, it.Target)
		env.Entry = -1
	case events.KindDotTick:
		tick.Events = actions.Tick(s.State, env, it)
	case events.KindExpire:
		tick.Events = actions.Expire(s.State, it)
	case events.KindCooldownUp:
		tick.Events = []types.Event{{At: it.At, Type: types.EventCooldownUp, SpellID: it.SpellID, Entry: it.Entry}}
	case events.KindManaTick:
		before := s.State.Mana
		state.AddMana(s.State, s.Defs.ManaRegen)
		tick.Events = []types.Event{{At: it.At, Type: types.EventManaTick, Amount: s.State.Mana - before, Entry: -1}}
		if next := it.At + s.Defs.RegenInterval; next <= s.State.Horizon {
			s.queue.Push(events.Item{At: next, Kind: events.KindManaTick, Entry: -1})
		}
	}

	d, err := s.interp.Step(s.State, env)
	if err != nil {
		return tick, s.fail(err)
	}
	tick.Decision = d
	tick.Events = append(tick.Events, d.Events...)

	switch {
	case d.Matched():
		s.perTick++
		s.log.Debug("decision", "at", s.State.Now, "entry", d.Index, "action", d.Action.Type, "spell", d.Choice.SpellID, "target", d.Choice.Target)
		if s.perTick > s.maxTick {
			return tick, s.fail(&apl.EntryError{Index: d.Index, Err: ErrStalled})
		}
		s.wake(s.State.Now + d.Delay)
	case !d.Idle:
		s.wake(s.fallback())
	}

	s.State.RNGPosition = s.RNG.Position()
	for _, ev := range tick.Events {
		s.sink.Emit(ev)
	}
	return tick, nil
}

// fallback is the wake time after a decision point where nothing matched:
// the next readiness change, or one poll interval (the GCD) later if that
// comes first. Rate metrics drift with time alone, so an idle actor keeps
// re-checking the list even when nothing is pending.
func (s *Scheduler) fallback() time.Duration {
	poll := s.Defs.GCD
	if poll <= 0 {
		poll = DefaultIdlePoll
	}
	at := s.State.Now + poll
	if next, ok := s.View().NextInteresting(); ok && next < at {
		at = next
	}
	return at
}

func (s *Scheduler) fail(err error) error {
	s.done = true
	re := &RunError{At: s.State.Now, Entry: -1, Err: err}
	var ee *apl.EntryError
	if errors.As(err, &ee) {
		re.Entry = ee.Index
		re.Err = ee.Err
	}
	s.log.Error("run failed", "at", re.At, "entry", re.Entry, "err", re.Err)
	return re
}

func (s *Scheduler) finish() {
	if s.finished {
		return
	}
	s.done, s.finished = true, true
	if !s.stopped {
		s.State.Now = s.State.Horizon
	}
	t := s.State.Totals
	s.log.Info("run complete",
		"end", s.State.Now,
		"decisions", s.State.Decisions,
		"casts", t.Casts,
		"damage", t.Damage,
		"healing", t.Healing,
		"absorb", t.Absorb,
		"stopped", s.stopped,
	)
}

// Run steps until the horizon. Cancelling ctx stops the run after the
// current decision point and returns the partial result with no error.
func (s *Scheduler) Run(ctx context.Context) (types.Result, error) {
	for {
		if ctx.Err() != nil {
			s.stopped = true
			s.finish()
			return s.Result(), nil
		}
		tick, err := s.Step()
		if err != nil {
			return s.Result(), err
		}
		if tick.Done {
			return s.Result(), nil
		}
	}
}

// Result snapshots the run's output so far.
func (s *Scheduler) Result() types.Result {
	return types.Result{
		Rotation:  s.interp.List().Name,
		Seed:      s.State.RNGSeed,
		Horizon:   s.State.Horizon,
		End:       s.State.Now,
		Events:    s.rec.Events,
		Totals:    s.State.Totals,
		Decisions: s.State.Decisions,
		Stopped:   s.stopped,
	}
}
