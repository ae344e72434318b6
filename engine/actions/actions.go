// Package actions implements the closed set of priority-list actions. Each
// action answers two questions: may it run now (Eligible, pure) and what
// does running it do (Apply, the only place a decision mutates state).
package actions

import (
	"errors"
	"fmt"
	"time"

	"github.com/nathoo/aplcore/engine/events"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// ErrNotReady is matched by every NotReadyError.
var ErrNotReady = errors.New("action not ready")

// NotReadyError reports Apply on an action that is not eligible. The
// interpreter checks eligibility first, so this is always a bug.
type NotReadyError struct {
	Action  types.ActionType
	SpellID types.SpellID
}

func (e *NotReadyError) Error() string {
	if e.SpellID != 0 {
		return fmt.Sprintf("%s(%d) is not ready", e.Action, e.SpellID)
	}
	return fmt.Sprintf("%s is not ready", e.Action)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// Combat computes the magnitude of a landed spell. Implementations own
// all class-specific formulas.
type Combat interface {
	Amount(sp types.Spell, target int) (amount float64, crit bool)
}

// Env carries what Apply needs beyond the state itself.
type Env struct {
	Defs     *state.Defs
	Combat   Combat
	Schedule func(events.Item) // enqueue future work; may be nil in tests
	Entry    int               // priority entry being executed
}

func (env Env) schedule(it events.Item) {
	if env.Schedule != nil {
		it.Entry = env.Entry
		env.Schedule(it)
	}
}

func (env Env) amount(sp types.Spell, target int) (float64, bool) {
	if env.Combat == nil {
		return sp.BaseAmount, false
	}
	return env.Combat.Amount(sp, target)
}

// Choice is what an eligible action would do: which spell, on which
// target.
type Choice struct {
	SpellID types.SpellID
	Target  int
}

// Outcome is the result of applying an action: the timeline events it
// produced and how long until the actor should decide again.
type Outcome struct {
	Events []types.Event
	Delay  time.Duration
}

// Eligible reports whether a may run against the current state, and what
// it would do.
func Eligible(a types.Action, v state.View) (Choice, bool) {
	switch a.Type {
	case types.ActionCastSpell:
		sp, ok := v.Spell(a.SpellID)
		if !ok || !Castable(v, sp) {
			return Choice{}, false
		}
		return Choice{SpellID: sp.ID}, true

	case types.ActionMultiDot, types.ActionMultiShield:
		return multiTarget(a, v)

	case types.ActionAutocastCooldowns:
		id, ok := NextCooldown(v)
		if !ok {
			return Choice{}, false
		}
		return Choice{SpellID: id}, true

	case types.ActionWait:
		return Choice{}, a.Duration > 0

	case types.ActionSequence:
		cur := v.Sequence(a.Name)
		if cur >= len(a.Actions) {
			return Choice{}, false
		}
		return Eligible(a.Actions[cur], v)

	case types.ActionResetSequence:
		return Choice{}, v.Sequence(a.Name) > 0

	default:
		return Choice{}, false
	}
}

// Castable reports whether the actor can start casting sp right now.
func Castable(v state.View, sp types.Spell) bool {
	if v.Busy() || v.CooldownRemaining(sp.ID) > 0 {
		return false
	}
	if sp.OnGCD && !v.GCDReady() {
		return false
	}
	return v.Mana() >= sp.Cost
}

// multiTarget picks the first of the candidate targets whose instance has
// at most MaxOverlap left. Dots look at enemies, shields at allies.
func multiTarget(a types.Action, v state.View) (Choice, bool) {
	sp, ok := v.Spell(a.SpellID)
	if !ok || !Castable(v, sp) {
		return Choice{}, false
	}
	pool := v.Targets()
	if a.Type == types.ActionMultiShield {
		pool = v.Allies()
	}
	n := min(a.MaxInstances, pool)
	for t := 0; t < n; t++ {
		if v.InstanceRemaining(sp.ID, t) <= a.MaxOverlap {
			return Choice{SpellID: sp.ID, Target: t}, true
		}
	}
	return Choice{}, false
}

// Apply executes a against st. It fails with NotReadyError when a is not
// eligible.
func Apply(a types.Action, st *types.State, env Env) (Outcome, error) {
	ch, ok := Eligible(a, state.NewView(st, env.Defs))
	if !ok {
		return Outcome{}, &NotReadyError{Action: a.Type, SpellID: a.SpellID}
	}
	return apply(a, ch, st, env)
}

func apply(a types.Action, ch Choice, st *types.State, env Env) (Outcome, error) {
	switch a.Type {
	case types.ActionCastSpell, types.ActionMultiDot, types.ActionMultiShield, types.ActionAutocastCooldowns:
		return startCast(ch, st, env), nil

	case types.ActionWait:
		st.WaitUntil = st.Now + a.Duration
		ev := types.Event{At: st.Now, Type: types.EventWait, Amount: a.Duration.Seconds(), Entry: env.Entry}
		return Outcome{Events: []types.Event{ev}, Delay: a.Duration}, nil

	case types.ActionSequence:
		cur := st.Sequences[a.Name]
		out, err := apply(a.Actions[cur], ch, st, env)
		if err != nil {
			return Outcome{}, fmt.Errorf("sequence %s[%d]: %w", a.Name, cur, err)
		}
		st.Sequences[a.Name] = cur + 1
		return out, nil

	case types.ActionResetSequence:
		st.Sequences[a.Name] = 0
		ev := types.Event{At: st.Now, Type: types.EventSequence, Entry: env.Entry}
		return Outcome{Events: []types.Event{ev}}, nil

	default:
		return Outcome{}, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// startCast pays for the spell and starts its cooldown and the GCD. Cast
// time spells land when their completion item pops; instants land now.
func startCast(ch Choice, st *types.State, env Env) Outcome {
	sp := env.Defs.Spells[ch.SpellID]

	st.Mana -= sp.Cost
	state.StartCooldown(st, sp)
	if sp.OnGCD {
		st.GCDReadyAt = st.Now + env.Defs.GCD
	}
	if sp.Cooldown > 0 {
		env.schedule(events.Item{At: st.ReadyAt[sp.ID], Kind: events.KindCooldownUp, SpellID: sp.ID})
	}

	evs := []types.Event{{At: st.Now, Type: types.EventCastStart, SpellID: sp.ID, Target: ch.Target, Entry: env.Entry}}
	if sp.CastTime > 0 {
		st.CastingUntil = st.Now + sp.CastTime
		st.Casting = sp.ID
		env.schedule(events.Item{At: st.CastingUntil, Kind: events.KindCastComplete, SpellID: sp.ID, Target: ch.Target})
	} else {
		evs = append(evs, Land(st, env, sp.ID, ch.Target)...)
	}

	delay := sp.CastTime
	if sp.OnGCD && env.Defs.GCD > delay {
		delay = env.Defs.GCD
	}
	return Outcome{Events: evs, Delay: delay}
}
