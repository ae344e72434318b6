package state

import (
	"math"
	"time"

	"github.com/nathoo/aplcore/types"
)

// View is a read-only window onto a simulation state. The evaluator and
// the interpreter only ever see a View; mutation happens through actions.
type View struct {
	s    *types.State
	defs *Defs
}

// NewView wraps s for read-only access.
func NewView(s *types.State, defs *Defs) View {
	return View{s: s, defs: defs}
}

func (v View) Defs() *Defs { return v.defs }
func (v View) Now() time.Duration { return v.s.Now }
func (v View) Horizon() time.Duration { return v.s.Horizon }
func (v View) Targets() int { return v.s.Targets }
func (v View) Allies() int { return v.s.Allies }
func (v View) Mana() float64 { return v.s.Mana }
func (v View) MaxMana() float64 { return v.s.MaxMana }
func (v View) Sequence(name string) int { return v.s.Sequences[name] }
func (v View) CastCount(id types.SpellID) int { return len(v.s.Casts[id]) }

// Spell looks up a catalog entry.
func (v View) Spell(id types.SpellID) (types.Spell, bool) {
	sp, ok := v.defs.Spells[id]
	return sp, ok
}

// Remaining returns the simulated time left before the horizon.
func (v View) Remaining() time.Duration {
	if v.s.Now >= v.s.Horizon {
		return 0
	}
	return v.s.Horizon - v.s.Now
}

// Casting reports whether a cast is in progress.
func (v View) Casting() bool { return v.s.Now < v.s.CastingUntil }

// Busy reports whether the actor cannot start any action right now.
func (v View) Busy() bool { return v.Casting() || v.s.Now < v.s.WaitUntil }

// GCDReady reports whether the global cooldown has elapsed.
func (v View) GCDReady() bool { return v.s.Now >= v.s.GCDReadyAt }

// CooldownRemaining returns the time until the spell's own cooldown ends.
func (v View) CooldownRemaining(id types.SpellID) time.Duration {
	ready := v.s.ReadyAt[id]
	if ready <= v.s.Now {
		return 0
	}
	return ready - v.s.Now
}

// InstanceRemaining returns the remaining duration of the spell's instance
// on target, or 0 when there is none.
func (v View) InstanceRemaining(id types.SpellID, target int) time.Duration {
	inst, ok := v.s.Instances[id][target]
	if !ok || inst.Expires <= v.s.Now {
		return 0
	}
	return inst.Expires - v.s.Now
}

// ActiveInstances counts live instances of the spell across all targets.
func (v View) ActiveInstances(id types.SpellID) int {
	n := 0
	for _, inst := range v.s.Instances[id] {
		if inst.Expires > v.s.Now {
			n++
		}
	}
	return n
}

// CastsPerMinute is completed casts of id inside the rate window divided
// by the window's elapsed minutes. Zero casts give 0; casts with no
// elapsed time give +Inf.
func (v View) CastsPerMinute(id types.SpellID) float64 {
	start := time.Duration(0)
	if w := v.defs.RateWindow; w > 0 && v.s.Now > w {
		start = v.s.Now - w
	}
	n := 0
	for _, at := range v.s.Casts[id] {
		if at >= start && at <= v.s.Now {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	elapsed := v.s.Now - start
	if elapsed <= 0 {
		return math.Inf(1)
	}
	return float64(n) / elapsed.Minutes()
}

// NextInteresting returns the earliest future time at which readiness
// changes: a cooldown, the GCD, a cast or wait ending, or an instance
// expiring. ok is false when nothing is pending.
func (v View) NextInteresting() (at time.Duration, ok bool) {
	consider := func(t time.Duration) {
		if t > v.s.Now && (!ok || t < at) {
			at, ok = t, true
		}
	}
	for _, t := range v.s.ReadyAt {
		consider(t)
	}
	consider(v.s.GCDReadyAt)
	consider(v.s.CastingUntil)
	consider(v.s.WaitUntil)
	for _, insts := range v.s.Instances {
		for _, inst := range insts {
			consider(inst.Expires)
		}
	}
	return at, ok
}
