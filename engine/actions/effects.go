package actions

import (
	"github.com/nathoo/aplcore/engine/events"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Land resolves a finished cast of id on target: the cast is recorded in
// the history and the spell's effect is applied.
func Land(st *types.State, env Env, id types.SpellID, target int) []types.Event {
	sp := env.Defs.Spells[id]
	if st.Casting == id && st.CastingUntil <= st.Now {
		st.Casting = 0
	}
	state.RecordCast(st, id)

	evs := []types.Event{{At: st.Now, Type: types.EventCastComplete, SpellID: id, Target: target, Entry: env.Entry}}

	switch sp.Kind {
	case types.SpellDamage:
		amt, crit := env.amount(sp, target)
		st.Totals.Damage += amt
		evs = append(evs, types.Event{At: st.Now, Type: types.EventDamage, SpellID: id, Target: target, Amount: amt, Crit: crit, Entry: env.Entry})

	case types.SpellHeal:
		amt, crit := env.amount(sp, target)
		st.Totals.Healing += amt
		evs = append(evs, types.Event{At: st.Now, Type: types.EventHeal, SpellID: id, Target: target, Amount: amt, Crit: crit, Entry: env.Entry})

	case types.SpellDot:
		expires := st.Now + sp.Duration
		gen := state.SetInstance(st, id, target, expires, 0)
		evs = append(evs, types.Event{At: st.Now, Type: types.EventDotApplied, SpellID: id, Target: target, Entry: env.Entry})
		// Ticks are queued before the expiry so the last tick lands first.
		if sp.TickInterval > 0 {
			for at := st.Now + sp.TickInterval; at <= expires; at += sp.TickInterval {
				env.schedule(events.Item{At: at, Kind: events.KindDotTick, SpellID: id, Target: target, Generation: gen})
			}
		}
		env.schedule(events.Item{At: expires, Kind: events.KindExpire, SpellID: id, Target: target, Generation: gen})

	case types.SpellShield:
		amt, crit := env.amount(sp, target)
		gen := state.SetInstance(st, id, target, st.Now+sp.Duration, amt)
		st.Totals.Absorb += amt
		evs = append(evs, types.Event{At: st.Now, Type: types.EventShield, SpellID: id, Target: target, Amount: amt, Crit: crit, Entry: env.Entry})
		env.schedule(events.Item{At: st.Now + sp.Duration, Kind: events.KindExpire, SpellID: id, Target: target, Generation: gen})

	case types.SpellBuff:
		if sp.Duration > 0 {
			gen := state.SetInstance(st, id, target, st.Now+sp.Duration, 0)
			env.schedule(events.Item{At: st.Now + sp.Duration, Kind: events.KindExpire, SpellID: id, Target: target, Generation: gen})
		}
	}
	return evs
}

// Tick applies one periodic dot tick. Ticks from a refreshed or expired
// instance are dropped.
func Tick(st *types.State, env Env, it events.Item) []types.Event {
	inst, ok := st.Instances[it.SpellID][it.Target]
	if !ok || inst.Generation != it.Generation || inst.Expires < st.Now {
		return nil
	}
	sp := env.Defs.Spells[it.SpellID]
	amt, crit := env.amount(sp, it.Target)
	st.Totals.Damage += amt
	return []types.Event{{At: st.Now, Type: types.EventDotTick, SpellID: it.SpellID, Target: it.Target, Amount: amt, Crit: crit, Entry: it.Entry}}
}

// Expire removes an instance whose lifetime ended, unless it has been
// refreshed since the expiry was queued.
func Expire(st *types.State, it events.Item) []types.Event {
	if !state.ExpireInstance(st, it.SpellID, it.Target, it.Generation) {
		return nil
	}
	return []types.Event{{At: st.Now, Type: types.EventExpire, SpellID: it.SpellID, Target: it.Target, Entry: it.Entry}}
}
