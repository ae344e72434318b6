// Package state manages the mutable simulation state and the immutable
// identifier catalog it is checked against.
package state

import (
	"sort"
	"time"

	"github.com/nathoo/aplcore/types"
)

// Default actor settings used when the catalog leaves them unset.
const (
	DefaultGCD            = 1500 * time.Millisecond
	DefaultRegenInterval  = 2 * time.Second
	DefaultCritMultiplier = 1.5
)

// Defs holds the immutable catalog and actor settings for a run. It is
// shared read-only between parallel iterations.
type Defs struct {
	Spells         map[types.SpellID]types.Spell
	Cooldowns      []types.SpellID // major cooldowns, highest priority first
	GCD            time.Duration
	MaxMana        float64
	ManaRegen      float64 // mana restored per regen tick
	RegenInterval  time.Duration
	CritChance     float64
	CritMultiplier float64
	Variance       float64
	RateWindow     time.Duration // 0 = since simulation start
}

// NewDefs builds Defs from a spell list, filling in defaults and the
// cooldown priority order.
func NewDefs(spells []types.Spell) *Defs {
	d := &Defs{
		Spells:         make(map[types.SpellID]types.Spell, len(spells)),
		GCD:            DefaultGCD,
		RegenInterval:  DefaultRegenInterval,
		CritMultiplier: DefaultCritMultiplier,
	}
	for _, sp := range spells {
		d.Spells[sp.ID] = sp
	}
	d.Cooldowns = cooldownOrder(d.Spells)
	return d
}

// cooldownOrder sorts major cooldowns by priority (desc), then ID (asc)
// so the order never depends on map iteration.
func cooldownOrder(spells map[types.SpellID]types.Spell) []types.SpellID {
	var ids []types.SpellID
	for id, sp := range spells {
		if sp.MajorCooldown {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := spells[ids[i]].CooldownPriority, spells[ids[j]].CooldownPriority
		if pi != pj {
			return pi > pj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// NewState creates a fresh simulation state for one run.
func NewState(defs *Defs, targets, allies int, horizon time.Duration, seed int64) *types.State {
	if targets < 1 {
		targets = 1
	}
	if allies < 1 {
		allies = 1
	}
	return &types.State{
		Horizon:   horizon,
		Targets:   targets,
		Allies:    allies,
		Casts:     map[types.SpellID][]time.Duration{},
		Instances: map[types.SpellID]map[int]types.Instance{},
		ReadyAt:   map[types.SpellID]time.Duration{},
		Mana:      defs.MaxMana,
		MaxMana:   defs.MaxMana,
		Sequences: map[string]int{},
		RNGSeed:   seed,
	}
}

// RecordCast appends a completed cast to the spell's history.
func RecordCast(s *types.State, id types.SpellID) {
	s.Casts[id] = append(s.Casts[id], s.Now)
	s.Totals.Casts++
}

// StartCooldown marks the spell unavailable until now + its cooldown.
func StartCooldown(s *types.State, sp types.Spell) {
	if sp.Cooldown > 0 {
		s.ReadyAt[sp.ID] = s.Now + sp.Cooldown
	}
}

// SetInstance creates or refreshes a dot/shield instance and returns its
// new generation. Refreshing invalidates ticks scheduled for the old one.
func SetInstance(s *types.State, id types.SpellID, target int, expires time.Duration, absorb float64) int {
	insts, ok := s.Instances[id]
	if !ok {
		insts = map[int]types.Instance{}
		s.Instances[id] = insts
	}
	gen := insts[target].Generation + 1
	insts[target] = types.Instance{Expires: expires, Generation: gen, Absorb: absorb}
	return gen
}

// ExpireInstance removes an instance if the generation still matches.
// Returns true when something was removed.
func ExpireInstance(s *types.State, id types.SpellID, target, generation int) bool {
	insts, ok := s.Instances[id]
	if !ok {
		return false
	}
	inst, ok := insts[target]
	if !ok || inst.Generation != generation || inst.Expires > s.Now {
		return false
	}
	delete(insts, target)
	return true
}

// InstanceLive reports whether the given instance generation is still the
// active one on the target.
func InstanceLive(s *types.State, id types.SpellID, target, generation int) bool {
	inst, ok := s.Instances[id][target]
	return ok && inst.Generation == generation && inst.Expires > s.Now
}

// AddMana restores mana, clamped to the pool maximum.
func AddMana(s *types.State, amount float64) {
	s.Mana += amount
	if s.Mana > s.MaxMana {
		s.Mana = s.MaxMana
	}
}
