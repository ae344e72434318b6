package engine

import (
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Combat is the default combat collaborator. It scales a spell's base
// amount by a symmetric variance roll and applies crits, drawing from
// the run's RNG so results stay reproducible.
type Combat struct {
	defs *state.Defs
	rng  *RNG
}

// NewCombat creates the default collaborator for one run.
func NewCombat(defs *state.Defs, rng *RNG) *Combat {
	return &Combat{defs: defs, rng: rng}
}

// Amount returns base * (1 ± variance), multiplied by the crit multiplier
// when the crit roll succeeds. A zero variance or crit chance skips that
// roll entirely, consuming no RNG draws.
func (c *Combat) Amount(sp types.Spell, target int) (float64, bool) {
	amt := sp.BaseAmount * c.rng.Spread(c.defs.Variance)
	crit := c.rng.Chance(c.defs.CritChance)
	if crit {
		amt *= c.defs.CritMultiplier
	}
	if amt < 0 {
		amt = 0
	}
	return amt, crit
}
