package actions

import (
	"github.com/nathoo/aplcore/engine/rules"
	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// NextCooldown returns the highest-priority major cooldown that can be
// cast now, scanning the catalog's cooldown order the same way the
// interpreter scans a priority list.
func NextCooldown(v state.View) (types.SpellID, bool) {
	order := v.Defs().Cooldowns
	idx, _ := rules.Scan(len(order), func(i int) (bool, error) {
		sp, ok := v.Spell(order[i])
		return ok && Castable(v, sp), nil
	})
	if idx < 0 {
		return 0, false
	}
	return order[idx], true
}
